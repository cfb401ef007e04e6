// Package storage implements KadeDB's paged, memory-mapped storage
// substrate: a custom on-disk file format (FileManager) and a
// fixed-capacity page cache on top of it (PageManager).
package storage

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/kadedb/kadedb"
)

// HeaderSize is the fixed size of the file header, bytes 0..127.
const HeaderSize = 128

// PageHeaderSize is the fixed size of each page's header: next_free (u64),
// page_type (u32), checksum (u32), lsn (u64).
const PageHeaderSize = 24

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

// Page wraps a single page_size byte buffer: the 24-byte page header
// followed by payload. free_offset is an in-memory bump-allocator cursor,
// not part of the on-disk format (the format persists only next_free,
// page_type, checksum and lsn); it resets to PageHeaderSize whenever a
// page is freshly allocated or loaded from disk without an explicit
// recorded cursor.
type Page struct {
	id         uint64
	buf        []byte
	freeOffset int
	dirty      bool
	pinCount   int
}

// NewPage wraps buf (len == pageSize) as page id, with a bump-allocator
// cursor starting right after the page header.
func NewPage(id uint64, buf []byte) *Page {
	return &Page{id: id, buf: buf, freeOffset: PageHeaderSize}
}

// ID returns the page's id.
func (p *Page) ID() uint64 { return p.id }

// Bytes returns the full backing buffer, header included.
func (p *Page) Bytes() []byte { return p.buf }

// NextFree returns the page header's next_free field.
func (p *Page) NextFree() uint64 { return binary.LittleEndian.Uint64(p.buf[0:8]) }

// SetNextFree sets the page header's next_free field.
func (p *Page) SetNextFree(v uint64) { binary.LittleEndian.PutUint64(p.buf[0:8], v) }

// PageType returns the page header's page_type field.
func (p *Page) PageType() uint32 { return binary.LittleEndian.Uint32(p.buf[8:12]) }

// SetPageType sets the page header's page_type field.
func (p *Page) SetPageType(v uint32) { binary.LittleEndian.PutUint32(p.buf[8:12], v) }

// Checksum returns the page header's stored checksum field.
func (p *Page) Checksum() uint32 { return binary.LittleEndian.Uint32(p.buf[12:16]) }

func (p *Page) setChecksum(v uint32) { binary.LittleEndian.PutUint32(p.buf[12:16], v) }

// LSN returns the page header's lsn field.
func (p *Page) LSN() uint64 { return binary.LittleEndian.Uint64(p.buf[16:24]) }

// SetLSN sets the page header's lsn field.
func (p *Page) SetLSN(v uint64) { binary.LittleEndian.PutUint64(p.buf[16:24], v) }

// Payload returns the page's payload region, after the 24-byte header.
func (p *Page) Payload() []byte { return p.buf[PageHeaderSize:] }

// Allocate bump-allocates n bytes from the payload and returns the slice,
// or FailedPrecondition if the page has no room left.
func (p *Page) Allocate(n int) ([]byte, *kadedb.Status) {
	if n < 0 || p.freeOffset+n > len(p.buf) {
		return nil, kadedb.FailedPrecondition("page: allocate(%d) exceeds free space (%d bytes left)", n, len(p.buf)-p.freeOffset)
	}
	start := p.freeOffset
	p.freeOffset += n
	return p.buf[start : start+n], nil
}

// Free releases a previously allocated span, bookkeeping only — v1
// performs no compaction, matching the spec's "no compaction required"
// note; offset/n are validated for bounds but the bytes are left in place.
func (p *Page) Free(offset, n int) *kadedb.Status {
	if offset < PageHeaderSize || offset+n > len(p.buf) {
		return kadedb.InvalidArgument("page: free(%d,%d) out of bounds", offset, n)
	}
	return nil
}

// FreeSpace returns the number of bytes left for Allocate.
func (p *Page) FreeSpace() int { return len(p.buf) - p.freeOffset }

// SetDirty marks the page dirty.
func (p *Page) SetDirty() { p.dirty = true }

// Dirty reports whether the page has unflushed writes.
func (p *Page) Dirty() bool { return p.dirty }

func (p *Page) clearDirty() { p.dirty = false }

// Pin increments the page's pin count. Fetched pages are returned pinned.
func (p *Page) Pin() { p.pinCount++ }

// Unpin decrements the page's pin count. Unpinning an unpinned page is a
// caller bug; debug builds of the C++/Rust source assert on it, so the Go
// port mirrors that with a panic rather than silently going negative.
func (p *Page) Unpin() {
	if p.pinCount <= 0 {
		panic("storage: unpin of page with zero pin count")
	}
	p.pinCount--
}

// PinCount reports the current pin count.
func (p *Page) PinCount() int { return p.pinCount }

// UpdateChecksum recomputes and stores the page's CRC32C checksum, computed
// over the page header with the checksum field zeroed, concatenated with
// the payload.
func (p *Page) UpdateChecksum() {
	p.setChecksum(0)
	p.setChecksum(crc32.Checksum(p.buf, crc32cTable))
}

// VerifyChecksum recomputes the checksum the same way UpdateChecksum does
// and compares it against the stored value, without mutating the page.
func (p *Page) VerifyChecksum() bool {
	stored := p.Checksum()
	scratch := make([]byte, len(p.buf))
	copy(scratch, p.buf)
	binary.LittleEndian.PutUint32(scratch[12:16], 0)
	return crc32.Checksum(scratch, crc32cTable) == stored
}
