package storage

import (
	"encoding/binary"
	"os"
	"sync"

	"github.com/edsrzf/mmap-go"

	"github.com/kadedb/kadedb"
)

const (
	signature      = "KADEDB"
	formatVersion  = uint16(1)
	minPageSize    = 512
	maxPageSize    = 65536
	growthPages    = 16 // pages added per extend_file call when none requested
)

// FileManager owns one open backing file in KadeDB's custom paged format
// and its memory mapping. Page 0 is reserved and never handed to callers;
// usable pages start at id 1. Each public method takes FileManager's own
// mutex for its duration; PageManager serializes its cache operations with
// a separate mutex of its own.
type FileManager struct {
	mu        sync.Mutex
	file      *os.File
	mapping   mmap.MMap
	pageSize  uint32
	pageCount uint64
	freeHead  uint64
	live      map[uint64]*Page // pages currently handed out, for remap fixups
}

// CreateFile creates a new backing file at path with the given page_size
// (must be in [512, 65536]) and writes a zeroed header.
func CreateFile(path string, pageSize uint32) (*FileManager, *kadedb.Status) {
	if pageSize < minPageSize || pageSize > maxPageSize {
		return nil, kadedb.InvalidArgument("storage: page_size %d out of range [%d,%d]", pageSize, minPageSize, maxPageSize)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, kadedb.InternalError(err, "storage: create %s", path)
	}
	fm := &FileManager{file: f, pageSize: pageSize, live: make(map[uint64]*Page)}
	if st := fm.writeHeader(); st != nil {
		f.Close()
		return nil, st
	}
	// Reserve page 0's slot up front so a freshly created, never-extended
	// file already satisfies OpenFile's size check (page_count=0 still
	// needs one page_size slot on disk for the reserved page 0).
	if err := f.Truncate(int64(HeaderSize) + int64(pageSize)); err != nil {
		f.Close()
		return nil, kadedb.InternalError(err, "storage: truncate %s", path)
	}
	if st := fm.remap(); st != nil {
		f.Close()
		return nil, st
	}
	return fm, nil
}

// OpenFile opens an existing backing file at path, validating its header.
func OpenFile(path string) (*FileManager, *kadedb.Status) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, kadedb.InternalError(err, "storage: open %s", path)
	}
	fm := &FileManager{file: f, live: make(map[uint64]*Page)}
	if st := fm.remap(); st != nil {
		f.Close()
		return nil, st
	}
	if st := fm.readHeader(); st != nil {
		fm.mapping.Unmap()
		f.Close()
		return nil, st
	}
	// +1 accounts for the reserved, never-allocated page 0's storage slot:
	// page id N lives at file offset HeaderSize + N*pageSize, so holding
	// page_count usable pages (ids 1..page_count) requires page_count+1
	// slots on disk.
	wantSize := int64(HeaderSize) + int64(fm.pageCount+1)*int64(fm.pageSize)
	info, err := f.Stat()
	if err != nil {
		fm.mapping.Unmap()
		f.Close()
		return nil, kadedb.InternalError(err, "storage: stat %s", path)
	}
	if info.Size() != wantSize {
		fm.mapping.Unmap()
		f.Close()
		return nil, kadedb.InternalError(nil, "storage: %s size %d does not match header (want %d)", path, info.Size(), wantSize)
	}
	return fm, nil
}

// CloseFile flushes, unmaps and closes the backing file.
func (fm *FileManager) CloseFile() *kadedb.Status {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if st := fm.flushLocked(); st != nil {
		return st
	}
	if fm.mapping != nil {
		if err := fm.mapping.Unmap(); err != nil {
			return kadedb.InternalError(err, "storage: unmap")
		}
	}
	if err := fm.file.Close(); err != nil {
		return kadedb.InternalError(err, "storage: close")
	}
	return nil
}

// PageSize returns the configured page size.
func (fm *FileManager) PageSize() uint32 { return fm.pageSize }

// PageCount returns the number of allocated data pages (excluding page 0).
func (fm *FileManager) PageCount() uint64 {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.pageCount
}

// AllocatePage reserves a page, reusing the free-list head if non-empty,
// else extending the file by one page. The returned Page's type field is
// set to pageType and its payload zeroed.
func (fm *FileManager) AllocatePage(pageType uint32) (*Page, *kadedb.Status) {
	fm.mu.Lock()
	defer fm.mu.Unlock()

	var id uint64
	if fm.freeHead != 0 {
		id = fm.freeHead
		head, st := fm.readPageLocked(id)
		if st != nil {
			return nil, st
		}
		fm.freeHead = head.NextFree()
		if st := fm.writeHeaderLocked(); st != nil {
			return nil, st
		}
	} else {
		if st := fm.extendFileLocked(1); st != nil {
			return nil, st
		}
		id = fm.pageCount
	}
	p, st := fm.readPageLocked(id)
	if st != nil {
		return nil, st
	}
	for i := range p.buf {
		p.buf[i] = 0
	}
	p.SetNextFree(0)
	p.SetPageType(pageType)
	p.freeOffset = PageHeaderSize
	p.UpdateChecksum()
	fm.live[id] = p
	return p, nil
}

// FreePage pushes id onto the free-list head and marks its type as the
// free-page sentinel (page_type 0).
func (fm *FileManager) FreePage(id uint64) *kadedb.Status {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	if id == 0 {
		return kadedb.InvalidArgument("storage: page 0 is reserved and cannot be freed")
	}
	p, st := fm.readPageLocked(id)
	if st != nil {
		return st
	}
	p.SetPageType(0)
	p.SetNextFree(fm.freeHead)
	p.UpdateChecksum()
	if st := fm.writePageLocked(p); st != nil {
		return st
	}
	fm.freeHead = id
	delete(fm.live, id)
	return fm.writeHeaderLocked()
}

// ReadPage returns the Page at id, reading from the current mapping.
func (fm *FileManager) ReadPage(id uint64) (*Page, *kadedb.Status) {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	p, st := fm.readPageLocked(id)
	if st != nil {
		return nil, st
	}
	fm.live[id] = p
	return p, nil
}

// WritePage persists p's current bytes (recomputing its checksum) back
// into the mapping.
func (fm *FileManager) WritePage(p *Page) *kadedb.Status {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.writePageLocked(p)
}

// Flush syncs the mapping and the file to disk.
func (fm *FileManager) Flush() *kadedb.Status {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.flushLocked()
}

// ExtendFile grows the file by n pages, remapping so that existing handed-
// out Page pointers remain valid (their buffers are re-sliced from the new
// mapping in place).
func (fm *FileManager) ExtendFile(n uint64) *kadedb.Status {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.extendFileLocked(n)
}

// ForEachPage calls cb for every allocated data page id (1..page_count),
// in ascending order, stopping at the first error cb returns.
func (fm *FileManager) ForEachPage(cb func(id uint64, p *Page) *kadedb.Status) *kadedb.Status {
	fm.mu.Lock()
	n := fm.pageCount
	fm.mu.Unlock()
	for id := uint64(1); id <= n; id++ {
		p, st := fm.ReadPage(id)
		if st != nil {
			return st
		}
		if st := cb(id, p); st != nil {
			return st
		}
	}
	return nil
}

func (fm *FileManager) extendFileLocked(n uint64) *kadedb.Status {
	if n == 0 {
		n = growthPages
	}
	newCount := fm.pageCount + n
	// +1 for the reserved page-0 slot; see the comment in OpenFile.
	newSize := int64(HeaderSize) + int64(newCount+1)*int64(fm.pageSize)
	if err := fm.file.Truncate(newSize); err != nil {
		return kadedb.InternalError(err, "storage: extend file")
	}
	fm.pageCount = newCount
	if st := fm.writeHeaderLocked(); st != nil {
		return st
	}
	return fm.remapLocked()
}

func (fm *FileManager) remap() *kadedb.Status {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.remapLocked()
}

func (fm *FileManager) remapLocked() *kadedb.Status {
	if fm.mapping != nil {
		if err := fm.mapping.Unmap(); err != nil {
			return kadedb.InternalError(err, "storage: unmap before remap")
		}
	}
	m, err := mmap.Map(fm.file, mmap.RDWR, 0)
	if err != nil {
		return kadedb.InternalError(err, "storage: mmap")
	}
	fm.mapping = m
	// Re-slice every handed-out Page's buffer from the fresh mapping so
	// pointers already returned to callers observe the post-extension
	// backing store instead of the stale one that was just unmapped.
	for id, p := range fm.live {
		off := int(HeaderSize) + int(id)*int(fm.pageSize)
		if off+int(fm.pageSize) <= len(fm.mapping) {
			p.buf = fm.mapping[off : off+int(fm.pageSize)]
		}
	}
	return nil
}

func (fm *FileManager) readPageLocked(id uint64) (*Page, *kadedb.Status) {
	if id == 0 {
		return nil, kadedb.InvalidArgument("storage: page 0 is reserved")
	}
	if id > fm.pageCount {
		return nil, kadedb.NotFound("storage: page %d does not exist (page_count=%d)", id, fm.pageCount)
	}
	off := int(HeaderSize) + int(id)*int(fm.pageSize)
	if off+int(fm.pageSize) > len(fm.mapping) {
		return nil, kadedb.InternalError(nil, "storage: page %d out of mapping bounds", id)
	}
	if existing, ok := fm.live[id]; ok {
		return existing, nil
	}
	return NewPage(id, fm.mapping[off:off+int(fm.pageSize)]), nil
}

func (fm *FileManager) writePageLocked(p *Page) *kadedb.Status {
	p.UpdateChecksum()
	p.clearDirty()
	return nil
}

func (fm *FileManager) flushLocked() *kadedb.Status {
	if fm.mapping == nil {
		return nil
	}
	if err := fm.mapping.Flush(); err != nil {
		return kadedb.InternalError(err, "storage: flush mapping")
	}
	return nil
}

func (fm *FileManager) writeHeader() *kadedb.Status {
	fm.mu.Lock()
	defer fm.mu.Unlock()
	return fm.writeHeaderLocked()
}

func (fm *FileManager) writeHeaderLocked() *kadedb.Status {
	hdr := make([]byte, HeaderSize)
	copy(hdr[0:6], signature)
	binary.LittleEndian.PutUint16(hdr[6:8], formatVersion)
	binary.LittleEndian.PutUint32(hdr[8:12], fm.pageSize)
	binary.LittleEndian.PutUint64(hdr[12:20], fm.pageCount)
	binary.LittleEndian.PutUint64(hdr[20:28], fm.freeHead)
	if fm.mapping != nil {
		copy(fm.mapping[0:HeaderSize], hdr)
		return nil
	}
	if _, err := fm.file.WriteAt(hdr, 0); err != nil {
		return kadedb.InternalError(err, "storage: write header")
	}
	return nil
}

func (fm *FileManager) readHeader() *kadedb.Status {
	if len(fm.mapping) < HeaderSize {
		return kadedb.InternalError(nil, "storage: file too small for header")
	}
	hdr := fm.mapping[0:HeaderSize]
	if string(hdr[0:6]) != signature {
		return kadedb.InternalError(nil, "storage: bad signature %q", hdr[0:6])
	}
	version := binary.LittleEndian.Uint16(hdr[6:8])
	if version != formatVersion {
		return kadedb.InternalError(nil, "storage: unsupported version %d", version)
	}
	fm.pageSize = binary.LittleEndian.Uint32(hdr[8:12])
	fm.pageCount = binary.LittleEndian.Uint64(hdr[12:20])
	fm.freeHead = binary.LittleEndian.Uint64(hdr[20:28])
	return nil
}
