package storage

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/kadedb/kadedb"
)

// entry is the cache's per-page bookkeeping; simplelru gives us the
// recency list, PageManager layers is_dirty and pin-aware eviction on top
// (no off-the-shelf LRU implements "skip while pinned").
type entry struct {
	page    *Page
	isDirty bool
}

// PageManager is a fixed-capacity cache over a FileManager. All operations
// are serialized by a single mutex, per §5.
type PageManager struct {
	mu       sync.Mutex
	fm       *FileManager
	capacity int
	cache    *lru.LRU[uint64, *entry]
}

// NewPageManager builds a cache of the given capacity (must be > 0) over
// fm.
func NewPageManager(fm *FileManager, capacity int) (*PageManager, *kadedb.Status) {
	if capacity <= 0 {
		return nil, kadedb.InvalidArgument("storage: page cache capacity must be positive, got %d", capacity)
	}
	pm := &PageManager{fm: fm, capacity: capacity}
	// No eviction callback is registered: insertLocked evicts an unpinned
	// victim itself (see evictOneLocked) before every Add that would reach
	// capacity, so simplelru's own size-based eviction never fires.
	cache, err := lru.NewLRU[uint64, *entry](capacity, nil)
	if err != nil {
		return nil, kadedb.InternalError(err, "storage: build page cache")
	}
	pm.cache = cache
	return pm, nil
}

// FetchPage returns the page for id, pinned. A cache hit moves it to MRU;
// a miss reads it from the FileManager, inserting it (possibly evicting).
// Callers MUST call Unpin when done.
func (pm *PageManager) FetchPage(id uint64) (*Page, *kadedb.Status) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if e, ok := pm.cache.Get(id); ok {
		e.page.Pin()
		return e.page, nil
	}
	p, st := pm.fm.ReadPage(id)
	if st != nil {
		return nil, st
	}
	if st := pm.insertLocked(id, p, false); st != nil {
		return nil, st
	}
	p.Pin()
	return p, nil
}

// NewPage allocates a fresh page of the given type via the FileManager and
// inserts it into the cache, pinned and dirty.
func (pm *PageManager) NewPage(pageType uint32) (*Page, *kadedb.Status) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p, st := pm.fm.AllocatePage(pageType)
	if st != nil {
		return nil, st
	}
	if st := pm.insertLocked(p.ID(), p, true); st != nil {
		return nil, st
	}
	p.Pin()
	return p, nil
}

// MarkDirty flags page as dirty in the cache.
func (pm *PageManager) MarkDirty(page *Page) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	page.SetDirty()
	if e, ok := pm.cache.Get(page.ID()); ok {
		e.isDirty = true
	}
}

// WritePage persists page to the FileManager. When force is false and the
// page is not marked dirty, this is a no-op.
func (pm *PageManager) WritePage(page *Page, force bool) *kadedb.Status {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.writePageLocked(page, force)
}

func (pm *PageManager) writePageLocked(page *Page, force bool) *kadedb.Status {
	if !force && !page.Dirty() {
		return nil
	}
	if st := pm.fm.WritePage(page); st != nil {
		return st
	}
	page.clearDirty()
	if e, ok := pm.cache.Get(page.ID()); ok {
		e.isDirty = false
	}
	return nil
}

// FlushAll writes back every dirty cached page.
func (pm *PageManager) FlushAll() *kadedb.Status {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	for _, id := range pm.cache.Keys() {
		e, ok := pm.cache.Peek(id)
		if !ok || !e.isDirty {
			continue
		}
		if st := pm.writePageLocked(e.page, true); st != nil {
			return st
		}
	}
	return pm.fm.Flush()
}

// FreePage evicts id from the cache (writing it back first if dirty) and
// releases it back to the FileManager's free-list.
func (pm *PageManager) FreePage(id uint64) *kadedb.Status {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if e, ok := pm.cache.Peek(id); ok {
		if e.page.PinCount() > 0 {
			return kadedb.FailedPrecondition("storage: cannot free pinned page %d", id)
		}
		if e.isDirty {
			if st := pm.writePageLocked(e.page, true); st != nil {
				return st
			}
		}
		pm.cache.Remove(id)
	}
	return pm.fm.FreePage(id)
}

// PageCount returns the number of pages currently resident in the cache.
func (pm *PageManager) PageCount() int {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	return pm.cache.Len()
}

// insertLocked adds (id, page) to the cache, evicting an unpinned victim
// first if the cache is already at capacity.
func (pm *PageManager) insertLocked(id uint64, page *Page, dirty bool) *kadedb.Status {
	if pm.cache.Len() >= pm.capacity {
		if st := pm.evictOneLocked(); st != nil {
			return st
		}
	}
	pm.cache.Add(id, &entry{page: page, isDirty: dirty})
	return nil
}

// evictOneLocked scans from the LRU end for the first unpinned page,
// writing it back first if dirty, then drops it. FailedPrecondition if
// every cached page is pinned.
func (pm *PageManager) evictOneLocked() *kadedb.Status {
	for _, id := range pm.cache.Keys() { // Keys() is ordered LRU -> MRU
		e, ok := pm.cache.Peek(id)
		if !ok || e.page.PinCount() > 0 {
			continue
		}
		if e.isDirty {
			if st := pm.writePageLocked(e.page, true); st != nil {
				return st
			}
		}
		pm.cache.Remove(id)
		return nil
	}
	return kadedb.FailedPrecondition("storage: no unpinned page available for eviction")
}
