package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadedb/kadedb"
)

func newTestFileManager(t *testing.T) *FileManager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "db")
	fm, st := CreateFile(path, 4096)
	require.Nil(t, st)
	t.Cleanup(func() { fm.CloseFile() })
	return fm
}

// A page cache of size 1: bringing two distinct pages into the cache (here
// via NewPage) evicts the first; a dirty first page is written back before
// eviction.
func TestPageCacheSizeOneEvictsUnpinnedOnSecondNewPage(t *testing.T) {
	fm := newTestFileManager(t)
	pm, st := NewPageManager(fm, 1)
	require.Nil(t, st)

	p1, st := pm.NewPage(1)
	require.Nil(t, st)
	payload, st := p1.Allocate(4)
	require.Nil(t, st)
	copy(payload, []byte("page one"))
	pm.MarkDirty(p1)
	p1.Unpin()

	assert.Equal(t, 1, pm.PageCount())

	p2, st := pm.NewPage(1)
	require.Nil(t, st)
	defer p2.Unpin()

	assert.Equal(t, 1, pm.PageCount())

	reread, st := fm.ReadPage(p1.ID())
	require.Nil(t, st)
	assert.True(t, reread.VerifyChecksum())
}

func TestNewPageEvictionFailsWhenEveryCachedPageIsPinned(t *testing.T) {
	fm := newTestFileManager(t)
	pm, st := NewPageManager(fm, 1)
	require.Nil(t, st)

	p1, st := pm.NewPage(1)
	require.Nil(t, st)
	defer p1.Unpin()

	_, st = pm.NewPage(1)
	require.NotNil(t, st)
	assert.Equal(t, kadedb.KindFailedPrecondition, st.Kind)
}

func TestFreePageRejectsPinnedPage(t *testing.T) {
	fm := newTestFileManager(t)
	pm, st := NewPageManager(fm, 4)
	require.Nil(t, st)

	p, st := pm.NewPage(1)
	require.Nil(t, st)

	st = pm.FreePage(p.ID())
	require.NotNil(t, st)

	p.Unpin()
	require.Nil(t, pm.FreePage(p.ID()))
}

func TestFetchPageHitMovesToMostRecentlyUsed(t *testing.T) {
	fm := newTestFileManager(t)
	pm, st := NewPageManager(fm, 2)
	require.Nil(t, st)

	p1, st := pm.NewPage(1)
	require.Nil(t, st)
	p1.Unpin()
	p2, st := pm.NewPage(1)
	require.Nil(t, st)
	p2.Unpin()

	refetched, st := pm.FetchPage(p1.ID())
	require.Nil(t, st)
	refetched.Unpin()

	p3, st := pm.NewPage(1)
	require.Nil(t, st)
	defer p3.Unpin()

	assert.Equal(t, 2, pm.PageCount())
	assert.True(t, pm.cache.Contains(p1.ID()), "refetched p1 must survive as most recently used")
	assert.False(t, pm.cache.Contains(p2.ID()), "p2 became least recently used and must be the evicted page")
	_, err := pm.fm.ReadPage(p2.ID())
	assert.Nil(t, err)
}
