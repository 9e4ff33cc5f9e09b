package bufferpool

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nvcode/slotdb/internal/pagefile"
)

func newTestPool(t *testing.T, capacity int, policy Policy) *Pool {
	t.Helper()
	path := filepath.Join(t.TempDir(), "t.bin")
	require.NoError(t, pagefile.Create(path))
	pf, err := pagefile.Open(path)
	require.NoError(t, err)
	require.NoError(t, pf.EnsureCapacity(64))
	return New(pf, capacity, policy)
}

func TestPinLoadsAndCachesPage(t *testing.T) {
	p := newTestPool(t, 3, PolicyFIFO)

	buf, err := p.PinPage(5)
	require.NoError(t, err)
	require.Len(t, buf, pagefile.PageSize)
	require.EqualValues(t, 1, p.NumReadIO())

	// Second pin of the same page must not re-read from disk.
	_, err = p.PinPage(5)
	require.NoError(t, err)
	require.EqualValues(t, 1, p.NumReadIO())
}

func TestUnpinDecrementsPinCount(t *testing.T) {
	p := newTestPool(t, 3, PolicyFIFO)
	_, err := p.PinPage(0)
	require.NoError(t, err)

	require.NoError(t, p.UnpinPage(0))
	counts := p.FixCounts()
	require.EqualValues(t, 0, counts[0])
}

func TestUnpinNotResidentErrors(t *testing.T) {
	p := newTestPool(t, 3, PolicyFIFO)
	require.Error(t, p.UnpinPage(9))
}

func TestMarkDirtyAndForcePage(t *testing.T) {
	p := newTestPool(t, 3, PolicyFIFO)
	buf, err := p.PinPage(1)
	require.NoError(t, err)
	buf[0] = 7
	require.NoError(t, p.MarkDirty(1))
	require.NoError(t, p.ForcePage(1))
	require.EqualValues(t, 1, p.NumWriteIO())

	flags := p.DirtyFlags()
	require.False(t, flags[0])
}

func TestAllFramesPinnedErrorsOnEviction(t *testing.T) {
	p := newTestPool(t, 2, PolicyFIFO)
	_, err := p.PinPage(0)
	require.NoError(t, err)
	_, err = p.PinPage(1)
	require.NoError(t, err)

	_, err = p.PinPage(2)
	require.ErrorIs(t, err, ErrAllFramesPinned)
}

func TestFIFOEvictsOldestLoadedFrame(t *testing.T) {
	p := newTestPool(t, 2, PolicyFIFO)
	_, err := p.PinPage(0)
	require.NoError(t, err)
	_, err = p.PinPage(1)
	require.NoError(t, err)
	require.NoError(t, p.UnpinPage(0))
	require.NoError(t, p.UnpinPage(1))

	// Re-pinning page 1 (loaded second) must not change FIFO load order;
	// page 0 was loaded first and should be evicted next.
	_, err = p.PinPage(1)
	require.NoError(t, err)
	require.NoError(t, p.UnpinPage(1))

	_, err = p.PinPage(2)
	require.NoError(t, err)

	contents := p.FrameContents()
	require.Contains(t, contents, pagefile.PageID(1))
	require.Contains(t, contents, pagefile.PageID(2))
	require.NotContains(t, contents, pagefile.PageID(0))
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	p := newTestPool(t, 2, PolicyLRU)
	_, err := p.PinPage(0)
	require.NoError(t, err)
	_, err = p.PinPage(1)
	require.NoError(t, err)
	require.NoError(t, p.UnpinPage(0))
	require.NoError(t, p.UnpinPage(1))

	// Touch page 0 again so page 1 becomes least recently used.
	_, err = p.PinPage(0)
	require.NoError(t, err)
	require.NoError(t, p.UnpinPage(0))

	_, err = p.PinPage(2)
	require.NoError(t, err)

	contents := p.FrameContents()
	require.Contains(t, contents, pagefile.PageID(0))
	require.Contains(t, contents, pagefile.PageID(2))
	require.NotContains(t, contents, pagefile.PageID(1))
}

func TestCLOCKSkipsRecentlyReferencedFrame(t *testing.T) {
	p := newTestPool(t, 3, PolicyCLOCK)
	for id := pagefile.PageID(0); id < 3; id++ {
		_, err := p.PinPage(id)
		require.NoError(t, err)
		require.NoError(t, p.UnpinPage(id))
	}

	// Every frame is referenced, so the sweep clears all three bits and
	// takes frame 0 (page 0); the hand then rests on frame 1.
	_, err := p.PinPage(3)
	require.NoError(t, err)
	require.NoError(t, p.UnpinPage(3))

	// Re-reference page 1 so the hand must skip it and take page 2.
	_, err = p.PinPage(1)
	require.NoError(t, err)
	require.NoError(t, p.UnpinPage(1))

	_, err = p.PinPage(4)
	require.NoError(t, err)

	contents := p.FrameContents()
	require.Len(t, contents, 3)
	require.Contains(t, contents, pagefile.PageID(1))
	require.NotContains(t, contents, pagefile.PageID(2))
}

func TestLFUEvictsLeastFrequentlyUsed(t *testing.T) {
	p := newTestPool(t, 2, PolicyLFU)
	_, err := p.PinPage(0)
	require.NoError(t, err)
	_, err = p.PinPage(1)
	require.NoError(t, err)
	require.NoError(t, p.UnpinPage(0))
	require.NoError(t, p.UnpinPage(1))

	// Access page 0 repeatedly to raise its use count above page 1's.
	for i := 0; i < 3; i++ {
		_, err = p.PinPage(0)
		require.NoError(t, err)
		require.NoError(t, p.UnpinPage(0))
	}

	_, err = p.PinPage(2)
	require.NoError(t, err)

	contents := p.FrameContents()
	require.Contains(t, contents, pagefile.PageID(0))
	require.Contains(t, contents, pagefile.PageID(2))
	require.NotContains(t, contents, pagefile.PageID(1))
}

func TestEvictionWritesBackDirtyPage(t *testing.T) {
	p := newTestPool(t, 1, PolicyFIFO)
	buf, err := p.PinPage(0)
	require.NoError(t, err)
	buf[0] = 99
	require.NoError(t, p.MarkDirty(0))
	require.NoError(t, p.UnpinPage(0))

	_, err = p.PinPage(1)
	require.NoError(t, err)
	require.EqualValues(t, 1, p.NumWriteIO())

	require.NoError(t, p.UnpinPage(1))
	buf2, err := p.PinPage(0)
	require.NoError(t, err)
	require.EqualValues(t, 99, buf2[0])
}

func TestForceFlushPoolSkipsPinnedDirtyPage(t *testing.T) {
	p := newTestPool(t, 2, PolicyFIFO)
	buf0, err := p.PinPage(0)
	require.NoError(t, err)
	buf0[0] = 1
	require.NoError(t, p.MarkDirty(0))

	buf1, err := p.PinPage(1)
	require.NoError(t, err)
	buf1[0] = 2
	require.NoError(t, p.MarkDirty(1))
	require.NoError(t, p.UnpinPage(1))

	require.NoError(t, p.ForceFlushPool())

	dirty := p.DirtyFlags()
	require.True(t, dirty[0], "pinned dirty frame must be left alone")
	require.False(t, dirty[1], "unpinned dirty frame must be flushed")
}

func TestShutdownRejectsPinnedPages(t *testing.T) {
	p := newTestPool(t, 2, PolicyFIFO)
	_, err := p.PinPage(0)
	require.NoError(t, err)

	err = p.Shutdown()
	require.ErrorIs(t, err, ErrPoolHasPinnedPages)
}
