// Package bufferpool implements the fixed-capacity page-frame cache that
// sits in front of an internal/pagefile.File. It pins, dirties, and
// evicts frames according to a configurable replacement policy, grounded
// on original_source/buffer_mgr.c's pin/unpin/markDirty/forcePage
// lifecycle. Every advertised policy is genuinely implemented (not
// approximated by one usage counter), and frame exhaustion returns an
// error instead of silently falling back to frame 0.
package bufferpool

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/nvcode/slotdb/internal/pagefile"
)

// Policy selects the replacement strategy used when every frame is
// considered for eviction. Grounded on pkg/storage/buffer_pool.go's
// EvictionPolicy enum (LRUPolicy/ClockPolicy/LFUPolicy), extended with
// FIFO.
type Policy int

const (
	PolicyFIFO Policy = iota
	PolicyLRU
	PolicyCLOCK
	PolicyLFU
)

func (p Policy) String() string {
	switch p {
	case PolicyFIFO:
		return "FIFO"
	case PolicyLRU:
		return "LRU"
	case PolicyCLOCK:
		return "CLOCK"
	case PolicyLFU:
		return "LFU"
	default:
		return "UNKNOWN"
	}
}

// ErrAllFramesPinned is returned when every frame has a nonzero pin count
// and a new page must be brought in.
var ErrAllFramesPinned = errors.New("bufferpool: all frames pinned, no victim available")

// ErrPoolHasPinnedPages is returned by Shutdown when any frame is still
// pinned.
var ErrPoolHasPinnedPages = errors.New("bufferpool: pool has pinned pages")

// frame is one page-sized cache slot and its bookkeeping.
type frame struct {
	page     pagefile.PageID
	occupied bool
	data     []byte
	dirty    bool
	pinCount int

	// tick is a monotonically increasing counter stamped at load time
	// (FIFO ordering) and refreshed on every access (LRU ordering).
	tick uint64
	// refBit is the CLOCK policy's second-chance bit.
	refBit bool
	// useCount is the LFU policy's access counter.
	useCount uint64
}

// Pool is a fixed-capacity cache of page frames backed by a single
// pagefile.File. All methods are safe for concurrent use.
type Pool struct {
	mu sync.Mutex

	pf       *pagefile.File
	policy   Policy
	frames   []frame
	pageIdx  map[pagefile.PageID]int
	clockPos int
	clock    uint64

	numReadIO  int
	numWriteIO int

	log *slog.Logger
}

// New creates a pool of the given capacity (number of frames) over pf.
func New(pf *pagefile.File, capacity int, policy Policy) *Pool {
	if capacity <= 0 {
		capacity = 1
	}
	frames := make([]frame, capacity)
	for i := range frames {
		frames[i].data = make([]byte, pagefile.PageSize)
	}
	return &Pool{
		pf:      pf,
		policy:  policy,
		frames:  frames,
		pageIdx: make(map[pagefile.PageID]int, capacity),
		log:     slog.Default().With("component", "bufferpool"),
	}
}

// Capacity returns the number of frames in the pool.
func (p *Pool) Capacity() int {
	return len(p.frames)
}

// PinPage loads id into a frame (if not already cached), increments its
// pin count, and returns the frame's page contents for in-place use.
// The returned slice is owned by the pool; callers must call
// UnpinPage when done and MarkDirty if they modified it.
func (p *Pool) PinPage(id pagefile.PageID) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.pageIdx[id]; ok {
		f := &p.frames[idx]
		f.pinCount++
		p.touch(f, false)
		return f.data, nil
	}

	idx, err := p.acquireFrameLocked()
	if err != nil {
		return nil, err
	}

	f := &p.frames[idx]
	if err := p.pf.ReadPage(id, f.data); err != nil {
		return nil, err
	}
	p.numReadIO++

	f.page = id
	f.occupied = true
	f.dirty = false
	f.pinCount = 1
	f.useCount = 1
	f.refBit = true
	p.pageIdx[id] = idx
	p.touch(f, true)

	p.log.Debug("paged in", "page", id, "frame", idx, "policy", p.policy)
	return f.data, nil
}

// touch stamps a frame's recency/clock bookkeeping on access. load is
// true when the page was just read in; under FIFO the tick is stamped
// only then and left unchanged on later hits.
func (p *Pool) touch(f *frame, load bool) {
	p.clock++
	if load || p.policy != PolicyFIFO {
		f.tick = p.clock
	}
	f.refBit = true
	f.useCount++
}

// acquireFrameLocked returns the index of a free or evicted frame. Caller
// holds p.mu.
func (p *Pool) acquireFrameLocked() (int, error) {
	for i := range p.frames {
		if !p.frames[i].occupied {
			return i, nil
		}
	}

	victim, err := p.selectVictimLocked()
	if err != nil {
		return 0, err
	}

	f := &p.frames[victim]
	if f.dirty {
		if err := p.pf.WritePage(f.page, f.data); err != nil {
			return 0, err
		}
		p.numWriteIO++
		f.dirty = false
	}
	delete(p.pageIdx, f.page)
	f.occupied = false
	return victim, nil
}

// selectVictimLocked picks an unpinned frame to evict according to the
// pool's policy. Returns ErrAllFramesPinned if none qualify (the
// REDESIGN FLAGGED replacement for the original's frame-0 fallback).
func (p *Pool) selectVictimLocked() (int, error) {
	switch p.policy {
	case PolicyFIFO, PolicyLRU:
		return p.selectByTickLocked()
	case PolicyCLOCK:
		return p.selectClockLocked()
	case PolicyLFU:
		return p.selectLFULocked()
	default:
		return p.selectByTickLocked()
	}
}

// selectByTickLocked finds the unpinned frame with the smallest tick.
// For FIFO, tick is stamped only at load time; for LRU it is refreshed on
// every touch, so the same helper serves both by construction.
func (p *Pool) selectByTickLocked() (int, error) {
	best := -1
	for i := range p.frames {
		f := &p.frames[i]
		if f.pinCount != 0 {
			continue
		}
		if best == -1 || f.tick < p.frames[best].tick {
			best = i
		}
	}
	if best == -1 {
		return 0, ErrAllFramesPinned
	}
	return best, nil
}

// selectClockLocked runs the second-chance clock sweep: advance the hand,
// clear ref bits on frames that have one set, evict the first unpinned
// frame found with ref bit already clear.
func (p *Pool) selectClockLocked() (int, error) {
	n := len(p.frames)
	anyUnpinned := false
	for i := range p.frames {
		if p.frames[i].pinCount == 0 {
			anyUnpinned = true
			break
		}
	}
	if !anyUnpinned {
		return 0, ErrAllFramesPinned
	}

	for sweeps := 0; sweeps < 2*n+1; sweeps++ {
		i := p.clockPos
		p.clockPos = (p.clockPos + 1) % n
		f := &p.frames[i]
		if f.pinCount != 0 {
			continue
		}
		if f.refBit {
			f.refBit = false
			continue
		}
		return i, nil
	}
	// Degenerate case: every unpinned frame kept its ref bit through the
	// sweep bound above; fall back to the first unpinned frame found.
	for i := range p.frames {
		if p.frames[i].pinCount == 0 {
			return i, nil
		}
	}
	return 0, ErrAllFramesPinned
}

// selectLFULocked finds the unpinned frame with the smallest useCount,
// breaking ties by tick (oldest first).
func (p *Pool) selectLFULocked() (int, error) {
	best := -1
	for i := range p.frames {
		f := &p.frames[i]
		if f.pinCount != 0 {
			continue
		}
		if best == -1 ||
			f.useCount < p.frames[best].useCount ||
			(f.useCount == p.frames[best].useCount && f.tick < p.frames[best].tick) {
			best = i
		}
	}
	if best == -1 {
		return 0, ErrAllFramesPinned
	}
	return best, nil
}

// UnpinPage decrements id's pin count. Unpinning a page already at zero
// pins is a no-op error.
func (p *Pool) UnpinPage(id pagefile.PageID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.pageIdx[id]
	if !ok {
		return errors.New("bufferpool: unpin of page not resident")
	}
	f := &p.frames[idx]
	if f.pinCount == 0 {
		return errors.New("bufferpool: unpin of page with zero pin count")
	}
	f.pinCount--
	return nil
}

// MarkDirty flags id's frame as modified, so it is written back before
// eviction or on a ForcePage/ForceFlushPool.
func (p *Pool) MarkDirty(id pagefile.PageID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.pageIdx[id]
	if !ok {
		return errors.New("bufferpool: mark dirty of page not resident")
	}
	p.frames[idx].dirty = true
	return nil
}

// ForcePage writes id's frame back to disk immediately if dirty,
// regardless of pin count, and clears its dirty bit. A clean page is a
// no-op: it is not rewritten and does not count toward NumWriteIO.
func (p *Pool) ForcePage(id pagefile.PageID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.pageIdx[id]
	if !ok {
		return errors.New("bufferpool: force of page not resident")
	}
	f := &p.frames[idx]
	if !f.dirty {
		return nil
	}
	if err := p.pf.WritePage(f.page, f.data); err != nil {
		return err
	}
	p.numWriteIO++
	f.dirty = false
	return nil
}

// ForceFlushPool writes back every dirty, unpinned frame and clears
// their dirty bits. A dirty frame that is still pinned is left alone;
// pinned pages are only rejected by Shutdown.
func (p *Pool) ForceFlushPool() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.frames {
		f := &p.frames[i]
		if !f.occupied || !f.dirty || f.pinCount != 0 {
			continue
		}
		if err := p.pf.WritePage(f.page, f.data); err != nil {
			return err
		}
		p.numWriteIO++
		f.dirty = false
	}
	return nil
}

// Shutdown flushes all dirty frames and closes the underlying file. It
// fails with ErrPoolHasPinnedPages if any page is still pinned.
func (p *Pool) Shutdown() error {
	p.mu.Lock()
	for i := range p.frames {
		if p.frames[i].occupied && p.frames[i].pinCount != 0 {
			p.mu.Unlock()
			return ErrPoolHasPinnedPages
		}
	}
	p.mu.Unlock()

	if err := p.ForceFlushPool(); err != nil {
		return err
	}
	return p.pf.Close()
}

// FrameContents returns, for each frame, the PageID it holds (or an
// invalid sentinel for an empty frame), in frame order.
func (p *Pool) FrameContents() []pagefile.PageID {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]pagefile.PageID, len(p.frames))
	for i, f := range p.frames {
		if f.occupied {
			out[i] = f.page
		} else {
			out[i] = ^pagefile.PageID(0)
		}
	}
	return out
}

// DirtyFlags returns each frame's dirty bit, in frame order.
func (p *Pool) DirtyFlags() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]bool, len(p.frames))
	for i, f := range p.frames {
		out[i] = f.occupied && f.dirty
	}
	return out
}

// FixCounts returns each frame's pin count, in frame order.
func (p *Pool) FixCounts() []int {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]int, len(p.frames))
	for i, f := range p.frames {
		out[i] = f.pinCount
	}
	return out
}

// NumReadIO returns the number of page reads issued since the pool was
// created.
func (p *Pool) NumReadIO() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.numReadIO
}

// NumWriteIO returns the number of page writes issued since the pool was
// created.
func (p *Pool) NumWriteIO() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.numWriteIO
}
