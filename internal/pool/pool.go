//go:build unix

// Package pool implements the global recycled-block free list: an
// intrusive singly-linked list of whole blocks awaiting reuse, guarded
// by one spin lock and sized against a bias-adjusted counter.
package pool

import (
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/orizon-lang/slabmalloc/internal/block"
	"github.com/orizon-lang/slabmalloc/internal/config"
	"github.com/orizon-lang/slabmalloc/internal/errs"
	"github.com/orizon-lang/slabmalloc/internal/xdebug"
)

// linkNode is overlaid on a recycled block's header bytes while the
// block lives on the list; Pop reinitializes the header before handing
// the block back out.
type linkNode struct {
	next unsafe.Pointer
}

// Pool is the process-wide recycled-block list plus its bias-adjusted
// occupancy counter.
type Pool struct {
	locked int32
	head   unsafe.Pointer

	// count tracks pool occupancy minus a bias equal to the arena
	// count, so the first `workers` recycled blocks don't count
	// against the cap.
	count int64

	cap int64
	cfg *config.Config
}

// New builds an empty pool biased by workers and capped at
// cfg.MaxBlocksPerWorker * workers.
func New(cfg *config.Config, workers int) *Pool {
	return &Pool{
		count: -int64(workers),
		cap:   int64(cfg.MaxBlocksPerWorker) * int64(workers),
		cfg:   cfg,
	}
}

func (p *Pool) lock() {
	for !atomic.CompareAndSwapInt32(&p.locked, 0, 1) {
		runtime.Gosched()
	}
}

func (p *Pool) unlock() {
	atomic.StoreInt32(&p.locked, 0)
}

// Pop unlinks and returns the head of the list, or a nil Block if
// empty. On success it decrements count and reinitializes the block's
// header as if freshly acquired.
func (p *Pool) Pop() block.Block {
	p.lock()
	head := p.head
	if head != nil {
		p.head = (*linkNode)(head).next
	}
	p.unlock()

	if head == nil {
		return block.Block{}
	}

	atomic.AddInt64(&p.count, -1)

	b := block.FromPointer(head)
	block.Reinit(b, p.cfg)

	xdebug.Log("pool.Pop", "base=%p", head)

	return b
}

// Push returns a released block to the list if the cap isn't already
// exceeded, otherwise hands it directly to the system pager. Callers
// must have already dropped their last reference to the block.
func (p *Pool) Push(b block.Block) {
	next := atomic.AddInt64(&p.count, 1)
	if next > p.cap {
		atomic.AddInt64(&p.count, -1)
		block.Free(b, p.cfg)

		xdebug.Log("pool.Push", "over cap, returned to pager base=%p", b.Pointer())

		return
	}

	block.ZeroBody(b.Pointer(), p.cfg.BlockSize, p.cfg.SliceUnit)

	node := (*linkNode)(b.Pointer())

	p.lock()
	node.next = p.head
	p.head = b.Pointer()
	p.unlock()

	xdebug.Log("pool.Push", "base=%p count=%d", b.Pointer(), next)
}

// NewBlock returns a recycled block if one is available, otherwise
// reserves and initializes a fresh one from the system pager. Returns a
// nil Block if the system pager can't satisfy the reservation.
func (p *Pool) NewBlock() block.Block {
	if b := p.Pop(); !b.IsNil() {
		return b
	}

	return block.New(p.cfg)
}

// Prefill reserves up to n fresh blocks and pushes them onto the list,
// used once at initialization to pre-seed the pool. Stops early (and
// returns the short count) if the pager runs out before n is reached.
func (p *Pool) Prefill(n int) int {
	filled := 0

	for i := 0; i < n; i++ {
		b := block.New(p.cfg)
		if b.IsNil() {
			break
		}

		if !b.Release() {
			continue
		}

		p.Push(b)
		filled++
	}

	return filled
}

// Drain pops every block off the list and releases it directly to the
// system pager, used once at finalization. Returns the number of
// blocks released.
func (p *Pool) Drain() int {
	released := 0

	for {
		p.lock()
		head := p.head
		if head != nil {
			p.head = (*linkNode)(head).next
		}
		p.unlock()

		if head == nil {
			break
		}

		atomic.AddInt64(&p.count, -1)
		block.Free(block.FromPointer(head), p.cfg)
		released++
	}

	return released
}

// Count returns the current bias-adjusted occupancy, mostly for tests
// and diagnostics.
func (p *Pool) Count() int64 {
	return atomic.LoadInt64(&p.count)
}

// CheckInvariant reports an error if count exceeds its cap, which
// should never happen given Push's own accounting.
func (p *Pool) CheckInvariant() error {
	c := p.Count()
	if c > p.cap {
		return errs.PoolCounterCorrupt(c)
	}

	return nil
}
