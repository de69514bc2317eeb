//go:build unix

// Package arena implements the per-worker slab cursor: a slot holding
// at most one active block plus a spin lock, and the acquisition
// protocol callers use to find a free arena with minimal contention.
package arena

import (
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/orizon-lang/slabmalloc/internal/block"
	"github.com/orizon-lang/slabmalloc/internal/config"
	"github.com/orizon-lang/slabmalloc/internal/pool"
	"github.com/orizon-lang/slabmalloc/internal/xdebug"

	"github.com/timandy/routine"
)

// Arena is one worker slot: a spin lock guarding a single active
// block. The zero value is a valid, empty arena.
type Arena struct {
	locked int32
	active block.Block
}

// tryLock attempts a non-blocking acquire, returning whether it
// succeeded.
func (a *Arena) tryLock() bool {
	return atomic.CompareAndSwapInt32(&a.locked, 0, 1)
}

func (a *Arena) unlock() {
	atomic.StoreInt32(&a.locked, 0)
}

// Array is the fixed-size set of arenas created once at startup, sized
// to the detected worker count.
type Array struct {
	arenas []Arena
	lastG  *routine.ThreadLocal[*Arena]
}

// NewArray builds an Array with n arenas.
func NewArray(n int) *Array {
	return &Array{
		arenas: make([]Arena, n),
		lastG:  routine.NewThreadLocal[*Arena](),
	}
}

// Len returns the arena count.
func (a *Array) Len() int { return len(a.arenas) }

// Lock implements the acquisition protocol: try the calling goroutine's
// last-used arena first (a correctness-neutral hint: any free arena
// serves equally), then probe the whole array in order, yielding to the scheduler
// and restarting the full sweep if every arena is contended.
func (a *Array) Lock() (int, *Arena) {
	n := len(a.arenas)
	if n == 0 {
		return -1, nil
	}

	if preferred := a.lastG.Get(); preferred != nil && preferred.tryLock() {
		for i := range a.arenas {
			if &a.arenas[i] == preferred {
				return i, preferred
			}
		}
	}

	for {
		for i := 0; i < n; i++ {
			if a.arenas[i].tryLock() {
				a.lastG.Set(&a.arenas[i])

				return i, &a.arenas[i]
			}
		}

		xdebug.Log("arena.Lock", "full contention across %d arenas, yielding", n)
		runtime.Gosched()
	}
}

// Unlock releases the arena previously returned by Lock.
func (a *Array) Unlock(ar *Arena) {
	ar.unlock()
}

// AcquireSlice returns units slice units from the arena's active block,
// rotating to a new block first if necessary. The caller must hold
// ar's lock. Returns nil if no block could be obtained.
func (ar *Arena) AcquireSlice(units uint16, cfg *config.Config, pl *pool.Pool) unsafe.Pointer {
	if ar.active.IsNil() || !ar.active.HasRoom(units) {
		if !ar.active.IsNil() {
			reclaimBlock(ar.active, pl)
		}

		fresh := pl.NewBlock()
		if fresh.IsNil() {
			ar.active = block.Block{}

			return nil
		}

		ar.active = fresh
	}

	ptr, exhausted := ar.active.AcquireSlice(units, cfg)

	if exhausted {
		reclaimBlock(ar.active, pl)
		ar.active = block.Block{}
	}

	return ptr
}

// reclaimBlock releases one reference on b, returning it to the pool
// (or the system pager, if the pool is over capacity) when that
// reference was the last one.
func reclaimBlock(b block.Block, pl *pool.Pool) {
	if b.Release() {
		pl.Push(b)
	}
}

// Drain releases one reference on every arena's active block, used at
// finalization. It does not acquire each arena's lock: finalization is
// documented to run only after every other call has returned.
func (a *Array) Drain(pl *pool.Pool) {
	for i := range a.arenas {
		ar := &a.arenas[i]
		if !ar.active.IsNil() {
			reclaimBlock(ar.active, pl)
			ar.active = block.Block{}
		}
	}
}
