//go:build unix

package slabmalloc

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/orizon-lang/slabmalloc/internal/arena"
	"github.com/orizon-lang/slabmalloc/internal/config"
	"github.com/orizon-lang/slabmalloc/internal/errs"
	"github.com/orizon-lang/slabmalloc/internal/pager"
	"github.com/orizon-lang/slabmalloc/internal/pool"
	"github.com/orizon-lang/slabmalloc/internal/xdebug"
)

// state is the process-wide record populated by Init and emptied by
// Shutdown: the arena array, the recycled-block pool, and the config
// they were built from.
type state struct {
	cfg     *config.Config
	arenas  *arena.Array
	pool    *pool.Pool
	workers int
}

// global is read on every Allocate/Free/Resize call, so it is published
// through an atomic.Pointer rather than guarded by a mutex: the data
// plane must stay lock-free, matching the per-worker arena design this
// allocator exists to exercise instead of a central lock. globalMu
// serializes only the rare Init/Shutdown transition itself.
var (
	initOnce sync.Once
	globalMu sync.Mutex
	global   atomic.Pointer[state]
	initErr  error
)

// Init prepares the allocator for use: detects the worker count,
// reserves the arena array, and pre-seeds the recycled-block pool. It
// must run exactly once, before the first Allocate/Free/Resize call;
// calls made before a successful Init are undefined. Init is itself
// safe to call from multiple goroutines; only the first call does any
// work, and all callers observe its result.
func Init(opts ...config.Option) error {
	initOnce.Do(func() {
		cfg := config.New(opts...)

		if cfg.BlockSize == 0 || cfg.BlockSize&(cfg.BlockSize-1) != 0 || cfg.BlockSize%pager.PageSize != 0 {
			initErr = errs.InitFailed("block size must be a nonzero power of two and a page-size multiple", cfg.Workers)

			return
		}

		if cfg.SliceUnit == 0 || cfg.BlockSize%cfg.SliceUnit != 0 {
			initErr = errs.InitFailed("slice unit must evenly divide block size", cfg.Workers)

			return
		}

		workers := cfg.Workers
		if workers <= 0 {
			workers = runtime.GOMAXPROCS(0)
			if workers <= 0 {
				workers = 4
			}
		}

		arenas := arena.NewArray(workers)
		p := pool.New(cfg, workers)

		seeded := p.Prefill(minInt(workers, 32))
		xdebug.Log("Init", "workers=%d seeded=%d", workers, seeded)

		globalMu.Lock()
		global.Store(&state{cfg: cfg, arenas: arenas, pool: p, workers: workers})
		globalMu.Unlock()
	})

	return initErr
}

// MustInit calls Init and panics if it fails. Convenience wrapper for
// callers (e.g. package main) that have no sensible recovery path for a
// failed allocator bring-up.
func MustInit(opts ...config.Option) {
	if err := Init(opts...); err != nil {
		panic(err)
	}
}

// Shutdown releases every arena's active block, drains the recycled
// pool back to the system, and clears the process-wide state. It must
// run only after every other call has returned; calling Allocate/Free/
// Resize concurrently with or after Shutdown is undefined. Shutdown on
// an allocator that was never Init'd is a no-op.
func Shutdown() {
	globalMu.Lock()
	g := global.Swap(nil)
	globalMu.Unlock()

	if g == nil {
		return
	}

	g.arenas.Drain(g.pool)
	g.pool.Drain()

	initOnce = sync.Once{}
}

// current returns the live state, or nil before Init/after Shutdown.
// Called on every Allocate/Free/Resize; deliberately lock-free.
func current() *state {
	return global.Load()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}

	return b
}
