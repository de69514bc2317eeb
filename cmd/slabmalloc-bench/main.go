// Command slabmalloc-bench drives the allocator concurrently from
// several goroutines and reports throughput, exercising the arena
// acquisition protocol under real contention.
package main

import (
	"flag"
	"fmt"
	"sync"
	"time"

	"github.com/orizon-lang/slabmalloc"
	"github.com/orizon-lang/slabmalloc/internal/config"
)

func main() {
	workers := flag.Int("workers", 0, "worker count (0 = detect)")
	iterations := flag.Int("iterations", 200000, "allocations per goroutine")
	size := flag.Int("size", 128, "allocation size in bytes")
	goroutines := flag.Int("goroutines", 8, "concurrent goroutines")
	force := flag.Bool("force-platform", false, "route through Go's own allocator instead of the arena path")

	flag.Parse()

	opts := []config.Option{config.WithForcePlatformAllocator(*force)}
	if *workers > 0 {
		opts = append(opts, config.WithWorkers(*workers))
	}

	if err := slabmalloc.Init(opts...); err != nil {
		panic(fmt.Sprintf("init failed: %v", err))
	}
	defer slabmalloc.Shutdown()

	fmt.Printf("=== slabmalloc-bench: %d goroutines x %d allocations of %d bytes ===\n",
		*goroutines, *iterations, *size)

	var wg sync.WaitGroup

	start := time.Now()

	for g := 0; g < *goroutines; g++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := 0; i < *iterations; i++ {
				ptr := slabmalloc.Allocate(uintptr(*size))
				if ptr == nil {
					panic("allocation failed")
				}

				slabmalloc.Free(ptr)
			}
		}()
	}

	wg.Wait()

	elapsed := time.Since(start)
	total := int64(*goroutines) * int64(*iterations)

	fmt.Printf("%d allocate/free pairs in %v (%.0f ops/sec)\n",
		total, elapsed, float64(total)/elapsed.Seconds())
}
