//go:build unix

package slabmalloc

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/orizon-lang/slabmalloc/internal/config"
)

func initForTest(t *testing.T, opts ...config.Option) {
	t.Helper()
	resetForTest()
	require.NoError(t, Init(opts...))
	t.Cleanup(Shutdown)
}

func TestAllocateReturnsAlignedPointer(t *testing.T) {
	initForTest(t, config.WithWorkers(2))

	ptr := Allocate(64)
	require.NotNil(t, ptr)

	require.Zero(t, uintptr(ptr)%16)
}

func TestAllocateZeroReturnsNil(t *testing.T) {
	initForTest(t, config.WithWorkers(2))

	require.Nil(t, Allocate(0))
}

func TestSmallAllocationRecoversToContainingBlock(t *testing.T) {
	initForTest(t, config.WithWorkers(2))

	a := Allocate(32)
	b := Allocate(32)
	require.NotNil(t, a)
	require.NotNil(t, b)

	blockOf := func(p unsafe.Pointer) uintptr {
		return uintptr(p) &^ (64*1024 - 1)
	}

	// Both came from the same arena's active block on a single
	// goroutine, so they share a containing block.
	require.Equal(t, blockOf(a), blockOf(b))

	Free(a)
	Free(b)
}

func TestZeroAllocateIsZeroed(t *testing.T) {
	initForTest(t, config.WithWorkers(2))

	const n = 256

	ptr := ZeroAllocate(n, 1)
	require.NotNil(t, ptr)

	body := unsafe.Slice((*byte)(ptr), n)
	for i, v := range body {
		require.Zerof(t, v, "byte %d not zero", i)
	}

	Free(ptr)
}

func TestLargeAllocationClassifiedCorrectly(t *testing.T) {
	initForTest(t, config.WithWorkers(2))

	ptr := Allocate(64 * 1024)
	require.NotNil(t, ptr)

	require.True(t, isLarge(ptr, 64*1024, 16))

	Free(ptr)
}

func TestSmallAllocationNotClassifiedAsLarge(t *testing.T) {
	initForTest(t, config.WithWorkers(2))

	ptr := Allocate(32)
	require.NotNil(t, ptr)

	require.False(t, isLarge(ptr, 64*1024, 16))

	Free(ptr)
}

func TestResizeGrowPreservesPrefix(t *testing.T) {
	initForTest(t, config.WithWorkers(2))

	ptr := Allocate(64 * 1024)
	require.NotNil(t, ptr)

	body := unsafe.Slice((*byte)(ptr), 64*1024)
	body[0] = 0x42

	grown := Resize(ptr, 256*1024)
	require.NotNil(t, grown)

	// A moved large allocation must still classify as large: pager.Resize
	// rejects any mremap result that doesn't preserve block alignment, so
	// this must hold regardless of whether the grow moved the mapping.
	require.True(t, isLarge(grown, 64*1024, 16))

	grownBody := unsafe.Slice((*byte)(grown), 256*1024)
	require.Equal(t, byte(0x42), grownBody[0])

	Free(grown)
}

func TestResizeNilPointerBehavesAsAllocate(t *testing.T) {
	initForTest(t, config.WithWorkers(2))

	ptr := Resize(nil, 128)
	require.NotNil(t, ptr)

	Free(ptr)
}

func TestFreeOnNilIsNoop(t *testing.T) {
	initForTest(t, config.WithWorkers(2))
	require.NotPanics(t, func() { Free(nil) })
}

func TestConcurrentAllocateFree(t *testing.T) {
	initForTest(t, config.WithWorkers(4))

	var wg sync.WaitGroup

	for g := 0; g < 16; g++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := 0; i < 500; i++ {
				ptr := Allocate(48)
				require.NotNil(t, ptr)
				Free(ptr)
			}
		}()
	}

	wg.Wait()
}

func TestForcePlatformAllocatorPath(t *testing.T) {
	initForTest(t, config.WithWorkers(2), config.WithForcePlatformAllocator(true))

	ptr := Allocate(128)
	require.NotNil(t, ptr)

	grown := Resize(ptr, 256)
	require.NotNil(t, grown)

	Free(grown)
}
