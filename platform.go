//go:build unix

package slabmalloc

import (
	"sync"
	"unsafe"
)

// platformSizes tracks the size of every live platform-path allocation,
// keyed by address, so Resize and Free can work without any of the
// block/pager bookkeeping the arena path relies on. Only populated when
// Config.ForcePlatformAllocator routes calls through this file instead
// of the arena allocator, mirroring facil.io's FIO_FORCE_MALLOC escape
// hatch to the platform's own malloc.
var platformSizes sync.Map

func platformAllocate(size uintptr) unsafe.Pointer {
	if size == 0 {
		return nil
	}

	buf := make([]byte, size)
	ptr := unsafe.Pointer(&buf[0])

	platformSizes.Store(ptr, buf)

	return ptr
}

func platformFree(ptr unsafe.Pointer) {
	platformSizes.Delete(ptr)
}

func platformResize(ptr unsafe.Pointer, newSize uintptr) unsafe.Pointer {
	if newSize == 0 {
		return nil
	}

	v, ok := platformSizes.Load(ptr)
	var oldLen int

	if ok {
		oldLen = len(v.([]byte))
	}

	fresh := platformAllocate(newSize)

	n := uintptr(oldLen)
	if newSize < n {
		n = newSize
	}

	if ok && n > 0 {
		copySlice(fresh, ptr, n)
	}

	platformSizes.Delete(ptr)

	return fresh
}
