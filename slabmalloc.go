//go:build unix

package slabmalloc

import (
	"unsafe"

	"github.com/orizon-lang/slabmalloc/internal/block"
	"github.com/orizon-lang/slabmalloc/internal/pager"
	"github.com/orizon-lang/slabmalloc/internal/xdebug"
)

// Allocate returns a pointer to at least size bytes of zero-or-garbage
// memory (contents are unspecified unless size fell on a freshly mapped
// or freshly recycled region), or nil if the request could not be
// satisfied. size must be nonzero; Allocate(0) returns nil.
func Allocate(size uintptr) unsafe.Pointer {
	g := current()
	if g == nil || size == 0 {
		return nil
	}

	if g.cfg.ForcePlatformAllocator {
		return platformAllocate(size)
	}

	if size >= g.cfg.Threshold {
		return allocateLarge(g, size)
	}

	return allocateSmall(g, size)
}

// ZeroAllocate is Allocate(count*size), relying on the guarantee that
// both freshly mapped regions and recycled blocks are zeroed before
// reuse. Returns nil if count*size is zero or unsatisfiable.
func ZeroAllocate(count, size uintptr) unsafe.Pointer {
	return Allocate(count * size)
}

// Free releases ptr. A nil ptr is a no-op. ptr must have come from
// Allocate/ZeroAllocate/Resize on this allocator.
func Free(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}

	g := current()
	if g == nil {
		return
	}

	if g.cfg.ForcePlatformAllocator {
		platformFree(ptr)

		return
	}

	if isLarge(ptr, g.cfg.BlockSize, g.cfg.SliceUnit) {
		freeLarge(ptr)

		return
	}

	b := block.Recover(ptr, g.cfg.BlockSize)
	if b.Release() {
		g.pool.Push(b)
	}
}

// Resize changes the allocation at ptr to newSize bytes, preserving the
// lesser of the old and new sizes' worth of content. A nil ptr behaves
// like Allocate(newSize). Returns nil on failure, leaving ptr valid and
// unchanged (except for the large-allocation path, where ptr itself may
// move; callers must use the returned pointer).
func Resize(ptr unsafe.Pointer, newSize uintptr) unsafe.Pointer {
	if ptr == nil {
		return Allocate(newSize)
	}

	g := current()
	if g == nil {
		return nil
	}

	if g.cfg.ForcePlatformAllocator {
		return platformResize(ptr, newSize)
	}

	if isLarge(ptr, g.cfg.BlockSize, g.cfg.SliceUnit) {
		return resizeLarge(ptr, newSize)
	}

	bound := block.RemainingBytes(ptr, g.cfg.BlockSize)

	return resizeSmallKnown(g, ptr, minUintptr(bound, g.cfg.BlockSize), newSize)
}

// ResizeKnown is Resize, but for a small allocation the caller supplies
// the exact original size instead of letting it be conservatively
// derived from the containing block's remaining space. Large
// allocations ignore oldSize; their length is recovered from the
// header.
func ResizeKnown(ptr unsafe.Pointer, oldSize, newSize uintptr) unsafe.Pointer {
	if ptr == nil {
		return Allocate(newSize)
	}

	g := current()
	if g == nil {
		return nil
	}

	if g.cfg.ForcePlatformAllocator {
		return platformResize(ptr, newSize)
	}

	if isLarge(ptr, g.cfg.BlockSize, g.cfg.SliceUnit) {
		return resizeLarge(ptr, newSize)
	}

	return resizeSmallKnown(g, ptr, oldSize, newSize)
}

// isLarge classifies ptr by its offset within its containing
// block-aligned region: a large allocation's user pointer always sits
// exactly one slice unit past a block boundary, while every small
// allocation's pos starts at least one unit further in.
func isLarge(ptr unsafe.Pointer, blockSize, sliceUnit uintptr) bool {
	return uintptr(ptr)%blockSize == sliceUnit
}

func allocateSmall(g *state, size uintptr) unsafe.Pointer {
	units := unitsFor(size, g.cfg.SliceUnit)

	_, ar := g.arenas.Lock()
	defer g.arenas.Unlock(ar)

	ptr := ar.AcquireSlice(units, g.cfg, g.pool)

	xdebug.Log("allocateSmall", "size=%d units=%d ptr=%p", size, units, ptr)

	return ptr
}

func resizeSmallKnown(g *state, ptr unsafe.Pointer, oldSize, newSize uintptr) unsafe.Pointer {
	fresh := Allocate(newSize)
	if fresh == nil {
		return nil
	}

	n := oldSize
	if newSize < n {
		n = newSize
	}

	copySlice(fresh, ptr, n)

	b := block.Recover(ptr, g.cfg.BlockSize)
	if b.Release() {
		g.pool.Push(b)
	}

	return fresh
}

func unitsFor(size, sliceUnit uintptr) uint16 {
	units := (size + sliceUnit - 1) / sliceUnit
	if units == 0 {
		units = 1
	}

	return uint16(units)
}

func copySlice(dst, src unsafe.Pointer, n uintptr) {
	d := unsafe.Slice((*byte)(dst), int(n))
	s := unsafe.Slice((*byte)(src), int(n))
	copy(d, s)
}

func allocateLarge(g *state, size uintptr) unsafe.Pointer {
	length := pager.Round(size + g.cfg.SliceUnit)

	raw := pager.Reserve(length, g.cfg.BlockSize, true)
	if raw == nil {
		return nil
	}

	*(*uintptr)(raw) = length

	return unsafe.Pointer(uintptr(raw) + g.cfg.SliceUnit)
}

func freeLarge(ptr unsafe.Pointer) {
	g := current()

	base, length := largeHeader(ptr, g.cfg.SliceUnit)
	pager.Release(base, length)
}

func resizeLarge(ptr unsafe.Pointer, newSize uintptr) unsafe.Pointer {
	g := current()

	base, prevLen := largeHeader(ptr, g.cfg.SliceUnit)
	newLen := pager.Round(newSize + g.cfg.SliceUnit)

	newBase := pager.Resize(base, prevLen, newLen, g.cfg.BlockSize)
	if newBase == nil {
		return nil
	}

	*(*uintptr)(newBase) = newLen

	return unsafe.Pointer(uintptr(newBase) + g.cfg.SliceUnit)
}

func largeHeader(ptr unsafe.Pointer, sliceUnit uintptr) (base unsafe.Pointer, length uintptr) {
	base = unsafe.Pointer(uintptr(ptr) - sliceUnit)
	length = *(*uintptr)(base)

	return base, length
}

func minUintptr(a, b uintptr) uintptr {
	if a < b {
		return a
	}

	return b
}
