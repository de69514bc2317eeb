//go:build linux

package pager

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// mremapGrow asks the kernel to extend an existing mapping in place,
// allowing it to move if necessary. Linux is the only platform with a
// real mremap(2); everywhere else this always reports failure and the
// caller falls back to mmap-adjacent-then-copy.
func mremapGrow(ptr unsafe.Pointer, prevLen, newLen uintptr) unsafe.Pointer {
	grown, err := unix.Mremap(sliceAt(ptr, prevLen), int(newLen), unix.MREMAP_MAYMOVE)
	if err != nil {
		return nil
	}

	return toPointer(grown)
}
