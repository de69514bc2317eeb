//go:build unix && !linux

package pager

import "unsafe"

// mremapGrow has no kernel-level equivalent outside Linux. Returning
// nil unconditionally routes every grow through the portable
// mmap-adjacent-then-copy path in Resize.
func mremapGrow(ptr unsafe.Pointer, prevLen, newLen uintptr) unsafe.Pointer {
	return nil
}
