//go:build unix

// Package pager is a thin wrapper over the OS virtual-memory primitives:
// reserve, release, and in-place grow/shrink of large block-aligned
// regions. It is the allocator's only point of contact with the kernel.
package pager

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// noFile is the fd argument conventionally passed to an anonymous
// mmap: all bits set, i.e. -1 reinterpreted as uintptr.
const noFile = ^uintptr(0)

// nextHint is the address hint used to reduce fragmentation between
// consecutive reservations. The spec treats a race on this value as
// benign (a stale hint only loses contiguity, never correctness); we
// still use an atomic so the Go race detector doesn't flag the
// concurrent access, with identical observable behavior.
var nextHint uintptr

// PageSize is the OS page size, queried once at package init.
var PageSize = uintptr(unix.Getpagesize())

// Round rounds size up to the next multiple of the page size.
func Round(size uintptr) uintptr {
	if size == 0 {
		return 0
	}

	return (size + PageSize - 1) &^ (PageSize - 1)
}

// addrOf returns the address of the first byte of mem, or 0 for an
// empty slice.
func addrOf(mem []byte) uintptr {
	if len(mem) == 0 {
		return 0
	}

	return uintptr(unsafe.Pointer(&mem[0]))
}

// toPointer converts a mapped slice's base address to an unsafe.Pointer
// for handoff across the package boundary. Callers on the other side
// reconstruct a slice with sliceAt using the length they already track.
func toPointer(mem []byte) unsafe.Pointer {
	if len(mem) == 0 {
		return nil
	}

	return unsafe.Pointer(&mem[0])
}

// sliceAt reconstructs the byte slice backing a previously returned
// pointer. The caller must supply the exact length of the original
// mapping; the pager never records it itself.
func sliceAt(ptr unsafe.Pointer, length uintptr) []byte {
	if ptr == nil || length == 0 {
		return nil
	}

	return unsafe.Slice((*byte)(ptr), int(length))
}

// rawMmapAt requests anonymous read/write memory at addr. addr of 0
// lets the kernel choose; a nonzero addr is a hint only (no MAP_FIXED),
// so the kernel may place the mapping elsewhere. x/sys/unix.Mmap has no
// address parameter, so the hinted form goes straight to the syscall,
// the same way the mmap(2) entry point is invoked on every platform.
func rawMmapAt(addr, length uintptr) ([]byte, error) {
	ret, _, errno := unix.Syscall6(unix.SYS_MMAP, addr, length,
		uintptr(unix.PROT_READ|unix.PROT_WRITE),
		uintptr(unix.MAP_ANON|unix.MAP_PRIVATE), noFile, 0)
	if errno != 0 {
		return nil, errno
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(ret)), int(length)), nil
}

// Reserve maps length bytes of read/write anonymous memory, aligned to
// align (the caller's block size). length must already be a page-size
// multiple. individual shifts the next address hint by an extra 1TiB,
// separating the hint sequence used for large allocations from the one
// used for block-sized small-allocation regions. Returns nil on
// failure.
func Reserve(length uintptr, align uintptr, individual bool) unsafe.Pointer {
	hint := atomic.LoadUintptr(&nextHint)

	mem, err := rawMmapAt(hint, length)
	if err != nil {
		return nil
	}

	base := addrOf(mem)
	if base%align != 0 {
		_ = unix.Munmap(mem)

		padded, err := rawMmapAt(0, length+align)
		if err != nil {
			return nil
		}

		paddedBase := addrOf(padded)
		leading := align - (paddedBase % align)

		if leading == align {
			leading = 0
		}

		if leading > 0 {
			if err := unix.Munmap(padded[:leading]); err != nil {
				_ = unix.Munmap(padded)

				return nil
			}
		}

		aligned := padded[leading : leading+int(length)]
		trailing := padded[leading+int(length):]

		if len(trailing) > 0 {
			_ = unix.Munmap(trailing)
		}

		mem = aligned
		base = addrOf(mem)
	}

	advance := length
	if individual {
		advance += 1 << 40
	}

	atomic.StoreUintptr(&nextHint, base+advance)

	return toPointer(mem)
}

// Release unmaps exactly length bytes at ptr. ptr and length must match
// a prior Reserve or Resize result.
func Release(ptr unsafe.Pointer, length uintptr) {
	if ptr == nil || length == 0 {
		return
	}

	_ = unix.Munmap(sliceAt(ptr, length))
}

// Resize grows or shrinks a mapping in place where possible, falling
// back to reserve-copy-release when the OS can't extend it contiguously.
// Returns nil on failure, leaving ptr valid and unchanged.
func Resize(ptr unsafe.Pointer, prevLen, newLen, align uintptr) unsafe.Pointer {
	if newLen > prevLen {
		if grown := mremapGrow(ptr, prevLen, newLen); grown != nil {
			if uintptr(grown)%align == 0 {
				return grown
			}
			// mremap is free to move the mapping to any page-aligned
			// address, which need not satisfy the caller's (coarser)
			// block alignment. An unaligned result can't be returned:
			// the large/small pointer classification and a future Free
			// both depend on it, so release it and fall back to a fresh
			// aligned reservation plus copy.
			_ = unix.Munmap(sliceAt(grown, newLen))
		}

		extra := newLen - prevLen
		wantAddr := uintptr(ptr) + prevLen

		attempt, err := rawMmapAt(wantAddr, extra)
		if err == nil {
			if addrOf(attempt) == wantAddr {
				return ptr
			}
			// The kernel placed it elsewhere; release exactly what we
			// mapped (never a guessed region) and fall back to copy.
			_ = unix.Munmap(attempt)
		}

		fresh := Reserve(newLen, align, true)
		if fresh == nil {
			return nil
		}

		copy(sliceAt(fresh, prevLen), sliceAt(ptr, prevLen))
		Release(ptr, prevLen)

		return fresh
	}

	if newLen+PageSize < prevLen {
		tailAddr := uintptr(ptr) + newLen
		tail := sliceAt(unsafe.Pointer(tailAddr), prevLen-newLen)
		_ = unix.Munmap(tail)
	}

	return ptr
}
