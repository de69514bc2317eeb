//go:build cgo_shim

// Command slabmalloc-shim is the out-of-scope symbol-override shim: it
// builds as a C archive/shared object (-buildmode=c-archive or
// c-shared) exporting malloc/free/calloc/realloc-compatible symbols
// backed by this allocator, for callers that want to preload it over a
// libc's own allocator.
package main

import "C"

import (
	"unsafe"

	"github.com/orizon-lang/slabmalloc"
)

func init() {
	if err := slabmalloc.Init(); err != nil {
		panic(err)
	}
}

//export slabmalloc_malloc
func slabmalloc_malloc(size C.size_t) unsafe.Pointer {
	return slabmalloc.Allocate(uintptr(size))
}

//export slabmalloc_calloc
func slabmalloc_calloc(count, size C.size_t) unsafe.Pointer {
	return slabmalloc.ZeroAllocate(uintptr(count), uintptr(size))
}

//export slabmalloc_realloc
func slabmalloc_realloc(ptr unsafe.Pointer, newSize C.size_t) unsafe.Pointer {
	return slabmalloc.Resize(ptr, uintptr(newSize))
}

//export slabmalloc_free
func slabmalloc_free(ptr unsafe.Pointer) {
	slabmalloc.Free(ptr)
}

func main() {}
