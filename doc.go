//go:build unix

// Package slabmalloc is a general-purpose dynamic memory allocator for
// POSIX systems, built around block-based slab arenas instead of a
// single central free list. It targets programs that allocate and free
// many small objects from many concurrent goroutines, where a shared
// lock or heavy per-object metadata would dominate cost.
//
// Call Init once before the first allocation, Allocate/ZeroAllocate/
// Free/Resize as needed, and Shutdown once after the last. Package
// slabmalloc never panics on allocation failure: every call returns a
// nil pointer (or, for Init, an error) instead.
package slabmalloc
