//go:build unix

// Package block implements the fixed-size slab block: a B-byte,
// B-aligned virtual-memory region carrying a small reference-counted
// header and a sequence of fixed-size slice units handed out to small
// allocations.
package block

import (
	"sync/atomic"
	"unsafe"

	"github.com/orizon-lang/slabmalloc/internal/config"
	"github.com/orizon-lang/slabmalloc/internal/pager"
	"github.com/orizon-lang/slabmalloc/internal/xdebug"
)

// Header sits at offset zero of every block. Its size is exactly one
// slice unit (16 bytes); pad absorbs the remainder.
type Header struct {
	ref uint32
	pos uint16
	max uint16
	pad uint64
}

// Block is a typed view over a B-byte region whose first bytes are a
// Header. Callers never construct a Block directly; they get one from
// New or from Recover.
type Block struct {
	base unsafe.Pointer
}

// headerUnits is the header size expressed in slice units. The header
// is exactly 16 bytes, i.e. one unit, regardless of config.
const headerUnits = config.HeaderUnits

// FromPointer wraps an existing B-aligned region, for use right after
// the pager hands one back.
func FromPointer(base unsafe.Pointer) Block {
	return Block{base: base}
}

// Pointer returns the block's base address.
func (b Block) Pointer() unsafe.Pointer { return b.base }

// IsNil reports whether b wraps no memory.
func (b Block) IsNil() bool { return b.base == nil }

func (b Block) header() *Header {
	return (*Header)(b.base)
}

// Init writes a fresh header at ptr: ref = 1, pos = header_units + 1,
// max = (B/U) - 1 - header_units. The body is left as whatever the
// underlying memory already contained; callers that need a clean block
// (post-recycle) must zero it themselves before calling Init.
func Init(base unsafe.Pointer, cfg *config.Config) Block {
	b := Block{base: base}
	h := b.header()
	unitsPerBlock := cfg.BlockSize / cfg.SliceUnit

	h.ref = 1
	h.pos = uint16(headerUnits + 1)
	h.max = uint16(unitsPerBlock - 1 - headerUnits)

	xdebug.Log("block.Init", "base=%p pos=%d max=%d", base, h.pos, h.max)

	return b
}

// Reinit resets a recycled block's header in place, as if freshly
// mapped. The caller is responsible for zero-filling the body first.
func Reinit(b Block, cfg *config.Config) {
	h := b.header()
	unitsPerBlock := cfg.BlockSize / cfg.SliceUnit

	h.ref = 1
	h.pos = uint16(headerUnits + 1)
	h.max = uint16(unitsPerBlock - 1 - headerUnits)
}

// Recover masks the low log2(B) bits of ptr to recover the block that
// contains it. B must be a power of two.
func Recover(ptr unsafe.Pointer, blockSize uintptr) Block {
	addr := uintptr(ptr) &^ (blockSize - 1)

	return Block{base: unsafe.Pointer(addr)}
}

// HasRoom reports whether units more slice units fit before max.
func (b Block) HasRoom(units uint16) bool {
	h := b.header()

	return uint32(h.pos)+uint32(units) <= uint32(h.max)
}

// AcquireSlice hands out the next units slice units from b, which the
// caller must already know has room (see HasRoom). It atomically bumps
// the reference count (the free path may run concurrently on another
// worker holding a different slice from the same block) and advances
// pos under the arena lock the caller is assumed to hold. Returns the
// user pointer and whether the block became exhausted (pos >= max)
// after this allocation, in which case the caller must drop its
// active-block reference and rotate.
func (b Block) AcquireSlice(units uint16, cfg *config.Config) (unsafe.Pointer, bool) {
	h := b.header()

	userPtr := unsafe.Pointer(uintptr(b.base) + uintptr(h.pos)*cfg.SliceUnit)

	atomic.AddUint32(&h.ref, 1)
	h.pos += units

	exhausted := h.pos >= h.max

	return userPtr, exhausted
}

// Release atomically decrements b's reference count. It returns true
// exactly once, for the caller that drives the count to zero, who then
// owns reclaiming the block (returning it to the pool or the pager).
func (b Block) Release() bool {
	h := b.header()

	return atomic.AddUint32(&h.ref, ^uint32(0)) == 0
}

// AddRef atomically increments b's reference count. Blocks handed out
// by the pool do not need it: Reinit already sets the count to 1.
func (b Block) AddRef() {
	atomic.AddUint32(&b.header().ref, 1)
}

// RemainingBytes returns the number of bytes between ptr and the end of
// its containing block, used as the conservative upper bound for a
// resize whose caller did not supply the original allocation size.
func RemainingBytes(ptr unsafe.Pointer, blockSize uintptr) uintptr {
	offset := uintptr(ptr) % blockSize

	return blockSize - offset
}

// ZeroBody clears a block's payload area, leaving the header bytes
// alone (the caller is expected to overwrite or reinitialize those
// separately). Used before a recycled block is reinitialized, matching
// the zero-fill guarantee on reuse.
func ZeroBody(base unsafe.Pointer, blockSize uintptr, sliceUnit uintptr) {
	body := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(base)+sliceUnit)), int(blockSize-sliceUnit))
	for i := range body {
		body[i] = 0
	}
}

// New reserves a fresh B-byte, B-aligned block directly from the
// system pager and initializes its header. Returns a nil Block on
// reservation failure.
func New(cfg *config.Config) Block {
	raw := pager.Reserve(cfg.BlockSize, cfg.BlockSize, false)
	if raw == nil {
		return Block{}
	}

	return Init(raw, cfg)
}

// Free releases a block's backing memory directly to the system pager,
// bypassing the recycled pool. Used when the pool is at capacity.
func Free(b Block, cfg *config.Config) {
	pager.Release(b.base, cfg.BlockSize)
}
