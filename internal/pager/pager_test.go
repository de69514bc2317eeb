//go:build unix

package pager

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestRound(t *testing.T) {
	require.EqualValues(t, 0, Round(0))
	require.EqualValues(t, PageSize, Round(1))
	require.EqualValues(t, PageSize, Round(PageSize))
	require.EqualValues(t, 2*PageSize, Round(PageSize+1))
}

func TestReserveAligned(t *testing.T) {
	const blockSize = 64 * 1024

	mem := Reserve(blockSize, blockSize, false)
	require.NotNil(t, mem)
	defer Release(mem, blockSize)

	require.Zero(t, uintptr(mem)%blockSize)
}

func TestReserveWriteReadRoundTrip(t *testing.T) {
	const length = 64 * 1024

	mem := Reserve(length, length, false)
	require.NotNil(t, mem)
	defer Release(mem, length)

	body := sliceAt(mem, length)
	body[0] = 0xAB
	body[length-1] = 0xCD

	require.Equal(t, byte(0xAB), body[0])
	require.Equal(t, byte(0xCD), body[length-1])
}

func TestResizeGrowPreservesContent(t *testing.T) {
	const prevLen = 64 * 1024

	mem := Reserve(prevLen, prevLen, false)
	require.NotNil(t, mem)

	body := sliceAt(mem, prevLen)
	body[0] = 0x11
	body[prevLen-1] = 0x22

	newLen := uintptr(2 * prevLen)
	grown := Resize(mem, prevLen, newLen, prevLen)
	require.NotNil(t, grown)
	defer Release(grown, newLen)

	require.Zero(t, uintptr(grown)%prevLen, "Resize must never return a block-misaligned pointer, even via mremap")

	grownBody := sliceAt(grown, newLen)
	require.Equal(t, byte(0x11), grownBody[0])
	require.Equal(t, byte(0x22), grownBody[prevLen-1])
}

func TestResizeShrinkReturnsSamePointer(t *testing.T) {
	const prevLen = 4 * 64 * 1024

	mem := Reserve(prevLen, 64*1024, false)
	require.NotNil(t, mem)

	newLen := uintptr(64 * 1024)
	shrunk := Resize(mem, prevLen, newLen, 64*1024)
	require.Equal(t, mem, shrunk)

	Release(shrunk, newLen)
}

func TestAddrOfEmptySlice(t *testing.T) {
	require.Zero(t, addrOf(nil))
}

func TestToPointerEmptySlice(t *testing.T) {
	require.Nil(t, toPointer(nil))
}

func TestSliceAtNil(t *testing.T) {
	require.Nil(t, sliceAt(nil, 10))
	require.Nil(t, sliceAt(unsafe.Pointer(uintptr(1)), 0))
}
