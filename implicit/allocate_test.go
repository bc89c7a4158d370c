package implicit_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/heaputils"
	"github.com/vkngwrapper/heaputils/implicit"
)

func TestAllocateSplits(t *testing.T) {
	heap, _ := newHeap(t, 4096)

	ptr := allocate(t, heap, 10)
	require.Equal(t, implicit.Pointer(8), ptr)

	require.Equal(t, []region{
		{Offset: 0, Size: 32, Free: false},
		{Offset: 32, Size: 4064, Free: true},
	}, regions(t, heap))
	require.NoError(t, heap.Validate())

	usable, err := heap.UsableSize(ptr)
	require.NoError(t, err)
	require.Equal(t, 24, usable)
}

func TestAllocateExactRemainder(t *testing.T) {
	heap, _ := newHeap(t, 4096)

	first := allocate(t, heap, 10)
	second := allocate(t, heap, 4064-8)
	require.Equal(t, implicit.Pointer(8), first)
	require.Equal(t, implicit.Pointer(40), second)

	require.Equal(t, []region{
		{Offset: 0, Size: 32, Free: false},
		{Offset: 32, Size: 4064, Free: false},
	}, regions(t, heap))

	ptr, err := heap.Allocate(1)
	require.ErrorIs(t, err, heaputils.ErrAllocationExhausted)
	require.Equal(t, implicit.NullPointer, ptr)
	require.NoError(t, heap.Validate())
}

func TestAllocateMinimumBlock(t *testing.T) {
	heap, _ := newHeap(t, 64)

	ptr := allocate(t, heap, 1)
	require.Equal(t, []region{
		{Offset: 0, Size: 16, Free: false},
		{Offset: 16, Size: 48, Free: true},
	}, regions(t, heap))

	usable, err := heap.UsableSize(ptr)
	require.NoError(t, err)
	require.Equal(t, 8, usable)

	allocate(t, heap, 8)
	allocate(t, heap, 9)
	require.Equal(t, []region{
		{Offset: 0, Size: 16, Free: false},
		{Offset: 16, Size: 16, Free: false},
		{Offset: 32, Size: 32, Free: false},
	}, regions(t, heap))
}

func TestAllocateFirstFit(t *testing.T) {
	heap, _ := newHeap(t, 1024)

	a := allocate(t, heap, 100)
	b := allocate(t, heap, 10)
	c := allocate(t, heap, 200)
	allocate(t, heap, 10)

	require.NoError(t, heap.Release(a))
	require.NoError(t, heap.Release(c))

	// Both the 112 byte hole and the 208 byte hole fit; the first one wins
	ptr := allocate(t, heap, 50)
	require.Equal(t, a, ptr)

	require.Equal(t, []region{
		{Offset: 0, Size: 64, Free: false},
		{Offset: 64, Size: 48, Free: true},
		{Offset: 112, Size: 32, Free: false},
		{Offset: 144, Size: 208, Free: true},
		{Offset: 352, Size: 32, Free: false},
		{Offset: 384, Size: 640, Free: true},
	}, regions(t, heap))

	// Too large for the first hole, fits in the second
	ptr = allocate(t, heap, 150)
	require.Equal(t, implicit.Pointer(144+8), ptr)
	require.NoError(t, heap.Validate())

	_ = b
}

func TestAllocateZeroSize(t *testing.T) {
	heap, data := newHeap(t, 256)
	before := bytes.Clone(data)

	ptr, err := heap.Allocate(0)
	require.ErrorIs(t, err, heaputils.ErrInvalidSize)
	require.Equal(t, implicit.NullPointer, ptr)

	ptr, err = heap.Allocate(-5)
	require.ErrorIs(t, err, heaputils.ErrInvalidSize)
	require.Equal(t, implicit.NullPointer, ptr)

	require.Equal(t, before, data)
}

func TestAllocateExhaustedLeavesHeapUnmodified(t *testing.T) {
	heap, data := newHeap(t, 1024)

	a := allocate(t, heap, 100)
	allocate(t, heap, 100)
	require.NoError(t, heap.Release(a))

	before := bytes.Clone(data)
	largest := heap.MaxAllocationSize()
	require.Equal(t, 1024-224-8, largest)

	ptr, err := heap.Allocate(largest + 1)
	require.ErrorIs(t, err, heaputils.ErrAllocationExhausted)
	require.Equal(t, implicit.NullPointer, ptr)
	require.Equal(t, before, data)

	ptr, err = heap.Allocate(1 << 40)
	require.ErrorIs(t, err, heaputils.ErrAllocationExhausted)
	require.Equal(t, implicit.NullPointer, ptr)
	require.Equal(t, before, data)

	allocate(t, heap, largest)
}

func TestAllocateFragmented(t *testing.T) {
	heap, _ := newHeap(t, 256)

	ptrs := make([]implicit.Pointer, 0, 8)
	for i := 0; i < 8; i++ {
		ptrs = append(ptrs, allocate(t, heap, 24))
	}

	for i := 0; i < 8; i += 2 {
		require.NoError(t, heap.Release(ptrs[i]))
	}

	// 128 free bytes in total, but no hole larger than 32
	require.Equal(t, 128, heap.SumFreeSize())
	require.Equal(t, 32, heap.LargestFreeBlock())

	_, err := heap.Allocate(25)
	require.ErrorIs(t, err, heaputils.ErrAllocationExhausted)

	allocate(t, heap, 24)
}
