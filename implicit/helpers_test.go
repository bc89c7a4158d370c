package implicit_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/heaputils/block"
	"github.com/vkngwrapper/heaputils/implicit"
)

type region struct {
	Offset int
	Size   int
	Free   bool
}

func newHeap(t testing.TB, span int) (*implicit.Heap, []byte) {
	t.Helper()

	data := make([]byte, span+block.SentinelSize)
	heap, err := implicit.New(data)
	require.NoError(t, err)
	require.Equal(t, span, heap.Size())

	return heap, data
}

func regions(t testing.TB, heap *implicit.Heap) []region {
	t.Helper()

	var out []region
	err := heap.VisitAllRegions(func(ptr implicit.Pointer, offset int, size int, free bool) error {
		out = append(out, region{Offset: offset, Size: size, Free: free})
		return nil
	})
	require.NoError(t, err)

	return out
}

func allocate(t testing.TB, heap *implicit.Heap, size int) implicit.Pointer {
	t.Helper()

	ptr, err := heap.Allocate(size)
	require.NoError(t, err)
	require.NotEqual(t, implicit.NullPointer, ptr)

	return ptr
}
