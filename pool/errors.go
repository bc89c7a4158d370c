package pool

import "github.com/pkg/errors"

var (
	// ErrUnknownHeap is returned when a HeapID does not belong to the pool.
	ErrUnknownHeap = errors.New("heap is not part of this pool")
	// ErrHeapInUse is returned when a heap that still has live allocations is removed or
	// the pool is destroyed while allocations remain.
	ErrHeapInUse = errors.New("heap still has live allocations")
)
