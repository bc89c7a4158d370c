package heaputils

import "github.com/pkg/errors"

var (
	// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
	PowerOfTwoError error = errors.New("number must be a power of two")

	// ErrInvalidSize is returned when an allocation of zero or negative size is requested. No
	// zero-length allocations are ever serviced.
	ErrInvalidSize = errors.New("allocation size must be greater than zero")
	// ErrAllocationExhausted is returned when no free block is large enough to service an
	// allocation. It is not fatal: the request may succeed after other blocks are released.
	ErrAllocationExhausted = errors.New("no free block large enough for the allocation")
	// ErrInvalidPointer is returned when a release is requested for an address that does not
	// match the user pointer of any allocated block.
	ErrInvalidPointer = errors.New("pointer does not refer to an allocated block")
	// ErrDoubleFree is returned when a release is requested for a block that is already free.
	// Errors carrying it also match ErrInvalidPointer.
	ErrDoubleFree = errors.WithMessage(ErrInvalidPointer, "block is already free")
	// ErrHeapTooSmall is returned when a region cannot hold even one minimum block and the sentinel.
	ErrHeapTooSmall = errors.New("heap region is too small")
	// ErrHeapTooLarge is returned when a region's span cannot be encoded in a header word.
	ErrHeapTooLarge = errors.New("heap region is too large")
)
