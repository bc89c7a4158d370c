package implicit

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/heaputils"
	"github.com/vkngwrapper/heaputils/block"
)

// Allocate reserves a block with at least size bytes of payload and returns a pointer to
// the payload. The first free block large enough is used; if it is at least MinBlockSize
// bytes larger than needed, the tail is split off into a new free block.
//
// A size of zero or less returns NullPointer and heaputils.ErrInvalidSize. When no free
// block is large enough, NullPointer and heaputils.ErrAllocationExhausted are returned and
// the heap is left unchanged.
func (h *Heap) Allocate(size int) (Pointer, error) {
	if size <= 0 {
		return NullPointer, errors.Wrapf(heaputils.ErrInvalidSize, "requested %d bytes", size)
	}

	heaputils.DebugValidate(h)

	if size > h.Size()-block.HeaderOverhead {
		return NullPointer, errors.Wrapf(heaputils.ErrAllocationExhausted, "requested %d bytes from a heap of %d", size, h.Size())
	}

	required := block.RequiredSize(size)

	offset, found := h.findFreeBlock(required)
	if !found {
		return NullPointer, errors.Wrapf(heaputils.ErrAllocationExhausted, "requested %d bytes (%d byte block)", size, required)
	}

	h.arena.MarkAllocated(offset)
	h.split(offset, required)

	return Pointer(block.UserPointer(offset)), nil
}

// findFreeBlock returns the first free block of at least required bytes.
func (h *Heap) findFreeBlock(required int) (block.Offset, bool) {
	for offset := block.Offset(0); !h.arena.IsSentinel(offset); offset = h.arena.Next(offset) {
		header := h.arena.Header(offset)
		if !header.Allocated && int(header.Size) >= required {
			return offset, true
		}
	}

	return 0, false
}

// split shrinks the allocated block at offset to required bytes and turns the remainder
// into a free block, unless the remainder would be smaller than MinBlockSize.
func (h *Heap) split(offset block.Offset, required int) {
	blockSize := h.arena.Size(offset)
	if blockSize < required {
		panic("selected a free block that is smaller than the request")
	}

	padding := blockSize - required
	if padding < block.MinBlockSize {
		h.arena.Resize(offset, blockSize)
		return
	}

	h.arena.Install(offset, required, true)
	h.arena.Install(offset+block.Offset(required), padding, false)
}
