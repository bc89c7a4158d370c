package implicit

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/heaputils"
	"github.com/vkngwrapper/heaputils/block"
)

// Release returns the allocation at ptr to the heap and merges the freed block with a free
// successor and a free predecessor, so no two free blocks are ever adjacent afterward.
//
// If ptr is not the payload pointer of any block, heaputils.ErrInvalidPointer is returned.
// If it is the payload pointer of a block that is already free, heaputils.ErrDoubleFree is
// returned, which also matches heaputils.ErrInvalidPointer. In both cases the heap is left
// unchanged.
func (h *Heap) Release(ptr Pointer) error {
	heaputils.DebugValidate(h)

	offset, found := h.findBlock(ptr)
	if !found {
		return errors.Wrapf(heaputils.ErrInvalidPointer, "pointer %d", ptr)
	}
	if !h.arena.IsAllocated(offset) {
		return errors.Wrapf(heaputils.ErrDoubleFree, "pointer %d", ptr)
	}

	h.arena.MarkFree(offset)
	size := h.arena.Size(offset)
	h.arena.Resize(offset, size)

	// The sentinel is always allocated, so it is never absorbed here
	next := h.arena.Next(offset)
	if !h.arena.IsAllocated(next) {
		size += h.arena.Size(next)
		h.arena.Resize(offset, size)
	}

	prev, found := h.findPredecessor(offset)
	if found && !h.arena.IsAllocated(prev) {
		h.arena.Resize(prev, h.arena.Size(prev)+size)
	}

	return nil
}

// findPredecessor returns the block whose successor is the block at target. The first
// block has no predecessor.
func (h *Heap) findPredecessor(target block.Offset) (block.Offset, bool) {
	for offset := block.Offset(0); offset < target; {
		next := h.arena.Next(offset)
		if next == target {
			return offset, true
		}
		offset = next
	}

	return 0, false
}
