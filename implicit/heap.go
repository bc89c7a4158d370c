// Package implicit implements a first-fit allocator over a single fixed byte arena using an
// implicit free list: the only bookkeeping is the pair of header words at the start of
// every block, and the blocks are found by walking the chain from the start of the arena
// to the sentinel.
//
// Allocate and Release are both O(number of blocks). Release performs a second walk to
// find the predecessor of the released block, since blocks carry no backward links.
//
// A Heap is not safe for concurrent use. Callers that share a Heap between goroutines must
// hold a lock around every call; see the pool package.
package implicit

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/heaputils"
	"github.com/vkngwrapper/heaputils/block"
)

// Pointer is the offset of an allocation's payload within the arena. It is what Allocate
// hands out and what Release accepts.
type Pointer int

// NullPointer is returned by Allocate when it fails. No block's payload can start at offset 0.
const NullPointer Pointer = 0

// Heap is the handle for one arena. It is created once, passed to every operation, and
// dropped along with the arena when the owner is done with it.
type Heap struct {
	arena    block.Arena
	sentinel block.Offset
}

var _ heaputils.Validatable = &Heap{}

// New formats data as an empty heap and returns its handle. The heap uses data in place;
// the caller must not modify it directly afterward except through slices returned by Bytes.
func New(data []byte) (*Heap, error) {
	arena, err := block.Format(data)
	if err != nil {
		return nil, err
	}

	return &Heap{
		arena:    arena,
		sentinel: block.Offset(len(arena) - block.SentinelSize),
	}, nil
}

// Attach returns a handle for an arena that has already been bootstrapped, either by New
// or by some other party that wrote the first block's header word and the sentinel. The
// sentinel must occupy the final SentinelSize bytes of data. The block chain is checked
// before it is accepted, and every block's cached usable size is recomputed from its header
// word, so a bootstrap that never wrote the cached words attaches cleanly.
func Attach(data []byte) (*Heap, error) {
	if len(data) < block.MinBlockSize+block.SentinelSize {
		return nil, errors.Wrapf(heaputils.ErrHeapTooSmall, "region of %d bytes needs at least %d", len(data), block.MinBlockSize+block.SentinelSize)
	}

	h := &Heap{
		arena:    block.Arena(data),
		sentinel: block.Offset(len(data) - block.SentinelSize),
	}

	err := h.validateChain(false)
	if err != nil {
		return nil, errors.Wrap(err, "could not attach to heap region")
	}

	h.forEachBlock(func(offset block.Offset, header block.Header) {
		h.arena.SetCachedUsable(offset, header.UsableSize())
	})

	return h, nil
}

// Size returns the number of bytes covered by blocks, excluding the sentinel.
func (h *Heap) Size() int {
	return int(h.sentinel)
}

// Clear instantly frees all allocations, leaving a single free block before the sentinel.
func (h *Heap) Clear() {
	h.arena.Install(0, int(h.sentinel), false)
	h.arena.WriteSentinel(h.sentinel)
}

// Bytes returns the payload of the allocation at ptr. The slice's length and capacity are
// the block's usable size, which may exceed the size originally requested.
func (h *Heap) Bytes(ptr Pointer) ([]byte, error) {
	offset, err := h.allocatedBlock(ptr)
	if err != nil {
		return nil, err
	}

	start := int(ptr)
	end := int(offset) + h.arena.Size(offset)
	return h.arena[start:end:end], nil
}

// UsableSize returns the payload capacity of the allocation at ptr.
func (h *Heap) UsableSize(ptr Pointer) (int, error) {
	offset, err := h.allocatedBlock(ptr)
	if err != nil {
		return 0, err
	}

	return h.arena.Header(offset).UsableSize(), nil
}

func (h *Heap) allocatedBlock(ptr Pointer) (block.Offset, error) {
	offset, found := h.findBlock(ptr)
	if !found || !h.arena.IsAllocated(offset) {
		return 0, errors.Wrapf(heaputils.ErrInvalidPointer, "pointer %d", ptr)
	}

	return offset, nil
}

// findBlock locates the block whose user pointer is ptr, free or allocated. Blocks are
// address ordered, so the walk stops as soon as it passes ptr.
func (h *Heap) findBlock(ptr Pointer) (block.Offset, bool) {
	for offset := block.Offset(0); !h.arena.IsSentinel(offset); offset = h.arena.Next(offset) {
		userPointer := block.UserPointer(offset)
		if userPointer == int(ptr) {
			return offset, true
		}
		if userPointer > int(ptr) {
			break
		}
	}

	return 0, false
}
