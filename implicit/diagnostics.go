package implicit

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/heaputils"
	"github.com/vkngwrapper/heaputils/block"
	"golang.org/x/exp/slog"
)

// Validate performs internal consistency checks on the heap by walking every block. It does
// not panic on a corrupted chain; it returns an error describing the first problem found.
//
// The checks cover: blocks tile the arena without gaps, every block size is a multiple of
// 16 and at least 16, the cached usable size matches every block's total size, no two free
// blocks are adjacent, and the chain ends with the sentinel in the final bytes of the arena.
func (h *Heap) Validate() error {
	return h.validateChain(true)
}

// validateChain walks the block chain without panicking. The cached usable size is only
// compared against each header when checkCache is set.
func (h *Heap) validateChain(checkCache bool) error {
	if len(h.arena) < block.MinBlockSize+block.SentinelSize {
		return errors.Errorf("arena of %d bytes cannot hold a block and the sentinel", len(h.arena))
	}
	if int(h.sentinel) != len(h.arena)-block.SentinelSize {
		return errors.Errorf("sentinel is expected at offset %d, but the arena is %d bytes long", h.sentinel, len(h.arena))
	}

	offset := block.Offset(0)
	previousFree := false

	for offset != h.sentinel {
		if offset > h.sentinel || !h.arena.Contains(offset) {
			return errors.Errorf("block chain runs past the sentinel at offset %d, reaching offset %d", h.sentinel, offset)
		}

		header := h.arena.Header(offset)
		if header.IsSentinel() {
			return errors.Errorf("found a sentinel at offset %d, but the arena's sentinel is at offset %d", offset, h.sentinel)
		}
		if header.Size < block.MinBlockSize {
			return errors.Errorf("block at offset %d has size %d, which is below the minimum of %d", offset, header.Size, block.MinBlockSize)
		}
		if !heaputils.IsAligned(header.Size, block.Alignment) {
			return errors.Errorf("block at offset %d has size %d, which is not a multiple of %d", offset, header.Size, block.Alignment)
		}

		cached := h.arena.CachedUsable(offset)
		if checkCache && cached != header.UsableSize() {
			return errors.Errorf("block at offset %d has size %d, but its cached usable size is %d instead of %d", offset, header.Size, cached, header.UsableSize())
		}

		if !header.Allocated && previousFree {
			return errors.Errorf("free block at offset %d follows another free block", offset)
		}
		previousFree = !header.Allocated

		offset += block.Offset(header.Size)
	}

	if !h.arena.IsSentinel(h.sentinel) {
		return errors.Errorf("block chain ends at offset %d, but there is no sentinel there: %s", h.sentinel, h.arena.Header(h.sentinel))
	}

	return nil
}

// VisitAllRegions calls handleBlock once for every block before the sentinel, in address
// order. ptr is the block's payload pointer and size is its total size, header included.
// Iteration stops at the first error, which is returned.
func (h *Heap) VisitAllRegions(handleBlock func(ptr Pointer, offset int, size int, free bool) error) error {
	for offset := block.Offset(0); !h.arena.IsSentinel(offset); offset = h.arena.Next(offset) {
		header := h.arena.Header(offset)
		err := handleBlock(Pointer(block.UserPointer(offset)), int(offset), int(header.Size), !header.Allocated)
		if err != nil {
			return err
		}
	}

	return nil
}

func (h *Heap) forEachBlock(visit func(offset block.Offset, header block.Header)) {
	for offset := block.Offset(0); !h.arena.IsSentinel(offset); offset = h.arena.Next(offset) {
		visit(offset, h.arena.Header(offset))
	}
}

// AllocationCount returns the number of live allocations.
func (h *Heap) AllocationCount() int {
	var count int
	h.forEachBlock(func(offset block.Offset, header block.Header) {
		if header.Allocated {
			count++
		}
	})
	return count
}

// FreeRegionsCount returns the number of free blocks.
func (h *Heap) FreeRegionsCount() int {
	var count int
	h.forEachBlock(func(offset block.Offset, header block.Header) {
		if !header.Allocated {
			count++
		}
	})
	return count
}

// SumFreeSize returns the total size of all free blocks, headers included.
func (h *Heap) SumFreeSize() int {
	var sum int
	h.forEachBlock(func(offset block.Offset, header block.Header) {
		if !header.Allocated {
			sum += int(header.Size)
		}
	})
	return sum
}

// LargestFreeBlock returns the total size of the largest free block, or 0 if there is none.
func (h *Heap) LargestFreeBlock() int {
	var largest int
	h.forEachBlock(func(offset block.Offset, header block.Header) {
		if !header.Allocated && int(header.Size) > largest {
			largest = int(header.Size)
		}
	})
	return largest
}

// MaxAllocationSize returns the largest size that Allocate can currently satisfy.
func (h *Heap) MaxAllocationSize() int {
	return block.Header{Size: uint32(h.LargestFreeBlock())}.UsableSize()
}

// IsEmpty will return true if this heap has no live allocations
func (h *Heap) IsEmpty() bool {
	return h.AllocationCount() == 0
}

// AddStatistics sums this heap's allocation statistics into the provided statistics object.
func (h *Heap) AddStatistics(stats *heaputils.Statistics) {
	stats.HeapCount++
	stats.HeapBytes += h.Size()
	h.forEachBlock(func(offset block.Offset, header block.Header) {
		if header.Allocated {
			stats.AllocationCount++
			stats.AllocationBytes += int(header.Size)
		}
	})
}

// AddDetailedStatistics sums this heap's allocation statistics, including per-block minimums
// and maximums, into the provided statistics object.
func (h *Heap) AddDetailedStatistics(stats *heaputils.DetailedStatistics) {
	stats.HeapCount++
	stats.HeapBytes += h.Size()
	h.forEachBlock(func(offset block.Offset, header block.Header) {
		if header.Allocated {
			stats.AddAllocation(int(header.Size))
		} else {
			stats.AddFreeRange(int(header.Size))
		}
	})
}

// BlockJsonData populates a json object with summary information about this heap
func (h *Heap) BlockJsonData(json jwriter.ObjectState) {
	var stats heaputils.DetailedStatistics
	stats.Clear()
	h.AddDetailedStatistics(&stats)

	json.Name("TotalBytes").Int(h.Size())
	json.Name("UnusedBytes").Int(stats.FreeBytes())
	json.Name("Allocations").Int(stats.AllocationCount)
	json.Name("UnusedRanges").Int(stats.FreeRangeCount)
}

// PrintDetailedMap populates a json object with summary information about this heap followed
// by a "Blocks" array listing every block in address order.
func (h *Heap) PrintDetailedMap(json jwriter.ObjectState) {
	h.BlockJsonData(json)

	blocks := json.Name("Blocks").Array()
	defer blocks.End()

	h.forEachBlock(func(offset block.Offset, header block.Header) {
		obj := blocks.Object()
		defer obj.End()

		obj.Name("Offset").Int(int(offset))
		obj.Name("Size").Int(int(header.Size))
		if header.Allocated {
			obj.Name("Type").String("Allocation")
			obj.Name("Pointer").Int(block.UserPointer(offset))
		} else {
			obj.Name("Type").String("Free")
		}
	})
}

// DebugLogAllAllocations calls logFunc once for every live allocation, with its payload
// pointer and usable size.
func (h *Heap) DebugLogAllAllocations(logger *slog.Logger, logFunc func(log *slog.Logger, ptr Pointer, size int)) {
	h.forEachBlock(func(offset block.Offset, header block.Header) {
		if header.Allocated {
			logFunc(logger, Pointer(block.UserPointer(offset)), header.UsableSize())
		}
	})
}
