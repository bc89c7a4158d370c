package heaputils

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// Statistics holds cheap, aggregate numbers about one or more heaps.
type Statistics struct {
	HeapCount       int
	AllocationCount int
	HeapBytes       int
	AllocationBytes int
}

func (s *Statistics) Clear() {
	s.HeapCount = 0
	s.AllocationCount = 0
	s.HeapBytes = 0
	s.AllocationBytes = 0
}

func (s *Statistics) AddStatistics(other *Statistics) {
	s.HeapCount += other.HeapCount
	s.AllocationCount += other.AllocationCount
	s.HeapBytes += other.HeapBytes
	s.AllocationBytes += other.AllocationBytes
}

func (s Statistics) String() string {
	return fmt.Sprintf("%d heap(s), %s; %d allocation(s), %s",
		s.HeapCount, humanize.IBytes(uint64(s.HeapBytes)),
		s.AllocationCount, humanize.IBytes(uint64(s.AllocationBytes)))
}

// DetailedStatistics extends Statistics with per-range minimums and maximums. Sizes are
// total block sizes, header included. Call Clear before the first use so the minimums
// start at math.MaxInt.
type DetailedStatistics struct {
	Statistics
	FreeRangeCount    int
	AllocationSizeMin int
	AllocationSizeMax int
	FreeRangeSizeMin  int
	FreeRangeSizeMax  int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.FreeRangeCount = 0
	s.AllocationSizeMin = math.MaxInt
	s.AllocationSizeMax = 0
	s.FreeRangeSizeMin = math.MaxInt
	s.FreeRangeSizeMax = 0
}

func (s *DetailedStatistics) AddFreeRange(size int) {
	s.FreeRangeCount++

	if size < s.FreeRangeSizeMin {
		s.FreeRangeSizeMin = size
	}

	if size > s.FreeRangeSizeMax {
		s.FreeRangeSizeMax = size
	}
}

func (s *DetailedStatistics) AddAllocation(size int) {
	s.AllocationCount++
	s.AllocationBytes += size

	if size < s.AllocationSizeMin {
		s.AllocationSizeMin = size
	}

	if size > s.AllocationSizeMax {
		s.AllocationSizeMax = size
	}
}

func (s *DetailedStatistics) AddDetailedStatistics(other *DetailedStatistics) {
	s.Statistics.AddStatistics(&other.Statistics)
	s.FreeRangeCount += other.FreeRangeCount

	if other.FreeRangeSizeMin < s.FreeRangeSizeMin {
		s.FreeRangeSizeMin = other.FreeRangeSizeMin
	}

	if other.FreeRangeSizeMax > s.FreeRangeSizeMax {
		s.FreeRangeSizeMax = other.FreeRangeSizeMax
	}

	if other.AllocationSizeMin < s.AllocationSizeMin {
		s.AllocationSizeMin = other.AllocationSizeMin
	}

	if other.AllocationSizeMax > s.AllocationSizeMax {
		s.AllocationSizeMax = other.AllocationSizeMax
	}
}

// FreeBytes returns the number of heap bytes not covered by allocated blocks.
func (s *DetailedStatistics) FreeBytes() int {
	return s.HeapBytes - s.AllocationBytes
}

func (s DetailedStatistics) String() string {
	largest := 0
	if s.FreeRangeCount > 0 {
		largest = s.FreeRangeSizeMax
	}

	return fmt.Sprintf("%s; %d free range(s), largest %s",
		s.Statistics.String(), s.FreeRangeCount, humanize.IBytes(uint64(largest)))
}
