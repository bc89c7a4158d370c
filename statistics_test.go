package heaputils_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/heaputils"
)

func TestDetailedStatisticsAccumulate(t *testing.T) {
	var stats heaputils.DetailedStatistics
	stats.Clear()

	require.Equal(t, math.MaxInt, stats.AllocationSizeMin)
	require.Equal(t, math.MaxInt, stats.FreeRangeSizeMin)

	stats.HeapCount++
	stats.HeapBytes += 4096
	stats.AddAllocation(32)
	stats.AddAllocation(64)
	stats.AddFreeRange(4000)

	require.Equal(t, heaputils.DetailedStatistics{
		Statistics: heaputils.Statistics{
			HeapCount:       1,
			AllocationCount: 2,
			HeapBytes:       4096,
			AllocationBytes: 96,
		},
		FreeRangeCount:    1,
		AllocationSizeMin: 32,
		AllocationSizeMax: 64,
		FreeRangeSizeMin:  4000,
		FreeRangeSizeMax:  4000,
	}, stats)
	require.Equal(t, 4000, stats.FreeBytes())

	var other heaputils.DetailedStatistics
	other.Clear()
	other.HeapCount++
	other.HeapBytes += 1024
	other.AddAllocation(16)
	other.AddFreeRange(8000)

	stats.AddDetailedStatistics(&other)
	require.Equal(t, 2, stats.HeapCount)
	require.Equal(t, 3, stats.AllocationCount)
	require.Equal(t, 16, stats.AllocationSizeMin)
	require.Equal(t, 8000, stats.FreeRangeSizeMax)
	require.Equal(t, 4000, stats.FreeRangeSizeMin)
}

func TestStatisticsString(t *testing.T) {
	stats := heaputils.Statistics{
		HeapCount:       1,
		AllocationCount: 3,
		HeapBytes:       4096,
		AllocationBytes: 2048,
	}

	require.Equal(t, "1 heap(s), 4.0 KiB; 3 allocation(s), 2.0 KiB", stats.String())
}
