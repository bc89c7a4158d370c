// Package block is the only place that knows how a heap block is laid out in memory. It
// encodes and decodes the packed header word and reads and writes both header words at
// arbitrary offsets in a byte arena, so callers never touch the raw bit-packed value.
//
// Every block starts with two little-endian 32-bit words:
//
//	+0  header word: bit 0 is the allocated flag, the remaining bits are the total block size
//	+4  cached usable size: total size minus HeaderOverhead, derived and never authoritative
//	+8  payload
//
// The chain of blocks ends with a sentinel whose header word is exactly 1: size 0, allocated.
package block

import (
	"fmt"

	"github.com/vkngwrapper/heaputils"
)

const (
	// WordSize is the width in bytes of each of the two header words
	WordSize = 4
	// HeaderOverhead is the number of bytes between the start of a block and its payload
	HeaderOverhead = 2 * WordSize
	// Alignment is the granularity of every block size
	Alignment = 16
	// MinBlockSize is the smallest block that can exist in the chain, and also the smallest
	// remainder worth splitting off during allocation
	MinBlockSize = 16
	// SentinelSize is the number of bytes the sentinel occupies at the end of the arena
	SentinelSize = HeaderOverhead
	// MaxBlockSize is the largest size that fits in the header word
	MaxBlockSize = 0xFFFFFFFF &^ (Alignment - 1)

	allocatedFlag uint32 = 1
	sentinelWord  uint32 = allocatedFlag
)

// Offset is the position of a block's first header word within the arena.
type Offset int

// Header is the decoded form of a block's header word.
type Header struct {
	Size      uint32
	Allocated bool
}

// DecodeHeader unpacks a raw header word.
func DecodeHeader(word uint32) Header {
	return Header{
		Size:      word &^ allocatedFlag,
		Allocated: word&allocatedFlag != 0,
	}
}

// Encode packs the header into a raw header word. The size must be even, which every
// valid block size is, so the size bits never collide with the flag.
func (h Header) Encode() uint32 {
	if h.Size&allocatedFlag != 0 {
		panic(fmt.Sprintf("block size %d cannot be encoded alongside the allocated flag", h.Size))
	}

	word := h.Size
	if h.Allocated {
		word |= allocatedFlag
	}
	return word
}

// IsSentinel reports whether the header is the end-of-chain marker.
func (h Header) IsSentinel() bool {
	return h.Size == 0 && h.Allocated
}

// UsableSize is the payload capacity of a block with this header.
func (h Header) UsableSize() int {
	if h.Size < HeaderOverhead {
		return 0
	}
	return int(h.Size) - HeaderOverhead
}

func (h Header) String() string {
	if h.IsSentinel() {
		return "sentinel"
	}
	if h.Allocated {
		return fmt.Sprintf("allocated(%d)", h.Size)
	}
	return fmt.Sprintf("free(%d)", h.Size)
}

// UserPointer returns the payload offset of the block starting at offset.
func UserPointer(offset Offset) int {
	return int(offset) + HeaderOverhead
}

// RequiredSize returns the total block size needed to serve a payload of the given size:
// the payload plus HeaderOverhead, rounded up to Alignment, and never less than MinBlockSize.
func RequiredSize(payload int) int {
	size := heaputils.AlignUp(payload+HeaderOverhead, Alignment)
	if size < MinBlockSize {
		return MinBlockSize
	}
	return size
}
