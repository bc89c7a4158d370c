package block

import (
	"encoding/binary"
	"fmt"

	"github.com/pkg/errors"
	"github.com/vkngwrapper/heaputils"
)

// Arena is a view over the heap bytes. Blocks are not objects of their own; they are
// computed from offsets into the arena with the accessors below, all of which are
// bounds checked.
type Arena []byte

func (a Arena) word(offset int) uint32 {
	if offset < 0 || offset+WordSize > len(a) {
		panic(fmt.Sprintf("header word at offset %d is outside the arena of %d bytes", offset, len(a)))
	}
	return binary.LittleEndian.Uint32(a[offset:])
}

func (a Arena) setWord(offset int, value uint32) {
	if offset < 0 || offset+WordSize > len(a) {
		panic(fmt.Sprintf("header word at offset %d is outside the arena of %d bytes", offset, len(a)))
	}
	binary.LittleEndian.PutUint32(a[offset:], value)
}

// Contains reports whether a whole block header fits at offset.
func (a Arena) Contains(offset Offset) bool {
	return offset >= 0 && int(offset)+HeaderOverhead <= len(a)
}

// Header decodes the header word of the block at offset.
func (a Arena) Header(offset Offset) Header {
	return DecodeHeader(a.word(int(offset)))
}

// SetHeader writes the header word of the block at offset.
func (a Arena) SetHeader(offset Offset, header Header) {
	a.setWord(int(offset), header.Encode())
}

// IsAllocated reports whether the allocated flag of the block at offset is set.
func (a Arena) IsAllocated(offset Offset) bool {
	return a.Header(offset).Allocated
}

// Size returns the total size of the block at offset, header included.
func (a Arena) Size(offset Offset) int {
	return int(a.Header(offset).Size)
}

// IsSentinel reports whether the block at offset is the end-of-chain sentinel.
func (a Arena) IsSentinel(offset Offset) bool {
	return a.word(int(offset)) == sentinelWord
}

// MarkAllocated sets the allocated flag of the block at offset, leaving its size untouched.
func (a Arena) MarkAllocated(offset Offset) {
	header := a.Header(offset)
	header.Allocated = true
	a.SetHeader(offset, header)
}

// MarkFree clears the allocated flag of the block at offset, leaving its size untouched.
func (a Arena) MarkFree(offset Offset) {
	header := a.Header(offset)
	header.Allocated = false
	a.SetHeader(offset, header)
}

// CachedUsable returns the second header word of the block at offset.
func (a Arena) CachedUsable(offset Offset) int {
	return int(a.word(int(offset) + WordSize))
}

// SetCachedUsable writes the second header word of the block at offset.
func (a Arena) SetCachedUsable(offset Offset, usable int) {
	a.setWord(int(offset)+WordSize, uint32(usable))
}

// Install writes both header words of a non-sentinel block, deriving the cached usable
// size from the total size.
func (a Arena) Install(offset Offset, size int, allocated bool) {
	header := Header{Size: uint32(size), Allocated: allocated}
	a.SetHeader(offset, header)
	a.SetCachedUsable(offset, header.UsableSize())
}

// Resize changes the total size of the block at offset, keeping its allocated flag, and
// refreshes the cached usable size.
func (a Arena) Resize(offset Offset, size int) {
	a.Install(offset, size, a.IsAllocated(offset))
}

// WriteSentinel installs the end-of-chain sentinel at offset.
func (a Arena) WriteSentinel(offset Offset) {
	a.setWord(int(offset), sentinelWord)
	a.setWord(int(offset)+WordSize, 0)
}

// Next returns the offset of the block following the block at offset. The sentinel has no
// successor, so callers must check for it first.
func (a Arena) Next(offset Offset) Offset {
	header := a.Header(offset)
	if header.IsSentinel() {
		panic(fmt.Sprintf("attempted to step past the sentinel at offset %d", offset))
	}
	if header.Size == 0 {
		panic(fmt.Sprintf("block at offset %d has a size of 0 but is not the sentinel", offset))
	}
	return offset + Offset(header.Size)
}

// Span returns the number of arena bytes available to blocks other than the sentinel,
// rounded down to Alignment.
func Span(arenaSize int) int {
	return heaputils.AlignDown(arenaSize-SentinelSize, Alignment)
}

// Format bootstraps an arena: one free block covering everything up to the sentinel,
// followed by the sentinel. Trailing bytes that do not fill a whole Alignment unit are
// left outside the heap. The returned arena is trimmed to the bytes in use.
func Format(data []byte) (Arena, error) {
	if len(data) < MinBlockSize+SentinelSize {
		return nil, errors.Wrapf(heaputils.ErrHeapTooSmall, "region of %d bytes needs at least %d", len(data), MinBlockSize+SentinelSize)
	}

	span := Span(len(data))
	if uint64(span) > MaxBlockSize {
		return nil, errors.Wrapf(heaputils.ErrHeapTooLarge, "span of %d bytes exceeds %d", span, MaxBlockSize)
	}

	arena := Arena(data[:span+SentinelSize : span+SentinelSize])
	arena.Install(0, span, false)
	arena.WriteSentinel(Offset(span))

	return arena, nil
}
