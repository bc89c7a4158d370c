// Package pool owns the memory that implicit heaps run on. It acquires each heap's region
// from a RegionSource, bootstraps the heap inside it, and routes allocations and releases
// to the right heap. A pool can optionally serialize every call behind one lock, which is
// the only way the heaps it holds may be shared between goroutines.
//
// Each heap keeps the fixed size it was created with. Adding a heap acquires a new,
// independent region; it never extends an existing one.
package pool

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/heaputils"
	"github.com/vkngwrapper/heaputils/implicit"
	"github.com/vkngwrapper/heaputils/internal/utils"
	"golang.org/x/exp/slog"
)

// HeapID identifies one heap within a Pool. IDs are never reused.
type HeapID uint64

// Allocation is a pointer into one of a pool's heaps.
type Allocation struct {
	Heap    HeapID
	Pointer implicit.Pointer
}

type poolHeap struct {
	id     HeapID
	region []byte
	heap   *implicit.Heap
}

// Pool is a set of independent heaps, tried first-fit in the order they were added.
type Pool struct {
	logger *slog.Logger
	source RegionSource
	mutex  utils.OptionalRWMutex

	nextHeapID uint64
	heaps      *swiss.Map[HeapID, *poolHeap]
	order      []HeapID
}

var _ heaputils.Validatable = &Pool{}

// New creates a pool and acquires one heap for each entry in options.HeapSizes. If any
// heap cannot be created, the regions already acquired are released and the error is
// returned.
func New(logger *slog.Logger, source RegionSource, options CreateOptions) (*Pool, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if source == nil {
		source = GoRegionSource{}
	}

	err := options.Validate()
	if err != nil {
		return nil, err
	}

	p := &Pool{
		logger: logger,
		source: source,
		mutex:  utils.OptionalRWMutex{UseMutex: options.Synchronized},
		heaps:  swiss.NewMap[HeapID, *poolHeap](uint32(len(options.HeapSizes))),
	}

	for _, size := range options.HeapSizes {
		_, err = p.addHeap(int(size))
		if err != nil {
			destroyErr := p.releaseEmptyHeaps()
			if destroyErr != nil {
				p.logger.Error("error attempting to release heaps after creation failure", slog.Any("error", destroyErr))
			}
			return nil, err
		}
	}

	return p, nil
}

// AddHeap acquires a region of size bytes from the pool's RegionSource and adds an empty
// heap over it.
func (p *Pool) AddHeap(size int) (HeapID, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return p.addHeap(size)
}

func (p *Pool) addHeap(size int) (HeapID, error) {
	region, err := p.source.Acquire(size)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to acquire a region of %d bytes", size)
	}

	heap, err := implicit.New(region)
	if err != nil {
		releaseErr := p.source.Release(region)
		if releaseErr != nil {
			p.logger.Error("error attempting to release region after heap creation failure", slog.Any("error", releaseErr))
		}
		return 0, err
	}

	id := HeapID(atomic.AddUint64(&p.nextHeapID, 1))
	p.heaps.Put(id, &poolHeap{id: id, region: region, heap: heap})
	p.order = append(p.order, id)

	p.logger.Debug("Pool::AddHeap", slog.Uint64("HeapID", uint64(id)), slog.Int("RegionSize", size), slog.Int("HeapSize", heap.Size()))

	return id, nil
}

// RemoveHeap releases the heap's region back to the RegionSource. Heaps with live
// allocations are not removed: each remaining allocation is logged and ErrHeapInUse is
// returned.
func (p *Pool) RemoveHeap(id HeapID) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	entry, ok := p.heaps.Get(id)
	if !ok {
		return errors.Wrapf(ErrUnknownHeap, "heap %d", id)
	}

	if !entry.heap.IsEmpty() {
		p.logUnreleasedMemory(entry)
		return errors.Wrapf(ErrHeapInUse, "heap %d", id)
	}

	return p.removeHeap(entry)
}

func (p *Pool) removeHeap(entry *poolHeap) error {
	err := p.source.Release(entry.region)
	if err != nil {
		return errors.Wrapf(err, "failed to release the region of heap %d", entry.id)
	}

	p.heaps.Delete(entry.id)
	for index, id := range p.order {
		if id == entry.id {
			p.order = append(p.order[:index], p.order[index+1:]...)
			break
		}
	}

	p.logger.Debug("Pool::RemoveHeap", slog.Uint64("HeapID", uint64(entry.id)))
	return nil
}

// HeapCount returns the number of heaps in the pool.
func (p *Pool) HeapCount() int {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return p.heaps.Count()
}

// Heaps returns the IDs of the pool's heaps in the order they are searched.
func (p *Pool) Heaps() []HeapID {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	return append([]HeapID(nil), p.order...)
}

// Allocate reserves size bytes from the first heap that can serve them.
func (p *Pool) Allocate(size int) (Allocation, error) {
	if size <= 0 {
		return Allocation{}, errors.Wrapf(heaputils.ErrInvalidSize, "requested %d bytes", size)
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, id := range p.order {
		entry, _ := p.heaps.Get(id)

		ptr, err := entry.heap.Allocate(size)
		if errors.Is(err, heaputils.ErrAllocationExhausted) {
			continue
		} else if err != nil {
			return Allocation{}, err
		}

		return Allocation{Heap: id, Pointer: ptr}, nil
	}

	return Allocation{}, errors.Wrapf(heaputils.ErrAllocationExhausted, "no heap out of %d could serve %d bytes", len(p.order), size)
}

// Release returns an allocation to the heap it came from.
func (p *Pool) Release(alloc Allocation) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	entry, ok := p.heaps.Get(alloc.Heap)
	if !ok {
		return errors.Wrapf(heaputils.ErrInvalidPointer, "allocation refers to unknown heap %d", alloc.Heap)
	}

	return entry.heap.Release(alloc.Pointer)
}

// Bytes returns the payload of an allocation. The slice stays valid until the allocation
// is released.
func (p *Pool) Bytes(alloc Allocation) ([]byte, error) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	entry, ok := p.heaps.Get(alloc.Heap)
	if !ok {
		return nil, errors.Wrapf(heaputils.ErrInvalidPointer, "allocation refers to unknown heap %d", alloc.Heap)
	}

	return entry.heap.Bytes(alloc.Pointer)
}

// Validate runs Validate on every heap in the pool.
func (p *Pool) Validate() error {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	if p.heaps.Count() != len(p.order) {
		return errors.Newf("pool lists %d heaps in search order, but holds %d", len(p.order), p.heaps.Count())
	}

	for _, id := range p.order {
		entry, ok := p.heaps.Get(id)
		if !ok {
			return errors.Newf("heap %d is in the search order but not in the pool", id)
		}

		err := entry.heap.Validate()
		if err != nil {
			return errors.Wrapf(err, "heap %d", id)
		}
	}

	return nil
}

// AddStatistics sums every heap's statistics into stats.
func (p *Pool) AddStatistics(stats *heaputils.Statistics) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	for _, id := range p.order {
		entry, _ := p.heaps.Get(id)
		entry.heap.AddStatistics(stats)
	}
}

// AddDetailedStatistics sums every heap's detailed statistics into stats.
func (p *Pool) AddDetailedStatistics(stats *heaputils.DetailedStatistics) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	for _, id := range p.order {
		entry, _ := p.heaps.Get(id)
		entry.heap.AddDetailedStatistics(stats)
	}
}

// PrintDetailedMap writes a json object with one member per heap, keyed by HeapID, each
// listing the heap's blocks.
func (p *Pool) PrintDetailedMap(writer *jwriter.Writer) {
	p.mutex.RLock()
	defer p.mutex.RUnlock()

	objState := writer.Object()
	defer objState.End()

	for _, id := range p.order {
		entry, _ := p.heaps.Get(id)

		heapObj := objState.Name(strconv.FormatUint(uint64(id), 10)).Object()
		heapObj.Name("RegionBytes").Int(len(entry.region))
		entry.heap.PrintDetailedMap(heapObj)
		heapObj.End()
	}
}

// Destroy releases the regions of every empty heap. Heaps that still hold allocations are
// kept, their allocations are logged, and ErrHeapInUse is returned.
func (p *Pool) Destroy() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var leaked int
	for _, id := range append([]HeapID(nil), p.order...) {
		entry, _ := p.heaps.Get(id)
		if !entry.heap.IsEmpty() {
			p.logUnreleasedMemory(entry)
			leaked++
		}
	}

	err := p.releaseEmptyHeaps()
	if err != nil {
		return err
	}

	if leaked > 0 {
		return errors.Wrapf(ErrHeapInUse, "some allocations were not freed before the destruction of this pool! %d heap(s) kept", leaked)
	}

	return nil
}

func (p *Pool) releaseEmptyHeaps() error {
	var errs error
	for _, id := range append([]HeapID(nil), p.order...) {
		entry, _ := p.heaps.Get(id)
		if !entry.heap.IsEmpty() {
			continue
		}

		err := p.removeHeap(entry)
		if err != nil {
			errs = errors.CombineErrors(errs, err)
		}
	}

	return errs
}

func (p *Pool) logUnreleasedMemory(entry *poolHeap) {
	entry.heap.DebugLogAllAllocations(p.logger, func(log *slog.Logger, ptr implicit.Pointer, size int) {
		log.LogAttrs(context.Background(), slog.LevelError, "[UNRELEASED MEMORY] unfreed allocation",
			slog.Uint64("heap", uint64(entry.id)),
			slog.Int("pointer", int(ptr)),
			slog.Int("size", size),
		)
	})
}
