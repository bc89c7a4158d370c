//go:build unix

package pool

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/heaputils"
	"golang.org/x/sys/unix"
)

// MmapRegionSource acquires regions as private anonymous memory mappings, outside the Go
// heap. Mappings are rounded up to whole pages; the returned slice has the requested length
// and the mapping's full capacity.
type MmapRegionSource struct{}

var _ RegionSource = MmapRegionSource{}

func (MmapRegionSource) Acquire(size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Wrapf(heaputils.ErrHeapTooSmall, "cannot acquire a region of %d bytes", size)
	}

	pageSize := unix.Getpagesize()
	heaputils.DebugCheckPow2(pageSize, "page size")

	length := heaputils.AlignUp(size, pageSize)
	data, err := unix.Mmap(-1, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to map %d bytes", length)
	}

	return data[:size], nil
}

func (MmapRegionSource) Release(region []byte) error {
	err := unix.Munmap(region[:cap(region)])
	if err != nil {
		return errors.Wrap(err, "failed to unmap region")
	}

	return nil
}
