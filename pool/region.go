package pool

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/heaputils"
)

//go:generate mockgen -source region.go -destination ./mocks/region.go

// RegionSource supplies the raw memory that each heap in a Pool manages. The pool never
// resizes a region once acquired; it hands every region back through Release when the
// heap is removed.
type RegionSource interface {
	Acquire(size int) ([]byte, error)
	Release(region []byte) error
}

// GoRegionSource acquires regions as ordinary Go byte slices.
type GoRegionSource struct{}

var _ RegionSource = GoRegionSource{}

func (GoRegionSource) Acquire(size int) ([]byte, error) {
	if size <= 0 {
		return nil, errors.Wrapf(heaputils.ErrHeapTooSmall, "cannot acquire a region of %d bytes", size)
	}

	return make([]byte, size), nil
}

func (GoRegionSource) Release(region []byte) error {
	return nil
}
