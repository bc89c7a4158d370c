package pool

import (
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/heaputils"
	"github.com/vkngwrapper/heaputils/block"
	"gopkg.in/yaml.v3"
)

// ByteSize is a region size in bytes. In YAML it may be written either as a plain integer
// or as a human-readable size such as "64KiB" or "1 MB".
type ByteSize int

func (s *ByteSize) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	err := value.Decode(&raw)
	if err != nil {
		return err
	}

	size, err := humanize.ParseBytes(raw)
	if err != nil {
		return errors.Wrapf(err, "line %d: invalid byte size %q", value.Line, raw)
	}

	*s = ByteSize(size)
	return nil
}

func (s ByteSize) String() string {
	return humanize.IBytes(uint64(s))
}

// CreateOptions configures a Pool.
type CreateOptions struct {
	// HeapSizes lists the size of each region acquired when the pool is created. Each
	// region becomes one heap; the sentinel and any unaligned tail come out of this size.
	HeapSizes []ByteSize `yaml:"heap_sizes"`
	// Synchronized makes every pool operation hold a lock, so the pool can be shared
	// between goroutines. The heaps themselves have no synchronization of their own.
	Synchronized bool `yaml:"synchronized"`
}

// ParseCreateOptions decodes CreateOptions from YAML and validates them.
func ParseCreateOptions(data []byte) (CreateOptions, error) {
	var options CreateOptions

	err := yaml.Unmarshal(data, &options)
	if err != nil {
		return CreateOptions{}, errors.Wrap(err, "failed to parse pool options")
	}

	err = options.Validate()
	if err != nil {
		return CreateOptions{}, err
	}

	return options, nil
}

// Validate checks that every heap size can hold at least one block and the sentinel, and
// that none is too large to encode in a block header.
func (o CreateOptions) Validate() error {
	for index, size := range o.HeapSizes {
		if size < block.MinBlockSize+block.SentinelSize {
			return errors.Wrapf(heaputils.ErrHeapTooSmall, "heap %d is %d bytes, but must be at least %d", index, size, block.MinBlockSize+block.SentinelSize)
		}
		if uint64(block.Span(int(size))) > block.MaxBlockSize {
			return errors.Wrapf(heaputils.ErrHeapTooLarge, "heap %d is %s", index, size)
		}
	}

	return nil
}
