//go:build linux

package ringnet

import (
	"strconv"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/ringnet/pkg/ring"
	"github.com/rs/zerolog"
)

const (
	DefaultWaitTimeout = 100 * time.Millisecond
	DefaultBufferCount = 128
	DefaultBufferSize  = 2048
)

type Options struct {
	WaitTimeout time.Duration
	BufferCount int
	BufferSize  int
	BufferGroup uint16
	Logger      *zerolog.Logger
}

type Option func(options *Options) (err error)

// WithWaitTimeout sets how long one loop turn waits for at least one
// completion before turning again.
func WithWaitTimeout(timeout time.Duration) Option {
	return func(options *Options) error {
		if timeout <= 0 {
			return errors.New("ringnet: wait timeout must be positive")
		}
		options.WaitTimeout = timeout
		return nil
	}
}

// WithBufferRing sets the geometry of the provided-buffer pool backing
// multishot reads. Count must be a power of two.
func WithBufferRing(count int, size int) Option {
	return func(options *Options) error {
		if count <= 0 || count&(count-1) != 0 {
			return errors.From(ring.ErrBufferCount, errors.WithMeta("count", strconv.Itoa(count)))
		}
		if size <= 0 {
			return errors.New("ringnet: buffer size must be positive")
		}
		options.BufferCount = count
		options.BufferSize = size
		return nil
	}
}

func WithBufferGroup(group uint16) Option {
	return func(options *Options) error {
		options.BufferGroup = group
		return nil
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(options *Options) error {
		options.Logger = &logger
		return nil
	}
}
