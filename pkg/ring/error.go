//go:build linux

package ring

import (
	"github.com/brickingsoft/errors"
)

var (
	ErrQueueFull     = errors.Define("Request queue is full")
	ErrClosed        = errors.Define("ring: closed")
	ErrTimeout       = errors.Define("ring: wait timeout")
	ErrInterrupted   = errors.Define("ring: wait interrupted")
	ErrNotReady      = errors.Define("ring: not ready")
	ErrNoBuffer      = errors.Define("ring: completion carries no buffer")
	ErrInvalidBuffer = errors.Define("ring: invalid buffer id")
	ErrBufferCount   = errors.Define("ring: buffer count must be a power of two")
)

// Retryable reports whether a Submit outcome only means the wait elapsed and
// the loop should submit again.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrInterrupted) || errors.Is(err, ErrNotReady)
}
