//go:build linux

package ringnet

import (
	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/ringnet/pkg/ring"
)

var (
	ErrAlreadyListening  = errors.Define("Already listening")
	ErrPendingConnection = errors.Define("Already pending connection")
	ErrEmptyBytes        = errors.Define("ringnet: empty bytes")
	ErrQueueFull         = ring.ErrQueueFull
	ErrClosed            = ring.ErrClosed
)

func IsAlreadyListening(err error) bool {
	return errors.Is(err, ErrAlreadyListening)
}

func IsPendingConnection(err error) bool {
	return errors.Is(err, ErrPendingConnection)
}

func IsQueueFull(err error) bool {
	return errors.Is(err, ErrQueueFull)
}

func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}
