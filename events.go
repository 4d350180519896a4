//go:build linux

package ringnet

import (
	"syscall"
)

// ErrorEvent carries the positive kernel error number of a failed
// completion.
type ErrorEvent struct {
	Code syscall.Errno
}

func (e ErrorEvent) What() string {
	return e.Code.Error()
}

type AcceptEvent struct {
	ClientFd int
}

type ConnectEvent struct{}

// ReadEvent exposes the bytes of one read completion. For multishot reads
// the view borrows a provided buffer that returns to the kernel when the
// handler returns; consume or copy it before returning.
type ReadEvent struct {
	Fd    int
	Bytes []byte
}

// WriteEvent reports a completed write. Bytes is the source view the write
// was submitted with.
type WriteEvent struct {
	Fd    int
	Bytes []byte
}
