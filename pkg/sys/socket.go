//go:build linux

package sys

import (
	"os"
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"
)

// NewSocket creates a non-blocking, close-on-exec stream socket of the
// given family.
func NewSocket(family int) (sock int, err error) {
	sock, err = syscall.Socket(family, syscall.SOCK_STREAM|syscall.SOCK_NONBLOCK|syscall.SOCK_CLOEXEC, 0)
	if err != nil {
		err = os.NewSyscallError("socket", err)
		return
	}
	return
}

func SetOption(sock int, level int, option int, enable bool) (err error) {
	value := 0
	if enable {
		value = 1
	}
	if optErr := syscall.SetsockoptInt(sock, level, option, value); optErr != nil {
		err = os.NewSyscallError("setsockopt", optErr)
	}
	return
}

func SetReuseAddr(sock int, enable bool) error {
	return SetOption(sock, syscall.SOL_SOCKET, unix.SO_REUSEADDR, enable)
}

// Connect is the blocking connect helper; the engine connects
// asynchronously, this exists for setup-time use only.
func Connect(sock int, addr *Addr) (err error) {
	raw, rawLen := addr.Raw()
	for {
		_, _, errno := syscall.Syscall(syscall.SYS_CONNECT, uintptr(sock), uintptr(unsafe.Pointer(raw)), uintptr(rawLen))
		if errno == 0 {
			return
		}
		if errno == syscall.EINTR {
			continue
		}
		err = os.NewSyscallError("connect", errno)
		return
	}
}

func Bind(sock int, addr *Addr) (err error) {
	raw, rawLen := addr.Raw()
	if _, _, errno := syscall.Syscall(syscall.SYS_BIND, uintptr(sock), uintptr(unsafe.Pointer(raw)), uintptr(rawLen)); errno != 0 {
		err = os.NewSyscallError("bind", errno)
	}
	return
}

func Listen(sock int, backlog int) (err error) {
	if backlog <= 0 || backlog > syscall.SOMAXCONN {
		backlog = syscall.SOMAXCONN
	}
	if listenErr := syscall.Listen(sock, backlog); listenErr != nil {
		err = os.NewSyscallError("listen", listenErr)
	}
	return
}
