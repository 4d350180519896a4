//go:build linux

package ringnet

import (
	"net"
	"strconv"
	"sync/atomic"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/ringnet/pkg/sys"
)

// NewAcceptor only constructs; no kernel work happens before Listen.
func NewAcceptor(loop *EventLoop, maxConnections int) *Acceptor {
	return &Acceptor{
		loop:           loop,
		sub:            NewSubscriber(),
		maxConnections: maxConnections,
	}
}

// Acceptor binds and listens on a stream socket, keeps one multishot accept
// registration armed, and manufactures a Connection for every accepted
// descriptor.
type Acceptor struct {
	loop           *EventLoop
	sub            *Subscriber
	maxConnections int
	listening      atomic.Bool
	socket         *sys.Fd
}

// OnNewConnection installs the acceptance callback. The callback owns the
// Connection it receives.
func (a *Acceptor) OnNewConnection(fn func(conn *Connection)) {
	a.sub.OnAccept(func(e AcceptEvent) {
		fn(newConnection(a.loop, sys.NewFd(e.ClientFd)))
	})
}

func (a *Acceptor) OnError(fn func(e ErrorEvent)) {
	a.sub.OnError(fn)
}

// Listen resolves the address with the passive flag, creates a socket of
// the resolved family, sets SO_REUSEADDR, binds, listens, then arms the
// multishot accept registration. Listening again on a live acceptor fails.
func (a *Acceptor) Listen(address string, port int) (err error) {
	if a.listening.Load() {
		err = errors.From(ErrAlreadyListening)
		return
	}
	hostport := net.JoinHostPort(address, strconv.Itoa(port))
	addr, resolveErr := sys.Resolve(address, port, true)
	if resolveErr != nil {
		err = errors.New("Error resolving address "+hostport, errors.WithWrap(resolveErr))
		return
	}
	sock, sockErr := sys.NewSocket(addr.Family())
	if sockErr != nil {
		err = errors.New("Error creating socket for "+hostport, errors.WithWrap(sockErr))
		return
	}
	a.socket = sys.NewFd(sock)
	if optErr := sys.SetReuseAddr(sock, true); optErr != nil {
		_ = a.socket.Close()
		err = errors.New("Error setting SO_REUSEADDR option to socket "+hostport, errors.WithWrap(optErr))
		return
	}
	if bindErr := sys.Bind(sock, addr); bindErr != nil {
		_ = a.socket.Close()
		err = errors.New("Error binding to "+hostport, errors.WithWrap(bindErr))
		return
	}
	if listenErr := sys.Listen(sock, a.maxConnections); listenErr != nil {
		_ = a.socket.Close()
		err = errors.New("Error listening to "+hostport, errors.WithWrap(listenErr))
		return
	}
	op := a.loop.acquireOperation()
	op.PrepareAccept(sock, a.sub.pointer())
	if pushErr := a.loop.add(op); pushErr != nil {
		_ = a.socket.Close()
		err = pushErr
		return
	}
	a.listening.Store(true)
	return
}

// Close cancels every outstanding operation on the listening descriptor,
// then drops it.
func (a *Acceptor) Close() (err error) {
	if a.socket != nil && a.socket.Valid() {
		a.loop.cancel(a.socket.Socket())
		err = a.socket.Close()
	}
	a.listening.Store(false)
	return
}
