//go:build linux

package ringnet

import (
	"net"
	"strconv"
	"sync/atomic"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/ringnet/pkg/sys"
)

const (
	connectorDisconnected int32 = iota
	connectorPending
	connectorConnected
)

func NewConnector(loop *EventLoop) *Connector {
	return &Connector{
		loop: loop,
		sub:  NewSubscriber(),
	}
}

// Connector resolves a hostname, requests one asynchronous connect and
// delivers a Connection exactly once on success. While a connect is
// pending the resolved address is pinned here: the kernel reads the
// sockaddr when the operation runs, not when it is pushed.
type Connector struct {
	loop   *EventLoop
	sub    *Subscriber
	status atomic.Int32
	socket *sys.Fd
	addr   *sys.Addr
}

// OnConnection installs the success callback. Ownership of the connected
// descriptor transfers into the delivered Connection.
func (c *Connector) OnConnection(fn func(conn *Connection)) {
	c.sub.OnConnect(func(ConnectEvent) {
		c.status.Store(connectorConnected)
		fn(newConnection(c.loop, sys.NewFd(c.socket.Detach())))
	})
}

func (c *Connector) OnError(fn func(e ErrorEvent)) {
	c.sub.OnError(func(e ErrorEvent) {
		c.status.CompareAndSwap(connectorPending, connectorDisconnected)
		fn(e)
	})
}

func (c *Connector) AsyncConnect(address string, port int) (err error) {
	if c.status.Load() == connectorPending {
		err = errors.From(ErrPendingConnection)
		return
	}
	hostport := net.JoinHostPort(address, strconv.Itoa(port))
	addr, resolveErr := sys.Resolve(address, port, false)
	if resolveErr != nil {
		err = errors.New("Error resolving address "+hostport, errors.WithWrap(resolveErr))
		return
	}
	c.addr = addr
	if c.socket != nil && c.socket.Valid() {
		_ = c.socket.Close()
	}
	sock, sockErr := sys.NewSocket(addr.Family())
	if sockErr != nil {
		err = errors.New("Error creating socket for "+hostport, errors.WithWrap(sockErr))
		return
	}
	c.socket = sys.NewFd(sock)
	if optErr := sys.SetReuseAddr(sock, true); optErr != nil {
		_ = c.socket.Close()
		err = errors.New("Error setting SO_REUSEADDR option to socket "+hostport, errors.WithWrap(optErr))
		return
	}
	raw, rawLen := addr.Raw()
	op := c.loop.acquireOperation()
	op.PrepareConnect(sock, raw, rawLen, c.sub.pointer())
	if pushErr := c.loop.add(op); pushErr != nil {
		_ = c.socket.Close()
		err = pushErr
		return
	}
	c.status.Store(connectorPending)
	return
}

// Close cancels any outstanding connect and drops the descriptor unless it
// was already handed to a Connection.
func (c *Connector) Close() (err error) {
	if c.socket != nil && c.socket.Valid() {
		c.loop.cancel(c.socket.Socket())
		err = c.socket.Close()
	}
	c.status.Store(connectorDisconnected)
	return
}
