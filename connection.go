//go:build linux

package ringnet

import (
	"fmt"
	"net"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/ringnet/pkg/sys"
	"github.com/google/uuid"
)

// Endpoint identifies a connection by its descriptor; it is comparable and
// ordered, suitable as a map key.
type Endpoint struct {
	Fd int
}

func (e Endpoint) Less(other Endpoint) bool {
	return e.Fd < other.Fd
}

func (e Endpoint) String() string {
	return fmt.Sprintf("endpoint(fd=%d)", e.Fd)
}

func newConnection(loop *EventLoop, socket *sys.Fd) *Connection {
	return &Connection{
		loop:     loop,
		socket:   socket,
		id:       uuid.NewString(),
		sub:      NewSubscriber(),
		endpoint: Endpoint{Fd: socket.Socket()},
	}
}

// Connection is the per-socket façade for asynchronous reading and
// writing. Connections are manufactured by an Acceptor or a Connector and
// own their descriptor; Close cancels all outstanding kernel work on it
// before it is dropped.
type Connection struct {
	loop     *EventLoop
	socket   *sys.Fd
	id       string
	sub      *Subscriber
	endpoint Endpoint
}

// ID is the connection's session id, stable for its lifetime.
func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) Endpoint() Endpoint {
	return c.endpoint
}

func (c *Connection) LocalAddr() net.Addr {
	return c.socket.LocalAddr()
}

func (c *Connection) RemoteAddr() net.Addr {
	return c.socket.RemoteAddr()
}

// AsyncRead arms a multishot read registration on the socket: read events
// flow to the connection's subscriber until the descriptor is cancelled.
// Calling it again re-arms the registration.
func (c *Connection) AsyncRead() (err error) {
	op := c.loop.acquireOperation()
	op.PrepareReadMultishot(c.socket.Socket(), c.loop.bufferGroup(), c.sub.pointer())
	err = c.loop.add(op)
	return
}

// AsyncReadInto enqueues one single-shot read into the caller-owned buffer
// b; the read event carries b truncated to the bytes received. A
// zero-length event signals the peer closed its end. b must stay valid
// until the event fires.
func (c *Connection) AsyncReadInto(b []byte) (err error) {
	if len(b) == 0 {
		err = errors.From(ErrEmptyBytes)
		return
	}
	op := c.loop.acquireOperation()
	op.PrepareRead(c.socket.Socket(), b, c.sub.pointer())
	err = c.loop.add(op)
	return
}

// AsyncWrite enqueues one single-shot write covering b. The engine pins b
// until the write event fires; the caller must not mutate it before then.
func (c *Connection) AsyncWrite(b []byte) (err error) {
	if len(b) == 0 {
		err = errors.From(ErrEmptyBytes)
		return
	}
	op := c.loop.acquireOperation()
	op.PrepareWrite(c.socket.Socket(), b, c.sub.pointer())
	err = c.loop.add(op)
	return
}

func (c *Connection) OnError(fn func(e ErrorEvent)) {
	c.sub.OnError(fn)
}

func (c *Connection) OnRead(fn func(e ReadEvent)) {
	c.sub.OnRead(fn)
}

func (c *Connection) OnWrite(fn func(e WriteEvent)) {
	c.sub.OnWrite(fn)
}

// Close cancels every outstanding operation on the descriptor, then closes
// it.
func (c *Connection) Close() (err error) {
	if c.socket != nil && c.socket.Valid() {
		c.loop.cancel(c.socket.Socket())
		err = c.socket.Close()
	}
	return
}
