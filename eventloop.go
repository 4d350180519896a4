//go:build linux

package ringnet

import (
	"os"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/ringnet/pkg/ring"
	"github.com/rs/zerolog"
)

// New creates an event loop whose kernel ring holds queueSize submission
// entries, and registers the provided-buffer pool multishot reads draw
// from. Failing to initialize the kernel ring is a construction-time error.
func New(queueSize int, opts ...Option) (loop *EventLoop, err error) {
	options := Options{
		WaitTimeout: DefaultWaitTimeout,
		BufferCount: DefaultBufferCount,
		BufferSize:  DefaultBufferSize,
		BufferGroup: ring.DefaultBufferGroup,
	}
	for _, opt := range opts {
		if err = opt(&options); err != nil {
			return
		}
	}
	var logger zerolog.Logger
	if options.Logger != nil {
		logger = *options.Logger
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Str("component", "ringnet").Logger()
	}
	r, ringErr := ring.New(queueSize, options.BufferGroup, logger)
	if ringErr != nil {
		err = ringErr
		return
	}
	buffers := make([][]byte, options.BufferCount)
	for i := range buffers {
		buffers[i] = make([]byte, options.BufferSize)
	}
	loop = &EventLoop{
		ring:        r,
		buffers:     buffers,
		waitTimeout: options.WaitTimeout,
		log:         logger,
	}
	loop.onError.Store(func(err error) {
		logger.Error().Err(err).Msg("event loop error")
	})
	if setupErr := r.SetupBufferRing(buffers); setupErr != nil {
		loop.handleError(setupErr)
	}
	return
}

// EventLoop drives the submission engine from one dedicated thread: the
// goroutine that calls Run owns the ring, submits pending requests, reaps
// completions and invokes subscriber callbacks. Every other method may be
// called from any goroutine.
type EventLoop struct {
	ring        *ring.Ring
	buffers     [][]byte
	waitTimeout time.Duration
	stopped     atomic.Bool
	onError     atomic.Value
	log         zerolog.Logger
}

// OnError replaces the engine-level error handler. It receives errors that
// have no owning subscriber: malformed completions, invalid buffer ids,
// hard submit failures. The default handler logs them.
func (loop *EventLoop) OnError(fn func(err error)) {
	if fn != nil {
		loop.onError.Store(fn)
	}
}

func (loop *EventLoop) handleError(err error) {
	if fn, ok := loop.onError.Load().(func(err error)); ok && fn != nil {
		fn(err)
	}
}

// Run loops until Stop is called: submit pending requests, wait up to the
// configured timeout for completions, dispatch each one to its subscriber.
// Callbacks run on the calling goroutine and should return promptly.
func (loop *EventLoop) Run() {
	loop.stopped.Store(false)
	for !loop.stopped.Load() {
		if err := loop.ring.Submit(loop.waitTimeout); err != nil {
			if ring.Retryable(err) {
				continue
			}
			loop.handleError(err)
			continue
		}
		loop.ring.ForEachCompletion(loop.dispatch)
	}
}

// Stop makes Run return after its current turn. Safe to call from any
// goroutine, including from a callback.
func (loop *EventLoop) Stop() {
	loop.stopped.Store(true)
}

// Close releases the buffer-ring registration and exits the kernel ring.
// Call it after Run has returned.
func (loop *EventLoop) Close() error {
	loop.Stop()
	loop.ring.Close()
	return nil
}

func (loop *EventLoop) dispatch(c ring.Completion) {
	sub := (*Subscriber)(c.Op.Subscriber())
	if sub == nil {
		loop.handleError(errors.New("ringnet: no subscriber", errors.WithMeta("request", c.Op.String())))
		return
	}
	if c.Res < 0 {
		loop.log.Warn().Str("request", c.Op.String()).Int32("res", c.Res).Msg("completion failed")
		loop.ring.BufferRing().Release(c)
		sub.handleError(ErrorEvent{Code: syscall.Errno(-c.Res)})
		return
	}
	switch c.Op.Kind() {
	case ring.OpAccept:
		sub.handleAccept(AcceptEvent{ClientFd: int(c.Res)})
	case ring.OpConnect:
		sub.handleConnect(ConnectEvent{})
	case ring.OpRead:
		sub.handleRead(ReadEvent{Fd: c.Op.Fd(), Bytes: c.Op.Bytes()[:c.Res]})
	case ring.OpReadMultishot:
		view, viewErr := loop.ring.BufferRing().Get(c)
		if viewErr != nil {
			loop.handleError(viewErr)
			return
		}
		sub.handleRead(ReadEvent{Fd: c.Op.Fd(), Bytes: view})
		loop.ring.BufferRing().Release(c)
	case ring.OpWrite:
		sub.handleWrite(WriteEvent{Fd: c.Op.Fd(), Bytes: c.Op.Bytes()})
	default:
		loop.handleError(errors.New("ringnet: malformed completion queue entry"))
	}
}

func (loop *EventLoop) add(op *ring.Operation) (err error) {
	if err = loop.ring.Push(op); err != nil {
		return
	}
	return
}

func (loop *EventLoop) cancel(fd int) {
	if err := loop.ring.CancelFd(fd); err != nil {
		loop.handleError(err)
	}
}

func (loop *EventLoop) acquireOperation() *ring.Operation {
	return loop.ring.AcquireOperation()
}

func (loop *EventLoop) bufferGroup() uint16 {
	return loop.ring.BufferRing().Group()
}
