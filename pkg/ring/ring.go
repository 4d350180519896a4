//go:build linux

package ring

import (
	"sync"
	"sync/atomic"
	"syscall"
	"time"
	"unsafe"

	"github.com/brickingsoft/errors"
	"github.com/pawelgaczynski/giouring"
	"github.com/rs/zerolog"
)

const defaultRingSize = 1024

func New(size int, group uint16, log zerolog.Logger) (r *Ring, err error) {
	if size <= 0 {
		size = defaultRingSize
	}
	ring, ringErr := giouring.CreateRing(uint32(size))
	if ringErr != nil {
		err = errors.New("ring: init failed", errors.WithWrap(ringErr))
		return
	}
	r = &Ring{
		ring:     ring,
		pending:  newPendingQueue(size),
		drained:  make([]*Operation, size),
		cq:       make([]*giouring.CompletionQueueEvent, size),
		inflight: make(map[*Operation]struct{}, size),
		log:      log,
	}
	r.buffers = newBufferRing(ring, group)
	r.operations = sync.Pool{
		New: func() interface{} {
			return &Operation{magic: headerMagic, fd: invalidFd}
		},
	}
	return
}

// Ring mediates all interaction with the kernel ring. Push and CancelFd may
// be called from any thread; Submit, ForEachCompletion and Close must be
// driven from the one loop thread that owns the ring.
type Ring struct {
	ring       *giouring.Ring
	pending    *pendingQueue
	overflow   []*Operation
	drained    []*Operation
	cq         []*giouring.CompletionQueueEvent
	inflight   map[*Operation]struct{}
	buffers    *BufferRing
	operations sync.Pool
	closed     atomic.Bool
	log        zerolog.Logger
}

// Completion is one reaped completion entry, already resolved to its
// issuing record.
type Completion struct {
	Op    *Operation
	Res   int32
	Flags uint32
}

func (r *Ring) AcquireOperation() *Operation {
	return r.operations.Get().(*Operation)
}

func (r *Ring) releaseOperation(op *Operation) {
	op.reset()
	r.operations.Put(op)
}

// Push enqueues a prepared record for the next submission batch. The record
// must have been acquired from this ring.
func (r *Ring) Push(op *Operation) (err error) {
	if r.closed.Load() {
		r.releaseOperation(op)
		err = errors.From(ErrClosed)
		return
	}
	if !r.pending.Enqueue(op) {
		r.releaseOperation(op)
		err = errors.From(ErrQueueFull)
	}
	return
}

// CancelFd enqueues one kernel cancel covering every outstanding operation
// on the descriptor. Records already in flight for it are marked cancelled
// when the cancel is prepared, and their remaining completions are
// discarded.
func (r *Ring) CancelFd(fd int) (err error) {
	op := r.AcquireOperation()
	op.prepareCancel(fd)
	err = r.Push(op)
	return
}

func (r *Ring) BufferRing() *BufferRing {
	return r.buffers
}

func (r *Ring) SetupBufferRing(buffers [][]byte) error {
	return r.buffers.Setup(buffers)
}

// Submit prepares all pending records, submits them as one batch, then
// waits up to timeout for at least one completion. A retryable error (see
// Retryable) means nothing completed within the wait.
func (r *Ring) Submit(timeout time.Duration) (err error) {
	r.prepare()
	ts := syscall.NsecToTimespec(timeout.Nanoseconds())
	if _, waitErr := r.ring.SubmitAndWaitTimeout(1, &ts, nil); waitErr != nil {
		switch {
		case errors.Is(waitErr, syscall.ETIME):
			err = errors.From(ErrTimeout)
		case errors.Is(waitErr, syscall.EINTR):
			err = errors.From(ErrInterrupted)
		case errors.Is(waitErr, syscall.EAGAIN), errors.Is(waitErr, syscall.EBUSY):
			err = errors.From(ErrNotReady)
		default:
			err = errors.New("ring: submit failed", errors.WithWrap(waitErr))
		}
	}
	return
}

// prepare drains the pending queue into submission entries. Records that do
// not fit the submission queue this turn are carried over, none are lost.
func (r *Ring) prepare() {
	if len(r.overflow) > 0 {
		carried := r.overflow
		r.overflow = r.overflow[:0]
		for i, op := range carried {
			if !r.prepareOne(op) {
				r.overflow = append(r.overflow, carried[i:]...)
				return
			}
		}
	}
	n := r.pending.DrainInto(r.drained)
	for i := 0; i < n; i++ {
		op := r.drained[i]
		if !r.prepareOne(op) {
			for j := i; j < n; j++ {
				r.overflow = append(r.overflow, r.drained[j])
				r.drained[j] = nil
			}
			return
		}
		r.drained[i] = nil
	}
}

func (r *Ring) prepareOne(op *Operation) bool {
	sqe := r.ring.GetSQE()
	if sqe == nil {
		if _, submitErr := r.ring.Submit(); submitErr != nil {
			return false
		}
		if sqe = r.ring.GetSQE(); sqe == nil {
			return false
		}
	}
	switch op.op {
	case OpAccept:
		sqe.PrepareMultishotAccept(op.fd, 0, 0, 0)
	case OpConnect:
		sqe.PrepareConnect(op.fd, (*syscall.Sockaddr)(unsafe.Pointer(op.sa)), uint64(op.saLen))
	case OpRead:
		sqe.PrepareRecv(op.fd, uintptr(unsafe.Pointer(&op.b[0])), uint32(len(op.b)), 0)
	case OpReadMultishot:
		sqe.PrepareRecvMultishot(op.fd, 0, 0, 0)
		sqe.Flags |= giouring.SqeBufferSelect
		sqe.BufIG = op.group
	case OpWrite:
		sqe.PrepareSend(op.fd, uintptr(unsafe.Pointer(&op.b[0])), uint32(len(op.b)), 0)
	case opCancel:
		sqe.PrepareCancelFd(op.fd, giouring.AsyncCancelAll)
		r.markCanceled(op.fd)
	default:
		sqe.PrepareNop()
	}
	sqe.SetData(unsafe.Pointer(op))
	r.inflight[op] = struct{}{}
	return true
}

func (r *Ring) markCanceled(fd int) {
	for op := range r.inflight {
		if op.fd == fd && op.op != opCancel {
			op.canceled.Store(true)
		}
	}
}

// ForEachCompletion iterates the completion entries present in the ring,
// invoking fn for each valid one, then applies the record lifetime rules:
// single-shot records are released after their one dispatch, multishot
// records persist until the kernel drops the registration or the descriptor
// is cancelled, and are re-armed when the kernel drops them without error.
func (r *Ring) ForEachCompletion(fn func(c Completion)) (n int) {
	completed := r.ring.PeekBatchCQE(r.cq)
	if completed == 0 {
		return
	}
	for i := uint32(0); i < completed; i++ {
		cqe := r.cq[i]
		r.cq[i] = nil
		if cqe.UserData == 0 {
			r.log.Error().Msg("ring: malformed completion queue entry")
			continue
		}
		op := (*Operation)(unsafe.Pointer(uintptr(cqe.UserData)))
		if !op.valid() {
			r.log.Error().Msg("ring: invalid request header")
			continue
		}
		c := Completion{Op: op, Res: cqe.Res, Flags: cqe.Flags}
		more := cqe.Flags&giouring.CQEFMore != 0
		if op.op == opCancel {
			if !more {
				r.release(op)
			}
			continue
		}
		if op.Canceled() {
			// The owning resource is gone; drop the completion and
			// reclaim the record once the kernel is done with it.
			r.buffers.Release(c)
			r.log.Debug().Str("request", op.String()).Msg("ring: discarded completion of cancelled operation")
			if !more {
				r.release(op)
			}
			continue
		}
		n++
		fn(c)
		if !op.op.Multishot() {
			r.release(op)
			continue
		}
		if more {
			continue
		}
		if cqe.Res < 0 {
			// The kernel terminated the registration; the error event
			// was dispatched above, do not re-arm.
			r.release(op)
			continue
		}
		// Registration dropped without error, re-arm it.
		delete(r.inflight, op)
		if !r.pending.Enqueue(op) {
			r.log.Error().Str("request", op.String()).Msg("ring: re-arm failed, queue is full")
			r.releaseOperation(op)
		}
	}
	r.ring.CQAdvance(completed)
	return
}

func (r *Ring) release(op *Operation) {
	delete(r.inflight, op)
	r.releaseOperation(op)
}

// PendingLen reports the number of records waiting for preparation,
// including carried-over ones.
func (r *Ring) PendingLen() int {
	return r.pending.Len() + len(r.overflow)
}

// Close evicts pending records, frees the buffer-ring registration and
// exits the kernel ring. Must run on the loop thread after the loop has
// stopped.
func (r *Ring) Close() {
	if !r.closed.CompareAndSwap(false, true) {
		return
	}
	n := r.pending.DrainInto(r.drained)
	for i := 0; i < n; i++ {
		r.releaseOperation(r.drained[i])
		r.drained[i] = nil
	}
	for i := range r.overflow {
		r.releaseOperation(r.overflow[i])
	}
	r.overflow = nil
	r.buffers.Free()
	r.ring.QueueExit()
}
