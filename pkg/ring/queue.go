//go:build linux

package ring

import (
	"sync"

	"github.com/eapache/queue"
)

// pendingQueue collects request records pushed from arbitrary threads until
// the loop thread drains them for preparation. One FIFO per opcode keeps
// same-kind requests in program order. Bounded: a full queue is reported to
// the pusher synchronously, nothing is dropped.
type pendingQueue struct {
	mu       sync.Mutex
	fifos    [6]*queue.Queue
	length   int
	capacity int
}

func newPendingQueue(capacity int) *pendingQueue {
	q := &pendingQueue{capacity: capacity}
	for i := range q.fifos {
		q.fifos[i] = queue.New()
	}
	return q
}

func fifoIndex(op Op) int {
	switch op {
	case opCancel:
		return 0
	case OpAccept:
		return 1
	case OpConnect:
		return 2
	case OpRead:
		return 3
	case OpReadMultishot:
		return 4
	default:
		return 5
	}
}

func (q *pendingQueue) Enqueue(op *Operation) bool {
	q.mu.Lock()
	if q.length >= q.capacity {
		q.mu.Unlock()
		return false
	}
	q.fifos[fifoIndex(op.op)].Add(op)
	q.length++
	q.mu.Unlock()
	return true
}

// DrainInto moves every pending record into ops, cancels first, and returns
// the count. Must be called with len(ops) >= the queue capacity.
func (q *pendingQueue) DrainInto(ops []*Operation) int {
	q.mu.Lock()
	n := 0
	for i := range q.fifos {
		fifo := q.fifos[i]
		for fifo.Length() > 0 {
			ops[n] = fifo.Remove().(*Operation)
			n++
		}
	}
	q.length = 0
	q.mu.Unlock()
	return n
}

func (q *pendingQueue) Len() int {
	q.mu.Lock()
	n := q.length
	q.mu.Unlock()
	return n
}
