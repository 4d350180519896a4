//go:build linux

package ring

import (
	"testing"
	"time"
	"unsafe"

	"github.com/brickingsoft/errors"
	"github.com/pawelgaczynski/giouring"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

func newTestRing(t *testing.T, size int) *Ring {
	t.Helper()
	r, err := New(size, DefaultBufferGroup, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(r.Close)
	return r
}

func socketPair(t *testing.T) [2]int {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = unix.Close(fds[0])
		_ = unix.Close(fds[1])
	})
	return fds
}

func turn(t *testing.T, r *Ring, fn func(c Completion)) int {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if err := r.Submit(50 * time.Millisecond); err != nil {
			if Retryable(err) {
				continue
			}
			t.Fatal(err)
		}
		if n := r.ForEachCompletion(fn); n > 0 {
			return n
		}
	}
	t.Fatal("no completion before deadline")
	return 0
}

func TestRingSingleShotLifecycle(t *testing.T) {
	r := newTestRing(t, 8)
	fds := socketPair(t)

	var sub int
	op := r.AcquireOperation()
	op.PrepareWrite(fds[0], []byte("ping"), unsafe.Pointer(&sub))
	if err := r.Push(op); err != nil {
		t.Fatal(err)
	}

	var got Completion
	turn(t, r, func(c Completion) { got = c })

	if got.Op == nil || got.Op.Subscriber() != unsafe.Pointer(&sub) {
		t.Fatal("completion did not resolve to the issuing record")
	}
	if got.Res != 4 {
		t.Fatal("unexpected write result:", got.Res)
	}
	if len(r.inflight) != 0 {
		t.Fatal("single-shot record not released after dispatch")
	}
	if r.PendingLen() != 0 {
		t.Fatal("pending queue not drained")
	}
}

func TestRingWriteOrdering(t *testing.T) {
	r := newTestRing(t, 16)
	fds := socketPair(t)

	var sub int
	for _, msg := range []string{"first", "second", "third"} {
		op := r.AcquireOperation()
		op.PrepareWrite(fds[0], []byte(msg), unsafe.Pointer(&sub))
		if err := r.Push(op); err != nil {
			t.Fatal(err)
		}
	}

	sizes := make([]int32, 0, 3)
	for len(sizes) < 3 {
		turn(t, r, func(c Completion) { sizes = append(sizes, c.Res) })
	}
	if sizes[0] != 5 || sizes[1] != 6 || sizes[2] != 5 {
		t.Fatal("writes completed out of program order:", sizes)
	}

	b := make([]byte, 32)
	n, _ := unix.Read(fds[1], b)
	if string(b[:n]) != "firstsecondthird" {
		t.Fatal("unexpected stream content:", string(b[:n]))
	}
}

func TestRingCancelDiscardsCompletions(t *testing.T) {
	r := newTestRing(t, 8)
	fds := socketPair(t)

	var sub int
	op := r.AcquireOperation()
	op.PrepareRead(fds[0], make([]byte, 8), unsafe.Pointer(&sub))
	if err := r.Push(op); err != nil {
		t.Fatal(err)
	}
	// Arm the read, then cancel every operation on the descriptor. The
	// cancelled read's completion must be discarded, not dispatched.
	if err := r.Submit(10 * time.Millisecond); err != nil && !Retryable(err) {
		t.Fatal(err)
	}
	if err := r.CancelFd(fds[0]); err != nil {
		t.Fatal(err)
	}

	dispatched := 0
	deadline := time.Now().Add(5 * time.Second)
	for len(r.inflight) > 0 && time.Now().Before(deadline) {
		if err := r.Submit(50 * time.Millisecond); err != nil && !Retryable(err) {
			t.Fatal(err)
		}
		dispatched += r.ForEachCompletion(func(c Completion) {})
	}
	if dispatched != 0 {
		t.Fatal("cancelled operation was dispatched")
	}
	if len(r.inflight) != 0 {
		t.Fatal("records leaked after cancellation")
	}
}

func TestBufferRingRecycling(t *testing.T) {
	const bufferCount = 4
	r := newTestRing(t, 8)
	buffers := make([][]byte, bufferCount)
	for i := range buffers {
		buffers[i] = make([]byte, 64)
	}
	if err := r.SetupBufferRing(buffers); err != nil {
		t.Fatal(err)
	}
	fds := socketPair(t)

	var sub int
	op := r.AcquireOperation()
	op.PrepareReadMultishot(fds[1], r.BufferRing().Group(), unsafe.Pointer(&sub))
	if err := r.Push(op); err != nil {
		t.Fatal(err)
	}

	seen := make(map[int]int)
	for i := 0; i < bufferCount+2; i++ {
		if _, err := unix.Write(fds[0], []byte("pong")); err != nil {
			t.Fatal(err)
		}
		turn(t, r, func(c Completion) {
			if c.Flags&giouring.CQEFBuffer == 0 {
				t.Fatal("multishot read completion carries no buffer")
			}
			id := int(c.Flags >> giouring.CQEBufferShift)
			if id < 0 || id >= bufferCount {
				t.Fatal("buffer id out of range:", id)
			}
			view, viewErr := r.BufferRing().Get(c)
			if viewErr != nil {
				t.Fatal(viewErr)
			}
			if len(view) != int(c.Res) {
				t.Fatal("borrowed view length does not match completion result")
			}
			seen[id]++
			r.BufferRing().Release(c)
		})
	}
	reused := false
	for _, count := range seen {
		if count > 1 {
			reused = true
		}
	}
	if !reused {
		t.Fatal("no buffer was reused across", bufferCount+2, "completions:", seen)
	}
}

func TestRingQueueFull(t *testing.T) {
	r := newTestRing(t, 2)
	fds := socketPair(t)

	var sub int
	pushed := 0
	var full error
	for i := 0; i < 8; i++ {
		op := r.AcquireOperation()
		op.PrepareWrite(fds[0], []byte("x"), unsafe.Pointer(&sub))
		if err := r.Push(op); err != nil {
			full = err
			break
		}
		pushed++
	}
	if full == nil {
		t.Fatal("bounded queue accepted every push")
	}
	if !errors.Is(full, ErrQueueFull) {
		t.Fatal("unexpected error:", full)
	}

	// Nothing pushed so far may be lost.
	completed := 0
	for completed < pushed {
		completed += turn(t, r, func(c Completion) {})
	}
}
