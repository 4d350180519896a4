//go:build linux

package ring

import (
	"testing"
)

func TestPendingQueueBounds(t *testing.T) {
	q := newPendingQueue(2)
	a := &Operation{magic: headerMagic}
	a.PrepareWrite(1, []byte("a"), nil)
	b := &Operation{magic: headerMagic}
	b.PrepareWrite(1, []byte("b"), nil)
	c := &Operation{magic: headerMagic}
	c.PrepareWrite(1, []byte("c"), nil)

	if !q.Enqueue(a) || !q.Enqueue(b) {
		t.Fatal("enqueue within capacity failed")
	}
	if q.Enqueue(c) {
		t.Fatal("enqueue beyond capacity succeeded")
	}
	if q.Len() != 2 {
		t.Fatal("unexpected length:", q.Len())
	}

	ops := make([]*Operation, 2)
	n := q.DrainInto(ops)
	if n != 2 {
		t.Fatal("unexpected drain count:", n)
	}
	if q.Len() != 0 {
		t.Fatal("queue not empty after drain")
	}
	if ops[0] != a || ops[1] != b {
		t.Fatal("drain broke same-kind ordering")
	}
}

func TestPendingQueueCancelsFirst(t *testing.T) {
	q := newPendingQueue(4)
	w := &Operation{magic: headerMagic}
	w.PrepareWrite(1, []byte("w"), nil)
	c := &Operation{magic: headerMagic}
	c.prepareCancel(1)

	q.Enqueue(w)
	q.Enqueue(c)

	ops := make([]*Operation, 4)
	n := q.DrainInto(ops)
	if n != 2 {
		t.Fatal("unexpected drain count:", n)
	}
	if ops[0] != c {
		t.Fatal("cancel not drained first")
	}
}
