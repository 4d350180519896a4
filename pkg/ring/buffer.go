//go:build linux

package ring

import (
	"strconv"
	"unsafe"

	"github.com/brickingsoft/errors"
	"github.com/pawelgaczynski/giouring"
)

// DefaultBufferGroup is the buffer group id used when the caller does not
// pick one.
const DefaultBufferGroup uint16 = 1

// BufferRing registers a pool of equally sized buffers with the kernel so
// multishot reads can have the kernel pick one per completion. A buffer is
// either in the ring (the kernel may hand it out), borrowed (exposed in a
// read event), or being re-added after release.
type BufferRing struct {
	ring    *giouring.Ring
	br      *giouring.BufAndRing
	buffers [][]byte
	group   uint16
	mask    int
}

func newBufferRing(r *giouring.Ring, group uint16) *BufferRing {
	return &BufferRing{ring: r, group: group}
}

func (b *BufferRing) Group() uint16 {
	return b.group
}

// Setup registers the given application-owned buffers as one kernel buffer
// group. The count must be a power of two. A previous registration is freed
// first.
func (b *BufferRing) Setup(buffers [][]byte) (err error) {
	count := len(buffers)
	if count == 0 || count&(count-1) != 0 {
		err = errors.From(ErrBufferCount, errors.WithMeta("count", strconv.Itoa(count)))
		return
	}
	if b.br != nil {
		b.Free()
	}
	br, setupErr := b.ring.SetupBufRing(uint32(count), int(b.group), 0)
	if setupErr != nil {
		err = errors.New("ring: buffer ring setup failed", errors.WithWrap(setupErr))
		return
	}
	mask := giouring.BufRingMask(uint32(count))
	for id := 0; id < count; id++ {
		buf := buffers[id]
		br.BufRingAdd(uintptr(unsafe.Pointer(&buf[0])), uint32(len(buf)), uint16(id), mask, id)
	}
	br.BufRingAdvance(count)
	b.br = br
	b.buffers = buffers
	b.mask = mask
	return
}

// Get resolves the buffer the kernel picked for the completion and returns
// it truncated to the completion's byte count. The buffer stays out of the
// ring until Release.
func (b *BufferRing) Get(c Completion) (view []byte, err error) {
	if c.Flags&giouring.CQEFBuffer == 0 {
		err = errors.From(ErrNoBuffer)
		return
	}
	id := int(c.Flags >> giouring.CQEBufferShift)
	if id < 0 || id >= len(b.buffers) {
		err = errors.From(ErrInvalidBuffer, errors.WithMeta("id", strconv.Itoa(id)))
		return
	}
	view = b.buffers[id][:c.Res]
	return
}

// Release re-adds the completion's buffer to the kernel ring and advances
// the ring head so the kernel may hand it out again.
func (b *BufferRing) Release(c Completion) {
	if c.Flags&giouring.CQEFBuffer == 0 {
		return
	}
	id := int(c.Flags >> giouring.CQEBufferShift)
	if id < 0 || id >= len(b.buffers) {
		return
	}
	buf := b.buffers[id]
	b.br.BufRingAdd(uintptr(unsafe.Pointer(&buf[0])), uint32(len(buf)), uint16(id), b.mask, 0)
	b.br.BufRingAdvance(1)
}

func (b *BufferRing) Free() {
	if b.br == nil {
		return
	}
	_ = b.ring.FreeBufRing(int(b.group))
	b.br = nil
	b.buffers = nil
}
