//go:build linux

package ringnet

import (
	"sync"
	"unsafe"
)

func NewSubscriber() *Subscriber {
	return &Subscriber{}
}

// Subscriber is the per-resource event sink: one callback slot per event
// kind. Slots are installed from application threads and read from the loop
// thread, serialized by one small mutex. Installing a callback replaces the
// previous one. The loop references a subscriber by address for as long as
// its resource has operations in flight, so subscribers live behind a
// stable pointer and are never copied.
type Subscriber struct {
	mu        sync.Mutex
	onAccept  func(AcceptEvent)
	onConnect func(ConnectEvent)
	onRead    func(ReadEvent)
	onWrite   func(WriteEvent)
	onError   func(ErrorEvent)
}

func (s *Subscriber) pointer() unsafe.Pointer {
	return unsafe.Pointer(s)
}

func (s *Subscriber) OnAccept(fn func(AcceptEvent)) {
	s.mu.Lock()
	s.onAccept = fn
	s.mu.Unlock()
}

func (s *Subscriber) OnConnect(fn func(ConnectEvent)) {
	s.mu.Lock()
	s.onConnect = fn
	s.mu.Unlock()
}

func (s *Subscriber) OnRead(fn func(ReadEvent)) {
	s.mu.Lock()
	s.onRead = fn
	s.mu.Unlock()
}

func (s *Subscriber) OnWrite(fn func(WriteEvent)) {
	s.mu.Lock()
	s.onWrite = fn
	s.mu.Unlock()
}

func (s *Subscriber) OnError(fn func(ErrorEvent)) {
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}

func (s *Subscriber) handleAccept(e AcceptEvent) {
	s.mu.Lock()
	fn := s.onAccept
	s.mu.Unlock()
	if fn != nil {
		fn(e)
	}
}

func (s *Subscriber) handleConnect(e ConnectEvent) {
	s.mu.Lock()
	fn := s.onConnect
	s.mu.Unlock()
	if fn != nil {
		fn(e)
	}
}

func (s *Subscriber) handleRead(e ReadEvent) {
	s.mu.Lock()
	fn := s.onRead
	s.mu.Unlock()
	if fn != nil {
		fn(e)
	}
}

func (s *Subscriber) handleWrite(e WriteEvent) {
	s.mu.Lock()
	fn := s.onWrite
	s.mu.Unlock()
	if fn != nil {
		fn(e)
	}
}

func (s *Subscriber) handleError(e ErrorEvent) {
	s.mu.Lock()
	fn := s.onError
	s.mu.Unlock()
	if fn != nil {
		fn(e)
	}
}
