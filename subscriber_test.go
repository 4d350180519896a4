//go:build linux

package ringnet

import (
	"sync"
	"testing"
)

func TestSubscriberReplacesCallback(t *testing.T) {
	sub := NewSubscriber()
	first := 0
	second := 0
	sub.OnRead(func(ReadEvent) { first++ })
	sub.OnRead(func(ReadEvent) { second++ })

	sub.handleRead(ReadEvent{})
	if first != 0 {
		t.Fatal("replaced callback was retained")
	}
	if second != 1 {
		t.Fatal("current callback not invoked")
	}
}

func TestSubscriberAbsentCallback(t *testing.T) {
	sub := NewSubscriber()
	sub.handleAccept(AcceptEvent{})
	sub.handleConnect(ConnectEvent{})
	sub.handleRead(ReadEvent{})
	sub.handleWrite(WriteEvent{})
	sub.handleError(ErrorEvent{})
}

func TestSubscriberConcurrentInstall(t *testing.T) {
	sub := NewSubscriber()
	stop := make(chan struct{})
	wg := new(sync.WaitGroup)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				sub.OnWrite(func(WriteEvent) {})
			}
		}
	}()
	for i := 0; i < 10000; i++ {
		sub.handleWrite(WriteEvent{})
	}
	close(stop)
	wg.Wait()
}
