//go:build linux

// Package ringnet is a callback-driven asynchronous TCP networking library
// built directly on the kernel's completion ring. An EventLoop owns the
// ring from one goroutine; Acceptor, Connector and Connection translate
// listen/connect/read/write into ring requests and deliver typed events to
// callbacks, using multishot accept, multishot reads backed by
// kernel-provided buffers, and single-shot writes.
//
//	loop, _ := ringnet.New(1024)
//	server := ringnet.NewAcceptor(loop, 128)
//	server.OnNewConnection(func(conn *ringnet.Connection) {
//		conn.OnRead(func(e ringnet.ReadEvent) {
//			echo := append([]byte(nil), e.Bytes...)
//			_ = conn.AsyncWrite(echo)
//		})
//		_ = conn.AsyncRead()
//	})
//	_ = server.Listen("127.0.0.1", 4242)
//	loop.Run()
package ringnet
