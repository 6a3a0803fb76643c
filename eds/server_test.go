/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package eds

import (
	"net"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

// TestServerAcceptAndClose drives a real loopback connection through
// the accept loop and confirms it is observed by the reader stage,
// exercising the actual epoll poller, then closes the client and shuts
// the server down.
func TestServerAcceptAndClose(t *testing.T) {
	var reads int32
	reader := NewStage("reader", 1, HandlerFunc(func(e Event) {
		atomic.AddInt32(&reads, 1)
		e.Conn.Release()
	}))
	writer := NewStage("writer", 1, HandlerFunc(func(e Event) {
		e.Conn.Release()
	}))
	handler := NewStage("handler", 0, HandlerFunc(func(Event) {}))

	s := NewServer(0, reader, writer, handler)

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skip("loopback networking unavailable in this sandbox")
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	s.Port = port

	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe() }()
	defer s.Shutdown()

	// Give the accept loop a moment to bind and start polling.
	var conn net.Conn
	for i := 0; i < 50; i++ {
		conn, err = net.Dial("tcp4", "127.0.0.1:"+strconv.Itoa(port))
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Skipf("could not dial loopback server: %v", err)
	}
	defer conn.Close()

	conn.Write([]byte("hello"))

	deadline := time.After(time.Second)
	for atomic.LoadInt32(&reads) == 0 {
		select {
		case <-deadline:
			t.Fatalf("reader stage never observed a read-ready event")
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}
