/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"net"
	"time"

	"github.com/panyam/halley/eds"
	"github.com/panyam/halley/eds/elog"
)

// readChunkSize is the fixed window the reader stage pulls off the
// socket per iteration, ("read up to a fixed chunk
// (≈2 KiB)").
const readChunkSize = 2048

// ReaderStage implements eds.Handler for eds.EventReadRequest events.
// It owns one piece of per-connection state: an
// Assembler tracking the HTTP parse state machine.
//
// net.Conn has no raw EAGAIN the way a non-blocking socket read does,
// so edge-triggered draining is simulated the idiomatic Go way: set a
// read deadline of "now" before every Read. The runtime always tries
// a non-blocking read first, so if bytes are already buffered they
// come back immediately; otherwise Read returns a timeout error
// immediately without blocking the worker, which this stage treats
// exactly like EAGAIN.
type ReaderStage struct {
	StageID uint64
	Server  *eds.Server
	Handler *eds.Stage
}

// HandleEvent implements eds.Handler.
func (r *ReaderStage) HandleEvent(e eds.Event) {
	c := e.Conn
	defer c.Release()
	if c == nil || !c.IsAlive() {
		return
	}

	asm := c.StageState(r.StageID, func() any { return NewAssembler() }).(*Assembler)

	if c.State() == eds.StateIdle {
		r.Server.SetConnectionState(c, eds.StateReading)
	}
	if c.State() != eds.StateReading {
		return
	}

	if !r.fill(c) {
		return
	}

	n, complete, err := asm.Feed(c.RecvBuf)
	c.RecvBuf = c.RecvBuf[n:]
	if err != nil {
		elog.Warningf("eds/http: malformed request on conn %d: %v", c.ID, err)
		r.Server.SetConnectionState(c, eds.StateClosed)
		return
	}
	if !complete {
		// Not enough bytes yet; remain READING, awaiting more readiness.
		return
	}

	req := asm.Request()
	req.Conn = c
	req.RemoteAddr = remoteAddr(c.Socket)
	asm.Reset()

	// A pipelined second request may already be sitting in RecvBuf;
	// clear dataConsumed so sweep() re-arms a read once this one
	// finishes instead of waiting for another readiness edge that
	// will never come.
	if len(c.RecvBuf) > 0 {
		c.SetDataConsumed(false)
	}

	r.Server.SetConnectionState(c, eds.StateProcessing)
	c.Retain()
	r.Handler.QueueEvent(eds.Event{Kind: EventRequestArrived, Conn: c, Payload: req, Priority: eds.DefaultPriority})
}

// fill reads as many bytes as are currently available into c.RecvBuf,
// returning false if the connection was closed/torn down in the
// process (so the caller must not touch it further).
func (r *ReaderStage) fill(c *eds.Connection) bool {
	buf := make([]byte, readChunkSize)
	for {
		c.Socket.SetReadDeadline(time.Now())
		n, err := c.Socket.Read(buf)
		if n > 0 {
			c.RecvBuf = append(c.RecvBuf, buf[:n]...)
			c.SetDataConsumed(false)
		}
		if err == nil {
			continue
		}
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			c.SetDataConsumed(true)
			return true
		}
		if n == 0 {
			r.Server.SetConnectionState(c, eds.StatePeerClosed)
			return false
		}
		elog.Warningf("eds/http: %v", &eds.ConnectionError{ConnID: c.ID, Op: "read", Err: err})
		r.Server.SetConnectionState(c, eds.StateClosed)
		return false
	}
}

func remoteAddr(conn net.Conn) string {
	if conn == nil || conn.RemoteAddr() == nil {
		return ""
	}
	return conn.RemoteAddr().String()
}
