/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"bytes"
	"net"
	"os"
	"sync"
	"time"

	"github.com/panyam/halley/eds"
	"github.com/panyam/halley/eds/elog"
)

// writerConnState is the per-connection writer-stage slot: a pending
// byte buffer awaiting the socket to become writable, which request
// is currently being served, and whether that request's status
// line/headers have already been serialised.
type writerConnState struct {
	mu            sync.Mutex
	pending       []byte
	current       *Request
	headerWritten bool
}

// WriterStage implements eds.Handler for eds.EventWriteData events. It
// drains whatever bytes the response sink has queued for a
// connection, tracking partial writes across EAGAIN-equivalent
// returns exactly like ReaderStage does for reads.
type WriterStage struct {
	StageID uint64
	Server  *eds.Server
}

// HandleEvent implements eds.Handler.
func (w *WriterStage) HandleEvent(e eds.Event) {
	c := e.Conn
	defer c.Release()
	if c == nil || !c.IsAlive() {
		return
	}

	ws := c.StageState(w.StageID, func() any { return &writerConnState{} }).(*writerConnState)

	ws.mu.Lock()
	buf := ws.pending
	ws.mu.Unlock()
	if len(buf) == 0 {
		return
	}

	total := 0
	for total < len(buf) {
		c.Socket.SetWriteDeadline(time.Now())
		n, err := c.Socket.Write(buf[total:])
		total += n
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				break
			}
			elog.Warningf("eds/http: %v", &eds.ConnectionError{ConnID: c.ID, Op: "write", Err: err})
			w.Server.SetConnectionState(c, eds.StateClosed)
			ws.mu.Lock()
			ws.pending = nil
			ws.mu.Unlock()
			return
		}
	}

	ws.mu.Lock()
	ws.pending = buf[total:]
	ws.mu.Unlock()
}

// ResponseSink is the terminal HttpModule in every response's output
// chain. It serialises the status line and headers on
// first write, locking the header table, appends each ordered body
// part's bytes to the connection's pending write buffer, and applies
// the CONTENT_FINISHED/CLOSE_CONNECTION control-part semantics.
type ResponseSink struct {
	BaseModule
	WriterStageID uint64
	WriterStage   *eds.Stage
	Server        *eds.Server
}

// NewResponseSink returns a ResponseSink wired to the writer stage
// identified by writerStageID/writerStage.
func NewResponseSink(writerStageID uint64, writerStage *eds.Stage, server *eds.Server) *ResponseSink {
	return &ResponseSink{WriterStageID: writerStageID, WriterStage: writerStage, Server: server}
}

// ProcessOutput implements HttpModule.
func (s *ResponseSink) ProcessOutput(data *HandlerData, stage ModuleStage, part *BodyPart) {
	c := data.Conn
	ws := c.StageState(s.WriterStageID, func() any { return &writerConnState{} }).(*writerConnState)

	closeConn := false
	finishConn := false

	ws.mu.Lock()
	if ws.current != data.Request {
		// A new response has started on this connection (keep-alive
		// reuse); its status line/headers haven't gone out yet even
		// if a prior response already flipped headerWritten.
		ws.current = data.Request
		ws.headerWritten = false
	}
	if !ws.headerWritten {
		resp := data.Request.Response
		ws.pending = append(ws.pending, []byte(resp.StatusLine())...)
		resp.Header.Lock()
		var hb bytes.Buffer
		resp.Header.Write(&hb)
		ws.pending = append(ws.pending, hb.Bytes()...)
		ws.pending = append(ws.pending, '\r', '\n')
		ws.headerWritten = true
	}
	if part != nil {
		switch part.Kind {
		case PartControl:
			switch part.Control {
			case ControlContentFinished:
				if data.Request.Header.Closing() || c.State() == eds.StatePeerClosed {
					closeConn = true
				} else {
					finishConn = true
				}
			case ControlCloseConnection:
				closeConn = true
			}
		case PartRaw:
			ws.pending = append(ws.pending, part.Data...)
		case PartFile:
			if b, err := os.ReadFile(part.Path); err == nil {
				ws.pending = append(ws.pending, b...)
			} else {
				elog.Warningf("eds/http: could not read file part %q: %v", part.Path, err)
			}
		}
	}
	ws.mu.Unlock()

	c.Retain()
	s.WriterStage.QueueEvent(eds.Event{Kind: eds.EventWriteData, Conn: c, Priority: eds.DefaultPriority})

	if closeConn {
		s.Server.SetConnectionState(c, eds.StateClosed)
	} else if finishConn {
		s.Server.SetConnectionState(c, eds.StateFinished)
	}
}
