/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package eds

import (
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ConnState is a connection's position in the lifecycle state machine
// described in
type ConnState int32

const (
	StateReading ConnState = iota
	StateProcessing
	StateWriting
	StateFinished
	StateIdle
	StatePeerClosed
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateReading:
		return "READING"
	case StateProcessing:
		return "PROCESSING"
	case StateWriting:
		return "WRITING"
	case StateFinished:
		return "FINISHED"
	case StateIdle:
		return "IDLE"
	case StatePeerClosed:
		return "PEER_CLOSED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// DestroyListener is notified once, exactly, when a Connection is
// about to be destroyed. Stages use this to drop any state they hold
// for the connection's id rather than holding a reference directly
//.
type DestroyListener func(c *Connection)

// Connection is the per-client object described in It is
// owned exclusively by the Server; stages address it only by Handle
// and must re-resolve through the Server's arena before touching it,
// so a stale reference after destruction is a safe no-op rather than a
// use-after-free.
type Connection struct {
	ID     uint64
	Handle Handle

	Socket  net.Conn
	Created time.Time

	// fd is the raw socket descriptor the server registered with the
	// poller; only the server touches it.
	fd int

	mu    sync.Mutex
	state ConnState

	// RecvBuf is the reader stage's growable receive window: bytes read
	// off the socket that have not yet been consumed by the assembler.
	RecvBuf []byte

	// dataConsumed is true iff a non-blocking read returned EAGAIN
	// since the last successful parse.
	dataConsumed bool

	// stageState maps stage id -> opaque per-(connection,stage) state.
	stageState map[uint64]any

	listeners []DestroyListener

	// refCount counts outstanding events that target this connection.
	// Only the server frees the connection, and only once refCount
	// reaches zero with state == CLOSED.
	refCount int32

	destroyed bool
}

func newConnection(id uint64, h Handle, sock net.Conn) *Connection {
	return &Connection{
		ID:         id,
		Handle:     h,
		Socket:     sock,
		Created:    time.Now(),
		state:      StateReading,
		stageState: make(map[uint64]any),
	}
}

// State returns the current lifecycle state.
func (c *Connection) State() ConnState {
	return ConnState(atomic.LoadInt32((*int32)(&c.state)))
}

// setState is called only by Server.SetConnectionState, which also
// manages bucket membership under the server's lock; Connection itself
// only stores the value.
func (c *Connection) setState(s ConnState) {
	atomic.StoreInt32((*int32)(&c.state), int32(s))
}

// IsAlive reports whether the connection is still usable by a stage.
// Events whose source connection fails IsAlive are discarded on
// dequeue.
func (c *Connection) IsAlive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.destroyed
}

// DataConsumed reports whether the last read on this connection hit
// EAGAIN (no more buffered bytes) since the last successful parse.
func (c *Connection) DataConsumed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dataConsumed
}

// SetDataConsumed updates the EAGAIN flag. A successful read resets it
// to false; hitting EAGAIN sets it true.
func (c *Connection) SetDataConsumed(v bool) {
	c.mu.Lock()
	c.dataConsumed = v
	c.mu.Unlock()
}

// StageState returns the opaque state object the given stage has
// lazily allocated for this connection, allocating it via create if
// absent. The server guarantees all such objects are reclaimed before
// the connection is freed (AddDestroyListener below covers that for
// stages that need explicit teardown).
func (c *Connection) StageState(stageID uint64, create func() any) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.stageState[stageID]; ok {
		return v
	}
	v := create()
	c.stageState[stageID] = v
	return v
}

// AddDestroyListener registers a callback fired exactly once, when the
// connection transitions into its terminal destroyed state.
func (c *Connection) AddDestroyListener(l DestroyListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		c.mu.Unlock()
		l(c)
		c.mu.Lock()
		return
	}
	c.listeners = append(c.listeners, l)
}

// Retain increments the outstanding-event count. Call before handing a
// reference to a connection into an event queue.
func (c *Connection) Retain() { atomic.AddInt32(&c.refCount, 1) }

// Release decrements the outstanding-event count. Only stages call
// this, and only the server (via the arena) ever frees a connection.
func (c *Connection) Release() int32 { return atomic.AddInt32(&c.refCount, -1) }

// refs reports the current outstanding-event count (tests/server sweep).
func (c *Connection) refs() int32 { return atomic.LoadInt32(&c.refCount) }

// destroy runs the destroy listeners and marks the connection dead.
// Called only by the Server, only from StateClosed, only once.
func (c *Connection) destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	listeners := c.listeners
	c.listeners = nil
	stageState := c.stageState
	c.stageState = nil
	c.mu.Unlock()

	for _, l := range listeners {
		l(c)
	}
	_ = stageState // reclaimed by GC once listeners have dropped refs
}
