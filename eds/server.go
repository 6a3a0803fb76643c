/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package eds

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/panyam/halley/eds/elog"
	"github.com/prometheus/client_golang/prometheus"
)

// pollTimeout is the bounded wait on the readiness multiplexer; every
// tick the server sweeps CLOSED connections and promotes FINISHED ones
// back to IDLE.
const pollTimeout = 50 * time.Millisecond

// ReadinessEvent is what the Poller reports for one ready descriptor.
type ReadinessEvent struct {
	FD       int
	Readable bool
	Writable bool
	Error    bool
	Hangup   bool
}

// Poller is the edge-triggered readiness multiplexer the server drives.
// The Linux implementation (poller_linux.go) wraps epoll via
// golang.org/x/sys/unix; any implementation MUST report readiness
// edge-triggered (readers/writers drain until EAGAIN)
type Poller interface {
	Add(fd int, readable, writable bool) error
	Remove(fd int) error
	Wait(timeout time.Duration) ([]ReadinessEvent, error)
	Close() error
}

// ConnFactory lets callers (mainly tests) customize socket option
// tuning on accepted connections.
type ConnFactory func(net.Conn) error

// Server owns the listening socket, the readiness multiplexer, the
// set of all connections partitioned by lifecycle state, and the
// accept loop.
type Server struct {
	Port int

	ReaderStage  *Stage
	WriterStage  *Stage
	HandlerStage *Stage

	poller   Poller
	listener *net.TCPListener
	arena    *connArena

	mu      sync.Mutex
	buckets map[ConnState]map[uint64]*Connection
	byFD    map[int]*Connection

	connCount prometheus.Gauge

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewServer builds a Server bound to port, with the three core stages
// wired in. Reader/Writer/Handler stages are supplied by eds/http so
// that eds itself stays protocol-agnostic.
func NewServer(port int, reader, writer, handler *Stage) *Server {
	s := &Server{
		Port:         port,
		ReaderStage:  reader,
		WriterStage:  writer,
		HandlerStage: handler,
		arena:        newConnArena(),
		buckets:      make(map[ConnState]map[uint64]*Connection),
		byFD:         make(map[int]*Connection),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
		connCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "eds_server_connections",
			Help: "Number of connections currently tracked by the server.",
		}),
	}
	for _, st := range []ConnState{StateReading, StateProcessing, StateWriting, StateFinished, StateIdle, StatePeerClosed, StateClosed} {
		s.buckets[st] = make(map[uint64]*Connection)
	}
	return s
}

// Describe implements prometheus.Collector.
func (s *Server) Describe(ch chan<- *prometheus.Desc) { s.connCount.Describe(ch) }

// Collect implements prometheus.Collector.
func (s *Server) Collect(ch chan<- prometheus.Metric) {
	s.mu.Lock()
	n := 0
	for _, b := range s.buckets {
		n += len(b)
	}
	s.mu.Unlock()
	s.connCount.Set(float64(n))
	s.connCount.Collect(ch)
}

// ListenAndServe creates the listening socket, configures it per
// and runs the accept/readiness loop until Shutdown is
// called. It returns once the loop has exited.
func (s *Server) ListenAndServe() error {
	addr := &net.TCPAddr{IP: net.IPv4zero, Port: s.Port}
	ln, err := net.ListenTCP("tcp4", addr)
	if err != nil {
		return err
	}
	s.listener = ln

	rawConn, err := ln.SyscallConn()
	if err != nil {
		ln.Close()
		return err
	}
	var lfd int
	rawConn.Control(func(fd uintptr) { lfd = int(fd) })
	if err := tuneListenSocket(lfd); err != nil {
		elog.Warningf("eds: could not tune listening socket: %v", err)
	}

	p, err := newPoller()
	if err != nil {
		ln.Close()
		return err
	}
	s.poller = p
	if err := s.poller.Add(lfd, true, false); err != nil {
		ln.Close()
		return err
	}

	s.ReaderStage.Start()
	s.WriterStage.Start()
	s.HandlerStage.Start()

	defer close(s.doneCh)
	for {
		select {
		case <-s.stopCh:
			return s.shutdownLocked()
		default:
		}

		events, err := s.poller.Wait(pollTimeout)
		if err != nil {
			return err
		}

		s.sweep()

		for _, ev := range events {
			if ev.FD == lfd {
				if ev.Readable {
					s.acceptLoop(lfd)
				}
				continue
			}
			s.handleConnReadiness(ev)
		}
	}
}

// Shutdown closes the listening socket and all tracked connections,
// then closes the readiness descriptor.
func (s *Server) Shutdown() {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	<-s.doneCh
}

func (s *Server) shutdownLocked() error {
	s.ReaderStage.Stop()
	s.WriterStage.Stop()
	s.HandlerStage.Stop()

	s.mu.Lock()
	all := make([]*Connection, 0)
	for _, b := range s.buckets {
		for _, c := range b {
			all = append(all, c)
		}
	}
	s.mu.Unlock()

	for _, c := range all {
		s.closeConnection(c)
	}
	if s.listener != nil {
		s.listener.Close()
	}
	return s.poller.Close()
}

func (s *Server) acceptLoop(lfd int) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return
			}
			return // EAGAIN or listener closed; stop accepting this tick
		}
		tc := conn.(*net.TCPConn)
		rawConn, err := tc.SyscallConn()
		if err != nil {
			conn.Close()
			continue
		}
		var fd int
		rawConn.Control(func(f uintptr) { fd = int(f) })
		if err := tuneClientSocket(fd); err != nil {
			elog.Warningf("eds: could not tune client socket: %v", err)
		}

		c := s.arena.alloc(conn)
		s.mu.Lock()
		s.buckets[StateReading][c.ID] = c
		s.byFD[fd] = c
		s.mu.Unlock()
		c.fd = fd

		if err := s.poller.Add(fd, true, true); err != nil {
			elog.Errorf("eds: poller.Add failed: %v", err)
			s.SetConnectionState(c, StateClosed)
		}
	}
}

func (s *Server) handleConnReadiness(ev ReadinessEvent) {
	s.mu.Lock()
	c := s.byFD[ev.FD]
	s.mu.Unlock()
	if c == nil {
		return
	}

	if ev.Error || (ev.Hangup && !ev.Readable && !ev.Writable) {
		s.SetConnectionState(c, StateClosed)
		return
	}
	if ev.Readable {
		c.Retain()
		s.ReaderStage.QueueEvent(Event{Kind: EventReadRequest, Conn: c, Priority: DefaultPriority})
	}
	if ev.Writable {
		c.Retain()
		s.WriterStage.QueueEvent(Event{Kind: EventWriteData, Conn: c, Priority: DefaultPriority})
	}
}

// sweep runs once per poll tick: it frees deferred CLOSED connections
// whose ref count has reached zero, and promotes FINISHED connections
// back to IDLE, re-arming reads and synthesizing a ReadRequest event
// if bytes are already buffered.
func (s *Server) sweep() {
	s.mu.Lock()
	closedList := make([]*Connection, 0, len(s.buckets[StateClosed]))
	for _, c := range s.buckets[StateClosed] {
		closedList = append(closedList, c)
	}
	finishedList := make([]*Connection, 0, len(s.buckets[StateFinished]))
	for _, c := range s.buckets[StateFinished] {
		finishedList = append(finishedList, c)
	}
	s.mu.Unlock()

	for _, c := range closedList {
		if c.refs() <= 0 {
			s.freeConnection(c)
		}
	}
	for _, c := range finishedList {
		s.SetConnectionState(c, StateIdle)
		if !c.DataConsumed() {
			c.Retain()
			s.ReaderStage.QueueEvent(Event{Kind: EventReadRequest, Conn: c, Priority: DefaultPriority})
		}
	}
}

// SetConnectionState is the only way a connection moves between state
// buckets (acceptLoop inserts new connections into READING and
// freeConnection removes them from CLOSED). It atomically moves c from
// its old state's bucket to the new one.
func (s *Server) SetConnectionState(c *Connection, newState ConnState) {
	s.mu.Lock()
	old := c.State()
	if b, ok := s.buckets[old]; ok {
		delete(b, c.ID)
	}
	c.setState(newState)
	s.buckets[newState][c.ID] = c
	s.mu.Unlock()

	if newState == StateClosed {
		if s.poller != nil && c.fd != 0 {
			s.poller.Remove(c.fd)
		}
	}
}

// closeConnection transitions c to CLOSED and, if nothing references
// it, frees it immediately.
func (s *Server) closeConnection(c *Connection) {
	s.SetConnectionState(c, StateClosed)
	if c.refs() <= 0 {
		s.freeConnection(c)
	}
}

func (s *Server) freeConnection(c *Connection) {
	s.mu.Lock()
	delete(s.buckets[StateClosed], c.ID)
	delete(s.byFD, c.fd)
	s.mu.Unlock()

	c.Socket.Close()
	c.destroy()
	s.arena.free(c.Handle)
}

// Resolve dereferences a Handle through the server's arena. Stages use
// this rather than holding *Connection across an event boundary.
func (s *Server) Resolve(h Handle) *Connection { return s.arena.Resolve(h) }

func (s *Server) String() string {
	return fmt.Sprintf("eds.Server{port=%d}", s.Port)
}
