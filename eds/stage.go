/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package eds

import (
	"container/heap"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var stageIDCounter uint64

// NextStageID returns a fresh, process-wide monotonic id. Stage ids
// index the per-connection stage-state slots (see Connection.StageState).
func NextStageID() uint64 {
	return atomic.AddUint64(&stageIDCounter, 1)
}

// Handler is invoked by a Stage's worker (or inline, for a zero-worker
// stage) to process one Event.
type Handler interface {
	HandleEvent(e Event)
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(e Event)

func (f HandlerFunc) HandleEvent(e Event) { f(e) }

// Stage is a named unit with an event queue and a bounded pool of
// worker goroutines. A stage with zero workers runs HandleEvent inline
// on the calling goroutine, so test code and other stages can drive a
// pipeline synchronously without spinning up real concurrency.
type Stage struct {
	ID      uint64
	Name    string
	Handler Handler
	Workers int

	mu      sync.Mutex
	cond    *sync.Cond
	queue   eventHeap
	seq     uint64
	started bool
	stopped bool
	wg      sync.WaitGroup

	depthGauge prometheus.Gauge
}

// NewStage creates a stage bound to handler with the given worker-pool
// size. Call Start before queuing events on a non-inline stage.
func NewStage(name string, workers int, handler Handler) *Stage {
	s := &Stage{
		ID:      NextStageID(),
		Name:    name,
		Handler: handler,
		Workers: workers,
	}
	s.cond = sync.NewCond(&s.mu)
	s.depthGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "eds_stage_queue_depth",
		Help:        "Number of events currently queued on a stage.",
		ConstLabels: prometheus.Labels{"stage": name},
	})
	return s
}

// Describe implements prometheus.Collector.
func (s *Stage) Describe(ch chan<- *prometheus.Desc) { s.depthGauge.Describe(ch) }

// Collect implements prometheus.Collector.
func (s *Stage) Collect(ch chan<- prometheus.Metric) {
	s.mu.Lock()
	s.depthGauge.Set(float64(len(s.queue)))
	s.mu.Unlock()
	s.depthGauge.Collect(ch)
}

// Start spins up the worker pool. Idempotent.
func (s *Stage) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.Workers <= 0 {
		s.started = true
		return
	}
	s.started = true
	for i := 0; i < s.Workers; i++ {
		s.wg.Add(1)
		go s.workerLoop()
	}
}

// Stop signals all workers to exit after finishing their current
// event and waits for them to drain. Idempotent. Stop MUST precede
// destruction of the stage.
func (s *Stage) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.cond.Broadcast()
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Stage) workerLoop() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && !s.stopped {
			s.cond.Wait()
		}
		if len(s.queue) == 0 && s.stopped {
			s.mu.Unlock()
			return
		}
		e := heap.Pop(&s.queue).(Event)
		s.mu.Unlock()

		if e.Conn != nil && !e.Conn.IsAlive() {
			continue // discard events targeting a dead connection
		}
		s.Handler.HandleEvent(e)
	}
}

// QueueEvent pushes e onto the stage's queue (or runs it inline for a
// zero-worker stage). Returns false if the stage has been stopped.
func (s *Stage) QueueEvent(e Event) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	if s.Workers <= 0 {
		s.mu.Unlock()
		if e.Conn != nil && !e.Conn.IsAlive() {
			return true
		}
		s.Handler.HandleEvent(e)
		return true
	}
	s.seq++
	e.seq = s.seq
	heap.Push(&s.queue, e)
	s.cond.Signal()
	s.mu.Unlock()
	return true
}

// Depth reports the current queue length (for tests/metrics).
func (s *Stage) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}
