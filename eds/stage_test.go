/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package eds

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStageInlineWhenZeroWorkers(t *testing.T) {
	var called int32
	s := NewStage("inline", 0, HandlerFunc(func(e Event) {
		atomic.AddInt32(&called, 1)
	}))
	s.Start()
	if ok := s.QueueEvent(NewEvent(EventReadRequest, nil, nil)); !ok {
		t.Fatalf("QueueEvent returned false")
	}
	if atomic.LoadInt32(&called) != 1 {
		t.Fatalf("expected inline dispatch to run synchronously, got called=%d", called)
	}
}

func TestStagePriorityOrdering(t *testing.T) {
	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	first := true
	s := NewStage("prio2", 1, HandlerFunc(func(e Event) {
		mu.Lock()
		order = append(order, e.Payload.(int))
		n := len(order)
		mu.Unlock()
		if first {
			first = false
			time.Sleep(20 * time.Millisecond) // let the other two queue up
		}
		if n == 3 {
			close(done)
		}
	}))
	s.Start()
	defer s.Stop()

	s.QueueEvent(Event{Payload: 1, Priority: 100})
	s.QueueEvent(Event{Payload: 3, Priority: 50})
	s.QueueEvent(Event{Payload: 2, Priority: 75})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for events")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 || order[0] != 1 {
		t.Fatalf("expected first event processed first (it started the worker), got %v", order)
	}
	// After the first (which was already in flight), the remaining two
	// must come out in priority order: 3 (prio 50) before 2 (prio 75).
	if order[1] != 3 || order[2] != 2 {
		t.Fatalf("expected priority order [1 3 2], got %v", order)
	}
}

func TestStageStopIsIdempotentAndDrains(t *testing.T) {
	var n int32
	s := NewStage("drain", 2, HandlerFunc(func(e Event) {
		atomic.AddInt32(&n, 1)
	}))
	s.Start()
	for i := 0; i < 10; i++ {
		s.QueueEvent(NewEvent(0, nil, i))
	}
	s.Stop()
	s.Stop() // idempotent
	if atomic.LoadInt32(&n) != 10 {
		t.Fatalf("expected all 10 events drained before Stop returned, got %d", n)
	}
	if s.QueueEvent(NewEvent(0, nil, nil)) {
		t.Fatalf("QueueEvent on a stopped stage should return false")
	}
}
