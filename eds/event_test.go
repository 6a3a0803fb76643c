/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package eds

import (
	"container/heap"
	"testing"
)

func TestEventHeapOrdersByPriorityThenArrival(t *testing.T) {
	h := &eventHeap{}
	heap.Init(h)

	heap.Push(h, Event{Payload: "a", Priority: 10, seq: 1})
	heap.Push(h, Event{Payload: "b", Priority: 5, seq: 2})
	heap.Push(h, Event{Payload: "c", Priority: 5, seq: 0})
	heap.Push(h, Event{Payload: "d", Priority: 10, seq: 0})

	var got []string
	for h.Len() > 0 {
		got = append(got, heap.Pop(h).(Event).Payload.(string))
	}

	want := []string{"c", "b", "d", "a"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pop order = %v, want %v", got, want)
		}
	}
}

func TestNewEventDefaultPriority(t *testing.T) {
	e := NewEvent(EventReadRequest, nil, 42)
	if e.Priority != DefaultPriority {
		t.Fatalf("expected default priority %d, got %d", DefaultPriority, e.Priority)
	}
	if e.WithPriority(1).Priority != 1 {
		t.Fatalf("WithPriority did not override priority")
	}
}
