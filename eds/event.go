/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package eds

// DefaultPriority is the priority assigned to an Event when the
// producer does not care about ordering relative to other events on
// the same stage.
const DefaultPriority = 1000

// EventKind is a stage-specific tag identifying what an Event means to
// the stage that dequeues it. Each stage defines its own small set of
// kinds (see eds/http for the reader/handler/writer kinds).
type EventKind int

// Event is an immutable record carrying a kind tag, the connection it
// originated from (or targets), an opaque payload, and a priority used
// to order the stage's event queue. Events are value types; ownership
// of Payload transfers to whichever queue holds the Event.
type Event struct {
	Kind     EventKind
	Conn     *Connection
	Payload  any
	Priority int

	// seq breaks priority ties in arrival order (FIFO within a band).
	// Set by Stage.QueueEvent; callers never set it themselves.
	seq uint64
}

// NewEvent builds an Event with DefaultPriority.
func NewEvent(kind EventKind, conn *Connection, payload any) Event {
	return Event{Kind: kind, Conn: conn, Payload: payload, Priority: DefaultPriority}
}

// WithPriority returns a copy of e with an explicit priority.
func (e Event) WithPriority(p int) Event {
	e.Priority = p
	return e
}

// eventHeap is a min-heap on (Priority, seq): lower priority numbers
// are handled first, ties resolved by arrival order.
type eventHeap []Event

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].Priority != h[j].Priority {
		return h[i].Priority < h[j].Priority
	}
	return h[i].seq < h[j].seq
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) {
	*h = append(*h, x.(Event))
}

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
