/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import "testing"

func TestBodyPartQueueOrdersByIndex(t *testing.T) {
	var q BodyPartQueue
	q.Push(NewRawPart(3, nil))
	q.Push(NewRawPart(1, nil))
	q.Push(NewRawPart(2, nil))
	q.Push(NewRawPart(0, nil))

	var order []int
	for q.Len() > 0 {
		order = append(order, q.Pop().Index)
	}
	want := []int{0, 1, 2, 3}
	for i, idx := range want {
		if order[i] != idx {
			t.Fatalf("pop order = %v, want %v", order, want)
		}
	}
}

func TestBodyPartQueuePeekDoesNotRemove(t *testing.T) {
	var q BodyPartQueue
	q.Push(NewRawPart(5, []byte("x")))
	p, ok := q.Peek()
	if !ok || p.Index != 5 {
		t.Fatalf("unexpected peek result: %+v ok=%v", p, ok)
	}
	if q.Len() != 1 {
		t.Fatalf("peek should not remove, len = %d", q.Len())
	}
}

func TestHttpModuleDataDrainsInOrderDespiteOutOfOrderArrival(t *testing.T) {
	md := NewHttpModuleData()
	var handled []int
	handle := func(p BodyPart) { handled = append(handled, p.Index) }

	p2 := NewRawPart(2, nil)
	md.Drain(&p2, handle)
	if len(handled) != 0 {
		t.Fatalf("expected nothing drained yet, nextExpected=0: %v", handled)
	}

	p0 := NewRawPart(0, nil)
	md.Drain(&p0, handle)
	p1 := NewRawPart(1, nil)
	md.Drain(&p1, handle)

	if len(handled) != 3 {
		t.Fatalf("expected all 3 parts drained once order resolved, got %v", handled)
	}
	for i, idx := range []int{0, 1, 2} {
		if handled[i] != idx {
			t.Fatalf("drain order = %v, want [0 1 2]", handled)
		}
	}
}
