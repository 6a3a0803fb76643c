/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package json

import "testing"

func TestParsePrimitives(t *testing.T) {
	cases := map[string]Kind{
		"null":  KindNull,
		"true":  KindBool,
		"false": KindBool,
		"42":    KindInt,
		"3.14":  KindDouble,
		`"hi"`:  KindString,
	}
	for raw, want := range cases {
		v, err := Parse([]byte(raw))
		if err != nil {
			t.Fatalf("Parse(%q): %v", raw, err)
		}
		if v.Kind() != want {
			t.Fatalf("Parse(%q).Kind() = %v, want %v", raw, v.Kind(), want)
		}
	}
}

func TestParseObjectPreservesAccessAndFormat(t *testing.T) {
	v, err := Parse([]byte(`{"channel":"/meta/handshake","version":"1.0"}`))
	if err != nil {
		t.Fatal(err)
	}
	if v.StringOr("channel", "") != "/meta/handshake" {
		t.Fatalf("channel = %q", v.StringOr("channel", ""))
	}
	if _, ok := v.Get("missing"); ok {
		t.Fatalf("expected missing field to report ok=false")
	}
}

func TestFormatRoundTripsObjectsAndLists(t *testing.T) {
	obj := Object()
	obj.Set("channel", String("/quotes"))
	data := Object()
	data.Set("price", Int(100))
	obj.Set("data", data)

	out := Format(obj)
	reparsed, err := Parse([]byte(out))
	if err != nil {
		t.Fatalf("round-trip parse failed on %q: %v", out, err)
	}
	if reparsed.StringOr("channel", "") != "/quotes" {
		t.Fatalf("round trip lost channel: %s", out)
	}
	inner, ok := reparsed.Get("data")
	if !ok || inner.GetOr("price", Null()).AsInt() != 100 {
		t.Fatalf("round trip lost nested data: %s", out)
	}
}

func TestListAppendAndItems(t *testing.T) {
	l := List()
	l.Append(Int(1))
	l.Append(Int(2))
	items := l.Items()
	if len(items) != 2 || items[0].AsInt() != 1 || items[1].AsInt() != 2 {
		t.Fatalf("unexpected list contents: %+v", items)
	}
}

func TestParseArrayOfObjects(t *testing.T) {
	v, err := Parse([]byte(`[{"channel":"/meta/handshake"},{"channel":"/meta/subscribe","subscription":"/quotes"}]`))
	if err != nil {
		t.Fatal(err)
	}
	items := v.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[1].StringOr("subscription", "") != "/quotes" {
		t.Fatalf("second item subscription = %q", items[1].StringOr("subscription", ""))
	}
}
