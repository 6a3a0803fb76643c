/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package url

import "testing"

func TestUnescape(t *testing.T) {
	cases := map[string]string{
		"hello":        "hello",
		"a%20b":        "a b",
		"a+b":          "a+b",
		"100%25":       "100%",
		"%2e%2e%2fabc": "../abc",
	}
	for in, want := range cases {
		got, err := Unescape(in, false)
		if err != nil {
			t.Fatalf("Unescape(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("Unescape(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestUnescapePlusAsSpace(t *testing.T) {
	got, err := Unescape("a+b", true)
	if err != nil {
		t.Fatal(err)
	}
	if got != "a b" {
		t.Fatalf("got %q, want %q", got, "a b")
	}
}

func TestUnescapeInvalidEscape(t *testing.T) {
	if _, err := Unescape("100%2", false); err != ErrInvalidEscape {
		t.Fatalf("expected ErrInvalidEscape, got %v", err)
	}
	if _, err := Unescape("100%zz", false); err != ErrInvalidEscape {
		t.Fatalf("expected ErrInvalidEscape, got %v", err)
	}
}

func TestSplitRequestTarget(t *testing.T) {
	resource, query := SplitRequestTarget("/a/b?x=1&y=2")
	if resource != "/a/b" || query != "x=1&y=2" {
		t.Fatalf("got resource=%q query=%q", resource, query)
	}
	resource, query = SplitRequestTarget("/a/b")
	if resource != "/a/b" || query != "" {
		t.Fatalf("got resource=%q query=%q", resource, query)
	}
}

func TestParseQueryOrdered(t *testing.T) {
	pairs, err := ParseQuery("b=2&a=1&b=3")
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 3 {
		t.Fatalf("expected 3 pairs, got %d", len(pairs))
	}
	want := []QueryPair{{"b", "2"}, {"a", "1"}, {"b", "3"}}
	for i, p := range pairs {
		if p != want[i] {
			t.Fatalf("pair %d = %+v, want %+v", i, p, want[i])
		}
	}
}

func TestDecodeResourceRejectsDotDot(t *testing.T) {
	cases := []string{"/../etc/passwd", "/a/../../b", "/a/./b", "/%2e%2e/etc"}
	for _, c := range cases {
		if _, err := DecodeResource(c); err == nil {
			t.Fatalf("expected DecodeResource(%q) to reject a dot segment", c)
		}
	}
}

func TestDecodeResourceAllowsNormalPaths(t *testing.T) {
	got, err := DecodeResource("/a%20b/c.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got != "/a b/c.txt" {
		t.Fatalf("got %q", got)
	}
}
