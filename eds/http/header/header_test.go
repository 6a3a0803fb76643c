/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package header

import (
	"bytes"
	"testing"
)

func TestCanonicalHeaderKey(t *testing.T) {
	cases := map[string]string{
		"content-type":   "Content-Type",
		"CONTENT-LENGTH": "Content-Length",
		"x-custom-id":    "X-Custom-Id",
		"Already-Canon":  "Already-Canon",
	}
	for in, want := range cases {
		if got := CanonicalHeaderKey(in); got != want {
			t.Errorf("CanonicalHeaderKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAddPreservesInsertionOrder(t *testing.T) {
	h := New()
	h.Set("Zebra", "1")
	h.Set("Apple", "2")
	h.Add("Zebra", "3")

	var buf bytes.Buffer
	if err := h.Write(&buf); err != nil {
		t.Fatal(err)
	}
	want := "Zebra: 1\r\nZebra: 3\r\nApple: 2\r\n"
	if buf.String() != want {
		t.Fatalf("Write() = %q, want %q", buf.String(), want)
	}
}

func TestLockDropsMutations(t *testing.T) {
	h := New()
	h.Set(ContentType, "text/plain")
	h.Lock()
	h.Set(ContentType, "text/html")
	h.Add("X-New", "v")
	h.Del(ContentType)

	if got := h.Get(ContentType); got != "text/plain" {
		t.Fatalf("expected locked header to ignore Set, got %q", got)
	}
	if h.Has("X-New") {
		t.Fatalf("expected locked header to ignore Add")
	}
}

func TestConnectionCloseIsNoted(t *testing.T) {
	h := New()
	if h.Closing() {
		t.Fatalf("fresh header should not be marked closing")
	}
	h.Set(Connection, "keep-alive, Close")
	if !h.Closing() {
		t.Fatalf("expected Connection: close to be noted")
	}
}

func TestTypedSetters(t *testing.T) {
	h := New()
	h.SetInt(ContentLength, 42)
	h.SetBool("X-Flag", true)
	if h.Get(ContentLength) != "42" {
		t.Fatalf("SetInt: got %q", h.Get(ContentLength))
	}
	if h.Get("X-Flag") != "true" {
		t.Fatalf("SetBool: got %q", h.Get("X-Flag"))
	}
}

func TestCloneIsIndependentAndUnlocked(t *testing.T) {
	h := New()
	h.Set(ContentType, "text/plain")
	h.Lock()

	h2 := h.Clone()
	if h2.Locked() {
		t.Fatalf("clone should start unlocked")
	}
	h2.Set(ContentType, "text/html")
	if h.Get(ContentType) != "text/plain" {
		t.Fatalf("mutating the clone should not affect the original")
	}
}
