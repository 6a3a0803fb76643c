/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package header implements the header table: a case-insensitive,
// insertion-ordered mapping from header name to value, with
// multi-value Add semantics, typed setters, and a Lock flag that
// freezes the table once the status line has started going out over
// the wire.
//
// Canonicalization and wire-format follow the familiar
// net/textproto-style MIMEHeader shape, but the underlying storage
// keeps an explicit key order alongside the map and writes in that
// order instead of sorting, since insertion order must be preserved
// on the wire.
package header

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Header is the per-request/per-response header table.
type Header struct {
	order  []string
	values map[string][]string
	locked bool

	// closing caches whether a Connection header naming "close" has
	// been inserted.
	closing bool
}

// New returns an empty Header table.
func New() *Header {
	return &Header{values: make(map[string][]string)}
}

// Add appends value as an additional value for key. The values are
// kept separately, not joined into one comma-separated string: Write
// emits one header line per value and Get returns only the first.
// No-op once Locked.
func (h *Header) Add(key, value string) {
	if h.locked {
		return
	}
	key = CanonicalHeaderKey(key)
	if _, ok := h.values[key]; !ok {
		h.order = append(h.order, key)
	}
	h.values[key] = append(h.values[key], value)
	h.noteConnectionClose(key, value)
}

// Set replaces any existing values for key with a single value.
// No-op once Locked.
func (h *Header) Set(key, value string) {
	if h.locked {
		return
	}
	key = CanonicalHeaderKey(key)
	if _, ok := h.values[key]; !ok {
		h.order = append(h.order, key)
	}
	h.values[key] = []string{value}
	h.noteConnectionClose(key, value)
}

func (h *Header) noteConnectionClose(key, value string) {
	if key != Connection {
		return
	}
	for _, tok := range strings.Split(value, ",") {
		if strings.EqualFold(strings.TrimSpace(tok), "close") {
			h.closing = true
			return
		}
	}
}

// SetBool sets key to "true" or "false".
func (h *Header) SetBool(key string, v bool) { h.Set(key, strconv.FormatBool(v)) }

// SetInt sets key to the base-10 rendering of v.
func (h *Header) SetInt(key string, v int64) { h.Set(key, strconv.FormatInt(v, 10)) }

// SetFloat sets key to the shortest round-tripping rendering of v.
func (h *Header) SetFloat(key string, v float64) { h.Set(key, strconv.FormatFloat(v, 'g', -1, 64)) }

// Get returns the first value for key, or "" if absent.
func (h *Header) Get(key string) string {
	if h == nil {
		return ""
	}
	v := h.values[CanonicalHeaderKey(key)]
	if len(v) == 0 {
		return ""
	}
	return v[0]
}

// Values returns all values for key, in insertion order.
func (h *Header) Values(key string) []string {
	return h.values[CanonicalHeaderKey(key)]
}

// Has reports whether key has at least one value.
func (h *Header) Has(key string) bool {
	return len(h.values[CanonicalHeaderKey(key)]) > 0
}

// Del removes all values for key. No-op once Locked.
func (h *Header) Del(key string) {
	if h.locked {
		return
	}
	key = CanonicalHeaderKey(key)
	if _, ok := h.values[key]; !ok {
		return
	}
	delete(h.values, key)
	for i, k := range h.order {
		if k == key {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Lock freezes the table: every subsequent Add/Set/Del is silently
// dropped. Idempotent.
func (h *Header) Lock() { h.locked = true }

// Locked reports whether Lock has been called.
func (h *Header) Locked() bool { return h.locked }

// Closing reports whether a Connection: close header has been noted.
func (h *Header) Closing() bool { return h.closing }

// Write serializes the table in insertion order as "Key: value\r\n"
// per entry, one line per value for keys with multiple values.
func (h *Header) Write(w io.Writer) error {
	for _, k := range h.order {
		for _, v := range h.values[k] {
			v = headerNewlineToSpace.Replace(v)
			v = TrimString(v)
			if _, err := fmt.Fprintf(w, "%s: %s\r\n", k, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Clone returns a deep copy, including insertion order but NOT the
// Lock flag (a cloned header starts unlocked).
func (h *Header) Clone() *Header {
	h2 := New()
	h2.order = append([]string(nil), h.order...)
	for k, vv := range h.values {
		vv2 := make([]string, len(vv))
		copy(vv2, vv)
		h2.values[k] = vv2
	}
	h2.closing = h.closing
	return h2
}
