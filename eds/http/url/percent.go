/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package url implements the percent-decoding and query-splitting the
// request assembler needs. It trades a full URL struct (absolute/
// relative resolution, userinfo, scheme) for exactly what a
// server-side request line needs: percent-decoding and an ORDERED
// list of (key, value) query pairs, rather than a map.
package url

import (
	"errors"
	"strings"
)

var ErrInvalidEscape = errors.New("url: invalid URL escape")

// QueryPair is one decoded (key, value) query segment, in the order it
// appeared on the wire.
type QueryPair struct {
	Key   string
	Value string
}

// Unescape converts "%AB" into the byte 0xAB and, if plusAsSpace,
// turns '+' into ' '. It is used for both path segments (plusAsSpace
// == false) and query keys/values (plusAsSpace == true).
func Unescape(s string, plusAsSpace bool) (string, error) {
	// Count %-escapes to size the output exactly once.
	n := 0
	hasPlus := false
	for i := 0; i < len(s); {
		switch s[i] {
		case '%':
			if i+2 >= len(s) || !ishex(s[i+1]) || !ishex(s[i+2]) {
				return "", ErrInvalidEscape
			}
			n++
			i += 3
		case '+':
			hasPlus = plusAsSpace
			i++
		default:
			i++
		}
	}
	if n == 0 && !hasPlus {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s) - 2*n)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%':
			b.WriteByte(unhex(s[i+1])<<4 | unhex(s[i+2]))
			i += 2
		case '+':
			if plusAsSpace {
				b.WriteByte(' ')
			} else {
				b.WriteByte('+')
			}
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String(), nil
}

func ishex(c byte) bool {
	switch {
	case '0' <= c && c <= '9', 'a' <= c && c <= 'f', 'A' <= c && c <= 'F':
		return true
	}
	return false
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}

// SplitRequestTarget splits an HTTP request-target on the first '?'
// into (resource, query).
func SplitRequestTarget(target string) (resource, query string) {
	if i := strings.IndexByte(target, '?'); i >= 0 {
		return target[:i], target[i+1:]
	}
	return target, ""
}

// ParseQuery splits query on '&', then each segment on the first '=',
// percent-decoding both sides, and returns the pairs in arrival order.
// A segment with no '=' is a key with an empty value.
func ParseQuery(query string) ([]QueryPair, error) {
	if query == "" {
		return nil, nil
	}
	var pairs []QueryPair
	for _, seg := range strings.Split(query, "&") {
		if seg == "" {
			continue
		}
		key, value := seg, ""
		if i := strings.IndexByte(seg, '='); i >= 0 {
			key, value = seg[:i], seg[i+1:]
		}
		k, err := Unescape(key, true)
		if err != nil {
			return pairs, err
		}
		v, err := Unescape(value, true)
		if err != nil {
			return pairs, err
		}
		pairs = append(pairs, QueryPair{Key: k, Value: v})
	}
	return pairs, nil
}

// DecodeResource percent-decodes an HTTP request path and rejects any
// "." or ".." segment, guarding against path traversal through the
// resource path.
func DecodeResource(path string) (string, error) {
	decoded, err := Unescape(path, false)
	if err != nil {
		return "", err
	}
	for _, seg := range strings.Split(decoded, "/") {
		if seg == "." || seg == ".." {
			return "", errors.New("url: path segment not allowed: " + seg)
		}
	}
	return decoded, nil
}
