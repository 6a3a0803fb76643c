/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"fmt"
	"strings"

	"github.com/panyam/halley/eds/http/header"
)

// Response is the data model described in: version, status
// code, status message, a header table with a lock flag, a multi-part
// flag derived from Content-Type, and a body-part counter used to
// stamp new parts with a monotonic index.
type Response struct {
	Proto      string
	StatusCode int
	Status     string

	Header header.Header

	// nextIndex is the monotonic counter new body parts are stamped
	// with; it only ever increases.
	nextIndex int

	// multipart caches whether Content-Type currently names
	// multipart/x-mixed-replace, refreshed whenever Content-Type changes.
	multipart bool
}

// NewResponse returns a Response defaulted to 200 OK / HTTP/1.1.
func NewResponse() *Response {
	return &Response{
		Proto:      "HTTP/1.1",
		StatusCode: 200,
		Status:     "OK",
		Header:     *header.New(),
	}
}

// SetStatus sets both the numeric code and its textual reason phrase.
func (resp *Response) SetStatus(code int, reason string) {
	resp.StatusCode = code
	resp.Status = reason
}

// SetContentType sets the Content-Type header and refreshes the
// multi-part flag from it.
func (resp *Response) SetContentType(ct string) {
	resp.Header.Set(header.ContentType, ct)
	resp.multipart = strings.HasPrefix(ct, "multipart/x-mixed-replace")
}

// IsMultipart reports whether Content-Type currently names
// multipart/x-mixed-replace").
func (resp *Response) IsMultipart() bool { return resp.multipart }

// NextIndex returns the next body-part stamp and advances the counter.
func (resp *Response) NextIndex() int {
	i := resp.nextIndex
	resp.nextIndex++
	return i
}

// StatusLine renders "VERSION SP CODE SP MESSAGE CRLF".
func (resp *Response) StatusLine() string {
	return fmt.Sprintf("%s %d %s\r\n", resp.Proto, resp.StatusCode, resp.Status)
}
