/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"github.com/panyam/halley/eds"
	"github.com/panyam/halley/eds/http/header"
	httpurl "github.com/panyam/halley/eds/http/url"
)

// Request is the data model: method, scheme,
// host, port, percent-decoded resource path, an ordered list of query
// pairs, protocol version, the header table, an optional content body
// part, a back-reference to the owning connection, and an owned
// Response.
//
// This is a server-only request model: no GetBody, no TLS, no
// MultipartForm/PostForm maps, no client-side half at all. Query is
// an ordered slice (httpurl.QueryPair) rather than a map, since
// arrival order of query pairs must be preserved.
type Request struct {
	Method   string
	Scheme   string
	Host     string
	Port     int
	Resource string
	Query    []httpurl.QueryPair

	Proto      string
	ProtoMajor int
	ProtoMinor int

	Header header.Header

	// Body is the request's content body part, if any was parsed.
	Body *BodyPart

	// Conn is the connection this request arrived on. Module code must
	// check Conn.IsAlive() before assuming it is still usable; a dead
	// connection's events are discarded by the owning stage anyway.
	Conn *eds.Connection

	// Response is created alongside the Request and destroyed with it
	//.
	Response *Response

	RemoteAddr string
	RequestURI string
}

// NewRequest allocates a Request with its owned Response, per the
// invariant that "a Request's Response exists from Request
// creation and is destroyed with it."
func NewRequest() *Request {
	r := &Request{
		Header:     *header.New(),
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
	}
	r.Response = NewResponse()
	return r
}

// QueryValue returns the first value for key, or "" if absent.
func (r *Request) QueryValue(key string) string {
	for _, p := range r.Query {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

// Close reports whether the request's own headers carry a
// Connection: close marker; the response's headers are not consulted.
func (r *Request) Close() bool {
	return r.Header.Closing()
}
