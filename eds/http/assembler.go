/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"errors"
	"strconv"
	"strings"

	"github.com/panyam/halley/eds/http/header"
	httpurl "github.com/panyam/halley/eds/http/url"
)

// ErrMalformedRequest covers any request-line, header, or chunk-size
// syntax error the assembler refuses to parse further.
var ErrMalformedRequest = errors.New("http: malformed request")

type parseState int

const (
	stateFirstLine parseState = iota
	stateHeaders
	stateBody
	stateChunkSize
	stateChunkBody
	stateChunkCRLF
	stateTrailer
	stateDone
)

// Assembler is the incremental HTTP/1.1 request parser described in
// It is fed arbitrarily sized byte windows — down to one
// byte at a time — and reports completion only once a full request
// (request line, headers, and body) has been assembled, regardless of
// how the bytes were chunked across Feed calls.
type Assembler struct {
	state parseState
	line  []byte

	req *Request

	hasPending bool
	pendingKey string
	pendingVal string

	chunked      bool
	currBodySize int64
	currBodyRead int64
	body         []byte
}

// NewAssembler returns an Assembler ready to parse a new request.
func NewAssembler() *Assembler {
	a := &Assembler{}
	a.Reset()
	return a
}

// Reset discards any partial request and prepares the assembler for a
// fresh one — used both for a brand-new connection and to start the
// next pipelined request on a keep-alive connection.
func (a *Assembler) Reset() {
	a.state = stateFirstLine
	a.line = nil
	a.req = NewRequest()
	a.hasPending = false
	a.pendingKey = ""
	a.pendingVal = ""
	a.chunked = false
	a.currBodySize = 0
	a.currBodyRead = 0
	a.body = nil
}

// Feed consumes as much of buf as forms complete parser tokens and
// returns the number of bytes consumed and whether a full request was
// just completed. Once complete is true, Request returns the
// assembled *Request and the caller must call Reset before feeding
// the next request's bytes.
func (a *Assembler) Feed(buf []byte) (n int, complete bool, err error) {
	for n < len(buf) {
		switch a.state {
		case stateFirstLine, stateHeaders, stateChunkSize, stateChunkCRLF, stateTrailer:
			b := buf[n]
			n++
			if b == '\n' {
				line := a.line
				if len(line) > 0 && line[len(line)-1] == '\r' {
					line = line[:len(line)-1]
				}
				a.line = nil
				if err := a.processLine(line); err != nil {
					return n, false, err
				}
				if a.state == stateDone {
					return n, true, nil
				}
				continue
			}
			a.line = append(a.line, b)

		case stateBody:
			remaining := a.currBodySize - a.currBodyRead
			avail := int64(len(buf) - n)
			take := remaining
			if avail < take {
				take = avail
			}
			a.body = append(a.body, buf[n:n+int(take)]...)
			n += int(take)
			a.currBodyRead += take
			if a.currBodyRead >= a.currBodySize {
				a.finish()
				return n, true, nil
			}

		case stateChunkBody:
			remaining := a.currBodySize - a.currBodyRead
			avail := int64(len(buf) - n)
			take := remaining
			if avail < take {
				take = avail
			}
			a.body = append(a.body, buf[n:n+int(take)]...)
			n += int(take)
			a.currBodyRead += take
			if a.currBodyRead >= a.currBodySize {
				a.state = stateChunkCRLF
			}
		}
	}
	return n, false, nil
}

// Request returns the assembled request after Feed reports complete.
func (a *Assembler) Request() *Request { return a.req }

func (a *Assembler) processLine(line []byte) error {
	switch a.state {
	case stateFirstLine:
		return a.processFirstLine(string(line))
	case stateHeaders:
		return a.processHeaderLine(string(line), false)
	case stateChunkCRLF:
		// Bytes between a chunk's data and its size line are ignored;
		// the CRLF was already consumed by reaching '\n'.
		a.state = stateChunkSize
		return nil
	case stateChunkSize:
		return a.processChunkSizeLine(string(line))
	case stateTrailer:
		return a.processHeaderLine(string(line), true)
	}
	return nil
}

func (a *Assembler) processFirstLine(line string) error {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return ErrMalformedRequest
	}
	method, target, proto := parts[0], parts[1], parts[2]
	if method == "" || target == "" || proto == "" {
		return ErrMalformedRequest
	}
	major, minor, ok := parseHTTPVersion(proto)
	if !ok {
		return ErrMalformedRequest
	}

	resourcePath, query := httpurl.SplitRequestTarget(target)
	resource, err := httpurl.DecodeResource(resourcePath)
	if err != nil {
		return ErrMalformedRequest
	}
	pairs, err := httpurl.ParseQuery(query)
	if err != nil {
		return ErrMalformedRequest
	}

	a.req.Method = method
	a.req.RequestURI = target
	a.req.Resource = resource
	a.req.Query = pairs
	a.req.Proto = proto
	a.req.ProtoMajor = major
	a.req.ProtoMinor = minor
	a.state = stateHeaders
	return nil
}

func parseHTTPVersion(proto string) (major, minor int, ok bool) {
	if !strings.HasPrefix(proto, "HTTP/") {
		return 0, 0, false
	}
	rest := proto[len("HTTP/"):]
	dot := strings.IndexByte(rest, '.')
	if dot < 0 {
		return 0, 0, false
	}
	maj, err1 := strconv.Atoi(rest[:dot])
	min, err2 := strconv.Atoi(rest[dot+1:])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return maj, min, true
}

// processHeaderLine implements's RFC 2616 line-folding
// rule: a line beginning with whitespace continues the previous
// header; any other non-blank line flushes the pending header via the
// header table's add, then becomes the new pending header. A blank
// line flushes the last pending header and ends the section —
// choosing the body-read substate for headers, or completing for
// trailers.
func (a *Assembler) processHeaderLine(line string, isTrailer bool) error {
	if line == "" {
		a.flushPending()
		if isTrailer {
			a.finish()
			return nil
		}
		return a.startBody()
	}
	if line[0] == ' ' || line[0] == '\t' {
		if !a.hasPending {
			return ErrMalformedRequest
		}
		a.pendingVal += " " + header.TrimString(line)
		return nil
	}
	a.flushPending()
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return ErrMalformedRequest
	}
	key := header.TrimString(line[:colon])
	val := header.TrimString(line[colon+1:])
	if !header.ValidHeaderFieldName(key) {
		return ErrMalformedRequest
	}
	a.hasPending = true
	a.pendingKey = key
	a.pendingVal = val
	return nil
}

func (a *Assembler) flushPending() {
	if !a.hasPending {
		return
	}
	a.req.Header.Add(a.pendingKey, a.pendingVal)
	a.hasPending = false
	a.pendingKey = ""
	a.pendingVal = ""
}

// startBody picks the body-read substate based on Transfer-Encoding,
// falling back to Content-Length,
func (a *Assembler) startBody() error {
	if a.req.Host == "" {
		a.req.Host = a.req.Header.Get(header.Host)
	}

	te := strings.ToLower(header.TrimString(a.req.Header.Get(header.TransferEncoding)))
	switch te {
	case "", "identity":
		// fall through to Content-Length handling below
	case "chunked":
		a.chunked = true
		a.state = stateChunkSize
		return nil
	default:
		return ErrMalformedRequest
	}

	cl := header.TrimString(a.req.Header.Get(header.ContentLength))
	if cl == "" {
		a.finish()
		return nil
	}
	size, err := strconv.ParseInt(cl, 10, 64)
	if err != nil || size < 0 {
		return ErrMalformedRequest
	}
	if size == 0 {
		a.finish()
		return nil
	}
	a.currBodySize = size
	a.currBodyRead = 0
	a.state = stateBody
	return nil
}

func (a *Assembler) processChunkSizeLine(line string) error {
	// Strip chunk extensions ("size;ext=val").
	if i := strings.IndexByte(line, ';'); i >= 0 {
		line = line[:i]
	}
	line = header.TrimString(line)
	if line == "" {
		return ErrMalformedRequest
	}
	size, err := strconv.ParseInt(line, 16, 64)
	if err != nil || size < 0 {
		return ErrMalformedRequest
	}
	if size == 0 {
		a.state = stateTrailer
		return nil
	}
	a.currBodySize = size
	a.currBodyRead = 0
	a.state = stateChunkBody
	return nil
}

func (a *Assembler) finish() {
	if len(a.body) > 0 || a.chunked {
		part := NewRawPart(0, a.body)
		a.req.Body = &part
	}
	a.state = stateDone
}
