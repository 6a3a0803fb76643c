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

// transferState caches whether this response is chunked, decided once
// (the header must not change mid-response since the response sink
// may have already locked it by the time bytes start flowing).
type transferState struct {
	chunked  bool
	resolved bool
}

// TransferModule implements the chunked-encoding wrapper: if
// Transfer-Encoding: chunked is set on the response, it wraps each
// normal body part with hex(size) CRLF ... CRLF; control parts pass
// through unchanged.
type TransferModule struct {
	BaseModule
}

// NewTransferModule returns a TransferModule forwarding to next.
func NewTransferModule(next HttpModule) *TransferModule {
	m := &TransferModule{}
	m.BaseModule = NewBaseModule(next)
	return m
}

// CreateModuleData implements HttpModule.
func (t *TransferModule) CreateModuleData(data *HandlerData) *HttpModuleData {
	d := NewHttpModuleData()
	d.Extra = &transferState{}
	return d
}

// ProcessOutput implements HttpModule.
func (t *TransferModule) ProcessOutput(data *HandlerData, stage ModuleStage, part *BodyPart) {
	if part == nil {
		return
	}
	md := data.ModuleData(t)
	md.Drain(part, func(p BodyPart) {
		t.handle(data, stage, md, p)
	})
}

func (t *TransferModule) handle(data *HandlerData, stage ModuleStage, md *HttpModuleData, p BodyPart) {
	st := md.Extra.(*transferState)
	if !st.resolved {
		te := strings.ToLower(header.TrimString(data.Request.Response.Header.Get(header.TransferEncoding)))
		st.chunked = te == "chunked"
		st.resolved = true
	}

	if p.Kind == PartControl {
		if st.chunked && p.Control == ControlContentFinished {
			term := NewRawPart(md.NextToSend(), []byte("0\r\n\r\n"))
			stage.OutputToModule(data, t.Next(), &term)
		}
		forwarded := p
		forwarded.Index = md.NextToSend()
		stage.OutputToModule(data, t.Next(), &forwarded)
		return
	}

	if !st.chunked {
		forwarded := p
		forwarded.Index = md.NextToSend()
		stage.OutputToModule(data, t.Next(), &forwarded)
		return
	}

	size := len(p.Data)
	head := NewRawPart(md.NextToSend(), []byte(fmt.Sprintf("%x\r\n", size)))
	stage.OutputToModule(data, t.Next(), &head)

	body := p
	body.Index = md.NextToSend()
	stage.OutputToModule(data, t.Next(), &body)

	tail := NewRawPart(md.NextToSend(), []byte("\r\n"))
	stage.OutputToModule(data, t.Next(), &tail)
}
