/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"fmt"

	"github.com/panyam/halley/eds/http/header"
)

// contentState is the content module's per-request extension to
// HttpModuleData: the stack of currently-open multipart boundaries
// described in
type contentState struct {
	boundaries []string
}

// ContentModule implements the framing module from: it
// manages a stack of open multipart boundaries, corrects Content-Length
// in single-part mode, and prepends multipart framing in multipart
// mode.
type ContentModule struct {
	BaseModule
}

// NewContentModule returns a ContentModule forwarding framed output to next.
func NewContentModule(next HttpModule) *ContentModule {
	m := &ContentModule{}
	m.BaseModule = NewBaseModule(next)
	return m
}

// CreateModuleData implements HttpModule.
func (c *ContentModule) CreateModuleData(data *HandlerData) *HttpModuleData {
	d := NewHttpModuleData()
	d.Extra = &contentState{}
	return d
}

// ProcessOutput implements HttpModule.
func (c *ContentModule) ProcessOutput(data *HandlerData, stage ModuleStage, part *BodyPart) {
	if part == nil {
		return
	}
	md := data.ModuleData(c)
	md.Drain(part, func(p BodyPart) {
		c.handle(data, stage, md, p)
	})
}

func (c *ContentModule) handle(data *HandlerData, stage ModuleStage, md *HttpModuleData, p BodyPart) {
	st := md.Extra.(*contentState)
	resp := data.Request.Response

	if p.Kind == PartControl {
		switch p.Control {
		case ControlOpenSubMessage:
			st.boundaries = append(st.boundaries, p.Boundary)
			resp.SetContentType(fmt.Sprintf(`multipart/x-mixed-replace;boundary="%s"`, p.Boundary))
			return
		case ControlCloseSubMessage:
			c.closeTop(data, stage, md, st)
			return
		case ControlContentFinished:
			for len(st.boundaries) > 0 {
				c.closeTop(data, stage, md, st)
			}
			fin := NewControlPart(md.NextToSend(), ControlContentFinished)
			stage.OutputToModule(data, c.Next(), &fin)
			return
		default:
			forwarded := NewControlPart(md.NextToSend(), p.Control)
			stage.OutputToModule(data, c.Next(), &forwarded)
			return
		}
	}

	size := int64(len(p.Data))
	if p.Kind == PartFile {
		size = p.Size
	}

	if len(st.boundaries) == 0 {
		resp.Header.SetInt(header.ContentLength, size)
		forwarded := p
		forwarded.Index = md.NextToSend()
		stage.OutputToModule(data, c.Next(), &forwarded)
		return
	}

	boundary := st.boundaries[len(st.boundaries)-1]
	frame := fmt.Sprintf("\r\n--%s\r\nContent-Length: %d\r\n\r\n", boundary, size)
	pre := NewRawPart(md.NextToSend(), []byte(frame))
	stage.OutputToModule(data, c.Next(), &pre)

	forwarded := p
	forwarded.Index = md.NextToSend()
	stage.OutputToModule(data, c.Next(), &forwarded)
}

func (c *ContentModule) closeTop(data *HandlerData, stage ModuleStage, md *HttpModuleData, st *contentState) {
	if len(st.boundaries) == 0 {
		return
	}
	b := st.boundaries[len(st.boundaries)-1]
	st.boundaries = st.boundaries[:len(st.boundaries)-1]
	term := NewRawPart(md.NextToSend(), []byte("\r\n--"+b+"--"))
	stage.OutputToModule(data, c.Next(), &term)
}
