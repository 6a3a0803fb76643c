/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import "github.com/panyam/halley/eds"

// handlerConnState is the handler stage's per-connection slot: the
// HandlerData for whichever request is currently PROCESSING (or, for
// a retained Bayeux long-poll, the most recently retained one).
type handlerConnState struct {
	Current *HandlerData
}

// HandlerStage implements eds.Handler for eds.http's handler-stage
// event kinds and ModuleStage for the module pipeline.
//
// A module pipeline can be modeled as NEXT_INPUT_MODULE/
// INPUT_BODY_TO_MODULE stage events and their output-side
// counterparts, implying re-entry into the stage's own queue between
// every module hop. Since at most one request is PROCESSING per
// connection at a time, and the module chain is shallow, this
// implementation calls directly into the next module instead of
// round-tripping through the event queue — functionally identical
// ordering, without the extra queue hops.
type HandlerStage struct {
	StageID uint64
	Server  *eds.Server
	Root    HttpModule
}

// HandleEvent implements eds.Handler.
func (h *HandlerStage) HandleEvent(e eds.Event) {
	c := e.Conn
	defer c.Release()
	if c == nil || !c.IsAlive() {
		return
	}
	switch e.Kind {
	case EventRequestArrived:
		req, _ := e.Payload.(*Request)
		if req == nil {
			return
		}
		data := NewHandlerData(req, c)
		slot := c.StageState(h.StageID, func() any { return &handlerConnState{} }).(*handlerConnState)
		slot.Current = data
		h.Root.ProcessInput(data, h, nil)
	case EventCloseConnection:
		h.Server.SetConnectionState(c, eds.StateClosed)
	}
}

// InputToModule implements ModuleStage.
func (h *HandlerStage) InputToModule(data *HandlerData, module HttpModule, part *BodyPart) {
	if module == nil {
		return
	}
	if part == nil {
		module.ProcessInput(data, h, nil)
		return
	}
	md := data.ModuleData(module)
	md.Drain(part, func(p BodyPart) {
		pp := p
		module.ProcessInput(data, h, &pp)
	})
}

// OutputToModule implements ModuleStage.
func (h *HandlerStage) OutputToModule(data *HandlerData, module HttpModule, part *BodyPart) {
	if module == nil {
		return
	}
	if part == nil {
		module.ProcessOutput(data, h, nil)
		return
	}
	md := data.ModuleData(module)
	md.Drain(part, func(p BodyPart) {
		pp := p
		module.ProcessOutput(data, h, &pp)
	})
}

// CloseConnection implements ModuleStage.
func (h *HandlerStage) CloseConnection(data *HandlerData) {
	h.Server.SetConnectionState(data.Conn, eds.StateClosed)
}
