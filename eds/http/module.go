/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import "github.com/panyam/halley/eds"

// ModuleStage is the subset of the handler stage a module needs to
// forward body parts to the next module in either direction by
// calling stage.InputToModule(next, ...) or stage.OutputToModule(next, ...).
type ModuleStage interface {
	InputToModule(data *HandlerData, module HttpModule, part *BodyPart)
	OutputToModule(data *HandlerData, module HttpModule, part *BodyPart)
	// CloseConnection asks the server to transition the owning
	// connection to CLOSED.
	CloseConnection(data *HandlerData)
}

// HttpModule is the contract every HTTP processor implements, per
// Modules are chained both for input (request) and
// output (response) directions; both directions default to
// pass-through so a module only needs to override the direction it
// cares about.
type HttpModule interface {
	// ProcessInput consumes a body part flowing from the reader side.
	// part is nil on the first call for a request (the "kick-off").
	ProcessInput(data *HandlerData, stage ModuleStage, part *BodyPart)

	// ProcessOutput consumes a body part flowing toward the writer side.
	ProcessOutput(data *HandlerData, stage ModuleStage, part *BodyPart)

	// CreateModuleData lazily allocates this module's per-request state.
	CreateModuleData(data *HandlerData) *HttpModuleData

	// Next returns the module this one forwards pass-through traffic
	// to, or nil if this module is terminal.
	Next() HttpModule
}

// BaseModule implements HttpModule's default pass-through behaviour;
// concrete modules embed it and override only what they need.
type BaseModule struct {
	next HttpModule
}

// NewBaseModule returns a BaseModule forwarding to next.
func NewBaseModule(next HttpModule) BaseModule {
	return BaseModule{next: next}
}

func (m *BaseModule) Next() HttpModule { return m.next }

func (m *BaseModule) ProcessInput(data *HandlerData, stage ModuleStage, part *BodyPart) {
	if m.next != nil {
		stage.InputToModule(data, m.next, part)
	}
}

func (m *BaseModule) ProcessOutput(data *HandlerData, stage ModuleStage, part *BodyPart) {
	if m.next != nil {
		stage.OutputToModule(data, m.next, part)
	}
}

func (m *BaseModule) CreateModuleData(data *HandlerData) *HttpModuleData {
	return NewHttpModuleData()
}

// HttpModuleData is the per-(request, module) state: nextExpected/
// nextToSend counters, a re-entrancy guard, and a BodyPartQueue.
type HttpModuleData struct {
	nextExpected int
	nextToSend   int
	processing   bool
	queue        BodyPartQueue

	// Extra is per-module extension state a concrete HttpModule's
	// CreateModuleData may attach (e.g. the content module's open
	// multipart boundary stack).
	Extra any
}

// NewHttpModuleData returns a fresh HttpModuleData with both counters
// starting at zero.
func NewHttpModuleData() *HttpModuleData {
	return &HttpModuleData{}
}

// NextToSend returns the next body-part stamp this module should use
// when emitting a part, and advances the counter.
func (d *HttpModuleData) NextToSend() int {
	i := d.nextToSend
	d.nextToSend++
	return i
}

// NextExpected returns the index this module is currently waiting for.
func (d *HttpModuleData) NextExpected() int { return d.nextExpected }

// Drain implements the ordering algorithm: push part onto the heap;
// if a drain is already in flight, return (the in-flight worker will
// observe the new minimum on its next loop iteration); otherwise
// claim the re-entrancy flag and pop every part whose index equals
// nextExpected, in order, calling handle for each.
//
// This yields the invariant that, for this module, parts are handled
// in strictly increasing index order even when they arrive out of
// order from upstream stages.
//
// processing/queue are plain fields, not guarded by a mutex: this is
// safe only because the handler stage never runs two workers over the
// same connection concurrently (a connection has at most one
// in-flight request, handled by at most one goroutine at a time).
// Drain must not be called from more than one goroutine for the same
// HttpModuleData.
func (d *HttpModuleData) Drain(part *BodyPart, handle func(BodyPart)) {
	if part != nil {
		d.queue.Push(*part)
	}
	if d.processing {
		return
	}
	d.processing = true
	for {
		min, ok := d.queue.Peek()
		if !ok || min.Index != d.nextExpected {
			break
		}
		d.queue.Pop()
		d.nextExpected++
		handle(min)
	}
	d.processing = false
}

// HandlerData is the per-connection per-request state the handler
// stage owns, per the glossary: "Per-connection per-request state
// held by the handler stage, carrying the request, its response, and
// per-module state slots."
type HandlerData struct {
	Request *Request
	Conn    *eds.Connection

	// moduleData maps a module's identity (its HttpModule value used
	// as a map key via the pointer it's constructed with) to its
	// per-request state. Modules are long-lived singletons, so the
	// HttpModule value itself is a stable key.
	moduleData map[HttpModule]*HttpModuleData

	// Retained marks a Bayeux long-polling response as kept open past
	// the normal FINISHED transition.
	Retained bool
}

// NewHandlerData returns a HandlerData wrapping req, owned by conn.
func NewHandlerData(req *Request, conn *eds.Connection) *HandlerData {
	return &HandlerData{
		Request:    req,
		Conn:       conn,
		moduleData: make(map[HttpModule]*HttpModuleData),
	}
}

// ModuleData returns m's per-request state, lazily allocating it via
// m.CreateModuleData on first access.
func (hd *HandlerData) ModuleData(m HttpModule) *HttpModuleData {
	if d, ok := hd.moduleData[m]; ok {
		return d
	}
	d := m.CreateModuleData(hd)
	hd.moduleData[m] = d
	return d
}
