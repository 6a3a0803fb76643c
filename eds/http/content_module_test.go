/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"strings"
	"testing"

	"github.com/panyam/halley/eds"
)

// recordingStage captures every part handed to OutputToModule/InputToModule,
// in call order, letting tests assert on a module's output without
// standing up a full pipeline.
type recordingStage struct {
	parts  []BodyPart
	closed bool
}

func (s *recordingStage) InputToModule(data *HandlerData, module HttpModule, part *BodyPart) {
	if module != nil {
		module.ProcessInput(data, s, part)
	}
}

func (s *recordingStage) OutputToModule(data *HandlerData, module HttpModule, part *BodyPart) {
	s.parts = append(s.parts, *part)
}

func (s *recordingStage) CloseConnection(data *HandlerData) { s.closed = true }

func newTestHandlerData() *HandlerData {
	return NewHandlerData(NewRequest(), &eds.Connection{})
}

func TestContentModuleSinglePartSetsContentLength(t *testing.T) {
	c := NewContentModule(nil)
	stage := &recordingStage{}
	data := newTestHandlerData()

	p := NewRawPart(0, []byte("hello"))
	c.ProcessOutput(data, stage, &p)

	if data.Request.Response.Header.Get("Content-Length") != "5" {
		t.Fatalf("Content-Length = %q", data.Request.Response.Header.Get("Content-Length"))
	}
	if len(stage.parts) != 1 || string(stage.parts[0].Data) != "hello" {
		t.Fatalf("unexpected forwarded parts: %+v", stage.parts)
	}
}

func TestContentModuleMultipartFraming(t *testing.T) {
	c := NewContentModule(nil)
	stage := &recordingStage{}
	data := newTestHandlerData()
	md := data.ModuleData(c)
	_ = md

	open := NewControlPart(0, ControlOpenSubMessage)
	open.Boundary = "XYZ"
	c.ProcessOutput(data, stage, &open)

	if !strings.Contains(data.Request.Response.Header.Get("Content-Type"), `boundary="XYZ"`) {
		t.Fatalf("Content-Type = %q", data.Request.Response.Header.Get("Content-Type"))
	}

	body := NewRawPart(1, []byte("frame1"))
	c.ProcessOutput(data, stage, &body)

	if len(stage.parts) != 2 {
		t.Fatalf("expected a boundary-frame part + the body part, got %d", len(stage.parts))
	}
	frame := string(stage.parts[0].Data)
	if !strings.Contains(frame, "--XYZ") || !strings.Contains(frame, "Content-Length: 6") {
		t.Fatalf("unexpected frame: %q", frame)
	}
	if string(stage.parts[1].Data) != "frame1" {
		t.Fatalf("unexpected body part: %+v", stage.parts[1])
	}

	closeMsg := NewControlPart(2, ControlCloseSubMessage)
	c.ProcessOutput(data, stage, &closeMsg)
	if len(stage.parts) != 3 || !strings.Contains(string(stage.parts[2].Data), "--XYZ--") {
		t.Fatalf("expected a closing boundary terminator, got %+v", stage.parts)
	}
}

func TestContentModuleContentFinishedClosesOpenBoundaries(t *testing.T) {
	c := NewContentModule(nil)
	stage := &recordingStage{}
	data := newTestHandlerData()

	open := NewControlPart(0, ControlOpenSubMessage)
	open.Boundary = "B1"
	c.ProcessOutput(data, stage, &open)

	fin := NewControlPart(1, ControlContentFinished)
	c.ProcessOutput(data, stage, &fin)

	if len(stage.parts) != 2 {
		t.Fatalf("expected a closing terminator + the finished control, got %d", len(stage.parts))
	}
	if stage.parts[1].Kind != PartControl || stage.parts[1].Control != ControlContentFinished {
		t.Fatalf("expected ControlContentFinished to propagate, got %+v", stage.parts[1])
	}
}

func TestContentModuleIndicesAreRestampedMonotonically(t *testing.T) {
	c := NewContentModule(nil)
	stage := &recordingStage{}
	data := newTestHandlerData()

	// Feed parts out of arrival order; HttpModuleData.Drain must still
	// hand them to handle() in index order, and the module must restamp
	// every forwarded part with its own nextToSend counter.
	p1 := NewRawPart(1, []byte("b"))
	p0 := NewRawPart(0, []byte("a"))
	c.ProcessOutput(data, stage, &p1)
	c.ProcessOutput(data, stage, &p0)

	if len(stage.parts) != 2 {
		t.Fatalf("expected both parts forwarded once ordering resolved, got %d", len(stage.parts))
	}
	if string(stage.parts[0].Data) != "a" || string(stage.parts[1].Data) != "b" {
		t.Fatalf("parts forwarded out of order: %+v", stage.parts)
	}
	if stage.parts[0].Index != 0 || stage.parts[1].Index != 1 {
		t.Fatalf("forwarded parts were not restamped 0,1: %+v", stage.parts)
	}
}
