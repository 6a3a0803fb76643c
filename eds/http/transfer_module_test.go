/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import "testing"

func TestTransferModulePassthroughWhenNotChunked(t *testing.T) {
	tr := NewTransferModule(nil)
	stage := &recordingStage{}
	data := newTestHandlerData()

	p := NewRawPart(0, []byte("hello"))
	tr.ProcessOutput(data, stage, &p)

	if len(stage.parts) != 1 || string(stage.parts[0].Data) != "hello" {
		t.Fatalf("expected passthrough, got %+v", stage.parts)
	}
}

func TestTransferModuleChunksWhenTransferEncodingChunked(t *testing.T) {
	tr := NewTransferModule(nil)
	stage := &recordingStage{}
	data := newTestHandlerData()
	data.Request.Response.Header.Set("Transfer-Encoding", "chunked")

	p := NewRawPart(0, []byte("hello"))
	tr.ProcessOutput(data, stage, &p)

	if len(stage.parts) != 3 {
		t.Fatalf("expected hex-size + body + trailing CRLF parts, got %d: %+v", len(stage.parts), stage.parts)
	}
	if string(stage.parts[0].Data) != "5\r\n" {
		t.Fatalf("chunk size line = %q", stage.parts[0].Data)
	}
	if string(stage.parts[1].Data) != "hello" {
		t.Fatalf("chunk body = %q", stage.parts[1].Data)
	}
	if string(stage.parts[2].Data) != "\r\n" {
		t.Fatalf("chunk trailer = %q", stage.parts[2].Data)
	}

	fin := NewControlPart(1, ControlContentFinished)
	tr.ProcessOutput(data, stage, &fin)
	if len(stage.parts) != 5 {
		t.Fatalf("expected a terminal 0-chunk + the finished control, got %d", len(stage.parts))
	}
	if string(stage.parts[3].Data) != "0\r\n\r\n" {
		t.Fatalf("terminal chunk = %q", stage.parts[3].Data)
	}
	if stage.parts[4].Kind != PartControl || stage.parts[4].Control != ControlContentFinished {
		t.Fatalf("expected ControlContentFinished to propagate, got %+v", stage.parts[4])
	}
}
