/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import "fmt"

// ProtocolError carries the HTTP status and message a module wants the
// response to surface. It lets a module return a normal Go error from
// an internal helper while still giving the writer-facing code
// (respondError) everything it needs to fill in the response without
// re-deriving a status code from string matching.
type ProtocolError struct {
	Status  int
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// statusReason gives a short canonical reason phrase for the status
// codes this module actually emits; anything else falls back to "Error".
func statusReason(status int) string {
	switch status {
	case 404:
		return "Not Found"
	case 500:
		return "Internal Server Error"
	default:
		return "Error"
	}
}

// respondError sets resp's status/body from a ProtocolError (or wraps
// any other error as a 500) and pushes it through output.
func respondError(data *HandlerData, stage ModuleStage, output HttpModule, err error) {
	status, message := 500, err.Error()
	if pe, ok := err.(*ProtocolError); ok {
		status, message = pe.Status, pe.Message
	}
	resp := data.Request.Response
	resp.SetStatus(status, statusReason(status))
	resp.SetContentType("text/text")
	body := NewRawPart(resp.NextIndex(), []byte(message))
	fin := NewControlPart(resp.NextIndex(), ControlContentFinished)
	stage.OutputToModule(data, output, &body)
	stage.OutputToModule(data, output, &fin)
}
