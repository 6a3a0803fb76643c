/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import "github.com/panyam/halley/eds"

// Handler-stage event kinds, These are interpreted
// only by the handler stage's own queue, so they intentionally reuse
// the small-integer space eds/event_kinds.go uses for the reader and
// writer stages — each stage's Kind values are private to that stage.
const (
	EventRequestArrived eds.EventKind = iota + 1
	EventCloseConnection
)
