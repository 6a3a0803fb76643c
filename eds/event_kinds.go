/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package eds

// Event kinds the server itself produces, ahead of any protocol layer:
// a readiness notification becomes one of these two before the reader
// or writer stage gets a chance to interpret it.
const (
	EventReadRequest EventKind = iota + 1
	EventWriteData
)
