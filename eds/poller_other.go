//go:build !linux

/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package eds

import (
	"errors"
)

// newPoller has no non-Linux implementation: the spec's readiness
// multiplexer is epoll-specific, same as the C++
// original it was distilled from. Building on another OS compiles
// fine; running ListenAndServe there fails fast instead of silently
// degrading to blocking I/O.
func newPoller() (Poller, error) {
	return nil, errors.New("eds: no readiness multiplexer implemented for this platform (linux only)")
}

func tuneListenSocket(fd int) error { return nil }
func tuneClientSocket(fd int) error { return nil }
