/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"os"
	"syscall"
	"testing"
)

func TestDescribeFileErrorKnownErrno(t *testing.T) {
	err := &os.PathError{Op: "open", Path: "/nope", Err: syscall.ENOENT}
	if got := describeFileError(err); got != "no such file or directory" {
		t.Fatalf("got %q", got)
	}
}

func TestDescribeFileErrorUnknownFallsBackToErrorString(t *testing.T) {
	err := os.ErrClosed
	if got := describeFileError(err); got != err.Error() {
		t.Fatalf("got %q, want %q", got, err.Error())
	}
}

func TestDescribeFileErrorPermissionDenied(t *testing.T) {
	err := &os.PathError{Op: "open", Path: "/root/secret", Err: syscall.EACCES}
	if got := describeFileError(err); got != "permission denied" {
		t.Fatalf("got %q", got)
	}
}
