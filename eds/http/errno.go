/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

package http

import (
	"errors"
	"os"
	"syscall"
)

// errnoMessages maps the errno classes names to the
// human-readable message the file module returns as a 404 body.
var errnoMessages = map[syscall.Errno]string{
	syscall.EEXIST:        "file already exists",
	syscall.EISDIR:        "is a directory",
	syscall.EACCES:        "permission denied",
	syscall.ELOOP:         "too many symbolic links",
	syscall.ENAMETOOLONG:  "file name too long",
	syscall.ENOENT:        "no such file or directory",
	syscall.ENOTDIR:       "not a directory",
	syscall.ENXIO:         "no such device or address",
	syscall.ENODEV:        "no such device",
	syscall.EROFS:         "read-only file system",
	syscall.ETXTBSY:       "text file busy",
	syscall.EFAULT:        "bad address",
	syscall.ENOSPC:        "no space left on device",
	syscall.ENOMEM:        "out of memory",
	syscall.EMFILE:        "too many open files",
	syscall.ENFILE:        "too many open files in system",
}

// describeFileError renders err the way's file errno
// mapping requires, falling back to err.Error() for anything not in
// the observed table.
func describeFileError(err error) string {
	var perr *os.PathError
	if errors.As(err, &perr) {
		if errno, ok := perr.Err.(syscall.Errno); ok {
			if msg, ok := errnoMessages[errno]; ok {
				return msg
			}
		}
	}
	return err.Error()
}
