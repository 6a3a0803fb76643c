/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package elog is a small leveled-logging wrapper used across the eds
// runtime. It carries no third-party dependency: the server, the HTTP
// reader/writer stages and the halleyd command log through here
// instead of bare log.Printf so verbosity can be filtered in one place.
package elog

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

// Level controls which calls actually reach the underlying logger.
type Level int32

const (
	LevelError Level = iota
	LevelWarning
	LevelInfo
	LevelTrace
)

var (
	std      = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
	curLevel int32
)

// SetLevel changes the minimum level that will be emitted.
func SetLevel(l Level) { atomic.StoreInt32(&curLevel, int32(l)) }

func enabled(l Level) bool { return l <= Level(atomic.LoadInt32(&curLevel)) }

func Errorf(format string, args ...any) {
	std.Output(2, "[E] "+fmt.Sprintf(format, args...))
}

func Warningf(format string, args ...any) {
	if enabled(LevelWarning) {
		std.Output(2, "[W] "+fmt.Sprintf(format, args...))
	}
}

func Infof(format string, args ...any) {
	if enabled(LevelInfo) {
		std.Output(2, "[I] "+fmt.Sprintf(format, args...))
	}
}

func Traceln(args ...any) {
	if enabled(LevelTrace) {
		std.Output(2, "[T] "+fmt.Sprintln(args...))
	}
}
