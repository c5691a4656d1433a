// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package stack captures and formats stack traces for the errors package.
package stack

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	maxDepth = 8       // maximum number of stack frames to record
	ellipsis = "\t..." // trailing marker line added if the trace was cut
)

// Stack holds a snapshot of program counters.
type Stack []uintptr

// New captures a stack trace. skip=0 records the caller of New as the
// innermost frame.
func New(skip int) Stack {
	pc := make([]uintptr, maxDepth+1)
	return Stack(pc[:runtime.Callers(skip+2, pc)])
}

// String formats s with one "at function (file:line)" line per frame.
func (s Stack) String() string {
	if len(s) == 0 {
		return ""
	}
	var lines []string
	// runtime.CallersFrames expands inlined frames that the raw program
	// counters hide.
	frames := runtime.CallersFrames(s)
	for {
		f, more := frames.Next()
		lines = append(lines, fmt.Sprintf("\tat %s (%s:%d)", f.Function, filepath.Base(f.File), f.Line))
		if !more {
			break
		}
		if len(lines) >= maxDepth {
			lines = append(lines, ellipsis)
			break
		}
	}
	return strings.Join(lines, "\n")
}
