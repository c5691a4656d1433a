// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package logging sends log messages through context.Context.
//
// A Logger is attached to a context with AttachLogger, and functions like Info
// and Debug send messages to whatever loggers are attached to the context they
// are called with. Functions that have no logger attached silently drop logs.
package logging

import "time"

// Level indicates a logging level. A larger level value means a log is more
// important.
type Level int

const (
	// LevelDebug represents the DEBUG level: bridge command lines and echoed
	// process output.
	LevelDebug Level = iota
	// LevelInfo represents the INFO level: workflow progress.
	LevelInfo
	// LevelWarning represents the WARNING level: tolerated anomalies.
	LevelWarning
)

// LevelForVerbosity maps the number of -v flags to the minimum level shown on
// the console.
func LevelForVerbosity(v int) Level {
	if v > 0 {
		return LevelDebug
	}
	return LevelInfo
}

// Logger defines the interface for loggers that consume logs sent via
// context.Context.
type Logger interface {
	// Log gets called for a log entry.
	Log(level Level, ts time.Time, msg string)
}

// MultiLogger is a Logger that copies logs to multiple underlying loggers.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger creates a new MultiLogger copying logs to loggers.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log copies a log to the underlying loggers.
func (ml *MultiLogger) Log(level Level, ts time.Time, msg string) {
	for _, logger := range ml.loggers {
		logger.Log(level, ts, msg)
	}
}
