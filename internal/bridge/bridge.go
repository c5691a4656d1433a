// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package bridge runs device-bridge commands (push, pull and shell) against a
// remote device.
//
// The default backend is Executor, which runs a bridge tool such as sdb as a
// subprocess. ADBCommander speaks the same command grammar to an adb server.
package bridge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/afero"

	"go.chromium.org/vts/errors"
	"go.chromium.org/vts/shutil"
)

// Result is the outcome of a single bridge command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Commander runs bridge commands. args is the bridge sub-command followed by
// its arguments, e.g. {"push", local, remote} or {"shell", "mkdir -p /tmp"}.
//
// A non-zero exit is not an error unless mustSucceed is true, in which case a
// *CommandError is returned. Errors of kind errors.ToolNotFound mean that no
// further command can succeed.
type Commander interface {
	Run(ctx context.Context, args []string, mustSucceed bool) (*Result, error)
}

// adbTargetPrefix selects the ADB backend when present on a target id.
const adbTargetPrefix = "adb:"

// New returns a Commander for target. Targets of the form adb:<serial> or
// adb:<host>:<port> are served by an ADBCommander using fs for local files;
// any other target is passed to the bridge tool at path with -s.
func New(path, target string, timeout time.Duration, fs afero.Fs) Commander {
	if strings.HasPrefix(target, adbTargetPrefix) {
		return NewADBCommander(strings.TrimPrefix(target, adbTargetPrefix), timeout, fs)
	}
	return &Executor{Path: path, Target: target, Timeout: timeout}
}

// CommandError is returned by Commander.Run when mustSucceed is set and the
// command exited with a non-zero status.
type CommandError struct {
	CommandLine []string
	ExitCode    int
	Stdout      string
	Stderr      string
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", shutil.EscapeSlice(e.CommandLine), e.ExitCode)
	if detail := strings.TrimSpace(e.Stderr); detail != "" {
		msg += ": " + detail
	} else if detail := strings.TrimSpace(e.Stdout); detail != "" {
		msg += ": " + detail
	}
	return msg
}

// Kind implements the classification interface used by errors.KindOf.
func (e *CommandError) Kind() errors.Kind { return errors.CommandFailed }

// TimeoutError is returned by Commander.Run when a command did not finish
// before its deadline. The process group of the command has been killed.
type TimeoutError struct {
	CommandLine []string
	Elapsed     time.Duration
	Stdout      string
	Stderr      string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %v", shutil.EscapeSlice(e.CommandLine), e.Elapsed.Round(time.Millisecond))
}

// Kind implements the classification interface used by errors.KindOf.
func (e *TimeoutError) Kind() errors.Kind { return errors.Timeout }

// check converts a non-zero exit into a *CommandError if mustSucceed is set.
func check(cmdline []string, res *Result, mustSucceed bool) (*Result, error) {
	if mustSucceed && res.ExitCode != 0 {
		return res, &CommandError{
			CommandLine: cmdline,
			ExitCode:    res.ExitCode,
			Stdout:      res.Stdout,
			Stderr:      res.Stderr,
		}
	}
	return res, nil
}
