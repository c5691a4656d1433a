// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package device

import (
	"context"
	"path"
	"strings"
	"time"

	"go.chromium.org/vts/errors"
	"go.chromium.org/vts/internal/bridge"
	"go.chromium.org/vts/internal/logging"
	"go.chromium.org/vts/shutil"
)

// Runner runs GTest executables on the device.
type Runner struct {
	cmd         bridge.Commander
	testTimeout time.Duration
}

// NewRunner returns a Runner running bridge commands with cmd. Each test
// executable run is bounded by testTimeout instead of the command timeout
// when testTimeout is positive.
func NewRunner(cmd bridge.Commander, testTimeout time.Duration) *Runner {
	return &Runner{cmd: cmd, testTimeout: testTimeout}
}

// TestCommand returns the device shell command running exe so that it writes
// its XML results to resultsDir/resultFile. A non-empty filter is appended
// verbatim as --gtest_filter.
func TestCommand(exe, resultsDir, resultFile, filter string) string {
	var raw []string
	if filter != "" {
		raw = append(raw, "--gtest_filter="+filter)
	}
	return shutil.Command(exe, []string{"--gtest_output=xml:" + path.Join(resultsDir, resultFile)}, raw...)
}

// RunOnDevice prepares the device and runs the test executable at exe. A
// results document left by an earlier run is removed first. A non-zero exit from the executable is not an error: it normally means that
// some test cases failed, which the results document describes.
func (r *Runner) RunOnDevice(ctx context.Context, exe, resultsDir, resultFile, filter string) (*bridge.Result, error) {
	logging.Debugf(ctx, "Creating remote results directory %s", resultsDir)
	if _, err := r.cmd.Run(ctx, []string{"shell", shutil.Command("mkdir", []string{"-p", resultsDir})}, true); err != nil {
		return nil, errors.Wrapf(err, "failed to create remote results directory %s", resultsDir)
	}
	resultPath := path.Join(resultsDir, resultFile)
	logging.Debugf(ctx, "Removing stale results document %s", resultPath)
	if _, err := r.cmd.Run(ctx, []string{"shell", shutil.Command("rm", []string{"-f", resultPath})}, true); err != nil {
		return nil, errors.Wrapf(err, "failed to remove stale results document %s", resultPath)
	}
	logging.Debugf(ctx, "Making %s executable", exe)
	if _, err := r.cmd.Run(ctx, []string{"shell", shutil.Command("chmod", []string{"+x", exe})}, true); err != nil {
		return nil, errors.Wrapf(err, "failed to make %s executable", exe)
	}

	testCmd := TestCommand(exe, resultsDir, resultFile, filter)
	logging.Info(ctx, "Executing on device: ", testCmd)

	runCtx := ctx
	if r.testTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.testTimeout)
		defer cancel()
	}
	res, err := r.cmd.Run(runCtx, []string{"shell", testCmd}, false)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to run %s", path.Base(exe))
	}

	logging.Info(ctx, "--- Device test output ---")
	logLines(ctx, res.Stdout, "")
	logLines(ctx, res.Stderr, "stderr: ")
	logging.Info(ctx, "--- End of device test output ---")

	if res.ExitCode != 0 {
		logging.Warningf(ctx, "%s exited with status %d; this usually means test failures, see the results document", path.Base(exe), res.ExitCode)
	} else {
		logging.Infof(ctx, "%s completed on device", path.Base(exe))
	}
	return res, nil
}

// logLines logs each line of s at info level with prefix.
func logLines(ctx context.Context, s, prefix string) {
	s = strings.TrimRight(s, "\r\n")
	if s == "" {
		return
	}
	for _, line := range strings.Split(s, "\n") {
		logging.Info(ctx, prefix, strings.TrimRight(line, "\r"))
	}
}
