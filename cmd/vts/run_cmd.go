// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"io"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/spf13/afero"

	"go.chromium.org/vts/errors"
	"go.chromium.org/vts/internal/command"
	"go.chromium.org/vts/internal/config"
	"go.chromium.org/vts/internal/logging"
	"go.chromium.org/vts/internal/run"
)

// runCmd implements subcommands.Command to support running tests.
type runCmd struct {
	cfg     *config.MutableConfig // shared config for running tests
	wrapper runWrapper            // can be set by tests to stub out calls to run package
	stdout  io.Writer             // where to write logs
	logTime *bool                 // value of the global -logtime flag
}

var _ = subcommands.Command(&runCmd{})

func newRunCmd(stdout io.Writer, fs afero.Fs, logTime *bool) *runCmd {
	return &runCmd{
		cfg:     config.NewMutableConfig(fs, config.RunTestsMode),
		wrapper: &realRunWrapper{fs: fs},
		stdout:  stdout,
		logTime: logTime,
	}
}

func (*runCmd) Name() string     { return "run_test" }
func (*runCmd) Synopsis() string { return "run test executables on a device" }
func (*runCmd) Usage() string {
	return `Usage: run_test [flag]... <pattern> [flag]...

Description:
    Pushes every test executable in -test-dir matching the pattern to the
    device, runs it, fetches its XML results and writes an HTML report to
    -host-results-dir.

    Exits with 0 if the batch completed, even if some tests failed. Non-zero
    exit codes indicate high-level issues, e.g. the bridge tool is missing.

Pattern:
    A glob matched against test executable names. *, ? and bracket classes
    are supported, as well as {a,b} alternation. Example:

        $ vts run_test 'sample_*' -gtest_filter 'Foo.*' -s emulator-26101

Flags may precede or follow the pattern. Pass -vv or -v -v for debug logs.

Flag:
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	r.cfg.SetFlags(f)
}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := r.execute(ctx, f); err != nil {
		return subcommands.ExitStatus(command.WriteError(r.stdout, err))
	}
	return subcommands.ExitSuccess
}

// execute takes the pattern from the first positional argument of f and
// parses any flags following it with f.
func (r *runCmd) execute(ctx context.Context, f *flag.FlagSet) error {
	if f.NArg() == 0 {
		return command.NewStatusErrorf(command.StatusUsage, "Exactly one test pattern is required.\n\n%s", r.Usage())
	}
	pattern := f.Arg(0)
	if err := f.Parse(f.Args()[1:]); err != nil {
		return command.NewStatusErrorf(command.StatusUsage, "Bad flags after pattern: %v", err)
	}
	if f.NArg() != 0 {
		return command.NewStatusErrorf(command.StatusUsage, "Exactly one test pattern is required; got extra arguments %q.\n\n%s", f.Args(), r.Usage())
	}
	if err := r.cfg.DeriveDefaults(); err != nil {
		return command.NewStatusErrorf(command.StatusUsage, "Failed to derive defaults: %v", err)
	}
	r.cfg.Pattern = pattern
	if err := run.ValidatePattern(r.cfg.Pattern); err != nil {
		return command.NewStatusErrorf(command.StatusUsage, "Invalid pattern: %v", err)
	}
	cfg := r.cfg.Freeze()

	ctx = logging.AttachLogger(ctx, newLogger(r.stdout, logging.LevelForVerbosity(cfg.Verbosity()), *r.logTime))
	logging.Debug(ctx, "Command line: ", strings.Join(os.Args, " "))
	if cfg.TargetID() != "" {
		logging.Info(ctx, "Using target ", cfg.TargetID())
	}
	logging.Debug(ctx, "Device test root: ", cfg.RemoteTestRoot())
	logging.Info(ctx, "Writing results to ", cfg.HostResultsDir())

	sum, err := r.wrapper.run(ctx, cfg)
	if err != nil {
		if sum != nil && sum.Total > 0 {
			logging.Infof(ctx, "Completed %d test(s) before stopping: %d succeeded, %d failed", sum.Total, sum.Succeeded, sum.Failed)
		}
		return errors.Wrap(err, "failed to run tests")
	}
	return nil
}
