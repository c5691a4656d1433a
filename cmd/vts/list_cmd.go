// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/subcommands"
	"github.com/spf13/afero"

	"go.chromium.org/vts/errors"
	"go.chromium.org/vts/internal/command"
	"go.chromium.org/vts/internal/config"
	"go.chromium.org/vts/internal/logging"
)

// listCmd implements subcommands.Command to support listing tests.
type listCmd struct {
	cfg     *config.MutableConfig // shared config for listing tests
	wrapper runWrapper            // wraps calls to run package
	stdout  io.Writer             // where to write tests
	logTime *bool                 // value of the global -logtime flag
}

var _ = subcommands.Command(&listCmd{})

// newListCmd returns a new listCmd that will write tests to stdout.
func newListCmd(stdout io.Writer, fs afero.Fs, logTime *bool) *listCmd {
	return &listCmd{
		cfg:     config.NewMutableConfig(fs, config.ListTestsMode),
		wrapper: &realRunWrapper{fs: fs},
		stdout:  stdout,
		logTime: logTime,
	}
}

func (*listCmd) Name() string     { return "list_tests" }
func (*listCmd) Synopsis() string { return "list local test executables" }
func (*listCmd) Usage() string {
	return `Usage: list_tests [flag]...

Description:
    Lists the test executables found in -test-dir: regular files with the
    owner-execute bit set, in name order. A missing directory lists no tests.

Flag:
`
}

func (lc *listCmd) SetFlags(f *flag.FlagSet) {
	lc.cfg.SetFlags(f)
}

func (lc *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := lc.execute(ctx, f.Args()); err != nil {
		return subcommands.ExitStatus(command.WriteError(lc.stdout, err))
	}
	return subcommands.ExitSuccess
}

func (lc *listCmd) execute(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return command.NewStatusErrorf(command.StatusUsage, "Unexpected arguments %q.\n\n%s", args, lc.Usage())
	}
	if err := lc.cfg.DeriveDefaults(); err != nil {
		return command.NewStatusErrorf(command.StatusUsage, "Failed to derive defaults: %v", err)
	}
	cfg := lc.cfg.Freeze()
	ctx = logging.AttachLogger(ctx, newLogger(lc.stdout, logging.LevelForVerbosity(cfg.Verbosity()), *lc.logTime))

	dir := cfg.TestDir()
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	fmt.Fprintf(lc.stdout, "Scanning for tests in: %s...\n", dir)

	tests, err := lc.wrapper.discover(ctx, cfg)
	if err != nil {
		return errors.Wrap(err, "failed to list tests")
	}
	logging.Debugf(ctx, "Found %d test(s)", len(tests))
	if err := lc.printTests(tests); err != nil {
		return errors.Wrap(err, "failed to write tests")
	}
	return nil
}

// printTests writes the supplied test names to lc.stdout.
func (lc *listCmd) printTests(tests []string) error {
	if len(tests) == 0 {
		_, err := fmt.Fprintln(lc.stdout, "No tests found. Ensure tests are compiled and present in the specified directory.")
		return err
	}
	if _, err := fmt.Fprintln(lc.stdout, "Available tests:"); err != nil {
		return err
	}
	for _, t := range tests {
		if _, err := fmt.Fprintf(lc.stdout, "  - %s\n", t); err != nil {
			return err
		}
	}
	return nil
}
