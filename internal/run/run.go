// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package run drives test workflows: it pushes test executables to the
// device, runs them, fetches and parses their results and writes reports.
package run

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"code.cloudfoundry.org/clock"
	"github.com/spf13/afero"

	"go.chromium.org/vts/errors"
	"go.chromium.org/vts/internal/bridge"
	"go.chromium.org/vts/internal/config"
	"go.chromium.org/vts/internal/device"
	"go.chromium.org/vts/internal/gtest"
	"go.chromium.org/vts/internal/logging"
	"go.chromium.org/vts/internal/report"
	"go.chromium.org/vts/internal/timing"
)

// Workflow steps, as reported in Outcome.Step.
const (
	StepVerify = "verify"
	StepPush   = "push"
	StepRun    = "run"
	StepPull   = "pull"
	StepParse  = "parse"
	StepReport = "report"
)

// Env holds the collaborators of a batch.
type Env struct {
	// FS is the host filesystem.
	FS afero.Fs
	// Bridge runs bridge tool commands.
	Bridge bridge.Commander
	// Clock supplies timestamps. The real clock is used if nil.
	Clock clock.Clock
}

// Outcome describes how the workflow of a single test ended.
type Outcome struct {
	Test      string
	Succeeded bool
	// Step is the step that failed. It is empty if Succeeded is true.
	Step    string
	Err     error
	Start   time.Time
	Elapsed time.Duration
	// ReportPath is the path of the HTML report. It is empty if no report was
	// written.
	ReportPath string
}

// Summary tallies the outcomes of a batch.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Outcomes  []Outcome
}

func (s *Summary) add(o Outcome) {
	s.Total++
	if o.Succeeded {
		s.Succeeded++
	} else {
		s.Failed++
	}
	s.Outcomes = append(s.Outcomes, o)
}

// Run runs the workflow of every test in cfg.TestDir matching cfg.Pattern, in
// name order. A failing workflow does not stop the batch; its failure is
// recorded in the returned Summary. An error is returned only if the batch
// could not run to completion, in which case the Summary holds the outcomes
// recorded so far.
func Run(ctx context.Context, cfg *config.Config, env *Env) (*Summary, error) {
	if cfg.Mode() != config.RunTestsMode {
		return nil, errors.New("configuration is not for running tests")
	}
	if env.Clock == nil {
		env = &Env{FS: env.FS, Bridge: env.Bridge, Clock: clock.NewClock()}
	}

	var tl *timing.Log
	if cfg.TimingLogPath() != "" {
		tl = timing.NewLog()
		ctx = timing.NewContext(ctx, tl)
	}

	sum, err := runBatch(ctx, cfg, env)

	if cfg.JUnitPath() != "" && sum != nil {
		if werr := WriteJUnitResults(env.FS, cfg.JUnitPath(), sum); werr != nil {
			logging.Warningf(ctx, "Failed to write JUnit results: %v", werr)
		} else {
			logging.Infof(ctx, "JUnit results written to %s", cfg.JUnitPath())
		}
	}
	if tl != nil && !tl.Empty() {
		if werr := writeTimingLog(env.FS, cfg.TimingLogPath(), tl); werr != nil {
			logging.Warningf(ctx, "Failed to write timing log: %v", werr)
		}
	}
	return sum, err
}

func runBatch(ctx context.Context, cfg *config.Config, env *Env) (*Summary, error) {
	dir := cfg.HostResultsDir()
	if err := env.FS.MkdirAll(dir, 0755); err != nil {
		return nil, errors.WithKindf(errors.IOFailure, err, "failed to create host results directory %s", dir)
	}

	names, err := Discover(ctx, env.FS, cfg.TestDir())
	if err != nil {
		return nil, err
	}
	tests, err := Select(names, cfg.Pattern())
	if err != nil {
		return nil, err
	}

	sum := &Summary{}
	if len(tests) == 0 {
		logging.Infof(ctx, "No tests matched %q in %s", cfg.Pattern(), cfg.TestDir())
		return sum, nil
	}
	logging.Infof(ctx, "Selected %d test(s): %s", len(tests), strings.Join(tests, ", "))

	w := &workflow{
		env:    env,
		tr:     device.NewTransfer(env.Bridge, env.FS),
		runner: device.NewRunner(env.Bridge, cfg.TestTimeout()),
	}
	for _, t := range tests {
		if err := ctx.Err(); err != nil {
			return sum, errors.Wrap(err, "batch interrupted")
		}
		o, err := w.run(ctx, newInvocation(cfg, t))
		sum.add(o)
		if err != nil {
			return sum, err
		}
	}

	if len(tests) > 1 {
		logging.Infof(ctx, "Ran %d tests: %d succeeded, %d failed", sum.Total, sum.Succeeded, sum.Failed)
		for _, o := range sum.Outcomes {
			if !o.Succeeded {
				logging.Infof(ctx, "  %s failed at %s: %v", o.Test, o.Step, o.Err)
			}
		}
	}
	return sum, nil
}

// workflow runs the steps of a single test.
type workflow struct {
	env    *Env
	tr     *device.Transfer
	runner *device.Runner
}

// run runs the workflow for inv. Workflow failures are recorded in the
// returned Outcome. A non-nil error means the batch must stop.
func (w *workflow) run(ctx context.Context, inv invocation) (Outcome, error) {
	ctx = logging.SetLogPrefix(ctx, "["+inv.test+"] ")
	ctx, st := timing.Start(ctx, inv.test)
	defer st.End()

	o := Outcome{Test: inv.test, Start: w.env.Clock.Now()}
	step, reportPath, err := w.steps(ctx, inv)
	o.Elapsed = w.env.Clock.Since(o.Start)
	o.ReportPath = reportPath

	if err == nil {
		o.Succeeded = true
		logging.Infof(ctx, "Succeeded in %v", o.Elapsed.Round(time.Millisecond))
		return o, nil
	}

	o.Step = step
	o.Err = err
	logging.Warningf(ctx, "Failed at %s: %v", step, err)
	if errors.KindOf(err) == errors.ToolNotFound {
		logging.Info(ctx, "Check that the bridge tool is installed; its path can be set with -sdb-path")
		return o, errors.Wrap(err, "bridge tool unavailable")
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return o, errors.Wrap(ctxErr, "batch interrupted")
	}
	if k := errors.KindOf(err); k == errors.CommandFailed || k == errors.Timeout {
		logging.Info(ctx, "Check that the device is connected and authorized; a device can be chosen with -target-id")
	}
	return o, nil
}

// steps runs the workflow steps in order and returns the failed step along
// with its error.
func (w *workflow) steps(ctx context.Context, inv invocation) (step, reportPath string, err error) {
	stage := func(name string, f func(ctx context.Context) error) error {
		step = name
		ctx, st := timing.Start(ctx, name)
		defer st.End()
		return f(ctx)
	}

	if err := stage(StepVerify, func(ctx context.Context) error {
		return verifyExecutable(w.env.FS, inv.localPath)
	}); err != nil {
		return step, "", err
	}
	logging.Infof(ctx, "Local path: %s", inv.localPath)

	if err := stage(StepPush, func(ctx context.Context) error {
		return w.tr.Push(ctx, inv.localPath, inv.remoteExe)
	}); err != nil {
		return step, "", err
	}

	if err := stage(StepRun, func(ctx context.Context) error {
		_, err := w.runner.RunOnDevice(ctx, inv.remoteExe, inv.remoteResultsDir, inv.resultFile, inv.filter)
		return err
	}); err != nil {
		return step, "", err
	}

	if err := stage(StepPull, func(ctx context.Context) error {
		ok, err := w.tr.Pull(ctx, inv.remoteResultPath(), inv.localResultPath)
		if err != nil {
			return err
		}
		if !ok {
			return errors.WithKindf(errors.TransferFailed, nil, "failed to fetch results document %s", inv.remoteResultPath())
		}
		return nil
	}); err != nil {
		return step, "", err
	}

	var doc *gtest.Document
	if err := stage(StepParse, func(ctx context.Context) error {
		var err error
		doc, err = gtest.ParseFile(ctx, w.env.FS, inv.localResultPath)
		return err
	}); err != nil {
		return step, "", err
	}
	logging.Infof(ctx, "Parsed %d suite(s): %d tests, %d failures, %d disabled, %d errors",
		len(doc.Suites), doc.Overall.Tests, doc.Overall.Failures, doc.Overall.Disabled, doc.Overall.Errors)

	now := w.env.Clock.Now()
	reportPath = filepath.Join(inv.hostResultsDir, report.FileName(inv.base, now))
	if err := stage(StepReport, func(ctx context.Context) error {
		return report.WriteFile(w.env.FS, reportPath, doc, now)
	}); err != nil {
		return step, "", err
	}
	logging.Infof(ctx, "Report written to %s", reportPath)
	return "", reportPath, nil
}

// verifyExecutable checks that p still names an executable test file.
func verifyExecutable(fs afero.Fs, p string) error {
	fi, err := fs.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.WithKindf(errors.IOFailure, err, "test executable %s not found", p)
		}
		return errors.WithKindf(errors.IOFailure, err, "failed to stat %s", p)
	}
	if !isTestExecutable(fi) {
		return errors.WithKindf(errors.IOFailure, nil, "%s is not an executable file", p)
	}
	return nil
}

// writeTimingLog writes tl to p. Paths ending in .json get the full JSON
// encoding; others get the pretty format.
func writeTimingLog(fs afero.Fs, p string, tl *timing.Log) (retErr error) {
	if strings.EqualFold(filepath.Ext(p), ".json") {
		b, err := json.Marshal(tl)
		if err != nil {
			return errors.Wrap(err, "failed to marshal timing log")
		}
		if err := afero.WriteFile(fs, p, b, 0644); err != nil {
			return errors.WithKindf(errors.IOFailure, err, "failed to write %s", p)
		}
		return nil
	}

	f, err := fs.Create(p)
	if err != nil {
		return errors.WithKindf(errors.IOFailure, err, "failed to create %s", p)
	}
	defer func() {
		if err := f.Close(); err != nil && retErr == nil {
			retErr = errors.WithKindf(errors.IOFailure, err, "failed to close %s", p)
		}
	}()
	return tl.WritePretty(f)
}
