// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package run

import (
	"context"
	"encoding/json"
	"path"
	"strings"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"go.chromium.org/vts/errors"
	"go.chromium.org/vts/internal/bridge"
	"go.chromium.org/vts/internal/config"
	"go.chromium.org/vts/internal/logging"
	"go.chromium.org/vts/internal/logging/loggingtest"
)

const (
	passingXML = `<testsuites><testsuite name="S" tests="1" failures="0" disabled="0" errors="0" time="0.1"><testcase name="C" status="run" time="0.1"/></testsuite></testsuites>`
	failingXML = `<testsuites><testsuite name="S" tests="1" failures="1" disabled="0" errors="0" time="0.1"><testcase name="C" status="run" time="0.1"><failure message="boom"/></testcase></testsuite></testsuites>`
)

var startTime = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

// fakeDevice is a bridge.Commander emulating a device in memory. Test
// executables write the document in results keyed by their name, if any.
type fakeDevice struct {
	host    afero.Fs
	clock   *fakeclock.FakeClock
	files   map[string]string
	results map[string]string

	toolMissing bool
	calls       [][]string

	// onCall, if set, is called with the arguments of every command before
	// it is handled.
	onCall func(args []string)
}

func newFakeDevice(host afero.Fs, clock *fakeclock.FakeClock, results map[string]string) *fakeDevice {
	return &fakeDevice{host: host, clock: clock, files: make(map[string]string), results: results}
}

func (d *fakeDevice) Run(ctx context.Context, args []string, mustSucceed bool) (*bridge.Result, error) {
	d.calls = append(d.calls, args)
	if d.onCall != nil {
		d.onCall(args)
	}
	if d.toolMissing {
		return nil, errors.WithKind(errors.ToolNotFound, nil, "sdb: executable file not found in $PATH")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &bridge.Result{}
	switch args[0] {
	case "push":
		b, err := afero.ReadFile(d.host, args[1])
		if err != nil {
			res.ExitCode, res.Stderr = 1, err.Error()
			break
		}
		d.files[args[2]] = string(b)
	case "pull":
		s, ok := d.files[args[1]]
		if !ok {
			res.ExitCode, res.Stderr = 1, "error: remote object '"+args[1]+"' does not exist"
			break
		}
		if err := afero.WriteFile(d.host, args[2], []byte(s), 0644); err != nil {
			res.ExitCode, res.Stderr = 1, err.Error()
		}
	case "shell":
		fields := strings.Fields(args[1])
		switch fields[0] {
		case "mkdir", "chmod":
		case "rm":
			delete(d.files, fields[len(fields)-1])
		default:
			d.clock.Increment(time.Second)
			if _, ok := d.files[fields[0]]; !ok {
				res.ExitCode, res.Stderr = 127, fields[0]+": not found"
				break
			}
			doc, ok := d.results[path.Base(fields[0])]
			if !ok {
				res.ExitCode = 1
				break
			}
			for _, f := range fields[1:] {
				if out := strings.TrimPrefix(f, "--gtest_output=xml:"); out != f {
					d.files[out] = doc
				}
			}
		}
	}
	if mustSucceed && res.ExitCode != 0 {
		return res, &bridge.CommandError{CommandLine: append([]string{"sdb"}, args...), ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return res, nil
}

// shellCalls returns the shell command strings received by d.
func (d *fakeDevice) shellCalls() []string {
	var cmds []string
	for _, c := range d.calls {
		if c[0] == "shell" {
			cmds = append(cmds, c[1])
		}
	}
	return cmds
}

type testEnv struct {
	fs     afero.Fs
	clock  *fakeclock.FakeClock
	dev    *fakeDevice
	env    *Env
	ctx    context.Context
	logger *loggingtest.Logger
}

// newTestEnv returns an environment with the given test executables in
// /build/bin. results maps test names to the documents they produce.
func newTestEnv(t *testing.T, tests []string, results map[string]string) *testEnv {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, name := range tests {
		if err := afero.WriteFile(fs, "/build/bin/"+name, []byte("#!/bin/sh\n"), 0755); err != nil {
			t.Fatal(err)
		}
	}
	clock := fakeclock.NewFakeClock(startTime)
	dev := newFakeDevice(fs, clock, results)
	ctx, logger := loggingtest.NewContext(t, logging.LevelInfo)
	return &testEnv{
		fs:     fs,
		clock:  clock,
		dev:    dev,
		env:    &Env{FS: fs, Bridge: dev, Clock: clock},
		ctx:    ctx,
		logger: logger,
	}
}

func newConfig(t *testing.T, pattern string, mod func(c *config.MutableConfig)) *config.Config {
	t.Helper()
	c := config.NewMutableConfig(afero.NewMemMapFs(), config.RunTestsMode)
	c.TestDir = "/build/bin"
	c.HostResultsDir = "/results"
	c.Pattern = pattern
	if mod != nil {
		mod(c)
	}
	if err := c.DeriveDefaults(); err != nil {
		t.Fatal("DeriveDefaults failed: ", err)
	}
	return c.Freeze()
}

// briefOutcome is a comparable subset of Outcome.
type briefOutcome struct {
	Test      string
	Succeeded bool
	Step      string
}

func briefOutcomes(sum *Summary) []briefOutcome {
	var bs []briefOutcome
	for _, o := range sum.Outcomes {
		bs = append(bs, briefOutcome{o.Test, o.Succeeded, o.Step})
	}
	return bs
}

func TestRunSelectsByPattern(t *testing.T) {
	te := newTestEnv(t, []string{"sample_b_test", "other_test", "sample_a_test"}, map[string]string{
		"sample_a_test": passingXML,
		"sample_b_test": failingXML,
		"other_test":    passingXML,
	})
	sum, err := Run(te.ctx, newConfig(t, "sample_*", nil), te.env)
	if err != nil {
		t.Fatal("Run failed: ", err)
	}

	want := []briefOutcome{{"sample_a_test", true, ""}, {"sample_b_test", true, ""}}
	if diff := cmp.Diff(briefOutcomes(sum), want); diff != "" {
		t.Errorf("Outcomes mismatch (-got +want):\n%s", diff)
	}
	if sum.Total != 2 || sum.Succeeded != 2 || sum.Failed != 0 {
		t.Errorf("Summary = %d/%d/%d; want 2/2/0", sum.Total, sum.Succeeded, sum.Failed)
	}
	for _, c := range te.dev.calls {
		if strings.Contains(strings.Join(c, " "), "other_test") {
			t.Errorf("Unselected test was touched: %q", c)
		}
	}

	for _, p := range []string{
		"/results/sample_a_test_results.xml",
		"/results/sample_a_test_report_20260304_050608.html",
		"/results/sample_b_test_results.xml",
		"/results/sample_b_test_report_20260304_050609.html",
	} {
		if _, err := te.fs.Stat(p); err != nil {
			t.Errorf("%s not written: %v", p, err)
		}
	}
	if got, want := sum.Outcomes[0].ReportPath, "/results/sample_a_test_report_20260304_050608.html"; got != want {
		t.Errorf("ReportPath = %q; want %q", got, want)
	}
	if got, want := sum.Outcomes[0].Elapsed, time.Second; got != want {
		t.Errorf("Elapsed = %v; want %v", got, want)
	}
	if !te.logger.Contains("Ran 2 tests: 2 succeeded, 0 failed") {
		t.Errorf("Tally not logged:\n%s", te.logger.String())
	}
	if !te.logger.Contains("[sample_a_test] Report written to /results/sample_a_test_report_20260304_050608.html") {
		t.Errorf("Report path not logged with test prefix:\n%s", te.logger.String())
	}
}

func TestRunWorkflowCommands(t *testing.T) {
	te := newTestEnv(t, []string{"sample_test"}, map[string]string{"sample_test": passingXML})
	cfg := newConfig(t, "sample_test", func(c *config.MutableConfig) {
		c.GTestFilter = "Foo.*:-Foo.Bar"
		c.RemoteTestRoot = "/tmp/vts"
	})
	if _, err := Run(te.ctx, cfg, te.env); err != nil {
		t.Fatal("Run failed: ", err)
	}

	want := [][]string{
		{"shell", "mkdir -p /tmp/vts/bin"},
		{"push", "/build/bin/sample_test", "/tmp/vts/bin/sample_test"},
		{"shell", "mkdir -p /tmp/vts/results"},
		{"shell", "rm -f /tmp/vts/results/sample_test_results.xml"},
		{"shell", "chmod +x /tmp/vts/bin/sample_test"},
		{"shell", "/tmp/vts/bin/sample_test --gtest_output=xml:/tmp/vts/results/sample_test_results.xml --gtest_filter=Foo.*:-Foo.Bar"},
		{"pull", "/tmp/vts/results/sample_test_results.xml", "/results/sample_test_results.xml"},
	}
	if diff := cmp.Diff(te.dev.calls, want); diff != "" {
		t.Errorf("Bridge commands mismatch (-got +want):\n%s", diff)
	}
	if te.logger.Contains("Ran 1 tests") {
		t.Error("Tally logged for a single test")
	}
}

func TestRunMissingResultsContinues(t *testing.T) {
	te := newTestEnv(t, []string{"sample_a_test", "sample_b_test"}, map[string]string{
		"sample_b_test": passingXML,
	})
	sum, err := Run(te.ctx, newConfig(t, "sample_*", nil), te.env)
	if err != nil {
		t.Fatal("Run failed: ", err)
	}
	want := []briefOutcome{{"sample_a_test", false, StepPull}, {"sample_b_test", true, ""}}
	if diff := cmp.Diff(briefOutcomes(sum), want); diff != "" {
		t.Errorf("Outcomes mismatch (-got +want):\n%s", diff)
	}
	if k := errors.KindOf(sum.Outcomes[0].Err); k != errors.TransferFailed {
		t.Errorf("Failure kind = %v; want %v", k, errors.TransferFailed)
	}
	if !te.logger.Contains("Hint:") {
		t.Errorf("Missing results hint not logged:\n%s", te.logger.String())
	}
	if !te.logger.Contains("Ran 2 tests: 1 succeeded, 1 failed") {
		t.Errorf("Tally not logged:\n%s", te.logger.String())
	}
}

func TestRunParseFailure(t *testing.T) {
	te := newTestEnv(t, []string{"sample_test"}, map[string]string{"sample_test": "<testsuites><testsuite>"})
	sum, err := Run(te.ctx, newConfig(t, "sample_test", nil), te.env)
	if err != nil {
		t.Fatal("Run failed: ", err)
	}
	want := []briefOutcome{{"sample_test", false, StepParse}}
	if diff := cmp.Diff(briefOutcomes(sum), want); diff != "" {
		t.Errorf("Outcomes mismatch (-got +want):\n%s", diff)
	}
	if k := errors.KindOf(sum.Outcomes[0].Err); k != errors.ParseFailure {
		t.Errorf("Failure kind = %v; want %v", k, errors.ParseFailure)
	}
	if fis, _ := afero.ReadDir(te.fs, "/results"); len(fis) != 1 {
		t.Errorf("Results directory has %d entries; want only the fetched document", len(fis))
	}
}

func TestRunToolNotFoundAborts(t *testing.T) {
	te := newTestEnv(t, []string{"sample_a_test", "sample_b_test"}, nil)
	te.dev.toolMissing = true
	sum, err := Run(te.ctx, newConfig(t, "sample_*", nil), te.env)
	if k := errors.KindOf(err); k != errors.ToolNotFound {
		t.Fatalf("Run returned %v (kind %v); want kind %v", err, k, errors.ToolNotFound)
	}
	want := []briefOutcome{{"sample_a_test", false, StepPush}}
	if diff := cmp.Diff(briefOutcomes(sum), want); diff != "" {
		t.Errorf("Outcomes mismatch (-got +want):\n%s", diff)
	}
	if len(te.dev.calls) != 1 {
		t.Errorf("Bridge was called %d times; want 1", len(te.dev.calls))
	}
}

func TestRunToolVanishesMidBatch(t *testing.T) {
	te := newTestEnv(t, []string{"a_test", "b_test", "c_test"}, map[string]string{
		"a_test": passingXML,
		"b_test": passingXML,
		"c_test": passingXML,
	})
	pushes := 0
	te.dev.onCall = func(args []string) {
		if args[0] == "push" {
			if pushes++; pushes == 2 {
				te.dev.toolMissing = true
			}
		}
	}
	sum, err := Run(te.ctx, newConfig(t, "*", nil), te.env)
	if k := errors.KindOf(err); k != errors.ToolNotFound {
		t.Fatalf("Run returned %v (kind %v); want kind %v", err, k, errors.ToolNotFound)
	}
	want := []briefOutcome{{"a_test", true, ""}, {"b_test", false, StepPush}}
	if diff := cmp.Diff(briefOutcomes(sum), want); diff != "" {
		t.Errorf("Outcomes mismatch (-got +want):\n%s", diff)
	}
	for _, c := range te.dev.calls {
		if strings.Contains(strings.Join(c, " "), "c_test") {
			t.Errorf("Test after the bridge tool vanished was touched: %q", c)
		}
	}
}

func TestRunReverifiesExecutable(t *testing.T) {
	te := newTestEnv(t, []string{"a_test", "b_test", "c_test"}, map[string]string{
		"a_test": passingXML,
		"b_test": passingXML,
		"c_test": passingXML,
	})
	// b_test loses its execute bit after discovery, while a_test is running.
	te.dev.onCall = func(args []string) {
		if args[0] == "push" && path.Base(args[1]) == "a_test" {
			if err := te.fs.Chmod("/build/bin/b_test", 0644); err != nil {
				t.Error(err)
			}
		}
	}
	sum, err := Run(te.ctx, newConfig(t, "*", nil), te.env)
	if err != nil {
		t.Fatal("Run failed: ", err)
	}
	want := []briefOutcome{{"a_test", true, ""}, {"b_test", false, StepVerify}, {"c_test", true, ""}}
	if diff := cmp.Diff(briefOutcomes(sum), want); diff != "" {
		t.Errorf("Outcomes mismatch (-got +want):\n%s", diff)
	}
	if k := errors.KindOf(sum.Outcomes[1].Err); k != errors.IOFailure {
		t.Errorf("Failure kind = %v; want %v", k, errors.IOFailure)
	}
	for _, c := range te.dev.calls {
		if strings.Contains(strings.Join(c, " "), "b_test") {
			t.Errorf("Unverified test was sent to the device: %q", c)
		}
	}
}

func TestRunMissingTestDir(t *testing.T) {
	te := newTestEnv(t, nil, nil)
	sum, err := Run(te.ctx, newConfig(t, "*", func(c *config.MutableConfig) { c.TestDir = "/absent" }), te.env)
	if err != nil {
		t.Fatal("Run failed: ", err)
	}
	if diff := cmp.Diff(sum, &Summary{}); diff != "" {
		t.Errorf("Summary mismatch (-got +want):\n%s", diff)
	}
	if !te.logger.Contains("Test directory /absent does not exist") {
		t.Errorf("Missing directory not logged:\n%s", te.logger.String())
	}
	if len(te.dev.calls) != 0 {
		t.Errorf("Bridge was called: %q", te.dev.calls)
	}
}

func TestRunRejectsListConfig(t *testing.T) {
	te := newTestEnv(t, []string{"sample_test"}, nil)
	c := config.NewMutableConfig(afero.NewMemMapFs(), config.ListTestsMode)
	c.TestDir = "/build/bin"
	if _, err := Run(te.ctx, c.Freeze(), te.env); err == nil {
		t.Error("Run succeeded for a list_tests configuration")
	}
	if len(te.dev.calls) != 0 {
		t.Errorf("Bridge was called: %q", te.dev.calls)
	}
}

func TestRunResultsDirFailure(t *testing.T) {
	te := newTestEnv(t, []string{"sample_test"}, nil)
	te.env.FS = afero.NewReadOnlyFs(te.fs)
	sum, err := Run(te.ctx, newConfig(t, "sample_test", nil), te.env)
	if k := errors.KindOf(err); k != errors.IOFailure {
		t.Errorf("Run returned %v (kind %v); want kind %v", err, k, errors.IOFailure)
	}
	if sum != nil {
		t.Errorf("Run returned summary %+v; want nil", sum)
	}
	if len(te.dev.calls) != 0 {
		t.Errorf("Bridge was called: %q", te.dev.calls)
	}
}

func TestRunNoMatch(t *testing.T) {
	te := newTestEnv(t, []string{"sample_test"}, nil)
	sum, err := Run(te.ctx, newConfig(t, "absent_*", nil), te.env)
	if err != nil {
		t.Fatal("Run failed: ", err)
	}
	if sum.Total != 0 {
		t.Errorf("Total = %d; want 0", sum.Total)
	}
	if !te.logger.Contains(`No tests matched "absent_*"`) {
		t.Errorf("Zero match not logged:\n%s", te.logger.String())
	}
	if len(te.dev.calls) != 0 {
		t.Errorf("Bridge was called: %q", te.dev.calls)
	}
}

func TestRunCanceled(t *testing.T) {
	te := newTestEnv(t, []string{"sample_test"}, map[string]string{"sample_test": passingXML})
	ctx, cancel := context.WithCancel(te.ctx)
	cancel()
	sum, err := Run(ctx, newConfig(t, "sample_test", nil), te.env)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v; want %v", err, context.Canceled)
	}
	if sum == nil || sum.Total != 0 {
		t.Errorf("Run returned summary %+v; want an empty one", sum)
	}
}

func TestRunWritesJUnitAndTimingLog(t *testing.T) {
	te := newTestEnv(t, []string{"sample_a_test", "sample_b_test"}, map[string]string{
		"sample_a_test": passingXML,
	})
	cfg := newConfig(t, "sample_*", func(c *config.MutableConfig) {
		c.JUnitPath = "/results/junit.xml"
		c.TimingLogPath = "/results/timing.json"
	})
	if _, err := Run(te.ctx, cfg, te.env); err != nil {
		t.Fatal("Run failed: ", err)
	}

	b, err := afero.ReadFile(te.fs, "/results/junit.xml")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`<testsuite name="vts" tests="2" failures="1" errors="0"`,
		`<testcase name="sample_a_test" classname="vts" time="1.000" status="run">`,
		`<testcase name="sample_b_test" classname="vts" time="1.000" status="run">`,
		`<failure message="failed at pull" type="pull">`,
	} {
		if !strings.Contains(string(b), want) {
			t.Errorf("JUnit output does not contain %q:\n%s", want, b)
		}
	}

	b, err = afero.ReadFile(te.fs, "/results/timing.json")
	if err != nil {
		t.Fatal(err)
	}
	var tl struct {
		Stages []struct {
			Name     string `json:"name"`
			Children []struct {
				Name string `json:"name"`
			} `json:"children"`
		} `json:"stages"`
	}
	if err := json.Unmarshal(b, &tl); err != nil {
		t.Fatalf("Timing log is not JSON: %v\n%s", err, b)
	}
	var names []string
	for _, st := range tl.Stages {
		names = append(names, st.Name)
	}
	if diff := cmp.Diff(names, []string{"sample_a_test", "sample_b_test"}); diff != "" {
		t.Errorf("Timing stages mismatch (-got +want):\n%s", diff)
	}
	if n := len(tl.Stages[0].Children); n != 6 {
		t.Errorf("sample_a_test has %d timing stages; want 6", n)
	}
}

func TestRunWritesPrettyTimingLog(t *testing.T) {
	te := newTestEnv(t, []string{"sample_test"}, map[string]string{"sample_test": passingXML})
	cfg := newConfig(t, "sample_test", func(c *config.MutableConfig) { c.TimingLogPath = "/results/timing.txt" })
	if _, err := Run(te.ctx, cfg, te.env); err != nil {
		t.Fatal("Run failed: ", err)
	}
	b, err := afero.ReadFile(te.fs, "/results/timing.txt")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"sample_test", [`, `"push"],`, `"report"]]]`} {
		if !strings.Contains(string(b), want) {
			t.Errorf("Timing log does not contain %s:\n%s", want, b)
		}
	}
}

func TestRunSkipsEmptyTimingLog(t *testing.T) {
	te := newTestEnv(t, nil, nil)
	cfg := newConfig(t, "*", func(c *config.MutableConfig) { c.TimingLogPath = "/results/timing.txt" })
	if _, err := Run(te.ctx, cfg, te.env); err != nil {
		t.Fatal("Run failed: ", err)
	}
	if _, err := te.fs.Stat("/results/timing.txt"); err == nil {
		t.Error("Timing log written for a batch without tests")
	}
}

func TestVerifyExecutable(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/bin/exe", nil, 0755); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/bin/data", nil, 0644); err != nil {
		t.Fatal(err)
	}
	if err := verifyExecutable(fs, "/bin/exe"); err != nil {
		t.Error("verifyExecutable failed for an executable: ", err)
	}
	for _, p := range []string{"/bin/data", "/bin/absent", "/bin"} {
		if err := verifyExecutable(fs, p); errors.KindOf(err) != errors.IOFailure {
			t.Errorf("verifyExecutable(%q) = %v; want an IOFailure", p, err)
		}
	}
}

func TestNewInvocation(t *testing.T) {
	cfg := newConfig(t, "*", func(c *config.MutableConfig) { c.GTestFilter = "A.*" })
	got := newInvocation(cfg, "camera_test.bin")
	want := invocation{
		test:             "camera_test.bin",
		base:             "camera_test",
		localPath:        "/build/bin/camera_test.bin",
		remoteExe:        "/opt/usr/devicetests/vts/bin/camera_test.bin",
		remoteResultsDir: "/opt/usr/devicetests/vts/results",
		resultFile:       "camera_test_results.xml",
		localResultPath:  "/results/camera_test_results.xml",
		hostResultsDir:   "/results",
		filter:           "A.*",
	}
	if diff := cmp.Diff(got, want, cmp.AllowUnexported(invocation{})); diff != "" {
		t.Errorf("newInvocation mismatch (-got +want):\n%s", diff)
	}
	if got, want := got.remoteResultPath(), "/opt/usr/devicetests/vts/results/camera_test_results.xml"; got != want {
		t.Errorf("remoteResultPath() = %q; want %q", got, want)
	}
	if got := newInvocation(cfg, ".hidden").base; got != ".hidden" {
		t.Errorf("base of .hidden = %q; want %q", got, ".hidden")
	}
}
