// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package config defines the configuration shared by the vts subcommands.
package config

import (
	"flag"
	"path"
	"time"

	"github.com/spf13/afero"

	"go.chromium.org/vts/errors"
	"go.chromium.org/vts/internal/command"
)

// Mode describes the action to perform.
type Mode int

const (
	// RunTestsMode indicates that tests should be run and their results reported.
	RunTestsMode Mode = iota
	// ListTestsMode indicates that tests should only be listed.
	ListTestsMode
)

const (
	defaultSDBPath        = "sdb"
	defaultTestDir        = "build/bin"
	defaultHostResultsDir = "results"
	defaultRemoteTestRoot = "/opt/usr/devicetests/vts"
	defaultTimeout        = 2 * time.Minute
	defaultTestTimeout    = 30 * time.Minute
)

// MutableConfig is similar to Config, but its fields are mutable.
// Call Freeze to obtain a Config from MutableConfig.
type MutableConfig struct {
	// See Config for descriptions of these fields.

	Mode Mode

	TestDir        string
	SDBPath        string
	TargetID       string
	HostResultsDir string
	RemoteTestRoot string

	Pattern     string
	GTestFilter string

	Timeout     time.Duration
	TestTimeout time.Duration

	JUnitPath     string
	TimingLogPath string

	ConfigFile string
	Verbosity  int

	fs    afero.Fs
	flags *flag.FlagSet
}

// Config contains shared configuration information for running or listing
// tests. It is a read-only view of a MutableConfig.
type Config struct {
	m *MutableConfig
}

// Mode returns the action to perform.
func (c *Config) Mode() Mode { return c.m.Mode }

// TestDir returns the local directory containing compiled test executables.
func (c *Config) TestDir() string { return c.m.TestDir }

// SDBPath returns the path of the bridge tool executable.
func (c *Config) SDBPath() string { return c.m.SDBPath }

// TargetID returns the device identifier passed to the bridge tool with -s.
// It is empty if no target was given.
func (c *Config) TargetID() string { return c.m.TargetID }

// HostResultsDir returns the local directory receiving pulled results and reports.
func (c *Config) HostResultsDir() string { return c.m.HostResultsDir }

// RemoteTestRoot returns the device directory under which tests and results are stored.
func (c *Config) RemoteTestRoot() string { return c.m.RemoteTestRoot }

// RemoteBinDir returns the device directory test executables are pushed to.
func (c *Config) RemoteBinDir() string { return path.Join(c.m.RemoteTestRoot, "bin") }

// RemoteResultsDir returns the device directory result documents are written to.
func (c *Config) RemoteResultsDir() string { return path.Join(c.m.RemoteTestRoot, "results") }

// Pattern returns the glob pattern selecting tests to run.
func (c *Config) Pattern() string { return c.m.Pattern }

// GTestFilter returns the filter passed verbatim to test executables, if any.
func (c *Config) GTestFilter() string { return c.m.GTestFilter }

// Timeout returns the maximum duration of a single bridge command.
func (c *Config) Timeout() time.Duration { return c.m.Timeout }

// TestTimeout returns the maximum duration of a test executable run on the device.
func (c *Config) TestTimeout() time.Duration { return c.m.TestTimeout }

// JUnitPath returns the path of the batch JUnit summary. Empty means none is written.
func (c *Config) JUnitPath() string { return c.m.JUnitPath }

// TimingLogPath returns the path of the stage timing log. Empty means none is written.
func (c *Config) TimingLogPath() string { return c.m.TimingLogPath }

// Verbosity returns the number of -v flags given.
func (c *Config) Verbosity() int { return c.m.Verbosity }

// NewMutableConfig returns a new configuration for executing test runner
// commands in mode. fs is used to read the optional config file.
func NewMutableConfig(fs afero.Fs, mode Mode) *MutableConfig {
	return &MutableConfig{
		Mode:           mode,
		TestDir:        defaultTestDir,
		SDBPath:        defaultSDBPath,
		HostResultsDir: defaultHostResultsDir,
		RemoteTestRoot: defaultRemoteTestRoot,
		Timeout:        defaultTimeout,
		TestTimeout:    defaultTestTimeout,
		fs:             fs,
	}
}

// SetFlags adds common run-related flags to f that store values in c.
func (c *MutableConfig) SetFlags(f *flag.FlagSet) {
	c.flags = f

	f.StringVar(&c.TestDir, "test-dir", c.TestDir, "directory containing compiled local test executables")
	f.StringVar(&c.ConfigFile, "config", "", "YAML file supplying defaults for flags not given explicitly")
	f.Var(command.NewCountFlag(&c.Verbosity), "v", "enable debug logs (repeatable as -v -v)")
	f.Var(command.NewStackedCountFlag(&c.Verbosity, 2), "vv", "same as -v -v")

	if c.Mode == ListTestsMode {
		return
	}

	f.StringVar(&c.GTestFilter, "gtest_filter", "", "filter passed verbatim to the test executables")
	f.StringVar(&c.TargetID, "target-id", "", "device identifier passed to the bridge tool; adb:<serial> or adb:<host>:<port> selects the ADB backend")
	f.StringVar(&c.TargetID, "s", "", "shorthand for -target-id")
	f.StringVar(&c.SDBPath, "sdb-path", c.SDBPath, "path to the bridge tool executable")
	f.StringVar(&c.HostResultsDir, "host-results-dir", c.HostResultsDir, "directory on the host to store fetched results and reports")
	f.StringVar(&c.RemoteTestRoot, "remote-test-root", c.RemoteTestRoot, "root directory on the device for tests and results")
	f.Var(command.NewDurationFlag(time.Second, &c.Timeout, c.Timeout), "timeout", "timeout of each bridge command in seconds (0 disables)")
	f.Var(command.NewDurationFlag(time.Second, &c.TestTimeout, c.TestTimeout), "test-timeout", "timeout of each test executable run in seconds (0 disables)")
	f.StringVar(&c.JUnitPath, "junit", "", "write a JUnit XML summary of the batch to this path")
	f.StringVar(&c.TimingLogPath, "timing-log", "", "write the stage timing log to this path")
}

// DeriveDefaults applies the config file to flags that were not set
// explicitly and validates the result. It must be called after the flags
// registered by SetFlags have been parsed.
func (c *MutableConfig) DeriveDefaults() error {
	if c.ConfigFile != "" {
		fc, err := readFileConfig(c.fs, c.ConfigFile)
		if err != nil {
			return err
		}
		fc.apply(c, c.explicitFlags())
	}

	if c.TestDir == "" {
		return errors.New("-test-dir must not be empty")
	}
	if c.Mode == ListTestsMode {
		return nil
	}
	if c.SDBPath == "" {
		return errors.New("-sdb-path must not be empty")
	}
	if c.HostResultsDir == "" {
		return errors.New("-host-results-dir must not be empty")
	}
	if !path.IsAbs(c.RemoteTestRoot) {
		return errors.Errorf("-remote-test-root must be an absolute device path; got %q", c.RemoteTestRoot)
	}
	c.RemoteTestRoot = path.Clean(c.RemoteTestRoot)
	if c.Timeout < 0 || c.TestTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	return nil
}

// explicitFlags returns the names of flags set on the command line.
func (c *MutableConfig) explicitFlags() map[string]bool {
	set := make(map[string]bool)
	if c.flags == nil {
		return set
	}
	c.flags.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if set["s"] {
		set["target-id"] = true
	}
	return set
}

// Freeze returns a frozen configuration object.
func (c *MutableConfig) Freeze() *Config {
	return &Config{m: c}
}
