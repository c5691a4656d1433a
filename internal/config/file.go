// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package config

import (
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"

	"go.chromium.org/vts/errors"
)

// fileConfig is the content of a YAML config file. Pointer fields
// distinguish absent keys from zero values.
type fileConfig struct {
	TestDir        *string `yaml:"test_dir"`
	SDBPath        *string `yaml:"sdb_path"`
	TargetID       *string `yaml:"target_id"`
	HostResultsDir *string `yaml:"host_results_dir"`
	RemoteTestRoot *string `yaml:"remote_test_root"`
	TimeoutSec     *int    `yaml:"timeout_sec"`
	TestTimeoutSec *int    `yaml:"test_timeout_sec"`
}

// readFileConfig reads the YAML config file at path. Unknown keys are errors.
func readFileConfig(fs afero.Fs, path string) (*fileConfig, error) {
	b, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}
	var fc fileConfig
	if err := yaml.UnmarshalStrict(b, &fc); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %s", path)
	}
	return &fc, nil
}

// apply copies values from fc into c for every key whose flag is not in
// explicit.
func (fc *fileConfig) apply(c *MutableConfig, explicit map[string]bool) {
	setString := func(flag string, dst *string, src *string) {
		if src != nil && !explicit[flag] {
			*dst = *src
		}
	}
	setSeconds := func(flag string, dst *time.Duration, src *int) {
		if src != nil && !explicit[flag] {
			*dst = time.Duration(*src) * time.Second
		}
	}

	setString("test-dir", &c.TestDir, fc.TestDir)
	if c.Mode == ListTestsMode {
		return
	}
	setString("sdb-path", &c.SDBPath, fc.SDBPath)
	setString("target-id", &c.TargetID, fc.TargetID)
	setString("host-results-dir", &c.HostResultsDir, fc.HostResultsDir)
	setString("remote-test-root", &c.RemoteTestRoot, fc.RemoteTestRoot)
	setSeconds("timeout", &c.Timeout, fc.TimeoutSec)
	setSeconds("test-timeout", &c.TestTimeout, fc.TestTimeoutSec)
}
