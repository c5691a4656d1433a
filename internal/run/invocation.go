// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package run

import (
	"path"
	"path/filepath"
	"strings"

	"go.chromium.org/vts/internal/config"
)

// invocation holds the paths and options of one test workflow. It is built
// once per test and passed by value to every step.
type invocation struct {
	test string // executable name as discovered
	base string // test with its extension removed

	localPath string // executable on the host
	remoteExe string // executable on the device

	remoteResultsDir string // results directory on the device
	resultFile       string // results document name, shared by device and host
	localResultPath  string // fetched results document on the host
	hostResultsDir   string

	filter string // --gtest_filter value; empty for none
}

func newInvocation(cfg *config.Config, test string) invocation {
	base := strings.TrimSuffix(test, filepath.Ext(test))
	if base == "" {
		base = test // e.g. ".hidden"
	}
	resultFile := base + "_results.xml"
	return invocation{
		test:             test,
		base:             base,
		localPath:        filepath.Join(cfg.TestDir(), test),
		remoteExe:        path.Join(cfg.RemoteBinDir(), test),
		remoteResultsDir: cfg.RemoteResultsDir(),
		resultFile:       resultFile,
		localResultPath:  filepath.Join(cfg.HostResultsDir(), resultFile),
		hostResultsDir:   cfg.HostResultsDir(),
		filter:           cfg.GTestFilter(),
	}
}

// remoteResultPath returns the path of the results document on the device.
func (inv invocation) remoteResultPath() string {
	return path.Join(inv.remoteResultsDir, inv.resultFile)
}
