// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"

	"go.chromium.org/vts/internal/config"
	"go.chromium.org/vts/internal/run"
)

// stubRunWrapper is a stub implementation of runWrapper used for testing.
type stubRunWrapper struct {
	runCfg *config.Config // config passed to run
	runSum *run.Summary   // summary to return from run
	runErr error          // error to return from run

	discoverCfg   *config.Config // config passed to discover
	discoverTests []string       // tests to return from discover
	discoverErr   error          // error to return from discover
}

func (w *stubRunWrapper) run(ctx context.Context, cfg *config.Config) (*run.Summary, error) {
	w.runCfg = cfg
	return w.runSum, w.runErr
}

func (w *stubRunWrapper) discover(ctx context.Context, cfg *config.Config) ([]string, error) {
	w.discoverCfg = cfg
	return w.discoverTests, w.discoverErr
}
