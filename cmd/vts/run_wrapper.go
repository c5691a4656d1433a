// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"

	"github.com/spf13/afero"

	"go.chromium.org/vts/internal/bridge"
	"go.chromium.org/vts/internal/config"
	"go.chromium.org/vts/internal/run"
)

// runWrapper is a wrapper that allows functions from the run package to be stubbed out for testing.
type runWrapper interface {
	// run calls run.Run.
	run(ctx context.Context, cfg *config.Config) (*run.Summary, error)
	// discover calls run.Discover.
	discover(ctx context.Context, cfg *config.Config) ([]string, error)
}

// realRunWrapper is a runWrapper implementation that calls the real functions in the run package.
type realRunWrapper struct {
	fs afero.Fs
}

func (w *realRunWrapper) run(ctx context.Context, cfg *config.Config) (*run.Summary, error) {
	env := &run.Env{
		FS:     w.fs,
		Bridge: bridge.New(cfg.SDBPath(), cfg.TargetID(), cfg.Timeout(), w.fs),
	}
	return run.Run(ctx, cfg, env)
}

func (w *realRunWrapper) discover(ctx context.Context, cfg *config.Config) ([]string, error) {
	return run.Discover(ctx, w.fs, cfg.TestDir())
}
