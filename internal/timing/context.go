// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package timing

import "context"

type key int // unexported context.Context key type to avoid collisions with other packages

const (
	logKey          key = iota // key used for attaching a Log to a context.Context
	currentStageKey            // key used for attaching a current Stage to a context.Context
)

// NewContext returns a new context that carries l and its root stage as the
// current stage.
func NewContext(ctx context.Context, l *Log) context.Context {
	ctx = context.WithValue(ctx, logKey, l)
	return context.WithValue(ctx, currentStageKey, l.Root)
}

// FromContext returns the Log and the current Stage stored in ctx, if any.
func FromContext(ctx context.Context) (*Log, *Stage, bool) {
	l, ok := ctx.Value(logKey).(*Log)
	if !ok {
		return nil, nil, false
	}
	s, ok := ctx.Value(currentStageKey).(*Stage)
	if !ok {
		return nil, nil, false
	}
	return l, s, true
}

// Start starts and returns a new Stage named name as a child of the current
// stage in ctx. If no Log is attached to ctx, nil is returned; calling End on
// it is a no-op.
//
//	ctx, st := timing.Start(ctx, "push")
//	defer st.End()
func Start(ctx context.Context, name string) (context.Context, *Stage) {
	_, s, ok := FromContext(ctx)
	if !ok {
		return ctx, nil
	}
	c := s.StartChild(name)
	if c == nil {
		return ctx, nil
	}
	return context.WithValue(ctx, currentStageKey, c), c
}
