// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package command

import (
	"strconv"
	"time"
)

// DurationFlag implements flag.Value to save a user-supplied integer time duration
// with fixed units to a time.Duration.
type DurationFlag struct {
	units time.Duration
	dst   *time.Duration
}

// NewDurationFlag returns a DurationFlag that will save a duration with the supplied units to dst.
func NewDurationFlag(units time.Duration, dst *time.Duration, def time.Duration) *DurationFlag {
	*dst = def
	return &DurationFlag{units, dst}
}

// Set implements flag.Value.Set.
func (f *DurationFlag) Set(v string) error {
	num, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return err
	}
	*f.dst = time.Duration(num) * f.units
	return nil
}

// String implements flag.Value.String.
func (f *DurationFlag) String() string {
	if f.dst == nil {
		return ""
	}
	return strconv.FormatInt(int64(*f.dst/f.units), 10)
}

// CountFlag implements flag.Value for a boolean flag that may be repeated,
// e.g. "-v -v". Each occurrence increments the destination.
type CountFlag struct {
	dst  *int
	step int
}

// NewCountFlag returns a CountFlag that increments *dst on each occurrence.
func NewCountFlag(dst *int) *CountFlag {
	return &CountFlag{dst, 1}
}

// NewStackedCountFlag returns a CountFlag that adds n to *dst on each
// occurrence. The flag package has no short-option stacking, so "-vv" is
// registered as its own flag sharing the destination of "-v".
func NewStackedCountFlag(dst *int, n int) *CountFlag {
	return &CountFlag{dst, n}
}

// IsBoolFlag lets the flag package accept the flag without a value.
func (f *CountFlag) IsBoolFlag() bool { return true }

// Set implements flag.Value.Set. "true" (the implied value) increments the
// count, "false" resets it and an integer sets it explicitly.
func (f *CountFlag) Set(v string) error {
	switch v {
	case "true":
		*f.dst += f.step
		return nil
	case "false":
		*f.dst = 0
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*f.dst = n
	return nil
}

// String implements flag.Value.String.
func (f *CountFlag) String() string {
	if f.dst == nil {
		return "0"
	}
	return strconv.Itoa(*f.dst)
}
