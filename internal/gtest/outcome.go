// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package gtest

// outcomeKey is an input row of the outcome decision table.
type outcomeKey struct {
	status         Status
	failurePresent bool
}

var outcomeTable = map[outcomeKey]Outcome{
	{StatusRan, false}:     OutcomePassed,
	{StatusRan, true}:      OutcomeFailed,
	{StatusNotRun, false}:  OutcomeSkipped,
	{StatusNotRun, true}:   OutcomeSkipped,
	{StatusUnknown, true}:  OutcomeFailed,
	{StatusUnknown, false}: OutcomeUnknown,
}

// DeriveOutcome returns the outcome of a test case with status and, if
// failurePresent, a failure element. A case that was not run is skipped even
// if it reports a failure.
func DeriveOutcome(status Status, failurePresent bool) Outcome {
	if o, ok := outcomeTable[outcomeKey{status, failurePresent}]; ok {
		return o
	}
	return OutcomeUnknown
}
