// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package gtest parses GTest XML result documents into a normalized model.
package gtest

import "fmt"

// Default values used for attributes missing from a result document.
const (
	UnknownSuiteName = "UnknownSuite"
	UnknownCaseName  = "UnknownCase"
	UnknownRawStatus = "unknown"

	defaultCount = "0"
	defaultTime  = "0.0"
)

// Status is the execution status of a test case as reported by GTest.
type Status int

const (
	// StatusUnknown means that the status attribute was absent or unrecognized.
	StatusUnknown Status = iota
	// StatusRan means that the test case was run (status="run").
	StatusRan
	// StatusNotRun means that the test case was not run (status="notrun"),
	// e.g. because it is disabled.
	StatusNotRun
)

// ParseStatus converts a raw status attribute value to a Status.
func ParseStatus(raw string) Status {
	switch raw {
	case "run":
		return StatusRan
	case "notrun":
		return StatusNotRun
	default:
		return StatusUnknown
	}
}

func (s Status) String() string {
	switch s {
	case StatusRan:
		return "ran"
	case StatusNotRun:
		return "notrun"
	default:
		return "unknown"
	}
}

// Outcome is the derived result of a test case.
type Outcome int

// Outcomes of a test case.
const (
	OutcomeUnknown Outcome = iota
	OutcomePassed
	OutcomeFailed
	OutcomeSkipped
)

// String returns the lowercase outcome name, which is also used as the CSS
// class of report rows.
func (o Outcome) String() string {
	switch o {
	case OutcomePassed:
		return "passed"
	case OutcomeFailed:
		return "failed"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Failure describes the first failure reported for a test case.
type Failure struct {
	// Message is the failure text, the message attribute, or "No message".
	Message string
	// Kind is the type attribute of the failure element, often empty.
	Kind string
}

// Case is a single test case.
type Case struct {
	Name           string
	RawStatus      string
	Status         Status
	Outcome        Outcome
	RawTime        string
	ElapsedSeconds float64
	// Failure is nil unless the case has a failure element.
	Failure *Failure
}

// Counters holds the declared counters of a suite.
type Counters struct {
	Tests    int
	Failures int
	Disabled int
	Errors   int
}

// RawCounters holds suite attributes as they appear in the document, with
// defaults substituted for missing ones.
type RawCounters struct {
	Tests    string
	Failures string
	Disabled string
	Errors   string
	Time     string
}

// Suite is a test suite. Declared counters are kept as reported even if they
// disagree with Cases.
type Suite struct {
	Name     string
	Declared Counters
	// ElapsedSeconds is the parsed time attribute.
	ElapsedSeconds float64
	Raw            RawCounters
	// CountersValid is false if any of the counters or the time failed to
	// parse. Such a suite does not contribute to the overall summary.
	CountersValid bool
	Cases         []Case
}

// Summary is the sum of the counters of all suites whose counters are valid.
type Summary struct {
	Tests          int
	Failures       int
	Disabled       int
	Errors         int
	ElapsedSeconds float64
}

// FormatElapsed returns the overall elapsed time with three decimals.
func (s Summary) FormatElapsed() string {
	return fmt.Sprintf("%.3f", s.ElapsedSeconds)
}

// Document is a parsed result document.
type Document struct {
	Suites  []Suite
	Overall Summary
}
