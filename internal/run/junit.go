// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package run

import (
	"fmt"
	"io"
	"time"

	"github.com/jstemmer/go-junit-report/v2/junit"
	"github.com/spf13/afero"

	"go.chromium.org/vts/errors"
)

// junitSuiteName is the name of the single JUnit suite describing a batch.
const junitSuiteName = "vts"

// ToJUnitResults converts the batch summary to JUnit test suites. Each test
// workflow becomes one test case; a failed workflow is reported as a failure
// whose type is the failed step.
func ToJUnitResults(sum *Summary) junit.Testsuites {
	suite := junit.Testsuite{Name: junitSuiteName}
	var total time.Duration
	for i, o := range sum.Outcomes {
		if i == 0 {
			suite.SetTimestamp(o.Start)
		}
		total += o.Elapsed

		tc := junit.Testcase{
			Name:      o.Test,
			Classname: junitSuiteName,
			Time:      formatSeconds(o.Elapsed),
			Status:    "run",
		}
		if o.Succeeded {
			if o.ReportPath != "" {
				tc.SystemOut = &junit.Output{Data: "report: " + o.ReportPath}
			}
		} else {
			tc.Failure = &junit.Result{Message: fmt.Sprintf("failed at %s", o.Step), Type: o.Step}
			if o.Err != nil {
				tc.Failure.Data = fmt.Sprintf("%+v", o.Err)
			}
		}
		suite.AddTestcase(tc)
	}
	suite.Time = formatSeconds(total)

	suites := junit.Testsuites{Time: suite.Time}
	suites.AddSuite(suite)
	return suites
}

// WriteJUnitResults writes the JUnit XML for sum to p on fs.
func WriteJUnitResults(fs afero.Fs, p string, sum *Summary) (retErr error) {
	f, err := fs.Create(p)
	if err != nil {
		return errors.WithKindf(errors.IOFailure, err, "failed to create %s", p)
	}
	defer func() {
		if err := f.Close(); err != nil && retErr == nil {
			retErr = errors.WithKindf(errors.IOFailure, err, "failed to close %s", p)
		}
	}()
	return writeJUnit(f, sum)
}

func writeJUnit(w io.Writer, sum *Summary) error {
	suites := ToJUnitResults(sum)
	if err := suites.WriteXML(w); err != nil {
		return errors.WithKind(errors.IOFailure, err, "failed to write JUnit XML")
	}
	return nil
}

// formatSeconds formats d in seconds with a decimal point.
func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}
