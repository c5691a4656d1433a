// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package report renders parsed GTest results as a self-contained HTML page.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"go.chromium.org/vts/errors"
	"go.chromium.org/vts/internal/gtest"
)

// Title is the title of every report page.
const Title = "VTS Test Report"

const (
	generatedFormat = "2006-01-02 15:04:05"
	fileTimeFormat  = "20060102_150405"
)

type summaryRow struct {
	Label string
	Value string
}

type page struct {
	Title     string
	Generated string
	Overall   []summaryRow
	Suites    []gtest.Suite
}

// Render writes the report for doc to w. The output depends only on doc and
// generated.
func Render(w io.Writer, doc *gtest.Document, generated time.Time) error {
	o := doc.Overall
	p := &page{
		Title:     Title,
		Generated: generated.Format(generatedFormat),
		Overall: []summaryRow{
			{"Total Tests", strconv.Itoa(o.Tests)},
			{"Failures", strconv.Itoa(o.Failures)},
			{"Disabled", strconv.Itoa(o.Disabled)},
			{"Errors", strconv.Itoa(o.Errors)},
			{"Time (s)", o.FormatElapsed()},
		},
		Suites: doc.Suites,
	}
	return pageTmpl.Execute(w, p)
}

// WriteFile renders the report for doc into a new file at path on fs.
// Failures are of kind errors.IOFailure.
func WriteFile(fs afero.Fs, path string, doc *gtest.Document, generated time.Time) (retErr error) {
	f, err := fs.Create(path)
	if err != nil {
		return errors.WithKindf(errors.IOFailure, err, "failed to create report %s", path)
	}
	defer func() {
		if err := f.Close(); err != nil && retErr == nil {
			retErr = errors.WithKindf(errors.IOFailure, err, "failed to close report %s", path)
		}
	}()

	if err := Render(f, doc, generated); err != nil {
		return errors.WithKindf(errors.IOFailure, err, "failed to write report %s", path)
	}
	return nil
}

// FileName returns the report file name for the test with base name base,
// generated at ts.
func FileName(base string, ts time.Time) string {
	return fmt.Sprintf("%s_report_%s.html", base, ts.Format(fileTimeFormat))
}
