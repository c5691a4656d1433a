// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package run

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"go.chromium.org/vts/errors"
	"go.chromium.org/vts/internal/logging"
)

// ownerExec is the owner-execute permission bit.
const ownerExec os.FileMode = 0100

// Discover returns the names of the test executables in dir, sorted by name.
// A test executable is a regular file (or a symlink to one) with the
// owner-execute bit set. A missing dir holds no tests.
func Discover(ctx context.Context, fs afero.Fs, dir string) ([]string, error) {
	fis, err := afero.ReadDir(fs, dir)
	if os.IsNotExist(err) {
		logging.Warningf(ctx, "Test directory %s does not exist", dir)
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithKindf(errors.IOFailure, err, "failed to read test directory %s", dir)
	}
	var names []string
	for _, fi := range fis {
		if fi.Mode()&os.ModeSymlink != 0 {
			if fi, err = fs.Stat(filepath.Join(dir, fi.Name())); err != nil {
				continue // dangling link
			}
		}
		if isTestExecutable(fi) {
			names = append(names, fi.Name())
		}
	}
	return names, nil
}

func isTestExecutable(fi os.FileInfo) bool {
	return fi.Mode().IsRegular() && fi.Mode().Perm()&ownerExec != 0
}

// Select returns the names matching the glob pattern, keeping their order.
// Patterns support *, ? and bracket classes as well as {a,b} alternation.
func Select(names []string, pattern string) ([]string, error) {
	match, err := matcher(pattern)
	if err != nil {
		return nil, err
	}
	var sel []string
	for _, n := range names {
		ok, err := match(n)
		if err != nil {
			return nil, errors.Wrapf(err, "bad pattern %q", pattern)
		}
		if ok {
			sel = append(sel, n)
		}
	}
	return sel, nil
}

// ValidatePattern returns an error if pattern is not a valid test pattern.
func ValidatePattern(pattern string) error {
	_, err := matcher(pattern)
	return err
}

func matcher(pattern string) (func(name string) (bool, error), error) {
	if pattern == "" {
		return nil, errors.New("empty test pattern")
	}
	if strings.Contains(pattern, "/") {
		return nil, errors.Errorf("bad pattern %q: test names never contain /", pattern)
	}
	alts, err := expandBraces(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "bad pattern %q", pattern)
	}
	for _, alt := range alts {
		// path.Match checks the whole pattern even when the name does not match.
		if _, err := path.Match(alt, ""); err != nil {
			return nil, errors.Wrapf(err, "bad pattern %q", pattern)
		}
	}
	return func(name string) (bool, error) {
		for _, alt := range alts {
			if ok, err := path.Match(alt, name); ok || err != nil {
				return ok, err
			}
		}
		return false, nil
	}, nil
}

// expandBraces expands {a,b} alternations in pattern, left to right.
// Alternations may nest. Braces inside bracket classes are literal.
func expandBraces(pattern string) ([]string, error) {
	lb, rb := -1, -1
	var commas []int
	depth := 0
	inClass := false
	for i := 0; i < len(pattern) && rb < 0; i++ {
		switch c := pattern[i]; {
		case c == '\\':
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
		case c == '{':
			if depth == 0 {
				lb = i
			}
			depth++
		case c == ',' && depth == 1:
			commas = append(commas, i)
		case c == '}':
			if depth == 0 {
				return nil, errors.New("unmatched }")
			}
			depth--
			if depth == 0 {
				rb = i
			}
		}
	}
	if lb < 0 {
		return []string{pattern}, nil
	}
	if rb < 0 {
		return nil, errors.New("unmatched {")
	}

	prefix, suffix := pattern[:lb], pattern[rb+1:]
	start := lb + 1
	var alts []string
	for _, end := range append(commas, rb) {
		sub, err := expandBraces(prefix + pattern[start:end] + suffix)
		if err != nil {
			return nil, err
		}
		alts = append(alts, sub...)
		start = end + 1
	}
	return alts, nil
}
