// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package testutil provides support code for unit tests.
package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TempDir creates a temporary directory prefixed by "vts_unittest_[TestName]."
// and returns its path. The directory is removed when the test finishes.
// If the directory cannot be created, a fatal error is reported to t.
func TempDir(t *testing.T) string {
	t.Helper()
	// Subtests have slashes in their name.
	name := strings.Replace(t.Name(), "/", "_", -1)
	td, err := os.MkdirTemp("", "vts_unittest_"+name+".")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(td) })
	return td
}

// WriteFiles creates and writes files (keys are relative filenames,
// values are contents) within dir.
func WriteFiles(dir string, files map[string]string) error {
	for fn, c := range files {
		if err := writeFile(filepath.Join(dir, fn), c, 0644); err != nil {
			return err
		}
	}
	return nil
}

// WriteExecutables is similar to WriteFiles, but the files get the execute
// permission bits.
func WriteExecutables(dir string, files map[string]string) error {
	for fn, c := range files {
		if err := writeFile(filepath.Join(dir, fn), c, 0755); err != nil {
			return err
		}
	}
	return nil
}

// ReadFiles returns the contents of all regular files within dir, keyed by
// paths relative to dir.
func ReadFiles(dir string) (map[string]string, error) {
	files := make(map[string]string)
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		files[rel] = string(b)
		return nil
	})
	return files, err
}

// WriteFakeBridge writes an executable shell script named name into dir and
// returns its path. body is run by /bin/sh with the bridge arguments in "$@".
//
// A fake bridge that records its arguments and succeeds:
//
//	path := testutil.WriteFakeBridge(t, dir, "sdb", `echo "$@" >> `+logPath)
func WriteFakeBridge(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := writeFile(p, "#!/bin/sh\n"+body+"\n", 0755); err != nil {
		t.Fatal(err)
	}
	return p
}

func writeFile(p, content string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(p, []byte(content), perm); err != nil {
		return err
	}
	// Apply perm exactly regardless of umask.
	return os.Chmod(p, perm)
}
