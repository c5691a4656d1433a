// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package run

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"go.chromium.org/vts/errors"
	"go.chromium.org/vts/internal/logging"
	"go.chromium.org/vts/internal/logging/loggingtest"
	"go.chromium.org/vts/testutil"
)

func TestDiscover(t *testing.T) {
	fs := afero.NewMemMapFs()
	for name, mode := range map[string]os.FileMode{
		"/bin/zeta_test":   0755,
		"/bin/alpha_test":  0700,
		"/bin/README":      0644,
		"/bin/group_exec":  0650,
		"/bin/sub/x_test":  0755,
		"/other/beta_test": 0755,
	} {
		if err := afero.WriteFile(fs, name, nil, mode); err != nil {
			t.Fatal(err)
		}
	}

	got, err := Discover(context.Background(), fs, "/bin")
	if err != nil {
		t.Fatal("Discover failed: ", err)
	}
	if diff := cmp.Diff(got, []string{"alpha_test", "zeta_test"}); diff != "" {
		t.Errorf("Discover mismatch (-got +want):\n%s", diff)
	}

	if _, err := Discover(context.Background(), fs, "/bin/README"); errors.KindOf(err) != errors.IOFailure {
		t.Errorf("Discover of a regular file returned %v; want an IOFailure", err)
	}
}

func TestDiscoverMissingDirectory(t *testing.T) {
	ctx, logger := loggingtest.NewContext(t, logging.LevelWarning)
	got, err := Discover(ctx, afero.NewMemMapFs(), "/absent")
	if err != nil {
		t.Fatal("Discover failed: ", err)
	}
	if len(got) != 0 {
		t.Errorf("Discover of missing directory returned %v; want no tests", got)
	}
	if want := "Test directory /absent does not exist"; !logger.Contains(want) {
		t.Errorf("Discover logged %q; want %q", logger.String(), want)
	}
}

func TestDiscoverFollowsSymlinks(t *testing.T) {
	td := testutil.TempDir(t)
	if err := testutil.WriteExecutables(td, map[string]string{"real_test": "#!/bin/sh\n"}); err != nil {
		t.Fatal(err)
	}
	if err := testutil.WriteFiles(td, map[string]string{"data.txt": ""}); err != nil {
		t.Fatal(err)
	}
	for link, target := range map[string]string{
		"link_test":     "real_test",
		"data_link":     "data.txt",
		"dangling_test": "absent",
	} {
		if err := os.Symlink(target, filepath.Join(td, link)); err != nil {
			t.Fatal(err)
		}
	}

	got, err := Discover(context.Background(), afero.NewOsFs(), td)
	if err != nil {
		t.Fatal("Discover failed: ", err)
	}
	if diff := cmp.Diff(got, []string{"link_test", "real_test"}); diff != "" {
		t.Errorf("Discover mismatch (-got +want):\n%s", diff)
	}
}

func TestSelect(t *testing.T) {
	names := []string{"sample_a_test", "sample_b_test", "other_test"}
	for _, tc := range []struct {
		pattern string
		want    []string
	}{
		{"sample_*", []string{"sample_a_test", "sample_b_test"}},
		{"*", names},
		{"sample_?_test", []string{"sample_a_test", "sample_b_test"}},
		{"sample_[b-z]_test", []string{"sample_b_test"}},
		{"other_test", []string{"other_test"}},
		{"{other,sample_a}_test", []string{"sample_a_test", "other_test"}},
		{"sample_{a,c}_*", []string{"sample_a_test"}},
		{"{sample_{a,b},x}_test", []string{"sample_a_test", "sample_b_test"}},
		{"{*_b,other}_test", []string{"sample_b_test", "other_test"}},
		{"sample_[{]_test", nil},
		{"absent", nil},
	} {
		got, err := Select(names, tc.pattern)
		if err != nil {
			t.Errorf("Select(%q) failed: %v", tc.pattern, err)
			continue
		}
		if diff := cmp.Diff(got, tc.want); diff != "" {
			t.Errorf("Select(%q) mismatch (-got +want):\n%s", tc.pattern, diff)
		}
	}
}

func TestSelectBadPattern(t *testing.T) {
	for _, p := range []string{"", "sample_[", "bin/*", "{a,b", "a}", "{a,[}_test"} {
		if _, err := Select(nil, p); err == nil {
			t.Errorf("Select(nil, %q) succeeded; want an error", p)
		}
		if err := ValidatePattern(p); err == nil {
			t.Errorf("ValidatePattern(%q) succeeded; want an error", p)
		}
	}
}

func TestExpandBraces(t *testing.T) {
	for _, tc := range []struct {
		pattern string
		want    []string
	}{
		{"plain_*", []string{"plain_*"}},
		{"{a,b}", []string{"a", "b"}},
		{"x{a,b}y{1,2}", []string{"xay1", "xay2", "xby1", "xby2"}},
		{"{a,{b,c}d}", []string{"a", "bd", "cd"}},
		{"{a}", []string{"a"}},
		{"{,a}", []string{"", "a"}},
		{`\{a,b\}`, []string{`\{a,b\}`}},
		{"[{]", []string{"[{]"}},
	} {
		got, err := expandBraces(tc.pattern)
		if err != nil {
			t.Errorf("expandBraces(%q) failed: %v", tc.pattern, err)
			continue
		}
		if diff := cmp.Diff(got, tc.want); diff != "" {
			t.Errorf("expandBraces(%q) mismatch (-got +want):\n%s", tc.pattern, diff)
		}
	}
}
