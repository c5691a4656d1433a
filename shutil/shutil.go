// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package shutil builds command strings for the device's remote shell.
package shutil

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// \w is [0-9A-Za-z_]. A leading equals sign is unsafe in zsh.
	leadingSafeChars  = `-\w@%+:,./`
	trailingSafeChars = leadingSafeChars + "="
)

// safeRE matches an argument that can be included in a shell command line
// without quoting.
var safeRE = regexp.MustCompile(fmt.Sprintf("^[%s][%s]*$", leadingSafeChars, trailingSafeChars))

// Escape quotes s so that the remote shell treats it as a single word.
// s is returned unchanged if it needs no quoting.
func Escape(s string) string {
	if safeRE.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// EscapeSlice escapes each of args and joins them with spaces.
func EscapeSlice(args []string) string {
	escaped := make([]string, len(args))
	for i, arg := range args {
		escaped[i] = Escape(arg)
	}
	return strings.Join(escaped, " ")
}

// Command returns a shell command line running name with args, all escaped.
// raw is appended verbatim after the escaped words; it is meant for operands
// the caller deliberately passes through untouched, such as test filters.
func Command(name string, args []string, raw ...string) string {
	words := []string{Escape(name)}
	if len(args) > 0 {
		words = append(words, EscapeSlice(args))
	}
	for _, r := range raw {
		if r != "" {
			words = append(words, r)
		}
	}
	return strings.Join(words, " ")
}
