// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package errors provides basic utilities to construct and classify errors.
//
// To construct new errors or wrap other errors, use this package rather than
// the standard errors package or fmt.Errorf. Errors created here record a
// stack trace and keep their cause, so "%+v" prints the whole chain.
//
//	errors.New("no device attached")
//	errors.Errorf("test %q not found", name)
//	errors.Wrap(err, "failed to push test binary")
//	errors.Wrapf(err, "failed to pull %s", remote)
//
// Failures of the test workflow are additionally classified by Kind, which
// decides whether a failure is isolated to one test or aborts the whole batch.
//
//	errors.WithKind(errors.IOFailure, err, "failed to create results dir")
//	if errors.KindOf(err) == errors.ToolNotFound { ... }
package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	"go.chromium.org/vts/errors/stack"
)

// Kind classifies a failure of the test workflow.
type Kind int

const (
	// Unclassified is the Kind of errors that carry no classification.
	Unclassified Kind = iota
	// ToolNotFound means the device-bridge executable could not be launched.
	ToolNotFound
	// CommandFailed means a bridge invocation that had to succeed exited non-zero.
	CommandFailed
	// Timeout means a bridge invocation did not finish in time.
	Timeout
	// TransferFailed means a file could not be copied from the device.
	TransferFailed
	// ParseFailure means a result document was missing or malformed.
	ParseFailure
	// IOFailure means a local directory or file could not be created or written.
	IOFailure
)

var kindNames = map[Kind]string{
	Unclassified:   "Unclassified",
	ToolNotFound:   "ToolNotFound",
	CommandFailed:  "CommandFailed",
	Timeout:        "Timeout",
	TransferFailed: "TransferFailed",
	ParseFailure:   "ParseFailure",
	IOFailure:      "IOFailure",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// impl is the error implementation used by this package.
type impl struct {
	msg   string      // error message to be prepended to cause
	kind  Kind        // classification; Unclassified defers to cause
	stk   stack.Stack // stack trace where this error was created
	cause error       // original error that caused this error if non-nil
}

// Error implements the error interface.
func (e *impl) Error() string {
	if e.cause == nil {
		return e.msg
	}
	return fmt.Sprintf("%s: %s", e.msg, e.cause.Error())
}

// Unwrap returns the cause of e so that the standard errors.Is and errors.As
// can traverse the chain.
func (e *impl) Unwrap() error {
	return e.cause
}

// Kind returns the classification attached to e, if any.
func (e *impl) Kind() Kind {
	return e.kind
}

// formatChain formats an error chain.
func formatChain(err error) string {
	var chain []string
	for err != nil {
		e, ok := err.(*impl)
		if !ok {
			chain = append(chain, fmt.Sprintf("%s\n\tat ???", err.Error()))
			break
		}
		msg := e.msg
		if e.kind != Unclassified {
			msg = fmt.Sprintf("[%v] %s", e.kind, msg)
		}
		chain = append(chain, fmt.Sprintf("%s\n%v", msg, e.stk))
		err = e.cause
	}
	return strings.Join(chain, "\n")
}

// Format implements the fmt.Formatter interface.
// In particular, it is supported to format an error chain by "%+v" verb.
func (e *impl) Format(s fmt.State, verb rune) {
	if verb == 'v' && s.Flag('+') {
		io.WriteString(s, formatChain(e))
	} else {
		io.WriteString(s, e.Error())
	}
}

// New creates a new error with the given message.
func New(msg string) error {
	return &impl{msg: msg, stk: stack.New(1)}
}

// Errorf creates a new error with the given formatted message.
func Errorf(format string, args ...interface{}) error {
	return &impl{msg: fmt.Sprintf(format, args...), stk: stack.New(1)}
}

// Wrap creates a new error with the given message, wrapping another error.
// If cause is nil, this is the same as New.
func Wrap(cause error, msg string) error {
	return &impl{msg: msg, stk: stack.New(1), cause: cause}
}

// Wrapf creates a new error with the given formatted message, wrapping
// another error. If cause is nil, this is the same as Errorf.
func Wrapf(cause error, format string, args ...interface{}) error {
	return &impl{msg: fmt.Sprintf(format, args...), stk: stack.New(1), cause: cause}
}

// WithKind creates a new error classified as kind, wrapping cause (which may
// be nil).
func WithKind(kind Kind, cause error, msg string) error {
	return &impl{msg: msg, kind: kind, stk: stack.New(1), cause: cause}
}

// WithKindf is similar to WithKind but formats its message.
func WithKindf(kind Kind, cause error, format string, args ...interface{}) error {
	return &impl{msg: fmt.Sprintf(format, args...), kind: kind, stk: stack.New(1), cause: cause}
}

// kinder is implemented by errors carrying a Kind, including the typed errors
// declared by other packages.
type kinder interface {
	Kind() Kind
}

// KindOf returns the outermost non-Unclassified Kind found in err's chain.
// It returns Unclassified for nil errors and unclassified chains.
func KindOf(err error) Kind {
	for err != nil {
		if k, ok := err.(kinder); ok && k.Kind() != Unclassified {
			return k.Kind()
		}
		err = stderrors.Unwrap(err)
	}
	return Unclassified
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool { return stderrors.As(err, target) }
