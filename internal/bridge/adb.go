// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package bridge

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/electricbubble/gadb"
	"github.com/spf13/afero"

	"go.chromium.org/vts/errors"
	"go.chromium.org/vts/internal/logging"
)

// exitMarker is appended to shell output to recover the remote exit status,
// which the adb shell protocol does not report.
const exitMarker = "__vts_exit_status__:"

// adbDevice is the subset of *gadb.Device used by ADBCommander.
type adbDevice interface {
	RunShellCommand(cmd string, args ...string) (string, error)
	Push(source io.Reader, remotePath string, modification time.Time, mode ...os.FileMode) error
	Pull(remotePath string, dest io.Writer) error
}

// ADBCommander runs bridge commands on a device served by an adb server.
// Transport failures are reported as Results with a non-zero exit code so
// that callers need not know which backend is in use.
type ADBCommander struct {
	target  string
	timeout time.Duration
	fs      afero.Fs

	once    sync.Once
	connect func() (adbDevice, error)
	dev     adbDevice
	connErr error
}

var _ Commander = (*ADBCommander)(nil)

// NewADBCommander returns an ADBCommander for target, which is a device
// serial or host:port. The adb server is contacted on the first command.
// fs is used for local files.
func NewADBCommander(target string, timeout time.Duration, fs afero.Fs) *ADBCommander {
	return &ADBCommander{
		target:  target,
		timeout: timeout,
		fs:      fs,
		connect: func() (adbDevice, error) { return connectADB(target) },
	}
}

// connectADB finds the device named target on the local adb server,
// connecting to it first if target is a host:port.
func connectADB(target string) (adbDevice, error) {
	client, err := gadb.NewClient()
	if err != nil {
		return nil, errors.WithKind(errors.ToolNotFound, err, "failed to connect to adb server")
	}
	if host, portStr, err := net.SplitHostPort(target); err == nil {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, errors.WithKindf(errors.ToolNotFound, err, "failed to parse adb port %q", portStr)
		}
		if err := client.Connect(host, port); err != nil {
			return nil, errors.WithKindf(errors.ToolNotFound, err, "failed to connect to %q", target)
		}
	}
	devices, err := client.DeviceList()
	if err != nil {
		return nil, errors.WithKind(errors.ToolNotFound, err, "failed to get adb devices")
	}
	var serials []string
	for _, d := range devices {
		if d.Serial() == target {
			d := d
			return &d, nil
		}
		serials = append(serials, d.Serial())
	}
	return nil, errors.WithKindf(errors.ToolNotFound, nil, "failed to find adb device %q in %q", target, serials)
}

// CommandLine returns a printable form of args for diagnostics.
func (a *ADBCommander) CommandLine(args []string) []string {
	return append([]string{"adb", "-s", a.target}, args...)
}

// Run runs args, which follow the bridge grammar (push, pull or shell).
func (a *ADBCommander) Run(ctx context.Context, args []string, mustSucceed bool) (*Result, error) {
	cmdline := a.CommandLine(args)
	if len(args) == 0 {
		return nil, errors.New("no bridge sub-command given")
	}

	a.once.Do(func() { a.dev, a.connErr = a.connect() })
	if a.connErr != nil {
		return nil, a.connErr
	}

	if _, ok := ctx.Deadline(); !ok && a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	logging.Debug(ctx, "Running ", strings.Join(cmdline, " "))

	var op func() *Result
	switch args[0] {
	case "shell":
		op = func() *Result { return a.shell(strings.Join(args[1:], " ")) }
	case "push":
		if len(args) != 3 {
			return nil, errors.Errorf("push takes 2 arguments; got %q", args[1:])
		}
		op = func() *Result { return a.push(args[1], args[2]) }
	case "pull":
		if len(args) != 3 {
			return nil, errors.Errorf("pull takes 2 arguments; got %q", args[1:])
		}
		op = func() *Result { return a.pull(args[1], args[2]) }
	default:
		return nil, errors.Errorf("unsupported bridge sub-command %q", args[0])
	}

	// gadb calls do not take a context. A timed out call is abandoned and
	// finishes in the background.
	start := time.Now()
	done := make(chan *Result, 1)
	go func() { done <- op() }()
	var res *Result
	select {
	case res = <-done:
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{CommandLine: cmdline, Elapsed: time.Since(start)}
		}
		return nil, errors.Wrapf(ctx.Err(), "%s interrupted", strings.Join(cmdline, " "))
	}

	if res.Stdout != "" {
		logging.Debug(ctx, "stdout: ", strings.TrimRight(res.Stdout, "\n"))
	}
	if res.Stderr != "" {
		logging.Debug(ctx, "stderr: ", strings.TrimRight(res.Stderr, "\n"))
	}
	return check(cmdline, res, mustSucceed)
}

func (a *ADBCommander) shell(cmd string) *Result {
	out, err := a.dev.RunShellCommand(fmt.Sprintf("%s; echo %s$?", cmd, exitMarker))
	if err != nil {
		return failure(err)
	}
	i := strings.LastIndex(out, exitMarker)
	if i < 0 {
		return &Result{ExitCode: 255, Stdout: out, Stderr: "exit status missing from adb shell output\n"}
	}
	code, err := strconv.Atoi(strings.TrimSpace(out[i+len(exitMarker):]))
	if err != nil {
		return &Result{ExitCode: 255, Stdout: out[:i], Stderr: fmt.Sprintf("bad exit status from adb shell: %v\n", err)}
	}
	return &Result{ExitCode: code, Stdout: out[:i]}
}

func (a *ADBCommander) push(local, remote string) *Result {
	f, err := a.fs.Open(local)
	if err != nil {
		return failure(err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return failure(err)
	}
	if err := a.dev.Push(f, remote, fi.ModTime(), fi.Mode().Perm()); err != nil {
		return failure(err)
	}
	return &Result{}
}

func (a *ADBCommander) pull(remote, local string) *Result {
	f, err := a.fs.Create(local)
	if err != nil {
		return failure(err)
	}
	pullErr := a.dev.Pull(remote, f)
	closeErr := f.Close()
	if pullErr != nil {
		a.fs.Remove(local)
		return failure(pullErr)
	}
	if closeErr != nil {
		return failure(closeErr)
	}
	return &Result{}
}

// failure converts a transport error into a failed Result.
func failure(err error) *Result {
	return &Result{ExitCode: 1, Stderr: err.Error() + "\n"}
}
