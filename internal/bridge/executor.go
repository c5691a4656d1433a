// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package bridge

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"go.chromium.org/vts/errors"
	"go.chromium.org/vts/internal/logging"
	"go.chromium.org/vts/shutil"
)

// Executor runs a bridge tool such as sdb as a subprocess.
type Executor struct {
	// Path is the bridge tool executable. It is looked up in PATH if it
	// contains no slash.
	Path string
	// Target is the device identifier passed with -s. Empty means none.
	Target string
	// Timeout bounds each command whose context carries no deadline.
	// Zero means no timeout.
	Timeout time.Duration
}

var _ Commander = (*Executor)(nil)

// CommandLine returns the full command line used to run args.
func (e *Executor) CommandLine(args []string) []string {
	cmdline := []string{e.Path}
	if e.Target != "" {
		cmdline = append(cmdline, "-s", e.Target)
	}
	return append(cmdline, args...)
}

// Run runs the bridge tool with args and waits for it to exit.
func (e *Executor) Run(ctx context.Context, args []string, mustSucceed bool) (*Result, error) {
	cmdline := e.CommandLine(args)

	if _, ok := ctx.Deadline(); !ok && e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrapf(err, "not running %s", shutil.EscapeSlice(cmdline))
	}

	logging.Debug(ctx, "Running ", shutil.EscapeSlice(cmdline))

	cmd := exec.Command(cmdline[0], cmdline[1:]...)
	// Run in a new process group so that a timeout kills the tool along with
	// anything it spawned.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create stdout pipe")
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create stderr pipe")
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, errors.WithKindf(errors.ToolNotFound, err, "failed to start bridge tool %s", e.Path)
	}

	exited := make(chan struct{})
	killed := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			unix.Kill(-cmd.Process.Pid, unix.SIGKILL)
			close(killed)
		case <-exited:
		}
	}()

	var outBuf, errBuf strings.Builder
	var g errgroup.Group
	g.Go(func() error { return pump(ctx, stdout, &outBuf, "stdout") })
	g.Go(func() error { return pump(ctx, stderr, &errBuf, "stderr") })
	pumpErr := g.Wait()
	waitErr := cmd.Wait()
	close(exited)

	res := &Result{Stdout: outBuf.String(), Stderr: errBuf.String()}

	select {
	case <-killed:
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{
				CommandLine: cmdline,
				Elapsed:     time.Since(start),
				Stdout:      res.Stdout,
				Stderr:      res.Stderr,
			}
		}
		return nil, errors.Wrapf(ctx.Err(), "%s interrupted", shutil.EscapeSlice(cmdline))
	default:
	}

	if pumpErr != nil {
		return nil, errors.Wrapf(pumpErr, "failed to read output of %s", shutil.EscapeSlice(cmdline))
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return nil, errors.Wrapf(waitErr, "failed to wait for %s", shutil.EscapeSlice(cmdline))
		}
		res.ExitCode = exitErr.ExitCode()
	}
	logging.Debugf(ctx, "%s exited with status %d", e.Path, res.ExitCode)

	return check(cmdline, res, mustSucceed)
}

// pump copies r to buf, echoing each line as a debug log prefixed by name.
func pump(ctx context.Context, r io.Reader, buf *strings.Builder, name string) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			buf.WriteString(line)
			logging.Debugf(ctx, "%s: %s", name, strings.TrimRight(line, "\r\n"))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
