// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package command

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/shirou/gopsutil/v3/process"
	"golang.org/x/sys/unix"
)

var selfName = filepath.Base(os.Args[0])

// InstallSignalHandler installs a handler for SIGINT and SIGTERM. On the first
// signal, callback is called (typically to cancel the root context) and child
// processes such as a running bridge tool are terminated. A second signal
// exits the process immediately. out is the output stream to write messages to
// (typically stderr). The returned function uninstalls the handler.
func InstallSignalHandler(out io.Writer, callback func(sig os.Signal)) (stop func()) {
	ch := make(chan os.Signal, 2)
	done := make(chan struct{})
	go func() {
		var sig os.Signal
		select {
		case sig = <-ch:
		case <-done:
			return
		}
		fmt.Fprintf(out, "\n%s: Caught %v signal; stopping\n", selfName, sig)
		callback(sig)
		terminateChildren(out)

		select {
		case sig = <-ch:
			fmt.Fprintf(out, "\n%s: Caught %v signal again; exiting\n", selfName, sig)
			os.Exit(StatusFatal)
		case <-done:
		}
	}()
	signal.Notify(ch, unix.SIGINT, unix.SIGTERM)
	return func() {
		signal.Stop(ch)
		close(done)
	}
}

// terminateChildren sends SIGTERM to all direct child processes.
func terminateChildren(out io.Writer) {
	procs, err := process.Processes()
	if err != nil {
		fmt.Fprintf(out, "Failed to terminate subprocesses: %v\n", err)
		return
	}

	selfPid := int32(os.Getpid())

	for _, proc := range procs {
		ppid, err := proc.Ppid()
		if err != nil {
			continue
		}
		if ppid == selfPid {
			proc.Terminate()
		}
	}
}
