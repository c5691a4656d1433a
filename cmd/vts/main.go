// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package main implements the vts executable, used to run GTest executables
// on a device and report their results.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"github.com/spf13/afero"
	"golang.org/x/term"

	"go.chromium.org/vts/internal/command"
	"go.chromium.org/vts/internal/logging"
)

// Version is the version info of this command. It is filled in at build time.
var Version = "<unknown>"

// newLogger creates a console logger showing logs at level and above.
func newLogger(w io.Writer, level logging.Level, logTime bool) logging.Logger {
	return logging.NewSinkLogger(level, logTime, logging.NewWriterSink(w))
}

// installSignalHandler cancels the root context on SIGINT or SIGTERM and
// restores the terminal state saved at startup.
func installSignalHandler(cancel context.CancelFunc) (stop func()) {
	var st *term.State
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		var err error
		if st, err = term.GetState(fd); err != nil {
			fmt.Fprintln(os.Stderr, "Failed to get terminal state: ", err)
		}
	}
	return command.InstallSignalHandler(os.Stderr, func(os.Signal) {
		if st != nil {
			term.Restore(fd, st)
		}
		cancel()
	})
}

// doMain implements the main body of the program. It's a separate function so
// that its deferred functions will run before os.Exit makes the program exit
// immediately.
func doMain() int {
	fs := afero.NewOsFs()
	logTime := flag.Bool("logtime", false, "include date/time headers in logs")

	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(newListCmd(os.Stdout, fs, logTime), "")
	subcommands.Register(newRunCmd(os.Stdout, fs, logTime), "")

	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("vts version %s\n", Version)
		return command.StatusOK
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stop := installSignalHandler(cancel)
	defer stop()

	return int(subcommands.Execute(ctx))
}

func main() {
	os.Exit(doMain())
}
