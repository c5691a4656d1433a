// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package device moves files to and from the device and runs test
// executables on it through a bridge.Commander.
package device

import (
	"context"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"

	"go.chromium.org/vts/errors"
	"go.chromium.org/vts/internal/bridge"
	"go.chromium.org/vts/internal/logging"
	"go.chromium.org/vts/shutil"
)

// Transfer copies files between the host and the device.
type Transfer struct {
	cmd bridge.Commander
	fs  afero.Fs
}

// NewTransfer returns a Transfer running bridge commands with cmd. fs is the
// host filesystem.
func NewTransfer(cmd bridge.Commander, fs afero.Fs) *Transfer {
	return &Transfer{cmd: cmd, fs: fs}
}

// Push copies localPath on the host to remotePath on the device, creating the
// remote parent directory first.
func (t *Transfer) Push(ctx context.Context, localPath, remotePath string) error {
	remoteDir := path.Dir(remotePath)
	logging.Debugf(ctx, "Creating remote directory %s", remoteDir)
	if _, err := t.cmd.Run(ctx, []string{"shell", shutil.Command("mkdir", []string{"-p", remoteDir})}, true); err != nil {
		return errors.Wrapf(err, "failed to create remote directory %s", remoteDir)
	}

	size := "unknown size"
	if fi, err := t.fs.Stat(localPath); err == nil {
		size = humanize.Bytes(uint64(fi.Size()))
	}
	logging.Infof(ctx, "Pushing %s (%s) to %s", localPath, size, remotePath)
	if _, err := t.cmd.Run(ctx, []string{"push", localPath, remotePath}, true); err != nil {
		return errors.Wrapf(err, "failed to push %s", filepath.Base(localPath))
	}
	return nil
}

// Pull copies remotePath on the device to localPath on the host, creating the
// local parent directory first. It reports whether the file was fetched.
// Failures are logged rather than returned; the only error returned is one of
// kind errors.ToolNotFound, which means no bridge command can succeed.
func (t *Transfer) Pull(ctx context.Context, remotePath, localPath string) (bool, error) {
	localDir := filepath.Dir(localPath)
	if err := t.fs.MkdirAll(localDir, 0755); err != nil {
		logging.Warningf(ctx, "Failed to create local directory %s: %v", localDir, err)
		return false, nil
	}

	logging.Infof(ctx, "Fetching %s to %s", remotePath, localPath)
	if _, err := t.cmd.Run(ctx, []string{"pull", remotePath, localPath}, true); err != nil {
		if errors.KindOf(err) == errors.ToolNotFound {
			return false, errors.Wrapf(err, "failed to fetch %s", path.Base(remotePath))
		}
		logging.Warningf(ctx, "Failed to fetch %s: %v", remotePath, err)
		if remoteFileMissing(err) {
			logging.Infof(ctx, "Hint: %s may not exist on the device; check that the test ran and wrote its results", remotePath)
		}
		return false, nil
	}

	if fi, err := t.fs.Stat(localPath); err == nil {
		logging.Debugf(ctx, "Fetched %s (%s)", path.Base(remotePath), humanize.Bytes(uint64(fi.Size())))
	}
	return true, nil
}

// remoteFileMissing reports whether err says that the remote file is absent.
func remoteFileMissing(err error) bool {
	msg := strings.ToLower(err.Error())
	var cmdErr *bridge.CommandError
	if errors.As(err, &cmdErr) {
		msg += "\n" + strings.ToLower(cmdErr.Stdout)
	}
	return strings.Contains(msg, "no such file or directory") || strings.Contains(msg, "does not exist")
}
