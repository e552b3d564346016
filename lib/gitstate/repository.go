// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

package gitstate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Repository represents a git working tree at a specific directory.
// All operations target this directory via "git -C <dir>". There is no
// default directory — callers must always specify which repository
// they mean.
type Repository struct {
	dir string
}

// NewRepository returns a Repository targeting the given directory.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir}
}

// Dir returns the repository directory.
func (r *Repository) Dir() string {
	return r.dir
}

// Run executes a git command targeting this repository and returns
// stdout with trailing whitespace trimmed. Stderr is captured
// separately and included in error messages on failure.
func (r *Repository) Run(ctx context.Context, args ...string) (string, error) {
	stdout, stderr, code, err := r.exec(ctx, args...)
	if err != nil {
		return "", err
	}
	if code != 0 {
		return "", fmt.Errorf("git %s in %s: exit status %d (stderr: %s)",
			strings.Join(args, " "), r.dir, code, strings.TrimSpace(stderr))
	}
	return strings.TrimSpace(stdout), nil
}

// exec runs a git command and returns stdout, stderr, and the exit
// code. The returned error is non-nil only for failures to run git at
// all (binary missing, context cancelled) — a nonzero exit from git
// itself is reported through the code return, since several inspection
// commands use exit status as their answer (diff --quiet, rev-parse on
// a missing upstream).
func (r *Repository) exec(ctx context.Context, args ...string) (string, string, int, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, "git", fullArgs...)
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
		}
		return "", "", -1, &Error{
			Op:  "git " + strings.Join(args, " "),
			Dir: r.dir,
			Err: err,
		}
	}
	return stdout.String(), stderr.String(), 0, nil
}
