// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package gitstate inspects the version-control status of an analysis
// repository: head commit, branch, dirty flag, and ahead/behind counts
// relative to the configured upstream. The snapshot feeds provenance
// records and publication policy decisions.
//
// "Not a git repository" is a valid state, not an error: State.IsRepo
// is false and every other field is zero. Callers must branch on
// IsRepo and treat an unversioned tree as "no traceability available".
package gitstate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// State is a snapshot of version-control status at a point in time.
// Computed fresh on every Inspect call, never cached, immutable once
// returned.
type State struct {
	// IsRepo reports whether the directory is under git version
	// control. When false, all other fields are zero.
	IsRepo bool

	// Commit is the full head revision id.
	Commit string

	// Branch is the current branch name, or "HEAD" when detached
	// (git's own sentinel from rev-parse --abbrev-ref).
	Branch string

	// Dirty is true when any tracked file differs from Commit,
	// whether the change is staged or unstaged.
	Dirty bool

	// Upstream is the configured remote-tracking ref, or nil when no
	// upstream is configured. No upstream is a common, valid state.
	Upstream *string

	// Ahead and Behind count commits only on the local head and only
	// on the upstream, respectively. Both nil when Upstream is nil.
	Ahead  *int
	Behind *int
}

// unversionedWire and versionedWire pin the two persisted YAML shapes
// of a State: an unversioned state serializes as just
// "is_git_repo: false", while a versioned one always carries
// commit/branch/dirty plus explicitly-null upstream/ahead/behind when
// no upstream is configured.
type unversionedWire struct {
	IsRepo bool `yaml:"is_git_repo"`
}

type versionedWire struct {
	IsRepo   bool    `yaml:"is_git_repo"`
	Commit   string  `yaml:"commit"`
	Branch   string  `yaml:"branch"`
	Dirty    bool    `yaml:"dirty"`
	Upstream *string `yaml:"upstream"`
	Ahead    *int    `yaml:"ahead"`
	Behind   *int    `yaml:"behind"`
}

// MarshalYAML implements yaml.Marshaler.
func (s State) MarshalYAML() (any, error) {
	if !s.IsRepo {
		return unversionedWire{IsRepo: false}, nil
	}
	return versionedWire{
		IsRepo:   true,
		Commit:   s.Commit,
		Branch:   s.Branch,
		Dirty:    s.Dirty,
		Upstream: s.Upstream,
		Ahead:    s.Ahead,
		Behind:   s.Behind,
	}, nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *State) UnmarshalYAML(unmarshal func(any) error) error {
	var wire versionedWire
	if err := unmarshal(&wire); err != nil {
		return err
	}
	if !wire.IsRepo {
		*s = State{}
		return nil
	}
	*s = State{
		IsRepo:   true,
		Commit:   wire.Commit,
		Branch:   wire.Branch,
		Dirty:    wire.Dirty,
		Upstream: wire.Upstream,
		Ahead:    wire.Ahead,
		Behind:   wire.Behind,
	}
	return nil
}

// Error is an unexpected version-control failure: git binary missing,
// corrupted repository, unparseable output. "Not a repository" and "no
// upstream configured" are valid states and never produce an Error.
type Error struct {
	Op  string
	Dir string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("version control failure: %s in %s: %v", e.Op, e.Dir, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// notRepoExitCode is the status git returns for commands run outside
// a work tree.
const notRepoExitCode = 128

// Inspect queries the version-control status of the repository at
// repoPath. It never caches: every call re-runs git so the snapshot
// reflects the tree at call time.
func Inspect(ctx context.Context, repoPath string) (State, error) {
	repo := NewRepository(repoPath)

	inside, stderr, code, err := repo.exec(ctx, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return State{}, err
	}
	if code != 0 {
		if code == notRepoExitCode && strings.Contains(stderr, "not a git repository") {
			return State{}, nil
		}
		return State{}, &Error{
			Op:  "rev-parse --is-inside-work-tree",
			Dir: repoPath,
			Err: fmt.Errorf("exit status %d: %s", code, strings.TrimSpace(stderr)),
		}
	}
	if strings.TrimSpace(inside) != "true" {
		// Inside .git itself or a bare repository: no working tree to
		// describe, treat as unversioned.
		return State{}, nil
	}

	commitOut, commitStderr, commitCode, err := repo.exec(ctx, "rev-parse", "HEAD")
	if err != nil {
		return State{}, err
	}
	if commitCode == notRepoExitCode {
		// A repository whose HEAD is unborn (git init, nothing
		// committed) has no revision to bind provenance to. Treat it
		// as unversioned rather than failing every operation until
		// the first commit.
		return State{}, nil
	}
	if commitCode != 0 {
		return State{}, &Error{
			Op:  "rev-parse HEAD",
			Dir: repoPath,
			Err: fmt.Errorf("exit status %d: %s", commitCode, strings.TrimSpace(commitStderr)),
		}
	}
	commit := strings.TrimSpace(commitOut)

	branch, err := repo.Run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return State{}, &Error{Op: "rev-parse --abbrev-ref HEAD", Dir: repoPath, Err: err}
	}

	dirty, err := isDirty(ctx, repo)
	if err != nil {
		return State{}, err
	}

	state := State{
		IsRepo: true,
		Commit: commit,
		Branch: branch,
		Dirty:  dirty,
	}

	// A missing upstream is encoded as nils, not an error.
	upstream, _, upstreamCode, err := repo.exec(ctx,
		"rev-parse", "--abbrev-ref", "--symbolic-full-name", "@{u}")
	if err != nil {
		return State{}, err
	}
	if upstreamCode != 0 {
		return state, nil
	}
	upstreamRef := strings.TrimSpace(upstream)
	state.Upstream = &upstreamRef

	ahead, behind, err := countAheadBehind(ctx, repo, upstreamRef)
	if err != nil {
		return State{}, err
	}
	state.Ahead = &ahead
	state.Behind = &behind

	return state, nil
}

// isDirty reports whether the working tree or index differs from HEAD
// in any tracked file. Both unstaged (diff) and staged (diff --cached)
// changes count.
func isDirty(ctx context.Context, repo *Repository) (bool, error) {
	for _, args := range [][]string{
		{"diff", "--quiet"},
		{"diff", "--cached", "--quiet"},
	} {
		_, stderr, code, err := repo.exec(ctx, args...)
		if err != nil {
			return false, err
		}
		switch code {
		case 0:
			// clean for this comparison
		case 1:
			return true, nil
		default:
			return false, &Error{
				Op:  "git " + strings.Join(args, " "),
				Dir: repo.Dir(),
				Err: fmt.Errorf("exit status %d: %s", code, strings.TrimSpace(stderr)),
			}
		}
	}
	return false, nil
}

// countAheadBehind returns the symmetric difference counts between the
// local head and upstream: commits only on HEAD (ahead) and commits
// only on the upstream (behind).
func countAheadBehind(ctx context.Context, repo *Repository, upstream string) (int, int, error) {
	output, err := repo.Run(ctx, "rev-list", "--left-right", "--count", "HEAD..."+upstream)
	if err != nil {
		return 0, 0, &Error{Op: "rev-list --left-right --count", Dir: repo.Dir(), Err: err}
	}

	left, right, found := strings.Cut(output, "\t")
	if !found {
		return 0, 0, &Error{
			Op:  "rev-list --left-right --count",
			Dir: repo.Dir(),
			Err: fmt.Errorf("unparseable output %q", output),
		}
	}
	ahead, err := strconv.Atoi(strings.TrimSpace(left))
	if err != nil {
		return 0, 0, &Error{Op: "rev-list", Dir: repo.Dir(), Err: fmt.Errorf("ahead count %q: %w", left, err)}
	}
	behind, err := strconv.Atoi(strings.TrimSpace(right))
	if err != nil {
		return 0, 0, &Error{Op: "rev-list", Dir: repo.Dir(), Err: fmt.Errorf("behind count %q: %w", right, err)}
	}
	return ahead, behind, nil
}
