// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package policy gates publication on repository state. The checks run
// in a fixed order and stop at the first failing condition, but
// per-artifact conditions report every offending artifact at once:
// publication is all-or-nothing for a batch, so surfacing one stale
// artifact per invocation would force repeated runs to discover the
// full remediation list.
//
// Passing a check has no side effects. The enforcer is purely
// advisory; the publisher copies nothing until it passes.
package policy

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/provkit/provkit/lib/gitstate"
	"github.com/provkit/provkit/lib/provenance"
)

// Flags are the configurable strictness knobs, set per invocation by
// the caller (Makefile or CLI).
type Flags struct {
	// AllowDirty permits publishing from a dirty working tree and
	// from build records captured on a dirty tree.
	AllowDirty bool

	// RequireNotBehind rejects publication when the local branch is
	// behind its upstream.
	RequireNotBehind bool

	// RequireCurrentHead rejects publication of artifacts whose build
	// records were captured at a different commit than current HEAD.
	RequireCurrentHead bool
}

// Kind identifies which precondition a Violation reports.
type Kind string

const (
	// KindDirtyTree: the working tree has uncommitted changes.
	KindDirtyTree Kind = "dirty-tree"

	// KindBehindUpstream: the branch is behind its upstream.
	KindBehindUpstream Kind = "behind-upstream"

	// KindDirtyArtifacts: one or more build records were captured on
	// a dirty tree.
	KindDirtyArtifacts Kind = "dirty-artifacts"

	// KindStaleArtifacts: one or more build records were captured at
	// a commit other than current HEAD.
	KindStaleArtifacts Kind = "stale-artifacts"
)

// Problem is one offending artifact inside a batched Violation.
type Problem struct {
	// Artifact is the offending artifact name.
	Artifact string

	// Detail explains what is wrong with this artifact.
	Detail string
}

// Violation is the policy rejection error. It always carries the
// complete set of offending artifacts for its Kind, plus remediation
// text, so one invocation shows everything the operator must fix.
type Violation struct {
	Kind     Kind
	Message  string
	Problems []Problem
	Remedy   string
}

func (v *Violation) Error() string {
	var b strings.Builder
	b.WriteString(v.Message)
	for _, problem := range v.Problems {
		b.WriteString("\n  ")
		b.WriteString(problem.Artifact)
		b.WriteString(": ")
		b.WriteString(problem.Detail)
	}
	if v.Remedy != "" {
		b.WriteString("\n")
		b.WriteString(v.Remedy)
	}
	return b.String()
}

// Check inspects the repository at repoRoot, loads build records for
// the named artifacts from provenanceDir, and enforces the policy.
// Returns nil when publication may proceed, a *Violation when it may
// not.
func Check(ctx context.Context, repoRoot, provenanceDir string, names []string, flags Flags) error {
	state, err := gitstate.Inspect(ctx, repoRoot)
	if err != nil {
		return err
	}

	records := make(map[string]*provenance.BuildRecord)
	for _, name := range names {
		record, err := provenance.LoadRecord(filepath.Join(provenanceDir, name+".yml"))
		if err != nil {
			// A missing record is not a policy concern; the publisher
			// rejects it with its own error if publication proceeds.
			continue
		}
		records[name] = record
	}

	return Enforce(state, records, names, flags)
}

// Enforce applies the policy to an already-captured repository state
// and the build records of the artifacts being published. Checks run
// in order and stop at the first failure:
//
//  1. Unversioned repository: pass unconditionally — there is no
//     traceability to enforce.
//  2. Dirty working tree (unless AllowDirty).
//  3. Behind upstream (when RequireNotBehind).
//  4. Build records captured on a dirty tree (unless AllowDirty) —
//     all offenders batched.
//  5. Build records captured at a stale commit (when
//     RequireCurrentHead) — all offenders batched.
func Enforce(state gitstate.State, records map[string]*provenance.BuildRecord, names []string, flags Flags) error {
	if !state.IsRepo {
		return nil
	}

	if state.Dirty && !flags.AllowDirty {
		return &Violation{
			Kind:    KindDirtyTree,
			Message: "refusing to publish from a dirty working tree",
			Remedy:  "Commit or stash your changes, or pass --allow-dirty.",
		}
	}

	if flags.RequireNotBehind && state.Behind != nil && *state.Behind > 0 {
		return &Violation{
			Kind: KindBehindUpstream,
			Message: fmt.Sprintf("refusing to publish: branch is behind upstream by %d commit(s)",
				*state.Behind),
			Remedy: "Pull or rebase first, or pass --require-not-behind=false.",
		}
	}

	if !flags.AllowDirty {
		var dirty []Problem
		for _, name := range names {
			record, ok := records[name]
			if !ok {
				continue
			}
			if record.Git.IsRepo && record.Git.Dirty {
				dirty = append(dirty, Problem{
					Artifact: name,
					Detail:   "built from a dirty working tree",
				})
			}
		}
		if len(dirty) > 0 {
			return &Violation{
				Kind:     KindDirtyArtifacts,
				Message:  "refusing to publish: some artifacts were built from a dirty working tree",
				Problems: dirty,
				Remedy:   "Rebuild them from a clean tree, or pass --allow-dirty.",
			}
		}
	}

	if flags.RequireCurrentHead && state.Commit != "" {
		var stale []Problem
		for _, name := range names {
			record, ok := records[name]
			if !ok {
				continue
			}
			if record.Git.IsRepo && record.Git.Commit != "" && record.Git.Commit != state.Commit {
				stale = append(stale, Problem{
					Artifact: name,
					Detail: fmt.Sprintf("built from %s, but HEAD is %s",
						shortCommit(record.Git.Commit), shortCommit(state.Commit)),
				})
			}
		}
		if len(stale) > 0 {
			return &Violation{
				Kind:     KindStaleArtifacts,
				Message:  "refusing to publish: some artifacts were not built from current HEAD",
				Problems: stale,
				Remedy:   "Run a clean rebuild (make clean && make all), or pass --require-current-head=false.",
			}
		}
	}

	return nil
}

// shortCommit abbreviates a commit id to 7 characters for display.
func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
