// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package audit runs the pre-submission checklist: a sequence of
// independent checks over the repository, the built artifacts, and
// their provenance records. Unlike the publication policy, which
// rejects on the first violation class, the audit always runs every
// check and reports the full picture.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/provkit/provkit/lib/digest"
	"github.com/provkit/provkit/lib/gitstate"
	"github.com/provkit/provkit/lib/provenance"
	"github.com/provkit/provkit/lib/study"
)

// Status classifies a check outcome. Warnings pass by default and
// fail under strict mode.
type Status int

const (
	Pass Status = iota
	Warn
	Fail
)

func (s Status) String() string {
	switch s {
	case Pass:
		return "pass"
	case Warn:
		return "warn"
	case Fail:
		return "fail"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Result is one checklist line.
type Result struct {
	Name    string
	Status  Status
	Message string
	Details string
}

// Auditor runs the checklist against one study.
type Auditor struct {
	cfg *study.Config
}

func New(cfg *study.Config) *Auditor {
	return &Auditor{cfg: cfg}
}

// Run executes every check and reports the results plus whether the
// audit passed. Strict mode escalates warnings to failures.
func (a *Auditor) Run(ctx context.Context, strict bool) ([]Result, bool) {
	state, stateErr := gitstate.Inspect(ctx, a.cfg.RepoRoot)

	var results []Result
	results = append(results, a.checkGit(state, stateErr)...)
	results = append(results, a.checkArtifactsBuilt())
	results = append(results, a.checkProvenanceCurrent(state))
	results = append(results, a.checkOutputChecksums())
	results = append(results, a.checkDocumentation())

	ok := true
	for i := range results {
		if strict && results[i].Status == Warn {
			results[i].Status = Fail
		}
		if results[i].Status == Fail {
			ok = false
		}
	}
	return results, ok
}

func (a *Auditor) checkGit(state gitstate.State, stateErr error) []Result {
	if stateErr != nil {
		return []Result{{
			Name:    "Git repository",
			Status:  Fail,
			Message: "inspection failed",
			Details: stateErr.Error(),
		}}
	}
	if !state.IsRepo {
		return []Result{{
			Name:    "Git repository",
			Status:  Fail,
			Message: "not a git repository",
			Details: "version the analysis before submission",
		}}
	}

	results := []Result{{
		Name:    "Git repository",
		Status:  Pass,
		Message: fmt.Sprintf("on %s at %.7s", state.Branch, state.Commit),
	}}

	if state.Dirty {
		results = append(results, Result{
			Name:    "Clean working tree",
			Status:  Warn,
			Message: "uncommitted changes detected",
			Details: "commit or stash before submission",
		})
	} else {
		results = append(results, Result{
			Name:    "Clean working tree",
			Status:  Pass,
			Message: "no uncommitted changes",
		})
	}

	switch {
	case state.Upstream == nil:
		results = append(results, Result{
			Name:    "Up to date with remote",
			Status:  Pass,
			Message: "no upstream configured",
		})
	case state.Behind != nil && *state.Behind > 0:
		results = append(results, Result{
			Name:    "Up to date with remote",
			Status:  Warn,
			Message: fmt.Sprintf("behind %s by %d commit(s)", *state.Upstream, *state.Behind),
			Details: "run git pull and rebuild",
		})
	default:
		ahead := 0
		if state.Ahead != nil {
			ahead = *state.Ahead
		}
		results = append(results, Result{
			Name:    "Up to date with remote",
			Status:  Pass,
			Message: fmt.Sprintf("ahead by %d, behind by 0", ahead),
		})
	}
	return results
}

func (a *Auditor) checkArtifactsBuilt() Result {
	names := a.cfg.AnalysisNames()
	if len(names) == 0 {
		return Result{
			Name:    "Artifacts built",
			Status:  Warn,
			Message: "no analyses declared in the study configuration",
		}
	}

	var missing []string
	for _, name := range names {
		complete := true
		for _, path := range []string{a.cfg.FigurePath(name), a.cfg.TablePath(name), a.cfg.ProvenancePath(name)} {
			if _, err := os.Stat(path); err != nil {
				complete = false
				break
			}
		}
		if !complete {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Result{
			Name:    "Artifacts built",
			Status:  Fail,
			Message: fmt.Sprintf("%d of %d artifacts incomplete", len(missing), len(names)),
			Details: "missing: " + strings.Join(missing, ", "),
		}
	}
	return Result{
		Name:    "Artifacts built",
		Status:  Pass,
		Message: fmt.Sprintf("all %d artifacts complete", len(names)),
	}
}

func (a *Auditor) checkProvenanceCurrent(state gitstate.State) Result {
	records, err := provenance.LoadRecords(a.cfg.ProvenanceDir())
	if err != nil {
		return Result{Name: "Provenance current", Status: Fail, Message: "unreadable records", Details: err.Error()}
	}
	if len(records) == 0 {
		return Result{
			Name:    "Provenance current",
			Status:  Fail,
			Message: "no provenance records found",
			Details: "build the artifacts first",
		}
	}
	if !state.IsRepo {
		return Result{
			Name:    "Provenance current",
			Status:  Pass,
			Message: "repository unversioned, nothing to compare against",
		}
	}

	var stale []string
	for name, record := range records {
		if record.Git.IsRepo && record.Git.Commit != state.Commit {
			stale = append(stale, name)
		}
	}
	sort.Strings(stale)
	if len(stale) > 0 {
		return Result{
			Name:    "Provenance current",
			Status:  Warn,
			Message: fmt.Sprintf("%d artifacts built from old commits", len(stale)),
			Details: "stale: " + strings.Join(stale, ", ") + "; rebuild from HEAD",
		}
	}
	return Result{
		Name:    "Provenance current",
		Status:  Pass,
		Message: fmt.Sprintf("all %d artifacts built from current HEAD", len(records)),
	}
}

func (a *Auditor) checkOutputChecksums() Result {
	records, err := provenance.LoadRecords(a.cfg.ProvenanceDir())
	if err != nil {
		return Result{Name: "Output checksums", Status: Fail, Message: "unreadable records", Details: err.Error()}
	}

	var modified []string
	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, out := range records[name].Outputs {
			sum, err := digest.HashFileHex(out.Path)
			if err != nil {
				// Missing outputs are the artifacts-built check's
				// concern.
				continue
			}
			if sum != out.SHA256 {
				modified = append(modified, out.Path)
			}
		}
	}
	if len(modified) > 0 {
		return Result{
			Name:    "Output checksums",
			Status:  Fail,
			Message: fmt.Sprintf("%d outputs modified after their recorded build", len(modified)),
			Details: "modified: " + strings.Join(modified, ", "),
		}
	}
	return Result{
		Name:    "Output checksums",
		Status:  Pass,
		Message: "all outputs match their recorded checksums",
	}
}

func (a *Auditor) checkDocumentation() Result {
	required := []string{"README.md"}
	recommended := []string{"DATA_AVAILABILITY.md", "CITATION.cff"}

	var missing, missingRecommended []string
	for _, doc := range required {
		if _, err := os.Stat(filepath.Join(a.cfg.RepoRoot, doc)); err != nil {
			missing = append(missing, doc)
		}
	}
	for _, doc := range recommended {
		if _, err := os.Stat(filepath.Join(a.cfg.RepoRoot, doc)); err != nil {
			missingRecommended = append(missingRecommended, doc)
		}
	}

	switch {
	case len(missing) > 0:
		return Result{
			Name:    "Documentation",
			Status:  Fail,
			Message: "required documentation missing",
			Details: "missing: " + strings.Join(missing, ", "),
		}
	case len(missingRecommended) > 0:
		return Result{
			Name:    "Documentation",
			Status:  Warn,
			Message: "recommended documentation missing",
			Details: "missing: " + strings.Join(missingRecommended, ", "),
		}
	default:
		return Result{
			Name:    "Documentation",
			Status:  Pass,
			Message: "all documentation present",
		}
	}
}
