// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

package policy

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/provkit/provkit/lib/gitstate"
	"github.com/provkit/provkit/lib/provenance"
)

func intPtr(v int) *int       { return &v }
func strPtr(s string) *string { return &s }

// cleanState returns a versioned, clean, up-to-date repository state.
func cleanState() gitstate.State {
	return gitstate.State{
		IsRepo:   true,
		Commit:   "abc123def456abc123def456abc123def456abcd",
		Branch:   "main",
		Upstream: strPtr("origin/main"),
		Ahead:    intPtr(0),
		Behind:   intPtr(0),
	}
}

// recordAt returns a build record captured at the given commit.
func recordAt(name, commit string, dirty bool) *provenance.BuildRecord {
	return &provenance.BuildRecord{
		Artifact: name,
		Git: gitstate.State{
			IsRepo: true,
			Commit: commit,
			Branch: "main",
			Dirty:  dirty,
		},
	}
}

func violationOf(t *testing.T, err error) *Violation {
	t.Helper()
	var violation *Violation
	if !errors.As(err, &violation) {
		t.Fatalf("err = %v, want *Violation", err)
	}
	return violation
}

func TestEnforce_UnversionedPassesUnconditionally(t *testing.T) {
	t.Parallel()

	// Even the strictest flags pass when there is no repository:
	// there is no traceability to enforce.
	err := Enforce(gitstate.State{}, nil, []string{"price_base"}, Flags{
		RequireNotBehind:   true,
		RequireCurrentHead: true,
	})
	if err != nil {
		t.Fatalf("Enforce on unversioned state: %v", err)
	}
}

func TestEnforce_CleanUpToDatePasses(t *testing.T) {
	t.Parallel()

	state := cleanState()
	records := map[string]*provenance.BuildRecord{
		"price_base": recordAt("price_base", state.Commit, false),
	}
	err := Enforce(state, records, []string{"price_base"}, Flags{RequireNotBehind: true})
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}
}

func TestEnforce_DirtyTreeRejected(t *testing.T) {
	t.Parallel()

	state := cleanState()
	state.Dirty = true

	violation := violationOf(t, Enforce(state, nil, nil, Flags{}))
	if violation.Kind != KindDirtyTree {
		t.Errorf("Kind = %q, want %q", violation.Kind, KindDirtyTree)
	}
	if !strings.Contains(violation.Error(), "--allow-dirty") {
		t.Errorf("error %q lacks remediation", violation.Error())
	}
}

func TestEnforce_DirtyTreeAllowed(t *testing.T) {
	t.Parallel()

	state := cleanState()
	state.Dirty = true
	if err := Enforce(state, nil, nil, Flags{AllowDirty: true}); err != nil {
		t.Fatalf("Enforce with AllowDirty: %v", err)
	}
}

func TestEnforce_BehindUpstreamRejected(t *testing.T) {
	t.Parallel()

	state := cleanState()
	state.Behind = intPtr(3)

	violation := violationOf(t, Enforce(state, nil, nil, Flags{RequireNotBehind: true}))
	if violation.Kind != KindBehindUpstream {
		t.Errorf("Kind = %q, want %q", violation.Kind, KindBehindUpstream)
	}
	if !strings.Contains(violation.Error(), "3 commit(s)") {
		t.Errorf("error %q does not name the count", violation.Error())
	}
}

func TestEnforce_BehindWithoutFlagPasses(t *testing.T) {
	t.Parallel()

	state := cleanState()
	state.Behind = intPtr(3)
	if err := Enforce(state, nil, nil, Flags{}); err != nil {
		t.Fatalf("Enforce: %v", err)
	}
}

func TestEnforce_NoUpstreamPassesNotBehindCheck(t *testing.T) {
	t.Parallel()

	state := cleanState()
	state.Upstream = nil
	state.Ahead = nil
	state.Behind = nil
	if err := Enforce(state, nil, nil, Flags{RequireNotBehind: true}); err != nil {
		t.Fatalf("Enforce without upstream: %v", err)
	}
}

func TestEnforce_DirtyTreeReportedBeforeBehind(t *testing.T) {
	t.Parallel()

	// Short-circuit ordering: with both conditions failing, the
	// dirty-tree violation is the one reported.
	state := cleanState()
	state.Dirty = true
	state.Behind = intPtr(2)

	violation := violationOf(t, Enforce(state, nil, nil, Flags{RequireNotBehind: true}))
	if violation.Kind != KindDirtyTree {
		t.Errorf("Kind = %q, want dirty tree reported first", violation.Kind)
	}
}

func TestEnforce_DirtyArtifactsBatched(t *testing.T) {
	t.Parallel()

	state := cleanState()
	records := map[string]*provenance.BuildRecord{
		"price_base":   recordAt("price_base", state.Commit, true),
		"remodel_base": recordAt("remodel_base", state.Commit, true),
		"clean_one":    recordAt("clean_one", state.Commit, false),
	}

	err := Enforce(state, records, []string{"price_base", "remodel_base", "clean_one"}, Flags{})
	violation := violationOf(t, err)
	if violation.Kind != KindDirtyArtifacts {
		t.Fatalf("Kind = %q, want %q", violation.Kind, KindDirtyArtifacts)
	}
	if len(violation.Problems) != 2 {
		t.Fatalf("Problems = %d, want both dirty artifacts in one violation", len(violation.Problems))
	}
	text := violation.Error()
	if !strings.Contains(text, "price_base") || !strings.Contains(text, "remodel_base") {
		t.Errorf("error %q does not list all offenders", text)
	}
	if strings.Contains(text, "clean_one") {
		t.Errorf("error %q names a clean artifact", text)
	}
}

func TestEnforce_StaleArtifactsBatchedWithCommits(t *testing.T) {
	t.Parallel()

	state := cleanState()
	state.Commit = "def456def456def456def456def456def456def4"
	records := map[string]*provenance.BuildRecord{
		"price_base":   recordAt("price_base", "abc123abc123abc123abc123abc123abc123abc1", false),
		"remodel_base": recordAt("remodel_base", state.Commit, false),
	}

	err := Enforce(state, records, []string{"price_base", "remodel_base"}, Flags{RequireCurrentHead: true})
	violation := violationOf(t, err)
	if violation.Kind != KindStaleArtifacts {
		t.Fatalf("Kind = %q, want %q", violation.Kind, KindStaleArtifacts)
	}
	if len(violation.Problems) != 1 {
		t.Fatalf("Problems = %d, want 1", len(violation.Problems))
	}
	detail := violation.Problems[0].Detail
	if !strings.Contains(detail, "built from abc123a") || !strings.Contains(detail, "HEAD is def456d") {
		t.Errorf("detail = %q, want old and new commits", detail)
	}
}

func TestEnforce_MissingRecordIgnored(t *testing.T) {
	t.Parallel()

	// Artifacts without a build record are not a policy concern; the
	// publisher rejects them with its own missing-artifact error.
	state := cleanState()
	err := Enforce(state, map[string]*provenance.BuildRecord{}, []string{"unbuilt"}, Flags{
		RequireCurrentHead: true,
	})
	if err != nil {
		t.Fatalf("Enforce: %v", err)
	}
}

func TestEnforce_DirtyRecordScenario(t *testing.T) {
	t.Parallel()

	// Spec scenario: clean current tree, but price_base's record was
	// captured on a dirty tree, allow_dirty off.
	state := cleanState()
	records := map[string]*provenance.BuildRecord{
		"price_base": recordAt("price_base", state.Commit, true),
	}
	err := Enforce(state, records, []string{"price_base"}, Flags{})
	violation := violationOf(t, err)
	text := violation.Error()
	if !strings.Contains(text, "price_base") || !strings.Contains(text, "Rebuild") {
		t.Errorf("error %q lacks artifact name or rebuild remediation", text)
	}
}

func TestCheck_UnversionedDirectory(t *testing.T) {
	t.Parallel()

	// End-to-end no-git pass: a plain directory, strict flags.
	dir := t.TempDir()
	err := Check(context.Background(), dir, dir, []string{"price_base"}, Flags{
		RequireNotBehind:   true,
		RequireCurrentHead: true,
	})
	if err != nil {
		t.Fatalf("Check on unversioned directory: %v", err)
	}
}
