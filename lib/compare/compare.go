// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package compare diffs the current output tree against a published
// reference tree by content digest. It answers "what changed since
// the last publish" without consulting the ledger, so it works
// against any reference directory with the conventional layout.
package compare

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/provkit/provkit/lib/digest"
	"github.com/provkit/provkit/lib/study"
)

// Status is the per-file comparison outcome.
type Status string

const (
	// Identical means both sides exist with equal digests.
	Identical Status = "identical"
	// Different means both sides exist with unequal digests.
	Different Status = "different"
	// MissingCurrent means the output was never built (or was cleaned).
	MissingCurrent Status = "missing-current"
	// MissingReference means the reference tree has no copy, typically
	// a new artifact that was never published.
	MissingReference Status = "missing-reference"
)

// File is one compared file.
type File struct {
	// Name is the file's base name, e.g. "price_base.pdf".
	Name string

	Status Status

	// CurrentSHA256 and ReferenceSHA256 are empty when the respective
	// side is missing.
	CurrentSHA256   string
	ReferenceSHA256 string
}

// Artifact pairs an artifact's figure and table comparisons.
type Artifact struct {
	Name   string
	Figure File
	Table  File
}

// Report is the full comparison outcome.
type Report struct {
	CurrentDir   string
	ReferenceDir string
	Artifacts    []Artifact
}

// AllIdentical reports whether every compared file matched. Missing
// files on either side count as differences.
func (r *Report) AllIdentical() bool {
	for _, a := range r.Artifacts {
		if a.Figure.Status != Identical || a.Table.Status != Identical {
			return false
		}
	}
	return true
}

// Run compares the study's current outputs against referenceDir.
// With no names given, artifacts are detected from the current
// figures directory.
func Run(cfg *study.Config, referenceDir string, names []string) (*Report, error) {
	currentDir := cfg.OutputPath()
	if _, err := os.Stat(currentDir); err != nil {
		return nil, fmt.Errorf("output directory %s not found, build the artifacts first", currentDir)
	}
	if !filepath.IsAbs(referenceDir) {
		referenceDir = filepath.Join(cfg.RepoRoot, referenceDir)
	}
	if _, err := os.Stat(referenceDir); err != nil {
		return nil, fmt.Errorf("reference directory %s not found", referenceDir)
	}

	if len(names) == 0 {
		detected, err := detectArtifacts(currentDir)
		if err != nil {
			return nil, err
		}
		names = detected
	}

	report := &Report{CurrentDir: currentDir, ReferenceDir: referenceDir}
	for _, name := range names {
		artifact := Artifact{Name: name}
		artifact.Figure = compareFile(
			cfg.FigurePath(name),
			filepath.Join(referenceDir, "figures", name+".pdf"),
		)
		artifact.Table = compareFile(
			cfg.TablePath(name),
			filepath.Join(referenceDir, "tables", name+".tex"),
		)
		report.Artifacts = append(report.Artifacts, artifact)
	}
	return report, nil
}

func detectArtifacts(outputDir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(outputDir, "figures", "*.pdf"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no figures found under %s", filepath.Join(outputDir, "figures"))
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".pdf"))
	}
	sort.Strings(names)
	return names, nil
}

func compareFile(current, reference string) File {
	file := File{Name: filepath.Base(current)}

	currentSum, currentErr := digest.HashFileHex(current)
	referenceSum, referenceErr := digest.HashFileHex(reference)
	file.CurrentSHA256 = currentSum
	file.ReferenceSHA256 = referenceSum

	switch {
	case currentErr != nil:
		file.Status = MissingCurrent
	case referenceErr != nil:
		file.Status = MissingReference
	case currentSum == referenceSum:
		file.Status = Identical
	default:
		file.Status = Different
	}
	return file
}
