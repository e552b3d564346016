// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

package provenance

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/provkit/provkit/lib/atomicfile"
	"github.com/provkit/provkit/lib/clock"
	"github.com/provkit/provkit/lib/digest"
	"github.com/provkit/provkit/lib/gitstate"
)

// RecordSpec names everything a build record needs besides timestamps
// and repository state: the artifact, the command that built it, and
// the declared input and output paths.
type RecordSpec struct {
	// Artifact is the artifact name; becomes the record key.
	Artifact string

	// Command is the invocation that produced the outputs.
	Command []string

	// RepoRoot is the analysis repository whose state is captured.
	RepoRoot string

	// Inputs and Outputs are the declared file paths. Every path must
	// exist at write time.
	Inputs  []string
	Outputs []string

	// DestPath is where the record is persisted.
	DestPath string
}

// Writer assembles and persists build records.
type Writer struct {
	clock clock.Clock
}

// NewWriter returns a Writer stamping records from the given clock.
func NewWriter(c clock.Clock) *Writer {
	return &Writer{clock: c}
}

// Write verifies every declared input and output exists, hashes them,
// captures the repository state, and atomically persists the assembled
// record at spec.DestPath. An output that cannot be hashed means the
// build did not actually succeed, so a missing path is a loud
// MissingArtifactError, never a silently shorter record.
//
// Rebuilding the same artifact overwrites the whole record; records
// are never merged.
func (w *Writer) Write(ctx context.Context, spec RecordSpec) (*BuildRecord, error) {
	for _, path := range append(append([]string{}, spec.Inputs...), spec.Outputs...) {
		if _, err := os.Stat(path); err != nil {
			return nil, &MissingArtifactError{Artifact: spec.Artifact, Path: path}
		}
	}

	inputs, err := recordFiles(spec.Inputs)
	if err != nil {
		return nil, err
	}
	outputs, err := recordFiles(spec.Outputs)
	if err != nil {
		return nil, err
	}

	state, err := gitstate.Inspect(ctx, spec.RepoRoot)
	if err != nil {
		return nil, err
	}

	record := &BuildRecord{
		Artifact:   spec.Artifact,
		BuiltAtUTC: FormatTimestamp(w.clock.Now()),
		Command:    spec.Command,
		Git:        state,
		Inputs:     inputs,
		Outputs:    outputs,
	}

	data, err := yaml.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("marshaling build record for %q: %w", spec.Artifact, err)
	}
	if err := atomicfile.WriteFile(spec.DestPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("persisting build record for %q: %w", spec.Artifact, err)
	}
	return record, nil
}

func recordFiles(paths []string) ([]digest.FileRecord, error) {
	records := make([]digest.FileRecord, 0, len(paths))
	for _, path := range paths {
		record, err := digest.RecordFile(path)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
