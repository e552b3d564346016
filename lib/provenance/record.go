// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package provenance assembles and persists build records: durable
// metadata binding an artifact's outputs to the exact inputs, command,
// and repository state that produced them. One record per artifact,
// stored as YAML, overwritten whole on rebuild, and written atomically
// so a crash mid-write can never corrupt an existing record.
package provenance

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/provkit/provkit/lib/digest"
	"github.com/provkit/provkit/lib/gitstate"
)

// BuildRecord is the provenance of one artifact build. Field order
// matches the persisted YAML layout.
type BuildRecord struct {
	// Artifact is the unique artifact name, e.g. "price_base".
	Artifact string `yaml:"artifact"`

	// BuiltAtUTC is the build timestamp: ISO-8601 UTC, second
	// precision.
	BuiltAtUTC string `yaml:"built_at_utc"`

	// Command is the invocation that produced the artifact.
	Command []string `yaml:"command"`

	// Git is the repository state at build time.
	Git gitstate.State `yaml:"git"`

	// Inputs and Outputs are the content records of every declared
	// input and output file, in declaration order.
	Inputs  []digest.FileRecord `yaml:"inputs"`
	Outputs []digest.FileRecord `yaml:"outputs"`
}

// FormatTimestamp renders t as the record timestamp format: ISO-8601
// in UTC, truncated to second precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// MissingArtifactError reports a file or build record that does not
// exist but must before the operation can proceed. The remediation is
// always the same: build the artifact first.
type MissingArtifactError struct {
	// Artifact is the artifact name, when known.
	Artifact string

	// Path is the missing file, when the failure is about a concrete
	// path rather than an absent record.
	Path string
}

func (e *MissingArtifactError) Error() string {
	var what string
	switch {
	case e.Path != "" && e.Artifact != "":
		what = fmt.Sprintf("missing %s for artifact %q", e.Path, e.Artifact)
	case e.Path != "":
		what = "missing " + e.Path
	default:
		what = fmt.Sprintf("no build record for artifact %q", e.Artifact)
	}
	return what + ": build it first (e.g. `make " + e.remediation() + "`)"
}

func (e *MissingArtifactError) remediation() string {
	if e.Artifact != "" {
		return e.Artifact
	}
	return "all"
}

// LoadRecord reads one build record from path. Returns a
// MissingArtifactError wrapping fs.ErrNotExist when no record exists.
func LoadRecord(path string) (*BuildRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			return nil, &MissingArtifactError{Artifact: name, Path: path}
		}
		return nil, fmt.Errorf("reading build record %s: %w", path, err)
	}

	var record BuildRecord
	if err := yaml.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("parsing build record %s: %w", path, err)
	}
	return &record, nil
}

// LoadRecords reads every *.yml build record in dir, keyed by artifact
// name (the file stem). A missing directory yields an empty map — no
// artifacts have been built yet.
func LoadRecords(dir string) (map[string]*BuildRecord, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]*BuildRecord{}, nil
		}
		return nil, fmt.Errorf("reading provenance directory %s: %w", dir, err)
	}

	records := make(map[string]*BuildRecord)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yml" {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".yml")
		record, err := LoadRecord(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		records[name] = record
	}
	return records, nil
}
