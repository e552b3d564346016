// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

package publish

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/provkit/provkit/lib/atomicfile"
	"github.com/provkit/provkit/lib/gitstate"
	"github.com/provkit/provkit/lib/provenance"
)

// LedgerVersion is the current ledger schema version.
const LedgerVersion = 1

// LedgerFileName is the ledger's name at the destination tree root.
const LedgerFileName = "provenance.yml"

// Ledger is the cumulative record of everything copied into one
// publication destination. It has two mutually exclusive addressing
// modes: Artifacts (analysis-level: figure/table pairs keyed by
// artifact name) and Files (file-level: keyed by destination-relative
// path). Switching modes clears the other section — a deliberate
// destructive transition, not a merge.
type Ledger struct {
	// Version is the ledger schema version.
	Version int `yaml:"paper_provenance_version"`

	// LastUpdatedUTC is the timestamp of the last publish.
	LastUpdatedUTC string `yaml:"last_updated_utc"`

	// AnalysisGit is the source repository state captured at the last
	// publish.
	AnalysisGit gitstate.State `yaml:"analysis_git"`

	// Artifacts is the analysis-level section.
	Artifacts map[string]*ArtifactEntry `yaml:"artifacts,omitempty"`

	// Files is the file-level section.
	Files map[string]*FileEntry `yaml:"files,omitempty"`
}

// ArtifactEntry records the published figure and table of one
// artifact.
type ArtifactEntry struct {
	Figures *PublishedFile `yaml:"figures,omitempty"`
	Tables  *PublishedFile `yaml:"tables,omitempty"`
}

// PublishedFile records one file copied (or confirmed unchanged) at
// the destination. DstSHA256 always reflects the destination file's
// actual content at publish time — it is recomputed after every copy,
// never carried over from the source hash.
type PublishedFile struct {
	PublishedAtUTC string                  `yaml:"published_at_utc"`
	Copied         bool                    `yaml:"copied"`
	Src            string                  `yaml:"src"`
	Dst            string                  `yaml:"dst"`
	DstSHA256      string                  `yaml:"dst_sha256"`
	BuildRecord    *provenance.BuildRecord `yaml:"build_record"`
}

// FileEntry records one file published in file-level mode. The
// analysis name is inferred by matching the source path against
// existing build records' outputs; nil when no record claims it.
type FileEntry struct {
	PublishedAtUTC string                  `yaml:"published_at_utc"`
	Copied         bool                    `yaml:"copied"`
	Src            string                  `yaml:"src"`
	Dst            string                  `yaml:"dst"`
	DstSHA256      string                  `yaml:"dst_sha256"`
	AnalysisName   *string                 `yaml:"analysis_name"`
	BuildRecord    *provenance.BuildRecord `yaml:"build_record"`
}

// LoadLedger reads the ledger at path. A missing file yields a fresh
// empty ledger at the current schema version.
func LoadLedger(path string) (*Ledger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Ledger{Version: LedgerVersion}, nil
		}
		return nil, fmt.Errorf("reading ledger %s: %w", path, err)
	}

	var ledger Ledger
	if err := yaml.Unmarshal(data, &ledger); err != nil {
		return nil, fmt.Errorf("parsing ledger %s: %w", path, err)
	}
	if ledger.Version == 0 {
		ledger.Version = LedgerVersion
	}
	return &ledger, nil
}

// Save atomically rewrites the ledger at path.
func (l *Ledger) Save(path string) error {
	data, err := yaml.Marshal(l)
	if err != nil {
		return fmt.Errorf("marshaling ledger: %w", err)
	}
	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("persisting ledger: %w", err)
	}
	return nil
}
