// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package publish copies built artifacts into a publication tree and
// maintains the cumulative provenance ledger alongside them. Copies
// are deduplicated by content hash: a destination file that already
// matches the source byte for byte is left untouched and its prior
// publication timestamp is preserved.
package publish

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/provkit/provkit/lib/clock"
	"github.com/provkit/provkit/lib/digest"
	"github.com/provkit/provkit/lib/gitstate"
	"github.com/provkit/provkit/lib/provenance"
	"github.com/provkit/provkit/lib/study"
)

// Kind selects which half of an artifact to publish.
type Kind string

const (
	KindFigures Kind = "figures"
	KindTables  Kind = "tables"
)

func (k Kind) valid() bool {
	return k == KindFigures || k == KindTables
}

// Publisher copies artifacts and files into a publication tree and
// updates its ledger. Callers are expected to run policy checks
// before publishing; the publisher itself only verifies that sources
// and build records exist.
type Publisher struct {
	clock clock.Clock
}

func NewPublisher(c clock.Clock) *Publisher {
	return &Publisher{clock: c}
}

// ArtifactsRequest publishes named artifacts' figures or tables.
type ArtifactsRequest struct {
	// PaperRoot is the destination tree root.
	PaperRoot string

	// Kind selects figures or tables.
	Kind Kind

	// Names are the artifact names to publish. Each must have a build
	// record and a built source file.
	Names []string

	// Config resolves artifact paths within the source study.
	Config *study.Config

	// State is the source repository's git state, inspected by the
	// caller before policy checks ran.
	State gitstate.State
}

// FilesRequest publishes arbitrary output files by path.
type FilesRequest struct {
	// PaperRoot is the destination tree root.
	PaperRoot string

	// Paths are the source files to publish. Relative paths resolve
	// against the study's repository root. Every path must live under
	// the study's output directory; the destination mirrors its
	// position relative to that directory.
	Paths []string

	// Config resolves the output directory and provenance records.
	Config *study.Config

	// State is the source repository's git state.
	State gitstate.State
}

// Item describes one file the publisher handled.
type Item struct {
	// Name is the artifact name (artifact mode) or the
	// destination-relative path (file mode).
	Name string

	// Dest is the absolute destination path.
	Dest string

	// Copied reports whether the destination was rewritten. False
	// means it already matched the source.
	Copied bool
}

// Summary reports what one publish run did.
type Summary struct {
	Items      []Item
	LedgerPath string
}

// PublishArtifacts publishes the figures or tables of the named
// artifacts. Every name is verified to have a build record and a
// built source file before anything is copied, so a failure leaves
// the destination tree and ledger untouched.
func (p *Publisher) PublishArtifacts(ctx context.Context, req ArtifactsRequest) (*Summary, error) {
	if !req.Kind.valid() {
		return nil, fmt.Errorf("unknown artifact kind %q (want %q or %q)", req.Kind, KindFigures, KindTables)
	}
	paperRoot, err := filepath.Abs(req.PaperRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving destination root: %w", err)
	}

	type pending struct {
		name   string
		src    string
		record *provenance.BuildRecord
	}
	queue := make([]pending, 0, len(req.Names))
	for _, name := range req.Names {
		record, err := provenance.LoadRecord(req.Config.ProvenancePath(name))
		if err != nil {
			return nil, err
		}
		var src string
		switch req.Kind {
		case KindFigures:
			src = req.Config.FigurePath(name)
		case KindTables:
			src = req.Config.TablePath(name)
		}
		if _, err := os.Stat(src); err != nil {
			return nil, &provenance.MissingArtifactError{Artifact: name, Path: src}
		}
		queue = append(queue, pending{name: name, src: src, record: record})
	}

	ledgerPath := filepath.Join(paperRoot, LedgerFileName)
	ledger, err := LoadLedger(ledgerPath)
	if err != nil {
		return nil, err
	}
	// Analysis-level mode displaces any file-level history.
	ledger.Files = nil
	if ledger.Artifacts == nil {
		ledger.Artifacts = make(map[string]*ArtifactEntry)
	}

	now := provenance.FormatTimestamp(p.clock.Now())
	summary := &Summary{LedgerPath: ledgerPath}
	for _, item := range queue {
		dst := filepath.Join(paperRoot, string(req.Kind), filepath.Base(item.src))
		copied, err := copyIfChanged(item.src, dst)
		if err != nil {
			return nil, fmt.Errorf("publishing %s: %w", item.name, err)
		}
		sum, err := digest.HashFileHex(dst)
		if err != nil {
			return nil, fmt.Errorf("hashing published %s: %w", dst, err)
		}

		entry := ledger.Artifacts[item.name]
		if entry == nil {
			entry = &ArtifactEntry{}
			ledger.Artifacts[item.name] = entry
		}
		var prior *PublishedFile
		switch req.Kind {
		case KindFigures:
			prior = entry.Figures
		case KindTables:
			prior = entry.Tables
		}
		published := &PublishedFile{
			PublishedAtUTC: now,
			Copied:         copied,
			Src:            item.src,
			Dst:            dst,
			DstSHA256:      sum,
			BuildRecord:    item.record,
		}
		if !copied && prior != nil && prior.PublishedAtUTC != "" {
			// Unchanged content keeps its original publication time.
			published.PublishedAtUTC = prior.PublishedAtUTC
		}
		switch req.Kind {
		case KindFigures:
			entry.Figures = published
		case KindTables:
			entry.Tables = published
		}
		summary.Items = append(summary.Items, Item{Name: item.name, Dest: dst, Copied: copied})
	}

	ledger.AnalysisGit = req.State
	ledger.LastUpdatedUTC = now
	if err := ledger.Save(ledgerPath); err != nil {
		return nil, err
	}
	return summary, nil
}

// PublishFiles publishes arbitrary files from the study's output
// directory, mirroring their output-relative layout under the
// destination root. The owning analysis of each file is inferred from
// existing build records where possible.
func (p *Publisher) PublishFiles(ctx context.Context, req FilesRequest) (*Summary, error) {
	paperRoot, err := filepath.Abs(req.PaperRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving destination root: %w", err)
	}
	outputDir, err := resolvePath(req.Config.OutputPath())
	if err != nil {
		return nil, fmt.Errorf("resolving output directory: %w", err)
	}
	records, err := provenance.LoadRecords(req.Config.ProvenanceDir())
	if err != nil {
		return nil, err
	}

	type pending struct {
		rel      string
		src      string
		analysis *string
		record   *provenance.BuildRecord
	}
	queue := make([]pending, 0, len(req.Paths))
	for _, raw := range req.Paths {
		path := raw
		if !filepath.IsAbs(path) {
			path = filepath.Join(req.Config.RepoRoot, path)
		}
		src, err := resolvePath(path)
		if err != nil {
			return nil, &provenance.MissingArtifactError{Artifact: raw, Path: path}
		}
		if _, err := os.Stat(src); err != nil {
			return nil, &provenance.MissingArtifactError{Artifact: raw, Path: src}
		}
		rel, err := filepath.Rel(outputDir, src)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, fmt.Errorf("%s is outside the output directory %s", src, outputDir)
		}
		item := pending{rel: filepath.ToSlash(rel), src: src}
		item.analysis, item.record = ownerOf(src, records)
		queue = append(queue, item)
	}

	ledgerPath := filepath.Join(paperRoot, LedgerFileName)
	ledger, err := LoadLedger(ledgerPath)
	if err != nil {
		return nil, err
	}
	// File-level mode displaces any analysis-level history.
	ledger.Artifacts = nil
	if ledger.Files == nil {
		ledger.Files = make(map[string]*FileEntry)
	}

	now := provenance.FormatTimestamp(p.clock.Now())
	summary := &Summary{LedgerPath: ledgerPath}
	for _, item := range queue {
		dst := filepath.Join(paperRoot, filepath.FromSlash(item.rel))
		copied, err := copyIfChanged(item.src, dst)
		if err != nil {
			return nil, fmt.Errorf("publishing %s: %w", item.rel, err)
		}
		sum, err := digest.HashFileHex(dst)
		if err != nil {
			return nil, fmt.Errorf("hashing published %s: %w", dst, err)
		}

		prior := ledger.Files[item.rel]
		entry := &FileEntry{
			PublishedAtUTC: now,
			Copied:         copied,
			Src:            item.src,
			Dst:            dst,
			DstSHA256:      sum,
			AnalysisName:   item.analysis,
			BuildRecord:    item.record,
		}
		if !copied && prior != nil && prior.PublishedAtUTC != "" {
			entry.PublishedAtUTC = prior.PublishedAtUTC
		}
		ledger.Files[item.rel] = entry
		summary.Items = append(summary.Items, Item{Name: item.rel, Dest: dst, Copied: copied})
	}

	ledger.AnalysisGit = req.State
	ledger.LastUpdatedUTC = now
	if err := ledger.Save(ledgerPath); err != nil {
		return nil, err
	}
	return summary, nil
}

// ownerOf finds the build record whose outputs include path. Record
// outputs store resolved absolute paths, so path must be resolved the
// same way before calling.
func ownerOf(path string, records map[string]*provenance.BuildRecord) (*string, *provenance.BuildRecord) {
	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, out := range records[name].Outputs {
			if out.Path == path {
				owner := name
				return &owner, records[name]
			}
		}
	}
	return nil, nil
}

// copyIfChanged copies src to dst unless dst already has identical
// content, reporting whether a copy happened. Copies preserve the
// source's mode and modification time.
func copyIfChanged(src, dst string) (bool, error) {
	srcSum, err := digest.HashFile(src)
	if err != nil {
		return false, err
	}
	if dstSum, err := digest.HashFile(dst); err == nil && dstSum == srcSum {
		return false, nil
	}

	info, err := os.Stat(src)
	if err != nil {
		return false, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return false, err
	}
	in, err := os.Open(src)
	if err != nil {
		return false, err
	}
	defer in.Close()
	out, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp-*")
	if err != nil {
		return false, err
	}
	tmp := out.Name()
	ok := false
	defer func() {
		if !ok {
			os.Remove(tmp)
		}
	}()
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return false, err
	}
	if err := out.Close(); err != nil {
		return false, err
	}
	if err := os.Chmod(tmp, info.Mode().Perm()); err != nil {
		return false, err
	}
	if err := os.Rename(tmp, dst); err != nil {
		return false, err
	}
	ok = true
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return false, err
	}
	return true, nil
}

// resolvePath makes path absolute and resolves symlinks, matching how
// build records store their input and output paths.
func resolvePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", err
	}
	return resolved, nil
}
