// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package bundle assembles the submission package: a tar.gz of the
// output tree, provenance records, publication ledger, documentation,
// and a freshly generated replication report, fronted by a digest
// manifest. Entries are written in sorted path order so two bundles
// of the same tree list their contents identically.
package bundle

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/gzip"
	"gopkg.in/yaml.v3"

	"github.com/provkit/provkit/lib/clock"
	"github.com/provkit/provkit/lib/digest"
	"github.com/provkit/provkit/lib/gitstate"
	"github.com/provkit/provkit/lib/provenance"
	"github.com/provkit/provkit/lib/publish"
	"github.com/provkit/provkit/lib/report"
	"github.com/provkit/provkit/lib/study"
)

// ManifestName is the manifest's path inside the bundle. It is
// always the first entry.
const ManifestName = "MANIFEST.yml"

// ReportName is the generated report's path inside the bundle.
const ReportName = "replication_report.md"

// Entry is one manifest line.
type Entry struct {
	Path   string `yaml:"path"`
	SHA256 string `yaml:"sha256"`
	Bytes  int64  `yaml:"bytes"`
}

// Manifest lists every file in the bundle with its digest.
type Manifest struct {
	CreatedAtUTC string         `yaml:"created_at_utc"`
	Git          gitstate.State `yaml:"git"`
	Entries      []Entry        `yaml:"entries"`
}

// Builder produces submission bundles for one study.
type Builder struct {
	cfg   *study.Config
	clock clock.Clock
}

func New(cfg *study.Config, c clock.Clock) *Builder {
	return &Builder{cfg: cfg, clock: c}
}

// Build writes the bundle to destPath and returns its manifest. The
// output tree must exist; everything else is included when present.
func (b *Builder) Build(ctx context.Context, destPath string) (*Manifest, error) {
	outputDir := b.cfg.OutputPath()
	if _, err := os.Stat(outputDir); err != nil {
		return nil, fmt.Errorf("output directory %s not found, build the artifacts first", outputDir)
	}
	state, err := gitstate.Inspect(ctx, b.cfg.RepoRoot)
	if err != nil {
		return nil, err
	}

	type source struct {
		name string // archive-relative slash path
		path string // on disk; empty for generated content
		data []byte
	}
	var sources []source

	err = filepath.WalkDir(outputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(outputDir, path)
		if err != nil {
			return err
		}
		sources = append(sources, source{
			name: "output/" + filepath.ToSlash(rel),
			path: path,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking output tree: %w", err)
	}

	for _, name := range []string{study.DefaultFileName, "README.md", "DATA_AVAILABILITY.md", "CITATION.cff"} {
		path := filepath.Join(b.cfg.RepoRoot, name)
		if _, err := os.Stat(path); err == nil {
			sources = append(sources, source{name: name, path: path})
		}
	}
	ledgerPath := filepath.Join(b.cfg.PaperPath(), publish.LedgerFileName)
	if _, err := os.Stat(ledgerPath); err == nil {
		sources = append(sources, source{name: "paper/" + publish.LedgerFileName, path: ledgerPath})
	}

	reportSource, err := report.New(b.cfg, b.clock).Markdown(ctx)
	if err != nil {
		return nil, fmt.Errorf("generating report for bundle: %w", err)
	}
	sources = append(sources, source{name: ReportName, data: reportSource})

	sort.Slice(sources, func(i, j int) bool { return sources[i].name < sources[j].name })

	manifest := &Manifest{
		CreatedAtUTC: provenance.FormatTimestamp(b.clock.Now()),
		Git:          state,
	}
	for _, s := range sources {
		entry := Entry{Path: s.name}
		if s.path != "" {
			sum, err := digest.HashFileHex(s.path)
			if err != nil {
				return nil, fmt.Errorf("hashing %s: %w", s.path, err)
			}
			info, err := os.Stat(s.path)
			if err != nil {
				return nil, err
			}
			entry.SHA256 = sum
			entry.Bytes = info.Size()
		} else {
			sum := sha256.Sum256(s.data)
			entry.SHA256 = hex.EncodeToString(sum[:])
			entry.Bytes = int64(len(s.data))
		}
		manifest.Entries = append(manifest.Entries, entry)
	}
	manifestData, err := yaml.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(destPath), filepath.Base(destPath)+".tmp-*")
	if err != nil {
		return nil, err
	}
	ok := false
	defer func() {
		if !ok {
			os.Remove(tmp.Name())
		}
	}()

	gz := gzip.NewWriter(tmp)
	tw := tar.NewWriter(gz)

	writeBytes := func(name string, data []byte) error {
		header := &tar.Header{
			Name:    name,
			Mode:    0o644,
			Size:    int64(len(data)),
			ModTime: b.clock.Now(),
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		_, err := tw.Write(data)
		return err
	}

	if err := writeBytes(ManifestName, manifestData); err != nil {
		tw.Close()
		gz.Close()
		tmp.Close()
		return nil, fmt.Errorf("writing manifest: %w", err)
	}
	for _, s := range sources {
		data := s.data
		if s.path != "" {
			data, err = os.ReadFile(s.path)
			if err != nil {
				tw.Close()
				gz.Close()
				tmp.Close()
				return nil, err
			}
		}
		if err := writeBytes(s.name, data); err != nil {
			tw.Close()
			gz.Close()
			tmp.Close()
			return nil, fmt.Errorf("writing %s: %w", s.name, err)
		}
	}

	if err := tw.Close(); err != nil {
		gz.Close()
		tmp.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp.Name(), destPath); err != nil {
		return nil, err
	}
	ok = true
	return manifest, nil
}

// ReadManifest extracts just the manifest from an existing bundle.
func ReadManifest(path string) (*Manifest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("reading bundle %s: %w", path, err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading bundle %s: %w", path, err)
		}
		if header.Name != ManifestName {
			continue
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil {
			return nil, err
		}
		var manifest Manifest
		if err := yaml.Unmarshal(buf.Bytes(), &manifest); err != nil {
			return nil, fmt.Errorf("parsing manifest in %s: %w", path, err)
		}
		return &manifest, nil
	}
	return nil, fmt.Errorf("bundle %s has no %s", path, ManifestName)
}
