// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/provkit/provkit/lib/clock"
	"github.com/provkit/provkit/lib/provenance"
	"github.com/provkit/provkit/lib/study"
	"github.com/provkit/provkit/lib/sysinfo"
)

var testInstant = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func fixture(t *testing.T) *study.Config {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfg := study.Default(root)
	cfg.Analyses = map[string]study.Analysis{
		"price_base": {Script: "src/price_base.py", Inputs: []string{"data/prices.csv"}},
	}

	writeFile(t, cfg.FigurePath("price_base"), "figure bytes")
	writeFile(t, cfg.TablePath("price_base"), "table bytes")

	writer := provenance.NewWriter(clock.NewFake(testInstant))
	if _, err := writer.Write(context.Background(), provenance.RecordSpec{
		Artifact: "price_base",
		Command:  []string{"python", "src/price_base.py"},
		RepoRoot: root,
		Outputs:  []string{cfg.FigurePath("price_base"), cfg.TablePath("price_base")},
		DestPath: cfg.ProvenancePath("price_base"),
	}); err != nil {
		t.Fatal(err)
	}

	snapshot, err := sysinfo.Collect(context.Background(), clock.NewFake(testInstant), root)
	if err != nil {
		t.Fatal(err)
	}
	if err := snapshot.Write(filepath.Join(cfg.OutputPath(), sysinfo.DefaultFileName)); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestMarkdownSections(t *testing.T) {
	t.Parallel()
	cfg := fixture(t)

	out, err := New(cfg, clock.NewFake(testInstant)).Markdown(context.Background())
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	text := string(out)

	for _, want := range []string{
		"# Replication Package Report",
		"**Generated:** 2026-03-14T09:26:53Z",
		"## Overview",
		"not a repository",
		"## Computational Environment",
		"## Artifacts",
		"| price_base | `src/price_base.py` |",
		"## Provenance",
		"### price_base",
		"- **Built:** 2026-03-14T09:26:53Z",
		"`python src/price_base.py`",
		"## Verifying This Package",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestMarkdownWithoutSnapshotOrRecords(t *testing.T) {
	t.Parallel()
	cfg := study.Default(t.TempDir())

	out, err := New(cfg, clock.NewFake(testInstant)).Markdown(context.Background())
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	text := string(out)
	if !strings.Contains(text, "System snapshot not available") {
		t.Error("missing snapshot notice absent")
	}
	if !strings.Contains(text, "No build records found") {
		t.Error("missing records notice absent")
	}
}

func TestHTMLRendersTable(t *testing.T) {
	t.Parallel()
	cfg := fixture(t)

	out, err := New(cfg, clock.NewFake(testInstant)).HTML(context.Background())
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	html := string(out)
	if !strings.Contains(html, "<!DOCTYPE html>") {
		t.Error("not a standalone page")
	}
	if !strings.Contains(html, "<table>") || !strings.Contains(html, "<th>Artifact</th>") {
		t.Error("artifact table not rendered as HTML")
	}
	if !strings.Contains(html, "Replication Package Report") {
		t.Error("title missing")
	}
}
