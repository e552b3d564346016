// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

package provenance

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/provkit/provkit/lib/clock"
)

var testInstant = time.Date(2026, 3, 14, 9, 26, 53, 987654321, time.UTC)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", name, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

// buildSpec returns a RecordSpec with one input and two outputs, all
// existing, rooted in a plain (unversioned) directory.
func buildSpec(t *testing.T) RecordSpec {
	t.Helper()
	dir := t.TempDir()
	return RecordSpec{
		Artifact: "price_base",
		Command:  []string{"make", "price_base"},
		RepoRoot: dir,
		Inputs:   []string{writeFile(t, dir, "data/housing_panel.csv", "id,price\n1,100\n")},
		Outputs: []string{
			writeFile(t, dir, "output/figures/price_base.pdf", "%PDF-fake"),
			writeFile(t, dir, "output/tables/price_base.tex", "\\begin{table}\\end{table}"),
		},
		DestPath: filepath.Join(dir, "output", "provenance", "price_base.yml"),
	}
}

func TestWriter_WriteAndLoad(t *testing.T) {
	t.Parallel()

	spec := buildSpec(t)
	writer := NewWriter(clock.NewFake(testInstant))

	written, err := writer.Write(context.Background(), spec)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	if written.BuiltAtUTC != "2026-03-14T09:26:53Z" {
		t.Errorf("BuiltAtUTC = %q, want second-precision UTC", written.BuiltAtUTC)
	}

	loaded, err := LoadRecord(spec.DestPath)
	if err != nil {
		t.Fatalf("LoadRecord: %v", err)
	}
	if loaded.Artifact != "price_base" {
		t.Errorf("Artifact = %q", loaded.Artifact)
	}
	if len(loaded.Command) != 2 || loaded.Command[0] != "make" {
		t.Errorf("Command = %v", loaded.Command)
	}
	if len(loaded.Inputs) != 1 || len(loaded.Outputs) != 2 {
		t.Fatalf("Inputs/Outputs = %d/%d, want 1/2", len(loaded.Inputs), len(loaded.Outputs))
	}
	if loaded.Git.IsRepo {
		t.Error("Git.IsRepo = true for an unversioned root")
	}
	for _, record := range append(loaded.Inputs, loaded.Outputs...) {
		if len(record.SHA256) != 64 {
			t.Errorf("record %s has digest %q", record.Path, record.SHA256)
		}
		if !filepath.IsAbs(record.Path) {
			t.Errorf("record path %q not absolute", record.Path)
		}
	}
}

func TestWriter_MissingOutputFailsLoudly(t *testing.T) {
	t.Parallel()

	spec := buildSpec(t)
	missing := filepath.Join(spec.RepoRoot, "output", "tables", "never_built.tex")
	spec.Outputs = append(spec.Outputs, missing)

	writer := NewWriter(clock.NewFake(testInstant))
	_, err := writer.Write(context.Background(), spec)

	var missingErr *MissingArtifactError
	if !errors.As(err, &missingErr) {
		t.Fatalf("err = %v, want MissingArtifactError", err)
	}
	if missingErr.Path != missing {
		t.Errorf("error names %q, want %q", missingErr.Path, missing)
	}
	if _, statErr := os.Stat(spec.DestPath); !os.IsNotExist(statErr) {
		t.Error("record was created despite missing output")
	}
}

func TestWriter_RebuildOverwritesRecord(t *testing.T) {
	t.Parallel()

	spec := buildSpec(t)
	fake := clock.NewFake(testInstant)
	writer := NewWriter(fake)

	if _, err := writer.Write(context.Background(), spec); err != nil {
		t.Fatalf("first Write: %v", err)
	}
	first, err := os.ReadFile(spec.DestPath)
	if err != nil {
		t.Fatalf("read first record: %v", err)
	}

	fake.Advance(90 * time.Second)
	if _, err := writer.Write(context.Background(), spec); err != nil {
		t.Fatalf("second Write: %v", err)
	}
	second, err := os.ReadFile(spec.DestPath)
	if err != nil {
		t.Fatalf("read second record: %v", err)
	}

	// Same inputs, outputs, and repo state: the records differ only
	// in the built_at_utc line.
	firstLines := strings.Split(string(first), "\n")
	secondLines := strings.Split(string(second), "\n")
	if len(firstLines) != len(secondLines) {
		t.Fatalf("record shape changed on rebuild: %d vs %d lines", len(firstLines), len(secondLines))
	}
	var changed []string
	for i := range firstLines {
		if firstLines[i] != secondLines[i] {
			changed = append(changed, firstLines[i])
		}
	}
	if len(changed) != 1 || !strings.HasPrefix(changed[0], "built_at_utc:") {
		t.Errorf("unexpected changed lines on rebuild: %v", changed)
	}
}

func TestLoadRecord_Missing(t *testing.T) {
	t.Parallel()

	_, err := LoadRecord(filepath.Join(t.TempDir(), "price_base.yml"))
	var missingErr *MissingArtifactError
	if !errors.As(err, &missingErr) {
		t.Fatalf("err = %v, want MissingArtifactError", err)
	}
	if missingErr.Artifact != "price_base" {
		t.Errorf("Artifact = %q, want price_base", missingErr.Artifact)
	}
	if !strings.Contains(err.Error(), "build it first") {
		t.Errorf("error %q lacks remediation hint", err.Error())
	}
}

func TestLoadRecords(t *testing.T) {
	t.Parallel()

	spec := buildSpec(t)
	writer := NewWriter(clock.NewFake(testInstant))
	if _, err := writer.Write(context.Background(), spec); err != nil {
		t.Fatalf("Write: %v", err)
	}

	dir := filepath.Dir(spec.DestPath)
	records, err := LoadRecords(dir)
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if _, ok := records["price_base"]; !ok {
		t.Errorf("records keyed %v, want price_base", records)
	}
}

func TestLoadRecords_MissingDirIsEmpty(t *testing.T) {
	t.Parallel()

	records, err := LoadRecords(filepath.Join(t.TempDir(), "provenance"))
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records from a missing directory", len(records))
	}
}
