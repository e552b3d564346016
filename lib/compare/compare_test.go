// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

package compare

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/provkit/provkit/lib/study"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// fixture builds a study with two built artifacts and a reference
// tree that matches price_base but diverges on remodel_base's table.
func fixture(t *testing.T) *study.Config {
	t.Helper()
	cfg := study.Default(t.TempDir())

	writeFile(t, cfg.FigurePath("price_base"), "price figure")
	writeFile(t, cfg.TablePath("price_base"), "price table")
	writeFile(t, cfg.FigurePath("remodel_base"), "remodel figure")
	writeFile(t, cfg.TablePath("remodel_base"), "remodel table v2")

	paper := cfg.PaperPath()
	writeFile(t, filepath.Join(paper, "figures", "price_base.pdf"), "price figure")
	writeFile(t, filepath.Join(paper, "tables", "price_base.tex"), "price table")
	writeFile(t, filepath.Join(paper, "figures", "remodel_base.pdf"), "remodel figure")
	writeFile(t, filepath.Join(paper, "tables", "remodel_base.tex"), "remodel table v1")

	return cfg
}

func artifactByName(t *testing.T, report *Report, name string) Artifact {
	t.Helper()
	for _, a := range report.Artifacts {
		if a.Name == name {
			return a
		}
	}
	t.Fatalf("artifact %q not in report", name)
	return Artifact{}
}

func TestRunDetectsArtifactsAndStatuses(t *testing.T) {
	t.Parallel()
	cfg := fixture(t)

	report, err := Run(cfg, cfg.PaperDir, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Artifacts) != 2 {
		t.Fatalf("detected %d artifacts, want 2", len(report.Artifacts))
	}

	price := artifactByName(t, report, "price_base")
	if price.Figure.Status != Identical || price.Table.Status != Identical {
		t.Errorf("price_base statuses = %s/%s, want identical/identical",
			price.Figure.Status, price.Table.Status)
	}

	remodel := artifactByName(t, report, "remodel_base")
	if remodel.Figure.Status != Identical {
		t.Errorf("remodel_base figure status = %s", remodel.Figure.Status)
	}
	if remodel.Table.Status != Different {
		t.Errorf("remodel_base table status = %s, want different", remodel.Table.Status)
	}
	if remodel.Table.CurrentSHA256 == remodel.Table.ReferenceSHA256 {
		t.Error("differing table reports equal digests")
	}
	if report.AllIdentical() {
		t.Error("AllIdentical with a diverged table")
	}
}

func TestRunWithExplicitNames(t *testing.T) {
	t.Parallel()
	cfg := fixture(t)

	report, err := Run(cfg, cfg.PaperDir, []string{"price_base"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Artifacts) != 1 || report.Artifacts[0].Name != "price_base" {
		t.Fatalf("got %+v, want just price_base", report.Artifacts)
	}
	if !report.AllIdentical() {
		t.Error("price_base should be identical on both sides")
	}
}

func TestMissingSidesReported(t *testing.T) {
	t.Parallel()
	cfg := fixture(t)
	if err := os.Remove(cfg.FigurePath("price_base")); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(cfg.PaperPath(), "tables", "remodel_base.tex")); err != nil {
		t.Fatal(err)
	}

	report, err := Run(cfg, cfg.PaperDir, []string{"price_base", "remodel_base"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s := artifactByName(t, report, "price_base").Figure.Status; s != MissingCurrent {
		t.Errorf("removed current figure status = %s, want %s", s, MissingCurrent)
	}
	if s := artifactByName(t, report, "remodel_base").Table.Status; s != MissingReference {
		t.Errorf("removed reference table status = %s, want %s", s, MissingReference)
	}
	if report.AllIdentical() {
		t.Error("missing files must not count as identical")
	}
}

func TestRunErrorsWithoutOutputTree(t *testing.T) {
	t.Parallel()
	cfg := study.Default(t.TempDir())
	writeFile(t, filepath.Join(cfg.PaperPath(), "figures", "x.pdf"), "x")

	_, err := Run(cfg, cfg.PaperDir, nil)
	if err == nil || !strings.Contains(err.Error(), "build the artifacts first") {
		t.Fatalf("got %v, want missing-output error", err)
	}
}
