// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package report assembles the replication report: a human-readable
// summary of the study, its git state, environment snapshot, and
// per-artifact provenance, for inclusion in a submission package.
// The canonical output is Markdown; HTML is rendered from it.
package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gopkg.in/yaml.v3"

	"github.com/provkit/provkit/lib/clock"
	"github.com/provkit/provkit/lib/digest"
	"github.com/provkit/provkit/lib/gitstate"
	"github.com/provkit/provkit/lib/provenance"
	"github.com/provkit/provkit/lib/study"
	"github.com/provkit/provkit/lib/sysinfo"
)

// Generator builds replication reports for one study.
type Generator struct {
	cfg   *study.Config
	clock clock.Clock
}

func New(cfg *study.Config, c clock.Clock) *Generator {
	return &Generator{cfg: cfg, clock: c}
}

// Markdown renders the full report.
func (g *Generator) Markdown(ctx context.Context) ([]byte, error) {
	state, err := gitstate.Inspect(ctx, g.cfg.RepoRoot)
	if err != nil {
		return nil, err
	}
	records, err := provenance.LoadRecords(g.cfg.ProvenanceDir())
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Replication Package Report\n\n")
	fmt.Fprintf(&b, "**Generated:** %s\n\n---\n\n", provenance.FormatTimestamp(g.clock.Now()))

	g.writeOverview(&b, state)
	g.writeEnvironment(&b)
	g.writeArtifacts(&b, records)
	g.writeProvenance(&b, records)
	g.writeVerification(&b)

	return []byte(b.String()), nil
}

// HTML renders the report as a standalone page.
func (g *Generator) HTML(ctx context.Context) ([]byte, error) {
	source, err := g.Markdown(ctx)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var body bytes.Buffer
	if err := md.Convert(source, &body); err != nil {
		return nil, fmt.Errorf("rendering report: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	page.WriteString("<title>Replication Package Report</title>\n")
	page.WriteString("<style>\nbody { font-family: sans-serif; max-width: 960px; margin: 0 auto; padding: 20px; line-height: 1.6; }\n")
	page.WriteString("table { border-collapse: collapse; }\nth, td { border: 1px solid #ccc; padding: 6px 12px; text-align: left; }\n")
	page.WriteString("code { background: #f4f4f4; padding: 2px 4px; }\n</style>\n</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

func (g *Generator) writeOverview(b *strings.Builder, state gitstate.State) {
	fmt.Fprintf(b, "## Overview\n\n")
	fmt.Fprintf(b, "- **Repository:** %s\n", filepath.Base(g.cfg.RepoRoot))
	if state.IsRepo {
		fmt.Fprintf(b, "- **Git commit:** `%s`\n", state.Commit)
		fmt.Fprintf(b, "- **Git branch:** `%s`\n", state.Branch)
		if state.Dirty {
			fmt.Fprintf(b, "- **Working tree:** dirty (uncommitted changes present)\n")
		} else {
			fmt.Fprintf(b, "- **Working tree:** clean\n")
		}
	} else {
		fmt.Fprintf(b, "- **Git:** not a repository\n")
	}
	fmt.Fprintf(b, "\n")
}

func (g *Generator) writeEnvironment(b *strings.Builder) {
	fmt.Fprintf(b, "## Computational Environment\n\n")

	path := filepath.Join(g.cfg.OutputPath(), sysinfo.DefaultFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(b, "System snapshot not available. Run `provkit sysinfo` first.\n\n")
		return
	}
	var snapshot sysinfo.Snapshot
	if err := yaml.Unmarshal(data, &snapshot); err != nil {
		fmt.Fprintf(b, "System snapshot at `%s` is unreadable: %v\n\n", path, err)
		return
	}
	fmt.Fprintf(b, "- **Operating system:** %s\n", snapshot.System.OS)
	fmt.Fprintf(b, "- **Architecture:** %s\n", snapshot.System.Arch)
	fmt.Fprintf(b, "- **Hostname:** %s\n", snapshot.System.Hostname)
	fmt.Fprintf(b, "- **Go runtime:** %s (%d CPUs)\n", snapshot.System.GoVersion, snapshot.System.NumCPU)
	fmt.Fprintf(b, "- **Captured:** %s\n\n", snapshot.LoggedAtUTC)
}

func (g *Generator) writeArtifacts(b *strings.Builder, records map[string]*provenance.BuildRecord) {
	fmt.Fprintf(b, "## Artifacts\n\n")

	names := g.cfg.AnalysisNames()
	if len(names) == 0 {
		fmt.Fprintf(b, "No analyses declared in the study configuration.\n\n")
		return
	}
	fmt.Fprintf(b, "| Artifact | Script | Figure | Table | Record |\n")
	fmt.Fprintf(b, "|---|---|---|---|---|\n")
	for _, name := range names {
		analysis, err := g.cfg.Analysis(name)
		script := "—"
		if err == nil && analysis.Script != "" {
			script = "`" + analysis.Script + "`"
		}
		fmt.Fprintf(b, "| %s | %s | %s | %s | %s |\n",
			name,
			script,
			fileCell(g.cfg.FigurePath(name)),
			fileCell(g.cfg.TablePath(name)),
			recordCell(records, name),
		)
	}
	fmt.Fprintf(b, "\n")
}

func fileCell(path string) string {
	sum, err := digest.HashFileHex(path)
	if err != nil {
		return "missing"
	}
	return "`" + sum[:12] + "`"
}

func recordCell(records map[string]*provenance.BuildRecord, name string) string {
	record, ok := records[name]
	if !ok {
		return "missing"
	}
	return record.BuiltAtUTC
}

func (g *Generator) writeProvenance(b *strings.Builder, records map[string]*provenance.BuildRecord) {
	fmt.Fprintf(b, "## Provenance\n\n")
	if len(records) == 0 {
		fmt.Fprintf(b, "No build records found. Build the artifacts first.\n\n")
		return
	}

	names := make([]string, 0, len(records))
	for name := range records {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		record := records[name]
		fmt.Fprintf(b, "### %s\n\n", name)
		fmt.Fprintf(b, "- **Built:** %s\n", record.BuiltAtUTC)
		if len(record.Command) > 0 {
			fmt.Fprintf(b, "- **Command:** `%s`\n", strings.Join(record.Command, " "))
		}
		if record.Git.IsRepo {
			fmt.Fprintf(b, "- **Commit:** `%s`", record.Git.Commit)
			if record.Git.Dirty {
				fmt.Fprintf(b, " (dirty tree)")
			}
			fmt.Fprintf(b, "\n")
		} else {
			fmt.Fprintf(b, "- **Commit:** unversioned build\n")
		}
		if len(record.Inputs) > 0 {
			fmt.Fprintf(b, "- **Inputs:**\n")
			for _, in := range record.Inputs {
				fmt.Fprintf(b, "  - `%s` sha256:%s\n", filepath.Base(in.Path), in.SHA256[:12])
			}
		}
		if len(record.Outputs) > 0 {
			fmt.Fprintf(b, "- **Outputs:**\n")
			for _, out := range record.Outputs {
				fmt.Fprintf(b, "  - `%s` sha256:%s\n", filepath.Base(out.Path), out.SHA256[:12])
			}
		}
		fmt.Fprintf(b, "\n")
	}
}

func (g *Generator) writeVerification(b *strings.Builder) {
	fmt.Fprintf(b, "## Verifying This Package\n\n")
	fmt.Fprintf(b, "```\n")
	fmt.Fprintf(b, "provkit audit --strict   # full pre-submission checklist\n")
	fmt.Fprintf(b, "provkit compare          # diff outputs against the published tree\n")
	fmt.Fprintf(b, "sha256sum <file>         # spot-check any digest listed above\n")
	fmt.Fprintf(b, "```\n")
}
