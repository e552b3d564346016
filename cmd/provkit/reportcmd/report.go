// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package reportcmd implements "provkit report": generating the
// replication report.
package reportcmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/provkit/provkit/cmd/provkit/cli"
	"github.com/provkit/provkit/lib/atomicfile"
	"github.com/provkit/provkit/lib/clock"
	"github.com/provkit/provkit/lib/report"
)

type params struct {
	Study  cli.StudyOptions
	HTML   bool   `flag:"html" desc:"render the report as standalone HTML"`
	Output string `flag:"output,o" desc:"write to this file instead of stdout"`
}

func Command() *cli.Command {
	var p params
	return &cli.Command{
		Name:    "report",
		Summary: "Generate the replication report",
		Description: `Generate a replication report covering the study's git state,
environment snapshot, artifacts, and per-artifact provenance. The
canonical format is Markdown; --html renders a standalone page.`,
		Usage: "provkit report [flags]",
		Examples: []cli.Example{
			{Description: "Write the HTML report for reviewers", Command: "provkit report --html -o replication_report.html"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("report", &p)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			cfg, err := p.Study.Load()
			if err != nil {
				return err
			}
			generator := report.New(cfg, clock.Real())

			var rendered []byte
			if p.HTML {
				rendered, err = generator.HTML(ctx)
			} else {
				rendered, err = generator.Markdown(ctx)
			}
			if err != nil {
				return err
			}

			if p.Output == "" {
				_, err = os.Stdout.Write(rendered)
				return err
			}
			if err := atomicfile.WriteFile(p.Output, rendered, 0o644); err != nil {
				return err
			}
			logger.Info("report written", "path", p.Output, "bytes", len(rendered))
			return nil
		},
	}
}
