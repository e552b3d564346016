// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package auditcmd implements "provkit audit": the pre-submission
// checklist.
package auditcmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/provkit/provkit/cmd/provkit/cli"
	"github.com/provkit/provkit/lib/audit"
)

type params struct {
	Study  cli.StudyOptions
	Strict bool `flag:"strict" desc:"escalate warnings to failures"`
}

func Command() *cli.Command {
	var p params
	return &cli.Command{
		Name:    "audit",
		Summary: "Run the pre-submission checklist",
		Description: `Run every pre-submission check: repository state, artifact
completeness, provenance freshness, output checksums, and
documentation. All checks run regardless of earlier failures; the
command exits 1 when any check fails.`,
		Usage: "provkit audit [flags]",
		Examples: []cli.Example{
			{Description: "Final gate before submission", Command: "provkit audit --strict"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("audit", &p)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("audit takes no arguments, got %q", strings.Join(args, " "))
			}
			cfg, err := p.Study.Load()
			if err != nil {
				return err
			}

			results, ok := audit.New(cfg).Run(ctx, p.Strict)

			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			passed := 0
			for _, r := range results {
				if r.Status == audit.Pass {
					passed++
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", strings.ToUpper(r.Status.String()), r.Name, r.Message)
				if r.Details != "" && r.Status != audit.Pass {
					fmt.Fprintf(tw, "\t\t%s\n", r.Details)
				}
			}
			tw.Flush()
			fmt.Printf("\n%d/%d checks passed\n", passed, len(results))

			if !ok {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}
