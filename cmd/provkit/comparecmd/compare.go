// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package comparecmd implements "provkit compare": diffing the
// current output tree against a published reference by digest.
package comparecmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/provkit/provkit/cmd/provkit/cli"
	"github.com/provkit/provkit/lib/compare"
)

type params struct {
	Study      cli.StudyOptions
	Reference  string `flag:"reference" desc:"reference directory (default: the study's paper directory)"`
	FailOnDiff bool   `flag:"fail-on-diff" desc:"exit 1 when any output differs from the reference"`
}

func Command() *cli.Command {
	var p params
	return &cli.Command{
		Name:    "compare",
		Summary: "Compare current outputs against a published tree",
		Description: `Compare each artifact's current figure and table against the copies
in a reference tree, by content digest. With no artifact names,
artifacts are detected from the current figures directory.`,
		Usage: "provkit compare [flags] [artifact...]",
		Examples: []cli.Example{
			{Description: "Verify a rebuild reproduced the published outputs", Command: "provkit compare --fail-on-diff"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("compare", &p)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			cfg, err := p.Study.Load()
			if err != nil {
				return err
			}
			reference := p.Reference
			if reference == "" {
				reference = cfg.PaperPath()
			}

			report, err := compare.Run(cfg, reference, args)
			if err != nil {
				return err
			}

			fmt.Printf("Comparing %s against %s\n\n", report.CurrentDir, report.ReferenceDir)
			tw := tabwriter.NewWriter(os.Stdout, 2, 0, 3, ' ', 0)
			for _, artifact := range report.Artifacts {
				for _, file := range []compare.File{artifact.Figure, artifact.Table} {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", artifact.Name, file.Name, file.Status)
					if file.Status == compare.Different {
						fmt.Fprintf(tw, "\t  current\t%.12s\n", file.CurrentSHA256)
						fmt.Fprintf(tw, "\t  reference\t%.12s\n", file.ReferenceSHA256)
					}
				}
			}
			tw.Flush()

			if report.AllIdentical() {
				fmt.Println("\nAll outputs identical to reference")
				return nil
			}
			fmt.Println("\nSome outputs differ from reference")
			if p.FailOnDiff {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}
