// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package record implements "provkit record": writing the build
// record for one analysis after its build script has produced the
// outputs.
package record

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/provkit/provkit/cmd/provkit/cli"
	"github.com/provkit/provkit/lib/clock"
	"github.com/provkit/provkit/lib/provenance"
)

type params struct {
	Study   cli.StudyOptions
	Command []string `flag:"command" desc:"build command to document (default: make <analysis>)"`
}

func Command() *cli.Command {
	var p params
	return &cli.Command{
		Name:    "record",
		Summary: "Write the build record for an analysis",
		Description: `Record provenance for one analysis: hash its declared inputs and
conventional outputs, capture the repository's git state, and write
the build record under the output tree. The analysis must already be
built; missing files fail loudly.`,
		Usage: "provkit record [flags] <analysis>",
		Examples: []cli.Example{
			{Description: "Record after building price_base", Command: "provkit record price_base"},
			{Description: "Document a custom build command", Command: "provkit record --command python,src/price_base.py price_base"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("record", &p)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("record takes exactly one analysis name, got %d arguments", len(args))
			}
			name := args[0]

			cfg, err := p.Study.Load()
			if err != nil {
				return err
			}
			if _, err := cfg.Analysis(name); err != nil {
				return err
			}
			inputs, err := cfg.InputPaths(name)
			if err != nil {
				return err
			}

			command := p.Command
			if len(command) == 0 {
				command = []string{"make", name}
			}

			writer := provenance.NewWriter(clock.Real())
			record, err := writer.Write(ctx, provenance.RecordSpec{
				Artifact: name,
				Command:  command,
				RepoRoot: cfg.RepoRoot,
				Inputs:   inputs,
				Outputs:  []string{cfg.FigurePath(name), cfg.TablePath(name)},
				DestPath: cfg.ProvenancePath(name),
			})
			if err != nil {
				return err
			}

			logger.Info("build record written",
				"artifact", name,
				"record", cfg.ProvenancePath(name),
				"inputs", len(record.Inputs),
				"outputs", len(record.Outputs),
			)
			return nil
		},
	}
}
