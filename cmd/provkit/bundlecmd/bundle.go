// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package bundlecmd implements "provkit bundle": building the
// submission tar.gz.
package bundlecmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/provkit/provkit/cmd/provkit/cli"
	"github.com/provkit/provkit/lib/bundle"
	"github.com/provkit/provkit/lib/clock"
)

type params struct {
	Study  cli.StudyOptions
	Output string `flag:"output,o" default:"submission.tar.gz" desc:"bundle destination path"`
}

func Command() *cli.Command {
	var p params
	return &cli.Command{
		Name:    "bundle",
		Summary: "Build the submission bundle",
		Description: `Pack the output tree, provenance records, publication ledger,
documentation, and a freshly generated replication report into a
tar.gz fronted by a digest manifest.`,
		Usage: "provkit bundle [flags]",
		Examples: []cli.Example{
			{Description: "Build the journal package", Command: "provkit bundle -o journal-package.tar.gz"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("bundle", &p)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("bundle takes no arguments")
			}
			cfg, err := p.Study.Load()
			if err != nil {
				return err
			}
			manifest, err := bundle.New(cfg, clock.Real()).Build(ctx, p.Output)
			if err != nil {
				return err
			}
			logger.Info("bundle written", "path", p.Output, "files", len(manifest.Entries))
			return nil
		},
	}
}
