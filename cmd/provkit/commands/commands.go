// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete provkit command tree.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/provkit/provkit/cmd/provkit/auditcmd"
	"github.com/provkit/provkit/cmd/provkit/bundlecmd"
	"github.com/provkit/provkit/cmd/provkit/check"
	"github.com/provkit/provkit/cmd/provkit/cli"
	"github.com/provkit/provkit/cmd/provkit/comparecmd"
	"github.com/provkit/provkit/cmd/provkit/publishcmd"
	"github.com/provkit/provkit/cmd/provkit/record"
	"github.com/provkit/provkit/cmd/provkit/reportcmd"
	"github.com/provkit/provkit/cmd/provkit/sysinfocmd"
	"github.com/provkit/provkit/lib/version"
)

// Root builds and returns the complete provkit command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name: "provkit",
		Description: `provkit: provenance and publication integrity for research outputs.

Record how artifacts were built, enforce publication policy, and
maintain a verifiable ledger of everything copied into the paper.`,
		Subcommands: []*cli.Command{
			record.Command(),
			check.Command(),
			publishcmd.Command(),
			auditcmd.Command(),
			comparecmd.Command(),
			reportcmd.Command(),
			bundlecmd.Command(),
			sysinfocmd.Command(),
			cleanCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					fmt.Printf("provkit %s\n", version.Full())
					return nil
				},
			},
		},
	}
}

// cleanCommand removes the output tree. This is the only destructive
// command, so it refuses to touch anything outside the study's
// output directory.
func cleanCommand() *cli.Command {
	var opts cli.StudyOptions
	return &cli.Command{
		Name:    "clean",
		Summary: "Remove the output tree",
		Usage:   "provkit clean [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("clean", pflag.ContinueOnError)
			opts.AddFlags(flagSet)
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("clean takes no arguments")
			}
			cfg, err := opts.Load()
			if err != nil {
				return err
			}
			outputDir := cfg.OutputPath()
			if _, err := os.Stat(outputDir); err != nil {
				logger.Info("nothing to clean", "dir", outputDir)
				return nil
			}
			if err := os.RemoveAll(outputDir); err != nil {
				return fmt.Errorf("removing %s: %w", outputDir, err)
			}
			logger.Info("output tree removed", "dir", outputDir)
			return nil
		},
	}
}
