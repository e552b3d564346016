// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package sysinfocmd implements "provkit sysinfo": capturing the
// environment snapshot.
package sysinfocmd

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/provkit/provkit/cmd/provkit/cli"
	"github.com/provkit/provkit/lib/clock"
	"github.com/provkit/provkit/lib/sysinfo"
)

type params struct {
	Study  cli.StudyOptions
	Output string `flag:"output,o" desc:"snapshot path (default: <output-dir>/system_info.yml)"`
}

func Command() *cli.Command {
	var p params
	return &cli.Command{
		Name:    "sysinfo",
		Summary: "Record the computational environment",
		Description: `Capture the host, Go runtime, and repository git state into a YAML
snapshot under the output tree, for inclusion in the replication
report and submission bundle.`,
		Usage: "provkit sysinfo [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("sysinfo", &p)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 0 {
				return fmt.Errorf("sysinfo takes no arguments")
			}
			cfg, err := p.Study.Load()
			if err != nil {
				return err
			}
			snapshot, err := sysinfo.Collect(ctx, clock.Real(), cfg.RepoRoot)
			if err != nil {
				return err
			}
			path := p.Output
			if path == "" {
				path = filepath.Join(cfg.OutputPath(), sysinfo.DefaultFileName)
			}
			if err := snapshot.Write(path); err != nil {
				return err
			}
			logger.Info("environment snapshot written", "path", path, "host", snapshot.System.Hostname)
			return nil
		},
	}
}
