// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package check implements "provkit check": the publication policy
// as a standalone command, for Makefiles and CI gates that want the
// verdict without publishing anything.
package check

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/provkit/provkit/cmd/provkit/cli"
	"github.com/provkit/provkit/lib/policy"
)

type params struct {
	Study              cli.StudyOptions
	AllowDirty         bool `flag:"allow-dirty" desc:"permit publishing from a dirty working tree"`
	RequireNotBehind   bool `flag:"require-not-behind" default:"true" desc:"reject when the branch is behind its upstream"`
	RequireCurrentHead bool `flag:"require-current-head" desc:"reject artifacts not built from the current HEAD"`
}

func Command() *cli.Command {
	var p params
	return &cli.Command{
		Name:    "check",
		Summary: "Run the publication policy without publishing",
		Description: `Check the repository and the named artifacts against the publication
policy. With no names, only the repository-level checks run. Exits 1
on a violation after printing every problem and its remedy.`,
		Usage: "provkit check [flags] [artifact...]",
		Examples: []cli.Example{
			{Description: "Gate a CI publish step", Command: "provkit check --require-current-head price_base remodel_base"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("check", &p)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			cfg, err := p.Study.Load()
			if err != nil {
				return err
			}
			flags := policy.Flags{
				AllowDirty:         p.AllowDirty,
				RequireNotBehind:   p.RequireNotBehind,
				RequireCurrentHead: p.RequireCurrentHead,
			}
			err = policy.Check(ctx, cfg.RepoRoot, cfg.ProvenanceDir(), args, flags)
			var violation *policy.Violation
			if errors.As(err, &violation) {
				fmt.Fprintln(os.Stderr, violation.Error())
				return &cli.ExitError{Code: 1}
			}
			if err != nil {
				return err
			}
			logger.Info("publication policy satisfied", "artifacts", len(args))
			return nil
		},
	}
}
