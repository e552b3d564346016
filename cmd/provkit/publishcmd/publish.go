// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package publishcmd implements "provkit publish": copying built
// artifacts or arbitrary output files into the publication tree,
// gated by the publication policy.
package publishcmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/provkit/provkit/cmd/provkit/cli"
	"github.com/provkit/provkit/lib/clock"
	"github.com/provkit/provkit/lib/gitstate"
	"github.com/provkit/provkit/lib/policy"
	"github.com/provkit/provkit/lib/provenance"
	"github.com/provkit/provkit/lib/publish"
	"github.com/provkit/provkit/lib/study"
)

type policyParams struct {
	AllowDirty         bool
	RequireNotBehind   bool
	RequireCurrentHead bool
}

// AddFlags implements cli.FlagBinder so both publish subcommands carry
// the same policy flags. Being behind the upstream rejects by default,
// matching the standalone check command.
func (p *policyParams) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.BoolVar(&p.AllowDirty, "allow-dirty", false,
		"permit publishing from a dirty working tree")
	flagSet.BoolVar(&p.RequireNotBehind, "require-not-behind", true,
		"reject when the branch is behind its upstream")
	flagSet.BoolVar(&p.RequireCurrentHead, "require-current-head", false,
		"reject artifacts not built from the current HEAD")
}

func (p policyParams) flags() policy.Flags {
	return policy.Flags{
		AllowDirty:         p.AllowDirty,
		RequireNotBehind:   p.RequireNotBehind,
		RequireCurrentHead: p.RequireCurrentHead,
	}
}

func Command() *cli.Command {
	return &cli.Command{
		Name:    "publish",
		Summary: "Copy built artifacts into the publication tree",
		Description: `Publish artifacts (by analysis name) or specific files (by path)
into the publication tree, updating its provenance ledger. The
publication policy runs in full before anything is copied; a
violation leaves the destination untouched.`,
		Subcommands: []*cli.Command{
			artifactsCommand(),
			filesCommand(),
		},
	}
}

type artifactsParams struct {
	Study     cli.StudyOptions
	Policy    policyParams
	PaperRoot string `flag:"paper-root" desc:"destination tree (default: the study's paper directory)"`
	Kind      string `flag:"kind" default:"figures" desc:"which artifact half to publish: figures or tables"`
}

func artifactsCommand() *cli.Command {
	var p artifactsParams
	return &cli.Command{
		Name:    "artifacts",
		Summary: "Publish named artifacts' figures or tables",
		Usage:   "provkit publish artifacts [flags] <artifact...>",
		Examples: []cli.Example{
			{Description: "Publish both halves of price_base", Command: "provkit publish artifacts --kind figures price_base && provkit publish artifacts --kind tables price_base"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("publish artifacts", &p)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) == 0 {
				return fmt.Errorf("publish artifacts requires at least one artifact name")
			}
			cfg, err := p.Study.Load()
			if err != nil {
				return err
			}
			state, err := enforce(ctx, cfg, args, p.Policy)
			if err != nil {
				return err
			}

			publisher := publish.NewPublisher(clock.Real())
			summary, err := publisher.PublishArtifacts(ctx, publish.ArtifactsRequest{
				PaperRoot: paperRoot(cfg, p.PaperRoot),
				Kind:      publish.Kind(p.Kind),
				Names:     args,
				Config:    cfg,
				State:     state,
			})
			if err != nil {
				return err
			}
			report(logger, summary)
			return nil
		},
	}
}

type filesParams struct {
	Study     cli.StudyOptions
	Policy    policyParams
	PaperRoot string `flag:"paper-root" desc:"destination tree (default: the study's paper directory)"`
}

func filesCommand() *cli.Command {
	var p filesParams
	return &cli.Command{
		Name:    "files",
		Summary: "Publish specific files from the output tree",
		Usage:   "provkit publish files [flags] <path...>",
		Examples: []cli.Example{
			{Description: "Publish one diagnostic table", Command: "provkit publish files output/diagnostics/residuals.csv"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("publish files", &p)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) == 0 {
				return fmt.Errorf("publish files requires at least one path")
			}
			cfg, err := p.Study.Load()
			if err != nil {
				return err
			}
			// File-level publishes have no artifact names to check;
			// only the repository-level policy applies.
			state, err := enforce(ctx, cfg, nil, p.Policy)
			if err != nil {
				return err
			}

			publisher := publish.NewPublisher(clock.Real())
			summary, err := publisher.PublishFiles(ctx, publish.FilesRequest{
				PaperRoot: paperRoot(cfg, p.PaperRoot),
				Paths:     args,
				Config:    cfg,
				State:     state,
			})
			if err != nil {
				return err
			}
			report(logger, summary)
			return nil
		},
	}
}

// enforce runs the publication policy and returns the inspected git
// state for reuse in the ledger. Policy violations print themselves
// and exit 1 without a redundant error line.
func enforce(ctx context.Context, cfg *study.Config, names []string, p policyParams) (gitstate.State, error) {
	state, err := gitstate.Inspect(ctx, cfg.RepoRoot)
	if err != nil {
		return gitstate.State{}, err
	}
	records, err := provenance.LoadRecords(cfg.ProvenanceDir())
	if err != nil {
		return gitstate.State{}, err
	}
	err = policy.Enforce(state, records, names, p.flags())
	var violation *policy.Violation
	if errors.As(err, &violation) {
		fmt.Fprintln(os.Stderr, violation.Error())
		return gitstate.State{}, &cli.ExitError{Code: 1}
	}
	if err != nil {
		return gitstate.State{}, err
	}
	return state, nil
}

func paperRoot(cfg *study.Config, flag string) string {
	if flag != "" {
		return flag
	}
	return cfg.PaperPath()
}

func report(logger *slog.Logger, summary *publish.Summary) {
	for _, item := range summary.Items {
		if item.Copied {
			logger.Info("published", "name", item.Name, "dest", item.Dest)
		} else {
			logger.Info("up to date", "name", item.Name, "dest", item.Dest)
		}
	}
	logger.Info("ledger updated", "ledger", summary.LedgerPath, "items", len(summary.Items))
}
