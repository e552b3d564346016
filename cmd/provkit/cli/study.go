// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/provkit/provkit/lib/study"
)

// StudyOptions are the flags shared by every command that operates
// on a study: where the repository is, which config file to read,
// and the directory overrides layered on top of it. Embed it in a
// command's parameter struct; [BindFlags] calls AddFlags.
type StudyOptions struct {
	RepoRoot   string
	ConfigPath string
	DataDir    string
	OutputDir  string
	PaperDir   string
}

// AddFlags implements [FlagBinder].
func (o *StudyOptions) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&o.RepoRoot, "repo-root", "", "analysis repository root (default: current directory)")
	flagSet.StringVar(&o.ConfigPath, "study", "", "study configuration file (default: <repo-root>/"+study.DefaultFileName+")")
	flagSet.StringVar(&o.DataDir, "data-dir", "", "override the study's data directory")
	flagSet.StringVar(&o.OutputDir, "output-dir", "", "override the study's output directory")
	flagSet.StringVar(&o.PaperDir, "paper-dir", "", "override the study's publication directory")
}

// Load resolves the repository root and loads the layered study
// configuration: defaults, then the config file, then these flags.
func (o *StudyOptions) Load() (*study.Config, error) {
	root := o.RepoRoot
	if root == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		root = cwd
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return study.Load(root, o.ConfigPath, study.Overrides{
		DataDir:   o.DataDir,
		OutputDir: o.OutputDir,
		PaperDir:  o.PaperDir,
	})
}
