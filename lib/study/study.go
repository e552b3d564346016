// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package study loads the study configuration: where data, outputs,
// and the paper tree live, and the registry of analyses (each a named
// run producing a figure/table pair plus a provenance record).
//
// Configuration is layered in a fixed, documented order: compiled
// defaults, then the study file, then explicit command-line overrides.
// Each layer only replaces fields it sets. Unknown keys in the study
// file are rejected at the decode boundary rather than silently
// merged — a typo in study.yaml is an error, not a no-op.
package study

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the study file looked for at the repository root
// when no --study flag is given.
const DefaultFileName = "study.yaml"

// Config is the resolved study configuration. Directory fields are
// relative to RepoRoot unless absolute; use the path accessors rather
// than joining by hand.
type Config struct {
	// RepoRoot is the analysis repository root. Set by the loader,
	// never from the file.
	RepoRoot string `yaml:"-"`

	// DataDir holds input datasets.
	DataDir string `yaml:"data_dir"`

	// OutputDir holds built figures, tables, and provenance records.
	OutputDir string `yaml:"output_dir"`

	// PaperDir is the default publication destination tree.
	PaperDir string `yaml:"paper_dir"`

	// Analyses registers each analysis by name.
	Analyses map[string]Analysis `yaml:"analyses"`
}

// Analysis is one registered run. Output paths default to the
// conventional layout under OutputDir and are rarely overridden.
type Analysis struct {
	// Script is the build script for documentation and report output.
	// provkit does not execute it.
	Script string `yaml:"script,omitempty"`

	// Inputs are the dataset paths this analysis reads, relative to
	// RepoRoot unless absolute.
	Inputs []string `yaml:"inputs"`

	// Figure, Table, and Provenance override the conventional output
	// locations ({output_dir}/figures/{name}.pdf and so on).
	Figure     string `yaml:"figure,omitempty"`
	Table      string `yaml:"table,omitempty"`
	Provenance string `yaml:"provenance,omitempty"`
}

// Overrides are the command-line layer: any non-empty field replaces
// the corresponding Config field. Applied last, after defaults and the
// study file.
type Overrides struct {
	DataDir   string
	OutputDir string
	PaperDir  string
}

// Default returns the compiled-in base configuration: conventional
// directory names and no analyses.
func Default(repoRoot string) *Config {
	return &Config{
		RepoRoot:  repoRoot,
		DataDir:   "data",
		OutputDir: "output",
		PaperDir:  "paper",
		Analyses:  map[string]Analysis{},
	}
}

// Load resolves the full three-layer configuration: defaults, then the
// study file at configPath (required unless empty, in which case
// {repoRoot}/study.yaml is used when present and skipped when absent),
// then overrides.
func Load(repoRoot, configPath string, overrides Overrides) (*Config, error) {
	cfg := Default(repoRoot)

	required := configPath != ""
	if configPath == "" {
		configPath = filepath.Join(repoRoot, DefaultFileName)
	}
	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := cfg.merge(data); err != nil {
			return nil, fmt.Errorf("study file %s: %w", configPath, err)
		}
	case os.IsNotExist(err) && !required:
		// No study file: defaults plus overrides.
	default:
		return nil, fmt.Errorf("reading study file %s: %w", configPath, err)
	}

	cfg.apply(overrides)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// merge decodes one YAML layer over the current config. Unknown keys
// are rejected.
func (c *Config) merge(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// apply layers command-line overrides over the current config.
func (c *Config) apply(overrides Overrides) {
	if overrides.DataDir != "" {
		c.DataDir = overrides.DataDir
	}
	if overrides.OutputDir != "" {
		c.OutputDir = overrides.OutputDir
	}
	if overrides.PaperDir != "" {
		c.PaperDir = overrides.PaperDir
	}
}

// Validate checks the resolved configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.RepoRoot == "" {
		errs = append(errs, fmt.Errorf("repository root is required"))
	}
	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("data_dir is required"))
	}
	if c.OutputDir == "" {
		errs = append(errs, fmt.Errorf("output_dir is required"))
	}
	if c.PaperDir == "" {
		errs = append(errs, fmt.Errorf("paper_dir is required"))
	}
	for name, analysis := range c.Analyses {
		if name == "" {
			errs = append(errs, fmt.Errorf("analysis with empty name"))
		}
		if len(analysis.Inputs) == 0 {
			errs = append(errs, fmt.Errorf("analysis %q declares no inputs", name))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// resolve joins path against RepoRoot unless already absolute.
func (c *Config) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.RepoRoot, path)
}

// DataPath returns the resolved data directory.
func (c *Config) DataPath() string { return c.resolve(c.DataDir) }

// OutputPath returns the resolved output directory.
func (c *Config) OutputPath() string { return c.resolve(c.OutputDir) }

// PaperPath returns the resolved default publication destination.
func (c *Config) PaperPath() string { return c.resolve(c.PaperDir) }

// ProvenanceDir returns the directory holding build records.
func (c *Config) ProvenanceDir() string {
	return filepath.Join(c.OutputPath(), "provenance")
}

// Analysis returns the named analysis, or an error listing the known
// names when it is not registered.
func (c *Config) Analysis(name string) (Analysis, error) {
	analysis, ok := c.Analyses[name]
	if !ok {
		return Analysis{}, fmt.Errorf("unknown analysis %q (known: %v)", name, c.AnalysisNames())
	}
	return analysis, nil
}

// AnalysisNames returns the registered analysis names, sorted.
func (c *Config) AnalysisNames() []string {
	names := make([]string, 0, len(c.Analyses))
	for name := range c.Analyses {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// InputPaths returns the resolved input paths of the named analysis.
func (c *Config) InputPaths(name string) ([]string, error) {
	analysis, err := c.Analysis(name)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(analysis.Inputs))
	for _, input := range analysis.Inputs {
		paths = append(paths, c.resolve(input))
	}
	return paths, nil
}

// FigurePath returns the resolved figure output path for an analysis.
func (c *Config) FigurePath(name string) string {
	if analysis, ok := c.Analyses[name]; ok && analysis.Figure != "" {
		return c.resolve(analysis.Figure)
	}
	return filepath.Join(c.OutputPath(), "figures", name+".pdf")
}

// TablePath returns the resolved table output path for an analysis.
func (c *Config) TablePath(name string) string {
	if analysis, ok := c.Analyses[name]; ok && analysis.Table != "" {
		return c.resolve(analysis.Table)
	}
	return filepath.Join(c.OutputPath(), "tables", name+".tex")
}

// ProvenancePath returns the resolved build-record path for an
// analysis.
func (c *Config) ProvenancePath(name string) string {
	if analysis, ok := c.Analyses[name]; ok && analysis.Provenance != "" {
		return c.resolve(analysis.Provenance)
	}
	return filepath.Join(c.ProvenanceDir(), name+".yml")
}
