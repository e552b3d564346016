// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

// Package sysinfo snapshots the computational environment into a YAML
// file alongside the built outputs, so a replication package records
// where it was produced.
package sysinfo

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/provkit/provkit/lib/atomicfile"
	"github.com/provkit/provkit/lib/clock"
	"github.com/provkit/provkit/lib/gitstate"
	"github.com/provkit/provkit/lib/provenance"
)

// DefaultFileName is the snapshot's conventional name under the
// output directory.
const DefaultFileName = "system_info.yml"

// Snapshot is the recorded environment.
type Snapshot struct {
	LoggedAtUTC string         `yaml:"logged_at_utc"`
	System      System         `yaml:"system"`
	Git         gitstate.State `yaml:"git"`
}

// System describes the host and runtime.
type System struct {
	OS        string `yaml:"os"`
	Arch      string `yaml:"architecture"`
	Hostname  string `yaml:"hostname"`
	GoVersion string `yaml:"go_version"`
	NumCPU    int    `yaml:"num_cpu"`
}

// Collect gathers a snapshot for the repository at repoRoot.
func Collect(ctx context.Context, c clock.Clock, repoRoot string) (*Snapshot, error) {
	state, err := gitstate.Inspect(ctx, repoRoot)
	if err != nil {
		return nil, err
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return &Snapshot{
		LoggedAtUTC: provenance.FormatTimestamp(c.Now()),
		System: System{
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			Hostname:  hostname,
			GoVersion: runtime.Version(),
			NumCPU:    runtime.NumCPU(),
		},
		Git: state,
	}, nil
}

// Write persists the snapshot atomically at path.
func (s *Snapshot) Write(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling system snapshot: %w", err)
	}
	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("persisting system snapshot: %w", err)
	}
	return nil
}
