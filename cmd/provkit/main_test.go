// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"strings"
	"testing"

	"github.com/provkit/provkit/cmd/provkit/cli"
	"github.com/provkit/provkit/cmd/provkit/commands"
)

// TestCommandTreeShape walks the full production command tree and
// validates the invariants the dispatcher relies on: every command is
// named, leaf commands have a Run function, group commands have
// subcommands, and sibling names are unique.
func TestCommandTreeShape(t *testing.T) {
	root := commands.Root()
	walkCommands(root, nil, func(command *cli.Command, path []string) {
		name := strings.Join(path, " ")
		if command.Name == "" {
			t.Errorf("%s: command without a name", name)
		}
		if command.Run == nil && len(command.Subcommands) == 0 {
			t.Errorf("%s: neither Run nor Subcommands", name)
		}
		if command != root && command.Summary == "" {
			t.Errorf("%s: missing summary for help listing", name)
		}

		seen := map[string]bool{}
		for _, sub := range command.Subcommands {
			if seen[sub.Name] {
				t.Errorf("%s: duplicate subcommand %q", name, sub.Name)
			}
			seen[sub.Name] = true
		}
	})
}

func walkCommands(command *cli.Command, path []string, visit func(*cli.Command, []string)) {
	current := make([]string, len(path)+1)
	copy(current, path)
	current[len(path)] = command.Name
	visit(command, current)
	for _, sub := range command.Subcommands {
		walkCommands(sub, current, visit)
	}
}
