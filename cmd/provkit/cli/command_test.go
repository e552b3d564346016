// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "provkit",
		Subcommands: []*Command{
			{
				Name: "version",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					called = "version"
					return nil
				},
			},
			{
				Name: "check",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					called = "check"
					return nil
				},
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"check"}, testLogger()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "check" {
		t.Errorf("dispatched to %q, want %q", called, "check")
	}
}

func TestCommand_Execute_NestedSubcommands(t *testing.T) {
	var called string
	var receivedArgs []string

	root := &Command{
		Name: "provkit",
		Subcommands: []*Command{
			{
				Name: "publish",
				Subcommands: []*Command{
					{
						Name: "artifacts",
						Run: func(_ context.Context, args []string, _ *slog.Logger) error {
							called = "publish artifacts"
							receivedArgs = args
							return nil
						},
					},
				},
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"publish", "artifacts", "price_base"}, testLogger()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "publish artifacts" {
		t.Errorf("dispatched to %q, want %q", called, "publish artifacts")
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "price_base" {
		t.Errorf("args = %v, want [price_base]", receivedArgs)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var kind string
	var remaining []string

	command := &Command{
		Name: "artifacts",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("artifacts", pflag.ContinueOnError)
			flagSet.StringVar(&kind, "kind", "figures", "")
			return flagSet
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			remaining = args
			return nil
		},
	}

	if err := command.Execute(context.Background(), []string{"--kind", "tables", "price_base"}, testLogger()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if kind != "tables" {
		t.Errorf("kind = %q, want %q", kind, "tables")
	}
	if len(remaining) != 1 || remaining[0] != "price_base" {
		t.Errorf("remaining args = %v", remaining)
	}
}

func TestCommand_Execute_UnknownSubcommandSuggests(t *testing.T) {
	root := &Command{
		Name: "provkit",
		Subcommands: []*Command{
			{Name: "publish", Run: func(context.Context, []string, *slog.Logger) error { return nil }},
			{Name: "check", Run: func(context.Context, []string, *slog.Logger) error { return nil }},
		},
	}

	err := root.Execute(context.Background(), []string{"pubish"}, testLogger())
	if err == nil {
		t.Fatal("expected error for unknown subcommand")
	}
	if !strings.Contains(err.Error(), `did you mean "publish"`) {
		t.Errorf("error lacks suggestion: %v", err)
	}
}

func TestCommand_Execute_UnknownFlagSuggests(t *testing.T) {
	command := &Command{
		Name: "check",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("check", pflag.ContinueOnError)
			flagSet.Bool("allow-dirty", false, "")
			return flagSet
		},
		Run: func(context.Context, []string, *slog.Logger) error { return nil },
	}

	err := command.Execute(context.Background(), []string{"--alow-dirty"}, testLogger())
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if !strings.Contains(err.Error(), "--allow-dirty") {
		t.Errorf("error lacks flag suggestion: %v", err)
	}
}

func TestCommand_Execute_SubcommandRequired(t *testing.T) {
	root := &Command{
		Name: "provkit",
		Subcommands: []*Command{
			{Name: "check", Run: func(context.Context, []string, *slog.Logger) error { return nil }},
		},
	}

	err := root.Execute(context.Background(), nil, testLogger())
	if err == nil || !strings.Contains(err.Error(), "subcommand required") {
		t.Errorf("got %v, want subcommand-required error", err)
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	root := &Command{
		Name:    "provkit",
		Summary: "provenance tooling",
		Subcommands: []*Command{
			{Name: "check", Summary: "Run the publication policy"},
			{Name: "publish", Summary: "Copy artifacts to the paper"},
		},
	}

	var buf bytes.Buffer
	root.PrintHelp(&buf)
	help := buf.String()

	for _, want := range []string{"Usage:", "provkit <command>", "check", "Run the publication policy", "publish"} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q:\n%s", want, help)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"check", "check", 0},
		{"chek", "check", 1},
		{"pubish", "publish", 1},
		{"kitten", "sitting", 3},
	}
	for _, c := range cases {
		if got := levenshtein(c.a, c.b); got != c.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
