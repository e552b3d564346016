// Copyright 2026 The Provkit Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/provkit/provkit/cmd/provkit/cli"
	"github.com/provkit/provkit/cmd/provkit/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own findings (check, audit,
		// compare) return an ExitError with the desired code. Don't
		// print a redundant "error:" line for those.
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := cli.NewCommandLogger()
	return commands.Root().Execute(ctx, os.Args[1:], logger)
}
