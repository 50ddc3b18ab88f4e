// Package main provides the minecart CLI entrypoint.
//
// Usage:
//
//	minecart <command> [options]
//
// Exit codes for run commands:
//   - 0: success (or delete run declined)
//   - 1: partial (some items failed)
//   - 2: fatal (run aborted)
//   - 3: invalid configuration
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/minecart-io/minecart/cli/cmd"
	"github.com/minecart-io/minecart/cli/config"
	"github.com/minecart-io/minecart/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	app := &cli.App{
		Name:           "minecart",
		Usage:          "Bulk attachment download and deletion for a remote ticketing service",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		ExitErrHandler: exitErrHandler,
		Before: func(c *cli.Context) error {
			// Best effort: a missing .env is not an error.
			config.LoadDotEnv()
			return nil
		},
		Commands: []*cli.Command{
			cmd.DownloadCommand(),
			cmd.DeleteCommand(),
			cmd.VersionCommand(commit),
		},
	}

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already handled the exit for cli.ExitCoder errors.
		// This branch handles unexpected errors that weren't wrapped.
		os.Exit(1)
	}
}

// exitErrHandler preserves exit codes from cli.Exit() so run outcomes map
// onto the process exit code.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		msg := exitCoder.Error()

		// cli.Exit("", N).Error() returns "exit status N"; skip those.
		if msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
