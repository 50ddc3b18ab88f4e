package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/minecart-io/minecart/types"
)

// VersionCommand returns the version command. It never touches the network.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Show version information",
		Action: func(c *cli.Context) error {
			fmt.Fprintf(c.App.Writer, "minecart %s (commit: %s)\n", types.Version, commit)
			return nil
		},
	}
}
