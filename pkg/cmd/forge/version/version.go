// Package version implements the `forge version` command.
package version

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgedeploy/forge/pkg/cmd"
	"github.com/forgedeploy/forge/pkg/log"
)

// buildVersion is set via -ldflags at build time; defaults to "dev" for
// a locally-built binary.
var buildVersion = "dev"

// Version returns the forge CLI's version string.
func Version() string { return buildVersion }

// NewCommand returns a new cobra.Command for `forge version`.
func NewCommand(logger log.Logger, streams cmd.IOStreams) *cobra.Command {
	return &cobra.Command{
		Args:  cobra.NoArgs,
		Use:   "version",
		Short: "prints the forge CLI version",
		Long:  "prints the forge CLI version",
		RunE: func(c *cobra.Command, args []string) error {
			fmt.Fprintln(streams.Out, Version())
			return nil
		},
	}
}
