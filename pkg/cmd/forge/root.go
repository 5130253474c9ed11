// Package forge implements the root forge cobra command and the cli
// Main().
package forge

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/forgedeploy/forge/pkg/cmd"
	"github.com/forgedeploy/forge/pkg/cmd/forge/checkcapabilities"
	"github.com/forgedeploy/forge/pkg/cmd/forge/deploy"
	"github.com/forgedeploy/forge/pkg/cmd/forge/version"
	"github.com/forgedeploy/forge/pkg/log"
)

type flagpole struct {
	Verbosity int32
	Quiet     bool
}

// NewCommand returns a new cobra.Command implementing the root command
// for forge.
func NewCommand(logger log.Logger, streams cmd.IOStreams) *cobra.Command {
	flags := &flagpole{}
	root := &cobra.Command{
		Args:  cobra.NoArgs,
		Use:   "forge",
		Short: "forge compiles deployment plans into self-contained binaries",
		Long:  "forge turns a deployment plan and inventory into native binaries (or a shell fallback) and runs them against their targets",
		PersistentPreRunE: func(c *cobra.Command, args []string) error {
			return runE(logger, flags, c)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version.Version(),
	}
	root.SetOut(streams.Out)
	root.SetErr(streams.ErrOut)
	root.PersistentFlags().Int32VarP(
		&flags.Verbosity,
		"verbosity",
		"v",
		0,
		"info log verbosity, higher value produces more output",
	)
	root.PersistentFlags().BoolVarP(
		&flags.Quiet,
		"quiet",
		"q",
		false,
		"silence all stderr output",
	)
	root.AddCommand(deploy.NewCommand(logger, streams))
	root.AddCommand(checkcapabilities.NewCommand(logger, streams))
	root.AddCommand(version.NewCommand(logger, streams))
	return root
}

func runE(logger log.Logger, flags *flagpole, command *cobra.Command) error {
	if flags.Quiet {
		maybeSetOutput(logger, io.Discard)
	}
	maybeSetVerbosity(logger, log.Level(flags.Verbosity))
	return nil
}

func maybeSetOutput(logger log.Logger, w io.Writer) {
	type outputSetter interface{ SetOutput(io.Writer) }
	if v, ok := logger.(outputSetter); ok {
		v.SetOutput(w)
	}
}

func maybeSetVerbosity(logger log.Logger, verbosity log.Level) {
	type verboser interface{ SetVerbosity(log.Level) }
	if v, ok := logger.(verboser); ok {
		v.SetVerbosity(verbosity)
	}
}
