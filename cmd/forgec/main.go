// Command forgec is the forge CLI binary.
package main

import (
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/forgedeploy/forge/pkg/cmd"
	"github.com/forgedeploy/forge/pkg/cmd/forge"
	forgeerrors "github.com/forgedeploy/forge/pkg/errors"
	"github.com/forgedeploy/forge/pkg/log"
)

func main() {
	if err := Run(cmd.NewLogger(0), cmd.StandardIOStreams(), os.Args[1:]); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}

// Run invokes the forge root command, returning the error it produced.
func Run(logger log.Logger, streams cmd.IOStreams, args []string) error {
	if checkQuiet(args) {
		logger = log.NoopLogger{}
		streams.ErrOut = io.Discard
	}
	c := forge.NewCommand(logger, streams)
	c.SetArgs(args)
	if err := c.Execute(); err != nil {
		logError(logger, err)
		return err
	}
	return nil
}

// checkQuiet returns true if -q / --quiet was set in args, so the quiet
// logger can be installed before cobra itself ever starts writing.
func checkQuiet(args []string) bool {
	flags := pflag.NewFlagSet("persistent-quiet", pflag.ContinueOnError)
	flags.ParseErrorsWhitelist.UnknownFlags = true
	quiet := false
	flags.BoolVarP(&quiet, "quiet", "q", false, "silence all stderr output")
	flags.Usage = func() {}
	_ = flags.Parse(args)
	return quiet
}

// logError prints err and, for a build/compile failure that bottomed out
// in a shelled-out command, the command's captured output alongside it.
func logError(logger log.Logger, err error) {
	colorEnabled := cmd.ColorEnabled(logger)
	if colorEnabled {
		logger.Errorf("\x1b[31mERROR\x1b[0m: %v", err)
	} else {
		logger.Errorf("ERROR: %v", err)
	}
	if runErr := forgeerrors.RunError(err); runErr != nil {
		if colorEnabled {
			logger.Errorf("\x1b[31mCommand Output\x1b[0m: %s", runErr.CmdOut.String())
		} else {
			logger.Errorf("Command Output: %s", runErr.CmdOut.String())
		}
	}
	if logger.V(1).Enabled() {
		if trace := forgeerrors.StackTrace(err); trace != nil {
			logger.Errorf("Stack Trace: %+v", trace)
		}
	}
}
