// Package checkcapabilities implements `forge check-capabilities`, an
// ordered checks-list report over the local toolchain (C3), in the style
// of the teacher's container-runtime preflight checklist.
package checkcapabilities

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgedeploy/forge/pkg/capability"
	"github.com/forgedeploy/forge/pkg/cmd"
	"github.com/forgedeploy/forge/pkg/log"
)

// NewCommand returns a new cobra.Command for `forge check-capabilities`.
func NewCommand(logger log.Logger, streams cmd.IOStreams) *cobra.Command {
	return &cobra.Command{
		Args:  cobra.NoArgs,
		Use:   "check-capabilities",
		Short: "probe the local toolchain and print a capability report",
		Long:  "probes for a native compiler and the zig cross-build wrapper and reports which target triples are reachable from this host",
		RunE: func(c *cobra.Command, args []string) error {
			Report(streams.Out, capability.Detect())
			return nil
		},
	}
}

// Report prints caps as an ordered checklist, one line per check,
// matching the pass/fail checklist idiom the rest of the codebase uses
// for preflighting.
func Report(w interface{ Write([]byte) (int, error) }, caps capability.Capabilities) {
	line := func(ok bool, format string, args ...interface{}) {
		mark := "[ok]"
		if !ok {
			mark = "[MISS]"
		}
		fmt.Fprintf(w, "%s %s\n", mark, fmt.Sprintf(format, args...))
	}

	line(caps.CompilerPresent, "native compiler present (%s)", orNone(caps.CompilerVersion))
	line(caps.CrossWrapperPresent, "zig cross-build wrapper present (%s)", orNone(caps.CrossWrapperVersion))
	line(caps.NativeTriple != "", "native target triple: %s", orNone(caps.NativeTriple))
	fmt.Fprintf(w, "reachable triples (%d):\n", len(caps.ReachableTriples))
	for _, t := range caps.ReachableTriples {
		fmt.Fprintf(w, "  - %s\n", t)
	}
	fmt.Fprintf(w, "readiness: %s\n", caps.Readiness)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
