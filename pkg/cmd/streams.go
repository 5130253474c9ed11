/*
Copyright 2019 The Kubernetes Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/forgedeploy/forge/pkg/log"
)

// IOStreams bundles the three streams every forge subcommand reads from
// or writes to, so they can be swapped out uniformly in tests.
type IOStreams struct {
	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer
}

// StandardIOStreams returns an IOStreams wired to os.Stdin/Stdout/Stderr.
func StandardIOStreams() IOStreams {
	return IOStreams{
		In:     os.Stdin,
		Out:    os.Stdout,
		ErrOut: os.Stderr,
	}
}

// ColorEnabled reports whether logger is writing to a terminal capable of
// ANSI color, used to decide whether error output should be colorized.
func ColorEnabled(logger log.Logger) bool {
	type writerGetter interface {
		Output() io.Writer
	}
	if wg, ok := logger.(writerGetter); ok {
		if f, ok := wg.Output().(*os.File); ok {
			return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}
	return false
}
