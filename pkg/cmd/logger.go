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

	"github.com/forgedeploy/forge/pkg/log"

	"github.com/forgedeploy/forge/pkg/internal/util/cli"
	"github.com/forgedeploy/forge/pkg/internal/util/env"
)

// NewLogger returns the standard logger used by the forge CLI.
// This logger writes to os.Stderr.
func NewLogger(verbosity log.Level) log.Logger {
	var writer io.Writer = os.Stderr
	return cli.NewLogger(writer, verbosity)
}

// IsSmartTerminal reports whether writer is attached to a terminal capable
// of in-place status updates (used to decide whether to drive a Status
// spinner around a long build/publish step).
func IsSmartTerminal(writer io.Writer) bool {
	return env.IsSmartTerminal(writer)
}
