/*
Copyright 2018 The Kubernetes Authors.

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

// Package exec contains an interface for executing commands, along with
// helpers for piping, combining output, and pretty-printing the invocation.
package exec

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/forgedeploy/forge/pkg/globals"
)

// Cmd abstracts over running a command somewhere, this is useful for testing
// and for eventually running a command over a remote shell transport.
type Cmd interface {
	Run() error
	// Each entry should be of the form "key=value"
	SetEnv(...string) Cmd
	SetStdin(io.Reader) Cmd
	SetStdout(io.Writer) Cmd
	SetStderr(io.Writer) Cmd
	// Kill terminates a started, still-running command. Callers use it
	// to interrupt a Run() blocked in another goroutine when a context
	// is cancelled; it is a no-op if the command never started.
	Kill() error
}

// Cmder abstracts over creating commands
type Cmder interface {
	// command, args..., just like os/exec.Cmd
	Command(string, ...string) Cmd
}

// DefaultCmder is a LocalCmder instance used for convenience; packages
// wanting os/exec.Command semantics should instead use this package's
// Command which forwards to this instance.
var DefaultCmder = &LocalCmder{}

// Command is a convenience wrapper over DefaultCmder.Command
func Command(command string, args ...string) Cmd {
	return DefaultCmder.Command(command, args...)
}

// RunContext runs cmd, killing it and returning ctx.Err() if ctx is
// done before Run completes on its own. Used by callers that must not
// leave a compiler or shelled-out command running past a deadline.
func RunContext(ctx context.Context, cmd Cmd) error {
	done := make(chan error, 1)
	go func() { done <- cmd.Run() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = cmd.Kill()
		<-done
		return ctx.Err()
	}
}

// RunLoggingOutputOnFail runs cmd, logging combined output through the
// process-wide logger only if Run returns an error.
func RunLoggingOutputOnFail(cmd Cmd) error {
	var buff bytes.Buffer
	cmd.SetStdout(&buff)
	cmd.SetStderr(&buff)
	err := cmd.Run()
	if err != nil {
		logger := globals.GetLogger()
		logger.Error("failed with:")
		scanner := bufio.NewScanner(&buff)
		for scanner.Scan() {
			logger.Error(scanner.Text())
		}
	}
	return err
}
