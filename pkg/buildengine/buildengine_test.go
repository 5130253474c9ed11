package buildengine

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/forgedeploy/forge/pkg/exec"
	"github.com/forgedeploy/forge/pkg/internal/assert"
	"github.com/forgedeploy/forge/pkg/synth"
)

// fakeCmd simulates `go build -o <path> .` by writing a stub file at the
// path following "-o", rather than touching a real compiler.
type fakeCmd struct {
	name string
	args []string
	fail bool
}

func (c *fakeCmd) Run() error {
	if c.fail {
		return errSimulated
	}
	for i, a := range c.args {
		if a == "-o" && i+1 < len(c.args) {
			return os.WriteFile(c.args[i+1], []byte("stub-binary"), 0o755)
		}
	}
	return nil
}
func (c *fakeCmd) SetEnv(...string) exec.Cmd           { return c }
func (c *fakeCmd) SetStdin(io.Reader) exec.Cmd         { return c }
func (c *fakeCmd) SetStdout(io.Writer) exec.Cmd        { return c }
func (c *fakeCmd) SetStderr(io.Writer) exec.Cmd        { return c }
func (c *fakeCmd) Kill() error                         { return nil }

type errSimulatedT string

func (e errSimulatedT) Error() string { return string(e) }

const errSimulated = errSimulatedT("simulated compile failure")

type fakeCmder struct {
	fail bool
}

func (c *fakeCmder) Command(name string, args ...string) exec.Cmd {
	return &fakeCmd{name: name, args: args, fail: c.fail}
}

func sampleTemplate() *synth.Template {
	return &synth.Template{
		TargetTriple: "x86_64-unknown-linux-gnu",
		Files: map[string][]byte{
			"go.mod":  []byte("module forge-deployment\n\ngo 1.21\n"),
			"main.go": []byte("package main\nfunc main() {}\n"),
		},
	}
}

func TestBuildSucceeds(t *testing.T) {
	b := New(Options{Cmder: &fakeCmder{}, Concurrency: 2})
	tpl := sampleTemplate()
	res, err := b.Build(context.Background(), tpl, "x86_64-unknown-linux-gnu", false)
	assert.ExpectError(t, false, err)
	if res == nil || res.BinaryPath == "" {
		t.Fatalf("expected a populated Result, got %+v", res)
	}
}

func TestBuildCompileFailurePropagates(t *testing.T) {
	b := New(Options{Cmder: &fakeCmder{fail: true}, Concurrency: 1})
	tpl := sampleTemplate()
	_, err := b.Build(context.Background(), tpl, "x86_64-unknown-linux-gnu", false)
	assert.ExpectError(t, true, err)
	be, ok := err.(*BuildError)
	if !ok {
		t.Fatalf("expected *BuildError, got %T: %v", err, err)
	}
	assert.StringEqual(t, "compile-failure", be.Kind)
}

func TestBuildUnknownTripleWithoutWrapper(t *testing.T) {
	b := New(Options{Cmder: &fakeCmder{}, Concurrency: 1})
	tpl := sampleTemplate()
	tpl.TargetTriple = "riscv64-unknown-linux-gnu"
	_, err := b.Build(context.Background(), tpl, "x86_64-unknown-linux-gnu", false)
	assert.ExpectError(t, true, err)
	be, ok := err.(*BuildError)
	if !ok {
		t.Fatalf("expected *BuildError, got %T", err)
	}
	assert.StringEqual(t, "wrapper-unavailable", be.Kind)
}
