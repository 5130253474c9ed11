package capability

import (
	"testing"

	"github.com/forgedeploy/forge/pkg/exec"
	"github.com/forgedeploy/forge/pkg/internal/assert"
)

type fakeVersionCmder struct {
	responses map[string]exec.FakeCmd
}

func (f *fakeVersionCmder) Command(name string, args ...string) exec.Cmd {
	c := f.responses[name]
	return &c
}

func TestDetectFullyReady(t *testing.T) {
	defer Reset()
	SetCmder(&fakeVersionCmder{responses: map[string]exec.FakeCmd{
		"go":   {Out: []byte("go version go1.21 linux/amd64")},
		"zig":  {Out: []byte("0.11.0")},
	}})
	Reset()
	c := Detect()
	assert.BoolEqual(t, true, c.CompilerPresent)
	assert.BoolEqual(t, true, c.CrossWrapperPresent)
	if c.Readiness != FullyReady {
		t.Errorf("expected fully-ready, got %v", c.Readiness)
	}
}

func TestDetectNotReady(t *testing.T) {
	defer Reset()
	SetCmder(&fakeVersionCmder{responses: map[string]exec.FakeCmd{
		"go":  {Error: errNotFound},
		"zig": {Error: errNotFound},
	}})
	Reset()
	c := Detect()
	assert.BoolEqual(t, false, c.CompilerPresent)
	if c.Readiness != NotReady {
		t.Errorf("expected not-ready, got %v", c.Readiness)
	}
}

func TestDetectBasicReady(t *testing.T) {
	defer Reset()
	SetCmder(&fakeVersionCmder{responses: map[string]exec.FakeCmd{
		"go":  {Out: []byte("go version go1.21 linux/amd64")},
		"zig": {Error: errNotFound},
	}})
	Reset()
	c := Detect()
	if c.Readiness != BasicReady {
		t.Errorf("expected basic-ready, got %v", c.Readiness)
	}
}

func TestDetectMemoizesResult(t *testing.T) {
	defer Reset()
	SetCmder(&fakeVersionCmder{responses: map[string]exec.FakeCmd{
		"go":  {Out: []byte("go version go1.21 linux/amd64")},
		"zig": {Error: errNotFound},
	}})
	Reset()
	first := Detect()
	// swap the cmder; Detect should still return the memoized first result
	SetCmder(&fakeVersionCmder{responses: map[string]exec.FakeCmd{
		"go":  {Error: errNotFound},
		"zig": {Error: errNotFound},
	}})
	second := Detect()
	assert.DeepEqual(t, first, second)
}

type simpleError string

func (e simpleError) Error() string { return string(e) }

var errNotFound = simpleError("executable file not found in $PATH")
