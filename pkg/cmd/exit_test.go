package cmd

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/forgedeploy/forge/pkg/internal/assert"
)

func TestExitCodeNilIsZero(t *testing.T) {
	assert.DeepEqual(t, 0, ExitCode(nil))
}

func TestExitCodeDefaultsToOne(t *testing.T) {
	assert.DeepEqual(t, 1, ExitCode(errors.New("boom")))
}

func TestExitCodeHonorsExitError(t *testing.T) {
	err := &ExitError{Code: 3, Err: errors.New("compile failed")}
	assert.DeepEqual(t, 3, ExitCode(err))
}

func TestExitCodeUnwrapsWrappedExitError(t *testing.T) {
	err := errors.Wrap(&ExitError{Code: 5, Err: errors.New("runtime failure")}, "deploy")
	assert.DeepEqual(t, 5, ExitCode(err))
}
