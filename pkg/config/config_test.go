package config

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/forgedeploy/forge/pkg/internal/assert"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ExpectError(t, false, err)
	assert.StringEqual(t, "auto", cfg.Optimization)
	if cfg.BinaryThreshold != 5 {
		t.Errorf("expected default binary threshold 5, got %d", cfg.BinaryThreshold)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forge.toml")
	assert.ExpectError(t, false, ioutil.WriteFile(path, []byte(`
binary_threshold = 9
optimization = "aggressive"
`), 0o644))
	cfg, err := Load(path)
	assert.ExpectError(t, false, err)
	if cfg.BinaryThreshold != 9 {
		t.Errorf("expected file override to set threshold 9, got %d", cfg.BinaryThreshold)
	}
	assert.StringEqual(t, "aggressive", cfg.Optimization)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forge.toml")
	assert.ExpectError(t, false, ioutil.WriteFile(path, []byte(`binary_threshold = 9`), 0o644))
	os.Setenv("FORGE_BINARY_THRESHOLD", "12")
	defer os.Unsetenv("FORGE_BINARY_THRESHOLD")
	cfg, err := Load(path)
	assert.ExpectError(t, false, err)
	if cfg.BinaryThreshold != 12 {
		t.Errorf("expected env override to win over file, got %d", cfg.BinaryThreshold)
	}
}
