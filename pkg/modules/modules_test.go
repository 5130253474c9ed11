package modules

import (
	"testing"

	"github.com/forgedeploy/forge/pkg/internal/assert"
	"github.com/forgedeploy/forge/pkg/plan"
)

func TestMapArgsCommandRawParams(t *testing.T) {
	out, err := MapArgs("command", map[string]plan.Value{"_raw_params": plan.NewString("echo hi")}, Permissive)
	assert.ExpectError(t, false, err)
	assert.StringEqual(t, "echo hi", out["cmd"].(string))
}

func TestMapArgsPackageAliasAndDefault(t *testing.T) {
	out, err := MapArgs("package", map[string]plan.Value{"pkg": plan.NewString("nginx")}, Permissive)
	assert.ExpectError(t, false, err)
	assert.StringEqual(t, "nginx", out["name"].(string))
	assert.StringEqual(t, "present", out["state"].(string))
}

func TestMapArgsMissingRequired(t *testing.T) {
	_, err := MapArgs("copy", map[string]plan.Value{"src": plan.NewString("a")}, Permissive)
	assert.ExpectError(t, true, err)
	de, ok := err.(*DispatchError)
	if !ok {
		t.Fatalf("expected *DispatchError, got %T", err)
	}
	assert.StringEqual(t, "missing-required", de.Kind)
}

func TestMapArgsStrictModeRejectsUnknown(t *testing.T) {
	_, err := MapArgs("debug", map[string]plan.Value{"msg": plan.NewString("x"), "bogus": plan.NewString("y")}, Strict)
	assert.ExpectError(t, true, err)
	de, ok := err.(*DispatchError)
	if !ok {
		t.Fatalf("expected *DispatchError, got %T", err)
	}
	assert.StringEqual(t, "unknown-parameter", de.Kind)
}

func TestMapArgsUnknownModule(t *testing.T) {
	_, err := MapArgs("totally-unknown", nil, Permissive)
	assert.ExpectError(t, true, err)
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Lookup("command"); !ok {
		t.Fatalf("expected command module registered")
	}
	if _, ok := r.Lookup("nonexistent"); ok {
		t.Fatalf("expected nonexistent module to be absent")
	}
	names := r.Names()
	if len(names) != 17 {
		t.Fatalf("expected 17 registered modules, got %d: %v", len(names), names)
	}
}

func TestDebugModuleInvoke(t *testing.T) {
	m := debugModule{}
	res, err := m.Invoke(map[string]interface{}{"msg": "hello"}, Context{})
	assert.ExpectError(t, false, err)
	assert.StringEqual(t, "hello", res.Message)
}
