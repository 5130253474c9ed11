package inventory

import (
	"testing"

	"github.com/forgedeploy/forge/pkg/internal/assert"
	"github.com/forgedeploy/forge/pkg/plan"
)

func TestResolveVariablePrecedence(t *testing.T) {
	p := &plan.Plan{
		GlobalVariables: map[string]plan.Value{"level": plan.NewString("global")},
		Groups: []plan.Group{
			{Name: "parent", Variables: map[string]plan.Value{"level": plan.NewString("parent")}},
			{Name: "child", ParentGroups: []string{"parent"}, Variables: map[string]plan.Value{"level": plan.NewString("child")}},
		},
		Hosts: []plan.Host{
			{Name: "h1", Groups: []string{"child"}, Variables: map[string]plan.Value{"level": plan.NewString("host")}},
		},
	}
	resolved, err := Resolve(p)
	assert.ExpectError(t, false, err)
	if len(resolved) != 1 {
		t.Fatalf("expected 1 resolved host, got %d", len(resolved))
	}
	assert.StringEqual(t, "host", resolved[0].Variables["level"].Str)
}

func TestResolveDetectsGroupCycle(t *testing.T) {
	p := &plan.Plan{
		Groups: []plan.Group{
			{Name: "a", ChildGroups: []string{"b"}},
			{Name: "b", ChildGroups: []string{"a"}},
		},
		Hosts: []plan.Host{{Name: "h1"}},
	}
	_, err := Resolve(p)
	assert.ExpectError(t, true, err)
}

func TestResolveArchitectureExplicitTriple(t *testing.T) {
	h := plan.Host{Name: "h1", TargetTriple: "aarch64-apple-darwin"}
	triple, unknown := ResolveArchitecture(h)
	assert.BoolEqual(t, false, unknown)
	assert.StringEqual(t, "aarch64-apple-darwin", triple)
}

func TestResolveArchitectureFromDeclared(t *testing.T) {
	h := plan.Host{Name: "h1", DeclaredOS: "ubuntu", DeclaredArch: "x86_64"}
	triple, unknown := ResolveArchitecture(h)
	assert.BoolEqual(t, false, unknown)
	assert.StringEqual(t, "x86_64-unknown-linux-gnu", triple)
}

func TestResolveArchitectureUnknown(t *testing.T) {
	h := plan.Host{Name: "h1", Connection: plan.Connection{Method: plan.ConnectionSSH}}
	_, unknown := ResolveArchitecture(h)
	assert.BoolEqual(t, true, unknown)
}
