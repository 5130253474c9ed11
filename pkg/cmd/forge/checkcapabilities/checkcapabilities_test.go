package checkcapabilities

import (
	"bytes"
	"strings"
	"testing"

	"github.com/forgedeploy/forge/pkg/capability"
)

func TestReportListsReachableTriplesAndReadiness(t *testing.T) {
	var buf bytes.Buffer
	caps := capability.Capabilities{
		CompilerPresent:     true,
		CompilerVersion:     "go1.21",
		CrossWrapperPresent: false,
		NativeTriple:        "x86_64-unknown-linux-gnu",
		ReachableTriples:    []string{"x86_64-unknown-linux-gnu", "aarch64-unknown-linux-gnu"},
		Readiness:           capability.BasicReady,
	}

	Report(&buf, caps)
	out := buf.String()

	if !strings.Contains(out, "[ok] native compiler present (go1.21)") {
		t.Fatalf("expected compiler line, got:\n%s", out)
	}
	if !strings.Contains(out, "[MISS] zig cross-build wrapper present (none)") {
		t.Fatalf("expected missing wrapper line, got:\n%s", out)
	}
	if !strings.Contains(out, "reachable triples (2):") {
		t.Fatalf("expected triple count, got:\n%s", out)
	}
	if !strings.Contains(out, "readiness: basic-ready") {
		t.Fatalf("expected readiness line, got:\n%s", out)
	}
}
