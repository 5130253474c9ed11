// Package capability probes the local toolchain once per process: native
// compiler, cross-build wrapper, and the set of target triples reachable
// from here (C3, Capability Detector). Adapted from the ordered
// checks-list pattern used for runtime-environment preflighting elsewhere
// in this codebase, generalized to return a structured, cacheable result
// instead of a single pass/fail error.
package capability

import (
	"runtime"
	"strings"
	"sync"

	"github.com/forgedeploy/forge/pkg/concurrent"
	"github.com/forgedeploy/forge/pkg/exec"
)

// Readiness is the overall verdict a Capabilities value carries.
type Readiness string

const (
	FullyReady  Readiness = "fully-ready"
	MostlyReady Readiness = "mostly-ready"
	BasicReady  Readiness = "basic-ready"
	NotReady    Readiness = "not-ready"
)

// wellKnownTriples is the set the synthesizer/strategist reason about;
// it mirrors the §6.3 mapping table's output triples plus musl/windows.
var wellKnownTriples = []string{
	"x86_64-unknown-linux-gnu",
	"aarch64-unknown-linux-gnu",
	"x86_64-unknown-linux-musl",
	"x86_64-apple-darwin",
	"aarch64-apple-darwin",
	"x86_64-pc-windows-msvc",
}

// Capabilities is the process-wide, write-once probe result (§3).
type Capabilities struct {
	CompilerPresent    bool
	CompilerVersion    string
	CrossWrapperPresent bool
	CrossWrapperVersion string
	NativeTriple       string
	ReachableTriples   []string
	Readiness          Readiness
}

// Reaches reports whether triple is among the reachable set.
func (c Capabilities) Reaches(triple string) bool {
	for _, t := range c.ReachableTriples {
		if t == triple {
			return true
		}
	}
	return false
}

var (
	once   sync.Once
	cached Capabilities
	cmder  exec.Cmder = exec.DefaultCmder
)

// SetCmder overrides the Cmder used to probe the toolchain; test-only hook.
func SetCmder(c exec.Cmder) { cmder = c }

// Detect returns the memoized Capabilities for this process, probing the
// toolchain on first call. Probe failures lower the readiness level but
// never abort the caller (§4.3).
func Detect() Capabilities {
	once.Do(func() {
		cached = detect()
	})
	return cached
}

// Reset clears the memoized result; test-only hook, since Capabilities is
// specified as a write-once-per-process cell in production.
func Reset() {
	once = sync.Once{}
}

func detect() Capabilities {
	var c Capabilities

	// The two probes are independent processes; run them concurrently and
	// collect both outcomes via Coalesce rather than short-circuiting on
	// whichever fails first — a missing zig must never suppress the go probe.
	_ = concurrent.Coalesce(
		func() error {
			out, err := probeVersion("go", "version")
			if err == nil {
				c.CompilerPresent = true
				c.CompilerVersion = out
			}
			return err
		},
		func() error {
			out, err := probeVersion("zig", "version")
			if err == nil {
				c.CrossWrapperPresent = true
				c.CrossWrapperVersion = out
			}
			return err
		},
	)

	if c.CompilerPresent {
		c.NativeTriple = nativeTriple()
		if c.NativeTriple != "" {
			c.ReachableTriples = append(c.ReachableTriples, c.NativeTriple)
		}
		if c.CrossWrapperPresent {
			// zig cc can target every well-known triple; CGO_ENABLED=0
			// pure-Go builds can cross-compile for the rest without it,
			// so with the wrapper present the full set is reachable.
			c.ReachableTriples = uniqueTriples(wellKnownTriples)
		} else {
			// Without the wrapper, only targets that build with
			// CGO_ENABLED=0 are safely reachable; that is every
			// well-known triple except this process's own (which may
			// need cgo for modules like setup/user).
			for _, t := range wellKnownTriples {
				if t != c.NativeTriple {
					c.ReachableTriples = append(c.ReachableTriples, t)
				}
			}
			if c.NativeTriple != "" {
				c.ReachableTriples = append(c.ReachableTriples, c.NativeTriple)
			}
			c.ReachableTriples = uniqueTriples(c.ReachableTriples)
		}
	}

	c.Readiness = classify(c)
	return c
}

func classify(c Capabilities) Readiness {
	switch {
	case !c.CompilerPresent:
		return NotReady
	case c.CompilerPresent && c.CrossWrapperPresent && len(c.ReachableTriples) >= len(wellKnownTriples):
		return FullyReady
	case c.CompilerPresent && c.CrossWrapperPresent:
		return MostlyReady
	case c.CompilerPresent && !c.CrossWrapperPresent:
		return BasicReady
	default:
		return NotReady
	}
}

func probeVersion(name string, args ...string) (string, error) {
	lines, err := exec.CombinedOutputLines(cmder.Command(name, args...))
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}

func nativeTriple() string {
	switch runtime.GOOS {
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "aarch64-unknown-linux-gnu"
		}
		return "x86_64-unknown-linux-gnu"
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return "aarch64-apple-darwin"
		}
		return "x86_64-apple-darwin"
	case "windows":
		return "x86_64-pc-windows-msvc"
	default:
		return ""
	}
}

func uniqueTriples(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
