package inventory

import (
	"runtime"
	"strings"

	"github.com/forgedeploy/forge/pkg/plan"
)

// archOSMapping is the minimum required §6.3 table: (OS family, arch) ->
// normalized target triple.
var archOSMapping = map[string]map[string]string{
	"debian": {"x86_64": "x86_64-unknown-linux-gnu", "aarch64": "aarch64-unknown-linux-gnu"},
	"ubuntu": {"x86_64": "x86_64-unknown-linux-gnu", "aarch64": "aarch64-unknown-linux-gnu"},
	"redhat": {"x86_64": "x86_64-unknown-linux-gnu", "aarch64": "aarch64-unknown-linux-gnu"},
	"centos": {"x86_64": "x86_64-unknown-linux-gnu", "aarch64": "aarch64-unknown-linux-gnu"},
	"fedora": {"x86_64": "x86_64-unknown-linux-gnu", "aarch64": "aarch64-unknown-linux-gnu"},
	"alpine": {"x86_64": "x86_64-unknown-linux-musl"},
	"darwin": {"x86_64": "x86_64-apple-darwin", "arm64": "aarch64-apple-darwin", "aarch64": "aarch64-apple-darwin"},
	"macos":  {"x86_64": "x86_64-apple-darwin", "arm64": "aarch64-apple-darwin", "aarch64": "aarch64-apple-darwin"},
	"windows": {"x86_64": "x86_64-pc-windows-msvc", "amd64": "x86_64-pc-windows-msvc"},
}

// Prober executes an architecture-detection probe against a remote host
// (e.g. `uname -m`/`uname -s` over SSH, or the WinRM equivalent). The
// transport itself is an external collaborator (spec §1); forge only
// needs the resulting (archFamily, osFamily) pair.
type Prober interface {
	Probe(h plan.Host) (archFamily, osFamily string, err error)
}

// NativeTriple returns this process's own target triple, used for
// connection-method "local" hosts.
func NativeTriple() string {
	os := runtime.GOOS
	arch := runtime.GOARCH
	switch os {
	case "linux":
		if arch == "arm64" {
			return "aarch64-unknown-linux-gnu"
		}
		return "x86_64-unknown-linux-gnu"
	case "darwin":
		if arch == "arm64" {
			return "aarch64-apple-darwin"
		}
		return "x86_64-apple-darwin"
	case "windows":
		return "x86_64-pc-windows-msvc"
	default:
		return ""
	}
}

// ResolveArchitecture implements §4.2's resolution order without remote
// probing (step 4 requires the out-of-scope shell transport; callers that
// have a Prober should use ResolveArchitectureWithProber instead).
func ResolveArchitecture(h plan.Host) (triple string, unknown bool) {
	return ResolveArchitectureWithProber(h, nil)
}

// ResolveArchitectureWithProber is ResolveArchitecture with an optional
// Prober consulted for step 4 (SSH/WinRM probing) when probing is enabled
// by supplying a non-nil Prober.
func ResolveArchitectureWithProber(h plan.Host, prober Prober) (triple string, unknown bool) {
	if h.TargetTriple != "" {
		return h.TargetTriple, false
	}
	if h.DeclaredArch != "" && h.DeclaredOS != "" {
		if t, ok := lookupTriple(h.DeclaredOS, h.DeclaredArch); ok {
			return t, false
		}
	}
	if h.Connection.Method == plan.ConnectionLocal {
		if t := NativeTriple(); t != "" {
			return t, false
		}
	}
	if prober != nil && (h.Connection.Method == plan.ConnectionSSH || h.Connection.Method == plan.ConnectionWinRM) {
		archFamily, osFamily, err := prober.Probe(h)
		if err == nil {
			if t, ok := lookupTriple(osFamily, archFamily); ok {
				return t, false
			}
		}
	}
	return "", true
}

func lookupTriple(osFamily, arch string) (string, bool) {
	byArch, ok := archOSMapping[strings.ToLower(osFamily)]
	if !ok {
		return "", false
	}
	t, ok := byArch[strings.ToLower(arch)]
	return t, ok
}
