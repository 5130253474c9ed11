// Package synth emits a complete buildable Go project embedding a plan
// slice, its static files, its modules, and its build manifest for a
// single (BinaryGroup, optimization profile) pair (C5, Template
// Synthesizer).
package synth

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"text/template"

	"github.com/google/uuid"
	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/sosedoff/ansible-vault-go"

	"github.com/forgedeploy/forge/pkg/plan"
	"github.com/forgedeploy/forge/pkg/strategy"
)

// synthesizerVersion is bumped whenever the emitted project's shape
// changes in a way that should bust every existing cache entry.
const synthesizerVersion = "1"

// OptimizationProfile pins compiler flags at the template level (§6.4).
type OptimizationProfile string

const (
	ProfileDebug                 OptimizationProfile = "debug"
	ProfileRelease               OptimizationProfile = "release"
	ProfileReleaseWithDebugInfo  OptimizationProfile = "release-with-debuginfo"
	ProfileMinimalSize           OptimizationProfile = "minimal-size"
)

// CompileFlags returns the Go build flags implied by profile.
func CompileFlags(profile OptimizationProfile) []string {
	switch profile {
	case ProfileRelease:
		return []string{"-trimpath", "-ldflags=-s -w"}
	case ProfileReleaseWithDebugInfo:
		return []string{"-trimpath"}
	case ProfileMinimalSize:
		return []string{"-trimpath", "-ldflags=-s -w", "-gcflags=all=-l"}
	case ProfileDebug:
		return []string{"-gcflags=all=-N -l"}
	default:
		return nil
	}
}

// Inputs bundles everything Synthesize needs beyond the group/triple/
// profile triple, so that Fingerprint can hash exactly what influenced
// the output.
type Inputs struct {
	Group       strategy.BinaryGroup
	Triple      string
	Profile     OptimizationProfile
	PlanSlice   *plan.Plan // the normalized plan restricted to Group's hosts/tasks
	StaticFiles map[string][]byte
	Secrets     map[string]string
	SecretsKey  string // passphrase for the embedded ansible-vault bundle
	Runtime     RuntimeConfig
}

// RuntimeConfig is embedded into every generated project (§4.5.5).
type RuntimeConfig struct {
	ReportingEndpoint string
	ExecutionTimeout  string // Go duration string, e.g. "5m"
	HeartbeatInterval string
	CleanupOnComplete bool
	LogLevel          string
}

// Template is the synthesized project (§3).
type Template struct {
	TemplateID      string
	Fingerprint     string
	Files           map[string][]byte
	BuildManifest   []byte
	EmbeddedPlan    []byte
	StaticFiles     map[string][]byte
	SecretsBundle   []byte
	TargetTriple    string
	CompilationFlags []string
}

// SynthesisError enumerates §7's synthesis-error kinds.
type SynthesisError struct {
	Kind string // unknown-module | static-file-read-failure | secret-key-missing | fingerprint-collision
	Detail string
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synth: %s: %s", e.Kind, e.Detail)
}

// Synthesize produces a Template for in. Apart from the secrets bundle,
// the byte-for-byte output is deterministic for identical Inputs (§4.5
// determinism contract): random identifiers are derived from the
// fingerprint, never from time or a process-local RNG. The secrets bundle
// is not deterministic: vault encryption draws a fresh random salt, so
// SecretsBundle and embedded/secrets.vault differ between calls whenever
// Secrets is non-empty.
func Synthesize(in Inputs) (*Template, error) {
	modules := referencedModules(in.Group.Tasks)
	for _, m := range modules {
		if strategy.Classify(m).Compat == strategy.Incompatible {
			return nil, &SynthesisError{Kind: "unknown-module", Detail: m}
		}
	}

	planJSON, err := json.Marshal(in.PlanSlice)
	if err != nil {
		return nil, errors.Wrap(err, "synth: failed to marshal plan slice")
	}

	fp, err := Fingerprint(in, modules)
	if err != nil {
		return nil, err
	}

	// deterministic UUID derived from the fingerprint, not uuid.New(),
	// to satisfy the determinism contract.
	templateID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(fp)).String()

	var secretsBundle []byte
	if len(in.Secrets) > 0 {
		if in.SecretsKey == "" {
			return nil, &SynthesisError{Kind: "secret-key-missing", Detail: "Inputs.SecretsKey is empty but Secrets is non-empty"}
		}
		secretsBundle, err = encryptSecrets(in.Secrets, in.SecretsKey)
		if err != nil {
			return nil, errors.Wrap(err, "synth: failed to encrypt secrets bundle")
		}
	}

	manifest, err := buildManifest(in, modules)
	if err != nil {
		return nil, err
	}

	runtimeConfigJSON, err := json.Marshal(struct {
		ReportingEndpoint string `json:"reporting_endpoint"`
		ExecutionTimeout  string `json:"execution_timeout"`
		HeartbeatInterval string `json:"heartbeat_interval"`
		CleanupOnComplete bool   `json:"cleanup_on_complete"`
		LogLevel          string `json:"log_level"`
	}{in.Runtime.ReportingEndpoint, in.Runtime.ExecutionTimeout, in.Runtime.HeartbeatInterval, in.Runtime.CleanupOnComplete, in.Runtime.LogLevel})
	if err != nil {
		return nil, errors.Wrap(err, "synth: failed to marshal runtime config")
	}

	files := map[string][]byte{}
	files["go.mod"] = []byte(renderGoMod())
	mainGo, err := renderMain(in, modules)
	if err != nil {
		return nil, err
	}
	files["main.go"] = mainGo
	files["build.toml"] = manifest
	files["embedded/plan.json"] = planJSON
	files["embedded/runtime.json"] = runtimeConfigJSON
	if secretsBundle != nil {
		files["embedded/secrets.vault"] = secretsBundle
	}
	for vpath, content := range in.StaticFiles {
		files["embedded/static/"+vpath] = content
	}

	return &Template{
		TemplateID:       templateID,
		Fingerprint:      fp,
		Files:            files,
		BuildManifest:    manifest,
		EmbeddedPlan:     planJSON,
		StaticFiles:      in.StaticFiles,
		SecretsBundle:    secretsBundle,
		TargetTriple:     in.Triple,
		CompilationFlags: CompileFlags(in.Profile),
	}, nil
}

// Fingerprint computes a deterministic digest over Synthesize's inputs,
// excluding wall-clock time, so that identical (plan slice, triple,
// profile, synthesizer version) always yields the same value (§4.5).
func Fingerprint(in Inputs, modules []string) (string, error) {
	planFP, err := plan.Fingerprint(in.PlanSlice)
	if err != nil {
		return "", errors.Wrap(err, "synth: failed to fingerprint plan slice")
	}
	h := sha256.New()
	fmt.Fprintf(h, "v%s|%s|%s|%s|", synthesizerVersion, planFP, in.Triple, in.Profile)
	for _, m := range modules {
		fmt.Fprintf(h, "%s,", m)
	}
	staticKeys := make([]string, 0, len(in.StaticFiles))
	for k := range in.StaticFiles {
		staticKeys = append(staticKeys, k)
	}
	sort.Strings(staticKeys)
	for _, k := range staticKeys {
		h.Write([]byte(k))
		h.Write(in.StaticFiles[k])
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func referencedModules(tasks []plan.Task) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range tasks {
		if !seen[t.Module] {
			seen[t.Module] = true
			out = append(out, t.Module)
		}
	}
	sort.Strings(out)
	return out
}

func encryptSecrets(secrets map[string]string, passphrase string) ([]byte, error) {
	keys := make([]string, 0, len(secrets))
	for k := range secrets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var buf bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&buf, "%s=%s\n", k, secrets[k])
	}
	encrypted, err := vault.Encrypt(buf.String(), passphrase)
	if err != nil {
		return nil, err
	}
	return []byte(encrypted), nil
}

func buildManifest(in Inputs, modules []string) ([]byte, error) {
	tree, err := toml.TreeFromMap(map[string]interface{}{
		"target_triple":      in.Triple,
		"optimization_profile": string(in.Profile),
		"modules":            modules,
		"build_flags":        CompileFlags(in.Profile),
	})
	if err != nil {
		return nil, errors.Wrap(err, "synth: failed to build manifest tree")
	}
	s, err := tree.ToTomlString()
	if err != nil {
		return nil, errors.Wrap(err, "synth: failed to render manifest")
	}
	return []byte(s), nil
}

// engineModulePath and engineVendorDir must track buildengine's own
// module path and the relative directory it copies the engine source into
// (buildengine.engineVendorDir) — pkg/synth and pkg/buildengine can't
// import each other (synth has no buildengine dependency), so the two
// names are kept in sync by convention, not by a shared import.
const (
	engineModulePath = "github.com/forgedeploy/forge"
	engineVendorDir  = "forge-engine"
)

// renderGoMod emits the generated project's go.mod. It requires and
// replaces the engine's own module so the generated main.go's import of
// pkg/runtime resolves against the copy buildengine.materialize places
// alongside the scratch workspace (§4.5 "emit a complete buildable
// native-code project"), rather than a published module none of this
// corpus ever ships.
func renderGoMod() string {
	return fmt.Sprintf(
		"module forge-deployment\n\ngo 1.21\n\nrequire %s v0.0.0-00010101000000-000000000000\n\nreplace %s => ./%s\n",
		engineModulePath, engineModulePath, engineVendorDir,
	)
}

var mainTemplate = template.Must(template.New("main").Parse(`// Code generated by forge's template synthesizer. DO NOT EDIT.
package main

import (
	_ "embed"
	"os"

	"github.com/forgedeploy/forge/pkg/runtime"
)

//go:embed embedded/plan.json
var embeddedPlan []byte

//go:embed embedded/runtime.json
var embeddedRuntimeConfig []byte

func main() {
	os.Exit(runtime.RunEmbedded(embeddedPlan, embeddedRuntimeConfig))
}
`))

func renderMain(in Inputs, modules []string) ([]byte, error) {
	var buf bytes.Buffer
	if err := mainTemplate.Execute(&buf, struct {
		Modules []string
	}{Modules: modules}); err != nil {
		return nil, errors.Wrap(err, "synth: failed to render main.go")
	}
	return buf.Bytes(), nil
}
