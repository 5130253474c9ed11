// Package buildengine materializes a synthesized Template into a scratch
// workspace and drives the compiler (or the zig-cc cross-build wrapper)
// to produce a binary, bounding concurrency and honoring timeouts (C6,
// Build Orchestrator).
package buildengine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/forgedeploy/forge/pkg/exec"
	"github.com/forgedeploy/forge/pkg/fs"
	"github.com/forgedeploy/forge/pkg/synth"
)

// engineVendorDir is the directory name a synthesized project's go.mod
// replace directive points at, relative to the scratch workspace root
// (§4.5 "emit a complete buildable native-code project").
const engineVendorDir = "forge-engine"

// DefaultTimeout bounds a single build invocation (§4.6).
const DefaultTimeout = 300 * time.Second

// zigTarget maps a target triple to the zig cc -target value (§1's
// triple→zig-target table).
var zigTarget = map[string]string{
	"x86_64-unknown-linux-gnu":  "x86_64-linux-gnu",
	"aarch64-unknown-linux-gnu": "aarch64-linux-gnu",
	"x86_64-unknown-linux-musl": "x86_64-linux-musl",
	"x86_64-apple-darwin":       "x86_64-macos",
	"aarch64-apple-darwin":      "aarch64-macos",
	"x86_64-pc-windows-msvc":    "x86_64-windows-gnu",
}

// goEnv maps a target triple to its GOOS/GOARCH pair.
var goEnv = map[string][2]string{
	"x86_64-unknown-linux-gnu":  {"linux", "amd64"},
	"aarch64-unknown-linux-gnu": {"linux", "arm64"},
	"x86_64-unknown-linux-musl": {"linux", "amd64"},
	"x86_64-apple-darwin":       {"darwin", "amd64"},
	"aarch64-apple-darwin":      {"darwin", "arm64"},
	"x86_64-pc-windows-msvc":    {"windows", "amd64"},
}

// Options configures a Builder.
type Options struct {
	Timeout     time.Duration
	Concurrency int
	ScratchDir  string // base dir for scratch workspaces; "" uses os.TempDir
	KeepScratch bool   // preserve scratch dirs after build (debug)
	Cmder       exec.Cmder
}

// DefaultOptions mirrors the spec's stated defaults (§4.6): timeout 300s,
// concurrency bound to the host's core count.
func DefaultOptions() Options {
	return Options{
		Timeout:     DefaultTimeout,
		Concurrency: runtime.NumCPU(),
		Cmder:       exec.DefaultCmder,
	}
}

// BuildError enumerates §7's build-error kinds.
type BuildError struct {
	Kind   string // compiler-not-found | wrapper-unavailable | compile-failure | timeout
	Detail string
	Cause  error
}

func (e *BuildError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("buildengine: %s: %s: %v", e.Kind, e.Detail, e.Cause)
	}
	return fmt.Sprintf("buildengine: %s: %s", e.Kind, e.Detail)
}

func (e *BuildError) Unwrap() error { return e.Cause }

// Builder orchestrates compilation of synthesized Templates, bounding the
// number of concurrent `go build`/`zig cc` invocations with a semaphore.
type Builder struct {
	opts Options
	sem  chan struct{}
}

// New constructs a Builder. A zero Options{} is replaced with
// DefaultOptions().
func New(opts Options) *Builder {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.NumCPU()
	}
	if opts.Cmder == nil {
		opts.Cmder = exec.DefaultCmder
	}
	return &Builder{opts: opts, sem: make(chan struct{}, opts.Concurrency)}
}

// Result is the product of a successful Build.
type Result struct {
	BinaryPath   string
	Binary       []byte
	ScratchDir   string
	UsedWrapper  bool
	TargetTriple string
}

// Build materializes tpl into a scratch workspace and compiles it for
// tpl.TargetTriple. A non-native target goes through the cross-build
// wrapper when it is available; otherwise it is compiled as pure Go
// (CGO_ENABLED=0) for that same triple, and Build fails with
// wrapper-unavailable only when the triple has no GOOS/GOARCH mapping.
// Build never switches to nativeTriple: a failed wrapper build is
// returned as compile-failure and is not retried with the native
// toolchain.
func (b *Builder) Build(ctx context.Context, tpl *synth.Template, nativeTriple string, wrapperAvailable bool) (*Result, error) {
	select {
	case b.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-b.sem }()

	scratch, err := fs.TempDir(b.opts.ScratchDir, "forge-build-")
	if err != nil {
		return nil, errors.Wrap(err, "buildengine: failed to create scratch workspace")
	}
	cleanup := func() {
		if !b.opts.KeepScratch {
			os.RemoveAll(scratch)
		}
	}

	if err := materialize(scratch, tpl); err != nil {
		cleanup()
		return nil, err
	}

	// main.go imports github.com/forgedeploy/forge/pkg/runtime: copy this
	// engine's own module source alongside the scratch workspace so the
	// generated go.mod's replace directive (renderGoMod) resolves it
	// without a published module or network access.
	if err := copyEngineSource(filepath.Join(scratch, engineVendorDir)); err != nil {
		cleanup()
		return nil, errors.Wrap(err, "buildengine: failed to vendor engine source")
	}

	triple := tpl.TargetTriple
	// The wrapper is only needed for targets whose modules require cgo;
	// a pure-Go, CGO_ENABLED=0 cross-compile reaches every well-known
	// triple without it, so prefer that path whenever the wrapper is
	// unavailable and fail outright only when the triple has no
	// GOOS/GOARCH mapping at all.
	useWrapper := triple != nativeTriple && wrapperAvailable
	if triple != nativeTriple && !wrapperAvailable {
		if _, ok := goEnv[triple]; !ok {
			cleanup()
			return nil, &BuildError{Kind: "wrapper-unavailable", Detail: triple}
		}
	}

	binPath := filepath.Join(scratch, outputName(triple))
	cctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	var runErr error
	if useWrapper && wrapperAvailable {
		runErr = b.runZigBuild(cctx, scratch, binPath, triple)
	} else {
		runErr = b.runGoBuild(cctx, scratch, binPath, triple)
	}
	if runErr != nil {
		cleanup()
		if cctx.Err() == context.DeadlineExceeded {
			return nil, &BuildError{Kind: "timeout", Detail: triple, Cause: runErr}
		}
		return nil, &BuildError{Kind: "compile-failure", Detail: triple, Cause: runErr}
	}

	data, err := os.ReadFile(binPath)
	if err != nil {
		cleanup()
		return nil, errors.Wrap(err, "buildengine: failed to read compiled binary")
	}

	return &Result{
		BinaryPath:   binPath,
		Binary:       data,
		ScratchDir:   scratch,
		UsedWrapper:  useWrapper && wrapperAvailable,
		TargetTriple: triple,
	}, nil
}

func (b *Builder) runGoBuild(ctx context.Context, scratch, binPath, triple string) error {
	env, ok := goEnv[triple]
	if !ok {
		return &BuildError{Kind: "compiler-not-found", Detail: "no GOOS/GOARCH mapping for " + triple}
	}
	cmd := b.opts.Cmder.Command("go", "build", "-o", binPath, ".")
	cmd.SetEnv(append(os.Environ(),
		"GOOS="+env[0], "GOARCH="+env[1], "CGO_ENABLED=0",
		"GOFLAGS=-mod=mod",
	)...)
	return runInDir(ctx, cmd, scratch)
}

func (b *Builder) runZigBuild(ctx context.Context, scratch, binPath, triple string) error {
	env, ok := goEnv[triple]
	if !ok {
		return &BuildError{Kind: "compiler-not-found", Detail: "no GOOS/GOARCH mapping for " + triple}
	}
	zt, ok := zigTarget[triple]
	if !ok {
		return &BuildError{Kind: "wrapper-unavailable", Detail: "no zig target for " + triple}
	}
	cmd := b.opts.Cmder.Command("go", "build", "-o", binPath, ".")
	cmd.SetEnv(append(os.Environ(),
		"GOOS="+env[0], "GOARCH="+env[1], "CGO_ENABLED=1",
		"CC=zig cc -target "+zt,
	)...)
	return runInDir(ctx, cmd, scratch)
}

// runInDir runs cmd with its working directory set to dir, respecting
// ctx's deadline by racing the blocking Run against ctx.Done and killing
// the process if the context wins, so an abandoned compiler invocation
// never outlives a build timeout. Cmd does not expose a working-
// directory setter, so this reaches into the concrete *exec.LocalCmd
// (the only production Cmder); test doubles that don't need a working
// directory are unaffected.
func runInDir(ctx context.Context, cmd exec.Cmd, dir string) error {
	if lc, ok := cmd.(*exec.LocalCmd); ok {
		lc.Dir = dir
	}
	done := make(chan error, 1)
	go func() { done <- exec.RunLoggingOutputOnFail(cmd) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = cmd.Kill()
		<-done
		return ctx.Err()
	}
}

func outputName(triple string) string {
	if env, ok := goEnv[triple]; ok && env[0] == "windows" {
		return "forge-agent.exe"
	}
	return "forge-agent"
}

// engineModuleRoot locates the root of this running binary's own module by
// walking up from the source location of this file. This only succeeds when
// forgec is built from a source checkout (the expected deployment, mirroring
// the teacher's own source-tree based build/dev flow) rather than shipped as
// a standalone binary with no accompanying source.
func engineModuleRoot() (string, error) {
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("buildengine: unable to determine this binary's own source location")
	}
	root := filepath.Dir(filepath.Dir(filepath.Dir(thisFile))) // .../pkg/buildengine/buildengine.go -> root
	if _, err := os.Stat(filepath.Join(root, "go.mod")); err != nil {
		return "", errors.Wrapf(err, "buildengine: no go.mod found at %s alongside running source", root)
	}
	return root, nil
}

// copyEngineSource copies this module's go.mod and pkg/ tree into dst, so a
// synthesized project can `replace github.com/forgedeploy/forge => ./<dst>`
// and resolve pkg/runtime (and its own transitive dependencies) without
// publishing the engine module or reaching the network. cmd/, _examples/,
// and dotfiles are not needed by pkg/runtime's import graph and are skipped.
func copyEngineSource(dst string) error {
	root, err := engineModuleRoot()
	if err != nil {
		return err
	}
	for _, rel := range []string{"go.mod", "go.sum"} {
		src := filepath.Join(root, rel)
		data, err := os.ReadFile(src)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.Wrapf(err, "buildengine: failed to read %s", rel)
		}
		if err := os.MkdirAll(dst, 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dst, rel), data, 0o644); err != nil {
			return errors.Wrapf(err, "buildengine: failed to write %s", rel)
		}
	}
	return filepath.Walk(filepath.Join(root, "pkg"), func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !strings.HasSuffix(rel, ".go") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "buildengine: failed to read %s", rel)
		}
		return os.WriteFile(target, data, 0o644)
	})
}

// materialize writes tpl's Files into dir.
func materialize(dir string, tpl *synth.Template) error {
	for rel, content := range tpl.Files {
		dst := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return errors.Wrapf(err, "buildengine: failed to create directory for %s", rel)
		}
		if err := os.WriteFile(dst, content, 0o644); err != nil {
			return errors.Wrapf(err, "buildengine: failed to write %s", rel)
		}
	}
	return nil
}
