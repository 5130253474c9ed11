// Package deploy implements `forge deploy`, the primary action that
// drives the full pipeline: parse, resolve inventory, detect
// capabilities, decide a deployment strategy, synthesize and build a
// project per binary group, and publish the resulting binaries (C1–C8).
package deploy

import (
	"context"
	"fmt"
	"os"
	osexec "os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/forgedeploy/forge/pkg/buildengine"
	"github.com/forgedeploy/forge/pkg/cache"
	"github.com/forgedeploy/forge/pkg/capability"
	"github.com/forgedeploy/forge/pkg/cmd"
	"github.com/forgedeploy/forge/pkg/cmd/forge/checkcapabilities"
	"github.com/forgedeploy/forge/pkg/config"
	forgeerrors "github.com/forgedeploy/forge/pkg/errors"
	"github.com/forgedeploy/forge/pkg/internal/util/cli"
	"github.com/forgedeploy/forge/pkg/inventory"
	"github.com/forgedeploy/forge/pkg/log"
	"github.com/forgedeploy/forge/pkg/plan"
	"github.com/forgedeploy/forge/pkg/publish"
	"github.com/forgedeploy/forge/pkg/strategy"
	"github.com/forgedeploy/forge/pkg/synth"
)

// groupOutcome holds one BinaryGroup's build/publish result so the
// concurrent build fan-out in runE can report per-group status after
// every group has finished.
type groupOutcome struct {
	group  strategy.BinaryGroup
	result *publish.Result
	err    error
}

type flagpole struct {
	Inventory         string
	CheckCapabilities bool
	Optimization      string
	ForceBinary       bool
	ForceShell        bool
	DryRun            bool
	OutputDir         string
	LocalhostTest     bool
}

// NewCommand returns a new cobra.Command for `forge deploy`.
func NewCommand(logger log.Logger, streams cmd.IOStreams) *cobra.Command {
	flags := &flagpole{}
	c := &cobra.Command{
		Args:  cobra.ExactArgs(1),
		Use:   "deploy <plan-path>",
		Short: "compile and deploy a plan",
		Long:  "parses a plan document, decides per host whether to compile a native binary or fall back to a remote shell, and builds/publishes the resulting binaries",
		RunE: func(c *cobra.Command, args []string) error {
			return runE(logger, streams, flags, args[0])
		},
	}
	c.Flags().StringVarP(&flags.Inventory, "inventory", "i", "", "path to a separate inventory document; unset uses the plan's embedded hosts")
	c.Flags().BoolVar(&flags.CheckCapabilities, "check-capabilities", false, "print the capability report and exit without deploying")
	c.Flags().StringVar(&flags.Optimization, "optimization", "", "auto|aggressive|conservative|off; unset uses the plan's own setting")
	c.Flags().BoolVar(&flags.ForceBinary, "force-binary", false, "override the strategist: compile every eligible host")
	c.Flags().BoolVar(&flags.ForceShell, "force-shell", false, "override the strategist: never compile, always fall back to shell")
	c.Flags().BoolVar(&flags.DryRun, "dry-run", false, "print the deployment plan without building")
	c.Flags().StringVar(&flags.OutputDir, "output-dir", "", "destination directory for published binaries; unset uses forge.toml's output_dir")
	c.Flags().BoolVar(&flags.LocalhostTest, "localhost-test", false, "build for the native triple and execute the result locally")
	return c
}

func runE(logger log.Logger, streams cmd.IOStreams, flags *flagpole, planPath string) error {
	if flags.ForceBinary && flags.ForceShell {
		return &cmd.ExitError{Code: 1, Err: errors.New("deploy: --force-binary and --force-shell are mutually exclusive")}
	}

	configPath := os.Getenv("FORGE_CONFIG")
	if configPath == "" {
		configPath = "forge.toml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return &cmd.ExitError{Code: 1, Err: err}
	}

	data, err := os.ReadFile(planPath)
	if err != nil {
		return &cmd.ExitError{Code: 1, Err: errors.Wrapf(err, "deploy: failed to read plan %s", planPath)}
	}
	p, err := plan.Parse(data)
	if err != nil {
		return &cmd.ExitError{Code: 1, Err: errors.Wrap(err, "deploy: plan parse failed")}
	}
	if err := plan.Validate(p); err != nil {
		return &cmd.ExitError{Code: 1, Err: errors.Wrap(err, "deploy: plan validation failed")}
	}
	if flags.Inventory != "" {
		invData, err := os.ReadFile(flags.Inventory)
		if err != nil {
			return &cmd.ExitError{Code: 1, Err: errors.Wrapf(err, "deploy: failed to read inventory %s", flags.Inventory)}
		}
		invPlan, err := plan.Parse(invData)
		if err != nil {
			return &cmd.ExitError{Code: 1, Err: errors.Wrap(err, "deploy: inventory parse failed")}
		}
		p.Hosts = invPlan.Hosts
		p.Groups = invPlan.Groups
	}
	if flags.Optimization != "" {
		p.PlanningOptions.Optimization = plan.OptimizationMode(flags.Optimization)
	}
	if flags.ForceBinary {
		p.PlanningOptions.ForceBinary = true
	}
	if flags.ForceShell {
		p.PlanningOptions.ForceShell = true
	}

	resolved, err := inventory.Resolve(p)
	if err != nil {
		return &cmd.ExitError{Code: 1, Err: errors.Wrap(err, "deploy: inventory resolution failed")}
	}

	caps := capability.Detect()
	if flags.CheckCapabilities {
		checkcapabilities.Report(streams.Out, caps)
		return nil
	}

	opts := strategy.DefaultOptions()
	if p.PlanningOptions.Optimization != "" {
		opts.Optimization = p.PlanningOptions.Optimization
	}
	if p.PlanningOptions.BinaryThreshold > 0 {
		opts.BinaryThreshold = p.PlanningOptions.BinaryThreshold
	}
	opts.CostBenefitRatio = cfg.CostBenefitRatio

	dp := strategy.Decide(p, resolved, caps, opts)

	if p.PlanningOptions.ForceBinary && len(dp.ShellGroups) > 0 {
		return &cmd.ExitError{Code: 2, Err: errors.New("deploy: --force-binary requested but capabilities cannot reach every host")}
	}

	if flags.DryRun {
		printPlan(streams, dp)
		return nil
	}

	outputDir := flags.OutputDir
	if outputDir == "" {
		outputDir = cfg.OutputDir
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return &cmd.ExitError{Code: 4, Err: errors.Wrap(err, "deploy: failed to create output directory")}
	}

	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(os.TempDir(), "forge-cache")
	}
	artifactCache, err := cache.Open(cacheDir, cfg.CacheMaxBytes)
	if err != nil {
		return &cmd.ExitError{Code: 4, Err: errors.Wrap(err, "deploy: failed to open artifact cache")}
	}

	builder := buildengine.New(buildengine.Options{
		Timeout:     time.Duration(cfg.BuildTimeoutSeconds) * time.Second,
		Concurrency: cfg.BuildConcurrency,
	})

	profile := profileFor(p.PlanningOptions.Optimization)

	// Every BinaryGroup is independent, so build them concurrently; each
	// buildengine.Builder call is itself bounded by its own semaphore, and
	// the wait group holds runE here until every group has finished,
	// however long its build takes.
	outcomes := make([]groupOutcome, len(dp.BinaryGroups))
	status := cli.NewStatus(logger)
	status.Start(fmt.Sprintf("Compiling %d binary group(s)", len(dp.BinaryGroups)))
	var wg sync.WaitGroup
	for i, group := range dp.BinaryGroups {
		i, group := i, group
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := buildGroup(builder, artifactCache, group, profile, p, cfg, outputDir, logger)
			outcomes[i] = groupOutcome{group: group, result: res, err: err}
		}()
	}
	wg.Wait()

	var builtCount int
	var failures []error
	for _, o := range outcomes {
		if o.err != nil {
			logger.Errorf("deploy: group %s failed: %v", o.group.GroupID, o.err)
			failures = append(failures, errors.Wrapf(o.err, "group %s", o.group.GroupID))
			continue
		}
		builtCount++
		if flags.LocalhostTest && o.group.TargetTriple == caps.NativeTriple {
			if rc := runLocally(o.result.Path); rc != 0 {
				return &cmd.ExitError{Code: 5, Err: errors.Errorf("deploy: localhost-test run of %s exited %d", o.result.Path, rc)}
			}
		}
		logger.V(0).Infof("published %s (%s, %d bytes)", o.result.Path, o.result.Strategy, o.result.Size)
	}
	status.End(builtCount == len(dp.BinaryGroups))

	if len(dp.BinaryGroups) > 0 && builtCount == 0 {
		return &cmd.ExitError{Code: 3, Err: errors.Wrap(forgeerrors.NewAggregate(failures), "deploy: compilation failed for every binary group")}
	}

	for _, sg := range dp.ShellGroups {
		logger.Warnf("group %s (%d hosts) falls back to the remote-shell transport: %s", sg.GroupID, len(sg.Hosts), sg.Reason)
	}

	return nil
}

func buildGroup(builder *buildengine.Builder, artifactCache *cache.Cache, group strategy.BinaryGroup, profile synth.OptimizationProfile, p *plan.Plan, cfg config.Config, outputDir string, logger log.Logger) (*publish.Result, error) {
	slice := sliceFor(p, group)

	in := synth.Inputs{
		Group:     group,
		Triple:    group.TargetTriple,
		Profile:   profile,
		PlanSlice: slice,
		Runtime: synth.RuntimeConfig{
			ReportingEndpoint: cfg.ReportingEndpoint,
			ExecutionTimeout:  "5m",
			HeartbeatInterval: "30s",
			CleanupOnComplete: true,
			LogLevel:          cfg.LogLevel,
		},
	}
	tpl, err := synth.Synthesize(in)
	if err != nil {
		return nil, errors.Wrap(err, "synthesize")
	}

	caps := capability.Detect()
	key := cache.Key{TemplateFingerprint: tpl.Fingerprint, TargetTriple: group.TargetTriple, OptimizationProfile: string(profile)}

	data, err := artifactCache.GetOrBuild(key, func() ([]byte, error) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.BuildTimeoutSeconds)*time.Second)
		defer cancel()
		res, err := builder.Build(ctx, tpl, caps.NativeTriple, caps.CrossWrapperPresent)
		if err != nil {
			return nil, errors.Wrap(err, "build")
		}
		return res.Binary, nil
	})
	if err != nil {
		return nil, err
	}

	targetOS := ""
	if env, ok := osFor(group.TargetTriple); ok {
		targetOS = env
	}
	return publish.Publish(publish.Request{
		Key:      key,
		Data:     data,
		DestDir:  outputDir,
		BaseName: group.GroupID,
		TargetOS: targetOS,
		Cache:    artifactCache,
	})
}

// sliceFor restricts p to the hosts and tasks strategy.Decide assigned it,
// so the embedded runtime in the synthesized binary only carries the
// work relevant to the hosts it will run on.
func sliceFor(p *plan.Plan, group strategy.BinaryGroup) *plan.Plan {
	hostSet := map[string]bool{}
	for _, h := range group.Hosts {
		hostSet[h] = true
	}
	slice := *p
	slice.Hosts = nil
	for _, h := range p.Hosts {
		if hostSet[h.Name] {
			slice.Hosts = append(slice.Hosts, h)
		}
	}
	taskSet := map[string]bool{}
	for _, t := range group.Tasks {
		taskSet[t.TaskID] = true
	}
	var plays []plan.Play
	for _, play := range p.Plays {
		np := play
		np.Batches = nil
		for _, b := range play.Batches {
			nb := b
			nb.Tasks = nil
			for _, t := range b.Tasks {
				if taskSet[t.TaskID] {
					nb.Tasks = append(nb.Tasks, t)
				}
			}
			if len(nb.Tasks) > 0 {
				np.Batches = append(np.Batches, nb)
			}
		}
		if len(np.Batches) > 0 {
			plays = append(plays, np)
		}
	}
	slice.Plays = plays
	return &slice
}

func profileFor(mode plan.OptimizationMode) synth.OptimizationProfile {
	switch mode {
	case plan.OptimizationAggressive:
		return synth.ProfileRelease
	case plan.OptimizationConservative:
		return synth.ProfileReleaseWithDebugInfo
	default:
		return synth.ProfileRelease
	}
}

func osFor(triple string) (string, bool) {
	switch triple {
	case "x86_64-apple-darwin", "aarch64-apple-darwin":
		return "darwin", true
	case "x86_64-pc-windows-msvc":
		return "windows", true
	case "x86_64-unknown-linux-gnu", "aarch64-unknown-linux-gnu", "x86_64-unknown-linux-musl":
		return "linux", true
	default:
		return "", false
	}
}

func runLocally(path string) int {
	cmdProc := osexec.Command(path)
	cmdProc.Stdout = os.Stdout
	cmdProc.Stderr = os.Stderr
	if err := cmdProc.Run(); err != nil {
		if exitErr, ok := err.(*osexec.ExitError); ok {
			return exitErr.ExitCode()
		}
		return 1
	}
	return 0
}

func printPlan(streams cmd.IOStreams, dp strategy.DeploymentPlan) {
	fmt.Fprintf(streams.Out, "binary groups (%d):\n", len(dp.BinaryGroups))
	for _, g := range dp.BinaryGroups {
		fmt.Fprintf(streams.Out, "  - %s triple=%s hosts=%v tasks=%d\n", g.GroupID, g.TargetTriple, g.Hosts, len(g.Tasks))
	}
	fmt.Fprintf(streams.Out, "shell groups (%d):\n", len(dp.ShellGroups))
	for _, g := range dp.ShellGroups {
		fmt.Fprintf(streams.Out, "  - %s reason=%s hosts=%v tasks=%d\n", g.GroupID, g.Reason, g.Hosts, len(g.Tasks))
	}
}
