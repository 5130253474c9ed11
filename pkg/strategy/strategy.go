// Package strategy partitions a Plan's hosts into compile-and-deploy
// BinaryGroups and remote-shell ShellGroups, consulting Capabilities and
// the module-compatibility registry (C4, Deployment Strategist).
package strategy

import (
	"sort"
	"time"

	"github.com/forgedeploy/forge/pkg/capability"
	"github.com/forgedeploy/forge/pkg/inventory"
	"github.com/forgedeploy/forge/pkg/plan"
)

// ShellReason explains why a ShellGroup exists instead of a BinaryGroup.
type ShellReason string

const (
	ReasonUnsupportedTarget   ShellReason = "unsupported-target"
	ReasonCompilationFailure  ShellReason = "compilation-failure"
	ReasonModuleIncompatible  ShellReason = "module-incompatible"
	ReasonUserForced          ShellReason = "user-forced"
)

// BinaryGroup ties a target triple to the hosts and tasks that will be
// compiled into a single generated binary.
type BinaryGroup struct {
	GroupID      string
	TargetTriple string
	Hosts        []string
	Tasks        []plan.Task
}

// ShellGroup ties a fallback reason to the hosts and tasks that will be
// driven over the remote-shell transport instead.
type ShellGroup struct {
	GroupID string
	Hosts   []string
	Tasks   []plan.Task
	Reason  ShellReason
}

// DeploymentPlan is the partition of a Plan's hosts produced by Plan().
type DeploymentPlan struct {
	BinaryGroups []BinaryGroup
	ShellGroups  []ShellGroup
}

// Options configures the strategist beyond what the Plan's own
// PlanningOptions carries (e.g. operator-overridable threshold/ratio).
type Options struct {
	BinaryThreshold int
	CostBenefitRatio float64
	Optimization    plan.OptimizationMode
}

// DefaultOptions mirrors the spec's stated defaults (§4.4).
func DefaultOptions() Options {
	return Options{BinaryThreshold: 5, CostBenefitRatio: 2.0, Optimization: plan.OptimizationAuto}
}

const fixedToolchainStartupCost = 5 * time.Second

// Decide runs the §4.4 algorithm over p's hosts, as resolved by
// inventory.Resolve, against caps.
func Decide(p *plan.Plan, resolved []inventory.ResolvedHost, caps capability.Capabilities, opts Options) DeploymentPlan {
	if opts.BinaryThreshold <= 0 {
		opts.BinaryThreshold = DefaultOptions().BinaryThreshold
	}
	if opts.CostBenefitRatio <= 0 {
		opts.CostBenefitRatio = DefaultOptions().CostBenefitRatio
	}

	if p.PlanningOptions.ForceShell || opts.Optimization == plan.OptimizationOff {
		return allShell(p, ReasonUserForced)
	}

	hostTriple := map[string]string{}
	hostUnknown := map[string]bool{}
	for _, rh := range resolved {
		hostTriple[rh.Host.Name] = rh.TargetTriple
		hostUnknown[rh.Host.Name] = rh.ArchitectureUnknown
	}

	allTasks := collectTasks(p)

	byTriple := map[string][]string{}
	for _, h := range p.Hosts {
		if hostUnknown[h.Name] || hostTriple[h.Name] == "" {
			continue
		}
		byTriple[hostTriple[h.Name]] = append(byTriple[hostTriple[h.Name]], h.Name)
	}

	var dp DeploymentPlan
	shellHosts := map[string][]ShellGroup{}

	triples := make([]string, 0, len(byTriple))
	for t := range byTriple {
		triples = append(triples, t)
	}
	sort.Slice(triples, func(i, j int) bool {
		if triples[i] != triples[j] {
			return triples[i] < triples[j]
		}
		return len(byTriple[triples[i]]) > len(byTriple[triples[j]])
	})

	for _, triple := range triples {
		hosts := byTriple[triple]
		sort.Strings(hosts)

		if !caps.Reaches(triple) {
			shellHosts[triple] = append(shellHosts[triple], ShellGroup{
				GroupID: "shell-" + triple,
				Hosts:   hosts,
				Tasks:   tasksForHosts(allTasks, hosts),
				Reason:  ReasonUnsupportedTarget,
			})
			continue
		}

		var compatible, incompatible []plan.Task
		for _, t := range tasksForHosts(allTasks, hosts) {
			c := Classify(t.Module)
			if c.Compat == Incompatible {
				incompatible = append(incompatible, t)
			} else {
				compatible = append(compatible, t)
			}
		}
		if len(incompatible) > 0 {
			shellHosts[triple] = append(shellHosts[triple], ShellGroup{
				GroupID: "shell-incompatible-" + triple,
				Hosts:   hosts,
				Tasks:   incompatible,
				Reason:  ReasonModuleIncompatible,
			})
		}

		threshold := effectiveThreshold(opts)
		if len(compatible) < threshold {
			shellHosts[triple] = append(shellHosts[triple], ShellGroup{
				GroupID: "shell-belowthreshold-" + triple,
				Hosts:   hosts,
				Tasks:   compatible,
				Reason:  ReasonCompilationFailure,
			})
			continue
		}

		if opts.Optimization == plan.OptimizationAuto || opts.Optimization == plan.OptimizationAggressive {
			benefit, cost := costBenefit(compatible, len(hosts))
			ratio := opts.CostBenefitRatio
			if opts.Optimization == plan.OptimizationAggressive {
				ratio = ratio / 2
			}
			if cost > 0 && benefit/cost < ratio && !p.PlanningOptions.ForceBinary {
				shellHosts[triple] = append(shellHosts[triple], ShellGroup{
					GroupID: "shell-costbenefit-" + triple,
					Hosts:   hosts,
					Tasks:   compatible,
					Reason:  ReasonCompilationFailure,
				})
				continue
			}
		} else if opts.Optimization == plan.OptimizationConservative {
			ratio := float64(len(compatible)) / float64(len(compatible)+len(incompatible))
			if ratio < 0.95 {
				shellHosts[triple] = append(shellHosts[triple], ShellGroup{
					GroupID: "shell-conservative-" + triple,
					Hosts:   hosts,
					Tasks:   compatible,
					Reason:  ReasonModuleIncompatible,
				})
				continue
			}
		}

		dp.BinaryGroups = append(dp.BinaryGroups, BinaryGroup{
			GroupID:      "binary-" + triple,
			TargetTriple: triple,
			Hosts:        hosts,
			Tasks:        compatible,
		})
	}

	// hosts whose architecture is unknown always fall back to shell
	var unresolvedHosts []string
	for _, h := range p.Hosts {
		if hostUnknown[h.Name] {
			unresolvedHosts = append(unresolvedHosts, h.Name)
		}
	}
	if len(unresolvedHosts) > 0 {
		sort.Strings(unresolvedHosts)
		dp.ShellGroups = append(dp.ShellGroups, ShellGroup{
			GroupID: "shell-unknown-arch",
			Hosts:   unresolvedHosts,
			Tasks:   tasksForHosts(allTasks, unresolvedHosts),
			Reason:  ReasonUnsupportedTarget,
		})
	}
	for _, triple := range triples {
		dp.ShellGroups = append(dp.ShellGroups, shellHosts[triple]...)
	}

	return dp
}

func effectiveThreshold(opts Options) int {
	if opts.Optimization == plan.OptimizationAggressive {
		t := opts.BinaryThreshold / 2
		if t < 1 {
			t = 1
		}
		return t
	}
	return opts.BinaryThreshold
}

// costBenefit returns (benefit, cost) per §4.4: benefit is the sum of
// estimated task durations across the host count; cost is a fixed
// toolchain start-up cost plus a size-proportional (log-ish, approximated
// linearly here since task counts in a single group are small) compile
// time estimate.
func costBenefit(tasks []plan.Task, hostCount int) (benefit, cost float64) {
	var totalTaskTime time.Duration
	for _, t := range tasks {
		totalTaskTime += t.EstimatedDuration
	}
	benefit = totalTaskTime.Seconds() * float64(hostCount)
	compileEstimate := fixedToolchainStartupCost + time.Duration(len(tasks))*200*time.Millisecond
	cost = compileEstimate.Seconds()
	return benefit, cost
}

func collectTasks(p *plan.Plan) []plan.Task {
	var all []plan.Task
	for _, play := range p.Plays {
		for _, batch := range play.Batches {
			all = append(all, batch.Tasks...)
		}
	}
	return all
}

func tasksForHosts(all []plan.Task, hosts []string) []plan.Task {
	hostSet := map[string]bool{}
	for _, h := range hosts {
		hostSet[h] = true
	}
	var out []plan.Task
	for _, t := range all {
		for _, h := range t.TargetHosts {
			if hostSet[h] {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

func allShell(p *plan.Plan, reason ShellReason) DeploymentPlan {
	hosts := make([]string, 0, len(p.Hosts))
	for _, h := range p.Hosts {
		hosts = append(hosts, h.Name)
	}
	sort.Strings(hosts)
	return DeploymentPlan{
		ShellGroups: []ShellGroup{{
			GroupID: "shell-all",
			Hosts:   hosts,
			Tasks:   collectTasks(p),
			Reason:  reason,
		}},
	}
}
