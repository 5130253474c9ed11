package strategy

import (
	"testing"
	"time"

	"github.com/forgedeploy/forge/pkg/capability"
	"github.com/forgedeploy/forge/pkg/internal/assert"
	"github.com/forgedeploy/forge/pkg/inventory"
	"github.com/forgedeploy/forge/pkg/plan"
)

func makePlanSingleTriple(triple string, hostCount, compatibleTasks, incompatibleTasks int) *plan.Plan {
	p := &plan.Plan{}
	var hosts []string
	for i := 0; i < hostCount; i++ {
		name := "h" + string(rune('a'+i))
		p.Hosts = append(p.Hosts, plan.Host{Name: name, TargetTriple: triple})
		hosts = append(hosts, name)
	}
	var tasks []plan.Task
	for i := 0; i < compatibleTasks; i++ {
		tasks = append(tasks, plan.Task{TaskID: "ct" + string(rune('a'+i)), Module: "command", TargetHosts: hosts, EstimatedDuration: 10 * time.Second})
	}
	for i := 0; i < incompatibleTasks; i++ {
		tasks = append(tasks, plan.Task{TaskID: "it" + string(rune('a'+i)), Module: "totally-unknown-module", TargetHosts: hosts})
	}
	p.Plays = []plan.Play{{
		PlayID: "p1",
		Hosts:  hosts,
		Batches: []plan.Batch{{
			BatchID: "b1",
			Hosts:   hosts,
			Tasks:   tasks,
		}},
	}}
	return p
}

func TestDecideShellOnlyWhenNotReady(t *testing.T) {
	p := makePlanSingleTriple("x86_64-unknown-linux-gnu", 1, 3, 0)
	resolved, _ := inventory.Resolve(p)
	caps := capability.Capabilities{Readiness: capability.NotReady}
	dp := Decide(p, resolved, caps, DefaultOptions())
	if len(dp.BinaryGroups) != 0 {
		t.Fatalf("expected zero binary groups, got %d", len(dp.BinaryGroups))
	}
	if len(dp.ShellGroups) != 1 || dp.ShellGroups[0].Reason != ReasonUnsupportedTarget {
		t.Fatalf("expected one unsupported-target shell group, got %+v", dp.ShellGroups)
	}
}

func TestDecideSingleTripleHybrid(t *testing.T) {
	p := makePlanSingleTriple("aarch64-unknown-linux-gnu", 5, 8, 2)
	resolved, _ := inventory.Resolve(p)
	caps := capability.Capabilities{
		ReachableTriples: []string{"aarch64-unknown-linux-gnu"},
		Readiness:        capability.FullyReady,
	}
	opts := DefaultOptions()
	opts.BinaryThreshold = 5
	dp := Decide(p, resolved, caps, opts)
	if len(dp.BinaryGroups) != 1 {
		t.Fatalf("expected one binary group, got %d: %+v", len(dp.BinaryGroups), dp.BinaryGroups)
	}
	assert.StringEqual(t, "aarch64-unknown-linux-gnu", dp.BinaryGroups[0].TargetTriple)
	if len(dp.BinaryGroups[0].Tasks) != 8 {
		t.Errorf("expected 8 compatible tasks in binary group, got %d", len(dp.BinaryGroups[0].Tasks))
	}
	foundIncompatible := false
	for _, sg := range dp.ShellGroups {
		if sg.Reason == ReasonModuleIncompatible {
			foundIncompatible = true
			if len(sg.Tasks) != 2 {
				t.Errorf("expected 2 incompatible tasks, got %d", len(sg.Tasks))
			}
		}
	}
	if !foundIncompatible {
		t.Errorf("expected a module-incompatible shell group")
	}
}

func TestDecideHostUnionCoversAllHosts(t *testing.T) {
	p := makePlanSingleTriple("x86_64-unknown-linux-gnu", 3, 6, 0)
	resolved, _ := inventory.Resolve(p)
	caps := capability.Capabilities{ReachableTriples: []string{"x86_64-unknown-linux-gnu"}, Readiness: capability.FullyReady}
	dp := Decide(p, resolved, caps, DefaultOptions())
	seen := map[string]bool{}
	for _, g := range dp.BinaryGroups {
		for _, h := range g.Hosts {
			if seen[h] {
				t.Fatalf("host %s present in more than one group", h)
			}
			seen[h] = true
		}
	}
	for _, g := range dp.ShellGroups {
		for _, h := range g.Hosts {
			seen[h] = true
		}
	}
	for _, h := range p.Hosts {
		if !seen[h.Name] {
			t.Errorf("host %s missing from deployment plan", h.Name)
		}
	}
}
