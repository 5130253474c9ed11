package deploy

import (
	"testing"

	"github.com/forgedeploy/forge/pkg/internal/assert"
	"github.com/forgedeploy/forge/pkg/plan"
	"github.com/forgedeploy/forge/pkg/strategy"
	"github.com/forgedeploy/forge/pkg/synth"
)

func TestProfileForMapsOptimizationMode(t *testing.T) {
	assert.StringEqual(t, string(synth.ProfileRelease), string(profileFor(plan.OptimizationAggressive)))
	assert.StringEqual(t, string(synth.ProfileReleaseWithDebugInfo), string(profileFor(plan.OptimizationConservative)))
	assert.StringEqual(t, string(synth.ProfileRelease), string(profileFor(plan.OptimizationAuto)))
}

func TestOsForKnownTriples(t *testing.T) {
	cases := map[string]string{
		"x86_64-unknown-linux-gnu": "linux",
		"aarch64-apple-darwin":     "darwin",
		"x86_64-pc-windows-msvc":   "windows",
	}
	for triple, want := range cases {
		got, ok := osFor(triple)
		assert.BoolEqual(t, true, ok)
		assert.StringEqual(t, want, got)
	}
	if _, ok := osFor("bogus-triple"); ok {
		t.Fatalf("expected unknown triple to report ok=false")
	}
}

func samplePlan() *plan.Plan {
	return &plan.Plan{
		PlanID: "p1",
		Hosts: []plan.Host{
			{Name: "h1"},
			{Name: "h2"},
		},
		Plays: []plan.Play{
			{
				PlayID: "play1",
				Batches: []plan.Batch{
					{
						BatchID: "b1",
						Tasks: []plan.Task{
							{TaskID: "t1", Module: "command"},
							{TaskID: "t2", Module: "command"},
						},
					},
				},
			},
		},
	}
}

func TestSliceForRestrictsHostsAndTasks(t *testing.T) {
	p := samplePlan()
	group := strategy.BinaryGroup{
		GroupID:      "binary-g1",
		TargetTriple: "x86_64-unknown-linux-gnu",
		Hosts:        []string{"h1"},
		Tasks:        []plan.Task{{TaskID: "t1", Module: "command"}},
	}

	slice := sliceFor(p, group)

	if len(slice.Hosts) != 1 || slice.Hosts[0].Name != "h1" {
		t.Fatalf("expected slice to contain only h1, got %+v", slice.Hosts)
	}
	if len(slice.Plays) != 1 || len(slice.Plays[0].Batches) != 1 {
		t.Fatalf("expected one play with one batch, got %+v", slice.Plays)
	}
	tasks := slice.Plays[0].Batches[0].Tasks
	if len(tasks) != 1 || tasks[0].TaskID != "t1" {
		t.Fatalf("expected only t1 to survive slicing, got %+v", tasks)
	}
	// original plan must be untouched
	assert.DeepEqual(t, 2, len(p.Hosts))
}

func TestSliceForDropsEmptyBatchesAndPlays(t *testing.T) {
	p := samplePlan()
	group := strategy.BinaryGroup{
		GroupID: "binary-empty",
		Hosts:   []string{"h2"},
		Tasks:   nil,
	}
	slice := sliceFor(p, group)
	if len(slice.Plays) != 0 {
		t.Fatalf("expected no surviving plays when no task matches, got %+v", slice.Plays)
	}
}
