package synth

import (
	"testing"

	"github.com/forgedeploy/forge/pkg/internal/assert"
	"github.com/forgedeploy/forge/pkg/plan"
	"github.com/forgedeploy/forge/pkg/strategy"
)

func samplePlanSlice() *plan.Plan {
	return &plan.Plan{
		PlanID: "p1",
		Hosts:  []plan.Host{{Name: "h1", TargetTriple: "x86_64-unknown-linux-gnu"}},
		Plays: []plan.Play{{
			PlayID: "play1",
			Hosts:  []string{"h1"},
			Batches: []plan.Batch{{
				BatchID: "b1",
				Hosts:   []string{"h1"},
				Tasks: []plan.Task{
					{TaskID: "t1", Module: "command", TargetHosts: []string{"h1"}, Args: map[string]plan.Value{"cmd": plan.NewString("true")}},
				},
			}},
		}},
	}
}

func sampleGroup() strategy.BinaryGroup {
	return strategy.BinaryGroup{
		GroupID:      "binary-1",
		TargetTriple: "x86_64-unknown-linux-gnu",
		Hosts:        []string{"h1"},
		Tasks: []plan.Task{
			{TaskID: "t1", Module: "command", TargetHosts: []string{"h1"}},
		},
	}
}

func TestSynthesizeDeterministic(t *testing.T) {
	in := Inputs{
		Group:     sampleGroup(),
		Triple:    "x86_64-unknown-linux-gnu",
		Profile:   ProfileRelease,
		PlanSlice: samplePlanSlice(),
	}
	tpl1, err := Synthesize(in)
	assert.ExpectError(t, false, err)
	tpl2, err := Synthesize(in)
	assert.ExpectError(t, false, err)
	assert.StringEqual(t, tpl1.Fingerprint, tpl2.Fingerprint)
	assert.StringEqual(t, tpl1.TemplateID, tpl2.TemplateID)
	if string(tpl1.Files["main.go"]) != string(tpl2.Files["main.go"]) {
		t.Fatalf("expected identical main.go across repeated synthesis")
	}
}

func TestSynthesizeRejectsUnknownModule(t *testing.T) {
	group := sampleGroup()
	group.Tasks = []plan.Task{{TaskID: "t1", Module: "totally-unknown-module", TargetHosts: []string{"h1"}}}
	in := Inputs{Group: group, Triple: "x86_64-unknown-linux-gnu", Profile: ProfileRelease, PlanSlice: samplePlanSlice()}
	_, err := Synthesize(in)
	assert.ExpectError(t, true, err)
	se, ok := err.(*SynthesisError)
	if !ok {
		t.Fatalf("expected *SynthesisError, got %T", err)
	}
	assert.StringEqual(t, "unknown-module", se.Kind)
}

func TestSynthesizeEmbedsPlanAndManifest(t *testing.T) {
	in := Inputs{Group: sampleGroup(), Triple: "x86_64-unknown-linux-gnu", Profile: ProfileMinimalSize, PlanSlice: samplePlanSlice()}
	tpl, err := Synthesize(in)
	assert.ExpectError(t, false, err)
	if len(tpl.EmbeddedPlan) == 0 {
		t.Fatalf("expected non-empty embedded plan JSON")
	}
	if _, ok := tpl.Files["embedded/plan.json"]; !ok {
		t.Fatalf("expected embedded/plan.json in Files")
	}
	if _, ok := tpl.Files["build.toml"]; !ok {
		t.Fatalf("expected build.toml manifest in Files")
	}
}

func TestSynthesizeEncryptsSecretsWhenProvided(t *testing.T) {
	in := Inputs{
		Group:      sampleGroup(),
		Triple:     "x86_64-unknown-linux-gnu",
		Profile:    ProfileRelease,
		PlanSlice:  samplePlanSlice(),
		Secrets:    map[string]string{"api_key": "s3cr3t"},
		SecretsKey: "passphrase",
	}
	tpl, err := Synthesize(in)
	assert.ExpectError(t, false, err)
	if len(tpl.SecretsBundle) == 0 {
		t.Fatalf("expected non-empty secrets bundle")
	}
	if _, ok := tpl.Files["embedded/secrets.vault"]; !ok {
		t.Fatalf("expected embedded/secrets.vault in Files")
	}
}

func TestSynthesizeMissingSecretsKey(t *testing.T) {
	in := Inputs{
		Group:     sampleGroup(),
		Triple:    "x86_64-unknown-linux-gnu",
		Profile:   ProfileRelease,
		PlanSlice: samplePlanSlice(),
		Secrets:   map[string]string{"api_key": "s3cr3t"},
	}
	_, err := Synthesize(in)
	assert.ExpectError(t, true, err)
}
