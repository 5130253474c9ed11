package plan

import (
	"testing"

	"github.com/forgedeploy/forge/pkg/internal/assert"
)

func TestValidateAcceptsValidPlan(t *testing.T) {
	p, err := Parse([]byte(minimalJSONPlan))
	assert.ExpectError(t, false, err)
	err = Validate(p)
	assert.ExpectError(t, false, err)
}

func TestValidateRejectsMissingPlanID(t *testing.T) {
	p := &Plan{
		Hosts: []Host{{Name: "h1"}},
		Plays: []Play{{
			PlayID: "p1",
			Hosts:  []string{"h1"},
		}},
	}
	err := Validate(p)
	assert.ExpectError(t, true, err)
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	assert.StringEqual(t, "schema-violation", ve.Kind)
}

func TestValidateDetectsDependencyCycle(t *testing.T) {
	p := &Plan{
		PlanID: "schema-ok",
		Hosts:  []Host{{Name: "h1"}},
		Plays: []Play{{
			PlayID: "p1",
			Hosts:  []string{"h1"},
			Batches: []Batch{{
				BatchID: "b1",
				Hosts:   []string{"h1"},
				Tasks: []Task{
					{TaskID: "t1", Module: "command", TargetHosts: []string{"h1"}, Dependencies: []string{"t3"}},
					{TaskID: "t2", Module: "command", TargetHosts: []string{"h1"}, Dependencies: []string{"t1"}},
					{TaskID: "t3", Module: "command", TargetHosts: []string{"h1"}, Dependencies: []string{"t2"}},
				},
			}},
		}},
	}
	err := Validate(p)
	assert.ExpectError(t, true, err)
	ve, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	assert.StringEqual(t, "dependency-cycle", ve.Kind)
}

func TestValidateDetectsDanglingHost(t *testing.T) {
	p := &Plan{
		PlanID: "schema-ok",
		Hosts:  []Host{{Name: "h1"}},
		Plays: []Play{{
			PlayID: "p1",
			Hosts:  []string{"h1", "ghost"},
		}},
	}
	err := Validate(p)
	assert.ExpectError(t, true, err)
}

func TestValidateDetectsDuplicateTaskID(t *testing.T) {
	p := &Plan{
		PlanID: "schema-ok",
		Hosts:  []Host{{Name: "h1"}},
		Plays: []Play{{
			PlayID: "p1",
			Hosts:  []string{"h1"},
			Batches: []Batch{{
				BatchID: "b1",
				Hosts:   []string{"h1"},
				Tasks: []Task{
					{TaskID: "t1", Module: "command", TargetHosts: []string{"h1"}},
					{TaskID: "t1", Module: "command", TargetHosts: []string{"h1"}},
				},
			}},
		}},
	}
	err := Validate(p)
	assert.ExpectError(t, true, err)
}
