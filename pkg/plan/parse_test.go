package plan

import (
	"testing"

	"github.com/forgedeploy/forge/pkg/internal/assert"
)

const minimalJSONPlan = `{
  "metadata": {"plan_id": "p1", "source_version": "1.0"},
  "hosts": [{"name": "h1", "connection": {"method": "local"}}],
  "plays": [{
    "play_id": "play1",
    "name": "first play",
    "hosts": ["h1"],
    "batches": [{
      "batch_id": "b1",
      "hosts": ["h1"],
      "tasks": [{
        "task_id": "t1",
        "module": "command",
        "args": {"_raw_params": "echo hi"},
        "execution_order": 0
      }]
    }]
  }]
}`

func TestParseJSON(t *testing.T) {
	p, err := Parse([]byte(minimalJSONPlan))
	assert.ExpectError(t, false, err)
	if p == nil {
		t.Fatalf("expected a plan, got nil")
	}
	assert.StringEqual(t, "p1", p.PlanID)
	if len(p.Plays) != 1 || len(p.Plays[0].Batches) != 1 || len(p.Plays[0].Batches[0].Tasks) != 1 {
		t.Fatalf("unexpected plan shape: %+v", p)
	}
	assert.StringEqual(t, "command", p.Plays[0].Batches[0].Tasks[0].Module)
}

func TestParseYAMLEquivalent(t *testing.T) {
	yamlPlan := `
metadata:
  plan_id: p1
  source_version: "1.0"
hosts:
  - name: h1
    connection:
      method: local
plays:
  - play_id: play1
    name: first play
    hosts: [h1]
    batches:
      - batch_id: b1
        hosts: [h1]
        tasks:
          - task_id: t1
            module: command
            args:
              _raw_params: echo hi
            execution_order: 0
`
	p, err := Parse([]byte(yamlPlan))
	assert.ExpectError(t, false, err)
	jp, _ := Parse([]byte(minimalJSONPlan))
	fpYAML, _ := Fingerprint(p)
	fpJSON, _ := Fingerprint(jp)
	assert.StringEqual(t, fpJSON, fpYAML)
}

func TestParseMissingPlanID(t *testing.T) {
	_, err := Parse([]byte(`{"metadata": {}}`))
	assert.ExpectError(t, true, err)
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	assert.StringEqual(t, "missing-field", pe.Kind)
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse([]byte(`{not json`))
	assert.ExpectError(t, true, err)
}

func TestFingerprintDeterministic(t *testing.T) {
	p1, _ := Parse([]byte(minimalJSONPlan))
	p2, _ := Parse([]byte(minimalJSONPlan))
	fp1, err := Fingerprint(p1)
	assert.ExpectError(t, false, err)
	fp2, err := Fingerprint(p2)
	assert.ExpectError(t, false, err)
	assert.StringEqual(t, fp1, fp2)
}
