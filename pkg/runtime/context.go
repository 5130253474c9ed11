// Package runtime is the embedded executor: the code compiled into every
// generated binary that loads its embedded plan, walks the task graph,
// dispatches to embedded modules, and emits a structured report (C9,
// Embedded Runtime).
package runtime

import (
	"os"
	"sync"

	"github.com/forgedeploy/forge/pkg/modules"
	"github.com/forgedeploy/forge/pkg/plan"
)

// ExecutionContext carries everything a running plan needs across its
// whole walk: gathered facts, variable bindings seeded from plan-level
// vars, the process environment, working directory, and the check/diff
// mode flags (§4.9).
type ExecutionContext struct {
	mu        sync.RWMutex
	Facts     map[string]interface{}
	Variables map[string]interface{}
	Env       []string
	WorkDir   string
	CheckMode bool
	DiffMode  bool
	Verbosity int
}

// NewExecutionContext seeds a context from a Plan's global variables.
func NewExecutionContext(p *plan.Plan) *ExecutionContext {
	vars := map[string]interface{}{}
	for k, v := range p.GlobalVariables {
		vars[k] = v.ToInterface()
	}
	wd, _ := os.Getwd()
	return &ExecutionContext{
		Facts:     map[string]interface{}{},
		Variables: vars,
		Env:       os.Environ(),
		WorkDir:   wd,
		CheckMode: p.PlanningOptions.CheckMode,
		DiffMode:  p.PlanningOptions.DiffMode,
	}
}

// SetFacts merges newly-gathered facts into the context (called after a
// `setup` module dispatch). Safe for concurrent ParallelGroup members.
func (c *ExecutionContext) SetFacts(facts map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range facts {
		c.Facts[k] = v
	}
}

// moduleContext snapshots the fields modules.Context needs under the
// context's read lock, so a module sees a consistent view even while
// another ParallelGroup member is writing facts concurrently.
func (c *ExecutionContext) moduleContext() modules.Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	facts := make(map[string]interface{}, len(c.Facts))
	for k, v := range c.Facts {
		facts[k] = v
	}
	vars := make(map[string]interface{}, len(c.Variables))
	for k, v := range c.Variables {
		vars[k] = v
	}
	return modules.Context{
		Facts:     facts,
		Variables: vars,
		CheckMode: c.CheckMode,
		DiffMode:  c.DiffMode,
		Env:       c.Env,
		WorkDir:   c.WorkDir,
	}
}
