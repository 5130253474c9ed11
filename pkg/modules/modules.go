// Package modules provides the uniform module-invocation contract, the
// parameter mapper that normalizes a Task's args into each module's
// expected canonical names, and a closed registry of embeddable module
// implementations (C10, Module Dispatch & Parameter Mapping).
package modules

import (
	"context"
	"fmt"
	"sort"

	"github.com/fatih/structs"

	"github.com/forgedeploy/forge/pkg/plan"
)

// Result is what a Module returns on invocation (§4.10).
type Result struct {
	Changed  bool
	Failed   bool
	Message  string
	Stdout   string
	Stderr   string
	RC       int
	Data     map[string]interface{}
	Diff     string
	Warnings []string
	Facts    map[string]interface{}
}

// Context is the subset of the embedded runtime's ExecutionContext a
// module needs to act; kept narrow so modules never reach back into
// runtime scheduling state.
type Context struct {
	Facts     map[string]interface{}
	Variables map[string]interface{}
	CheckMode bool
	DiffMode  bool
	Env       []string
	WorkDir   string

	// Ctx, when non-nil, is the running task's deadline: modules that
	// shell out (commandModule) select on it to kill an abandoned
	// child process instead of leaving it running past a timeout.
	Ctx context.Context
}

// Module is the uniform contract every embedded module implementation
// honors (§4.10).
type Module interface {
	Invoke(args map[string]interface{}, ctx Context) (Result, error)
	ValidateArgs(args map[string]interface{}) error
	CheckMode(args map[string]interface{}, ctx Context) (Result, error)
}

// DispatchError enumerates §7's dispatch/mapping error kinds.
type DispatchError struct {
	Kind   string // unknown-module | missing-required | unknown-parameter
	Module string
	Detail string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("modules: %s: module %q: %s", e.Kind, e.Module, e.Detail)
}

// mapping is one module's alias table and required-field list.
type mapping struct {
	// aliasToCanonical maps every accepted input key (including the
	// canonical name itself) to its canonical name.
	aliasToCanonical map[string]string
	required         []string
	defaults         map[string]interface{}
}

// aliasesFor returns, for a canonical name, the sorted list of every key
// that maps to it — used in missing-required error messages.
func (m mapping) aliasesFor(canonical string) []string {
	var out []string
	for alias, c := range m.aliasToCanonical {
		if c == canonical {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

// mappings holds one entry per module name listed in §4.10.
var mappings = map[string]mapping{
	"command": {
		aliasToCanonical: map[string]string{"cmd": "cmd", "command": "cmd", "_raw_params": "cmd"},
		required:         []string{"cmd"},
	},
	"shell": {
		aliasToCanonical: map[string]string{"cmd": "cmd", "command": "cmd", "_raw_params": "cmd"},
		required:         []string{"cmd"},
	},
	"package": {
		aliasToCanonical: map[string]string{"name": "name", "pkg": "name", "state": "state"},
		required:         []string{"name"},
		defaults:         map[string]interface{}{"state": "present"},
	},
	"service": {
		aliasToCanonical: map[string]string{"name": "name", "state": "state", "enabled": "enabled"},
		required:         []string{"name"},
	},
	"debug": {
		aliasToCanonical: map[string]string{"msg": "msg", "var": "var"},
	},
	"file": {
		aliasToCanonical: map[string]string{"path": "path", "dest": "path", "state": "state", "mode": "mode"},
		required:         []string{"path"},
	},
	"copy": {
		aliasToCanonical: map[string]string{"src": "src", "dest": "dest", "mode": "mode"},
		required:         []string{"src", "dest"},
	},
	"template": {
		aliasToCanonical: map[string]string{"src": "src", "dest": "dest", "mode": "mode"},
		required:         []string{"src", "dest"},
	},
	"stat": {
		aliasToCanonical: map[string]string{"path": "path"},
		required:         []string{"path"},
	},
	"get_url": {
		aliasToCanonical: map[string]string{"url": "url", "dest": "dest"},
		required:         []string{"url", "dest"},
	},
	"uri": {
		aliasToCanonical: map[string]string{"url": "url", "method": "method", "body": "body"},
		required:         []string{"url"},
		defaults:         map[string]interface{}{"method": "GET"},
	},
	"git": {
		aliasToCanonical: map[string]string{"repo": "repo", "dest": "dest", "version": "version"},
		required:         []string{"repo", "dest"},
	},
	"unarchive": {
		aliasToCanonical: map[string]string{"src": "src", "dest": "dest"},
		required:         []string{"src", "dest"},
	},
	"archive": {
		aliasToCanonical: map[string]string{"path": "path", "dest": "dest", "format": "format"},
		required:         []string{"path", "dest"},
		defaults:         map[string]interface{}{"format": "gz"},
	},
	"setup": {
		aliasToCanonical: map[string]string{"filter": "filter", "gather_subset": "gather_subset"},
	},
	"user": {
		aliasToCanonical: map[string]string{"name": "name", "state": "state", "uid": "uid"},
		required:         []string{"name"},
		defaults:         map[string]interface{}{"state": "present"},
	},
	"group": {
		aliasToCanonical: map[string]string{"name": "name", "state": "state", "gid": "gid"},
		required:         []string{"name"},
		defaults:         map[string]interface{}{"state": "present"},
	},
}

// StrictMode, when passed to MapArgs, rejects any input key that the
// module's mapping table does not recognize.
type StrictMode bool

const (
	Strict   StrictMode = true
	Permissive StrictMode = false
)

// MapArgs normalizes a Task's args for module, applying the alias table,
// defaults, and required-field checks (§4.10). The mapper is pure: it
// never mutates args and its output depends only on (module, args, strict).
func MapArgs(module string, args map[string]plan.Value, strict StrictMode) (map[string]interface{}, error) {
	m, ok := mappings[module]
	if !ok {
		return nil, &DispatchError{Kind: "unknown-module", Module: module, Detail: "no registered parameter mapping"}
	}

	out := map[string]interface{}{}
	for k, v := range m.defaults {
		out[k] = v
	}

	for key, val := range args {
		canonical, known := m.aliasToCanonical[key]
		if !known {
			if strict {
				return nil, &DispatchError{Kind: "unknown-parameter", Module: module, Detail: key}
			}
			canonical = key
		}
		out[canonical] = val.ToInterface()
	}

	for _, req := range m.required {
		if _, present := out[req]; !present {
			return nil, &DispatchError{
				Kind: "missing-required", Module: module,
				Detail: fmt.Sprintf("%s (accepted as: %v)", req, m.aliasesFor(req)),
			}
		}
	}

	return out, nil
}

// Registry dispatches by canonical module name to a Module implementation.
type Registry struct {
	modules map[string]Module
}

// NewRegistry builds the registry of embeddable modules (§9 "closed
// sums" design note). With no names it registers the full, fixed
// module set; passed explicit names restricts Lookup to only those —
// the gate a synthesized binary's executor applies so dispatch only
// ever reaches the modules its own plan slice references (spec.md:117
// "modules not referenced are omitted").
func NewRegistry(names ...string) *Registry {
	all := map[string]Module{
		"command":   commandModule{shell: false},
		"shell":     commandModule{shell: true},
		"package":   packageModule{},
		"service":   serviceModule{},
		"debug":     debugModule{},
		"file":      fileModule{},
		"copy":      copyModule{},
		"template":  templateModule{},
		"stat":      statModule{},
		"get_url":   getURLModule{},
		"uri":       uriModule{},
		"git":       gitModule{},
		"unarchive": unarchiveModule{},
		"archive":   archiveModule{},
		"setup":     setupModule{},
		"user":      userModule{},
		"group":     groupModule{},
	}
	if len(names) == 0 {
		return &Registry{modules: all}
	}
	gated := map[string]Module{}
	for _, n := range names {
		if m, ok := all[n]; ok {
			gated[n] = m
		}
	}
	return &Registry{modules: gated}
}

// Lookup returns the Module registered for name.
func (r *Registry) Lookup(name string) (Module, bool) {
	m, ok := r.modules[name]
	return m, ok
}

// Names returns the registry's module names, sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.modules))
	for k := range r.modules {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ResultFields flattens a Result into a generic map via fatih/structs,
// for callers (the embedded runtime's reporter) that serialize results
// without depending on this package's concrete Result type.
func ResultFields(r Result) map[string]interface{} {
	return structs.New(&r).Map()
}
