package plan

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New()

// ValidationError enumerates the §4.1 validation-error kinds.
type ValidationError struct {
	Kind  string // schema-violation | dependency-cycle | dangling-reference | duplicate-id | inconsistent-ordering
	Path  []string
	Extra string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validate: ")
	b.WriteString(e.Kind)
	if len(e.Path) > 0 {
		fmt.Fprintf(&b, " path=%s", strings.Join(e.Path, "->"))
	}
	if e.Extra != "" {
		b.WriteString(" ")
		b.WriteString(e.Extra)
	}
	return b.String()
}

// Validate checks the normalized Plan's struct-tag schema, then structural
// invariants Parse can't express with tags alone: duplicate ids, dangling
// host/task references, dependency-graph acyclicity, and execution-order
// consistency with declared dependencies.
func Validate(p *Plan) error {
	if err := structValidator.Struct(p); err != nil {
		return &ValidationError{Kind: "schema-violation", Extra: err.Error()}
	}

	hosts := map[string]bool{}
	for _, h := range p.Hosts {
		hosts[h.Name] = true
	}

	seenTasks := map[string]bool{}
	taskDeps := map[string][]string{}
	taskOrder := map[string]int{}

	for _, play := range p.Plays {
		for _, h := range play.Hosts {
			if !hosts[h] {
				return &ValidationError{Kind: "dangling-reference", Extra: fmt.Sprintf("host %q", h)}
			}
		}
		allBatchTasks := map[string]bool{}
		for _, batch := range play.Batches {
			for _, h := range batch.Hosts {
				if !hosts[h] {
					return &ValidationError{Kind: "dangling-reference", Extra: fmt.Sprintf("host %q", h)}
				}
			}
			for _, t := range batch.Tasks {
				if seenTasks[t.TaskID] {
					return &ValidationError{Kind: "duplicate-id", Extra: fmt.Sprintf("task %q", t.TaskID)}
				}
				seenTasks[t.TaskID] = true
				allBatchTasks[t.TaskID] = true
				taskDeps[t.TaskID] = t.Dependencies
				taskOrder[t.TaskID] = t.ExecutionOrder
				for _, h := range t.TargetHosts {
					if !hosts[h] {
						return &ValidationError{Kind: "dangling-reference", Extra: fmt.Sprintf("host %q", h)}
					}
					if !containsStr(batch.Hosts, h) {
						return &ValidationError{Kind: "dangling-reference", Extra: fmt.Sprintf("task %q targets host %q outside its batch", t.TaskID, h)}
					}
				}
			}
		}
		for _, h := range play.Handlers {
			if seenTasks[h.TaskID] {
				return &ValidationError{Kind: "duplicate-id", Extra: fmt.Sprintf("handler %q", h.TaskID)}
			}
			seenTasks[h.TaskID] = true
			taskDeps[h.TaskID] = h.Dependencies
		}
	}

	if cycle := findCycle(taskDeps); cycle != nil {
		return &ValidationError{Kind: "dependency-cycle", Path: cycle}
	}

	for id, deps := range taskDeps {
		for _, dep := range deps {
			if depOrder, ok := taskOrder[dep]; ok {
				if selfOrder, ok := taskOrder[id]; ok && depOrder > selfOrder {
					return &ValidationError{Kind: "inconsistent-ordering", Extra: fmt.Sprintf("%q depends on %q which has a later execution_order", id, dep)}
				}
			}
		}
	}

	return nil
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// findCycle performs a DFS over the dependency graph (edges point from a
// task to the tasks it depends on) and returns the first cycle found, task
// ids in traversal order with the repeated id closing the path.
func findCycle(deps map[string][]string) []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var path []string

	var visit func(id string) []string
	visit = func(id string) []string {
		color[id] = gray
		path = append(path, id)
		for _, dep := range deps[id] {
			switch color[dep] {
			case gray:
				// found the cycle: slice path from dep's first occurrence
				for i, p := range path {
					if p == dep {
						cyc := append([]string{}, path[i:]...)
						return append(cyc, dep)
					}
				}
			case white:
				if cyc := visit(dep); cyc != nil {
					return cyc
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return nil
	}

	ids := make([]string, 0, len(deps))
	for id := range deps {
		ids = append(ids, id)
	}
	// deterministic iteration order for reproducible cycle-path reporting
	sortStrings(ids)
	for _, id := range ids {
		if color[id] == white {
			if cyc := visit(id); cyc != nil {
				return cyc
			}
		}
	}
	return nil
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
