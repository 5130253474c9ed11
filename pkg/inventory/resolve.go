// Package inventory resolves a Plan's embedded host/group records into a
// per-host view with inherited variables and a resolved target triple
// (C2, Inventory Processor).
package inventory

import (
	"fmt"
	"sort"

	"github.com/forgedeploy/forge/pkg/plan"
)

// ResolvedHost is a Host after group-variable inheritance and architecture
// resolution have been applied.
type ResolvedHost struct {
	Host                plan.Host
	Variables           map[string]plan.Value
	TargetTriple        string
	ArchitectureUnknown bool
}

// CycleError reports an acyclicity violation in the group hierarchy.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("inventory: group cycle: %v", e.Path)
}

// Resolve produces a ResolvedHost for every host in p, applying the
// precedence order of §4.2: global vars -> parent groups (depth-first,
// deterministic group-name order) -> direct groups -> host vars.
func Resolve(p *plan.Plan) ([]ResolvedHost, error) {
	groupsByName := map[string]plan.Group{}
	for _, g := range p.Groups {
		groupsByName[g.Name] = g
	}
	if err := checkGroupCycles(p.Groups); err != nil {
		return nil, err
	}

	out := make([]ResolvedHost, 0, len(p.Hosts))
	for _, h := range p.Hosts {
		vars := map[string]plan.Value{}
		mergeInto(vars, p.GlobalVariables)

		sortedGroups := append([]string{}, h.Groups...)
		sort.Strings(sortedGroups)
		for _, gname := range sortedGroups {
			g, ok := groupsByName[gname]
			if !ok {
				continue
			}
			applyParentChain(vars, g, groupsByName, map[string]bool{})
		}
		for _, gname := range sortedGroups {
			if g, ok := groupsByName[gname]; ok {
				mergeInto(vars, g.Variables)
			}
		}
		mergeInto(vars, h.Variables)

		triple, unknown := ResolveArchitecture(h)
		out = append(out, ResolvedHost{
			Host:                h,
			Variables:           vars,
			TargetTriple:        triple,
			ArchitectureUnknown: unknown,
		})
	}
	return out, nil
}

// applyParentChain walks g's ParentGroups depth-first in deterministic
// (sorted) name order, merging each ancestor's variables before g's own
// direct contribution is applied by the caller.
func applyParentChain(vars map[string]plan.Value, g plan.Group, byName map[string]plan.Group, visited map[string]bool) {
	if visited[g.Name] {
		return
	}
	visited[g.Name] = true
	parents := append([]string{}, g.ParentGroups...)
	sort.Strings(parents)
	for _, pname := range parents {
		if pg, ok := byName[pname]; ok {
			applyParentChain(vars, pg, byName, visited)
			mergeInto(vars, pg.Variables)
		}
	}
}

func mergeInto(dst map[string]plan.Value, src map[string]plan.Value) {
	for k, v := range src {
		dst[k] = v
	}
}

func checkGroupCycles(groups []plan.Group) error {
	byName := map[string]plan.Group{}
	for _, g := range groups {
		byName[g.Name] = g
	}
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var path []string

	var visit func(name string) []string
	visit = func(name string) []string {
		color[name] = gray
		path = append(path, name)
		g := byName[name]
		children := append([]string{}, g.ChildGroups...)
		sort.Strings(children)
		for _, child := range children {
			switch color[child] {
			case gray:
				for i, p := range path {
					if p == child {
						cyc := append([]string{}, path[i:]...)
						return append(cyc, child)
					}
				}
			case white:
				if cyc := visit(child); cyc != nil {
					return cyc
				}
			}
		}
		path = path[:len(path)-1]
		color[name] = black
		return nil
	}

	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	sort.Strings(names)
	for _, name := range names {
		if color[name] == white {
			if cyc := visit(name); cyc != nil {
				return &CycleError{Path: cyc}
			}
		}
	}
	return nil
}
