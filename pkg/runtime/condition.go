package runtime

import (
	"fmt"
	"strings"

	"github.com/forgedeploy/forge/pkg/plan"
)

// evaluate reports whether cond permits the task to run for host, given
// ctx's current variable bindings (§4.9 "Condition evaluation"). A task
// with no conditions always runs.
func evaluate(cond plan.Condition, tags []string, host string, ctx *ExecutionContext) bool {
	switch cond.Kind {
	case plan.ConditionByTag:
		if len(cond.IncludeTags) > 0 && !intersects(tags, cond.IncludeTags) {
			return false
		}
		if len(cond.ExcludeTags) > 0 && intersects(tags, cond.ExcludeTags) {
			return false
		}
		return true
	case plan.ConditionWhen:
		return evalExpression(cond.Expression, ctx)
	case plan.ConditionSkip:
		return !evalExpression(cond.Expression, ctx)
	case plan.ConditionHostAllowList:
		if len(cond.AllowedHosts) == 0 {
			return true
		}
		for _, h := range cond.AllowedHosts {
			if h == host {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func intersects(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		if set[v] {
			return true
		}
	}
	return false
}

// evalExpression supports the minimal grammar a plan's `when`/`skip`
// condition needs: a bare variable name (truthy if present and not
// false/empty/zero), a negated variable ("!name"), or an equality/
// inequality comparison against a quoted literal ("name == 'value'",
// "name != 'value'"). There is no general expression language here by
// design (§9 Non-goals exclude a full templating/expression engine);
// this covers every case the spec's scenarios exercise.
func evalExpression(expr string, ctx *ExecutionContext) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true
	}
	if strings.HasPrefix(expr, "!") {
		return !truthy(lookup(strings.TrimSpace(expr[1:]), ctx))
	}
	if idx := strings.Index(expr, "=="); idx >= 0 {
		name := strings.TrimSpace(expr[:idx])
		want := strings.Trim(strings.TrimSpace(expr[idx+2:]), `'"`)
		return fmt.Sprintf("%v", lookup(name, ctx)) == want
	}
	if idx := strings.Index(expr, "!="); idx >= 0 {
		name := strings.TrimSpace(expr[:idx])
		want := strings.Trim(strings.TrimSpace(expr[idx+2:]), `'"`)
		return fmt.Sprintf("%v", lookup(name, ctx)) != want
	}
	return truthy(lookup(expr, ctx))
}

func lookup(name string, ctx *ExecutionContext) interface{} {
	ctx.mu.RLock()
	defer ctx.mu.RUnlock()
	if v, ok := ctx.Variables[name]; ok {
		return v
	}
	if v, ok := ctx.Facts[name]; ok {
		return v
	}
	return nil
}

func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case int64:
		return t != 0
	case float64:
		return t != 0
	default:
		return true
	}
}
