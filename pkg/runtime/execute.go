package runtime

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/forgedeploy/forge/pkg/modules"
	"github.com/forgedeploy/forge/pkg/plan"
)

// TaskStatus is a single task's terminal state (§4.9).
type TaskStatus string

const (
	StatusOK      TaskStatus = "ok"
	StatusChanged TaskStatus = "changed"
	StatusFailed  TaskStatus = "failed"
	StatusSkipped TaskStatus = "skipped"
	StatusTimeout TaskStatus = "timeout"
)

// TaskReport is one task's entry in the final structured report.
type TaskReport struct {
	TaskID   string        `json:"task_id"`
	Name     string        `json:"name"`
	Status   TaskStatus    `json:"status"`
	Message  string        `json:"message,omitempty"`
	Stdout   string        `json:"stdout,omitempty"`
	Stderr   string        `json:"stderr,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	Attempts int           `json:"attempts"`
}

// Executor walks a single Plan against the host it runs on, dispatching
// to the embedded module registry (§4.9).
type Executor struct {
	plan     *plan.Plan
	registry *modules.Registry
	ctx      *ExecutionContext
	hostname string

	mu      sync.Mutex
	reports []TaskReport
	status  map[string]TaskStatus
}

// NewExecutor constructs an Executor for p. hostname, if empty, defaults
// to os.Hostname() — the host this process is running on, which is how
// a generated binary knows which of the embedded plan's tasks are its
// own (§5 "Single-host, single process").
func NewExecutor(p *plan.Plan, hostname string) *Executor {
	if hostname == "" {
		hostname, _ = os.Hostname()
	}
	return &Executor{
		plan:     p,
		registry: modules.NewRegistry(referencedModules(p)...),
		ctx:      NewExecutionContext(p),
		hostname: hostname,
		status:   map[string]TaskStatus{},
	}
}

// referencedModules collects the distinct module names p's tasks and
// handlers dispatch to, so NewExecutor only registers the module
// implementations this binary's own plan slice can ever look up.
func referencedModules(p *plan.Plan) []string {
	seen := map[string]bool{}
	var out []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, play := range p.Plays {
		for _, batch := range play.Batches {
			for _, t := range batch.Tasks {
				add(t.Module)
			}
		}
		for _, h := range play.Handlers {
			add(h.Module)
		}
	}
	return out
}

// Run walks every Play in document order and returns the accumulated
// report. The returned error is non-nil only for a fatal setup problem;
// task-level failures are recorded in the report, not returned.
func (e *Executor) Run(ctx context.Context) (*Report, error) {
	start := time.Now().UTC()
	for _, play := range e.plan.Plays {
		aborted := e.runPlay(ctx, play)
		if aborted {
			break
		}
	}
	finish := time.Now().UTC()

	success := true
	for _, r := range e.reports {
		if r.Status == StatusFailed || r.Status == StatusTimeout {
			success = false
			break
		}
	}

	return &Report{
		PlanID:     e.plan.PlanID,
		StartedAt:  start,
		FinishedAt: finish,
		Tasks:      e.reports,
		Success:    success,
	}, nil
}

// runPlay runs one Play's batches in order, then its notified handlers.
// Returns true if the play's failure policy requires aborting the whole
// plan.
func (e *Executor) runPlay(ctx context.Context, play plan.Play) bool {
	var notifyOrder []string
	notifySeen := map[string]bool{}

	for _, batch := range play.Batches {
		if !e.appliesToHost(batch.Hosts) {
			continue
		}
		aborted, notified := e.runBatch(ctx, batch)
		for _, n := range notified {
			if !notifySeen[n] {
				notifySeen[n] = true
				notifyOrder = append(notifyOrder, n)
			}
		}
		if aborted {
			return true
		}
	}

	for _, name := range notifyOrder {
		for _, h := range play.Handlers {
			if h.Name == name {
				e.runTask(ctx, h.Task, nil)
			}
		}
	}
	return false
}

// runBatch runs batch's tasks respecting dependency eligibility and
// ParallelGroup membership, returning whether an abort-policy failure
// occurred and which handler names were notified by changed tasks.
func (e *Executor) runBatch(ctx context.Context, batch plan.Batch) (aborted bool, notified []string) {
	var tasks []plan.Task
	for _, t := range batch.Tasks {
		if e.appliesToHost(t.TargetHosts) {
			tasks = append(tasks, t)
		}
	}

	parallelMembership := map[string]plan.ParallelGroup{}
	for _, pg := range batch.ParallelGroups {
		for _, id := range pg.TaskIDs {
			parallelMembership[id] = pg
		}
	}

	done := map[string]bool{}
	remaining := make([]plan.Task, len(tasks))
	copy(remaining, tasks)

	for len(remaining) > 0 {
		select {
		case <-ctx.Done():
			for _, t := range remaining {
				e.record(TaskReport{TaskID: t.TaskID, Name: t.Name, Status: StatusTimeout, Message: "execution deadline exceeded"})
				e.mu.Lock()
				e.status[t.TaskID] = StatusTimeout
				e.mu.Unlock()
			}
			return true, notified
		default:
		}

		var eligible []plan.Task
		var rest []plan.Task
		for _, t := range remaining {
			if e.dependenciesSatisfied(t, done) {
				eligible = append(eligible, t)
			} else {
				rest = append(rest, t)
			}
		}
		if len(eligible) == 0 {
			// a dependency can never be satisfied (it names a task that
			// does not run in this batch on this host, or the dependencies
			// form a cycle; a task that ran, even one that failed, is
			// marked done); stop making progress on this batch.
			break
		}

		groups := groupEligible(eligible, parallelMembership)
		for _, g := range groups {
			if len(g.tasks) == 1 && g.group.Name == "" {
				status, notify := e.runTask(ctx, g.tasks[0], batch.Tasks)
				done[g.tasks[0].TaskID] = true
				notified = append(notified, notify...)
				if status == StatusFailed && g.tasks[0].FailurePolicy == plan.FailureAbort {
					return true, notified
				}
				if status == StatusFailed && g.tasks[0].RiskLevel == plan.RiskCritical {
					return true, notified
				}
			} else {
				notify := e.runParallelGroup(ctx, g, done, batch.Tasks)
				notified = append(notified, notify...)
				for _, t := range g.tasks {
					if done[t.TaskID] && e.status[t.TaskID] == StatusFailed &&
						(t.FailurePolicy == plan.FailureAbort || t.RiskLevel == plan.RiskCritical) {
						aborted = true
					}
				}
				if aborted {
					return true, notified
				}
			}
		}
		remaining = rest
	}
	return false, notified
}

type eligibleGroup struct {
	group plan.ParallelGroup
	tasks []plan.Task
}

// groupEligible clusters eligible tasks by shared ParallelGroup, leaving
// non-grouped tasks as singleton groups, preserving document order.
func groupEligible(eligible []plan.Task, membership map[string]plan.ParallelGroup) []eligibleGroup {
	var out []eligibleGroup
	seen := map[string]bool{}
	for _, t := range eligible {
		if seen[t.TaskID] {
			continue
		}
		if pg, ok := membership[t.TaskID]; ok && t.CanRunParallel {
			var members []plan.Task
			for _, t2 := range eligible {
				if seen[t2.TaskID] {
					continue
				}
				if pg2, ok2 := membership[t2.TaskID]; ok2 && pg2.Name == pg.Name {
					members = append(members, t2)
					seen[t2.TaskID] = true
				}
			}
			out = append(out, eligibleGroup{group: pg, tasks: members})
		} else {
			seen[t.TaskID] = true
			out = append(out, eligibleGroup{tasks: []plan.Task{t}})
		}
	}
	return out
}

func (e *Executor) dependenciesSatisfied(t plan.Task, done map[string]bool) bool {
	for _, d := range t.Dependencies {
		if !done[d] {
			return false
		}
	}
	return true
}

// runParallelGroup runs g's tasks concurrently, bounded by
// g.group.MaxParallelism (0 = unbounded, §4.9).
func (e *Executor) runParallelGroup(ctx context.Context, g eligibleGroup, done map[string]bool, allTasks []plan.Task) []string {
	limit := g.group.MaxParallelism
	if limit <= 0 {
		limit = len(g.tasks)
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var notified []string

	for _, t := range g.tasks {
		t := t
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			_, notify := e.runTask(ctx, t, allTasks)
			mu.Lock()
			done[t.TaskID] = true
			notified = append(notified, notify...)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return notified
}

// runTask evaluates t's conditions, dispatches to its module (honoring
// timeout and retry policy), and returns its terminal status plus any
// handler names it notified (only when its final status is "changed").
func (e *Executor) runTask(ctx context.Context, t plan.Task, siblings []plan.Task) (TaskStatus, []string) {
	start := time.Now()

	for _, cond := range t.Conditions {
		if !evaluate(cond, t.Tags, e.hostname, e.ctx) {
			e.record(TaskReport{TaskID: t.TaskID, Name: t.Name, Status: StatusSkipped, Duration: time.Since(start)})
			return StatusSkipped, nil
		}
	}

	mapped, mapErr := modules.MapArgs(t.Module, t.Args, modules.Permissive)
	if mapErr != nil {
		e.record(TaskReport{TaskID: t.TaskID, Name: t.Name, Status: StatusFailed, Message: mapErr.Error(), Duration: time.Since(start)})
		return StatusFailed, nil
	}

	mod, ok := e.registry.Lookup(t.Module)
	if !ok {
		e.record(TaskReport{TaskID: t.TaskID, Name: t.Name, Status: StatusFailed, Message: "unknown-module: " + t.Module, Duration: time.Since(start)})
		return StatusFailed, nil
	}

	attempts := 1
	var backoff time.Duration
	if t.Retry != nil && t.Retry.Attempts > 0 {
		attempts = t.Retry.Attempts
	}

	var result modules.Result
	var runErr error
	status := StatusFailed

	for attempt := 1; attempt <= attempts; attempt++ {
		result, runErr = e.invokeWithTimeout(ctx, mod, mapped, t.Timeout)
		if runErr == context.DeadlineExceeded {
			status = StatusTimeout
			break
		}
		if !result.Failed && runErr == nil {
			if result.Changed {
				status = StatusChanged
			} else {
				status = StatusOK
			}
			break
		}
		status = StatusFailed
		if attempt < attempts {
			backoff = nextBackoff(t.Retry, attempt, backoff)
			time.Sleep(backoff)
		}
	}

	if len(result.Facts) > 0 {
		e.ctx.SetFacts(result.Facts)
	}

	rep := TaskReport{
		TaskID: t.TaskID, Name: t.Name, Status: status,
		Message: result.Message, Stdout: result.Stdout, Stderr: result.Stderr,
		Duration: time.Since(start), Attempts: attempts,
	}
	e.record(rep)
	e.mu.Lock()
	e.status[t.TaskID] = status
	e.mu.Unlock()

	if status == StatusChanged {
		return status, t.Notify
	}
	return status, nil
}

// invokeWithTimeout dispatches to mod under both t's own Timeout and the
// outer (global-deadline-derived) ctx: whichever fires first reports a
// timeout. mc.Ctx carries the same deadline into the module so a
// shelled-out command (commandModule) can kill its child process
// instead of leaving it running past either deadline.
func (e *Executor) invokeWithTimeout(ctx context.Context, mod modules.Module, args map[string]interface{}, timeout time.Duration) (modules.Result, error) {
	taskCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	mc := e.ctx.moduleContext()
	mc.Ctx = taskCtx

	type out struct {
		r   modules.Result
		err error
	}
	ch := make(chan out, 1)
	go func() {
		var r modules.Result
		var err error
		if mc.CheckMode {
			r, err = mod.CheckMode(args, mc)
		} else {
			r, err = mod.Invoke(args, mc)
		}
		ch <- out{r, err}
	}()
	select {
	case o := <-ch:
		return o.r, o.err
	case <-taskCtx.Done():
		return modules.Result{Failed: true, Message: "timeout"}, context.DeadlineExceeded
	}
}

func nextBackoff(retry *plan.RetryPolicy, attempt int, prev time.Duration) time.Duration {
	const base = 1 * time.Second
	if retry == nil {
		return base
	}
	switch retry.Backoff {
	case plan.BackoffLinear:
		return base * time.Duration(attempt)
	case plan.BackoffExponential:
		if prev == 0 {
			return base
		}
		return prev * 2
	default:
		return base
	}
}

func (e *Executor) appliesToHost(hosts []string) bool {
	if len(hosts) == 0 {
		return true
	}
	for _, h := range hosts {
		if h == e.hostname {
			return true
		}
	}
	return false
}

func (e *Executor) record(r TaskReport) {
	e.mu.Lock()
	e.reports = append(e.reports, r)
	e.mu.Unlock()
}
