// Package plan defines forge's internal plan model and the operations
// that ingest a planner-emitted document into it: parse, validate, and
// fingerprint (C1, Plan Ingestor).
package plan

import "time"

// Value is a tagged JSON-like value used for task args and plan variables.
// It mirrors the planner's wire format (null | bool | integer | float |
// string | list | map) without relying on interface{} duck-typing at the
// call sites that matter (the parameter mapper, §4.10).
type Value struct {
	Kind ValueKind
	Bool bool
	Int  int64
	Flt  float64
	Str  string
	List []Value
	Map  map[string]Value
}

// ValueKind discriminates the variant held by a Value.
type ValueKind int

const (
	// KindNull marks an absent/JSON-null value.
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindMap
)

// NewString wraps a string in a Value.
func NewString(s string) Value { return Value{Kind: KindString, Str: s} }

// NewBool wraps a bool in a Value.
func NewBool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// NewInt wraps an int64 in a Value.
func NewInt(i int64) Value { return Value{Kind: KindInt, Int: i} }

// IsNull reports whether v is the null variant.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// ConnectionMethod is how the controller (or the generated runtime's shell
// fallback) reaches a Host.
type ConnectionMethod string

const (
	ConnectionSSH   ConnectionMethod = "ssh"
	ConnectionWinRM ConnectionMethod = "winrm"
	ConnectionLocal ConnectionMethod = "local"
	ConnectionPodman ConnectionMethod = "podman"
)

// Connection describes how to reach a Host.
type Connection struct {
	Method     ConnectionMethod
	User       string
	Port       int
	Credential string
	Timeout    time.Duration
}

// Host is a single deployment target.
type Host struct {
	Name          string `validate:"required"`
	Address       string
	Connection    Connection
	Variables     map[string]Value
	Groups        []string
	TargetTriple  string
	DeclaredArch  string
	DeclaredOS    string
}

// Group is a named collection of Hosts, with inheritance through parent
// groups. Resolution is performed by package inventory, not here.
type Group struct {
	Name          string
	Members       []string
	ChildGroups   []string
	ParentGroups  []string
	Variables     map[string]Value
}

// ConditionKind discriminates a Condition's variant.
type ConditionKind int

const (
	ConditionByTag ConditionKind = iota
	ConditionWhen
	ConditionSkip
	ConditionHostAllowList
)

// Condition gates whether a Task or Handler runs.
type Condition struct {
	Kind          ConditionKind
	IncludeTags   []string
	ExcludeTags   []string
	Expression    string
	AllowedHosts  []string
}

// RiskLevel classifies how disruptive a Task is, used by failure-policy
// overrides (§4.9).
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// FailurePolicy governs what happens when a Task fails at runtime.
type FailurePolicy string

const (
	FailureAbort    FailurePolicy = "abort"
	FailureContinue FailurePolicy = "continue"
	FailureRollback FailurePolicy = "rollback"
)

// BackoffStrategy shapes the delay between retry attempts.
type BackoffStrategy string

const (
	BackoffFixed       BackoffStrategy = "fixed"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// RetryPolicy re-runs a failed Task up to Attempts times.
type RetryPolicy struct {
	Attempts int
	Backoff  BackoffStrategy
}

// Task is a single module invocation, the atomic unit of work.
type Task struct {
	TaskID            string `validate:"required"`
	Name              string
	Module            string `validate:"required"`
	Args              map[string]Value
	TargetHosts       []string
	Dependencies      []string
	Conditions        []Condition
	Tags              []string
	Notify            []string
	ExecutionOrder    int
	CanRunParallel    bool
	EstimatedDuration time.Duration
	RiskLevel         RiskLevel
	FailurePolicy     FailurePolicy
	Timeout           time.Duration
	Retry             *RetryPolicy
}

// Handler is a Task that only runs when notified by a completed Task.
type Handler struct {
	Task
}

// ParallelGroup names a set of Tasks (by id) within a Batch eligible to
// run concurrently, bounded by MaxParallelism (0 = unbounded).
type ParallelGroup struct {
	Name           string
	TaskIDs        []string
	MaxParallelism int
}

// Batch refines a Play's task ordering: tasks within a Batch respect
// dependency edges and declared parallelism; Batches within a Play run in
// document order.
type Batch struct {
	BatchID      string `validate:"required"`
	Hosts        []string
	Tasks        []Task `validate:"dive"`
	ParallelGroups []ParallelGroup
	Dependencies []string
}

// PlayStrategy selects how a Play's batches/hosts are driven.
type PlayStrategy string

const (
	StrategyLinear       PlayStrategy = "linear"
	StrategyFree         PlayStrategy = "free"
	StrategyBinaryHybrid PlayStrategy = "binary-hybrid"
	StrategyBinaryOnly   PlayStrategy = "binary-only"
	StrategyShellOnly    PlayStrategy = "shell-only"
)

// Play groups Batches against a target host set.
type Play struct {
	PlayID            string `validate:"required"`
	Name              string
	Strategy          PlayStrategy
	Serial            *int
	Hosts             []string
	Batches           []Batch `validate:"dive"`
	Handlers          []Handler
	EstimatedDuration time.Duration
}

// OptimizationMode selects how aggressively the strategist prefers binary
// deployment over shell fallback (§4.4).
type OptimizationMode string

const (
	OptimizationAuto         OptimizationMode = "auto"
	OptimizationAggressive   OptimizationMode = "aggressive"
	OptimizationConservative OptimizationMode = "conservative"
	OptimizationOff          OptimizationMode = "off"
)

// PlanningOptions are the recognized top-level planner options (§6.1).
type PlanningOptions struct {
	Limit           string
	Tags            []string
	SkipTags        []string
	CheckMode       bool
	DiffMode        bool
	Forks           int
	Serial          *int
	Strategy        PlayStrategy
	BinaryThreshold int
	ForceBinary     bool
	ForceShell      bool
	Optimization    OptimizationMode
}

// Plan is the root deployment artifact produced by C1's parse operation.
type Plan struct {
	PlanID          string `validate:"required"`
	CreatedAt       time.Time
	SourceVersion   string
	PlanningOptions PlanningOptions
	Plays           []Play `validate:"dive"`
	Hosts           []Host `validate:"dive"`
	Groups          []Group
	GlobalVariables map[string]Value

	// Fingerprint is populated by Fingerprint(plan) and is excluded from
	// the fingerprint's own input (it is derived, not ingested).
	Fingerprint string
}

// HostByName returns the Host named name, or (Host{}, false).
func (p *Plan) HostByName(name string) (Host, bool) {
	for _, h := range p.Hosts {
		if h.Name == name {
			return h, true
		}
	}
	return Host{}, false
}
