package plan

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	k8syaml "sigs.k8s.io/yaml"
)

// ParseError enumerates the §4.1 input-error kinds raised by Parse.
type ParseError struct {
	Kind  string // malformed | missing-field | invalid-value | unknown-version | schema-violation
	Field string
	Value string
	Inner error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString("parse: ")
	b.WriteString(e.Kind)
	if e.Field != "" {
		b.WriteString(" field=")
		b.WriteString(e.Field)
	}
	if e.Value != "" {
		b.WriteString(" value=")
		b.WriteString(e.Value)
	}
	if e.Inner != nil {
		b.WriteString(": ")
		b.WriteString(e.Inner.Error())
	}
	return b.String()
}

func (e *ParseError) Cause() error { return e.Inner }

// wire* types mirror the §6.1 document shape exactly; Parse converts them
// into the internal model of types.go.
type wireDoc struct {
	Metadata wireMetadata `json:"metadata"`
	Plays    []wirePlay   `json:"plays"`
	Hosts    []wireHost   `json:"hosts"`
	Groups   []wireGroup  `json:"groups"`
}

type wireMetadata struct {
	PlanID          string   `json:"plan_id"`
	CreatedAt       string   `json:"created_at"`
	SourceVersion   string   `json:"source_version"`
	Limit           string   `json:"limit"`
	Tags            []string `json:"tags"`
	SkipTags        []string `json:"skip_tags"`
	CheckMode       bool     `json:"check_mode"`
	DiffMode        bool     `json:"diff_mode"`
	Forks           int      `json:"forks"`
	Serial          *int     `json:"serial"`
	Strategy        string   `json:"strategy"`
	BinaryThreshold *int     `json:"binary_threshold"`
	ForceBinary     bool     `json:"force_binary"`
	ForceShell      bool     `json:"force_shell"`
	Optimization    string   `json:"optimization"`
}

type wirePlay struct {
	PlayID            string        `json:"play_id"`
	Name              string        `json:"name"`
	Strategy          string        `json:"strategy"`
	Serial            *int          `json:"serial"`
	Hosts             []string      `json:"hosts"`
	Batches           []wireBatch   `json:"batches"`
	Handlers          []wireTask    `json:"handlers"`
	EstimatedDuration float64       `json:"estimated_duration"`
}

type wireBatch struct {
	BatchID        string              `json:"batch_id"`
	Hosts          []string            `json:"hosts"`
	Tasks          []wireTask          `json:"tasks"`
	ParallelGroups []wireParallelGroup `json:"parallel_groups"`
	Dependencies   []string            `json:"dependencies"`
}

type wireParallelGroup struct {
	Name           string   `json:"name"`
	TaskIDs        []string `json:"task_ids"`
	MaxParallelism int      `json:"max_parallelism"`
}

type wireTask struct {
	TaskID            string           `json:"task_id"`
	Name              string           `json:"name"`
	Module            string           `json:"module"`
	Args              map[string]Value `json:"args"`
	Hosts             []string         `json:"hosts"`
	Dependencies      []string         `json:"dependencies"`
	Conditions        []wireCondition  `json:"conditions"`
	Tags              []string         `json:"tags"`
	Notify            []string         `json:"notify"`
	ExecutionOrder    int              `json:"execution_order"`
	CanRunParallel    bool             `json:"can_run_parallel"`
	EstimatedDuration float64          `json:"estimated_duration"`
	RiskLevel         string           `json:"risk_level"`
	FailurePolicy     string           `json:"failure_policy"`
	TimeoutSeconds    float64          `json:"timeout_seconds"`
	Retry             *wireRetry       `json:"retry"`
}

type wireRetry struct {
	Attempts int    `json:"attempts"`
	Backoff  string `json:"backoff"`
}

type wireCondition struct {
	Kind         string   `json:"kind"`
	IncludeTags  []string `json:"include_tags"`
	ExcludeTags  []string `json:"exclude_tags"`
	When         string   `json:"when"`
	Skip         string   `json:"skip"`
	AllowedHosts []string `json:"allowed_hosts"`
}

type wireHost struct {
	Name         string            `json:"name"`
	Address      string            `json:"address"`
	Connection   wireConnection    `json:"connection"`
	Variables    map[string]Value  `json:"variables"`
	Groups       []string          `json:"groups"`
	TargetTriple string            `json:"target_triple"`
	DeclaredArch string            `json:"declared_arch"`
	DeclaredOS   string            `json:"declared_os"`
}

type wireConnection struct {
	Method     string `json:"method"`
	User       string `json:"user"`
	Port       int    `json:"port"`
	Credential string `json:"credential"`
	TimeoutSec float64 `json:"timeout_seconds"`
}

type wireGroup struct {
	Name         string           `json:"name"`
	Members      []string         `json:"members"`
	ChildGroups  []string         `json:"child_groups"`
	ParentGroups []string         `json:"parent_groups"`
	Variables    map[string]Value `json:"variables"`
}

// Parse detects the document's envelope format (JSON or YAML, auto
// detected per §6.1: first non-whitespace byte '{' or '[' means JSON,
// otherwise YAML) and decodes it into a Plan.
func Parse(data []byte) (*Plan, error) {
	doc, err := decodeWireDoc(data)
	if err != nil {
		return nil, err
	}
	return fromWireDoc(doc)
}

func decodeWireDoc(data []byte) (*wireDoc, error) {
	trimmed := strings.TrimSpace(data2str(data))
	var doc wireDoc
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, &ParseError{Kind: "malformed", Inner: err}
		}
		return &doc, nil
	}
	// YAML: normalize to JSON first via sigs.k8s.io/yaml, then decode
	// the same wireDoc struct tags, matching the teacher's yaml->JSON
	// apiserver-config convention.
	jsonBytes, err := k8syaml.YAMLToJSON(data)
	if err != nil {
		return nil, &ParseError{Kind: "malformed", Inner: err}
	}
	if err := json.Unmarshal(jsonBytes, &doc); err != nil {
		return nil, &ParseError{Kind: "malformed", Inner: err}
	}
	return &doc, nil
}

func data2str(data []byte) string { return string(data) }

func fromWireDoc(doc *wireDoc) (*Plan, error) {
	if doc.Metadata.PlanID == "" {
		return nil, &ParseError{Kind: "missing-field", Field: "metadata.plan_id"}
	}

	createdAt := time.Now().UTC()
	if doc.Metadata.CreatedAt != "" {
		t, err := time.Parse(time.RFC3339, doc.Metadata.CreatedAt)
		if err != nil {
			return nil, &ParseError{Kind: "invalid-value", Field: "metadata.created_at", Value: doc.Metadata.CreatedAt, Inner: err}
		}
		createdAt = t.UTC()
	}

	threshold := 5
	if doc.Metadata.BinaryThreshold != nil {
		threshold = *doc.Metadata.BinaryThreshold
	}
	forks := doc.Metadata.Forks
	if forks < 1 {
		forks = 1
	}
	opt := OptimizationMode(doc.Metadata.Optimization)
	if opt == "" {
		opt = OptimizationAuto
	}

	p := &Plan{
		PlanID:        doc.Metadata.PlanID,
		CreatedAt:     createdAt,
		SourceVersion: doc.Metadata.SourceVersion,
		PlanningOptions: PlanningOptions{
			Limit:           doc.Metadata.Limit,
			Tags:            doc.Metadata.Tags,
			SkipTags:        doc.Metadata.SkipTags,
			CheckMode:       doc.Metadata.CheckMode,
			DiffMode:        doc.Metadata.DiffMode,
			Forks:           forks,
			Serial:          doc.Metadata.Serial,
			Strategy:        PlayStrategy(doc.Metadata.Strategy),
			BinaryThreshold: threshold,
			ForceBinary:     doc.Metadata.ForceBinary,
			ForceShell:      doc.Metadata.ForceShell,
			Optimization:    opt,
		},
		GlobalVariables: map[string]Value{},
	}

	for _, wh := range doc.Hosts {
		p.Hosts = append(p.Hosts, Host{
			Name:    wh.Name,
			Address: wh.Address,
			Connection: Connection{
				Method:     ConnectionMethod(orDefault(wh.Connection.Method, "ssh")),
				User:       wh.Connection.User,
				Port:       wh.Connection.Port,
				Credential: wh.Connection.Credential,
				Timeout:    durationFromSeconds(wh.Connection.TimeoutSec),
			},
			Variables:    wh.Variables,
			Groups:       wh.Groups,
			TargetTriple: wh.TargetTriple,
			DeclaredArch: wh.DeclaredArch,
			DeclaredOS:   wh.DeclaredOS,
		})
	}
	for _, wg := range doc.Groups {
		p.Groups = append(p.Groups, Group{
			Name:         wg.Name,
			Members:      wg.Members,
			ChildGroups:  wg.ChildGroups,
			ParentGroups: wg.ParentGroups,
			Variables:    wg.Variables,
		})
	}

	hostNames := map[string]bool{}
	for _, h := range p.Hosts {
		if hostNames[h.Name] {
			return nil, &ParseError{Kind: "schema-violation", Field: "hosts", Value: h.Name}
		}
		hostNames[h.Name] = true
	}

	for _, wp := range doc.Plays {
		play := Play{
			PlayID:            wp.PlayID,
			Name:              wp.Name,
			Strategy:          PlayStrategy(orDefault(wp.Strategy, string(StrategyLinear))),
			Serial:            wp.Serial,
			Hosts:             wp.Hosts,
			EstimatedDuration: durationFromSeconds(wp.EstimatedDuration),
		}
		if len(play.Hosts) == 0 {
			// "When the document lacks target_hosts, it defaults to the
			// containing Play's host list" applies to tasks; an empty
			// play host list defaults to every plan host.
			for _, h := range p.Hosts {
				play.Hosts = append(play.Hosts, h.Name)
			}
		}
		for _, h := range play.Hosts {
			if !hostNames[h] {
				return nil, &ParseError{Kind: "schema-violation", Field: "plays[].hosts", Value: h}
			}
		}
		for _, wb := range wp.Batches {
			batch := Batch{
				BatchID:      wb.BatchID,
				Hosts:        wb.Hosts,
				Dependencies: wb.Dependencies,
			}
			if len(batch.Hosts) == 0 {
				batch.Hosts = play.Hosts
			}
			for _, wpg := range wb.ParallelGroups {
				batch.ParallelGroups = append(batch.ParallelGroups, ParallelGroup{
					Name:           wpg.Name,
					TaskIDs:        wpg.TaskIDs,
					MaxParallelism: wpg.MaxParallelism,
				})
			}
			for _, wt := range wb.Tasks {
				task, err := fromWireTask(wt, batch.Hosts)
				if err != nil {
					return nil, err
				}
				batch.Tasks = append(batch.Tasks, task)
			}
			play.Batches = append(play.Batches, batch)
		}
		for _, wh := range wp.Handlers {
			task, err := fromWireTask(wh, play.Hosts)
			if err != nil {
				return nil, err
			}
			play.Handlers = append(play.Handlers, Handler{Task: task})
		}
		p.Plays = append(p.Plays, play)
	}

	return p, nil
}

func fromWireTask(wt wireTask, defaultHosts []string) (Task, error) {
	if wt.TaskID == "" {
		return Task{}, &ParseError{Kind: "missing-field", Field: "task_id"}
	}
	if wt.Module == "" {
		return Task{}, &ParseError{Kind: "missing-field", Field: "module", Value: wt.TaskID}
	}
	hosts := wt.Hosts
	if len(hosts) == 0 {
		hosts = defaultHosts
	}
	risk := RiskLevel(orDefault(wt.RiskLevel, string(RiskLow)))
	failure := FailurePolicy(orDefault(wt.FailurePolicy, string(FailureContinue)))

	var conds []Condition
	for _, wc := range wt.Conditions {
		c := Condition{
			IncludeTags:  wc.IncludeTags,
			ExcludeTags:  wc.ExcludeTags,
			Expression:   wc.When,
			AllowedHosts: wc.AllowedHosts,
		}
		switch {
		case wc.Kind == "by-tag" || (len(wc.IncludeTags) > 0 || len(wc.ExcludeTags) > 0):
			c.Kind = ConditionByTag
		case wc.Kind == "skip" || wc.Skip != "":
			c.Kind = ConditionSkip
			c.Expression = wc.Skip
		case wc.Kind == "host-allow-list" || len(wc.AllowedHosts) > 0:
			c.Kind = ConditionHostAllowList
		default:
			c.Kind = ConditionWhen
		}
		conds = append(conds, c)
	}

	var retry *RetryPolicy
	if wt.Retry != nil {
		retry = &RetryPolicy{
			Attempts: wt.Retry.Attempts,
			Backoff:  BackoffStrategy(orDefault(wt.Retry.Backoff, string(BackoffFixed))),
		}
	}

	return Task{
		TaskID:            wt.TaskID,
		Name:              orDefault(wt.Name, wt.TaskID),
		Module:            wt.Module,
		Args:              wt.Args,
		TargetHosts:       hosts,
		Dependencies:      wt.Dependencies,
		Conditions:        conds,
		Tags:              wt.Tags,
		Notify:            wt.Notify,
		ExecutionOrder:    wt.ExecutionOrder,
		CanRunParallel:    wt.CanRunParallel,
		EstimatedDuration: durationFromSeconds(wt.EstimatedDuration),
		RiskLevel:         risk,
		FailurePolicy:     failure,
		Timeout:           durationFromSeconds(wt.TimeoutSeconds),
		Retry:             retry,
	}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func durationFromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// wrapParse wraps err in a ParseError of the given kind with a stack
// trace, mirroring the rest of the codebase's errors.Wrap usage. Nothing
// in this package calls it.
func wrapParse(kind string, err error) error {
	return errors.WithStack(&ParseError{Kind: kind, Inner: err})
}
