// Package compiler folds the editable condition tree into the StrategyLogicConfig
// consumed by the execution engine, and back.
package compiler

import (
	"fmt"

	"go.uber.org/zap"

	"strategy-logic-go/internal/models"
	"strategy-logic-go/internal/quorum"
	"strategy-logic-go/internal/valueref"
)

// IssueKind classifies a soft compile finding.
type IssueKind string

const (
	DanglingReference   IssueKind = "dangling_reference"
	ThresholdOutOfRange IssueKind = "threshold_out_of_range"
	EmptyRequiredField  IssueKind = "empty_required_field"
)

// Issue is a non-fatal finding. Compilation never fails; issues are shown next to the preview.
type Issue struct {
	Kind   IssueKind `json:"kind"`
	Path   string    `json:"path"`
	Detail string    `json:"detail"`
}

// Report collects the issues of one compile run in tree order.
type Report struct {
	Issues []Issue `json:"issues"`
}

// Of returns the issues of one kind.
func (r Report) Of(kind IssueKind) []Issue {
	out := make([]Issue, 0)
	for _, is := range r.Issues {
		if is.Kind == kind {
			out = append(out, is)
		}
	}
	return out
}

// Has reports whether any issue of kind was found at path.
func (r Report) Has(kind IssueKind, path string) bool {
	for _, is := range r.Issues {
		if is.Kind == kind && is.Path == path {
			return true
		}
	}
	return false
}

// Compiler turns trees into StrategyLogicConfigs. It holds no state besides its logger.
type Compiler struct {
	logger *zap.Logger
}

// New creates a Compiler. A nil logger is replaced by a no-op one.
func New(logger *zap.Logger) *Compiler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{logger: logger}
}

// Compile is a shorthand for New(nil).Compile.
func Compile(tree models.Tree, resolver *valueref.Resolver) (models.StrategyLogicConfig, Report) {
	return New(nil).Compile(tree, resolver)
}

// Compile derives the config from tree. It is total and deterministic: disabled nodes are dropped,
// thresholds clamped to the number of live optional children, and dangling refs kept but flagged.
// A nil resolver skips the indicator selection check.
func (c *Compiler) Compile(tree models.Tree, resolver *valueref.Resolver) (models.StrategyLogicConfig, Report) {
	run := &compileRun{tree: tree, resolver: resolver, report: Report{Issues: make([]Issue, 0)}}

	var cfg models.StrategyLogicConfig
	for _, key := range models.BranchKeys {
		cfg.SetBranch(key, run.branch(key, tree.Branch(key)))
	}

	c.logger.Debug("compiled strategy logic",
		zap.Int("issues", len(run.report.Issues)),
		zap.Int("dangling", len(run.report.Of(DanglingReference))),
		zap.Int("clamped", len(run.report.Of(ThresholdOutOfRange))),
	)
	return cfg, run.report
}

type compileRun struct {
	tree     models.Tree
	resolver *valueref.Resolver
	report   Report
}

func (r *compileRun) add(kind IssueKind, path, format string, args ...interface{}) {
	r.report.Issues = append(r.report.Issues, Issue{Kind: kind, Path: path, Detail: fmt.Sprintf(format, args...)})
}

// threshold clamps minPass and records a correction when the authored value was out of range.
func threshold[T quorum.Node](r *compileRun, path string, children []T, minPass int) int {
	th := quorum.Threshold(children, minPass)
	if th != minPass {
		_, optional := quorum.Partition(quorum.Live(children))
		r.add(ThresholdOutOfRange, path, "minPass %d clamped to %d (%d optional enabled)", minPass, th, len(optional))
	}
	return th
}

func (r *compileRun) branch(key models.BranchKey, b models.BranchNode) models.Branch {
	path := string(key)
	if !b.Enabled {
		return models.Branch{
			Enabled:    false,
			Containers: []models.ContainerConfig{},
			OnPass:     models.ActionSet{Conditions: []models.MethodConfig{}},
		}
	}

	out := models.Branch{
		Enabled:                   true,
		MinPassConditionContainer: threshold(r, path, b.Containers, b.MinPassConditionContainer),
		Containers:                make([]models.ContainerConfig, 0, len(b.Containers)),
	}
	for _, c := range quorum.Live(b.Containers) {
		out.Containers = append(out.Containers, models.ContainerConfig{Checks: r.container(path, c)})
	}
	if len(out.Containers) == 0 {
		r.add(EmptyRequiredField, path, "branch has no enabled containers and can never pass")
	}
	out.OnPass = r.actionSet(path+"/onPass", b.OnPass)
	return out
}

func (r *compileRun) container(parent string, c models.ContainerNode) models.Checks {
	path := fmt.Sprintf("%s/containers[%s]", parent, c.ID)
	out := models.Checks{
		Enabled:       true,
		Required:      c.Required,
		MinPassGroups: threshold(r, path, c.Groups, c.MinPassGroups),
		Groups:        make([]models.GroupConfig, 0, len(c.Groups)),
	}
	for _, g := range quorum.Live(c.Groups) {
		out.Groups = append(out.Groups, r.group(path, g))
	}
	if len(out.Groups) == 0 {
		r.add(EmptyRequiredField, path, "container has no enabled groups and can never pass")
	}
	return out
}

func (r *compileRun) group(parent string, g models.GroupNode) models.GroupConfig {
	path := fmt.Sprintf("%s/groups[%s]", parent, g.ID)
	out := models.GroupConfig{
		Enabled:           true,
		Required:          g.Required,
		MinPassConditions: threshold(r, path, g.Conditions, g.MinPassConditions),
		Conditions:        make([]models.MethodConfig, 0, len(g.Conditions)),
	}
	for _, item := range quorum.Live(g.Conditions) {
		ipath := fmt.Sprintf("%s/conditions[%s]", path, item.ID)
		out.Conditions = append(out.Conditions, models.MethodConfig{
			Enabled:  true,
			Required: item.Required,
			Method:   string(item.Method),
			Args:     r.operands(ipath, item.Args()),
		})
	}
	if len(out.Conditions) == 0 {
		r.add(EmptyRequiredField, path, "group has no enabled conditions and can never pass")
	}
	return out
}

func (r *compileRun) actionSet(path string, s models.ActionSetNode) models.ActionSet {
	if !s.Enabled {
		return models.ActionSet{Conditions: []models.MethodConfig{}}
	}
	out := models.ActionSet{
		Enabled:           true,
		MinPassConditions: threshold(r, path, s.Actions, s.MinPassConditions),
		Conditions:        make([]models.MethodConfig, 0, len(s.Actions)),
	}
	for _, a := range quorum.Live(s.Actions) {
		apath := fmt.Sprintf("%s/actions[%s]", path, a.ID)
		out.Conditions = append(out.Conditions, models.MethodConfig{
			Enabled:  true,
			Required: a.Required,
			Method:   a.Method,
			Args:     r.operands(apath, a.Args),
		})
	}
	if len(out.Conditions) == 0 {
		r.add(EmptyRequiredField, path, "action set has no enabled actions and will never execute")
	}
	return out
}

// operands resolves registry ids into wire operands. Unresolvable args become null.
func (r *compileRun) operands(path string, args []models.OperandRef) []models.Operand {
	out := make([]models.Operand, 0, len(args))
	for i, arg := range args {
		switch {
		case arg.ValueID != "":
			ref, ok := r.tree.Values[arg.ValueID]
			if !ok {
				r.add(DanglingReference, path, "arg %d: value %q is not registered", i, arg.ValueID)
				out = append(out, models.Operand{})
				continue
			}
			if r.resolver != nil {
				if _, err := r.resolver.Resolve(ref); err != nil {
					r.add(DanglingReference, path, "arg %d: %v", i, err)
				}
			}
			out = append(out, models.RefOperand(ref))
		case arg.Literal != nil:
			out = append(out, models.LiteralOperand(*arg.Literal))
		default:
			r.add(DanglingReference, path, "arg %d is empty", i)
			out = append(out, models.Operand{})
		}
	}
	return out
}
