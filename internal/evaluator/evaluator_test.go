package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-logic-go/internal/compiler"
	"strategy-logic-go/internal/models"
	"strategy-logic-go/internal/valueref"
)

func rsi() models.ValueRef {
	return models.ValueRef{IndicatorID: "rsi-1", Timeframe: "1h", InputChannel: "close", OutputChannel: "value"}
}

// byMethod answers each comparator from a fixed table.
func byMethod(results map[string]bool) Oracle {
	return func(m models.MethodConfig) bool { return results[m.Method] }
}

func TestGroupRequiredBoth(t *testing.T) {
	tree := models.NewTree()
	tree.Values["rsi"] = rsi()
	tree.Entry.Long.Containers = []models.ContainerNode{{
		ID: "c1", Enabled: true,
		Groups: []models.GroupNode{{ID: "g1", Enabled: true, Conditions: []models.ConditionItem{
			{ID: "x1", Enabled: true, Required: true, Method: models.GreaterThan, LeftValueID: "rsi", Right: models.LiteralRef(30)},
			{ID: "x2", Enabled: true, Required: true, Method: models.LessThan, LeftValueID: "rsi", Right: models.LiteralRef(70)},
		}}},
	}}
	cfg, _ := compiler.Compile(tree, nil)
	group := cfg.Entry.Long.Containers[0].Checks.Groups[0]

	tests := []struct {
		gt, lt bool
		want   bool
	}{
		{true, true, true},
		{true, false, false},
		{false, true, false},
		{false, false, false},
	}
	for _, tt := range tests {
		oracle := byMethod(map[string]bool{"greater-than": tt.gt, "less-than": tt.lt})
		assert.Equal(t, tt.want, Group(group, oracle), "gt=%v lt=%v", tt.gt, tt.lt)
	}

	values := Values{valueref.Identity(rsi()): {Current: 55, Previous: 25}}
	assert.True(t, Group(group, ComparatorOracle(values)))
	values[valueref.Identity(rsi())] = Bar{Current: 75}
	assert.False(t, Group(group, ComparatorOracle(values)))
}

func TestEmptyContainerNeverPasses(t *testing.T) {
	tree := models.NewTree()
	tree.Entry.Long.MinPassConditionContainer = 1
	tree.Entry.Long.Containers = []models.ContainerNode{{ID: "c1", Enabled: true}}
	tree.Entry.Long.OnPass.Actions = []models.ActionItem{{ID: "a1", Enabled: true, Method: "place-order"}}

	cfg, _ := compiler.Compile(tree, nil)
	always := func(models.MethodConfig) bool { return true }

	assert.False(t, Container(cfg.Entry.Long.Containers[0], always))
	out := Branch(cfg.Entry.Long, always)
	assert.True(t, out.Evaluated)
	assert.False(t, out.Triggered)
	assert.False(t, out.Executed)

	// no containers at all: enabled, never passes
	out = Branch(cfg.Entry.Short, always)
	assert.Equal(t, Outcome{Evaluated: true}, out)
}

func TestDisabledBranchIsNotEvaluated(t *testing.T) {
	tree := models.NewTree()
	tree.Exit.Long.Enabled = false
	cfg, _ := compiler.Compile(tree, nil)

	assert.Equal(t, Outcome{}, Evaluate(cfg, func(models.MethodConfig) bool { return true })[models.ExitLong])
}

func TestRequiredDisabledIsAbsent(t *testing.T) {
	g := models.GroupConfig{
		Enabled:           true,
		MinPassConditions: 1,
		Conditions: []models.MethodConfig{
			{Enabled: false, Required: true, Method: "less-than"},
			{Enabled: true, Method: "greater-than"},
		},
	}
	assert.True(t, Group(g, byMethod(map[string]bool{"greater-than": true})),
		"a disabled required condition must not force a failure")
}

func TestGroupMonotonicity(t *testing.T) {
	g := models.GroupConfig{
		Enabled:           true,
		MinPassConditions: 2,
		Conditions: []models.MethodConfig{
			{Enabled: true, Method: "a"},
			{Enabled: false, Method: "b"},
			{Enabled: true, Method: "c"},
		},
	}
	oracle := byMethod(map[string]bool{"a": true, "b": true, "c": false})
	before := Group(g, oracle)

	g.Conditions[1].Enabled = true
	after := Group(g, oracle)
	assert.False(t, before)
	assert.True(t, after, "re-enabling a passing optional condition cannot turn pass into fail")
}

func TestBranchExecutesActions(t *testing.T) {
	tree := models.NewTree()
	tree.Values["rsi"] = rsi()
	tree.Entry.Long.Containers = []models.ContainerNode{{
		ID: "c1", Enabled: true, Required: true,
		Groups: []models.GroupNode{{ID: "g1", Enabled: true, Required: true, Conditions: []models.ConditionItem{
			{ID: "x1", Enabled: true, Required: true, Method: models.CrossesAbove, LeftValueID: "rsi", Right: models.LiteralRef(30)},
		}}},
	}}
	tree.Entry.Long.OnPass.Actions = []models.ActionItem{{ID: "a1", Enabled: true, Required: true, Method: "place-order"}}
	cfg, _ := compiler.Compile(tree, nil)

	values := Values{valueref.Identity(rsi()): {Current: 35, Previous: 28}}
	comparators := ComparatorOracle(values)
	oracle := func(m models.MethodConfig) bool {
		if m.Method == "place-order" {
			return true
		}
		return comparators(m)
	}

	out := Branch(cfg.Entry.Long, oracle)
	assert.Equal(t, Outcome{Evaluated: true, Triggered: true, Executed: true, Passed: 1}, out)

	values[valueref.Identity(rsi())] = Bar{Current: 35, Previous: 33}
	out = Branch(cfg.Entry.Long, oracle)
	assert.False(t, out.Triggered, "no cross when already above")
	assert.Zero(t, out.Passed)
}

func TestComparatorOracle(t *testing.T) {
	lit := models.LiteralOperand
	tests := []struct {
		name string
		m    models.MethodConfig
		want bool
	}{
		{"within", models.MethodConfig{Method: "within-range", Args: []models.Operand{lit(5), lit(1), lit(10)}}, true},
		{"outside", models.MethodConfig{Method: "outside-range", Args: []models.Operand{lit(5), lit(1), lit(10)}}, false},
		{"equal", models.MethodConfig{Method: "equal", Args: []models.Operand{lit(2), lit(2)}}, true},
		{"null arg", models.MethodConfig{Method: "equal", Args: []models.Operand{{}, lit(2)}}, false},
		{"bad arity", models.MethodConfig{Method: "within-range", Args: []models.Operand{lit(1), lit(2)}}, false},
		{"unknown series", models.MethodConfig{Method: "greater-than", Args: []models.Operand{models.RefOperand(rsi()), lit(0)}}, false},
		{"not a comparator", models.MethodConfig{Method: "place-order", Args: []models.Operand{lit(1)}}, false},
	}
	oracle := ComparatorOracle(Values{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() { oracle(tt.m) })
			assert.Equal(t, tt.want, oracle(tt.m))
		})
	}
}

// An optional group under minPass 0 does not gate its container: the container passes
// whatever the group's conditions say.
func TestOptionalGroupWithZeroMinPassPassesVacuously(t *testing.T) {
	tree := models.NewTree()
	tree.Values["rsi"] = rsi()
	tree.Entry.Long.Containers = []models.ContainerNode{{
		ID: "c1", Enabled: true, Required: true,
		Groups: []models.GroupNode{{ID: "g1", Enabled: true, Conditions: []models.ConditionItem{
			{ID: "x1", Enabled: true, Required: true, Method: models.CrossesAbove, LeftValueID: "rsi", Right: models.LiteralRef(30)},
		}}},
	}}
	cfg, _ := compiler.Compile(tree, nil)
	require.Equal(t, 0, cfg.Entry.Long.Containers[0].Checks.MinPassGroups)

	never := func(models.MethodConfig) bool { return false }
	assert.False(t, Group(cfg.Entry.Long.Containers[0].Checks.Groups[0], never))
	assert.True(t, Container(cfg.Entry.Long.Containers[0], never))

	out := Branch(cfg.Entry.Long, never)
	assert.True(t, out.Triggered)
	assert.Equal(t, 1, out.Passed)
	assert.False(t, out.Executed, "an empty onPass never executes")
}
