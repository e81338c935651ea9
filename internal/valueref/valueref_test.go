package valueref

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strategy-logic-go/internal/models"
)

var selected = []models.SelectedIndicator{
	{ID: "rsi-1", Type: "rsi", Name: "RSI fast", Timeframe: "1h", Params: []float64{14}},
	{ID: "macd-1", Type: "macd", Timeframe: "4h"},
	{ID: "atr-1", Type: "atr", Timeframe: "1h", Params: []float64{14}},
}

func rsiRef() models.ValueRef {
	return models.ValueRef{IndicatorID: "rsi-1", Timeframe: "1h", InputChannel: "close", OutputChannel: "value"}
}

func macdSignalRef() models.ValueRef {
	return models.ValueRef{
		IndicatorID:   "macd-1",
		Timeframe:     "1h",
		InputChannel:  "close",
		Params:        []float64{12, 26, 9},
		OutputChannel: "signal",
		OffsetRange:   [2]int{1, 1},
	}
}

func TestResolve(t *testing.T) {
	r := NewResolver(selected, nil)

	resolved, err := r.Resolve(macdSignalRef())
	require.NoError(t, err)
	assert.Equal(t, "MACD(12,26,9).signal 1h [1]", resolved.Label)
	assert.Equal(t, Identity(macdSignalRef()), resolved.Identity)
	assert.Equal(t, "macd", resolved.Indicator.Type)

	resolved, err = r.Resolve(rsiRef())
	require.NoError(t, err)
	assert.Equal(t, "RSI fast(14) 1h", resolved.Label)
}

func TestResolveRangeLabel(t *testing.T) {
	r := NewResolver(selected, nil)
	ref := rsiRef()
	ref.OffsetRange = [2]int{1, 3}
	ref.Aggregation = models.AggMax

	assert.Equal(t, "RSI fast(14) 1h [1..3 max]", r.Label(ref))
}

func TestResolveDangling(t *testing.T) {
	r := NewResolver(selected, nil)

	tests := []struct {
		name string
		ref  models.ValueRef
	}{
		{name: "indicator not selected", ref: models.ValueRef{IndicatorID: "boll-9", OutputChannel: "upper"}},
		{name: "output not declared", ref: models.ValueRef{IndicatorID: "rsi-1", OutputChannel: "signal"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.ref)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDanglingReference))

			var dangling *DanglingReferenceError
			require.True(t, errors.As(err, &dangling))
			assert.Equal(t, tt.ref.IndicatorID, dangling.Ref.IndicatorID)

			// Labels never fail; they fall back to the raw id.
			assert.Equal(t, tt.ref.IndicatorID, r.Label(tt.ref))
		})
	}
}

func TestResolveInvalidOffset(t *testing.T) {
	r := NewResolver(selected, nil)
	ref := rsiRef()
	ref.OffsetRange = [2]int{3, 1}

	_, err := r.Resolve(ref)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidOffsetRange))
	assert.False(t, errors.Is(err, ErrDanglingReference))
}

func TestIdentity(t *testing.T) {
	a := macdSignalRef()
	b := macdSignalRef()
	assert.Equal(t, Identity(a), Identity(b), "equal refs share an identity")

	b.OffsetRange = [2]int{2, 2}
	assert.NotEqual(t, Identity(a), Identity(b))

	c := macdSignalRef()
	c.Params = []float64{12, 26, 10}
	assert.NotEqual(t, Identity(a), Identity(c))

	key, err := KeyFromIdentity(Identity(a))
	require.NoError(t, err)
	assert.Equal(t, CanonicalKey(a), key)
	assert.Equal(t, "macd-1|1h|close|12,26,9|signal|1:1|", key)
}

func treeWithConditions(enabledRef, disabledRef models.ValueRef) models.Tree {
	tree := models.NewTree()
	tree.Values["a"] = enabledRef
	tree.Values["b"] = disabledRef
	tree.Entry.Long.Containers = []models.ContainerNode{{
		ID:      "c1",
		Enabled: true,
		Groups: []models.GroupNode{{
			ID:      "g1",
			Enabled: true,
			Conditions: []models.ConditionItem{
				{ID: "x1", Enabled: true, Method: models.GreaterThan, LeftValueID: "a", Right: models.LiteralRef(50)},
				{ID: "x2", Enabled: false, Method: models.LessThan, LeftValueID: "b", Right: models.LiteralRef(20)},
			},
		}},
	}}
	return tree
}

func TestUsedOutputsSkipsDisabledConditions(t *testing.T) {
	tree := treeWithConditions(rsiRef(), macdSignalRef())

	used := UsedOutputs(tree)
	require.Len(t, used, 1)
	assert.Equal(t, Identity(rsiRef()), Identity(used[0]))

	assert.Equal(t, []string{"b"}, UnusedValues(tree))

	unused := UnusedIndicators(tree, selected)
	require.Len(t, unused, 2)
	assert.Equal(t, "macd-1", unused[0].ID)
	assert.Equal(t, "atr-1", unused[1].ID)
}

func TestUsedOutputsDeduplicatesAndRespectsBranchFlag(t *testing.T) {
	tree := treeWithConditions(rsiRef(), macdSignalRef())
	tree.Values["a2"] = rsiRef()
	tree.Entry.Long.Containers[0].Groups[0].Conditions[1].Enabled = true
	tree.Entry.Long.Containers[0].Groups[0].Conditions[1].Right = models.ValueOperand("a2")

	assert.Len(t, UsedOutputs(tree), 2, "a and a2 address the same series")

	tree.Entry.Long.Enabled = false
	assert.Empty(t, UsedOutputs(tree), "a disabled branch contributes nothing")
}

func TestUsedOutputsIncludesEnabledActions(t *testing.T) {
	tree := models.NewTree()
	tree.Values["atr"] = models.ValueRef{IndicatorID: "atr-1", OutputChannel: "value"}
	tree.Exit.Short.OnPass.Actions = []models.ActionItem{
		{ID: "stop", Enabled: true, Method: "place-stop", Args: []models.OperandRef{models.ValueOperand("atr")}},
	}

	require.Len(t, UsedOutputs(tree), 1)

	tree.Exit.Short.OnPass.Enabled = false
	assert.Empty(t, UsedOutputs(tree))
}
