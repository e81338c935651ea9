package models

import "fmt"

// BranchKey names one of the four fixed branch slots.
type BranchKey string

const (
	EntryLong  BranchKey = "entry.long"
	EntryShort BranchKey = "entry.short"
	ExitLong   BranchKey = "exit.long"
	ExitShort  BranchKey = "exit.short"
)

// BranchKeys lists the slots in their canonical order.
var BranchKeys = []BranchKey{EntryLong, EntryShort, ExitLong, ExitShort}

// ParseBranchKey validates a branch key coming from the wire.
func ParseBranchKey(s string) (BranchKey, error) {
	for _, k := range BranchKeys {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown branch %q", s)
}

// Method 是比较器名称
type Method string

const (
	CrossesAbove   Method = "crosses-above"
	CrossesBelow   Method = "crosses-below"
	GreaterThan    Method = "greater-than"
	GreaterOrEqual Method = "greater-or-equal"
	LessThan       Method = "less-than"
	LessOrEqual    Method = "less-or-equal"
	Equal          Method = "equal"
	WithinRange    Method = "within-range"
	OutsideRange   Method = "outside-range"
)

// methodArity maps each comparator to the number of args it compiles to.
var methodArity = map[Method]int{
	CrossesAbove:   2,
	CrossesBelow:   2,
	GreaterThan:    2,
	GreaterOrEqual: 2,
	LessThan:       2,
	LessOrEqual:    2,
	Equal:          2,
	WithinRange:    3,
	OutsideRange:   3,
}

// Arity returns the argument count of a comparator and whether it is known.
func (m Method) Arity() (int, bool) {
	n, ok := methodArity[m]
	return n, ok
}

// IsRange reports whether the comparator takes a lower and an upper bound.
func (m Method) IsRange() bool {
	return m == WithinRange || m == OutsideRange
}

// Tree is the editable condition model of one strategy.
// Values is the registry of ValueRefs the user picked; conditions address them by id.
type Tree struct {
	Values map[string]ValueRef `json:"values"`
	Entry  BranchPairNode      `json:"entry"`
	Exit   BranchPairNode      `json:"exit"`
}

// BranchPairNode holds the editable long and short branches of one phase.
type BranchPairNode struct {
	Long  BranchNode `json:"long"`
	Short BranchNode `json:"short"`
}

// BranchNode is the editable form of a StrategyLogicBranch.
type BranchNode struct {
	Enabled                   bool            `json:"enabled"`
	MinPassConditionContainer int             `json:"minPassConditionContainer"`
	Containers                []ContainerNode `json:"containers"`
	OnPass                    ActionSetNode   `json:"onPass"`
}

// ContainerNode is a named filter bank, e.g. "open-long filters".
type ContainerNode struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Enabled       bool        `json:"enabled"`
	Required      bool        `json:"required"`
	MinPassGroups int         `json:"minPassGroups"`
	Groups        []GroupNode `json:"groups"`
}

// GroupNode is one logical clause of comparator checks.
type GroupNode struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Enabled           bool            `json:"enabled"`
	Required          bool            `json:"required"`
	MinPassConditions int             `json:"minPassConditions"`
	Conditions        []ConditionItem `json:"conditions"`
}

// ConditionItem is a single comparator test.
// Bound is the upper limit of range comparators and is nil otherwise.
type ConditionItem struct {
	ID          string      `json:"id"`
	Enabled     bool        `json:"enabled"`
	Required    bool        `json:"required"`
	Method      Method      `json:"method"`
	LeftValueID string      `json:"leftValueId"`
	Right       OperandRef  `json:"right"`
	Bound       *OperandRef `json:"bound,omitempty"`
}

// OperandRef points at a registered ValueRef or carries a literal.
type OperandRef struct {
	ValueID string   `json:"valueId,omitempty"`
	Literal *float64 `json:"literal,omitempty"`
}

// ValueOperand references a registered value by id.
func ValueOperand(id string) OperandRef {
	return OperandRef{ValueID: id}
}

// LiteralRef wraps a literal number.
func LiteralRef(f float64) OperandRef {
	return OperandRef{Literal: &f}
}

// ActionSetNode is the editable form of an ActionSet.
type ActionSetNode struct {
	Enabled           bool         `json:"enabled"`
	MinPassConditions int          `json:"minPassConditions"`
	Actions           []ActionItem `json:"actions"`
}

// ActionItem is one side-effecting method, e.g. place-order.
type ActionItem struct {
	ID       string       `json:"id"`
	Enabled  bool         `json:"enabled"`
	Required bool         `json:"required"`
	Method   string       `json:"method"`
	Args     []OperandRef `json:"args"`
}

func (c ContainerNode) IsEnabled() bool  { return c.Enabled }
func (c ContainerNode) IsRequired() bool { return c.Required }
func (g GroupNode) IsEnabled() bool      { return g.Enabled }
func (g GroupNode) IsRequired() bool     { return g.Required }
func (i ConditionItem) IsEnabled() bool  { return i.Enabled }
func (i ConditionItem) IsRequired() bool { return i.Required }
func (a ActionItem) IsEnabled() bool     { return a.Enabled }
func (a ActionItem) IsRequired() bool    { return a.Required }

// NewTree returns an empty tree with every branch enabled and no filters configured.
func NewTree() Tree {
	t := Tree{Values: map[string]ValueRef{}}
	for _, k := range BranchKeys {
		t.SetBranch(k, BranchNode{
			Enabled:    true,
			Containers: []ContainerNode{},
			OnPass:     ActionSetNode{Enabled: true, Actions: []ActionItem{}},
		})
	}
	return t
}

// Branch returns the editable branch stored under key.
func (t Tree) Branch(key BranchKey) BranchNode {
	switch key {
	case EntryShort:
		return t.Entry.Short
	case ExitLong:
		return t.Exit.Long
	case ExitShort:
		return t.Exit.Short
	default:
		return t.Entry.Long
	}
}

// SetBranch stores b under key. Callers working on value copies get a new tree.
func (t *Tree) SetBranch(key BranchKey, b BranchNode) {
	switch key {
	case EntryLong:
		t.Entry.Long = b
	case EntryShort:
		t.Entry.Short = b
	case ExitLong:
		t.Exit.Long = b
	case ExitShort:
		t.Exit.Short = b
	}
}

// Args lists the operands of a condition in wire order.
func (i ConditionItem) Args() []OperandRef {
	args := []OperandRef{ValueOperand(i.LeftValueID), i.Right}
	if i.Bound != nil {
		args = append(args, *i.Bound)
	}
	return args
}

// Clone returns a deep copy of the tree that shares no slices or maps with t.
func (t Tree) Clone() Tree {
	out := Tree{Values: make(map[string]ValueRef, len(t.Values))}
	for id, v := range t.Values {
		out.Values[id] = v.Clone()
	}
	for _, k := range BranchKeys {
		out.SetBranch(k, t.Branch(k).Clone())
	}
	return out
}

// Clone returns a deep copy of the branch.
func (b BranchNode) Clone() BranchNode {
	out := b
	out.Containers = make([]ContainerNode, len(b.Containers))
	for i, c := range b.Containers {
		out.Containers[i] = c.Clone()
	}
	out.OnPass.Actions = make([]ActionItem, len(b.OnPass.Actions))
	for i, a := range b.OnPass.Actions {
		out.OnPass.Actions[i] = a.Clone()
	}
	return out
}

// Clone returns a deep copy of the container.
func (c ContainerNode) Clone() ContainerNode {
	out := c
	out.Groups = make([]GroupNode, len(c.Groups))
	for i, g := range c.Groups {
		out.Groups[i] = g.Clone()
	}
	return out
}

// Clone returns a deep copy of the group.
func (g GroupNode) Clone() GroupNode {
	out := g
	out.Conditions = make([]ConditionItem, len(g.Conditions))
	for i, item := range g.Conditions {
		out.Conditions[i] = item.Clone()
	}
	return out
}

// Clone returns a deep copy of the condition.
func (i ConditionItem) Clone() ConditionItem {
	out := i
	out.Right = i.Right.Clone()
	if i.Bound != nil {
		b := i.Bound.Clone()
		out.Bound = &b
	}
	return out
}

// Clone returns a deep copy of the action.
func (a ActionItem) Clone() ActionItem {
	out := a
	out.Args = make([]OperandRef, len(a.Args))
	for i, arg := range a.Args {
		out.Args[i] = arg.Clone()
	}
	return out
}

// Clone returns a copy that does not share the literal pointer.
func (o OperandRef) Clone() OperandRef {
	if o.Literal == nil {
		return o
	}
	return LiteralRef(*o.Literal)
}
