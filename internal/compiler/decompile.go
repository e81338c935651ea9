package compiler

import (
	"fmt"

	"strategy-logic-go/internal/models"
	"strategy-logic-go/internal/valueref"
)

// Decompile rebuilds an editable tree from a compiled config, e.g. when a persisted strategy is
// reopened. Node ids are positional (c1, g1, x1, a1) and ValueRefs are interned by identity, so
// the same config always yields the same tree. Disabled nodes were dropped at compile time and
// cannot come back.
func Decompile(cfg models.StrategyLogicConfig) models.Tree {
	tree := models.NewTree()
	for _, key := range models.BranchKeys {
		tree.SetBranch(key, decompileBranch(&tree, cfg.Branch(key)))
	}
	return tree
}

func decompileBranch(tree *models.Tree, b models.Branch) models.BranchNode {
	out := models.BranchNode{
		Enabled:                   b.Enabled,
		MinPassConditionContainer: b.MinPassConditionContainer,
		Containers:                make([]models.ContainerNode, 0, len(b.Containers)),
		OnPass: models.ActionSetNode{
			Enabled:           b.OnPass.Enabled,
			MinPassConditions: b.OnPass.MinPassConditions,
			Actions:           make([]models.ActionItem, 0, len(b.OnPass.Conditions)),
		},
	}

	for ci, c := range b.Containers {
		cn := models.ContainerNode{
			ID:            fmt.Sprintf("c%d", ci+1),
			Enabled:       c.Checks.Enabled,
			Required:      c.Checks.Required,
			MinPassGroups: c.Checks.MinPassGroups,
			Groups:        make([]models.GroupNode, 0, len(c.Checks.Groups)),
		}
		for gi, g := range c.Checks.Groups {
			gn := models.GroupNode{
				ID:                fmt.Sprintf("g%d", gi+1),
				Enabled:           g.Enabled,
				Required:          g.Required,
				MinPassConditions: g.MinPassConditions,
				Conditions:        make([]models.ConditionItem, 0, len(g.Conditions)),
			}
			for xi, m := range g.Conditions {
				gn.Conditions = append(gn.Conditions, decompileCondition(tree, fmt.Sprintf("x%d", xi+1), m))
			}
			cn.Groups = append(cn.Groups, gn)
		}
		out.Containers = append(out.Containers, cn)
	}

	for ai, m := range b.OnPass.Conditions {
		item := models.ActionItem{
			ID:       fmt.Sprintf("a%d", ai+1),
			Enabled:  m.Enabled,
			Required: m.Required,
			Method:   m.Method,
			Args:     make([]models.OperandRef, 0, len(m.Args)),
		}
		for _, arg := range m.Args {
			item.Args = append(item.Args, intern(tree, arg))
		}
		out.OnPass.Actions = append(out.OnPass.Actions, item)
	}
	return out
}

// decompileCondition maps args[0] to the left value, args[1] to the right operand and
// args[2], when present, to the upper bound. A literal on the left cannot be expressed and
// is left empty for Validate to report.
func decompileCondition(tree *models.Tree, id string, m models.MethodConfig) models.ConditionItem {
	item := models.ConditionItem{
		ID:       id,
		Enabled:  m.Enabled,
		Required: m.Required,
		Method:   models.Method(m.Method),
	}
	if len(m.Args) > 0 {
		item.LeftValueID = intern(tree, m.Args[0]).ValueID
	}
	if len(m.Args) > 1 {
		item.Right = intern(tree, m.Args[1])
	}
	if len(m.Args) > 2 {
		bound := intern(tree, m.Args[2])
		item.Bound = &bound
	}
	return item
}

// intern registers a ref under its identity and returns the operand that points at it.
func intern(tree *models.Tree, o models.Operand) models.OperandRef {
	switch {
	case o.Ref != nil:
		id := valueref.Identity(*o.Ref)
		if _, ok := tree.Values[id]; !ok {
			tree.Values[id] = o.Ref.Clone()
		}
		return models.ValueOperand(id)
	case o.Literal != nil:
		return models.LiteralRef(*o.Literal)
	default:
		return models.OperandRef{}
	}
}
