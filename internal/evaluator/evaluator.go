// Package evaluator runs a compiled StrategyLogicConfig against a comparator oracle.
// It is the executable form of the quorum rule and is used to check compiled output;
// the production engine evaluates configs on its own side.
package evaluator

import (
	"strategy-logic-go/internal/models"
	"strategy-logic-go/internal/quorum"
)

// Oracle decides whether one compiled method passes right now.
type Oracle func(m models.MethodConfig) bool

// Outcome is the result of evaluating one branch.
type Outcome struct {
	Evaluated bool `json:"evaluated"` // 分支启用
	Triggered bool `json:"triggered"` // 容器满足法定数
	Executed  bool `json:"executed"`  // onPass 动作集满足法定数
	Passed    int  `json:"passed"`    // 通过的启用容器数
}

// Group passes iff its enabled quorum over conditions holds.
func Group(g models.GroupConfig, oracle Oracle) bool {
	if !g.Enabled {
		return false
	}
	return quorum.Passes(g.Conditions, g.MinPassConditions, oracle)
}

// Container passes iff its enabled quorum over groups holds.
func Container(c models.ContainerConfig, oracle Oracle) bool {
	if !c.Checks.Enabled {
		return false
	}
	return quorum.Passes(c.Checks.Groups, c.Checks.MinPassGroups, func(g models.GroupConfig) bool {
		return Group(g, oracle)
	})
}

// ActionSet passes iff its enabled quorum over action methods holds.
func ActionSet(s models.ActionSet, oracle Oracle) bool {
	if !s.Enabled {
		return false
	}
	return quorum.Passes(s.Conditions, s.MinPassConditions, oracle)
}

// Branch evaluates containers and, when they trigger, the onPass set.
func Branch(b models.Branch, oracle Oracle) Outcome {
	if !b.Enabled {
		return Outcome{}
	}
	out := Outcome{Evaluated: true}
	container := func(c models.ContainerConfig) bool { return Container(c, oracle) }
	out.Triggered = quorum.Passes(b.Containers, b.MinPassConditionContainer, container)
	out.Passed = quorum.Count(b.Containers, container)
	if out.Triggered {
		out.Executed = ActionSet(b.OnPass, oracle)
	}
	return out
}

// Evaluate runs all four branches.
func Evaluate(cfg models.StrategyLogicConfig, oracle Oracle) map[models.BranchKey]Outcome {
	out := make(map[models.BranchKey]Outcome, len(models.BranchKeys))
	for _, key := range models.BranchKeys {
		out[key] = Branch(cfg.Branch(key), oracle)
	}
	return out
}
