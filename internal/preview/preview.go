// Package preview renders read-only projections of a strategy: one-line condition previews,
// a grouped natural-language summary and the canonical logic JSON.
package preview

import (
	"encoding/json"
	"strconv"
	"strings"

	"strategy-logic-go/internal/models"
	"strategy-logic-go/internal/quorum"
	"strategy-logic-go/internal/valueref"
)

// Line is one rendered condition or action.
type Line struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Required bool   `json:"required"`
}

// GroupSummary 是一个条件组的摘要
type GroupSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Required bool   `json:"required"`
	MinPass  int    `json:"minPass"`
	Lines    []Line `json:"lines"`
}

// ContainerSummary 是一个条件容器的摘要
type ContainerSummary struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Required bool           `json:"required"`
	MinPass  int            `json:"minPass"`
	Groups   []GroupSummary `json:"groups"`
}

// Section summarizes one enabled branch.
type Section struct {
	Branch     models.BranchKey   `json:"branch"`
	MinPass    int                `json:"minPass"`
	Containers []ContainerSummary `json:"containers"`
	Actions    []Line             `json:"actions"`
}

func resolverOrEmpty(r *valueref.Resolver) *valueref.Resolver {
	if r == nil {
		return valueref.NewResolver(nil, nil)
	}
	return r
}

// ConditionPreview renders a compiled method, e.g. "RSI(14) 1h greater than 50".
func ConditionPreview(m models.MethodConfig, resolver *valueref.Resolver) string {
	resolver = resolverOrEmpty(resolver)
	labels := make([]string, len(m.Args))
	for i, arg := range m.Args {
		labels[i] = operandLabel(arg, resolver)
	}
	return render(m.Method, labels)
}

// ItemPreview renders an editable condition. Unregistered value ids show up as the raw id.
func ItemPreview(tree models.Tree, item models.ConditionItem, resolver *valueref.Resolver) string {
	resolver = resolverOrEmpty(resolver)
	args := item.Args()
	labels := make([]string, len(args))
	for i, arg := range args {
		labels[i] = refLabel(tree, arg, resolver)
	}
	return render(string(item.Method), labels)
}

// ActionPreview renders an onPass action as "method(arg, arg)".
func ActionPreview(tree models.Tree, a models.ActionItem, resolver *valueref.Resolver) string {
	resolver = resolverOrEmpty(resolver)
	labels := make([]string, len(a.Args))
	for i, arg := range a.Args {
		labels[i] = refLabel(tree, arg, resolver)
	}
	return a.Method + "(" + strings.Join(labels, ", ") + ")"
}

func render(method string, labels []string) string {
	words := strings.ReplaceAll(method, "-", " ")
	m := models.Method(method)
	switch {
	case len(labels) == 0:
		return words
	case m.IsRange() && len(labels) == 3:
		return labels[0] + " " + words + " " + labels[1] + " .. " + labels[2]
	default:
		return labels[0] + " " + words + " " + strings.Join(labels[1:], " ")
	}
}

func operandLabel(o models.Operand, resolver *valueref.Resolver) string {
	switch {
	case o.Ref != nil:
		return resolver.Label(*o.Ref)
	case o.Literal != nil:
		return formatNumber(*o.Literal)
	default:
		return "?"
	}
}

func refLabel(tree models.Tree, o models.OperandRef, resolver *valueref.Resolver) string {
	switch {
	case o.ValueID != "":
		ref, ok := tree.Values[o.ValueID]
		if !ok {
			return o.ValueID
		}
		return resolver.Label(ref)
	case o.Literal != nil:
		return formatNumber(*o.Literal)
	default:
		return "?"
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// LogicSummary groups enabled conditions by branch, container and group.
// Thresholds are shown clamped, as the compiler emits them.
// Disabled nodes are skipped, as are containers and groups left without conditions
// and branches with nothing to show.
func LogicSummary(tree models.Tree, resolver *valueref.Resolver) []Section {
	resolver = resolverOrEmpty(resolver)
	sections := make([]Section, 0, len(models.BranchKeys))
	for _, key := range models.BranchKeys {
		b := tree.Branch(key)
		if !b.Enabled {
			continue
		}
		s := Section{Branch: key, MinPass: quorum.Threshold(b.Containers, b.MinPassConditionContainer), Containers: []ContainerSummary{}, Actions: []Line{}}
		for _, c := range b.Containers {
			if !c.Enabled {
				continue
			}
			cs := ContainerSummary{ID: c.ID, Name: c.Name, Required: c.Required, MinPass: quorum.Threshold(c.Groups, c.MinPassGroups), Groups: []GroupSummary{}}
			for _, g := range c.Groups {
				if !g.Enabled {
					continue
				}
				gs := GroupSummary{ID: g.ID, Name: g.Name, Required: g.Required, MinPass: quorum.Threshold(g.Conditions, g.MinPassConditions), Lines: []Line{}}
				for _, item := range g.Conditions {
					if !item.Enabled {
						continue
					}
					gs.Lines = append(gs.Lines, Line{ID: item.ID, Text: ItemPreview(tree, item, resolver), Required: item.Required})
				}
				if len(gs.Lines) > 0 {
					cs.Groups = append(cs.Groups, gs)
				}
			}
			if len(cs.Groups) > 0 {
				s.Containers = append(s.Containers, cs)
			}
		}
		if b.OnPass.Enabled {
			for _, a := range b.OnPass.Actions {
				if a.Enabled {
					s.Actions = append(s.Actions, Line{ID: a.ID, Text: ActionPreview(tree, a, resolver), Required: a.Required})
				}
			}
		}
		if len(s.Containers) > 0 || len(s.Actions) > 0 {
			sections = append(sections, s)
		}
	}
	return sections
}

// LogicJSON is the canonical compact serialization; it is also the payload sent to the backend.
// Key order follows the struct definitions, so equal configs give equal strings.
func LogicJSON(cfg models.StrategyLogicConfig) (string, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// LogicJSONIndent is LogicJSON formatted for the "view JSON" toggle.
func LogicJSONIndent(cfg models.StrategyLogicConfig) (string, error) {
	raw, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
