package valueref

import (
	"sort"

	"strategy-logic-go/internal/models"
)

// usedValueIDs walks only enabled nodes and collects the registry ids they reference.
func usedValueIDs(tree models.Tree) map[string]struct{} {
	ids := make(map[string]struct{})
	add := func(o models.OperandRef) {
		if o.ValueID != "" {
			ids[o.ValueID] = struct{}{}
		}
	}

	for _, key := range models.BranchKeys {
		branch := tree.Branch(key)
		if !branch.Enabled {
			continue
		}
		for _, c := range branch.Containers {
			if !c.Enabled {
				continue
			}
			for _, g := range c.Groups {
				if !g.Enabled {
					continue
				}
				for _, item := range g.Conditions {
					if !item.Enabled {
						continue
					}
					for _, arg := range item.Args() {
						add(arg)
					}
				}
			}
		}
		if branch.OnPass.Enabled {
			for _, a := range branch.OnPass.Actions {
				if !a.Enabled {
					continue
				}
				for _, arg := range a.Args {
					add(arg)
				}
			}
		}
	}
	return ids
}

// UsedOutputs returns the minimal set of ValueRefs that influence at least one branch,
// deduplicated by identity and sorted by identity. Ids missing from the registry are skipped.
func UsedOutputs(tree models.Tree) []models.ValueRef {
	byIdentity := make(map[string]models.ValueRef)
	for id := range usedValueIDs(tree) {
		ref, ok := tree.Values[id]
		if !ok {
			continue
		}
		byIdentity[Identity(ref)] = ref
	}

	keys := make([]string, 0, len(byIdentity))
	for k := range byIdentity {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]models.ValueRef, 0, len(keys))
	for _, k := range keys {
		out = append(out, byIdentity[k].Clone())
	}
	return out
}

// UnusedValues lists registry ids that no enabled condition or action references.
func UnusedValues(tree models.Tree) []string {
	used := usedValueIDs(tree)
	out := make([]string, 0)
	for id := range tree.Values {
		if _, ok := used[id]; !ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// UnusedIndicators lists selected indicators none of whose outputs is used, in selection order.
func UnusedIndicators(tree models.Tree, selected []models.SelectedIndicator) []models.SelectedIndicator {
	usedIndicators := make(map[string]struct{})
	for _, ref := range UsedOutputs(tree) {
		usedIndicators[ref.IndicatorID] = struct{}{}
	}
	out := make([]models.SelectedIndicator, 0)
	for _, s := range selected {
		if _, ok := usedIndicators[s.ID]; !ok {
			out = append(out, s)
		}
	}
	return out
}
