package condition

import (
	"errors"
	"fmt"

	"strategy-logic-go/internal/models"
)

var (
	ErrUnknownMethod  = errors.New("unknown comparator method")
	ErrArity          = errors.New("wrong number of operands")
	ErrMissingValue   = errors.New("value id is not registered")
	ErrMissingOperand = errors.New("operand is empty")
)

// Validate reports structural problems of the tree. It does not resolve refs against
// the selected indicators; that is the compiler's job and yields soft issues instead.
func Validate(tree models.Tree) []error {
	var errs []error
	for id, ref := range tree.Values {
		if err := ref.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("value %s: %w", id, err))
		}
	}

	checkOperand := func(path string, o models.OperandRef) {
		switch {
		case o.ValueID == "" && o.Literal == nil:
			errs = append(errs, fmt.Errorf("%s: %w", path, ErrMissingOperand))
		case o.ValueID != "":
			if _, ok := tree.Values[o.ValueID]; !ok {
				errs = append(errs, fmt.Errorf("%s: %s: %w", path, o.ValueID, ErrMissingValue))
			}
		}
	}

	for _, key := range models.BranchKeys {
		b := tree.Branch(key)
		errs = append(errs, duplicates(string(key)+"/containers", b.Containers, func(c models.ContainerNode) string { return c.ID })...)
		for _, c := range b.Containers {
			cpath := fmt.Sprintf("%s/containers[%s]", key, c.ID)
			errs = append(errs, duplicates(cpath+"/groups", c.Groups, func(g models.GroupNode) string { return g.ID })...)
			for _, g := range c.Groups {
				gpath := fmt.Sprintf("%s/groups[%s]", cpath, g.ID)
				errs = append(errs, duplicates(gpath+"/conditions", g.Conditions, func(i models.ConditionItem) string { return i.ID })...)
				for _, item := range g.Conditions {
					ipath := fmt.Sprintf("%s/conditions[%s]", gpath, item.ID)
					n, ok := item.Method.Arity()
					if !ok {
						errs = append(errs, fmt.Errorf("%s: %q: %w", ipath, item.Method, ErrUnknownMethod))
					} else if got := len(item.Args()); got != n {
						errs = append(errs, fmt.Errorf("%s: %s takes %d operands, got %d: %w", ipath, item.Method, n, got, ErrArity))
					}
					for _, arg := range item.Args() {
						checkOperand(ipath, arg)
					}
				}
			}
		}

		apath := string(key) + "/onPass"
		errs = append(errs, duplicates(apath+"/actions", b.OnPass.Actions, func(a models.ActionItem) string { return a.ID })...)
		for _, a := range b.OnPass.Actions {
			if a.Method == "" {
				errs = append(errs, fmt.Errorf("%s/actions[%s]: empty method: %w", apath, a.ID, ErrUnknownMethod))
			}
			for _, arg := range a.Args {
				checkOperand(fmt.Sprintf("%s/actions[%s]", apath, a.ID), arg)
			}
		}
	}
	return errs
}

func duplicates[T any](path string, items []T, idOf func(T) string) []error {
	var errs []error
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		id := idOf(it)
		if _, ok := seen[id]; ok {
			errs = append(errs, fmt.Errorf("%s: %q: %w", path, id, ErrDuplicateID))
			continue
		}
		seen[id] = struct{}{}
	}
	return errs
}
