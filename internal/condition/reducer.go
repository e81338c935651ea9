// Package condition holds the editable condition tree operations.
// Every reducer takes a tree by value and returns a new tree; the input is never modified,
// and on error the input tree is returned unchanged.
package condition

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"strategy-logic-go/internal/models"
	"strategy-logic-go/internal/valueref"
)

var (
	ErrNotFound    = errors.New("node not found")
	ErrDuplicateID = errors.New("duplicate id")
	ErrValueInUse  = errors.New("value is still referenced")
)

// newID generates ids for nodes added without one.
var newID = uuid.NewString

func ensureID(id string) string {
	if id == "" {
		return newID()
	}
	return id
}

// assignIDs fills missing ids in a slice of siblings and rejects duplicates among them.
func assignIDs[T any](items []T, id func(*T) *string, what, parent string) error {
	seen := make(map[string]bool, len(items))
	for i := range items {
		p := id(&items[i])
		*p = ensureID(*p)
		if seen[*p] {
			return fmt.Errorf("%s %s in %s: %w", what, *p, parent, ErrDuplicateID)
		}
		seen[*p] = true
	}
	return nil
}

// prepareGroup gives a new group and its conditions ids.
func prepareGroup(g *models.GroupNode) error {
	g.ID = ensureID(g.ID)
	return assignIDs(g.Conditions, func(x *models.ConditionItem) *string { return &x.ID }, "condition", "group "+g.ID)
}

// prepareContainer gives a new container and everything below it ids.
func prepareContainer(c *models.ContainerNode) error {
	c.ID = ensureID(c.ID)
	if err := assignIDs(c.Groups, func(x *models.GroupNode) *string { return &x.ID }, "group", "container "+c.ID); err != nil {
		return err
	}
	for i := range c.Groups {
		if err := prepareGroup(&c.Groups[i]); err != nil {
			return err
		}
	}
	return nil
}

func checkKey(key models.BranchKey) error {
	_, err := models.ParseBranchKey(string(key))
	return err
}

func editBranch(tree models.Tree, key models.BranchKey, fn func(*models.BranchNode) error) (models.Tree, error) {
	if err := checkKey(key); err != nil {
		return tree, err
	}
	out := tree.Clone()
	b := out.Branch(key)
	if err := fn(&b); err != nil {
		return tree, err
	}
	out.SetBranch(key, b)
	return out, nil
}

func editContainer(tree models.Tree, key models.BranchKey, containerID string, fn func(*models.ContainerNode) error) (models.Tree, error) {
	return editBranch(tree, key, func(b *models.BranchNode) error {
		i := indexOf(b.Containers, containerID, func(c models.ContainerNode) string { return c.ID })
		if i < 0 {
			return fmt.Errorf("container %s in %s: %w", containerID, key, ErrNotFound)
		}
		return fn(&b.Containers[i])
	})
}

func editGroup(tree models.Tree, key models.BranchKey, containerID, groupID string, fn func(*models.GroupNode) error) (models.Tree, error) {
	return editContainer(tree, key, containerID, func(c *models.ContainerNode) error {
		i := indexOf(c.Groups, groupID, func(g models.GroupNode) string { return g.ID })
		if i < 0 {
			return fmt.Errorf("group %s in container %s: %w", groupID, containerID, ErrNotFound)
		}
		return fn(&c.Groups[i])
	})
}

func editCondition(tree models.Tree, key models.BranchKey, containerID, groupID, conditionID string, fn func(*models.ConditionItem) error) (models.Tree, error) {
	return editGroup(tree, key, containerID, groupID, func(g *models.GroupNode) error {
		i := indexOf(g.Conditions, conditionID, func(c models.ConditionItem) string { return c.ID })
		if i < 0 {
			return fmt.Errorf("condition %s in group %s: %w", conditionID, groupID, ErrNotFound)
		}
		return fn(&g.Conditions[i])
	})
}

func editAction(tree models.Tree, key models.BranchKey, actionID string, fn func(*models.ActionItem) error) (models.Tree, error) {
	return editBranch(tree, key, func(b *models.BranchNode) error {
		i := indexOf(b.OnPass.Actions, actionID, func(a models.ActionItem) string { return a.ID })
		if i < 0 {
			return fmt.Errorf("action %s in %s: %w", actionID, key, ErrNotFound)
		}
		return fn(&b.OnPass.Actions[i])
	})
}

func indexOf[T any](items []T, id string, idOf func(T) string) int {
	for i, it := range items {
		if idOf(it) == id {
			return i
		}
	}
	return -1
}

func removeAt[T any](items []T, i int) []T {
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

// --- values ---

// AddValue registers ref under id. An empty id uses the ref's identity.
// Re-adding an identical ref under the same id is a no-op.
func AddValue(tree models.Tree, id string, ref models.ValueRef) (models.Tree, error) {
	if err := ref.Validate(); err != nil {
		return tree, err
	}
	if id == "" {
		id = valueref.Identity(ref)
	}
	if existing, ok := tree.Values[id]; ok {
		if valueref.Identity(existing) == valueref.Identity(ref) {
			return tree, nil
		}
		return tree, fmt.Errorf("value %s: %w", id, ErrDuplicateID)
	}
	out := tree.Clone()
	out.Values[id] = ref.Clone()
	return out, nil
}

// RemoveValue drops a registry entry that no condition or action references.
func RemoveValue(tree models.Tree, id string) (models.Tree, error) {
	if _, ok := tree.Values[id]; !ok {
		return tree, fmt.Errorf("value %s: %w", id, ErrNotFound)
	}
	if refs := referencesTo(tree, id); refs > 0 {
		return tree, fmt.Errorf("value %s used by %d node(s): %w", id, refs, ErrValueInUse)
	}
	out := tree.Clone()
	delete(out.Values, id)
	return out, nil
}

func referencesTo(tree models.Tree, id string) int {
	n := 0
	for _, key := range models.BranchKeys {
		b := tree.Branch(key)
		for _, c := range b.Containers {
			for _, g := range c.Groups {
				for _, item := range g.Conditions {
					for _, arg := range item.Args() {
						if arg.ValueID == id {
							n++
						}
					}
				}
			}
		}
		for _, a := range b.OnPass.Actions {
			for _, arg := range a.Args {
				if arg.ValueID == id {
					n++
				}
			}
		}
	}
	return n
}

// --- branch ---

// SetBranchEnabled turns a whole branch on or off.
func SetBranchEnabled(tree models.Tree, key models.BranchKey, enabled bool) (models.Tree, error) {
	return editBranch(tree, key, func(b *models.BranchNode) error {
		b.Enabled = enabled
		return nil
	})
}

// SetBranchMinPass sets minPassConditionContainer. Out-of-range values are kept and clamped at compile time.
func SetBranchMinPass(tree models.Tree, key models.BranchKey, minPass int) (models.Tree, error) {
	return editBranch(tree, key, func(b *models.BranchNode) error {
		b.MinPassConditionContainer = minPass
		return nil
	})
}

// --- containers ---

// AddContainer appends a container to a branch.
func AddContainer(tree models.Tree, key models.BranchKey, c models.ContainerNode) (models.Tree, error) {
	c = c.Clone()
	if err := prepareContainer(&c); err != nil {
		return tree, err
	}
	return editBranch(tree, key, func(b *models.BranchNode) error {
		if indexOf(b.Containers, c.ID, func(x models.ContainerNode) string { return x.ID }) >= 0 {
			return fmt.Errorf("container %s in %s: %w", c.ID, key, ErrDuplicateID)
		}
		b.Containers = append(b.Containers, c)
		return nil
	})
}

// RemoveContainer deletes a container and everything below it.
func RemoveContainer(tree models.Tree, key models.BranchKey, containerID string) (models.Tree, error) {
	return editBranch(tree, key, func(b *models.BranchNode) error {
		i := indexOf(b.Containers, containerID, func(x models.ContainerNode) string { return x.ID })
		if i < 0 {
			return fmt.Errorf("container %s in %s: %w", containerID, key, ErrNotFound)
		}
		b.Containers = removeAt(b.Containers, i)
		return nil
	})
}

func SetContainerEnabled(tree models.Tree, key models.BranchKey, containerID string, enabled bool) (models.Tree, error) {
	return editContainer(tree, key, containerID, func(c *models.ContainerNode) error {
		c.Enabled = enabled
		return nil
	})
}

func SetContainerRequired(tree models.Tree, key models.BranchKey, containerID string, required bool) (models.Tree, error) {
	return editContainer(tree, key, containerID, func(c *models.ContainerNode) error {
		c.Required = required
		return nil
	})
}

func SetContainerMinPass(tree models.Tree, key models.BranchKey, containerID string, minPass int) (models.Tree, error) {
	return editContainer(tree, key, containerID, func(c *models.ContainerNode) error {
		c.MinPassGroups = minPass
		return nil
	})
}

// --- groups ---

// AddGroup appends a group to a container.
func AddGroup(tree models.Tree, key models.BranchKey, containerID string, g models.GroupNode) (models.Tree, error) {
	g = g.Clone()
	if err := prepareGroup(&g); err != nil {
		return tree, err
	}
	return editContainer(tree, key, containerID, func(c *models.ContainerNode) error {
		if indexOf(c.Groups, g.ID, func(x models.GroupNode) string { return x.ID }) >= 0 {
			return fmt.Errorf("group %s in container %s: %w", g.ID, containerID, ErrDuplicateID)
		}
		c.Groups = append(c.Groups, g)
		return nil
	})
}

func RemoveGroup(tree models.Tree, key models.BranchKey, containerID, groupID string) (models.Tree, error) {
	return editContainer(tree, key, containerID, func(c *models.ContainerNode) error {
		i := indexOf(c.Groups, groupID, func(x models.GroupNode) string { return x.ID })
		if i < 0 {
			return fmt.Errorf("group %s in container %s: %w", groupID, containerID, ErrNotFound)
		}
		c.Groups = removeAt(c.Groups, i)
		return nil
	})
}

func SetGroupEnabled(tree models.Tree, key models.BranchKey, containerID, groupID string, enabled bool) (models.Tree, error) {
	return editGroup(tree, key, containerID, groupID, func(g *models.GroupNode) error {
		g.Enabled = enabled
		return nil
	})
}

func SetGroupRequired(tree models.Tree, key models.BranchKey, containerID, groupID string, required bool) (models.Tree, error) {
	return editGroup(tree, key, containerID, groupID, func(g *models.GroupNode) error {
		g.Required = required
		return nil
	})
}

func SetGroupMinPass(tree models.Tree, key models.BranchKey, containerID, groupID string, minPass int) (models.Tree, error) {
	return editGroup(tree, key, containerID, groupID, func(g *models.GroupNode) error {
		g.MinPassConditions = minPass
		return nil
	})
}

// --- conditions ---

// AddCondition appends a comparator test to a group.
func AddCondition(tree models.Tree, key models.BranchKey, containerID, groupID string, item models.ConditionItem) (models.Tree, error) {
	item = item.Clone()
	item.ID = ensureID(item.ID)
	return editGroup(tree, key, containerID, groupID, func(g *models.GroupNode) error {
		if indexOf(g.Conditions, item.ID, func(x models.ConditionItem) string { return x.ID }) >= 0 {
			return fmt.Errorf("condition %s in group %s: %w", item.ID, groupID, ErrDuplicateID)
		}
		g.Conditions = append(g.Conditions, item)
		return nil
	})
}

// UpdateCondition replaces the condition with the same id, keeping its position.
func UpdateCondition(tree models.Tree, key models.BranchKey, containerID, groupID string, item models.ConditionItem) (models.Tree, error) {
	item = item.Clone()
	return editCondition(tree, key, containerID, groupID, item.ID, func(c *models.ConditionItem) error {
		*c = item
		return nil
	})
}

func RemoveCondition(tree models.Tree, key models.BranchKey, containerID, groupID, conditionID string) (models.Tree, error) {
	return editGroup(tree, key, containerID, groupID, func(g *models.GroupNode) error {
		i := indexOf(g.Conditions, conditionID, func(x models.ConditionItem) string { return x.ID })
		if i < 0 {
			return fmt.Errorf("condition %s in group %s: %w", conditionID, groupID, ErrNotFound)
		}
		g.Conditions = removeAt(g.Conditions, i)
		return nil
	})
}

func SetConditionEnabled(tree models.Tree, key models.BranchKey, containerID, groupID, conditionID string, enabled bool) (models.Tree, error) {
	return editCondition(tree, key, containerID, groupID, conditionID, func(c *models.ConditionItem) error {
		c.Enabled = enabled
		return nil
	})
}

func SetConditionRequired(tree models.Tree, key models.BranchKey, containerID, groupID, conditionID string, required bool) (models.Tree, error) {
	return editCondition(tree, key, containerID, groupID, conditionID, func(c *models.ConditionItem) error {
		c.Required = required
		return nil
	})
}

// --- action set ---

func SetActionSetEnabled(tree models.Tree, key models.BranchKey, enabled bool) (models.Tree, error) {
	return editBranch(tree, key, func(b *models.BranchNode) error {
		b.OnPass.Enabled = enabled
		return nil
	})
}

func SetActionSetMinPass(tree models.Tree, key models.BranchKey, minPass int) (models.Tree, error) {
	return editBranch(tree, key, func(b *models.BranchNode) error {
		b.OnPass.MinPassConditions = minPass
		return nil
	})
}

// AddAction appends an action to a branch's onPass set.
func AddAction(tree models.Tree, key models.BranchKey, a models.ActionItem) (models.Tree, error) {
	a = a.Clone()
	a.ID = ensureID(a.ID)
	return editBranch(tree, key, func(b *models.BranchNode) error {
		if indexOf(b.OnPass.Actions, a.ID, func(x models.ActionItem) string { return x.ID }) >= 0 {
			return fmt.Errorf("action %s in %s: %w", a.ID, key, ErrDuplicateID)
		}
		b.OnPass.Actions = append(b.OnPass.Actions, a)
		return nil
	})
}

func RemoveAction(tree models.Tree, key models.BranchKey, actionID string) (models.Tree, error) {
	return editBranch(tree, key, func(b *models.BranchNode) error {
		i := indexOf(b.OnPass.Actions, actionID, func(x models.ActionItem) string { return x.ID })
		if i < 0 {
			return fmt.Errorf("action %s in %s: %w", actionID, key, ErrNotFound)
		}
		b.OnPass.Actions = removeAt(b.OnPass.Actions, i)
		return nil
	})
}

func SetActionEnabled(tree models.Tree, key models.BranchKey, actionID string, enabled bool) (models.Tree, error) {
	return editAction(tree, key, actionID, func(a *models.ActionItem) error {
		a.Enabled = enabled
		return nil
	})
}

func SetActionRequired(tree models.Tree, key models.BranchKey, actionID string, required bool) (models.Tree, error) {
	return editAction(tree, key, actionID, func(a *models.ActionItem) error {
		a.Required = required
		return nil
	})
}
