package condition

import (
	"errors"
	"fmt"

	"strategy-logic-go/internal/models"
)

// ErrInvalidAction is returned when an Action envelope lacks the fields its type needs.
var ErrInvalidAction = errors.New("invalid action")

// ActionType names a reducer operation.
type ActionType string

const (
	AddValueAction             ActionType = "add-value"
	RemoveValueAction          ActionType = "remove-value"
	SetBranchEnabledAction     ActionType = "set-branch-enabled"
	SetBranchMinPassAction     ActionType = "set-branch-min-pass"
	AddContainerAction         ActionType = "add-container"
	RemoveContainerAction      ActionType = "remove-container"
	SetContainerEnabledAction  ActionType = "set-container-enabled"
	SetContainerRequiredAction ActionType = "set-container-required"
	SetContainerMinPassAction  ActionType = "set-container-min-pass"
	AddGroupAction             ActionType = "add-group"
	RemoveGroupAction          ActionType = "remove-group"
	SetGroupEnabledAction      ActionType = "set-group-enabled"
	SetGroupRequiredAction     ActionType = "set-group-required"
	SetGroupMinPassAction      ActionType = "set-group-min-pass"
	AddConditionAction         ActionType = "add-condition"
	UpdateConditionAction      ActionType = "update-condition"
	RemoveConditionAction      ActionType = "remove-condition"
	SetConditionEnabledAction  ActionType = "set-condition-enabled"
	SetConditionRequiredAction ActionType = "set-condition-required"
	SetActionSetEnabledAction  ActionType = "set-action-set-enabled"
	SetActionSetMinPassAction  ActionType = "set-action-set-min-pass"
	AddActionAction            ActionType = "add-action"
	RemoveActionAction         ActionType = "remove-action"
	SetActionEnabledAction     ActionType = "set-action-enabled"
	SetActionRequiredAction    ActionType = "set-action-required"
)

// Action is the wire envelope of one edit coming from the editor shell.
// For set-*-enabled and set-*-required a missing Flag toggles the current value.
type Action struct {
	Type        ActionType            `json:"type"`
	Branch      models.BranchKey      `json:"branch,omitempty"`
	ContainerID string                `json:"containerId,omitempty"`
	GroupID     string                `json:"groupId,omitempty"`
	ConditionID string                `json:"conditionId,omitempty"`
	ActionID    string                `json:"actionId,omitempty"`
	ValueID     string                `json:"valueId,omitempty"`
	Flag        *bool                 `json:"flag,omitempty"`
	MinPass     *int                  `json:"minPass,omitempty"`
	Value       *models.ValueRef      `json:"value,omitempty"`
	Container   *models.ContainerNode `json:"container,omitempty"`
	Group       *models.GroupNode     `json:"group,omitempty"`
	Condition   *models.ConditionItem `json:"condition,omitempty"`
	Item        *models.ActionItem    `json:"item,omitempty"`
}

func (a Action) invalid(field string) error {
	return fmt.Errorf("%s requires %s: %w", a.Type, field, ErrInvalidAction)
}

func (a Action) minPass() (int, error) {
	if a.MinPass == nil {
		return 0, a.invalid("minPass")
	}
	return *a.MinPass, nil
}

func flagOr(flag *bool, current bool) bool {
	if flag == nil {
		return !current
	}
	return *flag
}

// Reduce applies one Action and returns the new tree.
func Reduce(tree models.Tree, a Action) (models.Tree, error) {
	switch a.Type {
	case AddValueAction:
		if a.Value == nil {
			return tree, a.invalid("value")
		}
		return AddValue(tree, a.ValueID, *a.Value)
	case RemoveValueAction:
		return RemoveValue(tree, a.ValueID)

	case SetBranchEnabledAction:
		if err := checkKey(a.Branch); err != nil {
			return tree, err
		}
		return SetBranchEnabled(tree, a.Branch, flagOr(a.Flag, tree.Branch(a.Branch).Enabled))
	case SetBranchMinPassAction:
		n, err := a.minPass()
		if err != nil {
			return tree, err
		}
		return SetBranchMinPass(tree, a.Branch, n)

	case AddContainerAction:
		if a.Container == nil {
			return tree, a.invalid("container")
		}
		return AddContainer(tree, a.Branch, *a.Container)
	case RemoveContainerAction:
		return RemoveContainer(tree, a.Branch, a.ContainerID)
	case SetContainerEnabledAction, SetContainerRequiredAction:
		c, ok := FindContainer(tree, a.Branch, a.ContainerID)
		if !ok {
			return tree, fmt.Errorf("container %s in %s: %w", a.ContainerID, a.Branch, ErrNotFound)
		}
		if a.Type == SetContainerEnabledAction {
			return SetContainerEnabled(tree, a.Branch, a.ContainerID, flagOr(a.Flag, c.Enabled))
		}
		return SetContainerRequired(tree, a.Branch, a.ContainerID, flagOr(a.Flag, c.Required))
	case SetContainerMinPassAction:
		n, err := a.minPass()
		if err != nil {
			return tree, err
		}
		return SetContainerMinPass(tree, a.Branch, a.ContainerID, n)

	case AddGroupAction:
		if a.Group == nil {
			return tree, a.invalid("group")
		}
		return AddGroup(tree, a.Branch, a.ContainerID, *a.Group)
	case RemoveGroupAction:
		return RemoveGroup(tree, a.Branch, a.ContainerID, a.GroupID)
	case SetGroupEnabledAction, SetGroupRequiredAction:
		g, ok := FindGroup(tree, a.Branch, a.ContainerID, a.GroupID)
		if !ok {
			return tree, fmt.Errorf("group %s in container %s: %w", a.GroupID, a.ContainerID, ErrNotFound)
		}
		if a.Type == SetGroupEnabledAction {
			return SetGroupEnabled(tree, a.Branch, a.ContainerID, a.GroupID, flagOr(a.Flag, g.Enabled))
		}
		return SetGroupRequired(tree, a.Branch, a.ContainerID, a.GroupID, flagOr(a.Flag, g.Required))
	case SetGroupMinPassAction:
		n, err := a.minPass()
		if err != nil {
			return tree, err
		}
		return SetGroupMinPass(tree, a.Branch, a.ContainerID, a.GroupID, n)

	case AddConditionAction, UpdateConditionAction:
		if a.Condition == nil {
			return tree, a.invalid("condition")
		}
		if a.Type == AddConditionAction {
			return AddCondition(tree, a.Branch, a.ContainerID, a.GroupID, *a.Condition)
		}
		return UpdateCondition(tree, a.Branch, a.ContainerID, a.GroupID, *a.Condition)
	case RemoveConditionAction:
		return RemoveCondition(tree, a.Branch, a.ContainerID, a.GroupID, a.ConditionID)
	case SetConditionEnabledAction, SetConditionRequiredAction:
		item, ok := FindCondition(tree, a.Branch, a.ContainerID, a.GroupID, a.ConditionID)
		if !ok {
			return tree, fmt.Errorf("condition %s in group %s: %w", a.ConditionID, a.GroupID, ErrNotFound)
		}
		if a.Type == SetConditionEnabledAction {
			return SetConditionEnabled(tree, a.Branch, a.ContainerID, a.GroupID, a.ConditionID, flagOr(a.Flag, item.Enabled))
		}
		return SetConditionRequired(tree, a.Branch, a.ContainerID, a.GroupID, a.ConditionID, flagOr(a.Flag, item.Required))

	case SetActionSetEnabledAction:
		if err := checkKey(a.Branch); err != nil {
			return tree, err
		}
		return SetActionSetEnabled(tree, a.Branch, flagOr(a.Flag, tree.Branch(a.Branch).OnPass.Enabled))
	case SetActionSetMinPassAction:
		n, err := a.minPass()
		if err != nil {
			return tree, err
		}
		return SetActionSetMinPass(tree, a.Branch, n)
	case AddActionAction:
		if a.Item == nil {
			return tree, a.invalid("item")
		}
		return AddAction(tree, a.Branch, *a.Item)
	case RemoveActionAction:
		return RemoveAction(tree, a.Branch, a.ActionID)
	case SetActionEnabledAction, SetActionRequiredAction:
		item, ok := FindAction(tree, a.Branch, a.ActionID)
		if !ok {
			return tree, fmt.Errorf("action %s in %s: %w", a.ActionID, a.Branch, ErrNotFound)
		}
		if a.Type == SetActionEnabledAction {
			return SetActionEnabled(tree, a.Branch, a.ActionID, flagOr(a.Flag, item.Enabled))
		}
		return SetActionRequired(tree, a.Branch, a.ActionID, flagOr(a.Flag, item.Required))
	}
	return tree, fmt.Errorf("unknown action type %q: %w", a.Type, ErrInvalidAction)
}

// FindContainer looks a container up by id.
func FindContainer(tree models.Tree, key models.BranchKey, containerID string) (models.ContainerNode, bool) {
	if checkKey(key) != nil {
		return models.ContainerNode{}, false
	}
	for _, c := range tree.Branch(key).Containers {
		if c.ID == containerID {
			return c, true
		}
	}
	return models.ContainerNode{}, false
}

// FindGroup looks a group up by container and group id.
func FindGroup(tree models.Tree, key models.BranchKey, containerID, groupID string) (models.GroupNode, bool) {
	c, ok := FindContainer(tree, key, containerID)
	if !ok {
		return models.GroupNode{}, false
	}
	for _, g := range c.Groups {
		if g.ID == groupID {
			return g, true
		}
	}
	return models.GroupNode{}, false
}

// FindCondition looks a condition up by its full path.
func FindCondition(tree models.Tree, key models.BranchKey, containerID, groupID, conditionID string) (models.ConditionItem, bool) {
	g, ok := FindGroup(tree, key, containerID, groupID)
	if !ok {
		return models.ConditionItem{}, false
	}
	for _, item := range g.Conditions {
		if item.ID == conditionID {
			return item, true
		}
	}
	return models.ConditionItem{}, false
}

// FindAction looks an onPass action up by id.
func FindAction(tree models.Tree, key models.BranchKey, actionID string) (models.ActionItem, bool) {
	if checkKey(key) != nil {
		return models.ActionItem{}, false
	}
	for _, a := range tree.Branch(key).OnPass.Actions {
		if a.ID == actionID {
			return a, true
		}
	}
	return models.ActionItem{}, false
}
