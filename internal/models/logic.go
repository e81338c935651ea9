package models

// StrategyLogicConfig is the compiled artifact handed to the execution engine.
// Field names and nesting are the wire contract; do not rename.
type StrategyLogicConfig struct {
	Entry BranchPair `json:"entry"`
	Exit  BranchPair `json:"exit"`
}

// BranchPair holds the long and short pipelines of one phase.
type BranchPair struct {
	Long  Branch `json:"long"`
	Short Branch `json:"short"`
}

// Branch is one of the four entry/exit x long/short evaluation pipelines.
type Branch struct {
	Enabled                   bool              `json:"enabled"`
	MinPassConditionContainer int               `json:"minPassConditionContainer"`
	Containers                []ContainerConfig `json:"containers"`
	OnPass                    ActionSet         `json:"onPass"`
}

// ContainerConfig wraps a filter bank under the "checks" key.
type ContainerConfig struct {
	Checks Checks `json:"checks"`
}

// Checks is the compiled form of a ConditionContainer.
// Required is only emitted when true so that optional containers keep the minimal wire shape.
type Checks struct {
	Enabled       bool          `json:"enabled"`
	Required      bool          `json:"required,omitempty"`
	MinPassGroups int           `json:"minPassGroups"`
	Groups        []GroupConfig `json:"groups"`
}

// GroupConfig is the compiled form of a ConditionGroup.
type GroupConfig struct {
	Enabled           bool           `json:"enabled"`
	Required          bool           `json:"required,omitempty"`
	MinPassConditions int            `json:"minPassConditions"`
	Conditions        []MethodConfig `json:"conditions"`
}

// ActionSet is the side-effecting step executed once a branch's containers satisfy quorum.
type ActionSet struct {
	Enabled           bool           `json:"enabled"`
	MinPassConditions int            `json:"minPassConditions"`
	Conditions        []MethodConfig `json:"conditions"`
}

// MethodConfig is a single comparator test or action invocation.
type MethodConfig struct {
	Enabled  bool      `json:"enabled"`
	Required bool      `json:"required"`
	Method   string    `json:"method"`
	Args     []Operand `json:"args"`
}

func (m MethodConfig) IsEnabled() bool  { return m.Enabled }
func (m MethodConfig) IsRequired() bool { return m.Required }

func (g GroupConfig) IsEnabled() bool  { return g.Enabled }
func (g GroupConfig) IsRequired() bool { return g.Required }

func (c ContainerConfig) IsEnabled() bool  { return c.Checks.Enabled }
func (c ContainerConfig) IsRequired() bool { return c.Checks.Required }

// Branch returns the compiled branch stored under key.
func (c StrategyLogicConfig) Branch(key BranchKey) Branch {
	switch key {
	case EntryShort:
		return c.Entry.Short
	case ExitLong:
		return c.Exit.Long
	case ExitShort:
		return c.Exit.Short
	default:
		return c.Entry.Long
	}
}

// SetBranch stores b under key.
func (c *StrategyLogicConfig) SetBranch(key BranchKey, b Branch) {
	switch key {
	case EntryLong:
		c.Entry.Long = b
	case EntryShort:
		c.Entry.Short = b
	case ExitLong:
		c.Exit.Long = b
	case ExitShort:
		c.Exit.Short = b
	}
}
