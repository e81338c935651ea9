// Package quorum implements the pass rule shared by every level of the condition tree:
// a level passes iff all of its live required children pass and at least minPass of its
// live optional children pass. Disabled children are removed before anything else.
package quorum

// Node is anything that carries independent enabled/required flags.
type Node interface {
	IsEnabled() bool
	IsRequired() bool
}

// Live returns the enabled children in their original order.
func Live[T Node](children []T) []T {
	out := make([]T, 0, len(children))
	for _, c := range children {
		if c.IsEnabled() {
			out = append(out, c)
		}
	}
	return out
}

// Partition splits children into required and optional, preserving order.
// It does not filter disabled children; call Live first.
func Partition[T Node](children []T) (required, optional []T) {
	required = make([]T, 0, len(children))
	optional = make([]T, 0, len(children))
	for _, c := range children {
		if c.IsRequired() {
			required = append(required, c)
		} else {
			optional = append(optional, c)
		}
	}
	return required, optional
}

// Clamp corrects minPass into [0, optional].
func Clamp(minPass, optional int) int {
	if optional < 0 {
		optional = 0
	}
	if minPass < 0 {
		return 0
	}
	if minPass > optional {
		return optional
	}
	return minPass
}

// Threshold returns the clamped threshold for children, counting only live optional ones.
func Threshold[T Node](children []T, minPass int) int {
	_, optional := Partition(Live(children))
	return Clamp(minPass, len(optional))
}

// Passes evaluates the quorum rule. A level with no live children never passes.
func Passes[T Node](children []T, minPass int, pass func(T) bool) bool {
	live := Live(children)
	if len(live) == 0 {
		return false
	}
	required, optional := Partition(live)
	for _, c := range required {
		if !pass(c) {
			return false
		}
	}
	need := Clamp(minPass, len(optional))
	if need == 0 {
		return true
	}
	passed := 0
	for _, c := range optional {
		if pass(c) {
			passed++
			if passed >= need {
				return true
			}
		}
	}
	return false
}

// Count returns how many live children pass, for monitoring and previews.
func Count[T Node](children []T, pass func(T) bool) int {
	n := 0
	for _, c := range Live(children) {
		if pass(c) {
			n++
		}
	}
	return n
}
