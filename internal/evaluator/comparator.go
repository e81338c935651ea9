package evaluator

import (
	"strategy-logic-go/internal/models"
	"strategy-logic-go/internal/valueref"
)

// Bar holds the current and previous value of one series.
type Bar struct {
	Current  float64
	Previous float64
}

// Values maps a ValueRef identity to its latest bars.
type Values map[string]Bar

// ComparatorOracle evaluates the builtin comparators over values.
// Null operands, unknown series and non-comparator methods fail.
func ComparatorOracle(values Values) Oracle {
	return func(m models.MethodConfig) bool {
		method := models.Method(m.Method)
		n, ok := method.Arity()
		if !ok || len(m.Args) != n {
			return false
		}
		bars := make([]Bar, n)
		for i, arg := range m.Args {
			b, ok := values.bar(arg)
			if !ok {
				return false
			}
			bars[i] = b
		}
		return compare(method, bars)
	}
}

func (v Values) bar(o models.Operand) (Bar, bool) {
	switch {
	case o.Literal != nil:
		return Bar{Current: *o.Literal, Previous: *o.Literal}, true
	case o.Ref != nil:
		b, ok := v[valueref.Identity(*o.Ref)]
		return b, ok
	default:
		return Bar{}, false
	}
}

func compare(method models.Method, bars []Bar) bool {
	l, r := bars[0], bars[1]
	switch method {
	case models.CrossesAbove:
		return l.Previous <= r.Previous && l.Current > r.Current
	case models.CrossesBelow:
		return l.Previous >= r.Previous && l.Current < r.Current
	case models.GreaterThan:
		return l.Current > r.Current
	case models.GreaterOrEqual:
		return l.Current >= r.Current
	case models.LessThan:
		return l.Current < r.Current
	case models.LessOrEqual:
		return l.Current <= r.Current
	case models.Equal:
		return l.Current == r.Current
	case models.WithinRange:
		return l.Current >= r.Current && l.Current <= bars[2].Current
	case models.OutsideRange:
		return l.Current < r.Current || l.Current > bars[2].Current
	}
	return false
}
