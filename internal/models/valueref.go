package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidOffsetRange is returned when a ValueRef's offset range is negative or inverted.
var ErrInvalidOffsetRange = errors.New("invalid offset range")

// Aggregation 定义了在 offsetRange 覆盖的多根K线上如何合并数值
type Aggregation string

const (
	AggNone Aggregation = ""    // 单根K线 (offsetRange[0] == offsetRange[1])
	AggMin  Aggregation = "min" // 区间最小值
	AggMax  Aggregation = "max" // 区间最大值
	AggAvg  Aggregation = "avg" // 区间平均值
	AggSum  Aggregation = "sum" // 区间求和
	AggAny  Aggregation = "any" // 区间内任意一根满足
	AggAll  Aggregation = "all" // 区间内全部满足
)

// ValueRef addresses one indicator output series.
// It is treated as immutable once created; Params must not be mutated after construction.
type ValueRef struct {
	IndicatorID   string      `json:"indicatorId"`   // 所选指标实例的ID
	Timeframe     string      `json:"timeframe"`     // K线周期, e.g. "1h"
	InputChannel  string      `json:"inputChannel"`  // 输入通道, e.g. "close"
	Params        []float64   `json:"params"`        // 有序的数值参数
	OutputChannel string      `json:"outputChannel"` // 指标输出通道, e.g. "signal"
	OffsetRange   [2]int      `json:"offsetRange"`   // [最近K线偏移, 最远K线偏移], 0 = 当前K线
	Aggregation   Aggregation `json:"aggregation"`   // 区间聚合方式
}

// Validate requires 0 <= offsetRange[0] <= offsetRange[1].
func (v ValueRef) Validate() error {
	if v.OffsetRange[0] < 0 || v.OffsetRange[1] < 0 || v.OffsetRange[0] > v.OffsetRange[1] {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidOffsetRange, v.OffsetRange[0], v.OffsetRange[1])
	}
	return nil
}

// Clone returns a copy that shares no memory with v.
func (v ValueRef) Clone() ValueRef {
	out := v
	out.Params = make([]float64, len(v.Params))
	copy(out.Params, v.Params)
	return out
}

// Operand is one argument of a MethodConfig: either a ValueRef or a literal number.
// The zero Operand marshals as null and marks an unresolvable argument.
type Operand struct {
	Ref     *ValueRef
	Literal *float64
}

// RefOperand wraps a ValueRef as an Operand.
func RefOperand(v ValueRef) Operand {
	ref := v.Clone()
	return Operand{Ref: &ref}
}

// LiteralOperand wraps a number as an Operand.
func LiteralOperand(f float64) Operand {
	return Operand{Literal: &f}
}

// IsNull reports whether the operand carries neither a ref nor a literal.
func (o Operand) IsNull() bool {
	return o.Ref == nil && o.Literal == nil
}

// MarshalJSON emits the ValueRef object, the bare number, or null.
func (o Operand) MarshalJSON() ([]byte, error) {
	switch {
	case o.Ref != nil:
		return json.Marshal(o.Ref)
	case o.Literal != nil:
		return json.Marshal(*o.Literal)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a ValueRef object, a number, or null.
func (o *Operand) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*o = Operand{}
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		return nil
	case trimmed[0] == '{':
		var ref ValueRef
		if err := json.Unmarshal(trimmed, &ref); err != nil {
			return fmt.Errorf("decode value ref operand: %w", err)
		}
		o.Ref = &ref
		return nil
	default:
		var f float64
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return fmt.Errorf("decode literal operand %s: %w", string(trimmed), err)
		}
		o.Literal = &f
		return nil
	}
}
