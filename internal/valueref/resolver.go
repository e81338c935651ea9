package valueref

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"strategy-logic-go/internal/indicators"
	"strategy-logic-go/internal/models"
)

// ErrDanglingReference marks a ValueRef whose indicator or output is no longer selected.
var ErrDanglingReference = errors.New("dangling reference")

// DanglingReferenceError describes why a ref could not be resolved.
type DanglingReferenceError struct {
	Ref    models.ValueRef
	Reason string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("dangling reference to %s.%s: %s", e.Ref.IndicatorID, e.Ref.OutputChannel, e.Reason)
}

func (e *DanglingReferenceError) Unwrap() error {
	return ErrDanglingReference
}

// ResolvedRef is a ValueRef bound to the indicator it addresses.
type ResolvedRef struct {
	Ref       models.ValueRef
	Identity  string
	Indicator models.SelectedIndicator
	Label     string
}

// Resolver checks refs against the indicators the user has selected.
// It never mutates the tree and holds no state besides its inputs.
type Resolver struct {
	selected map[string]models.SelectedIndicator
	catalog  *indicators.Catalog
}

// NewResolver builds a resolver over the selected indicator set.
// A nil catalog falls back to the builtin one.
func NewResolver(selected []models.SelectedIndicator, catalog *indicators.Catalog) *Resolver {
	if catalog == nil {
		catalog = indicators.NewCatalog()
	}
	m := make(map[string]models.SelectedIndicator, len(selected))
	for _, s := range selected {
		m[s.ID] = s
	}
	return &Resolver{selected: m, catalog: catalog}
}

// Selected returns the indicator instance with the given id.
func (r *Resolver) Selected(id string) (models.SelectedIndicator, bool) {
	s, ok := r.selected[id]
	return s, ok
}

// Resolve binds ref to its selected indicator or reports why it dangles.
func (r *Resolver) Resolve(ref models.ValueRef) (ResolvedRef, error) {
	if err := ref.Validate(); err != nil {
		return ResolvedRef{}, fmt.Errorf("resolve %s: %w", ref.IndicatorID, err)
	}
	ind, ok := r.selected[ref.IndicatorID]
	if !ok {
		return ResolvedRef{}, &DanglingReferenceError{Ref: ref, Reason: "indicator is not selected"}
	}
	if !r.catalog.HasOutput(ind.Type, ref.OutputChannel) {
		return ResolvedRef{}, &DanglingReferenceError{
			Ref:    ref,
			Reason: fmt.Sprintf("indicator type %q does not declare output %q", ind.Type, ref.OutputChannel),
		}
	}
	return ResolvedRef{
		Ref:       ref,
		Identity:  Identity(ref),
		Indicator: ind,
		Label:     r.label(ind, ref),
	}, nil
}

// Label returns the human label of ref, or its raw indicator id when it cannot be resolved.
func (r *Resolver) Label(ref models.ValueRef) string {
	resolved, err := r.Resolve(ref)
	if err != nil {
		return ref.IndicatorID
	}
	return resolved.Label
}

func (r *Resolver) label(ind models.SelectedIndicator, ref models.ValueRef) string {
	var b strings.Builder

	name := ind.Name
	if name == "" {
		if def, ok := r.catalog.Lookup(ind.Type); ok {
			name = def.Label
		} else {
			name = ind.Type
		}
	}
	b.WriteString(name)

	params := ref.Params
	if len(params) == 0 {
		params = ind.Params
	}
	if len(params) > 0 {
		parts := make([]string, len(params))
		for i, p := range params {
			parts[i] = strconv.FormatFloat(p, 'g', -1, 64)
		}
		b.WriteString("(" + strings.Join(parts, ",") + ")")
	}

	if def, ok := r.catalog.Lookup(ind.Type); ok && len(def.Outputs) > 1 {
		b.WriteString("." + ref.OutputChannel)
	}

	tf := ref.Timeframe
	if tf == "" {
		tf = ind.Timeframe
	}
	if tf != "" {
		b.WriteString(" " + tf)
	}

	b.WriteString(offsetSuffix(ref))
	return b.String()
}

// offsetSuffix renders [n] for a single historical bar and [a..b agg] for a range.
func offsetSuffix(ref models.ValueRef) string {
	lo, hi := ref.OffsetRange[0], ref.OffsetRange[1]
	if lo == hi {
		if lo == 0 {
			return ""
		}
		return fmt.Sprintf(" [%d]", lo)
	}
	if ref.Aggregation == models.AggNone {
		return fmt.Sprintf(" [%d..%d]", lo, hi)
	}
	return fmt.Sprintf(" [%d..%d %s]", lo, hi, ref.Aggregation)
}
