package indicators

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Definition declares an indicator type and the output channels it produces.
type Definition struct {
	Type          string
	Label         string
	Outputs       []string
	DefaultParams []float64
}

// Catalog is the set of indicator types known to the editor.
type Catalog struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// builtin mirrors the indicator set the execution engine calculates.
var builtin = []Definition{
	{Type: "price", Label: "Price", Outputs: []string{"open", "high", "low", "close", "volume"}},
	{Type: "ma", Label: "MA", Outputs: []string{"value"}, DefaultParams: []float64{20}},
	{Type: "ema", Label: "EMA", Outputs: []string{"value"}, DefaultParams: []float64{20}},
	{Type: "rsi", Label: "RSI", Outputs: []string{"value"}, DefaultParams: []float64{14}},
	{Type: "macd", Label: "MACD", Outputs: []string{"macd", "signal", "histogram"}, DefaultParams: []float64{12, 26, 9}},
	{Type: "boll", Label: "BOLL", Outputs: []string{"upper", "middle", "lower"}, DefaultParams: []float64{20, 2}},
	{Type: "atr", Label: "ATR", Outputs: []string{"value"}, DefaultParams: []float64{14}},
	{Type: "vri", Label: "VRI", Outputs: []string{"value"}, DefaultParams: []float64{14}},
}

// NewCatalog returns a catalog seeded with the builtin indicator types.
func NewCatalog() *Catalog {
	c := &Catalog{defs: make(map[string]Definition, len(builtin))}
	for _, d := range builtin {
		c.defs[d.Type] = d
	}
	return c
}

// Register adds or replaces an indicator type.
func (c *Catalog) Register(def Definition) error {
	if def.Type == "" {
		return fmt.Errorf("indicator type is required")
	}
	if len(def.Outputs) == 0 {
		return fmt.Errorf("indicator %s declares no outputs", def.Type)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defs[strings.ToLower(def.Type)] = def
	return nil
}

// Lookup returns the definition of an indicator type.
func (c *Catalog) Lookup(indicatorType string) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.defs[strings.ToLower(indicatorType)]
	return d, ok
}

// HasOutput reports whether the indicator type declares the output channel.
func (c *Catalog) HasOutput(indicatorType, output string) bool {
	d, ok := c.Lookup(indicatorType)
	if !ok {
		return false
	}
	for _, o := range d.Outputs {
		if o == output {
			return true
		}
	}
	return false
}

// Types lists the registered indicator types in sorted order.
func (c *Catalog) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.defs))
	for t := range c.defs {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
