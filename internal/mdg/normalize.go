package mdg

import (
	"fmt"

	"tradebook/internal/schema"
)

// Normalizer checks raw ticks against the registry before they reach the engine.
type Normalizer struct {
	reg  *schema.Registry
	last map[string]schema.Tick
}

// NewNormalizer creates a normalizer for a registry.
func NewNormalizer(reg *schema.Registry) *Normalizer {
	return &Normalizer{reg: reg, last: make(map[string]schema.Tick)}
}

// Normalize validates a tick. Cumulative volume and notional must not go backwards for
// a symbol; limits left empty are carried from the previous tick.
func (n *Normalizer) Normalize(tick schema.Tick) (schema.Tick, error) {
	if n.reg == nil {
		return schema.Tick{}, fmt.Errorf("registry is nil")
	}
	if _, ok := n.reg.Contract(tick.Symbol); !ok {
		return schema.Tick{}, fmt.Errorf("symbol not found: %s", tick.Symbol)
	}
	if !tick.LastPrice.IsPositive() {
		return schema.Tick{}, fmt.Errorf("non-positive last price for %s: %s", tick.Symbol, tick.LastPrice)
	}
	if _, err := ToMillis(tick.IntTime); err != nil {
		return schema.Tick{}, err
	}
	prev, seen := n.last[tick.Symbol]
	if seen {
		if tick.TotalVolume < prev.TotalVolume || tick.TotalNotional.LessThan(prev.TotalNotional) {
			return schema.Tick{}, fmt.Errorf("cumulative totals regressed for %s", tick.Symbol)
		}
		if tick.UpperLimit.IsZero() {
			tick.UpperLimit = prev.UpperLimit
		}
		if tick.LowerLimit.IsZero() {
			tick.LowerLimit = prev.LowerLimit
		}
	}
	n.last[tick.Symbol] = tick
	return tick, nil
}
