// Package bar aggregates ticks into fixed-interval bars.
package bar

import (
	"github.com/shopspring/decimal"

	"tradebook/internal/schema"
)

// Minutes converts an HHMMSSmmm time of day to minutes since midnight.
func Minutes(intTime int64) int64 {
	return (intTime/10000000)*60 + (intTime%10000000)/100000
}

// Floor truncates an HHMMSSmmm time of day to the whole minute.
func Floor(intTime int64) int64 {
	return intTime / 100000 * 100000
}

type state struct {
	index        int
	lastBarMin   int64
	openVolume   int64
	openNotional decimal.Decimal
	open         bool
	cur          schema.Bar
}

// Aggregator builds per-symbol bars of a fixed number of minutes.
type Aggregator struct {
	interval int64
	states   map[string]*state
}

// NewAggregator creates an aggregator. An interval below one minute is treated as one.
func NewAggregator(intervalMinutes int) *Aggregator {
	if intervalMinutes < 1 {
		intervalMinutes = 1
	}
	return &Aggregator{
		interval: int64(intervalMinutes),
		states:   make(map[string]*state),
	}
}

// Interval returns the bar length in minutes.
func (a *Aggregator) Interval() int {
	return int(a.interval)
}

// OnTick folds a tick into the symbol's current bar and returns the bar it closed, if any.
//
// Volume and turnover of a bar are differences of the cumulative tick totals since the
// previous bar closed.
func (a *Aggregator) OnTick(t schema.Tick) (schema.Bar, bool) {
	s, ok := a.states[t.Symbol]
	if !ok {
		s = &state{
			lastBarMin:   Minutes(t.IntTime),
			openVolume:   t.TotalVolume,
			openNotional: t.TotalNotional,
		}
		a.states[t.Symbol] = s
	}

	if !s.open {
		s.cur = schema.Bar{
			Symbol:     t.Symbol,
			Open:       t.LastPrice,
			High:       t.LastPrice,
			Low:        t.LastPrice,
			UpperLimit: t.UpperLimit,
			LowerLimit: t.LowerLimit,
		}
		s.open = true
	} else {
		if t.LastPrice.GreaterThan(s.cur.High) {
			s.cur.High = t.LastPrice
		}
		if t.LastPrice.LessThan(s.cur.Low) {
			s.cur.Low = t.LastPrice
		}
	}
	s.cur.IntTime = Floor(t.IntTime)

	curMin := Minutes(t.IntTime)
	if curMin-s.lastBarMin < a.interval {
		return schema.Bar{}, false
	}

	out := s.cur
	out.Close = t.LastPrice
	out.OpenInterest = t.OpenInterest
	out.Volume = t.TotalVolume - s.openVolume
	out.Turnover = t.TotalNotional.Sub(s.openNotional)
	out.Index = s.index

	s.index++
	s.lastBarMin = curMin
	s.openVolume = t.TotalVolume
	s.openNotional = t.TotalNotional
	s.open = false
	s.cur = schema.Bar{}
	return out, true
}

// Current returns the bar being built for symbol.
func (a *Aggregator) Current(symbol string) (schema.Bar, bool) {
	s, ok := a.states[symbol]
	if !ok || !s.open {
		return schema.Bar{}, false
	}
	return s.cur, true
}

// Reset forgets every symbol, restarting bar indexes at zero.
func (a *Aggregator) Reset() {
	a.states = make(map[string]*state)
}
