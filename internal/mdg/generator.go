package mdg

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"tradebook/internal/schema"
)

const (
	defaultStartTime = 90000000
	defaultStep      = 500 * time.Millisecond
	msPerDay         = 24 * 60 * 60 * 1000
)

// Config parameterizes the synthetic tick stream.
type Config struct {
	Seed      int64                      `json:"seed" yaml:"seed"`
	StartTime int64                      `json:"startTime" yaml:"start_time"`
	Step      time.Duration              `json:"step" yaml:"step"`
	TickSize  decimal.Decimal            `json:"tickSize" yaml:"tick_size"`
	MaxMove   int                        `json:"maxMove" yaml:"max_move"`
	MaxVolume int64                      `json:"maxVolume" yaml:"max_volume"`
	Prices    map[string]decimal.Decimal `json:"prices" yaml:"prices"`
}

type walk struct {
	symbol        string
	base          decimal.Decimal
	last          decimal.Decimal
	totalVolume   int64
	totalNotional decimal.Decimal
	openInterest  int64
}

// Generator creates random-walk ticks for every contract in the registry, round robin.
type Generator struct {
	cfg   Config
	rng   *rand.Rand
	walks []*walk
	index int
	clock int64
}

// NewGenerator creates a generator for all contracts in the registry.
func NewGenerator(reg *schema.Registry, cfg Config) (*Generator, error) {
	if reg == nil || reg.ContractCount() == 0 {
		return nil, fmt.Errorf("registry has no contracts")
	}
	if cfg.StartTime == 0 {
		cfg.StartTime = defaultStartTime
	}
	clock, err := ToMillis(cfg.StartTime)
	if err != nil {
		return nil, err
	}
	if cfg.Step <= 0 {
		cfg.Step = defaultStep
	}
	if !cfg.TickSize.IsPositive() {
		cfg.TickSize = decimal.NewFromInt(1)
	}
	if cfg.MaxMove <= 0 {
		cfg.MaxMove = 2
	}
	if cfg.MaxVolume <= 0 {
		cfg.MaxVolume = 10
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}

	walks := make([]*walk, 0, reg.ContractCount())
	for _, c := range reg.Contracts() {
		base, ok := cfg.Prices[c.Symbol]
		if !ok || !base.IsPositive() {
			base = decimal.NewFromInt(100)
		}
		walks = append(walks, &walk{symbol: c.Symbol, base: base, last: base})
	}
	return &Generator{
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(cfg.Seed)),
		walks: walks,
		clock: clock,
	}, nil
}

// Next creates the next tick in sequence. The clock advances by one step per tick.
func (g *Generator) Next() schema.Tick {
	w := g.walks[g.index]
	g.index = (g.index + 1) % len(g.walks)

	move := int64(g.rng.Intn(2*g.cfg.MaxMove+1) - g.cfg.MaxMove)
	upper := w.base.Mul(decimal.NewFromFloat(1.1)).Round(2)
	lower := w.base.Mul(decimal.NewFromFloat(0.9)).Round(2)
	price := w.last.Add(g.cfg.TickSize.Mul(decimal.NewFromInt(move)))
	if price.GreaterThan(upper) {
		price = upper
	}
	if price.LessThan(lower) {
		price = lower
	}
	if !price.IsPositive() {
		price = g.cfg.TickSize
	}
	volume := g.rng.Int63n(g.cfg.MaxVolume) + 1

	w.last = price
	w.totalVolume += volume
	w.totalNotional = w.totalNotional.Add(price.Mul(decimal.NewFromInt(volume)))
	w.openInterest += g.rng.Int63n(3) - 1
	if w.openInterest < 0 {
		w.openInterest = 0
	}

	tick := schema.Tick{
		Symbol:        w.symbol,
		IntTime:       FromMillis(g.clock),
		LastPrice:     price,
		TotalVolume:   w.totalVolume,
		TotalNotional: w.totalNotional,
		OpenInterest:  w.openInterest,
		UpperLimit:    upper,
		LowerLimit:    lower,
	}
	g.clock = (g.clock + g.cfg.Step.Milliseconds()) % msPerDay
	return tick
}

// ToMillis converts HHMMSSmmm into milliseconds since midnight.
func ToMillis(intTime int64) (int64, error) {
	h := intTime / 10000000
	m := intTime / 100000 % 100
	s := intTime / 1000 % 100
	ms := intTime % 1000
	if intTime < 0 || h > 23 || m > 59 || s > 59 {
		return 0, fmt.Errorf("invalid int time: %d", intTime)
	}
	return ((h*60+m)*60+s)*1000 + ms, nil
}

// FromMillis converts milliseconds since midnight into HHMMSSmmm.
func FromMillis(ms int64) int64 {
	h := ms / 3600000
	m := ms / 60000 % 60
	s := ms / 1000 % 60
	return h*10000000 + m*100000 + s*1000 + ms%1000
}
