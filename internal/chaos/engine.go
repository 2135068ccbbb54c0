package chaos

import (
	"fmt"
	"math/rand"
	"time"

	"tradebook/internal/schema"
)

// Config controls chaos injection behavior.
type Config struct {
	Seed          int64   `json:"seed" yaml:"seed"`
	DropRate      float64 `json:"dropRate" yaml:"drop_rate"`
	DuplicateRate float64 `json:"duplicateRate" yaml:"duplicate_rate"`
	ReorderWindow int     `json:"reorderWindow" yaml:"reorder_window"`
}

// Enabled reports whether any rule is active.
func (c Config) Enabled() bool {
	return c.DropRate > 0 || c.DuplicateRate > 0 || c.ReorderWindow > 1
}

// Engine drops, duplicates and reorders venue responses.
type Engine struct {
	cfg     Config
	rng     *rand.Rand
	pending []schema.Response
}

// NewEngine creates a chaos engine with validation.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ReorderWindow == 0 {
		cfg.ReorderWindow = 1
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UTC().UnixNano()
	}
	return &Engine{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Validate ensures the config is within supported ranges.
func (c Config) Validate() error {
	if c.DropRate < 0 || c.DropRate > 1 {
		return fmt.Errorf("dropRate must be between 0 and 1")
	}
	if c.DuplicateRate < 0 || c.DuplicateRate > 1 {
		return fmt.Errorf("duplicateRate must be between 0 and 1")
	}
	if c.ReorderWindow < 0 {
		return fmt.Errorf("reorderWindow must be >= 0")
	}
	return nil
}

// Process applies chaos to a single response and returns any output responses.
func (e *Engine) Process(resp schema.Response) []schema.Response {
	if e == nil {
		return []schema.Response{resp}
	}
	if e.shouldDrop() {
		return nil
	}
	if e.cfg.ReorderWindow <= 1 {
		return e.applyDuplicate(resp)
	}
	e.pending = append(e.pending, resp)
	if len(e.pending) < e.cfg.ReorderWindow {
		return nil
	}
	return e.applyDuplicate(e.take())
}

// Flush returns any buffered responses in random order.
func (e *Engine) Flush() []schema.Response {
	if e == nil || len(e.pending) == 0 {
		return nil
	}
	out := make([]schema.Response, 0, len(e.pending))
	for len(e.pending) > 0 {
		out = append(out, e.applyDuplicate(e.take())...)
	}
	return out
}

// Pending returns the number of buffered responses.
func (e *Engine) Pending() int {
	if e == nil {
		return 0
	}
	return len(e.pending)
}

func (e *Engine) take() schema.Response {
	idx := e.rng.Intn(len(e.pending))
	out := e.pending[idx]
	e.pending = append(e.pending[:idx], e.pending[idx+1:]...)
	return out
}

func (e *Engine) shouldDrop() bool {
	return e.cfg.DropRate > 0 && e.rng.Float64() < e.cfg.DropRate
}

func (e *Engine) applyDuplicate(resp schema.Response) []schema.Response {
	out := []schema.Response{resp}
	if e.cfg.DuplicateRate > 0 && e.rng.Float64() < e.cfg.DuplicateRate {
		out = append(out, resp)
	}
	return out
}
