package main

import (
	"context"
	"time"

	"tradebook/internal/bus"
	"tradebook/internal/mdg"
	"tradebook/internal/obs"
	"tradebook/internal/paper"
)

type feedConfig struct {
	generator  *mdg.Generator
	normalizer *mdg.Normalizer
	venue      *paper.Venue
	queue      *bus.Queue
	interval   time.Duration
	ticks      int
	logger     obs.Logger
}

// feed drives the paper market: each step matches the venue against a new tick and hands
// the tick and every venue response to the engine queue.
func feed(ctx context.Context, cfg feedConfig) {
	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()

	seq := obs.NewSequence(0)
	for n := 0; cfg.ticks == 0 || n < cfg.ticks; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		tick, err := cfg.normalizer.Normalize(cfg.generator.Next())
		if err != nil {
			cfg.logger.Errorf("normalize tick, err: %+v", err)
			continue
		}
		now := time.Now().UnixNano()
		for _, resp := range cfg.venue.Drain() {
			if err := cfg.queue.Publish(ctx, bus.ResponseEvent(seq.Next(), now, resp)); err != nil {
				return
			}
		}
		cfg.venue.OnTick(tick)
		if err := cfg.queue.Publish(ctx, bus.TickEvent(seq.Next(), now, tick)); err != nil {
			return
		}
		for _, resp := range cfg.venue.Drain() {
			if err := cfg.queue.Publish(ctx, bus.ResponseEvent(seq.Next(), now, resp)); err != nil {
				return
			}
		}
	}
}
