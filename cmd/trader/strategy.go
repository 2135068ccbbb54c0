package main

import (
	"tradebook/internal/core"
	"tradebook/internal/obs"
	"tradebook/internal/schema"
)

// flipStrategy opens a long on a down bar and closes it on an up bar. Working orders are
// canceled before anything new is sent.
type flipStrategy struct {
	engine *core.Engine
	size   int64
	log    obs.Logger
}

func newFlipStrategy(size int64, logger obs.Logger) *flipStrategy {
	return &flipStrategy{size: size, log: logger}
}

func (s *flipStrategy) OnBar(b schema.Bar) {
	if s.engine == nil {
		return
	}
	s.log.Infof("Bar: %s #%d %d o %s h %s l %s c %s v %d", b.Symbol, b.Index, b.IntTime, b.Open, b.High, b.Low, b.Close, b.Volume)

	if s.engine.LeftToBuy(b.Symbol)+s.engine.LeftToSell(b.Symbol) > 0 {
		if err := s.engine.CancelAll(b.Symbol); err != nil {
			s.log.Errorf("cancel %s, err: %+v", b.Symbol, err)
		}
		return
	}

	net, err := s.engine.NetPosition(b.Symbol)
	if err != nil {
		return
	}
	var req schema.OrderRequest
	switch {
	case net == 0 && b.Close.LessThan(b.Open):
		req = schema.OrderRequest{Symbol: b.Symbol, Price: b.Close, Size: s.size, Side: schema.SideBuy, OpenClose: schema.Open}
	case net > 0 && b.Close.GreaterThan(b.Open):
		req = schema.OrderRequest{Symbol: b.Symbol, Price: b.Close, Size: net, Side: schema.SideSell, OpenClose: schema.Close}
	default:
		return
	}
	if _, err := s.engine.Send(req); err != nil {
		s.log.Errorf("send %s, err: %+v", b.Symbol, err)
	}
}
