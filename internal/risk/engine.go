package risk

import (
	"time"

	"github.com/shopspring/decimal"

	"tradebook/internal/errors"
	"tradebook/internal/schema"
)

var ErrRiskDenied = errors.New("order denied by risk")

var bpsScale = decimal.NewFromInt(10000)

// Config defines simple risk limits. Zero values disable a check.
type Config struct {
	KillSwitch  bool
	MaxOrderQty int64
	// MaxOrderNotional caps price * size * multiplier.
	MaxOrderNotional     decimal.Decimal
	MaxPosition          int64
	OrderRateLimit       int
	OrderRateWindow      time.Duration
	MaxPriceDeviationBps int64
	// CheckCash denies orders whose reservation exceeds the available cash.
	CheckCash bool
}

// StateView is the ledger state a decision is made against.
type StateView struct {
	Position       int64
	ReferencePrice decimal.Decimal
	Multiplier     decimal.Decimal
	CashAvailable  decimal.Decimal
	Reservation    decimal.Decimal
	Now            int64
}

// Action is the outcome of a risk decision.
type Action uint8

const (
	ActionAllow Action = iota
	ActionDeny
)

// Decision records a risk evaluation.
type Decision struct {
	Action        Action
	Reason        schema.RiskReason
	Symbol        string
	ProposedQty   int64
	ProposedPrice decimal.Decimal
	CurrentPos    int64
	MaxPos        int64
}

// Allowed reports whether the order may be sent.
func (d Decision) Allowed() bool {
	return d.Action == ActionAllow
}

// Err returns ErrRiskDenied wrapped with the reason, or nil when allowed.
func (d Decision) Err() error {
	if d.Allowed() {
		return nil
	}
	return errors.Wrapf(ErrRiskDenied, "%s %s qty %d @ %s", d.Reason, d.Symbol, d.ProposedQty, d.ProposedPrice)
}

// Engine evaluates risk decisions.
type Engine struct {
	cfg             Config
	rateWindowStart int64
	rateCount       int
}

// NewEngine creates a risk engine with static limits.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// SetKillSwitch toggles the kill switch at runtime.
func (e *Engine) SetKillSwitch(on bool) {
	e.cfg.KillSwitch = on
}

// Evaluate applies the configured checks to an order request.
func (e *Engine) Evaluate(req schema.OrderRequest, state StateView) Decision {
	decision := Decision{
		Action:        ActionAllow,
		Reason:        schema.RiskReasonNone,
		Symbol:        req.Symbol,
		ProposedQty:   req.Size,
		ProposedPrice: req.Price,
		CurrentPos:    state.Position,
		MaxPos:        e.cfg.MaxPosition,
	}
	deny := func(reason schema.RiskReason) Decision {
		decision.Action = ActionDeny
		decision.Reason = reason
		return decision
	}

	now := state.Now
	if now == 0 {
		now = time.Now().UTC().UnixNano()
	}

	if e.cfg.KillSwitch {
		return deny(schema.RiskReasonKillSwitch)
	}

	if e.cfg.OrderRateLimit > 0 && e.cfg.OrderRateWindow > 0 {
		window := int64(e.cfg.OrderRateWindow)
		if e.rateWindowStart == 0 || now-e.rateWindowStart >= window {
			e.rateWindowStart = now
			e.rateCount = 0
		}
		e.rateCount++
		if e.rateCount > e.cfg.OrderRateLimit {
			return deny(schema.RiskReasonRateLimit)
		}
	}

	if e.cfg.MaxOrderQty > 0 && req.Size > e.cfg.MaxOrderQty {
		return deny(schema.RiskReasonMaxQty)
	}

	if e.cfg.MaxPriceDeviationBps > 0 && req.OrderType == schema.OrderTypeLimit && req.Price.IsPositive() {
		ref := state.ReferencePrice
		if ref.IsPositive() && exceedsDeviation(req.Price, ref, e.cfg.MaxPriceDeviationBps) {
			return deny(schema.RiskReasonPriceBand)
		}
	}

	if e.cfg.MaxOrderNotional.IsPositive() {
		mult := state.Multiplier
		if mult.IsZero() {
			mult = decimal.NewFromInt(1)
		}
		if req.Notional().Abs().Mul(mult).GreaterThan(e.cfg.MaxOrderNotional) {
			return deny(schema.RiskReasonMaxNotional)
		}
	}

	nextPos := applySide(state.Position, req.Side, req.Size)
	if e.cfg.MaxPosition > 0 && absInt64(nextPos) > e.cfg.MaxPosition {
		return deny(schema.RiskReasonPositionLimit)
	}

	if e.cfg.CheckCash && state.Reservation.GreaterThan(state.CashAvailable) {
		return deny(schema.RiskReasonCash)
	}

	return decision
}

func applySide(pos int64, side schema.Side, qty int64) int64 {
	switch side {
	case schema.SideBuy:
		return pos + qty
	case schema.SideSell:
		return pos - qty
	default:
		return pos
	}
}

func absInt64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// exceedsDeviation reports |price - ref| / ref > bps / 10000.
func exceedsDeviation(price, ref decimal.Decimal, bps int64) bool {
	diff := price.Sub(ref).Abs()
	if !diff.IsPositive() {
		return false
	}
	return diff.Mul(bpsScale).GreaterThan(ref.Mul(decimal.NewFromInt(bps)))
}
