package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tradebook/internal/bar"
	"tradebook/internal/bus"
	"tradebook/internal/errors"
	"tradebook/internal/journal"
	"tradebook/internal/obs"
	"tradebook/internal/og"
	"tradebook/internal/risk"
	"tradebook/internal/schema"
	"tradebook/internal/state"
)

var ErrInvalidConfig = errors.New("invalid engine config")

// Config wires the engine collaborators. Registry and Transport are required.
type Config struct {
	Registry        *schema.Registry
	Transport       og.Transport
	Logger          obs.Logger
	Metrics         *obs.Metrics
	Journal         journal.Journal
	Risk            risk.Config
	PreferYesterday bool
	BarMinutes      int
	// OnBar runs on the engine goroutine for every closed bar.
	OnBar func(schema.Bar)
	Now   func() time.Time
}

// Engine ties the gateway, both ledgers, risk and bars into one synchronous event handler.
//
// It is not safe for concurrent use; all calls must come from the same goroutine.
type Engine struct {
	reg       *schema.Registry
	gateway   *og.Gateway
	orders    *og.Ledger
	positions *state.Ledger
	risk      *risk.Engine
	bars      *bar.Aggregator
	journal   journal.Journal
	log       obs.Logger
	metrics   *obs.Metrics
	seq       *obs.Sequence
	onBar     func(schema.Bar)
	now       func() time.Time
}

// New builds an engine seeded from the registry's startup holdings.
func New(cfg Config) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "registry is nil")
	}
	if cfg.Transport == nil {
		return nil, errors.Wrap(ErrInvalidConfig, "transport is nil")
	}
	if cfg.Logger == nil {
		cfg.Logger = obs.NopLogger()
	}
	if cfg.Journal == nil {
		cfg.Journal = journal.Nop{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	e := &Engine{
		reg:     cfg.Registry,
		orders:  og.NewLedger(),
		risk:    risk.NewEngine(cfg.Risk),
		bars:    bar.NewAggregator(cfg.BarMinutes),
		journal: cfg.Journal,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		seq:     obs.NewSequence(0),
		onBar:   cfg.OnBar,
		now:     cfg.Now,
	}
	e.positions = state.NewLedger(cfg.Registry, state.Config{
		PreferYesterday: cfg.PreferYesterday,
		Logger:          cfg.Logger,
	})
	e.gateway = og.NewGateway(cfg.Transport, og.GatewayConfig{
		Ledger:       e.orders,
		Logger:       cfg.Logger,
		Metrics:      cfg.Metrics,
		OnRegistered: e.onRegistered,
	})
	return e, nil
}

// Send checks req against risk and hands it to the gateway. NoOrder with a nil error means
// nothing was transmitted yet: the size was zero or the send was queued behind a cancel.
func (e *Engine) Send(req schema.OrderRequest) (schema.OrderID, error) {
	start := e.now()
	defer func() { e.metrics.ObserveSend(e.now().Sub(start)) }()

	if req.Size == 0 {
		return schema.NoOrder, nil
	}

	view, err := e.stateView(req, start)
	if err != nil {
		return schema.NoOrder, err
	}
	decision := e.risk.Evaluate(req, view)
	if !decision.Allowed() {
		e.metrics.IncRiskReason(decision.Reason)
		e.log.Errorf("risk denied: %s %s %s %s %d @ %s", decision.Reason, req.Symbol, req.Side, req.OpenClose, req.Size, req.Price)
		return schema.NoOrder, decision.Err()
	}

	id, err := e.gateway.Send(req)
	if err != nil {
		return id, err
	}
	if id == schema.NoOrder {
		e.record(journal.Entry{
			Kind:      journal.KindDelayed,
			Symbol:    req.Symbol,
			Side:      req.Side,
			OpenClose: req.OpenClose,
			Qty:       req.Size,
			Price:     req.Price,
		})
	}
	return id, nil
}

func (e *Engine) stateView(req schema.OrderRequest, now time.Time) (risk.StateView, error) {
	c, err := e.positions.Contract(req.Symbol)
	if err != nil {
		return risk.StateView{}, err
	}
	net, _ := e.positions.NetPosition(req.Symbol)
	mark, _ := e.positions.LastPx(req.Symbol)
	cash, err := e.positions.CashAvailable(c.Account)
	if err != nil {
		return risk.StateView{}, err
	}
	reserve, _ := e.positions.ReservationFor(req)
	return risk.StateView{
		Position:       net,
		ReferencePrice: mark,
		Multiplier:     c.Multiplier,
		CashAvailable:  cash,
		Reservation:    reserve,
		Now:            now.UnixNano(),
	}, nil
}

// onRegistered reserves cash for every order the gateway registers, queued sends included.
func (e *Engine) onRegistered(o og.Order) {
	amount, err := e.positions.Reserve(o.ID, o.Request())
	if err != nil {
		e.log.Errorf("reserve order %d, err: %+v", o.ID, err)
	}
	e.record(journal.Entry{
		Kind:      journal.KindOrder,
		OrderID:   o.ID,
		Symbol:    o.Symbol,
		Side:      o.Side,
		OpenClose: o.OpenClose,
		Status:    o.Status,
		Qty:       o.Volume,
		Price:     o.Price,
		CashDelta: amount.Neg(),
	})
}

// Cancel requests cancellation of a live order.
func (e *Engine) Cancel(id schema.OrderID) error {
	if err := e.gateway.Cancel(id); err != nil {
		return err
	}
	if o, ok := e.orders.Order(id); ok {
		e.record(journal.Entry{
			Kind:      journal.KindCancel,
			OrderID:   id,
			Symbol:    o.Symbol,
			Side:      o.Side,
			OpenClose: o.OpenClose,
			Status:    o.Status,
		})
	}
	return nil
}

// CancelAll requests cancellation of every live order of symbol, returning the first error.
func (e *Engine) CancelAll(symbol string) error {
	var first error
	for _, o := range e.orders.OrdersFor(symbol) {
		if err := e.Cancel(o.ID); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// OnResponse applies one venue response: order ledger, then position ledger, then cash
// release, then queued sends for the symbol.
func (e *Engine) OnResponse(resp schema.Response) og.Outcome {
	start := e.now()
	defer func() { e.metrics.ObserveResponse(e.now().Sub(start)) }()

	e.log.Infof("Order Resp: %d %s %s %s %d @ %s %s %d %s",
		resp.OrderID, resp.Symbol, resp.Side, resp.OpenClose, resp.ExeVolume, resp.ExePrice, resp.Status, resp.ErrorCode, resp.ErrorText)

	out := e.gateway.Apply(resp)
	symbol := og.ResponseSymbol(out, resp)
	if out.IsIgnored() {
		e.metrics.IncIgnored()
		e.log.Infof("ignore response %d: %s", resp.OrderID, out.Ignored)
		e.gateway.Release(symbol)
		return out
	}
	e.metrics.IncStatus(resp.Status)
	if out.Fill.Clipped > 0 {
		e.metrics.IncClipped()
		e.log.Errorf("fill exceeds leaves: order %d, clipped %d", resp.OrderID, out.Fill.Clipped)
	}

	if out.HasFill() {
		e.applyFill(out)
	}
	if out.Removed {
		if left := e.positions.Release(out.Order.ID); left.IsPositive() {
			e.log.Infof("release order %d: %s", out.Order.ID, left)
		}
	}
	e.record(journal.Entry{
		Kind:      journal.KindResponse,
		OrderID:   out.Order.ID,
		Symbol:    symbol,
		Side:      out.Order.Side,
		OpenClose: out.Order.OpenClose,
		Status:    out.Order.Status,
		Qty:       resp.ExeVolume,
		Price:     resp.ExePrice,
		ErrorCode: resp.ErrorCode,
		ErrorText: resp.ErrorText,
	})

	e.gateway.Release(symbol)
	return out
}

func (e *Engine) applyFill(out og.Outcome) {
	o := out.Order
	effect, err := e.positions.ApplyFill(state.Fill{
		OrderID:   o.ID,
		Symbol:    o.Symbol,
		Side:      o.Side,
		OpenClose: o.OpenClose,
		Qty:       out.Fill.Qty,
		Price:     out.Fill.Price,
	})
	if err != nil {
		e.log.Errorf("apply fill of order %d, err: %+v", o.ID, err)
		return
	}
	e.record(journal.Entry{
		Kind:      journal.KindFill,
		OrderID:   o.ID,
		Symbol:    o.Symbol,
		Side:      o.Side,
		OpenClose: o.OpenClose,
		Status:    o.Status,
		Qty:       out.Fill.Qty,
		Price:     out.Fill.Price,
		Fee:       effect.Fee,
		CashDelta: effect.CashDelta,
	})
}

// OnTick marks the symbol and folds the tick into its bar. A closed bar is returned and
// passed to OnBar.
func (e *Engine) OnTick(tick schema.Tick) (schema.Bar, bool) {
	if err := e.positions.UpdateLastPx(tick); err != nil {
		e.log.Errorf("tick %s, err: %+v", tick.Symbol, err)
		return schema.Bar{}, false
	}
	b, ok := e.bars.OnTick(tick)
	if ok && e.onBar != nil {
		e.onBar(b)
	}
	return b, ok
}

// OnEvent dispatches a bus event by type.
func (e *Engine) OnEvent(ev bus.Event) {
	e.metrics.ObserveEvent(ev.Header)
	switch ev.Header.Type {
	case schema.EventTick:
		e.OnTick(ev.Tick)
	case schema.EventResponse:
		e.OnResponse(ev.Response)
	default:
		e.log.Errorf("unknown event type %d, seq %d", ev.Header.Type, ev.Header.Seq)
	}
}

func (e *Engine) record(entry journal.Entry) {
	entry.Seq = e.seq.Next()
	entry.TsEvent = e.now().UnixNano()
	if err := e.journal.Append(entry); err != nil {
		e.log.Errorf("journal %s of order %d, err: %+v", entry.Kind, entry.OrderID, err)
	}
}

// SetKillSwitch blocks or unblocks every new send.
func (e *Engine) SetKillSwitch(on bool) {
	e.risk.SetKillSwitch(on)
}

// Gateway returns the order gateway.
func (e *Engine) Gateway() *og.Gateway {
	return e.gateway
}

// Orders returns the live-order ledger.
func (e *Engine) Orders() *og.Ledger {
	return e.orders
}

// Positions returns the position ledger.
func (e *Engine) Positions() *state.Ledger {
	return e.positions
}

// Metrics returns the metrics container, possibly nil.
func (e *Engine) Metrics() *obs.Metrics {
	return e.metrics
}

func (e *Engine) Order(id schema.OrderID) (og.Order, bool) {
	return e.orders.Order(id)
}

func (e *Engine) Cancelling(symbol string) bool {
	return e.gateway.Cancelling(symbol)
}

func (e *Engine) Delayed(symbol string) []schema.OrderRequest {
	return e.gateway.Delayed(symbol)
}

func (e *Engine) LeftToBuy(symbol string) int64 {
	return e.orders.LeftToBuy(symbol)
}

func (e *Engine) LeftToSell(symbol string) int64 {
	return e.orders.LeftToSell(symbol)
}

func (e *Engine) NetPosition(symbol string) (int64, error) {
	return e.positions.NetPosition(symbol)
}

func (e *Engine) StrategyPnLCash() decimal.Decimal {
	return e.positions.StrategyPnLCash()
}

// CashAvailable returns the available cash of the account trading symbol.
func (e *Engine) CashAvailable(symbol string) (decimal.Decimal, error) {
	c, err := e.positions.Contract(symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return e.positions.CashAvailable(c.Account)
}

// Snapshot captures positions and cash tagged with the last journal sequence.
func (e *Engine) Snapshot() state.Snapshot {
	return e.positions.SnapshotWithMeta(e.seq.Last())
}

// Summary renders one line per symbol for shutdown logs.
func (e *Engine) Summary() []string {
	var out []string
	for _, symbol := range e.positions.Symbols() {
		pos, err := e.positions.Position(symbol)
		if err != nil {
			continue
		}
		pnl, _ := e.positions.ContractPnLCash(symbol)
		out = append(out, fmt.Sprintf("%s long %d short %d net %d pnl %s", symbol, pos.Long(), pos.Short(), pos.Net(), pnl))
	}
	return out
}
