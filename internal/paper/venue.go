package paper

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"tradebook/internal/chaos"
	"tradebook/internal/og"
	"tradebook/internal/schema"
)

const (
	// CodeDisconnected is returned by Cancel while the session is down.
	CodeDisconnected = -1
	// CodeSizeLimit tags a reject for an order above the venue size limit.
	CodeSizeLimit = -2001
	// CodeCancelTooLate tags a cancel reject for an order that already finished.
	CodeCancelTooLate = -2002
)

var _ og.Transport = (*Venue)(nil)

// Config controls the simulated venue.
type Config struct {
	FirstID      int64        `json:"firstId" yaml:"first_id"`
	MaxOrderSize int64        `json:"maxOrderSize" yaml:"max_order_size"`
	MaxFillQty   int64        `json:"maxFillQty" yaml:"max_fill_qty"`
	Chaos        chaos.Config `json:"chaos" yaml:"chaos"`
}

type resting struct {
	id     schema.OrderID
	req    schema.OrderRequest
	leaves int64
}

// Venue is an in-process matching simulator. Orders rest until a tick crosses them and
// every state change is reported asynchronously through Drain.
type Venue struct {
	mu        sync.Mutex
	cfg       Config
	nextID    int64
	connected bool
	resting   map[schema.OrderID]*resting
	done      map[schema.OrderID]schema.OrderRequest
	outbox    []schema.Response
	chaos     *chaos.Engine
}

// NewVenue creates a connected venue.
func NewVenue(cfg Config) (*Venue, error) {
	if cfg.FirstID <= 0 {
		cfg.FirstID = 1
	}
	if err := cfg.Chaos.Validate(); err != nil {
		return nil, err
	}
	v := &Venue{
		cfg:       cfg,
		nextID:    cfg.FirstID,
		connected: true,
		resting:   make(map[schema.OrderID]*resting),
		done:      make(map[schema.OrderID]schema.OrderRequest),
	}
	if cfg.Chaos.Enabled() {
		engine, err := chaos.NewEngine(cfg.Chaos)
		if err != nil {
			return nil, err
		}
		v.chaos = engine
	}
	return v, nil
}

// SetConnected toggles the session. A disconnected venue refuses sends and cancels.
func (v *Venue) SetConnected(connected bool) {
	v.mu.Lock()
	v.connected = connected
	v.mu.Unlock()
}

// Send accepts an order and queues its acknowledgement.
func (v *Venue) Send(req schema.OrderRequest) schema.OrderID {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.connected || req.Size <= 0 {
		return -1
	}
	id := schema.OrderID(v.nextID)
	v.nextID++

	if v.cfg.MaxOrderSize > 0 && req.Size > v.cfg.MaxOrderSize {
		v.done[id] = req
		v.emit(id, req, schema.StatusRejected, 0, decimal.Zero, CodeSizeLimit, "size exceeds venue limit")
		return id
	}
	v.resting[id] = &resting{id: id, req: req, leaves: req.Size}
	v.emit(id, req, schema.StatusEntrusted, 0, decimal.Zero, 0, "")
	return id
}

// Cancel accepts a cancel request. Resting orders are canceled; finished orders get a
// cancel reject.
func (v *Venue) Cancel(id schema.OrderID) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.connected {
		return CodeDisconnected
	}
	if o, ok := v.resting[id]; ok {
		delete(v.resting, id)
		v.done[id] = o.req
		v.emit(id, o.req, schema.StatusCanceled, 0, decimal.Zero, 0, "")
		return 0
	}
	if req, ok := v.done[id]; ok {
		v.emit(id, req, schema.StatusCancelRejected, 0, decimal.Zero, CodeCancelTooLate, "order already finished")
		return 0
	}
	return og.CodeOrderNotFound
}

// OnTick matches resting orders of the tick's symbol in id order.
func (v *Venue) OnTick(tick schema.Tick) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ids := make([]schema.OrderID, 0, len(v.resting))
	for id, o := range v.resting {
		if o.req.Symbol == tick.Symbol {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		o := v.resting[id]
		crossed := crosses(o.req, tick.LastPrice)
		if !crossed {
			if o.req.TimeInForce != schema.TimeInForceDay {
				v.finish(o, schema.StatusCanceled)
			}
			continue
		}
		qty := o.leaves
		if v.cfg.MaxFillQty > 0 && qty > v.cfg.MaxFillQty && o.req.TimeInForce != schema.TimeInForceFOK {
			qty = v.cfg.MaxFillQty
		}
		o.leaves -= qty
		if o.leaves == 0 {
			delete(v.resting, id)
			v.done[id] = o.req
			v.emit(id, o.req, schema.StatusFilled, qty, tick.LastPrice, 0, "")
			continue
		}
		v.emit(id, o.req, schema.StatusPartiallyFilled, qty, tick.LastPrice, 0, "")
		if o.req.TimeInForce == schema.TimeInForceIOC {
			v.finish(o, schema.StatusCanceled)
		}
	}
}

// Resting returns the number of working orders.
func (v *Venue) Resting() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.resting)
}

// Drain returns queued responses, after chaos rules when enabled.
func (v *Venue) Drain() []schema.Response {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := v.outbox
	v.outbox = nil
	if v.chaos == nil {
		return out
	}
	var mixed []schema.Response
	for _, resp := range out {
		mixed = append(mixed, v.chaos.Process(resp)...)
	}
	return mixed
}

// Flush drains everything, including responses held back by chaos reordering.
func (v *Venue) Flush() []schema.Response {
	out := v.Drain()
	v.mu.Lock()
	defer v.mu.Unlock()
	return append(out, v.chaos.Flush()...)
}

func (v *Venue) finish(o *resting, status schema.OrderStatus) {
	delete(v.resting, o.id)
	v.done[o.id] = o.req
	v.emit(o.id, o.req, status, 0, decimal.Zero, 0, "")
}

func (v *Venue) emit(id schema.OrderID, req schema.OrderRequest, status schema.OrderStatus, qty int64, px decimal.Decimal, code int, text string) {
	v.outbox = append(v.outbox, schema.Response{
		OrderID:   id,
		Symbol:    req.Symbol,
		Side:      req.Side,
		OpenClose: req.OpenClose,
		ExeVolume: qty,
		ExePrice:  px,
		Status:    status,
		ErrorCode: code,
		ErrorText: text,
	})
}

func crosses(req schema.OrderRequest, last decimal.Decimal) bool {
	if !last.IsPositive() {
		return false
	}
	if req.OrderType == schema.OrderTypeMarket {
		return true
	}
	if req.Side == schema.SideBuy {
		return last.LessThanOrEqual(req.Price)
	}
	return last.GreaterThanOrEqual(req.Price)
}
