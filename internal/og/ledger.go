package og

import (
	"sort"

	"github.com/shopspring/decimal"

	"tradebook/internal/errors"
	"tradebook/internal/schema"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("order already exists")
	ErrInvalidOrder   = errors.New("invalid order id")
)

// IgnoreReason says why a response left the ledger untouched.
type IgnoreReason uint16

const (
	IgnoreNone IgnoreReason = iota
	IgnoreHeartbeat
	IgnoreUnknownOrder
	IgnoreInvalidStatus
	IgnoreNegativeVolume
)

var ignoreReasonNames = [...]string{"none", "heartbeat", "unknown_order", "invalid_status", "negative_volume"}

func (r IgnoreReason) String() string {
	if int(r) < len(ignoreReasonNames) {
		return ignoreReasonNames[r]
	}
	return "ignore_reason"
}

// Fill is the economic effect of one response on an order.
type Fill struct {
	Qty   int64
	Price decimal.Decimal
	// Clipped is the reported volume beyond the order's leaves that was not applied.
	Clipped int64
}

// Outcome reports what Apply did with one response.
type Outcome struct {
	// Order is a copy of the order after the response was applied.
	Order   Order
	Ignored IgnoreReason
	Fill    Fill
	// Removed is set when the order left the live set.
	Removed bool
	// StatusKept is set when a stale entrusted ack did not replace the status.
	StatusKept bool
}

// IsIgnored reports whether the response had no effect.
func (o Outcome) IsIgnored() bool {
	return o.Ignored != IgnoreNone
}

// HasFill reports a non-zero applied fill.
func (o Outcome) HasFill() bool {
	return o.Fill.Qty > 0
}

// Ledger owns the set of live orders.
type Ledger struct {
	orders   map[schema.OrderID]*Order
	bySymbol map[string]map[schema.OrderID]*Order
}

// NewLedger creates an empty order ledger.
func NewLedger() *Ledger {
	return &Ledger{
		orders:   make(map[schema.OrderID]*Order),
		bySymbol: make(map[string]map[schema.OrderID]*Order),
	}
}

// Submit records a transmitted order with status INIT.
func (l *Ledger) Submit(id schema.OrderID, req schema.OrderRequest) (Order, error) {
	if id <= schema.NoOrder {
		return Order{}, errors.Wrapf(ErrInvalidOrder, "submit %d", id)
	}
	if _, ok := l.orders[id]; ok {
		return Order{}, errors.Wrapf(ErrDuplicateOrder, "submit %d", id)
	}

	o := NewOrder(id, req)
	l.orders[id] = &o
	set, ok := l.bySymbol[o.Symbol]
	if !ok {
		set = make(map[schema.OrderID]*Order)
		l.bySymbol[o.Symbol] = set
	}
	set[id] = &o
	return o, nil
}

// MarkCancelRequested flags a live order as having a cancel in flight.
func (l *Ledger) MarkCancelRequested(id schema.OrderID) error {
	o, ok := l.orders[id]
	if !ok {
		return errors.Wrapf(ErrOrderNotFound, "mark cancel %d", id)
	}
	o.PendingCancel = true
	return nil
}

// Apply runs one venue response through the order state machine.
func (l *Ledger) Apply(resp schema.Response) Outcome {
	if resp.IsHeartbeat() {
		return Outcome{Ignored: IgnoreHeartbeat}
	}
	if !resp.Status.IsValid() {
		return Outcome{Ignored: IgnoreInvalidStatus}
	}

	o, ok := l.orders[resp.OrderID]
	if !ok {
		return Outcome{Ignored: IgnoreUnknownOrder}
	}

	var out Outcome
	if resp.Status.IsFill() {
		if resp.ExeVolume < 0 {
			return Outcome{Order: *o, Ignored: IgnoreNegativeVolume}
		}
		qty := resp.ExeVolume
		if leaves := o.LeavesQty(); qty > leaves {
			out.Fill.Clipped = qty - leaves
			qty = leaves
		}
		if qty > 0 {
			o.CumQty += qty
			o.CumNotional = o.CumNotional.Add(resp.ExePrice.Mul(decimal.NewFromInt(qty)))
			o.LastPx = resp.ExePrice
			o.LastQty = qty
			out.Fill.Qty = qty
			out.Fill.Price = resp.ExePrice
		}
	}

	if o.Status != schema.StatusInit && resp.Status == schema.StatusEntrusted {
		out.StatusKept = true
	} else {
		o.Status = resp.Status
	}

	switch {
	case resp.Status == schema.StatusFilled, resp.Status == schema.StatusCanceled:
		l.remove(o)
		out.Removed = true
	case resp.Status.IsReject():
		if o.PendingCancel {
			o.PendingCancel = false
		} else {
			l.remove(o)
			out.Removed = true
		}
	}

	out.Order = *o
	return out
}

func (l *Ledger) remove(o *Order) {
	delete(l.orders, o.ID)
	if set, ok := l.bySymbol[o.Symbol]; ok {
		delete(set, o.ID)
		if len(set) == 0 {
			delete(l.bySymbol, o.Symbol)
		}
	}
}

// Order returns a copy of a live order.
func (l *Ledger) Order(id schema.OrderID) (Order, bool) {
	o, ok := l.orders[id]
	if !ok {
		return Order{}, false
	}
	return *o, true
}

// Len returns the number of live orders.
func (l *Ledger) Len() int {
	return len(l.orders)
}

// Orders returns copies of all live orders sorted by id.
func (l *Ledger) Orders() []Order {
	return sortedCopy(l.orders)
}

// OrdersFor returns copies of the live orders for symbol sorted by id.
func (l *Ledger) OrdersFor(symbol string) []Order {
	return sortedCopy(l.bySymbol[symbol])
}

// Cancelling reports whether any live order for symbol has a cancel in flight.
func (l *Ledger) Cancelling(symbol string) bool {
	for _, o := range l.bySymbol[symbol] {
		if o.PendingCancel {
			return true
		}
	}
	return false
}

// LeftToBuy sums the buy leaves of live orders for symbol.
func (l *Ledger) LeftToBuy(symbol string) int64 {
	var total int64
	for _, o := range l.bySymbol[symbol] {
		total += o.LeftToBuy()
	}
	return total
}

// LeftToSell sums the sell leaves of live orders for symbol.
func (l *Ledger) LeftToSell(symbol string) int64 {
	var total int64
	for _, o := range l.bySymbol[symbol] {
		total += o.LeftToSell()
	}
	return total
}

func sortedCopy(m map[schema.OrderID]*Order) []Order {
	out := make([]Order, 0, len(m))
	for _, o := range m {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
