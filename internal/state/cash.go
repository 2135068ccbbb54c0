package state

import (
	"github.com/shopspring/decimal"

	"tradebook/internal/errors"
	"tradebook/internal/fee"
	"tradebook/internal/schema"
)

var ErrDuplicateReservation = errors.New("reservation already exists")

// reservation is the cash held back for one open order, consumed per filled unit.
type reservation struct {
	account  string
	volume   int64
	total    decimal.Decimal
	filled   int64
	consumed decimal.Decimal
}

func (r *reservation) remaining() decimal.Decimal {
	return r.total.Sub(r.consumed)
}

// consume takes the share of qty units, the final unit taking whatever is left.
func (r *reservation) consume(qty int64) decimal.Decimal {
	if qty <= 0 || r.filled >= r.volume {
		return decimal.Zero
	}
	r.filled += qty
	var share decimal.Decimal
	if r.filled >= r.volume {
		share = r.remaining()
	} else {
		share = r.total.Mul(decimal.NewFromInt(qty)).Div(decimal.NewFromInt(r.volume))
	}
	r.consumed = r.consumed.Add(share)
	return share
}

// ReservationFor returns the cash an order holds back while live: price * size * multiplier
// plus fees for an opening buy, fees only (stamp tax included) for an opening sell, nothing
// for a close.
func (l *Ledger) ReservationFor(req schema.OrderRequest) (decimal.Decimal, error) {
	e, err := l.entry(req.Symbol)
	if err != nil {
		return decimal.Zero, err
	}
	return reservationFor(e.contract, req), nil
}

func reservationFor(c schema.Contract, req schema.OrderRequest) decimal.Decimal {
	if req.OpenClose != schema.Open || req.Size <= 0 {
		return decimal.Zero
	}
	feeCash := fee.Estimate(c.Fee, c.Exchange, req).Mul(c.Multiplier)
	if req.Side == schema.SideBuy {
		return req.Notional().Mul(c.Multiplier).Add(feeCash)
	}
	return feeCash
}

// Reserve holds back cash for a registered order. Closing orders reserve nothing.
func (l *Ledger) Reserve(id schema.OrderID, req schema.OrderRequest) (decimal.Decimal, error) {
	e, err := l.entry(req.Symbol)
	if err != nil {
		return decimal.Zero, err
	}
	acc, err := l.account(e.contract.Account)
	if err != nil {
		return decimal.Zero, err
	}
	if req.OpenClose != schema.Open {
		return decimal.Zero, nil
	}
	if _, ok := l.reservations[id]; ok {
		return decimal.Zero, errors.Wrapf(ErrDuplicateReservation, "order %d", id)
	}

	amount := reservationFor(e.contract, req)

	l.reservations[id] = &reservation{
		account: acc.info.Name,
		volume:  req.Size,
		total:   amount,
	}
	acc.cashAvailable = acc.cashAvailable.Sub(amount)
	return amount, nil
}

// Release returns the unconsumed part of an order's reservation and forgets it.
func (l *Ledger) Release(id schema.OrderID) decimal.Decimal {
	r, ok := l.reservations[id]
	if !ok {
		return decimal.Zero
	}
	delete(l.reservations, id)

	left := r.remaining()
	if acc, ok := l.accounts[r.account]; ok {
		acc.cashAvailable = acc.cashAvailable.Add(left)
	}
	return left
}

// Reserved returns the unconsumed reservation of an order.
func (l *Ledger) Reserved(id schema.OrderID) (decimal.Decimal, bool) {
	r, ok := l.reservations[id]
	if !ok {
		return decimal.Zero, false
	}
	return r.remaining(), true
}

// ReservedTotal sums the unconsumed reservations of an account.
func (l *Ledger) ReservedTotal(account string) decimal.Decimal {
	total := decimal.Zero
	for _, id := range sortedIDs(l.reservations) {
		if r := l.reservations[id]; r.account == account {
			total = total.Add(r.remaining())
		}
	}
	return total
}

// fillCash returns the available-cash change of a fill. It must run before the fill is
// committed to the buckets so that the short open average reflects the prior state.
func (l *Ledger) fillCash(e *symbolEntry, f Fill) decimal.Decimal {
	c := e.contract
	qty := decimal.NewFromInt(f.Qty)

	feePoints := fee.Calculate(c.Fee, c.Exchange, f.Qty, f.Price, f.OpenClose == schema.CloseYesterday)
	if f.Side == schema.SideSell {
		feePoints = feePoints.Add(fee.StampTax(c.Fee, f.Price.Mul(qty)))
	}
	feeCash := feePoints.Mul(c.Multiplier)
	principal := f.Price.Mul(qty).Mul(c.Multiplier)

	var share decimal.Decimal
	if r, ok := l.reservations[f.OrderID]; ok {
		share = r.consume(f.Qty)
	}

	switch {
	case f.OpenClose == schema.Open && f.Side == schema.SideBuy:
		return share.Sub(principal).Sub(feeCash)
	case f.OpenClose == schema.Open:
		return share.Sub(feeCash)
	case f.Side == schema.SideSell:
		return share.Add(principal).Sub(feeCash)
	default:
		avgShort := avgPx(e.position.ShortOpen.Qty, e.shortGross)
		return share.Add(avgShort.Sub(f.Price).Mul(qty).Mul(c.Multiplier)).Sub(feeCash)
	}
}
