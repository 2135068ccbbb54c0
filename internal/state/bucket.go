package state

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tradebook/internal/schema"
)

// BucketTag addresses one of the four position buckets of a symbol.
type BucketTag uint8

const (
	LongOpen BucketTag = iota
	LongClose
	ShortOpen
	ShortClose
)

var bucketTagNames = [...]string{"long_open", "long_close", "short_open", "short_close"}

func (t BucketTag) String() string {
	if int(t) < len(bucketTagNames) {
		return bucketTagNames[t]
	}
	return fmt.Sprintf("bucket(%d)", t)
}

// TagOf maps a fill direction and intent to the bucket it accumulates into.
// Buys land in the long buckets and sells in the short buckets.
func TagOf(side schema.Side, oc schema.OpenClose) (BucketTag, bool) {
	if !oc.IsValid() {
		return 0, false
	}
	switch side {
	case schema.SideBuy:
		if oc == schema.Open {
			return LongOpen, true
		}
		return LongClose, true
	case schema.SideSell:
		if oc == schema.Open {
			return ShortOpen, true
		}
		return ShortClose, true
	default:
		return 0, false
	}
}

// Bucket accumulates fills of one (side, open/close) pair.
//
// Qty and Notional include every routed fill plus the holding seeded at startup. The
// yesterday columns of an open bucket track carried-over inventory still closable at the
// yesterday rate.
type Bucket struct {
	Qty               int64           `json:"qty"`
	Notional          decimal.Decimal `json:"notional"`
	YesterdayQty      int64           `json:"yesterdayQty"`
	YesterdayNotional decimal.Decimal `json:"yesterdayNotional"`
}

// AveragePrice returns notional / qty, 0 for an empty bucket.
func (b Bucket) AveragePrice() decimal.Decimal {
	return avgPx(b.Qty, b.Notional)
}

// YesterdayAveragePrice returns the average price of the yesterday columns.
func (b Bucket) YesterdayAveragePrice() decimal.Decimal {
	return avgPx(b.YesterdayQty, b.YesterdayNotional)
}

func avgPx(qty int64, notional decimal.Decimal) decimal.Decimal {
	if qty <= 0 {
		return decimal.Zero
	}
	return notional.Div(decimal.NewFromInt(qty))
}

// Position is the four buckets of one symbol.
type Position struct {
	LongOpen   Bucket `json:"longOpen"`
	LongClose  Bucket `json:"longClose"`
	ShortOpen  Bucket `json:"shortOpen"`
	ShortClose Bucket `json:"shortClose"`
}

// Bucket returns the bucket addressed by tag.
func (p *Position) Bucket(tag BucketTag) *Bucket {
	switch tag {
	case LongOpen:
		return &p.LongOpen
	case LongClose:
		return &p.LongClose
	case ShortOpen:
		return &p.ShortOpen
	case ShortClose:
		return &p.ShortClose
	default:
		return nil
	}
}

// Long returns long_open.qty - short_close.qty.
func (p Position) Long() int64 {
	return p.LongOpen.Qty - p.ShortClose.Qty
}

// Short returns short_open.qty - long_close.qty.
func (p Position) Short() int64 {
	return p.ShortOpen.Qty - p.LongClose.Qty
}

// Net returns long - short.
func (p Position) Net() int64 {
	return p.Long() - p.Short()
}

// Realized returns the matched pnl in price points: closed long quantity priced at
// avg(short_close) - avg(long_open) plus the mirrored short term.
func (p Position) Realized() decimal.Decimal {
	longQty := min(p.LongOpen.Qty, p.ShortClose.Qty)
	shortQty := min(p.ShortOpen.Qty, p.LongClose.Qty)

	longPnL := decimal.NewFromInt(longQty).Mul(p.ShortClose.AveragePrice().Sub(p.LongOpen.AveragePrice()))
	shortPnL := decimal.NewFromInt(shortQty).Mul(p.ShortOpen.AveragePrice().Sub(p.LongClose.AveragePrice()))
	return longPnL.Add(shortPnL)
}

// minMark is the smallest mark price treated as observed.
var minMark = decimal.New(1, -2)

// Unrealized returns the open pnl in price points against mark. A negative long or short
// exposure contributes zero, and so does a mark below 0.01.
func (p Position) Unrealized(mark decimal.Decimal) decimal.Decimal {
	if mark.LessThan(minMark) {
		return decimal.Zero
	}

	pnl := decimal.Zero
	if long := p.Long(); long >= 0 {
		pnl = pnl.Add(decimal.NewFromInt(long).Mul(mark.Sub(p.LongOpen.AveragePrice())))
	}
	if short := p.Short(); short >= 0 {
		pnl = pnl.Add(decimal.NewFromInt(short).Mul(p.ShortOpen.AveragePrice().Sub(mark)))
	}
	return pnl
}
