package og

import (
	"github.com/shopspring/decimal"

	"tradebook/internal/schema"
)

// Order holds the ledger's view of one live order.
type Order struct {
	ID           schema.OrderID
	Symbol       string
	Volume       int64
	Price        decimal.Decimal
	Side         schema.Side
	OpenClose    schema.OpenClose
	InvestorType schema.InvestorType
	OrderType    schema.OrderType
	TimeInForce  schema.TimeInForce

	CumQty        int64
	CumNotional   decimal.Decimal
	LastPx        decimal.Decimal
	LastQty       int64
	PendingCancel bool
	Status        schema.OrderStatus
}

// NewOrder builds an INIT order from a transmitted request.
func NewOrder(id schema.OrderID, req schema.OrderRequest) Order {
	return Order{
		ID:           id,
		Symbol:       req.Symbol,
		Volume:       req.Size,
		Price:        req.Price,
		Side:         req.Side,
		OpenClose:    req.OpenClose,
		InvestorType: req.InvestorType,
		OrderType:    req.OrderType,
		TimeInForce:  req.TimeInForce,
		Status:       schema.StatusInit,
	}
}

// LeavesQty returns the requested quantity not yet filled.
func (o Order) LeavesQty() int64 {
	if o.Volume > o.CumQty {
		return o.Volume - o.CumQty
	}
	return 0
}

// LeftToBuy returns the leaves of a buy order, 0 for sells.
func (o Order) LeftToBuy() int64 {
	if o.Side == schema.SideBuy {
		return o.LeavesQty()
	}
	return 0
}

// LeftToSell returns the leaves of a sell order, 0 for buys.
func (o Order) LeftToSell() int64 {
	if o.Side == schema.SideSell {
		return o.LeavesQty()
	}
	return 0
}

// AvgFillPrice returns cum notional / cum qty, 0 before the first fill.
func (o Order) AvgFillPrice() decimal.Decimal {
	if o.CumQty <= 0 {
		return decimal.Zero
	}
	return o.CumNotional.Div(decimal.NewFromInt(o.CumQty))
}

// Request rebuilds the request the order was sent with.
func (o Order) Request() schema.OrderRequest {
	return schema.OrderRequest{
		Symbol:       o.Symbol,
		Price:        o.Price,
		Size:         o.Volume,
		Side:         o.Side,
		OpenClose:    o.OpenClose,
		InvestorType: o.InvestorType,
		OrderType:    o.OrderType,
		TimeInForce:  o.TimeInForce,
	}
}
