package schema

import "github.com/shopspring/decimal"

// OrderID is the venue-assigned order identifier. Values <= 0 never name an order.
type OrderID int64

// NoOrder is returned when a send produced no order on the venue.
const NoOrder OrderID = 0

// OrderRequest is everything a strategy supplies for a single order.
type OrderRequest struct {
	Symbol       string
	Price        decimal.Decimal
	Size         int64
	Side         Side
	OpenClose    OpenClose
	InvestorType InvestorType
	OrderType    OrderType
	TimeInForce  TimeInForce
}

// Notional returns price * size without multiplier.
func (r OrderRequest) Notional() decimal.Decimal {
	return r.Price.Mul(decimal.NewFromInt(r.Size))
}

// Response is a venue response for one order.
type Response struct {
	OrderID   OrderID
	Symbol    string
	Side      Side
	OpenClose OpenClose
	ExeVolume int64
	ExePrice  decimal.Decimal
	Status    OrderStatus
	ErrorCode int
	ErrorText string
}

// IsHeartbeat reports a fill status that carries no executed volume.
func (r Response) IsHeartbeat() bool {
	return r.Status.IsFill() && r.ExeVolume == 0
}

// Tick is a market data snapshot for one symbol.
//
// IntTime is the exchange time of day as HHMMSSmmm, e.g. 90005000 for 09:00:05.000.
type Tick struct {
	Symbol        string
	IntTime       int64
	LastPrice     decimal.Decimal
	TotalVolume   int64
	TotalNotional decimal.Decimal
	OpenInterest  int64
	UpperLimit    decimal.Decimal
	LowerLimit    decimal.Decimal
}

// Bar is a fixed-interval aggregation of ticks.
type Bar struct {
	Symbol       string
	IntTime      int64
	Index        int
	Open         decimal.Decimal
	High         decimal.Decimal
	Low          decimal.Decimal
	Close        decimal.Decimal
	Volume       int64
	Turnover     decimal.Decimal
	OpenInterest int64
	UpperLimit   decimal.Decimal
	LowerLimit   decimal.Decimal
}
