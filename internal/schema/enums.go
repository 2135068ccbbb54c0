package schema

import (
	"fmt"
	"strings"
)

// Side describes order direction.
type Side uint16

const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

var sideNames = [...]string{"unknown", "buy", "sell"}

func (s Side) String() string {
	if int(s) < len(sideNames) {
		return sideNames[s]
	}
	return fmt.Sprintf("side(%d)", s)
}

// IsValid reports whether s is buy or sell.
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// Opposite returns the other side. Unknown stays unknown.
func (s Side) Opposite() Side {
	switch s {
	case SideBuy:
		return SideSell
	case SideSell:
		return SideBuy
	default:
		return SideUnknown
	}
}

// OpenClose describes whether an order opens or reduces exposure.
type OpenClose uint16

const (
	OpenCloseUnknown OpenClose = iota
	Open
	Close
	CloseToday
	CloseYesterday
)

var openCloseNames = [...]string{"unknown", "open", "close", "close_today", "close_yesterday"}

func (oc OpenClose) String() string {
	if int(oc) < len(openCloseNames) {
		return openCloseNames[oc]
	}
	return fmt.Sprintf("open_close(%d)", oc)
}

// IsValid reports whether oc is a known intent.
func (oc OpenClose) IsValid() bool {
	return oc >= Open && oc <= CloseYesterday
}

// IsClose reports whether oc reduces exposure, dated or not.
func (oc OpenClose) IsClose() bool {
	return oc == Close || oc == CloseToday || oc == CloseYesterday
}

// OrderStatus is the venue-reported order state.
type OrderStatus uint16

const (
	StatusUnknown OrderStatus = iota
	StatusInit
	StatusEntrusted
	StatusPartiallyFilled
	StatusFilled
	StatusCanceled
	StatusRejected
	StatusInternallyRejected
	StatusCancelRejected
)

var statusNames = [...]string{
	"unknown",
	"init",
	"entrusted",
	"partially_filled",
	"filled",
	"canceled",
	"rejected",
	"internally_rejected",
	"cancel_rejected",
}

func (s OrderStatus) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", s)
}

// IsValid reports whether s is one of the venue statuses.
func (s OrderStatus) IsValid() bool {
	return s >= StatusInit && s <= StatusCancelRejected
}

// IsFill reports a partial or full fill status.
func (s OrderStatus) IsFill() bool {
	return s == StatusPartiallyFilled || s == StatusFilled
}

// IsReject reports an outright, internal or cancel rejection.
func (s OrderStatus) IsReject() bool {
	return s == StatusRejected || s == StatusInternallyRejected || s == StatusCancelRejected
}

// InvestorType is the investor classification sent with an order.
type InvestorType uint16

const (
	InvestorSpeculator InvestorType = iota
	InvestorHedger
	InvestorArbitrageur
)

var investorNames = [...]string{"speculator", "hedger", "arbitrageur"}

func (t InvestorType) String() string {
	if int(t) < len(investorNames) {
		return investorNames[t]
	}
	return fmt.Sprintf("investor(%d)", t)
}

// OrderType describes order type.
type OrderType uint16

const (
	OrderTypeLimit OrderType = iota
	OrderTypeMarket
)

var orderTypeNames = [...]string{"limit", "market"}

func (t OrderType) String() string {
	if int(t) < len(orderTypeNames) {
		return orderTypeNames[t]
	}
	return fmt.Sprintf("order_type(%d)", t)
}

// TimeInForce describes order time-in-force.
type TimeInForce uint16

const (
	TimeInForceDay TimeInForce = iota
	TimeInForceIOC
	TimeInForceFOK
)

var tifNames = [...]string{"day", "ioc", "fok"}

func (t TimeInForce) String() string {
	if int(t) < len(tifNames) {
		return tifNames[t]
	}
	return fmt.Sprintf("tif(%d)", t)
}

// Exchange identifies the listing venue of a contract.
type Exchange uint16

const (
	ExchangeUnknown Exchange = iota
	ExchangeSHFE
	ExchangeDCE
	ExchangeCZCE
	ExchangeCFFEX
	ExchangeINE
	ExchangeSSE
	ExchangeSZSE
)

var exchangeNames = [...]string{"unknown", "SHFE", "DCE", "CZCE", "CFFEX", "INE", "SSE", "SZSE"}

func (e Exchange) String() string {
	if int(e) < len(exchangeNames) {
		return exchangeNames[e]
	}
	return fmt.Sprintf("exchange(%d)", e)
}

// ChargesTransferFee reports whether fills on e accrue a settlement transfer fee.
func (e Exchange) ChargesTransferFee() bool {
	return e == ExchangeSSE
}

// IsStock reports whether e is a stock exchange.
func (e Exchange) IsStock() bool {
	return e == ExchangeSSE || e == ExchangeSZSE
}

func ParseSide(s string) (Side, error) {
	v, err := parseName(s, sideNames[:], "side")
	if err != nil || v == 0 {
		return SideUnknown, fmt.Errorf("unknown side: %q", s)
	}
	return Side(v), nil
}

func ParseOpenClose(s string) (OpenClose, error) {
	v, err := parseName(s, openCloseNames[:], "open_close")
	if err != nil || v == 0 {
		return OpenCloseUnknown, fmt.Errorf("unknown open_close: %q", s)
	}
	return OpenClose(v), nil
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	v, err := parseName(s, statusNames[:], "status")
	if err != nil || v == 0 {
		return StatusUnknown, fmt.Errorf("unknown status: %q", s)
	}
	return OrderStatus(v), nil
}

func ParseInvestorType(s string) (InvestorType, error) {
	if s == "" {
		return InvestorSpeculator, nil
	}
	v, err := parseName(s, investorNames[:], "investor type")
	return InvestorType(v), err
}

func ParseOrderType(s string) (OrderType, error) {
	if s == "" {
		return OrderTypeLimit, nil
	}
	v, err := parseName(s, orderTypeNames[:], "order type")
	return OrderType(v), err
}

func ParseTimeInForce(s string) (TimeInForce, error) {
	if s == "" {
		return TimeInForceDay, nil
	}
	v, err := parseName(s, tifNames[:], "time in force")
	return TimeInForce(v), err
}

func ParseExchange(s string) (Exchange, error) {
	v, err := parseName(s, exchangeNames[:], "exchange")
	if err != nil || v == 0 {
		return ExchangeUnknown, fmt.Errorf("unknown exchange: %q", s)
	}
	return Exchange(v), nil
}

func parseName(s string, names []string, kind string) (int, error) {
	key := strings.ReplaceAll(strings.TrimSpace(s), "-", "_")
	for i, name := range names {
		if strings.EqualFold(name, key) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown %s: %q", kind, s)
}
