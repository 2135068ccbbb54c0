package schema

import "fmt"

// RiskReason explains why an order was denied before reaching the venue.
type RiskReason uint16

const (
	RiskReasonNone RiskReason = iota
	RiskReasonKillSwitch
	RiskReasonRateLimit
	RiskReasonMaxQty
	RiskReasonMaxNotional
	RiskReasonPriceBand
	RiskReasonPositionLimit
	RiskReasonCash
)

var riskReasonNames = [...]string{
	"none",
	"kill_switch",
	"rate_limit",
	"max_qty",
	"max_notional",
	"price_band",
	"position_limit",
	"cash",
}

func (r RiskReason) String() string {
	if int(r) < len(riskReasonNames) {
		return riskReasonNames[r]
	}
	return fmt.Sprintf("risk_reason(%d)", r)
}
