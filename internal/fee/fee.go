// Package fee computes transaction fees from a contract fee schedule.
package fee

import (
	"github.com/shopspring/decimal"

	"tradebook/internal/schema"
)

// Calculate returns the fee in price points for trading size lots at price.
//
// The yesterday exchange rate replaces the standard one when closingYesterday is set.
// Stamp tax is not included; see StampTax.
func Calculate(s schema.FeeSchedule, exchange schema.Exchange, size int64, price decimal.Decimal, closingYesterday bool) decimal.Decimal {
	if size == 0 {
		return decimal.Zero
	}

	exchangeFee := s.ExchangeFee
	if closingYesterday {
		exchangeFee = s.YesterdayExchangeFee
	}

	qty := decimal.NewFromInt(size)
	rate := exchangeFee.Add(s.BrokerFee)

	var fee decimal.Decimal
	if s.ByLot {
		fee = qty.Mul(rate)
	} else {
		fee = qty.Mul(price).Mul(rate)
	}

	if exchange.ChargesTransferFee() {
		fee = fee.Add(qty.Mul(price).Mul(s.TransferFee))
	}

	return fee
}

// StampTax returns the sell-side levy on notional.
func StampTax(s schema.FeeSchedule, notional decimal.Decimal) decimal.Decimal {
	return notional.Mul(s.StampTax)
}

// Estimate returns the fee in price points expected for a whole order, stamp tax included for sells.
func Estimate(s schema.FeeSchedule, exchange schema.Exchange, req schema.OrderRequest) decimal.Decimal {
	fee := Calculate(s, exchange, req.Size, req.Price, req.OpenClose == schema.CloseYesterday)
	if req.Side == schema.SideSell {
		fee = fee.Add(StampTax(s, req.Notional()))
	}
	return fee
}
