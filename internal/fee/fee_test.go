package fee

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"tradebook/internal/schema"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateByLot(t *testing.T) {
	s := schema.FeeSchedule{
		ExchangeFee:          d("3"),
		YesterdayExchangeFee: d("1"),
		BrokerFee:            d("0.5"),
		ByLot:                true,
	}

	assert.True(t, d("35").Equal(Calculate(s, schema.ExchangeSHFE, 10, d("4000"), false)))
	assert.True(t, d("15").Equal(Calculate(s, schema.ExchangeSHFE, 10, d("4000"), true)))
}

func TestCalculateByNotional(t *testing.T) {
	s := schema.FeeSchedule{
		ExchangeFee:          d("0.0001"),
		YesterdayExchangeFee: d("0.00005"),
		BrokerFee:            d("0.0001"),
	}

	// 10 * 100 * 0.0002
	assert.True(t, d("0.2").Equal(Calculate(s, schema.ExchangeCFFEX, 10, d("100"), false)))
	// 10 * 100 * 0.00015
	assert.True(t, d("0.15").Equal(Calculate(s, schema.ExchangeCFFEX, 10, d("100"), true)))
}

func TestCalculateTransferFee(t *testing.T) {
	s := schema.FeeSchedule{
		ExchangeFee: d("0.0001"),
		TransferFee: d("0.00002"),
	}

	sse := Calculate(s, schema.ExchangeSSE, 100, d("10"), false)
	szse := Calculate(s, schema.ExchangeSZSE, 100, d("10"), false)

	assert.True(t, d("0.12").Equal(sse), sse.String())
	assert.True(t, d("0.1").Equal(szse), szse.String())
}

func TestCalculateZeroSize(t *testing.T) {
	s := schema.FeeSchedule{ExchangeFee: d("3"), ByLot: true}
	assert.True(t, Calculate(s, schema.ExchangeDCE, 0, d("100"), false).IsZero())
}

func TestEstimate(t *testing.T) {
	s := schema.FeeSchedule{
		ExchangeFee: d("0.0003"),
		StampTax:    d("0.001"),
	}
	buy := schema.OrderRequest{Symbol: "600000", Price: d("10"), Size: 100, Side: schema.SideBuy, OpenClose: schema.Open}
	sell := buy
	sell.Side = schema.SideSell
	sell.OpenClose = schema.Close

	assert.True(t, d("0.3").Equal(Estimate(s, schema.ExchangeSZSE, buy)))
	assert.True(t, d("1.3").Equal(Estimate(s, schema.ExchangeSZSE, sell)))
}
