package schema

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnums(t *testing.T) {
	side, err := ParseSide("BUY")
	require.NoError(t, err)
	assert.Equal(t, SideBuy, side)
	assert.Equal(t, SideSell, side.Opposite())

	oc, err := ParseOpenClose("close-yesterday")
	require.NoError(t, err)
	assert.Equal(t, CloseYesterday, oc)
	assert.True(t, oc.IsClose())

	status, err := ParseOrderStatus("cancel_rejected")
	require.NoError(t, err)
	assert.True(t, status.IsReject())

	ex, err := ParseExchange("sse")
	require.NoError(t, err)
	assert.True(t, ex.ChargesTransferFee())

	_, err = ParseSide("unknown")
	assert.Error(t, err)
	_, err = ParseExchange("NYSE")
	assert.Error(t, err)

	tif, err := ParseTimeInForce("")
	require.NoError(t, err)
	assert.Equal(t, TimeInForceDay, tif)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.AddAccount(Account{Name: "acc", CashAvailable: decimal.NewFromInt(1000)}))
	assert.Error(t, reg.AddAccount(Account{Name: "acc"}))

	acc, ok := reg.Account("acc")
	require.True(t, ok)
	assert.True(t, acc.FXRate.Equal(decimal.NewFromInt(1)))

	assert.Error(t, reg.AddContract(Contract{Symbol: "rb2501", Exchange: ExchangeSHFE, Account: "missing"}))
	assert.Error(t, reg.AddContract(Contract{Symbol: "rb2501", Account: "acc"}))
	assert.Error(t, reg.AddContract(Contract{
		Symbol:   "rb2501",
		Exchange: ExchangeSHFE,
		Account:  "acc",
		Start:    StartPosition{Long: Holding{Volume: 1}, YesterdayLong: Holding{Volume: 2}},
	}))

	require.NoError(t, reg.AddContract(Contract{Symbol: "rb2501", Exchange: ExchangeSHFE, Account: "acc"}))
	c, ok := reg.Contract("rb2501")
	require.True(t, ok)
	assert.True(t, c.Multiplier.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, 1, reg.ContractCount())
}
