package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebook/internal/errors"
	"tradebook/internal/schema"
)

func cashOf(t *testing.T, l *Ledger) string {
	t.Helper()
	cash, err := l.CashAvailable("acc")
	require.NoError(t, err)
	return cash.String()
}

func TestCashRoundTripLong(t *testing.T) {
	l := newLedger(t, true, futures("rb2501"))

	amount, err := l.Reserve(1, req(schema.SideBuy, schema.Open, 10, "100"))
	require.NoError(t, err)
	assertDec(t, "1000", amount)
	assert.Equal(t, "9000", cashOf(t, l))

	effect, err := l.ApplyFill(mkFill(1, schema.SideBuy, schema.Open, 10, "100"))
	require.NoError(t, err)
	assert.True(t, effect.CashDelta.IsZero())
	assert.True(t, l.Release(1).IsZero())

	amount, err = l.Reserve(2, req(schema.SideSell, schema.Close, 10, "110"))
	require.NoError(t, err)
	assert.True(t, amount.IsZero())

	_, err = l.ApplyFill(mkFill(2, schema.SideSell, schema.Close, 10, "110"))
	require.NoError(t, err)
	assert.Equal(t, "10100", cashOf(t, l))

	pnl, err := l.ContractPnLCash("rb2501")
	require.NoError(t, err)
	assertDec(t, "100", pnl)
}

func TestCashRoundTripShortWithFees(t *testing.T) {
	c := futures("rb2501")
	c.Multiplier = d("10")
	c.Fee = schema.FeeSchedule{ExchangeFee: d("1"), ByLot: true}
	l := newLedger(t, true, c)

	amount, err := l.Reserve(1, req(schema.SideSell, schema.Open, 10, "100"))
	require.NoError(t, err)
	// fees only: 10 lots * 1 * multiplier 10
	assertDec(t, "100", amount)
	assert.Equal(t, "9900", cashOf(t, l))

	effect, err := l.ApplyFill(mkFill(1, schema.SideSell, schema.Open, 10, "100"))
	require.NoError(t, err)
	assert.True(t, effect.CashDelta.IsZero())
	l.Release(1)

	_, err = l.ApplyFill(mkFill(2, schema.SideBuy, schema.Close, 10, "95"))
	require.NoError(t, err)

	// (100 - 95) * 10 * 10 - 100 close fee
	assert.Equal(t, "10300", cashOf(t, l))

	pnl, err := l.ContractPnLCash("rb2501")
	require.NoError(t, err)
	assertDec(t, "300", pnl)
}

func TestCashPartialFillThenCancel(t *testing.T) {
	l := newLedger(t, true, futures("rb2501"))

	_, err := l.Reserve(1, req(schema.SideBuy, schema.Open, 10, "100"))
	require.NoError(t, err)

	effect, err := l.ApplyFill(mkFill(1, schema.SideBuy, schema.Open, 4, "99"))
	require.NoError(t, err)
	// 400 reserved for 4 lots, 396 spent
	assertDec(t, "4", effect.CashDelta)

	left, ok := l.Reserved(1)
	require.True(t, ok)
	assertDec(t, "600", left)
	assertDec(t, "600", l.ReservedTotal("acc"))

	assertDec(t, "600", l.Release(1))
	assert.Equal(t, "9604", cashOf(t, l))

	_, ok = l.Reserved(1)
	assert.False(t, ok)
	assert.True(t, l.Release(1).IsZero())
}

func TestCashRejectReleasesAll(t *testing.T) {
	c := futures("rb2501")
	c.Fee = schema.FeeSchedule{ExchangeFee: d("0.0001")}
	l := newLedger(t, true, c)

	amount, err := l.Reserve(1, req(schema.SideBuy, schema.Open, 3, "1000"))
	require.NoError(t, err)
	// 3000 + 3000 * 0.0001
	assertDec(t, "3000.3", amount)

	assertDec(t, "3000.3", l.Release(1))
	assert.Equal(t, "10000", cashOf(t, l))
}

func TestReserveErrors(t *testing.T) {
	l := newLedger(t, true, futures("rb2501"))

	_, err := l.Reserve(1, req(schema.SideBuy, schema.Open, 1, "100"))
	require.NoError(t, err)
	_, err = l.Reserve(1, req(schema.SideBuy, schema.Open, 1, "100"))
	assert.True(t, errors.Is(err, ErrDuplicateReservation))

	bad := req(schema.SideBuy, schema.Open, 1, "100")
	bad.Symbol = "ag2506"
	_, err = l.Reserve(2, bad)
	assert.True(t, errors.Is(err, ErrUnknownSymbol))

	_, err = l.CashAvailable("nobody")
	assert.True(t, errors.Is(err, ErrUnknownAccount))
}

func TestReservationConsumedByLastFill(t *testing.T) {
	l := newLedger(t, true, futures("rb2501"))

	_, err := l.Reserve(1, req(schema.SideBuy, schema.Open, 3, "100"))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = l.ApplyFill(mkFill(1, schema.SideBuy, schema.Open, 1, "100"))
		require.NoError(t, err)
	}

	left, ok := l.Reserved(1)
	require.True(t, ok)
	assert.True(t, left.IsZero(), left.String())
	assert.Equal(t, "9700", cashOf(t, l))
}
