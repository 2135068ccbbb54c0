package og

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"tradebook/internal/errors"
	"tradebook/internal/schema"
)

func buyOpen(symbol string, size int64, price int64) schema.OrderRequest {
	return schema.OrderRequest{
		Symbol:    symbol,
		Price:     decimal.NewFromInt(price),
		Size:      size,
		Side:      schema.SideBuy,
		OpenClose: schema.Open,
	}
}

func fill(id schema.OrderID, status schema.OrderStatus, qty int64, price int64) schema.Response {
	return schema.Response{
		OrderID:   id,
		Symbol:    "rb2501",
		Side:      schema.SideBuy,
		OpenClose: schema.Open,
		ExeVolume: qty,
		ExePrice:  decimal.NewFromInt(price),
		Status:    status,
	}
}

func status(id schema.OrderID, s schema.OrderStatus) schema.Response {
	return schema.Response{OrderID: id, Symbol: "rb2501", Status: s}
}

func TestLedgerSubmit(t *testing.T) {
	l := NewLedger()

	o, err := l.Submit(1, buyOpen("rb2501", 10, 4000))
	require.NoError(t, err)
	assert.Equal(t, schema.StatusInit, o.Status)
	assert.Equal(t, int64(10), o.LeavesQty())
	assert.Equal(t, int64(10), o.LeftToBuy())
	assert.Equal(t, int64(0), o.LeftToSell())

	_, err = l.Submit(1, buyOpen("rb2501", 5, 4000))
	assert.True(t, errors.Is(err, ErrDuplicateOrder))

	_, err = l.Submit(0, buyOpen("rb2501", 5, 4000))
	assert.True(t, errors.Is(err, ErrInvalidOrder))

	assert.True(t, errors.Is(l.MarkCancelRequested(9), ErrOrderNotFound))
	assert.Equal(t, 1, l.Len())
}

func TestLedgerApplyFills(t *testing.T) {
	l := NewLedger()
	_, err := l.Submit(1, buyOpen("rb2501", 10, 4000))
	require.NoError(t, err)

	out := l.Apply(status(1, schema.StatusEntrusted))
	assert.False(t, out.IsIgnored())
	assert.Equal(t, schema.StatusEntrusted, out.Order.Status)

	out = l.Apply(fill(1, schema.StatusPartiallyFilled, 4, 3999))
	require.True(t, out.HasFill())
	assert.Equal(t, int64(4), out.Fill.Qty)
	assert.Equal(t, int64(4), out.Order.CumQty)
	assert.Equal(t, int64(6), out.Order.LeavesQty())
	assert.True(t, decimal.NewFromInt(15996).Equal(out.Order.CumNotional))
	assert.False(t, out.Removed)

	out = l.Apply(fill(1, schema.StatusFilled, 6, 4000))
	assert.True(t, out.Removed)
	assert.Equal(t, int64(10), out.Order.CumQty)
	assert.True(t, decimal.NewFromInt(4000).Equal(out.Order.LastPx))
	assert.True(t, decimal.RequireFromString("3999.6").Equal(out.Order.AvgFillPrice()))

	_, ok := l.Order(1)
	assert.False(t, ok)
}

func TestLedgerClipsOverfill(t *testing.T) {
	l := NewLedger()
	_, err := l.Submit(1, buyOpen("rb2501", 5, 4000))
	require.NoError(t, err)

	out := l.Apply(fill(1, schema.StatusPartiallyFilled, 8, 4000))
	assert.Equal(t, int64(5), out.Fill.Qty)
	assert.Equal(t, int64(3), out.Fill.Clipped)
	assert.Equal(t, int64(0), out.Order.LeavesQty())
	assert.Equal(t, int64(5), out.Order.CumQty)
}

func TestLedgerIgnoresHeartbeatAndUnknown(t *testing.T) {
	l := NewLedger()
	_, err := l.Submit(1, buyOpen("rb2501", 10, 4000))
	require.NoError(t, err)

	out := l.Apply(fill(1, schema.StatusFilled, 0, 4000))
	assert.Equal(t, IgnoreHeartbeat, out.Ignored)

	o, ok := l.Order(1)
	require.True(t, ok)
	assert.Equal(t, schema.StatusInit, o.Status)
	assert.Equal(t, int64(0), o.CumQty)

	out = l.Apply(fill(2, schema.StatusPartiallyFilled, 1, 4000))
	assert.Equal(t, IgnoreUnknownOrder, out.Ignored)

	out = l.Apply(status(1, schema.StatusUnknown))
	assert.Equal(t, IgnoreInvalidStatus, out.Ignored)
}

func TestLedgerStaleEntrusted(t *testing.T) {
	l := NewLedger()
	_, err := l.Submit(1, buyOpen("rb2501", 10, 4000))
	require.NoError(t, err)

	l.Apply(fill(1, schema.StatusPartiallyFilled, 3, 4000))
	out := l.Apply(status(1, schema.StatusEntrusted))
	assert.True(t, out.StatusKept)
	assert.Equal(t, schema.StatusPartiallyFilled, out.Order.Status)

	out = l.Apply(fill(1, schema.StatusFilled, 7, 4000))
	require.True(t, out.Removed)
	assert.Equal(t, schema.StatusFilled, out.Order.Status)

	out = l.Apply(status(1, schema.StatusEntrusted))
	assert.Equal(t, IgnoreUnknownOrder, out.Ignored)
}

func TestLedgerRejectWithPendingCancel(t *testing.T) {
	l := NewLedger()
	_, err := l.Submit(1, buyOpen("rb2501", 10, 4000))
	require.NoError(t, err)
	require.NoError(t, l.MarkCancelRequested(1))
	assert.True(t, l.Cancelling("rb2501"))

	out := l.Apply(status(1, schema.StatusCancelRejected))
	assert.False(t, out.Removed)
	assert.False(t, out.Order.PendingCancel)
	assert.False(t, l.Cancelling("rb2501"))

	_, ok := l.Order(1)
	assert.True(t, ok)

	out = l.Apply(status(1, schema.StatusRejected))
	assert.True(t, out.Removed)
	assert.Equal(t, 0, l.Len())
}

func TestLedgerCanceledRemoves(t *testing.T) {
	l := NewLedger()
	_, err := l.Submit(1, buyOpen("rb2501", 10, 4000))
	require.NoError(t, err)
	_, err = l.Submit(2, schema.OrderRequest{Symbol: "rb2501", Price: decimal.NewFromInt(4010), Size: 3, Side: schema.SideSell, OpenClose: schema.Close})
	require.NoError(t, err)
	_, err = l.Submit(3, buyOpen("ag2506", 1, 8000))
	require.NoError(t, err)

	assert.Equal(t, int64(10), l.LeftToBuy("rb2501"))
	assert.Equal(t, int64(3), l.LeftToSell("rb2501"))
	assert.Len(t, l.OrdersFor("rb2501"), 2)

	out := l.Apply(status(1, schema.StatusCanceled))
	assert.True(t, out.Removed)

	orders := l.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, schema.OrderID(2), orders[0].ID)
	assert.Equal(t, schema.OrderID(3), orders[1].ID)
}

func TestLedgerLeavesInvariant(t *testing.T) {
	statuses := []schema.OrderStatus{
		schema.StatusEntrusted,
		schema.StatusPartiallyFilled,
		schema.StatusFilled,
		schema.StatusCanceled,
		schema.StatusRejected,
		schema.StatusCancelRejected,
	}

	rapid.Check(t, func(t *rapid.T) {
		l := NewLedger()
		volume := rapid.Int64Range(1, 100).Draw(t, "volume")
		_, err := l.Submit(1, buyOpen("rb2501", volume, 4000))
		if err != nil {
			t.Fatalf("submit: %v", err)
		}

		steps := rapid.IntRange(1, 20).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(t, "cancel") {
				_ = l.MarkCancelRequested(1)
			}
			s := rapid.SampledFrom(statuses).Draw(t, "status")
			qty := rapid.Int64Range(0, 60).Draw(t, "qty")
			out := l.Apply(fill(1, s, qty, 4000))

			o := out.Order
			if out.IsIgnored() {
				continue
			}
			if o.CumQty > o.Volume {
				t.Fatalf("cum %d exceeds volume %d", o.CumQty, o.Volume)
			}
			if o.LeavesQty()+o.CumQty != o.Volume {
				t.Fatalf("leaves %d + cum %d != volume %d", o.LeavesQty(), o.CumQty, o.Volume)
			}
			if out.Removed {
				return
			}
		}
	})
}
