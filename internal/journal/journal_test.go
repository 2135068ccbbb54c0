package journal

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebook/internal/schema"
)

func TestDSN(t *testing.T) {
	dsn, err := Option{Database: "trades"}.dsn()
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost:5432/trades?sslmode=disable", dsn)

	dsn, err = Option{
		Host:     "db",
		Port:     6543,
		User:     "bot",
		Password: "secret",
		Database: "trades",
		SSLMode:  "require",
		Params:   map[string]string{"application_name": "tradebook", "": "skip"},
	}.dsn()
	require.NoError(t, err)
	assert.Equal(t, "postgres://bot:secret@db:6543/trades?application_name=tradebook&sslmode=require", dsn)

	dsn, err = Option{ConnString: "postgres://x"}.dsn()
	require.NoError(t, err)
	assert.Equal(t, "postgres://x", dsn)

	_, err = Option{}.dsn()
	assert.Error(t, err)
}

func TestToRecord(t *testing.T) {
	rec := toRecord("session-1", Entry{
		Seq:       3,
		Kind:      KindFill,
		OrderID:   42,
		Symbol:    "rb2501",
		Side:      schema.SideSell,
		OpenClose: schema.CloseYesterday,
		Status:    schema.StatusPartiallyFilled,
		Qty:       2,
		Price:     decimal.RequireFromString("3501.5"),
	})
	assert.Equal(t, "session-1", rec.Session)
	assert.Equal(t, "fill", rec.Kind)
	assert.Equal(t, int64(42), rec.OrderID)
	assert.Equal(t, schema.SideSell.String(), rec.Side)
	assert.Equal(t, schema.CloseYesterday.String(), rec.OpenClose)
	assert.Equal(t, "partially_filled", rec.Status)
	assert.True(t, rec.Price.Equal(decimal.RequireFromString("3501.5")))
	assert.Equal(t, "order_journal", rec.TableName())
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Append(Entry{Kind: KindOrder, OrderID: 1}))
	require.NoError(t, m.Append(Entry{Kind: KindOrder, OrderID: 2}))
	require.NoError(t, m.Append(Entry{Kind: KindFill, OrderID: 1, Qty: 3}))

	assert.Len(t, m.Entries(), 3)
	byOrder := m.ByOrder(1)
	require.Len(t, byOrder, 2)
	assert.Equal(t, KindFill, byOrder[1].Kind)

	require.NoError(t, m.Close())
	assert.ErrorIs(t, m.Append(Entry{}), ErrClosed)

	var j Journal = Nop{}
	assert.NoError(t, j.Append(Entry{}))
	assert.NoError(t, j.Close())
	assert.Equal(t, "unknown", Kind(0).String())
}
