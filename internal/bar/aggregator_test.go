package bar

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebook/internal/schema"
)

func tick(intTime int64, px int64, vol int64, notional int64) schema.Tick {
	return schema.Tick{
		Symbol:        "rb2501",
		IntTime:       intTime,
		LastPrice:     decimal.NewFromInt(px),
		TotalVolume:   vol,
		TotalNotional: decimal.NewFromInt(notional),
		OpenInterest:  vol * 2,
		UpperLimit:    decimal.NewFromInt(4400),
		LowerLimit:    decimal.NewFromInt(3600),
	}
}

func TestMinutes(t *testing.T) {
	assert.Equal(t, int64(540), Minutes(90005000))
	assert.Equal(t, int64(541), Minutes(90100000))
	assert.Equal(t, int64(14*60+59), Minutes(145959500))
	assert.Equal(t, int64(90000000), Floor(90005000))
}

func TestAggregatorEmitsBars(t *testing.T) {
	a := NewAggregator(1)

	_, ok := a.OnTick(tick(90000500, 4000, 100, 400000))
	assert.False(t, ok)
	_, ok = a.OnTick(tick(90020000, 4010, 110, 440100))
	assert.False(t, ok)
	_, ok = a.OnTick(tick(90040000, 3990, 120, 480000))
	assert.False(t, ok)

	cur, ok := a.Current("rb2501")
	require.True(t, ok)
	assert.True(t, decimal.NewFromInt(4010).Equal(cur.High))

	b, ok := a.OnTick(tick(90100000, 4005, 130, 520050))
	require.True(t, ok)
	assert.Equal(t, 0, b.Index)
	assert.Equal(t, int64(90100000), b.IntTime)
	assert.True(t, decimal.NewFromInt(4000).Equal(b.Open))
	assert.True(t, decimal.NewFromInt(4010).Equal(b.High))
	assert.True(t, decimal.NewFromInt(3990).Equal(b.Low))
	assert.True(t, decimal.NewFromInt(4005).Equal(b.Close))
	assert.Equal(t, int64(30), b.Volume)
	assert.True(t, decimal.NewFromInt(120050).Equal(b.Turnover))
	assert.Equal(t, int64(260), b.OpenInterest)

	_, ok = a.Current("rb2501")
	assert.False(t, ok)

	_, ok = a.OnTick(tick(90130000, 4020, 150, 600000))
	assert.False(t, ok)
	b, ok = a.OnTick(tick(90200000, 4030, 160, 640000))
	require.True(t, ok)
	assert.Equal(t, 1, b.Index)
	assert.True(t, decimal.NewFromInt(4020).Equal(b.Open))
	assert.Equal(t, int64(30), b.Volume)
}

func TestAggregatorInterval(t *testing.T) {
	a := NewAggregator(5)
	assert.Equal(t, 5, a.Interval())

	a.OnTick(tick(90000000, 4000, 0, 0))
	for m := int64(1); m < 5; m++ {
		_, ok := a.OnTick(tick(90000000+m*100000, 4000, m, m*4000))
		assert.False(t, ok)
	}
	b, ok := a.OnTick(tick(90500000, 4000, 5, 20000))
	require.True(t, ok)
	assert.Equal(t, int64(5), b.Volume)

	assert.Equal(t, 1, NewAggregator(0).Interval())
}

func TestAggregatorSymbolsIndependent(t *testing.T) {
	a := NewAggregator(1)
	other := tick(90000000, 8000, 10, 80000)
	other.Symbol = "ag2506"

	a.OnTick(tick(90000000, 4000, 0, 0))
	a.OnTick(other)

	b, ok := a.OnTick(tick(90100000, 4001, 5, 20005))
	require.True(t, ok)
	assert.Equal(t, "rb2501", b.Symbol)

	_, ok = a.Current("ag2506")
	assert.True(t, ok)

	a.Reset()
	_, ok = a.Current("ag2506")
	assert.False(t, ok)
}
