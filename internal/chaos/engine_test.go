package chaos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebook/internal/schema"
)

func responses(n int) []schema.Response {
	out := make([]schema.Response, n)
	for i := range out {
		out[i] = schema.Response{OrderID: schema.OrderID(i + 1), Status: schema.StatusEntrusted}
	}
	return out
}

func TestValidate(t *testing.T) {
	_, err := NewEngine(Config{DropRate: 1.5})
	assert.Error(t, err)
	_, err = NewEngine(Config{DuplicateRate: -1})
	assert.Error(t, err)
	_, err = NewEngine(Config{ReorderWindow: -2})
	assert.ErrorContains(t, err, "reorderWindow")
	assert.ErrorContains(t, Config{ReorderWindow: -1}.Validate(), "reorderWindow")
}

func TestZeroWindowDefaultsToOne(t *testing.T) {
	e, err := NewEngine(Config{Seed: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, e.cfg.ReorderWindow)
	assert.Zero(t, e.Pending())
}

func TestPassThrough(t *testing.T) {
	e, err := NewEngine(Config{Seed: 1})
	require.NoError(t, err)
	assert.False(t, Config{}.Enabled())

	for _, r := range responses(5) {
		assert.Equal(t, []schema.Response{r}, e.Process(r))
	}
	assert.Empty(t, e.Flush())

	var nilEngine *Engine
	r := responses(1)[0]
	assert.Equal(t, []schema.Response{r}, nilEngine.Process(r))
}

func TestDropAndDuplicate(t *testing.T) {
	drop, err := NewEngine(Config{Seed: 1, DropRate: 1})
	require.NoError(t, err)
	for _, r := range responses(5) {
		assert.Empty(t, drop.Process(r))
	}

	dup, err := NewEngine(Config{Seed: 1, DuplicateRate: 1})
	require.NoError(t, err)
	for _, r := range responses(5) {
		assert.Equal(t, []schema.Response{r, r}, dup.Process(r))
	}
}

func TestReorderKeepsEveryResponse(t *testing.T) {
	e, err := NewEngine(Config{Seed: 7, ReorderWindow: 3})
	require.NoError(t, err)
	assert.True(t, Config{ReorderWindow: 3}.Enabled())

	var out []schema.Response
	for _, r := range responses(10) {
		out = append(out, e.Process(r)...)
	}
	assert.Equal(t, 2, e.Pending())
	out = append(out, e.Flush()...)

	assert.ElementsMatch(t, responses(10), out)
	assert.Equal(t, 0, e.Pending())
}
