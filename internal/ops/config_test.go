package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradebook/internal/schema"
)

const jsonConfig = `{
  "strategy": {"name": "demo", "preferYesterday": true, "barMinutes": 5, "orderSize": 2},
  "accounts": [{"name": "acc", "cashAvailable": 100000, "cashAsset": 100000}],
  "contracts": [{
    "symbol": "rb2501",
    "exchange": "SHFE",
    "account": "acc",
    "multiplier": 10,
    "price": 3500,
    "fee": {"exchangeFee": 0.0001, "yesterdayExchangeFee": 0.00005, "brokerFee": 0.00002},
    "position": {"long": {"volume": 5, "price": 3400}, "yesterdayLong": {"volume": 3, "price": 3390}}
  }],
  "risk": {"maxOrderQty": 10, "orderRateLimit": 5, "orderRateWindowMs": 1000, "maxOrderNotional": 500000},
  "journal": {"driver": "memory"},
  "paper": {"maxFillQty": 2, "chaos": {"reorderWindow": 3}},
  "market": {"seed": 9, "stepMs": 250, "ticks": 100}
}`

const yamlConfig = `
strategy:
  prefer_yesterday: false
accounts:
  - name: acc
    cash_available: 50000
contracts:
  - symbol: "600000"
    exchange: sse
    account: acc
    fee:
      broker_fee: 0.0003
      stamp_tax: 0.001
      transfer_fee: 0.00002
journal:
  driver: postgres
  database: trades
  write_timeout_ms: 500
log:
  driver: zap
  file: trader.log
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadJSON(t *testing.T) {
	loaded, err := Load(writeFile(t, "config.json", jsonConfig), "")
	require.NoError(t, err)

	assert.Equal(t, Strategy{Name: "demo", PreferYesterday: true, BarMinutes: 5, OrderSize: 2}, loaded.Strategy)

	c, ok := loaded.Registry.Contract("rb2501")
	require.True(t, ok)
	assert.Equal(t, schema.ExchangeSHFE, c.Exchange)
	assert.True(t, c.Multiplier.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, int64(3), c.Start.YesterdayLong.Volume)
	assert.True(t, c.Fee.ExchangeFee.Equal(decimal.RequireFromString("0.0001")))

	acc, ok := loaded.Registry.Account("acc")
	require.True(t, ok)
	assert.True(t, acc.CashAvailable.Equal(decimal.NewFromInt(100000)))

	assert.Equal(t, int64(10), loaded.Risk.MaxOrderQty)
	assert.Equal(t, time.Second, loaded.Risk.OrderRateWindow)
	assert.Equal(t, "memory", loaded.Journal.Driver)
	assert.Equal(t, int64(2), loaded.Paper.MaxFillQty)
	assert.Equal(t, 3, loaded.Paper.Chaos.ReorderWindow)
	assert.Equal(t, 250*time.Millisecond, loaded.Market.Generator.Step)
	assert.True(t, loaded.Market.Generator.Prices["rb2501"].Equal(decimal.NewFromInt(3500)))
	assert.Equal(t, 100, loaded.Market.Ticks)
	assert.Equal(t, 1024, loaded.BusCapacity)
	assert.Equal(t, "tradebook", loaded.Profiling.ApplicationName)
}

func TestLoadYAML(t *testing.T) {
	loaded, err := Load(writeFile(t, "config.yaml", yamlConfig), "")
	require.NoError(t, err)

	c, ok := loaded.Registry.Contract("600000")
	require.True(t, ok)
	assert.Equal(t, schema.ExchangeSSE, c.Exchange)
	assert.True(t, c.Fee.StampTax.Equal(decimal.RequireFromString("0.001")))

	assert.Equal(t, "paper", loaded.Strategy.Name)
	assert.Equal(t, 1, loaded.Strategy.BarMinutes)
	assert.Equal(t, "postgres", loaded.Journal.Driver)
	assert.Equal(t, "trades", loaded.Journal.Option.Database)
	assert.Equal(t, 500*time.Millisecond, loaded.Journal.Option.WriteTimeout)
	assert.Equal(t, LogConfig{Driver: "zap", File: "trader.log"}, loaded.Log)
}

func TestEnvOverrides(t *testing.T) {
	env := writeFile(t, ".env", "TRADEBOOK_LOG_DRIVER=nop\nTRADEBOOK_MARKET_TICKS=7\n")
	t.Setenv("TRADEBOOK_KILL_SWITCH", "true")
	t.Setenv("TRADEBOOK_MARKET_TICKS", "3")
	t.Cleanup(func() { _ = os.Unsetenv("TRADEBOOK_LOG_DRIVER") })

	loaded, err := Load(writeFile(t, "config.json", jsonConfig), env)
	require.NoError(t, err)
	assert.True(t, loaded.Risk.KillSwitch)
	assert.Equal(t, "nop", loaded.Log.Driver)
	assert.Equal(t, 3, loaded.Market.Ticks)

	t.Setenv("TRADEBOOK_PREFER_YESTERDAY", "maybe")
	_, err = Load(writeFile(t, "config.json", jsonConfig), "")
	assert.ErrorContains(t, err, "TRADEBOOK_PREFER_YESTERDAY")
}

func TestEnvFile(t *testing.T) {
	path := writeFile(t, "config.json", jsonConfig)

	_, err := Load(path, filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	bad := writeFile(t, "bad.env", "TRADEBOOK-LOG-DRIVER=nop\n")
	_, err = Load(path, bad)
	assert.ErrorContains(t, err, "config: load env")
}

func TestResolveRejects(t *testing.T) {
	base := func() FileConfig {
		return FileConfig{
			Accounts:  []AccountConfig{{Name: "acc"}},
			Contracts: []ContractConfig{{Symbol: "rb2501", Exchange: "SHFE", Account: "acc"}},
		}
	}
	_, err := Resolve(base())
	require.NoError(t, err)

	cases := map[string]struct {
		mutate func(*FileConfig)
		field  string
	}{
		"unknown exchange": {func(c *FileConfig) { c.Contracts[0].Exchange = "NYSE" }, "contracts[0].exchange"},
		"missing account":  {func(c *FileConfig) { c.Contracts[0].Account = "other" }, "contracts[0]"},
		"negative fee":     {func(c *FileConfig) { c.Contracts[0].Fee.BrokerFee = -1 }, "contracts[0].fee"},
		"no contracts":     {func(c *FileConfig) { c.Contracts = nil }, "contracts"},
		"yesterday above":  {func(c *FileConfig) { c.Contracts[0].Position.YesterdayShort.Volume = 1 }, "contracts[0]"},
		"rate window":      {func(c *FileConfig) { c.Risk.OrderRateLimit = 3 }, "risk.orderRateWindowMs"},
		"journal driver":   {func(c *FileConfig) { c.Journal.Driver = "mongo" }, "journal.driver"},
		"journal database": {func(c *FileConfig) { c.Journal.Driver = "postgres" }, "journal.database"},
		"log driver":       {func(c *FileConfig) { c.Log.Driver = "syslog" }, "log.driver"},
		"chaos":            {func(c *FileConfig) { c.Paper.Chaos.DropRate = 3 }, "paper.chaos"},
		"market time":      {func(c *FileConfig) { c.Market.StartTime = 99999999 }, "market.startTime"},
		"profiling":        {func(c *FileConfig) { c.Profiling.Enabled = true }, "profiling.serverAddress"},
		"bus":              {func(c *FileConfig) { c.Bus.Capacity = -1 }, "bus.capacity"},
		"bar minutes":      {func(c *FileConfig) { c.Strategy.BarMinutes = -1 }, "strategy.barMinutes"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			_, err := Resolve(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestReadFileErrors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "config: read")

	_, err = ReadFile(writeFile(t, "broken.yml", "accounts: [\n"))
	assert.ErrorContains(t, err, "config: parse")
}
