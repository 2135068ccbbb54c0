package ops

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"tradebook/internal/chaos"
	"tradebook/internal/journal"
	"tradebook/internal/mdg"
	"tradebook/internal/paper"
	"tradebook/internal/risk"
	"tradebook/internal/schema"
)

const envPrefix = "TRADEBOOK_"

// FileConfig mirrors the JSON/YAML config layout.
type FileConfig struct {
	Strategy  StrategyConfig   `json:"strategy" yaml:"strategy"`
	Accounts  []AccountConfig  `json:"accounts" yaml:"accounts"`
	Contracts []ContractConfig `json:"contracts" yaml:"contracts"`
	Risk      RiskConfig       `json:"risk" yaml:"risk"`
	Journal   JournalConfig    `json:"journal" yaml:"journal"`
	Log       LogConfig        `json:"log" yaml:"log"`
	Paper     PaperConfig      `json:"paper" yaml:"paper"`
	Market    MarketConfig     `json:"market" yaml:"market"`
	Profiling ProfilingConfig  `json:"profiling" yaml:"profiling"`
	Bus       BusConfig        `json:"bus" yaml:"bus"`
}

// StrategyConfig holds the session-wide trading switches.
type StrategyConfig struct {
	Name            string `json:"name" yaml:"name"`
	PreferYesterday bool   `json:"preferYesterday" yaml:"prefer_yesterday"`
	BarMinutes      int    `json:"barMinutes" yaml:"bar_minutes"`
	OrderSize       int64  `json:"orderSize" yaml:"order_size"`
}

// AccountConfig describes an account entry.
type AccountConfig struct {
	Name          string  `json:"name" yaml:"name"`
	CashAvailable float64 `json:"cashAvailable" yaml:"cash_available"`
	CashAsset     float64 `json:"cashAsset" yaml:"cash_asset"`
	FXRate        float64 `json:"fxRate" yaml:"fx_rate"`
}

// FeeConfig is a contract fee schedule.
type FeeConfig struct {
	ExchangeFee          float64 `json:"exchangeFee" yaml:"exchange_fee"`
	YesterdayExchangeFee float64 `json:"yesterdayExchangeFee" yaml:"yesterday_exchange_fee"`
	BrokerFee            float64 `json:"brokerFee" yaml:"broker_fee"`
	StampTax             float64 `json:"stampTax" yaml:"stamp_tax"`
	TransferFee          float64 `json:"transferFee" yaml:"transfer_fee"`
	ByLot                bool    `json:"byLot" yaml:"by_lot"`
}

// HoldingConfig is a volume held at an average price.
type HoldingConfig struct {
	Volume int64   `json:"volume" yaml:"volume"`
	Price  float64 `json:"price" yaml:"price"`
}

// PositionConfig is the startup holding of a contract.
type PositionConfig struct {
	Long           HoldingConfig `json:"long" yaml:"long"`
	Short          HoldingConfig `json:"short" yaml:"short"`
	YesterdayLong  HoldingConfig `json:"yesterdayLong" yaml:"yesterday_long"`
	YesterdayShort HoldingConfig `json:"yesterdayShort" yaml:"yesterday_short"`
}

// ContractConfig describes a contract entry.
type ContractConfig struct {
	Symbol     string         `json:"symbol" yaml:"symbol"`
	Exchange   string         `json:"exchange" yaml:"exchange"`
	Account    string         `json:"account" yaml:"account"`
	Multiplier float64        `json:"multiplier" yaml:"multiplier"`
	Fee        FeeConfig      `json:"fee" yaml:"fee"`
	Position   PositionConfig `json:"position" yaml:"position"`
	// Price seeds the paper market for this symbol.
	Price float64 `json:"price" yaml:"price"`
}

// RiskConfig mirrors risk.Config with file-friendly types.
type RiskConfig struct {
	KillSwitch           bool    `json:"killSwitch" yaml:"kill_switch"`
	MaxOrderQty          int64   `json:"maxOrderQty" yaml:"max_order_qty"`
	MaxOrderNotional     float64 `json:"maxOrderNotional" yaml:"max_order_notional"`
	MaxPosition          int64   `json:"maxPosition" yaml:"max_position"`
	OrderRateLimit       int     `json:"orderRateLimit" yaml:"order_rate_limit"`
	OrderRateWindowMs    int64   `json:"orderRateWindowMs" yaml:"order_rate_window_ms"`
	MaxPriceDeviationBps int64   `json:"maxPriceDeviationBps" yaml:"max_price_deviation_bps"`
	CheckCash            bool    `json:"checkCash" yaml:"check_cash"`
}

// JournalConfig selects and connects the order journal.
type JournalConfig struct {
	// Driver is one of "", "nop", "memory" or "postgres".
	Driver         string            `json:"driver" yaml:"driver"`
	Host           string            `json:"host" yaml:"host"`
	Port           int               `json:"port" yaml:"port"`
	User           string            `json:"user" yaml:"user"`
	Password       string            `json:"password" yaml:"password"`
	Database       string            `json:"database" yaml:"database"`
	SSLMode        string            `json:"sslMode" yaml:"ssl_mode"`
	Params         map[string]string `json:"params" yaml:"params"`
	DSN            string            `json:"dsn" yaml:"dsn"`
	WriteTimeoutMs int64             `json:"writeTimeoutMs" yaml:"write_timeout_ms"`
}

// LogConfig selects the logger.
type LogConfig struct {
	// Driver is one of "", "logs", "zap" or "nop".
	Driver string `json:"driver" yaml:"driver"`
	File   string `json:"file" yaml:"file"`
}

// ChaosConfig describes response fault injection.
type ChaosConfig struct {
	Seed          int64   `json:"seed" yaml:"seed"`
	DropRate      float64 `json:"dropRate" yaml:"drop_rate"`
	DuplicateRate float64 `json:"duplicateRate" yaml:"duplicate_rate"`
	ReorderWindow int     `json:"reorderWindow" yaml:"reorder_window"`
}

// PaperConfig describes the simulated venue.
type PaperConfig struct {
	FirstID      int64       `json:"firstId" yaml:"first_id"`
	MaxOrderSize int64       `json:"maxOrderSize" yaml:"max_order_size"`
	MaxFillQty   int64       `json:"maxFillQty" yaml:"max_fill_qty"`
	Chaos        ChaosConfig `json:"chaos" yaml:"chaos"`
}

// MarketConfig describes the synthetic tick stream.
type MarketConfig struct {
	Seed       int64   `json:"seed" yaml:"seed"`
	StartTime  int64   `json:"startTime" yaml:"start_time"`
	StepMs     int64   `json:"stepMs" yaml:"step_ms"`
	IntervalMs int64   `json:"intervalMs" yaml:"interval_ms"`
	TickSize   float64 `json:"tickSize" yaml:"tick_size"`
	MaxMove    int     `json:"maxMove" yaml:"max_move"`
	MaxVolume  int64   `json:"maxVolume" yaml:"max_volume"`
	// Ticks stops the session after that many ticks; 0 runs until shutdown.
	Ticks int `json:"ticks" yaml:"ticks"`
}

// ProfilingConfig enables continuous profiling.
type ProfilingConfig struct {
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	ApplicationName string `json:"applicationName" yaml:"application_name"`
	ServerAddress   string `json:"serverAddress" yaml:"server_address"`
}

// BusConfig sizes the event queue.
type BusConfig struct {
	Capacity int `json:"capacity" yaml:"capacity"`
}

// Strategy is the resolved strategy section.
type Strategy struct {
	Name            string
	PreferYesterday bool
	BarMinutes      int
	OrderSize       int64
}

// JournalSettings is the resolved journal section.
type JournalSettings struct {
	Driver string
	Option journal.Option
}

// Market is the resolved market section.
type Market struct {
	Generator mdg.Config
	Interval  time.Duration
	Ticks     int
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Registry    *schema.Registry
	Strategy    Strategy
	Risk        risk.Config
	Journal     JournalSettings
	Log         LogConfig
	Paper       paper.Config
	Market      Market
	Profiling   ProfilingConfig
	BusCapacity int
}

// Load reads a JSON or YAML config file, applies .env and environment overrides, and
// builds the registry. envPath may be empty.
func Load(path, envPath string) (Loaded, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Loaded{}, fmt.Errorf("config: load env %s: %w", envPath, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Loaded{}, err
	}
	return Resolve(cfg)
}

// ReadFile decodes a config file by extension. Anything but .yaml/.yml is read as JSON.
func ReadFile(path string) (FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		err = json.Unmarshal(data, &cfg)
	}
	if err != nil {
		return FileConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Resolve validates a decoded config and builds the runtime settings.
func Resolve(cfg FileConfig) (Loaded, error) {
	registry, err := buildRegistry(cfg.Accounts, cfg.Contracts)
	if err != nil {
		return Loaded{}, err
	}
	strategy, err := resolveStrategy(cfg.Strategy)
	if err != nil {
		return Loaded{}, err
	}
	riskCfg, err := resolveRisk(cfg.Risk)
	if err != nil {
		return Loaded{}, err
	}
	journalCfg, err := resolveJournal(cfg.Journal)
	if err != nil {
		return Loaded{}, err
	}
	logCfg, err := resolveLog(cfg.Log)
	if err != nil {
		return Loaded{}, err
	}
	market, err := resolveMarket(cfg.Market, cfg.Contracts)
	if err != nil {
		return Loaded{}, err
	}
	paperCfg := paper.Config{
		FirstID:      cfg.Paper.FirstID,
		MaxOrderSize: cfg.Paper.MaxOrderSize,
		MaxFillQty:   cfg.Paper.MaxFillQty,
		Chaos: chaos.Config{
			Seed:          cfg.Paper.Chaos.Seed,
			DropRate:      cfg.Paper.Chaos.DropRate,
			DuplicateRate: cfg.Paper.Chaos.DuplicateRate,
			ReorderWindow: cfg.Paper.Chaos.ReorderWindow,
		},
	}
	if err := paperCfg.Chaos.Validate(); err != nil {
		return Loaded{}, fmt.Errorf("paper.chaos: %w", err)
	}
	if cfg.Profiling.Enabled && cfg.Profiling.ServerAddress == "" {
		return Loaded{}, fmt.Errorf("profiling.serverAddress is required when profiling is enabled")
	}
	if cfg.Profiling.ApplicationName == "" {
		cfg.Profiling.ApplicationName = "tradebook"
	}
	capacity := cfg.Bus.Capacity
	if capacity < 0 {
		return Loaded{}, fmt.Errorf("bus.capacity must be >= 0")
	}
	if capacity == 0 {
		capacity = 1024
	}
	return Loaded{
		Registry:    registry,
		Strategy:    strategy,
		Risk:        riskCfg,
		Journal:     journalCfg,
		Log:         logCfg,
		Paper:       paperCfg,
		Market:      market,
		Profiling:   cfg.Profiling,
		BusCapacity: capacity,
	}, nil
}

func buildRegistry(accounts []AccountConfig, contracts []ContractConfig) (*schema.Registry, error) {
	if len(contracts) == 0 {
		return nil, fmt.Errorf("contracts is empty")
	}
	reg := schema.NewRegistry()
	for i, acc := range accounts {
		if acc.FXRate < 0 {
			return nil, fmt.Errorf("accounts[%d].fxRate must be >= 0", i)
		}
		err := reg.AddAccount(schema.Account{
			Name:          acc.Name,
			CashAvailable: decimal.NewFromFloat(acc.CashAvailable),
			CashAsset:     decimal.NewFromFloat(acc.CashAsset),
			FXRate:        decimal.NewFromFloat(acc.FXRate),
		})
		if err != nil {
			return nil, fmt.Errorf("accounts[%d]: %w", i, err)
		}
	}
	for i, c := range contracts {
		exchange, err := schema.ParseExchange(c.Exchange)
		if err != nil {
			return nil, fmt.Errorf("contracts[%d].exchange: %w", i, err)
		}
		if c.Multiplier < 0 {
			return nil, fmt.Errorf("contracts[%d].multiplier must be >= 0", i)
		}
		if err := validateFee(c.Fee); err != nil {
			return nil, fmt.Errorf("contracts[%d].fee: %w", i, err)
		}
		err = reg.AddContract(schema.Contract{
			Symbol:     c.Symbol,
			Exchange:   exchange,
			Account:    c.Account,
			Multiplier: decimal.NewFromFloat(c.Multiplier),
			Fee: schema.FeeSchedule{
				ExchangeFee:          decimal.NewFromFloat(c.Fee.ExchangeFee),
				YesterdayExchangeFee: decimal.NewFromFloat(c.Fee.YesterdayExchangeFee),
				BrokerFee:            decimal.NewFromFloat(c.Fee.BrokerFee),
				StampTax:             decimal.NewFromFloat(c.Fee.StampTax),
				TransferFee:          decimal.NewFromFloat(c.Fee.TransferFee),
				ByLot:                c.Fee.ByLot,
			},
			Start: schema.StartPosition{
				Long:           holding(c.Position.Long),
				Short:          holding(c.Position.Short),
				YesterdayLong:  holding(c.Position.YesterdayLong),
				YesterdayShort: holding(c.Position.YesterdayShort),
			},
		})
		if err != nil {
			return nil, fmt.Errorf("contracts[%d]: %w", i, err)
		}
	}
	return reg, nil
}

func holding(h HoldingConfig) schema.Holding {
	return schema.Holding{Volume: h.Volume, Price: decimal.NewFromFloat(h.Price)}
}

func validateFee(f FeeConfig) error {
	if f.ExchangeFee < 0 || f.YesterdayExchangeFee < 0 || f.BrokerFee < 0 || f.StampTax < 0 || f.TransferFee < 0 {
		return fmt.Errorf("rates must be >= 0")
	}
	return nil
}

func resolveStrategy(cfg StrategyConfig) (Strategy, error) {
	if cfg.BarMinutes < 0 {
		return Strategy{}, fmt.Errorf("strategy.barMinutes must be >= 0")
	}
	if cfg.OrderSize < 0 {
		return Strategy{}, fmt.Errorf("strategy.orderSize must be >= 0")
	}
	if cfg.Name == "" {
		cfg.Name = "paper"
	}
	if cfg.BarMinutes == 0 {
		cfg.BarMinutes = 1
	}
	if cfg.OrderSize == 0 {
		cfg.OrderSize = 1
	}
	return Strategy(cfg), nil
}

func resolveRisk(cfg RiskConfig) (risk.Config, error) {
	if cfg.MaxOrderQty < 0 || cfg.MaxPosition < 0 || cfg.OrderRateLimit < 0 || cfg.OrderRateWindowMs < 0 ||
		cfg.MaxPriceDeviationBps < 0 || cfg.MaxOrderNotional < 0 {
		return risk.Config{}, fmt.Errorf("risk limits must be >= 0")
	}
	if cfg.OrderRateLimit > 0 && cfg.OrderRateWindowMs == 0 {
		return risk.Config{}, fmt.Errorf("risk.orderRateWindowMs is required with risk.orderRateLimit")
	}
	return risk.Config{
		KillSwitch:           cfg.KillSwitch,
		MaxOrderQty:          cfg.MaxOrderQty,
		MaxOrderNotional:     decimal.NewFromFloat(cfg.MaxOrderNotional),
		MaxPosition:          cfg.MaxPosition,
		OrderRateLimit:       cfg.OrderRateLimit,
		OrderRateWindow:      time.Duration(cfg.OrderRateWindowMs) * time.Millisecond,
		MaxPriceDeviationBps: cfg.MaxPriceDeviationBps,
		CheckCash:            cfg.CheckCash,
	}, nil
}

func resolveJournal(cfg JournalConfig) (JournalSettings, error) {
	driver := strings.ToLower(cfg.Driver)
	switch driver {
	case "", "nop", "memory":
	case "postgres":
		if cfg.DSN == "" && cfg.Database == "" {
			return JournalSettings{}, fmt.Errorf("journal.database is required for the postgres driver")
		}
	default:
		return JournalSettings{}, fmt.Errorf("journal.driver is unknown: %q", cfg.Driver)
	}
	return JournalSettings{
		Driver: driver,
		Option: journal.Option{
			Host:         cfg.Host,
			Port:         cfg.Port,
			User:         cfg.User,
			Password:     cfg.Password,
			Database:     cfg.Database,
			SSLMode:      cfg.SSLMode,
			Params:       cfg.Params,
			ConnString:   cfg.DSN,
			WriteTimeout: time.Duration(cfg.WriteTimeoutMs) * time.Millisecond,
		},
	}, nil
}

func resolveLog(cfg LogConfig) (LogConfig, error) {
	cfg.Driver = strings.ToLower(cfg.Driver)
	switch cfg.Driver {
	case "", "logs", "zap", "nop":
		return cfg, nil
	default:
		return LogConfig{}, fmt.Errorf("log.driver is unknown: %q", cfg.Driver)
	}
}

func resolveMarket(cfg MarketConfig, contracts []ContractConfig) (Market, error) {
	if cfg.StepMs < 0 || cfg.IntervalMs < 0 || cfg.Ticks < 0 || cfg.TickSize < 0 {
		return Market{}, fmt.Errorf("market values must be >= 0")
	}
	if cfg.StartTime != 0 {
		if _, err := mdg.ToMillis(cfg.StartTime); err != nil {
			return Market{}, fmt.Errorf("market.startTime: %w", err)
		}
	}
	prices := make(map[string]decimal.Decimal, len(contracts))
	for _, c := range contracts {
		if c.Price > 0 {
			prices[c.Symbol] = decimal.NewFromFloat(c.Price)
		}
	}
	interval := time.Duration(cfg.IntervalMs) * time.Millisecond
	if interval == 0 {
		interval = 100 * time.Millisecond
	}
	return Market{
		Generator: mdg.Config{
			Seed:      cfg.Seed,
			StartTime: cfg.StartTime,
			Step:      time.Duration(cfg.StepMs) * time.Millisecond,
			TickSize:  decimal.NewFromFloat(cfg.TickSize),
			MaxMove:   cfg.MaxMove,
			MaxVolume: cfg.MaxVolume,
			Prices:    prices,
		},
		Interval: interval,
		Ticks:    cfg.Ticks,
	}, nil
}

func applyEnv(cfg *FileConfig) error {
	if v := os.Getenv(envPrefix + "LOG_DRIVER"); v != "" {
		cfg.Log.Driver = v
	}
	if v := os.Getenv(envPrefix + "LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := os.Getenv(envPrefix + "JOURNAL_DRIVER"); v != "" {
		cfg.Journal.Driver = v
	}
	if v := os.Getenv(envPrefix + "JOURNAL_DSN"); v != "" {
		cfg.Journal.DSN = v
	}
	if v := os.Getenv(envPrefix + "JOURNAL_PASSWORD"); v != "" {
		cfg.Journal.Password = v
	}
	if v := os.Getenv(envPrefix + "PYROSCOPE_ADDR"); v != "" {
		cfg.Profiling.ServerAddress = v
		cfg.Profiling.Enabled = true
	}
	if err := envBool(envPrefix+"KILL_SWITCH", &cfg.Risk.KillSwitch); err != nil {
		return err
	}
	if err := envBool(envPrefix+"PREFER_YESTERDAY", &cfg.Strategy.PreferYesterday); err != nil {
		return err
	}
	if err := envInt(envPrefix+"MARKET_TICKS", &cfg.Market.Ticks); err != nil {
		return err
	}
	return nil
}

func envBool(key string, dst *bool) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = parsed
	return nil
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("config: %s: %w", key, err)
	}
	*dst = parsed
	return nil
}
