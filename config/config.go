package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/futuresbot/broker"
	"github.com/rustyeddy/futuresbot/market"
	"github.com/rustyeddy/futuresbot/market/strategies"
	"github.com/rustyeddy/futuresbot/risk"
)

// ErrConfigInvalid wraps every validation failure.
var ErrConfigInvalid = errors.New("invalid config")

// Config is the complete bot configuration.
type Config struct {
	Exchange  ExchangeConfig  `json:"exchange" yaml:"exchange"`
	Trade     TradeConfig     `json:"trade" yaml:"trade"`
	Strategy  StrategyConfig  `json:"strategy" yaml:"strategy"`
	Execution ExecutionConfig `json:"execution" yaml:"execution"`
	Loop      LoopConfig      `json:"loop" yaml:"loop"`
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
	Log       LogConfig       `json:"log" yaml:"log"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
}

// ExchangeConfig selects the venue. Name is "krakenfutures" or "paper".
type ExchangeConfig struct {
	Name      string   `json:"name" yaml:"name"`
	BaseURL   string   `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	APIKey    string   `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APISecret string   `json:"api_secret,omitempty" yaml:"api_secret,omitempty"`
	Timeout   Duration `json:"timeout" yaml:"timeout"`
}

type TradeConfig struct {
	Symbol          string  `json:"symbol" yaml:"symbol"`
	Timeframe       string  `json:"timeframe" yaml:"timeframe"`
	Candles         int     `json:"candles" yaml:"candles"`
	OrderAmount     float64 `json:"order_amount" yaml:"order_amount"`
	MaxOrdersPerDay int     `json:"max_orders_per_day" yaml:"max_orders_per_day"`
	SimulationMode  bool    `json:"simulation_mode" yaml:"simulation_mode"`
	ClampToMinimum  bool    `json:"clamp_to_minimum" yaml:"clamp_to_minimum"`

	// Overrides for the instrument metadata. Unset means use the exchange
	// values from market.Instruments.
	MinAssetQuantity  float64 `json:"min_asset_quantity,omitempty" yaml:"min_asset_quantity,omitempty"`
	PricePrecision    *int32  `json:"price_precision,omitempty" yaml:"price_precision,omitempty"`
	QuantityPrecision *int32  `json:"quantity_precision,omitempty" yaml:"quantity_precision,omitempty"`
}

type StrategyConfig struct {
	Mode                   string  `json:"mode" yaml:"mode"` // band, strict or watch
	FastPeriod             int     `json:"fast_period" yaml:"fast_period"`
	SlowPeriod             int     `json:"slow_period" yaml:"slow_period"`
	SellMargin             float64 `json:"sell_margin" yaml:"sell_margin"`
	BuyMargin              float64 `json:"buy_margin" yaml:"buy_margin"`
	SellSpread             float64 `json:"sell_spread" yaml:"sell_spread"`
	BuySpread              float64 `json:"buy_spread" yaml:"buy_spread"`
	PreventRepeatDirection bool    `json:"prevent_repeat_direction" yaml:"prevent_repeat_direction"`
}

type ExecutionConfig struct {
	TakeProfitPct  float64  `json:"take_profit_pct" yaml:"take_profit_pct"`
	StopLossPct    float64  `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	LimitOffsetPct float64  `json:"limit_offset_pct" yaml:"limit_offset_pct"`
	OrderKind      string   `json:"order_kind" yaml:"order_kind"` // limit or market
	UseStopOrders  bool     `json:"use_stop_orders" yaml:"use_stop_orders"`
	MaxRetries     int      `json:"max_retries" yaml:"max_retries"`
	RetryBackoff   Duration `json:"retry_backoff" yaml:"retry_backoff"`
	CallTimeout    Duration `json:"call_timeout" yaml:"call_timeout"`

	// Pre-trade limits; zero disables.
	MaxNotional float64 `json:"max_notional,omitempty" yaml:"max_notional,omitempty"`
	MinRR       float64 `json:"min_rr,omitempty" yaml:"min_rr,omitempty"`
}

type LoopConfig struct {
	PollInterval    Duration `json:"poll_interval" yaml:"poll_interval"`
	MaxEmptyFetches int      `json:"max_empty_fetches" yaml:"max_empty_fetches"`
	MaxBackoff      Duration `json:"max_backoff" yaml:"max_backoff"`
	StopOnDailyCap  bool     `json:"stop_on_daily_cap" yaml:"stop_on_daily_cap"`
}

// JournalConfig contains journaling parameters. Type is csv, sqlite, kafka,
// none, or a comma separated list.
type JournalConfig struct {
	Type         string   `json:"type" yaml:"type"`
	TradesFile   string   `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	DBPath       string   `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	KafkaBrokers []string `json:"kafka_brokers,omitempty" yaml:"kafka_brokers,omitempty"`
	KafkaTopic   string   `json:"kafka_topic,omitempty" yaml:"kafka_topic,omitempty"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // json or console
}

type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"`
}

// LoadFromFile reads path with ReadFromFile and validates the result.
func LoadFromFile(path string) (*Config, error) {
	cfg, err := ReadFromFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadFromFile parses path over Default(), so omitted keys keep their
// defaults. YAML is tried first, then JSON. The result is not validated.
func ReadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("%w: parse config (tried YAML and JSON): %v", ErrConfigInvalid, err)
		}
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrConfigInvalid}, args...)...)
}

// Validate checks the configuration. Every error wraps ErrConfigInvalid.
func (c *Config) Validate() error {
	switch c.Exchange.Name {
	case "krakenfutures", "paper":
	default:
		return invalid("exchange.name must be 'krakenfutures' or 'paper', got %q", c.Exchange.Name)
	}
	if c.Exchange.Timeout < 0 {
		return invalid("exchange.timeout must not be negative")
	}

	t := c.Trade
	if t.Symbol == "" {
		return invalid("trade.symbol is required")
	}
	if _, err := market.TimeframeDuration(t.Timeframe); err != nil {
		return invalid("trade.timeframe: %v", err)
	}
	if t.Candles <= 0 {
		return invalid("trade.candles must be positive")
	}
	if t.OrderAmount <= 0 {
		return invalid("trade.order_amount must be positive")
	}
	if t.MaxOrdersPerDay < 0 {
		return invalid("trade.max_orders_per_day must not be negative")
	}
	if t.MinAssetQuantity < 0 {
		return invalid("trade.min_asset_quantity must not be negative")
	}
	if (t.PricePrecision != nil && *t.PricePrecision < 0) || (t.QuantityPrecision != nil && *t.QuantityPrecision < 0) {
		return invalid("trade precisions must not be negative")
	}
	s := c.Strategy
	if !contains(strategies.Names(), s.Mode) {
		return invalid("strategy.mode must be one of %s, got %q", strings.Join(strategies.Names(), ", "), s.Mode)
	}
	if s.FastPeriod <= 0 || s.SlowPeriod <= 0 {
		return invalid("strategy periods must be positive")
	}
	if s.SellMargin < 0 || s.BuyMargin < 0 || s.SellSpread < 0 || s.BuySpread < 0 {
		return invalid("strategy margins and spreads must not be negative")
	}

	e := c.Execution
	if e.TakeProfitPct <= 0 || e.TakeProfitPct >= 1 {
		return invalid("execution.take_profit_pct must be between 0 and 1")
	}
	if e.StopLossPct <= 0 || e.StopLossPct >= 1 {
		return invalid("execution.stop_loss_pct must be between 0 and 1")
	}
	if e.LimitOffsetPct < 0 || e.LimitOffsetPct >= 1 {
		return invalid("execution.limit_offset_pct must be between 0 and 1")
	}
	if _, err := broker.ParseOrderKind(e.OrderKind); err != nil {
		return invalid("execution.order_kind: %v", err)
	}
	if e.MaxRetries < 0 || e.RetryBackoff < 0 || e.CallTimeout < 0 {
		return invalid("execution retry settings must not be negative")
	}
	if err := c.Policy().Validate(); err != nil {
		return invalid("execution: %v", err)
	}

	l := c.Loop
	if l.PollInterval <= 0 {
		return invalid("loop.poll_interval must be positive")
	}
	if l.MaxEmptyFetches < 0 || l.MaxBackoff < 0 {
		return invalid("loop limits must not be negative")
	}

	for _, typ := range strings.Split(c.Journal.Type, ",") {
		switch strings.TrimSpace(typ) {
		case "", "none":
		case "csv":
			if c.Journal.TradesFile == "" {
				return invalid("journal trades_file required for CSV type")
			}
		case "sqlite":
			if c.Journal.DBPath == "" {
				return invalid("journal db_path required for SQLite type")
			}
		case "kafka":
			if len(c.Journal.KafkaBrokers) == 0 || c.Journal.KafkaTopic == "" {
				return invalid("journal kafka_brokers and kafka_topic required for Kafka type")
			}
		default:
			return invalid("journal.type %q must be csv, sqlite, kafka or none", typ)
		}
	}

	switch c.Log.Format {
	case "", "json", "console":
	default:
		return invalid("log.format must be 'json' or 'console'")
	}
	return nil
}

// ValidateLive additionally requires credentials for live trading on
// Kraken. The paper exchange needs none.
func (c *Config) ValidateLive() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Exchange.Name == "paper" {
		return nil
	}
	if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
		return invalid("live trading needs exchange api_key and api_secret (or FUTURESBOT_API_KEY / FUTURESBOT_API_SECRET)")
	}
	return nil
}

// Instrument returns the exchange metadata for the configured symbol with
// the config's precision and minimum overrides applied.
func (c *Config) Instrument() market.InstrumentMeta {
	meta, _ := market.Lookup(c.Trade.Symbol)
	if c.Trade.MinAssetQuantity > 0 {
		meta.MinimumTradeSize = c.Trade.MinAssetQuantity
	}
	if c.Trade.PricePrecision != nil {
		meta.PricePrecision = *c.Trade.PricePrecision
	}
	if c.Trade.QuantityPrecision != nil {
		meta.QuantityPrecision = *c.Trade.QuantityPrecision
	}
	return meta
}

// Policy returns the pre-trade risk limits.
func (c *Config) Policy() risk.Policy {
	return risk.Policy{
		MaxNotional: c.Execution.MaxNotional,
		MinRR:       c.Execution.MinRR,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Default returns a paper-trading configuration on PF_XBTUSD.
func Default() *Config {
	return &Config{
		Exchange: ExchangeConfig{
			Name:    "krakenfutures",
			Timeout: Duration(defaultTimeout),
		},
		Trade: TradeConfig{
			Symbol:          "PF_XBTUSD",
			Timeframe:       "1m",
			Candles:         20,
			OrderAmount:     10,
			MaxOrdersPerDay: 10,
			SimulationMode:  true,
			ClampToMinimum:  true,
		},
		Strategy: StrategyConfig{
			Mode:                   "band",
			FastPeriod:             20,
			SlowPeriod:             200,
			SellMargin:             0.02,
			BuyMargin:              0.02,
			SellSpread:             0.04,
			BuySpread:              0.01,
			PreventRepeatDirection: true,
		},
		Execution: ExecutionConfig{
			TakeProfitPct:  0.01,
			StopLossPct:    0.01,
			LimitOffsetPct: 0.01,
			OrderKind:      "limit",
			UseStopOrders:  true,
			MaxRetries:     3,
			RetryBackoff:   Duration(defaultRetryBackoff),
			CallTimeout:    Duration(defaultTimeout),
		},
		Loop: LoopConfig{
			PollInterval:    Duration(defaultPollInterval),
			MaxEmptyFetches: 10,
			MaxBackoff:      Duration(defaultMaxBackoff),
			StopOnDailyCap:  true,
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
