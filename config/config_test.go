package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "PF_XBTUSD", cfg.Trade.Symbol)
	assert.Equal(t, 20, cfg.Trade.Candles)
	assert.True(t, cfg.Trade.SimulationMode)
	assert.Equal(t, "band", cfg.Strategy.Mode)
	assert.True(t, cfg.Strategy.PreventRepeatDirection)
	assert.Equal(t, time.Minute, cfg.Loop.PollInterval.D())
	assert.True(t, cfg.Loop.StopOnDailyCap)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"valid config", func(*Config) {}, ""},
		{"unknown exchange", func(c *Config) { c.Exchange.Name = "binance" }, "exchange.name"},
		{"missing symbol", func(c *Config) { c.Trade.Symbol = "" }, "trade.symbol is required"},
		{"bad timeframe", func(c *Config) { c.Trade.Timeframe = "7m" }, "trade.timeframe"},
		{"zero candles", func(c *Config) { c.Trade.Candles = 0 }, "trade.candles must be positive"},
		{"zero amount", func(c *Config) { c.Trade.OrderAmount = 0 }, "trade.order_amount must be positive"},
		{"negative precision", func(c *Config) { p := int32(-1); c.Trade.PricePrecision = &p }, "precisions"},
		{"live on paper", func(c *Config) {
			c.Exchange.Name = "paper"
			c.Trade.SimulationMode = false
		}, ""},
		{"unknown mode", func(c *Config) { c.Strategy.Mode = "macd" }, "strategy.mode must be one of band, strict, watch"},
		{"zero period", func(c *Config) { c.Strategy.SlowPeriod = 0 }, "strategy periods"},
		{"negative margin", func(c *Config) { c.Strategy.BuyMargin = -0.1 }, "margins"},
		{"take profit too big", func(c *Config) { c.Execution.TakeProfitPct = 1.5 }, "take_profit_pct"},
		{"zero stop loss", func(c *Config) { c.Execution.StopLossPct = 0 }, "stop_loss_pct"},
		{"bad order kind", func(c *Config) { c.Execution.OrderKind = "stop" }, "execution.order_kind"},
		{"negative max notional", func(c *Config) { c.Execution.MaxNotional = -1 }, "max notional"},
		{"zero poll", func(c *Config) { c.Loop.PollInterval = 0 }, "loop.poll_interval"},
		{"csv without file", func(c *Config) { c.Journal.TradesFile = "" }, "trades_file"},
		{"sqlite without path", func(c *Config) { c.Journal.Type = "csv,sqlite" }, "db_path"},
		{"kafka without topic", func(c *Config) {
			c.Journal.Type = "kafka"
			c.Journal.KafkaBrokers = []string{"localhost:9092"}
		}, "kafka_topic"},
		{"unknown journal", func(c *Config) { c.Journal.Type = "redis" }, "journal.type"},
		{"no journal", func(c *Config) { c.Journal.Type = "none" }, ""},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrConfigInvalid)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestValidateLive(t *testing.T) {
	cfg := Default()
	cfg.Trade.SimulationMode = false
	err := cfg.ValidateLive()
	assert.ErrorIs(t, err, ErrConfigInvalid)
	assert.Contains(t, err.Error(), "api_key")

	cfg.Exchange.APIKey = "key"
	cfg.Exchange.APISecret = "c2VjcmV0"
	assert.NoError(t, cfg.ValidateLive())
}

func TestValidateLivePaperNeedsNoCredentials(t *testing.T) {
	cfg := Default()
	cfg.Exchange.Name = "paper"
	cfg.Trade.SimulationMode = false
	assert.NoError(t, cfg.ValidateLive())
}

func TestReadFromFileSkipsValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trade:\n  order_amount: -5\n"), 0o600))

	cfg, err := ReadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, -5.0, cfg.Trade.OrderAmount)

	_, err = LoadFromFile(path)
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"config.yaml", "config.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)

			cfg := Default()
			cfg.Trade.Symbol = "PF_ETHUSD"
			cfg.Strategy.Mode = "strict"
			cfg.Loop.PollInterval = Duration(90 * time.Second)
			cfg.Journal.KafkaBrokers = []string{"a:9092", "b:9092"}
			require.NoError(t, cfg.SaveToFile(path))

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.yaml")
	yml := `
trade:
  symbol: PF_XRPUSD
  order_amount: 25
  price_precision: 4
strategy:
  prevent_repeat_direction: false
loop:
  poll_interval: 30s
  max_backoff: 120
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PF_XRPUSD", cfg.Trade.Symbol)
	assert.Equal(t, 25.0, cfg.Trade.OrderAmount)
	assert.Equal(t, "1m", cfg.Trade.Timeframe)
	assert.False(t, cfg.Strategy.PreventRepeatDirection)
	assert.Equal(t, 200, cfg.Strategy.SlowPeriod)
	assert.Equal(t, 30*time.Second, cfg.Loop.PollInterval.D())
	assert.Equal(t, 2*time.Minute, cfg.Loop.MaxBackoff.D())
	assert.True(t, cfg.Loop.StopOnDailyCap)

	meta := cfg.Instrument()
	assert.Equal(t, int32(4), meta.PricePrecision)
	assert.Equal(t, int32(0), meta.QuantityPrecision)
	assert.Equal(t, 1.0, meta.MinimumTradeSize)
}

func TestLoadJSONNumbers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.json")
	js := `{"trade": {"symbol": "PF_SOLUSD"}, "execution": {"retry_backoff": 2.5}}`
	require.NoError(t, os.WriteFile(path, []byte(js), 0o600))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PF_SOLUSD", cfg.Trade.Symbol)
	assert.Equal(t, 2500*time.Millisecond, cfg.Execution.RetryBackoff.D())
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/config.json")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trade: [unclosed"), 0o600))
	_, err = LoadFromFile(path)
	assert.ErrorIs(t, err, ErrConfigInvalid)

	path = filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("trade:\n  candles: -1\n"), 0o600))
	_, err = LoadFromFile(path)
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestInstrumentUnknownSymbol(t *testing.T) {
	cfg := Default()
	cfg.Trade.Symbol = "PF_DOGEUSD"
	cfg.Trade.MinAssetQuantity = 10

	meta := cfg.Instrument()
	assert.Equal(t, "PF_DOGEUSD", meta.Name)
	assert.Equal(t, int32(5), meta.PricePrecision)
	assert.Equal(t, int32(4), meta.QuantityPrecision)
	assert.Equal(t, 10.0, meta.MinimumTradeSize)
}

func TestEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("FUTURESBOT_API_SECRET=from-file\nFUTURESBOT_BASE_URL=https://demo-futures.kraken.com\n"), 0o600))

	t.Setenv("FUTURESBOT_API_KEY", "from-env")
	// Already set variables win over the .env file.
	t.Setenv("FUTURESBOT_BASE_URL", "http://localhost:9999")
	t.Setenv("FUTURESBOT_API_SECRET", "")
	require.NoError(t, os.Unsetenv("FUTURESBOT_API_SECRET"))

	env, err := LoadEnv(envFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", env.APIKey)
	assert.Equal(t, "from-file", env.APISecret)
	assert.Equal(t, "http://localhost:9999", env.BaseURL)

	cfg := Default()
	cfg.Exchange.APIKey = "from-config"
	cfg.Log.Level = "debug"
	cfg.ApplyEnv(env)
	assert.Equal(t, "from-env", cfg.Exchange.APIKey)
	assert.Equal(t, "from-file", cfg.Exchange.APISecret)
	assert.Equal(t, "http://localhost:9999", cfg.Exchange.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestDurationParse(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"1s", time.Second, false},
		{"1m30s", 90 * time.Second, false},
		{"45", 45 * time.Second, false},
		{"0.5", 500 * time.Millisecond, false},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		var d Duration
		err := d.parse(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, d.D(), tt.in)
	}
}
