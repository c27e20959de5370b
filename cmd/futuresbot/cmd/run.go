package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/futuresbot/bot"
	"github.com/rustyeddy/futuresbot/broker"
	"github.com/rustyeddy/futuresbot/broker/csvfeed"
	"github.com/rustyeddy/futuresbot/broker/kraken"
	"github.com/rustyeddy/futuresbot/broker/sim"
	"github.com/rustyeddy/futuresbot/config"
	"github.com/rustyeddy/futuresbot/executor"
	"github.com/rustyeddy/futuresbot/internal/logging"
	"github.com/rustyeddy/futuresbot/journal"
	"github.com/rustyeddy/futuresbot/ledger"
	"github.com/rustyeddy/futuresbot/market/strategies"
	"github.com/rustyeddy/futuresbot/metrics"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trading loop",
	Long: `Run the bot with settings from a configuration file.

Mode defaults to the config's trade.simulation_mode. Live mode needs API
credentials in the config or in FUTURESBOT_API_KEY / FUTURESBOT_API_SECRET
(a .env file in the working directory is read too). With exchange.name
"paper", live orders go to an in-memory exchange fed by Kraken candles and
no credentials are needed.

--feed csv:<path> replays candles from a CSV file against a paper exchange
instead of fetching them from Kraken.

Examples:
  futuresbot run --config bot.yaml
  futuresbot run --config bot.yaml --mode live --max-trades 4
  futuresbot run --config bot.yaml --feed csv:testdata/sample20.csv --report run.org`,
	RunE: runRun,
}

type runOptions struct {
	configPath string
	mode       string
	maxTrades  int
	feed       string
	report     string
	envFile    string
}

var runOpts runOptions

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runOpts.configPath, "config", "f", "", "path to config file (YAML or JSON); defaults are used when empty")
	runCmd.Flags().StringVar(&runOpts.mode, "mode", "", "simulate or live (default from trade.simulation_mode)")
	runCmd.Flags().IntVar(&runOpts.maxTrades, "max-trades", 0, "stop after this many trades (0 = no limit)")
	runCmd.Flags().StringVar(&runOpts.feed, "feed", "", "replay candles from csv:<path>")
	runCmd.Flags().StringVar(&runOpts.report, "report", "", "write an Org PnL report here when the bot stops")
	runCmd.Flags().StringVar(&runOpts.envFile, "env-file", ".env", "dotenv file with credentials")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, mode, err := loadRunConfig(runOpts)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("%w: %v", config.ErrConfigInvalid, err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr, log); err != nil {
				log.Error("metrics server", zap.Error(err))
			}
		}()
	}

	rt, err := newRuntime(cfg, mode, runOpts, log, m)
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := rt.bot.Run(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s stopped: %s\n", res.RunID, res.Reason)
	fmt.Fprintf(out, "  Symbol: %s (%s)\n", res.Symbol, mode)
	fmt.Fprintf(out, "  Ticks: %d\n", res.Ticks)
	fmt.Fprintf(out, "  Trades: %d\n", len(res.Trades))
	fmt.Fprintf(out, "  Cumulative PnL: %.5f\n", res.CumulativePnL)
	if runOpts.report != "" {
		fmt.Fprintf(out, "  Report: %s\n", runOpts.report)
	}
	if ex, ok := rt.venue.(*sim.Exchange); ok && mode == executor.Live {
		fmt.Fprintf(out, "  Paper orders: %d placed, %d resting\n", len(ex.Orders()), len(ex.Resting()))
	}
	return nil
}

// loadRunConfig applies the config file, the environment and the --mode
// flag, in that order, and validates the result.
func loadRunConfig(o runOptions) (*config.Config, executor.Mode, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		cfg, err = config.ReadFromFile(o.configPath)
		if err != nil {
			return nil, "", fmt.Errorf("load config: %w", err)
		}
	}

	env, err := config.LoadEnv(o.envFile)
	if err != nil {
		return nil, "", err
	}
	cfg.ApplyEnv(env)

	mode := executor.Simulate
	if !cfg.Trade.SimulationMode {
		mode = executor.Live
	}
	if o.mode != "" {
		mode, err = executor.ParseMode(o.mode)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", config.ErrConfigInvalid, err)
		}
		cfg.Trade.SimulationMode = mode == executor.Simulate
	}

	if mode == executor.Live && o.feed == "" {
		err = cfg.ValidateLive()
	} else {
		err = cfg.Validate()
	}
	if err != nil {
		return nil, "", err
	}
	return cfg, mode, nil
}

type runtime struct {
	bot     *bot.Bot
	journal journal.Journal
	venue   broker.TradingClient
}

func (r *runtime) Close() error {
	return r.journal.Close()
}

// newRuntime wires the market data source, trading client, evaluator,
// executor, journal and ledger into a bot.
func newRuntime(cfg *config.Config, mode executor.Mode, o runOptions, log *zap.Logger, m *metrics.Metrics) (*runtime, error) {
	data, client, err := newVenue(cfg, o.feed, log)
	if err != nil {
		return nil, err
	}

	retrying := &broker.Retrying{
		Data:   data,
		Client: client,
		Policy: broker.RetryPolicy{
			Attempts: cfg.Execution.MaxRetries + 1,
			Backoff:  cfg.Execution.RetryBackoff.D(),
			Timeout:  cfg.Execution.CallTimeout.D(),
		},
		Log: log,
	}

	eval, err := strategies.New(cfg.Strategy.Mode, strategies.Params{
		SellMargin: cfg.Strategy.SellMargin,
		BuyMargin:  cfg.Strategy.BuyMargin,
		SellSpread: cfg.Strategy.SellSpread,
		BuySpread:  cfg.Strategy.BuySpread,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfigInvalid, err)
	}

	kind, err := broker.ParseOrderKind(cfg.Execution.OrderKind)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfigInvalid, err)
	}

	meta := cfg.Instrument()
	exec, err := executor.New(executor.Config{
		Symbol:            cfg.Trade.Symbol,
		Mode:              mode,
		OrderAmount:       cfg.Trade.OrderAmount,
		TakeProfitPct:     cfg.Execution.TakeProfitPct,
		StopLossPct:       cfg.Execution.StopLossPct,
		LimitOffsetPct:    cfg.Execution.LimitOffsetPct,
		OrderKind:         kind,
		UseStopOrders:     cfg.Execution.UseStopOrders,
		MinQuantity:       meta.MinimumTradeSize,
		ClampToMinimum:    cfg.Trade.ClampToMinimum,
		PricePrecision:    meta.PricePrecision,
		QuantityPrecision: meta.QuantityPrecision,
		Policy:            cfg.Policy(),
	}, retrying, log, m)
	if err != nil {
		return nil, err
	}

	j, err := journal.Open(journal.Options{
		Type:         cfg.Journal.Type,
		TradesFile:   cfg.Journal.TradesFile,
		DBPath:       cfg.Journal.DBPath,
		KafkaBrokers: cfg.Journal.KafkaBrokers,
		KafkaTopic:   cfg.Journal.KafkaTopic,
	})
	if err != nil {
		return nil, fmt.Errorf("create journal: %w", err)
	}

	reporter := bot.JournalReporter{
		Path:     o.report,
		Mode:     string(mode),
		Strategy: eval.Name(),
		Log:      log,
	}
	if rr, ok := j.(journal.RunRecorder); ok {
		reporter.Runs = rr
	}

	b, err := bot.New(bot.Config{
		Symbol:          cfg.Trade.Symbol,
		Timeframe:       cfg.Trade.Timeframe,
		Candles:         cfg.Trade.Candles,
		FastPeriod:      cfg.Strategy.FastPeriod,
		SlowPeriod:      cfg.Strategy.SlowPeriod,
		MaxTrades:       o.maxTrades,
		MaxOrdersPerDay: cfg.Trade.MaxOrdersPerDay,
		StopOnDailyCap:  cfg.Loop.StopOnDailyCap,
		PreventRepeat:   cfg.Strategy.PreventRepeatDirection,
		PollInterval:    cfg.Loop.PollInterval.D(),
		RetryBackoff:    cfg.Execution.RetryBackoff.D(),
		MaxBackoff:      cfg.Loop.MaxBackoff.D(),
		MaxEmptyFetches: cfg.Loop.MaxEmptyFetches,
	}, bot.Deps{
		Data:      retrying,
		Evaluator: eval,
		Executor:  exec,
		Ledger:    ledger.New(j, log),
		Reporter:  reporter,
		Log:       log,
		Metrics:   m,
	})
	if err != nil {
		j.Close()
		return nil, err
	}

	return &runtime{bot: b, journal: j, venue: client}, nil
}

// newVenue picks where candles come from and where orders go. A CSV feed
// or the paper exchange routes orders to an in-memory exchange; otherwise
// both go to Kraken Futures.
func newVenue(cfg *config.Config, feed string, log *zap.Logger) (broker.MarketData, broker.TradingClient, error) {
	var source broker.MarketData
	if feed != "" {
		path, ok := strings.CutPrefix(feed, "csv:")
		if !ok {
			return nil, nil, fmt.Errorf("%w: --feed must look like csv:<path>", config.ErrConfigInvalid)
		}
		f, err := csvfeed.Open(path, "")
		if err != nil {
			return nil, nil, fmt.Errorf("open feed: %w", err)
		}
		source = f
	}

	if source == nil {
		baseURL, err := krakenURL(cfg.Exchange.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		kc := kraken.NewClient(kraken.Options{
			BaseURL:   baseURL,
			APIKey:    cfg.Exchange.APIKey,
			APISecret: cfg.Exchange.APISecret,
			Timeout:   cfg.Exchange.Timeout.D(),
			Logger:    log,
		})
		if cfg.Exchange.Name != "paper" {
			return kc, kc, nil
		}
		source = kc
	}

	ex := sim.NewExchange(source)
	return ex, ex, nil
}

// krakenURL accepts a full URL or one of the environment names "live" and
// "demo".
func krakenURL(s string) (string, error) {
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return s, nil
	}
	u, err := kraken.BaseURL(s)
	if err != nil {
		return "", fmt.Errorf("%w: exchange.base_url: %v", config.ErrConfigInvalid, err)
	}
	return u, nil
}
