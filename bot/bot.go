// Package bot runs the fetch, evaluate, execute and record cycle for one
// symbol until a stop condition is met.
package bot

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/futuresbot/broker"
	"github.com/rustyeddy/futuresbot/ledger"
	"github.com/rustyeddy/futuresbot/market/indicators"
	"github.com/rustyeddy/futuresbot/market/strategies"
	"github.com/rustyeddy/futuresbot/metrics"
	"github.com/rustyeddy/futuresbot/pkg/id"
)

type State int32

const (
	Stopped State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "stopped"
}

type StopReason string

const (
	StopMaxTrades StopReason = "max-trades"
	StopDailyCap  StopReason = "daily-cap"
	StopNoData    StopReason = "no-data"
	StopCancelled StopReason = "cancelled"
)

type Config struct {
	Symbol     string
	Timeframe  string
	Candles    int
	FastPeriod int
	SlowPeriod int

	MaxTrades       int // total for the run, 0 = unlimited
	MaxOrdersPerDay int // per UTC day, 0 = unlimited
	StopOnDailyCap  bool
	PreventRepeat   bool

	PollInterval    time.Duration
	RetryBackoff    time.Duration
	MaxBackoff      time.Duration
	MaxEmptyFetches int // 0 = never stop for lack of data
}

func (c Config) validate() error {
	switch {
	case c.Symbol == "":
		return errors.New("bot: symbol is required")
	case c.Candles <= 0:
		return fmt.Errorf("bot: candles must be positive, got %d", c.Candles)
	case c.FastPeriod <= 0 || c.SlowPeriod <= 0:
		return fmt.Errorf("bot: periods must be positive, got %d/%d", c.FastPeriod, c.SlowPeriod)
	case c.PollInterval < 0 || c.RetryBackoff < 0 || c.MaxBackoff < 0:
		return errors.New("bot: durations must not be negative")
	}
	return nil
}

// Executor turns a signal into a trade. *executor.Executor satisfies it.
type Executor interface {
	Execute(ctx context.Context, sig strategies.Signal, price float64, reason string) (ledger.Trade, error)
}

type Deps struct {
	Data      broker.MarketData
	Evaluator strategies.Evaluator
	Executor  Executor
	Ledger    *ledger.Ledger
	Reporter  Reporter // optional
	Log       *zap.Logger
	Metrics   *metrics.Metrics
}

type Result struct {
	RunID         string
	Symbol        string
	Reason        StopReason
	Ticks         int
	Trades        []ledger.Trade
	CumulativePnL float64
	Started       time.Time
	Stopped       time.Time
}

type Bot struct {
	cfg Config
	Deps

	state atomic.Int32
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	day      string
	dayCount int
	failures int
	ticks    int
}

func New(cfg Config, d Deps) (*Bot, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if d.Data == nil || d.Evaluator == nil || d.Executor == nil {
		return nil, errors.New("bot: data, evaluator and executor are required")
	}
	if d.Ledger == nil {
		d.Ledger = ledger.New(nil, d.Log)
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Bot{
		cfg:   cfg,
		Deps:  d,
		now:   func() time.Time { return time.Now().UTC() },
		sleep: broker.SleepContext,
	}, nil
}

func (b *Bot) State() State { return State(b.state.Load()) }

// Run loops until a stop condition is met. Cancelling ctx is a clean stop.
// The returned error is non-nil only when the Reporter fails.
func (b *Bot) Run(ctx context.Context) (Result, error) {
	res := Result{
		RunID:   id.New(),
		Symbol:  b.cfg.Symbol,
		Started: b.now(),
	}

	b.state.Store(int32(Running))
	b.Log.Info("bot started",
		zap.String("run_id", res.RunID),
		zap.String("symbol", b.cfg.Symbol),
		zap.String("timeframe", b.cfg.Timeframe),
		zap.String("strategy", b.Evaluator.Name()),
	)

	res.Reason = b.loop(ctx)
	b.state.Store(int32(Stopped))

	res.Ticks = b.ticks
	res.Trades = b.Ledger.Trades()
	res.CumulativePnL = b.Ledger.CumulativePnL()
	res.Stopped = b.now()

	if !b.Ledger.Consistent() {
		b.Log.Error("ledger replay mismatch",
			zap.Float64("cum_pnl", res.CumulativePnL),
			zap.Float64("replayed", ledger.Replay(res.Trades)),
		)
	}
	b.Log.Info("bot stopped",
		zap.String("run_id", res.RunID),
		zap.String("reason", string(res.Reason)),
		zap.Int("ticks", res.Ticks),
		zap.Int("trades", len(res.Trades)),
		zap.Float64("cum_pnl", res.CumulativePnL),
	)

	if b.Reporter != nil {
		if err := b.Reporter.Report(res, b.Ledger); err != nil {
			return res, fmt.Errorf("report: %w", err)
		}
	}
	return res, nil
}

func (b *Bot) loop(ctx context.Context) StopReason {
	for {
		if ctx.Err() != nil {
			return StopCancelled
		}
		if b.cfg.MaxTrades > 0 && b.Ledger.Len() >= b.cfg.MaxTrades {
			return StopMaxTrades
		}

		b.rollDay()
		wait := b.cfg.PollInterval
		if b.cfg.MaxOrdersPerDay > 0 && b.dayCount >= b.cfg.MaxOrdersPerDay {
			if b.cfg.StopOnDailyCap {
				return StopDailyCap
			}
			b.Log.Debug("daily cap reached, waiting for next UTC day",
				zap.Int("orders_today", b.dayCount))
		} else {
			var stop bool
			wait, stop = b.tick(ctx)
			if stop {
				return StopNoData
			}
		}

		if err := b.sleep(ctx, wait); err != nil {
			return StopCancelled
		}
	}
}

// rollDay resets the daily order count when the UTC date changes.
func (b *Bot) rollDay() {
	day := b.now().UTC().Format("2006-01-02")
	if day != b.day {
		if b.day != "" {
			b.Log.Info("new trading day", zap.String("day", day), zap.Int("orders_yesterday", b.dayCount))
		}
		b.day = day
		b.dayCount = 0
	}
}

// tick runs one iteration and returns how long to wait before the next.
func (b *Bot) tick(ctx context.Context) (time.Duration, bool) {
	b.ticks++
	b.Metrics.Tick()

	candles, err := b.Data.Candles(ctx, b.cfg.Symbol, b.cfg.Timeframe, b.cfg.Candles)
	if err == nil && len(candles) == 0 {
		err = errors.New("no candles")
	}
	if err != nil {
		return b.fetchFailed(ctx, err)
	}

	snap, err := indicators.Compute(candles, b.cfg.FastPeriod, b.cfg.SlowPeriod)
	if err != nil {
		return b.fetchFailed(ctx, err)
	}
	b.failures = 0

	dec := b.Evaluator.Evaluate(snap)
	sig := dec.Signal()
	b.Metrics.Signal(sig.String())
	b.Log.Info("signal",
		zap.String("symbol", b.cfg.Symbol),
		zap.Stringer("signal", sig),
		zap.Float64("price", snap.Close),
		zap.Float64("vwap", snap.VWAP),
		zap.Float64("ema_fast", snap.EMAFast),
		zap.Float64("ema_slow", snap.EMASlow),
	)

	if sig == strategies.Hold {
		return b.cfg.PollInterval, false
	}
	if b.cfg.PreventRepeat && b.Ledger.Blocks(sig.Side()) {
		b.Log.Info("skipping repeat direction", zap.Stringer("side", sig.Side()))
		return b.cfg.PollInterval, false
	}

	t, err := b.Executor.Execute(ctx, sig, snap.Close, dec.Reason())
	if err != nil {
		b.Log.Error("execute failed",
			zap.Stringer("signal", sig),
			zap.Float64("price", snap.Close),
			zap.Error(err),
		)
		return b.cfg.PollInterval, false
	}

	t = b.Ledger.Record(t)
	b.dayCount++
	b.Metrics.Order(string(t.Status))
	b.Metrics.SetPnL(b.Ledger.CumulativePnL())
	return b.cfg.PollInterval, false
}

func (b *Bot) fetchFailed(ctx context.Context, err error) (time.Duration, bool) {
	if ctx.Err() != nil {
		return 0, false
	}
	b.failures++
	b.Metrics.FetchFailure()

	wait := b.backoff()
	b.Log.Warn("no usable market data",
		zap.String("symbol", b.cfg.Symbol),
		zap.Int("consecutive", b.failures),
		zap.Duration("retry_in", wait),
		zap.Error(err),
	)
	if b.cfg.MaxEmptyFetches > 0 && b.failures >= b.cfg.MaxEmptyFetches {
		return 0, true
	}
	return wait, false
}

// backoff doubles RetryBackoff per consecutive failure up to MaxBackoff.
func (b *Bot) backoff() time.Duration {
	d := b.cfg.RetryBackoff
	if d <= 0 {
		d = b.cfg.PollInterval
	}
	for i := 1; i < b.failures; i++ {
		d *= 2
		if b.cfg.MaxBackoff > 0 && d >= b.cfg.MaxBackoff {
			return b.cfg.MaxBackoff
		}
	}
	if b.cfg.MaxBackoff > 0 && d > b.cfg.MaxBackoff {
		d = b.cfg.MaxBackoff
	}
	return d
}
