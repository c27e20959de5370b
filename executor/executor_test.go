package executor

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rustyeddy/futuresbot/broker"
	"github.com/rustyeddy/futuresbot/broker/sim"
	"github.com/rustyeddy/futuresbot/ledger"
	"github.com/rustyeddy/futuresbot/market"
	"github.com/rustyeddy/futuresbot/market/strategies"
	"github.com/rustyeddy/futuresbot/metrics"
	"github.com/rustyeddy/futuresbot/pkg/id"
	"github.com/rustyeddy/futuresbot/risk"
)

var fixedNow = time.Date(2024, 11, 4, 10, 20, 0, 0, time.UTC)

func baseConfig(mode Mode) Config {
	return Config{
		Symbol:            "PF_XBTUSD",
		Mode:              mode,
		OrderAmount:       200,
		TakeProfitPct:     0.01,
		StopLossPct:       0.01,
		LimitOffsetPct:    0.01,
		OrderKind:         broker.Limit,
		UseStopOrders:     true,
		MinQuantity:       0.0001,
		ClampToMinimum:    true,
		PricePrecision:    5,
		QuantityPrecision: 4,
	}
}

func newExec(t *testing.T, cfg Config, client broker.TradingClient, log *zap.Logger, m *metrics.Metrics) *Executor {
	t.Helper()
	e, err := New(cfg, client, log, m)
	require.NoError(t, err)
	e.now = func() time.Time { return fixedNow }
	return e
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	m, err := ParseMode("SIMULATE")
	require.NoError(t, err)
	assert.Equal(t, Simulate, m)

	m, err = ParseMode(" live ")
	require.NoError(t, err)
	assert.Equal(t, Live, m)

	_, err = ParseMode("paper")
	assert.Error(t, err)
}

func TestLiveNeedsClient(t *testing.T) {
	t.Parallel()

	_, err := New(baseConfig(Live), nil, nil, nil)
	assert.ErrorIs(t, err, broker.ErrClientUnavailable)
}

func TestHoldIsNotExecuted(t *testing.T) {
	t.Parallel()

	e := newExec(t, baseConfig(Simulate), nil, nil, nil)
	_, err := e.Execute(context.Background(), strategies.Hold, 100, "")
	assert.ErrorIs(t, err, ErrNoSignal)
}

func TestSimulate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name               string
		sig                strategies.Signal
		side               market.Side
		tp, sl, limit, qty float64
	}{
		{"buy", strategies.Buy, market.Buy, 101, 99, 101, 2},
		{"sell", strategies.Sell, market.Sell, 99, 101, 99, 2},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ex := sim.NewExchange(nil)
			e := newExec(t, baseConfig(Simulate), ex, nil, nil)

			tr, err := e.Execute(context.Background(), tt.sig, 100, "band")
			require.NoError(t, err)

			assert.Equal(t, ledger.StatusSimulated, tr.Status)
			assert.Equal(t, tt.side, tr.Side)
			assert.Equal(t, "PF_XBTUSD", tr.Symbol)
			assert.Equal(t, 100.0, tr.Price)
			assert.Equal(t, tt.qty, tr.Quantity)
			assert.Equal(t, tt.tp, tr.TakeProfit)
			assert.Equal(t, tt.sl, tr.StopLoss)
			assert.Equal(t, tt.limit, tr.LimitPrice)
			assert.Equal(t, fixedNow, tr.Time)
			assert.Equal(t, "band", tr.Reason)
			assert.Empty(t, tr.OrderID)

			ts, err := id.Time(tr.ID)
			require.NoError(t, err)
			assert.Equal(t, fixedNow, ts)

			// Simulation never reaches the exchange.
			assert.Empty(t, ex.Orders())
		})
	}
}

func TestClampWarns(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	cfg := baseConfig(Simulate)
	cfg.OrderAmount = 1
	cfg.MinQuantity = 1
	e := newExec(t, cfg, nil, zap.New(core), nil)

	tr, err := e.Execute(context.Background(), strategies.Buy, 10000, "")
	require.NoError(t, err)
	assert.Equal(t, 1.0, tr.Quantity)

	warn := logs.FilterMessage("order size clamped to instrument minimum").All()
	require.Len(t, warn, 1)
	assert.Equal(t, zapcore.WarnLevel, warn[0].Level)
}

func TestNoClampFails(t *testing.T) {
	t.Parallel()

	cfg := baseConfig(Simulate)
	cfg.OrderAmount = 1
	cfg.MinQuantity = 1
	cfg.ClampToMinimum = false
	e := newExec(t, cfg, nil, nil, nil)

	_, err := e.Execute(context.Background(), strategies.Buy, 10000, "")
	assert.Error(t, err)
}

func TestRiskPolicyBlocksClampedExposure(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	ex := sim.NewExchange(nil)
	cfg := baseConfig(Live)
	cfg.OrderAmount = 1
	cfg.MinQuantity = 1
	cfg.Policy = risk.Policy{MaxNotional: 500}
	e := newExec(t, cfg, ex, nil, m)

	_, err := e.Execute(context.Background(), strategies.Buy, 10000, "")
	assert.ErrorIs(t, err, risk.ErrRejected)
	assert.Contains(t, err.Error(), "NOTIONAL_TOO_HIGH")
	assert.Empty(t, ex.Orders())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrderErrors.WithLabelValues("risk")))
}

func TestLiveLimitWithProtection(t *testing.T) {
	t.Parallel()

	ex := sim.NewExchange(nil)
	ex.SetMark("PF_XBTUSD", 100)
	e := newExec(t, baseConfig(Live), ex, nil, nil)

	tr, err := e.Execute(context.Background(), strategies.Buy, 100, "")
	require.NoError(t, err)

	assert.Equal(t, ledger.StatusExecuted, tr.Status)
	assert.NotEmpty(t, tr.OrderID)
	assert.Equal(t, 100.0, tr.Price)
	assert.Equal(t, 2.0, tr.Quantity)

	orders := ex.Orders()
	require.Len(t, orders, 3)

	entry := orders[0].Req
	assert.Equal(t, broker.Limit, entry.Kind)
	assert.Equal(t, market.Buy, entry.Side)
	assert.Equal(t, 101.0, entry.LimitPrice)
	assert.False(t, entry.ReduceOnly)
	assert.Equal(t, tr.ID+"-entry", entry.ClientOrderID)
	assert.Equal(t, tr.OrderID, orders[0].ID)

	sl := orders[1].Req
	assert.Equal(t, broker.StopLoss, sl.Kind)
	assert.Equal(t, market.Sell, sl.Side)
	assert.Equal(t, 99.0, sl.StopPrice)
	assert.True(t, sl.ReduceOnly)
	assert.Equal(t, tr.ID+"-sl", sl.ClientOrderID)

	tp := orders[2].Req
	assert.Equal(t, broker.TakeProfit, tp.Kind)
	assert.Equal(t, market.Sell, tp.Side)
	assert.Equal(t, 101.0, tp.StopPrice)
	assert.True(t, tp.ReduceOnly)

	// Price falls through the stop.
	ex.SetMark("PF_XBTUSD", 98.5)
	after := ex.Orders()
	assert.Equal(t, "triggered", after[1].Status)
	assert.Equal(t, "placed", after[2].Status)
}

func TestLiveMarketUsesFill(t *testing.T) {
	t.Parallel()

	ex := sim.NewExchange(nil)
	ex.SetMark("PF_XBTUSD", 100.5)

	cfg := baseConfig(Live)
	cfg.OrderKind = broker.Market
	cfg.UseStopOrders = false
	e := newExec(t, cfg, ex, nil, nil)

	tr, err := e.Execute(context.Background(), strategies.Sell, 100, "")
	require.NoError(t, err)
	assert.Equal(t, 100.5, tr.Price)

	orders := ex.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, 0.0, orders[0].Req.LimitPrice)
}

func TestLivePrimaryFailure(t *testing.T) {
	t.Parallel()

	ex := sim.NewExchange(nil)
	ex.SetMark("PF_XBTUSD", 100)
	ex.FailNext(broker.ErrOrderRejected)
	m := metrics.New()
	e := newExec(t, baseConfig(Live), ex, nil, m)

	_, err := e.Execute(context.Background(), strategies.Buy, 100, "")
	assert.ErrorIs(t, err, broker.ErrOrderRejected)
	assert.Empty(t, ex.Orders())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrderErrors.WithLabelValues("rejected")))
}

type scriptedClient struct {
	reqs []broker.OrderRequest
	fail map[broker.OrderKind]error
}

func (c *scriptedClient) PlaceOrder(_ context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	c.reqs = append(c.reqs, req)
	if err := c.fail[req.Kind]; err != nil {
		return broker.OrderResult{}, err
	}
	return broker.OrderResult{ID: "ord-" + string(req.Kind), Status: "placed"}, nil
}

func TestLiveDependentFailureKeepsTrade(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	client := &scriptedClient{fail: map[broker.OrderKind]error{
		broker.StopLoss: broker.ErrOrderRejected,
	}}
	m := metrics.New()
	e := newExec(t, baseConfig(Live), client, zap.New(core), m)

	tr, err := e.Execute(context.Background(), strategies.Buy, 100, "")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusExecuted, tr.Status)
	assert.Equal(t, "ord-limit", tr.OrderID)
	// A resting limit reports no fill; the trade keeps the requested values.
	assert.Equal(t, 100.0, tr.Price)
	assert.Equal(t, 2.0, tr.Quantity)

	// The take-profit is still attempted after the stop-loss fails.
	require.Len(t, client.reqs, 3)
	assert.Equal(t, broker.TakeProfit, client.reqs[2].Kind)

	failed := logs.FilterMessage("dependent order failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.WarnLevel, failed[0].Level)
	assert.Equal(t, 1, logs.FilterMessage("dependent order placed").Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrderErrors.WithLabelValues("dependent")))
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "rejected", ErrorKind(broker.ErrOrderRejected))
	assert.Equal(t, "unavailable", ErrorKind(broker.ErrClientUnavailable))
	assert.Equal(t, "timeout", ErrorKind(context.DeadlineExceeded))
	assert.Equal(t, "other", ErrorKind(assert.AnError))
}
