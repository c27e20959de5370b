// Package executor turns a BUY or SELL signal into a trade, either simulated
// locally or submitted to a trading client with protective orders.
package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/futuresbot/broker"
	"github.com/rustyeddy/futuresbot/ledger"
	"github.com/rustyeddy/futuresbot/market"
	"github.com/rustyeddy/futuresbot/market/strategies"
	"github.com/rustyeddy/futuresbot/metrics"
	"github.com/rustyeddy/futuresbot/pkg/id"
	"github.com/rustyeddy/futuresbot/risk"
)

// ErrNoSignal is returned when asked to execute a HOLD.
var ErrNoSignal = errors.New("executor: nothing to execute for HOLD")

type Mode string

const (
	Simulate Mode = "simulate"
	Live     Mode = "live"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Simulate:
		return Simulate, nil
	case Live:
		return Live, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want simulate|live)", s)
	}
}

type Config struct {
	Symbol      string
	Mode        Mode
	OrderAmount float64 // quote currency per trade

	TakeProfitPct  float64
	StopLossPct    float64
	LimitOffsetPct float64
	OrderKind      broker.OrderKind
	UseStopOrders  bool

	MinQuantity       float64
	ClampToMinimum    bool
	PricePrecision    int32
	QuantityPrecision int32

	Policy risk.Policy
}

type Executor struct {
	cfg     Config
	client  broker.TradingClient
	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New returns an executor. client may be nil in simulate mode. log and m
// may be nil.
func New(cfg Config, client broker.TradingClient, log *zap.Logger, m *metrics.Metrics) (*Executor, error) {
	if cfg.Mode == Live && client == nil {
		return nil, fmt.Errorf("%w: live mode without a trading client", broker.ErrClientUnavailable)
	}
	if cfg.OrderKind == "" {
		cfg.OrderKind = broker.Limit
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{
		cfg:     cfg,
		client:  client,
		log:     log,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (e *Executor) Mode() Mode { return e.cfg.Mode }

// Execute prices and sizes an order for sig at price. In simulate mode it
// returns a simulated trade without touching the client. In live mode the
// primary order must be accepted for a trade to be returned; protective
// order failures are logged and do not void it.
func (e *Executor) Execute(ctx context.Context, sig strategies.Signal, price float64, reason string) (ledger.Trade, error) {
	side := sig.Side()
	if side == market.NoSide {
		return ledger.Trade{}, ErrNoSignal
	}

	br, err := risk.CalcBracket(risk.BracketInputs{
		Side:          side,
		Price:         price,
		TakeProfitPct: e.cfg.TakeProfitPct,
		StopLossPct:   e.cfg.StopLossPct,
		LimitPct:      e.cfg.LimitOffsetPct,
		Precision:     e.cfg.PricePrecision,
	})
	if err != nil {
		return ledger.Trade{}, err
	}

	size, err := risk.Size(risk.SizeInputs{
		AmountQuote: e.cfg.OrderAmount,
		Price:       price,
		MinQuantity: e.cfg.MinQuantity,
		Precision:   e.cfg.QuantityPrecision,
		Clamp:       e.cfg.ClampToMinimum,
	})
	if err != nil {
		return ledger.Trade{}, err
	}
	if size.Clamped {
		e.log.Warn("order size clamped to instrument minimum",
			zap.String("symbol", e.cfg.Symbol),
			zap.Float64("requested_qty", size.Raw),
			zap.Float64("qty", size.Quantity),
			zap.Float64("notional", size.Quantity*price),
		)
	}

	d := risk.Check(e.cfg.Policy, risk.Intent{
		Symbol:   e.cfg.Symbol,
		Side:     side,
		Quantity: size.Quantity,
		Price:    price,
		Bracket:  br,
	})
	if err := d.Err(); err != nil {
		e.metrics.OrderError("risk")
		return ledger.Trade{}, err
	}

	now := e.now()
	t := ledger.Trade{
		ID:         id.At(now),
		Time:       now,
		Symbol:     e.cfg.Symbol,
		Side:       side,
		Quantity:   size.Quantity,
		Price:      price,
		TakeProfit: br.TakeProfit,
		StopLoss:   br.StopLoss,
		LimitPrice: br.Limit,
		Reason:     reason,
	}

	if e.cfg.Mode != Live {
		t.Status = ledger.StatusSimulated
		e.log.Info("simulated order",
			zap.String("symbol", t.Symbol),
			zap.Stringer("side", side),
			zap.Float64("qty", t.Quantity),
			zap.Float64("price", price),
			zap.Float64("take_profit", br.TakeProfit),
			zap.Float64("stop_loss", br.StopLoss),
			zap.Float64("limit", br.Limit),
		)
		return t, nil
	}

	return e.live(ctx, t)
}

func (e *Executor) live(ctx context.Context, t ledger.Trade) (ledger.Trade, error) {
	req := broker.OrderRequest{
		Symbol:        t.Symbol,
		Side:          t.Side,
		Quantity:      t.Quantity,
		Kind:          e.cfg.OrderKind,
		ClientOrderID: id.ClientOrderID(t.ID, "entry"),
	}
	if req.Kind == broker.Limit {
		req.LimitPrice = t.LimitPrice
	}

	res, err := e.client.PlaceOrder(ctx, req)
	if err != nil {
		e.metrics.OrderError(ErrorKind(err))
		return ledger.Trade{}, fmt.Errorf("place %s %s order: %w", t.Side, req.Kind, err)
	}

	t.Status = ledger.StatusExecuted
	t.OrderID = res.ID
	if res.AvgPrice > 0 {
		t.Price = res.AvgPrice
	}
	if res.FilledQty > 0 {
		t.Quantity = res.FilledQty
	}

	e.log.Info("order placed",
		zap.String("symbol", t.Symbol),
		zap.Stringer("side", t.Side),
		zap.Float64("qty", t.Quantity),
		zap.Float64("price", t.Price),
		zap.String("order_id", res.ID),
		zap.String("status", res.Status),
	)

	if e.cfg.UseStopOrders {
		e.protect(ctx, t)
	}
	return t, nil
}

// protect places reduce-only stop-loss and take-profit orders on the
// closing side of t.
func (e *Executor) protect(ctx context.Context, t ledger.Trade) {
	legs := []struct {
		name    string
		kind    broker.OrderKind
		trigger float64
	}{
		{"sl", broker.StopLoss, t.StopLoss},
		{"tp", broker.TakeProfit, t.TakeProfit},
	}

	for _, leg := range legs {
		req := broker.OrderRequest{
			Symbol:        t.Symbol,
			Side:          t.Side.Opposite(),
			Quantity:      t.Quantity,
			Kind:          leg.kind,
			StopPrice:     leg.trigger,
			ReduceOnly:    true,
			ClientOrderID: id.ClientOrderID(t.ID, leg.name),
		}
		res, err := e.client.PlaceOrder(ctx, req)
		if err != nil {
			e.metrics.OrderError("dependent")
			e.log.Warn("dependent order failed",
				zap.String("trade_id", t.ID),
				zap.String("kind", string(leg.kind)),
				zap.Float64("trigger", leg.trigger),
				zap.Error(err),
			)
			continue
		}
		e.log.Info("dependent order placed",
			zap.String("trade_id", t.ID),
			zap.String("kind", string(leg.kind)),
			zap.Float64("trigger", leg.trigger),
			zap.String("order_id", res.ID),
		)
	}
}

// ErrorKind labels an order error for metrics.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, broker.ErrOrderRejected):
		return "rejected"
	case errors.Is(err, broker.ErrClientUnavailable):
		return "unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "other"
	}
}
