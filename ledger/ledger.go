// Package ledger keeps the in-memory record of trades for one run and
// computes realized PnL by pairing each trade with the one before it.
package ledger

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/futuresbot/journal"
	"github.com/rustyeddy/futuresbot/market"
	"github.com/rustyeddy/futuresbot/pkg/id"
)

type Status string

const (
	StatusExecuted  Status = "executed"
	StatusSimulated Status = "simulated"
)

type Trade struct {
	ID         string
	Time       time.Time
	Symbol     string
	Side       market.Side
	Quantity   float64
	Price      float64
	Status     Status
	PnL        float64
	OrderID    string
	TakeProfit float64
	StopLoss   float64
	LimitPrice float64
	Reason     string
}

// Sink receives every recorded trade. journal.Journal satisfies it.
type Sink interface {
	RecordTrade(journal.TradeRecord) error
}

// Ledger is owned by a single control loop and is not safe for concurrent
// use.
type Ledger struct {
	trades     []Trade
	cumulative float64
	sink       Sink
	log        *zap.Logger

	persistFailures int
}

// New returns an empty ledger. sink and log may be nil.
func New(sink Sink, log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Ledger{sink: sink, log: log}
}

// Record computes the PnL of t against the previous trade, appends it and
// persists it. A missing ID is generated and a missing Time is taken from
// the ID. Persist failures are logged and never undo the in-memory
// update. The stored trade is returned.
func (l *Ledger) Record(t Trade) Trade {
	if t.ID == "" {
		t.ID = id.New()
	}
	if t.Time.IsZero() {
		// ULID trade ids carry their creation time.
		if ts, err := id.Time(t.ID); err == nil {
			t.Time = ts
		} else {
			t.Time = time.Now().UTC()
		}
	}

	var prev *Trade
	if n := len(l.trades); n > 0 {
		prev = &l.trades[n-1]
	}
	t.PnL = PairPnL(prev, t)
	l.cumulative += t.PnL
	l.trades = append(l.trades, t)

	l.log.Info("trade recorded",
		zap.String("id", t.ID),
		zap.String("symbol", t.Symbol),
		zap.Stringer("side", t.Side),
		zap.Float64("qty", t.Quantity),
		zap.Float64("price", t.Price),
		zap.String("status", string(t.Status)),
		zap.Float64("pnl", t.PnL),
		zap.Float64("cum_pnl", l.cumulative),
	)

	if l.sink != nil {
		if err := l.sink.RecordTrade(ToRecord(t, l.cumulative)); err != nil {
			l.persistFailures++
			l.log.Error("persist failure",
				zap.String("id", t.ID),
				zap.Error(err),
			)
		}
	}

	return t
}

// PairPnL is the realized PnL of t when prev exists and is on the opposite
// side, using t's quantity. Otherwise it is zero.
func PairPnL(prev *Trade, t Trade) float64 {
	if prev == nil || prev.Side != t.Side.Opposite() {
		return 0
	}
	switch t.Side {
	case market.Sell:
		return (t.Price - prev.Price) * t.Quantity
	case market.Buy:
		return (prev.Price - t.Price) * t.Quantity
	}
	return 0
}

// Replay recomputes cumulative PnL from scratch.
func Replay(trades []Trade) float64 {
	total := 0.0
	for i := range trades {
		var prev *Trade
		if i > 0 {
			prev = &trades[i-1]
		}
		total += PairPnL(prev, trades[i])
	}
	return total
}

func (l *Ledger) CumulativePnL() float64 { return l.cumulative }

func (l *Ledger) Len() int { return len(l.trades) }

// PersistFailures counts sink errors seen by Record.
func (l *Ledger) PersistFailures() int { return l.persistFailures }

// Trades returns a copy of the recorded trades in order.
func (l *Ledger) Trades() []Trade {
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

func (l *Ledger) LastTrade() (Trade, bool) {
	if len(l.trades) == 0 {
		return Trade{}, false
	}
	return l.trades[len(l.trades)-1], true
}

// Blocks reports whether a trade on side would repeat the direction of the
// last trade.
func (l *Ledger) Blocks(side market.Side) bool {
	last, ok := l.LastTrade()
	return ok && last.Side == side
}

// Consistent reports whether the incremental total matches a full replay.
func (l *Ledger) Consistent() bool {
	return math.Abs(Replay(l.trades)-l.cumulative) <= 1e-9*math.Max(1, math.Abs(l.cumulative))
}

// Records converts the trades to journal rows with running totals.
func (l *Ledger) Records() []journal.TradeRecord {
	out := make([]journal.TradeRecord, 0, len(l.trades))
	cum := 0.0
	for _, t := range l.trades {
		cum += t.PnL
		out = append(out, ToRecord(t, cum))
	}
	return out
}

func ToRecord(t Trade, cumulative float64) journal.TradeRecord {
	return journal.TradeRecord{
		TradeID:       t.ID,
		Time:          t.Time,
		Symbol:        t.Symbol,
		Side:          t.Side.String(),
		Quantity:      t.Quantity,
		Price:         t.Price,
		Status:        string(t.Status),
		PnL:           t.PnL,
		CumulativePnL: cumulative,
		OrderID:       t.OrderID,
		TakeProfit:    t.TakeProfit,
		StopLoss:      t.StopLoss,
		LimitPrice:    t.LimitPrice,
		Reason:        t.Reason,
	}
}
