package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/rustyeddy/futuresbot/journal"
	"github.com/rustyeddy/futuresbot/market"
	"github.com/rustyeddy/futuresbot/pkg/id"
)

var t0 = time.Date(2024, 11, 4, 10, 0, 0, 0, time.UTC)

func trade(side market.Side, price, qty float64, minute int) Trade {
	return Trade{
		Time:     t0.Add(time.Duration(minute) * time.Minute),
		Symbol:   "PF_XBTUSD",
		Side:     side,
		Quantity: qty,
		Price:    price,
		Status:   StatusSimulated,
	}
}

type memSink struct {
	recs []journal.TradeRecord
	err  error
}

func (m *memSink) RecordTrade(r journal.TradeRecord) error {
	if m.err != nil {
		return m.err
	}
	m.recs = append(m.recs, r)
	return nil
}

func TestPnLPairing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		trades []Trade
		want   []float64
	}{
		{
			name:   "buy then sell",
			trades: []Trade{trade(market.Buy, 100, 1, 0), trade(market.Sell, 110, 2, 1)},
			want:   []float64{0, 20},
		},
		{
			name:   "sell then buy",
			trades: []Trade{trade(market.Sell, 110, 1, 0), trade(market.Buy, 95, 1, 1)},
			want:   []float64{0, 15},
		},
		{
			name:   "sell 100 then buy 95 for 3",
			trades: []Trade{trade(market.Sell, 100, 1, 0), trade(market.Buy, 95, 3, 1)},
			want:   []float64{0, 15},
		},
		{
			name:   "losing round trip",
			trades: []Trade{trade(market.Buy, 100, 1, 0), trade(market.Sell, 90, 1, 1)},
			want:   []float64{0, -10},
		},
		{
			name:   "same direction",
			trades: []Trade{trade(market.Buy, 100, 1, 0), trade(market.Buy, 120, 1, 1)},
			want:   []float64{0, 0},
		},
		{
			name: "pairs with immediate predecessor only",
			trades: []Trade{
				trade(market.Buy, 100, 1, 0),
				trade(market.Sell, 110, 1, 1),
				trade(market.Buy, 105, 1, 2),
			},
			want: []float64{0, 10, 5},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := New(nil, nil)
			cum := 0.0
			for i, tr := range tt.trades {
				got := l.Record(tr)
				assert.InDelta(t, tt.want[i], got.PnL, 1e-9)
				cum += tt.want[i]
				assert.InDelta(t, cum, l.CumulativePnL(), 1e-9)
			}
		})
	}
}

func TestReplayMatchesIncremental(t *testing.T) {
	t.Parallel()

	l := New(nil, nil)
	prices := []float64{100, 103.5, 101.25, 99, 104.75, 104.75, 98.5, 102}
	sides := []market.Side{market.Buy, market.Sell, market.Buy, market.Buy, market.Sell, market.Buy, market.Sell, market.Buy}

	for i := range prices {
		l.Record(trade(sides[i], prices[i], float64(i%3)+0.5, i))
		assert.InDelta(t, Replay(l.Trades()), l.CumulativePnL(), 1e-9, "step %d", i)
		assert.True(t, l.Consistent())
	}
	assert.Equal(t, len(prices), l.Len())
}

func TestReplayEmpty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, Replay(nil))
}

func TestRecordFillsDefaults(t *testing.T) {
	t.Parallel()

	l := New(nil, nil)
	got := l.Record(Trade{Side: market.Buy, Price: 1, Quantity: 1})
	assert.NotEmpty(t, got.ID)
	assert.False(t, got.Time.IsZero())

	last, ok := l.LastTrade()
	require.True(t, ok)
	assert.Equal(t, got, last)
}

func TestRecordTakesTimeFromID(t *testing.T) {
	t.Parallel()

	l := New(nil, nil)
	got := l.Record(Trade{ID: id.At(t0), Side: market.Buy, Price: 1, Quantity: 1})
	assert.Equal(t, t0, got.Time)

	got = l.Record(Trade{ID: "manual-1", Side: market.Sell, Price: 1, Quantity: 1})
	assert.False(t, got.Time.IsZero())
}

func TestTradesIsACopy(t *testing.T) {
	t.Parallel()

	l := New(nil, nil)
	l.Record(trade(market.Buy, 100, 1, 0))

	ts := l.Trades()
	ts[0].Price = 1
	last, _ := l.LastTrade()
	assert.Equal(t, 100.0, last.Price)
}

func TestBlocks(t *testing.T) {
	t.Parallel()

	l := New(nil, nil)
	_, ok := l.LastTrade()
	assert.False(t, ok)
	assert.False(t, l.Blocks(market.Buy))
	assert.False(t, l.Blocks(market.Sell))

	l.Record(trade(market.Sell, 100, 1, 0))
	assert.True(t, l.Blocks(market.Sell))
	assert.False(t, l.Blocks(market.Buy))
}

func TestPersist(t *testing.T) {
	t.Parallel()

	sink := &memSink{}
	l := New(sink, nil)
	l.Record(trade(market.Buy, 100, 1, 0))
	l.Record(trade(market.Sell, 110, 2, 1))

	require.Len(t, sink.recs, 2)
	assert.Equal(t, "BUY", sink.recs[0].Side)
	assert.Equal(t, "simulated", sink.recs[1].Status)
	assert.InDelta(t, 20.0, sink.recs[1].PnL, 1e-9)
	assert.InDelta(t, 20.0, sink.recs[1].CumulativePnL, 1e-9)

	assert.Equal(t, sink.recs, l.Records())
}

func TestPersistFailureKeepsMemory(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	sink := &memSink{err: errors.New("disk full")}
	l := New(sink, zap.New(core))

	l.Record(trade(market.Buy, 100, 1, 0))
	l.Record(trade(market.Sell, 110, 2, 1))

	assert.Equal(t, 2, l.Len())
	assert.InDelta(t, 20.0, l.CumulativePnL(), 1e-9)
	assert.Equal(t, 2, l.PersistFailures())

	failures := logs.FilterMessage("persist failure").All()
	require.Len(t, failures, 2)
	assert.Equal(t, zapcore.ErrorLevel, failures[0].Level)
	assert.Equal(t, 2, logs.FilterMessage("trade recorded").Len())
}
