// Package csvfeed replays candles from a CSV file as if they were arriving
// live. It backs paper runs and offline tests.
package csvfeed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rustyeddy/futuresbot/broker"
	"github.com/rustyeddy/futuresbot/market"
)

// Feed reads rows of
//
//	time,open,high,low,close,volume
//
// where time is RFC3339, RFC3339Nano or unix seconds. A header row is
// allowed and empty or short rows are skipped.
//
// The first Candles call reveals the first limit bars. Each later call
// reveals one more bar and returns the last limit bars seen. Once every
// bar has been revealed, Candles returns an empty slice.
type Feed struct {
	mu      sync.Mutex
	candles []market.Candle
	cursor  int
	symbol  string
}

// Open loads path fully. symbol, when set, restricts which symbol the feed
// answers for.
func Open(path, symbol string) (*Feed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, symbol)
}

func Read(r io.Reader, symbol string) (*Feed, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var out []market.Candle
	first := true
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 {
			continue
		}
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		c, ok, err := parseRow(row)
		if err != nil {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if ok {
			out = append(out, c)
		}
	}

	if err := market.ValidateCandles(out); err != nil {
		return nil, err
	}
	return &Feed{candles: out, symbol: symbol}, nil
}

// Len is the number of bars in the file.
func (f *Feed) Len() int { return len(f.candles) }

// Remaining is the number of bars not yet revealed.
func (f *Feed) Remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.candles) - f.cursor
}

func (f *Feed) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", broker.ErrDataUnavailable, err)
	}
	if f.symbol != "" && symbol != f.symbol {
		return nil, fmt.Errorf("%w: feed has no data for %s", broker.ErrDataUnavailable, symbol)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cursor >= len(f.candles) {
		return nil, nil
	}
	if f.cursor == 0 {
		f.cursor = min(limit, len(f.candles))
	} else {
		f.cursor++
	}

	start := max(0, f.cursor-limit)
	out := make([]market.Candle, f.cursor-start)
	copy(out, f.candles[start:f.cursor])
	return out, nil
}

func parseRow(row []string) (market.Candle, bool, error) {
	if len(row) < 6 {
		return market.Candle{}, false, nil
	}

	ts := strings.TrimSpace(row[0])
	if ts == "" {
		return market.Candle{}, false, nil
	}
	t, err := parseTime(ts)
	if err != nil {
		return market.Candle{}, false, err
	}

	var vals [5]float64
	names := [5]string{"open", "high", "low", "close", "volume"}
	for i := range vals {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return market.Candle{}, false, fmt.Errorf("bad %s %q: %w", names[i], row[i+1], err)
		}
		vals[i] = v
	}

	return market.Candle{
		Time:   t,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, true, nil
}

func parseTime(ts string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, ts); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
		return t.UTC(), nil
	}
	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad time %q", ts)
	}
	return time.Unix(sec, 0).UTC(), nil
}

var _ broker.MarketData = (*Feed)(nil)
