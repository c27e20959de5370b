package journal

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	result := FormatTradeOrg(sampleTrades()[2])

	assert.True(t, strings.HasPrefix(result, "** Trade: PF_XBTUSD BUY executed (0000BUY2)\n"))
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":TRADE_ID: 01JBXA0000000000000000BUY2")
	assert.Contains(t, result, ":TIME: 2024-11-04T10:02:00Z")
	assert.Contains(t, result, ":QUANTITY: 1\n")
	assert.Contains(t, result, ":PRICE: 105.00000")
	assert.Contains(t, result, ":TAKE_PROFIT: 106.05000")
	assert.Contains(t, result, ":STOP_LOSS: 103.95000")
	assert.Contains(t, result, ":ORDER_ID: ord-3")
	assert.Contains(t, result, ":PNL: 5.00")
	assert.True(t, strings.HasSuffix(result, ":END:\n"))
	assert.NotContains(t, result, ":REASON:")
}

func TestFormatTradesOrgEmpty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "", FormatTradesOrg(nil))
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	result := FormatTradesOrg(sampleTrades())
	assert.Equal(t, 3, strings.Count(result, "** Trade:"))
	assert.Equal(t, 3, strings.Count(result, ":END:"))
}

func TestFormatPnLOrg(t *testing.T) {
	t.Parallel()

	want := "| # | time | side | qty | price | pnl | cum_pnl |\n" +
		"|---+------+------+-----+-------+-----+---------|\n" +
		"| 1 | 2024-11-04 10:00 | BUY | 1 | 100.00000 | 0.00 | 0.00 |\n" +
		"| 2 | 2024-11-04 10:01 | SELL | 2 | 110.00000 | 20.00 | 20.00 |\n" +
		"| 3 | 2024-11-04 10:02 | BUY | 1 | 105.00000 | 5.00 | 25.00 |\n"
	assert.Equal(t, want, FormatPnLOrg(sampleTrades()))
}

func TestShortID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"abc", "abc"},
		{"12345678", "12345678"},
		{"0123456789", "23456789"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shortID(tt.in), tt.in)
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	trades := sampleTrades()
	trades = append(trades, TradeRecord{Side: "SELL", PnL: -3})

	r := Summarize(RunSummary{RunID: "R", Wins: 99}, trades)
	assert.Equal(t, "R", r.RunID)
	assert.Equal(t, 4, r.Trades)
	assert.Equal(t, 2, r.Wins)
	assert.Equal(t, 1, r.Losses)
	assert.InDelta(t, 22.0, r.NetPnL, 1e-9)
}

func TestReport(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 11, 4, 10, 0, 0, 0, time.UTC)
	run := RunSummary{
		RunID:      "RUN1",
		Mode:       "simulate",
		Symbol:     "PF_XBTUSD",
		Strategy:   "band",
		Started:    start,
		Stopped:    start.Add(3 * time.Minute),
		StopReason: "max-trades",
	}

	var buf bytes.Buffer
	require.NoError(t, Report(&buf, run, sampleTrades()))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "* RUN: band PF_XBTUSD (simulate)\n"))
	assert.Contains(t, out, ":RUN_ID:      RUN1")
	assert.Contains(t, out, ":STARTED:     [2024-11-04 Mon 10:00]")
	assert.Contains(t, out, ":STOP_REASON: max-trades")
	assert.Contains(t, out, ":TRADES:      3")
	assert.Contains(t, out, ":WINS:        2")
	assert.Contains(t, out, ":NET_PNL:     25.00")
	assert.Contains(t, out, "** Cumulative PnL\n| # |")
	assert.Contains(t, out, "| 3 | 2024-11-04 10:02 | BUY | 1 | 105.00000 | 5.00 | 25.00 |")
	assert.Contains(t, out, "** Trade: PF_XBTUSD SELL simulated")
}

func TestReportNoTrades(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "report.org")
	require.NoError(t, WriteReport(path, RunSummary{Symbol: "PF_XBTUSD"}, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, ":RUN_ID:      (run-id?)")
	assert.Contains(t, out, ":TRADES:      0")
	assert.Contains(t, out, "** Trades\n- none\n")
}
