// journal/csv.go
package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

var csvHeader = []string{
	"trade_id", "time", "symbol", "side", "quantity", "price", "status",
	"pnl", "cum_pnl", "order_id", "take_profit", "stop_loss", "limit_price", "reason",
}

// CSVJournal appends trades to a file. The header is written only when the
// file is new or empty, so restarts keep adding to the same log.
type CSVJournal struct {
	trades *csv.Writer
	tf     *os.File
}

func NewCSV(tradesPath string) (*CSVJournal, error) {
	tf, err := os.OpenFile(tradesPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	st, err := tf.Stat()
	if err != nil {
		tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	if st.Size() == 0 {
		if err := tw.Write(csvHeader); err != nil {
			tf.Close()
			return nil, err
		}
		tw.Flush()
		if err := tw.Error(); err != nil {
			tf.Close()
			return nil, err
		}
	}

	return &CSVJournal{trades: tw, tf: tf}, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	err := j.trades.Write([]string{
		t.TradeID,
		t.Time.UTC().Format(time.RFC3339),
		t.Symbol,
		t.Side,
		f(t.Quantity),
		f(t.Price),
		t.Status,
		f(t.PnL),
		f(t.CumulativePnL),
		t.OrderID,
		f(t.TakeProfit),
		f(t.StopLoss),
		f(t.LimitPrice),
		t.Reason,
	})
	if err != nil {
		return persistErr("csv write", err)
	}
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return persistErr("csv flush", err)
	}
	return nil
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		j.tf.Close()
		return err
	}
	return j.tf.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
