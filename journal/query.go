package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const tradeColumns = `trade_id, time, symbol, side, quantity, price, status, pnl, cum_pnl,
	order_id, take_profit, stop_loss, limit_price, reason`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var rec TradeRecord
	err := s.Scan(
		&rec.TradeID,
		&rec.Time,
		&rec.Symbol,
		&rec.Side,
		&rec.Quantity,
		&rec.Price,
		&rec.Status,
		&rec.PnL,
		&rec.CumulativePnL,
		&rec.OrderID,
		&rec.TakeProfit,
		&rec.StopLoss,
		&rec.LimitPrice,
		&rec.Reason,
	)
	return rec, err
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	row := j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE trade_id = ?`, tradeID)
	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q not found", tradeID)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTrades returns every trade in time order.
func (j *SQLite) ListTrades() ([]TradeRecord, error) {
	return j.listTrades(`SELECT ` + tradeColumns + ` FROM trades ORDER BY time ASC, trade_id ASC`)
}

// ListTradesBetween returns trades whose time is within [start, end).
func (j *SQLite) ListTradesBetween(start, end time.Time) ([]TradeRecord, error) {
	return j.listTrades(`SELECT `+tradeColumns+` FROM trades
		WHERE time >= ? AND time < ?
		ORDER BY time ASC, trade_id ASC`, start.UTC(), end.UTC())
}

func (j *SQLite) listTrades(query string, args ...any) ([]TradeRecord, error) {
	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetRun returns the summary row stored for runID.
func (j *SQLite) GetRun(runID string) (RunSummary, error) {
	var r RunSummary
	err := j.db.QueryRow(`
		SELECT run_id, mode, symbol, strategy, started, stopped, trades, wins, losses, net_pnl, stop_reason
		FROM runs WHERE run_id = ?`, runID).Scan(
		&r.RunID, &r.Mode, &r.Symbol, &r.Strategy, &r.Started, &r.Stopped,
		&r.Trades, &r.Wins, &r.Losses, &r.NetPnL, &r.StopReason,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunSummary{}, fmt.Errorf("run %q not found", runID)
		}
		return RunSummary{}, err
	}
	return r, nil
}
