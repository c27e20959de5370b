package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, time, symbol, side, quantity, price, status, pnl, cum_pnl,
		 order_id, take_profit, stop_loss, limit_price, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Time.UTC(), t.Symbol, t.Side, t.Quantity, t.Price, t.Status,
		t.PnL, t.CumulativePnL, t.OrderID, t.TakeProfit, t.StopLoss, t.LimitPrice, t.Reason,
	)
	if err != nil {
		return persistErr("sqlite insert trade", err)
	}
	return nil
}

func (j *SQLite) RecordRun(r RunSummary) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO runs
		(run_id, mode, symbol, strategy, started, stopped, trades, wins, losses, net_pnl, stop_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Mode, r.Symbol, r.Strategy, r.Started.UTC(), r.Stopped.UTC(),
		r.Trades, r.Wins, r.Losses, r.NetPnL, r.StopReason,
	)
	if err != nil {
		return persistErr("sqlite insert run", err)
	}
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
