// journal/journal.go
package journal

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrPersist wraps every failure to write a trade to a sink.
var ErrPersist = errors.New("journal: persist failed")

// TradeRecord is the persisted form of a ledger trade.
type TradeRecord struct {
	TradeID       string    `json:"trade_id"`
	Time          time.Time `json:"time"`
	Symbol        string    `json:"symbol"`
	Side          string    `json:"side"`
	Quantity      float64   `json:"quantity"`
	Price         float64   `json:"price"`
	Status        string    `json:"status"`
	PnL           float64   `json:"pnl"`
	CumulativePnL float64   `json:"cum_pnl"`
	OrderID       string    `json:"order_id,omitempty"`
	TakeProfit    float64   `json:"take_profit"`
	StopLoss      float64   `json:"stop_loss"`
	LimitPrice    float64   `json:"limit_price"`
	Reason        string    `json:"reason,omitempty"`
}

type Journal interface {
	RecordTrade(TradeRecord) error
	Close() error
}

// RunRecorder is implemented by journals that also keep one summary row
// per bot run.
type RunRecorder interface {
	RecordRun(RunSummary) error
}

// Options selects and configures the sinks built by Open. Type is one of
// csv, sqlite, kafka or none, or a comma separated list of them.
type Options struct {
	Type         string
	TradesFile   string
	DBPath       string
	KafkaBrokers []string
	KafkaTopic   string
}

func Open(o Options) (Journal, error) {
	var sinks []Journal
	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}

	for _, typ := range strings.Split(o.Type, ",") {
		var (
			j   Journal
			err error
		)
		switch strings.ToLower(strings.TrimSpace(typ)) {
		case "", "none":
			continue
		case "csv":
			j, err = NewCSV(o.TradesFile)
		case "sqlite":
			j, err = NewSQLite(o.DBPath)
		case "kafka":
			j, err = NewKafka(o.KafkaBrokers, o.KafkaTopic)
		default:
			err = fmt.Errorf("unknown journal type %q", typ)
		}
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, j)
	}

	switch len(sinks) {
	case 0:
		return Nop{}, nil
	case 1:
		return sinks[0], nil
	}
	return NewMulti(sinks...), nil
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error { return nil }
func (Nop) Close() error                  { return nil }

// Multi fans every record out to all of its journals. A failing journal
// does not stop the others from being written.
type Multi struct {
	journals []Journal
}

func NewMulti(js ...Journal) *Multi {
	return &Multi{journals: js}
}

func (m *Multi) RecordTrade(t TradeRecord) error {
	var errs []error
	for _, j := range m.journals {
		if err := j.RecordTrade(t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) RecordRun(r RunSummary) error {
	var errs []error
	for _, j := range m.journals {
		if rr, ok := j.(RunRecorder); ok {
			if err := rr.RecordRun(r); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, j := range m.journals {
		if err := j.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersist, op, err)
}
