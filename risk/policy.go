package risk

import (
	"errors"
	"fmt"

	"github.com/rustyeddy/futuresbot/market"
)

// ErrRejected wraps every pre-trade check failure.
var ErrRejected = errors.New("order rejected by risk checks")

// Policy holds optional pre-trade limits. A zero value disables a limit.
type Policy struct {
	MaxNotional float64 // quote currency, qty*price
	MinRR       float64 // reward / risk of the bracket
}

func (p Policy) Validate() error {
	if p.MaxNotional < 0 {
		return fmt.Errorf("max notional must be >= 0, got %v", p.MaxNotional)
	}
	if p.MinRR < 0 {
		return fmt.Errorf("min rr must be >= 0, got %v", p.MinRR)
	}
	return nil
}

// Intent is a fully priced and sized order about to be placed.
type Intent struct {
	Symbol   string
	Side     market.Side
	Quantity float64
	Price    float64
	Bracket  Bracket
}

func (i Intent) Notional() float64 { return i.Quantity * i.Price }
