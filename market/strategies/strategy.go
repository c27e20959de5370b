package strategies

import (
	"fmt"
	"sort"

	"github.com/rustyeddy/futuresbot/market"
	"github.com/rustyeddy/futuresbot/market/indicators"
)

// Evaluator classifies the latest indicator snapshot. Implementations are
// pure: the same snapshot always yields the same decision.
type Evaluator interface {
	Name() string
	Evaluate(s indicators.Snapshot) Decision
}

type Signal int

const (
	Hold Signal = iota
	Buy
	Sell
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "HOLD"
	}
}

// Side maps a trading signal to an order side. Hold maps to market.NoSide.
func (s Signal) Side() market.Side {
	switch s {
	case Buy:
		return market.Buy
	case Sell:
		return market.Sell
	default:
		return market.NoSide
	}
}

type Decision interface {
	Signal() Signal
	Reason() string
}

// Params carries everything an Evaluator constructor may need.
type Params struct {
	SellMargin float64
	BuyMargin  float64
	SellSpread float64
	BuySpread  float64
}

type Factory func(Params) Evaluator

var registry = map[string]Factory{}

func Register(name string, f Factory) {
	registry[name] = f
}

// New builds the evaluator registered under name.
func New(name string, p Params) (Evaluator, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy mode %q (have %v)", name, Names())
	}
	return f(p), nil
}

// Names lists registered evaluator names in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
