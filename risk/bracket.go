package risk

import (
	"fmt"

	"github.com/rustyeddy/futuresbot/market"
	"github.com/shopspring/decimal"
)

type BracketInputs struct {
	Side          market.Side
	Price         float64
	TakeProfitPct float64 // 0.01 = 1%
	StopLossPct   float64
	LimitPct      float64 // limit offset in the direction of the trade
	Precision     int32   // price decimals
}

// Bracket holds the prices placed around an entry.
type Bracket struct {
	TakeProfit float64
	StopLoss   float64
	Limit      float64
}

// CalcBracket returns take-profit, stop-loss and limit prices for an entry.
//
//	BUY:  TP = p*(1+tp)  SL = p*(1-sl)  limit = p*(1+lim)
//	SELL: TP = p*(1-tp)  SL = p*(1+sl)  limit = p*(1-lim)
//
// The limit is offset so the order crosses the book and fills like a
// marketable limit.
func CalcBracket(in BracketInputs) (Bracket, error) {
	if in.Price <= 0 {
		return Bracket{}, fmt.Errorf("bracket: price must be positive, got %v", in.Price)
	}

	var dir float64
	switch in.Side {
	case market.Buy:
		dir = 1
	case market.Sell:
		dir = -1
	default:
		return Bracket{}, fmt.Errorf("bracket: no side")
	}

	p := decimal.NewFromFloat(in.Price)
	at := func(pct float64) float64 {
		f := decimal.NewFromFloat(1 + pct)
		return p.Mul(f).Round(in.Precision).InexactFloat64()
	}

	return Bracket{
		TakeProfit: at(dir * in.TakeProfitPct),
		StopLoss:   at(-dir * in.StopLossPct),
		Limit:      at(dir * in.LimitPct),
	}, nil
}

// RR is the reward to risk ratio of a bracket around entry.
func RR(entry float64, b Bracket) float64 {
	risk := abs(entry - b.StopLoss)
	reward := abs(b.TakeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
