package strategies

import (
	"github.com/rustyeddy/futuresbot/market/indicators"
)

func init() {
	Register("band", func(p Params) Evaluator {
		return &Threshold{SellMargin: p.SellMargin, BuyMargin: p.BuyMargin}
	})
	Register("strict", func(p Params) Evaluator {
		return &Threshold{
			SellMargin: p.SellMargin,
			BuyMargin:  p.BuyMargin,
			Strict:     true,
			SellSpread: p.SellSpread,
			BuySpread:  p.BuySpread,
		}
	})
}

// Threshold fires when an average sits inside a narrow band just above the
// slow EMA.
//
//	SELL: slow <= vwap <= slow*(1+SellMargin)
//	BUY:  slow <= fast <= slow*(1+BuyMargin)
//
// SELL is checked first; BUY is only considered when SELL did not fire.
//
// With Strict set, both rules also require the three averages to be stacked
// and the outer pair to be within a spread:
//
//	SELL: additionally slow >= fast and slow <= fast*(1+SellSpread)
//	BUY:  additionally slow >= vwap and slow <= vwap*(1+BuySpread)
type Threshold struct {
	SellMargin float64
	BuyMargin  float64

	Strict     bool
	SellSpread float64
	BuySpread  float64
}

func (t *Threshold) Name() string {
	if t.Strict {
		return "strict"
	}
	return "band"
}

func (t *Threshold) Evaluate(s indicators.Snapshot) Decision {
	if t.sell(s) {
		return ThresholdDecision{signal: Sell, reason: "vwap inside sell band above slow EMA", Snapshot: s}
	}
	if t.buy(s) {
		return ThresholdDecision{signal: Buy, reason: "fast EMA inside buy band above slow EMA", Snapshot: s}
	}
	return ThresholdDecision{signal: Hold, reason: "no band hit", Snapshot: s}
}

func (t *Threshold) sell(s indicators.Snapshot) bool {
	if !(s.VWAP >= s.EMASlow && s.VWAP <= s.EMASlow*(1+t.SellMargin)) {
		return false
	}
	if t.Strict {
		return s.EMASlow >= s.EMAFast && s.EMASlow <= s.EMAFast*(1+t.SellSpread)
	}
	return true
}

func (t *Threshold) buy(s indicators.Snapshot) bool {
	if !(s.EMAFast >= s.EMASlow && s.EMAFast <= s.EMASlow*(1+t.BuyMargin)) {
		return false
	}
	if t.Strict {
		return s.EMASlow >= s.VWAP && s.EMASlow <= s.VWAP*(1+t.BuySpread)
	}
	return true
}

type ThresholdDecision struct {
	signal Signal
	reason string

	indicators.Snapshot
}

func (d ThresholdDecision) Signal() Signal { return d.signal }
func (d ThresholdDecision) Reason() string { return d.reason }
