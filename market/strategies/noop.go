package strategies

import "github.com/rustyeddy/futuresbot/market/indicators"

func init() {
	Register("watch", func(Params) Evaluator { return Noop{} })
}

// Noop never trades. It lets the bot run and log indicators without orders.
type Noop struct{}

func (Noop) Name() string { return "watch" }

func (Noop) Evaluate(s indicators.Snapshot) Decision {
	return ThresholdDecision{signal: Hold, reason: "watch only", Snapshot: s}
}
