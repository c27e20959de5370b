package risk

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/futuresbot/market"
)

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	Notional float64
	RR       float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
}

// Err returns nil for an allowed decision, otherwise an ErrRejected
// listing every violation code.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	msgs := make([]string, 0, len(d.Violations))
	for _, v := range d.Violations {
		msgs = append(msgs, v.Code+": "+v.Msg)
	}
	return fmt.Errorf("%w: %s", ErrRejected, strings.Join(msgs, "; "))
}

// Check runs the pre-trade checks for intent under p.
func Check(p Policy, intent Intent) Decision {
	d := Decision{Allowed: true}

	// Basic sanity
	if intent.Price <= 0 {
		d.add("NO_PRICE", "entry price must be positive")
		return d
	}
	if intent.Quantity <= 0 {
		d.add("NO_QUANTITY", "quantity must be positive")
		return d
	}

	d.Notional = intent.Notional()
	d.RR = RR(intent.Price, intent.Bracket)

	b := intent.Bracket
	var inverted bool
	switch intent.Side {
	case market.Buy:
		inverted = b.TakeProfit < intent.Price || b.StopLoss > intent.Price
	case market.Sell:
		inverted = b.TakeProfit > intent.Price || b.StopLoss < intent.Price
	default:
		d.add("NO_SIDE", "side must be BUY or SELL")
		return d
	}
	if inverted {
		d.add("BRACKET_INVERTED",
			fmt.Sprintf("tp %v / sl %v on the wrong side of %v for %s",
				b.TakeProfit, b.StopLoss, intent.Price, intent.Side))
	}

	if p.MaxNotional > 0 && d.Notional > p.MaxNotional {
		d.add("NOTIONAL_TOO_HIGH",
			fmt.Sprintf("notional %.2f exceeds max %.2f", d.Notional, p.MaxNotional))
	}
	if p.MinRR > 0 && d.RR < p.MinRR {
		d.add("RR_TOO_LOW",
			fmt.Sprintf("RR %.2f below minimum %.2f", d.RR, p.MinRR))
	}

	return d
}
