package risk

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrBelowMinimum is returned by Size when clamping is disabled and the
// requested quote amount buys less than the minimum tradable quantity.
var ErrBelowMinimum = errors.New("order quantity below instrument minimum")

type SizeInputs struct {
	AmountQuote float64 // order size in quote currency, e.g. USD
	Price       float64 // current price, quote per base
	MinQuantity float64 // smallest tradable base quantity
	Precision   int32   // decimals allowed on the base quantity
	Clamp       bool    // raise undersized orders to MinQuantity instead of failing
}

type SizeResult struct {
	Quantity float64 // base quantity to trade
	Raw      float64 // AmountQuote / Price before rounding and clamping
	Clamped  bool    // Quantity was raised to MinQuantity
}

// Size converts a quote-currency amount into a base quantity.
//
// A clamped order carries more exposure than AmountQuote asked for; callers
// should surface SizeResult.Clamped to the operator.
func Size(in SizeInputs) (SizeResult, error) {
	if in.Price <= 0 {
		return SizeResult{}, fmt.Errorf("size: price must be positive, got %v", in.Price)
	}
	if in.AmountQuote <= 0 {
		return SizeResult{}, fmt.Errorf("size: amount must be positive, got %v", in.AmountQuote)
	}

	raw := decimal.NewFromFloat(in.AmountQuote).Div(decimal.NewFromFloat(in.Price))
	qty := raw.Truncate(in.Precision)
	res := SizeResult{Raw: raw.InexactFloat64()}

	minQty := decimal.NewFromFloat(in.MinQuantity)
	if in.MinQuantity > 0 && qty.LessThan(minQty) {
		if !in.Clamp {
			return res, fmt.Errorf("%w: %s < %s", ErrBelowMinimum, raw.String(), minQty.String())
		}
		qty = minQty
		res.Clamped = true
	}
	if qty.IsZero() {
		return res, fmt.Errorf("%w: %s rounds to zero at %d decimals", ErrBelowMinimum, raw.String(), in.Precision)
	}

	res.Quantity = qty.InexactFloat64()
	return res, nil
}
