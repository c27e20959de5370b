package market

import (
	"fmt"
	"time"
)

// Candle represents one OHLCV bar.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// ValidateCandles checks that candles are in strictly increasing time order
// and that no volume is negative.
// Zero timestamps are allowed so that close-only fixtures can be fed in
// without inventing times.
func ValidateCandles(candles []Candle) error {
	var prev time.Time
	for i, c := range candles {
		if c.Volume < 0 {
			return fmt.Errorf("candle %d has negative volume %v", i, c.Volume)
		}
		if c.Time.IsZero() {
			continue
		}
		if !prev.IsZero() && !c.Time.After(prev) {
			if c.Time.Equal(prev) {
				return fmt.Errorf("duplicate timestamp at index %d: %s", i, c.Time.Format(time.RFC3339))
			}
			return fmt.Errorf("candle %d out of order: %s before %s",
				i, c.Time.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
		prev = c.Time
	}
	return nil
}

// Closes extracts the close prices.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Last returns the final candle and false if there are none.
func Last(candles []Candle) (Candle, bool) {
	if len(candles) == 0 {
		return Candle{}, false
	}
	return candles[len(candles)-1], true
}
