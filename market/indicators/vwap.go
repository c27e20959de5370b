package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/futuresbot/market"
)

// VWAP is the cumulative volume weighted average close over the whole
// window. It is not reset or rolled; the value at the last candle is
// sum(close*volume) / sum(volume) across every candle supplied.
func VWAP(candles []market.Candle) (float64, error) {
	series, err := VWAPSeries(candles)
	if err != nil {
		return 0, err
	}
	v := series[len(series)-1]
	if math.IsNaN(v) {
		return 0, fmt.Errorf("%w: cumulative volume is zero", ErrInvalidInput)
	}
	return v, nil
}

// VWAPSeries returns the running VWAP at every index. Indexes where the
// running volume is still zero are NaN.
func VWAPSeries(candles []market.Candle) ([]float64, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("%w: no candles", ErrInvalidInput)
	}

	out := make([]float64, len(candles))
	var pv, vol float64
	for i, c := range candles {
		pv += c.Close * c.Volume
		vol += c.Volume
		if vol == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = pv / vol
	}
	return out, nil
}
