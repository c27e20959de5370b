// market/indicators/ema.go
package indicators

import (
	"fmt"

	"github.com/rustyeddy/futuresbot/market"
)

// EMAStream computes an Exponential Moving Average one close at a time.
//
// The first close seeds the average and there is no bias adjustment, so
// values are defined (if noisy) before the period has been seen.
type EMAStream struct {
	n     int
	alpha float64

	seen  int
	value float64
	ready bool

	name string
}

func NewEMA(period int) *EMAStream {
	if period <= 0 {
		panic("EMA period must be > 0")
	}
	return &EMAStream{
		n:     period,
		alpha: 2.0 / float64(period+1),
		name:  fmt.Sprintf("EMA(%d)", period),
	}
}

func (e *EMAStream) Name() string     { return e.name }
func (e *EMAStream) Warmup() int      { return e.n }
func (e *EMAStream) Ready() bool      { return e.ready }
func (e *EMAStream) Float64() float64 { return e.value }

func (e *EMAStream) Reset() {
	e.seen = 0
	e.value = 0
	e.ready = false
}

func (e *EMAStream) Update(x float64) {
	e.seen++
	if e.seen == 1 {
		e.value = x
	} else {
		e.value = e.alpha*x + (1.0-e.alpha)*e.value
	}

	if e.seen >= e.n {
		e.ready = true
	}
}

// EMA returns the EMA of candle closes at the last candle.
func EMA(candles []market.Candle, period int) (float64, error) {
	series, err := EMASeries(candles, period)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}

// EMASeries returns the EMA of candle closes at every index.
func EMASeries(candles []market.Candle, period int) ([]float64, error) {
	if err := checkPeriod(candles, period); err != nil {
		return nil, err
	}
	e := NewEMA(period)
	out := make([]float64, len(candles))
	for i, c := range candles {
		e.Update(c.Close)
		out[i] = e.Float64()
	}
	return out, nil
}

func checkPeriod(candles []market.Candle, period int) error {
	if period <= 0 {
		return fmt.Errorf("%w: period must be positive, got %d", ErrInvalidInput, period)
	}
	if len(candles) == 0 {
		return fmt.Errorf("%w: no candles", ErrInvalidInput)
	}
	return nil
}
