// Package indicators computes the VWAP and EMA values the strategy reads.
package indicators

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/futuresbot/market"
)

// ErrInvalidInput is returned for empty windows, bad periods, unordered
// candles and windows with no volume.
var ErrInvalidInput = errors.New("invalid indicator input")

// Snapshot holds the indicator values at the latest candle.
type Snapshot struct {
	Time    time.Time
	Close   float64
	VWAP    float64
	EMAFast float64
	EMASlow float64
}

func (s Snapshot) String() string {
	return fmt.Sprintf("close=%.5f vwap=%.5f ema_fast=%.5f ema_slow=%.5f",
		s.Close, s.VWAP, s.EMAFast, s.EMASlow)
}

// Compute derives the Snapshot for the last candle from the whole window.
func Compute(candles []market.Candle, fastPeriod, slowPeriod int) (Snapshot, error) {
	if err := market.ValidateCandles(candles); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	vwap, err := VWAP(candles)
	if err != nil {
		return Snapshot{}, err
	}
	fast, err := EMA(candles, fastPeriod)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fast %w", err)
	}
	slow, err := EMA(candles, slowPeriod)
	if err != nil {
		return Snapshot{}, fmt.Errorf("slow %w", err)
	}

	last, _ := market.Last(candles)
	return Snapshot{
		Time:    last.Time,
		Close:   last.Close,
		VWAP:    vwap,
		EMAFast: fast,
		EMASlow: slow,
	}, nil
}
