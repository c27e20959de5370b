package broker

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/futuresbot/market"
	"go.uber.org/zap"
)

// RetryPolicy bounds every external call with a timeout and retries
// transient failures with exponential backoff.
type RetryPolicy struct {
	Attempts int           // total attempts, minimum 1
	Backoff  time.Duration // sleep before the second attempt, doubled each time
	Timeout  time.Duration // per attempt; 0 disables

	// Sleep is used between attempts. Defaults to a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs fn until it succeeds, returns a non-retryable error, or attempts
// run out. retryable decides which errors are transient.
func (p RetryPolicy) Do(ctx context.Context, log *zap.Logger, op string, retryable func(error) bool, fn func(ctx context.Context) error) error {
	if log == nil {
		log = zap.NewNop()
	}
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	backoff := p.Backoff
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			log.Warn("retrying", zap.String("op", op), zap.Int("attempt", i+1), zap.Duration("backoff", backoff), zap.Error(err))
			if serr := sleep(ctx, backoff); serr != nil {
				return err
			}
			backoff *= 2
		}

		err = p.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !retryable(err) {
			return err
		}
	}
	return err
}

func (p RetryPolicy) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if p.Timeout <= 0 {
		return fn(ctx)
	}
	cctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()
	return fn(cctx)
}

// SleepContext sleeps for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retrying wraps a MarketData and TradingClient with a RetryPolicy.
// Only ErrDataUnavailable and ErrClientUnavailable are retried; a rejected
// order is returned immediately. Orders are not retried after a timeout or
// an ErrOutcomeUnknown failure.
type Retrying struct {
	Data   MarketData
	Client TradingClient
	Policy RetryPolicy
	Log    *zap.Logger
}

func (r *Retrying) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	var out []market.Candle
	err := r.Policy.Do(ctx, r.Log, "candles", isTransient, func(ctx context.Context) error {
		var err error
		out, err = r.Data.Candles(ctx, symbol, timeframe, limit)
		return err
	})
	return out, err
}

func (r *Retrying) PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error) {
	var out OrderResult
	err := r.Policy.Do(ctx, r.Log, "place_order", isOrderRetryable, func(ctx context.Context) error {
		var err error
		out, err = r.Client.PlaceOrder(ctx, req)
		return err
	})
	return out, err
}

func isOrderRetryable(err error) bool {
	if errors.Is(err, ErrOutcomeUnknown) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrClientUnavailable)
}

func isTransient(err error) bool {
	return errors.Is(err, ErrDataUnavailable) ||
		errors.Is(err, ErrClientUnavailable) ||
		errors.Is(err, context.DeadlineExceeded)
}
