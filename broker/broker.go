package broker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rustyeddy/futuresbot/market"
)

var (
	// ErrDataUnavailable: market data could not be fetched (network, auth).
	ErrDataUnavailable = errors.New("market data unavailable")
	// ErrOrderRejected: the exchange refused the order parameters.
	ErrOrderRejected = errors.New("order rejected")
	// ErrClientUnavailable: the trading client could not be reached or authenticated.
	ErrClientUnavailable = errors.New("trading client unavailable")
	// ErrOutcomeUnknown: the order may have reached the exchange but no
	// answer came back. Placing it again could duplicate it.
	ErrOutcomeUnknown = errors.New("order outcome unknown")
)

// MarketData returns recent candles in chronological order. An empty slice
// with a nil error means there is no data yet.
type MarketData interface {
	Candles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error)
}

// TradingClient places orders on an exchange.
type TradingClient interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
}

type OrderKind string

const (
	Market     OrderKind = "market"
	Limit      OrderKind = "limit"
	StopLoss   OrderKind = "stop"
	TakeProfit OrderKind = "take_profit"
)

// ParseOrderKind accepts the primary kinds a config may name.
func ParseOrderKind(s string) (OrderKind, error) {
	switch OrderKind(s) {
	case Market, Limit:
		return OrderKind(s), nil
	default:
		return "", fmt.Errorf("unknown order kind %q (want market|limit)", s)
	}
}

type OrderRequest struct {
	Symbol        string
	Side          market.Side
	Quantity      float64
	Kind          OrderKind
	LimitPrice    float64 // Limit only
	StopPrice     float64 // StopLoss and TakeProfit trigger
	ReduceOnly    bool
	ClientOrderID string
}

func (r OrderRequest) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrOrderRejected)
	}
	if r.Side != market.Buy && r.Side != market.Sell {
		return fmt.Errorf("%w: side is required", ErrOrderRejected)
	}
	if r.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %v", ErrOrderRejected, r.Quantity)
	}
	switch r.Kind {
	case Market:
	case Limit:
		if r.LimitPrice <= 0 {
			return fmt.Errorf("%w: limit order needs a limit price", ErrOrderRejected)
		}
	case StopLoss, TakeProfit:
		if r.StopPrice <= 0 {
			return fmt.Errorf("%w: %s order needs a trigger price", ErrOrderRejected, r.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown order kind %q", ErrOrderRejected, r.Kind)
	}
	return nil
}

type OrderResult struct {
	ID        string
	Status    string
	FilledQty float64
	AvgPrice  float64
}
