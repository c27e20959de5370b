package sim

import (
	"github.com/rustyeddy/futuresbot/broker"
	"github.com/rustyeddy/futuresbot/market"
)

// Order is a paper order held by the Exchange.
type Order struct {
	ID     string
	Req    broker.OrderRequest
	Status string // placed, filled, triggered

	FillPrice float64
	FilledQty float64
}

// triggered reports whether a resting stop or take-profit fires at price.
// Stops protect a position, so a SELL stop fires on the way down and a BUY
// stop on the way up. Take-profits fire in the opposite direction.
func (o *Order) triggered(price float64) bool {
	switch o.Req.Kind {
	case broker.StopLoss:
		if o.Req.Side == market.Sell {
			return price <= o.Req.StopPrice
		}
		return price >= o.Req.StopPrice
	case broker.TakeProfit:
		if o.Req.Side == market.Sell {
			return price >= o.Req.StopPrice
		}
		return price <= o.Req.StopPrice
	}
	return false
}

// marketable reports whether a resting limit order crosses price.
func (o *Order) marketable(price float64) bool {
	if o.Req.Kind != broker.Limit {
		return false
	}
	if o.Req.Side == market.Buy {
		return price <= o.Req.LimitPrice
	}
	return price >= o.Req.LimitPrice
}
