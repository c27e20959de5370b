package sim

import (
	"context"
	"fmt"
	"sync"

	"github.com/rustyeddy/futuresbot/broker"
	"github.com/rustyeddy/futuresbot/market"
	"github.com/rustyeddy/futuresbot/pkg/id"
)

// Exchange is an in-memory paper exchange. It fills market orders at the
// mark price, fills limit orders once they cross, and fires resting stop
// and take-profit orders as marks move.
//
// When built with a feed, Candles passes through to it and every fetch
// moves the mark to the latest close.
type Exchange struct {
	mu     sync.Mutex
	feed   broker.MarketData
	marks  map[string]float64
	orders map[string]*Order
	seq    []string

	failNext []error
}

func NewExchange(feed broker.MarketData) *Exchange {
	return &Exchange{
		feed:   feed,
		marks:  make(map[string]float64),
		orders: make(map[string]*Order),
	}
}

// Candles fetches from the underlying feed and updates the mark.
func (e *Exchange) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	if e.feed == nil {
		return nil, fmt.Errorf("%w: paper exchange has no feed", broker.ErrDataUnavailable)
	}
	candles, err := e.feed.Candles(ctx, symbol, timeframe, limit)
	if err != nil {
		return nil, err
	}
	if last, ok := market.Last(candles); ok {
		e.SetMark(symbol, last.Close)
	}
	return candles, nil
}

// FailNext queues errors returned by the following PlaceOrder calls.
func (e *Exchange) FailNext(errs ...error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failNext = append(e.failNext, errs...)
}

// SetMark moves the mark price for symbol and works resting orders.
func (e *Exchange) SetMark(symbol string, price float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.marks[symbol] = price
	for _, oid := range e.seq {
		o := e.orders[oid]
		if o.Req.Symbol != symbol || o.Status != "placed" {
			continue
		}
		switch {
		case o.triggered(price):
			o.Status = "triggered"
			o.FillPrice = price
			o.FilledQty = o.Req.Quantity
		case o.marketable(price):
			o.Status = "filled"
			o.FillPrice = o.Req.LimitPrice
			o.FilledQty = o.Req.Quantity
		}
	}
}

func (e *Exchange) Mark(symbol string) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.marks[symbol]
	return p, ok
}

func (e *Exchange) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	if err := req.Validate(); err != nil {
		return broker.OrderResult{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.failNext) > 0 {
		err := e.failNext[0]
		e.failNext = e.failNext[1:]
		return broker.OrderResult{}, err
	}

	mark, ok := e.marks[req.Symbol]
	if !ok && req.Kind == broker.Market {
		return broker.OrderResult{}, fmt.Errorf("%w: no mark price for %s", broker.ErrOrderRejected, req.Symbol)
	}

	o := &Order{ID: id.New(), Req: req, Status: "placed"}
	switch req.Kind {
	case broker.Market:
		o.Status = "filled"
		o.FillPrice = mark
		o.FilledQty = req.Quantity
	case broker.Limit:
		if ok && o.marketable(mark) {
			// Crossing limits fill at the better of mark and limit.
			o.Status = "filled"
			o.FillPrice = mark
			o.FilledQty = req.Quantity
		}
	}

	e.orders[o.ID] = o
	e.seq = append(e.seq, o.ID)

	return broker.OrderResult{
		ID:        o.ID,
		Status:    o.Status,
		FilledQty: o.FilledQty,
		AvgPrice:  o.FillPrice,
	}, nil
}

// Orders returns a copy of every order in placement order.
func (e *Exchange) Orders() []Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Order, 0, len(e.seq))
	for _, oid := range e.seq {
		out = append(out, *e.orders[oid])
	}
	return out
}

// Resting returns the IDs of orders still waiting to fill or trigger.
func (e *Exchange) Resting() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, oid := range e.seq {
		if e.orders[oid].Status == "placed" {
			out = append(out, oid)
		}
	}
	return out
}

var _ broker.TradingClient = (*Exchange)(nil)
var _ broker.MarketData = (*Exchange)(nil)
