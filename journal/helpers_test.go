package journal

import (
	"time"
)

func sampleTrades() []TradeRecord {
	t0 := time.Date(2024, 11, 4, 10, 0, 0, 0, time.UTC)
	return []TradeRecord{
		{
			TradeID: "01JBXA0000000000000000BUY1", Time: t0, Symbol: "PF_XBTUSD", Side: "BUY",
			Quantity: 1, Price: 100, Status: "simulated",
			TakeProfit: 101, StopLoss: 99, LimitPrice: 101,
		},
		{
			TradeID: "01JBXA0000000000000000SEL1", Time: t0.Add(time.Minute), Symbol: "PF_XBTUSD", Side: "SELL",
			Quantity: 2, Price: 110, Status: "simulated", PnL: 20, CumulativePnL: 20,
			TakeProfit: 108.9, StopLoss: 111.1, LimitPrice: 108.9,
		},
		{
			TradeID: "01JBXA0000000000000000BUY2", Time: t0.Add(2 * time.Minute), Symbol: "PF_XBTUSD", Side: "BUY",
			Quantity: 1, Price: 105, Status: "executed", PnL: 5, CumulativePnL: 25, OrderID: "ord-3",
			TakeProfit: 106.05, StopLoss: 103.95, LimitPrice: 106.05,
		},
	}
}
