package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatTradeOrg renders a TradeRecord as an Org-mode block. All structured
// facts live in a PROPERTIES drawer for easy search.
func FormatTradeOrg(t TradeRecord) string {
	heading := fmt.Sprintf("** Trade: %s %s %s (%s)", t.Symbol, t.Side, t.Status, shortID(t.TradeID))

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":TRADE_ID: %s\n", t.TradeID))
	b.WriteString(fmt.Sprintf(":TIME: %s\n", t.Time.UTC().Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf(":SYMBOL: %s\n", t.Symbol))
	b.WriteString(fmt.Sprintf(":SIDE: %s\n", t.Side))
	b.WriteString(fmt.Sprintf(":QUANTITY: %g\n", t.Quantity))
	b.WriteString(fmt.Sprintf(":PRICE: %.5f\n", t.Price))
	b.WriteString(fmt.Sprintf(":TAKE_PROFIT: %.5f\n", t.TakeProfit))
	b.WriteString(fmt.Sprintf(":STOP_LOSS: %.5f\n", t.StopLoss))
	b.WriteString(fmt.Sprintf(":LIMIT_PRICE: %.5f\n", t.LimitPrice))
	if t.OrderID != "" {
		b.WriteString(fmt.Sprintf(":ORDER_ID: %s\n", t.OrderID))
	}
	b.WriteString(fmt.Sprintf(":PNL: %.2f\n", t.PnL))
	if t.Reason != "" {
		b.WriteString(fmt.Sprintf(":REASON: %s\n", t.Reason))
	}
	b.WriteString(":END:\n")

	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []TradeRecord) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

// FormatPnLOrg renders the cumulative PnL series as an Org table, one row
// per trade. The cumulative column is recomputed from the PnL column.
func FormatPnLOrg(trades []TradeRecord) string {
	var b strings.Builder
	b.WriteString("| # | time | side | qty | price | pnl | cum_pnl |\n")
	b.WriteString("|---+------+------+-----+-------+-----+---------|\n")

	cum := 0.0
	for i, t := range trades {
		cum += t.PnL
		b.WriteString(fmt.Sprintf("| %d | %s | %s | %g | %.5f | %.2f | %.2f |\n",
			i+1, t.Time.UTC().Format("2006-01-02 15:04"), t.Side, t.Quantity, t.Price, t.PnL, cum))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[len(full)-8:]
}
