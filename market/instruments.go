// market/instruments.go
package market

type InstrumentMeta struct {
	Name              string
	BaseCurrency      string
	QuoteCurrency     string
	PricePrecision    int32
	QuantityPrecision int32
	MinimumTradeSize  float64
}

// Instruments holds Kraken Futures perpetual contracts the bot knows about.
// Symbols not listed here fall back to DefaultInstrument with the symbol name.
var Instruments = map[string]InstrumentMeta{
	"PF_XBTUSD": {
		Name:              "PF_XBTUSD",
		BaseCurrency:      "XBT",
		QuoteCurrency:     "USD",
		PricePrecision:    0,
		QuantityPrecision: 4,
		MinimumTradeSize:  0.0001,
	},
	"PF_ETHUSD": {
		Name:              "PF_ETHUSD",
		BaseCurrency:      "ETH",
		QuoteCurrency:     "USD",
		PricePrecision:    1,
		QuantityPrecision: 3,
		MinimumTradeSize:  0.001,
	},
	"PF_SOLUSD": {
		Name:              "PF_SOLUSD",
		BaseCurrency:      "SOL",
		QuoteCurrency:     "USD",
		PricePrecision:    3,
		QuantityPrecision: 2,
		MinimumTradeSize:  0.01,
	},
	"PF_XRPUSD": {
		Name:              "PF_XRPUSD",
		BaseCurrency:      "XRP",
		QuoteCurrency:     "USD",
		PricePrecision:    5,
		QuantityPrecision: 0,
		MinimumTradeSize:  1,
	},
}

// DefaultInstrument rounds prices to 5 decimals and quantities to 4.
var DefaultInstrument = InstrumentMeta{
	PricePrecision:    5,
	QuantityPrecision: 4,
}

// Lookup returns metadata for symbol, or DefaultInstrument named symbol.
func Lookup(symbol string) (InstrumentMeta, bool) {
	if m, ok := Instruments[symbol]; ok {
		return m, true
	}
	m := DefaultInstrument
	m.Name = symbol
	return m, false
}
