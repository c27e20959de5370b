package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/futuresbot/broker"
	"github.com/rustyeddy/futuresbot/market"
	"go.uber.org/zap"
)

const (
	// LiveURL is Kraken Futures production.
	LiveURL = "https://futures.kraken.com"
	// DemoURL is the Kraken Futures demo environment.
	DemoURL = "https://demo-futures.kraken.com"
)

// Client talks to the Kraken Futures REST API. It implements
// broker.MarketData and broker.TradingClient.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
	log        *zap.Logger

	now   func() time.Time
	nonce *nonceSource
}

type Options struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
	Logger    *zap.Logger
}

func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = LiveURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		apiKey:    opts.APIKey,
		apiSecret: opts.APISecret,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
		log:   opts.Logger,
		now:   time.Now,
		nonce: &nonceSource{},
	}
}

// BaseURL maps an environment name to a Kraken Futures endpoint.
func BaseURL(env string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "", "live", "prod":
		return LiveURL, nil
	case "demo", "practice":
		return DemoURL, nil
	default:
		return "", fmt.Errorf("unknown kraken env %q (want live|demo)", env)
	}
}

// flexFloat decodes numbers that Kraken sends either as JSON numbers or
// as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

type apiCandle struct {
	Time   int64     `json:"time"` // unix millis
	Open   flexFloat `json:"open"`
	High   flexFloat `json:"high"`
	Low    flexFloat `json:"low"`
	Close  flexFloat `json:"close"`
	Volume flexFloat `json:"volume"`
}

type candlesResponse struct {
	Candles     []apiCandle `json:"candles"`
	MoreCandles bool        `json:"more_candles"`
}

// Candles fetches the last limit candles for symbol at timeframe.
func (c *Client) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}
	tf, err := market.TimeframeDuration(timeframe)
	if err != nil {
		return nil, err
	}

	// Ask for one spare bar so a missing edge bar still leaves limit bars.
	// The newest bar may still be forming and is kept.
	to := c.now().UTC()
	from := to.Add(-tf * time.Duration(limit+1))

	params := url.Values{}
	params.Set("from", strconv.FormatInt(from.Unix(), 10))
	params.Set("to", strconv.FormatInt(to.Unix(), 10))

	apiURL := fmt.Sprintf("%s/api/charts/v1/trade/%s/%s?%s",
		c.baseURL, url.PathEscape(symbol), timeframe, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: execute request: %v", broker.ErrDataUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, fmt.Errorf("%w: API error (status %d): %s",
			broker.ErrDataUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var apiResp candlesResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", broker.ErrDataUnavailable, err)
	}

	candles := make([]market.Candle, 0, len(apiResp.Candles))
	var last int64
	for _, ac := range apiResp.Candles {
		// Drop duplicates and anything out of order.
		if ac.Time <= last {
			continue
		}
		last = ac.Time
		candles = append(candles, market.Candle{
			Time:   time.UnixMilli(ac.Time).UTC(),
			Open:   float64(ac.Open),
			High:   float64(ac.High),
			Low:    float64(ac.Low),
			Close:  float64(ac.Close),
			Volume: float64(ac.Volume),
		})
	}

	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	c.log.Debug("fetched candles",
		zap.String("symbol", symbol), zap.String("timeframe", timeframe), zap.Int("count", len(candles)))
	return candles, nil
}
