package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/rustyeddy/futuresbot/broker"
	"go.uber.org/zap"
)

const sendOrderPath = "/derivatives/api/v3/sendorder"

// Statuses Kraken reports for an accepted order.
var acceptedStatuses = map[string]bool{
	"placed":          true,
	"partiallyFilled": true,
	"filled":          true,
	"attempted":       true,
}

type orderEvent struct {
	Type   string    `json:"type"`
	Price  flexFloat `json:"price"`
	Amount flexFloat `json:"amount"`
}

type sendStatus struct {
	OrderID     string       `json:"order_id"`
	Status      string       `json:"status"`
	OrderEvents []orderEvent `json:"orderEvents"`
}

type sendOrderResponse struct {
	Result     string     `json:"result"`
	Error      string     `json:"error"`
	SendStatus sendStatus `json:"sendStatus"`
}

func orderType(k broker.OrderKind) (string, error) {
	switch k {
	case broker.Market:
		return "mkt", nil
	case broker.Limit:
		return "lmt", nil
	case broker.StopLoss:
		return "stp", nil
	case broker.TakeProfit:
		return "take_profit", nil
	default:
		return "", fmt.Errorf("%w: unsupported order kind %q", broker.ErrOrderRejected, k)
	}
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

// PlaceOrder submits one order through sendorder.
func (c *Client) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResult, error) {
	if err := req.Validate(); err != nil {
		return broker.OrderResult{}, err
	}
	if c.apiKey == "" || c.apiSecret == "" {
		return broker.OrderResult{}, fmt.Errorf("%w: missing api credentials", broker.ErrClientUnavailable)
	}

	ot, err := orderType(req.Kind)
	if err != nil {
		return broker.OrderResult{}, err
	}

	form := url.Values{}
	form.Set("orderType", ot)
	form.Set("symbol", req.Symbol)
	form.Set("side", strings.ToLower(req.Side.String()))
	form.Set("size", formatFloat(req.Quantity))
	switch req.Kind {
	case broker.Limit:
		form.Set("limitPrice", formatFloat(req.LimitPrice))
	case broker.StopLoss, broker.TakeProfit:
		form.Set("stopPrice", formatFloat(req.StopPrice))
		form.Set("triggerSignal", "mark")
	}
	if req.ReduceOnly {
		form.Set("reduceOnly", "true")
	}
	if req.ClientOrderID != "" {
		form.Set("cliOrdId", req.ClientOrderID)
	}

	body, err := c.private(ctx, sendOrderPath, form)
	if err != nil {
		return broker.OrderResult{}, err
	}

	var resp sendOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return broker.OrderResult{}, fmt.Errorf("%w: %w: decode sendorder: %v", broker.ErrClientUnavailable, broker.ErrOutcomeUnknown, err)
	}
	if resp.Result != "success" {
		return broker.OrderResult{}, classifyError(resp.Error)
	}
	if !acceptedStatuses[resp.SendStatus.Status] {
		return broker.OrderResult{}, fmt.Errorf("%w: status %s", broker.ErrOrderRejected, resp.SendStatus.Status)
	}

	res := broker.OrderResult{
		ID:     resp.SendStatus.OrderID,
		Status: resp.SendStatus.Status,
	}
	var notional float64
	for _, ev := range resp.SendStatus.OrderEvents {
		if ev.Type != "EXECUTION" {
			continue
		}
		res.FilledQty += float64(ev.Amount)
		notional += float64(ev.Amount) * float64(ev.Price)
	}
	if res.FilledQty > 0 {
		res.AvgPrice = notional / res.FilledQty
	}

	c.log.Info("order placed",
		zap.String("symbol", req.Symbol),
		zap.Stringer("side", req.Side),
		zap.String("kind", string(req.Kind)),
		zap.Float64("qty", req.Quantity),
		zap.String("order_id", res.ID),
		zap.String("status", res.Status))
	return res, nil
}

// classifyError maps Kraken error codes onto the broker taxonomy.
func classifyError(code string) error {
	switch code {
	case "authenticationError", "nonceBelowThreshold", "nonceDuplicate",
		"apiLimitExceeded", "Unavailable", "marketUnavailable":
		return fmt.Errorf("%w: %s", broker.ErrClientUnavailable, code)
	default:
		return fmt.Errorf("%w: %s", broker.ErrOrderRejected, code)
	}
}

func (c *Client) private(ctx context.Context, path string, form url.Values) ([]byte, error) {
	post := form.Encode()
	nonce := c.nonce.next(c.now())
	authent, err := sign(c.apiSecret, path, nonce, post)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", broker.ErrClientUnavailable, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(post))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("APIKey", c.apiKey)
	httpReq.Header.Set("Nonce", nonce)
	httpReq.Header.Set("Authent", authent)

	// Once the request is on the wire a lost answer leaves the order state
	// unknown.
	var wrote atomic.Bool
	trace := &httptrace.ClientTrace{
		WroteRequest: func(httptrace.WroteRequestInfo) { wrote.Store(true) },
	}
	httpReq = httpReq.WithContext(httptrace.WithClientTrace(httpReq.Context(), trace))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if wrote.Load() {
			return nil, fmt.Errorf("%w: %w: execute request: %v", broker.ErrClientUnavailable, broker.ErrOutcomeUnknown, err)
		}
		return nil, fmt.Errorf("%w: execute request: %v", broker.ErrClientUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %w: read body: %v", broker.ErrClientUnavailable, broker.ErrOutcomeUnknown, err)
	}

	switch {
	case resp.StatusCode == http.StatusGatewayTimeout:
		return nil, fmt.Errorf("%w: %w: http %d", broker.ErrClientUnavailable, broker.ErrOutcomeUnknown, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: http %d: %s", broker.ErrClientUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: http %d: %s", broker.ErrClientUnavailable, resp.StatusCode, strings.TrimSpace(string(body)))
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("%w: http %d: %s", broker.ErrOrderRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

var _ broker.MarketData = (*Client)(nil)
var _ broker.TradingClient = (*Client)(nil)
