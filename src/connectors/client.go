// REST API CLIENT FOR THE DERIVATIVES EXCHANGE
// RESTY ONLY; RETRY POLICY LIVES IN THE EXCHANGE ADAPTER
package connectors

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
)

// -----------------------------
// API RESPONSE WRAPPER
// -----------------------------
type APIResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// -----------------------------
// PAYLOAD STRUCTURES
// -----------------------------

// MarketPayload is one listed instrument from /v1/markets.
type MarketPayload struct {
	Symbol string `json:"symbol"` // BASE/QUOTE
	Base   string `json:"base"`
	Quote  string `json:"quote"`
	Status string `json:"status"` // listed / delisted / halted
}

// TickerPayload carries quote-denominated price strings, decoded to
// decimals at the mapper boundary.
type TickerPayload struct {
	Symbol   string `json:"symbol"`
	BidPx    string `json:"bidPx"`
	AskPx    string `json:"askPx"`
	LastPx   string `json:"lastPx"`
	MidPx    string `json:"midPx"`
	MarkPx   string `json:"markPx"`
	OpenIntr string `json:"openInterest"`
}

// OrderPayload is the exchange's view of one order.
type OrderPayload struct {
	OrderID      string `json:"orderID"`
	ClOrdID      string `json:"clOrdID"`
	Symbol       string `json:"symbol"`
	Side         string `json:"side"`    // buy / sell
	OrdType      string `json:"ordType"` // Market / Limit / StopMarket
	OrderQty     string `json:"orderQty"`
	Price        string `json:"price,omitempty"`
	TriggerPrice string `json:"triggerPrice,omitempty"`
	AvgPrice     string `json:"avgPrice,omitempty"`
	CumQty       string `json:"cumQty"`
	ReduceOnly   bool   `json:"reduceOnly"`
	Status       string `json:"status"` // New / Open / Filled / PartiallyFilled / Canceled / Rejected
	CreatedAtMs  int64  `json:"createdAt"`
}

// PositionPayload is one open position from /v1/positions.
type PositionPayload struct {
	Symbol        string `json:"symbol"`
	Side          string `json:"side"` // long / short
	Size          string `json:"size"`
	EntryPrice    string `json:"entryPrice"`
	MarkPrice     string `json:"markPrice"`
	UnrealizedPnl string `json:"unrealizedPnl"`
	Leverage      int    `json:"leverage"`
}

// OrderRequest is the body for POST /v1/orders.
type OrderRequest struct {
	Symbol       string `json:"symbol"`
	Side         string `json:"side"`
	OrdType      string `json:"ordType"`
	OrderQty     string `json:"orderQty"`
	Price        string `json:"price,omitempty"`
	TriggerPrice string `json:"triggerPrice,omitempty"`
	TriggerType  string `json:"triggerType,omitempty"` // takeProfit / stopLoss
	TimeInForce  string `json:"timeInForce,omitempty"` // GoodTillCancel / ImmediateOrCancel
	ReduceOnly   bool   `json:"reduceOnly"`
	ClOrdID      string `json:"clOrdID"`
}

// -----------------------------
// AUTHENTICATED CLIENT
// -----------------------------
type Client struct {
	apiKey    string
	apiSecret string
	baseURL   string
	quote     string
	http      *resty.Client
}

func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://testnet-api.deriva.exchange"
		logger.Warnf("No base URL provided, using default: %s", baseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)

	return &Client{
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		baseURL:   baseURL,
		quote:     cfg.QuoteCurrency,
		http:      httpClient,
	}
}

// Instrument renders a base ticker in the {BASE}/{QUOTE} convention the
// exchange keys everything by.
func (c *Client) Instrument(base string) string {
	return base + "/" + c.quote
}

// BaseTicker strips the quote suffix from an instrument identifier.
func (c *Client) BaseTicker(instrument string) string {
	return strings.TrimSuffix(instrument, "/"+c.quote)
}

// NewClOrdID generates a unique client order ID.
func NewClOrdID() string {
	return "go-" + uuid.NewString()
}

func signRequest(path, query, body string, expiry int64, secret string) string {
	base := path
	if query != "" {
		base += query
	}
	base += fmt.Sprintf("%d", expiry)
	if body != "" {
		base += body
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(base))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) doRequest(ctx context.Context, method, path, query string, body []byte) (*APIResponse, error) {
	expiry := time.Now().Add(1 * time.Minute).Unix()

	sig := signRequest(path, query, string(body), expiry, c.apiSecret)

	req := c.http.R().
		SetContext(ctx).
		SetHeader("x-deriva-access-token", c.apiKey).
		SetHeader("x-deriva-request-expiry", fmt.Sprintf("%d", expiry)).
		SetHeader("x-deriva-request-signature", sig)

	if query != "" {
		req = req.SetQueryString(query)
	}
	if body != nil {
		req = req.SetBody(body).SetHeader("Content-Type", "application/json")
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, err
	}

	raw := resp.Body()

	if resp.StatusCode() != 200 {
		return nil, &APIError{Status: resp.StatusCode(), Msg: string(raw)}
	}

	var apiResp APIResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return nil, err
	}

	if apiResp.Code != 0 {
		return nil, &APIError{Status: resp.StatusCode(), Code: apiResp.Code, Msg: apiResp.Msg}
	}

	return &apiResp, nil
}

// -----------------------------
// MARKET DATA
// -----------------------------

func (c *Client) GetTicker(ctx context.Context, instrument string) (*TickerPayload, error) {
	resp, err := c.doRequest(ctx, "GET", "/v1/ticker", fmt.Sprintf("symbol=%s", instrument), nil)
	if err != nil {
		return nil, err
	}

	var parsed TickerPayload
	return &parsed, json.Unmarshal(resp.Data, &parsed)
}

func (c *Client) ListMarkets(ctx context.Context) ([]MarketPayload, error) {
	resp, err := c.doRequest(ctx, "GET", "/v1/markets", "", nil)
	if err != nil {
		return nil, err
	}

	var parsed []MarketPayload
	return parsed, json.Unmarshal(resp.Data, &parsed)
}

// ListSymbols returns the base tickers of instruments currently listed,
// skipping delisted and halted markets.
func (c *Client) ListSymbols(ctx context.Context) ([]string, error) {
	markets, err := c.ListMarkets(ctx)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(markets))
	for _, m := range markets {
		if m.Status != "listed" {
			continue
		}
		if m.Quote != c.quote {
			continue
		}
		symbols = append(symbols, m.Base)
	}
	return symbols, nil
}

// -----------------------------
// TRADING
// -----------------------------

func (c *Client) PlaceOrder(ctx context.Context, order OrderRequest) (*OrderPayload, error) {
	if order.ClOrdID == "" {
		order.ClOrdID = NewClOrdID()
	}

	b, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}

	resp, err := c.doRequest(ctx, "POST", "/v1/orders", "", b)
	if err != nil {
		return nil, err
	}

	var parsed OrderPayload
	return &parsed, json.Unmarshal(resp.Data, &parsed)
}

func (c *Client) GetOrder(ctx context.Context, orderID, instrument string) (*OrderPayload, error) {
	resp, err := c.doRequest(ctx, "GET", "/v1/orders/"+orderID, fmt.Sprintf("symbol=%s", instrument), nil)
	if err != nil {
		return nil, err
	}

	var parsed OrderPayload
	return &parsed, json.Unmarshal(resp.Data, &parsed)
}

func (c *Client) GetOpenOrders(ctx context.Context, instrument string) ([]OrderPayload, error) {
	resp, err := c.doRequest(ctx, "GET", "/v1/orders", fmt.Sprintf("symbol=%s&status=open", instrument), nil)
	if err != nil {
		return nil, err
	}

	var parsed []OrderPayload
	return parsed, json.Unmarshal(resp.Data, &parsed)
}

func (c *Client) CancelOrder(ctx context.Context, orderID, instrument string) error {
	_, err := c.doRequest(ctx, "DELETE", "/v1/orders/"+orderID, fmt.Sprintf("symbol=%s", instrument), nil)
	return err
}

// -----------------------------
// ACCOUNT & POSITIONS
// -----------------------------

func (c *Client) GetPositions(ctx context.Context, instrument string) ([]PositionPayload, error) {
	query := ""
	if instrument != "" {
		query = fmt.Sprintf("symbol=%s", instrument)
	}

	resp, err := c.doRequest(ctx, "GET", "/v1/positions", query, nil)
	if err != nil {
		return nil, err
	}

	var parsed []PositionPayload
	return parsed, json.Unmarshal(resp.Data, &parsed)
}

func (c *Client) SetLeverage(ctx context.Context, instrument string, leverage int, marginMode string) error {
	body := map[string]interface{}{
		"symbol":     instrument,
		"leverage":   leverage,
		"marginMode": marginMode,
	}

	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	_, err = c.doRequest(ctx, "POST", "/v1/leverage", "", b)
	return err
}
