package backpack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cryptokatze/backpack-volume-bot/internal/domain"
	"github.com/cryptokatze/backpack-volume-bot/internal/infra"
	"github.com/shopspring/decimal"
)

const (
	requestTimeout = 30 * time.Second

	// Transient failures are retried this many times in total; each attempt
	// signs a fresh timestamp so a retry is never a signature replay.
	maxAttempts = 3
)

// Client is the live Backpack REST client. It owns the retry policy: network
// errors and 5xx responses are retried with bounded exponential backoff,
// while auth and business rejections surface immediately.
type Client struct {
	baseURL    string
	signer     *Signer
	httpClient *http.Client

	breaker    *infra.CircuitBreaker
	orderLim   *infra.RateLimiter
	accountLim *infra.RateLimiter
}

// NewClient builds a live client from validated configuration. The caller
// (execution factory) guarantees credentials are present; constructing a
// live client without them is a hard error, never a silent fallback.
func NewClient(cfg *infra.Config) (*Client, error) {
	signer, err := NewSigner(cfg.Exchange.APIKey, cfg.Exchange.APISecret, cfg.Exchange.WindowMS)
	if err != nil {
		return nil, fmt.Errorf("failed to build signer: %w", err)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.Exchange.BaseURL, "/"),
		signer:     signer,
		httpClient: &http.Client{Timeout: requestTimeout},
		breaker:    infra.NewCircuitBreaker(infra.DefaultCircuitBreakerConfig("backpack")),
		orderLim:   infra.GetBackpackOrderLimiter(),
		accountLim: infra.GetBackpackAccountLimiter(),
	}, nil
}

// Live reports that this client sends real orders.
func (c *Client) Live() bool { return true }

// Close wipes the signing key material.
func (c *Client) Close() error {
	c.signer.Wipe()
	return nil
}

// PlaceOrder submits a market order. The returned result is always populated;
// on rejection Accepted is false and Kind carries the failure class.
func (c *Client) PlaceOrder(ctx context.Context, symbol string, side domain.Side, qty decimal.Decimal) (domain.OrderResult, error) {
	body := orderRequest{
		Symbol:    spotSymbol(symbol),
		Side:      string(side),
		OrderType: "Market",
		Quantity:  qty.String(),
	}
	params := map[string]string{
		"symbol":    body.Symbol,
		"side":      body.Side,
		"orderType": body.OrderType,
		"quantity":  body.Quantity,
	}

	raw, err := c.do(ctx, http.MethodPost, "/api/v1/order", instrOrderExecute, params, body)
	if err != nil {
		return domain.OrderResult{Accepted: false, Kind: kindOf(err)}, err
	}

	var resp orderResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return domain.OrderResult{Accepted: false, Kind: domain.KindTransient},
			fmt.Errorf("failed to decode order response: %w", err)
	}
	return domain.OrderResult{Accepted: true, OrderID: resp.ID}, nil
}

// CancelAllOrders cancels every resting order for the symbol's spot market.
func (c *Client) CancelAllOrders(ctx context.Context, symbol string) error {
	params := map[string]string{"symbol": spotSymbol(symbol)}
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/orders", instrOrderCancelAll, params, nil)
	return err
}

// Positions queries open futures positions for the symbol.
func (c *Client) Positions(ctx context.Context, symbol string) ([]domain.Position, error) {
	params := map[string]string{"symbol": perpSymbol(symbol)}
	raw, err := c.do(ctx, http.MethodGet, "/api/v1/position", instrPositionQuery, params, nil)
	if err != nil {
		return nil, err
	}

	// The venue returns a list; tolerate a single object as the original
	// client did.
	var list []positionResponse
	if err := json.Unmarshal(raw, &list); err != nil {
		var single positionResponse
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			return nil, fmt.Errorf("failed to decode positions: %w", err)
		}
		list = []positionResponse{single}
	}

	positions := make([]domain.Position, 0, len(list))
	for _, p := range list {
		if p.Symbol == "" {
			continue
		}
		net, err := decimal.NewFromString(p.NetSize)
		if err != nil {
			return nil, fmt.Errorf("invalid netSize %q for %s: %w", p.NetSize, p.Symbol, err)
		}
		positions = append(positions, domain.Position{
			Symbol:        p.Symbol,
			NetQuantity:   net,
			EntryPrice:    p.EntryPrice,
			UnrealizedPnl: p.UnrealizedPnl,
		})
	}
	return positions, nil
}

// Balances queries the account's capital per asset.
func (c *Client) Balances(ctx context.Context) (map[string]domain.Balance, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/v1/capital", instrBalanceQuery, nil, nil)
	if err != nil {
		return nil, err
	}

	var entries map[string]balanceEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode balances: %w", err)
	}

	balances := make(map[string]domain.Balance, len(entries))
	for asset, e := range entries {
		balances[asset] = domain.Balance{
			Asset:     asset,
			Available: parseOrZero(e.Available),
			Locked:    parseOrZero(e.Locked),
			Staked:    parseOrZero(e.Staked),
		}
	}
	return balances, nil
}

// OpenOrders queries resting orders for the symbol's spot market.
func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]domain.OpenOrder, error) {
	params := map[string]string{"symbol": spotSymbol(symbol)}
	raw, err := c.do(ctx, http.MethodGet, "/api/v1/orders", instrOrderQueryAll, params, nil)
	if err != nil {
		return nil, err
	}

	var list []openOrderResponse
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to decode open orders: %w", err)
	}

	orders := make([]domain.OpenOrder, 0, len(list))
	for _, o := range list {
		orders = append(orders, domain.OpenOrder{
			ID:       o.ID,
			Symbol:   o.Symbol,
			Side:     domain.Side(o.Side),
			Quantity: parseOrZero(o.Quantity),
			Price:    o.Price,
			Status:   o.Status,
		})
	}
	return orders, nil
}

// do executes one signed request with the bounded retry policy. Each attempt
// re-signs with a fresh timestamp: a previously computed signature must never
// be reused, the venue rejects anything older than the signing window.
func (c *Client) do(ctx context.Context, method, path, instruction string, params map[string]string, body any) ([]byte, error) {
	limiter := c.accountLim
	if instruction == instrOrderExecute || instruction == instrOrderCancelAll {
		limiter = c.orderLim
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := infra.CalculateBackoff(attempt - 1)
			slog.Warn("Retrying Backpack request",
				slog.String("instruction", instruction),
				slog.Int("attempt", attempt+1),
				slog.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		if !c.breaker.Allow() {
			lastErr = &APIError{Status: 0, Message: "circuit breaker open", Kind: domain.KindTransient}
			continue
		}
		limiter.Wait()

		raw, err := c.doOnce(ctx, method, path, instruction, params, body)
		if err == nil {
			c.breaker.RecordSuccess()
			return raw, nil
		}
		lastErr = err

		kind := kindOf(err)
		if kind == domain.KindTransient {
			c.breaker.RecordFailure()
			continue
		}
		// A definitive venue answer means the venue is healthy.
		c.breaker.RecordSuccess()
		return nil, err
	}
	return nil, lastErr
}

func (c *Client) doOnce(ctx context.Context, method, path, instruction string, params map[string]string, body any) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	fullURL := c.baseURL + path
	if body == nil && len(params) > 0 {
		q := url.Values{}
		for k, v := range params {
			q.Set(k, v)
		}
		fullURL += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, err
	}
	for k, v := range c.signer.GenerateHeaders(instruction, params, time.Now().UnixMilli()) {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Status: 0, Message: err.Error(), Kind: domain.KindTransient}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: err.Error(), Kind: domain.KindTransient}
	}

	if resp.StatusCode >= 400 {
		var errBody apiErrorBody
		_ = json.Unmarshal(raw, &errBody)
		apiErr := &APIError{
			Status:  resp.StatusCode,
			Code:    errBody.Code,
			Message: errBody.Message,
		}
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		apiErr.Kind = classify(apiErr)
		return nil, apiErr
	}

	return raw, nil
}

// classify maps a venue error to the retry taxonomy.
func classify(e *APIError) domain.ErrorKind {
	switch {
	case e.Status >= 500, e.Status == http.StatusTooManyRequests:
		return domain.KindTransient
	case isStaleClock(e):
		return domain.KindStaleClock
	case e.Status == http.StatusUnauthorized, e.Status == http.StatusForbidden:
		return domain.KindAuth
	default:
		return domain.KindBusiness
	}
}

// isStaleClock detects the timestamp-aged-past-window rejection, which looks
// like any other auth failure but means the window or local clock is wrong.
func isStaleClock(e *APIError) bool {
	code := strings.ToUpper(e.Code)
	if code == "INVALID_TIMESTAMP" || code == "REQUEST_EXPIRED" {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "expired") || strings.Contains(msg, "timestamp")
}

// kindOf extracts the failure class from any error produced by this package.
func kindOf(err error) domain.ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return domain.KindTransient
}

// parseOrZero is for display-only fields where a venue formatting quirk
// should not fail the whole query.
func parseOrZero(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
