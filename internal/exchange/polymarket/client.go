package polymarket

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

	"github.com/google/uuid"

	"github.com/quangdle/polymarket-trading-bot/internal/config"
	boterrors "github.com/quangdle/polymarket-trading-bot/internal/errors"
	"github.com/quangdle/polymarket-trading-bot/internal/exchange"
	"github.com/quangdle/polymarket-trading-bot/internal/safety"
)

const componentName = "polymarket"

// Client talks to Polymarket's Gamma, CLOB and Data APIs and implements the
// exchange.Gateway contract. Without credentials it runs in paper-trading
// mode: market data is live but orders are simulated fills.
type Client struct {
	cfg        config.ExchangeConfig
	httpClient *http.Client
	connected  bool

	marketDataLimiter *safety.RateLimiter
	tradingLimiter    *safety.RateLimiter
}

// NewClient creates a Polymarket gateway client
func NewClient(cfg config.ExchangeConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		marketDataLimiter: safety.NewRateLimiter("market_data", 50, 50),
		tradingLimiter:    safety.NewRateLimiter("trading", 10, 10),
	}
}

// Connect verifies reachability and decides live vs paper mode based on
// whether credentials are configured.
func (c *Client) Connect(ctx context.Context) error {
	params := url.Values{"limit": {"1"}}
	var probe []gammaMarket
	if err := c.getJSON(ctx, c.cfg.GammaHost+"/markets", params, &probe); err != nil {
		return boterrors.NewNetworkError(componentName, "connect", err)
	}

	c.connected = c.cfg.PrivateKey != "" && c.cfg.APIKey != ""
	return nil
}

// Disconnect releases the client; HTTP connections close with the transport
func (c *Client) Disconnect() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// Live reports whether orders hit the venue or are paper-filled
func (c *Client) Live() bool {
	return c.connected
}

// GetActiveMarkets lists markets from the Gamma API with their outcome
// tokens resolved from the parallel clobTokenIds/outcomes/outcomePrices
// arrays.
func (c *Client) GetActiveMarkets(ctx context.Context, filters exchange.MarketFilters) ([]exchange.MarketSnapshot, error) {
	if err := c.marketDataLimiter.Wait(ctx); err != nil {
		return nil, boterrors.NewTimeoutError(componentName, "get_active_markets", err)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 200
	}
	params := url.Values{
		"limit": {fmt.Sprintf("%d", limit)},
		"order": {"volume24hr"},
	}
	if filters.ActiveOnly {
		params.Set("active", "true")
		params.Set("closed", "false")
	}

	var raw []gammaMarket
	if err := c.getJSON(ctx, c.cfg.GammaHost+"/markets", params, &raw); err != nil {
		return nil, boterrors.NewNetworkError(componentName, "get_active_markets", err)
	}

	snapshots := make([]exchange.MarketSnapshot, 0, len(raw))
	for i := range raw {
		m := &raw[i]
		snap := exchange.MarketSnapshot{
			ID:        m.marketID(),
			Question:  m.Question,
			Liquidity: m.liquidity(),
			Volume24h: m.volume(),
			Active:    m.Active && !m.Closed,
		}
		if m.EndDate != "" {
			if end, err := time.Parse(time.RFC3339, m.EndDate); err == nil {
				snap.EndDate = end
			}
		}

		for j, tokenID := range m.ClobTokenIDs {
			if tokenID == "" {
				continue
			}
			quote := exchange.TokenQuote{TokenID: tokenID}
			if j < len(m.Outcomes) {
				quote.Outcome = normalizeOutcome(m.Outcomes[j], j)
			} else {
				quote.Outcome = normalizeOutcome("", j)
			}
			if j < len(m.OutcomePrices) {
				if p, err := strconv.ParseFloat(strings.TrimSpace(m.OutcomePrices[j]), 64); err == nil {
					quote.Price = p
				}
			}
			snap.Tokens = append(snap.Tokens, quote)
		}
		if len(snap.Tokens) == 0 {
			continue
		}
		snapshots = append(snapshots, snap)
	}

	return snapshots, nil
}

// GetMidpoint fetches the current midpoint price for a token from the CLOB
func (c *Client) GetMidpoint(ctx context.Context, tokenID string) (float64, error) {
	if err := c.marketDataLimiter.Wait(ctx); err != nil {
		return 0, boterrors.NewTimeoutError(componentName, "get_midpoint", err)
	}

	params := url.Values{"token_id": {tokenID}}
	var resp midpointResponse
	if err := c.getJSON(ctx, c.cfg.ClobHost+"/midpoint", params, &resp); err != nil {
		return 0, boterrors.NewNetworkError(componentName, "get_midpoint", err)
	}
	return float64(resp.Mid), nil
}

// GetTargetPositions fetches the target trader's open positions from the
// Data API.
func (c *Client) GetTargetPositions(ctx context.Context, traderAddress string) ([]exchange.PositionSnapshot, error) {
	if err := c.marketDataLimiter.Wait(ctx); err != nil {
		return nil, boterrors.NewTimeoutError(componentName, "get_target_positions", err)
	}

	params := url.Values{
		"user":          {traderAddress},
		"sizeThreshold": {"0.1"},
	}
	var raw []dataPosition
	if err := c.getJSON(ctx, c.cfg.DataHost+"/positions", params, &raw); err != nil {
		return nil, boterrors.NewNetworkError(componentName, "get_target_positions", err)
	}

	positions := make([]exchange.PositionSnapshot, 0, len(raw))
	for _, p := range raw {
		if p.Asset == "" || float64(p.Size) <= 0 {
			continue
		}
		size := float64(p.CurrentValue)
		if size <= 0 {
			size = float64(p.Size) * float64(p.AvgPrice)
		}
		positions = append(positions, exchange.PositionSnapshot{
			MarketID: p.ConditionID,
			TokenID:  p.Asset,
			Outcome:  normalizeOutcome(p.Outcome, 0),
			Size:     size,
			AvgPrice: float64(p.AvgPrice),
		})
	}
	return positions, nil
}

// GetBalance returns the account's USDC value; in paper mode there is no
// funded account, so callers fall back to configured capital.
func (c *Client) GetBalance(ctx context.Context) (float64, error) {
	if !c.connected || c.cfg.FunderAddress == "" {
		return 0, boterrors.NewExchangeError(componentName, "get_balance",
			fmt.Errorf("no funded account configured"))
	}

	if err := c.marketDataLimiter.Wait(ctx); err != nil {
		return 0, boterrors.NewTimeoutError(componentName, "get_balance", err)
	}

	params := url.Values{"user": {c.cfg.FunderAddress}}
	var resp valueResponse
	if err := c.getJSON(ctx, c.cfg.DataHost+"/value", params, &resp); err != nil {
		return 0, boterrors.NewNetworkError(componentName, "get_balance", err)
	}
	return float64(resp.Value), nil
}

// PlaceOrder submits an order to the CLOB. The idempotency key travels as
// the client order id so resubmission after crash recovery cannot double
// fill. Paper mode simulates an immediate fill at the requested price.
func (c *Client) PlaceOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResult, error) {
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	if !c.connected {
		return c.paperFill(req), nil
	}

	if err := c.tradingLimiter.Wait(ctx); err != nil {
		return nil, boterrors.NewTimeoutError(componentName, "place_order", err)
	}

	body := map[string]interface{}{
		"tokenID":       req.TokenID,
		"side":          req.Side,
		"size":          req.Size,
		"orderType":     string(req.OrderType),
		"clientOrderID": req.IdempotencyKey,
	}
	if req.OrderType == exchange.OrderTypeLimit {
		body["price"] = req.LimitPrice
	}

	var resp orderResponse
	if err := c.postJSON(ctx, c.cfg.ClobHost+"/order", body, &resp); err != nil {
		return nil, boterrors.NewNetworkError(componentName, "place_order", err)
	}

	if !resp.Success {
		return &exchange.OrderResult{
			Success:  false,
			ErrorMsg: resp.Error,
		}, boterrors.NewExchangeError(componentName, "place_order", fmt.Errorf("order rejected: %s", resp.Error))
	}

	fill := float64(resp.Price)
	if fill == 0 {
		fill = req.LimitPrice
	}
	return &exchange.OrderResult{
		Success:   true,
		OrderID:   resp.OrderID,
		FillPrice: fill,
	}, nil
}

// paperFill simulates an instant fill for paper-trading mode
func (c *Client) paperFill(req exchange.OrderRequest) *exchange.OrderResult {
	return &exchange.OrderResult{
		Success:   true,
		OrderID:   "paper-" + req.IdempotencyKey,
		FillPrice: req.LimitPrice,
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	u := endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s returned status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) postJSON(ctx context.Context, endpoint string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("POST %s returned status %d: %s", endpoint, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// normalizeOutcome maps outcome labels onto YES/NO; index 0 of the parallel
// arrays is the YES token when the label is missing.
func normalizeOutcome(label string, index int) exchange.Outcome {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "YES":
		return exchange.OutcomeYes
	case "NO":
		return exchange.OutcomeNo
	}
	if index == 0 {
		return exchange.OutcomeYes
	}
	return exchange.OutcomeNo
}
