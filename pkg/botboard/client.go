// Package botboard provides a Go SDK for the botboard dashboard API.
package botboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"botboard/internal/domain"
	"botboard/internal/httpapi"
)

// Client talks to a running botboard server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new botboard API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("botboard: %d %s", e.StatusCode, e.Message)
}

// GetStats retrieves the statistics snapshot for a bot. refresh forces a
// recomputation before the snapshot is returned.
func (c *Client) GetStats(ctx context.Context, botID string, refresh bool) (domain.Stats, error) {
	path := fmt.Sprintf("/api/bots/%s/stats", url.PathEscape(botID))
	if refresh {
		path += "?refresh=1"
	}
	var snap domain.Stats
	err := c.get(ctx, path, &snap)
	return snap, err
}

// GetPositions retrieves a bot's positions, lot books included.
func (c *Client) GetPositions(ctx context.Context, botID string) ([]domain.Position, error) {
	var positions []domain.Position
	err := c.get(ctx, fmt.Sprintf("/api/bots/%s/positions", url.PathEscape(botID)), &positions)
	return positions, err
}

// GetOrders retrieves a bot's order log, oldest first. limit of 0 returns
// the full log; otherwise only the newest limit entries.
func (c *Client) GetOrders(ctx context.Context, botID string, limit int) ([]domain.Order, error) {
	path := fmt.Sprintf("/api/bots/%s/orders", url.PathEscape(botID))
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var orders []domain.Order
	err := c.get(ctx, path, &orders)
	return orders, err
}

// GetPerformance retrieves a bot's equity history. days of 0 uses the
// server default.
func (c *Client) GetPerformance(ctx context.Context, botID string, days int) (httpapi.PerformanceResponse, error) {
	path := fmt.Sprintf("/api/bots/%s/performance", url.PathEscape(botID))
	if days > 0 {
		path += "?days=" + strconv.Itoa(days)
	}
	var resp httpapi.PerformanceResponse
	err := c.get(ctx, path, &resp)
	return resp, err
}

// GetPrice retrieves the latest known close for a symbol.
func (c *Client) GetPrice(ctx context.Context, symbol string) (httpapi.PriceResponse, error) {
	var resp httpapi.PriceResponse
	err := c.get(ctx, "/api/prices/"+url.PathEscape(symbol), &resp)
	return resp, err
}

// SubmitOrder submits a fill for a bot and returns the recorded order.
func (c *Client) SubmitOrder(ctx context.Context, botID string, req httpapi.SubmitOrderRequest) (domain.Order, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return domain.Order{}, fmt.Errorf("encoding order: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+fmt.Sprintf("/api/bots/%s/orders", url.PathEscape(botID)),
		bytes.NewReader(payload))
	if err != nil {
		return domain.Order{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return domain.Order{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return domain.Order{}, apiError(resp)
	}
	var order domain.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return domain.Order{}, fmt.Errorf("decoding order: %w", err)
	}
	return order, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed struct {
		Error string `json:"error"`
	}
	msg := string(body)
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
		msg = parsed.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
