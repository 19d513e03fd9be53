package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client talks to the payment endpoints of a running server.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a Client for the server at baseURL. A nil client means
// http.DefaultClient.
func NewClient(baseURL string, client *http.Client) *Client {
	if client == nil {
		client = http.DefaultClient
	}

	return &Client{base: strings.TrimSuffix(baseURL, "/") + "/api/payments", http: client}
}

// Create opens an order for packageTitle.
func (c *Client) Create(ctx context.Context, packageTitle string) (Order, error) {
	body, err := json.Marshal(map[string]string{"packageTitle": packageTitle})
	if err != nil {
		return Order{}, err
	}

	return c.do(ctx, http.MethodPost, c.base, strings.NewReader(string(body)))
}

// Get fetches an order.
func (c *Client) Get(ctx context.Context, id string) (Order, error) {
	return c.do(ctx, http.MethodGet, c.base+"/"+url.PathEscape(id), nil)
}

// Confirm simulates paying an order.
func (c *Client) Confirm(ctx context.Context, id string) (Order, error) {
	return c.do(ctx, http.MethodPost, c.base+"/"+url.PathEscape(id)+"/confirm", nil)
}

// Status adapts the client to a StatusFunc.
func (c *Client) Status() StatusFunc {
	return func(ctx context.Context, orderID string) (Status, error) {
		o, err := c.Get(ctx, orderID)
		if err != nil {
			return "", err
		}

		return o.Status, nil
	}
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader) (Order, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return Order{}, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Order{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Order{}, ErrOrderNotFound
	case resp.StatusCode == http.StatusConflict:
		return Order{}, ErrOrderFinal
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Order{}, fmt.Errorf("payment: %s %s: %s: %s", method, target, resp.Status, strings.TrimSpace(string(msg)))
	}

	var o Order
	if err := json.NewDecoder(resp.Body).Decode(&o); err != nil {
		return Order{}, fmt.Errorf("payment: decode order: %w", err)
	}

	return o, nil
}
