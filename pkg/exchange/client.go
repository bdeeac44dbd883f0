package exchange

// EXCHANGE ORDER-BOOK CLIENT

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

type OrderBook struct {
	Status         string `json:"status"`
	LastTradePrice string `json:"lastTradePrice"`
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *Client) OrderBook(ctx context.Context, symbol string) (*OrderBook, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodGet,
		fmt.Sprintf("%s/v2/orderbook/%s", c.baseURL, symbol),
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var book OrderBook
	if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &book, nil
}

// LastTradePrice returns the latest trade price for symbol, erroring when the
// market is missing or inactive.
func (c *Client) LastTradePrice(ctx context.Context, symbol string) (string, error) {
	book, err := c.OrderBook(ctx, symbol)
	if err != nil {
		return "", err
	}

	if book.LastTradePrice == "" {
		return "", fmt.Errorf("market %s not found or has no trades", symbol)
	}

	return book.LastTradePrice, nil
}
