package primary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zono819/ratio-arb/internal/domain/entity"
)

// ErrAuth is returned when the API rejects the credentials
var ErrAuth = errors.New("primary: authentication failed")

const authHeader = "X-Auth-Token"

// ClientConfig holds configuration for the Primary REST client
type ClientConfig struct {
	BaseURL  string
	User     string
	Password string
}

// Client is a Primary REST API client
type Client struct {
	config     ClientConfig
	httpClient *http.Client

	mu    sync.Mutex
	token string
}

// NewClient creates a new Primary REST client
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.remarkets.primary.com.ar"
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Token returns the session token, requesting one on first use
func (c *Client) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/auth/getToken", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Username", c.config.User)
	req.Header.Set("X-Password", c.config.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	token := resp.Header.Get(authHeader)
	if resp.StatusCode != http.StatusOK || token == "" {
		return "", fmt.Errorf("%w: status=%d", ErrAuth, resp.StatusCode)
	}

	c.token = token
	return token, nil
}

// Invalidate drops the cached token so the next call logs in again
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// doRequest performs an authenticated GET
func (c *Client) doRequest(ctx context.Context, endpoint string) ([]byte, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(authHeader, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.Invalidate()
		return nil, fmt.Errorf("%w: status=%d", ErrAuth, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error: status=%d, body=%s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

type instrumentID struct {
	MarketID string `json:"marketId"`
	Symbol   string `json:"symbol"`
}

type instrumentDetail struct {
	InstrumentID          instrumentID    `json:"instrumentId"`
	PriceConvertionFactor decimal.Decimal `json:"priceConvertionFactor"`
}

// InstrumentDetails retrieves every listed instrument with its price
// conversion factor
func (c *Client) InstrumentDetails(ctx context.Context) ([]*entity.Instrument, error) {
	respBody, err := c.doRequest(ctx, "/rest/instruments/details")
	if err != nil {
		return nil, err
	}

	var result struct {
		Status      string             `json:"status"`
		Instruments []instrumentDetail `json:"instruments"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if result.Status != "OK" {
		return nil, fmt.Errorf("API error: status=%s", result.Status)
	}

	out := make([]*entity.Instrument, 0, len(result.Instruments))
	for _, in := range result.Instruments {
		out = append(out, &entity.Instrument{
			Symbol:                in.InstrumentID.Symbol,
			MarketID:              in.InstrumentID.MarketID,
			PriceConversionFactor: in.PriceConvertionFactor,
		})
	}
	return out, nil
}
