// Package backend talks to the remote portfolio service: live quotes, the
// holdings store and stock search. Every call carries the session's bearer
// token; a missing or rejected token surfaces as models.ErrAuthExpired.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"folio/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Logger

	mu    sync.RWMutex
	token string
}

func New(baseURL, token string, timeout time.Duration, log *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
		token:      token,
	}
}

// SetToken replaces the bearer token used by later calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type priceResponse struct {
	CurrentPrice *decimal.Decimal `json:"currentPrice"`
}

func (c *Client) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	var out priceResponse
	status, err := c.do(ctx, http.MethodGet, "/price/"+url.PathEscape(symbol), nil, nil, &out)
	if err != nil {
		if status == http.StatusNotFound {
			return decimal.Zero, fmt.Errorf("price %s: %w", symbol, models.ErrUnknownSymbol)
		}
		return decimal.Zero, fmt.Errorf("price %s: %w", symbol, err)
	}
	if out.CurrentPrice == nil {
		return decimal.Zero, fmt.Errorf("price %s: response did not include currentPrice", symbol)
	}
	return *out.CurrentPrice, nil
}

func (c *Client) ListHoldings(ctx context.Context) ([]models.Holding, error) {
	var out []models.Holding
	if _, err := c.do(ctx, http.MethodGet, "/portfolio", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("list holdings: %w", err)
	}
	return out, nil
}

func (c *Client) CreateHolding(ctx context.Context, h models.Holding) error {
	status, err := c.do(ctx, http.MethodPost, "/portfolio", nil, h, nil)
	if err != nil {
		if status == http.StatusConflict {
			return fmt.Errorf("create %s: %w", h.Symbol, models.ErrDuplicateSymbol)
		}
		return fmt.Errorf("create %s: %w", h.Symbol, err)
	}
	return nil
}

func (c *Client) DeleteHolding(ctx context.Context, symbol string) error {
	status, err := c.do(ctx, http.MethodDelete, "/portfolio/"+url.PathEscape(symbol), nil, nil, nil)
	if err != nil {
		if status == http.StatusNotFound {
			return fmt.Errorf("delete %s: %w", symbol, models.ErrHoldingNotFound)
		}
		return fmt.Errorf("delete %s: %w", symbol, err)
	}
	return nil
}

func (c *Client) SearchStocks(ctx context.Context, query string) (models.SearchResult, error) {
	var out models.SearchResult
	q := url.Values{}
	q.Set("query", query)
	status, err := c.do(ctx, http.MethodGet, "/searchStocks", q, nil, &out)
	if err != nil {
		if status == http.StatusNotFound {
			return out, fmt.Errorf("search %q: %w", query, models.ErrUnknownSymbol)
		}
		return out, fmt.Errorf("search %q: %w", query, err)
	}
	return out, nil
}

// StatusError is a non-2xx response that has no better mapping.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s returned status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// do sends one request. It returns the response status (0 when no response
// arrived) alongside any error.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) (int, error) {
	token := c.bearer()
	if token == "" {
		return 0, models.ErrAuthExpired
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.log.Warnf("%s %s rejected the token (status %d)", method, path, resp.StatusCode)
		return resp.StatusCode, models.ErrAuthExpired
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return resp.StatusCode, nil
}
