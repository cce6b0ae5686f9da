package client

// Package client is a small typed Go client for the gateway's HTTP endpoint.
// It mirrors the wire protocol exactly: one POST per request, single or
// batch mode, and a coarse error on any non-200 status (the gateway does not
// distinguish failure kinds to callers).

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Client issues requests against one gateway instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a client for the gateway at baseURL.
func New(baseURL string, options ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, option := range options {
		option(c)
	}
	return c
}

type requestBody struct {
	SQL  any `json:"sql"`
	Args any `json:"args"`
}

type responseBody struct {
	Rows [][]any `json:"rows"`
}

func (c *Client) do(ctx context.Context, body requestBody) ([][]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	var out responseBody
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out.Rows, nil
}

// Query runs one statement and returns its rows. Numeric values decode as
// float64, per encoding/json.
func (c *Client) Query(ctx context.Context, sql string, args ...any) ([][]any, error) {
	if args == nil {
		args = []any{}
	}
	return c.do(ctx, requestBody{SQL: sql, Args: args})
}

// Exec runs one statement and discards any rows it produces.
func (c *Client) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := c.Query(ctx, sql, args...)
	return err
}

// Batch runs an ordered statement list, args[i] binding to stmts[i]. The
// lists must be the same length; the gateway rejects the batch otherwise.
// Batches are serialized against other requests but not atomic: a mid-batch
// failure leaves earlier statements committed.
func (c *Client) Batch(ctx context.Context, stmts []string, args [][]any) error {
	if args == nil {
		args = make([][]any, len(stmts))
	}
	for i, group := range args {
		if group == nil {
			args[i] = []any{}
		}
	}
	_, err := c.do(ctx, requestBody{SQL: stmts, Args: args})
	return err
}
