package testpayloads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// StatusError is a non-2xx response. Code is the code field of the error body.
type StatusError struct {
	Status  int
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: code %d: %s", e.Status, e.Code, e.Message)
}

// Client talks to the service HTTP API.
type Client struct {
	client  *http.Client
	baseURL string
	updater string
}

// NewClient creates a client with the given request timeout. The updater, when
// set, is sent as X-Updater on every write.
func NewClient(baseURL string, timeout time.Duration, updater string) *Client {
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		updater: updater,
	}
}

// PricesResponse is the body of price reads and writes.
type PricesResponse struct {
	Timestamp uint64   `json:"timestamp"`
	Values    []string `json:"values"`
	Pending   bool     `json:"pending"`
}

// SubmissionResponse is the body of submission calls.
type SubmissionResponse struct {
	ID        string `json:"id"`
	State     string `json:"state"`
	Code      int    `json:"code"`
	Error     string `json:"error"`
	Timestamp uint64 `json:"timestamp"`
	Duplicate bool   `json:"duplicate"`
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// GetPrices calls POST /v1/prices/get.
func (c *Client) GetPrices(ctx context.Context, feeds []string, payload []byte) (PricesResponse, error) {
	var out PricesResponse
	err := c.do(ctx, http.MethodPost, "/v1/prices/get", payloadBody(feeds, payload), &out)
	return out, err
}

// WritePrices calls POST /v1/prices/write.
func (c *Client) WritePrices(ctx context.Context, feeds []string, payload []byte) (PricesResponse, error) {
	var out PricesResponse
	err := c.do(ctx, http.MethodPost, "/v1/prices/write", payloadBody(feeds, payload), &out)
	return out, err
}

// ReadPrices calls GET /v1/prices.
func (c *Client) ReadPrices(ctx context.Context, feeds []string) (PricesResponse, error) {
	var out PricesResponse
	q := url.Values{"feed_ids": {strings.Join(feeds, ",")}}
	err := c.do(ctx, http.MethodGet, "/v1/prices?"+q.Encode(), nil, &out)
	return out, err
}

// ReadTimestamp calls GET /v1/timestamp.
func (c *Client) ReadTimestamp(ctx context.Context) (uint64, error) {
	var out PricesResponse
	err := c.do(ctx, http.MethodGet, "/v1/timestamp", nil, &out)
	return out.Timestamp, err
}

// Submit calls POST /v1/submissions.
func (c *Client) Submit(ctx context.Context, feeds []string, payload []byte) (SubmissionResponse, error) {
	var out SubmissionResponse
	err := c.do(ctx, http.MethodPost, "/v1/submissions", payloadBody(feeds, payload), &out)
	return out, err
}

// Submission calls GET /v1/submissions/{id}.
func (c *Client) Submission(ctx context.Context, id string) (SubmissionResponse, error) {
	var out SubmissionResponse
	err := c.do(ctx, http.MethodGet, "/v1/submissions/"+id, nil, &out)
	return out, err
}

// Chunk calls POST /v1/chunks.
func (c *Client) Chunk(ctx context.Context, hash []byte, index int, chunk []byte, feeds []string, mode string) (PricesResponse, error) {
	var out PricesResponse
	body := map[string]any{
		"hash":     hexutil.Encode(hash),
		"index":    index,
		"chunk":    hexutil.Encode(chunk),
		"feed_ids": feeds,
		"mode":     mode,
	}
	err := c.do(ctx, http.MethodPost, "/v1/chunks", body, &out)
	return out, err
}

func payloadBody(feeds []string, payload []byte) map[string]any {
	return map[string]any{"feed_ids": feeds, "payload": hexutil.Encode(payload)}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.updater != "" {
		req.Header.Set("X-Updater", c.updater)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		e := &StatusError{Status: resp.StatusCode, Message: string(raw)}
		var body struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &body) == nil {
			e.Code, e.Message = body.Code, body.Message
		}
		return e
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
