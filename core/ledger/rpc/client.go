// Package rpc implements the ledger contract over JSON-RPC 2.0 on HTTP.
//
// Methods are namespaced under "names_" (names_countOwned, names_listOwned,
// names_getRecords, names_setRecord, names_setRecords, names_reverseLookup,
// names_getDomain). Reads are retried with exponential backoff on network
// failures; writes are sent once.
package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"domain-manager/core/names"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// Client is a JSON-RPC ledger client.
type Client struct {
	endpoint   string
	httpClient *http.Client
	userAgent  string
	retries    int
	backoff    time.Duration
	logger     *zap.Logger
	nextID     atomic.Uint64
}

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithTimeout sets the HTTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithRetries sets the number of attempts for read calls.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.retries = n
		}
	}
}

// WithBackoff sets the first retry delay. It doubles after every attempt.
func WithBackoff(d time.Duration) Option {
	return func(c *Client) {
		c.backoff = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the gateway at endpoint.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "domain-manager/dev",
		retries:    3,
		backoff:    500 * time.Millisecond,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// read performs a retried call.
func (c *Client) read(ctx context.Context, method string, out any, params ...any) error {
	var lastErr error
	backoff := c.backoff

	for attempt := 1; attempt <= c.retries; attempt++ {
		err := c.call(ctx, method, out, params...)
		if err == nil {
			return nil
		}
		lastErr = err
		if !names.IsRetryable(err) || ctx.Err() != nil || attempt == c.retries {
			break
		}

		c.logger.Debug("Ledger read failed, retrying",
			zap.String("method", method),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return names.Classify(method, ctx.Err())
		}
	}
	return lastErr
}

// call performs one request and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, out any, params ...any) error {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(request{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return names.NewError(names.KindInvalidInput, method, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return names.NewError(names.KindInvalidInput, method, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return names.Classify(method, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		kind := names.KindNetworkFailure
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			kind = names.KindRemoteRejected
		}
		return names.NewError(kind, method, fmt.Sprintf("unexpected status code %d: %s", resp.StatusCode, snippet), nil)
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return names.NewError(names.KindNetworkFailure, method, "decode response", err)
	}
	if decoded.Error != nil {
		return names.NewError(names.KindRemoteRejected, method, decoded.Error.Message, decoded.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(decoded.Result, out); err != nil {
		return names.NewError(names.KindNetworkFailure, method, "decode result", err)
	}
	return nil
}

// Code returns the JSON-RPC error code carried by err, if any.
func Code(err error) (int, bool) {
	var re *rpcError
	if errors.As(err, &re) {
		return re.Code, true
	}
	return 0, false
}
