// Package fdc is a small client for the USDA FoodData Central REST API.
package fdc

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/hpungsan/calcard/internal/config"
	"github.com/hpungsan/calcard/internal/errors"
	"github.com/hpungsan/calcard/internal/food"
	"github.com/hpungsan/calcard/internal/logging"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// SearchRequest describes one call to the search endpoint.
type SearchRequest struct {
	Query string
	// DataTypes filters results; empty means no filter
	DataTypes []string
	PageSize  int
}

// Client talks to FoodData Central. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client

	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New builds a Client from configuration. Zero values fall back to defaults.
func New(cfg *config.Config, opts ...Option) *Client {
	def := config.DefaultConfig()
	if cfg == nil {
		cfg = def
	}

	base := strings.TrimRight(strings.TrimSpace(cfg.FDCBaseURL), "/")
	if base == "" {
		base = def.FDCBaseURL
	}
	timeout := cfg.HTTPTimeoutSeconds
	if timeout <= 0 {
		timeout = def.HTTPTimeoutSeconds
	}

	c := &Client{
		baseURL:        base,
		httpClient:     &http.Client{Timeout: time.Duration(timeout) * time.Second},
		maxAttempts:    positiveOr(cfg.MaxAttempts, def.MaxAttempts),
		initialBackoff: time.Duration(positiveOr(cfg.InitialBackoffMS, def.InitialBackoffMS)) * time.Millisecond,
		maxBackoff:     time.Duration(positiveOr(cfg.MaxBackoffMS, def.MaxBackoffMS)) * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Search queries the search endpoint and returns the candidates in the order
// FDC listed them. Results without an fdcId are dropped.
func (c *Client) Search(ctx context.Context, apiKey string, req SearchRequest) ([]food.Candidate, error) {
	q := url.Values{}
	q.Set("api_key", apiKey)
	q.Set("query", req.Query)
	if req.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(req.PageSize))
	}
	for _, dt := range req.DataTypes {
		q.Add("dataType", dt)
	}

	resp, err := getJSON[searchResponse](ctx, c, "/foods/search", q)
	if err != nil {
		return nil, err
	}
	return resp.candidates(), nil
}

// Food fetches the full detail record for one food.
func (c *Client) Food(ctx context.Context, apiKey string, fdcID int64) (*food.Detail, error) {
	q := url.Values{}
	q.Set("api_key", apiKey)

	resp, err := getJSON[foodResponse](ctx, c, "/food/"+strconv.FormatInt(fdcID, 10), q)
	if err != nil {
		return nil, err
	}
	d := resp.detail()
	if d.FDCID == 0 {
		d.FDCID = fdcID
	}
	return d, nil
}

// retryable marks a failed attempt that may succeed if repeated.
type retryable struct {
	status int
	cause  error
}

func (r *retryable) Error() string {
	if r.cause != nil {
		return r.cause.Error()
	}
	return fmt.Sprintf("status %d", r.status)
}

func (r *retryable) Unwrap() error { return r.cause }

// getJSON performs a GET with retries and decodes the body into a fresh T
// on every attempt. The returned error is always an *errors.Error and never
// contains the API key.
func getJSON[T any](ctx context.Context, c *Client, path string, q url.Values) (*T, error) {
	endpoint := c.baseURL + path + "?" + q.Encode()

	attempt := 0
	op := func() (*T, error) {
		attempt++
		var v T
		if err := c.do(ctx, endpoint, path, &v); err != nil {
			return nil, err
		}
		return &v, nil
	}
	notify := func(err error, wait time.Duration) {
		fields := []zap.Field{
			zap.String("url_path", path),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", wait),
			zap.Error(err),
		}
		var r *retryable
		if stderrors.As(err, &r) && r.status != 0 {
			fields = append(fields, zap.Int("status_code", r.status))
		}
		logging.Warn("fdc request failed, retrying", fields...)
	}

	v, err := backoff.RetryNotifyWithData(op, c.policy(ctx), notify)
	if err == nil {
		logging.Debug("fdc request", zap.String("url_path", path), zap.Int("attempts", attempt))
		return v, nil
	}

	var calErr *errors.Error
	if stderrors.As(err, &calErr) {
		return nil, calErr
	}
	var r *retryable
	if stderrors.As(err, &r) {
		return nil, errors.NewUpstreamUnavailable(r.status, path, r.cause)
	}
	// context cancellation during the backoff wait
	return nil, errors.NewUpstreamUnavailable(0, path, err)
}

func (c *Client) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0.2
	b.MaxInterval = c.maxBackoff
	b.MaxElapsedTime = 0
	b.Reset()

	retries := c.maxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// do runs a single attempt. Permanent failures are wrapped with
// backoff.Permanent so the retry loop stops immediately.
func (c *Client) do(ctx context.Context, endpoint, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return backoff.Permanent(errors.NewInternal(fmt.Errorf("build request for %s: %w", path, redact(err))))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return backoff.Permanent(errors.NewUpstreamUnavailable(0, path, ctx.Err()))
		}
		return &retryable{cause: redact(err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &retryable{status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return backoff.Permanent(errors.NewUpstreamRejected(resp.StatusCode, path))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return &retryable{cause: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// redact drops the request URL (which carries api_key) from transport errors.
func redact(err error) error {
	var urlErr *url.Error
	if stderrors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", strings.ToLower(urlErr.Op), urlErr.Err)
	}
	return err
}
