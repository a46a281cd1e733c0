// Package rumpus issues requests against the Rumpus CE API.
package rumpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http/httpguts"

	"github.com/rumpus-tracker/internal/config"
	"github.com/rumpus-tracker/internal/domain"
	"github.com/rumpus-tracker/internal/endpoint"
	"github.com/rumpus-tracker/internal/metrics"
	"github.com/rumpus-tracker/internal/query"
)

// DelegationKeyHeader carries the delegation key on every request.
const DelegationKeyHeader = "Rumpus-Delegation-Key"

// maxBodySize bounds how much of a response body is read.
const maxBodySize = 16 << 20

// Client sends one GET per call. It does not retry, cache or page.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	key        string
	userAgent  string
	metrics    *metrics.Collector
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMetrics records every request on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// New creates a client for the API at cfg.URL().
func New(cfg *config.RumpusConfig, logger *slog.Logger, opts ...Option) (*Client, error) {
	if cfg.DelegationKey == "" {
		return nil, fmt.Errorf("%w: key is empty", ErrInvalidKey)
	}
	if !httpguts.ValidHeaderFieldValue(cfg.DelegationKey) {
		return nil, fmt.Errorf("%w: not a valid header value", ErrInvalidKey)
	}

	base, err := url.Parse(cfg.URL())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return nil, fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrInvalidBaseURL, cfg.URL())
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    base,
		key:        cfg.DelegationKey,
		userAgent:  cfg.UserAgent,
		logger:     logger,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API root requests are resolved against.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Fetch requests ep and decodes the response. A non-2xx status yields a
// *TransportError; a body that does not match the schema yields a wrapped
// *domain.DecodeError.
func Fetch[D any](ctx context.Context, c *Client, ep endpoint.Endpoint[D]) (*domain.Envelope[D], error) {
	start := time.Now()
	body, err := c.get(ctx, ep.Name, ep.Path)
	if err != nil {
		c.observe(ep.Name, err, start)
		return nil, err
	}

	env, err := ep.Decode(body)
	if err != nil {
		c.metrics.ObserveRequest(ep.Name, metrics.OutcomeDecodeError, time.Since(start))
		return nil, fmt.Errorf("decoding %s response: %w", ep.Name, err)
	}
	c.metrics.ObserveRequest(ep.Name, metrics.OutcomeSuccess, time.Since(start))
	return env, nil
}

func (c *Client) observe(name string, err error, start time.Time) {
	outcome := metrics.OutcomeTransportError
	var te *TransportError
	if errors.As(err, &te) && te.StatusCode > 0 {
		outcome = metrics.OutcomeStatusError
	}
	c.metrics.ObserveRequest(name, outcome, time.Since(start))
	c.logger.Debug("rumpus request failed", "endpoint", name, "error", err)
}

// get returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, name, path string) ([]byte, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, &TransportError{Endpoint: name, Message: "invalid path", Cause: err}
	}
	target := c.baseURL.ResolveReference(ref)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, &TransportError{Endpoint: name, Message: "building request", Cause: err}
	}
	req.Header.Set(DelegationKeyHeader, c.key)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: name, Message: "request failed", Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &TransportError{Endpoint: name, StatusCode: resp.StatusCode, Message: "reading body", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := http.StatusText(resp.StatusCode)
		if env, err := domain.DecodeMessage(body); err == nil && env.Message != nil {
			msg = *env.Message
		}
		return nil, &TransportError{Endpoint: name, StatusCode: resp.StatusCode, Message: msg}
	}

	c.logger.Debug("rumpus request", "endpoint", name, "status", resp.StatusCode, "bytes", len(body))
	return body, nil
}

// DelegationKey describes the client's own delegation key.
func (c *Client) DelegationKey(ctx context.Context) (domain.DelegationKeyInfo, error) {
	return data(Fetch(ctx, c, endpoint.DelegationKey()))
}

// Players runs a player search.
func (c *Client) Players(ctx context.Context, q query.PlayerSearch) ([]domain.Player, error) {
	return data(Fetch(ctx, c, endpoint.Players(q)))
}

// Levels runs a level search.
func (c *Client) Levels(ctx context.Context, q query.LevelSearch) ([]domain.Level, error) {
	return data(Fetch(ctx, c, endpoint.Levels(q)))
}

// data unwraps an envelope, failing with domain.ErrNoData when a 2xx
// response carried only a message.
func data[D any](env *domain.Envelope[D], err error) (D, error) {
	var zero D
	if err != nil {
		return zero, err
	}
	if env.Data == nil {
		if env.Message != nil {
			return zero, fmt.Errorf("%w: %s", domain.ErrNoData, *env.Message)
		}
		return zero, domain.ErrNoData
	}
	return *env.Data, nil
}
