// Package squid is a client for the Squid cross-chain routing API.
package squid

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/squidroute/pkg/metrics"
)

const (
	integratorHeader = "x-integrator-id"
	maxBodyBytes     = 4 << 20
	maxErrorBody     = 512
)

// Config is the connection configuration of a Client.
type Config struct {
	APIURL       string
	IntegratorID string
	Timeout      time.Duration
}

// Client fetches routes. It does not retry.
type Client struct {
	cfg     Config
	http    *http.Client
	logger  *zap.SugaredLogger
	metrics *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(c *Client) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a routing client.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetRoute validates p and requests a route for it.
func (c *Client) GetRoute(ctx context.Context, p Params) (*Route, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.APIURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build route request: %w", err)
	}
	req.URL.RawQuery = p.Query().Encode()
	req.Header.Set(integratorHeader, c.cfg.IntegratorID)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RouteRequest("transport_error", time.Since(start))
		c.logger.Warnw("route_request_failed", "err", err)
		return nil, fmt.Errorf("route request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.metrics.RouteRequest("transport_error", time.Since(start))
		return nil, fmt.Errorf("read route response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.RouteRequest("http_error", time.Since(start))
		apiErr := newAPIError(resp.StatusCode, body)
		c.logger.Warnw("route_request_rejected", "status", resp.StatusCode, "message", apiErr.Message)
		return nil, apiErr
	}
	c.metrics.RouteRequest("ok", time.Since(start))

	route, err := decodeRoute(body)
	if err != nil {
		return nil, err
	}
	if err := route.Validate(); err != nil {
		return nil, err
	}

	c.logger.Infow("route_fetched",
		"from_chain", p.FromChain,
		"to_chain", p.ToChain,
		"to_address", p.ToAddress,
		"target", route.TransactionRequest.TargetAddress,
		"took_ms", time.Since(start).Milliseconds())
	return route, nil
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status}
	if len(body) > maxErrorBody {
		e.Body = string(body[:maxErrorBody])
	} else {
		e.Body = string(body)
	}

	var payload struct {
		Message string `json:"message"`
		Errors  []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &payload) == nil {
		e.Message = payload.Message
		if e.Message == "" && len(payload.Errors) > 0 {
			e.Message = payload.Errors[0].Message
		}
	}
	return e
}
