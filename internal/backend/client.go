package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"trading-journal-console/internal/config"
)

// Doer is the calling surface the gateways depend on.
type Doer interface {
	Do(ctx context.Context, s *Session, req Request) (*Response, error)
}

// Request describes one API call. Path is relative to the configured base URL.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   interface{}
}

// Client is the HTTP client wrapper for the trading journal API.
// It implements Doer.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	metrics *Metrics
}

// ensure Client implements the interface
var _ Doer = (*Client)(nil)

// Metrics holds the collectors for API calls.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the API call collectors on reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "backend_requests_total",
			Help: "API calls by method and response status (0 for transport failures).",
		}, []string{"method", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backend_request_duration_seconds",
			Help:    "API call latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
}

func (m *Metrics) observe(method string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// NewClient creates a new API client.
func NewClient(cfg *config.API, logger *zap.Logger, metrics *Metrics) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		// Cookies travel per request with the caller's Session, never in a
		// jar shared between users.
		SetCookieJar(nil)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	if metrics == nil {
		metrics = NewMetrics(nil)
	}

	return &Client{
		client:  client,
		logger:  logger.Named("backend"),
		limiter: limiter,
		metrics: metrics,
	}
}

// Do executes req with the session's cookies. Non-2xx replies and transport
// failures come back as *HTTPError. Nothing is retried.
func (c *Client) Do(ctx context.Context, s *Session, req Request) (*Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &HTTPError{Message: fmt.Sprintf("rate limiter wait failed: %v", err), Err: err}
	}

	r := c.client.R().SetContext(ctx)
	if s != nil {
		r.SetCookies(s.Cookies())
	}
	if len(req.Query) > 0 {
		r.SetQueryParamsFromValues(req.Query)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}

	c.logger.Debug("Executing request", zap.String("method", req.Method), zap.String("url", c.client.BaseURL+req.Path))
	start := time.Now()
	resp, err := r.Execute(req.Method, req.Path)
	if err != nil {
		c.metrics.observe(req.Method, 0, time.Since(start))
		c.logger.Warn("Request failed", zap.String("method", req.Method), zap.String("path", req.Path), zap.Error(err))
		return nil, &HTTPError{Message: err.Error(), Err: err}
	}
	c.metrics.observe(req.Method, resp.StatusCode(), time.Since(start))

	if s != nil {
		s.absorb(resp.Cookies())
	}

	if !resp.IsSuccess() {
		httpErr := newHTTPError(resp.StatusCode(), resp.Body())
		c.logger.Debug("Request rejected",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Int("status", httpErr.Status),
			zap.String("message", httpErr.Message),
		)
		return nil, httpErr
	}

	return &Response{
		Status: resp.StatusCode(),
		Header: resp.Header(),
		Data:   resp.Body(),
	}, nil
}

// Get is a shorthand for a GET request.
func (c *Client) Get(ctx context.Context, s *Session, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, s, Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post is a shorthand for a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, s *Session, path string, body interface{}) (*Response, error) {
	return c.Do(ctx, s, Request{Method: http.MethodPost, Path: path, Body: body})
}
