// Package client provides the DevERP HTTP client with rate limiting,
// conditional caching, retries and JSON envelope handling.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/deverp-client/pkg/cache"
	"github.com/Sternrassler/deverp-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for backend client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deverp_requests_total",
		Help: "Total backend requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deverp_request_duration_seconds",
		Help:    "Backend request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deverp_errors_total",
		Help: "Total backend errors by class",
	}, []string{"class"})
)

// ListingPath is the paginated product listing endpoint.
const ListingPath = "/inventory/load-more/"

// Client talks to the DevERP backend.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	redis       *redis.Client
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the backend, e.g. "https://erp.example.com".
	BaseURL string

	// UserAgent is sent on every request.
	UserAgent string

	// CSRFToken is sent as X-CSRFToken on every request when set.
	CSRFToken string

	// Timeout bounds a single HTTP exchange.
	Timeout time.Duration

	// Redis enables shared rate limit state and conditional caching.
	// Optional: without it the client goes straight to the network.
	Redis *redis.Client

	// CacheTTL is the freshness for responses without an Expires header.
	CacheTTL time.Duration

	// MaxRetries is the number of extra attempts for idempotent requests.
	// Zero disables retries.
	MaxRetries     int
	InitialBackoff time.Duration
}

// DefaultConfig returns a configuration without retries or Redis.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:        baseURL,
		UserAgent:      userAgent,
		Timeout:        30 * time.Second,
		CacheTTL:       cache.DefaultTTL,
		MaxRetries:     0,
		InitialBackoff: 500 * time.Millisecond,
	}
}

// New creates a new backend client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.MaxRetries < 0 {
		return nil, fmt.Errorf("max_retries must be >= 0 (got %d)", cfg.MaxRetries)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}

	logger := log.With().Str("component", "deverp-client").Logger()

	c := &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		redis:  cfg.Redis,
		config: cfg,
		logger: logger,
	}
	if cfg.Redis != nil {
		c.rateLimiter = ratelimit.NewTracker(cfg.Redis, logger)
		c.cache = cache.NewManager(cfg.Redis, cache.Options{DefaultTTL: cfg.CacheTTL})
	}
	return c, nil
}

// Do performs an HTTP request with rate limiting, caching, and error handling.
// Only GET requests are retried. A non-2xx response is returned to the
// caller, not turned into an error, unless retries for it were exhausted.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := endpointLabel(req.URL.Path)

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	if c.rateLimiter != nil {
		allowed, err := c.rateLimiter.ShouldAllowRequest(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &APIError{Method: req.Method, Endpoint: req.URL.Path, ErrorClass: ErrorClassNetwork, Err: err}
			}
			// Shared state is advisory; a Redis outage must not stop the app.
			c.logger.Warn().Err(err).Msg("Rate limit check failed")
		} else if !allowed {
			c.logger.Warn().
				Str("endpoint", endpoint).
				Msg("Request blocked by rate limiter")
			requestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
			errorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
			return nil, &APIError{
				Method:     req.Method,
				Endpoint:   req.URL.Path,
				ErrorClass: ErrorClassRateLimit,
				Err:        ErrRateLimited,
			}
		}
	}

	isGet := req.Method == http.MethodGet
	cacheKey := cache.CacheKey{
		Endpoint:    req.URL.Path,
		QueryParams: req.URL.Query(),
	}

	var cachedEntry *cache.CacheEntry
	if isGet && c.cache != nil {
		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
		if entry != nil && cache.ShouldMakeConditionalRequest(entry) {
			cachedEntry = entry
			cache.AddConditionalHeaders(req, entry)
			cache.ConditionalRequestsSent.Inc()
			c.logger.Debug().
				Str("endpoint", endpoint).
				Str("etag", entry.ETag).
				Msg("Making conditional request")
		}
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	if c.config.CSRFToken != "" {
		req.Header.Set("X-CSRFToken", c.config.CSRFToken)
	}

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing backend request")

	retryCfg := DefaultRetryConfig()
	retryCfg.MaxAttempts = 1
	retryCfg.InitialBackoff = c.config.InitialBackoff
	if isGet {
		retryCfg.MaxAttempts = c.config.MaxRetries + 1
	}

	var resp *http.Response
	retryErr := retryWithBackoff(ctx, retryCfg, func() (ErrorClass, error) {
		if resp != nil {
			resp.Body.Close()
			resp = nil
		}

		attemptReq, err := cloneForAttempt(req)
		if err != nil {
			return ErrorClassClient, err
		}

		r, reqErr := c.httpClient.Do(attemptReq)
		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return ErrorClassNetwork, &APIError{
				Method:     req.Method,
				Endpoint:   req.URL.Path,
				ErrorClass: ErrorClassNetwork,
				Err:        reqErr,
			}
		}
		resp = r

		if c.rateLimiter != nil {
			if err := c.rateLimiter.UpdateFromHeaders(ctx, resp.StatusCode, resp.Header); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to update rate limit from headers")
			}
		}

		status := strconv.Itoa(resp.StatusCode)
		if resp.StatusCode < 400 {
			requestsTotal.WithLabelValues(endpoint, status).Inc()
			return "", nil
		}

		errClass := classifyStatus(resp.StatusCode)
		errorsTotal.WithLabelValues(string(errClass)).Inc()
		requestsTotal.WithLabelValues(endpoint, status).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Backend request error")

		if !shouldRetry(errClass) {
			return "", nil
		}
		return errClass, &APIError{
			Method:     req.Method,
			Endpoint:   req.URL.Path,
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
		}
	})

	if retryErr != nil {
		// A single attempt hands the response to the caller for message extraction.
		if retryCfg.MaxAttempts <= 1 && resp != nil {
			return resp, nil
		}
		if resp != nil {
			resp.Body.Close()
		}
		return nil, retryErr
	}

	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		cache.NotModifiedResponses.Inc()

		if expiresStr := resp.Header.Get("Expires"); expiresStr != "" {
			if newExpires, err := http.ParseTime(expiresStr); err == nil {
				if err := c.cache.UpdateTTL(ctx, cacheKey, newExpires); err != nil {
					c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
				}
			}
		}

		resp.Body.Close()
		return cache.EntryToResponse(cachedEntry), nil
	}

	if c.cache != nil && resp.StatusCode == http.StatusOK {
		if isGet {
			c.storeInCache(ctx, cacheKey, resp)
		} else {
			c.invalidateAfterMutation(ctx, req.URL.Path)
		}
	}

	return resp, nil
}

// storeInCache keeps responses that carry a validator; without one the entry
// could never be revalidated.
func (c *Client) storeInCache(ctx context.Context, key cache.CacheKey, resp *http.Response) {
	if resp.Header.Get("ETag") == "" && resp.Header.Get("Last-Modified") == "" {
		return
	}
	entry, err := cache.ResponseToEntry(resp, c.cache.DefaultTTL())
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		return
	}
	if entry.TTL() <= 0 {
		return
	}
	if err := c.cache.Set(ctx, key, entry); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to cache response")
		return
	}
	c.logger.Debug().
		Str("endpoint", key.Endpoint).
		Dur("ttl", entry.TTL()).
		Msg("Cached response")
}

// invalidateAfterMutation drops cached reads of the mutated resource and of
// the listing, whose contents a workflow action may change.
func (c *Client) invalidateAfterMutation(ctx context.Context, path string) {
	for _, endpoint := range []string{path, ListingPath} {
		n, err := c.cache.Invalidate(ctx, endpoint)
		if err != nil {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to invalidate cache")
			continue
		}
		if n > 0 {
			c.logger.Debug().Str("endpoint", endpoint).Int("keys", n).Msg("Invalidated cache")
		}
	}
}

// cloneForAttempt gives every attempt a fresh body.
func cloneForAttempt(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.GetBody == nil {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewind request body: %w", err)
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

// classifyStatus categorizes a failed HTTP status.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// endpointLabel replaces numeric path segments so request IDs do not explode
// metric cardinality.
func endpointLabel(path string) string {
	segments := strings.Split(path, "/")
	for i, s := range segments {
		if s == "" {
			continue
		}
		if _, err := strconv.Atoi(s); err == nil {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

// envelope is the wrapper every backend JSON response carries.
type envelope struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e envelope) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

// GetJSON fetches path with query and decodes the JSON body into out after
// checking the success envelope.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return c.doJSON(req, out)
}

// SendJSON sends body (nil for none) with method and decodes the response
// into out, which may be nil.
func (c *Client) SendJSON(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := c.newRequest(ctx, method, path, nil, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.doJSON(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parse path %q: %w", path, err)
	}
	u := c.baseURL.ResolveReference(ref)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{
			Method:     req.Method,
			Endpoint:   req.URL.Path,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Err:        fmt.Errorf("read response body: %w", err),
		}
	}

	var env envelope
	decodeErr := json.Unmarshal(data, &env)

	if resp.StatusCode >= 300 {
		apiErr := &APIError{
			Method:     req.Method,
			Endpoint:   req.URL.Path,
			StatusCode: resp.StatusCode,
			ErrorClass: classifyStatus(resp.StatusCode),
		}
		if decodeErr == nil {
			apiErr.Message = env.text()
		} else {
			apiErr.Err = fmt.Errorf("%w: %v", ErrMalformed, decodeErr)
		}
		return apiErr
	}

	if decodeErr != nil {
		errorsTotal.WithLabelValues(string(ErrorClassPayload)).Inc()
		return &APIError{
			Method:     req.Method,
			Endpoint:   req.URL.Path,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassPayload,
			Err:        fmt.Errorf("%w: %v", ErrMalformed, decodeErr),
		}
	}
	if env.Success == nil || !*env.Success {
		errorsTotal.WithLabelValues(string(ErrorClassPayload)).Inc()
		return &APIError{
			Method:     req.Method,
			Endpoint:   req.URL.Path,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassPayload,
			Message:    env.text(),
			Err:        ErrUnsuccessful,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassPayload)).Inc()
		return &APIError{
			Method:     req.Method,
			Endpoint:   req.URL.Path,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassPayload,
			Err:        fmt.Errorf("%w: %v", ErrMalformed, err),
		}
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil without Redis.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
