// Package coingecko fetches bitcoin spot prices and recent price history from the
// CoinGecko API (https://www.coingecko.com/en/api).
//
// Every request has a timeout. A "429 Too Many Requests" answer is retried exactly
// once, after the delay hinted by the server.
package coingecko

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public CoinGecko API.
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	// APIKeyEnv is the environment variable read for the API key.
	APIKeyEnv = "COINGECKO_API_KEY"
	// DefaultTimeout bounds each request.
	DefaultTimeout = 10 * time.Second

	apiKeyHeader = "x-cg-demo-api-key"
	coinID       = "bitcoin"
)

// retry-after bounds for rate limited requests.
const (
	minRetryAfter     = 1 * time.Second
	maxRetryAfter     = 10 * time.Second
	defaultRetryAfter = 2 * time.Second
)

var (
	// ErrMalformedResponse is returned when a response body does not have the expected shape.
	ErrMalformedResponse = errors.New("coingecko: malformed response")
	// ErrTimeout is returned when a request exceeds its timeout.
	ErrTimeout = errors.New("coingecko: request timed out")
)

// HTTPError is returned for a non-success HTTP status.
type HTTPError struct {
	Code int
	Body string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("coingecko: HTTP %d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

// Client is a CoinGecko API client. It is safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker

	// sleep waits before retrying a rate limited request.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API root, mostly for tests.
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

// WithAPIKey sets the API key sent with every request. An empty key sends none.
func WithAPIKey(key string) Option { return func(c *Client) { c.apiKey = key } }

// WithHTTPClient sets the underlying http.Client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithTimeout sets the timeout of each request.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithRateLimit paces outgoing requests to r per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(r, burst) }
}

// New returns a client for the public API. The free tier allows about 30 requests
// per minute, which is the default pace.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    new(http.Client),
		timeout: DefaultTimeout,
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 5),
		sleep:   sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "coingecko",
		Timeout: time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// a caller giving up is not a provider failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return c
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
