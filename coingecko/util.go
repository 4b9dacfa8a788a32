package coingecko

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// maxErrorBody bounds the part of an error response kept in HTTPError.
const maxErrorBody = 1 << 10

// get performs a GET on path and returns the body of a successful response.
//
// A 429 response is retried once after the server's Retry-After delay, see
// retryAfter. Any other non-2xx status is an *HTTPError.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	addr := strings.TrimSuffix(c.baseURL, "/") + path + "?" + query.Encode()

	body, err := c.breaker.Execute(func() (interface{}, error) {
		status, header, body, err := c.do(ctx, addr)
		if err != nil {
			return nil, err
		}
		if status == http.StatusTooManyRequests {
			wait := retryAfter(header.Get("Retry-After"), time.Now())
			log.Warn().Str("path", path).Dur("wait", wait).Msg("rate limited by CoinGecko, retrying once")
			if err := c.sleep(ctx, wait); err != nil {
				return nil, err
			}
			if status, _, body, err = c.do(ctx, addr); err != nil {
				return nil, err
			}
		}
		if status < 200 || status >= 300 {
			return nil, &HTTPError{Code: status, Body: truncate(string(body), maxErrorBody)}
		}
		return body, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("coingecko unavailable after repeated failures: %w", err)
	}
	if err != nil {
		return nil, err
	}
	return body.([]byte), nil
}

// do sends a single request bounded by the client timeout and reads the whole body.
func (c *Client) do(ctx context.Context, addr string) (status int, header http.Header, body []byte, err error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return 0, nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, nil, timeoutError(ctx, err)
	}
	defer resp.Body.Close()
	body, err = io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, timeoutError(ctx, err)
	}
	log.Debug().
		Str("host", req.URL.Host).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("CoinGecko request")
	return resp.StatusCode, resp.Header, body, nil
}

// timeoutError maps deadline errors to ErrTimeout. A cancelled caller context is
// returned as is.
func timeoutError(ctx context.Context, err error) error {
	var nerr net.Error
	timedOut := errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout())
	if timedOut && !errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

// retryAfter returns the delay to wait before retrying a rate limited request.
//
// The Retry-After header is either seconds or an HTTP date. The delay is bounded to
// [1s, 10s] and defaults to 2s when the header is missing or invalid.
func retryAfter(header string, now time.Time) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return defaultRetryAfter
	}
	if secs, err := strconv.ParseFloat(header, 64); err == nil || errors.Is(err, strconv.ErrRange) {
		if math.IsNaN(secs) {
			return defaultRetryAfter
		}
		// clamped as a float, a Duration would overflow.
		secs = min(max(secs, minRetryAfter.Seconds()), maxRetryAfter.Seconds())
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(header); err == nil {
		return min(max(at.Sub(now), minRetryAfter), maxRetryAfter)
	}
	return defaultRetryAfter
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
