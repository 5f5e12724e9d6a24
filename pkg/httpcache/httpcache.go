// Package httpcache provides cached, rate-limited HTTP fetching with thundering herd prevention.
package httpcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/codeGROOVE-dev/sfcache"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/localfs"
	"github.com/codeGROOVE-dev/sfcache/pkg/store/null"
)

// UserAgent is the browser User-Agent string sent by all fetchers.
const UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:146.0) Gecko/20100101 Firefox/146.0"

// maxBody caps response bodies; profile pictures are the largest thing we fetch.
const maxBody = 8 << 20

// Cacher allows external cache implementations for sharing across packages.
type Cacher interface {
	GetSet(ctx context.Context, key string, fetch func(context.Context) ([]byte, error), ttl ...time.Duration) ([]byte, error)
	TTL() time.Duration
}

// Cache wraps sfcache for HTTP response and analysis result caching.
type Cache struct {
	*sfcache.TieredCache[string, []byte]

	ttl time.Duration
}

// New creates a new Cache with disk persistence at ~/.cache/credcheck.
func New(ttl time.Duration) (*Cache, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	return NewWithPath(ttl, filepath.Join(cacheDir, "credcheck"))
}

// NewNull creates a Cache with no persistence (all gets miss, all sets discard).
func NewNull() *Cache {
	tc, err := sfcache.NewTiered[string, []byte](null.New[string, []byte]())
	if err != nil {
		panic("sfcache.NewTiered with null store: " + err.Error())
	}
	return &Cache{TieredCache: tc, ttl: 0}
}

// NewWithPath creates a new Cache with disk persistence at the specified path.
func NewWithPath(ttl time.Duration, cachePath string) (*Cache, error) {
	if err := os.MkdirAll(cachePath, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	persist, err := localfs.New[string, []byte]("credcheck", cachePath)
	if err != nil {
		return nil, fmt.Errorf("create persistence layer: %w", err)
	}

	tc, err := sfcache.NewTiered[string, []byte](persist, sfcache.TTL(ttl))
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	return &Cache{TieredCache: tc, ttl: ttl}, nil
}

// TTL returns the default TTL for cache entries.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// URLToKey converts a URL to a cache key using SHA256 hash.
func URLToKey(rawURL string) string {
	hash := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(hash[:])
}

// HTTPError represents an HTTP error response.
type HTTPError struct {
	URL        string
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d fetching %s", e.StatusCode, e.URL)
}

// ResponseValidator validates a response body. Returns true if cacheable.
type ResponseValidator func(body []byte) bool

// Stats tracks cache hit/miss statistics.
type Stats struct {
	Hits   int64
	Misses int64
}

// HitRate returns the cache hit rate as a percentage (0-100).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Client fetches URLs through an optional cache with per-domain rate limiting.
// A nil cache disables caching. Client is safe for concurrent use.
type Client struct {
	http    *http.Client
	cache   Cacher
	limiter *RateLimiter
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimiter sets the per-domain rate limiter. Share one limiter between clients
// that talk to the same hosts.
func WithRateLimiter(l *RateLimiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithTimeout bounds the total time spent on one fetch, retries included.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// NewClient creates a Client.
func NewClient(cache Cacher, opts ...Option) *Client {
	c := &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   cache,
		logger:  slog.Default(),
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = NewRateLimiter(DefaultDelay)
	}
	return c
}

// Cache returns the underlying cache, which may be nil.
func (c *Client) Cache() Cacher { return c.cache }

// HTTPClient returns the underlying HTTP client.
func (c *Client) HTTPClient() *http.Client { return c.http }

// Stats returns the hit/miss counters for this client.
func (c *Client) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Fetch fetches a URL with caching and thundering herd prevention.
func (c *Client) Fetch(ctx context.Context, req *http.Request) ([]byte, error) {
	return c.FetchWithValidator(ctx, req, nil)
}

// FetchWithValidator fetches a URL with caching and optional response validation.
// If validator returns false, the response is returned but NOT cached.
func (c *Client) FetchWithValidator(ctx context.Context, req *http.Request, validator ResponseValidator) ([]byte, error) {
	// Include an auth marker in the key so authenticated and anonymous responses never mix.
	cacheKey := req.URL.String()
	if c.http.Jar != nil && len(c.http.Jar.Cookies(req.URL)) > 0 {
		cacheKey += "|auth"
	}

	if c.cache == nil {
		c.misses.Add(1)
		return c.doFetch(ctx, req)
	}

	var wasFetched bool
	data, err := c.cache.GetSet(ctx, URLToKey(cacheKey), func(ctx context.Context) ([]byte, error) {
		wasFetched = true
		c.misses.Add(1)
		c.logger.DebugContext(ctx, "cache miss", "url", req.URL.String())
		body, fetchErr := c.doFetch(ctx, req)
		if fetchErr != nil {
			// Only permanent statuses are cached. Rate limits, server errors, and
			// network failures are retried on the next call.
			var httpErr *HTTPError
			if errors.As(fetchErr, &httpErr) && isPermanentStatus(httpErr.StatusCode) {
				return fmt.Appendf(nil, "ERROR:%d", httpErr.StatusCode), nil
			}
			return nil, fetchErr
		}
		if validator != nil && !validator(body) {
			c.logger.DebugContext(ctx, "skipping cache due to validation failure", "key", cacheKey)
			return nil, &validationError{data: body}
		}
		return body, nil
	}, c.cache.TTL())

	if !wasFetched {
		c.hits.Add(1)
		c.logger.DebugContext(ctx, "cache hit", "url", req.URL.String())
	}

	var validErr *validationError
	if errors.As(err, &validErr) {
		return validErr.data, nil
	}
	if err != nil {
		return nil, err
	}

	return decodeCached(data, req.URL.String())
}

// decodeCached turns cached error markers back into errors.
func decodeCached(data []byte, rawURL string) ([]byte, error) {
	s := string(data)
	if errCode, found := strings.CutPrefix(s, "ERROR:"); found {
		code, _ := strconv.Atoi(errCode) //nolint:errcheck // 0 is acceptable default
		return nil, &HTTPError{StatusCode: code, URL: rawURL}
	}
	return data, nil
}

type validationError struct{ data []byte }

func (*validationError) Error() string { return "validation failed" }

func (c *Client) doFetch(ctx context.Context, req *http.Request) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return retry.DoWithData(
		func() ([]byte, error) {
			if err := c.limiter.Wait(ctx, req.URL.String()); err != nil {
				return nil, err
			}

			resp, err := c.http.Do(req.WithContext(ctx))
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close() //nolint:errcheck // intentional

			if resp.StatusCode != http.StatusOK {
				return nil, &HTTPError{StatusCode: resp.StatusCode, URL: req.URL.String()}
			}

			return io.ReadAll(io.LimitReader(resp.Body, maxBody))
		},
		retry.Context(ctx),
		retry.Attempts(2),                     // single retry
		retry.Delay(200*time.Millisecond),     // delay before retry
		retry.MaxJitter(100*time.Millisecond), // small jitter
		retry.RetryIf(isRetryableError),       // only retry transient errors
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying HTTP request", "attempt", n+1, "url", req.URL.String(), "error", err)
		}),
	)
}

// isPermanentStatus reports whether a failed status will not change on a later request.
func isPermanentStatus(code int) bool {
	switch code {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusGone:
		return true
	default:
		return false
	}
}

// isRetryableError returns true for transient errors that should be retried.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		switch httpErr.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		default:
			return false // 4xx errors (except 429) are permanent
		}
	}
	return true
}

// Memo caches the result of compute under key, for values that are not HTTP bodies.
// With a nil cache, compute is called directly.
func Memo(ctx context.Context, cache Cacher, key string, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	if cache == nil {
		return compute(ctx)
	}
	return cache.GetSet(ctx, key, compute, cache.TTL())
}
