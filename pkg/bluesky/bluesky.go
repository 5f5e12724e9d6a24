// Package bluesky fetches BlueSky user profile data.
package bluesky

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/credcheck/pkg/httpcache"
	"github.com/codeGROOVE-dev/credcheck/pkg/profile"
)

const (
	platform       = "bluesky"
	defaultBaseURL = "https://public.api.bsky.app"
)

// Match returns true if the URL is a BlueSky profile URL.
func Match(urlStr string) bool {
	return strings.Contains(strings.ToLower(urlStr), "bsky.app/profile/")
}

// Client handles BlueSky requests.
type Client struct {
	http    *httpcache.Client
	logger  *slog.Logger
	baseURL string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache   httpcache.Cacher
	limiter *httpcache.RateLimiter
	logger  *slog.Logger
	baseURL string
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(httpCache httpcache.Cacher) Option {
	return func(c *config) { c.cache = httpCache }
}

// WithRateLimiter shares a rate limiter with other fetchers.
func WithRateLimiter(l *httpcache.RateLimiter) Option {
	return func(c *config) { c.limiter = l }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithBaseURL points the client at a different AppView, for tests or self-hosting.
func WithBaseURL(u string) Option {
	return func(c *config) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// New creates a BlueSky client.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}

	httpOpts := []httpcache.Option{
		httpcache.WithHTTPClient(&http.Client{Timeout: 5 * time.Second}),
		httpcache.WithLogger(cfg.logger),
	}
	if cfg.limiter != nil {
		httpOpts = append(httpOpts, httpcache.WithRateLimiter(cfg.limiter))
	}

	return &Client{
		http:    httpcache.NewClient(cfg.cache, httpOpts...),
		logger:  cfg.logger,
		baseURL: cfg.baseURL,
	}, nil
}

// Name returns the platform name.
func (*Client) Name() string { return platform }

// Match reports whether urlStr is a BlueSky profile URL.
func (*Client) Match(urlStr string) bool { return Match(urlStr) }

// Fetch retrieves a BlueSky profile for a profile URL, @handle, or handle.
func (c *Client) Fetch(ctx context.Context, target string) (*profile.Record, error) {
	handle := extractHandle(target)
	if handle == "" {
		return nil, fmt.Errorf("%w: could not extract handle from %q", profile.ErrInvalidUsername, target)
	}

	c.logger.InfoContext(ctx, "fetching bluesky profile", "handle", handle)

	apiURL := c.baseURL + "/xrpc/app.bsky.actor.getProfile?actor=" + url.QueryEscape(handle)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "credcheck/1.0")

	body, err := c.http.Fetch(ctx, req)
	if err != nil {
		var httpErr *httpcache.HTTPError
		if errors.As(err, &httpErr) {
			switch httpErr.StatusCode {
			// The AppView answers 400 InvalidRequest for unknown actors.
			case http.StatusBadRequest, http.StatusNotFound:
				return nil, fmt.Errorf("%w: %s", profile.ErrProfileNotFound, handle)
			case http.StatusTooManyRequests:
				return nil, fmt.Errorf("%w: %w", profile.ErrRateLimited, err)
			default:
			}
		}
		return nil, err
	}

	return parseAPIResponse(body, handle)
}

func parseAPIResponse(data []byte, handle string) (*profile.Record, error) {
	var resp struct {
		Handle         string `json:"handle"`
		DisplayName    string `json:"displayName"`
		Description    string `json:"description"`
		Avatar         string `json:"avatar"`
		CreatedAt      string `json:"createdAt"`
		FollowersCount int    `json:"followersCount"`
		FollowsCount   int    `json:"followsCount"`
	}

	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if resp.Handle == "" {
		return nil, fmt.Errorf("%w: %s", profile.ErrProfileNotFound, handle)
	}

	rec := &profile.Record{
		Platform:   platform,
		URL:        "https://bsky.app/profile/" + resp.Handle,
		Username:   resp.Handle,
		Name:       resp.DisplayName,
		Bio:        resp.Description,
		Followers:  resp.FollowersCount,
		Following:  resp.FollowsCount,
		PictureURL: resp.Avatar,
	}
	if t, err := time.Parse(time.RFC3339, resp.CreatedAt); err == nil {
		rec.CreatedAt = t.UTC()
	}
	return rec, nil
}

// extractHandle accepts a profile URL, "@handle", or a bare handle. Bare names
// without a dot live on the default bsky.social PDS.
func extractHandle(target string) string {
	target = strings.TrimSpace(target)
	if idx := strings.Index(target, "bsky.app/profile/"); idx != -1 {
		handle := target[idx+len("bsky.app/profile/"):]
		handle = strings.Split(handle, "/")[0]
		handle = strings.Split(handle, "?")[0]
		return strings.TrimSpace(handle)
	}
	if strings.Contains(target, "/") {
		return ""
	}
	handle := strings.TrimPrefix(target, "@")
	if handle != "" && !strings.Contains(handle, ".") {
		handle += ".bsky.social"
	}
	return handle
}
