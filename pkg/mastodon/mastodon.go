// Package mastodon fetches Mastodon user profile data.
package mastodon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/credcheck/pkg/htmlutil"
	"github.com/codeGROOVE-dev/credcheck/pkg/httpcache"
	"github.com/codeGROOVE-dev/credcheck/pkg/profile"
)

const (
	platform        = "mastodon"
	defaultInstance = "mastodon.social"
)

// Known Mastodon instances.
var knownInstances = map[string]bool{
	"mastodon.social": true, "mastodon.online": true, "fosstodon.org": true,
	"hachyderm.io": true, "infosec.exchange": true, "techhub.social": true,
	"mstdn.social": true, "mas.to": true, "mastodon.world": true,
	"ruby.social": true, "phpc.social": true, "chaos.social": true,
	"octodon.social": true, "social.coop": true, "sfba.social": true,
}

// Match returns true if the URL is a Mastodon profile URL.
func Match(urlStr string) bool {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return false
	}

	host := strings.ToLower(parsed.Host)

	if knownInstances[host] {
		return strings.HasPrefix(parsed.Path, "/@") || strings.HasPrefix(parsed.Path, "/users/")
	}

	// Generic /@username pattern (heuristic)
	return strings.HasPrefix(parsed.Path, "/@") && len(parsed.Path) > 2
}

// Client handles Mastodon requests.
type Client struct {
	http            *httpcache.Client
	logger          *slog.Logger
	defaultInstance string
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache           httpcache.Cacher
	limiter         *httpcache.RateLimiter
	logger          *slog.Logger
	defaultInstance string
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

// WithDefaultInstance sets the instance used for bare usernames.
func WithDefaultInstance(host string) Option {
	return func(c *config) { c.defaultInstance = host }
}

// New creates a Mastodon client.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), defaultInstance: defaultInstance}
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
		http:            httpcache.NewClient(cfg.cache, httpOpts...),
		logger:          cfg.logger,
		defaultInstance: cfg.defaultInstance,
	}, nil
}

// Name returns the platform name.
func (*Client) Name() string { return platform }

// Match reports whether urlStr is a Mastodon profile URL.
func (*Client) Match(urlStr string) bool { return Match(urlStr) }

// account identifies a Mastodon user on an instance.
type account struct {
	base     string // scheme and host, e.g. https://mastodon.social
	username string
}

func (a account) profileURL() string { return a.base + "/@" + a.username }

// parseTarget accepts a profile URL, "@user@instance", "user@instance", or a bare username.
func (c *Client) parseTarget(target string) (account, error) {
	target = strings.TrimSpace(target)
	if strings.Contains(target, "://") {
		parsed, err := url.Parse(target)
		if err != nil {
			return account{}, fmt.Errorf("%w: %w", profile.ErrInvalidUsername, err)
		}
		username := extractUsername(parsed.Path)
		if username == "" || parsed.Host == "" {
			return account{}, fmt.Errorf("%w: could not extract username from %q", profile.ErrInvalidUsername, target)
		}
		return account{base: parsed.Scheme + "://" + parsed.Host, username: username}, nil
	}

	handle := strings.TrimPrefix(target, "@")
	username, host, found := strings.Cut(handle, "@")
	if !found {
		host = c.defaultInstance
	}
	if username == "" || host == "" || strings.ContainsAny(username, "/ ") {
		return account{}, fmt.Errorf("%w: %q", profile.ErrInvalidUsername, target)
	}
	return account{base: "https://" + host, username: username}, nil
}

// Fetch retrieves a Mastodon profile. The lookup API is tried first, then the profile page.
func (c *Client) Fetch(ctx context.Context, target string) (*profile.Record, error) {
	acct, err := c.parseTarget(target)
	if err != nil {
		return nil, err
	}

	c.logger.InfoContext(ctx, "fetching mastodon profile", "instance", acct.base, "username", acct.username)

	rec, err := c.fetchViaAPI(ctx, acct)
	if err == nil {
		return rec, nil
	}
	if errors.Is(err, profile.ErrProfileNotFound) {
		return nil, err
	}

	c.logger.DebugContext(ctx, "API fetch failed, falling back to HTML", "error", err)
	return c.fetchViaHTML(ctx, acct)
}

func (c *Client) fetchViaAPI(ctx context.Context, acct account) (*profile.Record, error) {
	apiURL := acct.base + "/api/v1/accounts/lookup?acct=" + url.QueryEscape(acct.username)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "credcheck/1.0")

	body, err := c.http.Fetch(ctx, req)
	if err != nil {
		var httpErr *httpcache.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", profile.ErrProfileNotFound, acct.profileURL())
		}
		return nil, err
	}

	rec, err := parseAPIResponse(body)
	if err != nil {
		return nil, err
	}
	if rec.URL == "" {
		rec.URL = acct.profileURL()
	}
	return rec, nil
}

func parseAPIResponse(data []byte) (*profile.Record, error) {
	var acc struct {
		ID             string `json:"id"`
		Username       string `json:"username"`
		DisplayName    string `json:"display_name"`
		Note           string `json:"note"`
		URL            string `json:"url"`
		Avatar         string `json:"avatar"`
		CreatedAt      string `json:"created_at"`
		FollowersCount int    `json:"followers_count"`
		FollowingCount int    `json:"following_count"`
	}

	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, fmt.Errorf("parse account: %w", err)
	}
	if acc.ID == "" {
		return nil, errors.New("account lookup returned no account")
	}

	rec := &profile.Record{
		Platform:   platform,
		URL:        acc.URL,
		Username:   acc.Username,
		Name:       acc.DisplayName,
		Bio:        htmlutil.StripTags(acc.Note),
		Followers:  acc.FollowersCount,
		Following:  acc.FollowingCount,
		PictureURL: acc.Avatar,
	}
	if t, err := time.Parse(time.RFC3339, acc.CreatedAt); err == nil {
		rec.CreatedAt = t.UTC()
	}
	return rec, nil
}

func (c *Client) fetchViaHTML(ctx context.Context, acct account) (*profile.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, acct.profileURL(), http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", httpcache.UserAgent)

	body, err := c.http.Fetch(ctx, req)
	if err != nil {
		var httpErr *httpcache.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", profile.ErrProfileNotFound, acct.profileURL())
		}
		return nil, err
	}

	return parseHTML(string(body), acct), nil
}

var countsPattern = regexp.MustCompile(`(?i)([\d][\d.,]*\s*[KM]?)\s+(Following|Followers)\b`)

const bioSeparator = " · "

// parseHTML reads the profile page meta tags. Mastodon's description looks like
// "12 Posts, 34 Following, 56 Followers · bio text".
func parseHTML(content string, acct account) *profile.Record {
	meta := htmlutil.Meta(content)
	rec := &profile.Record{
		Platform:   platform,
		URL:        acct.profileURL(),
		Username:   acct.username,
		Name:       strings.TrimSpace(strings.Split(meta["og:title"], " (@")[0]),
		PictureURL: htmlutil.Image(content),
	}

	desc := htmlutil.Description(content)
	stats, bio, found := strings.Cut(desc, bioSeparator)
	if !found {
		stats, bio = "", desc
	}
	rec.Bio = strings.TrimSpace(bio)

	for _, m := range countsPattern.FindAllStringSubmatch(stats, -1) {
		n, err := htmlutil.ParseCount(m[1])
		if err != nil {
			continue
		}
		if strings.EqualFold(m[2], "followers") {
			rec.Followers = n
		} else {
			rec.Following = n
		}
	}
	return rec
}

func extractUsername(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for _, part := range parts {
		if username, found := strings.CutPrefix(part, "@"); found {
			return username
		}
	}
	if len(parts) >= 2 && parts[0] == "users" {
		return parts[1]
	}
	return ""
}
