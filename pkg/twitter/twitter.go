// Package twitter fetches Twitter/X user profile data, using session cookies when available.
package twitter

import (
	"cmp"
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

	"github.com/codeGROOVE-dev/credcheck/pkg/auth"
	"github.com/codeGROOVE-dev/credcheck/pkg/htmlutil"
	"github.com/codeGROOVE-dev/credcheck/pkg/httpcache"
	"github.com/codeGROOVE-dev/credcheck/pkg/profile"
)

const (
	platform       = "twitter"
	defaultBaseURL = "https://x.com"
)

// hosts lists the Twitter/X hostnames, without "www." or "mobile." prefixes.
var hosts = map[string]bool{"twitter.com": true, "x.com": true}

// Match returns true if the URL is a Twitter/X profile URL.
func Match(urlStr string) bool {
	if !strings.Contains(urlStr, "://") {
		urlStr = "https://" + urlStr
	}
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "mobile.")
	return hosts[host] && strings.Trim(parsed.Path, "/") != ""
}

// IsValidUsername validates a Twitter username against platform requirements.
// Twitter usernames must be 1-15 characters and contain only alphanumeric or underscore.
func IsValidUsername(username string) bool {
	if len(username) < 1 || len(username) > 15 {
		return false
	}
	for _, r := range username {
		isLower := r >= 'a' && r <= 'z'
		isUpper := r >= 'A' && r <= 'Z'
		isDigit := r >= '0' && r <= '9'
		if !isLower && !isUpper && !isDigit && r != '_' {
			return false
		}
	}
	return true
}

// systemPages are x.com paths that look like usernames but are not profiles.
var systemPages = map[string]bool{
	"tos": true, "privacy": true, "messages": true, "settings": true,
	"search": true, "explore": true, "notifications": true, "home": true,
	"login": true, "logout": true, "signup": true, "i": true,
	"compose": true, "intent": true, "share": true, "hashtag": true,
	"about": true, "help": true, "rules": true, "ads": true,
}

// Client fetches Twitter/X profiles.
type Client struct {
	http          *httpcache.Client
	logger        *slog.Logger
	baseURL       string
	csrf          string
	authenticated bool
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cookies        map[string]string
	cache          httpcache.Cacher
	limiter        *httpcache.RateLimiter
	logger         *slog.Logger
	baseURL        string
	browserCookies bool
}

// WithCookies sets explicit cookie values.
func WithCookies(cookies map[string]string) Option {
	return func(c *config) { c.cookies = cookies }
}

// WithBrowserCookies enables reading cookies from browser stores.
func WithBrowserCookies() Option {
	return func(c *config) { c.browserCookies = true }
}

// WithHTTPCache sets the HTTP cache.
func WithHTTPCache(cache httpcache.Cacher) Option {
	return func(c *config) { c.cache = cache }
}

// WithRateLimiter shares a rate limiter with other fetchers.
func WithRateLimiter(l *httpcache.RateLimiter) Option {
	return func(c *config) { c.limiter = l }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithBaseURL points the client at a different host, for tests.
func WithBaseURL(u string) Option {
	return func(c *config) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// New creates a Twitter client.
// Cookie sources: WithCookies > environment variables > browser. Without cookies the
// client only reads the public profile page.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), baseURL: defaultBaseURL}
	for _, opt := range opts {
		opt(cfg)
	}

	var sources []auth.Source
	if len(cfg.cookies) > 0 {
		sources = append(sources, auth.NewStaticSource(cfg.cookies))
	}
	sources = append(sources, auth.EnvSource{})
	if cfg.browserCookies {
		sources = append(sources, auth.NewBrowserSource(cfg.logger))
	}

	cookies, err := auth.ChainSources(ctx, platform, sources...)
	if err != nil {
		return nil, fmt.Errorf("cookie retrieval failed: %w", err)
	}

	hc := &http.Client{Timeout: 10 * time.Second}
	if len(cookies) > 0 {
		jar, err := auth.NewCookieJar("x.com", cookies)
		if err != nil {
			return nil, fmt.Errorf("cookie jar creation failed: %w", err)
		}
		hc.Jar = jar
		cfg.logger.InfoContext(ctx, "twitter client created", "cookie_count", len(cookies))
	} else {
		cfg.logger.InfoContext(ctx, "no twitter cookies; reading public pages only",
			"env_vars", auth.EnvVarsForPlatform(platform))
	}

	httpOpts := []httpcache.Option{httpcache.WithHTTPClient(hc), httpcache.WithLogger(cfg.logger)}
	if cfg.limiter != nil {
		httpOpts = append(httpOpts, httpcache.WithRateLimiter(cfg.limiter))
	}

	return &Client{
		http:          httpcache.NewClient(cfg.cache, httpOpts...),
		logger:        cfg.logger,
		baseURL:       cfg.baseURL,
		csrf:          cookies["ct0"],
		authenticated: len(cookies) > 0,
	}, nil
}

// Name returns the platform name.
func (*Client) Name() string { return platform }

// Match reports whether urlStr is a Twitter/X URL.
func (*Client) Match(urlStr string) bool { return Match(urlStr) }

// Fetch retrieves a Twitter profile for a URL, @handle, or username.
// With cookies the GraphQL API is tried first; the profile page is the fallback.
func (c *Client) Fetch(ctx context.Context, target string) (*profile.Record, error) {
	username := extractUsername(target)
	if !IsValidUsername(username) || systemPages[strings.ToLower(username)] {
		return nil, fmt.Errorf("%w: %q", profile.ErrInvalidUsername, username)
	}

	profileURL := "https://x.com/" + username

	if c.authenticated {
		c.logger.InfoContext(ctx, "fetching twitter profile via graphql", "username", username)
		rec, err := c.fetchViaGraphQL(ctx, username)
		if err == nil {
			rec.URL = profileURL
			return rec, nil
		}
		if errors.Is(err, profile.ErrProfileNotFound) {
			return nil, err
		}
		c.logger.DebugContext(ctx, "graphql fetch failed, trying html fallback", "error", err)
	}

	c.logger.InfoContext(ctx, "fetching twitter profile page", "username", username)
	rec, err := c.fetchViaHTML(ctx, username)
	if err != nil {
		return nil, err
	}
	rec.URL = profileURL
	return rec, nil
}

const userByScreenNameQueryID = "-oaLodhGbbnzJBACb1kk2Q"

// fetchViaGraphQL uses Twitter's GraphQL API to fetch profile data.
func (c *Client) fetchViaGraphQL(ctx context.Context, username string) (*profile.Record, error) {
	varsJSON, err := json.Marshal(map[string]any{
		"screen_name":              username,
		"withSafetyModeUserFields": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal variables: %w", err)
	}
	featJSON, err := json.Marshal(graphQLFeatures())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal features: %w", err)
	}

	apiURL := fmt.Sprintf("%s/i/api/graphql/%s/UserByScreenName?variables=%s&features=%s",
		c.baseURL, userByScreenNameQueryID,
		url.QueryEscape(string(varsJSON)), url.QueryEscape(string(featJSON)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}
	c.setGraphQLHeaders(req, "https://x.com/"+username)

	body, err := c.http.FetchWithValidator(ctx, req, func(b []byte) bool {
		return json.Valid(b) && strings.Contains(string(b), `"data"`)
	})
	if err != nil {
		var httpErr *httpcache.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %w", profile.ErrRateLimited, err)
		}
		return nil, fmt.Errorf("graphql request: %w", err)
	}

	c.logger.DebugContext(ctx, "graphql response received", "size", len(body))
	return parseGraphQLResponse(body, username)
}

// user is the account shape shared by GraphQL "legacy" objects and the embedded page state.
type user struct {
	ScreenName      string `json:"screen_name"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	FollowersCount  int    `json:"followers_count"`
	FriendsCount    int    `json:"friends_count"`
	ProfileImageURL string `json:"profile_image_url_https"`
	CreatedAt       string `json:"created_at"`
}

func (u user) record(authenticated bool) *profile.Record {
	rec := &profile.Record{
		Platform:      platform,
		Authenticated: authenticated,
		Username:      u.ScreenName,
		Name:          u.Name,
		Bio:           u.Description,
		Followers:     u.FollowersCount,
		Following:     u.FriendsCount,
		PictureURL:    fullSizeImage(u.ProfileImageURL),
	}
	if t, err := time.Parse(time.RubyDate, u.CreatedAt); err == nil {
		rec.CreatedAt = t.UTC()
	}
	return rec
}

// parseGraphQLResponse parses a UserByScreenName response.
func parseGraphQLResponse(body []byte, username string) (*profile.Record, error) {
	var resp struct {
		Data struct {
			User struct {
				Result struct {
					Typename string `json:"__typename"`
					RestID   string `json:"rest_id"`
					Core     struct {
						Name       string `json:"name"`
						ScreenName string `json:"screen_name"`
						CreatedAt  string `json:"created_at"`
					} `json:"core"`
					Avatar struct {
						ImageURL string `json:"image_url"`
					} `json:"avatar"`
					Legacy user `json:"legacy"`
				} `json:"result"`
			} `json:"user"`
		} `json:"data"`
	}

	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse graphql response: %w", err)
	}

	result := resp.Data.User.Result
	if result.Typename == "UserUnavailable" || result.RestID == "" {
		return nil, fmt.Errorf("%w: %s", profile.ErrProfileNotFound, username)
	}

	// Newer responses moved identity fields out of legacy.
	u := result.Legacy
	u.ScreenName = cmp.Or(result.Core.ScreenName, u.ScreenName, username)
	u.Name = cmp.Or(result.Core.Name, u.Name)
	u.CreatedAt = cmp.Or(result.Core.CreatedAt, u.CreatedAt)
	u.ProfileImageURL = cmp.Or(result.Avatar.ImageURL, u.ProfileImageURL)

	return u.record(true), nil
}

// fetchViaHTML reads the public profile page.
func (c *Client) fetchViaHTML(ctx context.Context, username string) (*profile.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+username, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}
	setHeaders(req)

	body, err := c.http.Fetch(ctx, req)
	if err != nil {
		var httpErr *httpcache.HTTPError
		if errors.As(err, &httpErr) {
			switch httpErr.StatusCode {
			case http.StatusNotFound:
				return nil, fmt.Errorf("%w: %s", profile.ErrProfileNotFound, username)
			case http.StatusTooManyRequests:
				return nil, fmt.Errorf("%w: %w", profile.ErrRateLimited, err)
			default:
			}
		}
		return nil, fmt.Errorf("profile page: %w", err)
	}

	return c.parseProfilePage(string(body), username)
}

func setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", httpcache.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("DNT", "1")
	req.Header.Set("Sec-GPC", "1")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
}

var (
	initialStatePattern = regexp.MustCompile(`(?s)window\.__INITIAL_STATE__\s*=\s*(\{.*?\});?\s*(?:</script>|window\.)`)
	followersPattern    = regexp.MustCompile(`(?i)([\d][\d.,]*\s*[KMB]?)\s+Followers\b`)
	followingPattern    = regexp.MustCompile(`(?i)([\d][\d.,]*\s*[KMB]?)\s+Following\b`)
	titleHandlePattern  = regexp.MustCompile(`\s*\(@\w+\).*$`)
)

// parseProfilePage extracts a profile from the embedded page state, falling back to meta tags.
func (c *Client) parseProfilePage(content, username string) (*profile.Record, error) {
	meta := htmlutil.Meta(content)
	if htmlutil.IsNotFound(meta["og:title"] + " " + meta["og:description"] + " " + meta["description"]) {
		return nil, fmt.Errorf("%w: %s", profile.ErrProfileNotFound, username)
	}

	if u, ok := userFromInitialState(content, username); ok {
		c.logger.Debug("profile found in embedded page state", "username", username)
		return u.record(c.authenticated), nil
	}

	rec := &profile.Record{
		Platform:      platform,
		Authenticated: c.authenticated,
		Username:      username,
		Name:          strings.TrimSpace(titleHandlePattern.ReplaceAllString(meta["og:title"], "")),
		Bio:           htmlutil.Description(content),
		PictureURL:    fullSizeImage(htmlutil.Image(content)),
	}

	var counted bool
	if m := followersPattern.FindStringSubmatch(content); m != nil {
		if n, err := htmlutil.ParseCount(m[1]); err == nil {
			rec.Followers = n
			counted = true
		}
	}
	if m := followingPattern.FindStringSubmatch(content); m != nil {
		if n, err := htmlutil.ParseCount(m[1]); err == nil {
			rec.Following = n
			counted = true
		}
	}

	if rec.Bio == "" && rec.PictureURL == "" && !counted {
		return nil, errors.New("profile data not present in page (Twitter may require login for this profile)")
	}
	return rec, nil
}

func userFromInitialState(content, username string) (user, bool) {
	m := initialStatePattern.FindStringSubmatch(content)
	if m == nil {
		return user{}, false
	}
	var state struct {
		Entities struct {
			Users struct {
				Entities map[string]user `json:"entities"`
			} `json:"users"`
		} `json:"entities"`
	}
	if err := json.Unmarshal([]byte(m[1]), &state); err != nil {
		return user{}, false
	}
	for _, u := range state.Entities.Users.Entities {
		if strings.EqualFold(u.ScreenName, username) {
			return u, true
		}
	}
	return user{}, false
}

// fullSizeImage swaps the 48px avatar variant for the 400px one.
func fullSizeImage(u string) string {
	return strings.Replace(u, "_normal.", "_400x400.", 1)
}

var usernamePattern = regexp.MustCompile(`(?i)(?:x\.com|twitter\.com)/([^/?#]+)`)

func extractUsername(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		if m := usernamePattern.FindStringSubmatch(s); len(m) > 1 {
			return m[1]
		}
		return ""
	}
	return strings.TrimPrefix(s, "@")
}

const bearerToken = "AAAAAAAAAAAAAAAAAAAAANRILgAAAAAAnNwIzUejRCOuH5E6I8xnZz4puTs%3D1Zv7ttfk8LF81IUq16cHjhLTvJu4FA33AGWWjCpTnA"

// setGraphQLHeaders sets the required headers for GraphQL API requests.
func (c *Client) setGraphQLHeaders(req *http.Request, referer string) {
	req.Header.Set("Authorization", "Bearer "+bearerToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", httpcache.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("X-Twitter-Auth-Type", "OAuth2Session")
	req.Header.Set("X-Twitter-Active-User", "yes")
	req.Header.Set("Referer", referer)
	if c.csrf != "" {
		req.Header.Set("X-Csrf-Token", c.csrf)
	}
}

// graphQLFeatures returns the feature flags for GraphQL requests.
func graphQLFeatures() map[string]bool {
	return map[string]bool{
		"hidden_profile_subscriptions_enabled":                              false,
		"highlights_tweets_tab_ui_enabled":                                  true,
		"responsive_web_graphql_exclude_directive_enabled":                  true,
		"responsive_web_graphql_skip_user_profile_image_extensions_enabled": false,
		"responsive_web_graphql_timeline_navigation_enabled":                true,
		"subscriptions_verification_info_is_identity_verified_enabled":      true,
		"subscriptions_verification_info_verified_since_enabled":            true,
		"verified_phone_label_enabled":                                      false,
	}
}
