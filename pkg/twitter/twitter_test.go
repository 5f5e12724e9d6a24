package twitter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/codeGROOVE-dev/credcheck/pkg/httpcache"
	"github.com/codeGROOVE-dev/credcheck/pkg/profile"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://twitter.com/johndoe", true},
		{"https://x.com/johndoe", true},
		{"https://www.x.com/johndoe", true},
		{"x.com/johndoe", true},
		{"https://TWITTER.COM/johndoe", true},
		{"https://linkedin.com/in/johndoe", false},
		{"https://example.com", false},
		{"https://mobile.twitter.com/johndoe", true},
		{"https://box.com/@alice", false},
		{"https://netflix.com/johndoe", false},
		{"https://x.com.evil.example/johndoe", false},
		{"https://x.com/", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := Match(tt.url); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.url, got, tt.want)
			}
		})
	}
}

func TestExtractUsername(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://twitter.com/johndoe", "johndoe"},
		{"https://x.com/johndoe", "johndoe"},
		{"https://twitter.com/johndoe/status/123", "johndoe"},
		{"https://x.com/johndoe?lang=en", "johndoe"},
		{"johndoe", "johndoe"},
		{"@johndoe", "johndoe"},
		{" @johndoe ", "johndoe"},
		{"https://example.com/johndoe", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := extractUsername(tt.input); got != tt.want {
				t.Errorf("extractUsername(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestIsValidUsername(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"jack", true},
		{"John_Doe_123", true},
		{"", false},
		{"this_is_too_long_1", false},
		{"bad-dash", false},
		{"dot.name", false},
	}
	for _, tt := range tests {
		if got := IsValidUsername(tt.name); got != tt.want {
			t.Errorf("IsValidUsername(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

const legacyGraphQL = `{"data":{"user":{"result":{
	"__typename":"User","rest_id":"12",
	"legacy":{
		"screen_name":"jack","name":"jack","description":"no state is the best state",
		"followers_count":6500000,"friends_count":4000,
		"profile_image_url_https":"https://pbs.twimg.com/profile_images/1/a_normal.jpg",
		"created_at":"Tue Mar 21 20:50:14 +0000 2006"
	}}}}}`

const coreGraphQL = `{"data":{"user":{"result":{
	"__typename":"User","rest_id":"44",
	"core":{"screen_name":"NewShape","name":"New Shape","created_at":"Wed Jan 02 10:00:00 +0000 2019"},
	"avatar":{"image_url":"https://pbs.twimg.com/profile_images/2/b_normal.png"},
	"legacy":{"description":"bio","followers_count":10,"friends_count":20}
	}}}}`

func TestParseGraphQLResponse(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    *profile.Record
		wantErr error
	}{
		{
			name: "legacy fields",
			body: legacyGraphQL,
			want: &profile.Record{
				Platform:      "twitter",
				Authenticated: true,
				Username:      "jack",
				Name:          "jack",
				Bio:           "no state is the best state",
				Followers:     6500000,
				Following:     4000,
				PictureURL:    "https://pbs.twimg.com/profile_images/1/a_400x400.jpg",
				CreatedAt:     time.Date(2006, 3, 21, 20, 50, 14, 0, time.UTC),
			},
		},
		{
			name: "core fields",
			body: coreGraphQL,
			want: &profile.Record{
				Platform:      "twitter",
				Authenticated: true,
				Username:      "NewShape",
				Name:          "New Shape",
				Bio:           "bio",
				Followers:     10,
				Following:     20,
				PictureURL:    "https://pbs.twimg.com/profile_images/2/b_400x400.png",
				CreatedAt:     time.Date(2019, 1, 2, 10, 0, 0, 0, time.UTC),
			},
		},
		{
			name:    "unavailable",
			body:    `{"data":{"user":{"result":{"__typename":"UserUnavailable","rest_id":"9"}}}}`,
			wantErr: profile.ErrProfileNotFound,
		},
		{
			name:    "empty",
			body:    `{"data":{}}`,
			wantErr: profile.ErrProfileNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseGraphQLResponse([]byte(tt.body), "jack")
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseGraphQLResponse: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("record mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

const publicPage = `<!DOCTYPE html><html><head>
<meta property="og:title" content="Jane Doe (@janedoe) / X">
<meta property="og:description" content="Coffee, code, and cats.">
<meta property="og:image" content="https://pbs.twimg.com/profile_images/3/c_normal.jpg">
</head><body>
<a href="/janedoe/following"><span>312 Following</span></a>
<a href="/janedoe/followers"><span>1.2K Followers</span></a>
</body></html>`

func clearEnvCookies(t *testing.T) {
	t.Helper()
	for _, v := range []string{"TWITTER_AUTH_TOKEN", "TWITTER_CT0", "TWITTER_TWID", "TWITTER_GUEST_ID", "TWITTER_KDT", "TWITTER_ATT"} {
		t.Setenv(v, "")
	}
}

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithBaseURL(srv.URL),
		WithRateLimiter(httpcache.NewRateLimiter(0)),
	}, opts...)
	c, err := New(context.Background(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestFetchPublicPage(t *testing.T) {
	clearEnvCookies(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/janedoe" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(publicPage)) //nolint:errcheck // test server
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv)
	got, err := c.Fetch(context.Background(), "@janedoe")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	want := &profile.Record{
		Platform:   "twitter",
		URL:        "https://x.com/janedoe",
		Username:   "janedoe",
		Name:       "Jane Doe",
		Bio:        "Coffee, code, and cats.",
		Followers:  1200,
		Following:  312,
		PictureURL: "https://pbs.twimg.com/profile_images/3/c_400x400.jpg",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Fetch mismatch (-want +got):\n%s", diff)
	}
}

func TestFetchPublicPageNotFound(t *testing.T) {
	clearEnvCookies(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv)
	if _, err := c.Fetch(context.Background(), "ghost"); !errors.Is(err, profile.ErrProfileNotFound) {
		t.Errorf("Fetch error = %v, want ErrProfileNotFound", err)
	}
}

func TestFetchSuspendedPage(t *testing.T) {
	clearEnvCookies(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><head><meta property="og:title" content="Account suspended"></head></html>`)) //nolint:errcheck // test server
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv)
	if _, err := c.Fetch(context.Background(), "spammer"); !errors.Is(err, profile.ErrProfileNotFound) {
		t.Errorf("Fetch error = %v, want ErrProfileNotFound", err)
	}
}

func TestFetchGraphQL(t *testing.T) {
	var csrf string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/UserByScreenName") {
			t.Errorf("unexpected request to %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		csrf = r.Header.Get("X-Csrf-Token")
		_, _ = w.Write([]byte(legacyGraphQL)) //nolint:errcheck // test server
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv, WithCookies(map[string]string{"auth_token": "tok", "ct0": "csrf123"}))
	got, err := c.Fetch(context.Background(), "https://twitter.com/jack")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !got.Authenticated || got.Followers != 6500000 || got.Following != 4000 {
		t.Errorf("Fetch = %+v", got)
	}
	if got.URL != "https://x.com/jack" {
		t.Errorf("URL = %q", got.URL)
	}
	if csrf != "csrf123" {
		t.Errorf("X-Csrf-Token = %q, want ct0 cookie value", csrf)
	}
}

func TestFetchGraphQLFallsBackToPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/graphql/") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(strings.ReplaceAll(publicPage, "janedoe", "jack"))) //nolint:errcheck // test server
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv, WithCookies(map[string]string{"auth_token": "tok"}))
	got, err := c.Fetch(context.Background(), "jack")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Followers != 1200 || !got.Authenticated {
		t.Errorf("Fetch = %+v, want page data from an authenticated client", got)
	}
}

func TestFetchInitialState(t *testing.T) {
	clearEnvCookies(t)
	page := `<html><head></head><body><script>window.__INITIAL_STATE__={"entities":{"users":{"entities":{
		"1":{"screen_name":"someone","followers_count":1},
		"2":{"screen_name":"Jack","name":"jack","description":"hi","followers_count":77,"friends_count":7}
	}}}};</script></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page)) //nolint:errcheck // test server
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv)
	got, err := c.Fetch(context.Background(), "jack")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Username != "Jack" || got.Followers != 77 || got.Following != 7 || got.Bio != "hi" {
		t.Errorf("Fetch = %+v", got)
	}
}

func TestFetchInvalidUsername(t *testing.T) {
	clearEnvCookies(t)
	c, err := New(context.Background())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, target := range []string{"not-valid", "https://x.com/settings", "waytoolongusername1"} {
		if _, err := c.Fetch(context.Background(), target); !errors.Is(err, profile.ErrInvalidUsername) {
			t.Errorf("Fetch(%q) error = %v, want ErrInvalidUsername", target, err)
		}
	}
}
