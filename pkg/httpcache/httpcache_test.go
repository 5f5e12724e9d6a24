package httpcache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body)) //nolint:errcheck // test server
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newRequest(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, http.NoBody)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return req
}

func TestClientFetchNoCache(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, "hello")
	c := NewClient(nil, WithRateLimiter(NewRateLimiter(0)))

	for range 2 {
		got, err := c.Fetch(context.Background(), newRequest(t, srv.URL))
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if string(got) != "hello" {
			t.Errorf("Fetch = %q, want %q", got, "hello")
		}
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("server calls = %d, want 2 without cache", n)
	}
	if s := c.Stats(); s.Misses != 2 || s.Hits != 0 {
		t.Errorf("Stats = %+v, want 2 misses", s)
	}
}

func TestClientFetchCached(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, "cached body")
	cache, err := NewWithPath(time.Hour, t.TempDir())
	if err != nil {
		t.Fatalf("NewWithPath: %v", err)
	}
	c := NewClient(cache, WithRateLimiter(NewRateLimiter(0)))

	for range 3 {
		got, err := c.Fetch(context.Background(), newRequest(t, srv.URL))
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if string(got) != "cached body" {
			t.Errorf("Fetch = %q", got)
		}
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server calls = %d, want 1 with cache", n)
	}
	if s := c.Stats(); s.Hits != 2 || s.Misses != 1 {
		t.Errorf("Stats = %+v, want 2 hits and 1 miss", s)
	}
}

func TestClientFetchHTTPError(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusNotFound, "missing")
	cache, err := NewWithPath(time.Hour, t.TempDir())
	if err != nil {
		t.Fatalf("NewWithPath: %v", err)
	}
	c := NewClient(cache, WithRateLimiter(NewRateLimiter(0)))

	for range 2 {
		_, err := c.Fetch(context.Background(), newRequest(t, srv.URL))
		var httpErr *HTTPError
		if !errors.As(err, &httpErr) {
			t.Fatalf("Fetch error = %v, want *HTTPError", err)
		}
		if httpErr.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d, want 404", httpErr.StatusCode)
		}
	}
	// 404 is permanent: no retry, and the cached error answers the second call.
	if n := calls.Load(); n != 1 {
		t.Errorf("server calls = %d, want 1", n)
	}
}

func TestClientFetchTransientErrorNotCached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("recovered")) //nolint:errcheck // test server
	}))
	t.Cleanup(srv.Close)
	dir := t.TempDir()

	cache, err := NewWithPath(time.Hour, dir)
	if err != nil {
		t.Fatalf("NewWithPath: %v", err)
	}
	first := NewClient(cache, WithRateLimiter(NewRateLimiter(0)))
	_, err = first.Fetch(context.Background(), newRequest(t, srv.URL))
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("first Fetch error = %v, want 503", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("server calls = %d, want 2 (one retry)", n)
	}

	// A later run sharing the cache directory must reach the server again.
	cache2, err := NewWithPath(time.Hour, dir)
	if err != nil {
		t.Fatalf("NewWithPath: %v", err)
	}
	second := NewClient(cache2, WithRateLimiter(NewRateLimiter(0)))
	got, err := second.Fetch(context.Background(), newRequest(t, srv.URL))
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if string(got) != "recovered" {
		t.Errorf("second Fetch = %q, want recovered", got)
	}
}

func TestClientFetchNetworkErrorNotCached(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, "up")
	url := srv.URL
	cache, err := NewWithPath(time.Hour, t.TempDir())
	if err != nil {
		t.Fatalf("NewWithPath: %v", err)
	}
	c := NewClient(cache, WithRateLimiter(NewRateLimiter(0)), WithTimeout(time.Nanosecond))
	if _, err := c.Fetch(context.Background(), newRequest(t, url)); err == nil {
		t.Fatal("Fetch with an expired deadline should fail")
	}

	c = NewClient(cache, WithRateLimiter(NewRateLimiter(0)))
	got, err := c.Fetch(context.Background(), newRequest(t, url))
	if err != nil {
		t.Fatalf("Fetch after timeout: %v", err)
	}
	if string(got) != "up" || calls.Load() == 0 {
		t.Errorf("Fetch = %q after %d calls", got, calls.Load())
	}
}

func TestIsPermanentStatus(t *testing.T) {
	for code, want := range map[int]bool{
		http.StatusBadRequest:          true,
		http.StatusNotFound:            true,
		http.StatusGone:                true,
		http.StatusForbidden:           false,
		http.StatusTooManyRequests:     false,
		http.StatusServiceUnavailable:  false,
		http.StatusInternalServerError: false,
	} {
		if got := isPermanentStatus(code); got != want {
			t.Errorf("isPermanentStatus(%d) = %v, want %v", code, got, want)
		}
	}
}

func TestClientFetchValidatorSkipsCache(t *testing.T) {
	srv, calls := newTestServer(t, http.StatusOK, "shell")
	cache, err := NewWithPath(time.Hour, t.TempDir())
	if err != nil {
		t.Fatalf("NewWithPath: %v", err)
	}
	c := NewClient(cache, WithRateLimiter(NewRateLimiter(0)))
	reject := func([]byte) bool { return false }

	for range 2 {
		got, err := c.FetchWithValidator(context.Background(), newRequest(t, srv.URL), reject)
		if err != nil {
			t.Fatalf("FetchWithValidator: %v", err)
		}
		if string(got) != "shell" {
			t.Errorf("FetchWithValidator = %q", got)
		}
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("server calls = %d, want 2 when validation fails", n)
	}
}

func TestIsRetryableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&HTTPError{StatusCode: http.StatusTooManyRequests}, true},
		{&HTTPError{StatusCode: http.StatusBadGateway}, true},
		{&HTTPError{StatusCode: http.StatusNotFound}, false},
		{&HTTPError{StatusCode: http.StatusForbidden}, false},
		{errors.New("connection reset"), true},
		{context.Canceled, false},
	}
	for _, tt := range tests {
		if got := isRetryableError(tt.err); got != tt.want {
			t.Errorf("isRetryableError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestDecodeCached(t *testing.T) {
	if _, err := decodeCached([]byte("ERROR:429"), "https://x"); err == nil {
		t.Error("ERROR marker should decode to an error")
	}
	got, err := decodeCached([]byte("plain"), "https://x")
	if err != nil || string(got) != "plain" {
		t.Errorf("decodeCached = %q, %v", got, err)
	}
}

func TestMemoNilCache(t *testing.T) {
	var calls int
	compute := func(context.Context) ([]byte, error) {
		calls++
		return []byte("v"), nil
	}
	for range 2 {
		if _, err := Memo(context.Background(), nil, "k", compute); err != nil {
			t.Fatalf("Memo: %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("compute calls = %d, want 2 without cache", calls)
	}
}

func TestRateLimiterWait(t *testing.T) {
	r := NewRateLimiter(50*time.Millisecond, map[string]time.Duration{"fast.example": 0})
	ctx := context.Background()

	start := time.Now()
	for range 2 {
		if err := r.Wait(ctx, "https://slow.example/a"); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("second request waited %v, want >= 50ms", elapsed)
	}

	start = time.Now()
	for range 3 {
		if err := r.Wait(ctx, "https://fast.example/a"); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 40*time.Millisecond {
		t.Errorf("override host waited %v, want no delay", elapsed)
	}
}

func TestRateLimiterCanceled(t *testing.T) {
	r := NewRateLimiter(time.Hour)
	if err := r.Wait(context.Background(), "https://example.com"); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Wait(ctx, "https://example.com"); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait on canceled context = %v, want context.Canceled", err)
	}
}
