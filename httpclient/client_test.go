package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/kbukum/streambot/resilience"
)

func TestClient_DoJoinsBaseURLAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/me/player" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("market"); got != "from_token" {
			t.Errorf("market = %q", got)
		}
		if got := r.Header.Get("X-Client"); got != "streambot" {
			t.Errorf("X-Client = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "streambot" {
			t.Errorf("User-Agent = %q", got)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL + "/v1/", Headers: map[string]string{"X-Client": "streambot"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodGet,
		Path:   "/me/player",
		Query:  map[string]string{"market": "from_token"},
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusNoContent || !resp.IsSuccess() {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestClient_TokenSourceAuthReadsEachRequest(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
	}))
	defer srv.Close()

	src := &swappableSource{tok: &oauth2.Token{AccessToken: "first", TokenType: "Bearer"}}
	c, _ := New(Config{BaseURL: srv.URL, Auth: TokenSourceAuth(src)})

	_, _ = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	src.tok = &oauth2.Token{AccessToken: "second", TokenType: "Bearer"}
	_, _ = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/"})

	if len(seen) != 2 || seen[0] != "Bearer first" || seen[1] != "Bearer second" {
		t.Errorf("Authorization headers = %v", seen)
	}
}

func TestClient_RequestAuthOverridesClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer override" {
			t.Errorf("Authorization = %q", got)
		}
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Auth: BearerAuth("default")})
	if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Auth: BearerAuth("override")}); err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestClient_TokenSourceErrorIsAuth(t *testing.T) {
	c, _ := New(Config{BaseURL: "http://127.0.0.1:1", Auth: TokenSourceAuth(&swappableSource{err: errors.New("revoked")})})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet})
	if !IsAuth(err) {
		t.Fatalf("err = %v, want auth error", err)
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Retry: fastRetry()})
	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusOK || calls.Load() != 3 {
		t.Errorf("status = %d after %d calls", resp.StatusCode, calls.Load())
	}
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Retry: fastRetry()})
	resp, err := c.Do(context.Background(), Request{Method: http.MethodGet})
	if !IsNotFound(err) {
		t.Fatalf("err = %v, want not found", err)
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected the 404 response alongside the error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Breaker: &resilience.BreakerConfig{Name: "api", MaxFailures: 2, Cooldown: time.Hour}})
	for i := 0; i < 2; i++ {
		if _, err := c.Do(context.Background(), Request{Method: http.MethodGet}); !IsServerError(err) {
			t.Fatalf("call %d: err = %v", i, err)
		}
	}
	if c.BreakerState() != resilience.StateOpen {
		t.Fatalf("state = %s, want open", c.BreakerState())
	}
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("err = %v, want circuit open", err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestClient_NotFoundDoesNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, Breaker: &resilience.BreakerConfig{MaxFailures: 1}})
	for i := 0; i < 3; i++ {
		_, _ = c.Do(context.Background(), Request{Method: http.MethodGet})
	}
	if c.BreakerState() != resilience.StateClosed {
		t.Errorf("state = %s, want closed", c.BreakerState())
	}
}

func TestClient_ConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, _ := New(Config{BaseURL: url})
	_, err := c.Do(context.Background(), Request{Method: http.MethodGet})
	if !IsConnection(err) || !IsRetryable(err) {
		t.Fatalf("err = %v, want retryable connection error", err)
	}
}

func TestClient_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, _ := New(Config{BaseURL: srv.URL, Retry: fastRetry()})
	if _, err := c.Do(ctx, Request{Method: http.MethodGet}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestConfig_Defaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Timeout != defaultTimeout {
		t.Errorf("Timeout = %v", cfg.Timeout)
	}
	if err := (&Config{Timeout: -1}).Validate(); err == nil {
		t.Error("expected error for negative timeout")
	}
}

func fastRetry() *resilience.RetryConfig {
	return &resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}
}

type swappableSource struct {
	tok *oauth2.Token
	err error
}

func (s *swappableSource) Token() (*oauth2.Token, error) {
	return s.tok, s.err
}
