package app

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/kbukum/streambot/chat"
	"github.com/kbukum/streambot/config"
	"github.com/kbukum/streambot/credential"
	"github.com/kbukum/streambot/errors"
	"github.com/kbukum/streambot/logger"
	"github.com/kbukum/streambot/player"
	"github.com/kbukum/streambot/server"
	"github.com/kbukum/streambot/task"
)

type fakeAcquirer struct {
	mu        sync.Mutex
	requested []credential.Identity
	fail      map[credential.Identity]error
}

func (f *fakeAcquirer) Acquire(ctx context.Context, id credential.Identity) (*credential.Credential, task.Task, error) {
	f.mu.Lock()
	f.requested = append(f.requested, id)
	f.mu.Unlock()
	if err, ok := f.fail[id]; ok {
		return nil, nil, errors.Acquisition(id.String(), err)
	}
	cell := credential.NewCell(&oauth2.Token{AccessToken: "tok-" + id.String(), Expiry: time.Now().Add(time.Hour)})
	renew := task.New("renew:"+id.String(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	return &credential.Credential{Identity: id, Cell: cell}, renew, nil
}

func (f *fakeAcquirer) identities() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requested))
	for i, id := range f.requested {
		out[i] = id.String()
	}
	sort.Strings(out)
	return out
}

type idleConn struct{}

func (idleConn) Run(ctx context.Context, _ string, _ func(chat.Message)) error {
	<-ctx.Done()
	return nil
}

func (idleConn) Say(string, string) {}

func fakeConn(string, oauth2.TokenSource, string) (chat.Conn, error) {
	return idleConn{}, nil
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func newTestConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		ServiceConfig: config.ServiceConfig{Environment: "development"},
		DatabaseURL:   ":memory:",
		Web:           server.Config{Host: "127.0.0.1", Port: freePort(t)},
		Spotify:       &credential.ProviderConfig{},
		Twitch:        &credential.ProviderConfig{},
	}
}

func newTestApp(t *testing.T, cfg *Config, acq credential.Acquirer) *App {
	t.Helper()
	a, err := New(cfg,
		WithAcquirer(acq),
		WithLogger(logger.NewDefault("test")),
		WithConnFactory(fakeConn),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.Summary.SetOutput(io.Discard)
	return a
}

func startTestApp(t *testing.T, cfg *Config, acq credential.Acquirer) *App {
	t.Helper()
	a := newTestApp(t, cfg, acq)
	ctx, cancel := context.WithCancel(context.Background())
	if err := a.Start(ctx); err != nil {
		cancel()
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() {
		cancel()
		a.Shutdown(context.Background())
	})
	return a
}

func get(a *App, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Web().GinEngine().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestApp_NoPlayerNoChat(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Features = []string{"song"}
	acq := &fakeAcquirer{}
	a := startTestApp(t, cfg, acq)

	if got := acq.identities(); strings.Join(got, ",") != "spotify,twitch-streamer" {
		t.Errorf("requested %v, want spotify and twitch-streamer", got)
	}
	want := []string{"web", "renew:spotify", "renew:twitch-streamer", "notifier"}
	got := a.Tasks()
	sort.Strings(got)
	sort.Strings(want)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("tasks = %v, want %v", got, want)
	}
	if _, ok := a.Player().Get(); ok {
		t.Error("expected an absent player")
	}

	rec := get(a, "/api/queue")
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "NOT_FOUND") {
		t.Errorf("GET /api/queue = %d %s", rec.Code, rec.Body.String())
	}
}

func TestApp_PlayerGatedByFeature(t *testing.T) {
	tests := []struct {
		name     string
		features []string
		present  bool
	}{
		{"feature on", []string{"song"}, true},
		{"feature off", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestConfig(t)
			cfg.Features = tt.features
			cfg.Player = &player.Config{}
			a := startTestApp(t, cfg, &fakeAcquirer{})

			_, ok := a.Player().Get()
			if ok != tt.present {
				t.Fatalf("player present = %v, want %v", ok, tt.present)
			}
			hasTask := false
			for _, name := range a.Tasks() {
				if name == "player" {
					hasTask = true
				}
			}
			if hasTask != tt.present {
				t.Errorf("player task = %v, want %v (tasks %v)", hasTask, tt.present, a.Tasks())
			}

			rec := get(a, "/api/queue")
			if tt.present && rec.Code != http.StatusOK {
				t.Errorf("GET /api/queue = %d, want 200", rec.Code)
			}
		})
	}
}

func TestApp_ChatRequiresBotCredential(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Features = []string{"water", "command", "bad-words"}
	cfg.IRC = &chat.Config{Channel: "setbac", Bot: "setbot", Currency: &chat.Currency{Name: "thalers"}}
	acq := &fakeAcquirer{}
	a := startTestApp(t, cfg, acq)

	if got := acq.identities(); strings.Join(got, ",") != "spotify,twitch-bot,twitch-streamer" {
		t.Errorf("requested %v", got)
	}
	found := false
	for _, name := range a.Tasks() {
		if name == "chat" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a chat task, got %v", a.Tasks())
	}
}

func TestApp_WaterWithoutCurrencyFails(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Features = []string{"water"}
	cfg.IRC = &chat.Config{Channel: "setbac", Bot: "setbot"}
	a := newTestApp(t, cfg, &fakeAcquirer{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err := a.Start(ctx)
	a.Shutdown(context.Background())
	if !errors.HasCode(err, errors.ErrCodeConfiguration) {
		t.Fatalf("expected CONFIGURATION_ERROR, got %v", err)
	}
}

func TestApp_AcquisitionFailureConstructsNothing(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.IRC = &chat.Config{Channel: "setbac", Bot: "setbot"}
	acq := &fakeAcquirer{fail: map[credential.Identity]error{credential.TwitchBot: stderrors.New("access_denied")}}
	a := newTestApp(t, cfg, acq)

	err := a.Run(context.Background())
	if !errors.HasCode(err, errors.ErrCodeAcquisition) {
		t.Fatalf("expected ACQUISITION_ERROR, got %v", err)
	}
	if tasks := a.Tasks(); len(tasks) != 1 || tasks[0] != "web" {
		t.Errorf("expected only the web task, got %v", tasks)
	}
}

func TestApp_Redirect(t *testing.T) {
	a := startTestApp(t, newTestConfig(t), &fakeAcquirer{})

	rec := get(a, "/redirect?state=forged&code=abc")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("forged state: status = %d, want 400", rec.Code)
	}
	if rec := get(a, "/redirect?code=abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing state: status = %d, want 400", rec.Code)
	}

	state, results, abandon, err := a.callbacks.Expect(credential.Spotify)
	if err != nil {
		t.Fatalf("Expect: %v", err)
	}
	defer abandon()

	rec = get(a, "/redirect?state="+state+"&code=abc")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "spotify") {
		t.Errorf("valid state: %d %s", rec.Code, rec.Body.String())
	}
	select {
	case res := <-results:
		if res.Code != "abc" {
			t.Errorf("code = %q", res.Code)
		}
	default:
		t.Fatal("expected the redirect to resolve the flow")
	}

	if rec := get(a, "/redirect?state="+state+"&code=abc"); rec.Code != http.StatusBadRequest {
		t.Errorf("replayed state: status = %d, want 400", rec.Code)
	}
}

// tokenEndpoint answers code exchanges with an access token naming the code.
func tokenEndpoint(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "authorization_code" {
			http.Error(w, `{"error":"invalid_request"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"tok-`+r.Form.Get("code")+`","token_type":"bearer","refresh_token":"r","expires_in":3600}`)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestApp_InteractiveLoginDuringStart(t *testing.T) {
	provider := tokenEndpoint(t)
	cfg := newTestConfig(t)
	cfg.Spotify = &credential.ProviderConfig{AuthURL: provider.URL + "/authorize", TokenURL: provider.URL + "/token"}
	cfg.Twitch = &credential.ProviderConfig{AuthURL: provider.URL + "/authorize", TokenURL: provider.URL + "/token"}
	off := false
	cfg.TokenCache = &off
	cfg.Secrets = filepath.Join(t.TempDir(), "secrets.yml")
	secretsFile := "spotify:\n  client_id: s-id\n  client_secret: s-secret\n" +
		"twitch:\n  client_id: t-id\n  client_secret: t-secret\n"
	if err := os.WriteFile(cfg.Secrets, []byte(secretsFile), 0o600); err != nil {
		t.Fatal(err)
	}

	// The operator's browser: follow the authorization URL back to the
	// bound port while Start is still waiting on acquisition.
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		statuses = map[string]int{}
		target   *App
	)
	client := &http.Client{Timeout: 2 * time.Second}
	prompt := func(id credential.Identity, authURL string) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := -1
			defer func() {
				mu.Lock()
				statuses[id.String()] = status
				mu.Unlock()
			}()
			u, err := url.Parse(authURL)
			if err != nil {
				return
			}
			q := url.Values{"state": {u.Query().Get("state")}, "code": {id.String()}}
			resp, err := client.Get("http://" + target.Web().Addr() + "/redirect?" + q.Encode())
			if err != nil {
				return
			}
			resp.Body.Close()
			status = resp.StatusCode
		}()
	}

	a, err := New(cfg,
		WithPrompt(prompt),
		WithLogger(logger.NewDefault("test")),
		WithConnFactory(fakeConn),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.Summary.SetOutput(io.Discard)
	target = a

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	t.Cleanup(func() { a.Shutdown(context.Background()) })
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	wg.Wait()

	for _, id := range []credential.Identity{credential.Spotify, credential.TwitchStreamer} {
		cred, ok := a.Credentials.Get(id)
		if !ok || cred.Cell.AccessToken() != "tok-"+id.String() {
			t.Errorf("%s: credential %+v", id, cred)
		}
		mu.Lock()
		status := statuses[id.String()]
		mu.Unlock()
		if status != http.StatusOK {
			t.Errorf("%s: redirect status = %d, want 200", id, status)
		}
	}
}

func TestApp_RunShutdown(t *testing.T) {
	a := newTestApp(t, newTestConfig(t), &fakeAcquirer{})
	ctx, cancel := context.WithCancel(context.Background())
	a.OnReady(func(context.Context) error {
		cancel()
		return nil
	})
	if err := a.Run(ctx); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
}
