package credential

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
)

// tokenServer is a fake provider token endpoint.
type tokenServer struct {
	*httptest.Server
	exchanges int32
	refreshes int32
}

func newTokenServer(t *testing.T) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.Form.Get("grant_type") {
		case "authorization_code":
			atomic.AddInt32(&ts.exchanges, 1)
			if r.Form.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
				return
			}
			writeToken(w, "access-1", "refresh-1")
		case "refresh_token":
			n := atomic.AddInt32(&ts.refreshes, 1)
			if r.Form.Get("refresh_token") == "revoked" {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
				return
			}
			writeToken(w, "access-refreshed-"+string(rune('0'+n)), "refresh-2")
		default:
			http.Error(w, "unsupported grant", http.StatusBadRequest)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func writeToken(w http.ResponseWriter, access, refresh string) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
		"expires_in":    3600,
	})
}

// newTestFlow builds a flow against ts whose prompt publishes the
// authorization URL on the returned channel.
func newTestFlow(t *testing.T, ts *tokenServer, id Identity, cb *Callbacks, cache Cache) (*Flow, <-chan string) {
	t.Helper()
	urls := make(chan string, 1)
	f, err := NewFlow(FlowConfig{
		Identity:  id,
		Client:    ClientCredentials{ClientID: "client", ClientSecret: "secret"},
		Provider:  &ProviderConfig{AuthURL: ts.URL + "/authorize", TokenURL: ts.URL + "/token"},
		Callbacks: cb,
		Cache:     cache,
		Prompt:    func(_ Identity, u string) { urls <- u },
	})
	if err != nil {
		t.Fatalf("NewFlow: %v", err)
	}
	return f, urls
}

func stateFrom(t *testing.T, authURL string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return u.Query().Get("state")
}
