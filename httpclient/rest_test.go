package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

type track struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestGet_DecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(track{ID: "t1", Name: "Song"})
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	resp, err := Get[track](c, context.Background(), "/tracks/t1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.Data.ID != "t1" || resp.Data.Name != "Song" {
		t.Errorf("Data = %+v", resp.Data)
	}
}

func TestGet_EmptyBodyLeavesZeroValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	resp, err := Get[*track](c, context.Background(), "/me/player")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.Data != nil {
		t.Errorf("Data = %+v, want nil", resp.Data)
	}
}

func TestPost_SendsJSONAndOptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if r.Header.Get("X-Trace") != "1" || r.URL.Query().Get("uri") != "spotify:track:t1" {
			t.Errorf("options not applied: %v %v", r.Header, r.URL.RawQuery)
		}
		var in track
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(in)
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	resp, err := Post[track](c, context.Background(), "/queue", track{ID: "t1"},
		WithHeader("X-Trace", "1"), WithQueryParam("uri", "spotify:track:t1"))
	if err != nil {
		t.Fatalf("Post: %v", err)
	}
	if resp.Data.ID != "t1" {
		t.Errorf("Data = %+v", resp.Data)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		check     func(error) bool
		retryable bool
	}{
		{http.StatusUnauthorized, IsAuth, false},
		{http.StatusForbidden, IsAuth, false},
		{http.StatusNotFound, IsNotFound, false},
		{http.StatusTooManyRequests, IsRateLimit, true},
		{http.StatusInternalServerError, IsServerError, true},
	}
	for _, tt := range tests {
		err := ClassifyStatusCode(tt.status, nil)
		if !tt.check(err) {
			t.Errorf("%d: wrong classification %v", tt.status, err)
		}
		if IsRetryable(err) != tt.retryable {
			t.Errorf("%d: retryable = %v", tt.status, IsRetryable(err))
		}
	}
	if ClassifyStatusCode(http.StatusOK, nil) != nil {
		t.Error("2xx must not classify as error")
	}
	if err := ClassifyStatusCode(http.StatusBadRequest, nil); err.Code != ErrCodeValidation {
		t.Errorf("400 code = %s", err.Code)
	}
}
