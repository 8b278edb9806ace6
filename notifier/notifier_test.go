package notifier

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/streambot/logger"
)

func startNotifier(t *testing.T) (*Notifier, *httptest.Server, context.CancelFunc, chan error) {
	t.Helper()
	n := New(logger.NewDefault("test"))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Listen(ctx) }()

	gin.SetMode(gin.TestMode)
	e := gin.New()
	e.GET("/events", n.Handler())
	srv := httptest.NewServer(e)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return n, srv, cancel, done
}

// readData returns the payload of the next "data:" line.
func readData(t *testing.T, r *bufio.Reader) Event {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read stream: %v", err)
		}
		if strings.HasPrefix(line, "data: ") {
			var ev Event
			if err := json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &ev); err != nil {
				t.Fatalf("decode %q: %v", line, err)
			}
			return ev
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNotifier_StreamsPublishedEvents(t *testing.T) {
	n, srv, _, _ := startNotifier(t)

	resp, err := http.Get(srv.URL + "/events")
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	r := bufio.NewReader(resp.Body)
	if ev := readData(t, r); ev.Type != EventConnected {
		t.Fatalf("first event = %+v", ev)
	}
	waitFor(t, func() bool { return n.Subscribers() == 1 })

	n.Publish(Event{Type: EventSong, Data: map[string]string{"name": "Song"}})
	ev := readData(t, r)
	if ev.Type != EventSong {
		t.Fatalf("event = %+v", ev)
	}
	if data, _ := ev.Data.(map[string]interface{}); data["name"] != "Song" {
		t.Errorf("data = %v", ev.Data)
	}
}

func TestNotifier_ListenReturnsNilOnCancel(t *testing.T) {
	n, srv, cancel, done := startNotifier(t)

	resp, err := http.Get(srv.URL + "/events")
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	defer resp.Body.Close()
	waitFor(t, func() bool { return n.Subscribers() == 1 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Listen = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Listen did not return")
	}
	if n.Subscribers() != 0 {
		t.Errorf("subscribers after shutdown = %d", n.Subscribers())
	}
}

func TestNotifier_SubscribeAfterShutdown(t *testing.T) {
	_, srv, cancel, done := startNotifier(t)
	cancel()
	<-done

	resp, err := http.Get(srv.URL + "/events")
	if err != nil {
		t.Fatalf("GET /events: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestNotifier_PublishNeverBlocks(t *testing.T) {
	n := New(logger.NewDefault("test"))
	finished := make(chan struct{})
	go func() {
		for i := 0; i < cap(n.inbox)+10; i++ {
			n.Publish(Event{Type: EventQueue})
		}
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked without a listener")
	}
}

func TestClient_SendDropsWhenFull(t *testing.T) {
	c := newClient("c1", logger.NewDefault("test"))
	for i := 0; i < cap(c.events); i++ {
		if !c.send([]byte("x")) {
			t.Fatalf("send %d failed", i)
		}
	}
	if c.send([]byte("overflow")) {
		t.Error("expected send to fail when channel is full")
	}
}

func TestNotifier_TaskName(t *testing.T) {
	if got := New(logger.NewDefault("test")).Task().Name(); got != "notifier" {
		t.Errorf("Task name = %q", got)
	}
}
