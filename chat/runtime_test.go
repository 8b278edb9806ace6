package chat

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/streambot/feature"
	"github.com/kbukum/streambot/logger"
	"github.com/kbukum/streambot/task"
)

type fakeConn struct {
	mu      sync.Mutex
	said    []string
	handle  func(Message)
	ready   chan struct{}
	failErr chan error
}

func newFakeConn() *fakeConn {
	return &fakeConn{ready: make(chan struct{}), failErr: make(chan error, 1)}
}

func (f *fakeConn) Run(ctx context.Context, _ string, handle func(Message)) error {
	f.mu.Lock()
	f.handle = handle
	f.mu.Unlock()
	close(f.ready)
	select {
	case <-ctx.Done():
		return nil
	case err := <-f.failErr:
		return err
	}
}

func (f *fakeConn) Say(_ string, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.said = append(f.said, text)
}

func (f *fakeConn) send(m Message) {
	f.mu.Lock()
	h := f.handle
	f.mu.Unlock()
	h(m)
}

func (f *fakeConn) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.said...)
}

// waitSaid polls until n messages were sent.
func (f *fakeConn) waitSaid(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got := f.messages(); len(got) >= n {
			return got
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected %d messages, got %v", n, f.messages())
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	errors []map[string]interface{}
}

func (s *recordingSink) Error(_ string, fields ...map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range fields {
		s.errors = append(s.errors, f)
	}
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errors)
}

func testConfig() Config {
	cfg := Config{Channel: "#SetBac", MessagesPerSecond: 1000, Burst: 100}
	cfg.ApplyDefaults()
	return cfg
}

type harness struct {
	rt      *Runtime
	conn    *fakeConn
	sink    *recordingSink
	spawner *task.Spawner
	cancel  context.CancelFunc
	done    chan error
}

func startRuntime(t *testing.T, cfg Config, setup func(*Runtime), opts ...Option) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	sink := &recordingSink{}
	spawner := task.NewSpawner(ctx, sink)
	conn := newFakeConn()
	rt, err := New(cfg, conn, spawner, logger.NewDefault("test"), opts...)
	if err != nil {
		cancel()
		t.Fatalf("New: %v", err)
	}
	if setup != nil {
		setup(rt)
	}
	h := &harness{rt: rt, conn: conn, sink: sink, spawner: spawner, cancel: cancel, done: make(chan error, 1)}
	go func() { h.done <- rt.Run(ctx) }()
	<-conn.ready
	t.Cleanup(func() {
		cancel()
		<-h.done
	})
	return h
}

func msg(user, text string) Message {
	return Message{Channel: "#setbac", User: user, DisplayName: user, Text: text}
}

func TestRuntime_DispatchesCommand(t *testing.T) {
	h := startRuntime(t, testConfig(), func(rt *Runtime) {
		rt.Register("!ping", HandlerFunc(func(c *Context) error {
			c.Respond("pong " + c.Rest())
			return nil
		}))
	})

	h.conn.send(msg("alice", "!PING one two"))
	got := h.conn.waitSaid(t, 1)
	if got[0] != "alice -> pong one two" {
		t.Errorf("unexpected response %q", got[0])
	}
}

func TestRuntime_IgnoresPlainChat(t *testing.T) {
	called := false
	h := startRuntime(t, testConfig(), func(rt *Runtime) {
		rt.SetFallback(HandlerFunc(func(c *Context) error {
			called = true
			return nil
		}))
	})

	h.conn.send(msg("alice", "hello there"))
	h.conn.send(msg("alice", "!"))
	if called {
		t.Error("fallback must not run for non-commands")
	}
}

func TestRuntime_FallbackForUnknownCommand(t *testing.T) {
	h := startRuntime(t, testConfig(), func(rt *Runtime) {
		rt.SetFallback(HandlerFunc(func(c *Context) error {
			c.Privmsg("fallback " + c.Command())
			return nil
		}))
	})

	h.conn.send(msg("alice", "!discord"))
	if got := h.conn.waitSaid(t, 1); got[0] != "fallback discord" {
		t.Errorf("unexpected response %q", got[0])
	}
}

func TestRuntime_AliasRewritesLine(t *testing.T) {
	cfg := testConfig()
	cfg.Aliases = []Alias{{Match: "!sr", Replace: "!song request {{.Rest}}"}}
	h := startRuntime(t, cfg, func(rt *Runtime) {
		rt.Register("song", HandlerFunc(func(c *Context) error {
			sub := c.Next()
			c.Privmsg(sub + ":" + c.Rest())
			return nil
		}))
	})

	h.conn.send(msg("alice", "!sr spotify:track:abc"))
	if got := h.conn.waitSaid(t, 1); got[0] != "request:spotify:track:abc" {
		t.Errorf("unexpected response %q", got[0])
	}
}

func TestRuntime_BadWordGatedByFeature(t *testing.T) {
	words := NewWords()
	words.Insert(Word{Word: "Frick", Why: "Please keep it clean."})

	handled := make(chan struct{}, 1)
	setup := func(rt *Runtime) {
		rt.Register("say", HandlerFunc(func(c *Context) error {
			handled <- struct{}{}
			return nil
		}))
	}

	t.Run("enabled", func(t *testing.T) {
		h := startRuntime(t, testConfig(), setup, WithWords(words), WithFeatures(feature.Of(feature.BadWords)))
		h.conn.send(msg("bob", "!say oh FRICK."))
		if got := h.conn.waitSaid(t, 1); got[0] != "bob -> Please keep it clean." {
			t.Errorf("unexpected warning %q", got[0])
		}
		select {
		case <-handled:
			t.Error("command must not run after a bad word")
		default:
		}
	})

	t.Run("disabled", func(t *testing.T) {
		h := startRuntime(t, testConfig(), setup, WithWords(words))
		h.conn.send(msg("bob", "!say oh frick"))
		select {
		case <-handled:
		default:
			t.Fatal("expected the command to run when the feature is off")
		}
		if got := h.conn.messages(); len(got) != 0 {
			t.Errorf("expected no warning, got %v", got)
		}
	})
}

func TestRuntime_CheckModerator(t *testing.T) {
	cfg := testConfig()
	cfg.Moderators = []string{"Carol"}
	h := startRuntime(t, cfg, func(rt *Runtime) {
		rt.Register("mod", HandlerFunc(func(c *Context) error {
			if err := c.CheckModerator(); err != nil {
				return err
			}
			c.Respond("ok")
			return nil
		}))
	})

	h.conn.send(msg("alice", "!mod"))
	h.conn.send(msg("carol", "!mod"))
	h.conn.send(msg("setbac", "!mod"))
	badge := msg("dave", "!mod")
	badge.Moderator = true
	h.conn.send(badge)

	got := h.conn.waitSaid(t, 4)
	want := []string{
		"alice -> You need to be a moderator to use this command.",
		"carol -> ok",
		"setbac -> ok",
		"dave -> ok",
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRuntime_HandlerFailureDoesNotStopRuntime(t *testing.T) {
	h := startRuntime(t, testConfig(), func(rt *Runtime) {
		rt.Register("boom", HandlerFunc(func(c *Context) error {
			panic("handler bug")
		}))
		rt.Register("err", HandlerFunc(func(c *Context) error {
			return stderrors.New("nope")
		}))
		rt.Register("ping", HandlerFunc(func(c *Context) error {
			c.Privmsg("pong")
			return nil
		}))
	})

	h.conn.send(msg("alice", "!boom"))
	h.conn.send(msg("alice", "!err"))
	h.conn.send(msg("alice", "!ping"))
	if got := h.conn.waitSaid(t, 1); got[0] != "pong" {
		t.Errorf("unexpected response %q", got[0])
	}
	select {
	case err := <-h.done:
		t.Fatalf("runtime stopped: %v", err)
	default:
	}
}

func TestRuntime_DetachedFailureIsOnlyLogged(t *testing.T) {
	h := startRuntime(t, testConfig(), func(rt *Runtime) {
		rt.Register("water", HandlerFunc(func(c *Context) error {
			c.Respond("rewarded")
			c.Spawn("balance", func(context.Context) error {
				return stderrors.New("database is locked")
			})
			return nil
		}))
	})

	h.conn.send(msg("alice", "!water"))
	got := h.conn.waitSaid(t, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.spawner.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if h.sink.count() != 1 {
		t.Fatalf("expected the failure in the diagnostic sink, got %d entries", h.sink.count())
	}
	if got[0] != "alice -> rewarded" {
		t.Errorf("response changed: %q", got[0])
	}
	select {
	case err := <-h.done:
		t.Fatalf("runtime stopped after a detached failure: %v", err)
	default:
	}

	h.conn.send(msg("bob", "!water"))
	h.conn.waitSaid(t, 2)
}

func TestRuntime_ConnectionFailureIsFatal(t *testing.T) {
	h := startRuntime(t, testConfig(), nil)
	h.conn.failErr <- stderrors.New("login authentication failed")

	select {
	case err := <-h.done:
		if err == nil || !strings.Contains(err.Error(), "login authentication failed") {
			t.Fatalf("unexpected error %v", err)
		}
		h.done <- err
	case <-time.After(2 * time.Second):
		t.Fatal("runtime did not stop")
	}
}

func TestRuntime_ShutdownReturnsNil(t *testing.T) {
	h := startRuntime(t, testConfig(), nil)
	h.cancel()
	select {
	case err := <-h.done:
		if err != nil {
			t.Fatalf("expected nil on shutdown, got %v", err)
		}
		h.done <- nil
	case <-time.After(2 * time.Second):
		t.Fatal("runtime did not stop")
	}
}

func TestContext_Next(t *testing.T) {
	c := newContext(context.Background(), &Runtime{}, Message{}, "!song  request   abc def")
	if c.Command() != "song" {
		t.Fatalf("command = %q", c.Command())
	}
	if got := c.Next(); got != "request" {
		t.Errorf("Next() = %q", got)
	}
	if got := c.Rest(); got != "abc def" {
		t.Errorf("Rest() = %q", got)
	}
	c.Next()
	c.Next()
	if got := c.Next(); got != "" {
		t.Errorf("expected empty Next, got %q", got)
	}
}
