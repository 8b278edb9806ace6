package module

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kbukum/streambot/chat"
	"github.com/kbukum/streambot/logger"
	"github.com/kbukum/streambot/task"
)

type fakeConn struct {
	mu     sync.Mutex
	said   []string
	handle func(chat.Message)
	ready  chan struct{}
}

func (f *fakeConn) Run(ctx context.Context, _ string, handle func(chat.Message)) error {
	f.mu.Lock()
	f.handle = handle
	f.mu.Unlock()
	close(f.ready)
	<-ctx.Done()
	return nil
}

func (f *fakeConn) Say(_ string, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.said = append(f.said, text)
}

func (f *fakeConn) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.said...)
}

type countingSink struct {
	mu     sync.Mutex
	failed int
}

func (s *countingSink) Error(string, ...map[string]interface{}) {
	s.mu.Lock()
	s.failed++
	s.mu.Unlock()
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failed
}

type bot struct {
	t       *testing.T
	conn    *fakeConn
	sink    *countingSink
	spawner *task.Spawner
	done    chan error
}

func startBot(t *testing.T, cfg chat.Config, register func(rt *chat.Runtime)) *bot {
	t.Helper()
	if cfg.Channel == "" {
		cfg.Channel = "setbac"
	}
	cfg.MessagesPerSecond = 1000
	cfg.Burst = 100
	cfg.ApplyDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	b := &bot{
		t:    t,
		conn: &fakeConn{ready: make(chan struct{})},
		sink: &countingSink{},
		done: make(chan error, 1),
	}
	b.spawner = task.NewSpawner(ctx, b.sink)
	rt, err := chat.New(cfg, b.conn, b.spawner, logger.NewDefault("test"))
	if err != nil {
		cancel()
		t.Fatalf("chat.New: %v", err)
	}
	register(rt)
	go func() { b.done <- rt.Run(ctx) }()
	<-b.conn.ready
	t.Cleanup(func() {
		cancel()
		<-b.done
	})
	return b
}

func (b *bot) say(user, text string, moderator bool) {
	b.conn.mu.Lock()
	h := b.conn.handle
	b.conn.mu.Unlock()
	h(chat.Message{Channel: "setbac", User: user, DisplayName: user, Text: text, Moderator: moderator})
}

// settle waits for detached work spawned so far.
func (b *bot) settle() {
	b.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.spawner.Wait(ctx); err != nil {
		b.t.Fatalf("detached work did not finish: %v", err)
	}
}

// waitMessages polls until at least n messages were sent.
func (b *bot) waitMessages(n int) []string {
	deadline := time.Now().Add(2 * time.Second)
	var got []string
	for time.Now().Before(deadline) {
		if got = b.conn.messages(); len(got) >= n {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	return got
}

func (b *bot) expect(want ...string) {
	b.t.Helper()
	got := b.waitMessages(len(want))
	if len(got) != len(want) {
		b.t.Fatalf("messages = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			b.t.Errorf("message %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func (b *bot) running() bool {
	select {
	case err := <-b.done:
		b.done <- err
		return false
	default:
		return true
	}
}
