package chat

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kbukum/streambot/feature"
	"github.com/kbukum/streambot/logger"
	"github.com/kbukum/streambot/observability"
	"github.com/kbukum/streambot/task"
	"github.com/kbukum/streambot/twitch"
)

const outboxSize = 64

// Runtime is the chat bot: it reads the channel, filters bad words,
// rewrites aliases and dispatches commands.
type Runtime struct {
	cfg        Config
	conn       Conn
	spawner    *task.Spawner
	log        *logger.Logger
	features   feature.Set
	words      *Words
	aliases    *Aliases
	poller     *twitch.Poller
	moderators map[string]struct{}
	limiter    *rate.Limiter
	outbox     chan string

	mu       sync.RWMutex
	handlers map[string]Handler
	fallback Handler
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithFeatures sets the enabled features.
func WithFeatures(set feature.Set) Option {
	return func(r *Runtime) { r.features = set }
}

// WithWords sets the bad-word filter.
func WithWords(w *Words) Option {
	return func(r *Runtime) { r.words = w }
}

// WithPoller runs p alongside the connection.
func WithPoller(p *twitch.Poller) Option {
	return func(r *Runtime) { r.poller = p }
}

// New creates a runtime. cfg must have passed ApplyDefaults and Validate.
func New(cfg Config, conn Conn, spawner *task.Spawner, log *logger.Logger, opts ...Option) (*Runtime, error) {
	if log == nil {
		log = logger.WithComponent("chat")
	}
	aliases, err := CompileAliases(cfg.Aliases, log)
	if err != nil {
		return nil, err
	}
	r := &Runtime{
		cfg:        cfg,
		conn:       conn,
		spawner:    spawner,
		log:        log,
		words:      NewWords(),
		aliases:    aliases,
		moderators: make(map[string]struct{}),
		limiter:    rate.NewLimiter(rate.Limit(cfg.MessagesPerSecond), cfg.Burst),
		outbox:     make(chan string, outboxSize),
		handlers:   make(map[string]Handler),
	}
	r.moderators[cfg.Channel] = struct{}{}
	for _, m := range cfg.Moderators {
		r.moderators[strings.ToLower(m)] = struct{}{}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Register installs h for !name.
func (r *Runtime) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[strings.ToLower(strings.TrimPrefix(name, "!"))] = h
}

// SetFallback installs the handler for commands with no registered handler.
func (r *Runtime) SetFallback(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = h
}

// Commands returns the registered command names.
func (r *Runtime) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Task returns the runtime as a join-set member.
func (r *Runtime) Task() task.Task {
	return task.New("chat", r.Run)
}

// Say queues text for the channel. When the outbox is full the message is
// dropped.
func (r *Runtime) Say(text string) {
	select {
	case r.outbox <- text:
	default:
		r.log.Warn("Chat outbox full, dropping message", logger.Fields(logger.FieldChannel, r.cfg.Channel))
	}
}

// Run serves the channel until ctx is cancelled (nil) or the connection
// fails (error).
func (r *Runtime) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		r.send(runCtx)
	}()
	if r.poller != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.poller.Run(runCtx)
		}()
	}

	r.log.Info("Joining chat", logger.Fields(logger.FieldChannel, r.cfg.Channel))
	err := r.conn.Run(runCtx, r.cfg.Channel, func(m Message) { r.handle(runCtx, m) })
	cancel()
	wg.Wait()

	if ctx.Err() != nil {
		return nil
	}
	if err == nil {
		err = stderrors.New("connection closed")
	}
	return fmt.Errorf("chat %s: %w", r.cfg.Channel, err)
}

func (r *Runtime) send(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-r.outbox:
			if err := r.limiter.Wait(ctx); err != nil {
				return
			}
			r.conn.Say(r.cfg.Channel, text)
		}
	}
}

func (r *Runtime) isModerator(m Message) bool {
	if m.Moderator {
		return true
	}
	_, ok := r.moderators[strings.ToLower(m.User)]
	return ok
}

// handle processes one message. It never panics and never fails the runtime.
func (r *Runtime) handle(ctx context.Context, m Message) {
	if feature.Enabled(feature.BadWords, r.features) {
		if word, ok := r.words.Test(m.Text); ok {
			r.warnBadWord(m, word)
			return
		}
	}

	line := strings.TrimSpace(m.Text)
	if !strings.HasPrefix(line, "!") {
		return
	}
	if rewritten, ok := r.aliases.Lookup(line); ok {
		line = rewritten
	}

	c := newContext(ctx, r, m, line)
	if c.command == "" {
		return
	}

	r.mu.RLock()
	h, ok := r.handlers[c.command]
	if !ok {
		h = r.fallback
	}
	r.mu.RUnlock()
	if h == nil {
		return
	}

	start := time.Now()
	err := r.dispatch(h, c)
	observability.Default().RecordCommand(ctx, c.command, err)
	if err != nil && !stderrors.Is(err, ErrNotModerator) {
		r.log.Error("Command failed", logger.Fields(
			"command", c.command,
			logger.FieldUser, m.User,
			logger.FieldDuration, time.Since(start).Milliseconds(),
			logger.FieldError, err.Error(),
		))
	}
}

func (r *Runtime) dispatch(h Handler, c *Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return h.Handle(c)
}

func (r *Runtime) warnBadWord(m Message, word Word) {
	name := m.DisplayName
	if name == "" {
		name = m.User
	}
	text := fmt.Sprintf("%s -> Please don't use that word!", name)
	if word.Why != "" {
		text = fmt.Sprintf("%s -> %s", name, word.Why)
	}
	r.Say(text)
	r.log.Debug("Bad word used", logger.Fields(logger.FieldUser, m.User, "word", word.Word))
}
