package player

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/streambot/errors"
	"github.com/kbukum/streambot/httpclient"
	"github.com/kbukum/streambot/logger"
	"github.com/kbukum/streambot/notifier"
	"github.com/kbukum/streambot/task"
)

// Player serves song requests: it queues them and hands each one to the
// device shortly before the current track ends.
type Player struct {
	backend Backend
	queue   *Queue
	notify  notifier.Publisher
	cfg     Config
	log     *logger.Logger
	now     func() time.Time

	mu        sync.RWMutex
	current   *Playback
	handedOff *Item
}

// New creates a Player. cfg must already carry defaults.
func New(cfg Config, backend Backend, notify notifier.Publisher, log *logger.Logger) *Player {
	if notify == nil {
		notify = notifier.Discard
	}
	return &Player{
		backend: backend,
		queue:   NewQueue(cfg.MaxQueueLength, cfg.MaxSongsPerUser),
		notify:  notify,
		cfg:     cfg,
		log:     log.WithComponent("player"),
		now:     time.Now,
	}
}

// Task returns Run as a join-set member.
func (p *Player) Task() task.Task {
	return task.New("player", p.Run)
}

// Request looks up ref and queues it for user.
func (p *Player) Request(ctx context.Context, user, ref string) (*Item, error) {
	id, err := ParseTrackID(ref)
	if err != nil {
		return nil, errors.InvalidInput("track", err.Error())
	}
	tr, err := p.backend.Track(ctx, id)
	if err != nil {
		if httpclient.IsNotFound(err) {
			return nil, errors.NotFound("track", id)
		}
		return nil, err
	}
	item := Item{Track: tr, User: user, AddedAt: p.now()}
	if err := p.queue.Push(item); err != nil {
		return nil, err
	}
	p.log.Info("Song requested", logger.Fields(logger.FieldUser, user, "track", tr.Title()))
	p.notify.Publish(notifier.Event{Type: notifier.EventQueue, Data: p.queue.List()})
	return &item, nil
}

// Current returns the last observed playback, or nil.
func (p *Player) Current() *Playback {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// List returns the queued requests.
func (p *Player) List() []Item {
	return p.queue.List()
}

// Skip advances the device to the next track.
func (p *Player) Skip(ctx context.Context) error {
	return p.backend.Skip(ctx)
}

// Run polls the device until ctx is cancelled. Transient API errors are
// logged; a rejected credential is fatal because renewal should have kept
// it valid.
func (p *Player) Run(ctx context.Context) error {
	p.log.Info("Player running", logger.Fields("poll_interval", p.cfg.PollInterval.String()))
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := p.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if httpclient.IsAuth(err) {
				return fmt.Errorf("player: %w", err)
			}
			p.log.Warn("Playback poll failed", logger.Fields(logger.FieldError, err.Error()))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// poll reads playback, announces track changes and feeds the queue to the
// device.
func (p *Player) poll(ctx context.Context) error {
	pb, err := p.backend.Current(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	prev := p.current
	p.current = pb
	changed := trackID(prev) != trackID(pb)
	if changed && p.handedOff != nil && p.handedOff.Track.ID == trackID(pb) {
		p.handedOff = nil
	}
	pending := p.handedOff != nil
	p.mu.Unlock()

	if changed && pb != nil {
		p.log.Info("Now playing", logger.Fields("track", pb.Track.Title()))
		p.notify.Publish(notifier.Event{Type: notifier.EventSong, Data: pb})
	}
	if pending {
		return nil
	}

	switch {
	case pb == nil || !pb.Playing:
		return p.feed(ctx, p.backend.Play)
	case pb.Remaining() <= 2*p.cfg.PollInterval:
		return p.feed(ctx, p.backend.Enqueue)
	}
	return nil
}

// feed pops the queue head and passes it to send. On failure the item is
// dropped, not retried forever.
func (p *Player) feed(ctx context.Context, send func(context.Context, string) error) error {
	item, ok := p.queue.Pop()
	if !ok {
		return nil
	}
	p.notify.Publish(notifier.Event{Type: notifier.EventQueue, Data: p.queue.List()})
	if err := send(ctx, item.Track.ID); err != nil {
		return fmt.Errorf("hand off %s: %w", item.Track.ID, err)
	}
	p.mu.Lock()
	p.handedOff = &item
	p.mu.Unlock()
	return nil
}

func trackID(pb *Playback) string {
	if pb == nil || pb.Track == nil {
		return ""
	}
	return pb.Track.ID
}

// IsRequestError reports whether err is the requester's fault (bad id,
// limits) rather than a backend failure.
func IsRequestError(err error) bool {
	return stderrors.Is(err, ErrQueueFull) || stderrors.Is(err, ErrUserLimit) || stderrors.Is(err, ErrDuplicate) ||
		errors.HasCode(err, errors.ErrCodeInvalidInput) || errors.HasCode(err, errors.ErrCodeNotFound)
}
