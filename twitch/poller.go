package twitch

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/kbukum/streambot/logger"
	"github.com/kbukum/streambot/resilience"
)

// StreamSource is the part of Client the poller needs.
type StreamSource interface {
	Stream(ctx context.Context, login string) (*Stream, error)
}

// Info holds the latest known stream state. The zero value reads offline.
type Info struct {
	stream atomic.Pointer[Stream]
}

// Stream returns the live stream, or nil when offline or unknown.
func (i *Info) Stream() *Stream {
	return i.stream.Load()
}

// StartedAt returns when the current stream started.
func (i *Info) StartedAt() (time.Time, bool) {
	if s := i.stream.Load(); s != nil {
		return s.StartedAt, true
	}
	return time.Time{}, false
}

// Set replaces the stream state; nil marks the channel offline.
func (i *Info) Set(s *Stream) {
	i.stream.Store(s)
}

// Poller refreshes Info for one channel.
type Poller struct {
	source   StreamSource
	channel  string
	interval time.Duration
	info     *Info
	log      *logger.Logger
}

// NewPoller creates a poller writing into info.
func NewPoller(source StreamSource, channel string, interval time.Duration, info *Info, log *logger.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Poller{
		source:   source,
		channel:  channel,
		interval: interval,
		info:     info,
		log:      log.WithComponent("stream-info"),
	}
}

// Run polls until ctx is cancelled. Errors are logged and the last known
// state is kept; the poller never fails its owner.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		p.poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	s, err := p.source.Stream(ctx, p.channel)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		fields := logger.Fields(logger.FieldChannel, p.channel, logger.FieldError, err.Error())
		if stderrors.Is(err, resilience.ErrCircuitOpen) {
			p.log.Debug("Stream info poll skipped", fields)
		} else {
			p.log.Warn("Stream info poll failed", fields)
		}
		return
	}

	prev := p.info.Stream()
	p.info.Set(s)
	switch {
	case prev == nil && s != nil:
		p.log.Info("Stream is live", logger.Fields(logger.FieldChannel, p.channel, "started_at", s.StartedAt.Format(time.RFC3339)))
	case prev != nil && s == nil:
		p.log.Info("Stream went offline", logger.Fields(logger.FieldChannel, p.channel))
	}
}
