package player

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/kbukum/streambot/httpclient"
	"github.com/kbukum/streambot/resilience"
)

// Spotify is a Backend over the Spotify Web API.
type Spotify struct {
	client *httpclient.Client
	device string
}

var _ Backend = (*Spotify)(nil)

// NewSpotify builds a Spotify backend that authenticates with the current
// token of tokens on every call, so renewals are picked up as they happen.
func NewSpotify(cfg Config, tokens oauth2.TokenSource) (*Spotify, error) {
	client, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.APIURL,
		Timeout: 10 * time.Second,
		Auth:    httpclient.TokenSourceAuth(tokens),
		Retry:   httpclient.DefaultRetryConfig(),
		Breaker: &resilience.BreakerConfig{Name: "spotify", MaxFailures: 5, Cooldown: 30 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("spotify client: %w", err)
	}
	return &Spotify{client: client, device: cfg.Device}, nil
}

type spotifyTrack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	DurationMS int64  `json:"duration_ms"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
}

func (t *spotifyTrack) track() *Track {
	if t == nil {
		return nil
	}
	out := &Track{ID: t.ID, Name: t.Name, Duration: time.Duration(t.DurationMS) * time.Millisecond}
	for _, a := range t.Artists {
		out.Artists = append(out.Artists, a.Name)
	}
	return out
}

type currentlyPlaying struct {
	IsPlaying  bool          `json:"is_playing"`
	ProgressMS int64         `json:"progress_ms"`
	Item       *spotifyTrack `json:"item"`
}

// Current reads the currently playing track. Spotify answers 204 when no
// device is active.
func (s *Spotify) Current(ctx context.Context) (*Playback, error) {
	resp, err := httpclient.Get[*currentlyPlaying](s.client, ctx, "/me/player/currently-playing")
	if err != nil {
		return nil, fmt.Errorf("spotify currently-playing: %w", err)
	}
	cp := resp.Data
	if cp == nil || cp.Item == nil {
		return nil, nil
	}
	return &Playback{
		Track:    cp.Item.track(),
		Progress: time.Duration(cp.ProgressMS) * time.Millisecond,
		Playing:  cp.IsPlaying,
	}, nil
}

// Track looks up a track.
func (s *Spotify) Track(ctx context.Context, id string) (*Track, error) {
	resp, err := httpclient.Get[spotifyTrack](s.client, ctx, "/tracks/"+id)
	if err != nil {
		return nil, fmt.Errorf("spotify track %s: %w", id, err)
	}
	return resp.Data.track(), nil
}

// Enqueue adds a track to the device's play queue.
func (s *Spotify) Enqueue(ctx context.Context, id string) error {
	_, err := s.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/me/player/queue",
		Query:  s.query(map[string]string{"uri": trackURI(id)}),
	})
	if err != nil {
		return fmt.Errorf("spotify queue %s: %w", id, err)
	}
	return nil
}

// Play starts a track now.
func (s *Spotify) Play(ctx context.Context, id string) error {
	_, err := s.client.Do(ctx, httpclient.Request{
		Method: http.MethodPut,
		Path:   "/me/player/play",
		Query:  s.query(nil),
		Body:   map[string][]string{"uris": {trackURI(id)}},
	})
	if err != nil {
		return fmt.Errorf("spotify play %s: %w", id, err)
	}
	return nil
}

// Skip advances to the next track.
func (s *Spotify) Skip(ctx context.Context) error {
	_, err := s.client.Do(ctx, httpclient.Request{
		Method: http.MethodPost,
		Path:   "/me/player/next",
		Query:  s.query(nil),
	})
	if err != nil {
		return fmt.Errorf("spotify next: %w", err)
	}
	return nil
}

func (s *Spotify) query(q map[string]string) map[string]string {
	if s.device == "" {
		return q
	}
	if q == nil {
		q = make(map[string]string, 1)
	}
	q["device_id"] = s.device
	return q
}

func trackURI(id string) string {
	return "spotify:track:" + id
}
