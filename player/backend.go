package player

import "context"

// Backend controls a playback device.
type Backend interface {
	// Current returns the playback state; nil when nothing is loaded.
	Current(ctx context.Context) (*Playback, error)
	// Track looks up a track by id.
	Track(ctx context.Context, id string) (*Track, error)
	// Enqueue schedules a track to play after the current one.
	Enqueue(ctx context.Context, id string) error
	// Play starts a track immediately.
	Play(ctx context.Context, id string) error
	// Skip advances to the next track.
	Skip(ctx context.Context) error
}
