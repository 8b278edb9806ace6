package player

import (
	"fmt"
	"time"
)

// Config is the [player] section. Its presence, together with the song
// feature, enables the player.
type Config struct {
	// Device pins playback to a Spotify device id; empty uses the active device.
	Device string `mapstructure:"device"`
	// MaxQueueLength caps the song-request queue.
	MaxQueueLength int `mapstructure:"max_queue_length"`
	// MaxSongsPerUser caps queued requests per user.
	MaxSongsPerUser int `mapstructure:"max_songs_per_user"`
	// PollInterval is how often playback state is read.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// APIURL overrides the Spotify Web API base URL.
	APIURL string `mapstructure:"api_url"`
}

// ApplyDefaults fills in unset fields.
func (c *Config) ApplyDefaults() {
	if c.MaxQueueLength == 0 {
		c.MaxQueueLength = 30
	}
	if c.MaxSongsPerUser == 0 {
		c.MaxSongsPerUser = 2
	}
	if c.PollInterval == 0 {
		c.PollInterval = 5 * time.Second
	}
	if c.APIURL == "" {
		c.APIURL = "https://api.spotify.com/v1"
	}
}

// Validate checks the limits.
func (c *Config) Validate() error {
	if c.MaxQueueLength < 1 {
		return fmt.Errorf("player.max_queue_length must be positive (got: %d)", c.MaxQueueLength)
	}
	if c.MaxSongsPerUser < 1 {
		return fmt.Errorf("player.max_songs_per_user must be positive (got: %d)", c.MaxSongsPerUser)
	}
	if c.PollInterval < time.Second {
		return fmt.Errorf("player.poll_interval must be at least 1s (got: %s)", c.PollInterval)
	}
	return nil
}
