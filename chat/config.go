package chat

import (
	"fmt"
	"strings"
	"time"
)

// Config is the [irc] section. Its presence enables the chat runtime and
// the bot credential.
type Config struct {
	// Channel is the channel to join, with or without the leading '#'.
	Channel string `mapstructure:"channel" validate:"required"`
	// Bot overrides the bot login; by default it is resolved from the bot token.
	Bot string `mapstructure:"bot"`
	// Moderators are extra users allowed to run moderator commands.
	Moderators []string `mapstructure:"moderators"`
	// Currency names the reward currency; required by !water.
	Currency *Currency `mapstructure:"currency"`
	// Aliases rewrite command lines before dispatch.
	Aliases []Alias `mapstructure:"aliases"`
	// Water configures the !water reward.
	Water WaterConfig `mapstructure:"water"`
	// MessagesPerSecond and Burst throttle outgoing chat.
	MessagesPerSecond float64 `mapstructure:"messages_per_second"`
	Burst             int     `mapstructure:"burst"`
	// StreamPoll is how often stream info is refreshed.
	StreamPoll time.Duration `mapstructure:"stream_poll"`
	// Server overrides the IRC address (host:port); it disables TLS.
	Server string `mapstructure:"server"`
}

// Currency is the reward currency.
type Currency struct {
	Name string `mapstructure:"name"`
}

// WaterConfig configures !water.
type WaterConfig struct {
	Cooldown time.Duration `mapstructure:"cooldown"`
}

// ApplyDefaults fills in unset fields.
func (c *Config) ApplyDefaults() {
	c.Channel = strings.ToLower(strings.TrimPrefix(c.Channel, "#"))
	if c.MessagesPerSecond == 0 {
		// Twitch allows 20 messages per 30 seconds for regular users.
		c.MessagesPerSecond = 20.0 / 30.0
	}
	if c.Burst == 0 {
		c.Burst = 3
	}
	if c.StreamPoll == 0 {
		c.StreamPoll = 30 * time.Second
	}
	if c.Water.Cooldown == 0 {
		c.Water.Cooldown = time.Minute
	}
}

// Validate checks required fields.
func (c *Config) Validate() error {
	if c.Channel == "" {
		return fmt.Errorf("irc.channel is required")
	}
	if c.MessagesPerSecond < 0 || c.Burst < 0 {
		return fmt.Errorf("irc rate limit must be non-negative")
	}
	for i, a := range c.Aliases {
		if !strings.HasPrefix(a.Match, "!") || len(a.Match) < 2 {
			return fmt.Errorf("irc.aliases[%d].match must be a !command (got: %q)", i, a.Match)
		}
	}
	return nil
}
