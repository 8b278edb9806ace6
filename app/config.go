package app

import (
	"fmt"
	"path/filepath"

	"github.com/kbukum/streambot/chat"
	"github.com/kbukum/streambot/config"
	"github.com/kbukum/streambot/credential"
	"github.com/kbukum/streambot/database"
	"github.com/kbukum/streambot/errors"
	"github.com/kbukum/streambot/feature"
	"github.com/kbukum/streambot/observability"
	"github.com/kbukum/streambot/player"
	"github.com/kbukum/streambot/server"
	"github.com/kbukum/streambot/twitch"
	"github.com/kbukum/streambot/validation"
)

const (
	defaultSecretsFile = "secrets.yml"
	logFileName        = "streambot.log"
)

// Config is the streambot configuration file. Optional sections are
// pointers: a nil section disables its subsystem.
type Config struct {
	config.ServiceConfig `mapstructure:",squash"`

	DatabaseURL string          `mapstructure:"database_url" validate:"required"`
	Database    database.Config `mapstructure:"database"`

	// BadWords is an optional YAML file merged into the stored bad words.
	BadWords string `mapstructure:"bad_words"`
	// Secrets defaults to secrets.yml next to the config file.
	Secrets string `mapstructure:"secrets"`
	// SecretsIdentity is the age identity for an encrypted secrets file.
	SecretsIdentity string `mapstructure:"secrets_identity"`

	Web       server.Config              `mapstructure:"web"`
	Spotify   *credential.ProviderConfig `mapstructure:"spotify"`
	Twitch    *credential.ProviderConfig `mapstructure:"twitch"`
	TwitchAPI twitch.Config              `mapstructure:"twitch_api"`
	Player    *player.Config             `mapstructure:"player"`
	IRC       *chat.Config               `mapstructure:"irc"`

	Features []string `mapstructure:"features"`
	// TokenCache persists tokens next to the config file; on by default.
	TokenCache *bool `mapstructure:"token_cache"`

	Observability observability.Config `mapstructure:"observability"`

	root     string
	features feature.Set
}

// Load reads the configuration file at path. Relative paths in it resolve
// against the file's directory. An unreadable file is a
// CONFIGURATION_ERROR; a missing one yields an empty config that fails
// validation.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := config.LoadConfig("streambot", cfg,
		config.WithConfigFile(path),
		config.WithSections("spotify", "twitch", "player", "irc"),
	); err != nil {
		return nil, errors.Configuration(err.Error()).WithCause(err)
	}
	cfg.SetRoot(config.Root(path))
	return cfg, nil
}

// SetRoot sets the directory relative paths resolve against and resolves
// the paths already set.
func (c *Config) SetRoot(root string) {
	c.root = root
	c.BadWords = config.Resolve(root, c.BadWords)
	c.Secrets = config.Resolve(root, c.Secrets)
	c.SecretsIdentity = config.Resolve(root, c.SecretsIdentity)
	c.Logging.File = config.Resolve(root, c.Logging.File)
}

// Root returns the configuration directory.
func (c *Config) Root() string {
	if c.root == "" {
		return "."
	}
	return c.root
}

// LogFile is where the CLI tees the log.
func (c *Config) LogFile() string {
	return filepath.Join(c.Root(), logFileName)
}

// ApplyDefaults fills in unset fields. It is idempotent.
func (c *Config) ApplyDefaults() {
	c.ServiceConfig.ApplyDefaults()
	c.Web.ApplyDefaults()
	c.TwitchAPI.ApplyDefaults()
	c.Observability.ApplyDefaults()

	c.Database.URL = c.DatabaseURL
	c.Database.ApplyDefaults()

	if c.Secrets == "" {
		c.Secrets = filepath.Join(c.Root(), defaultSecretsFile)
	}
	if c.TokenCache == nil {
		on := true
		c.TokenCache = &on
	}
	if c.Player != nil {
		c.Player.ApplyDefaults()
	}
	if c.IRC != nil {
		c.IRC.ApplyDefaults()
	}
}

// Validate checks the configuration. Every failure is a CONFIGURATION_ERROR.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return errors.Configuration(err.Error()).WithCause(err)
	}
	if err := validation.Config(c); err != nil {
		return err
	}

	checks := []func() error{c.Web.Validate, c.Database.Validate}
	if c.Player != nil {
		checks = append(checks, c.Player.Validate)
	}
	if c.IRC != nil {
		checks = append(checks, c.IRC.Validate)
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return errors.Configuration(err.Error()).WithCause(err)
		}
	}

	for _, id := range c.RequiredIdentities() {
		if c.providerConfig(id.Provider) == nil {
			return errors.Configuration(fmt.Sprintf("missing [%s] section, needed for the %s credential", id.Provider, id))
		}
	}

	set, err := feature.Parse(c.Features)
	if err != nil {
		return errors.Configuration(fmt.Sprintf("features: %v", err)).WithCause(err)
	}
	c.features = set
	return nil
}

// FeatureSet returns the parsed features. It is empty before Validate.
func (c *Config) FeatureSet() feature.Set {
	return c.features
}

// RequiredIdentities lists the credentials to acquire: Spotify and the
// streamer always, the bot account only with a chat section.
func (c *Config) RequiredIdentities() []credential.Identity {
	ids := []credential.Identity{credential.Spotify, credential.TwitchStreamer}
	if c.IRC != nil {
		ids = append(ids, credential.TwitchBot)
	}
	return ids
}

// providerConfig returns the section for provider, or nil.
func (c *Config) providerConfig(provider string) *credential.ProviderConfig {
	switch provider {
	case credential.Spotify.Provider:
		return c.Spotify
	case credential.TwitchStreamer.Provider:
		return c.Twitch
	}
	return nil
}
