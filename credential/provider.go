package credential

import (
	"golang.org/x/oauth2"
)

// DefaultRedirectURL is where providers send the operator back to; the web
// server's default address serves it.
const DefaultRedirectURL = "http://localhost:12345/redirect"

// ProviderConfig is the per-provider section of the configuration. The
// section must be present for every provider a credential is requested
// from; its fields are optional.
type ProviderConfig struct {
	// Scopes replaces the default scopes for every role of the provider.
	Scopes []string `mapstructure:"scopes"`
	// Roles replaces scopes for individual roles, e.g. roles.bot.
	Roles map[string][]string `mapstructure:"roles"`
	// AuthURL and TokenURL override the provider endpoints.
	AuthURL  string `mapstructure:"auth_url"`
	TokenURL string `mapstructure:"token_url"`
}

// Provider describes a supported authorization provider.
type Provider struct {
	Name          string
	Endpoint      oauth2.Endpoint
	DefaultScopes map[string][]string
}

// Providers lists the supported providers by name.
var Providers = map[string]Provider{
	"spotify": {
		Name: "spotify",
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.spotify.com/authorize",
			TokenURL:  "https://accounts.spotify.com/api/token",
			AuthStyle: oauth2.AuthStyleInHeader,
		},
		DefaultScopes: map[string][]string{
			"": {
				"playlist-read-collaborative",
				"playlist-read-private",
				"user-library-read",
				"user-modify-playback-state",
				"user-read-playback-state",
			},
		},
	},
	"twitch": {
		Name: "twitch",
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://id.twitch.tv/oauth2/authorize",
			TokenURL:  "https://id.twitch.tv/oauth2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		DefaultScopes: map[string][]string{
			"streamer": {"channel:manage:broadcast", "channel:read:subscriptions"},
			"bot":      {"chat:read", "chat:edit", "channel:moderate"},
		},
	},
}

// Endpoint returns the provider endpoint with configured overrides applied.
func (p Provider) endpoint(cfg *ProviderConfig) oauth2.Endpoint {
	ep := p.Endpoint
	if cfg == nil {
		return ep
	}
	if cfg.AuthURL != "" {
		ep.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		ep.TokenURL = cfg.TokenURL
	}
	return ep
}

// scopes resolves the scopes for a role: role override, then provider-wide
// override, then defaults.
func (p Provider) scopes(role string, cfg *ProviderConfig) []string {
	if cfg != nil {
		if s, ok := cfg.Roles[role]; ok {
			return s
		}
		if len(cfg.Scopes) > 0 {
			return cfg.Scopes
		}
	}
	return p.DefaultScopes[role]
}
