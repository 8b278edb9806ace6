package twitch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/kbukum/streambot/httpclient"
	"github.com/kbukum/streambot/resilience"
)

const (
	defaultHelixURL = "https://api.twitch.tv/helix"
	defaultIDURL    = "https://id.twitch.tv/oauth2"
)

// Config holds API endpoints; both default to Twitch's.
type Config struct {
	HelixURL string `mapstructure:"helix_url"`
	IDURL    string `mapstructure:"id_url"`
}

// ApplyDefaults fills in the public endpoints.
func (c *Config) ApplyDefaults() {
	if c.HelixURL == "" {
		c.HelixURL = defaultHelixURL
	}
	if c.IDURL == "" {
		c.IDURL = defaultIDURL
	}
}

// Stream is a live stream as reported by Helix.
type Stream struct {
	ID          string    `json:"id"`
	UserLogin   string    `json:"user_login"`
	Title       string    `json:"title"`
	GameName    string    `json:"game_name"`
	ViewerCount int       `json:"viewer_count"`
	StartedAt   time.Time `json:"started_at"`
}

// TokenInfo is the identity behind an access token.
type TokenInfo struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	UserID    string   `json:"user_id"`
	Scopes    []string `json:"scopes"`
	ExpiresIn int      `json:"expires_in"`
}

// Client calls the Helix API with one credential.
type Client struct {
	helix  *httpclient.Client
	id     *httpclient.Client
	tokens oauth2.TokenSource
}

// NewClient builds a client. Helix requires the application's client id
// next to the bearer token.
func NewClient(cfg Config, clientID string, tokens oauth2.TokenSource) (*Client, error) {
	cfg.ApplyDefaults()
	helix, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.HelixURL,
		Timeout: 10 * time.Second,
		Headers: map[string]string{"Client-Id": clientID},
		Auth:    httpclient.TokenSourceAuth(tokens),
		Retry:   httpclient.DefaultRetryConfig(),
		Breaker: &resilience.BreakerConfig{Name: "twitch-helix", MaxFailures: 3, Cooldown: time.Minute},
	})
	if err != nil {
		return nil, fmt.Errorf("helix client: %w", err)
	}
	id, err := httpclient.New(httpclient.Config{BaseURL: cfg.IDURL, Timeout: 10 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("twitch id client: %w", err)
	}
	return &Client{helix: helix, id: id, tokens: tokens}, nil
}

// Stream returns the live stream of login, or nil when offline.
func (c *Client) Stream(ctx context.Context, login string) (*Stream, error) {
	resp, err := httpclient.Get[struct {
		Data []Stream `json:"data"`
	}](c.helix, ctx, "/streams", httpclient.WithQueryParam("user_login", login))
	if err != nil {
		return nil, fmt.Errorf("helix streams: %w", err)
	}
	if len(resp.Data.Data) == 0 {
		return nil, nil
	}
	s := resp.Data.Data[0]
	return &s, nil
}

// Validate resolves the token's owner. The id endpoint wants the "OAuth"
// scheme rather than "Bearer".
func (c *Client) Validate(ctx context.Context) (*TokenInfo, error) {
	auth := httpclient.CustomAuth(func(r *http.Request) error {
		tok, err := c.tokens.Token()
		if err != nil {
			return err
		}
		r.Header.Set("Authorization", "OAuth "+tok.AccessToken)
		return nil
	})
	resp, err := httpclient.Get[TokenInfo](c.id, ctx, "/validate", httpclient.WithRequestAuth(auth))
	if err != nil {
		return nil, fmt.Errorf("validate token: %w", err)
	}
	return &resp.Data, nil
}
