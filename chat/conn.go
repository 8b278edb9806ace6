package chat

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	twitchirc "github.com/gempir/go-twitch-irc/v4"
	"golang.org/x/oauth2"
)

// Message is one chat line.
type Message struct {
	ID          string
	Channel     string
	User        string
	DisplayName string
	Text        string
	// Moderator is set for the broadcaster and channel moderators.
	Moderator bool
}

// Conn is a chat connection.
type Conn interface {
	// Run joins channel and delivers messages to handle until ctx is done
	// or the connection fails for good.
	Run(ctx context.Context, channel string, handle func(Message)) error
	// Say sends text to channel.
	Say(channel, text string)
}

const disconnectTimeout = 5 * time.Second

// IRCConn is a Conn over Twitch IRC.
type IRCConn struct {
	client *twitchirc.Client
	tokens oauth2.TokenSource

	mu      sync.Mutex
	running bool
}

var _ Conn = (*IRCConn)(nil)

// NewIRCConn creates a connection for login. The password is read from
// tokens on every (re)connect so renewed bot tokens are used.
func NewIRCConn(login string, tokens oauth2.TokenSource, server string) (*IRCConn, error) {
	tok, err := tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("bot token: %w", err)
	}
	client := twitchirc.NewClient(login, "oauth:"+tok.AccessToken)
	if server != "" {
		client.IrcAddress = server
		client.TLS = false
	}
	return &IRCConn{client: client, tokens: tokens}, nil
}

// Run connects and blocks. gempir reconnects on its own; Run returns when
// ctx is cancelled (nil) or the client gives up (error).
func (c *IRCConn) Run(ctx context.Context, channel string, handle func(Message)) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return stderrors.New("irc connection already running")
	}
	c.running = true
	c.mu.Unlock()

	c.client.OnPrivateMessage(func(m twitchirc.PrivateMessage) {
		_, broadcaster := m.User.Badges["broadcaster"]
		_, moderator := m.User.Badges["moderator"]
		handle(Message{
			ID:          m.ID,
			Channel:     m.Channel,
			User:        strings.ToLower(m.User.Name),
			DisplayName: m.User.DisplayName,
			Text:        m.Message,
			Moderator:   broadcaster || moderator,
		})
	})
	c.client.Join(channel)

	stop := make(chan struct{})
	defer close(stop)
	go c.refreshToken(stop)

	errCh := make(chan error, 1)
	go func() { errCh <- c.client.Connect() }()

	select {
	case <-ctx.Done():
		_ = c.client.Disconnect()
		// Disconnect is a no-op while a reconnect is pending.
		select {
		case <-errCh:
		case <-time.After(disconnectTimeout):
		}
		return nil
	case err := <-errCh:
		if stderrors.Is(err, twitchirc.ErrClientDisconnected) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("irc: %w", err)
	}
}

// Say sends text to channel.
func (c *IRCConn) Say(channel, text string) {
	c.client.Say(channel, text)
}

// refreshToken keeps the reconnect password current.
func (c *IRCConn) refreshToken(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if tok, err := c.tokens.Token(); err == nil {
				c.client.SetIRCToken("oauth:" + tok.AccessToken)
			}
		}
	}
}
