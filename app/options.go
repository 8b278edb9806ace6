package app

import (
	"golang.org/x/oauth2"

	"github.com/kbukum/streambot/chat"
	"github.com/kbukum/streambot/credential"
	"github.com/kbukum/streambot/logger"
)

// ConnFactory opens the chat connection for the bot login.
type ConnFactory func(login string, tokens oauth2.TokenSource, server string) (chat.Conn, error)

// Option configures an App.
type Option func(*options)

type options struct {
	acquirer credential.Acquirer
	logger   *logger.Logger
	conn     ConnFactory
	prompt   func(id credential.Identity, url string)
}

// WithAcquirer replaces the OAuth acquirer; the secrets file is then not read.
func WithAcquirer(acq credential.Acquirer) Option {
	return func(o *options) { o.acquirer = acq }
}

// WithLogger replaces the logger built from the config.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithConnFactory replaces the Twitch IRC connection.
func WithConnFactory(f ConnFactory) Option {
	return func(o *options) { o.conn = f }
}

// WithPrompt replaces how authorization URLs reach the operator.
func WithPrompt(prompt func(id credential.Identity, url string)) Option {
	return func(o *options) { o.prompt = prompt }
}

func ircConn(login string, tokens oauth2.TokenSource, server string) (chat.Conn, error) {
	return chat.NewIRCConn(login, tokens, server)
}
