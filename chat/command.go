package chat

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/kbukum/streambot/task"
)

// ErrNotModerator is returned by CheckModerator for regular users. The
// runtime treats it as handled.
var ErrNotModerator = stderrors.New("moderator required")

// Handler handles one command. Returned errors are logged by the runtime
// and never reach the join set.
type Handler interface {
	Handle(c *Context) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(c *Context) error

// Handle calls f(c).
func (f HandlerFunc) Handle(c *Context) error { return f(c) }

// Context is the per-message command context.
type Context struct {
	ctx     context.Context
	rt      *Runtime
	msg     Message
	command string
	rest    string
}

func newContext(ctx context.Context, rt *Runtime, msg Message, line string) *Context {
	first, rest := splitFirst(line)
	return &Context{
		ctx:     ctx,
		rt:      rt,
		msg:     msg,
		command: strings.ToLower(strings.TrimPrefix(first, "!")),
		rest:    rest,
	}
}

// Context returns the runtime context; it is cancelled at shutdown.
func (c *Context) Context() context.Context { return c.ctx }

// Command returns the command name without the leading '!'.
func (c *Context) Command() string { return c.command }

// User returns the lowercase login of the sender.
func (c *Context) User() string { return c.msg.User }

// DisplayName returns the sender's display name, falling back to the login.
func (c *Context) DisplayName() string {
	if c.msg.DisplayName != "" {
		return c.msg.DisplayName
	}
	return c.msg.User
}

// Channel returns the channel the message arrived on.
func (c *Context) Channel() string { return c.msg.Channel }

// Streamer returns the channel owner.
func (c *Context) Streamer() string { return c.rt.cfg.Channel }

// Next consumes and returns the next argument, or "" when none is left.
func (c *Context) Next() string {
	next, rest := splitFirst(c.rest)
	c.rest = rest
	return next
}

// Rest returns the unconsumed arguments.
func (c *Context) Rest() string { return c.rest }

// IsModerator reports whether the sender may run moderator commands.
func (c *Context) IsModerator() bool { return c.rt.isModerator(c.msg) }

// CheckModerator answers regular users and returns ErrNotModerator.
func (c *Context) CheckModerator() error {
	if c.IsModerator() {
		return nil
	}
	c.Respond("You need to be a moderator to use this command.")
	return ErrNotModerator
}

// Respond answers the sender.
func (c *Context) Respond(text string) {
	c.rt.Say(fmt.Sprintf("%s -> %s", c.DisplayName(), text))
}

// Privmsg says text in the channel.
func (c *Context) Privmsg(text string) {
	c.rt.Say(text)
}

// Spawn runs d detached. Its failure is only logged; whatever was already
// said stays said.
func (c *Context) Spawn(name string, d task.Detached) {
	c.rt.spawner.Spawn(c.command+"/"+name, d)
}
