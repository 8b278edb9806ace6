package module

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"github.com/kbukum/streambot/chat"
	"github.com/kbukum/streambot/database"
)

// CommandStore persists custom commands.
type CommandStore interface {
	Commands(ctx context.Context, channel string) ([]database.Command, error)
	EditCommand(ctx context.Context, channel, name, text string) error
	DeleteCommand(ctx context.Context, channel, name string) (bool, error)
}

// commandData is what a custom command template can reference.
type commandData struct {
	Name     string
	User     string
	Streamer string
	Rest     string
}

// Commands implements !command and answers stored custom commands as the
// runtime fallback. The in-memory copy is authoritative; writes are
// persisted detached.
type Commands struct {
	store   CommandStore
	channel string

	mu       sync.RWMutex
	commands map[string]customCommand
}

type customCommand struct {
	text string
	// tmpl is nil for stored text that does not parse; it is served verbatim.
	tmpl *template.Template
}

func (cc customCommand) render(data commandData) (string, error) {
	if cc.tmpl == nil {
		return cc.text, nil
	}
	var b strings.Builder
	if err := cc.tmpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// NewCommands loads the stored commands of channel.
func NewCommands(ctx context.Context, channel string, store CommandStore) (*Commands, error) {
	rows, err := store.Commands(ctx, channel)
	if err != nil {
		return nil, fmt.Errorf("load commands: %w", err)
	}
	c := &Commands{store: store, channel: channel, commands: make(map[string]customCommand, len(rows))}
	for _, row := range rows {
		tmpl, _ := parseCommand(row.Name, row.Text)
		c.commands[row.Name] = customCommand{text: row.Text, tmpl: tmpl}
	}
	return c, nil
}

func parseCommand(name, text string) (*template.Template, error) {
	return template.New(name).Option("missingkey=error").Parse(text)
}

// Names returns the custom command names.
func (m *Commands) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.commands))
	for name := range m.commands {
		names = append(names, name)
	}
	return names
}

// Handle runs !command edit|delete.
func (m *Commands) Handle(c *chat.Context) error {
	switch c.Next() {
	case "edit":
		if err := c.CheckModerator(); err != nil {
			return err
		}
		name := strings.ToLower(strings.TrimPrefix(c.Next(), "!"))
		text := c.Rest()
		if name == "" || text == "" {
			c.Respond("Expected: !command edit <name> <text>")
			return nil
		}
		tmpl, err := parseCommand(name, text)
		if err != nil {
			c.Respond("Bad command template: " + err.Error())
			return nil
		}
		m.mu.Lock()
		m.commands[name] = customCommand{text: text, tmpl: tmpl}
		m.mu.Unlock()
		c.Respond(fmt.Sprintf("Edited command !%s.", name))

		c.Spawn("edit", func(ctx context.Context) error {
			return m.store.EditCommand(ctx, m.channel, name, text)
		})
	case "delete":
		if err := c.CheckModerator(); err != nil {
			return err
		}
		name := strings.ToLower(strings.TrimPrefix(c.Next(), "!"))
		if name == "" {
			c.Respond("Expected: !command delete <name>")
			return nil
		}
		m.mu.Lock()
		_, ok := m.commands[name]
		delete(m.commands, name)
		m.mu.Unlock()
		if !ok {
			c.Respond(fmt.Sprintf("No such command: !%s", name))
			return nil
		}
		c.Respond(fmt.Sprintf("Deleted command !%s.", name))

		c.Spawn("delete", func(ctx context.Context) error {
			_, err := m.store.DeleteCommand(ctx, m.channel, name)
			return err
		})
	default:
		c.Respond("Expected: !command edit, or !command delete.")
	}
	return nil
}

// Fallback answers !<name> for stored commands.
func (m *Commands) Fallback() chat.Handler {
	return chat.HandlerFunc(func(c *chat.Context) error {
		m.mu.RLock()
		cmd, ok := m.commands[c.Command()]
		m.mu.RUnlock()
		if !ok {
			return nil
		}
		text, err := cmd.render(commandData{
			Name:     c.Command(),
			User:     c.DisplayName(),
			Streamer: c.Streamer(),
			Rest:     c.Rest(),
		})
		if err != nil {
			return fmt.Errorf("render !%s: %w", c.Command(), err)
		}
		c.Privmsg(text)
		return nil
	})
}
