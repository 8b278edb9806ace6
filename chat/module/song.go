package module

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/kbukum/streambot/chat"
	"github.com/kbukum/streambot/errors"
	"github.com/kbukum/streambot/player"
)

const listLimit = 5

// Song implements !song against the player, which may be absent.
type Song struct {
	player player.Handle
}

// NewSong creates the handler.
func NewSong(h player.Handle) *Song {
	return &Song{player: h}
}

// Handle runs !song request|current|list|skip.
func (s *Song) Handle(c *chat.Context) error {
	p, ok := s.player.Get()
	if !ok {
		c.Respond("Song requests are currently not available.")
		return nil
	}

	switch c.Next() {
	case "request":
		ref := c.Next()
		if ref == "" {
			c.Respond("Expected: !song request <spotify track id or link>")
			return nil
		}
		user := c.User()
		c.Spawn("request", func(ctx context.Context) error {
			item, err := p.Request(ctx, user, ref)
			if err != nil {
				if player.IsRequestError(err) {
					c.Respond(requestErrorMessage(err))
					return nil
				}
				c.Respond("Failed to request song, please try again later.")
				return err
			}
			c.Respond(fmt.Sprintf("Added %s to the queue.", item.Track.Title()))
			return nil
		})
	case "current":
		pb := p.Current()
		if pb == nil || pb.Track == nil {
			c.Respond("No song is currently playing.")
			return nil
		}
		c.Respond(fmt.Sprintf("Current song: %s", pb.Track.Title()))
	case "list":
		items := p.List()
		if len(items) == 0 {
			c.Respond("The queue is empty.")
			return nil
		}
		titles := make([]string, 0, listLimit)
		for i, item := range items {
			if i == listLimit {
				break
			}
			titles = append(titles, fmt.Sprintf("#%d %s (%s)", i+1, item.Track.Title(), item.User))
		}
		text := strings.Join(titles, ", ")
		if more := len(items) - len(titles); more > 0 {
			text += fmt.Sprintf(" ... and %d more", more)
		}
		c.Respond(text)
	case "skip":
		if err := c.CheckModerator(); err != nil {
			return err
		}
		c.Spawn("skip", func(ctx context.Context) error {
			if err := p.Skip(ctx); err != nil {
				c.Respond("Failed to skip the song.")
				return err
			}
			return nil
		})
	default:
		c.Respond("Expected: !song request, !song current, !song list, or !song skip.")
	}
	return nil
}

func requestErrorMessage(err error) string {
	switch {
	case stderrors.Is(err, player.ErrQueueFull):
		return "The queue is full, try again later."
	case stderrors.Is(err, player.ErrUserLimit):
		return "You already have the maximum number of songs in the queue."
	case stderrors.Is(err, player.ErrDuplicate):
		return "That song is already in the queue."
	case errors.HasCode(err, errors.ErrCodeNotFound):
		return "Could not find that song."
	default:
		return "Expected a Spotify track id or link."
	}
}
