package app

import (
	"context"
	"fmt"

	"github.com/kbukum/streambot/chat"
	"github.com/kbukum/streambot/chat/module"
	"github.com/kbukum/streambot/credential"
	"github.com/kbukum/streambot/errors"
	"github.com/kbukum/streambot/feature"
	"github.com/kbukum/streambot/logger"
	"github.com/kbukum/streambot/player"
	"github.com/kbukum/streambot/twitch"
)

// construct is the subsystem factory. It runs once, after every credential
// was acquired, and appends one task per constructed subsystem.
func (a *App) construct(ctx context.Context) error {
	features := a.cfg.FeatureSet()

	if err := a.Go(a.notifier.Task()); err != nil {
		return err
	}

	handle, err := a.constructPlayer(features)
	if err != nil {
		return err
	}
	a.player.Bind(handle)

	if a.cfg.IRC == nil {
		a.log.Info("Chat disabled: no [irc] section")
		return nil
	}
	return a.constructChat(ctx, features, handle)
}

func (a *App) credentialFor(id credential.Identity) (*credential.Credential, error) {
	cred, ok := a.Credentials.Get(id)
	if !ok {
		return nil, errors.Acquisition(id.String(), fmt.Errorf("credential was not acquired"))
	}
	return cred, nil
}

// constructPlayer builds the player when [player] is present and the song
// feature is on; otherwise the capability is absent.
func (a *App) constructPlayer(features feature.Set) (player.Handle, error) {
	switch {
	case a.cfg.Player == nil:
		a.log.Info("Player disabled: no [player] section")
		return player.Absent(), nil
	case !feature.Enabled(feature.Song, features):
		a.log.Info("Player disabled: feature not enabled", logger.Fields("feature", string(feature.Song)))
		return player.Absent(), nil
	}

	cred, err := a.credentialFor(credential.Spotify)
	if err != nil {
		return player.Absent(), err
	}
	backend, err := player.NewSpotify(*a.cfg.Player, cred.Cell)
	if err != nil {
		return player.Absent(), errors.Configuration("player: " + err.Error()).WithCause(err)
	}
	p := player.New(*a.cfg.Player, backend, a.notifier, a.log)
	if err := a.Go(p.Task()); err != nil {
		return player.Absent(), err
	}
	return player.Present(p), nil
}

// constructChat builds the chat runtime with its command plugins.
func (a *App) constructChat(ctx context.Context, features feature.Set, handle player.Handle) error {
	cfg := *a.cfg.IRC
	log := a.log.WithComponent("chat").WithFields(logger.Fields(logger.FieldChannel, cfg.Channel))

	streamer, err := a.credentialFor(credential.TwitchStreamer)
	if err != nil {
		return err
	}
	bot, err := a.credentialFor(credential.TwitchBot)
	if err != nil {
		return err
	}

	store := a.db.Store()
	if store == nil {
		return errors.DatabaseError(fmt.Errorf("database is not started"))
	}

	words := chat.NewWords()
	if err := words.LoadFrom(ctx, store); err != nil {
		return errors.DatabaseError(err)
	}
	if a.cfg.BadWords != "" {
		if err := words.LoadFile(a.cfg.BadWords); err != nil {
			return errors.Configuration("bad_words: " + err.Error()).WithCause(err)
		}
	}

	clientID := a.twitchClientID()
	login := cfg.Bot
	if login == "" {
		ids, err := twitch.NewClient(a.cfg.TwitchAPI, clientID, bot.Cell)
		if err != nil {
			return err
		}
		info, err := ids.Validate(ctx)
		if err != nil {
			return errors.Acquisition(credential.TwitchBot.String(), err)
		}
		login = info.Login
	}

	helix, err := twitch.NewClient(a.cfg.TwitchAPI, clientID, streamer.Cell)
	if err != nil {
		return err
	}
	streamInfo := &twitch.Info{}
	poller := twitch.NewPoller(helix, cfg.Channel, cfg.StreamPoll, streamInfo, log)

	conn, err := a.conn(login, bot.Cell, cfg.Server)
	if err != nil {
		return errors.Acquisition(credential.TwitchBot.String(), err)
	}
	rt, err := chat.New(cfg, conn, a.Spawner(), log,
		chat.WithFeatures(features),
		chat.WithWords(words),
		chat.WithPoller(poller),
	)
	if err != nil {
		return errors.Configuration("irc: " + err.Error()).WithCause(err)
	}

	rt.Register("song", module.NewSong(handle))
	if feature.Enabled(feature.Water, features) {
		water, err := module.NewWater(cfg.Water, cfg.Currency, store, streamInfo, a.notifier)
		if err != nil {
			return errors.Configuration("irc: " + err.Error()).WithCause(err)
		}
		rt.Register("water", water)
	}
	if feature.Enabled(feature.Command, features) {
		commands, err := module.NewCommands(ctx, cfg.Channel, store)
		if err != nil {
			return errors.DatabaseError(err)
		}
		rt.Register("command", commands)
		rt.SetFallback(commands.Fallback())
	}

	log.Info("Chat enabled", logger.Fields(
		logger.FieldUser, login,
		"commands", rt.Commands(),
		"bad_words", words.Len(),
	))
	return a.Go(rt.Task())
}
