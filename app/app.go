package app

import (
	"context"

	"github.com/kbukum/streambot/bootstrap"
	"github.com/kbukum/streambot/credential"
	"github.com/kbukum/streambot/database"
	"github.com/kbukum/streambot/errors"
	"github.com/kbukum/streambot/logger"
	"github.com/kbukum/streambot/notifier"
	"github.com/kbukum/streambot/observability"
	"github.com/kbukum/streambot/player"
	"github.com/kbukum/streambot/secrets"
	"github.com/kbukum/streambot/server"
)

// App is a configured streambot process.
type App struct {
	*bootstrap.App[*Config]

	cfg       *Config
	log       *logger.Logger
	web       *server.Server
	db        *database.Component
	notifier  *notifier.Notifier
	player    player.Slot
	callbacks *credential.Callbacks
	secrets   *secrets.Store
	conn      ConnFactory
	prompt    func(id credential.Identity, url string)
}

// New validates cfg, reads the secrets file and prepares every phase of
// the bootstrap. Nothing is started.
func New(cfg *Config, opts ...Option) (*App, error) {
	o := &options{conn: ircConn}
	for _, opt := range opts {
		opt(o)
	}

	var bopts []bootstrap.Option
	if o.logger != nil {
		bopts = append(bopts, bootstrap.WithLogger(o.logger))
	}
	base, err := bootstrap.NewApp(cfg, bopts...)
	if err != nil {
		return nil, err
	}

	a := &App{
		App:    base,
		cfg:    cfg,
		log:    base.Logger,
		conn:   o.conn,
		prompt: o.prompt,
	}
	a.notifier = notifier.New(a.log)
	a.player.Bind(player.Absent())

	if a.callbacks, err = credential.NewCallbacks(); err != nil {
		return nil, errors.Internal(err)
	}

	acq := o.acquirer
	if acq == nil {
		if a.secrets, err = secrets.Open(cfg.Secrets, cfg.SecretsIdentity); err != nil {
			return nil, err
		}
		if acq, err = a.oauth(); err != nil {
			return nil, err
		}
	}
	a.SetAcquirer(acq)

	if err := a.registerComponents(); err != nil {
		return nil, err
	}
	if err := a.RequireCredential(cfg.RequiredIdentities()...); err != nil {
		return nil, err
	}

	a.OnStart(a.startObservability)
	a.OnConfigure(func(ctx context.Context, _ *bootstrap.App[*Config]) error {
		return a.construct(ctx)
	})
	return a, nil
}

// Run builds the App for cfg and runs it until shutdown or the first
// failure.
func Run(ctx context.Context, cfg *Config, opts ...Option) error {
	a, err := New(cfg, opts...)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.App.Run(ctx)
}

// Web returns the web server.
func (a *App) Web() *server.Server { return a.web }

// Player returns the player capability; absent until construction decides.
func (a *App) Player() player.Handle { return a.player.Handle() }

// Notifier returns the notification hub.
func (a *App) Notifier() *notifier.Notifier { return a.notifier }

// oauth builds one flow per required identity from the secrets store.
func (a *App) oauth() (*credential.OAuth, error) {
	var cache credential.Cache
	if *a.cfg.TokenCache {
		fc, err := a.tokenCache()
		if err != nil {
			return nil, err
		}
		cache = fc
	}

	var flows []*credential.Flow
	for _, id := range a.cfg.RequiredIdentities() {
		var client credential.ClientCredentials
		if err := a.secrets.Load(id.Provider, &client); err != nil {
			return nil, errors.Acquisition(id.String(), err)
		}
		flow, err := credential.NewFlow(credential.FlowConfig{
			Identity:    id,
			Client:      client,
			Provider:    a.cfg.providerConfig(id.Provider),
			RedirectURL: a.cfg.Web.RedirectURL(redirectPath),
			Callbacks:   a.callbacks,
			Cache:       cache,
			Prompt:      a.prompt,
		})
		if err != nil {
			return nil, err
		}
		flows = append(flows, flow)
	}
	return credential.NewOAuth(flows...), nil
}

// twitchClientID returns the Twitch application id, empty without secrets.
func (a *App) twitchClientID() string {
	if a.secrets == nil {
		return ""
	}
	var client credential.ClientCredentials
	if err := a.secrets.Load(credential.TwitchStreamer.Provider, &client); err != nil {
		return ""
	}
	return client.ClientID
}

func (a *App) startObservability(ctx context.Context) error {
	shutdown, err := observability.Init(ctx, a.cfg.Observability, observability.ServiceInfo{
		Name:        a.cfg.Name,
		Version:     a.cfg.Version,
		Environment: a.cfg.Environment,
	})
	if err != nil {
		return errors.Configuration("observability: " + err.Error()).WithCause(err)
	}
	a.OnStop(shutdown)
	return nil
}
