package credential

import (
	"context"
	stderrors "errors"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/kbukum/streambot/errors"
	"github.com/kbukum/streambot/logger"
)

// ClientCredentials are the OAuth client id and secret from the secrets store.
type ClientCredentials struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// FlowConfig configures one authorization flow.
type FlowConfig struct {
	Identity    Identity
	Client      ClientCredentials
	Provider    *ProviderConfig
	RedirectURL string
	Callbacks   *Callbacks
	// Cache is optional; without it every start is interactive.
	Cache Cache
	// Renewal configures the credential's renewal task.
	Renewal RenewalPolicy
	// Prompt shows the authorization URL to the operator. It defaults to a log line.
	Prompt func(id Identity, url string)
}

// Flow drives the authorization-code grant for one identity.
type Flow struct {
	id        Identity
	oauth     *oauth2.Config
	callbacks *Callbacks
	cache     Cache
	renewal   RenewalPolicy
	prompt    func(id Identity, url string)
	log       *logger.Logger
}

// NewFlow validates cfg and builds a flow. A build failure is an
// ACQUISITION_ERROR.
func NewFlow(cfg FlowConfig) (*Flow, error) {
	provider, ok := Providers[cfg.Identity.Provider]
	if !ok {
		return nil, errors.Acquisition(cfg.Identity.String(), fmt.Errorf("unsupported provider %q", cfg.Identity.Provider))
	}
	if cfg.Client.ClientID == "" || cfg.Client.ClientSecret == "" {
		return nil, errors.Acquisition(cfg.Identity.String(), stderrors.New("missing client_id or client_secret"))
	}
	if cfg.Callbacks == nil {
		return nil, errors.Acquisition(cfg.Identity.String(), stderrors.New("no callback registry"))
	}
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = DefaultRedirectURL
	}
	cfg.Renewal.applyDefaults()
	log := logger.WithComponent("credential").WithFields(logger.Fields(logger.FieldIdentity, cfg.Identity.String()))
	if cfg.Prompt == nil {
		cfg.Prompt = func(_ Identity, url string) {
			log.Info("authorization flow: open this URL to continue; startup waits until it completes",
				logger.Fields("url", url))
		}
	}

	return &Flow{
		id: cfg.Identity,
		oauth: &oauth2.Config{
			ClientID:     cfg.Client.ClientID,
			ClientSecret: cfg.Client.ClientSecret,
			Endpoint:     provider.endpoint(cfg.Provider),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       provider.scopes(cfg.Identity.Role, cfg.Provider),
		},
		callbacks: cfg.Callbacks,
		cache:     cfg.Cache,
		renewal:   cfg.Renewal,
		prompt:    cfg.Prompt,
		log:       log,
	}, nil
}

// Identity returns the identity this flow authorizes.
func (f *Flow) Identity() Identity { return f.id }

// Token obtains a token: a cached one is refreshed if possible, otherwise
// the operator is asked to authorize. It blocks until the redirect arrives
// or ctx is done.
func (f *Flow) Token(ctx context.Context) (*oauth2.Token, error) {
	if tok, err := f.fromCache(ctx); err == nil {
		return tok, nil
	} else if !stderrors.Is(err, ErrNotCached) {
		f.log.Warn("cached token unusable, authorizing again", logger.Fields(logger.FieldError, err.Error()))
	}

	tok, err := f.interactive(ctx)
	if err != nil {
		return nil, err
	}
	f.save(tok)
	return tok, nil
}

func (f *Flow) fromCache(ctx context.Context) (*oauth2.Token, error) {
	if f.cache == nil {
		return nil, ErrNotCached
	}
	cached, err := f.cache.Load(f.id)
	if err != nil {
		return nil, err
	}
	if cached.RefreshToken == "" {
		return nil, stderrors.New("cached token has no refresh token")
	}

	tok, err := f.refresh(ctx, cached.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh cached token: %w", err)
	}
	f.log.Info("authorized from cached token")
	f.save(tok)
	return tok, nil
}

func (f *Flow) interactive(ctx context.Context) (*oauth2.Token, error) {
	state, results, abandon, err := f.callbacks.Expect(f.id)
	if err != nil {
		return nil, errors.Acquisition(f.id.String(), err)
	}
	defer abandon()

	f.prompt(f.id, f.oauth.AuthCodeURL(state))

	var res Result
	select {
	case res = <-results:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if res.Error != "" {
		return nil, errors.Acquisition(f.id.String(), fmt.Errorf("provider rejected authorization: %s", res.Error))
	}
	if res.Code == "" {
		return nil, errors.Acquisition(f.id.String(), stderrors.New("redirect carried no code"))
	}

	tok, err := f.oauth.Exchange(ctx, res.Code)
	if err != nil {
		return nil, errors.Acquisition(f.id.String(), fmt.Errorf("exchange code: %w", err))
	}
	return tok, nil
}

// refresh exchanges a refresh token for a fresh token.
func (f *Flow) refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return f.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
}

func (f *Flow) save(tok *oauth2.Token) {
	if f.cache == nil {
		return
	}
	if err := f.cache.Store(f.id, tok); err != nil {
		f.log.Warn("failed to cache token", logger.Fields(logger.FieldError, err.Error()))
	}
}

// isRejected reports whether the provider refused a refresh token outright.
func isRejected(err error) bool {
	var re *oauth2.RetrieveError
	if !stderrors.As(err, &re) {
		return false
	}
	if re.ErrorCode == "invalid_grant" {
		return true
	}
	// Twitch answers a revoked refresh token with a bare 400.
	return re.Response != nil && re.Response.StatusCode == 400
}
