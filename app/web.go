package app

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/streambot/credential"
	"github.com/kbukum/streambot/database"
	"github.com/kbukum/streambot/encryption"
	"github.com/kbukum/streambot/errors"
	"github.com/kbukum/streambot/logger"
	"github.com/kbukum/streambot/secrets"
	"github.com/kbukum/streambot/server"
)

const redirectPath = "/redirect"

// registerComponents adds the web server and the database. The web server
// goes first: it hosts the redirect target acquisition waits on.
func (a *App) registerComponents() error {
	a.web = server.New(a.cfg.Web, a.log)
	a.web.ApplyDefaults(a.cfg.Name, a.Components.HealthAll)
	a.routes(a.web.GinEngine())
	if err := a.RegisterComponent(server.NewComponent(a.web)); err != nil {
		return err
	}

	a.db = database.NewComponent(a.cfg.Database, a.log)
	return a.RegisterComponent(a.db)
}

func (a *App) routes(r *gin.Engine) {
	r.GET(redirectPath, a.handleRedirect)
	r.GET("/events", a.notifier.Handler())

	api := r.Group("/api")
	api.GET("/current", a.handleCurrent)
	api.GET("/queue", a.handleQueue)
}

// handleRedirect completes a pending authorization. A state this process
// did not issue is rejected and resolves nothing.
func (a *App) handleRedirect(c *gin.Context) {
	state := c.Query("state")
	if state == "" {
		server.RespondWithError(c, errors.InvalidInput("state", "missing"))
		return
	}
	res := credential.Result{Code: c.Query("code"), Error: c.Query("error")}
	identity, err := a.callbacks.Deliver(state, res)
	if err != nil {
		a.log.Warn("Rejected authorization redirect", logger.Fields(logger.FieldError, err.Error()))
		server.RespondWithError(c, err)
		return
	}
	if res.Error != "" {
		c.String(http.StatusOK, fmt.Sprintf("Authorization for %s was denied: %s", identity, res.Error))
		return
	}
	c.String(http.StatusOK, fmt.Sprintf("Authorization for %s received, you can close this window.", identity))
}

func (a *App) handleCurrent(c *gin.Context) {
	p, ok := a.player.Handle().Get()
	if !ok {
		server.RespondWithError(c, errors.NotFound("player", "current"))
		return
	}
	server.RespondOK(c, p.Current())
}

func (a *App) handleQueue(c *gin.Context) {
	p, ok := a.player.Handle().Get()
	if !ok {
		server.RespondWithError(c, errors.NotFound("player", "queue"))
		return
	}
	server.RespondOK(c, p.List())
}

// tokenCache stores tokens next to the config, sealed when the secrets
// carry a token_key.
func (a *App) tokenCache() (*credential.FileCache, error) {
	cache := &credential.FileCache{Dir: a.cfg.Root()}
	key, ok := a.secrets.String(secrets.KeyTokenKey)
	if !ok {
		return cache, nil
	}
	sealer, err := encryption.NewChaCha20(key)
	if err != nil {
		return nil, errors.Secrets(a.secrets.Path(), fmt.Errorf("token_key: %w", err))
	}
	cache.Sealer = sealer
	return cache, nil
}
