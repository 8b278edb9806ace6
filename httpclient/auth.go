package httpclient

import (
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
)

// AuthType identifies the authentication method.
type AuthType int

const (
	// AuthNone disables authentication.
	AuthNone AuthType = iota
	// AuthBearer uses a static Bearer token.
	AuthBearer
	// AuthTokenSource reads a Bearer token from an oauth2.TokenSource on
	// every request, so renewed tokens are picked up without rebuilding
	// the client.
	AuthTokenSource
	// AuthCustom uses a custom authentication function.
	AuthCustom
)

// AuthConfig configures request authentication.
type AuthConfig struct {
	// Type is the authentication method.
	Type AuthType
	// Token is the bearer token (AuthBearer).
	Token string
	// Source supplies tokens (AuthTokenSource).
	Source oauth2.TokenSource
	// Apply is a custom function to modify the request (AuthCustom).
	Apply func(*http.Request) error
}

// BearerAuth creates a bearer token auth config.
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Type: AuthBearer, Token: token}
}

// TokenSourceAuth authenticates with the current token of ts.
func TokenSourceAuth(ts oauth2.TokenSource) *AuthConfig {
	return &AuthConfig{Type: AuthTokenSource, Source: ts}
}

// CustomAuth creates a custom auth config with a request modifier function.
func CustomAuth(fn func(*http.Request) error) *AuthConfig {
	return &AuthConfig{Type: AuthCustom, Apply: fn}
}

// apply applies authentication to an HTTP request.
func (a *AuthConfig) apply(req *http.Request) error {
	if a == nil {
		return nil
	}
	switch a.Type {
	case AuthBearer:
		req.Header.Set("Authorization", "Bearer "+a.Token)
	case AuthTokenSource:
		tok, err := a.Source.Token()
		if err != nil {
			return fmt.Errorf("token: %w", err)
		}
		tok.SetAuthHeader(req)
	case AuthCustom:
		if a.Apply != nil {
			return a.Apply(req)
		}
	}
	return nil
}
