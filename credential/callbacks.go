package credential

import (
	"crypto/rand"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kbukum/streambot/errors"
)

// ErrUnknownState is returned for a redirect whose state was not issued by
// this process or was already consumed.
var ErrUnknownState = stderrors.New("unknown authorization state")

// Result is what the provider sent back on the redirect.
type Result struct {
	Code  string
	Error string
}

// Callbacks pairs outgoing authorization requests with incoming redirects.
// The state parameter is an HS256 token signed with a per-process key, so
// forged or stale redirects are rejected before any lookup.
type Callbacks struct {
	key []byte

	mu      sync.Mutex
	pending map[string]chan Result
}

type stateClaims struct {
	jwt.RegisteredClaims
}

// NewCallbacks creates a registry with a fresh signing key.
func NewCallbacks() (*Callbacks, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate state key: %w", err)
	}
	return &Callbacks{key: key, pending: make(map[string]chan Result)}, nil
}

// Expect registers a pending authorization for id and returns the state to
// send, a channel that receives the redirect, and a function to abandon it.
func (c *Callbacks) Expect(id Identity) (string, <-chan Result, func(), error) {
	nonce := uuid.NewString()
	claims := stateClaims{RegisteredClaims: jwt.RegisteredClaims{
		ID:       nonce,
		Subject:  id.String(),
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}}
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", nil, nil, fmt.Errorf("sign state: %w", err)
	}

	ch := make(chan Result, 1)
	c.mu.Lock()
	c.pending[nonce] = ch
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		delete(c.pending, nonce)
		c.mu.Unlock()
	}
	return state, ch, cancel, nil
}

// Deliver routes a redirect to its pending authorization. It returns the
// identity the state was issued for. Invalid or unknown states are
// INVALID_INPUT errors and resolve nothing.
func (c *Callbacks) Deliver(state string, res Result) (string, error) {
	var claims stateClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", errors.InvalidInput("state", "invalid state").WithCause(err)
	}

	c.mu.Lock()
	ch, ok := c.pending[claims.ID]
	delete(c.pending, claims.ID)
	c.mu.Unlock()
	if !ok {
		return "", errors.InvalidInput("state", "unknown state").WithCause(ErrUnknownState)
	}

	ch <- res
	return claims.Subject, nil
}

// Pending returns the number of unresolved authorizations.
func (c *Callbacks) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
