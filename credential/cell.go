package credential

import (
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"
)

// ErrEmptyCell is returned when a cell has never held a token.
var ErrEmptyCell = errors.New("credential cell is empty")

// Cell is a shared, atomically swapped token slot. Readers always observe a
// complete token; writers replace the whole value.
type Cell struct {
	tok atomic.Pointer[oauth2.Token]
}

var _ oauth2.TokenSource = (*Cell)(nil)

// NewCell creates a cell holding tok.
func NewCell(tok *oauth2.Token) *Cell {
	c := &Cell{}
	c.Store(tok)
	return c
}

// Store swaps in a copy of tok.
func (c *Cell) Store(tok *oauth2.Token) {
	if tok == nil {
		return
	}
	cp := *tok
	c.tok.Store(&cp)
}

// Load returns a copy of the current token, or nil.
func (c *Cell) Load() *oauth2.Token {
	tok := c.tok.Load()
	if tok == nil {
		return nil
	}
	cp := *tok
	return &cp
}

// Token implements oauth2.TokenSource so a cell can back an oauth2 HTTP client.
func (c *Cell) Token() (*oauth2.Token, error) {
	tok := c.Load()
	if tok == nil {
		return nil, ErrEmptyCell
	}
	return tok, nil
}

// AccessToken returns the current access token, or "".
func (c *Cell) AccessToken() string {
	if tok := c.tok.Load(); tok != nil {
		return tok.AccessToken
	}
	return ""
}

// Expiry returns the current token's expiry; zero means it does not expire.
func (c *Cell) Expiry() time.Time {
	if tok := c.tok.Load(); tok != nil {
		return tok.Expiry
	}
	return time.Time{}
}
