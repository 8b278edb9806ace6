package credential

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"

	"github.com/kbukum/streambot/encryption"
)

// ErrNotCached is returned by a Cache with no token for an identity.
var ErrNotCached = stderrors.New("no cached token")

// Cache persists tokens between runs.
type Cache interface {
	Load(id Identity) (*oauth2.Token, error)
	Store(id Identity, tok *oauth2.Token) error
}

// FileCache stores one JSON file per identity under Dir, sealed when a
// Sealer is set.
type FileCache struct {
	Dir    string
	Sealer encryption.Sealer
}

type cachedToken struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Expiry       int64  `json:"expiry,omitempty"`
}

func (c *FileCache) path(id Identity) string {
	ext := ".json"
	if c.Sealer != nil {
		ext = ".json.sealed"
	}
	return filepath.Join(c.Dir, id.String()+ext)
}

// Load reads the cached token for id.
func (c *FileCache) Load(id Identity) (*oauth2.Token, error) {
	data, err := os.ReadFile(c.path(id))
	if stderrors.Is(err, os.ErrNotExist) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, err
	}
	if c.Sealer != nil {
		if data, err = c.Sealer.Open(data); err != nil {
			return nil, fmt.Errorf("open cached token: %w", err)
		}
	}

	var ct cachedToken
	if err := json.Unmarshal(data, &ct); err != nil {
		return nil, fmt.Errorf("decode cached token: %w", err)
	}
	tok := &oauth2.Token{
		AccessToken:  ct.AccessToken,
		TokenType:    ct.TokenType,
		RefreshToken: ct.RefreshToken,
	}
	if ct.Expiry > 0 {
		tok.Expiry = time.Unix(ct.Expiry, 0)
	}
	return tok, nil
}

// Store writes tok for id, replacing the file atomically.
func (c *FileCache) Store(id Identity, tok *oauth2.Token) error {
	ct := cachedToken{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
	}
	if !tok.Expiry.IsZero() {
		ct.Expiry = tok.Expiry.Unix()
	}
	data, err := json.MarshalIndent(ct, "", "  ")
	if err != nil {
		return err
	}
	if c.Sealer != nil {
		if data, err = c.Sealer.Seal(data); err != nil {
			return fmt.Errorf("seal token: %w", err)
		}
	}

	if err := os.MkdirAll(c.Dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(c.Dir, "."+id.String()+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.path(id))
}
