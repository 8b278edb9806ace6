// Package secrets reads the keyed secrets file that holds OAuth client
// credentials and the token cache key.
//
// The file is YAML with one top-level key per provider:
//
//	spotify:
//	  client_id: ...
//	  client_secret: ...
//	twitch:
//	  client_id: ...
//	  client_secret: ...
//	token_key: ...
//
// It may be encrypted with age, in binary or armored form, in which case an
// identity file is required to open it.
package secrets

import (
	"bufio"
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"filippo.io/age/armor"
	"gopkg.in/yaml.v3"

	"github.com/kbukum/streambot/errors"
)

// Well-known keys.
const (
	KeySpotify  = "spotify"
	KeyTwitch   = "twitch"
	KeyTokenKey = "token_key"
)

// ErrMissing is returned by Load for a key that is not in the store.
var ErrMissing = stderrors.New("secret not found")

var ageHeader = []byte("age-encryption.org/v1")

// Store is an opened secrets file.
type Store struct {
	path   string
	values map[string]yaml.Node
}

// Open reads the secrets file at path. identityFile is the age identity
// used when the file is encrypted; it may be empty for plaintext files.
// Every failure is a SECRETS_ERROR.
func Open(path, identityFile string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Secrets(path, err)
	}

	if encrypted(raw) {
		if identityFile == "" {
			return nil, errors.Secrets(path, fmt.Errorf("file is age-encrypted but no identity is configured"))
		}
		raw, err = decrypt(raw, identityFile)
		if err != nil {
			return nil, errors.Secrets(path, err)
		}
	}

	s, err := Parse(raw)
	if err != nil {
		return nil, errors.Secrets(path, err)
	}
	s.path = path
	return s, nil
}

// Parse reads a plaintext YAML document.
func Parse(raw []byte) (*Store, error) {
	values := make(map[string]yaml.Node)
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse secrets: %w", err)
	}
	return &Store{values: values}, nil
}

// Has reports whether key is present.
func (s *Store) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Load decodes the value under key into out.
func (s *Store) Load(key string, out any) error {
	node, ok := s.values[key]
	if !ok {
		return fmt.Errorf("%s: %w", key, ErrMissing)
	}
	if err := node.Decode(out); err != nil {
		return fmt.Errorf("decode secret %s: %w", key, err)
	}
	return nil
}

// String returns a scalar secret.
func (s *Store) String(key string) (string, bool) {
	var v string
	if err := s.Load(key, &v); err != nil || v == "" {
		return "", false
	}
	return v, true
}

// Path returns the file the store was read from.
func (s *Store) Path() string {
	return s.path
}

func encrypted(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return bytes.HasPrefix(trimmed, ageHeader) || bytes.HasPrefix(trimmed, []byte(armor.Header))
}

func decrypt(raw []byte, identityFile string) ([]byte, error) {
	f, err := os.Open(identityFile)
	if err != nil {
		return nil, fmt.Errorf("open identity: %w", err)
	}
	defer f.Close()

	identities, err := age.ParseIdentities(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("parse identity %s: %w", identityFile, err)
	}

	var src io.Reader = bytes.NewReader(raw)
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte(armor.Header)) {
		src = armor.NewReader(bytes.NewReader(bytes.TrimSpace(raw)))
	}

	r, err := age.Decrypt(src, identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read decrypted secrets: %w", err)
	}
	return plain, nil
}
