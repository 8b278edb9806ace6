package encryption

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrEmptyKey is returned for an empty passphrase.
var ErrEmptyKey = errors.New("encryption key is empty")

// Sealer encrypts and authenticates opaque data.
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// ChaCha20Service seals data with XChaCha20-Poly1305. The random nonce is
// stored in front of the ciphertext.
type ChaCha20Service struct {
	aead cipher.AEAD
}

var _ Sealer = (*ChaCha20Service)(nil)

// NewChaCha20 derives a 32-byte key from the passphrase with SHA-256.
func NewChaCha20(key string) (*ChaCha20Service, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	sum := sha256.Sum256([]byte(key))

	aead, err := chacha20poly1305.NewX(sum[:])
	if err != nil {
		return nil, fmt.Errorf("create chacha20: %w", err)
	}
	return &ChaCha20Service{aead: aead}, nil
}

// Seal encrypts plaintext.
func (s *ChaCha20Service) Seal(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return s.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts data produced by Seal.
func (s *ChaCha20Service) Open(sealed []byte) ([]byte, error) {
	nonceSize := s.aead.NonceSize()
	if len(sealed) < nonceSize+s.aead.Overhead() {
		return nil, fmt.Errorf("ciphertext too short")
	}

	plaintext, err := s.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}
