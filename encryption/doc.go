// Package encryption seals small blobs, such as cached OAuth tokens, with
// ChaCha20-Poly1305 under a passphrase-derived key.
//
//	box, err := encryption.NewChaCha20(passphrase)
//	sealed, err := box.Seal(data)
//	data, err := box.Open(sealed)
package encryption
