package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrMalformedCiphertext = errors.New("crypto: malformed ciphertext")
	ErrDecryptFailed       = errors.New("crypto: decryption failed")
)

// Seal encrypts a single secret field under the given key with
// ChaCha20-Poly1305 and a fresh random 96-bit nonce. Returned layout is
// base64(nonce||ciphertext), suitable for storage as a plain string.
func Seal(key [32]byte, plaintext []byte) (string, error) {
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return "", err
	}
	nonce := make([]byte, chacha20poly1305.NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	out := make([]byte, 0, len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. A blob that does not decode or is shorter than the
// nonce is ErrMalformedCiphertext; a failed authentication tag (wrong key,
// tampered data) is ErrDecryptFailed.
func Open(key [32]byte, blob string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, ErrMalformedCiphertext
	}
	if len(raw) < chacha20poly1305.NonceSize {
		return nil, ErrMalformedCiphertext
	}
	aead, err := chacha20poly1305.New(key[:])
	if err != nil {
		return nil, err
	}
	nonce, ct := raw[:chacha20poly1305.NonceSize], raw[chacha20poly1305.NonceSize:]
	pt, err := aead.Open(nil, nonce, ct, nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return pt, nil
}
