package crypto

import (
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// Domain-separation labels. Keys derived here can never collide with keys
// derived for any other purpose from the same secret.
const (
	rootLabel  = "password-vault/root/v1"
	entryLabel = "password-vault/entry/v1"
	tokenLabel = "password-vault/token/v1"
)

// Argon2id parameters for stretching the master secret. The salt must be a
// fixed constant: derivation has to be deterministic because the entry id is
// the only per-entry context that is persisted.
const (
	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
)

var ErrEmptyMaster = errors.New("crypto: empty master key")

// KeyRing holds the stretched vault root key and derives purpose-specific
// subkeys from it.
type KeyRing struct {
	root [32]byte
}

func NewKeyRing(master []byte) (*KeyRing, error) {
	if len(master) == 0 {
		return nil, ErrEmptyMaster
	}
	key := argon2.IDKey(master, []byte(rootLabel), argonTime, argonMemory, argonThreads, 32)
	kr := &KeyRing{}
	copy(kr.root[:], key)
	Zero(key)
	return kr, nil
}

// EntryKey derives the symmetric key for a single entry. The entry id is the
// HKDF salt, so the same (master secret, id) pair always yields the same key
// and a ciphertext sealed for one entry cannot be opened under another.
func (kr *KeyRing) EntryKey(entryID string) ([32]byte, error) {
	return kr.derive([]byte(entryID), entryLabel)
}

// TokenKey derives the HMAC key that signs session tokens.
func (kr *KeyRing) TokenKey() ([]byte, error) {
	k, err := kr.derive(nil, tokenLabel)
	if err != nil {
		return nil, err
	}
	return k[:], nil
}

func (kr *KeyRing) derive(salt []byte, label string) (key [32]byte, err error) {
	stream := hkdf.New(sha256.New, kr.root[:], salt, []byte(label))
	if _, err = io.ReadFull(stream, key[:]); err != nil {
		return [32]byte{}, err
	}
	return key, nil
}
