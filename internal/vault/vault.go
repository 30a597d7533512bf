// Package vault is the engine behind every credential and passkey
// operation. It enforces the session gate, drives per-entry key derivation
// and field encryption, and owns the entry lifecycle rules: upsert by url,
// patch-style updates, and the delete semantics of each entry kind.
package vault

import (
	"time"

	"github.com/google/uuid"

	"github.com/ftsujikawa/password/internal/audit"
	"github.com/ftsujikawa/password/internal/crypto"
	"github.com/ftsujikawa/password/internal/session"
	"github.com/ftsujikawa/password/internal/store"
)

// ErrNotFound is re-exported so callers can match lookup failures without
// importing the store package.
var ErrNotFound = store.ErrNotFound

type Vault struct {
	store *store.Store
	guard *session.Guard
	keys  *crypto.KeyRing
	audit *audit.Log

	now   func() time.Time
	newID func() string
}

func New(st *store.Store, guard *session.Guard, keys *crypto.KeyRing, log *audit.Log) *Vault {
	return &Vault{
		store: st,
		guard: guard,
		keys:  keys,
		audit: log,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (v *Vault) timestamp() string {
	return v.now().UTC().Format(time.RFC3339)
}

// seal encrypts a secret field under the key derived for entryID.
func (v *Vault) seal(entryID string, plaintext string) (string, error) {
	key, err := v.keys.EntryKey(entryID)
	if err != nil {
		return "", err
	}
	return crypto.Seal(key, []byte(plaintext))
}

// reveal decrypts a stored blob for entryID. When decryption fails (rotated
// master secret, corrupted row) it falls back to the raw stored ciphertext so
// the record stays visible rather than vanishing from reads.
func (v *Vault) reveal(entryID string, blob string) string {
	key, err := v.keys.EntryKey(entryID)
	if err != nil {
		return blob
	}
	pt, err := crypto.Open(key, blob)
	if err != nil {
		return blob
	}
	return string(pt)
}

func (v *Vault) record(what string) {
	if v.audit == nil {
		return
	}
	_ = v.audit.Append(what)
}
