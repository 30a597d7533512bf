package vault

import (
	"context"
	"strings"

	"github.com/ftsujikawa/password/internal/store"
)

// Passkey is the caller-facing passkey record. Nothing in it is secret, so
// no field is encrypted.
type Passkey struct {
	ID           string
	RPID         string
	CredentialID string
	UserHandle   string
	PublicKey    string
	SignCount    uint32
	Title        string
	Transports   string
	CreatedAt    string
}

// AddPasskey inserts a new passkey row. There is no upsert: registering the
// same (rp_id, user_handle) again records an additional credential.
func (v *Vault) AddPasskey(ctx context.Context, rpID, credentialID, userHandle, publicKey string, signCount uint32, title, transports *string) (Passkey, error) {
	if err := v.guard.Require(); err != nil {
		return Passkey{}, err
	}
	rec := store.Passkey{
		ID:           v.newID(),
		RPID:         rpID,
		CredentialID: credentialID,
		UserHandle:   userHandle,
		PublicKey:    publicKey,
		SignCount:    signCount,
		CreatedAt:    v.timestamp(),
	}
	if title != nil {
		rec.Title = *title
	}
	if transports != nil {
		rec.Transports = *transports
	}
	if err := v.store.InsertPasskey(ctx, rec); err != nil {
		return Passkey{}, err
	}
	v.record("passkey.add rp_id=" + rpID)
	return passkeyView(rec), nil
}

// PasskeysByUser returns all passkeys matching the (rp_id, user_handle)
// lookup key.
func (v *Vault) PasskeysByUser(ctx context.Context, rpID, userHandle string) ([]Passkey, error) {
	if err := v.guard.Require(); err != nil {
		return nil, err
	}
	recs, err := v.store.PasskeysByUser(ctx, rpID, userHandle)
	if err != nil {
		return nil, err
	}
	return passkeyViews(recs), nil
}

// SearchPasskeys mirrors credential search over the passkey fields, ordered
// by id descending.
func (v *Vault) SearchPasskeys(ctx context.Context, keyword string) ([]Passkey, error) {
	if err := v.guard.Require(); err != nil {
		return nil, err
	}
	recs, err := v.store.ListPasskeys(ctx)
	if err != nil {
		return nil, err
	}
	kw := strings.ToLower(keyword)
	var out []Passkey
	for _, r := range recs {
		hay := strings.ToLower(strings.Join([]string{
			r.ID, r.RPID, r.CredentialID, r.UserHandle, r.Title, r.Transports,
		}, "\n"))
		if strings.Contains(hay, kw) {
			out = append(out, passkeyView(r))
		}
	}
	return out, nil
}

// DeletePasskey removes the passkey with the given id and fails with
// ErrNotFound when it does not exist.
func (v *Vault) DeletePasskey(ctx context.Context, id string) error {
	if err := v.guard.Require(); err != nil {
		return err
	}
	if err := v.store.DeletePasskey(ctx, id); err != nil {
		return err
	}
	v.record("passkey.delete id=" + id)
	return nil
}

// ExportPasskeys returns every passkey, newest first.
func (v *Vault) ExportPasskeys(ctx context.Context) ([]Passkey, error) {
	if err := v.guard.Require(); err != nil {
		return nil, err
	}
	recs, err := v.store.ListPasskeysByCreated(ctx)
	if err != nil {
		return nil, err
	}
	return passkeyViews(recs), nil
}

func passkeyView(r store.Passkey) Passkey {
	return Passkey{
		ID:           r.ID,
		RPID:         r.RPID,
		CredentialID: r.CredentialID,
		UserHandle:   r.UserHandle,
		PublicKey:    r.PublicKey,
		SignCount:    r.SignCount,
		Title:        r.Title,
		Transports:   r.Transports,
		CreatedAt:    r.CreatedAt,
	}
}

func passkeyViews(recs []store.Passkey) []Passkey {
	out := make([]Passkey, 0, len(recs))
	for _, r := range recs {
		out = append(out, passkeyView(r))
	}
	return out
}
