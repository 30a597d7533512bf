package store

import (
	"context"
	"fmt"
)

// Passkey is a WebAuthn credential record. The public key is not secret, so
// every field is stored in plaintext.
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

func (s *Store) InsertPasskey(ctx context.Context, p Passkey) error {
	const q = `INSERT INTO passkeys (id, rp_id, credential_id, user_handle, public_key, sign_count, title, transports, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		p.ID, p.RPID, p.CredentialID, p.UserHandle, p.PublicKey, p.SignCount, p.Title, p.Transports, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: insert passkey: %w", err)
	}
	return nil
}

// PasskeysByUser returns all passkeys for the (rp_id, user_handle) lookup key.
func (s *Store) PasskeysByUser(ctx context.Context, rpID, userHandle string) ([]Passkey, error) {
	const q = `SELECT id, rp_id, credential_id, user_handle, public_key, sign_count, title, transports, created_at
	           FROM passkeys WHERE rp_id = ? AND user_handle = ? ORDER BY created_at DESC`
	return s.queryPasskeys(ctx, q, rpID, userHandle)
}

func (s *Store) ListPasskeys(ctx context.Context) ([]Passkey, error) {
	const q = `SELECT id, rp_id, credential_id, user_handle, public_key, sign_count, title, transports, created_at
	           FROM passkeys ORDER BY id DESC`
	return s.queryPasskeys(ctx, q)
}

func (s *Store) ListPasskeysByCreated(ctx context.Context) ([]Passkey, error) {
	const q = `SELECT id, rp_id, credential_id, user_handle, public_key, sign_count, title, transports, created_at
	           FROM passkeys ORDER BY created_at DESC`
	return s.queryPasskeys(ctx, q)
}

// DeletePasskey removes the row and reports ErrNotFound when nothing
// matched. Unlike credential deletes, passkey deletes are strict.
func (s *Store) DeletePasskey(ctx context.Context, id string) error {
	const q = `DELETE FROM passkeys WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("store: delete passkey: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) queryPasskeys(ctx context.Context, q string, args ...any) ([]Passkey, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query passkeys: %w", err)
	}
	defer rows.Close()

	var out []Passkey
	for rows.Next() {
		var p Passkey
		if err := rows.Scan(&p.ID, &p.RPID, &p.CredentialID, &p.UserHandle, &p.PublicKey,
			&p.SignCount, &p.Title, &p.Transports, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan passkey: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
