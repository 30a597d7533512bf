package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Credential is the stored record shape. Password holds the base64
// nonce||ciphertext blob, never plaintext.
type Credential struct {
	ID        string
	URL       string
	Username  string
	Password  string
	Title     string
	Note      string
	CreatedAt string
}

func (s *Store) InsertCredential(ctx context.Context, c Credential) error {
	const q = `INSERT INTO credentials (id, url, username, password, title, note, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q, c.ID, c.URL, c.Username, c.Password, c.Title, c.Note, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: insert credential: %w", err)
	}
	return nil
}

// LatestCredentialByURL returns the most recently created entry for url, if
// any. This is the natural-key lookup the add upsert is built on.
func (s *Store) LatestCredentialByURL(ctx context.Context, url string) (Credential, bool, error) {
	const q = `SELECT id, url, username, password, title, note, created_at
	           FROM credentials WHERE url = ? ORDER BY created_at DESC LIMIT 1`
	c, err := scanCredential(s.db.QueryRowContext(ctx, q, url))
	if errors.Is(err, sql.ErrNoRows) {
		return Credential{}, false, nil
	}
	if err != nil {
		return Credential{}, false, fmt.Errorf("store: latest by url: %w", err)
	}
	return c, true, nil
}

func (s *Store) CredentialsByURL(ctx context.Context, url string) ([]Credential, error) {
	const q = `SELECT id, url, username, password, title, note, created_at
	           FROM credentials WHERE url = ? ORDER BY created_at DESC`
	return s.queryCredentials(ctx, q, url)
}

func (s *Store) GetCredential(ctx context.Context, id string) (Credential, error) {
	const q = `SELECT id, url, username, password, title, note, created_at
	           FROM credentials WHERE id = ?`
	c, err := scanCredential(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Credential{}, ErrNotFound
	}
	if err != nil {
		return Credential{}, fmt.Errorf("store: get credential: %w", err)
	}
	return c, nil
}

// ListCredentials returns all entries ordered by id descending, the order
// search results are presented in.
func (s *Store) ListCredentials(ctx context.Context) ([]Credential, error) {
	const q = `SELECT id, url, username, password, title, note, created_at
	           FROM credentials ORDER BY id DESC`
	return s.queryCredentials(ctx, q)
}

// ListCredentialsByCreated returns all entries newest first, the export order.
func (s *Store) ListCredentialsByCreated(ctx context.Context) ([]Credential, error) {
	const q = `SELECT id, url, username, password, title, note, created_at
	           FROM credentials ORDER BY created_at DESC`
	return s.queryCredentials(ctx, q)
}

// UpdateCredential rewrites the full row for c.ID. The id and created_at
// columns are never changed by this call.
func (s *Store) UpdateCredential(ctx context.Context, c Credential) error {
	const q = `UPDATE credentials SET url = ?, username = ?, password = ?, title = ?, note = ?
	           WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, c.URL, c.Username, c.Password, c.Title, c.Note, c.ID)
	if err != nil {
		return fmt.Errorf("store: update credential: %w", err)
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

// DeleteCredential removes the row if it exists. Deleting an absent id is
// not an error.
func (s *Store) DeleteCredential(ctx context.Context, id string) error {
	const q = `DELETE FROM credentials WHERE id = ?`
	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return fmt.Errorf("store: delete credential: %w", err)
	}
	return nil
}

func (s *Store) queryCredentials(ctx context.Context, q string, args ...any) ([]Credential, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query credentials: %w", err)
	}
	defer rows.Close()

	var out []Credential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan credential: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(r rowScanner) (Credential, error) {
	var c Credential
	err := r.Scan(&c.ID, &c.URL, &c.Username, &c.Password, &c.Title, &c.Note, &c.CreatedAt)
	return c, err
}
