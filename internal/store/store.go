// Package store owns the persistent entry records. It is a thin sqlite
// layer: every mutation is a single row write, and all consistency rules
// above the row level (upsert, merge, gating) live in the vault engine.
package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("store: not found")

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite database at path. Each CLI
// invocation performs one logical operation, so a single connection is
// enough; WAL plus a busy timeout covers concurrent invocations racing on
// the file.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		path,
	)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS credentials (
	id         TEXT PRIMARY KEY,
	url        TEXT NOT NULL,
	username   TEXT NOT NULL,
	password   TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	note       TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_credentials_url ON credentials(url);

CREATE TABLE IF NOT EXISTS passkeys (
	id            TEXT PRIMARY KEY,
	rp_id         TEXT NOT NULL,
	credential_id TEXT NOT NULL,
	user_handle   TEXT NOT NULL,
	public_key    TEXT NOT NULL,
	sign_count    INTEGER NOT NULL DEFAULT 0,
	title         TEXT NOT NULL DEFAULT '',
	transports    TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_passkeys_user ON passkeys(rp_id, user_handle);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}
