package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists the single session token. Exactly one session exists at a
// time; an absent token means no session.
type Store interface {
	Get() (token string, ok bool, err error)
	Set(token string) error
	Clear() error
}

// FileStore keeps the token in a single 0600 file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Get() (string, bool, error) {
	b, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("session: read %s: %w", f.path, err)
	}
	return strings.TrimSpace(string(b)), true, nil
}

func (f *FileStore) Set(token string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("session: mkdir: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("session: write %s: %w", f.path, err)
	}
	return nil
}

func (f *FileStore) Clear() error {
	err := os.Remove(f.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MemStore is an in-memory Store for tests.
type MemStore struct {
	token string
	ok    bool
}

func NewMemStore() *MemStore { return &MemStore{} }

func (m *MemStore) Get() (string, bool, error) { return m.token, m.ok, nil }

func (m *MemStore) Set(token string) error {
	m.token, m.ok = token, true
	return nil
}

func (m *MemStore) Clear() error {
	m.token, m.ok = "", false
	return nil
}
