// Package audit appends a hash-chained record of vault mutations to a log
// file. Entries name the operation and the natural key only, never secrets.
package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type Entry struct {
	TS   int64  `json:"ts"`
	What string `json:"what"`
	Hash string `json:"hash"`
}

// Log is an append-only file of JSON lines. Each entry's hash covers the
// previous entry's hash, so truncating or editing the middle of the file
// breaks the chain.
type Log struct {
	path     string
	lastHash []byte
}

// Open resumes the chain from the last entry in the file, if any.
func Open(path string) (*Log, error) {
	l := &Log{path: path}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	var last Entry
	for sc.Scan() {
		if err := json.Unmarshal(sc.Bytes(), &last); err != nil {
			return nil, fmt.Errorf("audit: corrupt log line: %w", err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("audit: read %s: %w", path, err)
	}
	if last.Hash != "" {
		h, err := hex.DecodeString(last.Hash)
		if err != nil {
			return nil, fmt.Errorf("audit: corrupt hash: %w", err)
		}
		l.lastHash = h
	}
	return l, nil
}

// Append records one operation and extends the chain.
func (l *Log) Append(what string) error {
	h := sha256.New()
	h.Write(l.lastHash)
	h.Write([]byte(what))
	sum := h.Sum(nil)

	e := Entry{TS: time.Now().Unix(), What: what, Hash: hex.EncodeToString(sum)}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return fmt.Errorf("audit: open for append: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	l.lastHash = sum
	return nil
}

// Verify re-reads the file and checks the whole chain.
func Verify(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("audit: open %s: %w", path, err)
	}
	defer f.Close()

	var prev []byte
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return fmt.Errorf("audit: line %d: %w", line, err)
		}
		h := sha256.New()
		h.Write(prev)
		h.Write([]byte(e.What))
		sum := h.Sum(nil)
		if hex.EncodeToString(sum) != e.Hash {
			return fmt.Errorf("audit: chain broken at line %d", line)
		}
		prev = sum
	}
	return sc.Err()
}
