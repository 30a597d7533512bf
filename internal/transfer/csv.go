// Package transfer maps vault records to and from flat CSV rows. All crypto
// stays in the vault engine: export receives already-decrypted entries, and
// import replays rows through the same add paths the CLI uses, so imported
// credentials inherit the upsert-by-url merge semantics and passkeys the
// plain-insert semantics.
package transfer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrInvalidRow marks a row missing a required field. One bad row aborts the
// whole import.
var ErrInvalidRow = errors.New("transfer: invalid row")

var (
	credentialHeader = []string{"id", "url", "username", "password", "title", "note", "created_at"}
	passkeyHeader    = []string{"id", "rp_id", "credential_id", "user_handle", "public_key", "sign_count", "title", "transports", "created_at"}
)

// columns resolves field names to row positions. When the first row names at
// least the required columns it is treated as a header; otherwise rows are
// read positionally in the fixed header order and the first row is data.
type columns struct {
	index  map[string]int
	header bool
}

func resolveColumns(first []string, fixed []string, required []string) columns {
	byName := map[string]int{}
	for i, cell := range first {
		byName[strings.ToLower(strings.TrimSpace(cell))] = i
	}
	named := true
	for _, name := range required {
		if _, ok := byName[name]; !ok {
			named = false
			break
		}
	}
	if named {
		return columns{index: byName, header: true}
	}
	positional := map[string]int{}
	for i, name := range fixed {
		positional[name] = i
	}
	return columns{index: positional}
}

func (c columns) field(row []string, name string) string {
	i, ok := c.index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("transfer: create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("transfer: write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("transfer: write row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transfer: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("transfer: read %s: %w", path, err)
	}
	return rows, nil
}

// optional returns a pointer only for a non-empty cell, so an absent or
// blank column never clears a merged field on import.
func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
