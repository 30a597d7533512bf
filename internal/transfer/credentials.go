package transfer

import (
	"context"
	"fmt"

	"github.com/ftsujikawa/password/internal/vault"
)

// ExportCredentials writes all entries, passwords decrypted, newest first.
func ExportCredentials(ctx context.Context, v *vault.Vault, path string) (int, error) {
	entries, err := v.ExportCredentials(ctx)
	if err != nil {
		return 0, err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.ID, e.URL, e.Username, e.Password, e.Title, e.Note, e.CreatedAt})
	}
	if err := writeCSV(path, credentialHeader, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ImportCredentials replays each row through the vault's add path. Source id
// and created_at are always ignored: every imported entry gets a fresh
// identity and the current time, and is re-encrypted on ingest.
func ImportCredentials(ctx context.Context, v *vault.Vault, path string) (int, error) {
	rows, err := readCSV(path)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	cols := resolveColumns(rows[0], credentialHeader, []string{"url", "username", "password"})
	if cols.header {
		rows = rows[1:]
	}

	count := 0
	for i, row := range rows {
		url := cols.field(row, "url")
		username := cols.field(row, "username")
		password := cols.field(row, "password")
		for name, val := range map[string]string{"url": url, "username": username, "password": password} {
			if val == "" {
				return count, fmt.Errorf("%w: row %d: missing %s", ErrInvalidRow, i+1, name)
			}
		}
		title := optional(cols.field(row, "title"))
		note := optional(cols.field(row, "note"))
		if _, err := v.AddCredential(ctx, url, username, password, title, note); err != nil {
			return count, fmt.Errorf("transfer: import row %d: %w", i+1, err)
		}
		count++
	}
	return count, nil
}
