package transfer

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ftsujikawa/password/internal/vault"
)

// ExportPasskeys writes all passkey records, newest first.
func ExportPasskeys(ctx context.Context, v *vault.Vault, path string) (int, error) {
	entries, err := v.ExportPasskeys(ctx)
	if err != nil {
		return 0, err
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.ID, e.RPID, e.CredentialID, e.UserHandle, e.PublicKey,
			strconv.FormatUint(uint64(e.SignCount), 10), e.Title, e.Transports, e.CreatedAt,
		})
	}
	if err := writeCSV(path, passkeyHeader, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// ImportPasskeys replays each row through the vault's passkey add path;
// every row inserts a new record.
func ImportPasskeys(ctx context.Context, v *vault.Vault, path string) (int, error) {
	rows, err := readCSV(path)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	required := []string{"rp_id", "credential_id", "user_handle", "public_key"}
	cols := resolveColumns(rows[0], passkeyHeader, required)
	if cols.header {
		rows = rows[1:]
	}

	count := 0
	for i, row := range rows {
		vals := map[string]string{}
		for _, name := range required {
			vals[name] = cols.field(row, name)
			if vals[name] == "" {
				return count, fmt.Errorf("%w: row %d: missing %s", ErrInvalidRow, i+1, name)
			}
		}
		var signCount uint32
		if raw := cols.field(row, "sign_count"); raw != "" {
			n, err := strconv.ParseUint(raw, 10, 32)
			if err != nil {
				return count, fmt.Errorf("%w: row %d: bad sign_count %q", ErrInvalidRow, i+1, raw)
			}
			signCount = uint32(n)
		}
		title := optional(cols.field(row, "title"))
		transports := optional(cols.field(row, "transports"))
		if _, err := v.AddPasskey(ctx, vals["rp_id"], vals["credential_id"], vals["user_handle"],
			vals["public_key"], signCount, title, transports); err != nil {
			return count, fmt.Errorf("transfer: import row %d: %w", i+1, err)
		}
		count++
	}
	return count, nil
}
