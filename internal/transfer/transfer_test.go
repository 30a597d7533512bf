package transfer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ftsujikawa/password/internal/crypto"
	"github.com/ftsujikawa/password/internal/session"
	"github.com/ftsujikawa/password/internal/store"
	"github.com/ftsujikawa/password/internal/vault"
)

const testSecret = "test-master-secret"

var (
	keysOnce sync.Once
	keys     *crypto.KeyRing
)

func newTestVault(t *testing.T) *vault.Vault {
	t.Helper()
	keysOnce.Do(func() {
		kr, err := crypto.NewKeyRing([]byte(testSecret))
		if err != nil {
			panic(err)
		}
		keys = kr
	})
	st, err := store.Open(filepath.Join(t.TempDir(), "vault.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	tokenKey, err := keys.TokenKey()
	require.NoError(t, err)
	guard := session.NewGuard(session.NewMemStore(), testSecret, tokenKey)
	_, err = guard.Authenticate(testSecret, 5)
	require.NoError(t, err)
	return vault.New(st, guard, keys, nil)
}

func strptr(s string) *string { return &s }

type credTuple struct {
	url, username, password, title, note string
}

func credTuples(entries []vault.Credential) []credTuple {
	out := make([]credTuple, 0, len(entries))
	for _, e := range entries {
		out = append(out, credTuple{e.URL, e.Username, e.Password, e.Title, e.Note})
	}
	return out
}

func TestCredentialExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestVault(t)

	_, err := src.AddCredential(ctx, "site.com", "alice", "pw-1", strptr("Work"), strptr("a note"))
	require.NoError(t, err)
	_, err = src.AddCredential(ctx, "other.com", "bob", "pw, with \"quotes\"", nil, nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "creds.csv")
	n, err := ExportCredentials(ctx, src, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dst := newTestVault(t)
	n, err = ImportCredentials(ctx, dst, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	want, err := src.ExportCredentials(ctx)
	require.NoError(t, err)
	got, err := dst.ExportCredentials(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, credTuples(want), credTuples(got),
		"imported tuples match even though ids and timestamps differ")
}

func TestImportMissingRequiredFieldAborts(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)

	path := filepath.Join(t.TempDir(), "bad.csv")
	csv := "id,url,username,password,title,note,created_at\n" +
		"x,good.com,alice,pw,,,2026-01-01T00:00:00Z\n" +
		"y,bad.com,bob,,,,2026-01-01T00:00:00Z\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	_, err := ImportCredentials(ctx, v, path)
	require.ErrorIs(t, err, ErrInvalidRow)
	assert.Contains(t, err.Error(), "password")
}

func TestImportPositionalFallback(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)

	// No header row: columns are read in the fixed export order.
	path := filepath.Join(t.TempDir(), "positional.csv")
	csv := "old-id,site.com,alice,pw-1,Work,,2020-01-01T00:00:00Z\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	n, err := ImportCredentials(ctx, v, path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := v.GetByURL(ctx, "site.com")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got[0].Username)
	assert.Equal(t, "pw-1", got[0].Password)
	assert.Equal(t, "Work", got[0].Title)
	assert.NotEqual(t, "old-id", got[0].ID, "source id is ignored")
	assert.NotEqual(t, "2020-01-01T00:00:00Z", got[0].CreatedAt, "source created_at is ignored")
}

func TestImportInheritsUpsert(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)

	_, err := v.AddCredential(ctx, "site.com", "alice", "pw-old", strptr("Keep Me"), nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "upsert.csv")
	csv := "url,username,password\nsite.com,bob,pw-new\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	_, err = ImportCredentials(ctx, v, path)
	require.NoError(t, err)

	got, err := v.GetByURL(ctx, "site.com")
	require.NoError(t, err)
	require.Len(t, got, 1, "import replays the upsert path")
	assert.Equal(t, "bob", got[0].Username)
	assert.Equal(t, "pw-new", got[0].Password)
	assert.Equal(t, "Keep Me", got[0].Title, "merge keeps the stored title")
}

func TestPasskeyExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestVault(t)

	_, err := src.AddPasskey(ctx, "example.com", "cred-1", "alice", "pk-1", 42, strptr("Laptop"), strptr("usb,nfc"))
	require.NoError(t, err)
	_, err = src.AddPasskey(ctx, "example.org", "cred-2", "bob", "pk-2", 0, nil, nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "passkeys.csv")
	n, err := ExportPasskeys(ctx, src, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dst := newTestVault(t)
	n, err = ImportPasskeys(ctx, dst, path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := dst.PasskeysByUser(ctx, "example.com", "alice")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "cred-1", got[0].CredentialID)
	assert.Equal(t, "pk-1", got[0].PublicKey)
	assert.Equal(t, uint32(42), got[0].SignCount)
	assert.Equal(t, "usb,nfc", got[0].Transports)
}

func TestPasskeyImportMissingRequiredFieldAborts(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)

	path := filepath.Join(t.TempDir(), "bad.csv")
	csv := "rp_id,credential_id,user_handle,public_key\nexample.com,cred,alice,\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	_, err := ImportPasskeys(ctx, v, path)
	require.ErrorIs(t, err, ErrInvalidRow)
	assert.Contains(t, err.Error(), "public_key")
}

func TestImportEmptyFile(t *testing.T) {
	ctx := context.Background()
	v := newTestVault(t)

	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	n, err := ImportCredentials(ctx, v, path)
	require.NoError(t, err)
	assert.Zero(t, n)
}
