package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("AUTH_SECRET", "hunter2")
	t.Setenv("PASSWORD_HOME", dir)

	c, err := Load()
	require.NoError(t, err)

	secret, err := c.MasterSecret()
	require.NoError(t, err)
	assert.Equal(t, []byte("hunter2"), secret)

	assert.Equal(t, filepath.Join(dir, "vault.db"), c.DBPath())
	assert.Equal(t, filepath.Join(dir, "session"), c.SessionPath())
	assert.Equal(t, filepath.Join(dir, "audit.log"), c.AuditPath())
}

func TestDefaultDataDirUnderHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AUTH_SECRET", "hunter2")
	t.Setenv("PASSWORD_HOME", "")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".password"), c.DataDir)
}

func TestMissingSecret(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("PASSWORD_HOME", t.TempDir())

	c, err := Load()
	require.NoError(t, err)
	_, err = c.MasterSecret()
	assert.ErrorIs(t, err, ErrMissingSecret)
}
