package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSigningKey = []byte("0123456789abcdef0123456789abcdef")

// clock is a settable time source for simulating TTL expiry.
type clock struct {
	t time.Time
}

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestGuard(t *testing.T) (*Guard, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)}
	g := NewGuard(NewMemStore(), "hunter2", testSigningKey)
	g.now = c.now
	return g, c
}

func TestCheckNoSession(t *testing.T) {
	g, _ := newTestGuard(t)
	st, err := g.Check()
	require.NoError(t, err)
	assert.Equal(t, StateNoSession, st.State)
	assert.ErrorIs(t, g.Require(), ErrUnauthenticated)
}

func TestAuthenticateWrongSecret(t *testing.T) {
	g, _ := newTestGuard(t)
	_, err := g.Authenticate("wrong", 5)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	st, err := g.Check()
	require.NoError(t, err)
	assert.Equal(t, StateNoSession, st.State, "failed auth must not change session state")
}

func TestSessionTTL(t *testing.T) {
	g, c := newTestGuard(t)
	st, err := g.Authenticate("hunter2", 1)
	require.NoError(t, err)
	assert.Equal(t, StateActive, st.State)
	assert.Equal(t, time.Minute, st.Remaining)

	c.advance(30 * time.Second)
	st, err = g.Check()
	require.NoError(t, err)
	assert.Equal(t, StateActive, st.State)
	assert.Equal(t, 30*time.Second, st.Remaining)
	require.NoError(t, g.Require())

	c.advance(31 * time.Second)
	st, err = g.Check()
	require.NoError(t, err)
	assert.Equal(t, StateExpired, st.State)
	assert.ErrorIs(t, g.Require(), ErrExpired)
}

func TestTTLClampedToOneMinute(t *testing.T) {
	g, _ := newTestGuard(t)
	st, err := g.Authenticate("hunter2", 0)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, st.Remaining)

	st, err = g.Authenticate("hunter2", -5)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, st.Remaining)
}

func TestLongSessionsAllowed(t *testing.T) {
	g, c := newTestGuard(t)
	_, err := g.Authenticate("hunter2", 60*24*365)
	require.NoError(t, err)

	c.advance(300 * 24 * time.Hour)
	st, err := g.Check()
	require.NoError(t, err)
	assert.Equal(t, StateActive, st.State)
}

func TestEndSessionIdempotent(t *testing.T) {
	g, _ := newTestGuard(t)
	_, err := g.Authenticate("hunter2", 5)
	require.NoError(t, err)

	require.NoError(t, g.EndSession())
	st, err := g.Check()
	require.NoError(t, err)
	assert.Equal(t, StateNoSession, st.State)

	require.NoError(t, g.EndSession(), "ending an absent session is not an error")
}

func TestTamperedTokenRejected(t *testing.T) {
	g, _ := newTestGuard(t)
	store := g.store
	_, err := g.Authenticate("hunter2", 5)
	require.NoError(t, err)

	raw, ok, err := store.Get()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, store.Set(raw+"x"))

	st, err := g.Check()
	require.NoError(t, err)
	assert.Equal(t, StateNoSession, st.State)
	assert.ErrorIs(t, g.Require(), ErrUnauthenticated)
}

func TestTokenSignedWithDifferentKeyRejected(t *testing.T) {
	g, _ := newTestGuard(t)
	other := NewGuard(g.store, "hunter2", []byte("ffffffffffffffffffffffffffffffff"))
	other.now = g.now
	_, err := other.Authenticate("hunter2", 5)
	require.NoError(t, err)

	st, err := g.Check()
	require.NoError(t, err)
	assert.Equal(t, StateNoSession, st.State)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session")
	fs := NewFileStore(path)

	_, ok, err := fs.Get()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, fs.Set("token-123"))
	got, ok, err := fs.Get()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "token-123", got)

	require.NoError(t, fs.Clear())
	_, ok, err = fs.Get()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, fs.Clear(), "clearing twice is fine")
}
