// Package session gates vault access behind a time-limited authenticated
// session. The persisted session record is a signed token whose expiry claim
// says "authenticated until T".
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "password-vault"

type State int

const (
	StateNoSession State = iota
	StateActive
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateExpired:
		return "expired"
	default:
		return "no session"
	}
}

type Status struct {
	State     State
	ExpiresAt time.Time
	Remaining time.Duration
}

var (
	ErrAuthenticationFailed = errors.New("session: authentication failed")
	ErrUnauthenticated      = errors.New("session: not authenticated, run auth first")
	ErrExpired              = errors.New("session: session expired, run auth again")
)

// Guard validates and issues session tokens. Tokens are HMAC-SHA256 signed
// with a key derived from the master secret, so a copied or edited session
// file cannot extend access.
type Guard struct {
	store    Store
	expected string
	key      []byte
	now      func() time.Time
}

func NewGuard(store Store, expectedSecret string, signingKey []byte) *Guard {
	return &Guard{
		store:    store,
		expected: expectedSecret,
		key:      signingKey,
		now:      time.Now,
	}
}

// Authenticate compares the supplied secret against the configured one and,
// on match, persists a token expiring ttlMinutes from now. ttlMinutes is
// clamped to a minimum of 1; there is no maximum.
func (g *Guard) Authenticate(supplied string, ttlMinutes int) (Status, error) {
	if supplied != g.expected {
		return Status{}, ErrAuthenticationFailed
	}
	if ttlMinutes < 1 {
		ttlMinutes = 1
	}
	now := g.now()
	exp := now.Add(time.Duration(ttlMinutes) * time.Minute)
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.key)
	if err != nil {
		return Status{}, fmt.Errorf("session: sign token: %w", err)
	}
	if err := g.store.Set(token); err != nil {
		return Status{}, err
	}
	return Status{State: StateActive, ExpiresAt: exp, Remaining: exp.Sub(now)}, nil
}

// Check reads the persisted token and reports the current session state. An
// unreadable or tampered token counts as no session.
func (g *Guard) Check() (Status, error) {
	raw, ok, err := g.store.Get()
	if err != nil {
		return Status{}, err
	}
	if !ok {
		return Status{State: StateNoSession}, nil
	}
	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(raw, claims, g.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return g.now() }),
	)
	if errors.Is(err, jwt.ErrTokenExpired) {
		st := Status{State: StateExpired}
		if claims.ExpiresAt != nil {
			st.ExpiresAt = claims.ExpiresAt.Time
		}
		return st, nil
	}
	if err != nil {
		return Status{State: StateNoSession}, nil
	}
	exp := claims.ExpiresAt.Time
	return Status{State: StateActive, ExpiresAt: exp, Remaining: exp.Sub(g.now())}, nil
}

// Require fails closed unless the session is active.
func (g *Guard) Require() error {
	st, err := g.Check()
	if err != nil {
		return err
	}
	switch st.State {
	case StateActive:
		return nil
	case StateExpired:
		return ErrExpired
	default:
		return ErrUnauthenticated
	}
}

// EndSession deletes the persisted token. Idempotent.
func (g *Guard) EndSession() error {
	return g.store.Clear()
}

func (g *Guard) keyFunc(t *jwt.Token) (any, error) {
	return g.key, nil
}
