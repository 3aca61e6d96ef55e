// Package auth implements session token authentication for the krishi
// backend. Tokens carry the "krs_" prefix, only their SHA-256 hash is
// persisted, and resolved sessions are cached in a W-TinyLFU cache.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/maypok86/otter/v2"
	"golang.org/x/crypto/bcrypt"

	krishi "github.com/krishihq/krishi/internal"
	"github.com/krishihq/krishi/internal/storage"
)

const (
	cacheTTL    = 30 * time.Second // short enough to pick up logouts promptly
	cacheMaxLen = 10_000           // max concurrent active sessions expected per deployment
)

// cachedSession pairs a session with its resolved identity so cache hits
// skip both DB lookups.
type cachedSession struct {
	session  *krishi.Session
	identity *krishi.Identity
}

// SessionAuth authenticates requests using bearer session tokens.
type SessionAuth struct {
	users      storage.UserStore
	sessions   storage.SessionStore
	cache      *otter.Cache[string, cachedSession]
	sessionTTL time.Duration
}

// New returns a SessionAuth backed by the given stores.
func New(users storage.UserStore, sessions storage.SessionStore, sessionTTL time.Duration) (*SessionAuth, error) {
	c, err := otter.New(&otter.Options[string, cachedSession]{
		MaximumSize:      cacheMaxLen,
		ExpiryCalculator: otter.ExpiryWriting[string, cachedSession](cacheTTL),
	})
	if err != nil {
		return nil, fmt.Errorf("create auth cache: %w", err)
	}
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &SessionAuth{users: users, sessions: sessions, cache: c, sessionTTL: sessionTTL}, nil
}

// Register creates an account with a bcrypt-hashed password.
func (a *SessionAuth) Register(ctx context.Context, username, email, fullName, password string) (*krishi.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u := &krishi.User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hash),
	}
	if err := a.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Login verifies credentials and mints a new session token. The plaintext
// token is returned exactly once; only its hash is stored.
func (a *SessionAuth) Login(ctx context.Context, username, password string) (string, *krishi.User, error) {
	u, err := a.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, krishi.ErrNotFound) {
			return "", nil, krishi.ErrUnauthorized
		}
		return "", nil, err
	}
	if !u.Active {
		return "", nil, krishi.ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", nil, krishi.ErrUnauthorized
	}

	token, err := newToken()
	if err != nil {
		return "", nil, err
	}
	now := time.Now().UTC()
	sess := &krishi.Session{
		TokenHash: krishi.HashToken(token),
		UserID:    u.ID,
		ExpiresAt: now.Add(a.sessionTTL),
		CreatedAt: now,
	}
	if err := a.sessions.CreateSession(ctx, sess); err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}
	return token, u, nil
}

// Authenticate extracts a Bearer token from the Authorization header,
// validates the session, and returns the caller's Identity. Only tokens
// with the "krs_" prefix are handled; all others return ErrUnauthorized.
func (a *SessionAuth) Authenticate(ctx context.Context, r *http.Request) (*krishi.Identity, error) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" || raw == r.Header.Get("Authorization") {
		return nil, krishi.ErrUnauthorized
	}
	if !strings.HasPrefix(raw, krishi.TokenPrefix) {
		return nil, krishi.ErrUnauthorized
	}

	hash := krishi.HashToken(raw)

	if cs, ok := a.cache.GetIfPresent(hash); ok {
		if cs.session.ExpiresAt.Before(time.Now()) {
			a.cache.Invalidate(hash)
			return nil, krishi.ErrSessionExpired
		}
		return cs.identity, nil
	}

	sess, err := a.sessions.GetSession(ctx, hash)
	if err != nil {
		if errors.Is(err, krishi.ErrNotFound) {
			return nil, krishi.ErrUnauthorized
		}
		return nil, err
	}
	if sess.ExpiresAt.Before(time.Now()) {
		return nil, krishi.ErrSessionExpired
	}

	u, err := a.users.GetUser(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, krishi.ErrNotFound) {
			return nil, krishi.ErrUnauthorized
		}
		return nil, err
	}
	if !u.Active {
		return nil, krishi.ErrUnauthorized
	}

	id := &krishi.Identity{UserID: u.ID, Username: u.Username}
	a.cache.Set(hash, cachedSession{session: sess, identity: id})
	return id, nil
}

// Logout deletes the session for a raw token and drops it from the cache.
func (a *SessionAuth) Logout(ctx context.Context, rawToken string) error {
	hash := krishi.HashToken(rawToken)
	a.cache.Invalidate(hash)
	err := a.sessions.DeleteSession(ctx, hash)
	if errors.Is(err, krishi.ErrNotFound) {
		return nil
	}
	return err
}

// newToken generates a prefixed 32-byte random token.
func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return krishi.TokenPrefix + hex.EncodeToString(buf), nil
}
