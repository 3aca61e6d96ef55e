package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	krishi "github.com/krishihq/krishi/internal"
)

type memStore struct {
	mu       sync.Mutex
	users    map[int64]*krishi.User
	byName   map[string]*krishi.User
	sessions map[string]*krishi.Session
	nextID   int64
	getCalls int
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[int64]*krishi.User),
		byName:   make(map[string]*krishi.User),
		sessions: make(map[string]*krishi.Session),
	}
}

func (m *memStore) CreateUser(ctx context.Context, u *krishi.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byName[u.Username]; exists {
		return krishi.ErrConflict
	}
	m.nextID++
	u.ID = m.nextID
	u.Active = true
	m.users[u.ID] = u
	m.byName[u.Username] = u
	return nil
}

func (m *memStore) GetUser(ctx context.Context, id int64) (*krishi.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, krishi.ErrNotFound
	}
	return u, nil
}

func (m *memStore) GetUserByUsername(ctx context.Context, username string) (*krishi.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byName[username]
	if !ok {
		return nil, krishi.ErrNotFound
	}
	return u, nil
}

func (m *memStore) CreateSession(ctx context.Context, s *krishi.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.TokenHash] = s
	return nil
}

func (m *memStore) GetSession(ctx context.Context, tokenHash string) (*krishi.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	s, ok := m.sessions[tokenHash]
	if !ok {
		return nil, krishi.ErrNotFound
	}
	return s, nil
}

func (m *memStore) DeleteSession(ctx context.Context, tokenHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[tokenHash]; !ok {
		return krishi.ErrNotFound
	}
	delete(m.sessions, tokenHash)
	return nil
}

func (m *memStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for hash, s := range m.sessions {
		if s.ExpiresAt.Before(time.Now()) {
			delete(m.sessions, hash)
			n++
		}
	}
	return n, nil
}

func newTestAuth(t *testing.T) (*SessionAuth, *memStore) {
	t.Helper()
	store := newMemStore()
	a, err := New(store, store, 24*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return a, store
}

func bearerRequest(token string) *http.Request {
	r, _ := http.NewRequest(http.MethodGet, "/api/v1/crops", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestRegisterAndLogin(t *testing.T) {
	t.Parallel()
	a, _ := newTestAuth(t)
	ctx := context.Background()

	u, err := a.Register(ctx, "ramesh", "ramesh@example.com", "Ramesh Patil", "secret123")
	if err != nil {
		t.Fatal("register:", err)
	}
	if u.ID == 0 {
		t.Error("register should assign an ID")
	}
	if u.PasswordHash == "secret123" {
		t.Error("password must not be stored in plaintext")
	}

	token, got, err := a.Login(ctx, "ramesh", "secret123")
	if err != nil {
		t.Fatal("login:", err)
	}
	if !strings.HasPrefix(token, krishi.TokenPrefix) {
		t.Errorf("token %q missing prefix", token)
	}
	if got.ID != u.ID {
		t.Errorf("user id = %d, want %d", got.ID, u.ID)
	}

	if _, _, err := a.Login(ctx, "ramesh", "wrong"); !errors.Is(err, krishi.ErrUnauthorized) {
		t.Errorf("wrong password err = %v, want ErrUnauthorized", err)
	}
	if _, _, err := a.Login(ctx, "nobody", "secret123"); !errors.Is(err, krishi.ErrUnauthorized) {
		t.Errorf("unknown user err = %v, want ErrUnauthorized", err)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	t.Parallel()
	a, _ := newTestAuth(t)
	ctx := context.Background()

	if _, err := a.Register(ctx, "dup", "a@example.com", "", "pw"); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Register(ctx, "dup", "b@example.com", "", "pw"); !errors.Is(err, krishi.ErrConflict) {
		t.Errorf("duplicate err = %v, want ErrConflict", err)
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	a, store := newTestAuth(t)
	ctx := context.Background()

	if _, err := a.Register(ctx, "savita", "s@example.com", "", "pw123456"); err != nil {
		t.Fatal(err)
	}
	token, _, err := a.Login(ctx, "savita", "pw123456")
	if err != nil {
		t.Fatal(err)
	}

	id, err := a.Authenticate(ctx, bearerRequest(token))
	if err != nil {
		t.Fatal("authenticate:", err)
	}
	if id.Username != "savita" {
		t.Errorf("username = %q", id.Username)
	}

	// Second lookup is served from cache.
	time.Sleep(50 * time.Millisecond)
	calls := store.getCalls
	if _, err := a.Authenticate(ctx, bearerRequest(token)); err != nil {
		t.Fatal(err)
	}
	if store.getCalls != calls {
		t.Errorf("session lookups = %d, want %d (cached)", store.getCalls, calls)
	}
}

func TestAuthenticateRejections(t *testing.T) {
	t.Parallel()
	a, store := newTestAuth(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		token string
	}{
		{"missing header", ""},
		{"wrong prefix", "sk_deadbeef"},
		{"unknown token", krishi.TokenPrefix + "deadbeef"},
	}
	for _, tc := range cases {
		if _, err := a.Authenticate(ctx, bearerRequest(tc.token)); !errors.Is(err, krishi.ErrUnauthorized) {
			t.Errorf("%s: err = %v, want ErrUnauthorized", tc.name, err)
		}
	}

	// Expired session.
	expired := &krishi.Session{
		TokenHash: krishi.HashToken(krishi.TokenPrefix + "old"),
		UserID:    1,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	store.CreateSession(ctx, expired)
	if _, err := a.Authenticate(ctx, bearerRequest(krishi.TokenPrefix+"old")); !errors.Is(err, krishi.ErrSessionExpired) {
		t.Errorf("expired err = %v, want ErrSessionExpired", err)
	}
}

func TestLogout(t *testing.T) {
	t.Parallel()
	a, _ := newTestAuth(t)
	ctx := context.Background()

	if _, err := a.Register(ctx, "out", "o@example.com", "", "pw123456"); err != nil {
		t.Fatal(err)
	}
	token, _, err := a.Login(ctx, "out", "pw123456")
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Logout(ctx, token); err != nil {
		t.Fatal("logout:", err)
	}
	if _, err := a.Authenticate(ctx, bearerRequest(token)); !errors.Is(err, krishi.ErrUnauthorized) {
		t.Errorf("after logout err = %v, want ErrUnauthorized", err)
	}
	// Logout is idempotent.
	if err := a.Logout(ctx, token); err != nil {
		t.Errorf("second logout err = %v", err)
	}
}
