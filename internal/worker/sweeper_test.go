package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	krishi "github.com/krishihq/krishi/internal"
	"github.com/krishihq/krishi/internal/ratelimit"
)

type fakeSessionStore struct {
	sweeps atomic.Int64
}

func (f *fakeSessionStore) CreateSession(ctx context.Context, s *krishi.Session) error { return nil }
func (f *fakeSessionStore) GetSession(ctx context.Context, tokenHash string) (*krishi.Session, error) {
	return nil, krishi.ErrNotFound
}
func (f *fakeSessionStore) DeleteSession(ctx context.Context, tokenHash string) error { return nil }
func (f *fakeSessionStore) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	f.sweeps.Add(1)
	return 2, nil
}

func TestSweeperRuns(t *testing.T) {
	t.Parallel()
	store := &fakeSessionStore{}
	s := NewSweeper(store, ratelimit.NewRegistry())
	s.every = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	if err := s.Run(ctx); err != nil {
		t.Fatal(err)
	}
	if store.sweeps.Load() == 0 {
		t.Error("sweeper never ran")
	}
}

func TestRunnerCancellation(t *testing.T) {
	t.Parallel()
	s := NewSweeper(&fakeSessionStore{}, nil)
	r := NewRunner(s)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("run err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}
