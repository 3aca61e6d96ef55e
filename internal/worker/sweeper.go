package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/krishihq/krishi/internal/ratelimit"
	"github.com/krishihq/krishi/internal/storage"
)

const (
	sweepEvery       = 10 * time.Minute
	limiterIdleAfter = time.Hour
)

// Sweeper periodically deletes expired sessions and evicts idle rate
// limiters so long-running deployments do not accumulate garbage.
type Sweeper struct {
	sessions storage.SessionStore
	limiters *ratelimit.Registry
	every    time.Duration
}

// NewSweeper creates a Sweeper. limiters may be nil when rate limiting is
// disabled.
func NewSweeper(sessions storage.SessionStore, limiters *ratelimit.Registry) *Sweeper {
	return &Sweeper{sessions: sessions, limiters: limiters, every: sweepEvery}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	n, err := s.sessions.DeleteExpiredSessions(sweepCtx)
	if err != nil {
		slog.WarnContext(ctx, "session sweep failed", slog.Any("error", err))
	} else if n > 0 {
		slog.InfoContext(ctx, "expired sessions deleted", slog.Int64("count", n))
	}

	if s.limiters != nil {
		if evicted := s.limiters.EvictStale(time.Now().Add(-limiterIdleAfter)); evicted > 0 {
			slog.InfoContext(ctx, "idle rate limiters evicted", slog.Int("count", evicted))
		}
	}
}
