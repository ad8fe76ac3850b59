package session

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/louisbranch/guildboard/internal/platform/logging"
	"github.com/louisbranch/guildboard/internal/services/guild/storage"
	"go.uber.org/zap"
)

// DefaultReapInterval is how often the dashboard sweeps expired sessions.
const DefaultReapInterval = time.Hour

// Reaper physically deletes expired session rows. Reads never depend on it;
// expired rows are already invisible to Store.Get.
type Reaper struct {
	sessions storage.SessionStore
	clock    clock.Clock
	logger   *zap.Logger
}

// NewReaper builds a Reaper. A nil clock uses the wall clock.
func NewReaper(sessions storage.SessionStore, clk clock.Clock, logger *zap.Logger) *Reaper {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Reaper{
		sessions: sessions,
		clock:    clk,
		logger:   logging.OrNop(logger).Named("session.reaper"),
	}
}

// ReapOnce deletes every session expired as of now.
func (r *Reaper) ReapOnce(ctx context.Context) (int64, error) {
	removed, err := r.sessions.DeleteExpiredSessions(ctx, r.clock.Now().UTC())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		r.logger.Info("reaped expired sessions", zap.Int64("removed", removed))
	}
	return removed, nil
}

// StartCleanup reaps every interval until ctx is done. The returned channel
// closes once the sweep goroutine has exited; it is already closed when
// cleanup is disabled by a nil reaper or a non-positive interval.
func (r *Reaper) StartCleanup(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	if r == nil || r.sessions == nil || interval <= 0 {
		close(done)
		return done
	}
	if ctx == nil {
		ctx = context.Background()
	}
	go func() {
		defer close(done)
		timer := r.clock.NewTimer(interval)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.Chan():
				if _, err := r.ReapOnce(ctx); err != nil && ctx.Err() == nil {
					r.logger.Error("reap expired sessions", zap.Error(err))
				}
				timer.Reset(interval)
			}
		}
	}()
	return done
}
