package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"diagramgen/internal/domain"
)

// Sweeper evicts terminal jobs whose completion timestamp has fallen
// outside the retention window. Non-terminal jobs are never touched; an
// orphaned processing job is a bug to surface, not something to hide.
type Sweeper struct {
	store     *Store
	retention time.Duration
	interval  time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewSweeper configures a sweeper over the given store.
func NewSweeper(store *Store, retention, interval time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		store:     store,
		retention: retention,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().
		Dur("interval", s.interval).
		Dur("retention", s.retention).
		Msg("sweeper: started")

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("sweeper: stopped")
			return
		case <-ticker.C:
			if removed := s.SweepOnce(); removed > 0 {
				s.logger.Info().Int("removed", removed).Msg("sweeper: evicted expired jobs")
			}
		}
	}
}

// SweepOnce deletes expired terminal jobs and returns how many were
// removed. Sweeping an already-deleted id is a no-op.
func (s *Sweeper) SweepOnce() int {
	cutoff := s.now().UTC().Add(-s.retention)
	removed := 0
	for _, job := range s.store.List() {
		if !job.Status.Terminal() {
			continue
		}
		if job.CompletedAt.IsZero() || !job.CompletedAt.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(job.ID); err == nil {
			removed++
		} else if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("sweeper: delete failed")
		}
	}
	return removed
}
