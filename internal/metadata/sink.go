// Package metadata records job outcomes for later analysis. All writes
// are best-effort: the conductor logs failures and moves on, and a sink
// error never changes a job's terminal state.
package metadata

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"diagramgen/internal/domain"
)

// Sink receives one summary per finished job.
type Sink interface {
	Record(ctx context.Context, summary domain.JobSummary) error
}

// NopSink discards every summary. Used when no database is configured.
type NopSink struct{}

func (NopSink) Record(context.Context, domain.JobSummary) error { return nil }

// Execer is the slice of the pgx pool surface the sink needs. Tests
// substitute a stub.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ Execer = (*pgxpool.Pool)(nil)

// PGSink persists job history rows and per-session counters in
// PostgreSQL.
type PGSink struct {
	pool Execer
}

// NewPGSink creates a sink backed by the given pool.
func NewPGSink(pool Execer) *PGSink {
	return &PGSink{pool: pool}
}

// Record inserts the history row and bumps the session counters.
func (s *PGSink) Record(ctx context.Context, summary domain.JobSummary) error {
	const insertHistory = `
INSERT INTO diagram_history (job_id, session_id, status, diagram_type, generation_method, diagram_url, generation_time_ms, cache_hit, error_message, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (job_id) DO NOTHING;
`
	if _, err := s.pool.Exec(ctx, insertHistory,
		summary.JobID,
		nullableString(summary.SessionID),
		string(summary.Status),
		summary.DiagramType,
		string(summary.GenerationMethod),
		summary.DiagramURL,
		summary.ElapsedMS,
		summary.CacheHit,
		nullableString(summary.ErrorMessage),
		summary.CompletedAt,
	); err != nil {
		return fmt.Errorf("metadata: insert history: %w", err)
	}

	if summary.SessionID == "" {
		return nil
	}

	const upsertSession = `
INSERT INTO diagram_sessions (session_id, diagram_count, last_diagram_at)
VALUES ($1, 1, $2)
ON CONFLICT (session_id)
DO UPDATE SET diagram_count = diagram_sessions.diagram_count + 1, last_diagram_at = $2;
`
	if _, err := s.pool.Exec(ctx, upsertSession, summary.SessionID, summary.CompletedAt); err != nil {
		return fmt.Errorf("metadata: update session: %w", err)
	}
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var _ Sink = (*PGSink)(nil)
var _ Sink = NopSink{}
