package store

import (
	"context"
	"time"

	"activity-hub/internal/eventstatus"
	"activity-hub/internal/model"
)

// open-ended events are complete once start_at passes this cutoff
func (s *Store) cutoff() (now, openEnded time.Time) {
	n := s.now()
	return n, n.Add(-eventstatus.ImplicitDuration)
}

// ListEventsNeedingStatusUpdate is read-only; it reports events whose
// stored status lags the clock.
func (s *Store) ListEventsNeedingStatusUpdate(ctx context.Context) ([]model.Event, error) {
	now, openEnded := s.cutoff()
	rows, err := s.pool.Query(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE deleted_at IS NULL AND (
		       (status = 'upcoming' AND start_at <= $1)
		    OR (status = 'active' AND end_at IS NOT NULL AND end_at <= $1)
		    OR (status = 'active' AND end_at IS NULL AND start_at <= $2))
		 ORDER BY id`, now, openEnded)
	if err != nil {
		return nil, err
	}
	return collectEvents(rows)
}

// ApplyStatusUpdates runs upcoming->active then active->complete in one
// transaction, so an event past its end moves both steps. The result counts
// transitions, not distinct events.
func (s *Store) ApplyStatusUpdates(ctx context.Context) (int64, error) {
	now, openEnded := s.cutoff()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	started, err := tx.Exec(ctx,
		`UPDATE events SET status = 'active', updated_at = $1
		 WHERE deleted_at IS NULL AND status = 'upcoming' AND start_at <= $1`, now)
	if err != nil {
		return 0, err
	}

	finished, err := tx.Exec(ctx,
		`UPDATE events SET status = 'complete', updated_at = $1
		 WHERE deleted_at IS NULL AND status = 'active'
		   AND ((end_at IS NOT NULL AND end_at <= $1) OR (end_at IS NULL AND start_at <= $2))`,
		now, openEnded)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return started.RowsAffected() + finished.RowsAffected(), nil
}
