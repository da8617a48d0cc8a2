package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"activity-hub/internal/membership"
	"activity-hub/internal/model"
)

// Join locks the event row so concurrent joins on one event serialize; the
// (event_id, user_id) primary key rules out duplicate rows regardless.
func (s *Store) Join(ctx context.Context, eventID, userID string) error {
	return s.mutateMembership(ctx, eventID, userID, func(tx pgx.Tx, e *model.Event, member bool) error {
		if err := membership.CheckJoin(e, userID, member); err != nil {
			return err
		}
		now := s.now()
		if _, err := tx.Exec(ctx,
			`INSERT INTO event_memberships (event_id, user_id, role, joined_at) VALUES ($1,$2,$3,$4)`,
			eventID, userID, string(model.RoleParticipant), now,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`UPDATE events SET participants_count = participants_count + 1, updated_at = $2 WHERE id = $1`,
			eventID, now)
		return err
	})
}

func (s *Store) Leave(ctx context.Context, eventID, userID string) error {
	return s.mutateMembership(ctx, eventID, userID, func(tx pgx.Tx, e *model.Event, member bool) error {
		if err := membership.CheckLeave(e, userID, member); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM event_memberships WHERE event_id = $1 AND user_id = $2`, eventID, userID,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`UPDATE events SET participants_count = participants_count - 1, updated_at = $2 WHERE id = $1`,
			eventID, s.now())
		return err
	})
}

func (s *Store) mutateMembership(ctx context.Context, eventID, userID string, apply func(pgx.Tx, *model.Event, bool) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	e, err := scanEvent(tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, eventID))
	if err != nil {
		return err
	}

	var member bool
	if err := tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM event_memberships WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID,
	).Scan(&member); err != nil {
		return err
	}

	if err := apply(tx, e, member); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Membership(ctx context.Context, eventID, userID string) (*model.Membership, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	m, err := scanMembership(s.pool.QueryRow(ctx,
		`SELECT event_id, user_id, role, joined_at FROM event_memberships
		 WHERE event_id = $1 AND user_id = $2`, eventID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (s *Store) Memberships(ctx context.Context, userID string) ([]model.Membership, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT m.event_id, m.user_id, m.role, m.joined_at
		 FROM event_memberships m JOIN events e ON e.id = m.event_id
		 WHERE m.user_id = $1 AND e.deleted_at IS NULL
		 ORDER BY m.event_id`, userID)
	if err != nil {
		return nil, err
	}
	return collectMemberships(rows)
}

func (s *Store) ListParticipants(ctx context.Context, eventID string) ([]model.Membership, error) {
	if _, err := s.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT event_id, user_id, role, joined_at FROM event_memberships
		 WHERE event_id = $1 ORDER BY joined_at, user_id`, eventID)
	if err != nil {
		return nil, err
	}
	return collectMemberships(rows)
}

func scanMembership(row pgx.Row) (*model.Membership, error) {
	var (
		m    model.Membership
		role string
	)
	if err := row.Scan(&m.EventID, &m.UserID, &role, &m.JoinedAt); err != nil {
		return nil, err
	}
	m.Role = model.Role(role)
	return &m, nil
}

func collectMemberships(rows pgx.Rows) ([]model.Membership, error) {
	defer rows.Close()
	var out []model.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
