package store

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"activity-hub/internal/eventstatus"
	"activity-hub/internal/geo"
	"activity-hub/internal/model"
)

// CreateEvent inserts the event together with its organizer membership.
func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = model.StatusUpcoming
	}
	now := s.now()
	e.CreatedAt, e.UpdatedAt = now, now
	e.ParticipantsCount = 1

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO events (id, organizer_id, type, title, description, sport, start_at, end_at,
		                     location_name, latitude, longitude, capacity, participants_count, status,
		                     created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		e.ID, e.OrganizerID, string(e.Kind), e.Title, e.Description, e.Sport, e.StartAt, e.EndAt,
		e.LocationName, e.Latitude, e.Longitude, e.Capacity, e.ParticipantsCount, string(e.Status),
		e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO event_memberships (event_id, user_id, role, joined_at) VALUES ($1,$2,$3,$4)`,
		e.ID, e.OrganizerID, string(model.RoleOrganizer), now,
	)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	return scanEvent(s.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 AND deleted_at IS NULL`, id))
}

// likeEscaper makes user input literal inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ListEvents orders by start_at, newest first unless f.Ascending. With a
// distance constraint the bounding box narrows candidates in SQL and paging
// happens after the exact haversine check.
func (s *Store) ListEvents(ctx context.Context, f model.Filter) ([]model.Event, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	f.Normalize()

	w := &where{}
	w.add("deleted_at IS NULL")
	if f.Sport != "" {
		w.add("sport = ?", f.Sport)
	}
	if f.Kind != "" {
		w.add("type = ?", string(f.Kind))
	}
	if f.OrganizerID != "" {
		w.add("organizer_id = ?", f.OrganizerID)
	}
	if f.Location != "" {
		w.add(`LOWER(location_name) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(f.Location))+"%")
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		w.add("status = ANY(?)", statuses)
	}
	if f.StartAfter != nil {
		w.add("start_at >= ?", *f.StartAfter)
	}
	if f.StartBefore != nil {
		w.add("start_at <= ?", *f.StartBefore)
	}
	if f.MinCapacity != nil {
		w.add("capacity IS NOT NULL AND capacity >= ?", *f.MinCapacity)
	}
	if f.MaxCapacity != nil {
		w.add("capacity IS NOT NULL AND capacity <= ?", *f.MaxCapacity)
	}
	if f.Geo() {
		box := geo.BoundingBox(f.Near.Lat, f.Near.Lon, f.RadiusKm)
		w.add("latitude BETWEEN ? AND ?", box.MinLat, box.MaxLat)
		ranges := box.LonRanges()
		conds := make([]string, len(ranges))
		var args []any
		for i, r := range ranges {
			conds[i] = "longitude BETWEEN ? AND ?"
			args = append(args, r[0], r[1])
		}
		w.add("("+strings.Join(conds, " OR ")+")", args...)
	}

	q := `SELECT ` + eventColumns + ` FROM events` + w.String() + ` ORDER BY ` + f.OrderBy()
	if !f.Geo() {
		q += ` LIMIT ` + w.next(f.Limit) + ` OFFSET ` + w.next(f.Offset)
	}

	rows, err := s.pool.Query(ctx, q, w.args...)
	if err != nil {
		return nil, err
	}
	events, err := collectEvents(rows)
	if err != nil || !f.Geo() {
		return events, err
	}

	// box corners lie outside the circle
	kept := events[:0]
	for i := range events {
		if f.Matches(&events[i]) {
			kept = append(kept, events[i])
		}
	}
	if f.Offset >= len(kept) {
		return nil, nil
	}
	kept = kept[f.Offset:]
	if len(kept) > f.Limit {
		kept = kept[:f.Limit]
	}
	return kept, nil
}

// CancelEvent is an organizer action; complete and cancelled events are final.
func (s *Store) CancelEvent(ctx context.Context, id, organizerID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	e, err := scanEvent(tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id))
	if err != nil {
		return err
	}
	if e.OrganizerID != organizerID {
		return model.ErrForbidden
	}
	if !eventstatus.CanTransition(e.Status, model.StatusCancelled) {
		return &model.ValidationError{Field: "status", Reason: "event is " + string(e.Status)}
	}

	_, err = tx.Exec(ctx,
		`UPDATE events SET status = 'cancelled', updated_at = $2 WHERE id = $1`, id, s.now())
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DeleteEvent soft-deletes; memberships stay for history.
func (s *Store) DeleteEvent(ctx context.Context, id, organizerID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE events SET deleted_at = $3, updated_at = $3
		 WHERE id = $1 AND organizer_id = $2 AND deleted_at IS NULL`, id, organizerID, s.now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// distinguish missing from not owned
		if _, err := s.GetEvent(ctx, id); err != nil {
			return err
		}
		return model.ErrForbidden
	}
	return nil
}
