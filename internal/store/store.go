package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"activity-hub/internal/model"
)

type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// Migrate applies the schema file at path. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context, path string) error {
	migration, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, string(migration))
	return err
}

const eventColumns = `id, organizer_id, type, title, description, sport, start_at, end_at,
	location_name, latitude, longitude, capacity, participants_count, status, created_at, updated_at`

func scanEvent(row pgx.Row) (*model.Event, error) {
	var (
		e            model.Event
		kind, status string
	)
	err := row.Scan(
		&e.ID, &e.OrganizerID, &kind, &e.Title, &e.Description, &e.Sport, &e.StartAt, &e.EndAt,
		&e.LocationName, &e.Latitude, &e.Longitude, &e.Capacity, &e.ParticipantsCount, &status,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Kind = model.Kind(kind)
	e.Status = model.Status(status)
	return &e, nil
}

func collectEvents(rows pgx.Rows) ([]model.Event, error) {
	defer rows.Close()
	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

// where accumulates conditions written with ? placeholders and renumbers them.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	for _, a := range args {
		w.args = append(w.args, a)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// next returns the placeholder for an argument appended after the conditions.
func (w *where) next(arg any) string {
	w.args = append(w.args, arg)
	return fmt.Sprintf("$%d", len(w.args))
}
