// Package memstore is an in-memory event repository. It backs the server
// when DATABASE_URL=memory and doubles as the repository in tests.
package memstore

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"activity-hub/internal/eventstatus"
	"activity-hub/internal/membership"
	"activity-hub/internal/model"
)

type Store struct {
	mu      sync.Mutex
	events  map[string]*model.Event
	members map[string]map[string]model.Membership // event id -> user id
	deleted map[string]bool
	now     func() time.Time
}

type Option func(*Store)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{
		events:  make(map[string]*model.Event),
		members: make(map[string]map[string]model.Membership),
		deleted: make(map[string]bool),
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateEvent stores e, filling ID, status and timestamps when unset, and
// records the organizer membership.
func (s *Store) CreateEvent(ctx context.Context, e *model.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Status == "" {
		e.Status = model.StatusUpcoming
	}
	e.CreatedAt, e.UpdatedAt = now, now
	e.ParticipantsCount = 1

	cp := *e
	s.events[e.ID] = &cp
	s.members[e.ID] = map[string]model.Membership{
		e.OrganizerID: {EventID: e.ID, UserID: e.OrganizerID, Role: model.RoleOrganizer, JoinedAt: now},
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.get(id)
	if err != nil {
		return nil, err
	}
	cp := *e
	return &cp, nil
}

func (s *Store) ListEvents(ctx context.Context, f model.Filter) ([]model.Event, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	f.Normalize()

	s.mu.Lock()
	var out []model.Event
	for id, e := range s.events {
		if !s.deleted[id] && f.Matches(e) {
			out = append(out, *e)
		}
	}
	s.mu.Unlock()

	slices.SortFunc(out, func(a, b model.Event) int { return f.Compare(&a, &b) })
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) CancelEvent(ctx context.Context, id, organizerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.owned(id, organizerID)
	if err != nil {
		return err
	}
	if !eventstatus.CanTransition(e.Status, model.StatusCancelled) {
		return &model.ValidationError{Field: "status", Reason: "event is " + string(e.Status)}
	}
	e.Status = model.StatusCancelled
	e.UpdatedAt = s.now()
	return nil
}

func (s *Store) DeleteEvent(ctx context.Context, id, organizerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.owned(id, organizerID); err != nil {
		return err
	}
	s.deleted[id] = true
	return nil
}

func (s *Store) Join(ctx context.Context, eventID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.get(eventID)
	if err != nil {
		return err
	}
	_, member := s.members[eventID][userID]
	if err := membership.CheckJoin(e, userID, member); err != nil {
		return err
	}
	s.members[eventID][userID] = model.Membership{
		EventID: eventID, UserID: userID, Role: model.RoleParticipant, JoinedAt: s.now(),
	}
	e.ParticipantsCount++
	e.UpdatedAt = s.now()
	return nil
}

func (s *Store) Leave(ctx context.Context, eventID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.get(eventID)
	if err != nil {
		return err
	}
	_, member := s.members[eventID][userID]
	if err := membership.CheckLeave(e, userID, member); err != nil {
		return err
	}
	delete(s.members[eventID], userID)
	e.ParticipantsCount--
	e.UpdatedAt = s.now()
	return nil
}

func (s *Store) Membership(ctx context.Context, eventID, userID string) (*model.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.get(eventID); err != nil {
		return nil, err
	}
	m, ok := s.members[eventID][userID]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

// Memberships lists every live event membership held by userID.
func (s *Store) Memberships(ctx context.Context, userID string) ([]model.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Membership
	for eventID, byUser := range s.members {
		if s.deleted[eventID] {
			continue
		}
		if m, ok := byUser[userID]; ok {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b model.Membership) int { return cmp.Compare(a.EventID, b.EventID) })
	return out, nil
}

func (s *Store) ListParticipants(ctx context.Context, eventID string) ([]model.Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.get(eventID); err != nil {
		return nil, err
	}
	out := make([]model.Membership, 0, len(s.members[eventID]))
	for _, m := range s.members[eventID] {
		out = append(out, m)
	}
	slices.SortFunc(out, func(a, b model.Membership) int {
		if c := a.JoinedAt.Compare(b.JoinedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	return out, nil
}

func (s *Store) ListEventsNeedingStatusUpdate(ctx context.Context) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var out []model.Event
	for id, e := range s.events {
		if !s.deleted[id] && eventstatus.IsStale(e, now) {
			out = append(out, *e)
		}
	}
	slices.SortFunc(out, func(a, b model.Event) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// ApplyStatusUpdates moves every stale event to its resolved status and
// returns how many changed.
func (s *Store) ApplyStatusUpdates(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var n int64
	for id, e := range s.events {
		if s.deleted[id] {
			continue
		}
		if next := eventstatus.Resolve(e, now); next != e.Status {
			e.Status = next
			e.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *Store) get(id string) (*model.Event, error) {
	e, ok := s.events[id]
	if !ok || s.deleted[id] {
		return nil, model.ErrNotFound
	}
	return e, nil
}

func (s *Store) owned(id, organizerID string) (*model.Event, error) {
	e, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if e.OrganizerID != organizerID {
		return nil, model.ErrForbidden
	}
	return e, nil
}
