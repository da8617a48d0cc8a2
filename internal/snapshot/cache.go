// Package snapshot holds the one event cache shared by the discovery views.
// Views read it; only Refresh writes it, and Refresh is handed to the status
// scheduler and the membership controller alone.
package snapshot

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"activity-hub/internal/model"
)

const (
	// Lookback and Lookahead bound the start times the default refresh loads.
	// Together they cover the live, upcoming and schedule views.
	Lookback  = 24 * time.Hour
	Lookahead = 15 * 24 * time.Hour

	// maxPages caps each refresh query at maxPages*model.MaxLimit events.
	maxPages = 20
)

// Source is the read side of the event repository.
type Source interface {
	ListEvents(ctx context.Context, f model.Filter) ([]model.Event, error)
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	Memberships(ctx context.Context, userID string) ([]model.Membership, error)
}

// Reader is what views get.
type Reader interface {
	Events() []model.Event
	Role(eventID string) (model.Role, bool)
}

type Cache struct {
	src    Source
	viewer string
	filter *model.Filter
	clock  clockwork.Clock
	log    *zap.Logger

	// refreshes run one at a time so an older response cannot overwrite a newer one
	refreshMu sync.Mutex

	mu          sync.RWMutex
	events      map[string]model.Event
	roles       map[string]model.Role
	refreshedAt time.Time
}

type Option func(*Cache)

// WithFilter replaces the default refresh with a single listEvents call.
func WithFilter(f model.Filter) Option {
	return func(c *Cache) { c.filter = &f }
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Cache) { c.clock = clock }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// New builds an empty cache for viewerID.
func New(src Source, viewerID string, opts ...Option) *Cache {
	c := &Cache{
		src:    src,
		viewer: viewerID,
		clock:  clockwork.NewRealClock(),
		log:    zap.NewNop(),
		events: make(map[string]model.Event),
		roles:  make(map[string]model.Role),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Refresh replaces the cached events and the viewer's memberships. On error
// the previous contents stay in place.
func (c *Cache) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	events, err := c.load(ctx)
	if err != nil {
		return err
	}
	var members []model.Membership
	if c.viewer != "" {
		if members, err = c.src.Memberships(ctx, c.viewer); err != nil {
			return err
		}
	}

	byID := make(map[string]model.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}
	roles := make(map[string]model.Role, len(members))
	for _, m := range members {
		roles[m.EventID] = m.Role
		if _, ok := byID[m.EventID]; ok {
			continue
		}
		// the viewer's own events may fall outside the listed page
		e, err := c.src.GetEvent(ctx, m.EventID)
		if errors.Is(err, model.ErrNotFound) {
			delete(roles, m.EventID)
			continue
		}
		if err != nil {
			return err
		}
		byID[e.ID] = *e
	}

	c.mu.Lock()
	c.events = byID
	c.roles = roles
	c.refreshedAt = c.clock.Now()
	c.mu.Unlock()

	c.log.Debug("snapshot refreshed", zap.Int("events", len(byID)), zap.Int("memberships", len(roles)))
	return nil
}

// load pages through events starting in [now-Lookback, now+Lookahead], oldest
// first, plus earlier events that are still open, such as multi-day ones.
func (c *Cache) load(ctx context.Context) ([]model.Event, error) {
	if c.filter != nil {
		return c.src.ListEvents(ctx, *c.filter)
	}
	now := c.clock.Now()
	from, until := now.Add(-Lookback), now.Add(Lookahead)

	window, err := c.pages(ctx, model.Filter{StartAfter: &from, StartBefore: &until})
	if err != nil {
		return nil, err
	}
	open, err := c.pages(ctx, model.Filter{
		StartBefore: &from,
		Statuses:    []model.Status{model.StatusUpcoming, model.StatusActive},
	})
	if err != nil {
		return nil, err
	}
	return append(open, window...), nil
}

func (c *Cache) pages(ctx context.Context, f model.Filter) ([]model.Event, error) {
	f.Ascending = true
	f.Limit = model.MaxLimit
	var out []model.Event
	for page := 0; page < maxPages; page++ {
		f.Offset = page * model.MaxLimit
		batch, err := c.src.ListEvents(ctx, f)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
		if len(batch) < model.MaxLimit {
			return out, nil
		}
	}
	c.log.Warn("snapshot query truncated", zap.Int("events", len(out)))
	return out, nil
}

// Events returns a copy ordered by id.
func (c *Cache) Events() []model.Event {
	c.mu.RLock()
	out := make([]model.Event, 0, len(c.events))
	for _, e := range c.events {
		out = append(out, e)
	}
	c.mu.RUnlock()
	slices.SortFunc(out, func(a, b model.Event) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (c *Cache) Event(id string) (model.Event, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.events[id]
	return e, ok
}

// Role reports the viewer's membership role in eventID.
func (c *Cache) Role(eventID string) (model.Role, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.roles[eventID]
	return r, ok
}

func (c *Cache) RefreshedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.refreshedAt
}
