package discovery

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"activity-hub/internal/geolocation"
	"activity-hub/internal/model"
	"activity-hub/internal/prefs"
	"activity-hub/internal/snapshot"
)

// RadiusSource is the read side of the preference store.
type RadiusSource interface {
	GetRadiusKm() (float64, error)
}

// Views is one rendering of the sidebar.
type Views struct {
	At              time.Time
	Viewer          Viewer
	HappeningNow    []model.Event
	UpcomingNearYou []model.Event
	YourSchedule    []model.Event
}

// Service builds Views from the shared snapshot. It never fetches events
// itself.
type Service struct {
	snap       snapshot.Reader
	locator    geolocation.Provider
	radius     RadiusSource
	profile    string
	geoTimeout time.Duration
	clock      clockwork.Clock
	log        *zap.Logger
}

type Option func(*Service)

func WithGeolocation(p geolocation.Provider, timeout time.Duration) Option {
	return func(s *Service) {
		s.locator = p
		s.geoTimeout = timeout
	}
}

func WithRadius(r RadiusSource) Option {
	return func(s *Service) { s.radius = r }
}

// WithProfileLocation sets the free-text location used when coordinates are
// not available.
func WithProfileLocation(loc string) Option {
	return func(s *Service) { s.profile = loc }
}

func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(snap snapshot.Reader, opts ...Option) *Service {
	s := &Service{
		snap:       snap,
		locator:    geolocation.None{},
		geoTimeout: geolocation.DefaultTimeout,
		clock:      clockwork.NewRealClock(),
		log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Viewer resolves the viewer's position and radius. Neither failure is an
// error: position falls back to text matching, radius to its default.
func (s *Service) Viewer(ctx context.Context) Viewer {
	v := Viewer{RadiusKm: prefs.DefaultRadiusKm, ProfileLocation: s.profile}
	if s.radius != nil {
		km, err := s.radius.GetRadiusKm()
		if err != nil {
			s.log.Warn("radius preference unreadable, using default", zap.Error(err))
		} else {
			v.RadiusKm = km
		}
	}
	pos, err := geolocation.Acquire(ctx, s.locator, s.geoTimeout)
	if err != nil {
		s.log.Debug("no viewer position, matching by location name", zap.Error(err))
		return v
	}
	v.Position = &pos
	return v
}

func (s *Service) Build(ctx context.Context) Views {
	v := s.Viewer(ctx)
	now := s.clock.Now()
	events := s.snap.Events()
	member := func(id string) bool {
		_, ok := s.snap.Role(id)
		return ok
	}
	return Views{
		At:              now,
		Viewer:          v,
		HappeningNow:    HappeningNow(events, now),
		UpcomingNearYou: UpcomingNearYou(events, v, now),
		YourSchedule:    YourSchedule(events, member, now),
	}
}
