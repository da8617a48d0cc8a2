package model

import (
	"slices"
	"strings"
	"time"

	"activity-hub/internal/geo"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Filter narrows listEvents. Zero values mean "no constraint".
type Filter struct {
	Sport       string
	Kind        Kind
	Location    string
	OrganizerID string
	Statuses    []Status
	StartAfter  *time.Time
	StartBefore *time.Time
	MinCapacity *int
	MaxCapacity *int

	// Near and RadiusKm together enable the distance constraint.
	Near     *Position
	RadiusKm float64

	// Ascending orders by start time oldest first; the default is newest first.
	Ascending bool

	Limit  int
	Offset int
}

// Normalize clamps paging and drops unknown statuses.
func (f *Filter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	var kept []Status
	for _, s := range f.Statuses {
		if s.Valid() {
			kept = append(kept, s)
		}
	}
	f.Statuses = kept
}

func (f *Filter) Validate() error {
	if f.Near != nil {
		if !geo.Valid(f.Near.Lat, f.Near.Lon) {
			return invalid("near", "coordinates out of range")
		}
		if f.RadiusKm <= 0 {
			return invalid("radius_km", "must be positive")
		}
	}
	if f.Kind != "" && !f.Kind.Valid() {
		return invalid("type", "must be one of game, event, training")
	}
	return nil
}

// Geo reports whether the distance constraint is active.
func (f *Filter) Geo() bool {
	return f.Near != nil && f.RadiusKm > 0
}

// OrderBy is the SQL ordering that matches Compare.
func (f *Filter) OrderBy() string {
	if f.Ascending {
		return "start_at ASC, id"
	}
	return "start_at DESC, id"
}

// Compare orders two events the way listEvents returns them; ties break on id.
func (f *Filter) Compare(a, b *Event) int {
	c := a.StartAt.Compare(b.StartAt)
	if !f.Ascending {
		c = -c
	}
	if c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// Matches applies every constraint except paging.
func (f *Filter) Matches(e *Event) bool {
	if f.Sport != "" && e.Sport != f.Sport {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.OrganizerID != "" && e.OrganizerID != f.OrganizerID {
		return false
	}
	if f.Location != "" && !strings.Contains(strings.ToLower(e.LocationName), strings.ToLower(f.Location)) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, e.Status) {
		return false
	}
	if f.StartAfter != nil && e.StartAt.Before(*f.StartAfter) {
		return false
	}
	if f.StartBefore != nil && e.StartAt.After(*f.StartBefore) {
		return false
	}
	if f.MinCapacity != nil && (e.Capacity == nil || *e.Capacity < *f.MinCapacity) {
		return false
	}
	if f.MaxCapacity != nil && (e.Capacity == nil || *e.Capacity > *f.MaxCapacity) {
		return false
	}
	if f.Geo() {
		p, ok := e.Position()
		if !ok {
			return false
		}
		if geo.DistanceKm(f.Near.Lat, f.Near.Lon, p.Lat, p.Lon) > f.RadiusKm {
			return false
		}
	}
	return true
}
