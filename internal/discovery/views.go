// Package discovery derives the sidebar views from the event snapshot.
package discovery

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"activity-hub/internal/eventstatus"
	"activity-hub/internal/geo"
	"activity-hub/internal/model"
)

const (
	MaxItems = 5
	// Horizon bounds how far ahead Upcoming Near You looks.
	Horizon = 14 * 24 * time.Hour
	// ScheduleGrace keeps just-started events in Your Schedule.
	ScheduleGrace = time.Hour
)

// Viewer is what the proximity test knows about the person looking.
type Viewer struct {
	// Position is nil when geolocation is unavailable.
	Position        *model.Position
	RadiusKm        float64
	ProfileLocation string
}

// HappeningNow lists events live at now, cancelled ones excluded.
func HappeningNow(events []model.Event, now time.Time) []model.Event {
	return pick(events, func(e *model.Event) bool {
		return e.Status != model.StatusCancelled && eventstatus.IsLive(e, now)
	})
}

// UpcomingNearYou lists non-cancelled events starting within the horizon that
// pass the proximity test.
func UpcomingNearYou(events []model.Event, v Viewer, now time.Time) []model.Event {
	until := now.Add(Horizon)
	return pick(events, func(e *model.Event) bool {
		if e.Status == model.StatusCancelled {
			return false
		}
		if e.StartAt.Before(now) || e.StartAt.After(until) {
			return false
		}
		return Near(e, v)
	})
}

// YourSchedule lists events the viewer is a member of that started no more
// than ScheduleGrace ago.
func YourSchedule(events []model.Event, member func(eventID string) bool, now time.Time) []model.Event {
	from := now.Add(-ScheduleGrace)
	return pick(events, func(e *model.Event) bool {
		return member(e.ID) && !e.StartAt.Before(from)
	})
}

// Near is the proximity test. Distance decides when both sides have
// coordinates; otherwise the event's location name is matched against the
// profile location.
func Near(e *model.Event, v Viewer) bool {
	if p, ok := e.Position(); ok && v.Position != nil {
		return geo.DistanceKm(v.Position.Lat, v.Position.Lon, p.Lat, p.Lon) <= v.RadiusKm
	}
	return MatchesLocation(e.LocationName, v.ProfileLocation)
}

// MatchesLocation reports whether locationName contains any comma-separated
// token of profile, ignoring case. An empty profile matches everything.
func MatchesLocation(locationName, profile string) bool {
	if strings.TrimSpace(profile) == "" {
		return true
	}
	loc := strings.ToLower(locationName)
	for _, tok := range strings.Split(profile, ",") {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok != "" && strings.Contains(loc, tok) {
			return true
		}
	}
	return false
}

// pick filters, orders by start then id, and caps at MaxItems.
func pick(events []model.Event, keep func(*model.Event) bool) []model.Event {
	var out []model.Event
	for i := range events {
		if keep(&events[i]) {
			out = append(out, events[i])
		}
	}
	slices.SortFunc(out, func(a, b model.Event) int {
		if c := a.StartAt.Compare(b.StartAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(out) > MaxItems {
		out = out[:MaxItems]
	}
	return out
}
