// Package eventstatus derives an event's time-driven status.
//
// The backend owns persisted transitions. Clients use Resolve and IsStale
// only to notice that a locally held event is behind the clock; they never
// write the result back.
package eventstatus

import (
	"time"

	"activity-hub/internal/model"
)

// ImplicitDuration stands in for a missing end time. The "Happening Now"
// view uses it as a display window, and the server applies the same rule
// when moving an open-ended event to complete.
const ImplicitDuration = time.Hour

// EffectiveEnd is EndAt when set, otherwise StartAt plus ImplicitDuration.
func EffectiveEnd(e *model.Event) time.Time {
	if e.EndAt != nil {
		return *e.EndAt
	}
	return e.StartAt.Add(ImplicitDuration)
}

// Resolve returns the status the time-driven rule assigns at now.
// cancelled and complete are terminal and returned unchanged.
func Resolve(e *model.Event, now time.Time) model.Status {
	switch e.Status {
	case model.StatusCancelled, model.StatusComplete:
		return e.Status
	}
	if now.Before(e.StartAt) {
		return model.StatusUpcoming
	}
	if !now.Before(EffectiveEnd(e)) {
		return model.StatusComplete
	}
	return model.StatusActive
}

// IsStale reports whether the stored status lags the clock.
func IsStale(e *model.Event, now time.Time) bool {
	return Resolve(e, now) != e.Status
}

// IsLive reports startAt <= now <= effective end, for display only.
func IsLive(e *model.Event, now time.Time) bool {
	return !now.Before(e.StartAt) && !now.After(EffectiveEnd(e))
}

// CanTransition describes the state machine:
//
//	upcoming -> active -> complete
//	upcoming|active -> cancelled (organizer action)
//
// upcoming -> complete is allowed because a single pass may cover both steps.
func CanTransition(from, to model.Status) bool {
	switch from {
	case model.StatusUpcoming:
		return to == model.StatusActive || to == model.StatusComplete || to == model.StatusCancelled
	case model.StatusActive:
		return to == model.StatusComplete || to == model.StatusCancelled
	}
	return false
}

// Stale filters events whose stored status lags the clock.
func Stale(events []model.Event, now time.Time) []model.Event {
	var out []model.Event
	for i := range events {
		if IsStale(&events[i], now) {
			out = append(out, events[i])
		}
	}
	return out
}
