package model

import (
	"strings"
	"unicode/utf8"

	"activity-hub/internal/geo"
)

const (
	MinCapacity = 2
	MaxCapacity = 1000
)

// Validate checks an event as submitted by its organizer.
func (e *Event) Validate() error {
	if e.OrganizerID == "" {
		return invalid("organizer_id", "required")
	}
	if e.Kind == "" {
		e.Kind = KindEvent
	}
	if !e.Kind.Valid() {
		return invalid("type", "must be one of game, event, training")
	}
	if err := length("title", e.Title, 3, 255); err != nil {
		return err
	}
	if err := length("sport", e.Sport, 2, 100); err != nil {
		return err
	}
	if err := length("location_name", e.LocationName, 3, 255); err != nil {
		return err
	}
	if utf8.RuneCountInString(e.Description) > 1000 {
		return invalid("description", "at most 1000 characters")
	}
	if e.StartAt.IsZero() {
		return invalid("start_at", "required")
	}
	if e.EndAt != nil && e.EndAt.Before(e.StartAt) {
		return invalid("end_at", "must not be before start_at")
	}
	if err := ValidateCoordinates(e.Latitude, e.Longitude); err != nil {
		return err
	}
	if e.Capacity != nil && (*e.Capacity < MinCapacity || *e.Capacity > MaxCapacity) {
		return invalid("capacity", "must be between %d and %d", MinCapacity, MaxCapacity)
	}
	return nil
}

// ValidateCoordinates requires both or neither, and in range.
func ValidateCoordinates(lat, lon *float64) error {
	if (lat == nil) != (lon == nil) {
		return invalid("coordinates", "latitude and longitude must be set together")
	}
	if lat != nil && !geo.Valid(*lat, *lon) {
		return invalid("coordinates", "out of range")
	}
	return nil
}

func length(field, v string, lo, hi int) error {
	n := utf8.RuneCountInString(strings.TrimSpace(v))
	if n < lo || n > hi {
		return invalid(field, "length must be between %d and %d", lo, hi)
	}
	return nil
}
