package model

import (
	"strings"
	"time"
)

type Status string

const (
	StatusUpcoming  Status = "upcoming"
	StatusActive    Status = "active"
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusUpcoming, StatusActive, StatusComplete, StatusCancelled:
		return true
	}
	return false
}

// ParseStatus accepts any casing and surrounding whitespace.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

type Kind string

const (
	KindGame     Kind = "game"
	KindEvent    Kind = "event"
	KindTraining Kind = "training"
)

func (k Kind) Valid() bool {
	switch k {
	case KindGame, KindEvent, KindTraining:
		return true
	}
	return false
}

type Role string

const (
	RoleOrganizer   Role = "organizer"
	RoleParticipant Role = "participant"
)

type Event struct {
	ID          string
	OrganizerID string
	Kind        Kind
	Title       string
	Description string
	Sport       string

	StartAt time.Time
	// EndAt is optional; see eventstatus.EffectiveEnd for the display fallback.
	EndAt *time.Time

	LocationName string
	Latitude     *float64
	Longitude    *float64

	// Capacity nil means unlimited.
	Capacity *int
	// ParticipantsCount is maintained by the repository and includes the organizer.
	ParticipantsCount int

	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (e *Event) HasCoordinates() bool {
	return e.Latitude != nil && e.Longitude != nil
}

// Position returns the event coordinates when both are set.
func (e *Event) Position() (Position, bool) {
	if !e.HasCoordinates() {
		return Position{}, false
	}
	return Position{Lat: *e.Latitude, Lon: *e.Longitude}, true
}

func (e *Event) Full() bool {
	return e.Capacity != nil && e.ParticipantsCount >= *e.Capacity
}

type Membership struct {
	EventID  string
	UserID   string
	Role     Role
	JoinedAt time.Time
}

type Position struct {
	Lat float64
	Lon float64
}
