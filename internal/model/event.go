package model

import (
	"fmt"
	"strings"
	"time"
)

// RegistrationResult is the closed outcome type for a registration attempt.
// Expected business outcomes are values, never errors.
type RegistrationResult int

const (
	// RegistrationSuccess means the participant was added to the roster.
	RegistrationSuccess RegistrationResult = iota
	// RegistrationEventFull means the roster is at capacity; nothing changed.
	RegistrationEventFull
	// RegistrationAlreadyRegistered means the participant id is already on
	// the roster; nothing changed.
	RegistrationAlreadyRegistered
)

func (r RegistrationResult) String() string {
	switch r {
	case RegistrationSuccess:
		return "success"
	case RegistrationEventFull:
		return "event_full"
	case RegistrationAlreadyRegistered:
		return "already_registered"
	default:
		return "unknown"
	}
}

// Event represents a scheduled happening at a venue. Identity and schedule
// fields are fixed at construction; only the roster mutates, through
// RegisterParticipant and UnregisterParticipant. Modifications to anything
// else replace the whole instance.
type Event struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Start           time.Time     `json:"date_time"`
	Venue           Venue         `json:"venue"`
	Description     string        `json:"description"`
	Duration        time.Duration `json:"-"` // serialized as duration_minutes, matching the request shape
	MaxParticipants int           `json:"max_participants"`

	// DataError marks an event reconstructed around a missing venue
	// reference so operators can find and repair it.
	DataError bool `json:"data_error,omitempty"`

	roster []Participant
}

// NewEvent validates and constructs an Event with an empty roster.
func NewEvent(id, title string, start time.Time, venue Venue, description string, duration time.Duration, maxParticipants int) (*Event, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("event id is required")
	}
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("event title is required")
	}
	if duration <= 0 {
		return nil, fmt.Errorf("event duration must be positive")
	}
	if maxParticipants <= 0 {
		return nil, fmt.Errorf("event max participants must be a positive integer")
	}
	if maxParticipants > venue.Capacity {
		return nil, fmt.Errorf("event max participants %d exceeds venue capacity %d", maxParticipants, venue.Capacity)
	}
	return &Event{
		ID:              id,
		Title:           title,
		Start:           start,
		Venue:           venue,
		Description:     description,
		Duration:        duration,
		MaxParticipants: maxParticipants,
	}, nil
}

// End returns the instant the event finishes. The occupied interval is
// half-open: [Start, End).
func (e *Event) End() time.Time {
	return e.Start.Add(e.Duration)
}

// RegisterParticipant attempts to add p to the roster. Failure outcomes leave
// the roster untouched.
func (e *Event) RegisterParticipant(p Participant) RegistrationResult {
	if len(e.roster) >= e.MaxParticipants {
		return RegistrationEventFull
	}
	for _, r := range e.roster {
		if r.ID == p.ID {
			return RegistrationAlreadyRegistered
		}
	}
	e.roster = append(e.roster, p)
	return RegistrationSuccess
}

// UnregisterParticipant removes the participant with p's id from the roster.
// It reports whether a removal occurred.
func (e *Event) UnregisterParticipant(p Participant) bool {
	for i, r := range e.roster {
		if r.ID == p.ID {
			e.roster = append(e.roster[:i], e.roster[i+1:]...)
			return true
		}
	}
	return false
}

// Participants returns a defensive copy of the roster in registration order.
func (e *Event) Participants() []Participant {
	out := make([]Participant, len(e.roster))
	copy(out, e.roster)
	return out
}

// CurrentCapacity returns the number of registered participants.
func (e *Event) CurrentCapacity() int {
	return len(e.roster)
}

// AvailableSpots returns how many more participants can register.
func (e *Event) AvailableSpots() int {
	return e.MaxParticipants - len(e.roster)
}

// IsFull reports whether the roster is at capacity.
func (e *Event) IsFull() bool {
	return len(e.roster) >= e.MaxParticipants
}

// RestoreRoster replaces the roster wholesale. It is used when reloading an
// event from storage and when carrying registrations over to a replacement
// instance. The capacity and uniqueness invariants still apply.
func (e *Event) RestoreRoster(ps []Participant) error {
	if len(ps) > e.MaxParticipants {
		return fmt.Errorf("roster size %d exceeds max participants %d", len(ps), e.MaxParticipants)
	}
	seen := make(map[string]struct{}, len(ps))
	for _, p := range ps {
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("duplicate participant %s in roster", p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	e.roster = make([]Participant, len(ps))
	copy(e.roster, ps)
	return nil
}

// ConflictsWith reports whether e and other compete for the same venue at an
// overlapping time. An event never conflicts with itself, and events at
// different venues never conflict. Intervals are half-open, so an event
// starting exactly when another ends does not conflict.
func (e *Event) ConflictsWith(other *Event) bool {
	if other == nil || e.ID == other.ID {
		return false
	}
	if e.Venue.ID != other.Venue.ID {
		return false
	}
	return e.Start.Before(other.End()) && e.End().After(other.Start)
}
