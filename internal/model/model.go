// Package model defines the core domain types for the event scheduling system.
package model

import (
	"fmt"
	"regexp"
	"strings"
)

// emailPattern accepts local@domain.tld with a TLD of at least two letters.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// Venue represents a bookable location. Venues are immutable after
// construction; modifications replace the whole value.
type Venue struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Capacity   int      `json:"capacity"`
	Location   string   `json:"location"`
	Address    string   `json:"address"`
	Facilities []string `json:"facilities"`
}

// NewVenue validates and constructs a Venue.
func NewVenue(id, name string, capacity int, location, address string, facilities []string) (Venue, error) {
	if strings.TrimSpace(id) == "" {
		return Venue{}, fmt.Errorf("venue id is required")
	}
	if strings.TrimSpace(name) == "" {
		return Venue{}, fmt.Errorf("venue name is required")
	}
	if capacity <= 0 {
		return Venue{}, fmt.Errorf("venue capacity must be a positive integer")
	}
	var cleaned []string
	for _, f := range facilities {
		f = strings.TrimSpace(f)
		if f == "" {
			return Venue{}, fmt.Errorf("venue facilities must not contain blank entries")
		}
		cleaned = append(cleaned, f)
	}
	return Venue{
		ID:         id,
		Name:       name,
		Capacity:   capacity,
		Location:   location,
		Address:    address,
		Facilities: cleaned,
	}, nil
}

// PlaceholderVenue builds a synthetic venue substituted at load time when an
// event references a venue id that no longer exists. Its capacity matches the
// event's participant limit so the event's own capacity invariant still holds,
// and its name makes the broken reference visible to operators.
func PlaceholderVenue(id string, capacity int) Venue {
	return Venue{
		ID:       id,
		Name:     fmt.Sprintf("[missing venue %s]", id),
		Capacity: capacity,
	}
}

// Participant represents a person who can register for events. Immutable
// after construction.
type Participant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone,omitempty"`
	Organization string `json:"organization,omitempty"`
}

// NewParticipant validates and constructs a Participant.
func NewParticipant(id, name, email, phone, organization string) (Participant, error) {
	if strings.TrimSpace(id) == "" {
		return Participant{}, fmt.Errorf("participant id is required")
	}
	if strings.TrimSpace(name) == "" {
		return Participant{}, fmt.Errorf("participant name is required")
	}
	email = strings.TrimSpace(email)
	if !emailPattern.MatchString(email) {
		return Participant{}, fmt.Errorf("participant email %q is not a valid email address", email)
	}
	return Participant{
		ID:           id,
		Name:         name,
		Email:        email,
		Phone:        phone,
		Organization: organization,
	}, nil
}

// CreateVenueRequest is the payload for creating a venue.
type CreateVenueRequest struct {
	Name       string   `json:"name"`
	Capacity   int      `json:"capacity"`
	Location   string   `json:"location"`
	Address    string   `json:"address"`
	Facilities []string `json:"facilities"`
}

// CreateParticipantRequest is the payload for creating a participant.
type CreateParticipantRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Organization string `json:"organization"`
}

// CreateEventRequest is the payload for creating or modifying an event.
type CreateEventRequest struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	VenueID         string `json:"venue_id"`
	DateTime        string `json:"date_time"`
	DurationMinutes int    `json:"duration_minutes"`
	MaxParticipants int    `json:"max_participants"`
}

// RegisterRequest is the payload for registering a participant to an event.
type RegisterRequest struct {
	ParticipantID string `json:"participant_id"`
}

// FindSlotsRequest is the payload for querying available venue slots.
type FindSlotsRequest struct {
	RequiredCapacity int    `json:"required_capacity"`
	DateTime         string `json:"date_time"`
	DurationMinutes  int    `json:"duration_minutes"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
