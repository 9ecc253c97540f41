// Package service implements the domain coordinator that enforces
// cross-entity invariants and mediates every mutation through the
// persistence layer before committing it to memory.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dvaughan/eventbook/internal/model"
	"github.com/dvaughan/eventbook/internal/repository"
)

// Store is the narrow persistence contract the coordinator depends on.
// *repository.Store satisfies it.
type Store interface {
	SaveVenue(ctx context.Context, v model.Venue) error
	DeleteVenue(ctx context.Context, id string) error
	LoadAllVenues(ctx context.Context) ([]model.Venue, error)

	SaveParticipant(ctx context.Context, p model.Participant) error
	DeleteParticipant(ctx context.Context, id string) error
	LoadAllParticipants(ctx context.Context) ([]model.Participant, error)

	SaveEvent(ctx context.Context, e *model.Event) error
	DeleteEvent(ctx context.Context, id string) error
	LoadAllEvents(ctx context.Context, venueByID repository.VenueLookup, participantByID repository.ParticipantLookup) ([]*model.Event, error)
}

// EventManager owns the in-memory collections of venues, participants, and
// events. Every mutation persists first and touches memory only on success,
// so a failed store call leaves the prior state unchanged. Business-rule
// rejections are reported as false returns, never as errors.
//
// The manager is not internally locked: callers issuing concurrent mutating
// calls must serialize them externally. Read accessors return copies, so
// readers never observe a collection mutated mid-iteration.
type EventManager struct {
	store  Store
	logger *slog.Logger

	venues       []model.Venue
	participants []model.Participant
	events       []*model.Event
}

// NewEventManager constructs an EventManager with empty collections.
func NewEventManager(store Store, logger *slog.Logger) *EventManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventManager{store: store, logger: logger}
}

// ─── Venues ───────────────────────────────────────────────────────────────────

// AddVenue persists and tracks a new venue. It returns false on a duplicate
// id or a persistence failure.
func (m *EventManager) AddVenue(ctx context.Context, v model.Venue) bool {
	if _, exists := m.VenueByID(v.ID); exists {
		return false
	}
	if err := m.store.SaveVenue(ctx, v); err != nil {
		m.logger.Error("save venue failed", "venue_id", v.ID, "error", err)
		return false
	}
	m.venues = append(m.venues, v)
	return true
}

// DeleteVenue removes a venue. It returns false while any event still
// references the venue id, or on a persistence failure.
func (m *EventManager) DeleteVenue(ctx context.Context, v model.Venue) bool {
	for _, e := range m.events {
		if e.Venue.ID == v.ID {
			return false
		}
	}
	if err := m.store.DeleteVenue(ctx, v.ID); err != nil {
		m.logger.Error("delete venue failed", "venue_id", v.ID, "error", err)
		return false
	}
	for i, existing := range m.venues {
		if existing.ID == v.ID {
			m.venues = append(m.venues[:i], m.venues[i+1:]...)
			break
		}
	}
	return true
}

// ─── Participants ─────────────────────────────────────────────────────────────

// AddParticipant persists and tracks a new participant. It returns false on
// a duplicate id or a persistence failure.
func (m *EventManager) AddParticipant(ctx context.Context, p model.Participant) bool {
	if _, exists := m.ParticipantByID(p.ID); exists {
		return false
	}
	if err := m.store.SaveParticipant(ctx, p); err != nil {
		m.logger.Error("save participant failed", "participant_id", p.ID, "error", err)
		return false
	}
	m.participants = append(m.participants, p)
	return true
}

// DeleteParticipant removes a participant and cascades the removal to every
// event roster. The store cascades the registration rows itself; the
// in-memory unregister keeps both views consistent until the next event save.
func (m *EventManager) DeleteParticipant(ctx context.Context, p model.Participant) bool {
	if err := m.store.DeleteParticipant(ctx, p.ID); err != nil {
		m.logger.Error("delete participant failed", "participant_id", p.ID, "error", err)
		return false
	}
	for i, existing := range m.participants {
		if existing.ID == p.ID {
			m.participants = append(m.participants[:i], m.participants[i+1:]...)
			break
		}
	}
	for _, e := range m.events {
		e.UnregisterParticipant(p)
	}
	return true
}

// ─── Events ───────────────────────────────────────────────────────────────────

// AddEvent persists and tracks a new event. It returns false on a duplicate
// id, a schedule conflict with any existing event, or a persistence failure.
func (m *EventManager) AddEvent(ctx context.Context, e *model.Event) bool {
	if _, exists := m.EventByID(e.ID); exists {
		return false
	}
	for _, existing := range m.events {
		if e.ConflictsWith(existing) {
			return false
		}
	}
	if err := m.store.SaveEvent(ctx, e); err != nil {
		m.logger.Error("save event failed", "event_id", e.ID, "error", err)
		return false
	}
	m.events = append(m.events, e)
	return true
}

// ModifyEvent replaces a tracked event with updated, matched by id. The live
// roster carries over to the replacement. It returns false when the new
// participant limit is below the live registration count, when the new
// schedule conflicts with any event other than itself, or on a persistence
// failure. If no event with the id is tracked, the update falls through to an
// insert; that path papers over a caller editing a never-added event, so it
// is kept defensive rather than relied on.
func (m *EventManager) ModifyEvent(ctx context.Context, updated *model.Event) bool {
	current, tracked := m.EventByID(updated.ID)
	if tracked {
		if updated.MaxParticipants < current.CurrentCapacity() {
			return false
		}
		if err := updated.RestoreRoster(current.Participants()); err != nil {
			return false
		}
	}
	for _, existing := range m.events {
		if existing.ID == updated.ID {
			continue
		}
		if updated.ConflictsWith(existing) {
			return false
		}
	}
	if err := m.store.SaveEvent(ctx, updated); err != nil {
		m.logger.Error("save event failed", "event_id", updated.ID, "error", err)
		return false
	}
	for i, existing := range m.events {
		if existing.ID == updated.ID {
			m.events[i] = updated
			return true
		}
	}
	m.events = append(m.events, updated)
	return true
}

// UpdateEvent persists an already-tracked event without re-running conflict
// or capacity checks. It is the pass-through used after a roster mutation,
// where identity and schedule are unchanged and only the registration set
// differs.
func (m *EventManager) UpdateEvent(ctx context.Context, e *model.Event) bool {
	if err := m.store.SaveEvent(ctx, e); err != nil {
		m.logger.Error("save event failed", "event_id", e.ID, "error", err)
		return false
	}
	return true
}

// DeleteEvent removes an event. Memory changes only if the backing delete
// succeeded.
func (m *EventManager) DeleteEvent(ctx context.Context, e *model.Event) bool {
	if err := m.store.DeleteEvent(ctx, e.ID); err != nil {
		m.logger.Error("delete event failed", "event_id", e.ID, "error", err)
		return false
	}
	for i, existing := range m.events {
		if existing.ID == e.ID {
			m.events = append(m.events[:i], m.events[i+1:]...)
			break
		}
	}
	return true
}

// ─── Bulk load/save ───────────────────────────────────────────────────────────

// InitializeData replaces all three in-memory collections from storage. The
// replacement is atomic with respect to the manager: a failed load leaves
// the current collections untouched.
func (m *EventManager) InitializeData(ctx context.Context) error {
	venues, err := m.store.LoadAllVenues(ctx)
	if err != nil {
		return fmt.Errorf("load venues: %w", err)
	}
	participants, err := m.store.LoadAllParticipants(ctx)
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}

	venuesByID := make(map[string]model.Venue, len(venues))
	for _, v := range venues {
		venuesByID[v.ID] = v
	}
	participantsByID := make(map[string]model.Participant, len(participants))
	for _, p := range participants {
		participantsByID[p.ID] = p
	}

	events, err := m.store.LoadAllEvents(ctx,
		func(id string) (model.Venue, bool) {
			v, ok := venuesByID[id]
			return v, ok
		},
		func(id string) (model.Participant, bool) {
			p, ok := participantsByID[id]
			return p, ok
		},
	)
	if err != nil {
		return fmt.Errorf("load events: %w", err)
	}

	for _, e := range events {
		if e.DataError {
			m.logger.Warn("event references missing venue", "event_id", e.ID, "venue_id", e.Venue.ID)
		}
	}

	m.venues = venues
	m.participants = participants
	m.events = events
	return nil
}

// SaveAllData persists every tracked entity. Failures do not stop the pass;
// the return value is true only if every individual save succeeded.
func (m *EventManager) SaveAllData(ctx context.Context) bool {
	ok := true
	for _, v := range m.venues {
		if err := m.store.SaveVenue(ctx, v); err != nil {
			m.logger.Error("save venue failed", "venue_id", v.ID, "error", err)
			ok = false
		}
	}
	for _, p := range m.participants {
		if err := m.store.SaveParticipant(ctx, p); err != nil {
			m.logger.Error("save participant failed", "participant_id", p.ID, "error", err)
			ok = false
		}
	}
	for _, e := range m.events {
		if err := m.store.SaveEvent(ctx, e); err != nil {
			m.logger.Error("save event failed", "event_id", e.ID, "error", err)
			ok = false
		}
	}
	return ok
}

// ─── Read accessors ───────────────────────────────────────────────────────────

// Venues returns a copy of the tracked venues.
func (m *EventManager) Venues() []model.Venue {
	out := make([]model.Venue, len(m.venues))
	copy(out, m.venues)
	return out
}

// Participants returns a copy of the tracked participants.
func (m *EventManager) Participants() []model.Participant {
	out := make([]model.Participant, len(m.participants))
	copy(out, m.participants)
	return out
}

// Events returns a copy of the tracked event list. The events themselves are
// shared references, matching in-memory ownership elsewhere.
func (m *EventManager) Events() []*model.Event {
	out := make([]*model.Event, len(m.events))
	copy(out, m.events)
	return out
}

// VenueByID looks up a tracked venue.
func (m *EventManager) VenueByID(id string) (model.Venue, bool) {
	for _, v := range m.venues {
		if v.ID == id {
			return v, true
		}
	}
	return model.Venue{}, false
}

// ParticipantByID looks up a tracked participant.
func (m *EventManager) ParticipantByID(id string) (model.Participant, bool) {
	for _, p := range m.participants {
		if p.ID == id {
			return p, true
		}
	}
	return model.Participant{}, false
}

// EventByID looks up a tracked event.
func (m *EventManager) EventByID(id string) (*model.Event, bool) {
	for _, e := range m.events {
		if e.ID == id {
			return e, true
		}
	}
	return nil, false
}
