// Package repository implements the durable store for venues, participants,
// and events on SQLite. It uses database/sql directly (no ORM) so every
// query and transaction boundary is explicit.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dvaughan/eventbook/internal/model"
)

// schema creates the four tables idempotently. Registrations cascade on
// deletion of either side; the event→venue reference is enforced but not
// cascading, so a referenced venue cannot be deleted out from under an event.
const schema = `
CREATE TABLE IF NOT EXISTS venues (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	capacity   INTEGER NOT NULL,
	location   TEXT NOT NULL DEFAULT '',
	address    TEXT NOT NULL DEFAULT '',
	facilities TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS participants (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	email        TEXT NOT NULL UNIQUE,
	phone        TEXT NOT NULL DEFAULT '',
	organization TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS events (
	id               TEXT PRIMARY KEY,
	title            TEXT NOT NULL,
	date_time        TEXT NOT NULL,
	venue_id         TEXT NOT NULL REFERENCES venues(id),
	description      TEXT NOT NULL DEFAULT '',
	duration_minutes INTEGER NOT NULL,
	max_participants INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS event_registrations (
	event_id          TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
	participant_id    TEXT NOT NULL REFERENCES participants(id) ON DELETE CASCADE,
	registration_date TEXT NOT NULL,
	PRIMARY KEY (event_id, participant_id)
);
`

// VenueLookup resolves a venue id to an in-memory venue at load time.
type VenueLookup func(id string) (model.Venue, bool)

// ParticipantLookup resolves a participant id at load time.
type ParticipantLookup func(id string) (model.Participant, bool)

// Store persists domain state in SQLite. All mutating calls are serialized
// behind a single write lock so concurrent callers can never interleave
// partial writes; reads run unserialized.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New constructs a Store over an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// InitSchema creates the backing tables if they do not exist yet.
func (s *Store) InitSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Venues ───────────────────────────────────────────────────────────────────

// SaveVenue upserts a venue keyed by id.
func (s *Store) SaveVenue(ctx context.Context, v model.Venue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO venues (id, name, capacity, location, address, facilities)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		v.ID, v.Name, v.Capacity, v.Location, v.Address, strings.Join(v.Facilities, ","),
	)
	if err != nil {
		return fmt.Errorf("save venue %s: %w", v.ID, err)
	}
	return nil
}

// DeleteVenue removes a venue row. The foreign key on events makes deleting
// a still-referenced venue fail; the coordinator checks references first, so
// hitting that constraint means the caller skipped it.
func (s *Store) DeleteVenue(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM venues WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete venue %s: %w", id, err)
	}
	return nil
}

// LoadAllVenues returns every stored venue. Facility strings are split,
// trimmed, and emptied of whitespace-only entries.
func (s *Store) LoadAllVenues(ctx context.Context) ([]model.Venue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, capacity, location, address, facilities FROM venues ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load venues: %w", err)
	}
	defer rows.Close()

	var venues []model.Venue
	for rows.Next() {
		var v model.Venue
		var facilities string
		if err := rows.Scan(&v.ID, &v.Name, &v.Capacity, &v.Location, &v.Address, &facilities); err != nil {
			return nil, fmt.Errorf("scan venue: %w", err)
		}
		v.Facilities = splitFacilities(facilities)
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

// ─── Participants ─────────────────────────────────────────────────────────────

// SaveParticipant upserts a participant keyed by id.
func (s *Store) SaveParticipant(ctx context.Context, p model.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO participants (id, name, email, phone, organization)
		 VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Email, p.Phone, p.Organization,
	)
	if err != nil {
		return fmt.Errorf("save participant %s: %w", p.ID, err)
	}
	return nil
}

// DeleteParticipant removes a participant row; registration rows cascade.
func (s *Store) DeleteParticipant(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM participants WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete participant %s: %w", id, err)
	}
	return nil
}

// LoadAllParticipants returns every stored participant.
func (s *Store) LoadAllParticipants(ctx context.Context) ([]model.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, phone, organization FROM participants ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	defer rows.Close()

	var participants []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &p.Phone, &p.Organization); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// ─── Events ───────────────────────────────────────────────────────────────────

// SaveEvent persists the event row and its registration rows as one atomic
// unit. The roster is rewritten wholesale (delete-all-then-reinsert); any
// failure rolls back both writes, leaving whatever was previously committed
// untouched.
func (s *Store) SaveEvent(ctx context.Context, e *model.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// INSERT OR REPLACE deletes the old row first, which cascades away the
	// old registrations; it must run before the roster reinsert.
	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO events
		 (id, title, date_time, venue_id, description, duration_minutes, max_participants)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Start.UTC().Format(time.RFC3339), e.Venue.ID,
		e.Description, int(e.Duration/time.Minute), e.MaxParticipants,
	)
	if err != nil {
		return fmt.Errorf("save event %s: %w", e.ID, err)
	}

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM event_registrations WHERE event_id = ?`, e.ID); err != nil {
		return fmt.Errorf("clear registrations for event %s: %w", e.ID, err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, p := range e.Participants() {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO event_registrations (event_id, participant_id, registration_date)
			 VALUES (?, ?, ?)`,
			e.ID, p.ID, now,
		); err != nil {
			return fmt.Errorf("save registration %s/%s: %w", e.ID, p.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit event %s: %w", e.ID, err)
	}
	return nil
}

// DeleteEvent removes an event row; registration rows cascade.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	return nil
}

// LoadAllEvents reconstructs every stored event, resolving cross-entity
// references through the supplied lookups. The full registration table is
// prefetched into one event→participants map so attaching rosters costs one
// query instead of one per event.
//
// A dangling venue reference does not fail the load: the event gets a
// placeholder venue sized to its own participant limit and is flagged as a
// data error. Registrations whose participant cannot be resolved are dropped
// from the roster.
func (s *Store) LoadAllEvents(ctx context.Context, venueByID VenueLookup, participantByID ParticipantLookup) ([]*model.Event, error) {
	registrations, err := s.loadRegistrationIndex(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, date_time, venue_id, description, duration_minutes, max_participants
		 FROM events ORDER BY date_time, id`)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	defer rows.Close()

	var events []*model.Event
	for rows.Next() {
		var (
			id, title, dateTime, venueID, description string
			durationMinutes, maxParticipants          int
		)
		if err := rows.Scan(&id, &title, &dateTime, &venueID, &description, &durationMinutes, &maxParticipants); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		start, err := time.Parse(time.RFC3339, dateTime)
		if err != nil {
			return nil, fmt.Errorf("parse event %s date_time %q: %w", id, dateTime, err)
		}

		venue, found := venueByID(venueID)
		if !found {
			venue = model.PlaceholderVenue(venueID, maxParticipants)
		}
		event, err := model.NewEvent(id, title, start, venue, description,
			time.Duration(durationMinutes)*time.Minute, maxParticipants)
		if err != nil {
			return nil, fmt.Errorf("reconstruct event %s: %w", id, err)
		}
		event.DataError = !found

		var roster []model.Participant
		for _, pid := range registrations[id] {
			if p, ok := participantByID(pid); ok {
				roster = append(roster, p)
			}
		}
		if err := event.RestoreRoster(roster); err != nil {
			return nil, fmt.Errorf("restore roster for event %s: %w", id, err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// loadRegistrationIndex fetches the whole registration table once as an
// event id → participant ids multimap.
func (s *Store) loadRegistrationIndex(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, participant_id FROM event_registrations
		 ORDER BY registration_date, participant_id`)
	if err != nil {
		return nil, fmt.Errorf("load registrations: %w", err)
	}
	defer rows.Close()

	index := make(map[string][]string)
	for rows.Next() {
		var eventID, participantID string
		if err := rows.Scan(&eventID, &participantID); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		index[eventID] = append(index[eventID], participantID)
	}
	return index, rows.Err()
}

// splitFacilities parses the comma-joined facilities column, dropping
// whitespace-only entries left over from hand-edited data.
func splitFacilities(joined string) []string {
	if strings.TrimSpace(joined) == "" {
		return nil
	}
	var out []string
	for _, f := range strings.Split(joined, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
