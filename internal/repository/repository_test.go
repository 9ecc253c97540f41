package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvaughan/eventbook/internal/database"
	"github.com/dvaughan/eventbook/internal/model"
)

func openTestStore(t *testing.T) (*Store, *sql.DB) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := New(db)
	require.NoError(t, store.InitSchema(context.Background()))
	return store, db
}

func mustVenue(t *testing.T, id string, capacity int, facilities ...string) model.Venue {
	t.Helper()
	v, err := model.NewVenue(id, "Venue "+id, capacity, "Downtown", "1 Main St", facilities)
	require.NoError(t, err)
	return v
}

func mustParticipant(t *testing.T, id string) model.Participant {
	t.Helper()
	p, err := model.NewParticipant(id, "Participant "+id, id+"@example.com", "", "")
	require.NoError(t, err)
	return p
}

func mustEvent(t *testing.T, id string, venue model.Venue, start time.Time, max int) *model.Event {
	t.Helper()
	e, err := model.NewEvent(id, "Event "+id, start, venue, "", time.Hour, max)
	require.NoError(t, err)
	return e
}

func lookupVenues(venues ...model.Venue) VenueLookup {
	return func(id string) (model.Venue, bool) {
		for _, v := range venues {
			if v.ID == id {
				return v, true
			}
		}
		return model.Venue{}, false
	}
}

func lookupParticipants(participants ...model.Participant) ParticipantLookup {
	return func(id string) (model.Participant, bool) {
		for _, p := range participants {
			if p.ID == id {
				return p, true
			}
		}
		return model.Participant{}, false
	}
}

func TestInitSchemaIsIdempotent(t *testing.T) {
	store, _ := openTestStore(t)
	require.NoError(t, store.InitSchema(context.Background()))
}

func TestVenueRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	v := mustVenue(t, "v1", 100, "WiFi", "Projector")
	require.NoError(t, store.SaveVenue(ctx, v))

	venues, err := store.LoadAllVenues(ctx)
	require.NoError(t, err)
	require.Len(t, venues, 1)
	assert.Equal(t, v, venues[0])

	// Upsert replaces in place.
	v.Name = "Renamed Hall"
	require.NoError(t, store.SaveVenue(ctx, v))
	venues, err = store.LoadAllVenues(ctx)
	require.NoError(t, err)
	require.Len(t, venues, 1)
	assert.Equal(t, "Renamed Hall", venues[0].Name)

	require.NoError(t, store.DeleteVenue(ctx, v.ID))
	venues, err = store.LoadAllVenues(ctx)
	require.NoError(t, err)
	assert.Empty(t, venues)
}

func TestFacilitiesFilteredOnRead(t *testing.T) {
	ctx := context.Background()
	store, db := openTestStore(t)

	// Hand-edited data can leave blank and padded entries behind.
	_, err := db.ExecContext(ctx,
		`INSERT INTO venues (id, name, capacity, facilities) VALUES ('v1', 'Hall', 50, ' WiFi , , Projector ,  ')`)
	require.NoError(t, err)

	venues, err := store.LoadAllVenues(ctx)
	require.NoError(t, err)
	require.Len(t, venues, 1)
	assert.Equal(t, []string{"WiFi", "Projector"}, venues[0].Facilities)
}

func TestParticipantRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	p := mustParticipant(t, "ada")
	require.NoError(t, store.SaveParticipant(ctx, p))

	participants, err := store.LoadAllParticipants(ctx)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, p, participants[0])

	require.NoError(t, store.DeleteParticipant(ctx, p.ID))
	participants, err = store.LoadAllParticipants(ctx)
	require.NoError(t, err)
	assert.Empty(t, participants)
}

func TestEventRoundTripWithRoster(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	venue := mustVenue(t, "v1", 100)
	ada := mustParticipant(t, "ada")
	bob := mustParticipant(t, "bob")
	require.NoError(t, store.SaveVenue(ctx, venue))
	require.NoError(t, store.SaveParticipant(ctx, ada))
	require.NoError(t, store.SaveParticipant(ctx, bob))

	start := time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	e := mustEvent(t, "e1", venue, start, 10)
	require.Equal(t, model.RegistrationSuccess, e.RegisterParticipant(ada))
	require.Equal(t, model.RegistrationSuccess, e.RegisterParticipant(bob))
	require.NoError(t, store.SaveEvent(ctx, e))

	events, err := store.LoadAllEvents(ctx, lookupVenues(venue), lookupParticipants(ada, bob))
	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	assert.Equal(t, "e1", got.ID)
	assert.True(t, got.Start.Equal(start))
	assert.Equal(t, time.Hour, got.Duration)
	assert.Equal(t, venue, got.Venue)
	assert.False(t, got.DataError)
	assert.ElementsMatch(t, []model.Participant{ada, bob}, got.Participants())
}

func TestSaveEventRewritesRoster(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	venue := mustVenue(t, "v1", 100)
	ada := mustParticipant(t, "ada")
	bob := mustParticipant(t, "bob")
	require.NoError(t, store.SaveVenue(ctx, venue))
	require.NoError(t, store.SaveParticipant(ctx, ada))
	require.NoError(t, store.SaveParticipant(ctx, bob))

	e := mustEvent(t, "e1", venue, time.Now().UTC().Truncate(time.Second), 10)
	e.RegisterParticipant(ada)
	require.NoError(t, store.SaveEvent(ctx, e))

	e.UnregisterParticipant(ada)
	e.RegisterParticipant(bob)
	require.NoError(t, store.SaveEvent(ctx, e))

	events, err := store.LoadAllEvents(ctx, lookupVenues(venue), lookupParticipants(ada, bob))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, []model.Participant{bob}, events[0].Participants())
}

// TestSaveEventRollsBackOnRegistrationFailure simulates the registration
// insert step failing mid-transaction and verifies that neither the event row
// nor the previously committed registrations changed.
func TestSaveEventRollsBackOnRegistrationFailure(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	venue := mustVenue(t, "v1", 100)
	ada := mustParticipant(t, "ada")
	require.NoError(t, store.SaveVenue(ctx, venue))
	require.NoError(t, store.SaveParticipant(ctx, ada))

	start := time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	e := mustEvent(t, "e1", venue, start, 10)
	e.RegisterParticipant(ada)
	require.NoError(t, store.SaveEvent(ctx, e))

	// A roster entry whose participant row does not exist trips the foreign
	// key inside the transaction.
	updated, err := model.NewEvent("e1", "Updated Title", start, venue, "", time.Hour, 10)
	require.NoError(t, err)
	ghost := mustParticipant(t, "ghost")
	require.NoError(t, updated.RestoreRoster([]model.Participant{ada, ghost}))

	err = store.SaveEvent(ctx, updated)
	require.Error(t, err)

	events, err := store.LoadAllEvents(ctx, lookupVenues(venue), lookupParticipants(ada))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Event e1", events[0].Title, "event row rolled back")
	assert.Equal(t, []model.Participant{ada}, events[0].Participants(), "registrations rolled back")
}

// TestLoadEventWithMissingVenue covers dangling foreign-key recovery: the
// event loads with a placeholder venue sized to its own participant limit
// and is flagged as a data error instead of failing the whole load.
func TestLoadEventWithMissingVenue(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	venue := mustVenue(t, "v1", 100)
	require.NoError(t, store.SaveVenue(ctx, venue))
	e := mustEvent(t, "e1", venue, time.Now().UTC(), 25)
	require.NoError(t, store.SaveEvent(ctx, e))

	// Resolve against a lookup that no longer knows the venue.
	events, err := store.LoadAllEvents(ctx, lookupVenues(), lookupParticipants())
	require.NoError(t, err)
	require.Len(t, events, 1)

	got := events[0]
	assert.True(t, got.DataError)
	assert.Equal(t, "v1", got.Venue.ID)
	assert.Equal(t, 25, got.Venue.Capacity, "placeholder sized to the event's own limit")
	assert.Contains(t, got.Venue.Name, "missing venue")
}

func TestLoadEventsSkipsUnresolvableRegistrations(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	venue := mustVenue(t, "v1", 100)
	ada := mustParticipant(t, "ada")
	bob := mustParticipant(t, "bob")
	require.NoError(t, store.SaveVenue(ctx, venue))
	require.NoError(t, store.SaveParticipant(ctx, ada))
	require.NoError(t, store.SaveParticipant(ctx, bob))

	e := mustEvent(t, "e1", venue, time.Now().UTC(), 10)
	e.RegisterParticipant(ada)
	e.RegisterParticipant(bob)
	require.NoError(t, store.SaveEvent(ctx, e))

	// bob is not resolvable on this load.
	events, err := store.LoadAllEvents(ctx, lookupVenues(venue), lookupParticipants(ada))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, []model.Participant{ada}, events[0].Participants())
}

func TestDeleteEventCascadesRegistrations(t *testing.T) {
	ctx := context.Background()
	store, db := openTestStore(t)

	venue := mustVenue(t, "v1", 100)
	ada := mustParticipant(t, "ada")
	require.NoError(t, store.SaveVenue(ctx, venue))
	require.NoError(t, store.SaveParticipant(ctx, ada))

	e := mustEvent(t, "e1", venue, time.Now().UTC(), 10)
	e.RegisterParticipant(ada)
	require.NoError(t, store.SaveEvent(ctx, e))
	require.NoError(t, store.DeleteEvent(ctx, e.ID))

	var count int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM event_registrations WHERE event_id = 'e1'`).Scan(&count))
	assert.Zero(t, count)
}

func TestDeleteReferencedVenueFailsAtStore(t *testing.T) {
	ctx := context.Background()
	store, _ := openTestStore(t)

	venue := mustVenue(t, "v1", 100)
	require.NoError(t, store.SaveVenue(ctx, venue))
	e := mustEvent(t, "e1", venue, time.Now().UTC(), 10)
	require.NoError(t, store.SaveEvent(ctx, e))

	assert.Error(t, store.DeleteVenue(ctx, venue.ID), "foreign key keeps referenced venues alive")
}
