// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the domain coordinator.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dvaughan/eventbook/internal/model"
	"github.com/dvaughan/eventbook/internal/scheduler"
	"github.com/dvaughan/eventbook/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// API holds all HTTP handlers for the event scheduling service.
//
// The coordinator is not internally locked and the HTTP server runs one
// goroutine per request, so the API serializes every coordinator and roster
// access behind one mutex. Persistence has its own write lock; this one
// protects the in-memory collections.
type API struct {
	mu        sync.Mutex
	manager   *service.EventManager
	scheduler scheduler.Service
}

// New constructs the API over the coordinator and the scheduling port.
func New(manager *service.EventManager, sched scheduler.Service) *API {
	return &API{manager: manager, scheduler: sched}
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// eventView is the JSON projection of an event, including the roster the
// struct itself keeps private. Durations travel as minutes in both
// directions.
type eventView struct {
	*model.Event
	DurationMinutes int                 `json:"duration_minutes"`
	EndTime         time.Time           `json:"end_time"`
	Participants    []model.Participant `json:"participants"`
}

func viewOf(e *model.Event) eventView {
	return eventView{
		Event:           e,
		DurationMinutes: int(e.Duration / time.Minute),
		EndTime:         e.End(),
		Participants:    e.Participants(),
	}
}

// ─── Venues ───────────────────────────────────────────────────────────────────

// CreateVenue handles POST /venues
func (a *API) CreateVenue(w http.ResponseWriter, r *http.Request) {
	var req model.CreateVenueRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	venue, err := model.NewVenue(uuid.New().String(), req.Name, req.Capacity, req.Location, req.Address, req.Facilities)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.manager.AddVenue(r.Context(), venue) {
		writeError(w, http.StatusConflict, "venue could not be added")
		return
	}
	writeJSON(w, http.StatusCreated, venue)
}

// ListVenues handles GET /venues
func (a *API) ListVenues(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	writeJSON(w, http.StatusOK, a.manager.Venues())
}

// GetVenue handles GET /venues/{id}
func (a *API) GetVenue(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	venue, ok := a.manager.VenueByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "venue not found")
		return
	}
	writeJSON(w, http.StatusOK, venue)
}

// DeleteVenue handles DELETE /venues/{id}
// Deletion is rejected while any event still references the venue.
func (a *API) DeleteVenue(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	venue, ok := a.manager.VenueByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "venue not found")
		return
	}
	if !a.manager.DeleteVenue(r.Context(), venue) {
		writeError(w, http.StatusConflict, "venue is referenced by an event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Participants ─────────────────────────────────────────────────────────────

// CreateParticipant handles POST /participants
func (a *API) CreateParticipant(w http.ResponseWriter, r *http.Request) {
	var req model.CreateParticipantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	participant, err := model.NewParticipant(uuid.New().String(), req.Name, req.Email, req.Phone, req.Organization)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.manager.AddParticipant(r.Context(), participant) {
		writeError(w, http.StatusConflict, "participant could not be added")
		return
	}
	writeJSON(w, http.StatusCreated, participant)
}

// ListParticipants handles GET /participants
func (a *API) ListParticipants(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	writeJSON(w, http.StatusOK, a.manager.Participants())
}

// GetParticipant handles GET /participants/{id}
func (a *API) GetParticipant(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	participant, ok := a.manager.ParticipantByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "participant not found")
		return
	}
	writeJSON(w, http.StatusOK, participant)
}

// DeleteParticipant handles DELETE /participants/{id}
// Removal cascades to every event roster.
func (a *API) DeleteParticipant(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	participant, ok := a.manager.ParticipantByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "participant not found")
		return
	}
	if !a.manager.DeleteParticipant(r.Context(), participant) {
		writeError(w, http.StatusInternalServerError, "failed to delete participant")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Events ───────────────────────────────────────────────────────────────────

func (a *API) eventFromRequest(id string, req model.CreateEventRequest) (*model.Event, string) {
	venue, ok := a.manager.VenueByID(req.VenueID)
	if !ok {
		return nil, "venue not found"
	}
	start, err := time.Parse(time.RFC3339, req.DateTime)
	if err != nil {
		return nil, "date_time must be RFC 3339"
	}
	event, err := model.NewEvent(id, req.Title, start, venue, req.Description,
		time.Duration(req.DurationMinutes)*time.Minute, req.MaxParticipants)
	if err != nil {
		return nil, err.Error()
	}
	return event, ""
}

// CreateEvent handles POST /events
func (a *API) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	event, msg := a.eventFromRequest(uuid.New().String(), req)
	if event == nil {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if !a.manager.AddEvent(r.Context(), event) {
		writeError(w, http.StatusConflict, "event conflicts with an existing booking")
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(event))
}

// ListEvents handles GET /events
func (a *API) ListEvents(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	events := a.manager.Events()
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, viewOf(e))
	}
	writeJSON(w, http.StatusOK, views)
}

// GetEvent handles GET /events/{id}
func (a *API) GetEvent(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	event, ok := a.manager.EventByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(event))
}

// ModifyEvent handles PUT /events/{id}
// The stored instance is replaced wholesale; the live roster carries over.
func (a *API) ModifyEvent(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := chi.URLParam(r, "id")
	if _, ok := a.manager.EventByID(id); !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	var req model.CreateEventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	updated, msg := a.eventFromRequest(id, req)
	if updated == nil {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if !a.manager.ModifyEvent(r.Context(), updated) {
		writeError(w, http.StatusConflict, "event could not be modified")
		return
	}
	writeJSON(w, http.StatusOK, viewOf(updated))
}

// DeleteEvent handles DELETE /events/{id}
func (a *API) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	event, ok := a.manager.EventByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	if !a.manager.DeleteEvent(r.Context(), event) {
		writeError(w, http.StatusInternalServerError, "failed to delete event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ─── Registrations ────────────────────────────────────────────────────────────

// Register handles POST /events/{id}/register
func (a *API) Register(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	event, ok := a.manager.EventByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	var req model.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	participant, ok := a.manager.ParticipantByID(req.ParticipantID)
	if !ok {
		writeError(w, http.StatusNotFound, "participant not found")
		return
	}

	switch event.RegisterParticipant(participant) {
	case model.RegistrationEventFull:
		writeError(w, http.StatusConflict, "event is fully booked")
		return
	case model.RegistrationAlreadyRegistered:
		writeError(w, http.StatusConflict, "participant is already registered for this event")
		return
	}

	if !a.manager.UpdateEvent(r.Context(), event) {
		// Persistence failed; undo the in-memory registration so both
		// views stay consistent.
		event.UnregisterParticipant(participant)
		writeError(w, http.StatusInternalServerError, "failed to persist registration")
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(event))
}

// Unregister handles DELETE /events/{id}/registrations/{participantID}
func (a *API) Unregister(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	event, ok := a.manager.EventByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	participant, ok := a.manager.ParticipantByID(chi.URLParam(r, "participantID"))
	if !ok {
		writeError(w, http.StatusNotFound, "participant not found")
		return
	}
	snapshot := event.Participants()
	if !event.UnregisterParticipant(participant) {
		writeError(w, http.StatusNotFound, "participant is not registered for this event")
		return
	}
	if !a.manager.UpdateEvent(r.Context(), event) {
		// Persistence failed; put the roster back exactly as it was,
		// registration order included.
		_ = event.RestoreRoster(snapshot)
		writeError(w, http.StatusInternalServerError, "failed to persist unregistration")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRegistrations handles GET /events/{id}/registrations
func (a *API) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	event, ok := a.manager.EventByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, event.Participants())
}

// ─── Scheduling service passthrough ───────────────────────────────────────────

// FindSlots handles POST /scheduler/slots
// A missing or unreachable scheduling service maps to 503, not a failure of
// anything else.
func (a *API) FindSlots(w http.ResponseWriter, r *http.Request) {
	var req model.FindSlotsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	start, err := time.Parse(time.RFC3339, req.DateTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date_time must be RFC 3339")
		return
	}
	// Snapshot under the lock, then call the remote service without it so a
	// slow scheduler never holds up other requests.
	a.mu.Lock()
	venues, events := a.manager.Venues(), a.manager.Events()
	a.mu.Unlock()

	candidates, err := a.scheduler.FindAvailableSlots(r.Context(), scheduler.SlotRequest{
		Venues:           venues,
		Events:           events,
		RequiredCapacity: req.RequiredCapacity,
		DateTime:         start,
		Duration:         time.Duration(req.DurationMinutes) * time.Minute,
	})
	if err != nil {
		if errors.Is(err, scheduler.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "scheduling service unavailable")
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if candidates == nil {
		candidates = []scheduler.SlotCandidate{}
	}
	writeJSON(w, http.StatusOK, candidates)
}

// GenerateSchedule handles POST /scheduler/generate
func (a *API) GenerateSchedule(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	venues, events := a.manager.Venues(), a.manager.Events()
	a.mu.Unlock()

	result, err := a.scheduler.GenerateSchedule(r.Context(), scheduler.ScheduleRequest{
		Events: events,
		Venues: venues,
	})
	if err != nil {
		if errors.Is(err, scheduler.ErrUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "scheduling service unavailable")
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
