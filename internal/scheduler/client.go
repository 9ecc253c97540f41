package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dvaughan/eventbook/internal/model"
)

// HTTPClient talks JSON over HTTP to a remote scheduling service. A short
// client timeout keeps an unreachable service from ever blocking callers.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

var _ Service = (*HTTPClient)(nil)

// NewHTTPClient constructs a client for the service at baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Wire shapes. Durations travel as minutes to keep the contract
// language-neutral.
type venuePayload struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Capacity   int      `json:"capacity"`
	Location   string   `json:"location"`
	Facilities []string `json:"facilities,omitempty"`
}

type eventPayload struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	VenueID         string    `json:"venue_id"`
	DateTime        time.Time `json:"date_time"`
	DurationMinutes int       `json:"duration_minutes"`
	MaxParticipants int       `json:"max_participants"`
}

type slotRequestPayload struct {
	Venues           []venuePayload `json:"venues"`
	Events           []eventPayload `json:"events"`
	RequiredCapacity int            `json:"required_capacity"`
	DateTime         time.Time      `json:"date_time"`
	DurationMinutes  int            `json:"duration_minutes"`
}

type slotCandidatePayload struct {
	VenueID        string    `json:"venue_id"`
	AvailableStart time.Time `json:"available_start"`
	FreeUntil      time.Time `json:"free_until"`
}

type scheduleRequestPayload struct {
	Events []eventPayload `json:"events"`
	Venues []venuePayload `json:"venues"`
}

func toVenuePayloads(venues []model.Venue) []venuePayload {
	out := make([]venuePayload, 0, len(venues))
	for _, v := range venues {
		out = append(out, venuePayload{
			ID:         v.ID,
			Name:       v.Name,
			Capacity:   v.Capacity,
			Location:   v.Location,
			Facilities: v.Facilities,
		})
	}
	return out
}

func toEventPayloads(events []*model.Event) []eventPayload {
	out := make([]eventPayload, 0, len(events))
	for _, e := range events {
		out = append(out, eventPayload{
			ID:              e.ID,
			Title:           e.Title,
			VenueID:         e.Venue.ID,
			DateTime:        e.Start,
			DurationMinutes: int(e.Duration / time.Minute),
			MaxParticipants: e.MaxParticipants,
		})
	}
	return out
}

// FindAvailableSlots asks the remote service for free venue slots.
func (c *HTTPClient) FindAvailableSlots(ctx context.Context, req SlotRequest) ([]SlotCandidate, error) {
	payload := slotRequestPayload{
		Venues:           toVenuePayloads(req.Venues),
		Events:           toEventPayloads(req.Events),
		RequiredCapacity: req.RequiredCapacity,
		DateTime:         req.DateTime,
		DurationMinutes:  int(req.Duration / time.Minute),
	}

	var candidates []slotCandidatePayload
	if err := c.post(ctx, "/slots/find", payload, &candidates); err != nil {
		return nil, err
	}

	venuesByID := make(map[string]model.Venue, len(req.Venues))
	for _, v := range req.Venues {
		venuesByID[v.ID] = v
	}
	out := make([]SlotCandidate, 0, len(candidates))
	for _, cand := range candidates {
		venue, ok := venuesByID[cand.VenueID]
		if !ok {
			return nil, fmt.Errorf("scheduling service returned unknown venue %s", cand.VenueID)
		}
		out = append(out, SlotCandidate{
			Venue:          venue,
			AvailableStart: cand.AvailableStart,
			FreeUntil:      cand.FreeUntil,
		})
	}
	return out, nil
}

// GenerateSchedule asks the remote service to place a batch of events.
func (c *HTTPClient) GenerateSchedule(ctx context.Context, req ScheduleRequest) (*ScheduleResult, error) {
	payload := scheduleRequestPayload{
		Events: toEventPayloads(req.Events),
		Venues: toVenuePayloads(req.Venues),
	}
	var result ScheduleResult
	if err := c.post(ctx, "/schedule/generate", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: service returned status %d", ErrUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
