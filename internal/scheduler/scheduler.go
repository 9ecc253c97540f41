// Package scheduler defines the port to the external slot-finding and
// auto-scheduling service. The core treats it as a black box: it may be
// entirely absent, and absence is a reportable outcome, never a blocker.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/dvaughan/eventbook/internal/model"
)

// ErrUnavailable is returned when no scheduling service is reachable or
// configured. Callers report it and carry on; nothing else depends on it.
var ErrUnavailable = errors.New("scheduling service unavailable")

// SlotRequest asks for venues free to host a gathering of the given size
// around the given time.
type SlotRequest struct {
	Venues           []model.Venue
	Events           []*model.Event
	RequiredCapacity int
	DateTime         time.Time
	Duration         time.Duration
}

// SlotCandidate is one venue the service found free.
type SlotCandidate struct {
	Venue          model.Venue `json:"venue"`
	AvailableStart time.Time   `json:"available_start"`
	FreeUntil      time.Time   `json:"free_until"`
}

// ScheduleRequest asks the service to assign venues and times to a batch of
// events.
type ScheduleRequest struct {
	Events []*model.Event
	Venues []model.Venue
}

// Assignment is one placed event in a generated schedule.
type Assignment struct {
	EventID    string    `json:"event_id"`
	EventTitle string    `json:"event_title"`
	VenueName  string    `json:"venue_name"`
	DateTime   time.Time `json:"date_time"`
}

// ScheduleResult is the outcome of a schedule generation run. Unplaced
// counts the events the service could not fit.
type ScheduleResult struct {
	Assignments []Assignment `json:"assignments"`
	Unplaced    int          `json:"unplaced"`
}

// Service is the typed contract with the external scheduling algorithm.
type Service interface {
	FindAvailableSlots(ctx context.Context, req SlotRequest) ([]SlotCandidate, error)
	GenerateSchedule(ctx context.Context, req ScheduleRequest) (*ScheduleResult, error)
}

// Unconfigured is the null implementation used when no service endpoint is
// configured. Both operations report ErrUnavailable.
type Unconfigured struct{}

// FindAvailableSlots always reports the service as unavailable.
func (Unconfigured) FindAvailableSlots(context.Context, SlotRequest) ([]SlotCandidate, error) {
	return nil, ErrUnavailable
}

// GenerateSchedule always reports the service as unavailable.
func (Unconfigured) GenerateSchedule(context.Context, ScheduleRequest) (*ScheduleResult, error) {
	return nil, ErrUnavailable
}
