package trip

import (
	"errors"
	"strings"
	"time"
)

// Trip is the ride that follows an accepted taxi request.
type Trip struct {
	ID            string
	TaxiRequestID string
	RiderID       string
	DriverID      string

	Status     Status
	StartDate  time.Time
	EndDate    *time.Time // set once FINISHED
	FareAmount float64
	Rating     *int // optional, only once FINISHED
}

var (
	ErrIDRequired              = errors.New("trip id is required")
	ErrActorsRequired          = errors.New("rider and driver ids are required")
	ErrInvalidStatusTransition = errors.New("invalid trip status transition")
	ErrEndBeforeStart          = errors.New("end date must not be before start date")
	ErrNegativeFare            = errors.New("fare amount must not be negative")
	ErrRatingOutOfRange        = errors.New("rating must be between 1 and 5")
	ErrFinishedFieldsOnStarted = errors.New("end date and rating are only set on a finished trip")
	ErrEndDateRequired         = errors.New("end date is required on a finished trip")
)

// New creates a trip in STARTED state.
func New(id, taxiRequestID, riderID, driverID string, startDate time.Time) (*Trip, error) {
	if id = strings.TrimSpace(id); id == "" {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(riderID) == "" || strings.TrimSpace(driverID) == "" {
		return nil, ErrActorsRequired
	}

	return &Trip{
		ID:            id,
		TaxiRequestID: strings.TrimSpace(taxiRequestID),
		RiderID:       strings.TrimSpace(riderID),
		DriverID:      strings.TrimSpace(driverID),
		Status:        StatusStarted,
		StartDate:     startDate.UTC(),
	}, nil
}

// Finish transitions STARTED -> FINISHED. Any other starting state is rejected.
func (t *Trip) Finish(endDate time.Time, fare float64, rating *int) error {
	if !t.Status.CanTransitionTo(StatusFinished) {
		return ErrInvalidStatusTransition
	}
	if endDate.Before(t.StartDate) {
		return ErrEndBeforeStart
	}
	if fare < 0 {
		return ErrNegativeFare
	}
	if rating != nil && (*rating < 1 || *rating > 5) {
		return ErrRatingOutOfRange
	}

	end := endDate.UTC()
	t.EndDate = &end
	t.FareAmount = fare
	if rating != nil {
		r := *rating
		t.Rating = &r
	}
	t.Status = StatusFinished
	return nil
}

// Validate checks the invariants of a trip snapshot received from the backend.
func (t *Trip) Validate() error {
	if t.ID == "" {
		return ErrIDRequired
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	switch t.Status {
	case StatusStarted:
		if t.EndDate != nil || t.Rating != nil {
			return ErrFinishedFieldsOnStarted
		}
	case StatusFinished:
		if t.EndDate == nil {
			return ErrEndDateRequired
		}
		if t.EndDate.Before(t.StartDate) {
			return ErrEndBeforeStart
		}
	}
	if t.FareAmount < 0 {
		return ErrNegativeFare
	}
	if t.Rating != nil && (*t.Rating < 1 || *t.Rating > 5) {
		return ErrRatingOutOfRange
	}
	return nil
}
