package taxirequest

import (
	"errors"
	"strings"
	"time"
)

// TaxiRequest is a rider's request for a taxi as last reported by the backend.
type TaxiRequest struct {
	ID             string
	RiderID        string
	DriverID       *string // nil until accepted
	TripID         *string // set once a trip was started for the request
	Status         Status
	ExpirationDate time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

var (
	ErrIDRequired              = errors.New("taxi request id is required")
	ErrRiderRequired           = errors.New("rider id is required")
	ErrExpirationRequired      = errors.New("expiration date is required")
	ErrDriverRequired          = errors.New("driver id is required")
	ErrTripRequired            = errors.New("trip id is required")
	ErrExpired                 = errors.New("taxi request has expired")
	ErrInvalidStatusTransition = errors.New("invalid taxi request status transition")
)

// New creates a taxi request in WAITING_ACCEPTANCE state.
func New(id, riderID string, expiresAt, now time.Time) (*TaxiRequest, error) {
	if id = strings.TrimSpace(id); id == "" {
		return nil, ErrIDRequired
	}
	if riderID = strings.TrimSpace(riderID); riderID == "" {
		return nil, ErrRiderRequired
	}
	if expiresAt.IsZero() {
		return nil, ErrExpirationRequired
	}

	now = now.UTC()
	return &TaxiRequest{
		ID:             id,
		RiderID:        riderID,
		Status:         StatusWaitingAcceptance,
		ExpirationDate: expiresAt.UTC(),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// HasExpired reports whether now is past the expiration date. It is derived, never stored,
// and does not depend on the status except that a cancelled request is never "expired".
func (tr *TaxiRequest) HasExpired(now time.Time) bool {
	if tr.Status == StatusCancelled || tr.ExpirationDate.IsZero() {
		return false
	}
	return now.After(tr.ExpirationDate)
}

// Effective is the status callers should act on: an expired request still waiting for
// acceptance is functionally cancelled.
func (tr *TaxiRequest) Effective(now time.Time) Status {
	if tr.Status == StatusWaitingAcceptance && tr.HasExpired(now) {
		return StatusCancelled
	}
	return tr.Status
}

// Accept moves WAITING_ACCEPTANCE -> ACCEPTED and records the driver and the trip.
func (tr *TaxiRequest) Accept(driverID, tripID string, now time.Time) error {
	if driverID = strings.TrimSpace(driverID); driverID == "" {
		return ErrDriverRequired
	}
	if tripID = strings.TrimSpace(tripID); tripID == "" {
		return ErrTripRequired
	}
	if tr.HasExpired(now) {
		return ErrExpired
	}
	if err := tr.transition(StatusAccepted, now); err != nil {
		return err
	}
	tr.DriverID = &driverID
	tr.TripID = &tripID
	return nil
}

// MarkDriverArrived moves ACCEPTED -> DRIVER_ARRIVED.
func (tr *TaxiRequest) MarkDriverArrived(now time.Time) error {
	return tr.transition(StatusDriverArrived, now)
}

// Finish moves DRIVER_ARRIVED -> FINISHED.
func (tr *TaxiRequest) Finish(now time.Time) error {
	return tr.transition(StatusFinished, now)
}

// Cancel moves any non-terminal request to CANCELLED, expired or not.
func (tr *TaxiRequest) Cancel(now time.Time) error {
	return tr.transition(StatusCancelled, now)
}

func (tr *TaxiRequest) transition(next Status, now time.Time) error {
	if !tr.Status.CanTransitionTo(next) {
		return ErrInvalidStatusTransition
	}
	tr.Status = next
	tr.UpdatedAt = now.UTC()
	return nil
}
