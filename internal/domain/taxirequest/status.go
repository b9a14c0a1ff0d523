package taxirequest

import (
	"errors"
	"strings"
)

// Status is the lifecycle state of a taxi request.
type Status string

const (
	StatusWaitingAcceptance Status = "WAITING_ACCEPTANCE"
	StatusAccepted          Status = "ACCEPTED"
	StatusDriverArrived     Status = "DRIVER_ARRIVED"
	StatusCancelled         Status = "CANCELLED"
	StatusFinished          Status = "FINISHED"
)

var ErrInvalidStatus = errors.New("invalid taxi request status")

// ParseStatus normalizes (uppercases+trims) and validates a status string.
func ParseStatus(in string) (Status, error) {
	status := Status(strings.ToUpper(strings.TrimSpace(in)))
	if status.Valid() {
		return status, nil
	}
	return "", ErrInvalidStatus
}

// Valid reports whether status is one of the allowed status constants.
func (status Status) Valid() bool {
	switch status {
	case StatusWaitingAcceptance, StatusAccepted, StatusDriverArrived, StatusCancelled, StatusFinished:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// CanTransitionTo specifies if the status can transition to the next status.
func (status Status) CanTransitionTo(next Status) bool {
	switch status {
	case StatusWaitingAcceptance:
		return next == StatusAccepted || next == StatusCancelled

	case StatusAccepted:
		return next == StatusDriverArrived || next == StatusCancelled

	case StatusDriverArrived:
		return next == StatusFinished || next == StatusCancelled

	default:
		return false
	}
}

// Terminal indicates that no further transition is permitted.
func (status Status) Terminal() bool {
	return status == StatusCancelled || status == StatusFinished
}
