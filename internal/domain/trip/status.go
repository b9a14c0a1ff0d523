package trip

import (
	"errors"
	"strings"
)

// Status is the lifecycle state of a trip.
type Status string

const (
	StatusStarted  Status = "STARTED"
	StatusFinished Status = "FINISHED"
)

var ErrInvalidStatus = errors.New("invalid trip status")

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
	return status == StatusStarted || status == StatusFinished
}

// String returns the string representation of the Status.
func (status Status) String() string {
	return string(status)
}

// CanTransitionTo specifies if the status can transition to the next status.
func (status Status) CanTransitionTo(next Status) bool {
	return status == StatusStarted && next == StatusFinished
}
