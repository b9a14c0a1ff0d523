package session

import (
	"errors"
	"strings"
)

// LoginStatus is what the rest of the app sees of the current session.
type LoginStatus string

const (
	StatusLoggedInAsRider  LoginStatus = "LOGGED_IN_AS_RIDER"
	StatusLoggedInAsDriver LoginStatus = "LOGGED_IN_AS_DRIVER"
	StatusNotLoggedIn      LoginStatus = "NOT_LOGGED_IN"
)

// String returns the string representation of the LoginStatus.
func (status LoginStatus) String() string {
	return string(status)
}

// Session is the persisted proof of authentication.
type Session struct {
	Token     string
	ActorType ActorType
}

var ErrInconsistentSession = errors.New("session token and actor type must be set together")

// Status derives the login status. A half-set session is reported as not logged in.
func (s Session) Status() LoginStatus {
	if !s.Consistent() || s.Empty() {
		return StatusNotLoggedIn
	}
	switch s.ActorType {
	case ActorRider:
		return StatusLoggedInAsRider
	case ActorDriver:
		return StatusLoggedInAsDriver
	default:
		return StatusNotLoggedIn
	}
}

// Empty reports whether neither token nor actor type is set.
func (s Session) Empty() bool {
	return strings.TrimSpace(s.Token) == "" && s.ActorType == ""
}

// Consistent holds when the token is present iff a valid actor type is present.
func (s Session) Consistent() bool {
	hasToken := strings.TrimSpace(s.Token) != ""
	hasActor := s.ActorType != ""
	if hasActor && !s.ActorType.Valid() {
		return false
	}
	return hasToken == hasActor
}

// Validate checks the invariant of a session that is about to be stored.
func (s Session) Validate() error {
	if !s.Consistent() {
		return ErrInconsistentSession
	}
	return nil
}
