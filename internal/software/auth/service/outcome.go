package service

import (
	"fmt"
	"net/http"

	"taxi-client/internal/domain/session"
	"taxi-client/internal/general/contracts"
)

// Outcome is the fully classified result of a login: *Success, *Failure or *TransportFailure.
type Outcome interface {
	isOutcome()
}

// FailureKind is a domain login error reported by the backend.
type FailureKind string

const (
	FailureAccountNotFound    FailureKind = "ACCOUNT_NOT_FOUND"
	FailureInvalidCredentials FailureKind = "INVALID_CREDENTIALS"
	FailureUnsupportedActor   FailureKind = "UNSUPPORTED_ACTOR"
)

// Success carries the session that was stored.
type Success struct {
	Session session.Session
}

// Failure is a terminal domain error; retrying with the same credentials will not help.
type Failure struct {
	Kind FailureKind
}

func (f *Failure) Error() string {
	return "login failed: " + string(f.Kind)
}

// TransportFailure covers connectivity problems, unexpected statuses and undecodable bodies.
// Status and Body are kept for diagnostics; Problem is set for validation failures of the
// users endpoint.
type TransportFailure struct {
	Status  int
	Body    string
	Problem *contracts.ValidationProblem
	Err     error
}

func (f *TransportFailure) Error() string {
	switch {
	case f.Err != nil && f.Status != 0:
		return fmt.Sprintf("login transport failure (HTTP %d): %v", f.Status, f.Err)
	case f.Err != nil:
		return fmt.Sprintf("login transport failure: %v", f.Err)
	case f.Problem != nil:
		return fmt.Sprintf("login rejected by validation (HTTP %d): %s", f.Status, f.Problem.Title)
	default:
		return fmt.Sprintf("login transport failure: HTTP %d %s", f.Status, http.StatusText(f.Status))
	}
}

func (f *TransportFailure) Unwrap() error { return f.Err }

func (*Success) isOutcome()          {}
func (*Failure) isOutcome()          {}
func (*TransportFailure) isOutcome() {}
