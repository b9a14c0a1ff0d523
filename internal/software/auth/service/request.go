package service

import (
	"errors"
	"fmt"
	"strings"

	"taxi-client/internal/domain/session"
	"taxi-client/internal/general/contracts"
	"taxi-client/internal/ports"
)

// Kind selects which login flow a request goes through.
type Kind string

const (
	KindRider  Kind = "RIDER"
	KindDriver Kind = "DRIVER"
	KindUsers  Kind = "USERS" // legacy generic flow; the backend tells us the actor type
)

var (
	ErrMissingField = errors.New("missing required login field")
	ErrUnknownKind  = errors.New("unknown login kind")
)

// MissingFieldError names the first empty credential field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingField, e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// ParseKind normalizes (uppercases+trims) and validates a kind; "passenger" is accepted for RIDER.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToUpper(strings.TrimSpace(s))); k {
	case KindRider, KindDriver, KindUsers:
		return k, nil
	case "PASSENGER":
		return KindRider, nil
	default:
		return "", ErrUnknownKind
	}
}

// variant is what differs between login flows: where to send the request, which error
// codes the endpoint can answer with, and what to persist on success.
type variant struct {
	endpoint  string
	codes     map[string]FailureKind
	onSuccess func(w ports.SessionWriter, body contracts.LoginResponseBody) error
}

var dedicatedCodes = map[string]FailureKind{
	contracts.CodeAccountDoesNotExist: FailureAccountNotFound,
	contracts.CodeInvalidCredentials:  FailureInvalidCredentials,
}

var variants = map[Kind]variant{
	KindRider: {
		endpoint:  contracts.EndpointPassengerLogin,
		codes:     dedicatedCodes,
		onSuccess: saveActor(session.ActorRider),
	},
	KindDriver: {
		endpoint:  contracts.EndpointDriverLogin,
		codes:     dedicatedCodes,
		onSuccess: saveActor(session.ActorDriver),
	},
	KindUsers: {
		endpoint: contracts.EndpointUsersLogin,
		codes: map[string]FailureKind{
			contracts.CodeAccountDoesNotExist: FailureAccountNotFound,
			contracts.CodeInvalidCredentials:  FailureInvalidCredentials,
			contracts.CodeUnsupportedClient:   FailureUnsupportedActor,
		},
		onSuccess: saveReportedActor,
	},
}

func saveActor(actor session.ActorType) func(ports.SessionWriter, contracts.LoginResponseBody) error {
	return func(w ports.SessionWriter, _ contracts.LoginResponseBody) error {
		w.SaveActorType(actor)
		return nil
	}
}

// saveReportedActor persists the actor type the users endpoint reported in clientType.
func saveReportedActor(w ports.SessionWriter, body contracts.LoginResponseBody) error {
	switch strings.ToLower(strings.TrimSpace(body.ClientType)) {
	case "passenger", "rider":
		w.SaveActorType(session.ActorRider)
	case "driver":
		w.SaveActorType(session.ActorDriver)
	default:
		return &Failure{Kind: FailureUnsupportedActor}
	}
	return nil
}

// LoginRequest is a validated login attempt for one flow.
type LoginRequest struct {
	kind  Kind
	creds session.Credentials
}

// NewLoginRequest validates creds for kind. Every field is required and non-empty.
func NewLoginRequest(kind Kind, creds session.Credentials) (LoginRequest, error) {
	if _, ok := variants[kind]; !ok {
		return LoginRequest{}, ErrUnknownKind
	}

	creds = creds.Trimmed()
	switch {
	case creds.Email == "":
		return LoginRequest{}, &MissingFieldError{Field: "email"}
	case strings.TrimSpace(creds.Password) == "":
		return LoginRequest{}, &MissingFieldError{Field: "password"}
	case creds.PushToken == "":
		return LoginRequest{}, &MissingFieldError{Field: "pushToken"}
	}

	return LoginRequest{kind: kind, creds: creds}, nil
}

// Kind returns the flow of the request.
func (r LoginRequest) Kind() Kind { return r.kind }

// Endpoint returns the backend path the request targets.
func (r LoginRequest) Endpoint() string { return variants[r.kind].endpoint }

// Body returns the JSON body of the request.
func (r LoginRequest) Body() contracts.LoginRequestBody {
	return contracts.LoginRequestBody{
		Email:                 r.creds.Email,
		Password:              r.creds.Password,
		PushNotificationToken: r.creds.PushToken,
	}
}

func (r LoginRequest) valid() bool {
	_, ok := variants[r.kind]
	return ok && r.creds.Email != "" && r.creds.Password != "" && r.creds.PushToken != ""
}
