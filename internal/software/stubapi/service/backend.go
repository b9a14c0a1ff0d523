package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"taxi-client/internal/domain/notification"
	"taxi-client/internal/domain/session"
	"taxi-client/internal/domain/taxirequest"
	"taxi-client/internal/domain/trip"
	"taxi-client/internal/general/contracts"
	"taxi-client/internal/general/jwt"
	"taxi-client/internal/general/logger"
	"taxi-client/internal/ports"

	"github.com/google/uuid"
)

var ErrUnsupportedClient = errors.New("account type cannot use this client")

// PushPublisher delivers push messages to devices. *rabbitmq.MQPublisher satisfies it.
type PushPublisher interface {
	PublishPush(ctx context.Context, msg contracts.PushMessage) error
}

// LoginResult is what a successful login hands back.
type LoginResult struct {
	Token   string
	Account Account
	Actor   session.ActorType
}

// Backend is an in-memory stand-in for the ride-hailing backend.
type Backend struct {
	logger   *logger.Logger
	accounts *AccountBook
	tokens   *jwt.Manager
	push     PushPublisher // nil disables push
	now      func() time.Time

	mu       sync.RWMutex
	requests map[string]*taxirequest.TaxiRequest
	trips    map[string]*trip.Trip
	devices  map[string]string // account id -> push token
}

func NewBackend(log *logger.Logger, accounts *AccountBook, tokens *jwt.Manager, push PushPublisher) *Backend {
	return &Backend{
		logger:   log,
		accounts: accounts,
		tokens:   tokens,
		push:     push,
		now:      func() time.Time { return time.Now().UTC() },
		requests: make(map[string]*taxirequest.TaxiRequest),
		trips:    make(map[string]*trip.Trip),
		devices:  make(map[string]string),
	}
}

// Login authenticates against the accounts allowed for role (all of them when role is "")
// and mints a token.
func (b *Backend) Login(ctx context.Context, email, password, pushToken string, role Role) (LoginResult, error) {
	var (
		acc Account
		err error
	)
	if role == "" {
		acc, err = b.accounts.Authenticate(email, password)
	} else {
		acc, err = b.accounts.Authenticate(email, password, role)
	}
	if err != nil {
		b.logger.Info(ctx, "stub_login_rejected", "Login rejected", map[string]any{"reason": err.Error(), "role": string(role)})
		return LoginResult{}, err
	}

	actor, ok := actorOf(acc.Role)
	if !ok {
		return LoginResult{}, ErrUnsupportedClient
	}

	token, _, err := b.tokens.IssueActorToken(acc.ID, actor)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue token: %w", err)
	}

	b.mu.Lock()
	b.devices[acc.ID] = pushToken
	b.mu.Unlock()

	b.logger.Info(ctx, "stub_login_succeeded", "Login accepted", map[string]any{"user_id": acc.ID, "actor_type": actor.String()})
	return LoginResult{Token: token, Account: acc, Actor: actor}, nil
}

func actorOf(r Role) (session.ActorType, bool) {
	switch r {
	case RolePassenger:
		return session.ActorRider, true
	case RoleDriver:
		return session.ActorDriver, true
	default:
		return "", false
	}
}

// CreateTaxiRequest opens a request for riderID that expires after ttl.
func (b *Backend) CreateTaxiRequest(ctx context.Context, riderID string, ttl time.Duration) (*taxirequest.TaxiRequest, error) {
	now := b.now()
	tr, err := taxirequest.New(uuid.NewString(), riderID, now.Add(ttl), now)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.requests[tr.ID] = tr
	out := *tr
	b.mu.Unlock()

	b.notify(ctx, tr.ID)
	return &out, nil
}

// TaxiRequest returns a copy of the stored request.
func (b *Backend) TaxiRequest(id string) (*taxirequest.TaxiRequest, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	tr, ok := b.requests[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	out := *tr
	return &out, nil
}

// Trip returns a copy of the stored trip.
func (b *Backend) Trip(id string) (*trip.Trip, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.trips[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	out := *t
	return &out, nil
}

// StatusChange asks for a taxi request transition. DriverID is required when accepting;
// FareAmount and Rating apply when finishing.
type StatusChange struct {
	Status     taxirequest.Status
	DriverID   string
	FareAmount float64
	Rating     *int
}

// ChangeStatus applies the transition with the domain rules and pushes a status change
// notification to the devices.
func (b *Backend) ChangeStatus(ctx context.Context, id string, change StatusChange) (*taxirequest.TaxiRequest, error) {
	now := b.now()

	b.mu.Lock()
	tr, ok := b.requests[id]
	if !ok {
		b.mu.Unlock()
		return nil, ports.ErrNotFound
	}
	next := *tr
	var newTrip *trip.Trip
	var err error

	switch change.Status {
	case taxirequest.StatusAccepted:
		tripID := uuid.NewString()
		if err = next.Accept(change.DriverID, tripID, now); err == nil {
			newTrip, err = trip.New(tripID, next.ID, next.RiderID, strings.TrimSpace(change.DriverID), now)
		}
	case taxirequest.StatusDriverArrived:
		err = next.MarkDriverArrived(now)
	case taxirequest.StatusCancelled:
		err = next.Cancel(now)
	case taxirequest.StatusFinished:
		if err = next.Finish(now); err == nil && next.TripID != nil {
			if t, ok := b.trips[*next.TripID]; ok {
				finished := *t
				if err = finished.Finish(now, change.FareAmount, change.Rating); err == nil {
					newTrip = &finished
				}
			}
		}
	default:
		err = taxirequest.ErrInvalidStatusTransition
	}
	if err != nil {
		b.mu.Unlock()
		return nil, err
	}

	b.requests[id] = &next
	if newTrip != nil {
		b.trips[newTrip.ID] = newTrip
	}
	out := next
	b.mu.Unlock()

	b.logger.Info(logger.WithTaxiRequestID(ctx, id), "stub_status_changed", "Taxi request status changed",
		map[string]any{"status": next.Status.String()})
	b.notify(ctx, id)
	return &out, nil
}

func (b *Backend) notify(ctx context.Context, taxiRequestID string) {
	if b.push == nil {
		return
	}
	msg := contracts.PushMessage{
		notification.KeyNotificationType: notification.TypeTaxiRequestStatusChanged,
		notification.KeyTaxiRequestID:    taxiRequestID,
		notification.KeySentAt:           b.now().Format(time.RFC3339Nano),
	}
	if err := b.push.PublishPush(ctx, msg); err != nil {
		b.logger.Error(ctx, "stub_push_failed", "Failed to publish push notification", err,
			map[string]any{"taxi_request_id": taxiRequestID})
	}
}
