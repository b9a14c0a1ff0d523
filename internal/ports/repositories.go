package ports

import (
	"context"
	"errors"

	"taxi-client/internal/domain/session"
	"taxi-client/internal/domain/taxirequest"
	"taxi-client/internal/domain/trip"
)

// ErrNotFound is returned by repositories when no row matches.
var ErrNotFound = errors.New("not found")

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// SessionRepository persists the single current session record.
type SessionRepository interface {
	Load(ctx context.Context) (session.Session, error)
	Save(ctx context.Context, s session.Session) error
	Delete(ctx context.Context) error
}

// TaxiRequestRepository caches the last authoritative snapshot of taxi requests.
type TaxiRequestRepository interface {
	Upsert(ctx context.Context, tr *taxirequest.TaxiRequest) error
	GetByID(ctx context.Context, id string) (*taxirequest.TaxiRequest, error)
}

// TripRepository caches the last authoritative snapshot of trips.
type TripRepository interface {
	Upsert(ctx context.Context, t *trip.Trip) error
	GetByID(ctx context.Context, id string) (*trip.Trip, error)
}
