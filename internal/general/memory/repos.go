// Package memory holds in-process stand-ins for the postgres repositories, used when no
// database is configured.
package memory

import (
	"context"
	"sync"

	"taxi-client/internal/domain/taxirequest"
	"taxi-client/internal/domain/trip"
	"taxi-client/internal/ports"
)

// UnitOfWork runs fn directly; the memory repositories are individually synchronized.
type UnitOfWork struct{}

func (UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type TaxiRequestRepo struct {
	mu   sync.RWMutex
	rows map[string]taxirequest.TaxiRequest
}

func NewTaxiRequestRepo() *TaxiRequestRepo {
	return &TaxiRequestRepo{rows: make(map[string]taxirequest.TaxiRequest)}
}

func (r *TaxiRequestRepo) Upsert(ctx context.Context, tr *taxirequest.TaxiRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[tr.ID] = cloneTaxiRequest(*tr)
	return nil
}

func (r *TaxiRequestRepo) GetByID(ctx context.Context, id string) (*taxirequest.TaxiRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tr, ok := r.rows[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	out := cloneTaxiRequest(tr)
	return &out, nil
}

type TripRepo struct {
	mu   sync.RWMutex
	rows map[string]trip.Trip
}

func NewTripRepo() *TripRepo {
	return &TripRepo{rows: make(map[string]trip.Trip)}
}

func (r *TripRepo) Upsert(ctx context.Context, t *trip.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[t.ID] = cloneTrip(*t)
	return nil
}

func (r *TripRepo) GetByID(ctx context.Context, id string) (*trip.Trip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.rows[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	out := cloneTrip(t)
	return &out, nil
}

// pointer fields are copied so callers cannot mutate stored rows
func cloneTaxiRequest(tr taxirequest.TaxiRequest) taxirequest.TaxiRequest {
	tr.DriverID = clonePtr(tr.DriverID)
	tr.TripID = clonePtr(tr.TripID)
	return tr
}

func cloneTrip(t trip.Trip) trip.Trip {
	t.EndDate = clonePtr(t.EndDate)
	t.Rating = clonePtr(t.Rating)
	return t
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

var (
	_ ports.UnitOfWork            = UnitOfWork{}
	_ ports.TaxiRequestRepository = (*TaxiRequestRepo)(nil)
	_ ports.TripRepository        = (*TripRepo)(nil)
)
