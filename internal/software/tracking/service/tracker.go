package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"taxi-client/internal/domain/notification"
	"taxi-client/internal/domain/taxirequest"
	"taxi-client/internal/domain/trip"
	"taxi-client/internal/general/contracts"
	"taxi-client/internal/general/logger"
	"taxi-client/internal/ports"
)

// Fetcher reads a JSON resource from the backend. *apiclient.Client satisfies it.
type Fetcher interface {
	GetJSON(ctx context.Context, path string, out any) error
}

// Tracker refreshes taxi requests when their status changes and keeps the last snapshot.
type Tracker struct {
	logger   *logger.Logger
	api      Fetcher
	uow      ports.UnitOfWork
	requests ports.TaxiRequestRepository
	trips    ports.TripRepository
	now      func() time.Time

	mu        sync.RWMutex
	listeners []ports.TaxiRequestListener
}

func NewTracker(
	log *logger.Logger,
	api Fetcher,
	uow ports.UnitOfWork,
	requests ports.TaxiRequestRepository,
	trips ports.TripRepository,
) *Tracker {
	return &Tracker{
		logger:   log,
		api:      api,
		uow:      uow,
		requests: requests,
		trips:    trips,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// AddListener registers l for every refreshed snapshot.
func (t *Tracker) AddListener(l ports.TaxiRequestListener) {
	t.mu.Lock()
	t.listeners = append(t.listeners, l)
	t.mu.Unlock()
}

// HandleStatusChanged is the event bus handler.
func (t *Tracker) HandleStatusChanged(ctx context.Context, ev notification.TaxiRequestStatusChanged) {
	ctx = logger.WithRequestID(ctx, ev.ID.String())
	if _, err := t.Refresh(ctx, ev.TaxiRequestID); err != nil {
		t.logger.Error(ctx, "taxi_request_refresh_failed", "Failed to refresh taxi request", err,
			map[string]any{"taxi_request_id": ev.TaxiRequestID})
	}
}

// Refresh fetches the authoritative state of a taxi request (and its trip, if any),
// caches it and notifies listeners.
func (t *Tracker) Refresh(ctx context.Context, id string) (ports.TaxiRequestSnapshot, error) {
	ctx = logger.WithTaxiRequestID(ctx, id)

	var dto contracts.TaxiRequestDTO
	if err := t.api.GetJSON(ctx, contracts.EndpointTaxiRequests+url.PathEscape(id), &dto); err != nil {
		return ports.TaxiRequestSnapshot{}, fmt.Errorf("fetch taxi request %s: %w", id, err)
	}
	tr, err := dto.ToDomain()
	if err != nil {
		return ports.TaxiRequestSnapshot{}, fmt.Errorf("taxi request %s: %w", id, err)
	}

	var tp *trip.Trip
	if tr.TripID != nil && *tr.TripID != "" {
		var tripDTO contracts.TripDTO
		if err := t.api.GetJSON(ctx, contracts.EndpointTrips+url.PathEscape(*tr.TripID), &tripDTO); err != nil {
			return ports.TaxiRequestSnapshot{}, fmt.Errorf("fetch trip %s: %w", *tr.TripID, err)
		}
		if tp, err = tripDTO.ToDomain(); err != nil {
			return ports.TaxiRequestSnapshot{}, fmt.Errorf("trip %s: %w", *tr.TripID, err)
		}
	}

	err = t.uow.WithinTx(ctx, func(txCtx context.Context) error {
		prev, err := t.requests.GetByID(txCtx, tr.ID)
		switch {
		case errors.Is(err, ports.ErrNotFound):
		case err != nil:
			return err
		default:
			t.checkProgress(ctx, prev.Status, tr.Status)
		}

		if err := t.requests.Upsert(txCtx, tr); err != nil {
			return err
		}
		if tp != nil {
			return t.trips.Upsert(txCtx, tp)
		}
		return nil
	})
	if err != nil {
		return ports.TaxiRequestSnapshot{}, fmt.Errorf("cache taxi request %s: %w", id, err)
	}

	now := t.now()
	snap := ports.TaxiRequestSnapshot{Request: tr, Trip: tp, Effective: tr.Effective(now), FetchedAt: now}

	t.logger.Info(ctx, "taxi_request_refreshed", "Taxi request state refreshed", map[string]any{
		"status":    tr.Status.String(),
		"effective": snap.Effective.String(),
		"has_trip":  tp != nil,
	})
	t.notify(ctx, snap)
	return snap, nil
}

// checkProgress flags fetched states the cached state could not legally move to. The
// backend stays authoritative; this only shows up in the logs.
func (t *Tracker) checkProgress(ctx context.Context, prev, next taxirequest.Status) {
	if prev == next || prev.CanTransitionTo(next) {
		return
	}
	t.logger.Info(ctx, "status_regression", "Fetched status does not follow the cached one", map[string]any{
		"cached":  prev.String(),
		"fetched": next.String(),
	})
}

// Current returns the cached snapshot of a taxi request, or ports.ErrNotFound.
func (t *Tracker) Current(ctx context.Context, id string) (ports.TaxiRequestSnapshot, error) {
	var snap ports.TaxiRequestSnapshot
	err := t.uow.WithinTx(ctx, func(txCtx context.Context) error {
		tr, err := t.requests.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		snap.Request = tr
		if tr.TripID == nil {
			return nil
		}
		tp, err := t.trips.GetByID(txCtx, *tr.TripID)
		if errors.Is(err, ports.ErrNotFound) {
			return nil
		}
		snap.Trip = tp
		return err
	})
	if err != nil {
		return ports.TaxiRequestSnapshot{}, err
	}

	snap.FetchedAt = snap.Request.UpdatedAt
	snap.Effective = snap.Request.Effective(t.now())
	return snap, nil
}

func (t *Tracker) notify(ctx context.Context, snap ports.TaxiRequestSnapshot) {
	t.mu.RLock()
	listeners := append([]ports.TaxiRequestListener(nil), t.listeners...)
	t.mu.RUnlock()

	for _, l := range listeners {
		l.OnTaxiRequestUpdate(ctx, snap)
	}
}
