package cli

import (
	"context"

	"taxi-client/internal/general/config"
	"taxi-client/internal/general/logger"
	"taxi-client/internal/general/memory"
	"taxi-client/internal/general/postgres"
	"taxi-client/internal/general/sessionstore"
	"taxi-client/internal/ports"
)

// Storage bundles the repositories shared by the client modes.
// With the database disabled the session lives in memory and snapshots use the memory repos.
type Storage struct {
	UOW          ports.UnitOfWork
	Sessions     ports.SessionRepository
	TaxiRequests ports.TaxiRequestRepository
	Trips        ports.TripRepository

	close func()
}

// OpenStorage connects to Postgres when enabled, otherwise returns the in-memory set.
func OpenStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Storage, error) {
	if !cfg.Database.Enabled {
		log.Info(ctx, "storage_memory", "Database disabled; session and snapshots are kept in memory", nil)
		return &Storage{
			UOW:          memory.UnitOfWork{},
			TaxiRequests: memory.NewTaxiRequestRepo(),
			Trips:        memory.NewTripRepo(),
			close:        func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	return &Storage{
		UOW:          postgres.NewUnitOfWork(pool),
		Sessions:     postgres.NewSessionRepo(),
		TaxiRequests: postgres.NewTaxiRequestRepo(),
		Trips:        postgres.NewTripRepo(),
		close:        pool.Close,
	}, nil
}

// SessionStore builds the session store over this storage and restores the saved session.
func (s *Storage) SessionStore(ctx context.Context, log *logger.Logger) (*sessionstore.Store, error) {
	var store *sessionstore.Store
	if s.Sessions == nil {
		store = sessionstore.NewStore(log, nil, nil)
	} else {
		store = sessionstore.NewStore(log, s.Sessions, s.UOW)
	}
	if err := store.Load(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Storage) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}
