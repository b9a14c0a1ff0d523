package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"taxi-client/internal/domain/session"
	"taxi-client/internal/general/logger"
	"taxi-client/internal/ports"
)

// Store is the single authoritative holder of the current session.
//
// Writers are serialized by writeMu and publish a whole new value under mu, so a reader
// sees either the session before a unit of writes or the one after it, never a mix.
type Store struct {
	logger *logger.Logger
	repo   ports.SessionRepository // nil keeps the store in memory only
	uow    ports.UnitOfWork

	writeMu sync.Mutex
	mu      sync.RWMutex
	current session.Session
}

var _ ports.SessionStore = (*Store)(nil)

// NewStore builds a store. repo and uow may both be nil for a memory-only store.
func NewStore(logger *logger.Logger, repo ports.SessionRepository, uow ports.UnitOfWork) *Store {
	return &Store{logger: logger, repo: repo, uow: uow}
}

// Load hydrates the store from the repository. An inconsistent record is wiped.
func (s *Store) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var loaded session.Session
	err := s.inTx(ctx, func(ctx context.Context) error {
		var err error
		loaded, err = s.repo.Load(ctx)
		return err
	})
	if errors.Is(err, ports.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	if !loaded.Consistent() {
		s.logger.Info(ctx, "session_inconsistent_on_load", "Stored session was half written; clearing it",
			map[string]any{"has_token": loaded.Token != "", "actor_type": loaded.ActorType.String()})
		if err := s.inTx(ctx, s.repo.Delete); err != nil {
			return fmt.Errorf("clear inconsistent session: %w", err)
		}
		loaded = session.Session{}
	}

	s.mu.Lock()
	s.current = loaded
	s.mu.Unlock()

	s.logger.Info(ctx, "session_loaded", "Session restored from storage",
		map[string]any{"status": loaded.Status().String()})
	return nil
}

// WithinTx stages the writes made by fn and applies them as one unit.
// If fn returns an error nothing is written.
func (s *Store) WithinTx(ctx context.Context, fn func(w ports.SessionWriter) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	staged := &stagedWriter{next: s.Current()}
	if err := fn(staged); err != nil {
		return err
	}
	if !staged.dirty {
		return nil
	}
	return s.commit(ctx, staged.next)
}

// SaveToken records or replaces the bearer token.
func (s *Store) SaveToken(ctx context.Context, token string) error {
	return s.WithinTx(ctx, func(w ports.SessionWriter) error {
		w.SaveToken(token)
		return nil
	})
}

// SaveActorType records which actor kind is authenticated. Idempotent.
func (s *Store) SaveActorType(ctx context.Context, actor session.ActorType) error {
	if !actor.Valid() {
		return session.ErrInvalidActorType
	}
	return s.WithinTx(ctx, func(w ports.SessionWriter) error {
		w.SaveActorType(actor)
		return nil
	})
}

// Clear removes token and actor type together.
func (s *Store) Clear(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.clear(ctx)
}

// ClearIfToken clears the session only while it still carries token, so invalidating an
// old token cannot wipe a session committed after it was read. It reports whether it cleared.
func (s *Store) ClearIfToken(ctx context.Context, token string) (bool, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if token == "" || s.Current().Token != token {
		return false, nil
	}
	if err := s.clear(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// clear must be called with writeMu held.
func (s *Store) clear(ctx context.Context) error {
	if s.repo != nil {
		if err := s.inTx(ctx, s.repo.Delete); err != nil {
			return fmt.Errorf("clear session: %w", err)
		}
	}

	s.mu.Lock()
	s.current = session.Session{}
	s.mu.Unlock()

	s.logger.Info(ctx, "session_cleared", "Session cleared", nil)
	return nil
}

// LoginStatus derives the status from the stored pair; a half-set pair reads as not logged in.
func (s *Store) LoginStatus() session.LoginStatus {
	return s.Current().Status()
}

// Token returns the bearer token of a consistent session, or "".
func (s *Store) Token() string {
	cur := s.Current()
	if cur.Status() == session.StatusNotLoggedIn {
		return ""
	}
	return cur.Token
}

// Current returns a copy of the stored session.
func (s *Store) Current() session.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// commit persists next (when backed by a repository) and then publishes it to readers.
// Must be called with writeMu held.
func (s *Store) commit(ctx context.Context, next session.Session) error {
	if s.repo != nil {
		err := s.inTx(ctx, func(ctx context.Context) error {
			return s.repo.Save(ctx, next)
		})
		if err != nil {
			return fmt.Errorf("persist session: %w", err)
		}
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()

	s.logger.Debug(ctx, "session_saved", "Session updated",
		map[string]any{"status": next.Status().String()})
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.uow == nil {
		return fn(ctx)
	}
	return s.uow.WithinTx(ctx, fn)
}

// stagedWriter collects writes for a single WithinTx call.
type stagedWriter struct {
	next  session.Session
	dirty bool
}

func (w *stagedWriter) SaveToken(token string) {
	w.next.Token = token
	w.dirty = true
}

func (w *stagedWriter) SaveActorType(actor session.ActorType) {
	w.next.ActorType = actor
	w.dirty = true
}
