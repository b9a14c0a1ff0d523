package postgres

import (
	"context"
	"errors"

	"taxi-client/internal/domain/session"
	"taxi-client/internal/ports"

	"github.com/jackc/pgx/v5"
)

// SessionRepo keeps the single current session in client_session. Token and actor type
// are nullable so a half-written session survives a restart and can be detected on load.
type SessionRepo struct{}

func NewSessionRepo() ports.SessionRepository {
	return &SessionRepo{}
}

// Load returns ports.ErrNotFound when no session is stored.
func (repo *SessionRepo) Load(ctx context.Context) (session.Session, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return session.Session{}, err
	}

	var token, actor *string
	err = tx.QueryRow(ctx, `SELECT token, actor_type FROM client_session WHERE id = 1`).Scan(&token, &actor)
	if errors.Is(err, pgx.ErrNoRows) {
		return session.Session{}, ports.ErrNotFound
	}
	if err != nil {
		return session.Session{}, err
	}

	var out session.Session
	if token != nil {
		out.Token = *token
	}
	if actor != nil {
		// an unknown value reads as missing, which the store treats as a half-written record
		out.ActorType, _ = session.ParseActorType(*actor)
	}
	return out, nil
}

// Save replaces the stored session.
func (repo *SessionRepo) Save(ctx context.Context, s session.Session) error {
	if s.ActorType != "" && !s.ActorType.Valid() {
		return session.ErrInvalidActorType
	}
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO client_session (id, token, actor_type, updated_at)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE
		SET token = EXCLUDED.token, actor_type = EXCLUDED.actor_type, updated_at = now()
	`, nullable(s.Token), nullable(s.ActorType.String()))
	return err
}

// Delete forgets the stored session. Deleting nothing is not an error.
func (repo *SessionRepo) Delete(ctx context.Context) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `DELETE FROM client_session WHERE id = 1`)
	return err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
