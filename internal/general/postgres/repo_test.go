package postgres

import (
	"context"
	"testing"
	"time"

	"taxi-client/internal/domain/session"
	"taxi-client/internal/domain/taxirequest"

	"github.com/stretchr/testify/assert"
)

func TestReposRequireTransaction(t *testing.T) {
	ctx := context.Background()

	_, err := NewSessionRepo().Load(ctx)
	assert.ErrorIs(t, err, ErrNoTx)

	err = NewTaxiRequestRepo().Upsert(ctx, &taxirequest.TaxiRequest{ID: "tr", ExpirationDate: time.Now()})
	assert.ErrorIs(t, err, ErrNoTx)

	_, err = NewTripRepo().GetByID(ctx, "trip")
	assert.ErrorIs(t, err, ErrNoTx)
}

func TestSessionRepo_SaveRejectsUnknownActor(t *testing.T) {
	err := NewSessionRepo().Save(context.Background(), session.Session{Token: "tok", ActorType: "ADMIN"})
	assert.ErrorIs(t, err, session.ErrInvalidActorType)
}

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(""))
	assert.Equal(t, "x", *nullable("x"))
}
