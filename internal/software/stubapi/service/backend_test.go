package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"taxi-client/internal/domain/notification"
	"taxi-client/internal/domain/session"
	"taxi-client/internal/domain/taxirequest"
	"taxi-client/internal/domain/trip"
	"taxi-client/internal/general/contracts"
	"taxi-client/internal/general/jwt"
	"taxi-client/internal/general/logger"
	"taxi-client/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type recordingPush struct {
	mu   sync.Mutex
	msgs []contracts.PushMessage
}

func (p *recordingPush) PublishPush(ctx context.Context, msg contracts.PushMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return nil
}

func newBackend(t *testing.T) (*Backend, *recordingPush) {
	t.Helper()
	book, err := NewAccountBook(DefaultSeed, bcrypt.MinCost)
	require.NoError(t, err)
	push := &recordingPush{}
	return NewBackend(logger.Discard(), book, jwt.NewManager("test-secret", time.Hour), push), push
}

func TestBackend_Login(t *testing.T) {
	b, _ := newBackend(t)
	ctx := context.Background()

	res, err := b.Login(ctx, "Rider@Taxi.dev ", "rider-pass", "push", RolePassenger)
	require.NoError(t, err)
	assert.Equal(t, session.ActorRider, res.Actor)
	assert.NotEmpty(t, res.Token)

	_, err = b.Login(ctx, "driver@taxi.dev", "driver-pass", "push", RolePassenger)
	assert.ErrorIs(t, err, ErrAccountNotFound, "a driver is unknown to the passenger endpoint")

	_, err = b.Login(ctx, "driver@taxi.dev", "nope", "push", RoleDriver)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	res, err = b.Login(ctx, "driver@taxi.dev", "driver-pass", "push", "")
	require.NoError(t, err)
	assert.Equal(t, session.ActorDriver, res.Actor)

	_, err = b.Login(ctx, "admin@taxi.dev", "admin-pass", "push", "")
	assert.ErrorIs(t, err, ErrUnsupportedClient)
}

func TestBackend_TaxiRequestLifecycle(t *testing.T) {
	b, push := newBackend(t)
	ctx := context.Background()

	tr, err := b.CreateTaxiRequest(ctx, "rider-1", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, taxirequest.StatusWaitingAcceptance, tr.Status)

	_, err = b.ChangeStatus(ctx, tr.ID, StatusChange{Status: taxirequest.StatusAccepted})
	assert.ErrorIs(t, err, taxirequest.ErrDriverRequired)

	accepted, err := b.ChangeStatus(ctx, tr.ID, StatusChange{Status: taxirequest.StatusAccepted, DriverID: "driver-1"})
	require.NoError(t, err)
	require.NotNil(t, accepted.TripID)

	started, err := b.Trip(*accepted.TripID)
	require.NoError(t, err)
	assert.Equal(t, trip.StatusStarted, started.Status)

	_, err = b.ChangeStatus(ctx, tr.ID, StatusChange{Status: taxirequest.StatusFinished})
	assert.ErrorIs(t, err, taxirequest.ErrInvalidStatusTransition)

	_, err = b.ChangeStatus(ctx, tr.ID, StatusChange{Status: taxirequest.StatusDriverArrived})
	require.NoError(t, err)

	rating := 5
	finished, err := b.ChangeStatus(ctx, tr.ID, StatusChange{Status: taxirequest.StatusFinished, FareAmount: 12.5, Rating: &rating})
	require.NoError(t, err)
	assert.Equal(t, taxirequest.StatusFinished, finished.Status)

	done, err := b.Trip(*accepted.TripID)
	require.NoError(t, err)
	assert.Equal(t, trip.StatusFinished, done.Status)
	assert.Equal(t, 12.5, done.FareAmount)

	// created + accepted + arrived + finished
	require.Len(t, push.msgs, 4)
	for _, m := range push.msgs {
		assert.Equal(t, notification.TypeTaxiRequestStatusChanged, m[notification.KeyNotificationType])
		assert.Equal(t, tr.ID, m[notification.KeyTaxiRequestID])
	}

	_, err = b.ChangeStatus(ctx, "missing", StatusChange{Status: taxirequest.StatusCancelled})
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

func TestBackend_ExpiredRequestCannotBeAccepted(t *testing.T) {
	b, _ := newBackend(t)
	ctx := context.Background()

	tr, err := b.CreateTaxiRequest(ctx, "rider-1", time.Minute)
	require.NoError(t, err)

	b.now = func() time.Time { return time.Now().UTC().Add(time.Hour) }
	_, err = b.ChangeStatus(ctx, tr.ID, StatusChange{Status: taxirequest.StatusAccepted, DriverID: "d"})
	assert.ErrorIs(t, err, taxirequest.ErrExpired)

	cancelled, err := b.ChangeStatus(ctx, tr.ID, StatusChange{Status: taxirequest.StatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, taxirequest.StatusCancelled, cancelled.Status)
}

func TestAccountBook_RejectsDuplicates(t *testing.T) {
	book, err := NewAccountBook(nil, bcrypt.MinCost)
	require.NoError(t, err)

	_, err = book.Register("a@b.c", "pw", RoleDriver)
	require.NoError(t, err)
	_, err = book.Register(" A@B.C", "pw", RoleDriver)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	_, err = book.Register("x@b.c", "pw", "pilot")
	assert.Error(t, err)
}
