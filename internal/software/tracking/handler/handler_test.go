package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taxi-client/internal/domain/session"
	"taxi-client/internal/domain/taxirequest"
	"taxi-client/internal/general/contracts"
	"taxi-client/internal/general/logger"
	"taxi-client/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshots struct {
	snaps      map[string]ports.TaxiRequestSnapshot
	refreshErr error
	refreshed  []string
}

func (f *fakeSnapshots) Current(ctx context.Context, id string) (ports.TaxiRequestSnapshot, error) {
	snap, ok := f.snaps[id]
	if !ok {
		return ports.TaxiRequestSnapshot{}, ports.ErrNotFound
	}
	return snap, nil
}

func (f *fakeSnapshots) Refresh(ctx context.Context, id string) (ports.TaxiRequestSnapshot, error) {
	f.refreshed = append(f.refreshed, id)
	if f.refreshErr != nil {
		return ports.TaxiRequestSnapshot{}, f.refreshErr
	}
	return f.Current(ctx, id)
}

type fakeSockets struct{ clients int }

func (f *fakeSockets) Connect(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func (f *fakeSockets) Clients() int { return f.clients }

type fixedStatus session.LoginStatus

func (s fixedStatus) LoginStatus() session.LoginStatus { return session.LoginStatus(s) }

func newServer(t *testing.T, snaps *fakeSnapshots) *httptest.Server {
	t.Helper()
	h := NewHandler(logger.Discard(), snaps, &fakeSockets{clients: 2}, fixedStatus(session.StatusLoggedInAsRider))
	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return srv
}

func TestHandler_Health(t *testing.T) {
	srv := newServer(t, &fakeSnapshots{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, session.StatusLoggedInAsRider.String(), body["login_status"])
	assert.EqualValues(t, 2, body["ws_clients"])
}

func TestHandler_Snapshots(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	tr, err := taxirequest.New("tr-1", "rider-1", now.Add(time.Minute), now)
	require.NoError(t, err)
	snaps := &fakeSnapshots{snaps: map[string]ports.TaxiRequestSnapshot{
		"tr-1": {Request: tr, Effective: tr.Status, FetchedAt: now},
	}}
	srv := newServer(t, snaps)

	t.Run("cached snapshot", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/taxi-requests/tr-1")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var msg contracts.WSTaxiRequestUpdate
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&msg))
		assert.Equal(t, "taxi_request_update", msg.Type)
		assert.Equal(t, "tr-1", msg.TaxiRequest.ID)
		assert.False(t, msg.Expired)
		assert.Nil(t, msg.Trip)
	})

	t.Run("unknown id", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/taxi-requests/nope")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("refresh goes to the tracker", func(t *testing.T) {
		resp, err := http.Post(srv.URL+"/taxi-requests/tr-1/refresh", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, []string{"tr-1"}, snaps.refreshed)
	})

	t.Run("backend failure", func(t *testing.T) {
		snaps.refreshErr = errors.New("backend down")
		defer func() { snaps.refreshErr = nil }()

		resp, err := http.Post(srv.URL+"/taxi-requests/tr-1/refresh", "application/json", nil)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	})
}
