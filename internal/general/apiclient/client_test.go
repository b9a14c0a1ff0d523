package apiclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"taxi-client/internal/domain/session"
	"taxi-client/internal/general/jwt"
	"taxi-client/internal/general/logger"
	"taxi-client/internal/general/sessionstore"
	"taxi-client/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loggedInStore(t *testing.T, token string) *sessionstore.Store {
	t.Helper()
	store := sessionstore.NewStore(logger.Discard(), nil, nil)
	require.NoError(t, store.WithinTx(context.Background(), func(w ports.SessionWriter) error {
		w.SaveToken(token)
		w.SaveActorType(session.ActorRider)
		return nil
	}))
	return store
}

func newAPI(t *testing.T, srv *httptest.Server, store ports.SessionStore) *Client {
	t.Helper()
	c, err := NewClient(NewAuthorizedTransport(logger.Discard(), srv.Client(), store), srv.URL, time.Second)
	require.NoError(t, err)
	return c
}

func TestGetJSON_SendsStoredToken(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"id":"tr-1"}`))
	}))
	defer srv.Close()

	api := newAPI(t, srv, loggedInStore(t, "opaque"))

	var out struct {
		ID string `json:"id"`
	}
	require.NoError(t, api.GetJSON(context.Background(), "api/v1/taxiRequests/tr-1", &out))
	assert.Equal(t, "Bearer opaque", gotAuth)
	assert.Equal(t, "/api/v1/taxiRequests/tr-1", gotPath)
	assert.Equal(t, "tr-1", out.ID)
}

func TestGetJSON_NotLoggedInSendsNothing(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	api := newAPI(t, srv, sessionstore.NewStore(logger.Discard(), nil, nil))
	err := api.GetJSON(context.Background(), "x", &struct{}{})
	assert.ErrorIs(t, err, ErrNotLoggedIn)
	assert.Zero(t, calls.Load())
}

func TestGetJSON_UnauthorizedClearsSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	store := loggedInStore(t, "opaque")
	api := newAPI(t, srv, store)

	err := api.GetJSON(context.Background(), "x", &struct{}{})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, session.StatusNotLoggedIn, store.LoginStatus())
}

func TestGetJSON_ExpiredTokenClearsSessionBeforeSending(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	raw, _, err := jwt.NewManager("k", time.Minute).IssueActorToken("u", session.ActorRider)
	require.NoError(t, err)
	store := loggedInStore(t, raw)

	tr := NewAuthorizedTransport(logger.Discard(), srv.Client(), store)
	tr.now = func() time.Time { return time.Now().Add(time.Hour) }
	api, err := NewClient(tr, srv.URL, time.Second)
	require.NoError(t, err)

	err = api.GetJSON(context.Background(), "x", &struct{}{})
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Zero(t, calls.Load())
	assert.Equal(t, session.StatusNotLoggedIn, store.LoginStatus())
}

func TestGetJSON_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such request", http.StatusNotFound)
	}))
	defer srv.Close()

	api := newAPI(t, srv, loggedInStore(t, "opaque"))
	err := api.GetJSON(context.Background(), "x", &struct{}{})

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Status)
	assert.Contains(t, se.Body, "no such request")
	assert.ErrorIs(t, err, ports.ErrNotFound)
}

// reloginTransport commits a new session while the request is in flight, then answers 401.
type reloginTransport struct {
	store *sessionstore.Store
}

func (r *reloginTransport) Do(req *http.Request) (*http.Response, error) {
	err := r.store.WithinTx(req.Context(), func(w ports.SessionWriter) error {
		w.SaveToken("fresh")
		w.SaveActorType(session.ActorDriver)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &http.Response{
		StatusCode: http.StatusUnauthorized,
		Body:       http.NoBody,
		Request:    req,
	}, nil
}

func TestGetJSON_UnauthorizedOldTokenKeepsNewerSession(t *testing.T) {
	store := loggedInStore(t, "old")
	api, err := NewClient(NewAuthorizedTransport(logger.Discard(), &reloginTransport{store: store}, store), "http://backend.local", time.Second)
	require.NoError(t, err)

	err = api.GetJSON(context.Background(), "x", &struct{}{})
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, session.Session{Token: "fresh", ActorType: session.ActorDriver}, store.Current())
	assert.Equal(t, session.StatusLoggedInAsDriver, store.LoginStatus())
}
