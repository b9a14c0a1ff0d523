package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"taxi-client/internal/domain/session"
	"taxi-client/internal/general/contracts"
	"taxi-client/internal/general/logger"
	"taxi-client/internal/general/sessionstore"
	"taxi-client/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var creds = session.Credentials{Email: "rider@example.com", Password: "secret", PushToken: "push-1"}

type fakeBackend struct {
	server *httptest.Server
	calls  atomic.Int32

	mu    sync.Mutex
	paths []string
	last  contracts.LoginRequestBody
}

// newFakeBackend answers every login with status and body.
func newFakeBackend(t *testing.T, status int, body string) *fakeBackend {
	t.Helper()
	b := &fakeBackend{}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.calls.Add(1)
		var in contracts.LoginRequestBody
		_ = json.NewDecoder(r.Body).Decode(&in)
		b.mu.Lock()
		b.paths = append(b.paths, r.URL.Path)
		b.last = in
		b.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(b.server.Close)
	return b
}

func newTestClient(t *testing.T, baseURL string) (*Client, *sessionstore.Store) {
	t.Helper()
	store := sessionstore.NewStore(logger.Discard(), nil, nil)
	client, err := NewClient(logger.Discard(), http.DefaultClient, store, baseURL, 2*time.Second)
	require.NoError(t, err)
	return client, store
}

func login(t *testing.T, c *Client, kind Kind) Outcome {
	t.Helper()
	req, err := NewLoginRequest(kind, creds)
	require.NoError(t, err)
	return c.Login(context.Background(), req)
}

func TestNewClient_RejectsBadBaseURL(t *testing.T) {
	_, err := NewClient(logger.Discard(), nil, sessionstore.NewStore(logger.Discard(), nil, nil), "not a url", 0)
	assert.Error(t, err)
}

func TestLogin_SuccessStoresSession(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		body     string
		wantPath string
		want     session.LoginStatus
	}{
		{"rider", KindRider, `{"token":"t-rider"}`, "/api/v1/passengers/login", session.StatusLoggedInAsRider},
		{"driver", KindDriver, `{"token":"t-driver"}`, "/api/v1/drivers/login", session.StatusLoggedInAsDriver},
		{"users as passenger", KindUsers, `{"token":"t-u","clientType":"passenger"}`, "/api/v1/users/login", session.StatusLoggedInAsRider},
		{"users as driver", KindUsers, `{"token":"t-u","clientType":"driver"}`, "/api/v1/users/login", session.StatusLoggedInAsDriver},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend(t, http.StatusOK, tt.body)
			client, store := newTestClient(t, backend.server.URL)

			out := login(t, client, tt.kind)

			success, ok := out.(*Success)
			require.True(t, ok, "got %T: %v", out, out)
			assert.Equal(t, tt.want, store.LoginStatus())
			assert.Equal(t, store.Current(), success.Session)
			assert.Equal(t, []string{tt.wantPath}, backend.paths)
			assert.Equal(t, "push-1", backend.last.PushNotificationToken)
			assert.Equal(t, "rider@example.com", backend.last.Email)
		})
	}
}

// racingStore lets another login commit right after each unit of writes.
type racingStore struct {
	*sessionstore.Store
}

func (r racingStore) WithinTx(ctx context.Context, fn func(w ports.SessionWriter) error) error {
	if err := r.Store.WithinTx(ctx, fn); err != nil {
		return err
	}
	return r.Store.WithinTx(ctx, func(w ports.SessionWriter) error {
		w.SaveToken("t-other")
		w.SaveActorType(session.ActorDriver)
		return nil
	})
}

func TestLogin_SuccessReportsOwnSession(t *testing.T) {
	backend := newFakeBackend(t, http.StatusOK, `{"token":"t-rider"}`)
	store := racingStore{Store: sessionstore.NewStore(logger.Discard(), nil, nil)}
	client, err := NewClient(logger.Discard(), http.DefaultClient, store, backend.server.URL, 2*time.Second)
	require.NoError(t, err)

	out := login(t, client, KindRider)

	success, ok := out.(*Success)
	require.True(t, ok, "got %T: %v", out, out)
	assert.Equal(t, session.Session{Token: "t-rider", ActorType: session.ActorRider}, success.Session)
	assert.Equal(t, session.StatusLoggedInAsDriver, store.LoginStatus())
}

func TestLogin_DomainFailures(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		code string
		want FailureKind
	}{
		{"rider unknown account", KindRider, "account_does_not_exists", FailureAccountNotFound},
		{"driver bad password", KindDriver, "invalid_credentials", FailureInvalidCredentials},
		{"users unknown account", KindUsers, "account_does_not_exists", FailureAccountNotFound},
		{"users unsupported client", KindUsers, "unsupported_client", FailureUnsupportedActor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend(t, http.StatusBadRequest, fmt.Sprintf(`{"code":%q}`, tt.code))
			client, store := newTestClient(t, backend.server.URL)

			out := login(t, client, tt.kind)

			failure, ok := out.(*Failure)
			require.True(t, ok, "got %T: %v", out, out)
			assert.Equal(t, tt.want, failure.Kind)
			assert.Equal(t, session.StatusNotLoggedIn, store.LoginStatus())
		})
	}
}

func TestLogin_DedicatedEndpointDoesNotKnowUnsupportedClient(t *testing.T) {
	backend := newFakeBackend(t, http.StatusBadRequest, `{"code":"unsupported_client"}`)
	client, _ := newTestClient(t, backend.server.URL)

	out := login(t, client, KindRider)

	tf, ok := out.(*TransportFailure)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, http.StatusBadRequest, tf.Status)
	assert.Contains(t, tf.Body, "unsupported_client")
}

func TestLogin_FailureKeepsPreviousSession(t *testing.T) {
	backend := newFakeBackend(t, http.StatusUnauthorized, `{"code":"invalid_credentials"}`)
	client, store := newTestClient(t, backend.server.URL)

	require.NoError(t, store.WithinTx(context.Background(), func(w ports.SessionWriter) error {
		w.SaveToken("previous")
		w.SaveActorType(session.ActorDriver)
		return nil
	}))

	out := login(t, client, KindRider)
	require.IsType(t, &Failure{}, out)
	assert.Equal(t, session.Session{Token: "previous", ActorType: session.ActorDriver}, store.Current())
}

func TestLogin_UsersUnknownClientTypeIsUnsupported(t *testing.T) {
	backend := newFakeBackend(t, http.StatusOK, `{"token":"t","clientType":"admin"}`)
	client, store := newTestClient(t, backend.server.URL)

	out := login(t, client, KindUsers)

	failure, ok := out.(*Failure)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, FailureUnsupportedActor, failure.Kind)
	assert.Equal(t, session.Session{}, store.Current())
}

func TestLogin_UsersValidationProblem(t *testing.T) {
	body := `{"type":"about:blank","title":"One or more validation errors occurred.","status":400,"errors":{"Email":["The Email field is required."]}}`
	backend := newFakeBackend(t, http.StatusBadRequest, body)
	client, _ := newTestClient(t, backend.server.URL)

	out := login(t, client, KindUsers)

	tf, ok := out.(*TransportFailure)
	require.True(t, ok, "got %T", out)
	require.NotNil(t, tf.Problem)
	assert.Equal(t, []string{"The Email field is required."}, tf.Problem.Errors["Email"])
}

func TestLogin_UnexpectedAnswers(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusInternalServerError, "oops"},
		{"garbage success body", http.StatusOK, "not json"},
		{"success without token", http.StatusOK, `{"token":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend(t, tt.status, tt.body)
			client, store := newTestClient(t, backend.server.URL)

			out := login(t, client, KindDriver)

			tf, ok := out.(*TransportFailure)
			require.True(t, ok, "got %T", out)
			assert.Equal(t, tt.status, tf.Status)
			assert.Equal(t, session.StatusNotLoggedIn, store.LoginStatus())
		})
	}
}

func TestLogin_ConnectionRefused(t *testing.T) {
	backend := newFakeBackend(t, http.StatusOK, `{"token":"t"}`)
	url := backend.server.URL
	backend.server.Close()

	client, _ := newTestClient(t, url)
	out := login(t, client, KindRider)

	tf, ok := out.(*TransportFailure)
	require.True(t, ok, "got %T", out)
	assert.Error(t, tf.Err)
	assert.Zero(t, tf.Status)
}

func TestLogin_InvalidRequestSkipsNetwork(t *testing.T) {
	backend := newFakeBackend(t, http.StatusOK, `{"token":"t"}`)
	client, _ := newTestClient(t, backend.server.URL)

	out := client.Login(context.Background(), LoginRequest{})
	tf, ok := out.(*TransportFailure)
	require.True(t, ok)
	assert.ErrorIs(t, tf, ErrInvalidRequest)

	_, err := client.LoginAs(context.Background(), KindRider, session.Credentials{Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrMissingField)
	assert.Zero(t, backend.calls.Load())
}

func TestLogin_AbandonedAttemptStillCommits(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(`{"token":"late"}`))
	}))
	t.Cleanup(server.Close)

	client, store := newTestClient(t, server.URL)
	ctx, cancel := context.WithCancel(context.Background())

	req, err := NewLoginRequest(KindDriver, creds)
	require.NoError(t, err)

	result := make(chan Outcome, 1)
	go func() { result <- client.Login(ctx, req) }()

	cancel()
	out := <-result
	tf, ok := out.(*TransportFailure)
	require.True(t, ok, "got %T", out)
	assert.True(t, errors.Is(tf, context.Canceled))

	close(release)
	assert.Eventually(t, func() bool {
		return store.LoginStatus() == session.StatusLoggedInAsDriver
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "late", store.Token())
}

func TestLogin_ConcurrentLoginsLeaveConsistentSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/drivers/login" {
			_, _ = w.Write([]byte(`{"token":"driver-token"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"rider-token"}`))
	}))
	t.Cleanup(server.Close)

	client, store := newTestClient(t, server.URL)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kind := KindRider
			if i%2 == 0 {
				kind = KindDriver
			}
			req, err := NewLoginRequest(kind, creds)
			if err != nil {
				return
			}
			client.Login(context.Background(), req)
		}()
	}
	wg.Wait()

	cur := store.Current()
	switch cur.ActorType {
	case session.ActorRider:
		assert.Equal(t, "rider-token", cur.Token)
	case session.ActorDriver:
		assert.Equal(t, "driver-token", cur.Token)
	default:
		t.Fatalf("unexpected session %+v", cur)
	}
}

func TestLogout(t *testing.T) {
	backend := newFakeBackend(t, http.StatusOK, `{"token":"t"}`)
	client, store := newTestClient(t, backend.server.URL)

	require.IsType(t, &Success{}, login(t, client, KindRider))
	require.NoError(t, client.Logout(context.Background()))
	assert.Equal(t, session.StatusNotLoggedIn, store.LoginStatus())
}
