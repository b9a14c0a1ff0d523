package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"taxi-client/internal/domain/session"
	"taxi-client/internal/domain/taxirequest"
	"taxi-client/internal/general/contracts"
	"taxi-client/internal/general/logger"
	"taxi-client/internal/ports"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedSession session.Session

func (f fixedSession) Current() session.Session { return session.Session(f) }

type switchableSession struct {
	mu  sync.Mutex
	cur session.Session
}

func (s *switchableSession) Current() session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur
}

func (s *switchableSession) set(next session.Session) {
	s.mu.Lock()
	s.cur = next
	s.mu.Unlock()
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readControl(t *testing.T, conn *websocket.Conn) contracts.WSControl {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg contracts.WSControl
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestBridge_RejectsWrongToken(t *testing.T) {
	bridge := NewBridge(logger.Discard(), fixedSession{Token: "right", ActorType: session.ActorRider})
	srv := httptest.NewServer(http.HandlerFunc(bridge.Connect))
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(contracts.WSAuthMessage{Type: "auth", Token: "Bearer wrong"}))
	assert.Equal(t, "auth_error", readControl(t, conn).Type)
	assert.Zero(t, bridge.Clients())
}

func TestBridge_RejectsWhenLoggedOut(t *testing.T) {
	bridge := NewBridge(logger.Discard(), fixedSession{Token: "half"})
	srv := httptest.NewServer(http.HandlerFunc(bridge.Connect))
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(contracts.WSAuthMessage{Type: "auth", Token: "Bearer half"}))
	assert.Equal(t, "auth_error", readControl(t, conn).Type)
}

func TestBridge_BroadcastsUpdates(t *testing.T) {
	bridge := NewBridge(logger.Discard(), fixedSession{Token: "tok", ActorType: session.ActorDriver})
	srv := httptest.NewServer(http.HandlerFunc(bridge.Connect))
	defer srv.Close()

	conn := dial(t, srv)
	require.NoError(t, conn.WriteJSON(contracts.WSAuthMessage{Type: "auth", Token: "Bearer tok"}))
	require.Equal(t, "auth_ok", readControl(t, conn).Type)

	require.Eventually(t, func() bool { return bridge.Clients() == 1 }, time.Second, 5*time.Millisecond)

	now := time.Now().UTC()
	tr := &taxirequest.TaxiRequest{
		ID:             "tr-1",
		RiderID:        "r-1",
		Status:         taxirequest.StatusWaitingAcceptance,
		ExpirationDate: now.Add(-time.Minute),
	}
	bridge.OnTaxiRequestUpdate(context.Background(), ports.TaxiRequestSnapshot{
		Request:   tr,
		Effective: tr.Effective(now),
		FetchedAt: now,
	})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var update contracts.WSTaxiRequestUpdate
	require.NoError(t, json.Unmarshal(raw, &update))
	assert.Equal(t, "taxi_request_update", update.Type)
	assert.Equal(t, "tr-1", update.TaxiRequest.ID)
	assert.Equal(t, "waitingAcceptance", update.TaxiRequest.Status)
	assert.Equal(t, "cancelled", update.EffectiveStatus)
	assert.True(t, update.Expired)
	assert.Nil(t, update.Trip)

	conn.Close()
	assert.Eventually(t, func() bool { return bridge.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestBridge_DropsClientsOfEndedSession(t *testing.T) {
	tests := []struct {
		name string
		next session.Session
	}{
		{"logged out", session.Session{}},
		{"replaced by another login", session.Session{Token: "other", ActorType: session.ActorDriver}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &switchableSession{cur: session.Session{Token: "tok", ActorType: session.ActorRider}}
			bridge := NewBridge(logger.Discard(), sessions)
			srv := httptest.NewServer(http.HandlerFunc(bridge.Connect))
			defer srv.Close()

			conn := dial(t, srv)
			require.NoError(t, conn.WriteJSON(contracts.WSAuthMessage{Type: "auth", Token: "Bearer tok"}))
			require.Equal(t, "auth_ok", readControl(t, conn).Type)
			require.Eventually(t, func() bool { return bridge.Clients() == 1 }, time.Second, 5*time.Millisecond)

			sessions.set(tt.next)

			now := time.Now().UTC()
			bridge.OnTaxiRequestUpdate(context.Background(), ports.TaxiRequestSnapshot{
				Request: &taxirequest.TaxiRequest{
					ID:             "tr-1",
					RiderID:        "r-1",
					Status:         taxirequest.StatusAccepted,
					ExpirationDate: now.Add(time.Hour),
				},
				Effective: taxirequest.StatusAccepted,
				FetchedAt: now,
			})

			ctrl := readControl(t, conn)
			assert.Equal(t, "auth_error", ctrl.Type)
			assert.Equal(t, "session ended", ctrl.Message)
			assert.Zero(t, bridge.Clients())

			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			_, _, err := conn.ReadMessage()
			assert.Error(t, err)
		})
	}
}
