package websocket

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"sync"
	"time"

	"taxi-client/internal/domain/session"
	"taxi-client/internal/general/contracts"
	"taxi-client/internal/general/jwt"
	"taxi-client/internal/general/logger"
	"taxi-client/internal/ports"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 5 * time.Second
	wsCloseAckWindow = 2 * time.Second
	ctrlTimeout      = 5 * time.Second
	authTimeout      = 10 * time.Second
	readIdleTimeout  = 60 * time.Second
	pingInterval     = 30 * time.Second
)

var ErrTokenMismatch = errors.New("token does not match the current session")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// SessionSource exposes the current session. *sessionstore.Store satisfies it.
type SessionSource interface {
	Current() session.Session
}

// Bridge pushes taxi request snapshots to local websocket clients. A client must
// authenticate with the token of the current session before it receives anything.
type Bridge struct {
	logger   *logger.Logger
	sessions SessionSource

	mu      sync.RWMutex
	clients map[*websocket.Conn]*client
}

// client is one authenticated connection and the session token it proved.
type client struct {
	conn  *websocket.Conn
	actor session.ActorType
	token string
	mu    sync.Mutex // gorilla connections allow one writer at a time
}

var _ ports.TaxiRequestListener = (*Bridge)(nil)

func NewBridge(log *logger.Logger, sessions SessionSource) *Bridge {
	return &Bridge{
		logger:   log,
		sessions: sessions,
		clients:  make(map[*websocket.Conn]*client),
	}
}

// Clients returns the number of authenticated connections.
func (b *Bridge) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Connect upgrades the request, authenticates the first frame and keeps the connection
// open until the client leaves. Inbound frames after auth are ignored.
func (b *Bridge) Connect(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithNewRequestID(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Error(ctx, "websocket_upgrade_failed", "Failed to upgrade to WebSocket", err, nil)
		return
	}
	defer conn.Close()
	cl := &client{conn: conn}

	conn.SetReadLimit(1 << 16)
	_ = conn.SetReadDeadline(time.Now().Add(authTimeout))

	mt, first, err := conn.ReadMessage()
	if err != nil {
		b.logger.Error(ctx, "ws_auth_read_failed", "Client sent no auth message", err, nil)
		_ = cl.writeJSON(contracts.WSControl{Type: "auth_error", Message: "authentication timeout"})
		return
	}
	if mt != websocket.TextMessage {
		_ = cl.writeJSON(contracts.WSControl{Type: "auth_error", Message: "auth message must be text"})
		return
	}

	res, err := jwt.ValidateWSAuth(first, b.checkToken)
	if err != nil {
		b.logger.Info(ctx, "ws_auth_failed", "Rejected websocket client", map[string]any{"reason": err.Error()})
		_ = cl.writeJSON(contracts.WSControl{Type: "auth_error", Message: "authentication failed"})
		return
	}
	cl.actor = res.Claims.ActorType
	cl.token = res.Raw

	if err := cl.writeJSON(contracts.WSControl{Type: "auth_ok"}); err != nil {
		return
	}

	b.mu.Lock()
	b.clients[conn] = cl
	b.mu.Unlock()
	defer b.remove(conn)

	b.logger.Info(ctx, "ws_connected", "Websocket client connected", map[string]any{"actor_type": cl.actor.String()})

	_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
	})

	done := make(chan struct{})
	defer close(done)
	go b.pingLoop(ctx, cl, done)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				b.logger.Error(ctx, "ws_unexpected_close", "Websocket client closed unexpectedly", err, nil)
			} else {
				b.logger.Info(ctx, "ws_connection_closed", "Websocket client left", nil)
			}
			cl.writeClose(websocket.CloseNormalClosure, "bye")
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readIdleTimeout))
	}
}

// OnTaxiRequestUpdate broadcasts snap to every client whose token is still the current
// session's. Clients left over from a cleared or replaced session are disconnected.
func (b *Bridge) OnTaxiRequestUpdate(ctx context.Context, snap ports.TaxiRequestSnapshot) {
	if snap.Request == nil {
		return
	}
	msg := NewUpdateMessage(ctx, snap)
	cur := b.sessions.Current()

	b.mu.RLock()
	clients := make([]*client, 0, len(b.clients))
	for _, cl := range b.clients {
		clients = append(clients, cl)
	}
	b.mu.RUnlock()

	for _, cl := range clients {
		if !cl.holds(cur) {
			b.logger.Info(ctx, "ws_session_ended", "Dropping websocket client of an ended session",
				map[string]any{"actor_type": cl.actor.String()})
			_ = cl.writeJSON(contracts.WSControl{Type: "auth_error", Message: "session ended"})
			b.remove(cl.conn)
			_ = cl.conn.Close()
			continue
		}
		if err := cl.writeJSON(msg); err != nil {
			b.logger.Error(ctx, "ws_send_failed", "Failed to push update to websocket client", err, nil)
			_ = cl.conn.Close()
		}
	}
}

func (b *Bridge) remove(conn *websocket.Conn) {
	b.mu.Lock()
	delete(b.clients, conn)
	b.mu.Unlock()
}

// NewUpdateMessage renders a snapshot the way websocket clients receive it. snap.Request must be set.
func NewUpdateMessage(ctx context.Context, snap ports.TaxiRequestSnapshot) contracts.WSTaxiRequestUpdate {
	msg := contracts.WSTaxiRequestUpdate{
		Type:            "taxi_request_update",
		TaxiRequest:     contracts.NewTaxiRequestDTO(snap.Request),
		EffectiveStatus: contracts.TaxiRequestStatusToWire(snap.Effective),
		Expired:         snap.Request.HasExpired(snap.FetchedAt),
		FetchedAt:       snap.FetchedAt,
		Envelope: contracts.Envelope{
			CorrelationID: logger.RequestID(ctx),
			Producer:      "taxi-agent",
			SentAt:        time.Now().UTC(),
		},
	}
	if snap.Trip != nil {
		dto := contracts.NewTripDTO(snap.Trip)
		msg.Trip = &dto
	}
	return msg
}

// checkToken accepts only the token of the current, complete session.
func (b *Bridge) checkToken(raw string) (*jwt.Claims, error) {
	cur := b.sessions.Current()
	if cur.Status() == session.StatusNotLoggedIn {
		return nil, ErrTokenMismatch
	}
	if subtle.ConstantTimeCompare([]byte(raw), []byte(cur.Token)) != 1 {
		return nil, ErrTokenMismatch
	}
	if claims, err := jwt.Inspect(raw); err == nil {
		claims.ActorType = cur.ActorType
		return claims, nil
	}
	return &jwt.Claims{ActorType: cur.ActorType}, nil
}

func (b *Bridge) pingLoop(ctx context.Context, cl *client, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := cl.ping(); err != nil {
				// closing unblocks the read loop
				_ = cl.conn.Close()
				b.logger.Error(ctx, "ws_ping_failed", "Failed to send ping", err, nil)
				return
			}
		}
	}
}
