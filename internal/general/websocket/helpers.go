package websocket

import (
	"crypto/subtle"
	"encoding/json"
	"time"

	"taxi-client/internal/domain/session"

	"github.com/gorilla/websocket"
)

// holds reports whether cur is still the session this client authenticated with.
func (c *client) holds(cur session.Session) bool {
	if cur.Status() == session.StatusNotLoggedIn {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.token), []byte(cur.Token)) == 1
}

func (c *client) writeJSON(v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctrlTimeout))
}

func (c *client) writeClose(code int, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason),
		time.Now().Add(wsCloseAckWindow))
}
