package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"taxi-client/internal/domain/session"
	"taxi-client/internal/general/jwt"
	"taxi-client/internal/general/logger"
	"taxi-client/internal/ports"
)

const maxBody = 1 << 20

var (
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrSessionExpired = errors.New("session token expired")
	ErrUnauthorized   = errors.New("backend rejected session token")
)

// StatusError is a non-2xx answer, kept whole for diagnostics.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP %d: %s", e.Status, strings.TrimSpace(e.Body))
}

// Is lets callers test a 404 against ports.ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ports.ErrNotFound && e.Status == http.StatusNotFound
}

// AuthorizedTransport attaches the stored session token to every request.
type AuthorizedTransport struct {
	logger *logger.Logger
	next   ports.Transport
	store  ports.SessionStore
	now    func() time.Time
}

var _ ports.Transport = (*AuthorizedTransport)(nil)

func NewAuthorizedTransport(log *logger.Logger, next ports.Transport, store ports.SessionStore) *AuthorizedTransport {
	if next == nil {
		next = http.DefaultClient
	}
	return &AuthorizedTransport{logger: log, next: next, store: store, now: time.Now}
}

// Do sends req with "Authorization: Bearer <token>". Nothing is sent without a complete
// session or with a token whose exp has passed; the latter, and a 401 answer, clear the store
// unless a newer session replaced the token in the meantime.
func (t *AuthorizedTransport) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if t.store.LoginStatus() == session.StatusNotLoggedIn {
		return nil, ErrNotLoggedIn
	}
	token := t.store.Token()

	if jwt.Expired(token, t.now()) {
		t.invalidate(ctx, token, "session_expired", "Stored token has expired")
		return nil, ErrSessionExpired
	}

	req = req.Clone(ctx)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := t.next.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		resp.Body.Close()
		t.invalidate(ctx, token, "session_unauthorized", "Backend rejected the stored token")
		return nil, ErrUnauthorized
	}
	return resp, nil
}

// invalidate clears the session only if it still holds token; a login committed while the
// request was in flight keeps its session.
func (t *AuthorizedTransport) invalidate(ctx context.Context, token, action, msg string) {
	cleared, err := t.store.ClearIfToken(ctx, token)
	if err != nil {
		t.logger.Error(ctx, "session_clear_failed", "Failed to clear invalid session", err, nil)
		return
	}
	if !cleared {
		t.logger.Info(ctx, "session_replaced", "Session changed while the request was in flight; keeping it", nil)
		return
	}
	t.logger.Info(ctx, action, msg, nil)
}

// Client issues JSON requests against the backend base URL.
type Client struct {
	transport ports.Transport
	baseURL   *url.URL
	timeout   time.Duration
}

func NewClient(transport ports.Transport, baseURL string, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("apiclient: invalid base url %q", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return &Client{transport: transport, baseURL: base, timeout: timeout}, nil
}

// GetJSON fetches path (relative to the base URL) and decodes a 2xx body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	target := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimPrefix(path, "/")})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if id := logger.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.transport.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
