package service

import (
	"bytes"
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
	"taxi-client/internal/general/contracts"
	"taxi-client/internal/general/logger"
	"taxi-client/internal/ports"
)

const maxResponseBody = 1 << 20

var ErrInvalidRequest = errors.New("login request was not built with NewLoginRequest")

// Client performs logins against the backend and keeps the session store in step with them.
type Client struct {
	logger    *logger.Logger
	transport ports.Transport
	store     ports.SessionStore
	baseURL   *url.URL
	timeout   time.Duration
}

// NewClient builds a Client. timeout bounds a single login round trip; zero means no bound.
func NewClient(log *logger.Logger, transport ports.Transport, store ports.SessionStore, baseURL string, timeout time.Duration) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("authservice: invalid base url %q", baseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if transport == nil {
		transport = http.DefaultClient
	}

	return &Client{
		logger:    log,
		transport: transport,
		store:     store,
		baseURL:   base,
		timeout:   timeout,
	}, nil
}

// LoginAs validates creds for kind and logs in. The error is non-nil only when the
// request could not be built, in which case no network call was made.
func (c *Client) LoginAs(ctx context.Context, kind Kind, creds session.Credentials) (Outcome, error) {
	req, err := NewLoginRequest(kind, creds)
	if err != nil {
		return nil, err
	}
	return c.Login(ctx, req), nil
}

// Login sends req and classifies the answer. On success the token and actor type are
// stored as one unit before Login returns.
//
// Cancelling ctx stops the caller from waiting but not the attempt itself: a login the
// backend already accepted still reaches the session store.
func (c *Client) Login(ctx context.Context, req LoginRequest) Outcome {
	ctx = logger.WithNewRequestID(ctx)
	if !req.valid() {
		return &TransportFailure{Err: ErrInvalidRequest}
	}
	c.logger.Info(ctx, "login_started", "Logging in", map[string]any{"kind": string(req.kind)})

	work := context.WithoutCancel(ctx)
	cancel := func() {}
	if c.timeout > 0 {
		work, cancel = context.WithTimeout(work, c.timeout)
	}

	done := make(chan Outcome, 1)
	go func() {
		defer cancel()
		done <- c.login(work, req)
	}()

	select {
	case out := <-done:
		return out
	case <-ctx.Done():
		c.logger.Info(ctx, "login_abandoned", "Caller stopped waiting for login", map[string]any{
			"kind": string(req.kind),
		})
		return &TransportFailure{Err: ctx.Err()}
	}
}

func (c *Client) login(ctx context.Context, req LoginRequest) Outcome {
	v := variants[req.kind]
	details := map[string]any{"kind": string(req.kind), "endpoint": v.endpoint}

	status, body, err := c.post(ctx, v.endpoint, req.Body())
	if err != nil {
		c.logger.Error(ctx, "login_transport_failed", "Login request did not complete", err, details)
		return &TransportFailure{Err: err}
	}

	if status < 200 || status > 299 {
		out := classifyFailure(v, req.kind, status, body)
		c.logOutcome(ctx, out, details)
		return out
	}

	var resp contracts.LoginResponseBody
	if err := json.Unmarshal(body, &resp); err != nil {
		out := &TransportFailure{Status: status, Body: string(body), Err: fmt.Errorf("decode login response: %w", err)}
		c.logOutcome(ctx, out, details)
		return out
	}
	if strings.TrimSpace(resp.Token) == "" {
		out := &TransportFailure{Status: status, Body: string(body), Err: errors.New("login response has no token")}
		c.logOutcome(ctx, out, details)
		return out
	}

	var saved session.Session
	err = c.store.WithinTx(ctx, func(w ports.SessionWriter) error {
		rec := &recordingWriter{next: w}
		rec.SaveToken(resp.Token)
		if err := v.onSuccess(rec, resp); err != nil {
			return err
		}
		saved = rec.saved
		return nil
	})
	var failure *Failure
	switch {
	case errors.As(err, &failure):
		c.logOutcome(ctx, failure, details)
		return failure
	case err != nil:
		c.logger.Error(ctx, "login_persist_failed", "Login succeeded but the session could not be stored", err, details)
		return &TransportFailure{Status: status, Err: fmt.Errorf("store session: %w", err)}
	}

	out := &Success{Session: saved}
	c.logOutcome(ctx, out, details)
	return out
}

// Logout forgets the current session.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil {
		c.logger.Error(ctx, "logout_failed", "Failed to clear session", err, nil)
		return err
	}
	c.logger.Info(ctx, "logged_out", "Session cleared", nil)
	return nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) (int, []byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode login body: %w", err)
	}

	target := c.baseURL.ResolveReference(&url.URL{Path: endpoint})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(raw))
	if err != nil {
		return 0, nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.transport.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read login response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// classifyFailure maps a non-2xx answer onto the variant's domain codes. Anything the
// variant does not recognize stays a transport failure with the raw status and body.
func classifyFailure(v variant, kind Kind, status int, body []byte) Outcome {
	var eb contracts.ErrorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Code != "" {
		if fk, ok := v.codes[eb.Code]; ok {
			return &Failure{Kind: fk}
		}
	}

	if kind == KindUsers && status == http.StatusBadRequest {
		var problem contracts.ValidationProblem
		if err := json.Unmarshal(body, &problem); err == nil && (len(problem.Errors) > 0 || problem.Title != "") {
			return &TransportFailure{Status: status, Body: string(body), Problem: &problem}
		}
	}

	return &TransportFailure{Status: status, Body: string(body)}
}

func (c *Client) logOutcome(ctx context.Context, out Outcome, details map[string]any) {
	switch o := out.(type) {
	case *Success:
		details["actor_type"] = o.Session.ActorType.String()
		c.logger.Info(ctx, "login_succeeded", "Logged in", details)
	case *Failure:
		details["failure"] = string(o.Kind)
		c.logger.Info(ctx, "login_rejected", "Backend rejected login", details)
	case *TransportFailure:
		details["status"] = o.Status
		c.logger.Error(ctx, "login_transport_failed", "Login answer could not be used", o, details)
	}
}

// recordingWriter forwards staged writes and remembers them, so the outcome reports the
// session this attempt committed even if another login commits right after it.
type recordingWriter struct {
	next  ports.SessionWriter
	saved session.Session
}

func (r *recordingWriter) SaveToken(token string) {
	r.saved.Token = token
	r.next.SaveToken(token)
}

func (r *recordingWriter) SaveActorType(actor session.ActorType) {
	r.saved.ActorType = actor
	r.next.SaveActorType(actor)
}
