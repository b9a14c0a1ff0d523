package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"taxi-client/internal/domain/session"
	"taxi-client/internal/general/logger"
	"taxi-client/internal/general/websocket"
	"taxi-client/internal/ports"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Snapshots is the part of the tracker the local API needs.
type Snapshots interface {
	Current(ctx context.Context, id string) (ports.TaxiRequestSnapshot, error)
	Refresh(ctx context.Context, id string) (ports.TaxiRequestSnapshot, error)
}

// Sockets accepts websocket upgrades.
type Sockets interface {
	Connect(w http.ResponseWriter, r *http.Request)
	Clients() int
}

// StatusSource reports the login status of the agent's session.
type StatusSource interface {
	LoginStatus() session.LoginStatus
}

// Handler serves the agent's local HTTP surface.
type Handler struct {
	logger    *logger.Logger
	snapshots Snapshots
	sockets   Sockets
	status    StatusSource
}

func NewHandler(log *logger.Logger, snapshots Snapshots, sockets Sockets, status StatusSource) *Handler {
	return &Handler{logger: log, snapshots: snapshots, sockets: sockets, status: status}
}

// Routes builds the chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)

	r.Get("/health", h.health)
	r.Get("/ws/taxi-requests", h.sockets.Connect)

	r.Group(func(r chi.Router) {
		r.Use(chiMiddleware.RequestID)
		r.Use(chiMiddleware.Timeout(15 * time.Second))
		r.Get("/taxi-requests/{id}", h.current)
		r.Post("/taxi-requests/{id}/refresh", h.refresh)
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"login_status": h.status.LoginStatus().String(),
		"ws_clients":   h.sockets.Clients(),
	})
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithRequestID(r.Context(), chiMiddleware.GetReqID(r.Context()))
	snap, err := h.snapshots.Current(ctx, chi.URLParam(r, "id"))
	h.writeSnapshot(ctx, w, snap, err)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithRequestID(r.Context(), chiMiddleware.GetReqID(r.Context()))
	snap, err := h.snapshots.Refresh(ctx, chi.URLParam(r, "id"))
	h.writeSnapshot(ctx, w, snap, err)
}

func (h *Handler) writeSnapshot(ctx context.Context, w http.ResponseWriter, snap ports.TaxiRequestSnapshot, err error) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "taxi request not tracked"})
	case err != nil:
		h.logger.Error(ctx, "snapshot_request_failed", "Failed to serve taxi request snapshot", err, nil)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, websocket.NewUpdateMessage(ctx, snap))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
