package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"taxi-client/internal/domain/session"
	"taxi-client/internal/domain/taxirequest"
	"taxi-client/internal/general/contracts"
	"taxi-client/internal/general/jwt"
	"taxi-client/internal/general/logger"
	"taxi-client/internal/ports"
	"taxi-client/internal/software/stubapi/service"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

const defaultRequestTTL = 5 * time.Minute

// Handler serves the development backend over HTTP.
type Handler struct {
	logger  *logger.Logger
	backend *service.Backend
	tokens  *jwt.Manager
}

func NewHandler(log *logger.Logger, backend *service.Backend, tokens *jwt.Manager) *Handler {
	return &Handler{logger: log, backend: backend, tokens: tokens}
}

// Routes builds the chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/passengers/login", h.loginAs(service.RolePassenger))
		r.Post("/drivers/login", h.loginAs(service.RoleDriver))
		r.Post("/users/login", h.usersLogin)

		r.Group(func(r chi.Router) {
			r.Use(jwt.AuthMiddleware(h.tokens))
			r.Get("/taxiRequests/{id}", h.getTaxiRequest)
			r.Get("/trips/{id}", h.getTrip)
			r.Post("/taxiRequests/{id}/status", h.changeStatus)
		})
		r.Group(func(r chi.Router) {
			r.Use(jwt.AuthMiddleware(h.tokens, session.ActorRider))
			r.Post("/taxiRequests", h.createTaxiRequest)
		})
	})
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ctx := logger.WithRequestID(r.Context(), chiMiddleware.GetReqID(r.Context()))
		next.ServeHTTP(ww, r.WithContext(ctx))
		h.logger.Debug(ctx, "stub_http_request", r.Method+" "+r.URL.Path, map[string]any{
			"status":      ww.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

func (h *Handler) loginAs(role service.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in contracts.LoginRequestBody
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil || missingFields(in) != nil {
			writeJSON(w, http.StatusBadRequest, contracts.ErrorBody{Code: "invalid_request", Message: "email, password and pushNotificationToken are required"})
			return
		}

		res, err := h.backend.Login(r.Context(), in.Email, in.Password, in.PushNotificationToken, role)
		if err != nil {
			writeLoginError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, contracts.LoginResponseBody{Token: res.Token, UserID: res.Account.ID})
	}
}

// usersLogin is the generic endpoint: it reports the account type and answers malformed
// bodies with a validation problem.
func (h *Handler) usersLogin(w http.ResponseWriter, r *http.Request) {
	var in contracts.LoginRequestBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeProblem(w, map[string][]string{"body": {"A non-empty JSON body is required."}})
		return
	}
	if problems := missingFields(in); problems != nil {
		writeProblem(w, problems)
		return
	}

	res, err := h.backend.Login(r.Context(), in.Email, in.Password, in.PushNotificationToken, "")
	if err != nil {
		writeLoginError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contracts.LoginResponseBody{
		Token:      res.Token,
		UserID:     res.Account.ID,
		ClientType: string(res.Account.Role),
	})
}

func (h *Handler) createTaxiRequest(w http.ResponseWriter, r *http.Request) {
	claims := jwt.RequireClaims(r)
	tr, err := h.backend.CreateTaxiRequest(r.Context(), claims.Subject, defaultRequestTTL)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, contracts.ErrorBody{Code: "invalid_request", Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, contracts.NewTaxiRequestDTO(tr))
}

func (h *Handler) getTaxiRequest(w http.ResponseWriter, r *http.Request) {
	tr, err := h.backend.TaxiRequest(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, contracts.ErrorBody{Code: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, contracts.NewTaxiRequestDTO(tr))
}

func (h *Handler) getTrip(w http.ResponseWriter, r *http.Request) {
	t, err := h.backend.Trip(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, contracts.ErrorBody{Code: "not_found"})
		return
	}
	writeJSON(w, http.StatusOK, contracts.NewTripDTO(t))
}

type statusChangeBody struct {
	Status     string  `json:"status"`
	DriverID   string  `json:"driverId,omitempty"`
	FareAmount float64 `json:"fareAmount,omitempty"`
	Rating     *int    `json:"rating,omitempty"`
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request) {
	var in statusChangeBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, contracts.ErrorBody{Code: "invalid_request", Message: "bad json"})
		return
	}
	status, err := contracts.TaxiRequestStatusFromWire(in.Status)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, contracts.ErrorBody{Code: "invalid_status", Message: err.Error()})
		return
	}

	driverID := in.DriverID
	if claims := jwt.RequireClaims(r); driverID == "" && claims != nil && claims.ActorType == session.ActorDriver {
		driverID = claims.Subject
	}

	tr, err := h.backend.ChangeStatus(r.Context(), chi.URLParam(r, "id"), service.StatusChange{
		Status:     status,
		DriverID:   driverID,
		FareAmount: in.FareAmount,
		Rating:     in.Rating,
	})
	switch {
	case errors.Is(err, ports.ErrNotFound):
		writeJSON(w, http.StatusNotFound, contracts.ErrorBody{Code: "not_found"})
	case errors.Is(err, taxirequest.ErrExpired):
		writeJSON(w, http.StatusConflict, contracts.ErrorBody{Code: "expired", Message: err.Error()})
	case err != nil:
		writeJSON(w, http.StatusConflict, contracts.ErrorBody{Code: "invalid_transition", Message: err.Error()})
	default:
		writeJSON(w, http.StatusOK, contracts.NewTaxiRequestDTO(tr))
	}
}

func writeLoginError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrAccountNotFound):
		writeJSON(w, http.StatusBadRequest, contracts.ErrorBody{Code: contracts.CodeAccountDoesNotExist})
	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(w, http.StatusBadRequest, contracts.ErrorBody{Code: contracts.CodeInvalidCredentials})
	case errors.Is(err, service.ErrUnsupportedClient):
		writeJSON(w, http.StatusBadRequest, contracts.ErrorBody{Code: contracts.CodeUnsupportedClient})
	default:
		writeJSON(w, http.StatusInternalServerError, contracts.ErrorBody{Code: "internal", Message: err.Error()})
	}
}

func missingFields(in contracts.LoginRequestBody) map[string][]string {
	problems := map[string][]string{}
	if strings.TrimSpace(in.Email) == "" {
		problems["Email"] = []string{"The Email field is required."}
	}
	if in.Password == "" {
		problems["Password"] = []string{"The Password field is required."}
	}
	if strings.TrimSpace(in.PushNotificationToken) == "" {
		problems["PushNotificationToken"] = []string{"The PushNotificationToken field is required."}
	}
	if len(problems) == 0 {
		return nil
	}
	return problems
}

func writeProblem(w http.ResponseWriter, errs map[string][]string) {
	writeJSON(w, http.StatusBadRequest, contracts.ValidationProblem{
		Type:   "https://tools.ietf.org/html/rfc7231#section-6.5.1",
		Title:  "One or more validation errors occurred.",
		Status: http.StatusBadRequest,
		Errors: errs,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
