package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"powerx.io/internal/audit"
	"powerx.io/internal/auth"
	"powerx.io/internal/hvac"
	"powerx.io/internal/locations"
	"powerx.io/internal/obs"
	"powerx.io/internal/tou"
)

// ReadyProbe checks dependencies needed to serve traffic.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Services are the domain components the HTTP layer fronts.
type Services struct {
	Locations  *locations.Service
	Schedules  *hvac.SchedulesService
	Rates      *tou.Service
	Admin      *auth.AdminService
	Authorizer *auth.Authorizer
	Grants     *auth.UserAccessGrantsHelper
	Catalog    auth.ScopeCatalog
}

// Options tune the HTTP layer.
type Options struct {
	Version       string
	RateBurst     int
	RatePerSecond int
}

// API is the HTTP layer.
type API struct {
	svc        Services
	readyProbe ReadyProbe
	version    string
	limiter    *RateLimiter
	router     *mux.Router
}

func New(svc Services, rp ReadyProbe, opts Options) (*API, error) {
	switch {
	case svc.Locations == nil, svc.Schedules == nil, svc.Rates == nil:
		return nil, errors.New("httpapi: domain services are required")
	case svc.Admin == nil, svc.Authorizer == nil, svc.Grants == nil:
		return nil, errors.New("httpapi: access services are required")
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 50
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 25
	}
	a := &API{
		svc:        svc,
		readyProbe: rp,
		version:    opts.Version,
		limiter:    NewRateLimiter(opts.RateBurst, opts.RatePerSecond),
	}
	a.router = a.routes()
	return a, nil
}

func (a *API) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(obs.Instrument)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.HandleFunc("/healthz", a.Healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.Ready).Methods(http.MethodGet)
	r.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/info", a.Info).Methods(http.MethodGet)

	v1.HandleFunc("/access-scopes", a.handleListAccessScopes).Methods(http.MethodGet)
	v1.HandleFunc("/me/access-scopes", a.handleMyAccessScopes).Methods(http.MethodGet)
	v1.HandleFunc("/access-grants/locations", a.handleCreateLocationGrant).Methods(http.MethodPost)
	v1.HandleFunc("/access-grants/locations", a.handleDeleteLocationGrant).Methods(http.MethodDelete)
	v1.HandleFunc("/access-grants/locations", a.handleListLocationGrants).Methods(http.MethodGet)
	v1.HandleFunc("/access-grants/organizations", a.handleCreateOrganizationGrant).Methods(http.MethodPost)
	v1.HandleFunc("/access-grants/organizations", a.handleDeleteOrganizationGrant).Methods(http.MethodDelete)
	v1.HandleFunc("/access-grants/organizations", a.handleListOrganizationGrants).Methods(http.MethodGet)
	v1.HandleFunc("/access-roles", a.handleCreateAccessRole).Methods(http.MethodPost)
	v1.HandleFunc("/users/{id}/access-roles", a.handleAssignAccessRole).Methods(http.MethodPost)
	v1.HandleFunc("/users/{id}/access-scopes", a.handleAddUserAccessScopes).Methods(http.MethodPost)
	v1.HandleFunc("/api-keys", a.handleCreateAPIKey).Methods(http.MethodPost)
	v1.HandleFunc("/api-keys/{id}", a.handleRevokeAPIKey).Methods(http.MethodDelete)

	v1.HandleFunc("/organizations", a.handleCreateOrganization).Methods(http.MethodPost)
	v1.HandleFunc("/organizations/{id}", a.handleGetOrganization).Methods(http.MethodGet)
	v1.HandleFunc("/locations", a.handleCreateLocation).Methods(http.MethodPost)
	v1.HandleFunc("/locations/{id}", a.handleGetLocation).Methods(http.MethodGet)
	v1.HandleFunc("/locations/{id}", a.handleUpdateLocation).Methods(http.MethodPatch)

	v1.HandleFunc("/hvac-schedules", a.handleCreateSchedule).Methods(http.MethodPost)
	v1.HandleFunc("/hvac-schedules/{id}", a.handleGetSchedule).Methods(http.MethodGet)
	v1.HandleFunc("/control-zone-hvac-widgets", a.handleCreateWidget).Methods(http.MethodPost)
	v1.HandleFunc("/control-zone-hvac-widgets/{id}", a.handleGetWidget).Methods(http.MethodGet)
	v1.HandleFunc("/control-zone-hvac-widgets/{id}/schedule-events/current", a.handleCurrentEvent).Methods(http.MethodGet)
	v1.HandleFunc("/control-zone-hvac-widgets/{id}/schedule-events/next", a.handleNextEvent).Methods(http.MethodGet)

	v1.HandleFunc("/locations/{id}/time-of-use-rates", a.handleCreateRate).Methods(http.MethodPost)
	v1.HandleFunc("/locations/{id}/time-of-use-rates", a.handleListRates).Methods(http.MethodGet)
	v1.HandleFunc("/time-of-use-rates/{id}", a.handleGetRate).Methods(http.MethodGet)
	v1.HandleFunc("/time-of-use-rates/{id}", a.handleUpdateRate).Methods(http.MethodPatch)
	v1.HandleFunc("/time-of-use-rates/{id}", a.handleDeleteRate).Methods(http.MethodDelete)
	return r
}

// Handler returns the router wrapped in the cross-cutting middleware chain.
func (a *API) Handler() http.Handler {
	return RequestID(LoggingJSON(SecurityHeaders(CORS(a.limiter.Middleware(a.router)))))
}

// Close stops background work owned by the API.
func (a *API) Close() {
	a.limiter.Stop()
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "powerx-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.readyProbe.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"detail": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "powerx-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// audit records a state change made by the caller.
func (a *API) audit(ctx context.Context, p principal, event, resourceType, resourceID string, fields map[string]any) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["resource_type"] = resourceType
	fields["resource_id"] = resourceID
	if err := audit.LogEvent(auth.ContextWithCredential(ctx, p.cred), event, fields); err != nil {
		obs.Logger().WithError(err).Warn("audit log failed")
	}
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, detail string) {
	payload := map[string]any{
		"detail": detail,
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// handleError maps domain errors to status codes. Unknown errors are logged and hidden.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidToken):
		w.Header().Set("WWW-Authenticate", `Bearer realm="powerx"`)
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, locations.ErrNotFound),
		errors.Is(err, hvac.ErrNotFound), errors.Is(err, tou.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrConflict), errors.Is(err, locations.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, tou.ErrConflict),
		errors.Is(err, auth.ErrInvalidInput), errors.Is(err, locations.ErrInvalidInput),
		errors.Is(err, hvac.ErrInvalidInput), errors.Is(err, tou.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		obs.Logger().WithFields(logrus.Fields{
			"request_id": audit.RequestIDFromContext(r.Context()),
			"path":       r.URL.Path,
		}).WithError(err).Error("request failed")
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
