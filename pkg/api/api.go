// Package api exposes the Ecofy back office over HTTP: device and
// telemetry endpoints, the container/site/pickup CRUD surface, the
// notification feeds and the reporting documents.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ecofy/backend/pkg/auth"
	"github.com/ecofy/backend/pkg/model"
	"github.com/ecofy/backend/pkg/persistence"
	"github.com/ecofy/backend/pkg/telemetry"
)

// API holds the handler dependencies.
type API struct {
	store  persistence.Store
	engine *telemetry.Engine
	log    zerolog.Logger

	// initialStatus is assigned to newly registered devices.
	initialStatus model.DeviceStatus
	now           func() time.Time
}

func NewAPI(store persistence.Store, engine *telemetry.Engine, log zerolog.Logger, initialStatus model.DeviceStatus) *API {
	return &API{
		store:         store,
		engine:        engine,
		log:           log.With().Str("component", "api").Logger(),
		initialStatus: initialStatus,
		now:           time.Now,
	}
}

// apiResponse is the uniform envelope every endpoint answers with.
type apiResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (a *API) sendJSON(w http.ResponseWriter, statusCode int, resp apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		a.log.Error().Err(err).Msg("failed to encode response")
	}
}

func (a *API) sendData(w http.ResponseWriter, statusCode int, data interface{}) {
	a.sendJSON(w, statusCode, apiResponse{Success: true, Data: data})
}

func (a *API) sendMessage(w http.ResponseWriter, statusCode int, message string) {
	a.sendJSON(w, statusCode, apiResponse{Success: true, Message: message})
}

func (a *API) sendErrorMessage(w http.ResponseWriter, statusCode int, message string) {
	a.sendJSON(w, statusCode, apiResponse{Success: false, Error: message})
}

// sendError maps store and auth errors to status codes. Wrapped
// sentinel errors keep their context in the response body; anything
// unmapped is a 500 with the detail kept out of the wire.
func (a *API) sendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		a.sendErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, persistence.ErrConflict):
		a.sendErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrForbidden):
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
	default:
		a.log.Error().Err(err).Msg("request failed")
		a.sendErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

// decode parses a JSON body, rejecting unknown fields.
func decode(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// idParam parses a numeric chi URL parameter.
func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("invalid " + name + " in URL path")
	}
	return id, nil
}

// parseID parses a numeric query parameter.
func parseID(raw string) (int64, error) {
	return strconv.ParseInt(raw, 10, 64)
}

// principal returns the request principal, anonymous when absent.
func principal(r *http.Request) (auth.Principal, bool) {
	return auth.FromContext(r.Context())
}

// requireStaff resolves the principal and rejects anonymous callers and
// roles outside admin/organization. Returns ok=false after writing the
// response.
func (a *API) requireStaff(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := principal(r)
	if !ok {
		a.sendErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return auth.Principal{}, false
	}
	if !p.IsStaff() {
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
		return auth.Principal{}, false
	}
	return p, true
}

// requireAdmin resolves the principal and rejects everyone but admins.
func (a *API) requireAdmin(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := principal(r)
	if !ok {
		a.sendErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return auth.Principal{}, false
	}
	if p.Role != auth.RoleAdmin {
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
		return auth.Principal{}, false
	}
	return p, true
}

// orgScope returns the organization filter for list endpoints: nil for
// admins (see everything), the caller's own ID for organizations.
func orgScope(p auth.Principal) *int64 {
	if p.Role == auth.RoleOrganization {
		id := p.ID
		return &id
	}
	return nil
}

// HealthCheck reports liveness.
func (a *API) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	a.sendData(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": a.now().UTC().Format(time.RFC3339),
	})
}
