package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ecofy/backend/pkg/model"
)

type createPickupRequest struct {
	ScheduledTime time.Time `json:"scheduledTime"`
	SiteID        int64     `json:"containerSiteId"`
	VehicleID     *int64    `json:"vehicleId,omitempty"`
}

// CreatePickup handles POST /pickups. Scheduling a pickup broadcasts a
// waste_collection notification to every user in the site's city.
func (a *API) CreatePickup(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	var req createPickupRequest
	if err := decode(r, &req); err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if req.SiteID == 0 {
		a.sendErrorMessage(w, http.StatusBadRequest, "missing required field: containerSiteId")
		return
	}
	if req.ScheduledTime.IsZero() {
		a.sendErrorMessage(w, http.StatusBadRequest, "missing required field: scheduledTime")
		return
	}

	site, err := a.store.FindSiteByID(r.Context(), req.SiteID)
	if err != nil {
		a.sendError(w, err)
		return
	}
	if !p.OwnsOrganization(site.OrganizationID) {
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
		return
	}

	pickup := &model.Pickup{
		ScheduledTime: req.ScheduledTime,
		SiteID:        req.SiteID,
		VehicleID:     req.VehicleID,
	}
	if err := a.store.CreatePickup(r.Context(), pickup); err != nil {
		a.sendError(w, err)
		return
	}

	message := fmt.Sprintf("waste collection scheduled for %s", req.ScheduledTime.UTC().Format("2006-01-02 15:04"))
	if err := a.broadcastToCity(r, site, model.MessageWasteCollection, message); err != nil {
		a.log.Error().Err(err).Int64("pickup_id", pickup.ID).Msg("pickup notification fan-out failed")
	}

	a.sendData(w, http.StatusCreated, pickup)
}

// ListPickups handles GET /pickups.
func (a *API) ListPickups(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	pickups, err := a.store.ListPickups(r.Context(), orgScope(p))
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, pickups)
}

// ownsPickup resolves a pickup and checks site ownership.
func (a *API) ownsPickup(r *http.Request, w http.ResponseWriter, pickupID int64) (*model.Pickup, bool) {
	p, ok := principal(r)
	if !ok {
		a.sendErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}

	pickup, err := a.store.FindPickupByID(r.Context(), pickupID)
	if err != nil {
		a.sendError(w, err)
		return nil, false
	}
	site, err := a.store.FindSiteByID(r.Context(), pickup.SiteID)
	if err != nil {
		a.sendError(w, err)
		return nil, false
	}
	if !p.OwnsOrganization(site.OrganizationID) {
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
		return nil, false
	}
	return pickup, true
}

type assignVehicleRequest struct {
	VehicleID int64 `json:"vehicleId"`
}

// AssignVehicle handles PUT /pickups/{pickupId}/vehicle.
func (a *API) AssignVehicle(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireStaff(w, r); !ok {
		return
	}

	id, err := idParam(r, "pickupId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	pickup, ok := a.ownsPickup(r, w, id)
	if !ok {
		return
	}

	var req assignVehicleRequest
	if err := decode(r, &req); err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := a.store.AssignVehicle(r.Context(), pickup.ID, req.VehicleID); err != nil {
		a.sendError(w, err)
		return
	}
	a.sendMessage(w, http.StatusOK, "vehicle assigned")
}

// CompletePickup handles POST /pickups/{pickupId}/complete. Completion
// stamps the time and resets every container at the site in the same
// transaction.
func (a *API) CompletePickup(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireStaff(w, r); !ok {
		return
	}

	id, err := idParam(r, "pickupId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	pickup, ok := a.ownsPickup(r, w, id)
	if !ok {
		return
	}
	if pickup.CompletedTime != nil {
		a.sendErrorMessage(w, http.StatusConflict, "pickup already completed")
		return
	}

	if err := a.store.CompletePickup(r.Context(), pickup.ID, a.now().UTC()); err != nil {
		a.sendError(w, err)
		return
	}

	a.log.Info().Int64("pickup_id", pickup.ID).Int64("site_id", pickup.SiteID).Msg("pickup completed")
	a.sendMessage(w, http.StatusOK, "pickup completed")
}

// DeletePickup handles DELETE /pickups/{pickupId}.
func (a *API) DeletePickup(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireStaff(w, r); !ok {
		return
	}

	id, err := idParam(r, "pickupId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := a.ownsPickup(r, w, id); !ok {
		return
	}

	if err := a.store.DeletePickup(r.Context(), id); err != nil {
		a.sendError(w, err)
		return
	}
	a.sendMessage(w, http.StatusOK, "pickup deleted")
}

// PickupStatistics handles GET /pickups/statistics?from=...&to=...
// with RFC 3339 bounds, both optional.
func (a *API) PickupStatistics(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	var from, to *time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			a.sendErrorMessage(w, http.StatusBadRequest, "invalid from parameter: "+err.Error())
			return
		}
		from = &t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			a.sendErrorMessage(w, http.StatusBadRequest, "invalid to parameter: "+err.Error())
			return
		}
		to = &t
	}

	stats, err := a.store.PickupStatistics(r.Context(), orgScope(p), from, to)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, stats)
}

type createVehicleRequest struct {
	Name           string `json:"vehicleName"`
	NumberPlate    string `json:"numberPlate"`
	OrganizationID int64  `json:"organizationId"`
}

// CreateVehicle handles POST /vehicles.
func (a *API) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	var req createVehicleRequest
	if err := decode(r, &req); err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if req.NumberPlate == "" {
		a.sendErrorMessage(w, http.StatusBadRequest, "missing required field: numberPlate")
		return
	}
	if !p.OwnsOrganization(req.OrganizationID) {
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
		return
	}

	v := &model.Vehicle{
		Name:           req.Name,
		NumberPlate:    req.NumberPlate,
		OrganizationID: req.OrganizationID,
	}
	if err := a.store.CreateVehicle(r.Context(), v); err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusCreated, v)
}

// ListVehicles handles GET /vehicles.
func (a *API) ListVehicles(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	vehicles, err := a.store.ListVehicles(r.Context(), orgScope(p))
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, vehicles)
}

// DeleteVehicle handles DELETE /vehicles/{vehicleId}.
func (a *API) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	id, err := idParam(r, "vehicleId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	v, err := a.store.FindVehicleByID(r.Context(), id)
	if err != nil {
		a.sendError(w, err)
		return
	}
	if !p.OwnsOrganization(v.OrganizationID) {
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
		return
	}

	if err := a.store.DeleteVehicle(r.Context(), id); err != nil {
		a.sendError(w, err)
		return
	}
	a.sendMessage(w, http.StatusOK, "vehicle deleted")
}
