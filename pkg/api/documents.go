package api

import (
	"net/http"
	"time"

	"github.com/ecofy/backend/pkg/auth"
	"github.com/ecofy/backend/pkg/model"
	"github.com/ecofy/backend/pkg/reporting"
)

// RouteSheet handles GET /documents/route-sheet?vehicleId=N&date=YYYY-MM-DD.
func (a *API) RouteSheet(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	vehicleID, err := parseID(query.Get("vehicleId"))
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, "invalid vehicleId parameter")
		return
	}
	day, err := time.Parse("2006-01-02", query.Get("date"))
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, "invalid date parameter, expected YYYY-MM-DD")
		return
	}

	vehicle, err := a.store.FindVehicleByID(r.Context(), vehicleID)
	if err != nil {
		a.sendError(w, err)
		return
	}
	if !p.OwnsOrganization(vehicle.OrganizationID) {
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
		return
	}

	orgID := vehicle.OrganizationID
	pickups, err := a.store.ListPickups(r.Context(), &orgID)
	if err != nil {
		a.sendError(w, err)
		return
	}
	siteList, err := a.store.ListSites(r.Context(), &orgID)
	if err != nil {
		a.sendError(w, err)
		return
	}
	sites := make(map[int64]*model.ContainerSite, len(siteList))
	for _, s := range siteList {
		sites[s.ID] = s
	}

	a.sendData(w, http.StatusOK, reporting.BuildRouteSheet(vehicle, day, pickups, sites))
}

// WasteTransferAct handles GET /documents/waste-transfer-act/{requestId}.
// Available to the receiving organization, the transferring client and
// admins.
func (a *API) WasteTransferAct(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		a.sendErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := idParam(r, "requestId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	dr, err := a.store.FindDisposalRequestByID(r.Context(), id)
	if err != nil {
		a.sendError(w, err)
		return
	}

	allowed := p.Role == auth.RoleAdmin ||
		(p.Role == auth.RoleOrganization && p.ID == dr.OrganizationID) ||
		(p.Role == auth.RoleClientCompany && p.ID == dr.ClientID)
	if !allowed {
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
		return
	}

	org, err := a.store.FindOrganizationByID(r.Context(), dr.OrganizationID)
	if err != nil {
		a.sendError(w, err)
		return
	}
	client, err := a.store.FindClientCompanyByID(r.Context(), dr.ClientID)
	if err != nil {
		a.sendError(w, err)
		return
	}

	a.sendData(w, http.StatusOK, reporting.BuildWasteTransferAct(dr, org, client))
}
