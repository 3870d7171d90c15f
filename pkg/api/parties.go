package api

import (
	"net/http"

	"github.com/ecofy/backend/pkg/auth"
	"github.com/ecofy/backend/pkg/model"
)

// ListOrganizations handles GET /organizations. Public: residents pick
// an operator from this list.
func (a *API) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := a.store.ListOrganizations(r.Context())
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, orgs)
}

// GetOrganization handles GET /organizations/{orgId}.
func (a *API) GetOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "orgId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	org, err := a.store.FindOrganizationByID(r.Context(), id)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, org)
}

// UpdateOrganization handles PATCH /organizations/{orgId}: the
// organization itself or an admin.
func (a *API) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		a.sendErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := idParam(r, "orgId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if !p.OwnsOrganization(id) {
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
		return
	}

	var patch model.OrganizationPatch
	if err := decode(r, &patch); err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	org, err := a.store.UpdateOrganization(r.Context(), id, patch)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, org)
}

// SetOrganizationStatus handles PUT /organizations/{orgId}/status,
// admin only.
func (a *API) SetOrganizationStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	id, err := idParam(r, "orgId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	var req statusRequest
	if err := decode(r, &req); err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := a.store.SetOrganizationStatus(r.Context(), id, req.Active); err != nil {
		a.sendError(w, err)
		return
	}
	a.sendMessage(w, http.StatusOK, "organization status updated")
}

// ListClientCompanies handles GET /client-companies, staff only.
func (a *API) ListClientCompanies(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireStaff(w, r); !ok {
		return
	}

	companies, err := a.store.ListClientCompanies(r.Context())
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, companies)
}

// GetClientCompany handles GET /client-companies/{clientId}: the
// company itself or staff.
func (a *API) GetClientCompany(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		a.sendErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := idParam(r, "clientId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if !p.IsStaff() && !(p.Role == auth.RoleClientCompany && p.ID == id) {
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
		return
	}

	c, err := a.store.FindClientCompanyByID(r.Context(), id)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, c)
}

// SetClientCompanyStatus handles PUT /client-companies/{clientId}/status,
// admin only.
func (a *API) SetClientCompanyStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	id, err := idParam(r, "clientId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	var req statusRequest
	if err := decode(r, &req); err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := a.store.SetClientCompanyStatus(r.Context(), id, req.Active); err != nil {
		a.sendError(w, err)
		return
	}
	a.sendMessage(w, http.StatusOK, "client company status updated")
}

type createDisposalRequest struct {
	WasteType        string  `json:"wasteType"`
	WasteDescription string  `json:"wasteDescription,omitempty"`
	AmountKg         float64 `json:"amountKg"`
	OrganizationID   int64   `json:"organizationId"`
}

// CreateDisposalRequest handles POST /disposal-requests, client
// companies only.
func (a *API) CreateDisposalRequest(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		a.sendErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}
	if p.Role != auth.RoleClientCompany {
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
		return
	}

	var req createDisposalRequest
	if err := decode(r, &req); err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if req.WasteType == "" {
		a.sendErrorMessage(w, http.StatusBadRequest, "missing required field: wasteType")
		return
	}
	if req.AmountKg <= 0 {
		a.sendErrorMessage(w, http.StatusBadRequest, "amountKg must be positive")
		return
	}

	now := a.now().UTC()
	dr := &model.DisposalRequest{
		WasteType:        req.WasteType,
		WasteDescription: req.WasteDescription,
		AmountKg:         req.AmountKg,
		CreatedAt:        now,
		UpdatedAt:        now,
		Status:           model.RequestPending,
		OrganizationID:   req.OrganizationID,
		ClientID:         p.ID,
	}
	if err := a.store.CreateDisposalRequest(r.Context(), dr); err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusCreated, dr)
}

// ListDisposalRequests handles GET /disposal-requests, scoped by role:
// admins see all, organizations their own, client companies their own.
func (a *API) ListDisposalRequests(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		a.sendErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var orgID, clientID *int64
	switch p.Role {
	case auth.RoleAdmin:
	case auth.RoleOrganization:
		orgID = &p.ID
	case auth.RoleClientCompany:
		clientID = &p.ID
	default:
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
		return
	}

	requests, err := a.store.ListDisposalRequests(r.Context(), orgID, clientID)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, requests)
}

type disposalStatusRequest struct {
	Status string `json:"status"`
}

var validRequestTransitions = map[string]bool{
	model.RequestAccepted:  true,
	model.RequestRejected:  true,
	model.RequestCompleted: true,
}

// UpdateDisposalRequestStatus handles PUT /disposal-requests/{requestId}/status:
// the receiving organization or an admin moves the request through its
// lifecycle.
func (a *API) UpdateDisposalRequestStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	id, err := idParam(r, "requestId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	var req disposalStatusRequest
	if err := decode(r, &req); err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if !validRequestTransitions[req.Status] {
		a.sendErrorMessage(w, http.StatusBadRequest, "invalid status: "+req.Status)
		return
	}

	existing, err := a.store.FindDisposalRequestByID(r.Context(), id)
	if err != nil {
		a.sendError(w, err)
		return
	}
	if !p.OwnsOrganization(existing.OrganizationID) {
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
		return
	}

	dr, err := a.store.UpdateDisposalRequestStatus(r.Context(), id, req.Status, a.now().UTC())
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, dr)
}

// ClientCompanyActivity handles GET /analytics/client-companies, admin
// only.
func (a *API) ClientCompanyActivity(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	stats, err := a.store.ClientCompanyActivity(r.Context())
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, stats)
}

// OrganizationActivity handles GET /analytics/organizations, admin
// only.
func (a *API) OrganizationActivity(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	stats, err := a.store.OrganizationActivity(r.Context())
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, stats)
}
