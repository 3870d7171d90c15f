package api

import (
	"net/http"

	"github.com/ecofy/backend/pkg/auth"
	"github.com/ecofy/backend/pkg/model"
)

// ownsSite checks that the principal may manage the given site.
func (a *API) ownsSite(r *http.Request, p auth.Principal, siteID int64) error {
	if p.Role == auth.RoleAdmin {
		return nil
	}
	site, err := a.store.FindSiteByID(r.Context(), siteID)
	if err != nil {
		return err
	}
	if !p.OwnsOrganization(site.OrganizationID) {
		return auth.ErrForbidden
	}
	return nil
}

type createContainerRequest struct {
	Type     string `json:"type"`
	Capacity int    `json:"capacity"`
	SiteID   int64  `json:"containerSiteId"`
}

// CreateContainer handles POST /containers. New containers start empty.
func (a *API) CreateContainer(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	var req createContainerRequest
	if err := decode(r, &req); err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if req.Type == "" {
		a.sendErrorMessage(w, http.StatusBadRequest, "missing required field: type")
		return
	}
	if req.SiteID == 0 {
		a.sendErrorMessage(w, http.StatusBadRequest, "missing required field: containerSiteId")
		return
	}
	if err := a.ownsSite(r, p, req.SiteID); err != nil {
		a.sendError(w, err)
		return
	}

	c := &model.Container{
		Type:       req.Type,
		Capacity:   req.Capacity,
		Status:     "empty",
		LastUpdate: a.now().UTC(),
		SiteID:     req.SiteID,
	}
	if err := a.store.CreateContainer(r.Context(), c); err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusCreated, c)
}

// ListContainers handles GET /containers. Organizations see only the
// containers on their own sites.
func (a *API) ListContainers(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	containers, err := a.store.ListContainers(r.Context(), orgScope(p))
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, containers)
}

// GetContainer handles GET /containers/{containerId}.
func (a *API) GetContainer(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	id, err := idParam(r, "containerId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := a.store.FindContainerByID(r.Context(), id)
	if err != nil {
		a.sendError(w, err)
		return
	}
	if err := a.ownsSite(r, p, c.SiteID); err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, c)
}

// UpdateContainer handles PATCH /containers/{containerId}.
func (a *API) UpdateContainer(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	id, err := idParam(r, "containerId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	var patch model.ContainerPatch
	if err := decode(r, &patch); err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	existing, err := a.store.FindContainerByID(r.Context(), id)
	if err != nil {
		a.sendError(w, err)
		return
	}
	if err := a.ownsSite(r, p, existing.SiteID); err != nil {
		a.sendError(w, err)
		return
	}
	if patch.SiteID != nil {
		if err := a.ownsSite(r, p, *patch.SiteID); err != nil {
			a.sendError(w, err)
			return
		}
	}

	c, err := a.store.UpdateContainer(r.Context(), id, patch)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, c)
}

// DeleteContainer handles DELETE /containers/{containerId}.
func (a *API) DeleteContainer(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	id, err := idParam(r, "containerId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := a.store.FindContainerByID(r.Context(), id)
	if err != nil {
		a.sendError(w, err)
		return
	}
	if err := a.ownsSite(r, p, existing.SiteID); err != nil {
		a.sendError(w, err)
		return
	}

	if err := a.store.DeleteContainer(r.Context(), id); err != nil {
		a.sendError(w, err)
		return
	}
	a.sendMessage(w, http.StatusOK, "container deleted")
}
