package api

import (
	"fmt"
	"net/http"

	"github.com/ecofy/backend/pkg/model"
	"github.com/ecofy/backend/pkg/reporting"
)

type createSiteRequest struct {
	LocationLat    string `json:"locationLat"`
	LocationLng    string `json:"locationLng"`
	City           string `json:"city"`
	Street         string `json:"street"`
	Building       string `json:"building"`
	Entrance       string `json:"entrance,omitempty"`
	Description    string `json:"description,omitempty"`
	OrganizationID int64  `json:"organizationId"`
}

// CreateSite handles POST /container-sites. Opening a site broadcasts a
// new_container_site notification to every user in the site's city.
// The broadcast is best-effort: a failed fan-out logs an error but does
// not undo the site.
func (a *API) CreateSite(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	var req createSiteRequest
	if err := decode(r, &req); err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if req.City == "" || req.Street == "" || req.Building == "" {
		a.sendErrorMessage(w, http.StatusBadRequest, "missing required fields: city, street, building")
		return
	}
	if !p.OwnsOrganization(req.OrganizationID) {
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
		return
	}

	site := &model.ContainerSite{
		LocationLat:    req.LocationLat,
		LocationLng:    req.LocationLng,
		City:           req.City,
		Street:         req.Street,
		Building:       req.Building,
		Entrance:       req.Entrance,
		Description:    req.Description,
		OrganizationID: req.OrganizationID,
	}
	if err := a.store.CreateSite(r.Context(), site); err != nil {
		a.sendError(w, err)
		return
	}

	if err := a.broadcastToCity(r, site, model.MessageNewContainerSite,
		fmt.Sprintf("new container site opened at %s", reporting.SiteAddress(site))); err != nil {
		a.log.Error().Err(err).Int64("site_id", site.ID).Msg("site notification fan-out failed")
	}

	a.sendData(w, http.StatusCreated, site)
}

// broadcastToCity inserts one notification per user registered in the
// site's city.
func (a *API) broadcastToCity(r *http.Request, site *model.ContainerSite, messageType, message string) error {
	users, err := a.store.ListUsersByCity(r.Context(), site.City)
	if err != nil {
		return fmt.Errorf("listing users in %q: %w", site.City, err)
	}
	if len(users) == 0 {
		return nil
	}

	now := a.now().UTC()
	notifications := make([]model.Notification, 0, len(users))
	for _, u := range users {
		userID := u.ID
		siteID := site.ID
		notifications = append(notifications, model.Notification{
			Message:     message,
			MessageType: messageType,
			CreatedAt:   now,
			UserID:      &userID,
			SiteID:      &siteID,
		})
	}
	return a.store.InsertNotifications(r.Context(), notifications)
}

// ListSites handles GET /container-sites.
func (a *API) ListSites(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	sites, err := a.store.ListSites(r.Context(), orgScope(p))
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, sites)
}

// GetSite handles GET /container-sites/{siteId}, including the site's
// containers.
func (a *API) GetSite(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	id, err := idParam(r, "siteId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	site, err := a.store.FindSiteByID(r.Context(), id)
	if err != nil {
		a.sendError(w, err)
		return
	}
	if !p.OwnsOrganization(site.OrganizationID) {
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
		return
	}

	containers, err := a.store.ListContainersBySite(r.Context(), id)
	if err != nil {
		a.sendError(w, err)
		return
	}

	a.sendData(w, http.StatusOK, map[string]interface{}{
		"site":       site,
		"containers": containers,
	})
}

// UpdateSite handles PATCH /container-sites/{siteId}.
func (a *API) UpdateSite(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	id, err := idParam(r, "siteId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	var patch model.ContainerSitePatch
	if err := decode(r, &patch); err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	existing, err := a.store.FindSiteByID(r.Context(), id)
	if err != nil {
		a.sendError(w, err)
		return
	}
	if !p.OwnsOrganization(existing.OrganizationID) {
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
		return
	}

	site, err := a.store.UpdateSite(r.Context(), id, patch)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, site)
}

// DeleteSite handles DELETE /container-sites/{siteId}. Refused while
// containers or pickups reference the site.
func (a *API) DeleteSite(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	id, err := idParam(r, "siteId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := a.store.FindSiteByID(r.Context(), id)
	if err != nil {
		a.sendError(w, err)
		return
	}
	if !p.OwnsOrganization(existing.OrganizationID) {
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
		return
	}

	if err := a.store.DeleteSite(r.Context(), id); err != nil {
		a.sendError(w, err)
		return
	}
	a.sendMessage(w, http.StatusOK, "container site deleted")
}
