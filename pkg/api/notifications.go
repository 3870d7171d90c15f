package api

import (
	"net/http"

	"github.com/ecofy/backend/pkg/auth"
	"github.com/ecofy/backend/pkg/model"
)

// ListNotifications handles GET /notifications: admins see the whole
// feed, organizations only entries attached to their own sites.
func (a *API) ListNotifications(w http.ResponseWriter, r *http.Request) {
	p, ok := a.requireStaff(w, r)
	if !ok {
		return
	}

	var (
		notifications []*model.Notification
		err           error
	)
	if p.Role == auth.RoleAdmin {
		notifications, err = a.store.ListAllNotifications(r.Context())
	} else {
		notifications, err = a.store.ListNotificationsForOrganization(r.Context(), p.ID)
	}
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, notifications)
}

// listUserFeed serves one of the per-user feeds.
func (a *API) listUserFeed(w http.ResponseWriter, r *http.Request, messageType string) {
	p, ok := principal(r)
	if !ok {
		a.sendErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	userID, err := idParam(r, "userId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if !p.IsSelfOrAdmin(userID) {
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
		return
	}

	notifications, err := a.store.ListUserNotifications(r.Context(), userID, messageType)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, notifications)
}

// ListUserSiteNotifications handles GET /users/{userId}/notifications/sites.
func (a *API) ListUserSiteNotifications(w http.ResponseWriter, r *http.Request) {
	a.listUserFeed(w, r, model.MessageNewContainerSite)
}

// ListUserCollectionNotifications handles GET /users/{userId}/notifications/collections.
func (a *API) ListUserCollectionNotifications(w http.ResponseWriter, r *http.Request) {
	a.listUserFeed(w, r, model.MessageWasteCollection)
}

// DeleteNotification handles DELETE /notifications/{notificationId},
// admin only.
func (a *API) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	id, err := idParam(r, "notificationId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.store.DeleteNotification(r.Context(), id); err != nil {
		a.sendError(w, err)
		return
	}
	a.sendMessage(w, http.StatusOK, "notification deleted")
}
