package api

import (
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/ecofy/backend/pkg/model"
)

type registerUserRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Patronymic  string `json:"patronymic,omitempty"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
	City        string `json:"city,omitempty"`
	Password    string `json:"password"`
}

// RegisterUser handles POST /users. Open endpoint; duplicate emails
// are a conflict.
func (a *API) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := decode(r, &req); err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if req.Email == "" || req.Password == "" {
		a.sendErrorMessage(w, http.StatusBadRequest, "missing required fields: email, password")
		return
	}
	if req.FirstName == "" || req.LastName == "" {
		a.sendErrorMessage(w, http.StatusBadRequest, "missing required fields: firstName, lastName")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		a.sendError(w, err)
		return
	}

	u := &model.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Patronymic:   req.Patronymic,
		Email:        req.Email,
		PhoneNumber:  req.PhoneNumber,
		City:         req.City,
		PasswordHash: string(hash),
		Active:       true,
	}
	if err := a.store.CreateUser(r.Context(), u); err != nil {
		a.sendError(w, err)
		return
	}

	a.log.Info().Int64("user_id", u.ID).Msg("user registered")
	a.sendData(w, http.StatusCreated, u)
}

// ListUsers handles GET /users, admin only.
func (a *API) ListUsers(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	users, err := a.store.ListUsers(r.Context())
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, users)
}

// GetUser handles GET /users/{userId}, self or admin.
func (a *API) GetUser(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		a.sendErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := idParam(r, "userId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if !p.IsSelfOrAdmin(id) {
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
		return
	}

	u, err := a.store.FindUserByID(r.Context(), id)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, u)
}

// UpdateUser handles PATCH /users/{userId}, self or admin.
func (a *API) UpdateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(r)
	if !ok {
		a.sendErrorMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	id, err := idParam(r, "userId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if !p.IsSelfOrAdmin(id) {
		a.sendErrorMessage(w, http.StatusForbidden, "access denied")
		return
	}

	var patch model.UserPatch
	if err := decode(r, &patch); err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	u, err := a.store.UpdateUser(r.Context(), id, patch)
	if err != nil {
		a.sendError(w, err)
		return
	}
	a.sendData(w, http.StatusOK, u)
}

type statusRequest struct {
	Active bool `json:"status"`
}

// SetUserStatus handles PUT /users/{userId}/status, admin only.
func (a *API) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	id, err := idParam(r, "userId")
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

	if err := a.store.SetUserStatus(r.Context(), id, req.Active); err != nil {
		a.sendError(w, err)
		return
	}
	a.sendMessage(w, http.StatusOK, "user status updated")
}

// DeleteUser handles DELETE /users/{userId}, admin only.
func (a *API) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.requireAdmin(w, r); !ok {
		return
	}

	id, err := idParam(r, "userId")
	if err != nil {
		a.sendErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.store.DeleteUser(r.Context(), id); err != nil {
		a.sendError(w, err)
		return
	}
	a.sendMessage(w, http.StatusOK, "user deleted")
}
