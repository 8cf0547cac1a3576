package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/shelfauth/internal/api"
	"github.com/dmitrijs2005/shelfauth/internal/common"
	"github.com/dmitrijs2005/shelfauth/internal/server/auth"
	"github.com/dmitrijs2005/shelfauth/internal/server/models"
)

func toAPIUser(u *models.User) api.User {
	return api.User{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		RoleID:   u.RoleID,
		RoleName: u.RoleName,
		IsAdmin:  u.Principal().IsAdmin(),
	}
}

func authResponse(u *models.User, pair auth.TokenPair) api.AuthResponse {
	return api.AuthResponse{
		User:         toAPIUser(u),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, api.ReasonMalformedRequest)
		return
	}

	u, pair, err := h.auth.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, authResponse(u, pair))
	case errors.Is(err, common.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, api.ReasonInvalidCredentials)
	default:
		writeError(w, http.StatusInternalServerError, api.ReasonInternal)
	}
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, api.ReasonMalformedRequest)
		return
	}

	u, pair, err := h.auth.Register(r.Context(), req.Email, req.Name, req.Password)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, authResponse(u, pair))
	case errors.Is(err, common.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, api.ReasonWeakPassword)
	case errors.Is(err, common.ErrEmailAlreadyRegistered):
		writeError(w, http.StatusConflict, api.ReasonEmailTaken)
	default:
		writeError(w, http.StatusInternalServerError, api.ReasonInternal)
	}
}

// Refresh answers every rejection with the same 401 body; the service logs
// which kind it was.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req api.RefreshRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusUnauthorized, api.ReasonInvalidRefreshToken)
		return
	}

	access, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, api.RefreshResponse{AccessToken: access})
	case errors.Is(err, common.ErrorInternal):
		writeError(w, http.StatusInternalServerError, api.ReasonInternal)
	default:
		writeError(w, http.StatusUnauthorized, api.ReasonInvalidRefreshToken)
	}
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req api.LogoutRequest
	if err := h.decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, api.ReasonMalformedRequest)
		return
	}

	if err := h.auth.Logout(r.Context(), req.RefreshToken); err != nil {
		writeError(w, http.StatusInternalServerError, api.ReasonInternal)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user. Mounted at /auth/me and, behind
// RequireAdmin, at /admin/whoami.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, api.ReasonInvalidToken)
		return
	}

	u, err := h.auth.CurrentUser(r.Context(), p)
	if err != nil {
		status, reason := tokenFailure(err)
		writeError(w, status, reason)
		return
	}
	writeJSON(w, http.StatusOK, api.UserResponse{User: toAPIUser(u)})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.logger.Warn(r.Context(), "health check failed", "error", err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
