package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Owais-Raja/Optima-IDP-sub001/internal/auth"
)

type changeRoleRequest struct {
	Role string `json:"role"`
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	profiles, err := a.svc.ListCompany(r.Context(), p)
	if err != nil {
		handleAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": profiles})
}

func (a *API) handleApprove(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	profile, err := a.svc.Approve(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		handleAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Account approved",
		"user":    profile,
	})
}

func (a *API) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	var req changeRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	profile, err := a.svc.ChangeRole(r.Context(), p, chi.URLParam(r, "id"), req.Role)
	if err != nil {
		handleAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Role updated",
		"user":    profile,
	})
}
