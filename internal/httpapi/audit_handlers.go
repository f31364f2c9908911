package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Owais-Raja/Optima-IDP-sub001/internal/audit"
	"github.com/Owais-Raja/Optima-IDP-sub001/internal/auth"
)

func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return n
}

func (a *API) handleAuditRecent(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	entries, err := a.svc.AuditRecent(r.Context(), p, audit.ClampLimit(limitParam(r)))
	if err != nil {
		handleAuthError(w, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (a *API) handleAuditActor(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	entries, err := a.svc.AuditForActor(r.Context(), p, chi.URLParam(r, "id"), audit.ClampLimit(limitParam(r)))
	if err != nil {
		handleAuthError(w, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
