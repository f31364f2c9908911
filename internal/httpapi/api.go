// Package httpapi exposes the auth service over HTTP: the JSON endpoints,
// their middleware chain, and the operational probes.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Owais-Raja/Optima-IDP-sub001/internal/account"
	"github.com/Owais-Raja/Optima-IDP-sub001/internal/auth"
	"github.com/Owais-Raja/Optima-IDP-sub001/internal/obs"
)

const maxBodyBytes = 1 << 20

// API carries the wired dependencies for the HTTP layer.
type API struct {
	svc     *auth.Service
	db      *sql.DB
	version string

	frontendOrigin string
	ratePerSecond  int
	rateBurst      int
}

// New constructs the API. db may be nil when running against the in-memory
// stores; readiness then only reports process liveness.
func New(svc *auth.Service, db *sql.DB, version string) *API {
	return &API{
		svc:            svc,
		db:             db,
		version:        version,
		frontendOrigin: "http://localhost:3000",
		ratePerSecond:  10,
		rateBurst:      20,
	}
}

// SetFrontendOrigin overrides the CORS origin allowed for the SPA.
func (a *API) SetFrontendOrigin(origin string) {
	if origin != "" {
		a.frontendOrigin = origin
	}
}

// SetRateLimit overrides the per-IP limit on the credential endpoints.
func (a *API) SetRateLimit(perSecond, burst int) {
	if perSecond > 0 {
		a.ratePerSecond = perSecond
	}
	if burst > 0 {
		a.rateBurst = burst
	}
}

// Handler assembles the full routing table and middleware chain.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(SecurityHeaders)
	r.Use(CORS(a.frontendOrigin))

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	limited := func(next http.Handler) http.Handler {
		return RateLimit(next, a.rateBurst, a.ratePerSecond)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.Use(limited)
		r.Post("/register", a.handleRegister)
		r.Post("/login", a.handleLogin)
		r.Post("/refresh", a.handleRefresh)
		r.Post("/forgot-password", a.handleForgotPassword)
		r.Post("/reset-password", a.handleResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(a.authenticate)
			r.Post("/logout", a.handleLogout)
			r.Get("/me", a.handleMe)
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(a.authenticate)
		r.Use(RequireRole(account.RoleAdmin))
		r.Get("/users", a.handleListUsers)
		r.Post("/users/{id}/approve", a.handleApprove)
		r.Patch("/users/{id}/role", a.handleChangeRole)
	})

	r.Route("/api/audit", func(r chi.Router) {
		r.Use(a.authenticate)
		r.With(RequireRole(account.RoleAdmin, account.RoleManager)).
			Get("/recent", a.handleAuditRecent)
		r.With(RequireRole(account.RoleAdmin)).
			Get("/actor/{id}", a.handleAuditActor)
	})

	var h http.Handler = r
	h = MaxBodyBytes(h, maxBodyBytes)
	h = obs.Instrument(h)
	h = Logging(h)
	return h
}

func (a *API) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": a.version,
	})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.db.PingContext(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "degraded",
				"error":  "database unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
