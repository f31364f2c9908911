package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Owais-Raja/Optima-IDP-sub001/internal/account"
	"github.com/Owais-Raja/Optima-IDP-sub001/internal/audit"
	"github.com/Owais-Raja/Optima-IDP-sub001/internal/auth"
)

var errMissingBearer = errors.New("missing bearer token")

func extractBearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", errMissingBearer
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errMissingBearer
	}
	return strings.TrimSpace(parts[1]), nil
}

// authenticate verifies the bearer access token and attaches the resulting
// principal plus request metadata for the audit trail.
func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := extractBearerToken(r)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="optima"`)
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		p, err := a.svc.Authenticate(raw)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="optima", error="invalid_token"`)
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		ctx := auth.ContextWithPrincipal(r.Context(), p)
		ctx = audit.WithRequestMeta(ctx, clientIP(r), r.UserAgent())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole gates a route group on the principal's role. 401 without a
// principal, 403 with the wrong role.
func RequireRole(roles ...account.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="optima"`)
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !p.HasRole(roles...) {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
