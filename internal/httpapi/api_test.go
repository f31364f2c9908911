package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Owais-Raja/Optima-IDP-sub001/internal/account"
	"github.com/Owais-Raja/Optima-IDP-sub001/internal/audit"
	"github.com/Owais-Raja/Optima-IDP-sub001/internal/auth"
	"github.com/Owais-Raja/Optima-IDP-sub001/internal/token"
)

const testAdminSecret = "bootstrap-secret"

func newTestAPI(t *testing.T) *API {
	t.Helper()
	issuer, err := token.NewIssuer("access-secret", "refresh-secret")
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	svc, err := auth.NewService(
		account.NewMemoryStore(),
		issuer,
		auth.WithAdminSecret(testAdminSecret),
		auth.WithAudit(audit.NewMemoryStore()),
	)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return New(svc, nil, "test")
}

func doJSON(t *testing.T, h http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func registerAdmin(t *testing.T, h http.Handler, email, company string) {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":        "Ada Admin",
		"email":       email,
		"password":    "hunter22",
		"company":     company,
		"role":        "admin",
		"adminSecret": testAdminSecret,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register admin: got %d, body %s", rec.Code, rec.Body.String())
	}
}

func loginToken(t *testing.T, h http.Handler, email, password string) (access, refresh string) {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    email,
		"password": password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: got %d, body %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	access, _ = body["accessToken"].(string)
	refresh, _ = body["refreshToken"].(string)
	if access == "" || refresh == "" {
		t.Fatalf("login response missing tokens: %v", body)
	}
	return access, refresh
}

func TestRegisterLoginRefreshLogoutFlow(t *testing.T) {
	h := newTestAPI(t).Handler()

	registerAdmin(t, h, "ada@acme.test", "Acme")
	access, refresh := loginToken(t, h, "ada@acme.test", "hunter22")

	rec := doJSON(t, h, http.MethodGet, "/api/auth/me", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: got %d, body %s", rec.Code, rec.Body.String())
	}
	user, _ := decodeBody(t, rec)["user"].(map[string]any)
	if user["email"] != "ada@acme.test" || user["company"] != "acme" {
		t.Fatalf("unexpected profile: %v", user)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/auth/refresh", "", map[string]any{
		"refreshToken": refresh,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: got %d, body %s", rec.Code, rec.Body.String())
	}
	if tok, _ := decodeBody(t, rec)["accessToken"].(string); tok == "" {
		t.Fatal("refresh response missing access token")
	}

	rec = doJSON(t, h, http.MethodPost, "/api/auth/logout", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: got %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/api/auth/refresh", "", map[string]any{
		"refreshToken": refresh,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: got %d, want 401", rec.Code)
	}
}

func TestRegisterGuards(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec := doJSON(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":        "Mallory",
		"email":       "mallory@acme.test",
		"password":    "pw",
		"company":     "Acme",
		"role":        "admin",
		"adminSecret": "wrong",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bad admin secret: got %d, want 403", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":     "Early Bird",
		"email":    "early@acme.test",
		"password": "pw",
		"company":  "Acme",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unregistered company: got %d, want 400", rec.Code)
	}

	registerAdmin(t, h, "ada@acme.test", "Acme")
	rec = doJSON(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":        "Ada Again",
		"email":       "ADA@acme.test",
		"password":    "pw",
		"company":     "Acme",
		"role":        "admin",
		"adminSecret": testAdminSecret,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate email: got %d, want 400", rec.Code)
	}
}

func TestLoginFailureIsGeneric(t *testing.T) {
	h := newTestAPI(t).Handler()
	registerAdmin(t, h, "ada@acme.test", "Acme")

	unknown := doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "nobody@acme.test", "password": "pw",
	})
	wrongPw := doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "ada@acme.test", "password": "wrong",
	})
	if unknown.Code != http.StatusBadRequest || wrongPw.Code != http.StatusBadRequest {
		t.Fatalf("got %d and %d, want 400 for both", unknown.Code, wrongPw.Code)
	}
	if unknown.Body.String() != wrongPw.Body.String() {
		t.Fatalf("failure bodies differ: %q vs %q", unknown.Body.String(), wrongPw.Body.String())
	}
}

func TestAdminRoutesAreRoleGated(t *testing.T) {
	h := newTestAPI(t).Handler()
	registerAdmin(t, h, "ada@acme.test", "Acme")
	adminAccess, _ := loginToken(t, h, "ada@acme.test", "hunter22")

	rec := doJSON(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":     "Eve Employee",
		"email":    "eve@acme.test",
		"password": "pw123456",
		"company":  "Acme",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register employee: got %d, body %s", rec.Code, rec.Body.String())
	}
	empAccess, _ := loginToken(t, h, "eve@acme.test", "pw123456")

	if rec := doJSON(t, h, http.MethodGet, "/api/admin/users", "", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: got %d, want 401", rec.Code)
	}
	if rec := doJSON(t, h, http.MethodGet, "/api/admin/users", empAccess, nil); rec.Code != http.StatusForbidden {
		t.Fatalf("employee token: got %d, want 403", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/admin/users", adminAccess, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin token: got %d, body %s", rec.Code, rec.Body.String())
	}
	users, _ := decodeBody(t, rec)["users"].([]any)
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
}

func TestManagerApprovalOverHTTP(t *testing.T) {
	h := newTestAPI(t).Handler()
	registerAdmin(t, h, "ada@acme.test", "Acme")
	adminAccess, _ := loginToken(t, h, "ada@acme.test", "hunter22")

	rec := doJSON(t, h, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name":     "Mia Manager",
		"email":    "mia@acme.test",
		"password": "pw123456",
		"company":  "Acme",
		"role":     "manager",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register manager: got %d, body %s", rec.Code, rec.Body.String())
	}
	user, _ := decodeBody(t, rec)["user"].(map[string]any)
	managerID, _ := user["id"].(string)
	if managerID == "" {
		t.Fatal("register response missing user id")
	}

	rec = doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": "mia@acme.test", "password": "pw123456",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("pending manager login: got %d, want 403", rec.Code)
	}

	rec = doJSON(t, h, http.MethodPost, fmt.Sprintf("/api/admin/users/%s/approve", managerID), adminAccess, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("approve: got %d, body %s", rec.Code, rec.Body.String())
	}

	loginToken(t, h, "mia@acme.test", "pw123456")

	rec = doJSON(t, h, http.MethodPatch, fmt.Sprintf("/api/admin/users/%s/role", managerID), adminAccess, map[string]any{
		"role": "employee",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("role change: got %d, body %s", rec.Code, rec.Body.String())
	}
	changed, _ := decodeBody(t, rec)["user"].(map[string]any)
	if changed["role"] != "employee" {
		t.Fatalf("role not updated: %v", changed)
	}
}

func TestAuditEndpoints(t *testing.T) {
	h := newTestAPI(t).Handler()
	registerAdmin(t, h, "ada@acme.test", "Acme")
	adminAccess, _ := loginToken(t, h, "ada@acme.test", "hunter22")

	rec := doJSON(t, h, http.MethodGet, "/api/audit/recent?limit=10", adminAccess, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("audit recent: got %d, body %s", rec.Code, rec.Body.String())
	}
	entries, _ := decodeBody(t, rec)["entries"].([]any)
	if len(entries) == 0 {
		t.Fatal("expected at least the bootstrap entry")
	}
	first, _ := entries[0].(map[string]any)
	if first["action"] != audit.ActionAdminBootstrap {
		t.Fatalf("unexpected first action: %v", first["action"])
	}
}

func TestForgotPasswordResponseIsGeneric(t *testing.T) {
	h := newTestAPI(t).Handler()
	registerAdmin(t, h, "ada@acme.test", "Acme")

	known := doJSON(t, h, http.MethodPost, "/api/auth/forgot-password", "", map[string]any{
		"email": "ada@acme.test",
	})
	unknown := doJSON(t, h, http.MethodPost, "/api/auth/forgot-password", "", map[string]any{
		"email": "ghost@acme.test",
	})
	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("got %d and %d, want 200 for both", known.Code, unknown.Code)
	}
	if known.Body.String() != unknown.Body.String() {
		t.Fatalf("responses differ: %q vs %q", known.Body.String(), unknown.Body.String())
	}
}

func TestMalformedBodyIsRejected(t *testing.T) {
	h := newTestAPI(t).Handler()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", rec.Code)
	}
}

func TestHealthAndHeaders(t *testing.T) {
	h := newTestAPI(t).Handler()

	rec := doJSON(t, h, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: got %d", rec.Code)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("missing nosniff header, got %q", got)
	}

	rec = doJSON(t, h, http.MethodGet, "/readyz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz without db: got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t)
	api.SetFrontendOrigin("https://app.example.com")
	h := api.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight: got %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("allow-origin: got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin for foreign origin: %q", got)
	}
}

func TestRateLimitReturns429(t *testing.T) {
	api := newTestAPI(t)
	api.SetRateLimit(1, 2)
	h := api.Handler()

	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		rec := doJSON(t, h, http.MethodPost, "/api/auth/login", "", map[string]any{
			"email": "x@y.test", "password": "pw",
		})
		codes = append(codes, rec.Code)
	}
	saw429 := false
	for _, c := range codes {
		if c == http.StatusTooManyRequests {
			saw429 = true
		}
	}
	if !saw429 {
		t.Fatalf("expected a 429 within burst exhaustion, got %v", codes)
	}
}
