package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                "/",
		"/metrics":                        "/metrics",
		"/api/auth/login":                 "/api/auth/login",
		"/api/admin/users":                "/api/admin/users",
		"/api/admin/users/abc/approve":    "/api/admin/users/:id/approve",
		"/api/admin/users/abc/role":       "/api/admin/users/:id/role",
		"/api/audit/recent":               "/api/audit/recent",
		"/api/audit/recent?limit=10":      "/api/audit/recent",
		"/api/audit/actor/abc":            "/api/audit/actor/:id",
		"/api/admin/users/abc/role/extra": "/api/admin/users/abc/role/extra",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}
