package account

import (
	"strings"
	"time"
)

// Role is the platform-wide role enum. A tenant is bootstrapped by its first
// admin; managers start life unverified.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
)

// ParseRole normalizes and validates a role string. Empty defaults to employee.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.TrimSpace(strings.ToLower(s))) {
	case "":
		return RoleEmployee, true
	case RoleEmployee:
		return RoleEmployee, true
	case RoleManager:
		return RoleManager, true
	case RoleAdmin:
		return RoleAdmin, true
	default:
		return "", false
	}
}

// Account is one platform identity. Email is unique platform-wide, not per
// tenant: the email is the login identity across companies.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Company      string
	Role         Role
	IsVerified   bool

	// RefreshToken holds the single active refresh token verbatim; empty
	// means no active session. Issuing a new one invalidates the previous.
	RefreshToken string

	// ResetTokenDigest and ResetExpires are set together and cleared
	// together. The digest is sha256(raw token); the raw token is only ever
	// sent by mail.
	ResetTokenDigest string
	ResetExpires     time.Time

	LastLogin time.Time
	ManagerID string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NormalizeCompany lowercases and trims the tenant key so that "Acme" and
// "acme " land in the same tenant.
func NormalizeCompany(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

// NormalizeEmail canonicalizes the login identity.
func NormalizeEmail(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

// Summary is the compact projection embedded for manager references.
type Summary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Profile is the sanitized projection returned to API clients. It never
// carries the password hash, refresh token or reset fields.
type Profile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	Company    string    `json:"company"`
	IsVerified bool      `json:"isVerified"`
	LastLogin  time.Time `json:"lastLogin,omitzero"`
	Manager    *Summary  `json:"manager,omitempty"`
}

// ProfileOf projects an account; the manager summary is attached by callers
// that resolved the back-reference.
func ProfileOf(a *Account, manager *Summary) Profile {
	return Profile{
		ID:         a.ID,
		Name:       a.Name,
		Email:      a.Email,
		Role:       a.Role,
		Company:    a.Company,
		IsVerified: a.IsVerified,
		LastLogin:  a.LastLogin,
		Manager:    manager,
	}
}
