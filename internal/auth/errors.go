package auth

import "errors"

// Sentinel errors the HTTP layer maps onto status codes. Credential and token
// failures are deliberately coarse so responses cannot be used to enumerate
// accounts or distinguish bad signatures from expiry.
var (
	ErrInvalidInput         = errors.New("auth: invalid input")
	ErrDuplicateEmail       = errors.New("auth: email already registered")
	ErrCompanyNotRegistered = errors.New("auth: company has no registered admin")
	ErrBadAdminSecret       = errors.New("auth: admin secret mismatch")
	ErrInvalidCredentials   = errors.New("auth: invalid credentials")
	ErrPendingApproval      = errors.New("auth: account pending approval")
	ErrMissingToken         = errors.New("auth: refresh token is required")
	ErrInvalidToken         = errors.New("auth: invalid or expired token")
	ErrRevoked              = errors.New("auth: refresh token revoked")
	ErrNotFound             = errors.New("auth: account not found")
	ErrInvalidResetToken    = errors.New("auth: invalid or expired reset token")
)
