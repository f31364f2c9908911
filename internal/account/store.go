package account

import (
	"context"
	"time"
)

// Store describes the persistence operations the auth flows need. Mutations
// mirror the observed account lifecycle: registration creates, login rewrites
// the session fields, reset rewrites credentials, approval and role changes
// flip single columns. Accounts are never deleted.
type Store interface {
	Create(ctx context.Context, a *Account) error
	FindByID(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByResetDigest(ctx context.Context, digest string) (*Account, error)
	ListByCompany(ctx context.Context, company string) ([]*Account, error)

	// HasVerifiedAdmin reports whether the tenant has been bootstrapped.
	HasVerifiedAdmin(ctx context.Context, company string) (bool, error)

	UpdateName(ctx context.Context, id, name string) error

	// SetRefreshToken overwrites the single active refresh token and stamps
	// last_login. Last writer wins; there is no optimistic check.
	SetRefreshToken(ctx context.Context, id, token string, lastLogin time.Time) error
	ClearRefreshToken(ctx context.Context, id string) error

	SetResetToken(ctx context.Context, id, digest string, expires time.Time) error

	// ResetPassword stores the new hash and clears both reset fields and the
	// refresh token in one statement, forcing re-login on all devices.
	ResetPassword(ctx context.Context, id, passwordHash string) error

	SetVerified(ctx context.Context, id string, verified bool) error
	SetRole(ctx context.Context, id string, role Role) error
}
