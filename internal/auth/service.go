// Package auth orchestrates the account and session lifecycle: registration
// with per-tenant admin bootstrap, login with dual-token issuance, refresh,
// logout, and the password reset flow.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/Owais-Raja/Optima-IDP-sub001/internal/account"
	"github.com/Owais-Raja/Optima-IDP-sub001/internal/audit"
	"github.com/Owais-Raja/Optima-IDP-sub001/internal/mail"
	"github.com/Owais-Raja/Optima-IDP-sub001/internal/obs"
	"github.com/Owais-Raja/Optima-IDP-sub001/internal/token"
)

const resetTokenTTL = time.Hour

// Service provides the auth endpoint operations on top of the account store
// and token issuer. Side channels (mail, audit) are best-effort and never
// fail the primary state change.
type Service struct {
	accounts account.Store
	tokens   *token.Issuer

	auditStore audit.Store
	recorder   *audit.Recorder
	mailer     mail.Sender

	adminSecret string
	frontendURL string
	now         func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithAdminSecret sets the shared secret gating tenant-admin bootstrap.
func WithAdminSecret(secret string) ServiceOption {
	return func(s *Service) error {
		s.adminSecret = secret
		return nil
	}
}

// WithAudit wires the append-only audit trail.
func WithAudit(store audit.Store) ServiceOption {
	return func(s *Service) error {
		s.auditStore = store
		s.recorder = audit.NewRecorder(store)
		return nil
	}
}

// WithMailer wires outbound transactional mail.
func WithMailer(m mail.Sender) ServiceOption {
	return func(s *Service) error {
		s.mailer = m
		return nil
	}
}

// WithFrontendURL sets the base URL reset links are built against.
func WithFrontendURL(u string) ServiceOption {
	return func(s *Service) error {
		if strings.TrimSpace(u) != "" {
			s.frontendURL = strings.TrimRight(strings.TrimSpace(u), "/")
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs a Service.
func NewService(accounts account.Store, tokens *token.Issuer, opts ...ServiceOption) (*Service, error) {
	if accounts == nil {
		return nil, errors.New("auth: account store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token issuer is required")
	}
	s := &Service{
		accounts:    accounts,
		tokens:      tokens,
		frontendURL: "http://localhost:3000",
		now:         time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// RegisterInput carries the registration request fields.
type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	Company     string
	Role        string
	AdminSecret string
	ManagerID   string
}

// Register creates an account. The first admin bootstraps a tenant via the
// shared secret; everyone else needs a tenant that already has a verified
// admin. Managers start unverified and must be approved before login.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*account.Account, error) {
	name := strings.TrimSpace(in.Name)
	email := account.NormalizeEmail(in.Email)
	company := account.NormalizeCompany(in.Company)
	if name == "" || email == "" || in.Password == "" || company == "" {
		return nil, fmt.Errorf("%w: name, email, password and company are required", ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	role, ok := account.ParseRole(in.Role)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, in.Role)
	}

	// Email uniqueness is platform-wide, not per tenant: the email is the
	// login identity everywhere.
	switch _, err := s.accounts.FindByEmail(ctx, email); {
	case err == nil:
		return nil, ErrDuplicateEmail
	case !errors.Is(err, account.ErrNotFound):
		return nil, err
	}

	verified := true
	if role == account.RoleAdmin {
		if s.adminSecret == "" ||
			subtle.ConstantTimeCompare([]byte(in.AdminSecret), []byte(s.adminSecret)) != 1 {
			return nil, ErrBadAdminSecret
		}
	} else {
		ok, err := s.accounts.HasVerifiedAdmin(ctx, company)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrCompanyNotRegistered
		}
		verified = role != account.RoleManager
	}

	managerID := strings.TrimSpace(in.ManagerID)
	if managerID != "" {
		mgr, err := s.accounts.FindByID(ctx, managerID)
		if err != nil || mgr.Company != company {
			return nil, fmt.Errorf("%w: unknown manager reference", ErrInvalidInput)
		}
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	a := &account.Account{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Company:      company,
		Role:         role,
		IsVerified:   verified,
		ManagerID:    managerID,
	}
	if err := s.accounts.Create(ctx, a); err != nil {
		if errors.Is(err, account.ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}

	if role == account.RoleAdmin {
		s.record(ctx, audit.Entry{
			Company: company,
			ActorID: a.ID,
			Action:  audit.ActionAdminBootstrap,
			Details: "tenant bootstrapped by first admin",
		})
	}

	msg := mail.Welcome(a.Email, a.Name, a.Company)
	if !a.IsVerified {
		msg = mail.PendingApproval(a.Email, a.Name)
	}
	s.send(ctx, msg)

	return a, nil
}

// Login verifies credentials and issues a fresh token pair, overwriting any
// previously stored refresh token. Unknown email and wrong password produce
// the identical error.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, account.Profile, error) {
	a, err := s.accounts.FindByEmail(ctx, account.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			obs.CountLogin("invalid")
			return TokenPair{}, account.Profile{}, ErrInvalidCredentials
		}
		return TokenPair{}, account.Profile{}, err
	}
	if err := VerifyPassword(a.PasswordHash, password); err != nil {
		obs.CountLogin("invalid")
		return TokenPair{}, account.Profile{}, ErrInvalidCredentials
	}
	if !a.IsVerified {
		obs.CountLogin("pending")
		return TokenPair{}, account.Profile{}, ErrPendingApproval
	}

	// Data hygiene, not security policy: normalize display names that
	// drifted to all-lower or all-upper case.
	if tc := titleCase(a.Name); tc != a.Name {
		if err := s.accounts.UpdateName(ctx, a.ID, tc); err != nil {
			obs.LogError("name normalization failed", err, map[string]any{"account": a.ID})
		} else {
			a.Name = tc
		}
	}

	access, accessExp, err := s.tokens.IssueAccess(a.ID, string(a.Role), a.Company)
	if err != nil {
		return TokenPair{}, account.Profile{}, err
	}
	refresh, refreshExp, err := s.tokens.IssueRefresh(a.ID)
	if err != nil {
		return TokenPair{}, account.Profile{}, err
	}

	// Single active session: the overwrite silently invalidates the refresh
	// token held by any other device. Last writer wins.
	if err := s.accounts.SetRefreshToken(ctx, a.ID, refresh, s.now().UTC()); err != nil {
		return TokenPair{}, account.Profile{}, err
	}
	a.LastLogin = s.now().UTC()

	obs.CountLogin("success")
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, s.profile(ctx, a), nil
}

// Refresh exchanges a valid, still-active refresh token for a new access
// token. The refresh token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, raw string) (string, time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", time.Time{}, ErrMissingToken
	}
	accountID, err := s.tokens.VerifyRefresh(raw)
	if err != nil {
		return "", time.Time{}, ErrInvalidToken
	}
	a, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return "", time.Time{}, ErrNotFound
		}
		return "", time.Time{}, err
	}

	// Revocation is the byte-for-byte match against the stored token; this
	// is what makes logout effective despite tokens being stateless.
	if a.RefreshToken == "" ||
		subtle.ConstantTimeCompare([]byte(a.RefreshToken), []byte(raw)) != 1 {
		return "", time.Time{}, ErrRevoked
	}

	access, exp, err := s.tokens.IssueAccess(a.ID, string(a.Role), a.Company)
	if err != nil {
		return "", time.Time{}, err
	}
	return access, exp, nil
}

// Logout unconditionally clears the stored refresh token.
func (s *Service) Logout(ctx context.Context, accountID string) error {
	if _, err := s.accounts.FindByID(ctx, accountID); err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.accounts.ClearRefreshToken(ctx, accountID)
}

// ForgotPassword stores a one-hour reset token digest and mails the raw token
// when the account exists. It reveals nothing about whether it does.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	a, err := s.accounts.FindByEmail(ctx, account.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil
		}
		return err
	}

	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return err
	}
	raw := hex.EncodeToString(buf[:])
	digest := sha256.Sum256([]byte(raw))

	expires := s.now().UTC().Add(resetTokenTTL)
	if err := s.accounts.SetResetToken(ctx, a.ID, hex.EncodeToString(digest[:]), expires); err != nil {
		return err
	}

	resetURL := s.frontendURL + "/reset-password/" + raw
	s.send(ctx, mail.PasswordReset(a.Email, a.Name, resetURL))
	return nil
}

// ResetPassword consumes a raw reset token. On success the new hash is
// stored, the reset fields are cleared, and the refresh token is cleared to
// force re-login on all devices.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" || newPassword == "" {
		return ErrInvalidResetToken
	}
	digest := sha256.Sum256([]byte(rawToken))
	a, err := s.accounts.FindByResetDigest(ctx, hex.EncodeToString(digest[:]))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return err
	}
	if a.ResetExpires.IsZero() || !s.now().Before(a.ResetExpires) {
		return ErrInvalidResetToken
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.accounts.ResetPassword(ctx, a.ID, hash); err != nil {
		return err
	}

	s.record(ctx, audit.Entry{
		Company: a.Company,
		ActorID: a.ID,
		Action:  audit.ActionPasswordReset,
		Details: "password reset via emailed token",
	})
	return nil
}

// Authenticate verifies an access token and returns the decoded principal.
// No database round-trip: access tokens are revocation-immune for their
// lifetime.
func (s *Service) Authenticate(raw string) (Principal, error) {
	claims, err := s.tokens.VerifyAccess(raw)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	return Principal{
		AccountID: claims.AccountID,
		Role:      account.Role(claims.Role),
		Company:   claims.Company,
	}, nil
}

// Me returns the sanitized projection of the authenticated account.
func (s *Service) Me(ctx context.Context, accountID string) (account.Profile, error) {
	a, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return account.Profile{}, ErrNotFound
		}
		return account.Profile{}, err
	}
	return s.profile(ctx, a), nil
}

// ListCompany returns all accounts in the caller's tenant.
func (s *Service) ListCompany(ctx context.Context, p Principal) ([]account.Profile, error) {
	accounts, err := s.accounts.ListByCompany(ctx, p.Company)
	if err != nil {
		return nil, err
	}
	profiles := make([]account.Profile, 0, len(accounts))
	for _, a := range accounts {
		profiles = append(profiles, s.profile(ctx, a))
	}
	return profiles, nil
}

// Approve marks an account in the caller's tenant as verified; used to let
// pending managers in. Audited on success and failure.
func (s *Service) Approve(ctx context.Context, p Principal, targetID string) (account.Profile, error) {
	target, err := s.findInCompany(ctx, p, targetID)
	if err != nil {
		s.recordFailure(ctx, p, audit.ActionApprove, targetID, err)
		return account.Profile{}, err
	}
	if err := s.accounts.SetVerified(ctx, target.ID, true); err != nil {
		s.recordFailure(ctx, p, audit.ActionApprove, targetID, err)
		return account.Profile{}, err
	}
	target.IsVerified = true

	s.record(ctx, audit.Entry{
		Company:    p.Company,
		ActorID:    p.AccountID,
		Action:     audit.ActionApprove,
		TargetID:   target.ID,
		TargetType: "account",
		Details:    fmt.Sprintf("approved %s (%s)", target.Email, target.Role),
	})
	return s.profile(ctx, target), nil
}

// ChangeRole moves an account in the caller's tenant to another role within
// the enum. Audited on success and failure.
func (s *Service) ChangeRole(ctx context.Context, p Principal, targetID, newRole string) (account.Profile, error) {
	if strings.TrimSpace(newRole) == "" {
		return account.Profile{}, fmt.Errorf("%w: role is required", ErrInvalidInput)
	}
	role, ok := account.ParseRole(newRole)
	if !ok {
		return account.Profile{}, fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, newRole)
	}
	target, err := s.findInCompany(ctx, p, targetID)
	if err != nil {
		s.recordFailure(ctx, p, audit.ActionRoleChange, targetID, err)
		return account.Profile{}, err
	}
	oldRole := target.Role
	if err := s.accounts.SetRole(ctx, target.ID, role); err != nil {
		s.recordFailure(ctx, p, audit.ActionRoleChange, targetID, err)
		return account.Profile{}, err
	}
	target.Role = role

	s.record(ctx, audit.Entry{
		Company:    p.Company,
		ActorID:    p.AccountID,
		Action:     audit.ActionRoleChange,
		TargetID:   target.ID,
		TargetType: "account",
		Details:    fmt.Sprintf("role %s -> %s for %s", oldRole, role, target.Email),
	})
	return s.profile(ctx, target), nil
}

// AuditRecent returns the newest audit entries for the caller's tenant.
func (s *Service) AuditRecent(ctx context.Context, p Principal, limit int) ([]audit.Entry, error) {
	if s.auditStore == nil {
		return nil, nil
	}
	return s.auditStore.RecentByCompany(ctx, p.Company, limit)
}

// AuditForActor returns the newest entries for one actor, resolved inside
// the caller's tenant only.
func (s *Service) AuditForActor(ctx context.Context, p Principal, actorID string, limit int) ([]audit.Entry, error) {
	if _, err := s.findInCompany(ctx, p, actorID); err != nil {
		return nil, err
	}
	if s.auditStore == nil {
		return nil, nil
	}
	return s.auditStore.RecentByActor(ctx, actorID, limit)
}

// findInCompany resolves a target inside the principal's tenant; anything
// else, including a cross-tenant hit, is a not-found.
func (s *Service) findInCompany(ctx context.Context, p Principal, id string) (*account.Account, error) {
	a, err := s.accounts.FindByID(ctx, strings.TrimSpace(id))
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if a.Company != p.Company {
		return nil, ErrNotFound
	}
	return a, nil
}

func (s *Service) profile(ctx context.Context, a *account.Account) account.Profile {
	var manager *account.Summary
	if a.ManagerID != "" {
		if m, err := s.accounts.FindByID(ctx, a.ManagerID); err == nil {
			manager = &account.Summary{ID: m.ID, Name: m.Name, Email: m.Email}
		}
	}
	return account.ProfileOf(a, manager)
}

func (s *Service) record(ctx context.Context, e audit.Entry) {
	s.recorder.Record(ctx, e)
}

func (s *Service) recordFailure(ctx context.Context, p Principal, action, targetID string, cause error) {
	s.recorder.Record(ctx, audit.Entry{
		Company:    p.Company,
		ActorID:    p.AccountID,
		Action:     action,
		TargetID:   targetID,
		TargetType: "account",
		Status:     audit.StatusFailure,
		Error:      cause.Error(),
	})
}

func (s *Service) send(ctx context.Context, msg mail.Message) {
	if s.mailer == nil {
		return
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		obs.LogError("mail dispatch failed", err, map[string]any{"to": msg.To, "subject": msg.Subject})
	}
}

// titleCase normalizes a display name word-by-word: first rune upper, rest
// lower.
func titleCase(name string) string {
	fields := strings.Fields(name)
	for i, f := range fields {
		runes := []rune(strings.ToLower(f))
		runes[0] = unicode.ToUpper(runes[0])
		fields[i] = string(runes)
	}
	return strings.Join(fields, " ")
}
