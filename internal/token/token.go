// Package token mints and validates the two disjoint classes of bearer
// tokens: short-lived access tokens carrying identity claims and long-lived
// refresh tokens carrying only the account id. Revocation is not a signature
// concern: refresh tokens are revoked by the database-matching check in the
// auth service, and access tokens stay valid for their full lifetime.
package token

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour

	defaultIssuer = "optima-idp"
)

// ErrInvalidToken covers bad signatures, malformed tokens and expiry alike;
// callers must not be able to distinguish them.
var ErrInvalidToken = errors.New("token: invalid or expired token")

// AccessClaims is the access token claim set. The account id is duplicated
// under two key names for backward-compatible consumers of the previous API.
type AccessClaims struct {
	AccountID string `json:"id"`
	UserID    string `json:"userId"`
	Role      string `json:"role"`
	Company   string `json:"company"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	AccountID string `json:"id"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies both token classes. The refresh secret falls back
// to the access secret when not configured separately.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// Option configures Issuer behavior.
type Option func(*Issuer)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(i *Issuer) {
		if ttl > 0 {
			i.accessTTL = ttl
		}
	}
}

// WithRefreshTTL overrides the refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(i *Issuer) {
		if ttl > 0 {
			i.refreshTTL = ttl
		}
	}
}

// WithIssuerName overrides the iss claim.
func WithIssuerName(name string) Option {
	return func(i *Issuer) {
		if strings.TrimSpace(name) != "" {
			i.issuer = strings.TrimSpace(name)
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(i *Issuer) {
		if fn != nil {
			i.now = fn
		}
	}
}

// NewIssuer constructs an Issuer. accessSecret is required; refreshSecret may
// be empty, in which case the access secret signs both classes.
func NewIssuer(accessSecret, refreshSecret string, opts ...Option) (*Issuer, error) {
	accessSecret = strings.TrimSpace(accessSecret)
	if accessSecret == "" {
		return nil, errors.New("token: access secret is required")
	}
	refreshSecret = strings.TrimSpace(refreshSecret)
	if refreshSecret == "" {
		refreshSecret = accessSecret
	}
	i := &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     DefaultAccessTTL,
		refreshTTL:    DefaultRefreshTTL,
		issuer:        defaultIssuer,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// IssueAccess signs an access token for the given identity.
func (i *Issuer) IssueAccess(accountID, role, company string) (string, time.Time, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", time.Time{}, errors.New("token: account id is required")
	}
	now := i.now().UTC()
	exp := now.Add(i.accessTTL)
	claims := AccessClaims{
		AccountID: accountID,
		UserID:    accountID,
		Role:      role,
		Company:   company,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.accessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssueRefresh signs a refresh token carrying only the account id.
func (i *Issuer) IssueRefresh(accountID string) (string, time.Time, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", time.Time{}, errors.New("token: account id is required")
	}
	now := i.now().UTC()
	exp := now.Add(i.refreshTTL)
	claims := refreshClaims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.refreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// VerifyAccess validates an access token and returns its claims.
func (i *Issuer) VerifyAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.verify(raw, claims, i.accessSecret); err != nil {
		return nil, err
	}
	if claims.AccountID == "" {
		// Tolerate tokens minted before the id claim was duplicated.
		claims.AccountID = claims.UserID
	}
	if claims.AccountID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefresh validates a refresh token and returns the embedded account
// id. Whether the token is still the active one for that account is decided
// by the caller against the stored copy.
func (i *Issuer) VerifyRefresh(raw string) (string, error) {
	claims := &refreshClaims{}
	if err := i.verify(raw, claims, i.refreshSecret); err != nil {
		return "", err
	}
	if claims.AccountID == "" {
		return "", ErrInvalidToken
	}
	return claims.AccountID, nil
}

func (i *Issuer) verify(raw string, claims jwt.Claims, secret []byte) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(raw, claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithIssuer(i.issuer),
	)
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}
