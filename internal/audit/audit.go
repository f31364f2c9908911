// Package audit provides the append-only side channel recording privileged
// actions. Writes degrade gracefully: a failed append is logged and dropped,
// never unwinding the action that triggered it.
package audit

import (
	"context"
	"strings"
	"time"

	"github.com/Owais-Raja/Optima-IDP-sub001/internal/obs"
)

// Closed set of privileged actions worth a trail.
const (
	ActionAdminBootstrap = "account.admin_bootstrap"
	ActionApprove        = "account.approve"
	ActionRoleChange     = "account.role_change"
	ActionPasswordReset  = "account.password_reset"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Entry is one append-only record. Entries are written exactly once per
// privileged action attempt and never mutated or deleted.
type Entry struct {
	ID         string    `json:"id"`
	Company    string    `json:"company"`
	ActorID    string    `json:"actorId"`
	Action     string    `json:"action"`
	TargetID   string    `json:"targetId,omitempty"`
	TargetType string    `json:"targetType,omitempty"`
	Details    string    `json:"details,omitempty"`
	IP         string    `json:"ip,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	Status     string    `json:"status"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Store persists entries. Reads are simple sorted/limited queries.
type Store interface {
	Append(ctx context.Context, e *Entry) error
	RecentByCompany(ctx context.Context, company string, limit int) ([]Entry, error)
	RecentByActor(ctx context.Context, actorID string, limit int) ([]Entry, error)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// ClampLimit normalizes a caller-supplied page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

type metaKey struct{}

type requestMeta struct {
	ip        string
	userAgent string
}

// WithRequestMeta attaches requester IP and user agent to the context so the
// recorder can stamp them without handlers threading them explicitly.
func WithRequestMeta(ctx context.Context, ip, userAgent string) context.Context {
	return context.WithValue(ctx, metaKey{}, requestMeta{ip: strings.TrimSpace(ip), userAgent: strings.TrimSpace(userAgent)})
}

func metaFromContext(ctx context.Context) (requestMeta, bool) {
	if ctx == nil {
		return requestMeta{}, false
	}
	m, ok := ctx.Value(metaKey{}).(requestMeta)
	return m, ok
}

// Recorder wraps a Store with the graceful-degradation contract.
type Recorder struct {
	store Store
	now   func() time.Time
}

// NewRecorder constructs a Recorder. A nil store yields a recorder that
// drops everything, which keeps callers unconditional.
func NewRecorder(store Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// WithClock overrides the time source for tests.
func (r *Recorder) WithClock(fn func() time.Time) *Recorder {
	if fn != nil {
		r.now = fn
	}
	return r
}

// Record appends an entry, filling timestamps and request metadata from the
// context. Failures are logged server-side and swallowed.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if r == nil || r.store == nil {
		return
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now().UTC()
	}
	if e.Status == "" {
		e.Status = StatusSuccess
	}
	if m, ok := metaFromContext(ctx); ok {
		if e.IP == "" {
			e.IP = m.ip
		}
		if e.UserAgent == "" {
			e.UserAgent = m.userAgent
		}
	}
	if err := r.store.Append(ctx, &e); err != nil {
		obs.LogError("audit append failed", err, map[string]any{
			"action": e.Action,
			"actor":  e.ActorID,
		})
	}
}
