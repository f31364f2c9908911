package account

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Owais-Raja/Optima-IDP-sub001/internal/ids"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store used when no database is configured and
// by service-level tests. Semantics match PGStore, including the unique-email
// constraint and last-writer-wins session updates.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]*Account
	byEmail map[string]string
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]*Account),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, a *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[a.Email]; exists {
		return ErrDuplicateEmail
	}
	if a.ID == "" {
		a.ID = ids.New()
	}
	now := s.now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	cp := *a
	s.byID[a.ID] = &cp
	s.byEmail[a.Email] = a.ID
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *MemoryStore) FindByResetDigest(_ context.Context, digest string) (*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if digest == "" {
		return nil, ErrNotFound
	}
	for _, a := range s.byID {
		if a.ResetTokenDigest == digest {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListByCompany(_ context.Context, company string) ([]*Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []*Account
	for _, a := range s.byID {
		if a.Company == company {
			cp := *a
			res = append(res, &cp)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (s *MemoryStore) HasVerifiedAdmin(_ context.Context, company string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.byID {
		if a.Company == company && a.Role == RoleAdmin && a.IsVerified {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) UpdateName(_ context.Context, id, name string) error {
	return s.mutate(id, func(a *Account) {
		a.Name = name
	})
}

func (s *MemoryStore) SetRefreshToken(_ context.Context, id, token string, lastLogin time.Time) error {
	return s.mutate(id, func(a *Account) {
		a.RefreshToken = token
		a.LastLogin = lastLogin
	})
}

func (s *MemoryStore) ClearRefreshToken(_ context.Context, id string) error {
	return s.mutate(id, func(a *Account) {
		a.RefreshToken = ""
	})
}

func (s *MemoryStore) SetResetToken(_ context.Context, id, digest string, expires time.Time) error {
	return s.mutate(id, func(a *Account) {
		a.ResetTokenDigest = digest
		a.ResetExpires = expires
	})
}

func (s *MemoryStore) ResetPassword(_ context.Context, id, passwordHash string) error {
	return s.mutate(id, func(a *Account) {
		a.PasswordHash = passwordHash
		a.ResetTokenDigest = ""
		a.ResetExpires = time.Time{}
		a.RefreshToken = ""
	})
}

func (s *MemoryStore) SetVerified(_ context.Context, id string, verified bool) error {
	return s.mutate(id, func(a *Account) {
		a.IsVerified = verified
	})
}

func (s *MemoryStore) SetRole(_ context.Context, id string, role Role) error {
	return s.mutate(id, func(a *Account) {
		a.Role = role
	})
}

func (s *MemoryStore) mutate(id string, fn func(*Account)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	fn(a)
	a.UpdatedAt = s.now().UTC()
	return nil
}
