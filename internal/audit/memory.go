package audit

import (
	"context"
	"sync"

	"github.com/Owais-Raja/Optima-IDP-sub001/internal/ids"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps entries in process, newest last. Used when no database is
// configured and by tests.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = ids.New()
	}
	s.entries = append(s.entries, *e)
	return nil
}

func (s *MemoryStore) RecentByCompany(_ context.Context, company string, limit int) ([]Entry, error) {
	return s.filter(limit, func(e Entry) bool { return e.Company == company })
}

func (s *MemoryStore) RecentByActor(_ context.Context, actorID string, limit int) ([]Entry, error) {
	return s.filter(limit, func(e Entry) bool { return e.ActorID == actorID })
}

func (s *MemoryStore) filter(limit int, keep func(Entry) bool) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	limit = ClampLimit(limit)
	var res []Entry
	for i := len(s.entries) - 1; i >= 0 && len(res) < limit; i-- {
		if keep(s.entries[i]) {
			res = append(res, s.entries[i])
		}
	}
	return res, nil
}
