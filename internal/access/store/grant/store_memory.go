package grant

import (
	"context"
	"sort"
	"sync"

	"addongate/internal/access/models"
	"addongate/pkg/platform/sentinel"
	"addongate/pkg/requestcontext"
)

// InMemoryStore keeps whitelist and grants in maps. Default store for tests
// and single-node deployments without Postgres or Redis configured.
type InMemoryStore struct {
	mu        sync.RWMutex
	whitelist map[string]models.WhitelistEntry
	grants    map[string][]models.TemporalGrant
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		whitelist: make(map[string]models.WhitelistEntry),
		grants:    make(map[string][]models.TemporalGrant),
	}
}

func (s *InMemoryStore) IsWhitelisted(_ context.Context, identity string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.whitelist[identity]
	return ok, nil
}

func (s *InMemoryStore) AddWhitelist(_ context.Context, entry models.WhitelistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.whitelist[entry.Identity]; ok {
		return sentinel.ErrConflict
	}
	s.whitelist[entry.Identity] = entry
	return nil
}

func (s *InMemoryStore) ListWhitelist(_ context.Context) ([]models.WhitelistEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]models.WhitelistEntry, 0, len(s.whitelist))
	for _, entry := range s.whitelist {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Identity < entries[j].Identity })
	return entries, nil
}

func (s *InMemoryStore) HasActiveGrant(ctx context.Context, identity string) (bool, error) {
	now := requestcontext.Now(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.grants[identity] {
		if g.ActiveAt(now) {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryStore) AddGrant(_ context.Context, g models.TemporalGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[g.Identity] = append(s.grants[g.Identity], g)
	return nil
}

func (s *InMemoryStore) ListActiveGrants(ctx context.Context) ([]models.TemporalGrant, error) {
	now := requestcontext.Now(ctx)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active []models.TemporalGrant
	for _, grants := range s.grants {
		for _, g := range grants {
			if g.ActiveAt(now) {
				active = append(active, g)
			}
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ExpiresAt.Before(active[j].ExpiresAt) })
	return active, nil
}

func (s *InMemoryStore) RemoveIdentity(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.whitelist, identity)
	delete(s.grants, identity)
	return nil
}

func (s *InMemoryStore) SweepExpired(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for identity, grants := range s.grants {
		kept := grants[:0]
		for _, g := range grants {
			if g.ActiveAt(now) {
				kept = append(kept, g)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(s.grants, identity)
		} else {
			s.grants[identity] = kept
		}
	}
	return removed, nil
}
