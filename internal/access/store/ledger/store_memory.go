package ledger

import (
	"context"
	"sort"
	"sync"

	"addongate/internal/access/models"
	"addongate/pkg/platform/sentinel"
	"addongate/pkg/requestcontext"
)

// InMemoryStore keeps requests in maps guarded by one mutex. The pending
// index gives the per-identity uniqueness check without scanning.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*models.PendingRequest
	pending  map[string]string // identity -> requestID of the open request
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		requests: make(map[string]*models.PendingRequest),
		pending:  make(map[string]string),
	}
}

func (s *InMemoryStore) FindPendingByIdentity(_ context.Context, identity string) (*models.PendingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.pending[identity]
	if !ok {
		return nil, nil
	}
	return s.requests[id].Clone(), nil
}

func (s *InMemoryStore) CreatePending(_ context.Context, req *models.PendingRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[req.Identity]; ok {
		return sentinel.ErrConflict
	}
	s.requests[req.RequestID] = req.Clone()
	s.pending[req.Identity] = req.RequestID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, requestID string) (*models.PendingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return req.Clone(), nil
}

func (s *InMemoryStore) Transition(ctx context.Context, requestID string, next models.RequestStatus, reason string) (*models.PendingRequest, error) {
	now := requestcontext.Now(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !req.Status.CanTransitionTo(next) {
		return nil, sentinel.ErrInvalidState
	}

	req.Status = next
	switch next {
	case models.StatusDenied:
		req.DeniedAt = &now
		req.DenialReason = reason
	default:
		req.ApprovedAt = &now
	}
	delete(s.pending, req.Identity)
	return req.Clone(), nil
}

func (s *InMemoryStore) List(_ context.Context, statuses ...models.RequestStatus) ([]*models.PendingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[models.RequestStatus]bool, len(statuses))
	for _, st := range statuses {
		wanted[st] = true
	}

	var out []*models.PendingRequest
	for _, req := range s.requests {
		if len(wanted) > 0 && !wanted[req.Status] {
			continue
		}
		out = append(out, req.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestedAt.After(out[j].RequestedAt) })
	return out, nil
}

func (s *InMemoryStore) PurgeByIdentity(_ context.Context, identity string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, req := range s.requests {
		if req.Identity == identity {
			delete(s.requests, id)
			removed++
		}
	}
	delete(s.pending, identity)
	return removed, nil
}
