package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"addongate/internal/access/models"
	"addongate/pkg/platform/sentinel"
	"addongate/pkg/requestcontext"
)

type InMemoryLedgerSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestInMemoryLedgerSuite(t *testing.T) {
	suite.Run(t, new(InMemoryLedgerSuite))
}

func (s *InMemoryLedgerSuite) SetupTest() {
	s.store = NewInMemory()
}

func newPending(identity string) *models.PendingRequest {
	return &models.PendingRequest{
		RequestID:     models.NewRequestID(),
		Identity:      identity,
		AssertedToken: "tok-" + identity,
		RequestedAt:   time.Now().UTC(),
		SourceAddress: "203.0.113.7",
		UserAgent:     "test-agent",
		Status:        models.StatusPending,
	}
}

func (s *InMemoryLedgerSuite) TestCreateAndFind() {
	ctx := context.Background()
	req := newPending("a@x.com")
	s.Require().NoError(s.store.CreatePending(ctx, req))

	found, err := s.store.FindPendingByIdentity(ctx, "a@x.com")
	s.NoError(err)
	s.Require().NotNil(found)
	s.Equal(req.RequestID, found.RequestID)

	byID, err := s.store.FindByID(ctx, req.RequestID)
	s.NoError(err)
	s.Equal(req.Identity, byID.Identity)

	none, err := s.store.FindPendingByIdentity(ctx, "other@x.com")
	s.NoError(err)
	s.Nil(none)

	_, err = s.store.FindByID(ctx, "req_missing")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryLedgerSuite) TestSecondPendingConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.CreatePending(ctx, newPending("a@x.com")))
	s.ErrorIs(s.store.CreatePending(ctx, newPending("a@x.com")), sentinel.ErrConflict)
}

func (s *InMemoryLedgerSuite) TestTransition() {
	decided := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), decided)

	s.Run("approve records timestamp and frees the identity", func() {
		req := newPending("approve@x.com")
		s.Require().NoError(s.store.CreatePending(ctx, req))

		updated, err := s.store.Transition(ctx, req.RequestID, models.StatusApproved, "")
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, updated.Status)
		s.Require().NotNil(updated.ApprovedAt)
		s.True(updated.ApprovedAt.Equal(decided))

		open, err := s.store.FindPendingByIdentity(ctx, "approve@x.com")
		s.NoError(err)
		s.Nil(open)
	})

	s.Run("deny records reason", func() {
		req := newPending("deny@x.com")
		s.Require().NoError(s.store.CreatePending(ctx, req))

		updated, err := s.store.Transition(ctx, req.RequestID, models.StatusDenied, "not invited")
		s.Require().NoError(err)
		s.Equal(models.StatusDenied, updated.Status)
		s.Equal("not invited", updated.DenialReason)
		s.Require().NotNil(updated.DeniedAt)
	})

	s.Run("second transition is rejected", func() {
		req := newPending("twice@x.com")
		s.Require().NoError(s.store.CreatePending(ctx, req))
		_, err := s.store.Transition(ctx, req.RequestID, models.StatusApproved, "")
		s.Require().NoError(err)

		_, err = s.store.Transition(ctx, req.RequestID, models.StatusDenied, "late")
		s.ErrorIs(err, sentinel.ErrInvalidState)
	})

	s.Run("unknown request", func() {
		_, err := s.store.Transition(ctx, "req_missing", models.StatusApproved, "")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryLedgerSuite) TestConcurrentTransitionsOneWinner() {
	ctx := context.Background()
	req := newPending("race@x.com")
	s.Require().NoError(s.store.CreatePending(ctx, req))

	const attempts = 16
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			next := models.StatusApproved
			if i%2 == 1 {
				next = models.StatusDenied
			}
			_, errs[i] = s.store.Transition(ctx, req.RequestID, next, "raced")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			s.ErrorIs(err, sentinel.ErrInvalidState)
		}
	}
	s.Equal(1, succeeded)
}

func (s *InMemoryLedgerSuite) TestList() {
	ctx := context.Background()

	first := newPending("a@x.com")
	first.RequestedAt = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	second := newPending("b@x.com")
	second.RequestedAt = time.Date(2024, 6, 15, 11, 0, 0, 0, time.UTC)
	s.Require().NoError(s.store.CreatePending(ctx, first))
	s.Require().NoError(s.store.CreatePending(ctx, second))
	_, err := s.store.Transition(ctx, first.RequestID, models.StatusDenied, "no")
	s.Require().NoError(err)

	all, err := s.store.List(ctx)
	s.NoError(err)
	s.Require().Len(all, 2)
	s.Equal(second.RequestID, all[0].RequestID, "newest first")

	pending, err := s.store.List(ctx, models.StatusPending)
	s.NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(second.RequestID, pending[0].RequestID)

	terminal, err := s.store.List(ctx, models.StatusApproved, models.StatusDenied)
	s.NoError(err)
	s.Require().Len(terminal, 1)
	s.Equal(first.RequestID, terminal[0].RequestID)
}

func (s *InMemoryLedgerSuite) TestPurgeByIdentity() {
	ctx := context.Background()

	old := newPending("a@x.com")
	s.Require().NoError(s.store.CreatePending(ctx, old))
	_, err := s.store.Transition(ctx, old.RequestID, models.StatusApproved, "")
	s.Require().NoError(err)
	s.Require().NoError(s.store.CreatePending(ctx, newPending("a@x.com")))
	s.Require().NoError(s.store.CreatePending(ctx, newPending("b@x.com")))

	removed, err := s.store.PurgeByIdentity(ctx, "a@x.com")
	s.NoError(err)
	s.Equal(2, removed)

	open, err := s.store.FindPendingByIdentity(ctx, "a@x.com")
	s.NoError(err)
	s.Nil(open)

	removed, err = s.store.PurgeByIdentity(ctx, "a@x.com")
	s.NoError(err)
	s.Equal(0, removed)

	other, err := s.store.FindPendingByIdentity(ctx, "b@x.com")
	s.NoError(err)
	s.NotNil(other)
}

func (s *InMemoryLedgerSuite) TestReturnedRequestsAreCopies() {
	ctx := context.Background()
	req := newPending("a@x.com")
	s.Require().NoError(s.store.CreatePending(ctx, req))

	found, err := s.store.FindByID(ctx, req.RequestID)
	s.Require().NoError(err)
	found.Status = models.StatusDenied

	again, err := s.store.FindByID(ctx, req.RequestID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, again.Status)
}
