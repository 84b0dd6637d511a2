//go:build integration

package grant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"addongate/internal/access/models"
	"addongate/pkg/platform/sentinel"
	"addongate/pkg/requestcontext"
	"addongate/pkg/testutil/containers"
)

type RedisGrantStoreSuite struct {
	suite.Suite
	rd    *containers.RedisContainer
	store *RedisStore
}

func TestRedisGrantStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisGrantStoreSuite))
}

func (s *RedisGrantStoreSuite) SetupSuite() {
	s.rd = containers.NewRedisContainer(s.T())
	s.store = NewRedis(s.rd.Client)
}

func (s *RedisGrantStoreSuite) SetupTest() {
	s.Require().NoError(s.rd.Client.FlushDB(context.Background()).Err())
}

func (s *RedisGrantStoreSuite) TestWhitelistLifecycle() {
	ctx := context.Background()

	ok, err := s.store.IsWhitelisted(ctx, "nobody@x.com")
	s.NoError(err)
	s.False(ok)

	entry := models.WhitelistEntry{Identity: "a@x.com", AddedAt: time.Now().UTC(), AddedBy: "admin"}
	s.NoError(s.store.AddWhitelist(ctx, entry))

	ok, err = s.store.IsWhitelisted(ctx, "a@x.com")
	s.NoError(err)
	s.True(ok)

	s.ErrorIs(s.store.AddWhitelist(ctx, entry), sentinel.ErrConflict)

	entries, err := s.store.ListWhitelist(ctx)
	s.NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("a@x.com", entries[0].Identity)
}

func (s *RedisGrantStoreSuite) TestGrantExpiryBoundary() {
	base := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	grant, err := models.NewTemporalGrant("a@x.com", 24, "admin", base)
	s.Require().NoError(err)
	s.Require().NoError(s.store.AddGrant(context.Background(), grant))

	ctx := requestcontext.WithTime(context.Background(), base.Add(23*time.Hour))
	ok, err := s.store.HasActiveGrant(ctx, "a@x.com")
	s.NoError(err)
	s.True(ok)

	ctx = requestcontext.WithTime(context.Background(), base.Add(24*time.Hour))
	ok, err = s.store.HasActiveGrant(ctx, "a@x.com")
	s.NoError(err)
	s.False(ok)
}

func (s *RedisGrantStoreSuite) TestSweepExpired() {
	base := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	expired, err := models.NewTemporalGrant("a@x.com", 1, "admin", base)
	s.Require().NoError(err)
	active, err := models.NewTemporalGrant("b@x.com", 48, "admin", base)
	s.Require().NoError(err)
	s.Require().NoError(s.store.AddGrant(context.Background(), expired))
	s.Require().NoError(s.store.AddGrant(context.Background(), active))

	ctx := requestcontext.WithTime(context.Background(), base.Add(2*time.Hour))
	removed, err := s.store.SweepExpired(ctx)
	s.NoError(err)
	s.Equal(1, removed)

	grants, err := s.store.ListActiveGrants(ctx)
	s.NoError(err)
	s.Require().Len(grants, 1)
	s.Equal("b@x.com", grants[0].Identity)
}

func (s *RedisGrantStoreSuite) TestRemoveIdentity() {
	ctx := context.Background()
	base := time.Now().UTC()

	s.Require().NoError(s.store.AddWhitelist(ctx, models.WhitelistEntry{Identity: "a@x.com", AddedAt: base, AddedBy: "admin"}))
	grant, err := models.NewTemporalGrant("a@x.com", 24, "admin", base)
	s.Require().NoError(err)
	s.Require().NoError(s.store.AddGrant(ctx, grant))

	s.NoError(s.store.RemoveIdentity(ctx, "a@x.com"))

	ok, err := s.store.IsWhitelisted(ctx, "a@x.com")
	s.NoError(err)
	s.False(ok)
	ok, err = s.store.HasActiveGrant(ctx, "a@x.com")
	s.NoError(err)
	s.False(ok)

	s.NoError(s.store.RemoveIdentity(ctx, "a@x.com"))
}
