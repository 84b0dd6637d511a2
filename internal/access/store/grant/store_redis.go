package grant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"addongate/internal/access/models"
	"addongate/pkg/platform/sentinel"
	"addongate/pkg/requestcontext"
)

const (
	whitelistKey       = "addongate:whitelist"
	grantIdentitiesKey = "addongate:grant_identities"
	grantKeyPrefix     = "addongate:grants:"
)

// RedisStore shares grant state across instances. Grants live in per-identity
// sorted sets scored by expiry so activity checks and sweeps are range
// queries; the whitelist is a single hash keyed by identity.
type RedisStore struct {
	client *redis.Client
}

// NewRedis constructs a Redis-backed grant store.
func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func grantKey(identity string) string {
	return grantKeyPrefix + identity
}

func (s *RedisStore) IsWhitelisted(ctx context.Context, identity string) (bool, error) {
	ok, err := s.client.HExists(ctx, whitelistKey, identity).Result()
	if err != nil {
		return false, fmt.Errorf("check whitelist: %w", err)
	}
	return ok, nil
}

func (s *RedisStore) AddWhitelist(ctx context.Context, entry models.WhitelistEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode whitelist entry: %w", err)
	}
	created, err := s.client.HSetNX(ctx, whitelistKey, entry.Identity, payload).Result()
	if err != nil {
		return fmt.Errorf("add whitelist entry: %w", err)
	}
	if !created {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisStore) ListWhitelist(ctx context.Context) ([]models.WhitelistEntry, error) {
	values, err := s.client.HGetAll(ctx, whitelistKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list whitelist: %w", err)
	}
	entries := make([]models.WhitelistEntry, 0, len(values))
	for _, raw := range values {
		var e models.WhitelistEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("decode whitelist entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *RedisStore) HasActiveGrant(ctx context.Context, identity string) (bool, error) {
	now := requestcontext.Now(ctx)
	// Score is expiry in unix seconds; "(now" keeps the bound exclusive so a
	// grant is inactive exactly at expiresAt.
	count, err := s.client.ZCount(ctx, grantKey(identity), fmt.Sprintf("(%d", now.Unix()), "+inf").Result()
	if err != nil {
		return false, fmt.Errorf("check active grant: %w", err)
	}
	return count > 0, nil
}

func (s *RedisStore) AddGrant(ctx context.Context, g models.TemporalGrant) error {
	payload, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode grant: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, grantKey(g.Identity), redis.Z{
		Score:  float64(g.ExpiresAt.Unix()),
		Member: payload,
	})
	pipe.SAdd(ctx, grantIdentitiesKey, g.Identity)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("add grant: %w", err)
	}
	return nil
}

func (s *RedisStore) ListActiveGrants(ctx context.Context) ([]models.TemporalGrant, error) {
	now := requestcontext.Now(ctx)
	identities, err := s.client.SMembers(ctx, grantIdentitiesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list grant identities: %w", err)
	}

	var grants []models.TemporalGrant
	for _, identity := range identities {
		raws, err := s.client.ZRangeByScore(ctx, grantKey(identity), &redis.ZRangeBy{
			Min: fmt.Sprintf("(%d", now.Unix()),
			Max: "+inf",
		}).Result()
		if err != nil {
			return nil, fmt.Errorf("list grants for %s: %w", identity, err)
		}
		for _, raw := range raws {
			var g models.TemporalGrant
			if err := json.Unmarshal([]byte(raw), &g); err != nil {
				return nil, fmt.Errorf("decode grant: %w", err)
			}
			grants = append(grants, g)
		}
	}
	return grants, nil
}

func (s *RedisStore) RemoveIdentity(ctx context.Context, identity string) error {
	pipe := s.client.TxPipeline()
	pipe.HDel(ctx, whitelistKey, identity)
	pipe.Del(ctx, grantKey(identity))
	pipe.SRem(ctx, grantIdentitiesKey, identity)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove identity: %w", err)
	}
	return nil
}

func (s *RedisStore) SweepExpired(ctx context.Context) (int, error) {
	now := requestcontext.Now(ctx)
	identities, err := s.client.SMembers(ctx, grantIdentitiesKey).Result()
	if err != nil {
		return 0, fmt.Errorf("list grant identities: %w", err)
	}

	removed := 0
	for _, identity := range identities {
		n, err := s.client.ZRemRangeByScore(ctx, grantKey(identity), "-inf", fmt.Sprintf("%d", now.Unix())).Result()
		if err != nil {
			return removed, fmt.Errorf("sweep grants for %s: %w", identity, err)
		}
		removed += int(n)

		remaining, err := s.client.ZCard(ctx, grantKey(identity)).Result()
		if err != nil {
			return removed, fmt.Errorf("sweep grants for %s: %w", identity, err)
		}
		if remaining == 0 {
			_ = s.client.SRem(ctx, grantIdentitiesKey, identity).Err()
		}
	}
	return removed, nil
}
