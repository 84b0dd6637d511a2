// Package grant persists permanent whitelist entries and temporal grants.
package grant

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"

	"addongate/internal/access/models"
)

// Store owns WhitelistEntry and TemporalGrant lifecycle. Implementations use
// requestcontext.Now(ctx) for expiry evaluation so tests can inject time.
//
// Error contract:
// - AddWhitelist returns sentinel.ErrConflict when the identity is present
// - all other methods return nil for absent identities (reads report false /
//   empty, removals are idempotent)
// - infrastructure failures are returned wrapped
type Store interface {
	IsWhitelisted(ctx context.Context, identity string) (bool, error)
	AddWhitelist(ctx context.Context, entry models.WhitelistEntry) error
	ListWhitelist(ctx context.Context) ([]models.WhitelistEntry, error)

	HasActiveGrant(ctx context.Context, identity string) (bool, error)
	AddGrant(ctx context.Context, g models.TemporalGrant) error
	ListActiveGrants(ctx context.Context) ([]models.TemporalGrant, error)

	// RemoveIdentity removes the whitelist entry and all grants for identity.
	RemoveIdentity(ctx context.Context, identity string) error

	// SweepExpired removes grants with expiresAt <= now and reports how many
	// were removed.
	SweepExpired(ctx context.Context) (int, error)
}
