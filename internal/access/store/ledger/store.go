// Package ledger persists the access-request queue and its status history.
package ledger

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"

	"addongate/internal/access/models"
)

// Store owns PendingRequest lifecycle. At most one pending request may exist
// per identity; implementations enforce this at the storage layer.
//
// Error contract:
// - CreatePending returns sentinel.ErrConflict when a pending request for
//   the identity already exists
// - FindByID and Transition return sentinel.ErrNotFound for unknown IDs
// - Transition returns sentinel.ErrInvalidState when the request is no
//   longer pending
// - infrastructure failures are returned wrapped
type Store interface {
	// FindPendingByIdentity returns the open request for identity, or
	// (nil, nil) when there is none.
	FindPendingByIdentity(ctx context.Context, identity string) (*models.PendingRequest, error)

	CreatePending(ctx context.Context, req *models.PendingRequest) error

	FindByID(ctx context.Context, requestID string) (*models.PendingRequest, error)

	// Transition atomically moves a pending request to the terminal status
	// next, recording the decision timestamp from requestcontext.Now(ctx)
	// and, for denials, the reason. It returns the updated request.
	Transition(ctx context.Context, requestID string, next models.RequestStatus, reason string) (*models.PendingRequest, error)

	// List returns requests filtered by status, newest first. No statuses
	// means all requests.
	List(ctx context.Context, statuses ...models.RequestStatus) ([]*models.PendingRequest, error)

	// PurgeByIdentity deletes every request for identity, pending or
	// terminal, and reports how many were removed. Idempotent.
	PurgeByIdentity(ctx context.Context, identity string) (int, error)
}
