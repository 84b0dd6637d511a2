// Package verifier wraps the external identity provider and the degraded
// fallback path used when the provider cannot be reached.
package verifier

//go:generate mockgen -source=verifier.go -destination=mocks/mocks.go -package=mocks Verifier

import "context"

// Result is the outcome of a verification attempt. Verified is false on any
// provider or transport failure; the adapter never returns an error to the
// decision path.
type Result struct {
	Verified  bool
	Identity  string
	UserID    string
	AvatarURL string
}

// Verifier resolves a raw credential to a verified identity.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) Result
}
