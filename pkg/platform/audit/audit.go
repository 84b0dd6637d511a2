// Package audit defines the audit event model and publisher contract.
// Domain logic emits events; sinks (Kafka, log-only) fan them out.
package audit

import "context"

// EventCategory classifies audit events by their primary purpose.
type EventCategory string

const (
	// CategorySecurity covers events relevant to security monitoring:
	// denied validations, admin credential rejections, revocations.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine visibility events: decisions,
	// approvals, sweeps.
	CategoryOperations EventCategory = "operations"
)

// Event captures a single auditable action. Keep it transport-agnostic so
// sinks can fan out without knowing about HTTP or storage.
type Event struct {
	Category  EventCategory `json:"category"`
	Action    string        `json:"action"`
	Identity  string        `json:"identity,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
	// Actor is the administrator who performed the action, for admin events.
	Actor    string `json:"actor,omitempty"`
	Decision string `json:"decision,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Actions emitted by the access service.
const (
	EventAccessDecided    = "access_decided"
	EventRequestCreated   = "access_request_created"
	EventRequestApproved  = "access_request_approved"
	EventTempGranted      = "temp_access_granted"
	EventRequestDenied    = "access_request_denied"
	EventWhitelistAdded   = "whitelist_added"
	EventIdentityRevoked  = "identity_revoked"
	EventGrantsSwept      = "expired_grants_swept"
	EventVerifierDegraded = "verifier_degraded"
)

// Publisher emits audit events. Implementations must be safe for concurrent
// use and must never block the request path on sink failures.
type Publisher interface {
	Emit(ctx context.Context, event Event)
}

// Nop discards all events. Used when no broker is configured and in tests.
type Nop struct{}

func (Nop) Emit(context.Context, Event) {}
