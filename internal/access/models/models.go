// Package models holds the access-control domain entities: whitelist entries,
// temporal grants, pending requests, and the decision returned to callers.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	dErrors "addongate/pkg/domain-errors"
)

// RequestStatus is the closed set of states an access request moves through.
// Requests start pending and take exactly one transition to a terminal state.
type RequestStatus string

const (
	StatusPending      RequestStatus = "pending"
	StatusApproved     RequestStatus = "approved"
	StatusTempApproved RequestStatus = "temp_approved"
	StatusDenied       RequestStatus = "denied"
)

// ParseRequestStatus validates a status string read from storage or input.
func ParseRequestStatus(s string) (RequestStatus, error) {
	switch RequestStatus(s) {
	case StatusPending, StatusApproved, StatusTempApproved, StatusDenied:
		return RequestStatus(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown request status %q", s)
	}
}

// Terminal reports whether the status permits no further transitions.
func (s RequestStatus) Terminal() bool {
	return s != StatusPending
}

// CanTransitionTo reports whether moving to next is a legal transition.
// Transitions are not idempotent: re-approving an approved request is illegal.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	return s == StatusPending && next.Terminal()
}

// WhitelistEntry is a permanent authorization for an identity.
type WhitelistEntry struct {
	Identity string    `json:"email"`
	AddedAt  time.Time `json:"addedAt"`
	AddedBy  string    `json:"addedBy"`
}

// TemporalGrant is a time-bounded authorization. Multiple grants may coexist
// for one identity; any unexpired grant is sufficient for access.
type TemporalGrant struct {
	ID            uuid.UUID `json:"id"`
	Identity      string    `json:"email"`
	GrantedAt     time.Time `json:"grantedAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
	GrantedBy     string    `json:"grantedBy"`
	DurationHours int       `json:"duration"`
}

// NewTemporalGrant computes expiry at grant time; it is never re-derived.
func NewTemporalGrant(identity string, durationHours int, actor string, now time.Time) (TemporalGrant, error) {
	if durationHours <= 0 {
		return TemporalGrant{}, dErrors.New(dErrors.CodeValidation, "duration must be a positive number of hours")
	}
	return TemporalGrant{
		ID:            uuid.New(),
		Identity:      identity,
		GrantedAt:     now,
		ExpiresAt:     now.Add(time.Duration(durationHours) * time.Hour),
		GrantedBy:     actor,
		DurationHours: durationHours,
	}, nil
}

// ActiveAt reports whether the grant authorizes access at the given instant.
// Expiry is exclusive: a grant is inactive from expiresAt onward.
func (g TemporalGrant) ActiveAt(now time.Time) bool {
	return g.ExpiresAt.After(now)
}

// RedactedCredential replaces stored raw credentials in all admin read paths.
const RedactedCredential = "[REDACTED]"

// PendingRequest is a queued access decision awaiting administrator action.
type PendingRequest struct {
	RequestID      string        `json:"requestId"`
	Identity       string        `json:"email"`
	VerifiedUserID string        `json:"userId,omitempty"`
	AvatarURL      string        `json:"avatar,omitempty"`
	// AssertedToken is the raw credential presented at request time, kept for
	// admin review only. Never serialized to non-admin callers and redacted
	// in admin listings.
	AssertedToken string        `json:"-"`
	Verified      bool          `json:"verified"`
	RequestedAt   time.Time     `json:"requestedAt"`
	SourceAddress string        `json:"ipAddress"`
	UserAgent     string        `json:"userAgent"`
	ClientName    string        `json:"clientName,omitempty"`
	Status        RequestStatus `json:"status"`
	ApprovedAt    *time.Time    `json:"approvedAt,omitempty"`
	DeniedAt      *time.Time    `json:"deniedAt,omitempty"`
	DenialReason  string        `json:"denialReason,omitempty"`
}

// NewRequestID generates the opaque admin-facing handle for a request.
func NewRequestID() string {
	return fmt.Sprintf("req_%s", uuid.NewString())
}

// Clone returns a deep copy so in-memory stores never hand out aliased state.
func (r *PendingRequest) Clone() *PendingRequest {
	cp := *r
	if r.ApprovedAt != nil {
		t := *r.ApprovedAt
		cp.ApprovedAt = &t
	}
	if r.DeniedAt != nil {
		t := *r.DeniedAt
		cp.DeniedAt = &t
	}
	return &cp
}

// Outcome classifies the result of an access decision.
type Outcome string

const (
	OutcomeAuthorized          Outcome = "authorized"
	OutcomeAuthorizedTemporary Outcome = "authorized_temporary"
	OutcomePendingCreated      Outcome = "pending_created"
	OutcomePendingExisting     Outcome = "pending_existing"
	OutcomeDenied              Outcome = "denied"
)

// Decision is the result of evaluating one validation call.
type Decision struct {
	Outcome   Outcome
	Identity  string
	Verified  bool
	RequestID string
	Reason    string
}

// Authorized reports whether the decision grants access right now.
func (d Decision) Authorized() bool {
	return d.Outcome == OutcomeAuthorized || d.Outcome == OutcomeAuthorizedTemporary
}

// Temporary reports whether access came from a temporal grant.
func (d Decision) Temporary() bool {
	return d.Outcome == OutcomeAuthorizedTemporary
}

// Denial reasons surfaced to callers.
const (
	ReasonIdentityUnresolved = "identity unresolved"
	ReasonNoToken            = "no auth token provided"
	ReasonPendingExisting    = "access request pending approval"
	ReasonPendingCreated     = "access request submitted for approval"
)
