package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"addongate/internal/access/metrics"
	"addongate/internal/access/models"
	"addongate/internal/access/store/grant"
	"addongate/internal/access/store/ledger"
	dErrors "addongate/pkg/domain-errors"
	"addongate/pkg/email"
	"addongate/pkg/platform/audit"
	"addongate/pkg/platform/sentinel"
	"addongate/pkg/requestcontext"
)

// DefaultGrantHours applies when an approval does not specify a duration.
const DefaultGrantHours = 24

// DefaultDenialReason applies when a denial does not give one.
const DefaultDenialReason = "No reason provided"

// Admin performs the administrator transitions on requests, the whitelist
// and temporal grants.
type Admin struct {
	grants   grant.Store
	requests ledger.Store
	audit    audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewAdmin wires the administrator operations. A nil publisher disables
// auditing.
func NewAdmin(grants grant.Store, requests ledger.Store, publisher audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Admin {
	if publisher == nil {
		publisher = audit.Nop{}
	}
	return &Admin{
		grants:   grants,
		requests: requests,
		audit:    publisher,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("addongate/access/admin"),
	}
}

func translateTransitionErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "request not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeInvalidState, "request has already been decided")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "request transition failed")
	}
}

// ApprovePermanent moves a pending request to approved and whitelists its
// identity. An identity whitelisted in the meantime does not fail the
// approval.
func (a *Admin) ApprovePermanent(ctx context.Context, requestID string) (*models.PendingRequest, error) {
	ctx, span := a.tracer.Start(ctx, "access.admin.approve")
	defer span.End()

	req, err := a.requests.Transition(ctx, requestID, models.StatusApproved, "")
	if err != nil {
		return nil, translateTransitionErr(err)
	}

	actor := requestcontext.AdminActor(ctx)
	entry := models.WhitelistEntry{
		Identity: req.Identity,
		AddedAt:  requestcontext.Now(ctx),
		AddedBy:  actor,
	}
	if err := a.grants.AddWhitelist(ctx, entry); err != nil && !errors.Is(err, sentinel.ErrConflict) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "whitelist update failed")
	}

	span.SetAttributes(attribute.String("access.identity", req.Identity))
	a.metrics.RecordAdminTransition("approve")
	a.logger.Info("access request approved", "request_id", requestID, "identity", req.Identity, "actor", actor)
	a.audit.Emit(ctx, audit.Event{
		Category:  audit.CategoryOperations,
		Action:    audit.EventRequestApproved,
		Identity:  req.Identity,
		RequestID: requestID,
		Actor:     actor,
	})
	return req, nil
}

// ApproveTemporary moves a pending request to temp_approved and records a
// grant for the given duration, defaulting to DefaultGrantHours.
func (a *Admin) ApproveTemporary(ctx context.Context, requestID string, durationHours int) (*models.PendingRequest, models.TemporalGrant, error) {
	ctx, span := a.tracer.Start(ctx, "access.admin.approve_temporary")
	defer span.End()

	if durationHours == 0 {
		durationHours = DefaultGrantHours
	}
	actor := requestcontext.AdminActor(ctx)
	g, err := models.NewTemporalGrant("", durationHours, actor, requestcontext.Now(ctx))
	if err != nil {
		return nil, models.TemporalGrant{}, err
	}

	req, err := a.requests.Transition(ctx, requestID, models.StatusTempApproved, "")
	if err != nil {
		return nil, models.TemporalGrant{}, translateTransitionErr(err)
	}

	g.Identity = req.Identity
	if err := a.grants.AddGrant(ctx, g); err != nil {
		return nil, models.TemporalGrant{}, dErrors.Wrap(err, dErrors.CodeInternal, "grant could not be recorded")
	}

	span.SetAttributes(attribute.String("access.identity", req.Identity))
	a.metrics.RecordAdminTransition("approve_temporary")
	a.logger.Info("temporary access granted",
		"request_id", requestID,
		"identity", req.Identity,
		"duration_hours", durationHours,
		"expires_at", g.ExpiresAt,
		"actor", actor,
	)
	a.audit.Emit(ctx, audit.Event{
		Category:  audit.CategoryOperations,
		Action:    audit.EventTempGranted,
		Identity:  req.Identity,
		RequestID: requestID,
		Actor:     actor,
		Reason:    fmt.Sprintf("%dh", durationHours),
	})
	return req, g, nil
}

// Deny moves a pending request to denied. An empty reason becomes
// DefaultDenialReason.
func (a *Admin) Deny(ctx context.Context, requestID, reason string) (*models.PendingRequest, error) {
	ctx, span := a.tracer.Start(ctx, "access.admin.deny")
	defer span.End()

	if reason == "" {
		reason = DefaultDenialReason
	}
	req, err := a.requests.Transition(ctx, requestID, models.StatusDenied, reason)
	if err != nil {
		return nil, translateTransitionErr(err)
	}

	actor := requestcontext.AdminActor(ctx)
	a.metrics.RecordAdminTransition("deny")
	a.logger.Info("access request denied", "request_id", requestID, "identity", req.Identity, "reason", reason, "actor", actor)
	a.audit.Emit(ctx, audit.Event{
		Category:  audit.CategorySecurity,
		Action:    audit.EventRequestDenied,
		Identity:  req.Identity,
		RequestID: requestID,
		Actor:     actor,
		Reason:    reason,
	})
	return req, nil
}

// Whitelist adds an identity directly, outside the request flow. Adding an
// identity that is already present succeeds without change; the returned
// flag reports whether a new entry was created.
func (a *Admin) Whitelist(ctx context.Context, identity string) (string, bool, error) {
	normalized := email.Normalize(identity)
	if !email.IsValid(normalized) {
		return "", false, dErrors.New(dErrors.CodeValidation, "a valid email address is required")
	}

	actor := requestcontext.AdminActor(ctx)
	entry := models.WhitelistEntry{
		Identity: normalized,
		AddedAt:  requestcontext.Now(ctx),
		AddedBy:  actor,
	}
	err := a.grants.AddWhitelist(ctx, entry)
	if errors.Is(err, sentinel.ErrConflict) {
		return normalized, false, nil
	}
	if err != nil {
		return "", false, dErrors.Wrap(err, dErrors.CodeInternal, "whitelist update failed")
	}

	a.metrics.RecordAdminTransition("whitelist")
	a.logger.Info("identity whitelisted", "identity", normalized, "actor", actor)
	a.audit.Emit(ctx, audit.Event{
		Category: audit.CategoryOperations,
		Action:   audit.EventWhitelistAdded,
		Identity: normalized,
		Actor:    actor,
	})
	return normalized, true, nil
}

// Revoke removes every authorization for an identity: whitelist entry, all
// grants, and all ledger entries including the stored credentials. Revoking
// an unknown identity is a no-op.
func (a *Admin) Revoke(ctx context.Context, identity string) error {
	ctx, span := a.tracer.Start(ctx, "access.admin.revoke")
	defer span.End()

	normalized := email.Normalize(identity)
	if normalized == "" {
		return dErrors.New(dErrors.CodeValidation, "an email address is required")
	}

	if err := a.grants.RemoveIdentity(ctx, normalized); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "revocation failed")
	}
	purged, err := a.requests.PurgeByIdentity(ctx, normalized)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "revocation failed")
	}

	actor := requestcontext.AdminActor(ctx)
	a.metrics.RecordAdminTransition("revoke")
	a.logger.Info("identity revoked", "identity", normalized, "requests_purged", purged, "actor", actor)
	a.audit.Emit(ctx, audit.Event{
		Category: audit.CategorySecurity,
		Action:   audit.EventIdentityRevoked,
		Identity: normalized,
		Actor:    actor,
	})
	return nil
}

// ListWhitelist returns all whitelist entries.
func (a *Admin) ListWhitelist(ctx context.Context) ([]models.WhitelistEntry, error) {
	entries, err := a.grants.ListWhitelist(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "whitelist listing failed")
	}
	return entries, nil
}

// ListActiveGrants sweeps expired grants, then returns the remainder.
func (a *Admin) ListActiveGrants(ctx context.Context) ([]models.TemporalGrant, error) {
	if _, err := a.SweepExpired(ctx); err != nil {
		return nil, err
	}
	grants, err := a.grants.ListActiveGrants(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "grant listing failed")
	}
	return grants, nil
}

// ListRequests returns requests filtered by status, newest first. Stored
// credentials are redacted before the requests leave the service.
func (a *Admin) ListRequests(ctx context.Context, statuses ...models.RequestStatus) ([]*models.PendingRequest, error) {
	requests, err := a.requests.List(ctx, statuses...)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "request listing failed")
	}
	for _, req := range requests {
		if req.AssertedToken != "" {
			req.AssertedToken = models.RedactedCredential
		}
	}
	return requests, nil
}

// SweepExpired removes expired grants and reports how many were removed.
func (a *Admin) SweepExpired(ctx context.Context) (int, error) {
	removed, err := a.grants.SweepExpired(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "grant sweep failed")
	}
	if removed > 0 {
		a.metrics.RecordSwept(removed)
		a.logger.Info("expired grants removed", "count", removed)
		a.audit.Emit(ctx, audit.Event{
			Category: audit.CategoryOperations,
			Action:   audit.EventGrantsSwept,
			Reason:   fmt.Sprintf("%d removed", removed),
		})
	}
	return removed, nil
}
