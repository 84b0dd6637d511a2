// Package service implements the access decision flow and the administrator
// operations that act on it.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mssola/useragent"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"addongate/internal/access/metrics"
	"addongate/internal/access/models"
	"addongate/internal/access/store/grant"
	"addongate/internal/access/store/ledger"
	"addongate/internal/access/verifier"
	dErrors "addongate/pkg/domain-errors"
	"addongate/pkg/email"
	"addongate/pkg/platform/audit"
	"addongate/pkg/platform/sentinel"
	"addongate/pkg/requestcontext"
)

// Engine evaluates access for one presented credential. Checks run in a fixed
// order: whitelist, then temporal grants, then the request queue.
type Engine struct {
	grants   grant.Store
	requests ledger.Store
	verifier verifier.Verifier
	audit    audit.Publisher
	metrics  *metrics.Metrics
	logger   *slog.Logger
	tracer   trace.Tracer
	locks    *identityLocks
}

// NewEngine wires the decision flow. A nil publisher disables auditing.
func NewEngine(grants grant.Store, requests ledger.Store, v verifier.Verifier, publisher audit.Publisher, m *metrics.Metrics, logger *slog.Logger) *Engine {
	if publisher == nil {
		publisher = audit.Nop{}
	}
	return &Engine{
		grants:   grants,
		requests: requests,
		verifier: v,
		audit:    publisher,
		metrics:  m,
		logger:   logger,
		tracer:   otel.Tracer("addongate/access"),
		locks:    newIdentityLocks(),
	}
}

// DecideInput carries the credential presented on a validation call.
type DecideInput struct {
	RawToken string
	// AssertedIdentity is the email the client claims; only trusted when it
	// survives validation and the provider could not resolve the token.
	AssertedIdentity string
}

// Decide evaluates one validation call and returns the outcome. Storage
// failures surface as errors; an unresolvable identity is a denial, not an
// error.
func (e *Engine) Decide(ctx context.Context, in DecideInput) (models.Decision, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "access.decide")
	defer span.End()

	if in.RawToken == "" {
		return e.finish(ctx, span, start, models.Decision{
			Outcome: models.OutcomeDenied,
			Reason:  models.ReasonNoToken,
		}), nil
	}

	verifyStart := time.Now()
	result := e.verifier.Verify(ctx, in.RawToken)
	e.metrics.ObserveVerify(verifyStart)

	identity := ""
	if result.Verified {
		identity = email.Normalize(result.Identity)
	} else if fallback, ok := verifier.FallbackIdentity(in.RawToken, in.AssertedIdentity); ok {
		identity = fallback
		e.audit.Emit(ctx, audit.Event{
			Category: audit.CategoryOperations,
			Action:   audit.EventVerifierDegraded,
			Identity: identity,
		})
	}
	if identity == "" {
		return e.finish(ctx, span, start, models.Decision{
			Outcome: models.OutcomeDenied,
			Reason:  models.ReasonIdentityUnresolved,
		}), nil
	}
	span.SetAttributes(attribute.Bool("access.verified", result.Verified))

	// The provider call stays outside this critical section; only the
	// check-then-create window is serialized.
	release := e.locks.acquire(identity)
	defer release()

	whitelisted, err := e.grants.IsWhitelisted(ctx, identity)
	if err != nil {
		return models.Decision{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "access check failed")
	}
	if whitelisted {
		return e.finish(ctx, span, start, models.Decision{
			Outcome:  models.OutcomeAuthorized,
			Identity: identity,
			Verified: result.Verified,
		}), nil
	}

	granted, err := e.grants.HasActiveGrant(ctx, identity)
	if err != nil {
		return models.Decision{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "access check failed")
	}
	if granted {
		return e.finish(ctx, span, start, models.Decision{
			Outcome:  models.OutcomeAuthorizedTemporary,
			Identity: identity,
			Verified: result.Verified,
		}), nil
	}

	existing, err := e.requests.FindPendingByIdentity(ctx, identity)
	if err != nil {
		return models.Decision{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "access check failed")
	}
	if existing != nil {
		return e.finish(ctx, span, start, models.Decision{
			Outcome:   models.OutcomePendingExisting,
			Identity:  identity,
			Verified:  result.Verified,
			RequestID: existing.RequestID,
			Reason:    models.ReasonPendingExisting,
		}), nil
	}

	req := e.buildRequest(ctx, in, result, identity)
	if err := e.requests.CreatePending(ctx, req); err != nil {
		// A raced create on another instance still yields the existing
		// request rather than an error.
		if errors.Is(err, sentinel.ErrConflict) {
			raced, findErr := e.requests.FindPendingByIdentity(ctx, identity)
			if findErr == nil && raced != nil {
				return e.finish(ctx, span, start, models.Decision{
					Outcome:   models.OutcomePendingExisting,
					Identity:  identity,
					Verified:  result.Verified,
					RequestID: raced.RequestID,
					Reason:    models.ReasonPendingExisting,
				}), nil
			}
		}
		return models.Decision{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "access request could not be recorded")
	}

	e.logger.Info("access request created",
		"identity", identity,
		"request_id", req.RequestID,
		"verified", result.Verified,
	)
	e.audit.Emit(ctx, audit.Event{
		Category:  audit.CategoryOperations,
		Action:    audit.EventRequestCreated,
		Identity:  identity,
		RequestID: req.RequestID,
	})

	return e.finish(ctx, span, start, models.Decision{
		Outcome:   models.OutcomePendingCreated,
		Identity:  identity,
		Verified:  result.Verified,
		RequestID: req.RequestID,
		Reason:    models.ReasonPendingCreated,
	}), nil
}

func (e *Engine) buildRequest(ctx context.Context, in DecideInput, result verifier.Result, identity string) *models.PendingRequest {
	userID := result.UserID
	if userID == "" {
		userID = verifier.FallbackUserID(identity)
	}
	rawUA := requestcontext.UserAgent(ctx)
	return &models.PendingRequest{
		RequestID:      models.NewRequestID(),
		Identity:       identity,
		VerifiedUserID: userID,
		AvatarURL:      result.AvatarURL,
		AssertedToken:  in.RawToken,
		Verified:       result.Verified,
		RequestedAt:    requestcontext.Now(ctx),
		SourceAddress:  requestcontext.ClientIP(ctx),
		UserAgent:      rawUA,
		ClientName:     clientName(rawUA),
		Status:         models.StatusPending,
	}
}

func (e *Engine) finish(ctx context.Context, span trace.Span, start time.Time, d models.Decision) models.Decision {
	span.SetAttributes(attribute.String("access.outcome", string(d.Outcome)))
	e.metrics.RecordDecision(string(d.Outcome))
	e.metrics.ObserveDecide(start)

	category := audit.CategoryOperations
	if d.Outcome == models.OutcomeDenied {
		category = audit.CategorySecurity
	}
	e.audit.Emit(ctx, audit.Event{
		Category:  category,
		Action:    audit.EventAccessDecided,
		Identity:  d.Identity,
		RequestID: d.RequestID,
		Decision:  string(d.Outcome),
		Reason:    d.Reason,
	})
	return d
}

// AuthorizeConfig gates the client configuration payload. Unresolvable
// credentials are unauthorized; resolvable but unapproved ones are forbidden.
func (e *Engine) AuthorizeConfig(ctx context.Context, rawToken string) (string, error) {
	if rawToken == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	result := e.verifier.Verify(ctx, rawToken)
	identity := ""
	if result.Verified {
		identity = email.Normalize(result.Identity)
	} else if fallback, ok := verifier.FallbackIdentity(rawToken, ""); ok {
		identity = fallback
	}
	if identity == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	whitelisted, err := e.grants.IsWhitelisted(ctx, identity)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "access check failed")
	}
	if whitelisted {
		return identity, nil
	}
	granted, err := e.grants.HasActiveGrant(ctx, identity)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "access check failed")
	}
	if granted {
		return identity, nil
	}
	return "", dErrors.New(dErrors.CodeForbidden, "access not granted")
}

// clientName derives a readable client label from the raw User-Agent.
// Stremio clients identify themselves directly; browsers get name and OS.
func clientName(rawUA string) string {
	if rawUA == "" {
		return ""
	}
	if strings.Contains(rawUA, "Stremio") {
		return "Stremio Desktop"
	}
	ua := useragent.New(rawUA)
	name, _ := ua.Browser()
	if name == "" {
		return ""
	}
	if os := ua.OS(); os != "" {
		return fmt.Sprintf("%s (%s)", name, os)
	}
	return name
}
