// Package handler exposes the access decision flow, the configuration
// bundle, and the administrator API over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"addongate/internal/access/models"
	"addongate/internal/access/service"
	"addongate/internal/bundle"
	"addongate/internal/jwttoken"
	"addongate/internal/ratelimit"
	"addongate/internal/secrets"
	dErrors "addongate/pkg/domain-errors"
	"addongate/pkg/platform/httputil"
	adminmw "addongate/pkg/platform/middleware/admin"
	"addongate/pkg/requestcontext"
)

// Engine answers validation and config-authorization calls.
type Engine interface {
	Decide(ctx context.Context, in service.DecideInput) (models.Decision, error)
	AuthorizeConfig(ctx context.Context, rawToken string) (string, error)
}

// Admin performs administrator operations.
type Admin interface {
	ApprovePermanent(ctx context.Context, requestID string) (*models.PendingRequest, error)
	ApproveTemporary(ctx context.Context, requestID string, durationHours int) (*models.PendingRequest, models.TemporalGrant, error)
	Deny(ctx context.Context, requestID, reason string) (*models.PendingRequest, error)
	Whitelist(ctx context.Context, identity string) (string, bool, error)
	Revoke(ctx context.Context, identity string) error
	ListWhitelist(ctx context.Context) ([]models.WhitelistEntry, error)
	ListActiveGrants(ctx context.Context) ([]models.TemporalGrant, error)
	ListRequests(ctx context.Context, statuses ...models.RequestStatus) ([]*models.PendingRequest, error)
}

// BundleStore loads the client configuration payload.
type BundleStore interface {
	Load() (bundle.Bundle, error)
}

// Config carries the handler's authentication settings.
type Config struct {
	AdminToken        string
	AdminPasswordHash string
	RateLimitDisabled bool
}

// Handler owns the access routes.
type Handler struct {
	engine  Engine
	admin   Admin
	bundles BundleStore
	tokens  *jwttoken.Service
	limiter *ratelimit.Limiter
	cfg     Config
	logger  *slog.Logger
}

// New creates the access Handler.
func New(engine Engine, admin Admin, bundles BundleStore, tokens *jwttoken.Service, limiter *ratelimit.Limiter, cfg Config, logger *slog.Logger) *Handler {
	return &Handler{
		engine:  engine,
		admin:   admin,
		bundles: bundles,
		tokens:  tokens,
		limiter: limiter,
		cfg:     cfg,
		logger:  logger,
	}
}

// Register mounts the routes. The caller's router provides request-id,
// client-metadata and request-time middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(h.limiter.Middleware("validate", 5, time.Minute))
		r.Post("/api/validate", h.handleValidate)
		r.Post("/api/config", h.handleConfig)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.limiter.Middleware("admin", 10, time.Minute))
		r.Post("/api/admin/login", h.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(adminmw.RequireAdmin(h.cfg.AdminToken, h.tokens, h.logger))
			r.Get("/api/admin/pending-requests", h.handleListPending)
			r.Get("/api/admin/whitelist", h.handleListWhitelist)
			r.Get("/api/admin/temp-access", h.handleListGrants)
			r.Post("/api/admin/approve-request", h.handleApprove)
			r.Post("/api/admin/grant-temp-access", h.handleGrantTemp)
			r.Post("/api/admin/deny-request", h.handleDeny)
			r.Post("/api/admin/add-user", h.handleAddUser)
			r.Post("/api/admin/remove-user", h.handleRemoveUser)
		})
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: requestcontext.Now(r.Context()),
	})
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[validateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	decision, err := h.engine.Decide(ctx, service.DecideInput{
		RawToken:         req.Token,
		AssertedIdentity: req.Identity,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "decision failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, newValidateResponse(decision))
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[configRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if _, err := h.engine.AuthorizeConfig(ctx, req.Token); err != nil {
		httputil.WriteError(w, err)
		return
	}

	b, err := h.bundles.Load()
	if err != nil {
		h.logger.ErrorContext(ctx, "bundle load failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "configuration unavailable"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newConfigResponse(b))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[loginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if h.cfg.AdminPasswordHash == "" || !secrets.Verify(h.cfg.AdminPasswordHash, req.Password) {
		h.logger.WarnContext(ctx, "admin login rejected", "request_id", requestID)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials"))
		return
	}

	token, err := h.tokens.GenerateAdminToken("admin")
	if err != nil {
		h.logger.ErrorContext(ctx, "admin token generation failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "login failed"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: requestcontext.Now(ctx).Add(h.tokens.TTL()),
	})
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	requests, err := h.admin.ListRequests(r.Context(), models.StatusPending)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newListResponse(requests))
}

func (h *Handler) handleListWhitelist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.admin.ListWhitelist(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newListResponse(entries))
}

func (h *Handler) handleListGrants(w http.ResponseWriter, r *http.Request) {
	grants, err := h.admin.ListActiveGrants(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, newListResponse(grants))
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[requestIDRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	updated, err := h.admin.ApprovePermanent(ctx, req.RequestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, transitionResponse{
		Success: true,
		Message: "access approved",
		Request: updated,
	})
}

func (h *Handler) handleGrantTemp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[grantTempRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	updated, grant, err := h.admin.ApproveTemporary(ctx, req.RequestID, req.DurationHours)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, transitionResponse{
		Success:   true,
		Message:   "temporary access granted",
		Request:   updated,
		ExpiresAt: &grant.ExpiresAt,
	})
}

func (h *Handler) handleDeny(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[denyRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	updated, err := h.admin.Deny(ctx, req.RequestID, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, transitionResponse{
		Success: true,
		Message: "access denied",
		Request: updated,
	})
}

func (h *Handler) handleAddUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[identityRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	identity, created, err := h.admin.Whitelist(ctx, req.Email)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	message := identity + " added to whitelist"
	if !created {
		message = identity + " is already whitelisted"
	}
	httputil.WriteJSON(w, http.StatusOK, transitionResponse{
		Success: true,
		Message: message,
	})
}

func (h *Handler) handleRemoveUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[identityRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	if err := h.admin.Revoke(ctx, req.Email); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, transitionResponse{
		Success: true,
		Message: "all access removed",
	})
}
