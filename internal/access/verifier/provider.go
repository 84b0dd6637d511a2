package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"addongate/pkg/email"
)

// ProviderClient calls the identity provider's profile endpoint to verify a
// credential. Concurrent verifications of the same token are collapsed into a
// single upstream call.
type ProviderClient struct {
	url    string
	client *http.Client
	logger *slog.Logger
	group  singleflight.Group
}

// NewProviderClient constructs a provider-backed verifier. The timeout bounds
// the upstream call; the decision path must never hang on the provider.
func NewProviderClient(url string, timeout time.Duration, logger *slog.Logger) *ProviderClient {
	return &ProviderClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type providerRequest struct {
	AuthKey    string   `json:"authKey"`
	Collection string   `json:"collection"`
	IDs        []string `json:"ids"`
}

type providerResponse struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
	User *struct {
		ID     string `json:"_id"`
		Email  string `json:"email"`
		Avatar string `json:"avatar"`
	} `json:"user"`
}

// Verify resolves the token against the provider. Empty tokens short-circuit
// without a network call. All failures resolve to an unverified result; the
// failure is logged, not retried.
func (c *ProviderClient) Verify(ctx context.Context, rawToken string) Result {
	if rawToken == "" {
		return Result{}
	}

	v, _, _ := c.group.Do(rawToken, func() (any, error) {
		return c.verify(ctx, rawToken), nil
	})
	return v.(Result)
}

func (c *ProviderClient) verify(ctx context.Context, rawToken string) Result {
	body, err := json.Marshal(providerRequest{
		AuthKey:    rawToken,
		Collection: "profile",
		IDs:        []string{},
	})
	if err != nil {
		return Result{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to build provider request", "error", err)
		return Result{}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "identity provider unreachable", "error", err)
		return Result{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WarnContext(ctx, "identity provider returned non-OK status", "status", resp.StatusCode)
		return Result{}
	}

	var parsed providerResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		c.logger.WarnContext(ctx, "failed to decode provider response", "error", err)
		return Result{}
	}

	if parsed.Error != nil {
		c.logger.InfoContext(ctx, "identity provider rejected token", "message", parsed.Error.Message)
		return Result{}
	}
	if parsed.User == nil || parsed.User.ID == "" || !email.IsValid(parsed.User.Email) {
		c.logger.WarnContext(ctx, "provider response missing usable user data")
		return Result{}
	}

	return Result{
		Verified:  true,
		Identity:  email.Normalize(parsed.User.Email),
		UserID:    parsed.User.ID,
		AvatarURL: parsed.User.Avatar,
	}
}
