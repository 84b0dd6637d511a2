package verifier

import (
	"encoding/base64"
	"strings"

	"addongate/pkg/email"
)

// FallbackIdentity resolves an identity on the degraded-trust path, used only
// when provider verification fails. Preference order: the client-asserted
// identity (when it passes format validation), then an email extracted from
// the raw credential itself. Identities obtained here must be persisted as
// unverified.
func FallbackIdentity(rawToken, assertedIdentity string) (string, bool) {
	if email.IsValid(assertedIdentity) {
		return email.Normalize(assertedIdentity), true
	}
	if extracted, ok := extractFromToken(rawToken); ok {
		return extracted, true
	}
	return "", false
}

// extractFromToken decodes the provider credential shape
// (base64 of "email:passwordHash") and returns the email when it validates.
func extractFromToken(rawToken string) (string, bool) {
	if rawToken == "" {
		return "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(rawToken)
	if err != nil {
		return "", false
	}
	candidate, _, found := strings.Cut(string(decoded), ":")
	if !found || !email.IsValid(candidate) {
		return "", false
	}
	return email.Normalize(candidate), true
}

// FallbackUserID derives an opaque user id for unverified records so they can
// be distinguished from provider-issued ids.
func FallbackUserID(identity string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(identity))
	if len(encoded) > 16 {
		encoded = encoded[:16]
	}
	return "fallback_" + encoded
}
