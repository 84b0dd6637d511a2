// Package email holds the identity normalization and validation rules shared
// by every store and service. Identities are email addresses; equality is
// case-insensitive, so normalization happens once at the boundary and stores
// only ever see normalized values.
package email

import (
	"regexp"
	"strings"
)

// validEmail mirrors the provider's own format check: non-empty local part,
// an @, and a domain with at least one dot.
var validEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Normalize lowercases and trims an identity for comparison and storage.
func Normalize(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}

// IsValid reports whether the string looks like an email address.
func IsValid(identity string) bool {
	return validEmail.MatchString(strings.TrimSpace(identity))
}
