// Package secrets wraps bcrypt hashing for the admin password.
package secrets

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	dErrors "addongate/pkg/domain-errors"
)

// Hash creates a bcrypt hash of the provided secret. Used by deployment
// tooling to produce ADMIN_PASSWORD_HASH.
func Hash(secret string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "secret exceeds maximum length")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash secret")
	}
	return string(hashed), nil
}

// Verify checks if a plaintext secret matches a bcrypt hash. A mismatch and a
// malformed hash both return false; the caller emits one uniform unauthorized
// error either way.
func Verify(hash, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
