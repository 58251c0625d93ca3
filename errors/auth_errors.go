// errors/auth_errors.go
package errors

import "errors"

var (
	// ErrTokenMalformed covers bad signatures, unknown signing methods and
	// structurally broken tokens. Distinct from an absent credential, which
	// is not an error at all.
	ErrTokenMalformed = errors.New("invalid authentication token")

	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalidated means the token was structurally valid but was
	// issued before the subject's last password change. Clients should log
	// in again rather than fix their request.
	ErrTokenInvalidated = errors.New("token has been invalidated")

	// ErrInvalidUserID is returned when the subject claim does not match
	// the expected id shape and must not reach the user store.
	ErrInvalidUserID = errors.New("bad token")

	// ErrUserStoreUnavailable signals that the user store could not answer;
	// authentication fails closed in that case.
	ErrUserStoreUnavailable = errors.New("unable to verify credentials")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidResetToken  = errors.New("invalid or expired password reset token")
)
