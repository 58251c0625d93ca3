// util/validation_util.go

package util

import (
	"net/mail"
	"strconv"

	gk_errors "github.com/hasflow/gatekeeper/errors"
)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

// maxUserIDLength bounds non-numeric subject ids. This should work for
// relational and mongodb ids.
const maxUserIDLength = 16

// ValidateUserID checks that a subject id extracted from a token payload
// matches the expected shape (numeric, or a bounded-length string) before
// it is used in any downstream query. A forged claim must never reach the
// user store.
func (v *ValidationUtil) ValidateUserID(id string) error {
	if id == "" {
		return gk_errors.ErrInvalidUserID
	}
	if _, err := strconv.ParseInt(id, 10, 64); err == nil {
		return nil
	}
	if len(id) > maxUserIDLength {
		return gk_errors.ErrInvalidUserID
	}
	return nil
}

// ValidateEmail rejects anything that is not an addressable email. Also
// prevents query injection through the email field.
func (v *ValidationUtil) ValidateEmail(email string) error {
	if email == "" {
		return gk_errors.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return gk_errors.ErrInvalidEmail
	}
	return nil
}

func (v *ValidationUtil) ValidatePassword(password string) error {
	if password == "" {
		return gk_errors.ErrInvalidPassword
	}
	// bcrypt truncates beyond 72 bytes
	if len(password) > 72 {
		return gk_errors.ErrInvalidPassword
	}
	return nil
}
