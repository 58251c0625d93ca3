package model

import "time"

// User mirrors the columns of the users table in the external store that
// this service reads. Password is only populated by lookups that need to
// compare credentials and is never serialized.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Password      string    `json:"-"`
	PasswordAt    time.Time `json:"password_at"`
	EmailVerified bool      `json:"email_verified"`
}
