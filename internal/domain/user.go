package domain

import "time"

// User represents an identity record of the catalog API.
//
// EmailVerifyToken doubles as the verification flag: a non-nil value is the
// currently valid email-verification token and marks the account unverified,
// nil means the address has been confirmed. No separate boolean is stored, so
// every mutation of this field must preserve that reading.
type User struct {
	ID               string
	Email            string
	Name             string
	PasswordDigest   string
	EmailVerifyToken *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Verified reports whether the user's email address has been confirmed.
func (u *User) Verified() bool {
	return u.EmailVerifyToken == nil
}
