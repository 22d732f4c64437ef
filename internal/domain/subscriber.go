package domain

import (
	"strings"
	"time"
)

// Subscriber represents one newsletter signup identity, keyed by email.
//
// An unverified subscriber holds a live verification token; verification
// clears the token (it is single-use) and stamps VerifiedAt. The unsubscribe
// token lives for the whole lifetime of the record.
type Subscriber struct {
	ID                string     `json:"id" db:"id"`
	Email             string     `json:"email" db:"email"`
	VerificationToken *string    `json:"-" db:"verification_token"`
	UnsubscribeToken  string     `json:"-" db:"unsubscribe_token"`
	IsVerified        bool       `json:"is_verified" db:"is_verified"`
	VerifiedAt        *time.Time `json:"verified_at,omitempty" db:"verified_at"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// ValidEmail reports whether an address is acceptable for signup. The check
// is intentionally loose: anything non-empty containing '@' passes, so
// syntactically unusual but deliverable addresses are not rejected.
func ValidEmail(email string) bool {
	return email != "" && strings.Contains(email, "@")
}
