package subscription

import "errors"

// Sentinel errors for the subscription service layer.
var (
	ErrInvalidEmail      = errors.New("invalid email address")
	ErrInvalidToken      = errors.New("invalid token")
	ErrAlreadySubscribed = errors.New("email already subscribed")
	ErrAlreadyVerified   = errors.New("email already verified")
	ErrNotFound          = errors.New("subscriber not found")

	// ErrConflict is returned by Repository.Create when a racing insert hit
	// the unique constraint on email. The service remaps it to
	// ErrAlreadySubscribed so callers see one consistent error.
	ErrConflict = errors.New("subscriber already exists")
)
