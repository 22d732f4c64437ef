package subscription

import (
	"fmt"

	"github.com/google/uuid"
)

// TokenIssuer produces opaque, unpredictable tokens for verification and
// unsubscribe links.
type TokenIssuer interface {
	// Issue returns a fresh token. Two calls must yield independently
	// random values; the store's unique constraints are the hard backstop
	// against the (negligible) collision probability.
	Issue() (string, error)
}

// UUIDIssuer issues random UUIDs drawn from crypto/rand (122 bits of
// entropy per token).
type UUIDIssuer struct{}

// Issue returns a random UUID string. It fails only if the underlying
// randomness source is unavailable.
func (UUIDIssuer) Issue() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return id.String(), nil
}
