package subscription

import (
	"context"
	"time"

	"github.com/cosmoexplorer/backend/internal/domain"
)

// Repository defines the data access contract for subscribers.
// Implementations must be safe for concurrent use and must enforce
// uniqueness of email, verification_token, and unsubscribe_token.
type Repository interface {
	// GetByEmail returns the subscriber for an email. Returns ErrNotFound
	// if no row exists.
	GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error)

	// GetByVerificationToken returns the subscriber holding a live
	// verification token. Returns ErrNotFound for unknown or spent tokens.
	GetByVerificationToken(ctx context.Context, token string) (*domain.Subscriber, error)

	// GetByUnsubscribeToken returns the subscriber holding the unsubscribe
	// token. Returns ErrNotFound if unknown.
	GetByUnsubscribeToken(ctx context.Context, token string) (*domain.Subscriber, error)

	// Create inserts a new subscriber row. Returns ErrConflict if the email
	// or either token collides with an existing row.
	Create(ctx context.Context, s *domain.Subscriber) error

	// MarkVerified sets is_verified, stamps verified_at, and clears the
	// verification token so it can never match again. Returns ErrNotFound
	// if the row is gone.
	MarkVerified(ctx context.Context, id string, at time.Time) error

	// DeleteByEmail removes a subscriber row by email. Returns ErrNotFound
	// if no row exists.
	DeleteByEmail(ctx context.Context, email string) error

	// Delete removes a subscriber row by ID. Returns ErrNotFound if no row
	// exists.
	Delete(ctx context.Context, id string) error
}
