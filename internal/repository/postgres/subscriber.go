// Package postgres holds database/sql repository implementations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/cosmoexplorer/backend/internal/domain"
	"github.com/cosmoexplorer/backend/internal/service/subscription"
)

// uniqueViolation is the Postgres error code raised when an insert hits a
// unique index. See https://www.postgresql.org/docs/current/errcodes-appendix.html
const uniqueViolation = "23505"

// SubscriberRepo implements subscription.Repository against PostgreSQL.
// The subscribers table carries unique indexes on email,
// verification_token, and unsubscribe_token; those constraints are the hard
// guarantee behind the service's conflict handling.
type SubscriberRepo struct{ db *sql.DB }

// NewSubscriberRepo creates a Postgres-backed subscriber repository.
func NewSubscriberRepo(db *sql.DB) *SubscriberRepo { return &SubscriberRepo{db: db} }

const subscriberColumns = `id, email, verification_token, unsubscribe_token, is_verified, verified_at, created_at`

func (r *SubscriberRepo) GetByEmail(ctx context.Context, email string) (*domain.Subscriber, error) {
	return r.getBy(ctx, `email = $1`, email)
}

func (r *SubscriberRepo) GetByVerificationToken(ctx context.Context, token string) (*domain.Subscriber, error) {
	return r.getBy(ctx, `verification_token = $1`, token)
}

func (r *SubscriberRepo) GetByUnsubscribeToken(ctx context.Context, token string) (*domain.Subscriber, error) {
	return r.getBy(ctx, `unsubscribe_token = $1`, token)
}

func (r *SubscriberRepo) getBy(ctx context.Context, where string, arg string) (*domain.Subscriber, error) {
	s := &domain.Subscriber{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers WHERE `+where, arg,
	).Scan(
		&s.ID, &s.Email, &s.VerificationToken, &s.UnsubscribeToken,
		&s.IsVerified, &s.VerifiedAt, &s.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, subscription.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscriber: %w", err)
	}
	return s, nil
}

func (r *SubscriberRepo) Create(ctx context.Context, s *domain.Subscriber) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscribers (id, email, verification_token, unsubscribe_token, is_verified, created_at)
		VALUES ($1, $2, $3, $4, false, $5)
	`, s.ID, s.Email, s.VerificationToken, s.UnsubscribeToken, s.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return subscription.ErrConflict
		}
		return fmt.Errorf("create subscriber: %w", err)
	}
	return nil
}

func (r *SubscriberRepo) MarkVerified(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE subscribers
		SET is_verified = true, verified_at = $2, verification_token = NULL
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return subscription.ErrNotFound
	}
	return nil
}

func (r *SubscriberRepo) DeleteByEmail(ctx context.Context, email string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscribers WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("delete subscriber by email: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return subscription.ErrNotFound
	}
	return nil
}

func (r *SubscriberRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subscribers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subscriber: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return subscription.ErrNotFound
	}
	return nil
}
