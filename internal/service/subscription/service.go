package subscription

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cosmoexplorer/backend/internal/domain"
	"github.com/cosmoexplorer/backend/internal/pkg/logger"
)

// Mailer delivers the verification email. Implementations live in
// internal/mailer; the service only needs send-or-fail semantics.
type Mailer interface {
	SendVerification(ctx context.Context, email, verificationLink, unsubscribeLink string) error
}

// Service implements the subscribe → verify → unsubscribe state machine.
// It is the sole writer of subscriber rows. Safe for concurrent use if the
// underlying repository is; racing duplicate subscribes are resolved by the
// store's unique constraint on email, not by in-process locking.
type Service struct {
	repo   Repository
	issuer TokenIssuer
	links  LinkBuilder
	mailer Mailer

	// devMode echoes the verification link back in the Subscribe result so
	// flows can proceed without a working mail gateway.
	devMode bool

	now func() time.Time
}

// NewService creates a subscription service. The default token issuer is
// UUIDIssuer.
func NewService(repo Repository, mailer Mailer, links LinkBuilder) *Service {
	return &Service{
		repo:   repo,
		issuer: UUIDIssuer{},
		links:  links,
		mailer: mailer,
		now:    time.Now,
	}
}

// SetDevMode controls whether Subscribe returns the verification link
// directly in its result.
func (s *Service) SetDevMode(on bool) { s.devMode = on }

// SetTokenIssuer swaps the token source. Used by tests.
func (s *Service) SetTokenIssuer(issuer TokenIssuer) { s.issuer = issuer }

// SubscribeResult is returned on a successful signup.
type SubscribeResult struct {
	Message          string `json:"message"`
	VerificationLink string `json:"verification_link,omitempty"`
}

// Subscribe registers an email for the newsletter and mails a verification
// link.
//
// An already-verified email fails with ErrAlreadySubscribed. A pending
// (unverified) email restarts the flow: the old row is deleted and a new
// one created with fresh tokens, so the previously mailed links go dead.
// If mail delivery fails the row is NOT rolled back — the next subscribe
// attempt recreates it via the pending-replay path.
func (s *Service) Subscribe(ctx context.Context, email string) (*SubscribeResult, error) {
	if !domain.ValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsVerified {
			return nil, ErrAlreadySubscribed
		}
		// Pending replay: delete and recreate with fresh tokens.
		if err := s.repo.DeleteByEmail(ctx, email); err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("replace pending subscriber: %w", err)
		}
	case errors.Is(err, ErrNotFound):
		// New signup.
	default:
		return nil, fmt.Errorf("lookup subscriber: %w", err)
	}

	verificationToken, err := s.issuer.Issue()
	if err != nil {
		return nil, err
	}
	unsubscribeToken, err := s.issuer.Issue()
	if err != nil {
		return nil, err
	}

	sub := &domain.Subscriber{
		ID:                uuid.New().String(),
		Email:             email,
		VerificationToken: &verificationToken,
		UnsubscribeToken:  unsubscribeToken,
		CreatedAt:         s.now().UTC(),
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		if errors.Is(err, ErrConflict) {
			// A racing subscribe for the same email won the insert.
			return nil, ErrAlreadySubscribed
		}
		return nil, fmt.Errorf("create subscriber: %w", err)
	}

	verificationLink := s.links.VerificationLink(verificationToken)
	unsubscribeLink := s.links.UnsubscribeLink(unsubscribeToken)

	if err := s.mailer.SendVerification(ctx, email, verificationLink, unsubscribeLink); err != nil {
		// The row stays; the caller sees an internal failure and the user
		// can retry, which takes the pending-replay path.
		return nil, fmt.Errorf("send verification email: %w", err)
	}

	logger.Info("subscriber pending verification", "email", email)

	result := &SubscribeResult{Message: "Thank you for subscribing! Please check your email to verify your subscription."}
	if s.devMode {
		result.VerificationLink = verificationLink
	}
	return result, nil
}

// Verify confirms a signup using the token from the verification email.
// The token is single-use: on success it is cleared from the row, so a
// second call fails with ErrNotFound and a verify against an already
// verified row fails with ErrAlreadyVerified.
func (s *Service) Verify(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	sub, err := s.repo.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("lookup verification token: %w", err)
	}

	if sub.IsVerified {
		return ErrAlreadyVerified
	}

	if err := s.repo.MarkVerified(ctx, sub.ID, s.now().UTC()); err != nil {
		return fmt.Errorf("mark verified: %w", err)
	}

	logger.Info("subscriber verified", "email", sub.Email)
	return nil
}

// Unsubscribe removes a subscriber using the token from any mailed link.
// It works for both pending and verified rows and deletes the row outright;
// a second call with the same token fails with ErrNotFound.
func (s *Service) Unsubscribe(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidToken
	}

	sub, err := s.repo.GetByUnsubscribeToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("lookup unsubscribe token: %w", err)
	}

	if err := s.repo.Delete(ctx, sub.ID); err != nil {
		return fmt.Errorf("delete subscriber: %w", err)
	}

	logger.Info("subscriber removed", "email", sub.Email)
	return nil
}
