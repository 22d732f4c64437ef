package subscription

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cosmoexplorer/backend/internal/domain"
)

// mockRepo is an in-memory repository for testing. It enforces the same
// uniqueness rules as the Postgres schema.
type mockRepo struct {
	mu    sync.RWMutex
	store map[string]*domain.Subscriber // keyed by email
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[string]*domain.Subscriber)}
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*domain.Subscriber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.store[email]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockRepo) GetByVerificationToken(_ context.Context, token string) (*domain.Subscriber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.store {
		if s.VerificationToken != nil && *s.VerificationToken == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) GetByUnsubscribeToken(_ context.Context, token string) (*domain.Subscriber, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.store {
		if s.UnsubscribeToken == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Create(_ context.Context, sub *domain.Subscriber) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.store[sub.Email]; exists {
		return ErrConflict
	}
	for _, s := range m.store {
		if s.UnsubscribeToken == sub.UnsubscribeToken {
			return ErrConflict
		}
		if s.VerificationToken != nil && sub.VerificationToken != nil &&
			*s.VerificationToken == *sub.VerificationToken {
			return ErrConflict
		}
	}
	cp := *sub
	m.store[sub.Email] = &cp
	return nil
}

func (m *mockRepo) MarkVerified(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.store {
		if s.ID == id {
			s.IsVerified = true
			s.VerifiedAt = &at
			s.VerificationToken = nil
			return nil
		}
	}
	return ErrNotFound
}

func (m *mockRepo) DeleteByEmail(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.store[email]; !ok {
		return ErrNotFound
	}
	delete(m.store, email)
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for email, s := range m.store {
		if s.ID == id {
			delete(m.store, email)
			return nil
		}
	}
	return ErrNotFound
}

// mockMailer records sent verification emails and can be told to fail.
type mockMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail error
}

type sentMail struct {
	email            string
	verificationLink string
	unsubscribeLink  string
}

func (m *mockMailer) SendVerification(_ context.Context, email, verificationLink, unsubscribeLink string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent = append(m.sent, sentMail{email, verificationLink, unsubscribeLink})
	return nil
}

func (m *mockMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func newTestService() (*Service, *mockRepo, *mockMailer) {
	repo := newMockRepo()
	mailer := &mockMailer{}
	svc := NewService(repo, mailer, NewLinkBuilder("https://cosmoexplorer.io"))
	svc.SetDevMode(true)
	return svc, repo, mailer
}

func TestSubscribe_NewEmail(t *testing.T) {
	svc, repo, mailer := newTestService()
	ctx := context.Background()

	res, err := svc.Subscribe(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if res.Message == "" {
		t.Error("expected a confirmation message")
	}
	if res.VerificationLink == "" {
		t.Error("dev mode should return the verification link")
	}
	if mailer.sentCount() != 1 {
		t.Errorf("expected 1 mail sent, got %d", mailer.sentCount())
	}

	sub, err := repo.GetByEmail(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if sub.IsVerified {
		t.Error("new subscriber must start unverified")
	}
	if sub.VerificationToken == nil || *sub.VerificationToken == "" {
		t.Error("new subscriber must hold a verification token")
	}
	if sub.UnsubscribeToken == "" {
		t.Error("new subscriber must hold an unsubscribe token")
	}
	if sub.VerificationToken != nil && *sub.VerificationToken == sub.UnsubscribeToken {
		t.Error("tokens must be independently random")
	}
	if sub.CreatedAt.IsZero() {
		t.Error("created_at must be stamped")
	}
}

func TestSubscribe_InvalidEmail(t *testing.T) {
	svc, _, mailer := newTestService()
	ctx := context.Background()

	for _, email := range []string{"", "not-an-email"} {
		if _, err := svc.Subscribe(ctx, email); !errors.Is(err, ErrInvalidEmail) {
			t.Errorf("Subscribe(%q) = %v, want ErrInvalidEmail", email, err)
		}
	}
	if mailer.sentCount() != 0 {
		t.Error("no mail should be sent for invalid input")
	}
}

func TestSubscribe_VerifiedEmailFails(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	res, err := svc.Subscribe(ctx, "dup@z.com")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	token := verificationTokenFromLink(t, res.VerificationLink)
	if err := svc.Verify(ctx, token); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	before, _ := repo.GetByEmail(ctx, "dup@z.com")

	if _, err := svc.Subscribe(ctx, "dup@z.com"); !errors.Is(err, ErrAlreadySubscribed) {
		t.Fatalf("resubscribe after verify = %v, want ErrAlreadySubscribed", err)
	}

	after, err := repo.GetByEmail(ctx, "dup@z.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if after.ID != before.ID || after.UnsubscribeToken != before.UnsubscribeToken {
		t.Error("store must be unchanged after rejected resubscribe")
	}
}

func TestSubscribe_PendingReplayRotatesTokens(t *testing.T) {
	svc, repo, mailer := newTestService()
	ctx := context.Background()

	res1, err := svc.Subscribe(ctx, "x@y.com")
	if err != nil {
		t.Fatalf("first Subscribe: %v", err)
	}
	res2, err := svc.Subscribe(ctx, "x@y.com")
	if err != nil {
		t.Fatalf("second Subscribe: %v", err)
	}

	if res1.VerificationLink == res2.VerificationLink {
		t.Error("replay must mint a fresh verification token")
	}
	if mailer.sentCount() != 2 {
		t.Errorf("expected 2 mails, got %d", mailer.sentCount())
	}

	// Exactly one live row.
	if n := len(repo.store); n != 1 {
		t.Fatalf("expected 1 subscriber row, got %d", n)
	}

	// The first (stale) token is dead.
	stale := verificationTokenFromLink(t, res1.VerificationLink)
	if err := svc.Verify(ctx, stale); !errors.Is(err, ErrNotFound) {
		t.Errorf("Verify(stale token) = %v, want ErrNotFound", err)
	}

	// The fresh token still works.
	fresh := verificationTokenFromLink(t, res2.VerificationLink)
	if err := svc.Verify(ctx, fresh); err != nil {
		t.Errorf("Verify(fresh token) = %v", err)
	}
}

func TestSubscribe_RacingDuplicateMapsToAlreadySubscribed(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	// Simulate losing the race: the row appears between the lookup and the
	// insert. conflictRepo reports not-found on reads but conflict on create.
	svc.repo = &conflictRepo{mockRepo: repo}

	if _, err := svc.Subscribe(ctx, "race@z.com"); !errors.Is(err, ErrAlreadySubscribed) {
		t.Fatalf("Subscribe under race = %v, want ErrAlreadySubscribed", err)
	}
}

// conflictRepo makes every Create fail with ErrConflict.
type conflictRepo struct{ *mockRepo }

func (c *conflictRepo) Create(context.Context, *domain.Subscriber) error { return ErrConflict }

func TestSubscribe_MailFailureKeepsRow(t *testing.T) {
	svc, repo, mailer := newTestService()
	ctx := context.Background()

	mailer.fail = errors.New("smtp down")
	if _, err := svc.Subscribe(ctx, "a@b.com"); err == nil {
		t.Fatal("Subscribe must fail when delivery fails")
	}

	// Known at-least-once behavior: the row persists.
	if _, err := repo.GetByEmail(ctx, "a@b.com"); err != nil {
		t.Errorf("row should survive a delivery failure: %v", err)
	}

	// A retry takes the pending-replay path and succeeds.
	mailer.fail = nil
	if _, err := svc.Subscribe(ctx, "a@b.com"); err != nil {
		t.Errorf("retry after delivery failure: %v", err)
	}
}

func TestSubscribe_IssuerFailureIsFatal(t *testing.T) {
	svc, repo, mailer := newTestService()
	ctx := context.Background()

	svc.SetTokenIssuer(failingIssuer{})
	if _, err := svc.Subscribe(ctx, "a@b.com"); err == nil {
		t.Fatal("Subscribe must fail when the issuer fails")
	}
	if mailer.sentCount() != 0 {
		t.Error("no mail should be sent when token issuance fails")
	}
	if _, err := repo.GetByEmail(ctx, "a@b.com"); !errors.Is(err, ErrNotFound) {
		t.Error("no row should be created when token issuance fails")
	}
}

type failingIssuer struct{}

func (failingIssuer) Issue() (string, error) { return "", errors.New("entropy source unavailable") }

func TestVerify_RoundTrip(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	res, err := svc.Subscribe(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	token := verificationTokenFromLink(t, res.VerificationLink)

	if err := svc.Verify(ctx, token); err != nil {
		t.Fatalf("Verify: %v", err)
	}

	sub, err := repo.GetByEmail(ctx, "a@b.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if !sub.IsVerified {
		t.Error("subscriber must be verified")
	}
	if sub.VerifiedAt == nil {
		t.Error("verified_at must be stamped")
	}
	if sub.VerificationToken != nil {
		t.Error("verification token must be cleared after use")
	}

	// Not idempotent: the spent token no longer matches any row.
	if err := svc.Verify(ctx, token); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Verify = %v, want ErrNotFound", err)
	}
}

func TestVerify_AlreadyVerified(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	// A row that is verified but still holds its token (legacy data written
	// before tokens were cleared on verification).
	token := "legacy-token"
	now := time.Now().UTC()
	repo.store["old@b.com"] = &domain.Subscriber{
		ID:                "sub-1",
		Email:             "old@b.com",
		VerificationToken: &token,
		UnsubscribeToken:  "unsub-1",
		IsVerified:        true,
		VerifiedAt:        &now,
		CreatedAt:         now,
	}

	if err := svc.Verify(ctx, token); !errors.Is(err, ErrAlreadyVerified) {
		t.Errorf("Verify(verified row) = %v, want ErrAlreadyVerified", err)
	}
}

func TestVerify_InvalidInput(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if err := svc.Verify(ctx, ""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify(\"\") = %v, want ErrInvalidToken", err)
	}
	if err := svc.Verify(ctx, "unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Verify(unknown) = %v, want ErrNotFound", err)
	}
}

func TestUnsubscribe_DeletesPendingAndVerified(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	// Pending subscriber.
	if _, err := svc.Subscribe(ctx, "pending@b.com"); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	pending, _ := repo.GetByEmail(ctx, "pending@b.com")
	if err := svc.Unsubscribe(ctx, pending.UnsubscribeToken); err != nil {
		t.Fatalf("Unsubscribe(pending): %v", err)
	}
	if _, err := repo.GetByEmail(ctx, "pending@b.com"); !errors.Is(err, ErrNotFound) {
		t.Error("pending row must be deleted")
	}

	// Verified subscriber.
	res2, _ := svc.Subscribe(ctx, "done@b.com")
	if err := svc.Verify(ctx, verificationTokenFromLink(t, res2.VerificationLink)); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	verified, _ := repo.GetByEmail(ctx, "done@b.com")
	if err := svc.Unsubscribe(ctx, verified.UnsubscribeToken); err != nil {
		t.Fatalf("Unsubscribe(verified): %v", err)
	}
	if _, err := repo.GetByEmail(ctx, "done@b.com"); !errors.Is(err, ErrNotFound) {
		t.Error("verified row must be deleted")
	}

	// Second call with the same token.
	if err := svc.Unsubscribe(ctx, verified.UnsubscribeToken); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Unsubscribe = %v, want ErrNotFound", err)
	}
}

func TestUnsubscribe_InvalidInput(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if err := svc.Unsubscribe(ctx, ""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Unsubscribe(\"\") = %v, want ErrInvalidToken", err)
	}
	if err := svc.Unsubscribe(ctx, "unknown"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Unsubscribe(unknown) = %v, want ErrNotFound", err)
	}
}

// Resubscribing after an unsubscribe starts the machine over.
func TestLifecycle_CyclicPerEmail(t *testing.T) {
	svc, repo, _ := newTestService()
	ctx := context.Background()

	res, _ := svc.Subscribe(ctx, "loop@b.com")
	if err := svc.Verify(ctx, verificationTokenFromLink(t, res.VerificationLink)); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	sub, _ := repo.GetByEmail(ctx, "loop@b.com")
	if err := svc.Unsubscribe(ctx, sub.UnsubscribeToken); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}

	if _, err := svc.Subscribe(ctx, "loop@b.com"); err != nil {
		t.Fatalf("resubscribe after unsubscribe: %v", err)
	}
	fresh, err := repo.GetByEmail(ctx, "loop@b.com")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if fresh.IsVerified {
		t.Error("resubscribed row must start unverified")
	}
	if fresh.ID == sub.ID {
		t.Error("resubscribed row must be a fresh record")
	}
}

func verificationTokenFromLink(t *testing.T, link string) string {
	t.Helper()
	i := strings.LastIndex(link, "token=")
	if i < 0 {
		t.Fatalf("no token in link %q", link)
	}
	return link[i+len("token="):]
}
