package api

import (
	"context"

	"github.com/cosmoexplorer/backend/internal/iss"
	"github.com/cosmoexplorer/backend/internal/news"
	"github.com/cosmoexplorer/backend/internal/service/subscription"
)

// SubscriptionService is the slice of the subscription service the HTTP
// layer needs.
type SubscriptionService interface {
	Subscribe(ctx context.Context, email string) (*subscription.SubscribeResult, error)
	Verify(ctx context.Context, token string) error
	Unsubscribe(ctx context.Context, token string) error
}

// PositionFetcher supplies the current ISS position.
type PositionFetcher interface {
	FetchPosition(ctx context.Context) (*iss.Position, error)
}

// HeadlineSource supplies the merged astronomy headline list.
type HeadlineSource interface {
	Headlines(ctx context.Context) ([]news.Item, error)
}

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	subs     SubscriptionService
	iss      PositionFetcher
	news     HeadlineSource
	siteBase string
	health   *HealthChecker
}

// NewHandlers creates the handler set. siteBase is the public site URL
// that verify/unsubscribe redirects land on.
func NewHandlers(subs SubscriptionService, issClient PositionFetcher, newsSvc HeadlineSource, siteBase string, health *HealthChecker) *Handlers {
	return &Handlers{
		subs:     subs,
		iss:      issClient,
		news:     newsSvc,
		siteBase: siteBase,
		health:   health,
	}
}
