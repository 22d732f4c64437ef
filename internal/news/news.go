// Package news aggregates astronomy headlines from a set of RSS feeds and
// caches the merged result in Redis so the homepage does not hammer the
// publishers on every page load.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/redis/go-redis/v9"

	"github.com/cosmoexplorer/backend/internal/config"
	"github.com/cosmoexplorer/backend/internal/pkg/httpretry"
	"github.com/cosmoexplorer/backend/internal/pkg/logger"
)

// cacheKey is where the merged headline list lives in Redis.
const cacheKey = "news:headlines"

// Item is a single headline in the merged feed.
type Item struct {
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Source      string     `json:"source"`
	Summary     string     `json:"summary,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	ImageURL    string     `json:"image_url,omitempty"`
}

// Service fetches, merges and caches headlines. The Redis client is
// optional; without it every call fetches the feeds directly.
type Service struct {
	feeds    []string
	http     httpretry.HTTPDoer
	parser   *gofeed.Parser
	cache    *redis.Client
	ttl      time.Duration
	timeout  time.Duration
	maxItems int
}

// NewService creates a headline service. cache may be nil to disable
// caching.
func NewService(cfg config.NewsConfig, cache *redis.Client) *Service {
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.CacheTTL()
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{
		feeds:    cfg.FeedURLs,
		http:     httpretry.NewRetryClient(&http.Client{Timeout: timeout}, 2),
		parser:   gofeed.NewParser(),
		cache:    cache,
		ttl:      ttl,
		timeout:  timeout,
		maxItems: cfg.MaxItems,
	}
}

// Headlines returns the merged headline list, newest first, serving from
// cache when a fresh copy exists. A feed that fails to fetch is skipped;
// the call fails only when every feed fails.
func (s *Service) Headlines(ctx context.Context) ([]Item, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey).Bytes(); err == nil {
			var items []Item
			if json.Unmarshal(data, &items) == nil {
				return items, nil
			}
		}
	}

	items, err := s.fetchAll(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(items); err == nil {
			if err := s.cache.Set(ctx, cacheKey, data, s.ttl).Err(); err != nil {
				logger.Warn("news cache write failed", "error", err)
			}
		}
	}

	return items, nil
}

func (s *Service) fetchAll(ctx context.Context) ([]Item, error) {
	var (
		items   []Item
		lastErr error
		fetched int
	)

	for _, url := range s.feeds {
		feedItems, err := s.fetchFeed(ctx, url)
		if err != nil {
			logger.Warn("news feed fetch failed", "feed", url, "error", err)
			lastErr = err
			continue
		}
		fetched++
		items = append(items, feedItems...)
	}

	if fetched == 0 && lastErr != nil {
		return nil, lastErr
	}

	sort.SliceStable(items, func(i, j int) bool {
		ti, tj := items[i].PublishedAt, items[j].PublishedAt
		if ti == nil {
			return false
		}
		if tj == nil {
			return true
		}
		return ti.After(*tj)
	})

	if s.maxItems > 0 && len(items) > s.maxItems {
		items = items[:s.maxItems]
	}
	return items, nil
}

func (s *Service) fetchFeed(ctx context.Context, url string) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "CosmoExplorer/1.0")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d", resp.StatusCode)
	}

	feed, err := s.parser.Parse(resp.Body)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(feed.Items))
	for _, fi := range feed.Items {
		item := Item{
			Title:   fi.Title,
			Link:    fi.Link,
			Source:  feed.Title,
			Summary: fi.Description,
		}
		if fi.PublishedParsed != nil {
			t := fi.PublishedParsed.UTC()
			item.PublishedAt = &t
		}
		if fi.Image != nil {
			item.ImageURL = fi.Image.URL
		}
		items = append(items, item)
	}
	return items, nil
}
