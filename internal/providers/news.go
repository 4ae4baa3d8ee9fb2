package providers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"github.com/scrollkit/cardfeed/internal/cache"
	"github.com/scrollkit/cardfeed/internal/models"
	"github.com/scrollkit/cardfeed/pkg/config"
)

const (
	// NewsTag prefixes every news card id
	NewsTag = "news"

	newsDefaultQuery = "latest"
	newsMaxContent   = 600
)

// News reads configured RSS/Atom feeds. Each feed is cached as its
// normalized cards, keyed by feed URL.
type News struct {
	base
	feeds  []string
	parser *gofeed.Parser
}

// NewNews creates the feed-reader adapter
func NewNews(cfg *config.ProvidersConfig, rc *cache.ResponseCache) *News {
	return &News{
		base:   newBase(NewsTag, cfg, rc),
		feeds:  cfg.NewsFeeds,
		parser: gofeed.NewParser(),
	}
}

// DefaultQuery matches every item
func (n *News) DefaultQuery() string { return newsDefaultQuery }

// Fetch returns up to limit items whose title or body contains query,
// case-insensitively, in feed order. Feeds that fail are skipped.
func (n *News) Fetch(ctx context.Context, query string, limit int) []models.ContentCard {
	if query == "" {
		query = newsDefaultQuery
	}
	limit = normalizeLimit(limit)

	ctx, end := n.startSpan(ctx, "fetch")
	defer end(nil)

	needle := strings.ToLower(query)
	matchAll := needle == newsDefaultQuery

	cards := make([]models.ContentCard, 0, limit)
	seen := make(map[string]bool)
	for _, feedURL := range n.feeds {
		items, err := n.loadFeed(ctx, feedURL)
		if err != nil {
			n.fail(ctx, query, err)
			continue
		}
		for _, card := range items {
			if seen[card.ID] {
				continue
			}
			if !matchAll && !strings.Contains(strings.ToLower(card.Title), needle) &&
				!strings.Contains(strings.ToLower(card.Content), needle) {
				continue
			}
			seen[card.ID] = true
			cards = append(cards, card)
			if len(cards) >= limit {
				return cards
			}
		}
	}
	return cards
}

// FetchByID scans the configured feeds for the item with the given link hash
func (n *News) FetchByID(ctx context.Context, nativeID string) (*models.ContentCard, error) {
	ctx, end := n.startSpan(ctx, "fetch_by_id")
	id := models.CardID(NewsTag, nativeID)

	var lastErr error
	for _, feedURL := range n.feeds {
		items, err := n.loadFeed(ctx, feedURL)
		if err != nil {
			lastErr = err
			continue
		}
		for i := range items {
			if items[i].ID == id {
				end(nil)
				return &items[i], nil
			}
		}
	}

	err := fmt.Errorf("%w: %s", ErrNotFound, id)
	if lastErr != nil {
		err = fmt.Errorf("%w (last feed error: %v)", err, lastErr)
	}
	end(err)
	return nil, err
}

func (n *News) loadFeed(ctx context.Context, feedURL string) ([]models.ContentCard, error) {
	var cards []models.ContentCard
	err := n.cached(ctx, feedURL,
		func(ctx context.Context) ([]byte, error) {
			body, err := n.http.Get(ctx, feedURL, nil)
			if err != nil {
				return nil, err
			}
			feed, err := n.parser.Parse(bytes.NewReader(body))
			if err != nil {
				return nil, fmt.Errorf("parsing feed %s: %w", feedURL, err)
			}
			return json.Marshal(feedCards(feed))
		},
		func(payload []byte) error {
			var parsed []models.ContentCard
			if err := json.Unmarshal(payload, &parsed); err != nil {
				return err
			}
			cards = parsed
			return nil
		})
	if err != nil {
		return nil, err
	}
	n.logger.Debug("Feed loaded", zap.String("feed", feedURL), zap.Int("items", len(cards)))
	return cards, nil
}

// feedCards normalizes feed items; items without a link have no stable id
// and are dropped.
func feedCards(feed *gofeed.Feed) []models.ContentCard {
	source := strings.TrimSpace(feed.Title)
	if source == "" {
		source = "News Source"
	}

	cards := make([]models.ContentCard, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		body := item.Description
		if body == "" {
			body = item.Content
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = "News Article"
		}
		card := models.ContentCard{
			ID:        models.CardID(NewsTag, linkID(item.Link)),
			Title:     title,
			Content:   truncate(plainText(body), newsMaxContent),
			Source:    source,
			SourceURL: item.Link,
			Category:  "news",
			Topic:     NewsTag,
		}
		if item.Image != nil {
			card.ImageURL = item.Image.URL
		}
		cards = append(cards, card)
	}
	return cards
}

func linkID(link string) string {
	h := sha256.Sum256([]byte(link))
	return hex.EncodeToString(h[:16])
}
