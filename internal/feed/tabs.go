package feed

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scrollkit/cardfeed/internal/auth"
	"github.com/scrollkit/cardfeed/internal/models"
	"github.com/scrollkit/cardfeed/pkg/telemetry"
)

// Tab is a feed the UI can show
type Tab string

const (
	TabForYou   Tab = "for-you"
	TabTrending Tab = "trending"
	TabSaved    Tab = "saved"
	TabShared   Tab = "shared"
)

// LimitedContentNotice is set on an empty for-you or trending page
const LimitedContentNotice = "limited content available"

// forYouBackfillMin is the first-pass size below which for-you backfills
const forYouBackfillMin = 20

var (
	// ErrUnknownTab is returned for a tab name outside the four feeds
	ErrUnknownTab = errors.New("unknown feed tab")

	forYouTopics = []string{"space", "science", "technology", "nature", "history", "art"}

	trendingTabTopics = []string{
		"Artificial Intelligence", "Space Exploration",
		"Climate Change", "Quantum Computing",
		"Renewable Energy", "Biotechnology",
		"Robotics", "Virtual Reality",
		"Machine Learning", "Cybersecurity",
		"Neuroscience", "Astronomy",
		"Physics", "Nanotechnology",
		"Genetics", "Blockchain",
		"Nuclear Fusion", "Sustainable Development",
		"Digital Art", "Internet of Things",
	}

	trendingBackupQueries = []string{
		"latest discoveries",
		"breakthrough technology",
		"scientific advancements",
		"future technology",
	}
)

// Library is the per-user store behind the saved and shared tabs
type Library interface {
	Saved(ctx context.Context, user *models.User) ([]models.UserInteraction, error)
	Received(ctx context.Context, user *models.User) ([]models.SharedContent, error)
}

// Page is one rendered feed
type Page struct {
	Tab    Tab                  `json:"tab"`
	Cards  []models.ContentCard `json:"cards"`
	Notice string               `json:"notice,omitempty"`
}

// ParseTab validates a tab name
func ParseTab(name string) (Tab, error) {
	switch tab := Tab(name); tab {
	case TabForYou, TabTrending, TabSaved, TabShared:
		return tab, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTab, name)
	}
}

// FetchForFeed builds the page for tab. Saved and shared need a user and
// fail with auth.ErrAuthRequired otherwise. An empty for-you or trending
// page is not an error; it carries LimitedContentNotice.
func (a *Aggregator) FetchForFeed(ctx context.Context, user *models.User, tab Tab, query string) (*Page, error) {
	ctx, span := telemetry.StartSpan(ctx, "feed.fetch_for_feed")
	var err error
	defer func() { telemetry.EndSpan(span, err) }()
	span.SetAttributes(attribute.String("tab", string(tab)))

	page := &Page{Tab: tab}
	switch tab {
	case TabForYou:
		page.Cards = a.forYou(ctx, user, query)
	case TabTrending:
		page.Cards = a.trending(ctx, user)
	case TabSaved:
		page.Cards, err = a.saved(ctx, user)
	case TabShared:
		page.Cards, err = a.shared(ctx, user)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownTab, tab)
	}
	if err != nil {
		return nil, err
	}

	if page.Cards == nil {
		page.Cards = []models.ContentCard{}
	}
	if len(page.Cards) == 0 && (tab == TabForYou || tab == TabTrending) {
		page.Notice = LimitedContentNotice
	}
	span.SetAttributes(attribute.Int("cards", len(page.Cards)))
	return page, nil
}

func (a *Aggregator) forYou(ctx context.Context, user *models.User, query string) []models.ContentCard {
	cards := a.mix(ctx, user, query)

	if len(cards) < forYouBackfillMin {
		seen := idSet(cards)
		for _, topic := range forYouTopics {
			if len(cards) >= a.cfg.Target {
				break
			}
			cards = appendUnseen(cards, seen, a.mix(ctx, user, topic))
		}
		if len(cards) < a.cfg.Target {
			cards = appendUnseen(cards, seen, a.FetchTrending(ctx, user))
		}
	}

	cards = dedup(cards)
	if len(cards) > a.cfg.Ceiling {
		cards = cards[:a.cfg.Ceiling]
	}
	a.shuffle(cards)
	return cards
}

// trending walks the topic list, then the backup queries while short of the
// target. Both loops count distinct cards, so overlapping topics keep the
// walk going. Padding copies are added only once every source is spent.
func (a *Aggregator) trending(ctx context.Context, user *models.User) []models.ContentCard {
	var cards []models.ContentCard
	seen := make(map[string]bool)

	for i, topic := range trendingTabTopics {
		if len(cards) >= a.cfg.Ceiling {
			break
		}
		cards = appendBatch(cards, seen, a.mix(ctx, user, topic), fmt.Sprintf("batch%d", i))
	}
	if len(cards) < a.cfg.Target {
		for i, q := range trendingBackupQueries {
			if len(cards) >= a.cfg.Ceiling {
				break
			}
			cards = appendBatch(cards, seen, a.mix(ctx, user, q), fmt.Sprintf("backup%d", i))
		}
	}

	if len(cards) > a.cfg.Ceiling {
		cards = cards[:a.cfg.Ceiling]
	}
	if len(cards) < a.cfg.Target {
		cards = pad(cards, a.cfg.Ceiling)
	}
	a.shuffle(cards)
	return cards
}

func (a *Aggregator) saved(ctx context.Context, user *models.User) ([]models.ContentCard, error) {
	if err := auth.RequireUser(user); err != nil {
		return nil, err
	}
	if a.library == nil {
		return []models.ContentCard{}, nil
	}

	rows, err := a.library.Saved(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("listing saved cards: %w", err)
	}
	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.CardID
	}
	cards := a.refetch(ctx, ids)

	out := make([]models.ContentCard, 0, len(cards))
	for _, c := range cards {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (a *Aggregator) shared(ctx context.Context, user *models.User) ([]models.ContentCard, error) {
	if err := auth.RequireUser(user); err != nil {
		return nil, err
	}
	if a.library == nil {
		return []models.ContentCard{}, nil
	}

	shares, err := a.library.Received(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("listing shared cards: %w", err)
	}
	ids := make([]string, len(shares))
	for i, s := range shares {
		ids[i] = s.CardID
	}
	cards := a.refetch(ctx, ids)

	out := make([]models.ContentCard, 0, len(cards))
	for i, c := range cards {
		if c == nil {
			continue
		}
		if sender := shares[i].Sender; sender != nil {
			c.SharedBy = sender.Email
		}
		out = append(out, *c)
	}
	return out, nil
}

// refetch loads each id through its provider with bounded parallelism. The
// result is index-aligned with ids; failures leave a nil slot.
func (a *Aggregator) refetch(ctx context.Context, ids []string) []*models.ContentCard {
	cards := make([]*models.ContentCard, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.RefetchWorkers)
	for i, id := range ids {
		g.Go(func() error {
			card, err := a.registry.FetchByCardID(gctx, id)
			if err != nil {
				a.logger.Warn("Skipping card that could not be refetched",
					zap.String("card_id", id),
					zap.Error(err))
				return nil
			}
			cards[i] = card
			return nil
		})
	}
	_ = g.Wait()
	return cards
}

func idSet(cards []models.ContentCard) map[string]bool {
	seen := make(map[string]bool, len(cards))
	for _, c := range cards {
		seen[c.ID] = true
	}
	return seen
}

func appendUnseen(cards []models.ContentCard, seen map[string]bool, extra []models.ContentCard) []models.ContentCard {
	for _, c := range extra {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		cards = append(cards, c)
	}
	return cards
}

// appendBatch appends the unseen cards of batch stamped with batchID
func appendBatch(cards []models.ContentCard, seen map[string]bool, batch []models.ContentCard, batchID string) []models.ContentCard {
	for _, c := range batch {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		c.BatchID = batchID
		cards = append(cards, c)
	}
	return cards
}

// pad appends at most one marked copy of each card until limit is reached.
// An empty feed stays empty.
func pad(cards []models.ContentCard, limit int) []models.ContentCard {
	original := len(cards)
	for i := 0; i < original && len(cards) < limit; i++ {
		dup := cards[i]
		dup.ID = models.DuplicateCardID(len(cards), cards[i].ID)
		dup.Duplicate = true
		cards = append(cards, dup)
	}
	return cards
}
