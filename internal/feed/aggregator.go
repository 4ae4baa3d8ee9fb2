// Package feed blends provider results into scrollable feeds.
package feed

import (
	"context"
	"math/rand/v2"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scrollkit/cardfeed/internal/models"
	"github.com/scrollkit/cardfeed/internal/providers"
	"github.com/scrollkit/cardfeed/pkg/config"
	"github.com/scrollkit/cardfeed/pkg/logging"
	"github.com/scrollkit/cardfeed/pkg/telemetry"
)

// TrendingLimit is the FetchMixed limit used by FetchTrending
const TrendingLimit = 10

// TrendingTopics are the topics FetchTrending picks from
var TrendingTopics = []string{
	"Artificial Intelligence",
	"Climate Change",
	"Space Exploration",
	"Quantum Computing",
}

// PreferenceSource ranks the providers a user favours
type PreferenceSource interface {
	Estimate(ctx context.Context, user *models.User) ([]string, error)
}

// Option customizes an Aggregator
type Option func(*Aggregator)

// WithShuffle replaces the uniform random permutation
func WithShuffle(shuffle func([]models.ContentCard)) Option {
	return func(a *Aggregator) { a.shuffle = shuffle }
}

// WithPicker replaces the uniform choice of an index in [0, n)
func WithPicker(pick func(n int) int) Option {
	return func(a *Aggregator) { a.pick = pick }
}

// Aggregator fans queries out to providers and mixes the results. It holds
// no per-request state and is safe for concurrent use.
type Aggregator struct {
	registry *providers.Registry
	prefs    PreferenceSource
	library  Library
	cfg      config.FeedConfig
	shuffle  func([]models.ContentCard)
	pick     func(n int) int
	logger   *zap.Logger
}

// NewAggregator creates an aggregator. library serves the saved and shared
// tabs and may be nil when those tabs are not offered.
func NewAggregator(registry *providers.Registry, prefs PreferenceSource, library Library, cfg config.FeedConfig, opts ...Option) *Aggregator {
	a := &Aggregator{
		registry: registry,
		prefs:    prefs,
		library:  library,
		cfg:      cfg,
		shuffle:  shuffleCards,
		pick:     rand.IntN,
		logger:   logging.WithComponent("feed"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type request struct {
	provider providers.Provider
	query    string
	limit    int
}

// FetchMixed blends every provider's results for one pass.
//
// With a query, every provider is searched for it at its quota. Without one,
// each preferred provider is searched with its default query at its quota
// and every provider once more at the fallback quota; the merge is then
// deduplicated by id. Either way the result is shuffled, and a positive
// limit caps its length. Providers that fail contribute nothing.
func (a *Aggregator) FetchMixed(ctx context.Context, user *models.User, query string, limit int) []models.ContentCard {
	ctx, span := telemetry.StartSpan(ctx, "feed.fetch_mixed")
	defer span.End()
	span.SetAttributes(attribute.String("query", query), attribute.Int("limit", limit))

	cards := a.mix(ctx, user, query)
	if limit > 0 && len(cards) > limit {
		cards = cards[:limit]
	}
	span.SetAttributes(attribute.Int("cards", len(cards)))
	return cards
}

// mix is one shuffled FetchMixed pass without a length cap; the quotas
// alone bound how many cards it yields. The tab builders use it directly.
func (a *Aggregator) mix(ctx context.Context, user *models.User, query string) []models.ContentCard {
	ranking := a.ranking(ctx, user)
	quotas := a.quotas(ranking)

	var reqs []request
	if query != "" {
		for _, p := range a.registry.All() {
			reqs = append(reqs, request{provider: p, query: query, limit: quotas[p.Tag()]})
		}
	} else {
		for _, tag := range ranking {
			if p, ok := a.registry.Get(tag); ok {
				reqs = append(reqs, request{provider: p, query: p.DefaultQuery(), limit: quotas[tag]})
			}
		}
		for _, p := range a.registry.All() {
			reqs = append(reqs, request{provider: p, query: p.DefaultQuery(), limit: a.cfg.FallbackQuota})
		}
	}

	cards := a.fanOut(ctx, reqs)
	if query == "" {
		cards = dedup(cards)
	}
	a.shuffle(cards)
	return cards
}

// FetchTrending searches one trending topic picked at random
func (a *Aggregator) FetchTrending(ctx context.Context, user *models.User) []models.ContentCard {
	topic := TrendingTopics[a.pick(len(TrendingTopics))]
	return a.FetchMixed(ctx, user, topic, TrendingLimit)
}

// ranking returns the caller's preferred providers. Estimation failures
// fall back to no preference.
func (a *Aggregator) ranking(ctx context.Context, user *models.User) []string {
	if a.prefs == nil || user == nil {
		return nil
	}
	ranking, err := a.prefs.Estimate(ctx, user)
	if err != nil {
		logging.WithUser(a.logger, user.ID).Warn("Preference estimate failed, using default quotas", zap.Error(err))
		return nil
	}
	return ranking
}

// quotas gives every provider the default quota, unless a ranked provider is
// registered: the first such one is boosted and the rest reduced.
func (a *Aggregator) quotas(ranking []string) map[string]int {
	all := a.registry.All()
	quotas := make(map[string]int, len(all))
	for _, p := range all {
		quotas[p.Tag()] = a.cfg.DefaultQuota
	}
	for _, tag := range ranking {
		if _, ok := quotas[tag]; !ok {
			continue
		}
		for t := range quotas {
			quotas[t] = a.cfg.ReducedQuota
		}
		quotas[tag] = a.cfg.BoostedQuota
		break
	}
	return quotas
}

// fanOut runs reqs in parallel and concatenates their results in request order
func (a *Aggregator) fanOut(ctx context.Context, reqs []request) []models.ContentCard {
	results := make([][]models.ContentCard, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			results[i] = req.provider.Fetch(gctx, req.query, req.limit)
			return nil
		})
	}
	_ = g.Wait()

	var total int
	for _, r := range results {
		total += len(r)
	}
	cards := make([]models.ContentCard, 0, total)
	for _, r := range results {
		cards = append(cards, r...)
	}
	return cards
}

// dedup keeps the first card for each id
func dedup(cards []models.ContentCard) []models.ContentCard {
	seen := make(map[string]bool, len(cards))
	out := cards[:0]
	for _, c := range cards {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, c)
	}
	return out
}

func shuffleCards(cards []models.ContentCard) {
	rand.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
