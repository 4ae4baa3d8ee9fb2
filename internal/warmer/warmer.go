// Package warmer keeps the response cache populated for common topics.
package warmer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/scrollkit/cardfeed/internal/models"
	"github.com/scrollkit/cardfeed/pkg/logging"
	"github.com/scrollkit/cardfeed/pkg/telemetry"
)

// Limit is the per-topic limit each warming pass requests
const Limit = 10

// Fetcher runs one anonymous mixed fetch
type Fetcher interface {
	FetchMixed(ctx context.Context, user *models.User, query string, limit int) []models.ContentCard
}

// Warmer periodically fetches a fixed topic list so that user requests for
// those topics are served from the cache.
type Warmer struct {
	fetcher  Fetcher
	topics   []string
	interval time.Duration
	logger   *zap.Logger
}

// New creates a warmer. A non-positive interval defaults to one hour.
func New(fetcher Fetcher, topics []string, interval time.Duration) *Warmer {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Warmer{
		fetcher:  fetcher,
		topics:   topics,
		interval: interval,
		logger:   logging.WithComponent("warmer"),
	}
}

// Run warms immediately and then once per interval until ctx is done
func (w *Warmer) Run(ctx context.Context) error {
	w.logger.Info("Starting cache warmer",
		zap.Int("topics", len(w.topics)),
		zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Cache warmer stopped")
			return ctx.Err()
		default:
		}

		w.WarmOnce(ctx)
		w.wait(ctx)
	}
}

// WarmOnce fetches every topic once and returns the number of cards seen
func (w *Warmer) WarmOnce(ctx context.Context) int {
	ctx, span := telemetry.StartSpan(ctx, "warmer.pass")
	defer span.End()

	start := time.Now()
	total := 0
	for _, topic := range w.topics {
		if ctx.Err() != nil {
			break
		}
		cards := w.fetcher.FetchMixed(ctx, nil, topic, Limit)
		if len(cards) == 0 {
			w.logger.Warn("Warming returned no cards", zap.String("topic", topic))
		}
		total += len(cards)
	}

	w.logger.Info("Cache warmed",
		zap.Int("cards", total),
		zap.Duration("elapsed", time.Since(start)))
	return total
}

func (w *Warmer) wait(ctx context.Context) {
	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
