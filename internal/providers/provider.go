// Package providers adapts upstream content APIs to the common card shape.
package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/scrollkit/cardfeed/internal/cache"
	"github.com/scrollkit/cardfeed/internal/models"
	"github.com/scrollkit/cardfeed/pkg/config"
	"github.com/scrollkit/cardfeed/pkg/logging"
	"github.com/scrollkit/cardfeed/pkg/telemetry"
)

// DefaultLimit is used when a caller asks for zero or fewer cards
const DefaultLimit = 5

var (
	// ErrNotFound is returned by FetchByID when the provider has no such item
	ErrNotFound = errors.New("content not found")
	// ErrUnknownProvider is returned when a card id names no registered provider
	ErrUnknownProvider = errors.New("unknown provider")
)

// Provider is one upstream content source.
//
// Fetch never fails: network, status and decode errors are logged and yield
// an empty slice so one outage cannot sink a whole feed.
type Provider interface {
	Tag() string
	DefaultQuery() string
	Fetch(ctx context.Context, query string, limit int) []models.ContentCard
	FetchByID(ctx context.Context, nativeID string) (*models.ContentCard, error)
}

// base carries what every adapter shares: transport, response cache,
// per-call timeout and failure accounting.
type base struct {
	tag      string
	http     *HTTPClient
	cache    *cache.ResponseCache
	timeout  time.Duration
	logger   *zap.Logger
	failures metric.Int64Counter
}

func newBase(tag string, cfg *config.ProvidersConfig, rc *cache.ResponseCache) base {
	logger := logging.WithComponent("provider").With(zap.String("provider", tag))
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return base{
		tag:      tag,
		http:     NewHTTPClient(timeout, cfg.UserAgent, logger),
		cache:    rc,
		timeout:  timeout,
		logger:   logger,
		failures: telemetry.Int64Counter("cardfeed.provider.failures", "Provider fetches that yielded no contribution"),
	}
}

func (b *base) Tag() string { return b.tag }

// cached runs the cache-aside read for key. A cached payload that no longer
// decodes is ignored and refetched. A fresh payload is only written back
// once decode accepts it.
func (b *base) cached(ctx context.Context, key string, fetch func(context.Context) ([]byte, error), decode func([]byte) error) error {
	if payload, ok := b.cache.Get(ctx, b.tag, key); ok {
		if err := decode(payload); err == nil {
			return nil
		}
		b.logger.Warn("Discarding undecodable cache entry", zap.String("query", key))
	}

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	payload, err := fetch(callCtx)
	if err != nil {
		return err
	}
	if err := decode(payload); err != nil {
		return fmt.Errorf("decoding %s response: %w", b.tag, err)
	}

	b.cache.Put(ctx, b.tag, key, payload)
	return nil
}

// fail records a Fetch that contributed nothing because of err
func (b *base) fail(ctx context.Context, query string, err error) {
	b.failures.Add(ctx, 1, telemetry.Attr("provider", b.tag))
	b.logger.Warn("Provider fetch failed",
		zap.String("query", query),
		zap.Error(err))
}

func (b *base) startSpan(ctx context.Context, op string) (context.Context, func(error)) {
	ctx, span := telemetry.StartSpan(ctx, b.tag+"."+op)
	span.SetAttributes(attribute.String("provider", b.tag))
	return ctx, func(err error) { telemetry.EndSpan(span, err) }
}

// queryKey is the cache key for a search; the limit is part of it because
// the upstream response is already truncated to it.
func queryKey(query string, limit int) string {
	return fmt.Sprintf("%s|%d", query, limit)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

// plainText flattens an HTML fragment to whitespace-normalized text
func plainText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}
	doc.Find("br").AfterHtml("\n")
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 3 {
		return string(runes[:n])
	}
	return string(runes[:n-3]) + "..."
}
