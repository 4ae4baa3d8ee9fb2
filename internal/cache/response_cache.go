package cache

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/scrollkit/cardfeed/pkg/logging"
	"github.com/scrollkit/cardfeed/pkg/telemetry"
)

// DefaultTTL is the single expiry policy for every provider
const DefaultTTL = 24 * time.Hour

// ResponseCache is a cache-aside layer for raw provider responses. It never
// fails its caller: store errors read as misses and failed writes are dropped.
type ResponseCache struct {
	store   Store
	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
	lookups metric.Int64Counter
}

// NewResponseCache wraps store. A nil store disables caching.
func NewResponseCache(store Store, ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResponseCache{
		store:   store,
		ttl:     ttl,
		now:     time.Now,
		logger:  logging.WithComponent("response-cache"),
		lookups: telemetry.Int64Counter("cardfeed.cache.lookups", "Response cache lookups by result"),
	}
}

// WithClock overrides the time source
func (c *ResponseCache) WithClock(now func() time.Time) *ResponseCache {
	c.now = now
	return c
}

// Get returns the cached payload for (provider, query), or false when absent,
// expired, or unreadable.
func (c *ResponseCache) Get(ctx context.Context, provider, query string) ([]byte, bool) {
	if c == nil || c.store == nil {
		return nil, false
	}

	ctx, span := telemetry.StartSpan(ctx, "cache.get")
	span.SetAttributes(attribute.String("provider", provider))
	defer span.End()

	payload, ok, err := c.store.Get(ctx, provider, query, c.now())
	switch {
	case err != nil:
		c.lookups.Add(ctx, 1, telemetry.Attr("result", "error"))
		c.logger.Warn("Cache read failed, treating as miss",
			zap.String("provider", provider),
			zap.String("query", query),
			zap.Error(err))
		return nil, false
	case !ok:
		c.lookups.Add(ctx, 1, telemetry.Attr("result", "miss"))
		return nil, false
	default:
		c.lookups.Add(ctx, 1, telemetry.Attr("result", "hit"))
		return payload, true
	}
}

// Put stores payload for the configured TTL. Failures are logged and dropped.
func (c *ResponseCache) Put(ctx context.Context, provider, query string, payload []byte) {
	if c == nil || c.store == nil {
		return
	}

	ctx, span := telemetry.StartSpan(ctx, "cache.put")
	span.SetAttributes(attribute.String("provider", provider))
	defer span.End()

	cachedAt := c.now()
	if err := c.store.Put(ctx, provider, query, payload, cachedAt, cachedAt.Add(c.ttl)); err != nil {
		c.logger.Warn("Cache write failed",
			zap.String("provider", provider),
			zap.String("query", query),
			zap.Error(err))
	}
}
