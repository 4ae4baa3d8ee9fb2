package providers

import (
	"context"
	"fmt"

	"github.com/scrollkit/cardfeed/internal/cache"
	"github.com/scrollkit/cardfeed/internal/models"
	"github.com/scrollkit/cardfeed/pkg/config"
)

// Registry holds the configured providers in a fixed order
type Registry struct {
	providers []Provider
	byTag     map[string]Provider
}

// NewRegistry registers providers in the given order. A later provider with
// a duplicate tag replaces the earlier one.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{byTag: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		if _, exists := r.byTag[p.Tag()]; exists {
			for i, q := range r.providers {
				if q.Tag() == p.Tag() {
					r.providers[i] = p
				}
			}
		} else {
			r.providers = append(r.providers, p)
		}
		r.byTag[p.Tag()] = p
	}
	return r
}

// FromConfig builds the wikipedia and nasa adapters, plus news when feeds
// are configured, all reading through rc.
func FromConfig(cfg *config.ProvidersConfig, rc *cache.ResponseCache) *Registry {
	providers := []Provider{
		NewWikipedia(cfg, rc),
		NewNasa(cfg, rc),
	}
	if len(cfg.NewsFeeds) > 0 {
		providers = append(providers, NewNews(cfg, rc))
	}
	return NewRegistry(providers...)
}

// All returns the providers in registration order
func (r *Registry) All() []Provider {
	return r.providers
}

// Get looks up a provider by tag
func (r *Registry) Get(tag string) (Provider, bool) {
	p, ok := r.byTag[tag]
	return p, ok
}

// FetchByCardID re-fetches a card through the provider named by its id prefix
func (r *Registry) FetchByCardID(ctx context.Context, cardID string) (*models.ContentCard, error) {
	cardID = models.BaseCardID(cardID)
	tag := models.ProviderTag(cardID)
	p, ok := r.byTag[tag]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, tag)
	}
	native := models.NativeID(cardID)
	if native == "" {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, cardID)
	}
	return p.FetchByID(ctx, native)
}
