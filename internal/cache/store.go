package cache

import (
	"context"
	"time"

	"github.com/scrollkit/cardfeed/internal/db"
	"github.com/scrollkit/cardfeed/internal/models"
)

// Store is the key-value backend behind ResponseCache
type Store interface {
	Get(ctx context.Context, provider, query string, now time.Time) ([]byte, bool, error)
	Put(ctx context.Context, provider, query string, payload []byte, cachedAt, expiresAt time.Time) error
}

// DBStore keeps provider responses in the api_cache table
type DBStore struct {
	repo *db.CacheRepository
}

// NewDBStore creates a table-backed store
func NewDBStore(repo *db.CacheRepository) *DBStore {
	return &DBStore{repo: repo}
}

// Get returns the payload for (provider, query) when present and not expired at now
func (s *DBStore) Get(ctx context.Context, provider, query string, now time.Time) ([]byte, bool, error) {
	entry, err := s.repo.GetFresh(ctx, provider, query, now)
	if err != nil || entry == nil {
		return nil, false, err
	}
	return []byte(entry.Response), true, nil
}

// Put upserts the payload for (provider, query)
func (s *DBStore) Put(ctx context.Context, provider, query string, payload []byte, cachedAt, expiresAt time.Time) error {
	return s.repo.Upsert(ctx, &models.APICacheEntry{
		APIName:   provider,
		Query:     query,
		Response:  payload,
		CachedAt:  cachedAt.UTC(),
		ExpiresAt: expiresAt.UTC(),
	})
}
