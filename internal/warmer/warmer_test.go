package warmer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/scrollkit/cardfeed/internal/models"
)

type recordingFetcher struct {
	mu      sync.Mutex
	queries []string
	empty   map[string]bool
}

func (f *recordingFetcher) FetchMixed(_ context.Context, user *models.User, query string, limit int) []models.ContentCard {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, query)
	if user != nil || f.empty[query] {
		return nil
	}
	return make([]models.ContentCard, limit)
}

func (f *recordingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func TestWarmOnce(t *testing.T) {
	f := &recordingFetcher{empty: map[string]bool{"quiet": true}}
	w := New(f, []string{"space", "quiet", "art"}, time.Minute)

	total := w.WarmOnce(context.Background())
	require.Equal(t, 2*Limit, total)
	require.Equal(t, []string{"space", "quiet", "art"}, f.queries)
}

func TestRunRepeatsUntilCancelled(t *testing.T) {
	f := &recordingFetcher{}
	w := New(f, []string{"space"}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return f.count() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("warmer did not stop after cancel")
	}
}

func TestNewDefaultsInterval(t *testing.T) {
	w := New(&recordingFetcher{}, nil, 0)
	require.Equal(t, time.Hour, w.interval)
}
