package feed

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scrollkit/cardfeed/internal/auth"
	"github.com/scrollkit/cardfeed/internal/models"
	"github.com/scrollkit/cardfeed/internal/providers"
)

func TestParseTab(t *testing.T) {
	for _, name := range []string{"for-you", "trending", "saved", "shared"} {
		tab, err := ParseTab(name)
		require.NoError(t, err)
		require.Equal(t, Tab(name), tab)
	}
	_, err := ParseTab("popular")
	require.ErrorIs(t, err, ErrUnknownTab)
}

func TestTrendingTabReachesTarget(t *testing.T) {
	wiki := &fakeProvider{tag: "wikipedia", defQuery: "featured"}
	nasa := &fakeProvider{tag: "nasa", defQuery: "space"}
	a := newTestAggregator(nil, nil, wiki, nasa)

	page, err := a.FetchForFeed(context.Background(), nil, TabTrending, "")
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(page.Cards), 40)
	require.LessOrEqual(t, len(page.Cards), 50)
	require.Empty(t, page.Notice)
	requireUnique(t, page.Cards)
	var firstBatch int
	for _, c := range page.Cards {
		require.True(t, strings.HasPrefix(c.BatchID, "batch"), "card %s has batch %q", c.ID, c.BatchID)
		require.False(t, c.Duplicate)
		if c.BatchID == "batch0" {
			firstBatch++
		}
	}
	// Each topic yields the full quota of both providers (3 + 3).
	require.Equal(t, 6, firstBatch)
}

func TestTrendingTabCountsDistinctCards(t *testing.T) {
	// The first ten topics all return the same five cards.
	alias := make(map[string]string)
	for _, topic := range trendingTabTopics[:10] {
		alias[topic] = "overlap"
	}
	wiki := &fakeProvider{tag: "wikipedia", defQuery: "featured", alias: alias}
	a := newTestAggregator(nil, nil, wiki)
	a.cfg.DefaultQuota = 5

	page, err := a.FetchForFeed(context.Background(), nil, TabTrending, "")
	require.NoError(t, err)

	// 5 shared cards, then 5 per later topic until the ceiling.
	require.Len(t, page.Cards, 50)
	requireUnique(t, page.Cards)
	for _, c := range page.Cards {
		require.False(t, c.Duplicate, "card %s is a padding copy", c.ID)
	}

	var queried []string
	for _, c := range wiki.recorded() {
		queried = append(queried, c.query)
	}
	require.Contains(t, queried, "Neuroscience")
	require.NotContains(t, queried, "Internet of Things")
}

func TestTrendingTabUsesBackupQueries(t *testing.T) {
	// One card per topic: 20 topics leave the feed short of the target.
	wiki := &fakeProvider{tag: "wikipedia", defQuery: "featured"}
	a := newTestAggregator(nil, nil, wiki)
	a.cfg.DefaultQuota = 1

	page, err := a.FetchForFeed(context.Background(), nil, TabTrending, "")
	require.NoError(t, err)

	var backups int
	for _, c := range page.Cards {
		if strings.HasPrefix(c.BatchID, "backup") && !c.Duplicate {
			backups++
		}
	}
	require.Equal(t, 4, backups)
	// 24 real cards, short of the target, so each gains one copy.
	require.Len(t, page.Cards, 48)
	requireUnique(t, page.Cards)
}

func TestTrendingTabPadsScarceSupply(t *testing.T) {
	fixed := []models.ContentCard{
		{ID: "wikipedia-1", Title: "One"},
		{ID: "wikipedia-2", Title: "Two"},
	}
	wiki := &fakeProvider{tag: "wikipedia", fixed: fixed}
	a := newTestAggregator(nil, nil, wiki)

	page, err := a.FetchForFeed(context.Background(), nil, TabTrending, "")
	require.NoError(t, err)

	require.Len(t, page.Cards, 4)
	requireUnique(t, page.Cards)
	var dups int
	for _, c := range page.Cards {
		if c.Duplicate {
			dups++
			base := models.BaseCardID(c.ID)
			require.NotEqual(t, c.ID, base)
			require.Contains(t, []string{"wikipedia-1", "wikipedia-2"}, base)
		}
	}
	require.Equal(t, 2, dups)
}

func TestEmptyFeedsCarryNotice(t *testing.T) {
	a := newTestAggregator(nil, nil,
		&fakeProvider{tag: "wikipedia", failing: true},
		&fakeProvider{tag: "nasa", failing: true})

	for _, tab := range []Tab{TabForYou, TabTrending} {
		page, err := a.FetchForFeed(context.Background(), nil, tab, "")
		require.NoError(t, err)
		require.NotNil(t, page.Cards)
		require.Empty(t, page.Cards)
		require.Equal(t, LimitedContentNotice, page.Notice)
	}
}

func TestForYouBackfill(t *testing.T) {
	wiki := &fakeProvider{tag: "wikipedia", defQuery: "featured"}
	nasa := &fakeProvider{tag: "nasa", defQuery: "apollo"}
	a := newTestAggregator(nil, nil, wiki, nasa)

	page, err := a.FetchForFeed(context.Background(), nil, TabForYou, "")
	require.NoError(t, err)

	// 4 fallback cards, then 6 per backfill topic; the sixth topic meets
	// the target so trending is never consulted.
	require.Len(t, page.Cards, 40)
	requireUnique(t, page.Cards)
	require.Len(t, wiki.recorded(), 1+len(forYouTopics))
}

func TestForYouWithQueryFallsBackToTrending(t *testing.T) {
	wiki := &fakeProvider{tag: "wikipedia", defQuery: "featured"}
	a := NewAggregator(providers.NewRegistry(wiki), nil, nil, testFeedConfig(),
		WithShuffle(noShuffle),
		WithPicker(func(int) int { return 0 }))

	page, err := a.FetchForFeed(context.Background(), nil, TabForYou, "Mars")
	require.NoError(t, err)

	// 3 for the query, 3 per topic for six topics, 3 trending.
	require.Len(t, page.Cards, 3+6*3+3)
	requireUnique(t, page.Cards)
	require.Contains(t, wiki.recorded(), call{"Artificial Intelligence", 3})
}

func TestSavedTab(t *testing.T) {
	wiki := &fakeProvider{tag: "wikipedia", defQuery: "featured"}
	nasa := &fakeProvider{tag: "nasa", defQuery: "space"}
	lib := &fakeLibrary{saved: []models.UserInteraction{
		{CardID: "nasa-KSC-2012-1234", Saved: true},
		{CardID: "reddit-9", Saved: true},
		{CardID: "wikipedia-gone", Saved: true},
		{CardID: "wikipedia-42", Saved: true},
	}}
	a := newTestAggregator(nil, lib, wiki, nasa)

	_, err := a.FetchForFeed(context.Background(), nil, TabSaved, "")
	require.ErrorIs(t, err, auth.ErrAuthRequired)

	page, err := a.FetchForFeed(context.Background(), &models.User{ID: "u1"}, TabSaved, "")
	require.NoError(t, err)
	require.Len(t, page.Cards, 2)
	require.Equal(t, []string{"nasa-KSC-2012-1234", "wikipedia-42"}, []string{page.Cards[0].ID, page.Cards[1].ID})
	require.Empty(t, page.Notice)
}

func TestSharedTab(t *testing.T) {
	wiki := &fakeProvider{tag: "wikipedia", defQuery: "featured"}
	lib := &fakeLibrary{shares: []models.SharedContent{
		{CardID: "wikipedia-2", Sender: &models.Profile{Email: "bob@example.com"}},
		{CardID: "wikipedia-1", Sender: &models.Profile{Email: "carol@example.com"}},
	}}
	a := newTestAggregator(nil, lib, wiki)

	_, err := a.FetchForFeed(context.Background(), nil, TabShared, "")
	require.ErrorIs(t, err, auth.ErrAuthRequired)

	page, err := a.FetchForFeed(context.Background(), &models.User{ID: "alice"}, TabShared, "")
	require.NoError(t, err)
	require.Len(t, page.Cards, 2)
	require.Equal(t, "wikipedia-2", page.Cards[0].ID)
	require.Equal(t, "bob@example.com", page.Cards[0].SharedBy)
	require.Equal(t, "carol@example.com", page.Cards[1].SharedBy)
}

func TestUnknownTab(t *testing.T) {
	a := newTestAggregator(nil, nil, &fakeProvider{tag: "wikipedia"})
	_, err := a.FetchForFeed(context.Background(), nil, Tab("popular"), "")
	require.ErrorIs(t, err, ErrUnknownTab)
}
