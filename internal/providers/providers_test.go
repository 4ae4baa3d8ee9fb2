package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/scrollkit/cardfeed/internal/cache"
	"github.com/scrollkit/cardfeed/internal/db"
	"github.com/scrollkit/cardfeed/internal/db/dbtest"
	"github.com/scrollkit/cardfeed/internal/models"
	"github.com/scrollkit/cardfeed/pkg/config"
)

const wikipediaSearchBody = `{
  "batchcomplete": "",
  "query": {
    "pages": {
      "200": {"pageid": 200, "index": 2, "title": "Mars rover", "extract": "A rover."},
      "100": {"pageid": 100, "index": 1, "title": "Mars", "extract": "The fourth planet.",
              "thumbnail": {"source": "https://upload.example/mars.jpg"}},
      "-1":  {"index": 3, "title": "Missing", "missing": ""}
    }
  }
}`

const nasaSearchBody = `{
  "collection": {
    "items": [
      {"data": [{"nasa_id": "KSC-2012-1234", "title": "Launch", "description": "<p>Liftoff<br>at dawn</p>"}],
       "links": [{"href": "https://images.example/launch.jpg", "render": "image"}]},
      {"data": [{"nasa_id": "no-image", "title": "Audio"}],
       "links": [{"href": "https://images.example/a.srt", "render": "caption"}]},
      {"data": [{"title": "No id"}],
       "links": [{"href": "https://images.example/x.jpg", "render": "image"}]}
    ]
  }
}`

const rssBody = `<?xml version="1.0"?>
<rss version="2.0"><channel>
  <title>Science Daily</title>
  <item><title>Mars water found</title><link>https://news.example/mars</link><description>&lt;b&gt;Big&lt;/b&gt; news</description></item>
  <item><title>Quantum chips</title><link>https://news.example/quantum</link><description>Qubits</description></item>
  <item><title>No link</title><description>Dropped</description></item>
</channel></rss>`

func testCache(t *testing.T) *cache.ResponseCache {
	t.Helper()
	repo := db.NewCacheRepository(db.NewRepository(dbtest.New(t).DB))
	return cache.NewResponseCache(cache.NewDBStore(repo), time.Hour)
}

func testConfig(url string) *config.ProvidersConfig {
	return &config.ProvidersConfig{
		WikipediaURL:   url,
		NasaURL:        url,
		RequestTimeout: 2 * time.Second,
		UserAgent:      "cardfeed-test",
	}
}

func TestWikipediaFetch(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		q := r.URL.Query()
		if q.Get("generator") != "search" || q.Get("gsrsearch") != "Mars" || q.Get("gsrlimit") != "3" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		if q.Get("prop") != "extracts|pageimages" || q.Get("pithumbsize") != "400" {
			t.Errorf("unexpected props: %s", r.URL.RawQuery)
		}
		if r.Header.Get("User-Agent") != "cardfeed-test" {
			t.Errorf("unexpected user agent %q", r.Header.Get("User-Agent"))
		}
		fmt.Fprint(w, wikipediaSearchBody)
	}))
	defer srv.Close()

	w := NewWikipedia(testConfig(srv.URL), testCache(t))
	cards := w.Fetch(context.Background(), "Mars", 3)

	want := []models.ContentCard{
		{
			ID:        "wikipedia-100",
			Title:     "Mars",
			Content:   "The fourth planet.",
			ImageURL:  "https://upload.example/mars.jpg",
			Source:    "Wikipedia",
			SourceURL: "https://en.wikipedia.org/?curid=100",
			Category:  "knowledge",
			Topic:     "wikipedia",
		},
		{
			ID:        "wikipedia-200",
			Title:     "Mars rover",
			Content:   "A rover.",
			Source:    "Wikipedia",
			SourceURL: "https://en.wikipedia.org/?curid=200",
			Category:  "knowledge",
			Topic:     "wikipedia",
		},
	}
	if diff := cmp.Diff(want, cards); diff != "" {
		t.Errorf("Fetch() mismatch (-want +got):\n%s", diff)
	}

	// Second call is served from the response cache.
	w.Fetch(context.Background(), "Mars", 3)
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected 1 upstream call, got %d", got)
	}

	// A different limit is a different cache key.
	w.Fetch(context.Background(), "Mars", 4)
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("expected 2 upstream calls, got %d", got)
	}
}

func TestWikipediaDefaultQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("gsrsearch"); got != "featured" {
			t.Errorf("gsrsearch = %q, want featured", got)
		}
		fmt.Fprint(w, `{"batchcomplete": ""}`)
	}))
	defer srv.Close()

	cards := NewWikipedia(testConfig(srv.URL), nil).Fetch(context.Background(), "", 2)
	if cards == nil || len(cards) != 0 {
		t.Errorf("expected empty non-nil result, got %#v", cards)
	}
}

func TestWikipediaFetchByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("pageids"); got != "100" {
			t.Errorf("pageids = %q, want 100", got)
		}
		fmt.Fprint(w, wikipediaSearchBody)
	}))
	defer srv.Close()

	w := NewWikipedia(testConfig(srv.URL), nil)
	card, err := w.FetchByID(context.Background(), "100")
	if err != nil {
		t.Fatalf("FetchByID() error = %v", err)
	}
	if card.ID != "wikipedia-100" {
		t.Errorf("FetchByID() id = %s", card.ID)
	}

	if _, err := w.FetchByID(context.Background(), "abc"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FetchByID(non-numeric) error = %v, want ErrNotFound", err)
	}
}

func TestNasaFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "space" || q.Get("media_type") != "image" || q.Get("year_start") != "2010" || q.Get("page_size") != "3" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		fmt.Fprint(w, nasaSearchBody)
	}))
	defer srv.Close()

	cards := NewNasa(testConfig(srv.URL), nil).Fetch(context.Background(), "", 3)

	want := []models.ContentCard{{
		ID:        "nasa-KSC-2012-1234",
		Title:     "Launch",
		Content:   "Liftoff at dawn",
		ImageURL:  "https://images.example/launch.jpg",
		Source:    "NASA",
		SourceURL: "https://images.nasa.gov/details-KSC-2012-1234",
		Category:  "science",
		Topic:     "nasa",
	}}
	if diff := cmp.Diff(want, cards); diff != "" {
		t.Errorf("Fetch() mismatch (-want +got):\n%s", diff)
	}
	if got := models.NativeID(cards[0].ID); got != "KSC-2012-1234" {
		t.Errorf("NativeID() = %s", got)
	}
}

func TestNasaFetchByID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("nasa_id"); got != "KSC-2012-1234" {
			t.Errorf("nasa_id = %q", got)
		}
		fmt.Fprint(w, nasaSearchBody)
	}))
	defer srv.Close()

	n := NewNasa(testConfig(srv.URL), nil)
	card, err := n.FetchByID(context.Background(), "KSC-2012-1234")
	if err != nil {
		t.Fatalf("FetchByID() error = %v", err)
	}
	if card.Title != "Launch" {
		t.Errorf("FetchByID() title = %s", card.Title)
	}

	if _, err := n.FetchByID(context.Background(), "no-image"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FetchByID(imageless) error = %v, want ErrNotFound", err)
	}
}

func TestFetchFailOpen(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"query":`)
		}},
		{"hung upstream", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			cfg := testConfig(srv.URL)
			cfg.RequestTimeout = 100 * time.Millisecond
			rc := testCache(t)

			for _, p := range []Provider{NewWikipedia(cfg, rc), NewNasa(cfg, rc)} {
				cards := p.Fetch(context.Background(), "Mars", 3)
				if cards == nil || len(cards) != 0 {
					t.Errorf("%s: expected empty result, got %#v", p.Tag(), cards)
				}
			}

			// Failures are never cached.
			if _, ok := rc.Get(context.Background(), WikipediaTag, "Mars|3"); ok {
				t.Error("failed response must not be cached")
			}
		})
	}
}

func TestNewsFetch(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssBody)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.NewsFeeds = []string{srv.URL + "/feed"}
	n := NewNews(cfg, testCache(t))
	ctx := context.Background()

	all := n.Fetch(ctx, "", 10)
	if len(all) != 2 {
		t.Fatalf("expected 2 linked items, got %d", len(all))
	}
	if all[0].ID != "news-"+linkID("https://news.example/mars") {
		t.Errorf("unexpected id %s", all[0].ID)
	}
	if all[0].Content != "Big news" || all[0].Source != "Science Daily" {
		t.Errorf("unexpected normalization: %#v", all[0])
	}

	quantum := n.Fetch(ctx, "QUANTUM", 10)
	if len(quantum) != 1 || quantum[0].Title != "Quantum chips" {
		t.Errorf("expected only the quantum item, got %#v", quantum)
	}

	card, err := n.FetchByID(ctx, models.NativeID(all[1].ID))
	if err != nil || card.Title != "Quantum chips" {
		t.Errorf("FetchByID() = %#v, %v", card, err)
	}
	if _, err := n.FetchByID(ctx, "deadbeef"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FetchByID(unknown) error = %v, want ErrNotFound", err)
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("expected feed to be fetched once, got %d", got)
	}
}

func TestRegistry(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	r := FromConfig(cfg, nil)

	if len(r.All()) != 2 {
		t.Fatalf("expected wikipedia and nasa without news feeds, got %d", len(r.All()))
	}
	if r.All()[0].Tag() != WikipediaTag || r.All()[1].Tag() != NasaTag {
		t.Errorf("unexpected registration order")
	}

	cfg.NewsFeeds = []string{"http://127.0.0.1:1/feed"}
	if _, ok := FromConfig(cfg, nil).Get(NewsTag); !ok {
		t.Error("expected news provider when feeds are configured")
	}

	if _, err := r.FetchByCardID(context.Background(), "reddit-123"); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("FetchByCardID(unknown) error = %v, want ErrUnknownProvider", err)
	}
	if _, err := r.FetchByCardID(context.Background(), "wikipedia"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FetchByCardID(no native id) error = %v, want ErrNotFound", err)
	}
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain  text\n here", "plain text here"},
		{"<p>Hello<br>world</p>", "Hello world"},
		{"Fish &amp; chips", "Fish & chips"},
	}
	for _, tt := range tests {
		if got := plainText(tt.in); got != tt.want {
			t.Errorf("plainText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
