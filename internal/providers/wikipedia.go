package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/scrollkit/cardfeed/internal/cache"
	"github.com/scrollkit/cardfeed/internal/models"
	"github.com/scrollkit/cardfeed/pkg/config"
)

const (
	// WikipediaTag prefixes every wikipedia card id
	WikipediaTag = "wikipedia"

	wikipediaDefaultQuery = "featured"
	wikipediaThumbSize    = "400"
)

type wikipediaResponse struct {
	Query *struct {
		Pages map[string]wikipediaPage `json:"pages"`
	} `json:"query"`
}

type wikipediaPage struct {
	PageID    int64  `json:"pageid"`
	Index     int    `json:"index"`
	Title     string `json:"title"`
	Extract   string `json:"extract"`
	Thumbnail *struct {
		Source string `json:"source"`
	} `json:"thumbnail"`
}

// Wikipedia searches the MediaWiki action API for article intros
type Wikipedia struct {
	base
	endpoint string
}

// NewWikipedia creates the encyclopedia adapter
func NewWikipedia(cfg *config.ProvidersConfig, rc *cache.ResponseCache) *Wikipedia {
	return &Wikipedia{
		base:     newBase(WikipediaTag, cfg, rc),
		endpoint: cfg.WikipediaURL,
	}
}

// DefaultQuery is searched when the caller gives no term
func (w *Wikipedia) DefaultQuery() string { return wikipediaDefaultQuery }

// Fetch searches for query, returning at most limit article cards
func (w *Wikipedia) Fetch(ctx context.Context, query string, limit int) []models.ContentCard {
	if query == "" {
		query = wikipediaDefaultQuery
	}
	limit = normalizeLimit(limit)

	ctx, end := w.startSpan(ctx, "fetch")
	var cards []models.ContentCard
	err := w.cached(ctx, queryKey(query, limit),
		func(ctx context.Context) ([]byte, error) {
			params := w.baseParams()
			params.Set("generator", "search")
			params.Set("gsrlimit", strconv.Itoa(limit))
			params.Set("gsrsearch", query)
			return w.http.Get(ctx, w.endpoint, params)
		},
		func(payload []byte) error {
			parsed, err := parseWikipedia(payload)
			if err == nil {
				cards = parsed
			}
			return err
		})
	end(err)
	if err != nil {
		w.fail(ctx, query, err)
		return []models.ContentCard{}
	}

	if len(cards) > limit {
		cards = cards[:limit]
	}
	return cards
}

// FetchByID loads a single article by page id
func (w *Wikipedia) FetchByID(ctx context.Context, nativeID string) (*models.ContentCard, error) {
	if _, err := strconv.ParseInt(nativeID, 10, 64); err != nil {
		return nil, fmt.Errorf("%w: wikipedia page id %q", ErrNotFound, nativeID)
	}

	ctx, end := w.startSpan(ctx, "fetch_by_id")
	var cards []models.ContentCard
	err := w.cached(ctx, "pageids:"+nativeID,
		func(ctx context.Context) ([]byte, error) {
			params := w.baseParams()
			params.Set("pageids", nativeID)
			return w.http.Get(ctx, w.endpoint, params)
		},
		func(payload []byte) error {
			parsed, err := parseWikipedia(payload)
			if err == nil {
				cards = parsed
			}
			return err
		})
	end(err)
	if err != nil {
		return nil, err
	}

	for i := range cards {
		if models.NativeID(cards[i].ID) == nativeID {
			return &cards[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, models.CardID(WikipediaTag, nativeID))
}

func (w *Wikipedia) baseParams() url.Values {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("format", "json")
	params.Set("prop", "extracts|pageimages")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("pithumbsize", wikipediaThumbSize)
	params.Set("origin", "*")
	return params
}

// parseWikipedia normalizes a query response. Pages come back as an object
// keyed by page id; they are ordered by search rank, then page id. Missing
// pages (no pageid) are dropped.
func parseWikipedia(payload []byte) ([]models.ContentCard, error) {
	var resp wikipediaResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, err
	}
	if resp.Query == nil {
		return []models.ContentCard{}, nil
	}

	pages := make([]wikipediaPage, 0, len(resp.Query.Pages))
	for _, page := range resp.Query.Pages {
		if page.PageID <= 0 {
			continue
		}
		pages = append(pages, page)
	}
	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Index != pages[j].Index {
			return pages[i].Index < pages[j].Index
		}
		return pages[i].PageID < pages[j].PageID
	})

	cards := make([]models.ContentCard, 0, len(pages))
	for _, page := range pages {
		id := strconv.FormatInt(page.PageID, 10)
		title := page.Title
		if title == "" {
			title = "Wikipedia Article"
		}
		card := models.ContentCard{
			ID:        models.CardID(WikipediaTag, id),
			Title:     title,
			Content:   page.Extract,
			Source:    "Wikipedia",
			SourceURL: "https://en.wikipedia.org/?curid=" + id,
			Category:  "knowledge",
			Topic:     WikipediaTag,
		}
		if page.Thumbnail != nil {
			card.ImageURL = page.Thumbnail.Source
		}
		cards = append(cards, card)
	}
	return cards, nil
}
