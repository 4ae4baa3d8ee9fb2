package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/scrollkit/cardfeed/internal/cache"
	"github.com/scrollkit/cardfeed/internal/models"
	"github.com/scrollkit/cardfeed/pkg/config"
)

const (
	// NasaTag prefixes every nasa card id
	NasaTag = "nasa"

	nasaDefaultQuery = "space"
	nasaYearStart    = "2010"
	nasaMaxContent   = 1200
)

type nasaResponse struct {
	Collection *struct {
		Items []nasaItem `json:"items"`
	} `json:"collection"`
}

type nasaItem struct {
	Data []struct {
		NasaID      string `json:"nasa_id"`
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"data"`
	Links []struct {
		Href   string `json:"href"`
		Render string `json:"render"`
	} `json:"links"`
}

// Nasa searches the NASA Image and Video Library for still images
type Nasa struct {
	base
	endpoint string
}

// NewNasa creates the space-agency media adapter
func NewNasa(cfg *config.ProvidersConfig, rc *cache.ResponseCache) *Nasa {
	return &Nasa{
		base:     newBase(NasaTag, cfg, rc),
		endpoint: cfg.NasaURL,
	}
}

// DefaultQuery is searched when the caller gives no term
func (n *Nasa) DefaultQuery() string { return nasaDefaultQuery }

// Fetch searches for query, returning at most limit image cards
func (n *Nasa) Fetch(ctx context.Context, query string, limit int) []models.ContentCard {
	if query == "" {
		query = nasaDefaultQuery
	}
	limit = normalizeLimit(limit)

	ctx, end := n.startSpan(ctx, "fetch")
	var cards []models.ContentCard
	err := n.cached(ctx, queryKey(query, limit),
		func(ctx context.Context) ([]byte, error) {
			params := url.Values{}
			params.Set("q", query)
			params.Set("media_type", "image")
			params.Set("year_start", nasaYearStart)
			params.Set("page_size", strconv.Itoa(limit))
			return n.http.Get(ctx, n.endpoint, params)
		},
		func(payload []byte) error {
			parsed, err := parseNasa(payload)
			if err == nil {
				cards = parsed
			}
			return err
		})
	end(err)
	if err != nil {
		n.fail(ctx, query, err)
		return []models.ContentCard{}
	}

	if len(cards) > limit {
		cards = cards[:limit]
	}
	return cards
}

// FetchByID loads a single image by nasa_id
func (n *Nasa) FetchByID(ctx context.Context, nativeID string) (*models.ContentCard, error) {
	ctx, end := n.startSpan(ctx, "fetch_by_id")
	var cards []models.ContentCard
	err := n.cached(ctx, "nasa_id:"+nativeID,
		func(ctx context.Context) ([]byte, error) {
			params := url.Values{}
			params.Set("nasa_id", nativeID)
			return n.http.Get(ctx, n.endpoint, params)
		},
		func(payload []byte) error {
			parsed, err := parseNasa(payload)
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
	return nil, fmt.Errorf("%w: %s", ErrNotFound, models.CardID(NasaTag, nativeID))
}

// parseNasa normalizes a search response. Items without a nasa_id or without
// a renderable image link are dropped.
func parseNasa(payload []byte) ([]models.ContentCard, error) {
	var resp nasaResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, err
	}
	if resp.Collection == nil {
		return []models.ContentCard{}, nil
	}

	cards := make([]models.ContentCard, 0, len(resp.Collection.Items))
	for _, item := range resp.Collection.Items {
		if len(item.Data) == 0 || item.Data[0].NasaID == "" {
			continue
		}
		var image string
		for _, link := range item.Links {
			if link.Render == "image" && link.Href != "" {
				image = link.Href
				break
			}
		}
		if image == "" {
			continue
		}

		data := item.Data[0]
		title := data.Title
		if title == "" {
			title = "NASA Content"
		}
		cards = append(cards, models.ContentCard{
			ID:        models.CardID(NasaTag, data.NasaID),
			Title:     title,
			Content:   truncate(plainText(data.Description), nasaMaxContent),
			ImageURL:  image,
			Source:    "NASA",
			SourceURL: "https://images.nasa.gov/details-" + data.NasaID,
			Category:  "science",
			Topic:     NasaTag,
		})
	}
	return cards, nil
}
