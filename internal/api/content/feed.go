// Package content exposes the feed and card interaction JSON-RPC methods.
package content

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/scrollkit/cardfeed/internal/api/rpc"
	"github.com/scrollkit/cardfeed/internal/feed"
	"github.com/scrollkit/cardfeed/internal/models"
)

// maxMixedLimit caps feed.get_mixed
const maxMixedLimit = 100

// FeedAPI provides feed methods
type FeedAPI struct {
	feed *feed.Aggregator
}

// NewFeedAPI creates a new feed API
func NewFeedAPI(aggregator *feed.Aggregator) *FeedAPI {
	return &FeedAPI{feed: aggregator}
}

type mixedParams struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// GetMixed handles feed.get_mixed
func (f *FeedAPI) GetMixed(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p mixedParams
	if err := rpc.Decode(params, &p); err != nil {
		return nil, err
	}
	if p.Limit < 0 || p.Limit > maxMixedLimit {
		return nil, rpc.InvalidParams(fmt.Errorf("limit must be between 0 and %d", maxMixedLimit))
	}

	cards := f.feed.FetchMixed(ctx.Request.Context(), rpc.CurrentUser(ctx), p.Query, p.Limit)
	if cards == nil {
		cards = []models.ContentCard{}
	}
	return cards, nil
}

type tabParams struct {
	Tab   string `json:"tab"`
	Query string `json:"query"`
}

// GetTab handles feed.get_tab
func (f *FeedAPI) GetTab(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p tabParams
	if err := rpc.Decode(params, &p); err != nil {
		return nil, err
	}
	if p.Tab == "" {
		p.Tab = string(feed.TabForYou)
	}

	tab, err := feed.ParseTab(p.Tab)
	if err != nil {
		return nil, err
	}
	return f.feed.FetchForFeed(ctx.Request.Context(), rpc.CurrentUser(ctx), tab, p.Query)
}

// GetTrending handles feed.get_trending
func (f *FeedAPI) GetTrending(ctx *gin.Context, _ json.RawMessage) (interface{}, error) {
	cards := f.feed.FetchTrending(ctx.Request.Context(), rpc.CurrentUser(ctx))
	if cards == nil {
		cards = []models.ContentCard{}
	}
	return cards, nil
}
