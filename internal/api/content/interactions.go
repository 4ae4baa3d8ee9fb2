package content

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scrollkit/cardfeed/internal/api/rpc"
	"github.com/scrollkit/cardfeed/internal/interactions"
)

var errMissingCardID = errors.New("missing required parameter: card_id")

// InteractionsAPI provides like/save/view and sharing methods
type InteractionsAPI struct {
	recorder *interactions.Recorder
}

// NewInteractionsAPI creates a new interactions API
func NewInteractionsAPI(recorder *interactions.Recorder) *InteractionsAPI {
	return &InteractionsAPI{recorder: recorder}
}

type recordParams struct {
	CardID string `json:"card_id"`
	interactions.Update
}

type cardParams struct {
	CardID string `json:"card_id"`
}

func decodeCard(params json.RawMessage) (string, error) {
	var p cardParams
	if err := rpc.Decode(params, &p); err != nil {
		return "", err
	}
	if p.CardID == "" {
		return "", rpc.InvalidParams(errMissingCardID)
	}
	return p.CardID, nil
}

// Record handles interactions.record
func (i *InteractionsAPI) Record(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p recordParams
	if err := rpc.Decode(params, &p); err != nil {
		return nil, err
	}
	if p.CardID == "" {
		return nil, rpc.InvalidParams(errMissingCardID)
	}

	c := ctx.Request.Context()
	user := rpc.CurrentUser(ctx)
	if err := i.recorder.Record(c, user, p.CardID, p.Update); err != nil {
		return nil, err
	}
	return i.recorder.Get(c, user, p.CardID)
}

// Get handles interactions.get
func (i *InteractionsAPI) Get(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	cardID, err := decodeCard(params)
	if err != nil {
		return nil, err
	}
	return i.recorder.Get(ctx.Request.Context(), rpc.CurrentUser(ctx), cardID)
}

// TrackView handles interactions.track_view
func (i *InteractionsAPI) TrackView(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	cardID, err := decodeCard(params)
	if err != nil {
		return nil, err
	}
	if err := i.recorder.TrackView(ctx.Request.Context(), rpc.CurrentUser(ctx), cardID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"tracked": true}, nil
}

type shareParams struct {
	CardID      string `json:"card_id"`
	RecipientID string `json:"recipient_id"`
}

// Share handles shares.create
func (i *InteractionsAPI) Share(ctx *gin.Context, params json.RawMessage) (interface{}, error) {
	var p shareParams
	if err := rpc.Decode(params, &p); err != nil {
		return nil, err
	}
	if p.CardID == "" || p.RecipientID == "" {
		return nil, rpc.InvalidParams(errors.New("missing required parameters: card_id, recipient_id"))
	}

	share, err := i.recorder.Share(ctx.Request.Context(), rpc.CurrentUser(ctx), p.CardID, p.RecipientID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"id":           share.ID,
		"card_id":      share.CardID,
		"recipient_id": share.RecipientID,
		"shared_at":    share.SharedAt.UTC().Format(time.RFC3339),
	}, nil
}

// ListUsers handles users.list
func (i *InteractionsAPI) ListUsers(ctx *gin.Context, _ json.RawMessage) (interface{}, error) {
	return i.recorder.ListUsers(ctx.Request.Context(), rpc.CurrentUser(ctx))
}
