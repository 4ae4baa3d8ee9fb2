package account

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/scrollkit/cardfeed/internal/api/rpc"
	"github.com/scrollkit/cardfeed/internal/interactions"
)

// ProfileAPI provides per-user read methods
type ProfileAPI struct {
	recorder *interactions.Recorder
}

// NewProfileAPI creates a new profile API
func NewProfileAPI(recorder *interactions.Recorder) *ProfileAPI {
	return &ProfileAPI{recorder: recorder}
}

// topicCount is one row of account.get_preferences
type topicCount struct {
	Topic     string `json:"topic"`
	Count     int64  `json:"count"`
	UpdatedAt string `json:"updated_at"`
}

// GetPreferences handles account.get_preferences
func (p *ProfileAPI) GetPreferences(ctx *gin.Context, _ json.RawMessage) (interface{}, error) {
	prefs, err := p.recorder.Preferences(ctx.Request.Context(), rpc.CurrentUser(ctx))
	if err != nil {
		return nil, err
	}

	result := make([]topicCount, len(prefs))
	for i, pref := range prefs {
		result[i] = topicCount{
			Topic:     pref.Topic,
			Count:     pref.Count,
			UpdatedAt: pref.UpdatedAt.UTC().Format(time.RFC3339),
		}
	}
	return result, nil
}
