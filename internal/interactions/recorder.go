// Package interactions persists what users do with cards.
package interactions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scrollkit/cardfeed/internal/auth"
	"github.com/scrollkit/cardfeed/internal/db"
	"github.com/scrollkit/cardfeed/internal/events"
	"github.com/scrollkit/cardfeed/internal/models"
	"github.com/scrollkit/cardfeed/pkg/logging"
)

// Update names the fields a Record call changes; nil fields keep their
// stored value, or their default on first insert.
type Update struct {
	Liked  *bool `json:"liked,omitempty"`
	Saved  *bool `json:"saved,omitempty"`
	Viewed *bool `json:"viewed,omitempty"`
}

// State is a user's interaction with one card
type State struct {
	CardID    string     `json:"card_id"`
	Liked     bool       `json:"liked"`
	Saved     bool       `json:"saved"`
	Viewed    bool       `json:"viewed"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Recorder writes interactions and runs their detached side effects
type Recorder struct {
	interactions *db.InteractionRepository
	preferences  *db.PreferenceRepository
	shares       *db.ShareRepository
	profiles     *db.ProfileRepository
	bus          *events.Bus
	now          func() time.Time
	logger       *zap.Logger
}

// NewRecorder creates a recorder. Call Start before recording so the
// preference counter and view tracking handlers are attached to bus.
func NewRecorder(repo *db.Repository, bus *events.Bus) *Recorder {
	return &Recorder{
		interactions: db.NewInteractionRepository(repo),
		preferences:  db.NewPreferenceRepository(repo),
		shares:       db.NewShareRepository(repo),
		profiles:     db.NewProfileRepository(repo),
		bus:          bus,
		now:          time.Now,
		logger:       logging.WithComponent("interactions"),
	}
}

// Start subscribes the side-effect handlers
func (r *Recorder) Start() error {
	if err := r.bus.Handle(events.TopicPreferenceIncrement, r.handlePreferenceIncrement); err != nil {
		return err
	}
	return r.bus.Handle(events.TopicViewTracked, r.handleViewTracked)
}

// Record upserts the (user, card) row. Padding copies record against the
// card they copy. Only the fields set in u change on an
// existing row; a new row starts from liked=false, saved=false, viewed=true.
// A like or save also bumps the user's counter for the card's provider, off
// the request path.
func (r *Recorder) Record(ctx context.Context, user *models.User, cardID string, u Update) error {
	if err := auth.RequireUser(user); err != nil {
		return err
	}
	cardID = models.BaseCardID(cardID)
	if cardID == "" {
		return fmt.Errorf("%w: card id is required", auth.ErrInvalidInput)
	}

	if err := r.upsert(ctx, user.ID, cardID, u); err != nil {
		logging.WithUser(r.logger, user.ID).Error("Failed to record interaction",
			zap.String("card_id", cardID),
			zap.Error(err))
		return fmt.Errorf("recording interaction: %w", err)
	}

	if isTrue(u.Liked) || isTrue(u.Saved) {
		r.publish(events.TopicPreferenceIncrement, events.PreferenceIncrement{
			UserID: user.ID,
			Topic:  models.ProviderTag(cardID),
		})
	}
	return nil
}

// Get returns the stored state, or the all-false state when the user never
// touched the card.
func (r *Recorder) Get(ctx context.Context, user *models.User, cardID string) (*State, error) {
	if err := auth.RequireUser(user); err != nil {
		return nil, err
	}

	cardID = models.BaseCardID(cardID)
	row, err := r.interactions.Get(ctx, user.ID, cardID)
	if err != nil {
		return nil, fmt.Errorf("loading interaction: %w", err)
	}
	if row == nil {
		return &State{CardID: cardID}, nil
	}
	updated := row.UpdatedAt
	return &State{
		CardID:    row.CardID,
		Liked:     row.Liked,
		Saved:     row.Saved,
		Viewed:    row.Viewed,
		UpdatedAt: &updated,
	}, nil
}

// TrackView marks the card viewed in the background and returns at once
func (r *Recorder) TrackView(ctx context.Context, user *models.User, cardID string) error {
	if err := auth.RequireUser(user); err != nil {
		return err
	}
	cardID = models.BaseCardID(cardID)
	if cardID == "" {
		return fmt.Errorf("%w: card id is required", auth.ErrInvalidInput)
	}
	r.publish(events.TopicViewTracked, events.ViewTracked{UserID: user.ID, CardID: cardID})
	return nil
}

// Preferences returns the user's topic counters, highest first
func (r *Recorder) Preferences(ctx context.Context, user *models.User) ([]models.TopicPreference, error) {
	if err := auth.RequireUser(user); err != nil {
		return nil, err
	}
	prefs, err := r.preferences.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing preferences: %w", err)
	}
	return prefs, nil
}

// Interactions exposes the store for readers such as the preference estimator
func (r *Recorder) Interactions() *db.InteractionRepository {
	return r.interactions
}

func (r *Recorder) upsert(ctx context.Context, userID, cardID string, u Update) error {
	now := r.now().UTC()
	row := &models.UserInteraction{
		UserID:    userID,
		CardID:    cardID,
		Viewed:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var columns []string
	if u.Liked != nil {
		row.Liked = *u.Liked
		columns = append(columns, "liked")
	}
	if u.Saved != nil {
		row.Saved = *u.Saved
		columns = append(columns, "saved")
	}
	if u.Viewed != nil {
		row.Viewed = *u.Viewed
		columns = append(columns, "viewed")
	}

	return r.interactions.Upsert(ctx, row, columns)
}

func (r *Recorder) publish(topic string, event interface{}) {
	if err := r.bus.Publish(topic, event); err != nil {
		r.logger.Warn("Failed to dispatch side effect", zap.String("topic", topic), zap.Error(err))
	}
}

func (r *Recorder) handlePreferenceIncrement(ctx context.Context, payload []byte) error {
	var ev events.PreferenceIncrement
	if err := json.Unmarshal(payload, &ev); err != nil {
		return err
	}
	if ev.Topic == "" {
		return nil
	}
	if err := r.preferences.Increment(ctx, ev.UserID, ev.Topic); err != nil {
		return fmt.Errorf("incrementing %s for %s: %w", ev.Topic, ev.UserID, err)
	}
	return nil
}

func (r *Recorder) handleViewTracked(ctx context.Context, payload []byte) error {
	var ev events.ViewTracked
	if err := json.Unmarshal(payload, &ev); err != nil {
		return err
	}
	viewed := true
	return r.upsert(ctx, ev.UserID, ev.CardID, Update{Viewed: &viewed})
}

func isTrue(b *bool) bool {
	return b != nil && *b
}
