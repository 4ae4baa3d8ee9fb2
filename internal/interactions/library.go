package interactions

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scrollkit/cardfeed/internal/auth"
	"github.com/scrollkit/cardfeed/internal/models"
	"github.com/scrollkit/cardfeed/pkg/logging"
)

// ErrRecipientNotFound is returned when sharing with an unknown user
var ErrRecipientNotFound = errors.New("recipient not found")

// Share sends cardID from user to recipientID
func (r *Recorder) Share(ctx context.Context, user *models.User, cardID, recipientID string) (*models.SharedContent, error) {
	if err := auth.RequireUser(user); err != nil {
		return nil, err
	}
	cardID = models.BaseCardID(cardID)
	if cardID == "" || recipientID == "" {
		return nil, fmt.Errorf("%w: card id and recipient id are required", auth.ErrInvalidInput)
	}
	if recipientID == user.ID {
		return nil, fmt.Errorf("%w: cannot share with yourself", auth.ErrInvalidInput)
	}

	recipient, err := r.profiles.GetByID(ctx, recipientID)
	if err != nil {
		return nil, fmt.Errorf("loading recipient: %w", err)
	}
	if recipient == nil {
		return nil, ErrRecipientNotFound
	}

	share := &models.SharedContent{
		ID:          uuid.NewString(),
		SenderID:    user.ID,
		RecipientID: recipientID,
		CardID:      cardID,
		SharedAt:    r.now().UTC(),
		IsRead:      false,
	}
	if err := r.shares.Create(ctx, share); err != nil {
		logging.WithUser(r.logger, user.ID).Error("Failed to share card",
			zap.String("card_id", cardID),
			zap.String("recipient_id", recipientID),
			zap.Error(err))
		return nil, fmt.Errorf("sharing card: %w", err)
	}
	return share, nil
}

// Received returns the shares addressed to user, newest first, and marks
// them read.
func (r *Recorder) Received(ctx context.Context, user *models.User) ([]models.SharedContent, error) {
	if err := auth.RequireUser(user); err != nil {
		return nil, err
	}

	shares, err := r.shares.ListForRecipient(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing shares: %w", err)
	}
	if err := r.shares.MarkRead(ctx, user.ID); err != nil {
		logging.WithUser(r.logger, user.ID).Warn("Failed to mark shares read", zap.Error(err))
	}
	return shares, nil
}

// Saved returns the user's saved interactions, first saved first
func (r *Recorder) Saved(ctx context.Context, user *models.User) ([]models.UserInteraction, error) {
	if err := auth.RequireUser(user); err != nil {
		return nil, err
	}
	rows, err := r.interactions.ListSaved(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing saved: %w", err)
	}
	return rows, nil
}

// ListUsers returns every account other than user's, for picking a recipient
func (r *Recorder) ListUsers(ctx context.Context, user *models.User) ([]models.User, error) {
	if err := auth.RequireUser(user); err != nil {
		return nil, err
	}

	profiles, err := r.profiles.ListExcept(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	users := make([]models.User, len(profiles))
	for i, p := range profiles {
		users[i] = models.User{ID: p.ID, Email: p.Email}
	}
	return users, nil
}
