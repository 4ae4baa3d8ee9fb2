// Package preference ranks the providers a user favours.
package preference

import (
	"context"
	"fmt"
	"sort"

	"github.com/scrollkit/cardfeed/internal/models"
)

// MaxRanked is how many provider tags a ranking keeps
const MaxRanked = 3

// InteractionLister is the slice of the interaction store the estimator reads
type InteractionLister interface {
	ListLikedOrSaved(ctx context.Context, userID string) ([]models.UserInteraction, error)
}

// Estimator derives provider preferences from liked and saved cards
type Estimator struct {
	store InteractionLister
}

// NewEstimator creates an estimator over store
func NewEstimator(store InteractionLister) *Estimator {
	return &Estimator{store: store}
}

// Estimate returns up to MaxRanked provider tags, most preferred first.
// Anonymous users and users without likes or saves get an empty ranking.
func (e *Estimator) Estimate(ctx context.Context, user *models.User) ([]string, error) {
	if user == nil || user.ID == "" {
		return []string{}, nil
	}

	rows, err := e.store.ListLikedOrSaved(ctx, user.ID)
	if err != nil {
		return []string{}, fmt.Errorf("listing interactions for %s: %w", user.ID, err)
	}

	cardIDs := make([]string, len(rows))
	for i, row := range rows {
		cardIDs[i] = row.CardID
	}
	return Rank(cardIDs), nil
}

// Rank counts provider tags across cardIDs and returns the top MaxRanked by
// count. Ties keep first-seen order.
func Rank(cardIDs []string) []string {
	counts := make(map[string]int)
	var order []string
	for _, id := range cardIDs {
		tag := models.ProviderTag(id)
		if tag == "" {
			continue
		}
		if _, ok := counts[tag]; !ok {
			order = append(order, tag)
		}
		counts[tag]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > MaxRanked {
		order = order[:MaxRanked]
	}
	if order == nil {
		return []string{}
	}
	return order
}
