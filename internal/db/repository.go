package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scrollkit/cardfeed/internal/models"
)

// Repository provides database access methods
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new repository
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// InteractionRepository provides user interaction operations
type InteractionRepository struct {
	*Repository
}

// NewInteractionRepository creates a new interaction repository
func NewInteractionRepository(repo *Repository) *InteractionRepository {
	return &InteractionRepository{Repository: repo}
}

// Upsert inserts row, or on a (user_id, card_id) conflict overwrites only
// the listed columns plus updated_at.
func (r *InteractionRepository) Upsert(ctx context.Context, row *models.UserInteraction, columns []string) error {
	updates := append(append([]string{}, columns...), "updated_at")
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "card_id"}},
			DoUpdates: clause.AssignmentColumns(updates),
		}).
		Create(row).Error
}

// Get retrieves one interaction, or nil when the user never touched the card
func (r *InteractionRepository) Get(ctx context.Context, userID, cardID string) (*models.UserInteraction, error) {
	var row models.UserInteraction
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND card_id = ?", userID, cardID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// ListLikedOrSaved returns the user's liked or saved interactions in a stable
// order (first interaction first).
func (r *InteractionRepository) ListLikedOrSaved(ctx context.Context, userID string) ([]models.UserInteraction, error) {
	var rows []models.UserInteraction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND (liked = ? OR saved = ?)", userID, true, true).
		Order("created_at ASC, card_id ASC").
		Find(&rows).Error
	return rows, err
}

// ListSaved returns the user's saved interactions, first saved first
func (r *InteractionRepository) ListSaved(ctx context.Context, userID string) ([]models.UserInteraction, error) {
	var rows []models.UserInteraction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND saved = ?", userID, true).
		Order("created_at ASC, card_id ASC").
		Find(&rows).Error
	return rows, err
}

// PreferenceRepository provides topic preference counter operations
type PreferenceRepository struct {
	*Repository
}

// NewPreferenceRepository creates a new preference repository
func NewPreferenceRepository(repo *Repository) *PreferenceRepository {
	return &PreferenceRepository{Repository: repo}
}

// Increment bumps the (user, topic) counter, creating it at 1
func (r *PreferenceRepository) Increment(ctx context.Context, userID, topic string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "topic"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count":      gorm.Expr("user_topic_preferences.count + ?", 1),
				"updated_at": now,
			}),
		}).
		Create(&models.TopicPreference{UserID: userID, Topic: topic, Count: 1, UpdatedAt: now}).Error
}

// ListByUser returns the user's counters, highest first
func (r *PreferenceRepository) ListByUser(ctx context.Context, userID string) ([]models.TopicPreference, error) {
	var rows []models.TopicPreference
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("count DESC, topic ASC").
		Find(&rows).Error
	return rows, err
}

// ShareRepository provides shared content operations
type ShareRepository struct {
	*Repository
}

// NewShareRepository creates a new share repository
func NewShareRepository(repo *Repository) *ShareRepository {
	return &ShareRepository{Repository: repo}
}

// Create inserts a share
func (r *ShareRepository) Create(ctx context.Context, share *models.SharedContent) error {
	return r.db.WithContext(ctx).Create(share).Error
}

// ListForRecipient returns shares sent to recipientID, newest first, with the sender loaded
func (r *ShareRepository) ListForRecipient(ctx context.Context, recipientID string) ([]models.SharedContent, error) {
	var rows []models.SharedContent
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("recipient_id = ?", recipientID).
		Order("shared_at DESC").
		Find(&rows).Error
	return rows, err
}

// MarkRead flags every unread share for recipientID as read
func (r *ShareRepository) MarkRead(ctx context.Context, recipientID string) error {
	return r.db.WithContext(ctx).
		Model(&models.SharedContent{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true).Error
}

// ProfileRepository provides profile operations
type ProfileRepository struct {
	*Repository
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(repo *Repository) *ProfileRepository {
	return &ProfileRepository{Repository: repo}
}

// Create creates a new profile
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// GetByEmail retrieves a profile by email
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &profile, nil
}

// ListExcept returns every profile other than id, ordered by email
func (r *ProfileRepository) ListExcept(ctx context.Context, id string) ([]models.Profile, error) {
	var rows []models.Profile
	err := r.db.WithContext(ctx).
		Where("id <> ?", id).
		Order("email ASC").
		Find(&rows).Error
	return rows, err
}

// SessionRepository provides session operations
type SessionRepository struct {
	*Repository
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(repo *Repository) *SessionRepository {
	return &SessionRepository{Repository: repo}
}

// Create stores a session
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// GetActive returns the session for token with its profile, or nil when the
// token is unknown or expired at now
func (r *SessionRepository) GetActive(ctx context.Context, token string, now time.Time) (*models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("token = ? AND expires_at > ?", token, now.UTC()).
		First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// Delete removes a session; deleting an unknown token is not an error
func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Where("token = ?", token).Delete(&models.Session{}).Error
}

// CacheRepository provides api_cache operations
type CacheRepository struct {
	*Repository
}

// NewCacheRepository creates a new cache repository
func NewCacheRepository(repo *Repository) *CacheRepository {
	return &CacheRepository{Repository: repo}
}

// GetFresh returns the entry for (apiName, query) unless it has expired at now
func (r *CacheRepository) GetFresh(ctx context.Context, apiName, query string, now time.Time) (*models.APICacheEntry, error) {
	var entry models.APICacheEntry
	if err := r.db.WithContext(ctx).
		Where("api_name = ? AND query = ? AND expires_at >= ?", apiName, query, now.UTC()).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// Upsert writes entry; the last write for a (api_name, query) pair wins
func (r *CacheRepository) Upsert(ctx context.Context, entry *models.APICacheEntry) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "api_name"}, {Name: "query"}},
			DoUpdates: clause.AssignmentColumns([]string{"response", "cached_at", "expires_at"}),
		}).
		Create(entry).Error
}
