package models

import "time"

// UserInteraction holds one user's state for one card. (user_id, card_id) is
// the primary key, so there is at most one row per pair.
type UserInteraction struct {
	UserID    string    `gorm:"type:varchar(36);primaryKey;column:user_id"`
	CardID    string    `gorm:"type:varchar(255);primaryKey;column:card_id"`
	Liked     bool      `gorm:"not null;default:false;column:liked"`
	Saved     bool      `gorm:"not null;default:false;column:saved"`
	Viewed    bool      `gorm:"not null;default:false;column:viewed"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for UserInteraction
func (UserInteraction) TableName() string {
	return "user_interactions"
}

// TopicPreference is the coarse per-user per-topic counter bumped on like/save
type TopicPreference struct {
	UserID    string    `gorm:"type:varchar(36);primaryKey;column:user_id"`
	Topic     string    `gorm:"type:varchar(64);primaryKey;column:topic"`
	Count     int64     `gorm:"not null;default:0;column:count"`
	UpdatedAt time.Time `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for TopicPreference
func (TopicPreference) TableName() string {
	return "user_topic_preferences"
}
