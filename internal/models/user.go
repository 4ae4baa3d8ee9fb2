package models

import "time"

// User is the authenticated caller. A nil *User means an anonymous caller.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Profile represents a registered account
type Profile struct {
	ID           string    `gorm:"type:varchar(36);primaryKey;column:id"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex;column:email"`
	PasswordHash string    `gorm:"type:varchar(255);not null;column:password_hash"`
	CreatedAt    time.Time `gorm:"not null;column:created_at"`
	UpdatedAt    time.Time `gorm:"not null;column:updated_at"`
}

// TableName specifies the table name for Profile
func (Profile) TableName() string {
	return "profiles"
}

// Session is an opaque bearer token bound to a profile
type Session struct {
	Token     string    `gorm:"type:varchar(64);primaryKey;column:token"`
	UserID    string    `gorm:"type:varchar(36);not null;index;column:user_id"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
	ExpiresAt time.Time `gorm:"not null;column:expires_at"`

	Profile *Profile `gorm:"foreignKey:UserID;references:ID"`
}

// TableName specifies the table name for Session
func (Session) TableName() string {
	return "sessions"
}
