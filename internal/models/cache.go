package models

import (
	"time"

	"gorm.io/datatypes"
)

// APICacheEntry stores a raw provider response. One row per (api_name, query);
// rows past ExpiresAt are never served and are overwritten on the next write.
type APICacheEntry struct {
	APIName   string         `gorm:"type:varchar(64);primaryKey;column:api_name"`
	Query     string         `gorm:"type:varchar(512);primaryKey;column:query"`
	Response  datatypes.JSON `gorm:"not null;column:response"`
	CachedAt  time.Time      `gorm:"not null;column:cached_at"`
	ExpiresAt time.Time      `gorm:"not null;index;column:expires_at"`
}

// TableName specifies the table name for APICacheEntry
func (APICacheEntry) TableName() string {
	return "api_cache"
}
