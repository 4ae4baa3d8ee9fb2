package models

import "time"

// SharedContent is a card one user sent to another
type SharedContent struct {
	ID          string    `gorm:"type:varchar(36);primaryKey;column:id"`
	SenderID    string    `gorm:"type:varchar(36);not null;column:sender_id"`
	RecipientID string    `gorm:"type:varchar(36);not null;index;column:recipient_id"`
	CardID      string    `gorm:"type:varchar(255);not null;column:card_id"`
	SharedAt    time.Time `gorm:"not null;column:shared_at"`
	IsRead      bool      `gorm:"not null;default:false;column:is_read"`

	Sender *Profile `gorm:"foreignKey:SenderID;references:ID"`
}

// TableName specifies the table name for SharedContent
func (SharedContent) TableName() string {
	return "shared_content"
}
