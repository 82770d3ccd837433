package models

import (
	"time"
)

// Email is one stored message fetched from a mailbox. Only the fields
// the analysis pipeline reads are kept; attachments and HTML bodies
// are not.
type Email struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AccountID uint      `gorm:"index;not null" json:"account_id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	MessageID string    `gorm:"uniqueIndex;size:255;not null" json:"message_id"`
	Subject   string    `gorm:"size:500" json:"subject"`
	FromAddr  string    `gorm:"size:255" json:"from"`
	Date      time.Time `gorm:"index" json:"date"`
	Body      string    `gorm:"type:text" json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
