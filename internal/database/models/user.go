package models

import (
	"time"
)

// User represents a user in the system
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Nickname     string    `gorm:"size:100" json:"nickname"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Relations
	EmailAccounts []EmailAccount `gorm:"foreignKey:UserID" json:"email_accounts,omitempty"`
	Settings      *UserSettings  `gorm:"foreignKey:UserID" json:"settings,omitempty"`
}

// UserSettings stores user-specific settings
type UserSettings struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"uniqueIndex;not null" json:"user_id"`

	// Analysis defaults applied when a request carries no settings.
	AutoAnalyzeOnSync bool `gorm:"default:false" json:"auto_analyze_on_sync"`
	ExportResults     bool `gorm:"default:true" json:"export_results"`

	// Google OAuth client used for XOAUTH2 mailbox access.
	GoogleClientID     string `gorm:"size:500" json:"google_client_id"`
	GoogleClientSecret string `gorm:"size:500" json:"google_client_secret"`
	GoogleRedirectURL  string `gorm:"size:500" json:"google_redirect_url"`
}
