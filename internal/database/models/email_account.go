package models

import (
	"time"
)

// Auth types for mailbox accounts.
const (
	AuthTypePassword = "password"
	AuthTypeOAuth2   = "oauth2"
)

// EmailAccount represents a mailbox a user ingests alerts from
type EmailAccount struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"index;not null" json:"user_id"`
	Email             string    `gorm:"size:255;not null" json:"email"`
	DisplayName       string    `gorm:"size:100" json:"display_name"`
	IMAPHost          string    `gorm:"size:255;not null" json:"imap_host"`
	IMAPPort          int       `gorm:"not null" json:"imap_port"`
	Username          string    `gorm:"size:255;not null" json:"username"`
	PasswordEncrypted string    `gorm:"size:500" json:"-"`
	UseSSL            bool      `gorm:"default:true" json:"use_ssl"`
	Enabled           bool      `gorm:"default:true" json:"enabled"`
	SyncDays          int       `gorm:"default:-1" json:"sync_days"` // Days to sync: -1=all, 0=incremental, >0=specific days
	LastSyncAt        time.Time `json:"last_sync_at"`

	// OAuth2 fields, used when AuthType is oauth2.
	AuthType          string    `gorm:"column:auth_type;size:20;default:'password'" json:"auth_type"`
	OAuthProvider     string    `gorm:"column:oauth_provider;size:50" json:"oauth_provider,omitempty"`
	OAuthAccessToken  string    `gorm:"column:oauth_access_token;size:2000" json:"-"`
	OAuthRefreshToken string    `gorm:"column:oauth_refresh_token;size:2000" json:"-"`
	OAuthTokenExpiry  time.Time `gorm:"column:oauth_token_expiry" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Emails []Email `gorm:"foreignKey:AccountID" json:"emails,omitempty"`
}
