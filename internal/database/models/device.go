package models

import (
	"time"
)

// DeviceReport is one scored device telemetry submission.
type DeviceReport struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	UserID    uint   `gorm:"index;not null" json:"user_id"`
	Phone     string `gorm:"size:20;index" json:"phone"`
	Email     string `gorm:"size:255" json:"email"`
	SessionID string `gorm:"size:100" json:"session_id"`

	// Score breakdown.
	ModelScore             float64 `json:"model_score"`
	DeviceScore            float64 `json:"device_score"`
	InputValidationScore   float64 `json:"input_validation_score"`
	NetworkValidationScore float64 `json:"network_validation_score"`
	AppProfileScore        float64 `json:"app_profile_score"`
	FinalScore             float64 `gorm:"index" json:"final_score"`
	RiskLevel              string  `gorm:"size:20" json:"risk_level"`

	// PayloadJSON keeps the submitted telemetry for audit.
	PayloadJSON string `gorm:"type:text" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}
