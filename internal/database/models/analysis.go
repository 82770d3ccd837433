package models

import (
	"time"
)

// Analysis lifecycle states.
const (
	AnalysisInitialized = "initialized"
	AnalysisProcessing  = "processing"
	AnalysisCompleted   = "completed"
	AnalysisFailed      = "failed"
)

// Analysis sources.
const (
	AnalysisSourcePayload = "payload" // emails supplied in the request body
	AnalysisSourceStored  = "stored"  // emails previously ingested via IMAP
)

// Analysis is one analysis run over a batch of emails.
type Analysis struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	UserID          uint   `gorm:"index;not null" json:"user_id"`
	Status          string `gorm:"size:20;index;default:'initialized'" json:"status"`
	Source          string `gorm:"size:20" json:"source"`
	TotalEmails     int    `gorm:"default:0" json:"total_emails"`
	ProcessedEmails int    `gorm:"default:0" json:"processed_emails"`
	// TransactionCount is filled on completion.
	TransactionCount int `gorm:"default:0" json:"transaction_count"`

	// EmailsJSON keeps the input batch so failed or interrupted runs
	// can be resumed; ResultJSON holds the finalized result.
	EmailsJSON string `gorm:"type:text" json:"-"`
	ResultJSON string `gorm:"type:text" json:"-"`
	Error      string `gorm:"type:text" json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsTerminal reports whether the analysis reached a final state.
func (a *Analysis) IsTerminal() bool {
	return a.Status == AnalysisCompleted || a.Status == AnalysisFailed
}

// CanResume reports whether a resume request is valid for this state.
func (a *Analysis) CanResume() bool {
	return a.Status == AnalysisInitialized || a.Status == AnalysisFailed
}

// Progress returns the completion percentage of the run.
func (a *Analysis) Progress() float64 {
	switch a.Status {
	case AnalysisCompleted:
		return 100
	case AnalysisInitialized:
		return 0
	}
	if a.TotalEmails == 0 {
		return 0
	}
	return float64(a.ProcessedEmails) / float64(a.TotalEmails) * 100
}
