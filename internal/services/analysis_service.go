package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/parthsarkhelia/EYE/internal/analyzer"
	"github.com/parthsarkhelia/EYE/internal/database/models"
	"github.com/parthsarkhelia/EYE/internal/user"
	"gorm.io/gorm"
)

var (
	// ErrAnalysisNotFound indicates the analysis was not found
	ErrAnalysisNotFound = errors.New("analysis not found")
	// ErrAnalysisNotResumable indicates the analysis is not in a resumable state
	ErrAnalysisNotResumable = errors.New("analysis cannot be resumed in its current state")
	// ErrAnalysisNotCompleted indicates results were requested before completion
	ErrAnalysisNotCompleted = errors.New("analysis has not completed")
	// ErrNoEmails indicates the input batch is empty
	ErrNoEmails = errors.New("no emails to analyze")
)

// progressFlushEvery controls how often worker progress is written back
// to the analysis row.
const progressFlushEvery = 25

// AnalysisService owns the analysis lifecycle: a run is created from a
// payload or from stored emails, started (or resumed after a failure),
// and its result persisted and optionally exported to the user's
// directory.
type AnalysisService struct {
	db            *gorm.DB
	logService    *LogService
	userService   *UserService
	ingestService *IngestService
	storage       *user.Storage
	lib           *analyzer.PatternLibrary
}

// NewAnalysisService creates a new AnalysisService instance
func NewAnalysisService(db *gorm.DB, userService *UserService, ingestService *IngestService, storage *user.Storage) *AnalysisService {
	return &AnalysisService{
		db:            db,
		logService:    NewLogService(db),
		userService:   userService,
		ingestService: ingestService,
		storage:       storage,
		lib:           analyzer.DefaultLibrary(),
	}
}

// CreateFromPayload creates an analysis run from emails supplied directly
func (s *AnalysisService) CreateFromPayload(userID uint, emails []analyzer.RawEmail) (*models.Analysis, error) {
	if len(emails) == 0 {
		return nil, ErrNoEmails
	}
	return s.create(userID, models.AnalysisSourcePayload, emails)
}

// CreateFromStored creates an analysis run over the user's ingested
// emails. accountID 0 means all of the user's accounts.
func (s *AnalysisService) CreateFromStored(userID, accountID uint) (*models.Analysis, error) {
	emails, err := s.ingestService.RawEmailsForUser(userID, accountID)
	if err != nil {
		return nil, err
	}
	if len(emails) == 0 {
		return nil, ErrNoEmails
	}
	return s.create(userID, models.AnalysisSourceStored, emails)
}

func (s *AnalysisService) create(userID uint, source string, emails []analyzer.RawEmail) (*models.Analysis, error) {
	emailsJSON, err := json.Marshal(emails)
	if err != nil {
		return nil, err
	}

	analysis := &models.Analysis{
		UserID:      userID,
		Status:      models.AnalysisInitialized,
		Source:      source,
		TotalEmails: len(emails),
		EmailsJSON:  string(emailsJSON),
	}
	if err := s.db.Create(analysis).Error; err != nil {
		return nil, err
	}
	return analysis, nil
}

// Run executes an analysis to completion. Valid from the initialized
// state, and from failed as a resume; the whole batch is reprocessed
// since aggregation is not incremental.
func (s *AnalysisService) Run(ctx context.Context, id, userID uint) (*models.Analysis, error) {
	analysis, err := s.GetByIDAndUserID(id, userID)
	if err != nil {
		return nil, err
	}

	if !analysis.CanResume() {
		return nil, fmt.Errorf("%w: status is %s", ErrAnalysisNotResumable, analysis.Status)
	}

	var emails []analyzer.RawEmail
	if err := json.Unmarshal([]byte(analysis.EmailsJSON), &emails); err != nil {
		return nil, fmt.Errorf("stored email batch is corrupt: %v", err)
	}

	updates := map[string]interface{}{
		"status":           models.AnalysisProcessing,
		"processed_emails": 0,
		"error":            "",
	}
	if err := s.db.Model(analysis).Updates(updates).Error; err != nil {
		return nil, err
	}
	s.logService.LogAnalysisStarted(userID, analysis.ID, len(emails))
	started := time.Now()

	a := analyzer.New(s.lib)
	a.OnProgress = func(processed, total int) {
		if processed%progressFlushEvery == 0 || processed == total {
			s.db.Model(&models.Analysis{}).Where("id = ?", analysis.ID).
				Update("processed_emails", processed)
		}
	}

	result, err := a.AnalyzeEmails(ctx, emails)
	if err != nil {
		s.db.Model(analysis).Updates(map[string]interface{}{
			"status": models.AnalysisFailed,
			"error":  err.Error(),
		})
		s.logService.LogAnalysisFailed(userID, analysis.ID, err)
		return nil, err
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		s.db.Model(analysis).Updates(map[string]interface{}{
			"status": models.AnalysisFailed,
			"error":  err.Error(),
		})
		s.logService.LogAnalysisFailed(userID, analysis.ID, err)
		return nil, err
	}

	now := time.Now()
	if err := s.db.Model(analysis).Updates(map[string]interface{}{
		"status":            models.AnalysisCompleted,
		"processed_emails":  len(emails),
		"transaction_count": result.TotalTransactions,
		"result_json":       string(resultJSON),
		"error":             "",
		"completed_at":      &now,
	}).Error; err != nil {
		return nil, err
	}
	s.logService.LogAnalysisCompleted(userID, analysis.ID, result.TotalTransactions, time.Since(started).Milliseconds())

	s.exportIfEnabled(userID, analysis.ID, result)

	return s.GetByIDAndUserID(id, userID)
}

// exportIfEnabled writes the result to the user's export directory
// when their settings ask for it. Export failure never fails the run.
func (s *AnalysisService) exportIfEnabled(userID, analysisID uint, result *analyzer.AnalysisResult) {
	settings, err := s.userService.GetUserSettings(userID)
	if err != nil || !settings.ExportResults {
		return
	}
	if _, err := s.storage.SaveAnalysisExport(userID, analysisID, result); err != nil {
		s.logService.LogWarn(userID, models.LogModuleAnalysis, "export", "result export failed", map[string]interface{}{
			"analysis_id": analysisID,
			"error":       err.Error(),
		})
	}
}

// GetByIDAndUserID retrieves an analysis scoped to its owner
func (s *AnalysisService) GetByIDAndUserID(id, userID uint) (*models.Analysis, error) {
	var analysis models.Analysis
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&analysis).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnalysisNotFound
		}
		return nil, err
	}
	return &analysis, nil
}

// AnalysisStatus is the progress view of a run
type AnalysisStatus struct {
	ID              uint       `json:"id"`
	Status          string     `json:"status"`
	Source          string     `json:"source"`
	TotalEmails     int        `json:"total_emails"`
	ProcessedEmails int        `json:"processed_emails"`
	Progress        float64    `json:"progress"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Status returns the progress view of an analysis
func (s *AnalysisService) Status(id, userID uint) (*AnalysisStatus, error) {
	analysis, err := s.GetByIDAndUserID(id, userID)
	if err != nil {
		return nil, err
	}
	return &AnalysisStatus{
		ID:              analysis.ID,
		Status:          analysis.Status,
		Source:          analysis.Source,
		TotalEmails:     analysis.TotalEmails,
		ProcessedEmails: analysis.ProcessedEmails,
		Progress:        analysis.Progress(),
		Error:           analysis.Error,
		CreatedAt:       analysis.CreatedAt,
		CompletedAt:     analysis.CompletedAt,
	}, nil
}

// Results returns the finalized result of a completed analysis
func (s *AnalysisService) Results(id, userID uint) (*analyzer.AnalysisResult, error) {
	analysis, err := s.GetByIDAndUserID(id, userID)
	if err != nil {
		return nil, err
	}
	if analysis.Status != models.AnalysisCompleted {
		return nil, fmt.Errorf("%w: status is %s", ErrAnalysisNotCompleted, analysis.Status)
	}

	var result analyzer.AnalysisResult
	if err := json.Unmarshal([]byte(analysis.ResultJSON), &result); err != nil {
		return nil, fmt.Errorf("stored result is corrupt: %v", err)
	}
	return &result, nil
}

// AnalysisListResult is one page of a user's analyses
type AnalysisListResult struct {
	Total    int64             `json:"total"`
	Analyses []models.Analysis `json:"analyses"`
}

// List returns a user's analyses, newest first
func (s *AnalysisService) List(userID uint, page, limit int) (*AnalysisListResult, error) {
	db := s.db.Model(&models.Analysis{}).Where("user_id = ?", userID)

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, err
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var analyses []models.Analysis
	if err := db.Order("created_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&analyses).Error; err != nil {
		return nil, err
	}

	return &AnalysisListResult{Total: total, Analyses: analyses}, nil
}

// Delete removes an analysis and its exported result
func (s *AnalysisService) Delete(id, userID uint) error {
	analysis, err := s.GetByIDAndUserID(id, userID)
	if err != nil {
		return err
	}

	_ = s.storage.DeleteAnalysisExport(userID, id)

	return s.db.Delete(analysis).Error
}
