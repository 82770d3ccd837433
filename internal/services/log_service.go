package services

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/parthsarkhelia/EYE/internal/database/models"
	"gorm.io/gorm"
)

// LogService handles logging operations
type LogService struct {
	db       *gorm.DB
	logLevel models.LogLevel
}

// NewLogService creates a new LogService instance
func NewLogService(db *gorm.DB) *LogService {
	return &LogService{
		db:       db,
		logLevel: models.LogLevelInfo, // Default log level
	}
}

// NewLogServiceWithLevel creates a new LogService instance with specified log level
func NewLogServiceWithLevel(db *gorm.DB, level string) *LogService {
	return &LogService{
		db:       db,
		logLevel: parseLogLevel(level),
	}
}

// parseLogLevel converts a string to LogLevel
func parseLogLevel(level string) models.LogLevel {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return models.LogLevelDebug
	case "INFO":
		return models.LogLevelInfo
	case "WARN", "WARNING":
		return models.LogLevelWarn
	case "ERROR":
		return models.LogLevelError
	default:
		return models.LogLevelInfo
	}
}

// SetLogLevel sets the minimum log level
func (s *LogService) SetLogLevel(level string) {
	s.logLevel = parseLogLevel(level)
}

// GetLogLevel returns the current log level
func (s *LogService) GetLogLevel() models.LogLevel {
	return s.logLevel
}

// shouldLog checks if a log entry should be recorded based on log level
func (s *LogService) shouldLog(level models.LogLevel) bool {
	levelPriority := map[models.LogLevel]int{
		models.LogLevelDebug: 0,
		models.LogLevelInfo:  1,
		models.LogLevelWarn:  2,
		models.LogLevelError: 3,
	}

	return levelPriority[level] >= levelPriority[s.logLevel]
}

// LogEntry represents a log entry to be created
type LogEntry struct {
	UserID  uint
	Level   models.LogLevel
	Module  models.LogModule
	Action  string
	Message string
	Details interface{} // Will be serialized to JSON
}

// Log creates a new log entry
func (s *LogService) Log(entry LogEntry) error {
	if !s.shouldLog(entry.Level) {
		return nil
	}

	var detailsJSON string
	if entry.Details != nil {
		bytes, err := json.Marshal(entry.Details)
		if err != nil {
			detailsJSON = "{}"
		} else {
			detailsJSON = string(bytes)
		}
	}

	log := &models.Log{
		UserID:  entry.UserID,
		Level:   string(entry.Level),
		Module:  string(entry.Module),
		Action:  entry.Action,
		Message: entry.Message,
		Details: detailsJSON,
	}

	return s.db.Create(log).Error
}

// LogInfo creates an INFO level log entry
func (s *LogService) LogInfo(userID uint, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		UserID:  userID,
		Level:   models.LogLevelInfo,
		Module:  module,
		Action:  action,
		Message: message,
		Details: details,
	})
}

// LogWarn creates a WARN level log entry
func (s *LogService) LogWarn(userID uint, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		UserID:  userID,
		Level:   models.LogLevelWarn,
		Module:  module,
		Action:  action,
		Message: message,
		Details: details,
	})
}

// LogError creates an ERROR level log entry
func (s *LogService) LogError(userID uint, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		UserID:  userID,
		Level:   models.LogLevelError,
		Module:  module,
		Action:  action,
		Message: message,
		Details: details,
	})
}

// LogDebug creates a DEBUG level log entry
func (s *LogService) LogDebug(userID uint, module models.LogModule, action, message string, details interface{}) error {
	return s.Log(LogEntry{
		UserID:  userID,
		Level:   models.LogLevelDebug,
		Module:  module,
		Action:  action,
		Message: message,
		Details: details,
	})
}

// AccountChangeDetails represents details for account configuration changes
type AccountChangeDetails struct {
	AccountID    uint   `json:"account_id"`
	AccountEmail string `json:"account_email"`
	Field        string `json:"field,omitempty"`
	NewValue     string `json:"new_value,omitempty"`
}

// LogAccountCreated logs an account creation event
func (s *LogService) LogAccountCreated(userID uint, accountID uint, email string) error {
	return s.LogInfo(userID, models.LogModuleAccount, "create", "Email account created", AccountChangeDetails{
		AccountID:    accountID,
		AccountEmail: email,
	})
}

// LogAccountUpdated logs an account update event
func (s *LogService) LogAccountUpdated(userID uint, accountID uint, email string) error {
	return s.LogInfo(userID, models.LogModuleAccount, "update", "Email account updated", AccountChangeDetails{
		AccountID:    accountID,
		AccountEmail: email,
	})
}

// LogAccountDeleted logs an account deletion event
func (s *LogService) LogAccountDeleted(userID uint, accountID uint, email string) error {
	return s.LogInfo(userID, models.LogModuleAccount, "delete", "Email account deleted", AccountChangeDetails{
		AccountID:    accountID,
		AccountEmail: email,
	})
}

// ===== API Request Logging =====

// APIRequestDetails represents details for API request logs
type APIRequestDetails struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	StatusCode int    `json:"status_code"`
	Duration   int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
	UserAgent  string `json:"user_agent,omitempty"`
}

// LogAPIRequest logs an API request
func (s *LogService) LogAPIRequest(userID uint, method, path string, statusCode int, durationMs int64, clientIP, userAgent string) error {
	level := models.LogLevelInfo
	if statusCode >= 400 && statusCode < 500 {
		level = models.LogLevelWarn
	} else if statusCode >= 500 {
		level = models.LogLevelError
	}

	return s.Log(LogEntry{
		UserID:  userID,
		Level:   level,
		Module:  models.LogModuleAPI,
		Action:  "request",
		Message: method + " " + path,
		Details: APIRequestDetails{
			Method:     method,
			Path:       path,
			StatusCode: statusCode,
			Duration:   durationMs,
			ClientIP:   clientIP,
			UserAgent:  userAgent,
		},
	})
}

// ===== Ingestion Logging =====

// IngestDetails represents details for mailbox ingestion logs
type IngestDetails struct {
	AccountID  uint   `json:"account_id"`
	EmailCount int    `json:"email_count,omitempty"`
	Status     string `json:"status"`
	ErrorMsg   string `json:"error_msg,omitempty"`
}

// LogIngestRun logs one mailbox fetch run
func (s *LogService) LogIngestRun(userID uint, accountID uint, emailCount int, err error) error {
	details := IngestDetails{
		AccountID:  accountID,
		EmailCount: emailCount,
		Status:     "success",
	}

	level := models.LogLevelInfo
	message := "Fetched emails successfully"

	if err != nil {
		level = models.LogLevelError
		details.Status = "failed"
		details.ErrorMsg = err.Error()
		message = "Failed to fetch emails"
	}

	return s.Log(LogEntry{
		UserID:  userID,
		Level:   level,
		Module:  models.LogModuleIngest,
		Action:  "fetch",
		Message: message,
		Details: details,
	})
}

// ===== Analysis Logging =====

// AnalysisDetails represents details for analysis lifecycle logs
type AnalysisDetails struct {
	AnalysisID       uint   `json:"analysis_id"`
	Status           string `json:"status,omitempty"`
	TotalEmails      int    `json:"total_emails,omitempty"`
	TransactionCount int    `json:"transaction_count,omitempty"`
	DurationMs       int64  `json:"duration_ms,omitempty"`
	ErrorMsg         string `json:"error_msg,omitempty"`
}

// LogAnalysisStarted logs the start of an analysis run
func (s *LogService) LogAnalysisStarted(userID, analysisID uint, totalEmails int) error {
	return s.LogInfo(userID, models.LogModuleAnalysis, "start", "Analysis started", AnalysisDetails{
		AnalysisID:  analysisID,
		Status:      models.AnalysisProcessing,
		TotalEmails: totalEmails,
	})
}

// LogAnalysisCompleted logs a finished analysis run
func (s *LogService) LogAnalysisCompleted(userID, analysisID uint, transactionCount int, durationMs int64) error {
	return s.LogInfo(userID, models.LogModuleAnalysis, "complete", "Analysis completed", AnalysisDetails{
		AnalysisID:       analysisID,
		Status:           models.AnalysisCompleted,
		TransactionCount: transactionCount,
		DurationMs:       durationMs,
	})
}

// LogAnalysisFailed logs a failed analysis run
func (s *LogService) LogAnalysisFailed(userID, analysisID uint, err error) error {
	details := AnalysisDetails{
		AnalysisID: analysisID,
		Status:     models.AnalysisFailed,
	}
	if err != nil {
		details.ErrorMsg = err.Error()
	}
	return s.LogError(userID, models.LogModuleAnalysis, "fail", "Analysis failed", details)
}

// ===== Device Scoring Logging =====

// DeviceScoringDetails represents details for device scoring logs
type DeviceScoringDetails struct {
	ReportID   uint    `json:"report_id,omitempty"`
	Phone      string  `json:"phone,omitempty"`
	FinalScore float64 `json:"final_score,omitempty"`
	Status     string  `json:"status"`
	ErrorMsg   string  `json:"error_msg,omitempty"`
}

// LogDeviceScored logs one device scoring outcome
func (s *LogService) LogDeviceScored(userID, reportID uint, phone string, finalScore float64, err error) error {
	details := DeviceScoringDetails{
		ReportID:   reportID,
		Phone:      phone,
		FinalScore: finalScore,
		Status:     "success",
	}

	level := models.LogLevelInfo
	message := "Device report scored"

	if err != nil {
		level = models.LogLevelError
		details.Status = "failed"
		details.ErrorMsg = err.Error()
		message = "Device scoring failed"
	}

	return s.Log(LogEntry{
		UserID:  userID,
		Level:   level,
		Module:  models.LogModuleDevice,
		Action:  "score",
		Message: message,
		Details: details,
	})
}

// ===== Authentication Logging =====

// AuthOperationDetails represents details for authentication operation logs
type AuthOperationDetails struct {
	Username  string `json:"username,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	Status    string `json:"status"`
	ErrorMsg  string `json:"error_msg,omitempty"`
	TokenType string `json:"token_type,omitempty"`
}

// LogLogin logs a login attempt
func (s *LogService) LogLogin(userID uint, username, clientIP string, success bool, err error) error {
	details := AuthOperationDetails{
		Username: username,
		ClientIP: clientIP,
		Status:   "success",
	}

	level := models.LogLevelInfo
	message := "User logged in successfully"

	if !success {
		level = models.LogLevelWarn
		details.Status = "failed"
		message = "Login attempt failed"
		if err != nil {
			details.ErrorMsg = err.Error()
		}
	}

	return s.Log(LogEntry{
		UserID:  userID,
		Level:   level,
		Module:  models.LogModuleAuth,
		Action:  "login",
		Message: message,
		Details: details,
	})
}

// LogLogout logs a logout event
func (s *LogService) LogLogout(userID uint) error {
	return s.LogInfo(userID, models.LogModuleAuth, "logout", "User logged out", nil)
}

// LogTokenGenerated logs a token generation event
func (s *LogService) LogTokenGenerated(userID uint, tokenType string) error {
	return s.LogInfo(userID, models.LogModuleAuth, "token_generated", "Token generated", AuthOperationDetails{
		TokenType: tokenType,
		Status:    "success",
	})
}

// LogAPIKeyValidation logs an API key validation attempt
func (s *LogService) LogAPIKeyValidation(success bool, clientIP string, err error) error {
	details := AuthOperationDetails{
		ClientIP: clientIP,
		Status:   "valid",
	}

	level := models.LogLevelDebug
	message := "API key validated successfully"

	if !success {
		level = models.LogLevelWarn
		details.Status = "invalid"
		message = "API key validation failed"
		if err != nil {
			details.ErrorMsg = err.Error()
		}
	}

	return s.Log(LogEntry{
		UserID:  0, // No user ID for API key validation
		Level:   level,
		Module:  models.LogModuleAuth,
		Action:  "api_key_validation",
		Message: message,
		Details: details,
	})
}

// LogAPIKeyReset logs an API key reset event
func (s *LogService) LogAPIKeyReset(userID uint) error {
	return s.LogInfo(userID, models.LogModuleAuth, "api_key_reset", "API key reset", nil)
}

// LogPasswordChange logs a password change event
func (s *LogService) LogPasswordChange(userID uint, success bool, err error) error {
	details := AuthOperationDetails{
		Status: "success",
	}

	level := models.LogLevelInfo
	message := "Password changed successfully"

	if !success {
		level = models.LogLevelWarn
		details.Status = "failed"
		message = "Password change failed"
		if err != nil {
			details.ErrorMsg = err.Error()
		}
	}

	return s.Log(LogEntry{
		UserID:  userID,
		Level:   level,
		Module:  models.LogModuleAuth,
		Action:  "password_change",
		Message: message,
		Details: details,
	})
}

// ===== Log Query Methods =====

// LogQuery represents query parameters for log retrieval
type LogQuery struct {
	UserID    uint
	Level     string
	Module    string
	Action    string
	StartTime *time.Time
	EndTime   *time.Time
	Page      int
	Limit     int
}

// LogQueryResult represents the result of a log query
type LogQueryResult struct {
	Total int64
	Logs  []models.Log
}

// QueryLogs retrieves logs based on query parameters
func (s *LogService) QueryLogs(query LogQuery) (*LogQueryResult, error) {
	db := s.db.Model(&models.Log{})

	if query.UserID > 0 {
		db = db.Where("user_id = ?", query.UserID)
	}
	if query.Level != "" {
		db = db.Where("level = ?", query.Level)
	}
	if query.Module != "" {
		db = db.Where("module = ?", query.Module)
	}
	if query.Action != "" {
		db = db.Where("action = ?", query.Action)
	}
	if query.StartTime != nil {
		db = db.Where("created_at >= ?", query.StartTime)
	}
	if query.EndTime != nil {
		db = db.Where("created_at <= ?", query.EndTime)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, err
	}

	if query.Page <= 0 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}

	offset := (query.Page - 1) * query.Limit

	var logs []models.Log
	if err := db.Order("created_at DESC").Offset(offset).Limit(query.Limit).Find(&logs).Error; err != nil {
		return nil, err
	}

	return &LogQueryResult{
		Total: total,
		Logs:  logs,
	}, nil
}

// GetRecentLogs retrieves the most recent logs
func (s *LogService) GetRecentLogs(limit int) ([]models.Log, error) {
	if limit <= 0 {
		limit = 100
	}

	var logs []models.Log
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// GetLogsByModule retrieves logs for a specific module
func (s *LogService) GetLogsByModule(module models.LogModule, limit int) ([]models.Log, error) {
	if limit <= 0 {
		limit = 100
	}

	var logs []models.Log
	if err := s.db.Where("module = ?", string(module)).Order("created_at DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
