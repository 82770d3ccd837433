package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/parthsarkhelia/EYE/internal/database/models"
	"github.com/parthsarkhelia/EYE/internal/risk"
	"github.com/parthsarkhelia/EYE/internal/user"
	"gorm.io/gorm"
)

// ErrDeviceReportNotFound indicates the device report was not found
var ErrDeviceReportNotFound = errors.New("device report not found")

// DeviceService scores device telemetry submissions. The external
// model call is mandatory; local validations run while it is in
// flight.
type DeviceService struct {
	db          *gorm.DB
	logService  *LogService
	userService *UserService
	riskClient  *risk.Client
	storage     *user.Storage
}

// NewDeviceService creates a new DeviceService instance
func NewDeviceService(db *gorm.DB, userService *UserService, riskClient *risk.Client, storage *user.Storage) *DeviceService {
	return &DeviceService{
		db:          db,
		logService:  NewLogService(db),
		userService: userService,
		riskClient:  riskClient,
		storage:     storage,
	}
}

// DeviceSubmission is one device telemetry intake payload.
type DeviceSubmission struct {
	Phone      string                 `json:"phone" binding:"required"`
	Email      string                 `json:"email"`
	DeviceData map[string]interface{} `json:"device_data"`

	ClaimedName   string `json:"claimed_name"`
	AlternateName string `json:"alternate_name"`

	ClaimedCarrier  string `json:"claimed_carrier"`
	DetectedCarrier string `json:"detected_carrier"`

	AccountApps   []string `json:"account_apps"`
	InstalledApps []string `json:"installed_apps"`
}

// Score submits the telemetry to the risk model, folds in the local
// validations, and persists the scored report. A model failure fails
// the whole submission.
func (s *DeviceService) Score(ctx context.Context, userID uint, sub DeviceSubmission) (*models.DeviceReport, error) {
	var (
		wg          sync.WaitGroup
		modelResp   *risk.ModelResponse
		modelErr    error
		payloadJSON []byte
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		modelResp, modelErr = s.riskClient.Score(ctx, risk.ModelRequest{
			Phone:      sub.Phone,
			Email:      sub.Email,
			DeviceData: sub.DeviceData,
		})
	}()

	// The audit payload is prepared while the model round trip is in flight.
	payloadJSON, _ = json.Marshal(sub)

	wg.Wait()
	if modelErr != nil {
		s.logService.LogDeviceScored(userID, 0, sub.Phone, 0, modelErr)
		return nil, modelErr
	}

	breakdown := risk.Compute(risk.Input{
		ModelScore:      modelResp.Score,
		DeviceRiskLevel: modelResp.RiskLevel,
		ClaimedName:     sub.ClaimedName,
		AlternateName:   sub.AlternateName,
		ClaimedCarrier:  sub.ClaimedCarrier,
		DetectedCarrier: sub.DetectedCarrier,
		AccountApps:     sub.AccountApps,
		InstalledApps:   sub.InstalledApps,
	})

	report := &models.DeviceReport{
		UserID:                 userID,
		Phone:                  sub.Phone,
		Email:                  sub.Email,
		SessionID:              modelResp.SessionID,
		ModelScore:             breakdown.ModelScore,
		DeviceScore:            breakdown.DeviceScore,
		InputValidationScore:   breakdown.InputValidationScore,
		NetworkValidationScore: breakdown.NetworkValidationScore,
		AppProfileScore:        breakdown.AppProfileScore,
		FinalScore:             breakdown.FinalScore,
		RiskLevel:              modelResp.RiskLevel,
		PayloadJSON:            string(payloadJSON),
		CreatedAt:              time.Now(),
	}
	if err := s.db.Create(report).Error; err != nil {
		return nil, err
	}

	s.logService.LogDeviceScored(userID, report.ID, sub.Phone, report.FinalScore, nil)
	s.exportIfEnabled(userID, report)

	return report, nil
}

func (s *DeviceService) exportIfEnabled(userID uint, report *models.DeviceReport) {
	settings, err := s.userService.GetUserSettings(userID)
	if err != nil || !settings.ExportResults {
		return
	}
	if _, err := s.storage.SaveDeviceReportExport(userID, report.ID, report); err != nil {
		s.logService.LogWarn(userID, models.LogModuleDevice, "export", "report export failed", map[string]interface{}{
			"report_id": report.ID,
			"error":     err.Error(),
		})
	}
}

// GetReportByIDAndUserID retrieves a device report scoped to its owner
func (s *DeviceService) GetReportByIDAndUserID(id, userID uint) (*models.DeviceReport, error) {
	var report models.DeviceReport
	if err := s.db.Where("id = ? AND user_id = ?", id, userID).First(&report).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeviceReportNotFound
		}
		return nil, err
	}
	return &report, nil
}

// ListReports returns a user's device reports, newest first
func (s *DeviceService) ListReports(userID uint, limit int) ([]models.DeviceReport, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var reports []models.DeviceReport
	if err := s.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}
