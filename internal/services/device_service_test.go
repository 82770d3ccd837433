package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/parthsarkhelia/EYE/internal/database"
	"github.com/parthsarkhelia/EYE/internal/risk"
	"github.com/parthsarkhelia/EYE/internal/user"
)

func setupDeviceTest(t *testing.T, modelHandler http.HandlerFunc) (*DeviceService, uint) {
	t.Helper()
	tempDir := t.TempDir()

	db, err := database.Initialize(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("init database: %v", err)
	}
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
	})

	server := httptest.NewServer(modelHandler)
	t.Cleanup(server.Close)

	manager := user.NewManager(tempDir)
	storage := user.NewStorage(manager)
	userService := NewUserService(db, manager)

	owner, err := userService.CreateUser("applicant", "secret123", "Applicant")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	client := risk.NewClient(server.URL, "", 5*time.Second)
	return NewDeviceService(db, userService, client, storage), owner.ID
}

func TestDeviceScorePersistsReport(t *testing.T) {
	svc, userID := setupDeviceTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"score": 400, "risk_level": "HIGH", "session_id": "sess-1"}`))
	})

	report, err := svc.Score(context.Background(), userID, DeviceSubmission{
		Phone:           "9876543210",
		Email:           "applicant@example.com",
		ClaimedName:     "Ravi Kumar",
		AlternateName:   "Mr Ravi Kumar Sharma",
		ClaimedCarrier:  "vodafone",
		DetectedCarrier: "vi",
		AccountApps:     []string{"gpay", "phonepe"},
		InstalledApps:   []string{"gpay"},
	})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	// 0.5*400 + 0.2*750 + 0 + 0 + 0.15*500 = 425
	if report.FinalScore != 425 {
		t.Errorf("FinalScore = %v, want 425", report.FinalScore)
	}
	if report.SessionID != "sess-1" {
		t.Errorf("SessionID = %q", report.SessionID)
	}
	if report.RiskLevel != "HIGH" {
		t.Errorf("RiskLevel = %q", report.RiskLevel)
	}
	if report.ID == 0 {
		t.Error("report not persisted")
	}

	fetched, err := svc.GetReportByIDAndUserID(report.ID, userID)
	if err != nil {
		t.Fatalf("GetReportByIDAndUserID: %v", err)
	}
	if fetched.PayloadJSON == "" {
		t.Error("submitted payload not kept for audit")
	}

	reports, err := svc.ListReports(userID, 10)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(reports) != 1 {
		t.Errorf("ListReports returned %d reports, want 1", len(reports))
	}
}

func TestDeviceScoreModelFailureIsFatal(t *testing.T) {
	svc, userID := setupDeviceTest(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	_, err := svc.Score(context.Background(), userID, DeviceSubmission{Phone: "9876543210"})
	if !errors.Is(err, risk.ErrModelUnavailable) {
		t.Fatalf("error = %v, want ErrModelUnavailable", err)
	}

	reports, err := svc.ListReports(userID, 10)
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(reports) != 0 {
		t.Errorf("failed submission persisted %d reports", len(reports))
	}
}

func TestDeviceReportOwnerScoping(t *testing.T) {
	svc, userID := setupDeviceTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"score": 100, "risk_level": "LOW", "session_id": "sess-2"}`))
	})

	report, err := svc.Score(context.Background(), userID, DeviceSubmission{Phone: "9876543210"})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if _, err := svc.GetReportByIDAndUserID(report.ID, userID+1); !errors.Is(err, ErrDeviceReportNotFound) {
		t.Errorf("cross-user error = %v, want ErrDeviceReportNotFound", err)
	}
}
