package services

import (
	"os"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/parthsarkhelia/EYE/internal/database/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Account enable/disable must be idempotent: repeating the same switch
// leaves the state unchanged, and queries after a switch see the new
// value.

func setupTestDB(t *testing.T) (*gorm.DB, func()) {
	tmpFile, err := os.CreateTemp("", "test_*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	tmpFile.Close()

	db, err := gorm.Open(sqlite.Open(tmpFile.Name()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("Failed to open database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.UserSettings{},
		&models.EmailAccount{},
		&models.Log{},
	)
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("Failed to migrate: %v", err)
	}

	cleanup := func() {
		sqlDB, _ := db.DB()
		if sqlDB != nil {
			sqlDB.Close()
		}
		os.Remove(tmpFile.Name())
	}

	return db, cleanup
}

func createTestAccount(t *testing.T, service *AccountService, userID uint, email string, enabled bool) *models.EmailAccount {
	account, err := service.CreateAccount(CreateAccountInput{
		UserID:      userID,
		Email:       email,
		DisplayName: "Test Account",
		IMAPHost:    "imap.test.com",
		IMAPPort:    993,
		Username:    "test@test.com",
		Password:    "testpassword",
		UseSSL:      true,
	})
	if err != nil {
		t.Fatalf("Failed to create test account: %v", err)
	}

	if !enabled {
		account, err = service.SetAccountEnabled(account.ID, userID, enabled)
		if err != nil {
			t.Fatalf("Failed to set initial enabled state: %v", err)
		}
	}

	return account
}

func TestProperty_AccountStatusSwitchIdempotency(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("set_account_enabled_same_value_is_idempotent", prop.ForAll(
		func(initialEnabled bool) bool {
			db, cleanup := setupTestDB(t)
			defer cleanup()

			encryptionKey := []byte("test-encryption-key-32-bytes!!")
			service := NewAccountService(db, encryptionKey)

			owner := &models.User{Username: "testuser", PasswordHash: "hash"}
			db.Create(owner)

			account := createTestAccount(t, service, owner.ID, "test@example.com", initialEnabled)

			for i := 0; i < 3; i++ {
				updatedAccount, err := service.SetAccountEnabled(account.ID, owner.ID, initialEnabled)
				if err != nil {
					return false
				}
				if updatedAccount.Enabled != initialEnabled {
					return false
				}
			}

			finalAccount, err := service.GetAccountByID(account.ID)
			if err != nil {
				return false
			}

			return finalAccount.Enabled == initialEnabled
		},
		gen.Bool(),
	))

	properties.Property("status_query_returns_correct_value_after_switch", prop.ForAll(
		func(targetEnabled bool) bool {
			db, cleanup := setupTestDB(t)
			defer cleanup()

			encryptionKey := []byte("test-encryption-key-32-bytes!!")
			service := NewAccountService(db, encryptionKey)

			owner := &models.User{Username: "testuser", PasswordHash: "hash"}
			db.Create(owner)

			// Start from the opposite state.
			account := createTestAccount(t, service, owner.ID, "test@example.com", !targetEnabled)

			_, err := service.SetAccountEnabled(account.ID, owner.ID, targetEnabled)
			if err != nil {
				return false
			}

			queriedAccount, err := service.GetAccountByID(account.ID)
			if err != nil {
				return false
			}

			return queriedAccount.Enabled == targetEnabled
		},
		gen.Bool(),
	))

	properties.Property("double_switch_returns_to_original_state", prop.ForAll(
		func(initialEnabled bool) bool {
			db, cleanup := setupTestDB(t)
			defer cleanup()

			encryptionKey := []byte("test-encryption-key-32-bytes!!")
			service := NewAccountService(db, encryptionKey)

			owner := &models.User{Username: "testuser", PasswordHash: "hash"}
			db.Create(owner)

			account := createTestAccount(t, service, owner.ID, "test@example.com", initialEnabled)

			if _, err := service.SetAccountEnabled(account.ID, owner.ID, !initialEnabled); err != nil {
				return false
			}

			finalAccount, err := service.SetAccountEnabled(account.ID, owner.ID, initialEnabled)
			if err != nil {
				return false
			}

			return finalAccount.Enabled == initialEnabled
		},
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestAccountCredentialEncryptionRoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	encryptionKey := []byte("test-encryption-key-32-bytes!!")
	service := NewAccountService(db, encryptionKey)

	owner := &models.User{Username: "testuser", PasswordHash: "hash"}
	db.Create(owner)

	account := createTestAccount(t, service, owner.ID, "test@example.com", true)

	if account.PasswordEncrypted == "testpassword" {
		t.Fatal("password stored as plaintext")
	}

	decrypted, err := service.GetDecryptedPassword(account)
	if err != nil {
		t.Fatalf("GetDecryptedPassword: %v", err)
	}
	if decrypted != "testpassword" {
		t.Errorf("decrypted password = %q, want %q", decrypted, "testpassword")
	}
}
