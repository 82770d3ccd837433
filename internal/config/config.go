package config

import (
	"crypto/sha256"
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	DatabasePath  string `json:"database_path"`
	APIPort       string `json:"api_port"`
	LogLevel      string `json:"log_level"`
	DataDir       string `json:"data_dir"`
	ExportsDir    string `json:"exports_dir"` // analysis export root, empty means DataDir/users
	JWTSecret     string `json:"jwt_secret"`
	EncryptionKey string `json:"encryption_key"` // separate key for mailbox credential encryption
	CORSOrigins   string `json:"cors_origins"`   // comma separated, * allows all

	// External risk-model service.
	RiskModelURL        string `json:"risk_model_url"`
	RiskModelAPIKey     string `json:"risk_model_api_key"`
	RiskModelTimeoutSec int    `json:"risk_model_timeout_sec"`

	// Mailbox sync scheduler interval in minutes, 0 disables it.
	SyncIntervalMin int `json:"sync_interval_min"`
}

// Default configuration values
const (
	DefaultDatabasePath        = "data/bureau_eye.db"
	DefaultAPIPort             = "8080"
	DefaultLogLevel            = "INFO"
	DefaultDataDir             = "data"
	DefaultExportsDir          = "" // empty means DataDir/users
	DefaultJWTSecret           = "bureau-eye-default-secret-change-in-production"
	DefaultEncryptionKey       = "" // empty means derive from JWTSecret
	DefaultCORSOrigins         = "*"
	DefaultRiskModelURL        = ""
	DefaultRiskModelTimeoutSec = 10
	DefaultSyncIntervalMin     = 15
)

// Load loads configuration from environment variables and config file
// Priority: Environment variables > Config file > Default values
func Load() (*Config, error) {
	cfg := &Config{
		DatabasePath:        DefaultDatabasePath,
		APIPort:             DefaultAPIPort,
		LogLevel:            DefaultLogLevel,
		DataDir:             DefaultDataDir,
		ExportsDir:          DefaultExportsDir,
		JWTSecret:           DefaultJWTSecret,
		EncryptionKey:       DefaultEncryptionKey,
		CORSOrigins:         DefaultCORSOrigins,
		RiskModelURL:        DefaultRiskModelURL,
		RiskModelTimeoutSec: DefaultRiskModelTimeoutSec,
		SyncIntervalMin:     DefaultSyncIntervalMin,
	}

	// Config file is optional.
	if err := cfg.loadFromFile(); err != nil {
		return nil, err
	}

	cfg.loadFromEnv()

	return cfg, nil
}

// loadFromFile loads configuration from config.json file
func (c *Config) loadFromFile() error {
	configPaths := []string{
		"config.json",
		filepath.Join(c.DataDir, "config.json"),
	}

	for _, path := range configPaths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		if err := json.Unmarshal(data, c); err != nil {
			return err
		}
		return nil
	}

	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if val := os.Getenv("BUREAU_EYE_DATABASE_PATH"); val != "" {
		c.DatabasePath = val
	}
	if val := os.Getenv("BUREAU_EYE_API_PORT"); val != "" {
		c.APIPort = val
	}
	if val := os.Getenv("BUREAU_EYE_LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("BUREAU_EYE_DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("BUREAU_EYE_EXPORTS_DIR"); val != "" {
		c.ExportsDir = val
	}
	if val := os.Getenv("BUREAU_EYE_JWT_SECRET"); val != "" {
		c.JWTSecret = val
	}
	if val := os.Getenv("BUREAU_EYE_ENCRYPTION_KEY"); val != "" {
		c.EncryptionKey = val
	}
	if val := os.Getenv("BUREAU_EYE_CORS_ORIGINS"); val != "" {
		c.CORSOrigins = val
	}
	if val := os.Getenv("BUREAU_EYE_RISK_MODEL_URL"); val != "" {
		c.RiskModelURL = val
	}
	if val := os.Getenv("BUREAU_EYE_RISK_MODEL_API_KEY"); val != "" {
		c.RiskModelAPIKey = val
	}
}

// GetExportsBaseDir returns the base directory for per-user analysis
// exports. If ExportsDir is set, use it; otherwise use DataDir/users
func (c *Config) GetExportsBaseDir() string {
	if c.ExportsDir != "" {
		return c.ExportsDir
	}
	return filepath.Join(c.DataDir, "users")
}

// GetEncryptionKey returns the key used to encrypt mailbox credentials
// If EncryptionKey is set, use it; otherwise derive from JWTSecret
func (c *Config) GetEncryptionKey() []byte {
	if c.EncryptionKey != "" {
		// SHA-256 guarantees a 32 byte key
		hash := sha256.Sum256([]byte(c.EncryptionKey))
		return hash[:]
	}
	hash := sha256.Sum256([]byte(c.JWTSecret + "-encryption"))
	return hash[:]
}

// Save saves the current configuration to a file
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
