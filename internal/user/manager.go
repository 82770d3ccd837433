package user

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrInvalidUserID indicates an invalid user ID was provided
	ErrInvalidUserID = errors.New("invalid user ID")
	// ErrUserDataAccessDenied indicates unauthorized access to user data
	ErrUserDataAccessDenied = errors.New("access to user data denied")
	// ErrDirectoryCreationFailed indicates directory creation failed
	ErrDirectoryCreationFailed = errors.New("failed to create directory")
)

// Manager handles per-user data directory management
type Manager struct {
	dataDir    string // base data directory (config, database)
	exportsDir string // analysis export directory, separately configurable
}

// NewManager creates a new user Manager instance.
// Exports land under dataDir/users unless an exports directory is set.
func NewManager(dataDir string) *Manager {
	return &Manager{
		dataDir:    dataDir,
		exportsDir: "",
	}
}

// NewManagerWithExportsDir creates a new user Manager with a separate exports directory
func NewManagerWithExportsDir(dataDir, exportsDir string) *Manager {
	return &Manager{
		dataDir:    dataDir,
		exportsDir: exportsDir,
	}
}

// getExportsBaseDir returns the base directory for analysis exports
func (m *Manager) getExportsBaseDir() string {
	if m.exportsDir != "" {
		return m.exportsDir
	}
	return filepath.Join(m.dataDir, "users")
}

// GetUserDataDir returns the base data directory for a specific user
func (m *Manager) GetUserDataDir(userID uint) (string, error) {
	if userID == 0 {
		return "", ErrInvalidUserID
	}
	return filepath.Join(m.getExportsBaseDir(), fmt.Sprintf("%d", userID)), nil
}

// GetAnalysisExportsDir returns the analysis exports directory for a user
func (m *Manager) GetAnalysisExportsDir(userID uint) (string, error) {
	userDir, err := m.GetUserDataDir(userID)
	if err != nil {
		return "", err
	}
	return filepath.Join(userDir, "analyses"), nil
}

// GetDeviceReportsDir returns the device report exports directory for a user
func (m *Manager) GetDeviceReportsDir(userID uint) (string, error) {
	userDir, err := m.GetUserDataDir(userID)
	if err != nil {
		return "", err
	}
	return filepath.Join(userDir, "device_reports"), nil
}

// CreateUserDirectories creates all necessary directories for a user
func (m *Manager) CreateUserDirectories(userID uint) error {
	if userID == 0 {
		return ErrInvalidUserID
	}

	baseDir := m.getExportsBaseDir()
	userDir := filepath.Join(baseDir, fmt.Sprintf("%d", userID))

	dirs := []string{
		userDir,
		filepath.Join(userDir, "analyses"),
		filepath.Join(userDir, "device_reports"),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("%w: %s", ErrDirectoryCreationFailed, err.Error())
		}
	}

	return nil
}

// ValidateUserAccess validates that a requesting user can access the target user's data.
// Users can only access their own data.
func (m *Manager) ValidateUserAccess(requestingUserID, targetUserID uint) error {
	if requestingUserID == 0 || targetUserID == 0 {
		return ErrInvalidUserID
	}
	if requestingUserID != targetUserID {
		return ErrUserDataAccessDenied
	}
	return nil
}

// ValidatePathBelongsToUser validates that a file path belongs to a specific user.
// This prevents path traversal out of the user's directory.
func (m *Manager) ValidatePathBelongsToUser(userID uint, path string) error {
	if userID == 0 {
		return ErrInvalidUserID
	}

	userDir, err := m.GetUserDataDir(userID)
	if err != nil {
		return err
	}

	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return ErrUserDataAccessDenied
	}

	absUserDir, err := filepath.Abs(userDir)
	if err != nil {
		return ErrUserDataAccessDenied
	}

	if !strings.HasPrefix(absPath, absUserDir+string(filepath.Separator)) && absPath != absUserDir {
		return ErrUserDataAccessDenied
	}

	return nil
}

// UserDirectoriesExist checks if user directories already exist
func (m *Manager) UserDirectoriesExist(userID uint) (bool, error) {
	userDir, err := m.GetUserDataDir(userID)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(userDir)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return info.IsDir(), nil
}

// DeleteUserDirectories removes all directories for a user
func (m *Manager) DeleteUserDirectories(userID uint) error {
	userDir, err := m.GetUserDataDir(userID)
	if err != nil {
		return err
	}

	return os.RemoveAll(userDir)
}

// GetDataDir returns the base data directory
func (m *Manager) GetDataDir() string {
	return m.dataDir
}
