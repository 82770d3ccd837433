package user

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrFileNotFound indicates the requested file was not found
	ErrFileNotFound = errors.New("file not found")
	// ErrFileWriteFailed indicates file write operation failed
	ErrFileWriteFailed = errors.New("failed to write file")
	// ErrFileReadFailed indicates file read operation failed
	ErrFileReadFailed = errors.New("failed to read file")
)

// Storage writes analysis results and device reports into the user's
// export directories as pretty-printed JSON.
type Storage struct {
	manager *Manager
}

// NewStorage creates a new user Storage instance
func NewStorage(manager *Manager) *Storage {
	return &Storage{
		manager: manager,
	}
}

// SaveAnalysisExport saves a completed analysis result
func (s *Storage) SaveAnalysisExport(userID, analysisID uint, result interface{}) (string, error) {
	dir, err := s.manager.GetAnalysisExportsDir(userID)
	if err != nil {
		return "", err
	}
	return s.writeJSON(dir, fmt.Sprintf("analysis_%d.json", analysisID), result)
}

// GetAnalysisExport reads an exported analysis result back
func (s *Storage) GetAnalysisExport(userID, analysisID uint, result interface{}) error {
	dir, err := s.manager.GetAnalysisExportsDir(userID)
	if err != nil {
		return err
	}
	return s.readJSON(dir, fmt.Sprintf("analysis_%d.json", analysisID), result)
}

// DeleteAnalysisExport removes an exported analysis result
func (s *Storage) DeleteAnalysisExport(userID, analysisID uint) error {
	dir, err := s.manager.GetAnalysisExportsDir(userID)
	if err != nil {
		return err
	}

	filePath := filepath.Join(dir, fmt.Sprintf("analysis_%d.json", analysisID))
	if err := s.manager.ValidatePathBelongsToUser(userID, filePath); err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SaveDeviceReportExport saves a scored device report
func (s *Storage) SaveDeviceReportExport(userID, reportID uint, report interface{}) (string, error) {
	dir, err := s.manager.GetDeviceReportsDir(userID)
	if err != nil {
		return "", err
	}
	return s.writeJSON(dir, fmt.Sprintf("report_%d.json", reportID), report)
}

// ListAnalysisExports lists exported analysis files for a user
func (s *Storage) ListAnalysisExports(userID uint) ([]string, error) {
	dir, err := s.manager.GetAnalysisExportsDir(userID)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFileReadFailed, err.Error())
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() {
			files = append(files, entry.Name())
		}
	}

	return files, nil
}

func (s *Storage) writeJSON(dir, filename string, v interface{}) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: %s", ErrFileWriteFailed, err.Error())
	}

	filePath := filepath.Join(dir, sanitizeFilename(filename))

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrFileWriteFailed, err.Error())
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return "", fmt.Errorf("%w: %s", ErrFileWriteFailed, err.Error())
	}

	return filePath, nil
}

func (s *Storage) readJSON(dir, filename string, v interface{}) error {
	filePath := filepath.Join(dir, sanitizeFilename(filename))

	content, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return ErrFileNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %s", ErrFileReadFailed, err.Error())
	}

	if err := json.Unmarshal(content, v); err != nil {
		return fmt.Errorf("%w: %s", ErrFileReadFailed, err.Error())
	}

	return nil
}

// sanitizeFilename removes or replaces unsafe characters from filenames
func sanitizeFilename(name string) string {
	unsafe := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", "\x00"}
	result := name
	for _, char := range unsafe {
		result = filepath.Clean(result)
		for i := 0; i < len(result); i++ {
			if string(result[i]) == char {
				result = result[:i] + "_" + result[i+1:]
			}
		}
	}
	// filepath.Base prevents directory traversal
	return filepath.Base(result)
}
