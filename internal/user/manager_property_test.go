package user

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// User data isolation: export directories for two different users must
// never overlap, and a user can only validate paths inside their own tree.

func TestProperty_UserDataIsolation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	tempDir, err := os.MkdirTemp("", "eye_user_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	manager := NewManager(tempDir)

	properties.Property("different_users_have_non_overlapping_directories", prop.ForAll(
		func(userA, userB uint) bool {
			if userA == userB {
				return true
			}

			dirA, errA := manager.GetUserDataDir(userA)
			dirB, errB := manager.GetUserDataDir(userB)

			if errA != nil || errB != nil {
				return false
			}

			if dirA == dirB {
				return false
			}

			absA, _ := filepath.Abs(dirA)
			absB, _ := filepath.Abs(dirB)

			if hasPathPrefix(absA, absB) || hasPathPrefix(absB, absA) {
				return false
			}

			return true
		},
		gen.UIntRange(1, 10000),
		gen.UIntRange(1, 10000),
	))

	properties.Property("user_cannot_access_other_users_data", prop.ForAll(
		func(requestingUser, targetUser uint) bool {
			err := manager.ValidateUserAccess(requestingUser, targetUser)

			if requestingUser == targetUser {
				return err == nil
			}
			return err == ErrUserDataAccessDenied
		},
		gen.UIntRange(1, 10000),
		gen.UIntRange(1, 10000),
	))

	properties.Property("path_validation_prevents_cross_user_access", prop.ForAll(
		func(userA, userB uint) bool {
			if userA == userB || userA == 0 || userB == 0 {
				return true
			}

			_ = manager.CreateUserDirectories(userA)
			_ = manager.CreateUserDirectories(userB)

			dirB, err := manager.GetUserDataDir(userB)
			if err != nil {
				return false
			}

			err = manager.ValidatePathBelongsToUser(userA, dirB)
			return err == ErrUserDataAccessDenied
		},
		gen.UIntRange(1, 1000),
		gen.UIntRange(1, 1000),
	))

	properties.TestingRun(t)
}

func TestProperty_UserDirectoryCreationIsolation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	properties.Property("user_directories_created_in_isolation", prop.ForAll(
		func(userID uint) bool {
			tempDir, err := os.MkdirTemp("", "eye_isolation_*")
			if err != nil {
				return false
			}
			defer os.RemoveAll(tempDir)

			manager := NewManager(tempDir)

			if err := manager.CreateUserDirectories(userID); err != nil {
				return false
			}

			analysesDir, _ := manager.GetAnalysisExportsDir(userID)
			reportsDir, _ := manager.GetDeviceReportsDir(userID)

			for _, dir := range []string{analysesDir, reportsDir} {
				info, err := os.Stat(dir)
				if err != nil || !info.IsDir() {
					return false
				}
			}

			userDir, _ := manager.GetUserDataDir(userID)
			for _, dir := range []string{analysesDir, reportsDir} {
				if err := manager.ValidatePathBelongsToUser(userID, dir); err != nil {
					return false
				}
				absDir, _ := filepath.Abs(dir)
				absUserDir, _ := filepath.Abs(userDir)
				if !hasPathPrefix(absDir, absUserDir) {
					return false
				}
			}

			return true
		},
		gen.UIntRange(1, 10000),
	))

	properties.TestingRun(t)
}

func TestProperty_PathTraversalPrevention(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 20
	properties := gopter.NewProperties(parameters)

	tempDir, err := os.MkdirTemp("", "eye_traversal_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	manager := NewManager(tempDir)

	properties.Property("path_traversal_attacks_prevented", prop.ForAll(
		func(userID uint) bool {
			if userID == 0 {
				return true
			}

			_ = manager.CreateUserDirectories(userID)

			maliciousPaths := []string{
				filepath.Join(tempDir, "users", "../../../etc/passwd"),
				filepath.Join(tempDir, "users", ".."),
				"/etc/passwd",
				"../../../etc/passwd",
			}

			for _, path := range maliciousPaths {
				err := manager.ValidatePathBelongsToUser(userID, path)
				if err == nil {
					return false
				}
			}

			return true
		},
		gen.UIntRange(1, 1000),
	))

	properties.TestingRun(t)
}

func TestStorageAnalysisExportRoundTrip(t *testing.T) {
	tempDir := t.TempDir()

	manager := NewManager(tempDir)
	storage := NewStorage(manager)

	type payload struct {
		Insights []string `json:"insights"`
		Total    int      `json:"total"`
	}

	in := payload{Insights: []string{"a", "b"}, Total: 7}
	path, err := storage.SaveAnalysisExport(42, 3, in)
	if err != nil {
		t.Fatalf("SaveAnalysisExport: %v", err)
	}
	if filepath.Base(path) != "analysis_3.json" {
		t.Errorf("unexpected export filename %q", path)
	}

	var out payload
	if err := storage.GetAnalysisExport(42, 3, &out); err != nil {
		t.Fatalf("GetAnalysisExport: %v", err)
	}
	if out.Total != in.Total || len(out.Insights) != len(in.Insights) {
		t.Errorf("round trip mismatch: %+v vs %+v", out, in)
	}

	if err := storage.DeleteAnalysisExport(42, 3); err != nil {
		t.Fatalf("DeleteAnalysisExport: %v", err)
	}
	if err := storage.GetAnalysisExport(42, 3, &out); err != ErrFileNotFound {
		t.Errorf("expected ErrFileNotFound after delete, got %v", err)
	}
}

// hasPathPrefix checks if path has the given prefix
func hasPathPrefix(path, prefix string) bool {
	if len(path) < len(prefix) {
		return false
	}
	if path[:len(prefix)] != prefix {
		return false
	}
	if len(path) > len(prefix) && path[len(prefix)] != filepath.Separator {
		return false
	}
	return true
}
