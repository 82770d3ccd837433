package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/parthsarkhelia/EYE/internal/user"
)

// exportTestRouter wires the export endpoints behind a stub auth layer
// that injects the given user ID.
func exportTestRouter(storage *user.Storage, userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewAnalysisHandler(nil, storage)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("user_id", userID)
		c.Next()
	})
	router.GET("/analyses/exports", handler.ListAnalysisExports)
	router.GET("/analyses/:id/export", handler.GetAnalysisExport)
	return router
}

func TestAnalysisExportEndpoints(t *testing.T) {
	tempDir := t.TempDir()
	manager := user.NewManager(tempDir)
	storage := user.NewStorage(manager)

	saved := map[string]interface{}{
		"total_emails": float64(3),
		"currency":     "Rs.",
	}
	if _, err := storage.SaveAnalysisExport(1, 42, saved); err != nil {
		t.Fatalf("SaveAnalysisExport failed: %v", err)
	}

	router := exportTestRouter(storage, 1)

	t.Run("get export", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/analyses/42/export", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
		}
		var resp struct {
			Success bool                   `json:"success"`
			Data    map[string]interface{} `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response body: %v", err)
		}
		if !resp.Success {
			t.Error("success = false, want true")
		}
		if resp.Data["currency"] != "Rs." || resp.Data["total_emails"] != float64(3) {
			t.Errorf("export data = %v, want %v", resp.Data, saved)
		}
	})

	t.Run("missing export", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/analyses/99/export", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})

	t.Run("list exports", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/analyses/exports", nil)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		var resp struct {
			Data struct {
				Files []string `json:"files"`
			} `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response body: %v", err)
		}
		if len(resp.Data.Files) != 1 || resp.Data.Files[0] != "analysis_42.json" {
			t.Errorf("files = %v, want [analysis_42.json]", resp.Data.Files)
		}
	})

	t.Run("exports are per user", func(t *testing.T) {
		other := exportTestRouter(storage, 2)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/analyses/42/export", nil)
		other.ServeHTTP(w, req)
		if w.Code != http.StatusNotFound {
			t.Fatalf("cross-user export status = %d, want %d", w.Code, http.StatusNotFound)
		}

		w = httptest.NewRecorder()
		req, _ = http.NewRequest("GET", "/analyses/exports", nil)
		other.ServeHTTP(w, req)
		var resp struct {
			Data struct {
				Files []string `json:"files"`
			} `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid response body: %v", err)
		}
		if len(resp.Data.Files) != 0 {
			t.Errorf("cross-user files = %v, want none", resp.Data.Files)
		}
	})
}
