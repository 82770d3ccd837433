package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/parthsarkhelia/EYE/internal/api/middleware"
	"github.com/parthsarkhelia/EYE/internal/database/models"
	"github.com/parthsarkhelia/EYE/internal/services"
)

// SettingsHandler handles user settings related requests
type SettingsHandler struct {
	userService *services.UserService
	logService  *services.LogService
}

// NewSettingsHandler creates a new SettingsHandler instance
func NewSettingsHandler(userService *services.UserService, logService *services.LogService) *SettingsHandler {
	return &SettingsHandler{
		userService: userService,
		logService:  logService,
	}
}

// UserSettingsResponse represents the response for user settings
type UserSettingsResponse struct {
	AutoAnalyzeOnSync bool `json:"auto_analyze_on_sync"`
	ExportResults     bool `json:"export_results"`

	// Google OAuth configuration
	GoogleClientID     string `json:"google_client_id"`
	GoogleClientSecret string `json:"google_client_secret"`
	GoogleRedirectURL  string `json:"google_redirect_url"`
}

// UpdateSettingsRequest represents the request to update user settings
type UpdateSettingsRequest struct {
	AutoAnalyzeOnSync *bool `json:"auto_analyze_on_sync"`
	ExportResults     *bool `json:"export_results"`

	// Google OAuth configuration
	GoogleClientID     *string `json:"google_client_id"`
	GoogleClientSecret *string `json:"google_client_secret"`
	GoogleRedirectURL  *string `json:"google_redirect_url"`
}

// toSettingsResponse converts UserSettings model to UserSettingsResponse
func toSettingsResponse(settings *models.UserSettings) UserSettingsResponse {
	return UserSettingsResponse{
		AutoAnalyzeOnSync:  settings.AutoAnalyzeOnSync,
		ExportResults:      settings.ExportResults,
		GoogleClientID:     settings.GoogleClientID,
		GoogleClientSecret: settings.GoogleClientSecret,
		GoogleRedirectURL:  settings.GoogleRedirectURL,
	}
}

// GetSettings returns the current user's settings
// GET /api/settings
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "AUTH_FAILED",
				"message": "User not authenticated",
			},
		})
		return
	}

	settings, err := h.userService.GetUserSettings(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve settings",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toSettingsResponse(settings),
	})
}

// UpdateSettings updates the current user's settings
// PUT /api/settings
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "AUTH_FAILED",
				"message": "User not authenticated",
			},
		})
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request body",
				"details": err.Error(),
			},
		})
		return
	}

	// Get current settings
	settings, err := h.userService.GetUserSettings(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve settings",
			},
		})
		return
	}

	// Update only provided fields
	if req.AutoAnalyzeOnSync != nil {
		settings.AutoAnalyzeOnSync = *req.AutoAnalyzeOnSync
	}
	if req.ExportResults != nil {
		settings.ExportResults = *req.ExportResults
	}
	if req.GoogleClientID != nil {
		settings.GoogleClientID = *req.GoogleClientID
	}
	if req.GoogleClientSecret != nil {
		settings.GoogleClientSecret = *req.GoogleClientSecret
	}
	if req.GoogleRedirectURL != nil {
		settings.GoogleRedirectURL = *req.GoogleRedirectURL
	}

	// Save updated settings
	err = h.userService.UpdateUserSettings(userID, settings)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to update settings",
			},
		})
		return
	}

	h.logService.LogInfo(userID, models.LogModuleUser, "settings_update", "User settings updated", map[string]interface{}{
		"auto_analyze_on_sync": settings.AutoAnalyzeOnSync,
		"export_results":       settings.ExportResults,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toSettingsResponse(settings),
	})
}
