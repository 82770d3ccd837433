package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/parthsarkhelia/EYE/internal/analyzer"
	"github.com/parthsarkhelia/EYE/internal/api/middleware"
	"github.com/parthsarkhelia/EYE/internal/services"
	"github.com/parthsarkhelia/EYE/internal/user"
)

// AnalysisHandler handles email analysis related requests
type AnalysisHandler struct {
	analysisService *services.AnalysisService
	storage         *user.Storage
}

// NewAnalysisHandler creates a new AnalysisHandler instance
func NewAnalysisHandler(analysisService *services.AnalysisService, storage *user.Storage) *AnalysisHandler {
	return &AnalysisHandler{
		analysisService: analysisService,
		storage:         storage,
	}
}

// RawEmailRequest is one email submitted for analysis
type RawEmailRequest struct {
	Subject   string    `json:"subject"`
	Content   string    `json:"content" binding:"required"`
	Sender    string    `json:"sender" binding:"required"`
	Timestamp time.Time `json:"timestamp"`
}

// CreateAnalysisRequest represents the request to create an analysis.
// Either a list of emails or a stored-email source, not both.
type CreateAnalysisRequest struct {
	Emails    []RawEmailRequest `json:"emails"`
	AccountID uint              `json:"account_id"`
}

// CreateAnalysis creates a new analysis from submitted or stored emails
// POST /api/analyses
func (h *AnalysisHandler) CreateAnalysis(c *gin.Context) {
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

	var req CreateAnalysisRequest
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

	var analysisID uint
	if len(req.Emails) > 0 {
		emails := make([]analyzer.RawEmail, 0, len(req.Emails))
		for _, e := range req.Emails {
			emails = append(emails, analyzer.RawEmail{
				Subject:   e.Subject,
				Content:   e.Content,
				Sender:    e.Sender,
				Timestamp: e.Timestamp,
			})
		}
		analysis, err := h.analysisService.CreateFromPayload(userID, emails)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INTERNAL_ERROR",
					"message": "Failed to create analysis",
				},
			})
			return
		}
		analysisID = analysis.ID
	} else {
		analysis, err := h.analysisService.CreateFromStored(userID, req.AccountID)
		if err != nil {
			if errors.Is(err, services.ErrNoEmails) {
				c.JSON(http.StatusBadRequest, gin.H{
					"success": false,
					"error": gin.H{
						"code":    "VALIDATION_ERROR",
						"message": "No stored emails to analyze",
					},
				})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INTERNAL_ERROR",
					"message": "Failed to create analysis",
				},
			})
			return
		}
		analysisID = analysis.ID
	}

	status, err := h.analysisService.Status(analysisID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve analysis",
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    status,
	})
}

// RunAnalysis starts or resumes an analysis in the background
// POST /api/analyses/:id/run
func (h *AnalysisHandler) RunAnalysis(c *gin.Context) {
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

	analysisID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid analysis ID",
			},
		})
		return
	}

	// Resumability is checked up front so the caller gets an immediate
	// error instead of a background failure.
	analysis, err := h.analysisService.GetByIDAndUserID(uint(analysisID), userID)
	if err != nil {
		if errors.Is(err, services.ErrAnalysisNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Analysis not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve analysis",
			},
		})
		return
	}

	if !analysis.CanResume() {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CONFLICT",
				"message": "Analysis is not in a runnable state",
			},
		})
		return
	}

	go h.analysisService.Run(context.Background(), uint(analysisID), userID)

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Analysis started",
	})
}

// GetAnalysisStatus returns the progress of an analysis
// GET /api/analyses/:id
func (h *AnalysisHandler) GetAnalysisStatus(c *gin.Context) {
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

	analysisID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid analysis ID",
			},
		})
		return
	}

	status, err := h.analysisService.Status(uint(analysisID), userID)
	if err != nil {
		if errors.Is(err, services.ErrAnalysisNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Analysis not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve analysis",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    status,
	})
}

// GetAnalysisResults returns the results of a completed analysis
// GET /api/analyses/:id/results
func (h *AnalysisHandler) GetAnalysisResults(c *gin.Context) {
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

	analysisID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid analysis ID",
			},
		})
		return
	}

	result, err := h.analysisService.Results(uint(analysisID), userID)
	if err != nil {
		if errors.Is(err, services.ErrAnalysisNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Analysis not found",
				},
			})
			return
		}
		if errors.Is(err, services.ErrAnalysisNotCompleted) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "CONFLICT",
					"message": "Analysis has not completed yet",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve results",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result,
	})
}

// ListAnalysisExports returns the exported result files of the user
// GET /api/analyses/exports
func (h *AnalysisHandler) ListAnalysisExports(c *gin.Context) {
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

	files, err := h.storage.ListAnalysisExports(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to list exports",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"files": files,
		},
	})
}

// GetAnalysisExport returns the exported JSON of a completed analysis
// GET /api/analyses/:id/export
func (h *AnalysisHandler) GetAnalysisExport(c *gin.Context) {
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

	analysisID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid analysis ID",
			},
		})
		return
	}

	var export json.RawMessage
	if err := h.storage.GetAnalysisExport(userID, uint(analysisID), &export); err != nil {
		if errors.Is(err, user.ErrFileNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Export not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to read export",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    export,
	})
}

// ListAnalyses returns the user's analyses with pagination
// GET /api/analyses
func (h *AnalysisHandler) ListAnalyses(c *gin.Context) {
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

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	result, err := h.analysisService.List(userID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to list analyses",
			},
		})
		return
	}

	var statuses []services.AnalysisStatus
	for _, analysis := range result.Analyses {
		statuses = append(statuses, services.AnalysisStatus{
			ID:              analysis.ID,
			Status:          analysis.Status,
			Source:          analysis.Source,
			TotalEmails:     analysis.TotalEmails,
			ProcessedEmails: analysis.ProcessedEmails,
			Progress:        analysis.Progress(),
			Error:           analysis.Error,
			CreatedAt:       analysis.CreatedAt,
			CompletedAt:     analysis.CompletedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"total":    result.Total,
			"page":     page,
			"limit":    limit,
			"analyses": statuses,
		},
	})
}

// DeleteAnalysis deletes an analysis and its exported results
// DELETE /api/analyses/:id
func (h *AnalysisHandler) DeleteAnalysis(c *gin.Context) {
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

	analysisID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid analysis ID",
			},
		})
		return
	}

	err = h.analysisService.Delete(uint(analysisID), userID)
	if err != nil {
		if errors.Is(err, services.ErrAnalysisNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Analysis not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to delete analysis",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Analysis deleted successfully",
	})
}
