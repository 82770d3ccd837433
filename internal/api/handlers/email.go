package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/parthsarkhelia/EYE/internal/api/middleware"
	"github.com/parthsarkhelia/EYE/internal/database/models"
	"github.com/parthsarkhelia/EYE/internal/services"
)

// EmailHandler handles stored email related requests
type EmailHandler struct {
	ingestService *services.IngestService
	syncScheduler *services.SyncScheduler
	logService    *services.LogService
}

// NewEmailHandler creates a new EmailHandler instance
func NewEmailHandler(ingestService *services.IngestService, syncScheduler *services.SyncScheduler, logService *services.LogService) *EmailHandler {
	return &EmailHandler{
		ingestService: ingestService,
		syncScheduler: syncScheduler,
		logService:    logService,
	}
}

// SyncRequest represents the request to sync emails
type SyncRequest struct {
	AccountID uint `json:"account_id" binding:"required"`
}

// EmailResponse represents the response for a stored email
type EmailResponse struct {
	ID        uint   `json:"id"`
	AccountID uint   `json:"account_id"`
	MessageID string `json:"message_id"`
	Subject   string `json:"subject"`
	From      string `json:"from"`
	Date      int64  `json:"date"`
	Body      string `json:"body"`
}

// toEmailResponse converts an Email model to EmailResponse
func toEmailResponse(email *models.Email) EmailResponse {
	return EmailResponse{
		ID:        email.ID,
		AccountID: email.AccountID,
		MessageID: email.MessageID,
		Subject:   email.Subject,
		From:      email.FromAddr,
		Date:      email.Date.Unix(),
		Body:      email.Body,
	}
}

// ListEmails returns a list of stored emails with pagination
// GET /api/emails
func (h *EmailHandler) ListEmails(c *gin.Context) {
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

	accountID, _ := strconv.ParseUint(c.Query("account_id"), 10, 32)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	opts := services.EmailListOptions{
		AccountID: uint(accountID),
		Page:      page,
		Limit:     limit,
	}

	result, err := h.ingestService.ListEmails(userID, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve emails",
			},
		})
		return
	}

	var emails []EmailResponse
	for _, email := range result.Emails {
		emails = append(emails, toEmailResponse(&email))
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"total":  result.Total,
			"page":   page,
			"limit":  limit,
			"emails": emails,
		},
	})
}

// GetEmail returns a specific stored email
// GET /api/emails/:id
func (h *EmailHandler) GetEmail(c *gin.Context) {
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

	emailID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid email ID",
			},
		})
		return
	}

	email, err := h.ingestService.GetEmailByIDAndUserID(uint(emailID), userID)
	if err != nil {
		if err == services.ErrEmailNotFound {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Email not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to retrieve email",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toEmailResponse(email),
	})
}

// DeleteEmail deletes a stored email
// DELETE /api/emails/:id
func (h *EmailHandler) DeleteEmail(c *gin.Context) {
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

	emailID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid email ID",
			},
		})
		return
	}

	err = h.ingestService.DeleteEmail(uint(emailID), userID)
	if err != nil {
		if err == services.ErrEmailNotFound {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Email not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Failed to delete email",
			},
		})
		return
	}

	h.logService.LogInfo(userID, models.LogModuleIngest, "delete", "Email deleted", map[string]interface{}{
		"email_id": emailID,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Email deleted successfully",
	})
}

// SyncEmails fetches new emails for an account
// POST /api/emails/sync
func (h *EmailHandler) SyncEmails(c *gin.Context) {
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

	var req SyncRequest
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

	// The scheduler may already be syncing this account in the background.
	if h.syncScheduler != nil {
		if !h.syncScheduler.TryLockAccount(req.AccountID) {
			c.JSON(http.StatusConflict, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "CONFLICT",
					"message": "Account sync already in progress",
				},
			})
			return
		}
		defer h.syncScheduler.UnlockAccount(req.AccountID)
	}

	savedCount, err := h.ingestService.SyncAccount(userID, req.AccountID)
	if err != nil {
		if err == services.ErrAccountNotFound {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "NOT_FOUND",
					"message": "Account not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "SYNC_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"synced_count": savedCount,
		},
	})
}
