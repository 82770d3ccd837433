package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/parthsarkhelia/EYE/internal/api/handlers"
	"github.com/parthsarkhelia/EYE/internal/api/middleware"
	"github.com/parthsarkhelia/EYE/internal/config"
	"github.com/parthsarkhelia/EYE/internal/risk"
	"github.com/parthsarkhelia/EYE/internal/services"
	"github.com/parthsarkhelia/EYE/internal/user"
	"gorm.io/gorm"
)

// SetupRouter initializes and returns the Gin router with all routes configured
func SetupRouter(db *gorm.DB, cfg *config.Config) (*gin.Engine, *middleware.AuthManager, error) {
	router := gin.Default()

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-API-Key"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSOrigins == "" || cfg.CORSOrigins == "*" {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.CORSOrigins, ",")
	}
	router.Use(cors.New(corsConfig))

	// Initialize auth manager
	authManager, err := middleware.NewAuthManager(cfg.DataDir, cfg.JWTSecret, middleware.DefaultTokenExpiry)
	if err != nil {
		return nil, nil, err
	}

	// Initialize per-user storage
	userManager := user.NewManagerWithExportsDir(cfg.DataDir, cfg.ExportsDir)
	storage := user.NewStorage(userManager)

	// Initialize services
	userService := services.NewUserService(db, userManager)
	logService := services.NewLogServiceWithLevel(db, cfg.LogLevel)
	accountService := services.NewAccountService(db, cfg.GetEncryptionKey())
	ingestService := services.NewIngestService(db, accountService)
	analysisService := services.NewAnalysisService(db, userService, ingestService, storage)

	riskClient := risk.NewClient(cfg.RiskModelURL, cfg.RiskModelAPIKey, time.Duration(cfg.RiskModelTimeoutSec)*time.Second)
	deviceService := services.NewDeviceService(db, userService, riskClient, storage)

	// Background mailbox sync, 0 disables it
	var syncScheduler *services.SyncScheduler
	if cfg.SyncIntervalMin > 0 {
		syncScheduler = services.NewSyncScheduler(db, ingestService, logService, time.Duration(cfg.SyncIntervalMin)*time.Minute)
		syncScheduler.Start()
	}

	// OAuth tokens are refreshed ahead of expiry regardless of sync settings
	tokenScheduler := services.NewTokenScheduler(db, ingestService, 5*time.Minute)
	tokenScheduler.Start()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService, authManager.JWTManager, logService)
	userHandler := handlers.NewUserHandler(userService, logService)
	accountHandler := handlers.NewAccountHandler(accountService, logService)
	emailHandler := handlers.NewEmailHandler(ingestService, syncScheduler, logService)
	analysisHandler := handlers.NewAnalysisHandler(analysisService, storage)
	deviceHandler := handlers.NewDeviceHandler(deviceService)
	settingsHandler := handlers.NewSettingsHandler(userService, logService)
	oauthHandler := handlers.NewOAuthHandler(accountService, userService)

	// Health check endpoint (no auth required)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API routes
	api := router.Group("/api")
	{
		// Apply API key middleware to all API routes
		api.Use(middleware.APIKeyMiddleware(authManager.APIKeyManager))

		// Auth routes (API key required, but no JWT required)
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
		}

		// OAuth routes (callback has no JWT, Google calls it directly)
		oauth := api.Group("/oauth")
		{
			oauth.GET("/google/callback", oauthHandler.GoogleCallback)
		}

		// Protected routes (API key + JWT required)
		protected := api.Group("")
		protected.Use(middleware.JWTMiddleware(authManager.JWTManager))
		{
			// Auth routes that require authentication
			protected.POST("/auth/refresh", authHandler.RefreshToken)
			protected.POST("/auth/logout", authHandler.Logout)
			protected.GET("/auth/me", authHandler.GetCurrentUser)

			// User routes
			userGroup := protected.Group("/user")
			{
				userGroup.GET("/profile", userHandler.GetProfile)
				userGroup.PUT("/profile", userHandler.UpdateProfile)
				userGroup.PUT("/password", userHandler.ChangePassword)
			}

			// Mailbox account routes
			accounts := protected.Group("/accounts")
			{
				accounts.GET("", accountHandler.ListAccounts)
				accounts.POST("", accountHandler.CreateAccount)
				accounts.POST("/test", accountHandler.TestConnectionDirect) // Test without saving (must be before /:id routes)
				accounts.GET("/:id", accountHandler.GetAccount)
				accounts.PUT("/:id", accountHandler.UpdateAccount)
				accounts.DELETE("/:id", accountHandler.DeleteAccount)
				accounts.POST("/:id/test", accountHandler.TestConnection)
				accounts.PUT("/:id/enabled", accountHandler.SetAccountEnabled)
			}

			// Stored email routes
			emails := protected.Group("/emails")
			{
				emails.GET("", emailHandler.ListEmails)
				emails.GET("/:id", emailHandler.GetEmail)
				emails.DELETE("/:id", emailHandler.DeleteEmail)
				emails.POST("/sync", emailHandler.SyncEmails)
			}

			// Analysis routes
			analyses := protected.Group("/analyses")
			{
				analyses.GET("", analysisHandler.ListAnalyses)
				analyses.POST("", analysisHandler.CreateAnalysis)
				analyses.GET("/exports", analysisHandler.ListAnalysisExports)
				analyses.GET("/:id", analysisHandler.GetAnalysisStatus)
				analyses.POST("/:id/run", analysisHandler.RunAnalysis)
				analyses.GET("/:id/results", analysisHandler.GetAnalysisResults)
				analyses.GET("/:id/export", analysisHandler.GetAnalysisExport)
				analyses.DELETE("/:id", analysisHandler.DeleteAnalysis)
			}

			// Device risk routes
			device := protected.Group("/device")
			{
				device.POST("/score", deviceHandler.ScoreDevice)
				device.GET("/reports", deviceHandler.ListDeviceReports)
				device.GET("/reports/:id", deviceHandler.GetDeviceReport)
			}

			// Settings routes
			settings := protected.Group("/settings")
			{
				settings.GET("", settingsHandler.GetSettings)
				settings.PUT("", settingsHandler.UpdateSettings)
			}

			// OAuth routes (protected - need JWT to initiate)
			oauthProtected := protected.Group("/oauth")
			{
				oauthProtected.GET("/config", oauthHandler.GetOAuthConfig)
				oauthProtected.GET("/google/auth", oauthHandler.GetGoogleAuthURL)
			}
		}
	}

	return router, authManager, nil
}
