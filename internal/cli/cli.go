package cli

import (
	"fmt"
	"os"

	"github.com/parthsarkhelia/EYE/internal/api/middleware"
	"github.com/parthsarkhelia/EYE/internal/config"
	"github.com/parthsarkhelia/EYE/internal/services"
	"github.com/parthsarkhelia/EYE/internal/user"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	db            *gorm.DB
	cfg           *config.Config
	apiKeyManager *middleware.APIKeyManager
	userService   *services.UserService
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "eye",
	Short: "Bureau EYE financial email intelligence service",
	Long: `Bureau EYE classifies financial alert emails, extracts transactions
and scores device telemetry submissions.

This command line tool covers administrative tasks:
  - key management: show and reset the API key
  - user management: create users, list users, reset passwords
  - offline analysis: run the analyzer on a JSON email dump

Examples:
  eye key show             # show the current API key
  eye key reset            # reset the API key
  eye user create          # create a new user
  eye user list            # list all users
  eye user reset-pwd       # reset a user's password
  eye analyze emails.json  # analyze an email dump offline`,
}

// Execute runs the CLI with the provided database and config
func Execute(database *gorm.DB, config *config.Config) {
	db = database
	cfg = config

	// Initialize API key manager
	var err error
	apiKeyManager, err = middleware.NewAPIKeyManager(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize API key manager: %v\n", err)
		os.Exit(1)
	}

	// Initialize user manager and service
	userManager := user.NewManagerWithExportsDir(cfg.DataDir, cfg.ExportsDir)
	userService = services.NewUserService(db, userManager)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(analyzeCmd)
}
