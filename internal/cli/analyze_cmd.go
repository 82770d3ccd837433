package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/parthsarkhelia/EYE/internal/analyzer"
	"github.com/spf13/cobra"
)

var analyzeOutputPath string

// analyzeCmd runs the analyzer on a JSON email dump without touching the
// database. The input file is an array of {subject, content, sender,
// timestamp} objects.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <emails.json>",
	Short: "Analyze an email dump offline",
	Long: `Run the full classification and extraction pipeline on a JSON file of
emails and print the analysis result. Nothing is persisted.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to read input file: %v\n", err)
			os.Exit(1)
		}

		var emails []analyzer.RawEmail
		if err := json.Unmarshal(data, &emails); err != nil {
			fmt.Fprintf(os.Stderr, "error: invalid email dump: %v\n", err)
			os.Exit(1)
		}
		if len(emails) == 0 {
			fmt.Fprintln(os.Stderr, "error: input file contains no emails")
			os.Exit(1)
		}

		a := analyzer.New(nil)
		result, err := a.AnalyzeEmails(context.Background(), emails)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: analysis failed: %v\n", err)
			os.Exit(1)
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: failed to encode result: %v\n", err)
			os.Exit(1)
		}

		if analyzeOutputPath != "" {
			if err := os.WriteFile(analyzeOutputPath, out, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "error: failed to write result: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Analyzed %d emails, result written to %s\n", len(emails), analyzeOutputPath)
			return
		}

		fmt.Println(string(out))
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOutputPath, "output", "o", "", "write the result to a file instead of stdout")
}
