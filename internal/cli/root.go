package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

// Exit codes. Auth failures get their own code so wrapper scripts can tell
// an expired token apart from a transient API error.
const (
	ExitSuccess      = 0
	ExitRuntimeError = 1
	ExitUsageError   = 2
	ExitAuthError    = 3
)

// Global flags
var (
	flagConfig   string
	flagNoRedact bool
)

var rootCmd = &cobra.Command{
	Use:   "pmscrub",
	Short: "Fetch product-management records with PII redacted",
	Long: "pmscrub fetches records from Productboard, Dovetail, Confluence and Jira,\n" +
		"redacts personally identifiable information, and prints the filtered JSON\n" +
		"to stdout so it can be handed safely to a language model.",
}

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&flagNoRedact, "no-redact", false, "Disable PII redaction (use with caution)")

	for _, cmd := range fetchCommands() {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print pmscrub version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "pmscrub version %s\n", version)
	},
}
