package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"
	"github.com/temmyjay001/agency-service/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree fresh so tests can run it in isolation.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "agencyctl",
		Short:        "Operator tooling for the agency service",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if exists
			_ = gotenv.Load()
			logging.Setup(envOr("LOG_LEVEL", "warn"), envOr("ENV", "development"))
			logrus.SetOutput(cmd.ErrOrStderr())
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		newHashPasswordCmd(),
		newMigrateCmd(),
		newSignCmd(),
		newTriggerCmd(),
	)

	return rootCmd
}

func envOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
