package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/scrollkit/cardfeed/pkg/config"
	"github.com/scrollkit/cardfeed/pkg/logging"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "cardctl",
	Short:         "Operator tool for the cardfeed service",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(warmCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cardctl %s\n", version)
	},
}

// setup loads configuration and logs to stderr only at warn and above, so
// command output stays clean.
func setup() (*config.Config, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg.Logging.Level = "WARN"
	if err := logging.InitLogger(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
