package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/moldin/gcp-budget-agent/internal/config"
	"github.com/moldin/gcp-budget-agent/internal/logging"
)

// rootCmd represents the base command for the budget-agent application
var rootCmd = &cobra.Command{
	Use:   "budget-agent",
	Short: "Finds the receipt emails behind bank transactions",
	Long: `budget-agent searches a Gmail mailbox for the receipt or invoice that
corroborates a bank transaction and extracts a clean text body from it, so a
categorizing agent can decide the budget category.

It can run as:
  - An MCP (Model Context Protocol) server for the categorizing agent
  - A CLI for searching by hand (search, receipts)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

var (
	configPath string
	logLevel   string
	logFormat  string
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "budget-agent version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", os.Getenv("BUDGET_AGENT_CONFIG"), "Path to the YAML config file. Can also use BUDGET_AGENT_CONFIG env var.")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides log_level in the config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json (overrides log_format in the config)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newReceiptsCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}

// loadConfig reads the config file and builds the logger. Flags win over
// the file and the environment.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}

	return cfg, logging.New(cfg.LogLevel, cfg.LogFormat), nil
}
