package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/attachdrop/internal/config"
	"github.com/teemow/attachdrop/internal/logging"
)

// rootCmd represents the base command for the attachdrop application
var rootCmd = &cobra.Command{
	Use:   "attachdrop",
	Short: "Copies email attachments into cloud storage",
	Long: `attachdrop lists the attachments of an email message and copies them,
one by one or in bulk, into Google Drive or an S3 bucket.

It can run as:
  - An MCP (Model Context Protocol) server for AI assistants
  - A standalone CLI tool (attachments list|save|bulk)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// Flags shared by all commands.
var (
	configFile string
	account    string
	debugMode  bool
)

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "attachdrop version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to a YAML configuration file. Can also use ATTACHDROP_CONFIG env var.")
	rootCmd.PersistentFlags().StringVar(&account, "account", "", "Account to use (default: the configured default account)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newAttachmentsCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}

// loadConfig reads the configuration file named by --config or
// ATTACHDROP_CONFIG, falling back to defaults and environment variables.
func loadConfig() (*config.Config, error) {
	path := configFile
	if path == "" {
		path = os.Getenv("ATTACHDROP_CONFIG")
	}
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// newLogger builds the process logger. It always writes to stderr because
// the stdio transport owns stdout.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level := cfg.Logging.Level
	if debugMode {
		level = "debug"
	}
	return logging.New(os.Stderr, level, cfg.Logging.Format)
}
