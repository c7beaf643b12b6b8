package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/custrecon/internal/config"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile       string
	envFile       string
	logLevel      string
	logFormat     string
	progressEvery int64
	strict        bool
	outputDir     string
	outputFormat  string
	noColor       bool
	sourceNames   []string
)

var rootCmd = &cobra.Command{
	Use:   "custrecon",
	Short: "Customer master reconciliation",
	Long: `A CLI tool that reconciles regional customer master extracts against
the external customer index.

Features:
  - Ordered, counted eligibility funnel (range, jurisdiction, deletion flag)
  - Ship-to / sold-to partner relationship graph
  - Set difference against a MySQL, Weaviate or exported index
  - Match and duplicate analysis against a target list
  - Concurrent regional sources, run history and prometheus textfile metrics`,
	Version:      Version,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Config file flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "custrecon.yaml",
		"Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "",
		"Load environment variables from this file before reading the config")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	// Processing overrides
	rootCmd.PersistentFlags().Int64Var(&progressEvery, "progress-every", 0,
		"Override progress log interval (records)")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false,
		"Abort on the first malformed row instead of skipping it")
	rootCmd.PersistentFlags().StringSliceVarP(&sourceNames, "source", "s", nil,
		"Sources to process (repeatable, default: all configured sources)")

	// Output overrides
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "",
		"Override artifact output directory")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "",
		"Override artifact format (json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable colored terminal output")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() config.CLIOverrides {
	return config.CLIOverrides{
		LogLevel:      logLevel,
		LogFormat:     logFormat,
		ProgressEvery: progressEvery,
		Strict:        strict,
		OutputDir:     outputDir,
		OutputFormat:  outputFormat,
	}
}
