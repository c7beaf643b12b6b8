package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbsmedya/custrecon/internal/config"
)

func TestGetConfigFile(t *testing.T) {
	originalCfgFile := cfgFile
	defer func() {
		cfgFile = originalCfgFile
	}()

	tests := []struct {
		name     string
		cfgValue string
		want     string
	}{
		{"default config file", "", ""},
		{"custom config file", "/path/to/custom.yaml", "/path/to/custom.yaml"},
		{"config file with spaces", "/path/to/my config.yaml", "/path/to/my config.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfgFile = tt.cfgValue
			assert.Equal(t, tt.want, GetConfigFile())
		})
	}
}

func TestGetCLIOverrides(t *testing.T) {
	originalLogLevel := logLevel
	originalLogFormat := logFormat
	originalProgressEvery := progressEvery
	originalStrict := strict
	originalOutputDir := outputDir
	originalOutputFormat := outputFormat
	defer func() {
		logLevel = originalLogLevel
		logFormat = originalLogFormat
		progressEvery = originalProgressEvery
		strict = originalStrict
		outputDir = originalOutputDir
		outputFormat = originalOutputFormat
	}()

	tests := []struct {
		name string
		set  func()
		want config.CLIOverrides
	}{
		{
			name: "no overrides",
			set: func() {
				logLevel, logFormat, progressEvery, strict, outputDir, outputFormat = "", "", 0, false, "", ""
			},
			want: config.CLIOverrides{},
		},
		{
			name: "all overrides",
			set: func() {
				logLevel, logFormat, progressEvery, strict, outputDir, outputFormat = "debug", "text", 500, true, "/tmp/out", "yaml"
			},
			want: config.CLIOverrides{
				LogLevel:      "debug",
				LogFormat:     "text",
				ProgressEvery: 500,
				Strict:        true,
				OutputDir:     "/tmp/out",
				OutputFormat:  "yaml",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.set()
			assert.Equal(t, tt.want, GetCLIOverrides())
		})
	}
}

func TestRootPersistentFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()
	for _, name := range []string{"config", "env-file", "log-level", "log-format", "progress-every", "strict", "source", "output", "format", "no-color"} {
		assert.NotNil(t, flags.Lookup(name), "root should define --%s", name)
	}
	assert.Equal(t, "c", flags.Lookup("config").Shorthand)
	assert.Equal(t, "s", flags.Lookup("source").Shorthand)
}
