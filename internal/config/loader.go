package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from the specified file path.
// It supports YAML files, loads the optional env_file, and performs
// environment variable substitution.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return LoadFromViper(v)
}

// LoadFromViper creates a Config from an existing Viper instance.
// Useful for testing or when Viper is configured externally.
func LoadFromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := LoadEnvFile(cfg.EnvFile); err != nil {
		return nil, err
	}

	if err := substituteEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("failed to substitute environment variables: %w", err)
	}

	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment.
// Variables already set are not overridden. An empty path is a no-op.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// envVarPattern matches ${VAR_NAME} or $VAR_NAME patterns
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
func substituteEnvVars(cfg *Config) error {
	for name, src := range cfg.Sources {
		src.Customers = expandEnvVar(src.Customers)
		src.Partners = expandEnvVar(src.Partners)
		cfg.Sources[name] = src
	}

	db := &cfg.Index.MySQL.Database
	db.Host = expandEnvVar(db.Host)
	db.User = expandEnvVar(db.User)
	db.Password = expandEnvVar(db.Password)
	db.Database = expandEnvVar(db.Database)

	cfg.Index.Weaviate.Host = expandEnvVar(cfg.Index.Weaviate.Host)
	cfg.Index.Weaviate.APIKey = expandEnvVar(cfg.Index.Weaviate.APIKey)
	cfg.Index.Export.Path = expandEnvVar(cfg.Index.Export.Path)

	cfg.Output.Dir = expandEnvVar(cfg.Output.Dir)
	cfg.Metrics.Textfile = expandEnvVar(cfg.Metrics.Textfile)
	cfg.Logging.Output = expandEnvVar(cfg.Logging.Output)

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		var varName string
		if strings.HasPrefix(match, "${") {
			varName = match[2 : len(match)-1]
		} else {
			varName = match[1:]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		// Return original if env var not found
		return match
	})
}

// GetSource retrieves a specific source configuration by name.
func (c *Config) GetSource(name string) (*SourceConfig, error) {
	src, exists := c.Sources[name]
	if !exists {
		return nil, fmt.Errorf("source %q not found in configuration", name)
	}
	return &src, nil
}

// ListSources returns all source names defined in the configuration, sorted.
func (c *Config) ListSources() []string {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SelectSources resolves the requested source names. An empty request selects
// every configured source.
func (c *Config) SelectSources(requested []string) ([]string, error) {
	if len(requested) == 0 {
		all := c.ListSources()
		if len(all) == 0 {
			return nil, fmt.Errorf("no sources defined in configuration")
		}
		return all, nil
	}
	for _, name := range requested {
		if _, err := c.GetSource(name); err != nil {
			return nil, err
		}
	}
	return requested, nil
}

// CLIOverrides contains flag values that override config file settings.
type CLIOverrides struct {
	LogLevel      string
	LogFormat     string
	ProgressEvery int64
	Strict        bool
	OutputDir     string
	OutputFormat  string
}

// ApplyOverrides applies CLI flag overrides to the global configuration.
// Only non-zero/non-empty values are applied.
func (c *Config) ApplyOverrides(o CLIOverrides) {
	if o.LogLevel != "" {
		c.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		c.Logging.Format = o.LogFormat
	}
	if o.ProgressEvery > 0 {
		c.Processing.ProgressEvery = o.ProgressEvery
	}
	if o.Strict {
		strict := true
		c.Reader.Strict = &strict
		for _, src := range c.Sources {
			if src.Reader != nil {
				src.Reader.Strict = &strict
			}
		}
	}
	if o.OutputDir != "" {
		c.Output.Dir = o.OutputDir
	}
	if o.OutputFormat != "" {
		c.Output.Format = o.OutputFormat
	}
}
