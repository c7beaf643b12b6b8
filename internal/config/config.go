// Package config provides configuration structures and loading for custrecon.
package config

// Config represents the complete application configuration.
type Config struct {
	EnvFile        string                  `yaml:"env_file" mapstructure:"env_file"`
	Sources        map[string]SourceConfig `yaml:"sources" mapstructure:"sources"`
	Columns        ColumnsConfig           `yaml:"columns" mapstructure:"columns"`
	Reader         ReaderConfig            `yaml:"reader" mapstructure:"reader"`
	Eligibility    EligibilityConfig       `yaml:"eligibility" mapstructure:"eligibility"`
	Reconciliation ReconciliationConfig    `yaml:"reconciliation" mapstructure:"reconciliation"`
	Partners       PartnersConfig          `yaml:"partners" mapstructure:"partners"`
	Analysis       AnalysisConfig          `yaml:"analysis" mapstructure:"analysis"`
	Index          IndexConfig             `yaml:"index" mapstructure:"index"`
	Processing     ProcessingConfig        `yaml:"processing" mapstructure:"processing"`
	Output         OutputConfig            `yaml:"output" mapstructure:"output"`
	Metrics        MetricsConfig           `yaml:"metrics" mapstructure:"metrics"`
	RunLog         RunLogConfig            `yaml:"runlog" mapstructure:"runlog"`
	Logging        LoggingConfig           `yaml:"logging" mapstructure:"logging"`
}

// SourceConfig describes one regional extract: the customer master file and,
// optionally, the partner relationship file.
type SourceConfig struct {
	Customers string        `yaml:"customers" mapstructure:"customers"`
	Partners  string        `yaml:"partners" mapstructure:"partners"`
	Reader    *ReaderConfig `yaml:"reader,omitempty" mapstructure:"reader"`
}

// ColumnsConfig maps logical fields to header names in the extracts.
type ColumnsConfig struct {
	Customer        string `yaml:"customer" mapstructure:"customer"`
	Country         string `yaml:"country" mapstructure:"country"`
	DeletionFlag    string `yaml:"deletion_flag" mapstructure:"deletion_flag"`
	SoldTo          string `yaml:"sold_to" mapstructure:"sold_to"`
	ShipTo          string `yaml:"ship_to" mapstructure:"ship_to"`
	PartnerFunction string `yaml:"partner_function" mapstructure:"partner_function"`
}

// ReaderConfig controls how delimited extracts are decoded.
type ReaderConfig struct {
	Delimiter string `yaml:"delimiter" mapstructure:"delimiter"` // single character, "\t" allowed
	Encoding  string `yaml:"encoding" mapstructure:"encoding"`   // utf-8, latin1, windows-1252
	TrimSpace *bool  `yaml:"trim_space,omitempty" mapstructure:"trim_space"`
	Strict    *bool  `yaml:"strict,omitempty" mapstructure:"strict"`
}

// EligibilityConfig configures the filter funnel.
type EligibilityConfig struct {
	MaxCustomerID    int64  `yaml:"max_customer_id" mapstructure:"max_customer_id"`
	DomesticCountry  string `yaml:"domestic_country" mapstructure:"domestic_country"`
	JurisdictionRule string `yaml:"jurisdiction_rule" mapstructure:"jurisdiction_rule"`
	DeletionSentinel string `yaml:"deletion_sentinel" mapstructure:"deletion_sentinel"`
}

// ReconciliationConfig configures the set difference.
type ReconciliationConfig struct {
	ExcludeLeadingDigits []string `yaml:"exclude_leading_digits" mapstructure:"exclude_leading_digits"`
	ApplyEligibility     bool     `yaml:"apply_eligibility" mapstructure:"apply_eligibility"`
	Verify               bool     `yaml:"verify" mapstructure:"verify"`
}

// PartnersConfig configures the partner graph.
type PartnersConfig struct {
	ShipToFunction string `yaml:"ship_to_function" mapstructure:"ship_to_function"`
}

// AnalysisConfig configures the match/duplicate analyzer.
type AnalysisConfig struct {
	TopN int `yaml:"top_n" mapstructure:"top_n"`
}

// IndexConfig selects and configures the external index that holds known identifiers.
type IndexConfig struct {
	Kind     string        `yaml:"kind" mapstructure:"kind"` // mysql, weaviate, export
	PageSize int           `yaml:"page_size" mapstructure:"page_size"`
	MySQL    MySQLIndex    `yaml:"mysql" mapstructure:"mysql"`
	Weaviate WeaviateIndex `yaml:"weaviate" mapstructure:"weaviate"`
	Export   ExportIndex   `yaml:"export" mapstructure:"export"`
}

// MySQLIndex is an index stored in a MySQL table.
type MySQLIndex struct {
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Table    string         `yaml:"table" mapstructure:"table"`
	Column   string         `yaml:"column" mapstructure:"column"`
}

// WeaviateIndex is an index stored as objects of a Weaviate class.
type WeaviateIndex struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Scheme   string `yaml:"scheme" mapstructure:"scheme"`
	APIKey   string `yaml:"api_key" mapstructure:"api_key"`
	Class    string `yaml:"class" mapstructure:"class"`
	Property string `yaml:"property" mapstructure:"property"`
}

// ExportIndex is a file export of the index: either JSON Lines, one entry per
// line, or a single document holding the entries in an array.
type ExportIndex struct {
	Path      string `yaml:"path" mapstructure:"path"`
	Format    string `yaml:"format" mapstructure:"format"`         // auto, jsonl, document
	ArrayPath string `yaml:"array_path" mapstructure:"array_path"` // gjson path of the entries in a document
	IDField   string `yaml:"id_field" mapstructure:"id_field"`     // gjson path, relative to an entry
}

// DatabaseConfig represents a MySQL database connection configuration.
type DatabaseConfig struct {
	Host               string `yaml:"host" mapstructure:"host"`
	Port               int    `yaml:"port" mapstructure:"port"`
	User               string `yaml:"user" mapstructure:"user"`
	Password           string `yaml:"password" mapstructure:"password"`
	Database           string `yaml:"database" mapstructure:"database"`
	TLS                string `yaml:"tls" mapstructure:"tls"` // disable, preferred, required
	MaxConnections     int    `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections int    `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// ProcessingConfig represents streaming and concurrency settings.
type ProcessingConfig struct {
	ProgressEvery        int64 `yaml:"progress_every" mapstructure:"progress_every"`
	MaxConcurrentSources int   `yaml:"max_concurrent_sources" mapstructure:"max_concurrent_sources"`
}

// OutputConfig controls where artifacts are written.
type OutputConfig struct {
	Dir    string `yaml:"dir" mapstructure:"dir"`
	Format string `yaml:"format" mapstructure:"format"` // json or yaml
}

// MetricsConfig controls prometheus textfile export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" mapstructure:"textfile"`
}

// RunLogConfig controls persistence of run history in the MySQL index database.
type RunLogConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Columns: ColumnsConfig{
			Customer:        "Customer",
			Country:         "Country",
			DeletionFlag:    "Central Deletion Flag",
			SoldTo:          "Customer",
			ShipTo:          "Customer_1",
			PartnerFunction: "Partner Function",
		},
		Reader: ReaderConfig{
			Delimiter: ",",
			Encoding:  "utf-8",
		},
		Eligibility: EligibilityConfig{
			MaxCustomerID:    3000000,
			DomesticCountry:  "US",
			JurisdictionRule: "exclude_domestic_and_missing",
			DeletionSentinel: "X",
		},
		Reconciliation: ReconciliationConfig{
			ExcludeLeadingDigits: []string{"3", "4", "5", "6", "7", "8", "9"},
			ApplyEligibility:     true,
			Verify:               true,
		},
		Partners: PartnersConfig{
			ShipToFunction: "SH",
		},
		Analysis: AnalysisConfig{
			TopN: 10,
		},
		Index: IndexConfig{
			Kind:     "mysql",
			PageSize: 5000,
			MySQL: MySQLIndex{
				Database: DatabaseConfig{
					Port:               3306,
					TLS:                "preferred",
					MaxConnections:     4,
					MaxIdleConnections: 2,
				},
				Column: "customer",
			},
			Weaviate: WeaviateIndex{
				Scheme:   "http",
				Property: "customer",
			},
			Export: ExportIndex{
				Format:    "auto",
				ArrayPath: "vectors",
				IDField:   "id",
			},
		},
		Processing: ProcessingConfig{
			ProgressEvery:        10000,
			MaxConcurrentSources: 4,
		},
		Output: OutputConfig{
			Dir:    ".",
			Format: "json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// GetReader returns the reader config for a source, falling back to global if not set.
func (sc *SourceConfig) GetReader(global ReaderConfig) ReaderConfig {
	if sc.Reader == nil {
		return global
	}

	result := global
	if sc.Reader.Delimiter != "" {
		result.Delimiter = sc.Reader.Delimiter
	}
	if sc.Reader.Encoding != "" {
		result.Encoding = sc.Reader.Encoding
	}
	if sc.Reader.TrimSpace != nil {
		result.TrimSpace = sc.Reader.TrimSpace
	}
	if sc.Reader.Strict != nil {
		result.Strict = sc.Reader.Strict
	}
	return result
}

// GetSourceReader returns the reader config for a source by name, falling back to global if not set.
func (c *Config) GetSourceReader(name string) ReaderConfig {
	src, err := c.GetSource(name)
	if err != nil {
		return c.Reader
	}
	return src.GetReader(c.Reader)
}

// IsTrimSpace reports whether values should be trimmed. Defaults to true.
func (rc ReaderConfig) IsTrimSpace() bool {
	return rc.TrimSpace == nil || *rc.TrimSpace
}

// IsStrict reports whether malformed rows abort the stream. Defaults to false.
func (rc ReaderConfig) IsStrict() bool {
	return rc.Strict != nil && *rc.Strict
}
