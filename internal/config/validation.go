package config

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	var errors ValidationErrors

	if len(c.Sources) == 0 {
		errors = append(errors, ValidationError{
			Field:   "sources",
			Message: "at least one source must be defined",
		})
	}
	for _, name := range c.ListSources() {
		src := c.Sources[name]
		errors = append(errors, c.validateSource(name, &src)...)
	}

	errors = append(errors, validateReader("reader", &c.Reader)...)
	errors = append(errors, c.validateColumns()...)
	errors = append(errors, c.validateEligibility()...)
	errors = append(errors, c.validateReconciliation()...)
	errors = append(errors, c.validateIndex()...)
	errors = append(errors, c.validateProcessing()...)
	errors = append(errors, c.validateOutput()...)
	errors = append(errors, c.validateLogging()...)

	if c.RunLog.Enabled && c.Index.Kind != "mysql" {
		errors = append(errors, ValidationError{
			Field:   "runlog.enabled",
			Message: "run log requires index.kind 'mysql'",
		})
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateSource(name string, src *SourceConfig) ValidationErrors {
	var errors ValidationErrors
	prefix := fmt.Sprintf("sources.%s", name)

	if src.Customers == "" && src.Partners == "" {
		errors = append(errors, ValidationError{
			Field:   prefix,
			Message: "customers or partners path is required",
		})
	}

	if src.Reader != nil {
		errors = append(errors, validateReader(prefix+".reader", src.Reader)...)
	}

	return errors
}

func validateReader(prefix string, rc *ReaderConfig) ValidationErrors {
	var errors ValidationErrors

	if rc.Delimiter != "" && rc.Delimiter != `\t` && utf8.RuneCountInString(rc.Delimiter) != 1 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".delimiter",
			Message: "delimiter must be a single character",
		})
	}

	validEncodings := map[string]bool{"utf-8": true, "utf8": true, "latin1": true, "iso-8859-1": true, "windows-1252": true, "": true}
	if !validEncodings[strings.ToLower(rc.Encoding)] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".encoding",
			Message: "encoding must be 'utf-8', 'latin1', or 'windows-1252'",
		})
	}

	return errors
}

func (c *Config) validateColumns() ValidationErrors {
	var errors ValidationErrors

	if c.Columns.Customer == "" {
		errors = append(errors, ValidationError{
			Field:   "columns.customer",
			Message: "customer column is required",
		})
	}
	if c.Columns.SoldTo == "" || c.Columns.ShipTo == "" {
		errors = append(errors, ValidationError{
			Field:   "columns.sold_to",
			Message: "sold_to and ship_to columns are required",
		})
	}

	return errors
}

func (c *Config) validateEligibility() ValidationErrors {
	var errors ValidationErrors

	if c.Eligibility.MaxCustomerID <= 0 {
		errors = append(errors, ValidationError{
			Field:   "eligibility.max_customer_id",
			Message: "max_customer_id must be positive",
		})
	}

	validRules := map[string]bool{"exclude_domestic_and_missing": true, "exclude_domestic_only": true, "": true}
	if !validRules[c.Eligibility.JurisdictionRule] {
		errors = append(errors, ValidationError{
			Field:   "eligibility.jurisdiction_rule",
			Message: "jurisdiction_rule must be 'exclude_domestic_and_missing' or 'exclude_domestic_only'",
		})
	}

	if strings.TrimSpace(c.Eligibility.DeletionSentinel) == "" {
		errors = append(errors, ValidationError{
			Field:   "eligibility.deletion_sentinel",
			Message: "deletion_sentinel is required",
		})
	}

	return errors
}

func (c *Config) validateReconciliation() ValidationErrors {
	var errors ValidationErrors

	for i, d := range c.Reconciliation.ExcludeLeadingDigits {
		if d == "" || strings.Trim(d, "0123456789") != "" {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("reconciliation.exclude_leading_digits[%d]", i),
				Message: "prefix must be a non-empty digit string",
			})
		}
	}

	return errors
}

func (c *Config) validateIndex() ValidationErrors {
	var errors ValidationErrors

	if c.Index.PageSize <= 0 {
		errors = append(errors, ValidationError{
			Field:   "index.page_size",
			Message: "page_size must be positive",
		})
	}

	switch c.Index.Kind {
	case "mysql":
		errors = append(errors, validateDatabase("index.mysql.database", &c.Index.MySQL.Database)...)
		if c.Index.MySQL.Table == "" {
			errors = append(errors, ValidationError{
				Field:   "index.mysql.table",
				Message: "table is required",
			})
		}
		if c.Index.MySQL.Column == "" {
			errors = append(errors, ValidationError{
				Field:   "index.mysql.column",
				Message: "column is required",
			})
		}
	case "weaviate":
		if c.Index.Weaviate.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "index.weaviate.host",
				Message: "host is required",
			})
		}
		if c.Index.Weaviate.Class == "" {
			errors = append(errors, ValidationError{
				Field:   "index.weaviate.class",
				Message: "class is required",
			})
		}
		if c.Index.Weaviate.Scheme != "http" && c.Index.Weaviate.Scheme != "https" {
			errors = append(errors, ValidationError{
				Field:   "index.weaviate.scheme",
				Message: "scheme must be 'http' or 'https'",
			})
		}
	case "export":
		if c.Index.Export.Path == "" {
			errors = append(errors, ValidationError{
				Field:   "index.export.path",
				Message: "path is required",
			})
		}
		switch c.Index.Export.Format {
		case "", "auto", "jsonl":
		case "document":
			if c.Index.Export.ArrayPath == "" {
				errors = append(errors, ValidationError{
					Field:   "index.export.array_path",
					Message: "array_path is required for the document format",
				})
			}
		default:
			errors = append(errors, ValidationError{
				Field:   "index.export.format",
				Message: "format must be 'auto', 'jsonl', or 'document'",
			})
		}
	default:
		errors = append(errors, ValidationError{
			Field:   "index.kind",
			Message: "kind must be 'mysql', 'weaviate', or 'export'",
		})
	}

	return errors
}

func validateDatabase(prefix string, db *DatabaseConfig) ValidationErrors {
	var errors ValidationErrors

	if db.Host == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".host",
			Message: "host is required",
		})
	}

	if db.Port <= 0 || db.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".port",
			Message: "port must be between 1 and 65535",
		})
	}

	if db.User == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".user",
			Message: "user is required",
		})
	}

	if db.Database == "" {
		errors = append(errors, ValidationError{
			Field:   prefix + ".database",
			Message: "database name is required",
		})
	}

	validTLS := map[string]bool{"disable": true, "preferred": true, "required": true, "": true}
	if !validTLS[db.TLS] {
		errors = append(errors, ValidationError{
			Field:   prefix + ".tls",
			Message: "tls must be 'disable', 'preferred', or 'required'",
		})
	}

	if db.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   prefix + ".max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateProcessing() ValidationErrors {
	var errors ValidationErrors

	if c.Processing.ProgressEvery < 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.progress_every",
			Message: "progress_every cannot be negative",
		})
	}

	if c.Processing.MaxConcurrentSources <= 0 {
		errors = append(errors, ValidationError{
			Field:   "processing.max_concurrent_sources",
			Message: "max_concurrent_sources must be positive",
		})
	}

	return errors
}

func (c *Config) validateOutput() ValidationErrors {
	var errors ValidationErrors

	validFormats := map[string]bool{"json": true, "yaml": true, "": true}
	if !validFormats[c.Output.Format] {
		errors = append(errors, ValidationError{
			Field:   "output.format",
			Message: "format must be 'json' or 'yaml'",
		})
	}

	return errors
}

func (c *Config) validateLogging() ValidationErrors {
	var errors ValidationErrors

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "": true}
	if !validLevels[c.Logging.Level] {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Message: "level must be 'debug', 'info', 'warn', or 'error'",
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "": true}
	if !validFormats[c.Logging.Format] {
		errors = append(errors, ValidationError{
			Field:   "logging.format",
			Message: "format must be 'json' or 'text'",
		})
	}

	return errors
}
