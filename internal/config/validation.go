package config

import (
	"fmt"
	"strings"

	"github.com/dbsmedya/depcrawl/internal/sqlname"
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

	if err := c.validateCatalog(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateCrawl(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateOutput(); err != nil {
		errors = append(errors, err...)
	}

	if err := c.validateLogging(); err != nil {
		errors = append(errors, err...)
	}

	if len(errors) > 0 {
		return errors
	}
	return nil
}

func (c *Config) validateCatalog() ValidationErrors {
	var errors ValidationErrors

	if c.Catalog.Server == "" {
		errors = append(errors, ValidationError{
			Field:   "catalog.server",
			Message: "server is required",
		})
	}

	if c.Catalog.Port <= 0 || c.Catalog.Port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "catalog.port",
			Message: "port must be between 1 and 65535",
		})
	}

	if !c.Catalog.TrustedConnection && c.Catalog.User == "" {
		errors = append(errors, ValidationError{
			Field:   "catalog.user",
			Message: "user is required unless trusted_connection is enabled",
		})
	}

	for i, db := range c.Catalog.Databases {
		if !sqlname.IsValidIdentifier(db) {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("catalog.databases[%d]", i),
				Message: fmt.Sprintf("%q is not a valid database name", db),
			})
		}
	}

	for i, schema := range c.Catalog.DefaultSchemas {
		if !sqlname.IsValidIdentifier(schema) {
			errors = append(errors, ValidationError{
				Field:   fmt.Sprintf("catalog.default_schemas[%d]", i),
				Message: fmt.Sprintf("%q is not a valid schema name", schema),
			})
		}
	}

	if c.Catalog.MaxConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "catalog.max_connections",
			Message: "max_connections cannot be negative",
		})
	}

	if c.Catalog.MaxIdleConnections < 0 {
		errors = append(errors, ValidationError{
			Field:   "catalog.max_idle_connections",
			Message: "max_idle_connections cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateCrawl() ValidationErrors {
	var errors ValidationErrors

	if c.Crawl.MaxLevel < 1 {
		errors = append(errors, ValidationError{
			Field:   "crawl.max_level",
			Message: "max_level must be at least 1",
		})
	}

	if c.Crawl.MaxWorkers < 1 {
		errors = append(errors, ValidationError{
			Field:   "crawl.max_workers",
			Message: "max_workers must be at least 1",
		})
	}

	if c.Crawl.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "crawl.batch_size",
			Message: "batch_size must be at least 1",
		})
	}

	if c.Crawl.CheckpointSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "crawl.checkpoint_size",
			Message: "checkpoint_size must be at least 1",
		})
	}

	if c.Crawl.PartitionTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "crawl.partition_timeout",
			Message: "partition_timeout must be positive",
		})
	}

	return errors
}

func (c *Config) validateOutput() ValidationErrors {
	var errors ValidationErrors

	if c.Output.Directory == "" {
		errors = append(errors, ValidationError{
			Field:   "output.directory",
			Message: "directory is required",
		})
	}

	if c.Output.Prefix == "" {
		errors = append(errors, ValidationError{
			Field:   "output.prefix",
			Message: "prefix is required",
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
