// Package config provides configuration structures and loading for depcrawl.
package config

import "time"

// Config represents the complete application configuration.
type Config struct {
	Catalog CatalogConfig `yaml:"catalog" mapstructure:"catalog"`
	Crawl   CrawlConfig   `yaml:"crawl" mapstructure:"crawl"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// CatalogConfig represents the SQL Server connection configuration.
// One connection pool is opened per crawled database on the same server.
type CatalogConfig struct {
	Server                 string   `yaml:"server" mapstructure:"server"`
	Port                   int      `yaml:"port" mapstructure:"port"`
	User                   string   `yaml:"user" mapstructure:"user"`
	Password               string   `yaml:"password" mapstructure:"password"`
	TrustedConnection      bool     `yaml:"trusted_connection" mapstructure:"trusted_connection"`
	TrustServerCertificate bool     `yaml:"trust_server_certificate" mapstructure:"trust_server_certificate"`
	Databases              []string `yaml:"databases" mapstructure:"databases"`
	DefaultSchemas         []string `yaml:"default_schemas" mapstructure:"default_schemas"`
	MaxConnections         int      `yaml:"max_connections" mapstructure:"max_connections"`
	MaxIdleConnections     int      `yaml:"max_idle_connections" mapstructure:"max_idle_connections"`
}

// CrawlConfig represents dependency traversal settings.
type CrawlConfig struct {
	MaxLevel         int           `yaml:"max_level" mapstructure:"max_level"`
	MaxWorkers       int           `yaml:"max_workers" mapstructure:"max_workers"`
	BatchSize        int           `yaml:"batch_size" mapstructure:"batch_size"`
	CheckpointSize   int           `yaml:"checkpoint_size" mapstructure:"checkpoint_size"`
	PartitionTimeout time.Duration `yaml:"partition_timeout" mapstructure:"partition_timeout"`
}

// OutputConfig represents where result chunks and the resume transcript
// are written.
type OutputConfig struct {
	Directory string `yaml:"directory" mapstructure:"directory"`
	Prefix    string `yaml:"prefix" mapstructure:"prefix"`
}

// LoggingConfig represents logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json or text
	Output string `yaml:"output" mapstructure:"output"` // stdout, stderr, or file path
}

// DefaultConfig returns a Config with sensible default values.
// Worker width defaults low because the limit is catalog connection
// capacity, not CPU count.
func DefaultConfig() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Port:               1433,
			DefaultSchemas:     []string{"dbo"},
			MaxConnections:     4,
			MaxIdleConnections: 2,
		},
		Crawl: CrawlConfig{
			MaxLevel:         3,
			MaxWorkers:       4,
			BatchSize:        100,
			CheckpointSize:   50,
			PartitionTimeout: 60 * time.Second,
		},
		Output: OutputConfig{
			Directory: ".",
			Prefix:    "crawl",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}
