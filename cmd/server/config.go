// Package main provides the healthdeck server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration. Secrets never live here;
// they come from the environment (see loadSecrets).
type Config struct {
	Server             ServerConfig  `yaml:"server"`
	Cache              CacheConfig   `yaml:"cache"`
	Query              QueryConfig   `yaml:"query"`
	SeverityLabelsFile string        `yaml:"severity_labels_file"` // optional code->label override, hot-reloaded
	Verbose            bool          `yaml:"-"`                    // set via CLI flag
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Address        string        `yaml:"address"`         // HTTP listen address (default: :8080)
	RequestTimeout time.Duration `yaml:"request_timeout"` // deadline for source-backed requests
	RecentLimit    int           `yaml:"recent_limit"`    // rows in the recent-activity view
}

// CacheConfig contains loader cache settings.
type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"` // max age of a cached table (default: 5m)
}

// QueryConfig contains non-secret query source settings.
type QueryConfig struct {
	BaseURL string        `yaml:"base_url"` // override for the telemetry query endpoint
	Timeout time.Duration `yaml:"timeout"`  // per-request timeout
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = 60 * time.Second
	}
	if c.Server.RecentLimit == 0 {
		c.Server.RecentLimit = 5
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if c.Server.RequestTimeout < 0 {
		return fmt.Errorf("server.request_timeout must not be negative")
	}
	if c.Server.RecentLimit < 0 {
		return fmt.Errorf("server.recent_limit must not be negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	return nil
}

// Secrets holds the credentials and identifiers supplied at process
// start. Their absence is a startup-time fatal condition, never a
// per-request error.
type Secrets struct {
	StorageConnectionString string // alert table store connection secret
	TableName               string // alert table name
	InsightsAppID           string // query source application id
	InsightsAPIKey          string // query source API key
	EnvironmentID           string // environment scoping the flow-run query
}

// loadSecrets reads the required secrets from the environment.
func loadSecrets() (*Secrets, error) {
	s := &Secrets{
		StorageConnectionString: os.Getenv("HEALTHDECK_STORAGE_CONNECTION_STRING"),
		TableName:               os.Getenv("HEALTHDECK_TABLE_NAME"),
		InsightsAppID:           os.Getenv("HEALTHDECK_INSIGHTS_APP_ID"),
		InsightsAPIKey:          os.Getenv("HEALTHDECK_INSIGHTS_API_KEY"),
		EnvironmentID:           os.Getenv("HEALTHDECK_ENVIRONMENT_ID"),
	}

	missing := func(name string) error {
		return fmt.Errorf("%s environment variable is required", name)
	}
	switch {
	case s.StorageConnectionString == "":
		return nil, missing("HEALTHDECK_STORAGE_CONNECTION_STRING")
	case s.TableName == "":
		return nil, missing("HEALTHDECK_TABLE_NAME")
	case s.InsightsAppID == "":
		return nil, missing("HEALTHDECK_INSIGHTS_APP_ID")
	case s.InsightsAPIKey == "":
		return nil, missing("HEALTHDECK_INSIGHTS_API_KEY")
	case s.EnvironmentID == "":
		return nil, missing("HEALTHDECK_ENVIRONMENT_ID")
	}

	return s, nil
}
