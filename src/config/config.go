package config

import (
	"fmt"
	"os"
	"strings"

	"alert-relay/src/models"
	"alert-relay/src/utils"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new MConfig instance from YAML file
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Unmarshal data into the models struct
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyDefaults()

	// 3. Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyDefaults() {
	if c.Feed.ReconnectBaseSeconds <= 0 {
		c.Feed.ReconnectBaseSeconds = utils.DefaultReconnectBaseSecs
	}
	if c.Feed.ReconnectMaxSeconds <= 0 {
		c.Feed.ReconnectMaxSeconds = utils.DefaultReconnectMaxSecs
	}
	if c.Alerts.RecentBufferSize <= 0 {
		c.Alerts.RecentBufferSize = utils.DefaultRecentBufferSize
	}
	if c.Alerts.ClientSendBuffer <= 0 {
		c.Alerts.ClientSendBuffer = utils.DefaultClientSendBuffer
	}
	if c.Alerts.RecorderQueue <= 0 {
		c.Alerts.RecorderQueue = utils.DefaultRecorderQueue
	}
	if c.Storage.RetentionDays <= 0 {
		c.Storage.RetentionDays = utils.DefaultRetentionDays
	}

	// Environment override for the Postgres DSN (deploy convention)
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		c.Storage.DBConnectionString = dsn
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	// Validate App configuration (Flattened)
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration (Flattened)
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}

	// Validate Storage configuration
	if c.Storage.DBType == "" {
		return fmt.Errorf("database type cannot be empty")
	}
	if c.Storage.DBType == "sqlite" && c.Storage.DBPath == "" {
		return fmt.Errorf("database path cannot be empty for sqlite")
	}
	if c.Storage.DBType == "postgres" && c.Storage.DBConnectionString == "" {
		return fmt.Errorf("connection string cannot be empty for postgres")
	}

	// Validate Network configuration
	if c.Network.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be greater than 0")
	}

	// Validate Feed configuration
	if c.Feed.URL == "" {
		return fmt.Errorf("feed url cannot be empty")
	}
	if !strings.HasPrefix(c.Feed.URL, "ws://") && !strings.HasPrefix(c.Feed.URL, "wss://") {
		return fmt.Errorf("feed url must use ws:// or wss:// scheme")
	}
	if len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("feed must track at least one symbol")
	}
	for i, symbol := range c.Feed.Symbols {
		if symbol == "" {
			return fmt.Errorf("feed symbol %d cannot be empty", i)
		}
	}
	if c.Feed.ReconnectMaxSeconds < c.Feed.ReconnectBaseSeconds {
		return fmt.Errorf("reconnect max must not be below reconnect base")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}
