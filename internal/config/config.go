// Package config loads bridge configuration with priority:
// defaults -> TOML file -> environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/htssuite/erp-mcp/internal/common"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig         `toml:"server"`
	ERP     ERPConfig            `toml:"erp"`
	Logging common.LoggingConfig `toml:"logging"`
}

// ServerConfig contains MCP server settings.
type ServerConfig struct {
	Name string `toml:"name"`
	Port string `toml:"port" env:"ERP_MCP_PORT"`
}

// ERPConfig contains backend API settings. BaseURL and Token have no safe
// defaults and must be supplied via file or environment.
type ERPConfig struct {
	BaseURL        string `toml:"base_url" env:"ERP_BASE_URL"`
	Token          string `toml:"token" env:"ERP_API_TOKEN"`
	MappingPath    string `toml:"mapping_path" env:"ERP_MAPPING_PATH"`
	TimeoutSeconds int    `toml:"timeout_seconds" env:"ERP_REQUEST_TIMEOUT"`
}

// Timeout returns the outbound call timeout as a duration.
func (c ERPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Name: "ERP-MCP",
			Port: "4280",
		},
		ERP: ERPConfig{
			MappingPath:    "canonical_mapping.json",
			TimeoutSeconds: 30,
		},
		Logging: common.LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console", "file"},
			FilePath:   "logs/erp-mcp.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// Load reads configuration from a TOML file with defaults and environment
// overrides. A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	// Environment overrides via env struct tags. StrictDecode reports
	// ErrInvalidTarget when no tagged variable is set at all, which is
	// fine here: the file may already have provided everything. Any
	// other error means an unparsable override and must be fatal.
	if err := envdecode.StrictDecode(cfg); err != nil && !errors.Is(err, envdecode.ErrInvalidTarget) {
		return nil, fmt.Errorf("invalid environment override: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces required settings. Failures here must prevent the
// process from serving tools.
func (c *Config) Validate() error {
	if c.ERP.BaseURL == "" {
		return fmt.Errorf("erp.base_url is required (set ERP_BASE_URL)")
	}
	if c.ERP.Token == "" {
		return fmt.Errorf("erp.token is required (set ERP_API_TOKEN)")
	}
	if c.ERP.MappingPath == "" {
		return fmt.Errorf("erp.mapping_path is required (set ERP_MAPPING_PATH)")
	}
	if c.ERP.TimeoutSeconds <= 0 {
		return fmt.Errorf("erp.timeout_seconds must be positive")
	}
	return nil
}
