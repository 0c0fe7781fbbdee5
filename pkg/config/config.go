package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// ConfigFileName is the optional YAML config file looked up in the
// working directory.
const ConfigFileName = "config.yaml"

// Config holds all configuration for querykit.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// The PAT secret must only come from an environment variable.
type Config struct {
	// Tableau server connection
	ServerURL      string `yaml:"server_url" env:"TABLEAU_SERVER_URL"`
	APIVersion     string `yaml:"api_version" env:"TABLEAU_API_VERSION" env-default:"3.25"`
	SiteContentURL string `yaml:"site" env:"TABLEAU_SITE" env-default:""`

	// Personal access token used for sign-in
	TokenName   string `yaml:"token_name" env:"TABLEAU_PAT_NAME"`
	TokenSecret string `yaml:"-" env:"TABLEAU_PAT_SECRET"` // Secret - not in YAML

	// Local state
	DataDir string `yaml:"data_dir" env:"QUERYKIT_DATA_DIR" env-default:""` // Defaults to ~/.querykit

	// Session re-authentication cadence, minutes
	AuthRefreshMinutes int `yaml:"auth_refresh_minutes" env:"QUERYKIT_AUTH_REFRESH_MINUTES" env-default:"30"`

	// Logging
	Env string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
}

// Load reads configuration from config.yaml (when present) with environment
// variable overrides, then validates the result. The PAT secret
// (TABLEAU_PAT_SECRET) must come from the environment (yaml:"-" field).
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(ConfigFileName); err == nil {
		if err := cleanenv.ReadConfig(ConfigFileName, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", ConfigFileName, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if cfg.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		cfg.DataDir = filepath.Join(home, ".querykit")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RefreshInterval returns the session re-authentication cadence as a
// Duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.AuthRefreshMinutes) * time.Minute
}

func (c *Config) validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("TABLEAU_SERVER_URL is required")
	}
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("TABLEAU_SERVER_URL %q is not an absolute URL", c.ServerURL)
	}
	if c.TokenName == "" {
		return fmt.Errorf("TABLEAU_PAT_NAME is required")
	}
	if c.TokenSecret == "" {
		return fmt.Errorf("TABLEAU_PAT_SECRET is required")
	}
	if c.AuthRefreshMinutes <= 0 {
		return fmt.Errorf("auth_refresh_minutes must be positive, got %d", c.AuthRefreshMinutes)
	}
	return nil
}
