package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	defaultServerURL = "http://localhost:3000"
	defaultLanguage  = "es"
)

// CLIConfig holds CLI configuration persisted to disk. Every field can be
// overridden by its DV_* environment variable.
type CLIConfig struct {
	ServerURL     string `yaml:"server_url,omitempty" json:"server_url" env:"DV_SERVER_URL"`
	APIKey        string `yaml:"api_key,omitempty" json:"api_key" env:"DV_API_KEY"`
	UserID        string `yaml:"user_id,omitempty" json:"user_id" env:"DV_USER_ID"`
	TeamID        string `yaml:"team_id,omitempty" json:"team_id" env:"DV_TEAM_ID"`
	Language      string `yaml:"language,omitempty" json:"language" env:"DV_LANGUAGE"`
	Questionnaire string `yaml:"questionnaire,omitempty" json:"questionnaire" env:"DV_QUESTIONNAIRE"`
	PhotoDir      string `yaml:"photo_dir,omitempty" json:"photo_dir" env:"DV_PHOTO_DIR"`
	Dev           bool   `yaml:"dev,omitempty" json:"dev" env:"DV_DEV"`
}

// configPath returns the path to the CLI config file.
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "dv", "config.yaml"), nil
}

// loadConfig reads the CLI config from disk.
// Returns a zero-value config if the file doesn't exist.
func loadConfig() (CLIConfig, error) {
	path, err := configPath()
	if err != nil {
		return CLIConfig{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return CLIConfig{}, nil
	}
	if err != nil {
		return CLIConfig{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// saveConfig writes the CLI config to disk.
func saveConfig(cfg CLIConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// resolveConfig returns the file config with environment overrides and
// defaults applied.
func resolveConfig() (CLIConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return CLIConfig{}, err
	}
	if err := env.Parse(&cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing environment: %w", err)
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = defaultServerURL
	}
	if cfg.Language == "" {
		cfg.Language = defaultLanguage
	}
	if cfg.PhotoDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return CLIConfig{}, fmt.Errorf("finding home directory: %w", err)
		}
		cfg.PhotoDir = filepath.Join(home, ".local", "share", "dv", "photos")
	}
	return cfg, nil
}
