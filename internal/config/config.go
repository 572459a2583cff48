package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default location, relative to the working directory.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	ServerURL string `yaml:"serverURL"`
	LogLevel  string `yaml:"logLevel"`
	StateDir  string `yaml:"stateDir"`

	// Optional Redis-backed credential store for headless deployments that
	// share one session across hosts. Empty address selects the file store.
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`
}

// Load reads config from path (defaults to config.yaml). A missing file is
// not an error: every field has a usable default or env override.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	// Override with environment variables
	if v := os.Getenv("MESSAGERIE_SERVER_URL"); v != "" {
		cfg.ServerURL = v
	}
	if v := os.Getenv("MESSAGERIE_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if v := os.Getenv("MESSAGERIE_REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("MESSAGERIE_REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.ServerURL == "" {
		cfg.ServerURL = "https://messagerie-nbbh.onrender.com"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.StateDir == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.StateDir = filepath.Join(home, ".messagerie")
		} else {
			cfg.StateDir = ".messagerie"
		}
	}
}

func validateConfig(cfg FileConfig) error {
	if !strings.HasPrefix(cfg.ServerURL, "http://") && !strings.HasPrefix(cfg.ServerURL, "https://") {
		return errors.New("config: serverURL must start with http:// or https://")
	}
	if cfg.StateDir == "" {
		return errors.New("config: stateDir is required")
	}
	return nil
}
