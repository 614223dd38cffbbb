// Package config assembles runtime settings from an optional YAML file
// and environment variables. Environment values win over file values.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds everything the serve and export commands need.
type Config struct {
	// Port the workbench API listens on.
	Port string `yaml:"port"`
	// BackendURL is the base URL of the scan pipeline REST API.
	BackendURL string `yaml:"backend_url"`
	// StatusFeedURL is the websocket endpoint pushing status events.
	// Derived from BackendURL when empty.
	StatusFeedURL string `yaml:"status_feed_url"`

	GeminiAPIKey string `yaml:"gemini_api_key"`
	GeminiModel  string `yaml:"gemini_model"`
}

// Load reads the YAML file at path when path is non-empty, then applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.Port = override("SCANREVIEW_PORT", cfg.Port, "8787")
	cfg.BackendURL = override("SCANREVIEW_BACKEND_URL", cfg.BackendURL, "http://localhost:8000")
	cfg.StatusFeedURL = override("SCANREVIEW_STATUS_FEED_URL", cfg.StatusFeedURL, "")
	cfg.GeminiAPIKey = override("GEMINI_API_KEY", cfg.GeminiAPIKey, "")
	cfg.GeminiModel = override("GEMINI_MODEL", cfg.GeminiModel, "gemini-2.5-flash")

	return cfg, nil
}

// override picks the environment value when set, then the file value,
// then the default.
func override(key, fileValue, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	if fileValue != "" {
		return fileValue
	}
	return def
}
