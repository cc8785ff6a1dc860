// Package config loads generation settings from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"garlic-defense/internal/generation"
)

// Config holds the file-configurable application settings.
type Config struct {
	Generation struct {
		Endpoint       string  `yaml:"endpoint"`
		APIKey         string  `yaml:"api_key"`
		Model          string  `yaml:"model"`
		Temperature    float64 `yaml:"temperature"`
		MaxTokens      int     `yaml:"max_tokens"`
		Delimiter      string  `yaml:"delimiter"`
		TimeoutSeconds int     `yaml:"timeout_seconds"`
	} `yaml:"generation"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides. A missing file is not an error; defaults and environment
// still apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	// Environment variable overrides
	if v := os.Getenv("GENERATION_ENDPOINT"); v != "" {
		cfg.Generation.Endpoint = v
	}
	if v := os.Getenv("GENERATION_API_KEY"); v != "" {
		cfg.Generation.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Generation.APIKey == "" {
		cfg.Generation.APIKey = v
	}
	if v := os.Getenv("GENERATION_MODEL"); v != "" {
		cfg.Generation.Model = v
	}
	if v := os.Getenv("GENERATION_DELIMITER"); v != "" {
		cfg.Generation.Delimiter = v
	}
	if v := os.Getenv("GENERATION_TIMEOUT_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse GENERATION_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Generation.TimeoutSeconds = seconds
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	defaults := generation.DefaultConfig()
	if c.Generation.Endpoint == "" {
		c.Generation.Endpoint = "https://api.openai.com/v1/chat/completions"
	}
	if c.Generation.Model == "" {
		c.Generation.Model = defaults.Model
	}
	if c.Generation.Temperature == 0 {
		c.Generation.Temperature = defaults.Temperature
	}
	if c.Generation.MaxTokens == 0 {
		c.Generation.MaxTokens = defaults.MaxTokens
	}
	if c.Generation.Delimiter == "" {
		c.Generation.Delimiter = defaults.Delimiter
	}
	if c.Generation.TimeoutSeconds == 0 {
		c.Generation.TimeoutSeconds = int(defaults.Timeout / time.Second)
	}
}

// GenerationConfig converts to the generation client's config.
func (c *Config) GenerationConfig() generation.Config {
	return generation.Config{
		Endpoint:    c.Generation.Endpoint,
		APIKey:      c.Generation.APIKey,
		Model:       c.Generation.Model,
		Temperature: c.Generation.Temperature,
		MaxTokens:   c.Generation.MaxTokens,
		Delimiter:   c.Generation.Delimiter,
		Timeout:     time.Duration(c.Generation.TimeoutSeconds) * time.Second,
	}
}
