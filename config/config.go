package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	API struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"api"`
	Consultation struct {
		Language         string `yaml:"language"`
		PollIntervalSecs int    `yaml:"poll_interval_secs"`
	} `yaml:"consultation"`
	Capture struct {
		Command     string `yaml:"command"`
		InputFormat string `yaml:"input_format"`
		InputDevice string `yaml:"input_device"`
		SampleRate  int    `yaml:"sample_rate"`
		Channels    int    `yaml:"channels"`
	} `yaml:"capture"`
	Paths struct {
		DownloadDir string `yaml:"download_dir"`
		LogFile     string `yaml:"log_file"`
	} `yaml:"paths"`
	Logging struct {
		Mode string `yaml:"mode"`
	} `yaml:"logging"`
}

// Load loads configuration from file or returns defaults
func Load() (*Config, error) {
	cfg := Default()

	configPath := filepath.Join(os.Getenv("HOME"), ".ghana-health", "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to file
func (c *Config) Save() error {
	configDir := filepath.Join(os.Getenv("HOME"), ".ghana-health")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{}

	cfg.API.BaseURL = "http://localhost:8000/api/v1"
	cfg.Consultation.Language = "en"
	cfg.Consultation.PollIntervalSecs = 5
	cfg.Capture.Command = "ffmpeg"
	cfg.Capture.InputFormat = "pulse"
	cfg.Capture.InputDevice = "default"
	cfg.Capture.SampleRate = 16000
	cfg.Capture.Channels = 1

	homeDir := os.Getenv("HOME")
	cfg.Paths.DownloadDir = filepath.Join(homeDir, "Downloads")
	cfg.Paths.LogFile = filepath.Join(homeDir, ".ghana-health", "client.log")
	cfg.Logging.Mode = "dev"

	return cfg
}
