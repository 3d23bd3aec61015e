// Package config loads and saves the gauntlet configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/gauntlet/internal/core/stage"
)

// Config represents the gauntlet configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Workers    int              `yaml:"workers"`
	Analyzer   AnalyzerConfig   `yaml:"analyzer"`
	Thresholds ThresholdsConfig `yaml:"thresholds"`
	// StageOverrides tunes individual stages, keyed by stage name.
	// Unset fields inherit from Thresholds.
	StageOverrides map[string]ThresholdsConfig `yaml:"stage_overrides,omitempty"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// AnalyzerConfig tunes the built-in heuristic analyzer.
type AnalyzerConfig struct {
	Bias float64 `yaml:"bias"` // share of analyses that validate
}

// ThresholdsConfig is the file representation of stage thresholds. Time
// windows are plain seconds; zero fields inherit the reference tuning.
type ThresholdsConfig struct {
	RequiredRoleCount        int  `yaml:"required_role_count,omitempty"`
	PartialThreshold         int  `yaml:"partial_threshold,omitempty"`
	MinimumThreshold         int  `yaml:"minimum_threshold,omitempty"`
	PartialTimeWindowSeconds int  `yaml:"partial_time_window_seconds,omitempty"`
	MinimumTimeWindowSeconds int  `yaml:"minimum_time_window_seconds,omitempty"`
	AbsoluteTimeoutSeconds   int  `yaml:"absolute_timeout_seconds,omitempty"`
	HeartbeatTimeoutSeconds  int  `yaml:"heartbeat_timeout_seconds,omitempty"`
	RetryLimit               *int `yaml:"retry_limit,omitempty"`
}

// Default returns the reference configuration.
func Default() *Config {
	return &Config{
		Log:      LogConfig{Level: "info", Format: "text"},
		Workers:  1,
		Analyzer: AnalyzerConfig{Bias: 0.7},
	}
}

// Path returns the config file location under the user's home directory.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".gauntlet", "config.yaml"), nil
}

// Load reads the config from its default location. A missing file yields
// the default configuration, not an error.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from an explicit path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to its default location.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes the config to an explicit path.
func SaveTo(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// ThresholdsFor resolves the effective thresholds for a stage name:
// reference tuning, then the global section, then the stage override.
func (c *Config) ThresholdsFor(stageName string) (stage.Thresholds, error) {
	th := stage.DefaultThresholds()
	c.Thresholds.apply(&th)
	if override, ok := c.StageOverrides[stageName]; ok {
		override.apply(&th)
	}

	if err := th.Validate(); err != nil {
		return stage.Thresholds{}, fmt.Errorf("invalid thresholds for stage %s: %w", stageName, err)
	}

	return th, nil
}

func (t ThresholdsConfig) apply(th *stage.Thresholds) {
	if t.RequiredRoleCount > 0 {
		th.RequiredRoleCount = t.RequiredRoleCount
	}
	if t.PartialThreshold > 0 {
		th.PartialThreshold = t.PartialThreshold
	}
	if t.MinimumThreshold > 0 {
		th.MinimumThreshold = t.MinimumThreshold
	}
	if t.PartialTimeWindowSeconds > 0 {
		th.PartialTimeWindow = time.Duration(t.PartialTimeWindowSeconds) * time.Second
	}
	if t.MinimumTimeWindowSeconds > 0 {
		th.MinimumTimeWindow = time.Duration(t.MinimumTimeWindowSeconds) * time.Second
	}
	if t.AbsoluteTimeoutSeconds > 0 {
		th.AbsoluteTimeout = time.Duration(t.AbsoluteTimeoutSeconds) * time.Second
	}
	if t.HeartbeatTimeoutSeconds > 0 {
		th.HeartbeatTimeout = time.Duration(t.HeartbeatTimeoutSeconds) * time.Second
	}
	if t.RetryLimit != nil {
		th.RetryLimit = *t.RetryLimit
	}
}
