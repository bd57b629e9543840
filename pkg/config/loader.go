package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigLoader loads and validates the mission catalog from a JSON or YAML file.
// The format is chosen by file extension (.yaml/.yml, anything else is JSON).
type ConfigLoader struct {
	configPath string
	validator  *Validator
	logger     *slog.Logger
}

// NewConfigLoader creates a new ConfigLoader instance.
//
// Parameters:
//   - configPath: Path to the catalog file
//   - logger: Structured logger for operational logging
func NewConfigLoader(configPath string, logger *slog.Logger) *ConfigLoader {
	return &ConfigLoader{
		configPath: configPath,
		validator:  NewValidator(),
		logger:     logger,
	}
}

// LoadConfig loads the catalog file and returns a validated Config.
// If any step fails the caller should refuse to start: an invalid catalog
// would assign progress records to missions that can never complete.
func (l *ConfigLoader) LoadConfig() (*Config, error) {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := Parse(data, formatFromPath(l.configPath))
	if err != nil {
		return nil, err
	}

	if err := l.validator.Validate(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	l.logger.Info("Mission catalog loaded successfully",
		"missions", len(config.Missions),
		"badges", len(config.Badges),
		"config_path", l.configPath,
	)

	return config, nil
}

// Format is a catalog file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func formatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Parse decodes catalog data and applies defaults. It does not validate.
func Parse(data []byte, format Format) (*Config, error) {
	var config Config

	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	applyDefaults(&config)

	return &config, nil
}

// applyDefaults normalizes free-form fields so lookups are case-insensitive.
func applyDefaults(config *Config) {
	for _, mission := range config.Missions {
		if mission == nil {
			continue
		}
		mission.Category = strings.ToLower(strings.TrimSpace(mission.Category))
	}
}
