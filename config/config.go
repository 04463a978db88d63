package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/crunch/core/costmodel"
	"github.com/kilianp07/crunch/core/forecast"
	"github.com/kilianp07/crunch/core/forecast/history"
	"github.com/kilianp07/crunch/core/metrics"
	"github.com/kilianp07/crunch/infra/logger"
	"github.com/kilianp07/crunch/infra/monitoring"
)

type Config struct {
	Model      costmodel.Params  `json:"model"`
	Forecast   forecast.Config   `json:"forecast"`
	History    history.Config    `json:"history"`
	Metrics    metrics.Config    `json:"metrics"`
	Logging    logger.Config     `json:"logging"`
	Monitoring monitoring.Config `json:"monitoring"`
	HTTP       HTTPConfig        `json:"http"`
}

// Load reads the file at path, applies K_SECTION__KEY environment overrides
// and fills defaults. An empty path yields the defaults plus overrides.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used without a config file.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults fills every section.
func (c *Config) SetDefaults() {
	c.Model.SetDefaults()
	c.Forecast.SetDefaults()
	c.History.SetDefaults()
	c.Logging.SetDefaults()
	c.HTTP.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}
	if err := c.Forecast.Validate(); err != nil {
		return fmt.Errorf("forecast: %w", err)
	}
	if err := c.History.Validate(); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Monitoring.Validate(); err != nil {
		return err
	}
	return c.HTTP.Validate()
}
