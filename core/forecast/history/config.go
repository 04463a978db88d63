package history

import (
	"fmt"
	"strings"
)

// Backend names accepted by Config.
const (
	BackendNone   = "none"
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// Config selects the history backend.
type Config struct {
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults disables history unless a backend is configured.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendNone
	}
	c.Backend = strings.ToLower(c.Backend)
	if c.Path == "" {
		switch c.Backend {
		case BackendJSONL:
			c.Path = "crunch_history.jsonl"
		case BackendSQLite:
			c.Path = "crunch_history.db"
		}
	}
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 50
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 5
	}
}

// Validate checks the backend name and rotation settings.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendNone, BackendJSONL, BackendSQLite:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Backend)
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return fmt.Errorf("history: rotation settings must not be negative")
	}
	return nil
}

// Open creates the store described by cfg.
func Open(cfg Config) (Store, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendJSONL:
		return NewJSONLStore(cfg.Path, Rotation{MaxSizeMB: cfg.MaxSizeMB, MaxBackups: cfg.MaxBackups, MaxAgeDays: cfg.MaxAgeDays})
	case BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	default:
		return NopStore{}, nil
	}
}
