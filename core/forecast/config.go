package forecast

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid forecast config")

// Config tunes the cost aggregator and the duration sweep.
type Config struct {
	// Workers bounds the number of candidate durations evaluated
	// concurrently. Zero means GOMAXPROCS.
	Workers int `json:"workers"`
	// CacheSize is the number of memoized forecasts. Negative disables
	// the cache.
	CacheSize int `json:"cache_size"`
	// TimeCostPerWeek is the duration-driven cost (site overheads,
	// supervision, rentals) charged per achieved week.
	TimeCostPerWeek float64 `json:"time_cost_per_week"`
	// MaxExtensionRatio caps the longest swept duration at
	// ceil(baseline weeks × ratio).
	MaxExtensionRatio float64 `json:"max_extension_ratio"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.Workers == 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.CacheSize == 0 {
		c.CacheSize = 256
	}
	if c.TimeCostPerWeek == 0 {
		c.TimeCostPerWeek = 5000
	}
	if c.MaxExtensionRatio == 0 {
		c.MaxExtensionRatio = 1.5
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0", ErrInvalidConfig)
	}
	if c.TimeCostPerWeek < 0 {
		return fmt.Errorf("%w: time_cost_per_week must be >= 0", ErrInvalidConfig)
	}
	if c.MaxExtensionRatio < 1 {
		return fmt.Errorf("%w: max_extension_ratio must be >= 1", ErrInvalidConfig)
	}
	return nil
}
