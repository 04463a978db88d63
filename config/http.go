package config

import "fmt"

// HTTPConfig configures the forecast API server.
type HTTPConfig struct {
	Addr string `json:"addr"`
	// ShutdownTimeoutSeconds bounds the graceful shutdown of the server.
	ShutdownTimeoutSeconds int `json:"shutdown_timeout_seconds"`
	// MaxBodyBytes caps the size of a request body.
	MaxBodyBytes int64 `json:"max_body_bytes"`
}

// SetDefaults applies default values.
func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.ShutdownTimeoutSeconds == 0 {
		c.ShutdownTimeoutSeconds = 10
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = 8 << 20
	}
}

// Validate checks mandatory fields.
func (c HTTPConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("http: addr is required")
	}
	if c.ShutdownTimeoutSeconds < 0 || c.MaxBodyBytes < 0 {
		return fmt.Errorf("http: timeouts and limits must not be negative")
	}
	return nil
}
