package models

import (
	"fmt"
	"time"
)

const DefaultUserAgent = "secheaders/1.0 (+https://github.com/Sla0ui/secheaders)"

// Config holds all configuration options for secheaders
type Config struct {
	Timeout         time.Duration
	FollowRedirects bool
	VerifyTLS       bool
	UserAgent       string
	MaxConcurrent   int
	MaxRedirects    int
	RateLimit       float64
	UseBrowser      bool
	BrowserTimeout  time.Duration
	CatalogPath     string
	OutputPath      string
	Verbose         bool
	NoColor         bool
	NoProgress      bool
	NoBanner        bool
	Quiet           bool
}

// Validate checks if the configuration is valid and returns an error if not
func (c *Config) Validate() error {
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("max concurrent requests must be at least 1, got %d", c.MaxConcurrent)
	}
	if c.MaxConcurrent > 500 {
		return fmt.Errorf("max concurrent requests cannot exceed 500, got %d", c.MaxConcurrent)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout)
	}
	if c.MaxRedirects < 0 {
		return fmt.Errorf("max redirects cannot be negative, got %d", c.MaxRedirects)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative, got %v", c.RateLimit)
	}
	if c.UseBrowser && c.BrowserTimeout <= 0 {
		return fmt.Errorf("browser timeout must be positive, got %v", c.BrowserTimeout)
	}
	return nil
}

// Clone creates a copy of the config so callers cannot mutate a running scanner
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Timeout:         10 * time.Second,
		FollowRedirects: true,
		VerifyTLS:       true,
		UserAgent:       DefaultUserAgent,
		MaxConcurrent:   10,
		MaxRedirects:    10,
		RateLimit:       0,
		UseBrowser:      false,
		BrowserTimeout:  30 * time.Second,
	}
}
