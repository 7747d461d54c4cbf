// Package config holds runtime configuration for the extractor.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Stall policies for a pagination refresh that never completes.
const (
	OnStallTruncate = "truncate"
	OnStallFail     = "fail"
)

// Config holds extractor configuration.
type Config struct {
	BaseURL          string
	Username         string
	Password         string
	SessionFile      string
	OutputDir        string
	Headless         bool
	StepTimeout      time.Duration // per navigation/login step
	RefreshTimeout   time.Duration // pagination refresh wait
	LoadMoreAttempts int           // card layout: stale load-more attempts before stopping
	OnStall          string        // truncate or fail
	SelectorFile     string        // optional YAML selector profile
	MetricsAddr      string        // optional Prometheus listen address
	Verbose          bool
}

// DefaultConfig returns defaults matching the portal this tool was built for.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://hiring.idenhq.com/",
		SessionFile:      "session_data.json",
		OutputDir:        ".",
		Headless:         true,
		StepTimeout:      10 * time.Second,
		RefreshTimeout:   5 * time.Second,
		LoadMoreAttempts: 3,
		OnStall:          OnStallTruncate,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsed, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.SessionFile == "" {
		return fmt.Errorf("session file cannot be empty")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output directory cannot be empty")
	}
	if c.StepTimeout <= 0 {
		return fmt.Errorf("step timeout must be positive")
	}
	if c.RefreshTimeout <= 0 {
		return fmt.Errorf("refresh timeout must be positive")
	}
	if c.LoadMoreAttempts <= 0 {
		return fmt.Errorf("load-more attempts must be positive")
	}
	if c.OnStall != OnStallTruncate && c.OnStall != OnStallFail {
		return fmt.Errorf("on-stall must be %q or %q", OnStallTruncate, OnStallFail)
	}

	return nil
}

// EnvString reads a string environment variable.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// EnvInt reads an integer environment variable.
func EnvInt(key string) (int, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return 0, false, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, true, nil
}

// EnvBool reads a boolean environment variable.
func EnvBool(key string) (bool, bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return false, false, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, false, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, true, nil
}
