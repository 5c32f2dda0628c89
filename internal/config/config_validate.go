// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package config

import (
	"fmt"
	"net/url"
	"time"
)

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

var validProviders = map[string]bool{
	"anilist": true,
	"jikan":   true,
}

var validFallbackPolicies = map[string]bool{
	"open":       true,
	"serialized": true,
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateQuota(); err != nil {
		return err
	}
	if err := c.validatePoller(); err != nil {
		return err
	}
	if err := c.validateReminders(); err != nil {
		return err
	}
	if err := c.validateMetadata(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateStorage() error {
	if !c.Storage.InMemory && c.Storage.Dir == "" {
		return fmt.Errorf("STORAGE_DIR is required unless STORAGE_IN_MEMORY is set")
	}
	if c.Storage.CapacityBytes < 0 {
		return fmt.Errorf("STORAGE_CAPACITY_BYTES must not be negative")
	}
	return nil
}

func (c *Config) validateQuota() error {
	if !validFallbackPolicies[c.Quota.FallbackPolicy] {
		return fmt.Errorf("QUOTA_FALLBACK_POLICY must be one of: open, serialized")
	}
	if c.Quota.EstimateTimeout <= 0 {
		return fmt.Errorf("QUOTA_ESTIMATE_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validatePoller() error {
	if !c.Poller.Enabled {
		return nil
	}
	if c.Poller.Interval < time.Minute {
		return fmt.Errorf("POLLER_INTERVAL must be at least 1m")
	}
	if c.Poller.StartupDelay < 0 {
		return fmt.Errorf("POLLER_STARTUP_DELAY must not be negative")
	}
	if c.Poller.RunTimeout <= 0 {
		return fmt.Errorf("POLLER_RUN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateReminders() error {
	if c.Reminders.Timezone != "" && c.Reminders.Timezone != "Local" {
		if _, err := time.LoadLocation(c.Reminders.Timezone); err != nil {
			return fmt.Errorf("REMINDERS_TIMEZONE %q is not a known zone: %w", c.Reminders.Timezone, err)
		}
	}
	if !c.Reminders.Enabled {
		return nil
	}
	if c.Reminders.Interval < time.Second {
		return fmt.Errorf("REMINDERS_INTERVAL must be at least 1s")
	}
	if c.Reminders.StartupDelay < 0 {
		return fmt.Errorf("REMINDERS_STARTUP_DELAY must not be negative")
	}
	return nil
}

func (c *Config) validateMetadata() error {
	m := &c.Metadata
	if !validProviders[m.Provider] {
		return fmt.Errorf("METADATA_PROVIDER must be one of: anilist, jikan")
	}
	endpoint := m.AniListURL
	if m.Provider == "jikan" {
		endpoint = m.JikanURL
	}
	if err := validateHTTPURL(endpoint); err != nil {
		return fmt.Errorf("%s URL: %w", m.Provider, err)
	}
	if m.Timeout <= 0 {
		return fmt.Errorf("METADATA_TIMEOUT must be positive")
	}
	if m.RequestsPerMinute < 1 {
		return fmt.Errorf("METADATA_REQUESTS_PER_MINUTE must be at least 1")
	}
	if m.BatchSize < 1 || m.BatchSize > 50 {
		return fmt.Errorf("METADATA_BATCH_SIZE must be between 1 and 50")
	}
	if m.MaxRetries < 1 {
		return fmt.Errorf("METADATA_MAX_RETRIES must be at least 1")
	}
	if m.CacheSize < 0 {
		return fmt.Errorf("METADATA_CACHE_SIZE must not be negative")
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	if err := c.validateLogLevel(); err != nil {
		return err
	}
	return c.validateLogFormat()
}

func (c *Config) validateLogLevel() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	return nil
}

func (c *Config) validateLogFormat() error {
	if c.Logging.Format == "" {
		return nil
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
