// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

// Package config loads Shiori's runtime configuration.
//
// Configuration is layered with koanf: built-in defaults, then an optional
// YAML file (CONFIG_PATH or one of DefaultConfigPaths), then environment
// variables. Later layers override earlier ones. Validate runs last.
package config

import "time"

// Config holds all application configuration.
type Config struct {
	Storage   StorageConfig   `koanf:"storage"`
	Quota     QuotaConfig     `koanf:"quota"`
	Poller    PollerConfig    `koanf:"poller"`
	Reminders RemindersConfig `koanf:"reminders"`
	Metadata  MetadataConfig  `koanf:"metadata"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// StorageConfig configures the BadgerDB key-value store.
//
// Environment Variables:
//   - STORAGE_DIR: Database directory (default: /data/shiori)
//   - STORAGE_IN_MEMORY: Keep everything in RAM (default: false)
//   - STORAGE_CAPACITY_BYTES: Capacity reported to the quota estimator
type StorageConfig struct {
	Dir      string `koanf:"dir"`
	InMemory bool   `koanf:"in_memory"`

	// CapacityBytes is the device capacity reported alongside usage. It is
	// informational; the enforced limit is the per-profile storage quota.
	CapacityBytes int64 `koanf:"capacity_bytes"`
}

// QuotaConfig configures the storage quota guard.
//
// Environment Variables:
//   - QUOTA_FALLBACK_POLICY: open or serialized (default: open)
//   - QUOTA_ESTIMATE_TIMEOUT: Upper bound on one usage estimate (default: 2s)
type QuotaConfig struct {
	// FallbackPolicy decides what happens when usage cannot be estimated:
	// "open" allows the write, "serialized" compares the encoded size of
	// the candidate list data against the quota instead.
	FallbackPolicy  string        `koanf:"fallback_policy"`
	EstimateTimeout time.Duration `koanf:"estimate_timeout"`
}

// PollerConfig configures the update poller.
//
// Environment Variables:
//   - POLLER_ENABLED: Run the periodic poller (default: true)
//   - POLLER_STARTUP_DELAY: Delay before the first run (default: 5s)
//   - POLLER_INTERVAL: Time between runs (default: 30m)
//   - POLLER_RUN_TIMEOUT: Upper bound on one run (default: 2m)
type PollerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	StartupDelay time.Duration `koanf:"startup_delay"`
	Interval     time.Duration `koanf:"interval"`
	RunTimeout   time.Duration `koanf:"run_timeout"`
}

// RemindersConfig configures the reminder engine.
//
// Environment Variables:
//   - REMINDERS_ENABLED: Run the reminder engine (default: true)
//   - REMINDERS_STARTUP_DELAY: Delay before the first evaluation (default: 5s)
//   - REMINDERS_INTERVAL: Time between evaluations (default: 1m)
//   - REMINDERS_TIMEZONE: IANA zone used for weekday and time of day (default: Local)
//   - REMINDERS_REARM_REPEATING: Fire repeating reminders on every qualifying
//     day even when the previous notification is unseen (default: false)
type RemindersConfig struct {
	Enabled        bool          `koanf:"enabled"`
	StartupDelay   time.Duration `koanf:"startup_delay"`
	Interval       time.Duration `koanf:"interval"`
	Timezone       string        `koanf:"timezone"`
	RearmRepeating bool          `koanf:"rearm_repeating"`
}

// Location resolves Timezone. Validate guarantees it loads.
func (c *RemindersConfig) Location() *time.Location {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// MetadataConfig configures the catalog metadata provider.
//
// Environment Variables:
//   - METADATA_PROVIDER: anilist or jikan (default: anilist)
//   - ANILIST_URL: GraphQL endpoint (default: https://graphql.anilist.co)
//   - JIKAN_URL: REST base URL (default: https://api.jikan.moe/v4)
//   - METADATA_TIMEOUT: Per-request HTTP timeout (default: 15s)
//   - METADATA_REQUESTS_PER_MINUTE: Client-side rate limit (default: 90)
//   - METADATA_BATCH_SIZE: Ids per batched query (default: 50)
//   - METADATA_MAX_RETRIES: Attempts per request (default: 3)
//   - METADATA_CACHE_TTL: Detail cache TTL (default: 1h)
//   - METADATA_CACHE_SIZE: Detail cache capacity (default: 500)
type MetadataConfig struct {
	Provider          string        `koanf:"provider"`
	AniListURL        string        `koanf:"anilist_url"`
	JikanURL          string        `koanf:"jikan_url"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerMinute int           `koanf:"requests_per_minute"`
	BatchSize         int           `koanf:"batch_size"`
	MaxRetries        int           `koanf:"max_retries"`
	CacheTTL          time.Duration `koanf:"cache_ttl"`
	CacheSize         int           `koanf:"cache_size"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT
//   - CORS_ORIGINS: Comma-separated allowed origins (default: *)
//   - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	Timeout           time.Duration `koanf:"timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// Load reads configuration from defaults, file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
