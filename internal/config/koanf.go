// Shiori - Local-first Anime and Manga Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shiori

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/shiori/config.yaml",
	"/etc/shiori/config.yml",
}

// ConfigPathEnvVar names the variable holding an explicit config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Dir:           "/data/shiori",
			InMemory:      false,
			CapacityBytes: 0,
		},
		Quota: QuotaConfig{
			FallbackPolicy:  "open",
			EstimateTimeout: 2 * time.Second,
		},
		Poller: PollerConfig{
			Enabled:      true,
			StartupDelay: 5 * time.Second,
			Interval:     30 * time.Minute,
			RunTimeout:   2 * time.Minute,
		},
		Reminders: RemindersConfig{
			Enabled:        true,
			StartupDelay:   5 * time.Second,
			Interval:       time.Minute,
			Timezone:       "Local",
			RearmRepeating: false,
		},
		Metadata: MetadataConfig{
			Provider:          "anilist",
			AniListURL:        "https://graphql.anilist.co",
			JikanURL:          "https://api.jikan.moe/v4",
			Timeout:           15 * time.Second,
			RequestsPerMinute: 90,
			BatchSize:         50,
			MaxRetries:        3,
			CacheTTL:          time.Hour,
			CacheSize:         500,
		},
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              4680,
			Timeout:           30 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitReqs:     300,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration in three layers: defaults, an optional
// YAML file, then environment variables.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists keys that may arrive as comma-separated strings
// from the environment.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"storage_dir":            "storage.dir",
	"storage_in_memory":      "storage.in_memory",
	"storage_capacity_bytes": "storage.capacity_bytes",

	"quota_fallback_policy":  "quota.fallback_policy",
	"quota_estimate_timeout": "quota.estimate_timeout",

	"poller_enabled":       "poller.enabled",
	"poller_startup_delay": "poller.startup_delay",
	"poller_interval":      "poller.interval",
	"poller_run_timeout":   "poller.run_timeout",

	"reminders_enabled":         "reminders.enabled",
	"reminders_startup_delay":   "reminders.startup_delay",
	"reminders_interval":        "reminders.interval",
	"reminders_timezone":        "reminders.timezone",
	"reminders_rearm_repeating": "reminders.rearm_repeating",

	"metadata_provider":            "metadata.provider",
	"anilist_url":                  "metadata.anilist_url",
	"jikan_url":                    "metadata.jikan_url",
	"metadata_timeout":             "metadata.timeout",
	"metadata_requests_per_minute": "metadata.requests_per_minute",
	"metadata_batch_size":          "metadata.batch_size",
	"metadata_max_retries":         "metadata.max_retries",
	"metadata_cache_ttl":           "metadata.cache_ttl",
	"metadata_cache_size":          "metadata.cache_size",

	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_timeout":        "server.timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_reqs",
	"rate_limit_window":   "server.rate_limit_window",
	"disable_rate_limit":  "server.rate_limit_disabled",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps known environment variables to config keys.
// Unknown variables map to "" and are ignored by koanf.
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
